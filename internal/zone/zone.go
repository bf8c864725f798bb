// Package zone finds the spark panels of the parent and both grandparents in
// a composite of inspiration screenshots.
package zone

import (
	"fmt"
	"image"
	"sort"
	"strings"

	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
	"sparkscan/internal/ocr"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
	"sparkscan/pkg/geometry"
)

// Anchor is an OCR word recognized as a blue spark label. Every zone starts
// just above one.
type Anchor struct {
	Keyword string
	Bounds  geometry.RectInt
	// Segment is the index of the screenshot the anchor sits in.
	Segment int
}

// Detector locates spark zones.
type Detector struct {
	cfg      config.ZoneConfig
	keywords []string
	ignore   map[string]bool
	boxes    *spark.BoxDetector
	log      *logging.Logger
}

// NewDetector builds a detector. keywords are the blue spark names used as
// anchors; boxes is used by the sanity check on middle candidates.
func NewDetector(cfg config.ZoneConfig, keywords []string, boxes *spark.BoxDetector, log *logging.Logger) *Detector {
	ignore := make(map[string]bool, len(cfg.IgnoreWords))
	for _, w := range cfg.IgnoreWords {
		ignore[vocab.Normalize(w)] = true
	}
	return &Detector{
		cfg:      cfg,
		keywords: keywords,
		ignore:   ignore,
		boxes:    boxes,
		log:      logging.OrNop(log),
	}
}

// Detect returns up to MaxZones zones sorted left to right, top to bottom.
// Zone i belongs to origin i (parent, gp1, gp2).
func (d *Detector) Detect(img gocv.Mat, reader ocr.Reader) ([]geometry.RectInt, error) {
	if img.Empty() {
		return nil, ocr.ErrEmptyImage
	}
	words, err := reader.Read(img, ocr.Words)
	if err != nil {
		return nil, fmt.Errorf("read composite: %w", err)
	}
	w, h := img.Cols(), img.Rows()

	anchors := d.Anchors(words, h)
	candidates := Dedup(d.Candidates(anchors, w, h), d.cfg.IoUThreshold)
	d.log.Debug("zone candidates", "anchors", len(anchors), "candidates", len(candidates))

	zones := d.selectZones(candidates, w, h, func(z geometry.RectInt) bool {
		return d.plausible(img, reader, z)
	})
	for i := range zones {
		zones[i] = zones[i].Clamp(w, h)
	}
	return zones, nil
}

// Anchors matches every blue keyword against every OCR word in the lower part
// of the image. The result is ordered by top edge.
func (d *Detector) Anchors(words []ocr.Result, height int) []Anchor {
	minY := float64(height) * d.cfg.MinYFraction
	var anchors []Anchor
	for _, kw := range d.keywords {
		key := strings.ToLower(kw)
		for _, word := range words {
			if word.Bounds.Center().Y < minY {
				continue
			}
			if d.ignore[vocab.Normalize(word.Text)] {
				continue
			}
			if vocab.Similarity(strings.ToLower(word.Text), key) < d.cfg.AnchorCutoff {
				continue
			}
			anchors = append(anchors, Anchor{
				Keyword: kw,
				Bounds:  word.Bounds,
				Segment: word.Bounds.X / d.cfg.ScreenshotWidth,
			})
		}
	}
	sort.SliceStable(anchors, func(i, j int) bool {
		return anchors[i].Bounds.Y < anchors[j].Bounds.Y
	})
	return anchors
}

// Candidates derives one zone per anchor. A zone spans a fixed width from a
// fixed offset inside the anchor's screenshot, starts just above the anchor
// and ends above the next anchor of the same screenshot, or at a fixed
// margin from the bottom. Zones that end up empty are dropped.
func (d *Detector) Candidates(anchors []Anchor, width, height int) []geometry.RectInt {
	var zones []geometry.RectInt
	for i, a := range anchors {
		x1 := a.Segment*d.cfg.ScreenshotWidth + d.cfg.OffsetX
		y1 := a.Bounds.Y - d.cfg.TopOffset
		y2 := height - d.cfg.BottomMargin
		for _, next := range anchors[i+1:] {
			if next.Segment == a.Segment {
				y2 = next.Bounds.Y - d.cfg.NextAnchorOffset
				break
			}
		}
		z := geometry.FromCorners(x1, y1, x1+d.cfg.Width, y2)
		if z.Empty() || z.Clamp(width, height).Empty() {
			d.log.Debug("dropping empty zone", "anchor", a.Keyword, "y", a.Bounds.Y)
			continue
		}
		zones = append(zones, z)
	}
	return zones
}

// Dedup drops every zone whose IoU with an already kept zone exceeds
// threshold. Order is preserved.
func Dedup(zones []geometry.RectInt, threshold float64) []geometry.RectInt {
	var kept []geometry.RectInt
	for _, z := range zones {
		dup := false
		for _, k := range kept {
			if z.IoU(k) > threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, z)
		}
	}
	return kept
}

// selectZones keeps the top-left and bottom-right candidates, then fills up
// to MaxZones with the plausible candidates nearest the image center.
func (d *Detector) selectZones(candidates []geometry.RectInt, w, h int, plausible func(geometry.RectInt) bool) []geometry.RectInt {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]geometry.RectInt(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	limit := max(d.cfg.MaxZones, 1)
	selected := []geometry.RectInt{sorted[0]}
	if last := sorted[len(sorted)-1]; last != sorted[0] && len(selected) < limit {
		selected = append(selected, last)
	}

	var remaining []geometry.RectInt
	for _, z := range sorted {
		if !containsRect(selected, z) {
			remaining = append(remaining, z)
		}
	}
	center := geometry.Point2D{X: float64(w) / 2, Y: float64(h) / 2}
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Center().Distance(center) < remaining[j].Center().Distance(center)
	})
	for _, z := range remaining {
		if len(selected) >= limit {
			break
		}
		if plausible(z) {
			selected = append(selected, z)
		} else {
			d.log.Debug("rejected implausible zone", "zone", z)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].Less(selected[j]) })
	return selected
}

// plausible checks that the first box of both columns reads with at least
// MinConfidence average OCR confidence.
func (d *Detector) plausible(img gocv.Mat, reader ocr.Reader, z geometry.RectInt) bool {
	clamped := z.Clamp(img.Cols(), img.Rows())
	if clamped.Empty() {
		return false
	}
	region := img.Region(clamped.ToImageRect())
	defer region.Close()

	for _, rect := range spark.Columns(region.Cols(), region.Rows()) {
		conf := d.firstBoxConfidence(region, rect, reader)
		if conf < d.cfg.MinConfidence {
			d.log.Debug("low first-box confidence", "zone", z, "confidence", conf)
			return false
		}
	}
	return true
}

func (d *Detector) firstBoxConfidence(region gocv.Mat, rect image.Rectangle, reader ocr.Reader) float64 {
	if rect.Empty() {
		return 0
	}
	column := region.Region(rect)
	defer column.Close()

	spans := d.boxes.Detect(column)
	if len(spans) == 0 {
		return 0
	}
	box := column.Region(image.Rect(0, spans[0].Y0, column.Cols(), spans[0].Y1))
	defer box.Close()

	results, err := reader.Read(box, ocr.Words)
	if err != nil {
		d.log.Warn("sanity check OCR failed", "error", err)
		return 0
	}
	return ocr.AverageConfidence(results)
}

func containsRect(list []geometry.RectInt, r geometry.RectInt) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}
