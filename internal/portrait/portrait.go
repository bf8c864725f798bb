// Package portrait identifies characters by the portrait shown next to
// their sparks. A face cut from the screenshot portrait is searched for in
// every master image; the master that reproduces it with the smallest pixel
// difference wins.
package portrait

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
	"sparkscan/internal/screenshot"
)

// Master is the reference portrait of one character, stored as grayscale.
type Master struct {
	Name string
	gray gocv.Mat
}

// Match is the outcome of comparing a portrait against the library.
type Match struct {
	Name string
	// Score is the normalized correlation of the located face.
	Score float64
	// Diff is the sum of squared gray differences against the master face.
	Diff float64
}

// Library stores master portraits. It is read-only once loaded and may be
// shared between workers.
type Library struct {
	masters []*Master
	cfg     config.PortraitConfig
	log     *logging.Logger
}

// NewLibrary creates an empty library.
func NewLibrary(cfg config.PortraitConfig, log *logging.Logger) *Library {
	return &Library{cfg: cfg, log: logging.OrNop(log)}
}

// Load reads every supported image in dir as a master. A missing directory
// yields an empty library.
func Load(dir string, cfg config.PortraitConfig, log *logging.Logger) (*Library, error) {
	lib := NewLibrary(cfg, log)
	if dir == "" {
		return lib, nil
	}
	paths, err := screenshot.ListImages(dir)
	if errors.Is(err, os.ErrNotExist) {
		lib.log.Debug("no portrait directory", "dir", dir)
		return lib, nil
	}
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		img, err := screenshot.Load(path)
		if err != nil {
			lib.log.Warn("skipping portrait master", "path", path, "error", err)
			continue
		}
		if err := lib.Add(MasterName(path), img); err != nil {
			lib.log.Warn("skipping portrait master", "path", path, "error", err)
		}
	}
	lib.log.Info("portrait masters loaded", "dir", dir, "count", lib.Len())
	return lib, nil
}

// MasterName derives a character name from a master file name, so
// "Special_Week_c.png" names "Special Week".
func MasterName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.TrimSuffix(base, "_c")
	return strings.ReplaceAll(base, "_", " ")
}

// Add adds a master, keeping the library sorted by name. Transparent
// pixels are flattened onto white.
func (l *Library) Add(name string, img image.Image) error {
	gray, err := grayOnWhite(img)
	if err != nil {
		return fmt.Errorf("master %s: %w", name, err)
	}
	l.masters = append(l.masters, &Master{Name: name, gray: gray})
	sort.Slice(l.masters, func(i, j int) bool {
		return strings.ToLower(l.masters[i].Name) < strings.ToLower(l.masters[j].Name)
	})
	return nil
}

// Len returns the number of masters.
func (l *Library) Len() int { return len(l.masters) }

// Names returns all master names in library order.
func (l *Library) Names() []string {
	names := make([]string, len(l.masters))
	for i, m := range l.masters {
		names[i] = m.Name
	}
	return names
}

// Close releases the master images.
func (l *Library) Close() error {
	for _, m := range l.masters {
		m.gray.Close()
	}
	l.masters = nil
	return nil
}

// Identify compares a BGR portrait crop against every master. ok is false
// when the library is empty, no master contains the face, or the closest
// master differs by MaxDiff or more.
func (l *Library) Identify(portrait gocv.Mat) (Match, bool) {
	if len(l.masters) == 0 || portrait.Empty() {
		return Match{}, false
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(portrait, &gray, gocv.ColorBGRToGray)

	rect := faceRect(gray.Cols(), gray.Rows())
	if rect.Empty() {
		return Match{}, false
	}
	region := gray.Region(rect)
	face := region.Clone()
	region.Close()
	defer face.Close()

	best := Match{Diff: math.Inf(1)}
	for _, m := range l.masters {
		crop, score, ok := l.locate(m.gray, face)
		if !ok {
			continue
		}
		diff := sumSquaredDiff(face, crop)
		crop.Close()
		l.log.Debug("portrait candidate", "master", m.Name, "score", score, "diff", diff)
		if diff < best.Diff {
			best = Match{Name: m.Name, Score: score, Diff: diff}
		}
	}
	if best.Name == "" || best.Diff >= l.cfg.MaxDiff {
		return best, false
	}
	return best, true
}

// faceRect is the part of a screenshot portrait that shows the face.
func faceRect(w, h int) image.Rectangle {
	return image.Rect(w*10/100, h*40/100, w, h*88/100)
}

// locate searches the middle of a master for face over a range of scales
// and returns the matching master region resized to the face size.
func (l *Library) locate(master, face gocv.Mat) (gocv.Mat, float64, bool) {
	mw, mh := master.Cols(), master.Rows()
	zone := image.Rect(mw*15/100, mh*10/100, mw*85/100, mh*70/100)
	fw, fh := face.Cols(), face.Rows()
	if zone.Dx() < fw || zone.Dy() < fh {
		return gocv.Mat{}, 0, false
	}
	area := master.Region(zone)
	defer area.Close()

	bestScore, bestScale := -1.0, 1.0
	var bestLoc image.Point
	for _, scale := range l.scales() {
		w, h := int(float64(zone.Dx())*scale), int(float64(zone.Dy())*scale)
		if w < fw || h < fh {
			continue
		}
		score, loc := matchAt(area, face, w, h)
		if score > bestScore {
			bestScore, bestScale, bestLoc = score, scale, loc
		}
	}
	if bestScore < l.cfg.MinScore {
		return gocv.Mat{}, bestScore, false
	}

	x := zone.Min.X + int(float64(bestLoc.X)/bestScale)
	y := zone.Min.Y + int(float64(bestLoc.Y)/bestScale)
	rect := image.Rect(x, y, x+int(float64(fw)/bestScale), y+int(float64(fh)/bestScale)).
		Intersect(image.Rect(0, 0, mw, mh))
	if rect.Empty() {
		return gocv.Mat{}, bestScore, false
	}
	region := master.Region(rect)
	defer region.Close()
	out := gocv.NewMat()
	gocv.Resize(region, &out, image.Pt(fw, fh), 0, 0, gocv.InterpolationLanczos4)
	return out, bestScore, true
}

func matchAt(area, face gocv.Mat, w, h int) (float64, image.Point) {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(area, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationArea)

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(resized, face, &result, gocv.TmCcoeffNormed, mask)

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	return float64(maxVal), maxLoc
}

// scales runs from 1 down to MinScale in Scales steps.
func (l *Library) scales() []float64 {
	n := max(l.cfg.Scales, 1)
	if n == 1 {
		return []float64{1}
	}
	step := (1 - l.cfg.MinScale) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 - float64(i)*step
	}
	return out
}

// sumSquaredDiff compares two continuous single-channel Mats of equal size.
func sumSquaredDiff(a, b gocv.Mat) float64 {
	pa, pb := a.ToBytes(), b.ToBytes()
	if len(pa) != len(pb) {
		return math.Inf(1)
	}
	var sum float64
	for i := range pa {
		d := float64(pa[i]) - float64(pb[i])
		sum += d * d
	}
	return sum
}

func grayOnWhite(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)
	bgr, err := screenshot.ToMat(flat)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bgr.Close()
	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray, nil
}
