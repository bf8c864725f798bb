// Package scan turns folders of screenshots into character records.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
	"sparkscan/internal/ocr"
	"sparkscan/internal/portrait"
	"sparkscan/internal/profile"
	"sparkscan/internal/record"
	"sparkscan/internal/screenshot"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
	"sparkscan/internal/zone"
	"sparkscan/pkg/geometry"
)

var (
	// ErrNoName means no screenshot of the folder yielded a character name,
	// so no entry hash can be derived.
	ErrNoName = errors.New("no character name found")
	// ErrNoImages means the folder holds no readable screenshot.
	ErrNoImages = errors.New("no readable images")
)

// Status is the result of processing one folder.
type Status int

const (
	Success Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ImageStatus is the result of loading one screenshot.
type ImageStatus int

const (
	Loaded ImageStatus = iota
	Unreadable
	// OCRFailed means the image loaded but reading its profile failed.
	OCRFailed
)

func (s ImageStatus) String() string {
	switch s {
	case Unreadable:
		return "unreadable"
	case OCRFailed:
		return "ocr failed"
	}
	return "loaded"
}

// Item describes one screenshot of a folder.
type Item struct {
	Path   string
	Status ImageStatus
	Tab    screenshot.Tab
	Err    error
}

// Outcome is everything learned about one folder.
type Outcome struct {
	Folder string
	Status Status
	Reason string
	Record record.Record
	Items  []Item
}

// Processor runs the per-folder pipeline. It holds no per-folder state and
// is safe to share between workers; the OCR reader is not.
type Processor struct {
	tabs        config.TabConfig
	shape       spark.Shape
	profile     *profile.Parser
	sparks      *spark.Parser
	zones       *zone.Detector
	roster      *vocab.Roster
	portraits   *portrait.Library
	portraitBox geometry.RectInt
	log         *logging.Logger
}

// NewProcessor wires the pipeline stages from configuration and reference
// data. portraits may be nil, which disables the portrait fallback for
// grandparents.
func NewProcessor(cfg config.Config, v *vocab.Vocabulary, roster *vocab.Roster, portraits *portrait.Library, log *logging.Logger) (*Processor, error) {
	log = logging.OrNop(log)
	if roster == nil {
		roster = vocab.NewRoster(nil, nil, nil)
	}
	matcher := vocab.NewMatcher(v, cfg.Matching.Cutoffs, cfg.Matching.MinSubstringLen)
	sparks := spark.NewParser(cfg.Sparks, matcher, log)
	prof, err := profile.NewParser(cfg.Profile, cfg.Matching, roster, log)
	if err != nil {
		return nil, fmt.Errorf("profile parser: %w", err)
	}
	return &Processor{
		tabs:        cfg.Tabs,
		shape:       spark.Shape(cfg.Sparks.Shape),
		profile:     prof,
		sparks:      sparks,
		zones:       zone.NewDetector(cfg.Zones, v.Names(vocab.Blue), sparks.Boxes(), log),
		roster:      roster,
		portraits:   portraits,
		portraitBox: cfg.Portrait.Box,
		log:         log,
	}, nil
}

// ProcessFolder reads every screenshot in folder and builds its record.
func (p *Processor) ProcessFolder(ctx context.Context, folder string, reader ocr.Reader) Outcome {
	out := Outcome{Folder: folder}
	log := p.log.With("folder", folder)

	paths, err := screenshot.ListImages(folder)
	if err != nil {
		return fail(out, err)
	}

	var (
		profiles    []profile.Result
		inspiration []image.Image
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return fail(out, err)
		}
		img, err := screenshot.Load(path)
		if err != nil {
			log.Warn("skipping unreadable screenshot", "path", path, "error", err)
			out.Items = append(out.Items, Item{Path: path, Status: Unreadable, Err: err})
			continue
		}
		item, res, err := p.readScreenshot(path, img, reader)
		if item.Tab == screenshot.Inspiration {
			inspiration = append(inspiration, img)
		}
		if err != nil {
			log.Warn("skipping screenshot profile", "path", path, "error", err)
			item.Status, item.Err = OCRFailed, err
			out.Items = append(out.Items, item)
			continue
		}
		out.Items = append(out.Items, item)
		profiles = append(profiles, res)
	}

	if len(profiles) == 0 {
		out.Status = Skipped
		out.Reason = ErrNoImages.Error()
		log.Warn("folder skipped", "reason", out.Reason)
		return out
	}

	merged := profile.Merge(profiles...)
	if merged.Name == "" {
		out.Status = Skipped
		out.Reason = ErrNoName.Error()
		log.Warn("folder skipped", "reason", out.Reason)
		return out
	}

	rec := record.New(filepath.Base(folder), merged.Name)
	rec.Score = merged.Score
	rec.Stats = merged.Stats
	rec.Aptitudes = merged.Aptitudes
	rec.Skills = merged.Skills

	if len(inspiration) > 0 {
		if err := p.readSparks(&rec, inspiration, reader); err != nil {
			log.Warn("spark extraction failed", "error", err)
			rec.Sparks = record.Sparks{}
			rec.GP1, rec.GP2 = record.Unknown, record.Unknown
		}
	} else {
		log.Warn("no inspiration screenshot found")
	}

	out.Status = Success
	out.Record = rec
	log.Info("folder processed", "name", rec.Name, "hash", rec.EntryHash, "sparks", rec.Sparks.Len())
	return out
}

func (p *Processor) readScreenshot(path string, img image.Image, reader ocr.Reader) (Item, profile.Result, error) {
	mat, err := screenshot.ToMat(img)
	if err != nil {
		return Item{Path: path}, profile.Result{}, err
	}
	defer mat.Close()

	item := Item{Path: path, Status: Loaded, Tab: screenshot.ClassifyTab(mat, p.tabs)}
	res, err := p.profile.Parse(mat, reader)
	if err != nil {
		return item, res, err
	}
	// the skill list is only on screen in the skills tab
	if item.Tab != screenshot.Skills {
		res.Skills = nil
	}
	return item, res, nil
}

// readSparks composes the inspiration screenshots, finds one zone per
// origin and parses each of them.
func (p *Processor) readSparks(rec *record.Record, images []image.Image, reader ocr.Reader) error {
	composite, err := screenshot.ToMat(screenshot.Compose(images))
	if err != nil {
		return err
	}
	defer composite.Close()

	zones, err := p.zones.Detect(composite, reader)
	if err != nil {
		return fmt.Errorf("detect zones: %w", err)
	}
	if len(zones) < len(spark.Origins) {
		p.log.Warn("fewer spark zones than origins", "hash", rec.EntryHash, "zones", len(zones))
	}

	for i, z := range zones {
		if i >= len(spark.Origins) {
			break
		}
		region := composite.Region(z.ToImageRect())
		occs := p.sparks.Parse(region, reader)
		region.Close()
		rec.Sparks.Set(spark.Origins[i], spark.Collect(occs, p.shape))
	}
	rec.GP1 = p.grandparent(composite, zones, spark.GP1, rec.Sparks.GP1)
	rec.GP2 = p.grandparent(composite, zones, spark.GP2, rec.Sparks.GP2)
	return nil
}

// grandparent names the character of origin o from its green spark and,
// failing that, from the portrait left of its zone.
func (p *Processor) grandparent(composite gocv.Mat, zones []geometry.RectInt, o spark.Origin, sparks []spark.Spark) string {
	if name := Grandparent(sparks, p.roster); name != record.Unknown {
		return name
	}
	if p.portraits == nil || p.portraits.Len() == 0 || int(o) >= len(zones) {
		return record.Unknown
	}
	z := zones[o]
	box := geometry.RectInt{
		X:      z.X + p.portraitBox.X,
		Y:      z.Y + p.portraitBox.Y,
		Width:  p.portraitBox.Width,
		Height: p.portraitBox.Height,
	}.Clamp(composite.Cols(), composite.Rows())
	if box.Empty() {
		return record.Unknown
	}
	crop := composite.Region(box.ToImageRect())
	defer crop.Close()

	m, ok := p.portraits.Identify(crop)
	if !ok {
		p.log.Debug("portrait not identified", "origin", o.String(), "diff", m.Diff)
		return record.Unknown
	}
	p.log.Info("grandparent identified by portrait", "origin", o.String(), "name", m.Name, "diff", m.Diff)
	return m.Name
}

// Grandparent names the character whose unique skill is the first green
// spark of an origin, or record.Unknown.
func Grandparent(sparks []spark.Spark, roster *vocab.Roster) string {
	s, ok := spark.FirstOfColor(sparks, vocab.Green)
	if !ok {
		return record.Unknown
	}
	if owner, ok := roster.OwnerOf(s.Name); ok {
		return owner
	}
	return record.Unknown
}

func fail(out Outcome, err error) Outcome {
	out.Status = Failed
	out.Reason = err.Error()
	return out
}
