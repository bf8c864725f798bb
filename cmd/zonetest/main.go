// Command zonetest runs zone detection on inspiration screenshots and writes
// an annotated composite.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
	"sparkscan/internal/ocr"
	"sparkscan/internal/screenshot"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
	"sparkscan/internal/zone"
	"sparkscan/pkg/colorutil"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Config file path")
	outPath := flag.String("out", "zones.png", "Annotated output image")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Usage: zonetest [-config sparkscan.yaml] [-out zones.png] <screenshot>...")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	level := "info"
	if *verbose {
		level = "debug"
	}
	log, err := logging.New("development", level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	v, err := vocab.Load(cfg.Paths.Vocabulary, cfg.Paths.Corrections)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load vocabulary: %v\n", err)
		os.Exit(1)
	}

	var images []image.Image
	for _, path := range flag.Args() {
		img, err := screenshot.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		fmt.Fprintln(os.Stderr, "No readable screenshots")
		os.Exit(1)
	}

	composite, err := screenshot.ToMat(screenshot.Compose(images))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build composite: %v\n", err)
		os.Exit(1)
	}
	defer composite.Close()
	fmt.Printf("Composite: %dx%d from %d screenshot(s)\n", composite.Cols(), composite.Rows(), len(images))

	engine, err := ocr.NewEngine(ocr.Options{
		Languages:      cfg.OCR.Languages,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		MinHeight:      cfg.OCR.MinHeight,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start OCR: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	matcher := vocab.NewMatcher(v, cfg.Matching.Cutoffs, cfg.Matching.MinSubstringLen)
	parser := spark.NewParser(cfg.Sparks, matcher, log)
	detector := zone.NewDetector(cfg.Zones, v.Names(vocab.Blue), parser.Boxes(), log)

	zones, err := detector.Detect(composite, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Zone detection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetected %d zone(s):\n", len(zones))

	annotated := composite.Clone()
	defer annotated.Close()

	naming := spark.Naming(cfg.Sparks.Naming)
	for i, z := range zones {
		origin := spark.Origins[min(i, len(spark.Origins)-1)]
		fmt.Printf("\n%-14s x=%d y=%d w=%d h=%d\n", origin.Label(naming), z.X, z.Y, z.Width, z.Height)

		rect := z.ToImageRect()
		gocv.Rectangle(&annotated, rect, colorutil.Magenta, 3)
		gocv.PutText(&annotated, origin.Label(naming), image.Pt(rect.Min.X+4, rect.Min.Y+24),
			gocv.FontHersheySimplex, 0.8, colorutil.Magenta, 2)

		region := composite.Region(rect)
		for _, c := range spark.Columns(region.Cols(), region.Rows()) {
			column := region.Region(c)
			for _, span := range parser.Boxes().Detect(column) {
				box := image.Rect(rect.Min.X+c.Min.X, rect.Min.Y+span.Y0, rect.Min.X+c.Max.X, rect.Min.Y+span.Y1)
				// closing tail boxes are shorter than the rest
				outline := colorutil.Cyan
				if span.Height() < cfg.Sparks.BoxHeight {
					outline = colorutil.Magenta
				}
				gocv.Rectangle(&annotated, box, outline, 1)
			}
			column.Close()
		}
		for _, o := range parser.Parse(region, engine) {
			fmt.Printf("  col %d row %d  %-6s %-30s %d\n", o.Column, o.Row, o.Color, o.Name, o.Count)
		}
		region.Close()
	}

	if ok := gocv.IMWrite(*outPath, annotated); !ok {
		fmt.Fprintf(os.Stderr, "Failed to write %s\n", *outPath)
		os.Exit(1)
	}
	fmt.Printf("\nWrote %s\n", *outPath)
}
