// Package ocr provides text recognition for screenshot regions.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"

	"sparkscan/pkg/geometry"
)

// ErrEmptyImage is returned when Read is given an empty Mat.
var ErrEmptyImage = errors.New("empty image")

// Options configures an Engine.
type Options struct {
	Languages      []string
	TessdataPrefix string
	// MinHeight is the height below which regions are upscaled.
	MinHeight int
}

// Engine provides OCR functionality using Tesseract. An Engine wraps a single
// Tesseract client and must not be shared between goroutines.
type Engine struct {
	client    *gosseract.Client
	minHeight int
}

// NewEngine creates a new OCR engine.
func NewEngine(opts Options) (*Engine, error) {
	client := gosseract.NewClient()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	minHeight := opts.MinHeight
	if minHeight <= 0 {
		minHeight = 32
	}
	return &Engine{client: client, minHeight: minHeight}, nil
}

// Close releases OCR resources.
func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Read recognizes text in img at the requested level.
func (e *Engine) Read(img gocv.Mat, level Level) ([]Result, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	processed, scale := preprocessForOCR(img, e.minHeight)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	mode, ril := gosseract.PSM_SPARSE_TEXT, gosseract.RIL_WORD
	if level == Lines {
		mode, ril = gosseract.PSM_SINGLE_BLOCK, gosseract.RIL_TEXTLINE
	}
	if err := e.client.SetPageSegMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(ril)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	var results []Result
	for _, box := range boxes {
		text := strings.Join(strings.Fields(box.Word), " ")
		if text == "" {
			continue
		}
		results = append(results, Result{
			Text:       text,
			Bounds:     unscale(box.Box, scale),
			Confidence: box.Confidence / 100,
		})
	}
	return results, nil
}

// preprocessForOCR converts to grayscale, upscales short regions and flips
// light-on-dark text. It returns the processed image and the scale applied.
func preprocessForOCR(region gocv.Mat, minHeight int) (gocv.Mat, float64) {
	gray := gocv.NewMat()
	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)

	scale := 1.0
	if h := gray.Rows(); h < minHeight && h > 0 {
		scale = float64(minHeight) / float64(h)
		scaled := gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
		gray.Close()
		gray = scaled
	}

	// OCR expects dark text on a light background
	if gray.Mean().Val1 < 110 {
		gocv.BitwiseNot(gray, &gray)
	}
	return gray, scale
}

func unscale(r image.Rectangle, scale float64) geometry.RectInt {
	if scale == 1 {
		return geometry.FromImageRect(r)
	}
	return geometry.FromCorners(
		int(float64(r.Min.X)/scale),
		int(float64(r.Min.Y)/scale),
		int(float64(r.Max.X)/scale+0.5),
		int(float64(r.Max.Y)/scale+0.5),
	)
}
