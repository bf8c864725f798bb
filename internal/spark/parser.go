package spark

import (
	"image"

	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
	"sparkscan/internal/ocr"
	"sparkscan/internal/vocab"
)

// Columns splits a w-wide, h-tall panel into its left and right halves. The
// right half takes the odd pixel.
func Columns(w, h int) [2]image.Rectangle {
	half := w / 2
	return [2]image.Rectangle{
		image.Rect(0, 0, half, h),
		image.Rect(half, 0, w, h),
	}
}

// Parser reads every spark box of a zone.
type Parser struct {
	matcher *vocab.Matcher
	boxes   *BoxDetector
	stars   *StarCounter
	lowWord float64
	lowAvg  float64
	log     *logging.Logger
}

// NewParser wires a parser from the spark configuration and a matcher.
func NewParser(cfg config.SparkConfig, matcher *vocab.Matcher, log *logging.Logger) *Parser {
	return &Parser{
		matcher: matcher,
		boxes:   NewBoxDetector(cfg),
		stars:   NewStarCounter(cfg),
		lowWord: cfg.LowWordConfidence,
		lowAvg:  cfg.LowRegionConfidence,
		log:     logging.OrNop(log),
	}
}

// Boxes exposes the parser's box detector.
func (p *Parser) Boxes() *BoxDetector { return p.boxes }

// Parse reads a BGR zone image and returns the recognized sparks in column
// then row order. Boxes that fail OCR, match nothing or show no stars are
// left out.
func (p *Parser) Parse(zone gocv.Mat, reader ocr.Reader) []Occurrence {
	if zone.Empty() {
		return nil
	}
	var out []Occurrence
	for col, rect := range Columns(zone.Cols(), zone.Rows()) {
		if rect.Empty() {
			continue
		}
		column := zone.Region(rect)
		for row, span := range p.boxes.Detect(column) {
			hint := vocab.NoColor
			if col == 1 && row == 0 {
				hint = vocab.Pink
			}
			box := column.Region(image.Rect(0, span.Y0, column.Cols(), span.Y1))
			sp, ok := p.ReadBox(box, reader, hint)
			box.Close()
			if ok {
				out = append(out, Occurrence{Spark: sp, Column: col, Row: row})
			}
		}
		column.Close()
	}
	return out
}

// ReadBox resolves a single box. ok is false when the box holds no
// recognizable spark or no stars.
func (p *Parser) ReadBox(box gocv.Mat, reader ocr.Reader, hint vocab.Color) (Spark, bool) {
	if box.Empty() {
		return Spark{}, false
	}
	results, err := reader.Read(box, ocr.Words)
	if err != nil {
		p.log.Warn("spark box OCR failed", "error", err)
		return Spark{}, false
	}
	if len(results) == 0 {
		return Spark{}, false
	}

	for _, r := range results {
		if r.Confidence < p.lowWord {
			p.log.Warn("low OCR confidence", "text", r.Text, "confidence", r.Confidence)
		}
	}
	text := ocr.Join(results)
	if text == "" {
		return Spark{}, false
	}
	if avg := ocr.AverageConfidence(results); avg < p.lowAvg {
		p.log.Warn("average OCR confidence is very low, matching may be unreliable",
			"text", text, "confidence", avg)
	}

	m, ok := p.matcher.Match(text, ocr.Texts(results), hint)
	if !ok {
		p.log.Debug("no spark matched", "text", text, "hint", string(hint))
		return Spark{}, false
	}
	p.log.Debug("spark matched", "text", text, "spark", m.Name, "tier", m.Tier.String())
	stars := p.stars.Count(box)
	if stars == 0 {
		p.log.Debug("spark matched without stars", "spark", m.Name)
		return Spark{}, false
	}
	return Spark{Color: m.Color, Name: m.Name, Count: stars}, true
}
