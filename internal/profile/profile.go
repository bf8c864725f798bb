// Package profile reads the character summary screen: name, score, stats,
// aptitude grades and learned skills.
package profile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gocv.io/x/gocv"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
	"sparkscan/internal/ocr"
	"sparkscan/internal/record"
	"sparkscan/internal/screenshot"
	"sparkscan/internal/vocab"
	"sparkscan/pkg/colorutil"
	"sparkscan/pkg/geometry"
)

// Result is what one profile screenshot yields.
type Result struct {
	Name      string
	Score     int
	Stats     record.Stats
	Aptitudes record.Aptitudes
	Skills    []string
}

var statFields = []record.Field{
	record.FieldSpeed, record.FieldStamina, record.FieldPower, record.FieldGuts, record.FieldWit,
}

// aptitudeGrid lays out the aptitude table row by row, four cells per row.
// The two empty cells are padding next to the track grades.
var aptitudeGrid = []record.Field{
	record.FieldTurf, record.FieldDirt, "", "",
	record.FieldSprint, record.FieldMile, record.FieldMedium, record.FieldLong,
	record.FieldFront, record.FieldPace, record.FieldLate, record.FieldEnd,
}

const gridColumns = 4

type gradeBand struct {
	grade string
	band  colorutil.HSVRange
}

type Parser struct {
	cfg         config.ProfileConfig
	nameCutoff  float64
	skillCutoff float64
	roster      *vocab.Roster
	bands       []gradeBand
	log         *logging.Logger
}

// NewParser builds a parser. Every grade in cfg.GradeOrder except the
// fallback "G" needs a color.
func NewParser(cfg config.ProfileConfig, matching config.MatchingConfig, roster *vocab.Roster, log *logging.Logger) (*Parser, error) {
	if roster == nil {
		roster = vocab.NewRoster(nil, nil, nil)
	}
	p := &Parser{
		cfg:         cfg,
		nameCutoff:  matching.NameCutoff,
		skillCutoff: matching.SkillCutoff,
		roster:      roster,
		log:         logging.OrNop(log),
	}
	for _, g := range cfg.GradeOrder {
		hex, ok := cfg.GradeColors[g]
		if !ok {
			if g == "G" {
				continue
			}
			return nil, fmt.Errorf("no color configured for grade %s", g)
		}
		c, err := colorutil.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("grade %s: %w", g, err)
		}
		p.bands = append(p.bands, gradeBand{grade: g, band: colorutil.BandAround(c, cfg.HueTolerance, cfg.SVTolerance)})
	}
	return p, nil
}

// Parse reads every configured region of a BGR profile screenshot.
func (p *Parser) Parse(img gocv.Mat, reader ocr.Reader) (Result, error) {
	var res Result

	name, err := p.read(img, p.cfg.Name, reader, ocr.Lines)
	if err != nil {
		return res, fmt.Errorf("read name: %w", err)
	}
	if name != "" {
		res.Name = p.roster.CanonicalName(name, p.nameCutoff)
	}

	score, err := p.read(img, p.cfg.Score, reader, ocr.Words)
	if err != nil {
		return res, fmt.Errorf("read score: %w", err)
	}
	res.Score = digits(score)

	for _, f := range statFields {
		rect, ok := p.cfg.Stats[string(f)]
		if !ok {
			continue
		}
		text, err := p.read(img, rect, reader, ocr.Words)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", f, err)
		}
		res.Stats.Set(f, digits(text))
	}

	res.Aptitudes = p.Aptitudes(img)

	skills, err := p.Skills(img, reader)
	if err != nil {
		return res, err
	}
	res.Skills = skills

	p.log.Debug("profile parsed", "name", res.Name, "score", res.Score, "skills", len(res.Skills))
	return res, nil
}

// Aptitudes classifies each cell of the aptitude table by the color of its
// grade letter. A cell with no configured color present is graded "G".
func (p *Parser) Aptitudes(img gocv.Mat) record.Aptitudes {
	var a record.Aptitudes
	table := p.cfg.Aptitudes.Clamp(img.Cols(), img.Rows())
	rows := len(aptitudeGrid) / gridColumns
	cellW, cellH := table.Width/gridColumns, table.Height/rows
	if cellW == 0 || cellH == 0 {
		return a
	}
	stripW := max(1, int(float64(cellW)*p.cfg.CellFraction))

	for i, f := range aptitudeGrid {
		if f == "" {
			continue
		}
		cell := geometry.RectInt{
			X:      table.X + (i%gridColumns)*cellW,
			Y:      table.Y + (i/gridColumns)*cellH,
			Width:  cellW,
			Height: cellH,
		}
		strip := geometry.RectInt{X: cell.X2() - stripW, Y: cell.Y, Width: stripW, Height: cellH}
		a.Set(f, p.grade(img, strip))
	}
	return a
}

func (p *Parser) grade(img gocv.Mat, strip geometry.RectInt) string {
	for _, b := range p.bands {
		if screenshot.BandRatio(img, strip, b.band) > p.cfg.GradeRatio {
			return b.grade
		}
	}
	return "G"
}

// Skills reads the skill list line by line, dropping level markers and
// repeated entries.
func (p *Parser) Skills(img gocv.Mat, reader ocr.Reader) ([]string, error) {
	lines, err := p.readResults(img, p.cfg.Skills, reader, ocr.Lines)
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	var skills []string
	seen := make(map[string]bool)
	for _, l := range lines {
		s := p.roster.CanonicalSkill(l.Text, p.skillCutoff)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		skills = append(skills, s)
	}
	return skills, nil
}

func (p *Parser) read(img gocv.Mat, rect geometry.RectInt, reader ocr.Reader, level ocr.Level) (string, error) {
	results, err := p.readResults(img, rect, reader, level)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(ocr.Join(results)), nil
}

func (p *Parser) readResults(img gocv.Mat, rect geometry.RectInt, reader ocr.Reader, level ocr.Level) ([]ocr.Result, error) {
	r := rect.Clamp(img.Cols(), img.Rows())
	if r.Empty() {
		return nil, nil
	}
	region := img.Region(r.ToImageRect())
	defer region.Close()
	return reader.Read(region, level)
}

// digits parses the decimal digits of s, ignoring separators and OCR noise.
func digits(s string) int {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// Merge folds the results of several profile screenshots of one character.
// The first non-empty name and score win and stats take the maximum seen.
// Aptitudes take the first grade other than "G" when there is one. Skills
// are united in first-seen order.
func Merge(results ...Result) Result {
	var out Result
	seen := make(map[string]bool)
	for _, r := range results {
		if out.Name == "" {
			out.Name = r.Name
		}
		if out.Score == 0 {
			out.Score = r.Score
		}
		for _, f := range statFields {
			out.Stats.Set(f, max(statValue(out.Stats, f), statValue(r.Stats, f)))
		}
		for _, f := range aptitudeGrid {
			if f == "" {
				continue
			}
			// "G" is also the fallback of screens without a grade table
			cur, g := gradeValue(out.Aptitudes, f), gradeValue(r.Aptitudes, f)
			if g != "" && (cur == "" || cur == "G" && g != "G") {
				out.Aptitudes.Set(f, g)
			}
		}
		for _, s := range r.Skills {
			if !seen[s] {
				seen[s] = true
				out.Skills = append(out.Skills, s)
			}
		}
	}
	return out
}

func statValue(s record.Stats, f record.Field) int {
	v, _ := record.Record{Stats: s}.Value(f).(int)
	return v
}

func gradeValue(a record.Aptitudes, f record.Field) string {
	v, _ := record.Record{Aptitudes: a}.Value(f).(string)
	return v
}
