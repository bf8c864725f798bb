// Package config holds every tunable of the scanner. A Config is built once
// at startup and passed explicitly into each component.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"sparkscan/pkg/colorutil"
	"sparkscan/pkg/geometry"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "sparkscan.yaml"

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	OCR      OCRConfig      `yaml:"ocr"`
	Workers  int            `yaml:"workers"`
	Sparks   SparkConfig    `yaml:"sparks"`
	Matching MatchingConfig `yaml:"matching"`
	Zones    ZoneConfig     `yaml:"zones"`
	Tabs     TabConfig      `yaml:"tabs"`
	Profile  ProfileConfig  `yaml:"profile"`
	Portrait PortraitConfig `yaml:"portraits"`
}

type PathsConfig struct {
	InputDir     string `yaml:"input_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	Vocabulary   string `yaml:"vocabulary"`
	Corrections  string `yaml:"corrections"`
	Roster       string `yaml:"roster"`
	// Portraits holds one master image per character, named after it.
	Portraits string `yaml:"portraits"`
}

type StoreConfig struct {
	// Driver is "json" or "sqlite".
	Driver      string `yaml:"driver"`
	RecordsFile string `yaml:"records_file"`
	Conflicts   string `yaml:"conflicts_file"`
	DSN         string `yaml:"dsn"`
}

type LoggingConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

type OCRConfig struct {
	Languages      []string `yaml:"languages"`
	TessdataPrefix string   `yaml:"tessdata_prefix"`
	// MinHeight is the height below which regions are upscaled before OCR.
	MinHeight int `yaml:"min_height"`
}

type SparkConfig struct {
	// Shape selects how occurrences land in a record: "positional" keeps
	// every box, "aggregate" sums counts per (color, name).
	Shape string `yaml:"shape"`
	// Naming selects origin labels: "lineage" or "legacy".
	Naming string `yaml:"naming"`

	BoxHeight       int                `yaml:"box_height"`
	StartThreshold  int                `yaml:"start_threshold"`
	MinTail         int                `yaml:"min_tail"`
	StarBand        colorutil.HSVRange `yaml:"star_hsv"`
	StarAreaMin     int                `yaml:"star_area_min"`
	StarAreaMax     int                `yaml:"star_area_max"`
	StarTopFraction float64            `yaml:"star_top_fraction"`
	StarLeftMargin  int                `yaml:"star_left_margin"`
	MaxStars        int                `yaml:"max_stars"`

	LowWordConfidence   float64 `yaml:"low_word_confidence"`
	LowRegionConfidence float64 `yaml:"low_region_confidence"`
}

type MatchingConfig struct {
	Cutoffs         map[string]float64 `yaml:"fuzzy_cutoffs"`
	MinSubstringLen int                `yaml:"min_substring_len"`
	NameCutoff      float64            `yaml:"name_cutoff"`
	SkillCutoff     float64            `yaml:"skill_cutoff"`
}

type ZoneConfig struct {
	ScreenshotWidth  int      `yaml:"screenshot_width"`
	OffsetX          int      `yaml:"offset_x"`
	Width            int      `yaml:"width"`
	TopOffset        int      `yaml:"top_offset"`
	NextAnchorOffset int      `yaml:"next_anchor_offset"`
	BottomMargin     int      `yaml:"bottom_margin"`
	AnchorCutoff     float64  `yaml:"anchor_cutoff"`
	MinYFraction     float64  `yaml:"min_y_fraction"`
	IoUThreshold     float64  `yaml:"iou_threshold"`
	MinConfidence    float64  `yaml:"min_confidence"`
	MaxZones         int      `yaml:"max_zones"`
	IgnoreWords      []string `yaml:"ignore_words"`
}

type TabConfig struct {
	Green       colorutil.HSVRange `yaml:"green_hsv"`
	Inspiration geometry.RectInt   `yaml:"inspiration"`
	Skills      geometry.RectInt   `yaml:"skills"`
	MinRatio    float64            `yaml:"min_ratio"`
}

type ProfileConfig struct {
	Name      geometry.RectInt            `yaml:"name"`
	Score     geometry.RectInt            `yaml:"score"`
	Stats     map[string]geometry.RectInt `yaml:"stats"`
	Aptitudes geometry.RectInt            `yaml:"aptitudes"`
	Skills    geometry.RectInt            `yaml:"skills"`
	// GradeColors maps a grade letter to the hex color of its glyph.
	GradeColors  map[string]string `yaml:"grade_colors"`
	GradeOrder   []string          `yaml:"grade_order"`
	GradeRatio   float64           `yaml:"grade_ratio"`
	CellFraction float64           `yaml:"cell_fraction"`
	// HueTolerance and SVTolerance widen each grade color into an HSV band.
	HueTolerance float64 `yaml:"hue_tolerance"`
	SVTolerance  float64 `yaml:"sv_tolerance"`
}

type PortraitConfig struct {
	// Box is the portrait next to a spark zone, relative to the zone's
	// top-left corner.
	Box geometry.RectInt `yaml:"box"`
	// MinScore is the normalized correlation a master must reach before it
	// is compared pixel by pixel.
	MinScore float64 `yaml:"min_score"`
	// MaxDiff is the largest sum of squared gray differences accepted.
	MaxDiff  float64 `yaml:"max_diff"`
	Scales   int     `yaml:"scales"`
	MinScale float64 `yaml:"min_scale"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			InputDir:     "data/input",
			ProcessedDir: "data/processed",
			Vocabulary:   "data/sparks.yaml",
			Corrections:  "data/corrections.yaml",
			Roster:       "data/roster.yaml",
			Portraits:    "data/portraits",
		},
		Store: StoreConfig{
			Driver:      "json",
			RecordsFile: "data/all_runners.json",
			Conflicts:   "data/pending_conflicts.json",
			DSN:         "data/library.sqlite",
		},
		Logging: LoggingConfig{Mode: "development", Level: "info"},
		OCR: OCRConfig{
			Languages: []string{"eng"},
			MinHeight: 32,
		},
		Workers: max(1, runtime.NumCPU()-1),
		Sparks: SparkConfig{
			Shape:          "positional",
			Naming:         "lineage",
			BoxHeight:      88,
			StartThreshold: 200,
			MinTail:        40,
			StarBand: colorutil.HSVRange{
				Lower: colorutil.HSV{20, 100, 100},
				Upper: colorutil.HSV{35, 255, 255},
			},
			StarAreaMin:         30,
			StarAreaMax:         400,
			StarTopFraction:     0.6,
			StarLeftMargin:      40,
			MaxStars:            3,
			LowWordConfidence:   0.7,
			LowRegionConfidence: 0.5,
		},
		Matching: MatchingConfig{
			Cutoffs: map[string]float64{
				"blue":  0.55,
				"pink":  0.55,
				"green": 0.7,
				"white": 0.75,
			},
			MinSubstringLen: 3,
			NameCutoff:      0.6,
			SkillCutoff:     0.55,
		},
		Zones: ZoneConfig{
			ScreenshotWidth:  540,
			OffsetX:          205,
			Width:            827,
			TopOffset:        20,
			NextAnchorOffset: 77,
			BottomMargin:     420,
			AnchorCutoff:     0.8,
			MinYFraction:     0.5,
			IoUThreshold:     0.5,
			MinConfidence:    0.3,
			MaxZones:         3,
			IgnoreWords:      []string{"inspiration", "sparks", "close"},
		},
		Tabs: TabConfig{
			Green: colorutil.HSVRange{
				Lower: colorutil.HSV{35, 50, 120},
				Upper: colorutil.HSV{85, 255, 255},
			},
			Inspiration: geometry.FromCorners(370, 1060, 450, 1090),
			Skills:      geometry.FromCorners(260, 1060, 370, 1090),
			MinRatio:    0.05,
		},
		Profile: ProfileConfig{
			Name:  geometry.FromCorners(150, 250, 500, 290),
			Score: geometry.FromCorners(150, 300, 330, 340),
			Stats: map[string]geometry.RectInt{
				"speed":   geometry.FromCorners(40, 455, 130, 490),
				"stamina": geometry.FromCorners(140, 455, 230, 490),
				"power":   geometry.FromCorners(240, 455, 330, 490),
				"guts":    geometry.FromCorners(340, 455, 430, 490),
				"wit":     geometry.FromCorners(440, 455, 530, 490),
			},
			Aptitudes: geometry.FromCorners(20, 510, 520, 630),
			Skills:    geometry.FromCorners(20, 700, 520, 1040),
			GradeColors: map[string]string{
				"S": "#f0bd1a",
				"A": "#ff6c00",
				"B": "#ff5da7",
				"C": "#63d400",
				"D": "#00aaff",
				"E": "#d16fff",
				"F": "#a36dd6",
				"G": "#ada7ad",
			},
			GradeOrder:   []string{"S", "A", "B", "C", "D", "E", "F", "G"},
			GradeRatio:   0.02,
			CellFraction: 0.35,
			HueTolerance: 4,
			SVTolerance:  60,
		},
		Portrait: PortraitConfig{
			Box:      geometry.FromCorners(-110, 9, -20, 125),
			MinScore: 0.6,
			MaxDiff:  16_000_000,
			Scales:   20,
			MinScale: 0.1,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file at DefaultPath is
// not an error; a missing explicitly named file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	var errs []error
	s := c.Sparks
	if s.BoxHeight <= 0 {
		errs = append(errs, fmt.Errorf("sparks.box_height must be positive, got %d", s.BoxHeight))
	}
	if s.MinTail < 0 {
		errs = append(errs, fmt.Errorf("sparks.min_tail must not be negative"))
	}
	if !s.StarBand.Valid() {
		errs = append(errs, fmt.Errorf("sparks.star_hsv lower bound exceeds upper bound"))
	}
	if s.StarAreaMin >= s.StarAreaMax {
		errs = append(errs, fmt.Errorf("sparks.star_area_min (%d) must be below star_area_max (%d)", s.StarAreaMin, s.StarAreaMax))
	}
	if s.StarTopFraction < 0 || s.StarTopFraction >= 1 {
		errs = append(errs, fmt.Errorf("sparks.star_top_fraction must be in [0,1)"))
	}
	if s.MaxStars <= 0 {
		errs = append(errs, fmt.Errorf("sparks.max_stars must be positive"))
	}
	switch s.Shape {
	case "positional", "aggregate":
	default:
		errs = append(errs, fmt.Errorf("sparks.shape must be positional or aggregate, got %q", s.Shape))
	}
	switch s.Naming {
	case "lineage", "legacy":
	default:
		errs = append(errs, fmt.Errorf("sparks.naming must be lineage or legacy, got %q", s.Naming))
	}
	for color, cutoff := range c.Matching.Cutoffs {
		if cutoff <= 0 || cutoff > 1 {
			errs = append(errs, fmt.Errorf("matching.fuzzy_cutoffs.%s must be in (0,1]", color))
		}
	}
	z := c.Zones
	if z.ScreenshotWidth <= 0 || z.Width <= 0 {
		errs = append(errs, fmt.Errorf("zones.screenshot_width and zones.width must be positive"))
	}
	if z.MaxZones <= 0 {
		errs = append(errs, fmt.Errorf("zones.max_zones must be positive"))
	}
	if z.IoUThreshold < 0 || z.IoUThreshold > 1 {
		errs = append(errs, fmt.Errorf("zones.iou_threshold must be in [0,1]"))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive"))
	}
	for grade, hex := range c.Profile.GradeColors {
		if _, err := colorutil.ParseHex(hex); err != nil {
			errs = append(errs, fmt.Errorf("profile.grade_colors.%s: %w", grade, err))
		}
	}
	if c.Profile.CellFraction <= 0 || c.Profile.CellFraction > 1 {
		errs = append(errs, fmt.Errorf("profile.cell_fraction must be in (0,1]"))
	}
	pc := c.Portrait
	if pc.Box.Width <= 0 || pc.Box.Height <= 0 {
		errs = append(errs, fmt.Errorf("portraits.box must have a positive size"))
	}
	if pc.Scales <= 0 || pc.MinScale <= 0 || pc.MinScale > 1 {
		errs = append(errs, fmt.Errorf("portraits.scales must be positive and portraits.min_scale in (0,1]"))
	}
	switch c.Store.Driver {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be json or sqlite, got %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}
