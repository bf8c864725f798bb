// Package vocab turns raw OCR text into canonical spark names. It owns the
// closed vocabulary, the correction rules and the tiered matcher.
package vocab

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CorrectionRule maps a set of OCR fragments to a fixed spark. It fires when
// every keyword appears in the joined, lowercased fragments.
type CorrectionRule struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Color    Color    `yaml:"color" json:"color"`
	Name     string   `yaml:"spark_name" json:"spark_name"`
}

// Vocabulary holds the canonical spark names per color and the correction
// rules applied before any other matching.
type Vocabulary struct {
	names map[Color][]string
	Rules []CorrectionRule
}

// NewVocabulary builds a vocabulary from in-memory lists.
func NewVocabulary(names map[Color][]string, rules []CorrectionRule) *Vocabulary {
	v := &Vocabulary{names: make(map[Color][]string, len(Colors)), Rules: rules}
	for _, c := range Colors {
		v.names[c] = append([]string(nil), names[c]...)
	}
	return v
}

// Names returns the canonical names of one color.
func (v *Vocabulary) Names(c Color) []string {
	return v.names[c]
}

// Size returns the number of canonical names across all colors.
func (v *Vocabulary) Size() int {
	n := 0
	for _, c := range Colors {
		n += len(v.names[c])
	}
	return n
}

// sparkFile is the on-disk layout. White sparks may be a flat list or split
// into race and skill lists.
type sparkFile struct {
	Blue  []string  `yaml:"blue"`
	Pink  []string  `yaml:"pink"`
	Green []string  `yaml:"green"`
	White whiteList `yaml:"white"`
}

type whiteList []string

func (w *whiteList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*w = list
		return nil
	case yaml.MappingNode:
		var split struct {
			Race  []string `yaml:"race"`
			Skill []string `yaml:"skill"`
		}
		if err := node.Decode(&split); err != nil {
			return err
		}
		*w = append(split.Race, split.Skill...)
		return nil
	default:
		return fmt.Errorf("white sparks: expected list or mapping, got %v", node.Tag)
	}
}

// ParseVocabulary decodes a spark list document (YAML or JSON).
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var f sparkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sparks: %w", err)
	}
	return NewVocabulary(map[Color][]string{
		Blue:  f.Blue,
		Pink:  f.Pink,
		Green: f.Green,
		White: f.White,
	}, nil), nil
}

// ParseRules decodes a correction rule list (YAML or JSON).
func ParseRules(data []byte) ([]CorrectionRule, error) {
	var rules []CorrectionRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse correction rules: %w", err)
	}
	for i, r := range rules {
		if len(r.Keywords) == 0 || r.Name == "" {
			return nil, fmt.Errorf("correction rule %d: keywords and spark_name are required", i)
		}
		if _, err := ParseColor(string(r.Color)); err != nil {
			return nil, fmt.Errorf("correction rule %d: %w", i, err)
		}
	}
	return rules, nil
}

// Load reads the spark list and, when rulesPath is non-empty and exists, the
// correction rules.
func Load(sparksPath, rulesPath string) (*Vocabulary, error) {
	data, err := os.ReadFile(sparksPath)
	if err != nil {
		return nil, fmt.Errorf("read sparks %s: %w", sparksPath, err)
	}
	v, err := ParseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sparksPath, err)
	}
	if rulesPath == "" {
		return v, nil
	}
	data, err = os.ReadFile(rulesPath)
	if errors.Is(err, os.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read correction rules %s: %w", rulesPath, err)
	}
	if v.Rules, err = ParseRules(data); err != nil {
		return nil, fmt.Errorf("%s: %w", rulesPath, err)
	}
	return v, nil
}
