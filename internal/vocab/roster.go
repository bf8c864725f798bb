package vocab

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roster is the reference data used outside spark matching: known character
// names, known skills and each character's unique skills.
type Roster struct {
	Characters   []string            `yaml:"characters"`
	Skills       []string            `yaml:"skills"`
	UniqueSkills map[string][]string `yaml:"unique_skills"`

	owners map[string]string
}

// LoadRoster reads a roster file. A missing file yields an empty roster.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewRoster(nil, nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	r.index()
	return &r, nil
}

// NewRoster builds a roster from in-memory data.
func NewRoster(characters, skills []string, unique map[string][]string) *Roster {
	r := &Roster{Characters: characters, Skills: skills, UniqueSkills: unique}
	r.index()
	return r
}

func (r *Roster) index() {
	r.owners = make(map[string]string)
	for owner, skills := range r.UniqueSkills {
		for _, s := range skills {
			r.owners[s] = owner
		}
	}
}

// OwnerOf returns the character whose unique skill is named skill.
func (r *Roster) OwnerOf(skill string) (string, bool) {
	owner, ok := r.owners[skill]
	return owner, ok
}

// CanonicalName snaps an OCR'd character name to the closest known name, or
// returns the trimmed input when nothing is close enough.
func (r *Roster) CanonicalName(raw string, cutoff float64) string {
	raw = strings.TrimSpace(raw)
	if match, _, ok := Closest(raw, r.Characters, cutoff); ok {
		return match
	}
	return raw
}

var levelSuffix = regexp.MustCompile(`Lvl.*`)

// CanonicalSkill strips a trailing level marker and snaps to the closest
// known skill. The empty string means the line held no skill text.
func (r *Roster) CanonicalSkill(raw string, cutoff float64) string {
	clean := strings.TrimSpace(levelSuffix.ReplaceAllString(raw, ""))
	if clean == "" {
		return ""
	}
	if match, _, ok := Closest(clean, r.Skills, cutoff); ok {
		return match
	}
	return clean
}
