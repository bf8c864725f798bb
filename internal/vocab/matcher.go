package vocab

import (
	"strings"
	"unicode/utf8"
)

// Tier records which matching stage produced a result.
type Tier int

const (
	TierRule Tier = iota + 1
	TierExact
	TierSubstring
	TierFuzzy
)

func (t Tier) String() string {
	switch t {
	case TierRule:
		return "rule"
	case TierExact:
		return "exact"
	case TierSubstring:
		return "substring"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Match is a resolved spark name.
type Match struct {
	Color Color
	Name  string
	Tier  Tier
}

// DefaultCutoffs are the fuzzy thresholds per color.
var DefaultCutoffs = map[Color]float64{
	Blue:  0.55,
	Pink:  0.55,
	Green: 0.7,
	White: 0.75,
}

type entry struct {
	name string
	norm string
}

// Matcher resolves OCR text against a Vocabulary. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	vocab        *Vocabulary
	entries      map[Color][]entry
	fuzzyNames   map[Color][]string
	fuzzyLookup  map[Color]map[string]string
	cutoffs      map[Color]float64
	minSubstring int
}

// NewMatcher precomputes normalized forms. Missing cutoffs fall back to
// DefaultCutoffs; minSubstring <= 0 means 3.
func NewMatcher(v *Vocabulary, cutoffs map[string]float64, minSubstring int) *Matcher {
	if minSubstring <= 0 {
		minSubstring = 3
	}
	m := &Matcher{
		vocab:        v,
		entries:      make(map[Color][]entry),
		fuzzyNames:   make(map[Color][]string),
		fuzzyLookup:  make(map[Color]map[string]string),
		cutoffs:      make(map[Color]float64),
		minSubstring: minSubstring,
	}
	for _, c := range Colors {
		m.cutoffs[c] = DefaultCutoffs[c]
		if cut, ok := cutoffs[string(c)]; ok {
			m.cutoffs[c] = cut
		}
		lookup := make(map[string]string)
		for _, name := range v.Names(c) {
			norm := Normalize(name)
			m.entries[c] = append(m.entries[c], entry{name: name, norm: norm})
			// later duplicates of a normalized form win, as a dict build would
			if _, seen := lookup[norm]; !seen {
				m.fuzzyNames[c] = append(m.fuzzyNames[c], norm)
			}
			lookup[norm] = name
		}
		m.fuzzyLookup[c] = lookup
	}
	return m
}

// Match resolves raw OCR text. components are the individual OCR fragments
// that make up raw; hint restricts the candidate colors when not NoColor.
// A pink result is only returned when hint is Pink.
func (m *Matcher) Match(raw string, components []string, hint Color) (Match, bool) {
	res, ok := m.match(raw, components, hint)
	if !ok {
		return Match{}, false
	}
	if res.Color == Pink && hint != Pink {
		return Match{}, false
	}
	return res, true
}

func (m *Matcher) match(raw string, components []string, hint Color) (Match, bool) {
	if len(components) > 0 {
		lowered := make([]string, len(components))
		for i, c := range components {
			lowered[i] = strings.ToLower(c)
		}
		joined := strings.Join(lowered, " ")
		for _, rule := range m.vocab.Rules {
			if ruleFires(rule, joined) {
				return Match{Color: rule.Color, Name: rule.Name, Tier: TierRule}, true
			}
		}
	}

	norm := Normalize(raw)
	if norm == "" {
		return Match{}, false
	}
	colors := Colors
	if hint != NoColor {
		colors = []Color{hint}
	}

	for _, c := range colors {
		for _, e := range m.entries[c] {
			if e.norm == norm {
				return Match{Color: c, Name: e.name, Tier: TierExact}, true
			}
		}
	}

	var best Match
	longest := 0
	for _, c := range colors {
		for _, e := range m.entries[c] {
			if e.norm == "" {
				continue
			}
			if strings.Contains(norm, e.norm) || strings.Contains(e.norm, norm) {
				if n := utf8.RuneCountInString(e.norm); n > longest {
					best = Match{Color: c, Name: e.name, Tier: TierSubstring}
					longest = n
				}
			}
		}
	}

	if longest == 0 || longest < max(m.minSubstring, utf8.RuneCountInString(norm)/2) {
		for _, c := range colors {
			cand, _, ok := Closest(norm, m.fuzzyNames[c], m.cutoffs[c])
			if ok {
				return Match{Color: c, Name: m.fuzzyLookup[c][cand], Tier: TierFuzzy}, true
			}
		}
	}

	if longest == 0 {
		return Match{}, false
	}
	return best, true
}

func ruleFires(rule CorrectionRule, joined string) bool {
	if len(rule.Keywords) == 0 {
		return false
	}
	for _, kw := range rule.Keywords {
		if !strings.Contains(joined, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}
