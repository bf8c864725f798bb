package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func testVocabulary() *Vocabulary {
	return NewVocabulary(map[Color][]string{
		Blue:  {"Speed", "Stamina", "Power", "Guts", "Wit"},
		Pink:  {"Turf", "Dirt", "Sprint", "Mile", "Medium", "Long", "Front Runner", "Pace Chaser", "Late Surger", "End Closer", "Oozora Sky"},
		Green: {"Shooting Star", "The View from the Lead Is Mine!"},
		White: {"Arima Kinen", "Sprint Specialist", "Corner Recovery", "Straightaway Adept"},
	}, []CorrectionRule{
		{Keywords: []string{"frorn", "lead"}, Color: Green, Name: "The View from the Lead Is Mine!"},
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sprint Specialist", "sprint specialist"},
		{"  The View  from\tthe Lead Is Mine! ", "the view from the lead is mine"},
		{"Corner-Recovery O", "cornerrecovery o"},
		{"***", ""},
		{"", ""},
		{"Wit 3", "wit 3"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Sprint Specialist", " a--b  c!! ", "Ünïcode Ｔext", "\n\t", "x  y  z"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestMatchExactForEveryVocabularyEntry(t *testing.T) {
	v := testVocabulary()
	m := NewMatcher(v, nil, 0)
	for _, c := range Colors {
		hint := NoColor
		if c == Pink {
			hint = Pink
		}
		for _, name := range v.Names(c) {
			got, ok := m.Match(name, nil, hint)
			if !ok {
				t.Errorf("Match(%q) found nothing", name)
				continue
			}
			if got.Color != c || got.Name != name || got.Tier != TierExact {
				t.Errorf("Match(%q) = %+v, want exact %s", name, got, c)
			}
		}
	}
}

func TestMatchScenarios(t *testing.T) {
	m := NewMatcher(testVocabulary(), nil, 0)
	tests := []struct {
		name       string
		raw        string
		components []string
		hint       Color
		wantOK     bool
		want       Match
	}{
		{"exact", "Sprint Specialist", nil, NoColor, true, Match{White, "Sprint Specialist", TierExact}},
		{"substring", "Sprint Special", nil, NoColor, true, Match{White, "Sprint Specialist", TierSubstring}},
		{"pink without hint", "Oozora Sky", nil, NoColor, false, Match{}},
		{"pink with hint", "Sprint", nil, Pink, true, Match{Pink, "Sprint", TierExact}},
		{"hint restricts colors", "Speed", nil, Pink, false, Match{}},
		{"fuzzy blue", "Stamlna", nil, NoColor, true, Match{Blue, "Stamina", TierFuzzy}},
		{"correction rule", "The Vlew frorn the Lead", []string{"The", "Vlew", "frorn", "the", "Lead"}, NoColor, true,
			Match{Green, "The View from the Lead Is Mine!", TierRule}},
		{"empty", "", nil, NoColor, false, Match{}},
		{"noise", "qqqqqqqqqqqqq", nil, NoColor, false, Match{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Match(tt.raw, tt.components, tt.hint)
			if ok != tt.wantOK {
				t.Fatalf("Match(%q) ok = %v, want %v (got %+v)", tt.raw, ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("Match(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPinkGate(t *testing.T) {
	v := testVocabulary()
	v.Rules = append(v.Rules, CorrectionRule{Keywords: []string{"turf"}, Color: Pink, Name: "Turf"})
	m := NewMatcher(v, nil, 0)
	inputs := []string{"Turf", "Tur", "Front Runner", "Long", "End Closer 2", "Mile"}
	for _, in := range inputs {
		for _, hint := range []Color{NoColor, Blue, Green, White} {
			if got, ok := m.Match(in, []string{in}, hint); ok && got.Color == Pink {
				t.Errorf("Match(%q, hint %q) returned pink %+v", in, hint, got)
			}
		}
	}
}

func TestClosest(t *testing.T) {
	cands := []string{"speed", "stamina", "power"}
	got, score, ok := Closest("stamlna", cands, 0.6)
	if !ok || got != "stamina" {
		t.Fatalf("Closest = %q, %v", got, ok)
	}
	if score < 0.8 || score > 1 {
		t.Errorf("score = %v", score)
	}
	if _, _, ok := Closest("zzz", cands, 0.6); ok {
		t.Error("expected no match for zzz")
	}
	if s := Similarity("speed", "speed"); s != 1 {
		t.Errorf("Similarity of equal strings = %v", s)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	sparks := filepath.Join(dir, "sparks.json")
	rules := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(sparks, []byte(`{
  "blue": ["Speed"],
  "pink": ["Turf"],
  "green": ["Shooting Star"],
  "white": {"race": ["Arima Kinen"], "skill": ["Corner Recovery"]}
}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(rules, []byte("- keywords: [shooting]\n  color: green\n  spark_name: Shooting Star\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := Load(sparks, rules)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	white := v.Names(White)
	if len(white) != 2 || white[0] != "Arima Kinen" || white[1] != "Corner Recovery" {
		t.Errorf("white = %v", white)
	}
	if len(v.Rules) != 1 || v.Rules[0].Color != Green {
		t.Errorf("rules = %+v", v.Rules)
	}
	if v.Size() != 5 {
		t.Errorf("Size = %d, want 5", v.Size())
	}

	if _, err := Load(sparks, filepath.Join(dir, "missing.yaml")); err != nil {
		t.Errorf("missing rules file should be tolerated: %v", err)
	}
	if err := os.WriteFile(rules, []byte("- keywords: [x]\n  color: purple\n  spark_name: X\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(sparks, rules); err == nil {
		t.Error("expected error for unknown rule color")
	}
}

func TestRoster(t *testing.T) {
	r := NewRoster(
		[]string{"Special Week", "Silence Suzuka"},
		[]string{"Corner Recovery", "Straightaway Adept"},
		map[string][]string{"Silence Suzuka": {"The View from the Lead Is Mine!"}},
	)
	if got := r.CanonicalName("Speclal Week", 0.6); got != "Special Week" {
		t.Errorf("CanonicalName = %q", got)
	}
	if got := r.CanonicalName("  Nobody  ", 0.6); got != "Nobody" {
		t.Errorf("CanonicalName fallback = %q", got)
	}
	if got := r.CanonicalSkill("Corner Recovry Lvl 3", 0.55); got != "Corner Recovery" {
		t.Errorf("CanonicalSkill = %q", got)
	}
	if got := r.CanonicalSkill("Lvl 2", 0.55); got != "" {
		t.Errorf("CanonicalSkill of level-only line = %q", got)
	}
	if owner, ok := r.OwnerOf("The View from the Lead Is Mine!"); !ok || owner != "Silence Suzuka" {
		t.Errorf("OwnerOf = %q, %v", owner, ok)
	}
}
