package record

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
)

func sample() Record {
	r := New("2024_05_01_run", "Special Week")
	r.EntryID = 7
	r.LastUpdated = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.Score = 12345
	r.Stats = Stats{Speed: 1100, Stamina: 800, Power: 900, Guts: 400, Wit: 500}
	r.Aptitudes = Aptitudes{Turf: "A", Dirt: "G", Sprint: "F", Mile: "C", Medium: "A", Long: "A", Front: "G", Pace: "A", Late: "A", End: "C"}
	r.Skills = []string{"Corner Recovery", "Arc Maestro"}
	r.Sparks = Sparks{
		Parent: []spark.Spark{{Color: vocab.White, Name: "Corner Recovery", Count: 1}, {Color: vocab.Blue, Name: "Speed", Count: 3}},
		GP1:    []spark.Spark{{Color: vocab.Pink, Name: "Turf", Count: 2}},
	}
	return r
}

func TestEntryHashStable(t *testing.T) {
	a := EntryHash("folder", "Special Week")
	if a != EntryHash("folder", "Special Week") {
		t.Fatal("hash not deterministic")
	}
	if len(a) != 32 || strings.ToLower(a) != a {
		t.Errorf("hash %q is not lowercase hex md5", a)
	}
	if a == EntryHash("folder2", "Special Week") || a == EntryHash("folder", "Silence Suzuka") {
		t.Error("hash ignores an input")
	}
	// md5("a_b")
	if got := EntryHash("a", "b"); got != "dbf08e00b01fd58a4a5967753b43784f" {
		t.Errorf("EntryHash(a, b) = %q", got)
	}
}

func TestEqualIgnoresVolatileFieldsAndOrder(t *testing.T) {
	a := sample()
	b := sample()
	b.EntryID = 99
	b.LastUpdated = time.Now()
	b.Skills = []string{"Arc Maestro", "Corner Recovery"}
	b.Sparks.Parent = []spark.Spark{b.Sparks.Parent[1], b.Sparks.Parent[0]}
	if !Equal(a, b) {
		t.Errorf("records should be equal, diff = %v", Diff(a, b))
	}

	c, d := sample(), sample()
	c.Sparks.GP2 = nil
	d.Sparks.GP2 = []spark.Spark{}
	if !Equal(c, d) {
		t.Error("nil and empty spark lists should compare equal")
	}
}

func TestDiffSingleField(t *testing.T) {
	a := sample()
	b := sample()
	b.Speed = 1101
	got := Diff(a, b)
	if len(got) != 1 || got[0] != FieldSpeed {
		t.Fatalf("Diff = %v, want [speed]", got)
	}

	b = sample()
	b.Sparks.GP1 = []spark.Spark{{Color: vocab.Pink, Name: "Turf", Count: 3}}
	got = Diff(a, b)
	if len(got) != 1 || got[0] != FieldSparksGP1 {
		t.Fatalf("Diff = %v, want [sparks.gp1]", got)
	}
}

func TestCopyField(t *testing.T) {
	dst := sample()
	src := sample()
	src.Wit = 1
	src.Long = "G"
	src.GP2 = "Silence Suzuka"
	src.Sparks.Parent = nil
	for _, f := range []Field{FieldWit, FieldLong, FieldGP2, FieldSparksParent} {
		dst.CopyField(src, f)
	}
	if dst.Wit != 1 || dst.Long != "G" || dst.GP2 != "Silence Suzuka" || len(dst.Sparks.Parent) != 0 {
		t.Errorf("CopyField did not copy: %+v", dst)
	}
	if dst.Speed != 1100 {
		t.Error("CopyField touched an unrelated field")
	}
	for _, f := range Fields {
		if sample().Value(f) == nil {
			t.Errorf("Value(%s) = nil", f)
		}
	}
}

func TestJSONIsFlat(t *testing.T) {
	data, err := json.Marshal(sample())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"entry_id", "entry_hash", "speed", "wit", "turf", "end", "gp1", "skills", "sparks"} {
		if _, ok := m[key]; !ok {
			t.Errorf("JSON missing top-level key %q", key)
		}
	}
	sparks := m["sparks"].(map[string]any)
	parent := sparks["parent"].([]any)[0].(map[string]any)
	if parent["spark_name"] != "Corner Recovery" || parent["color"] != "white" {
		t.Errorf("spark JSON = %v", parent)
	}
}

func TestParseField(t *testing.T) {
	f, err := ParseField("sparks.gp2")
	if err != nil || f != FieldSparksGP2 {
		t.Fatalf("ParseField = %v, %v", f, err)
	}
	if o, ok := f.Origin(); !ok || o != spark.GP2 {
		t.Errorf("Origin = %v, %v", o, ok)
	}
	if _, err := ParseField("color"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestGrades(t *testing.T) {
	stats := map[int]string{1200: "SS+", 1150: "SS+", 1149: "SS", 1000: "S", 650: "B", 99: "G", 0: "G"}
	for v, want := range stats {
		if got := StatGrade(v); got != want {
			t.Errorf("StatGrade(%d) = %q, want %q", v, got, want)
		}
	}
	ranks := map[int]string{0: "G", 299: "G", 300: "G+", 10000: "A", 19599: "SS+", 19600: "", -1: ""}
	for v, want := range ranks {
		if got := ScoreRank(v); got != want {
			t.Errorf("ScoreRank(%d) = %q, want %q", v, got, want)
		}
	}
}
