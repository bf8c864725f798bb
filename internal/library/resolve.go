package library

import (
	"fmt"
	"sort"
	"time"

	"sparkscan/internal/record"
	"sparkscan/internal/spark"
	"sparkscan/internal/vocab"
)

// Side picks one version of a conflicting field.
type Side int

const (
	KeepExisting Side = iota
	TakeNew
)

func (s Side) String() string {
	if s == TakeNew {
		return "new"
	}
	return "existing"
}

// Choices maps fields to the side to keep. Fields not listed keep the
// existing value. Sparks are chosen per origin through the sparks.* fields.
type Choices map[record.Field]Side

// TakeAllNew returns choices that accept every field of the new scan.
func TakeAllNew() Choices {
	c := make(Choices, len(record.Fields))
	for _, f := range record.Fields {
		c[f] = TakeNew
	}
	return c
}

// Merge builds the resolved record for a conflict. The entry id and hash
// always come from the stored record.
func Merge(c Conflict, choices Choices, now time.Time) record.Record {
	merged := c.Existing
	merged.Skills = append([]string(nil), c.Existing.Skills...)
	for _, o := range spark.Origins {
		merged.Sparks.Set(o, append([]spark.Spark(nil), c.Existing.Sparks.Of(o)...))
	}
	for f, side := range choices {
		if side == TakeNew {
			merged.CopyField(c.New, f)
		}
	}
	merged.EntryID = c.Existing.EntryID
	merged.EntryHash = c.Existing.EntryHash
	merged.LastUpdated = now
	return merged
}

// Resolve applies choices to the pending conflict for hash: the stored record
// with the same entry id is replaced by the merge and the conflict is
// removed. The input snapshot is not modified.
func Resolve(s Snapshot, hash string, choices Choices, now time.Time) (Snapshot, record.Record, error) {
	idx := -1
	for i, c := range s.Pending {
		if c.Hash == hash {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, record.Record{}, fmt.Errorf("%w %s", ErrConflictNotFound, hash)
	}

	out := s.clone()
	merged := Merge(out.Pending[idx], choices, now)
	out.Pending = append(out.Pending[:idx], out.Pending[idx+1:]...)

	replaced := false
	for i, r := range out.Records {
		if r.EntryID == merged.EntryID {
			out.Records[i] = merged
			replaced = true
			break
		}
	}
	if !replaced {
		out.Records = append(out.Records, merged)
		sortByID(out.Records)
	}
	return out, merged, nil
}

// ChangeKind classifies a spark when comparing two scans.
type ChangeKind int

const (
	Unchanged ChangeKind = iota
	Added
	Missing
	CountChanged
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "new"
	case Missing:
		return "missing"
	case CountChanged:
		return "count changed"
	default:
		return "unchanged"
	}
}

// SparkChange is one (color, name) pair seen on either side.
type SparkChange struct {
	Color    vocab.Color
	Name     string
	Existing int
	New      int
	Kind     ChangeKind
}

// DiffSparks compares two spark lists of the same origin by (color, name),
// summing counts of repeated entries. Results are ordered by color then name.
func DiffSparks(existing, incoming []spark.Spark) []SparkChange {
	type key struct {
		color vocab.Color
		name  string
	}
	counts := make(map[key]*SparkChange)
	var order []key
	add := func(list []spark.Spark, isNew bool) {
		for _, s := range list {
			k := key{s.Color, s.Name}
			ch, ok := counts[k]
			if !ok {
				ch = &SparkChange{Color: k.color, Name: k.name}
				counts[k] = ch
				order = append(order, k)
			}
			if isNew {
				ch.New += s.Count
			} else {
				ch.Existing += s.Count
			}
		}
	}
	add(spark.Sorted(existing), false)
	add(spark.Sorted(incoming), true)

	var out []SparkChange
	for _, k := range order {
		ch := *counts[k]
		switch {
		case ch.Existing == 0:
			ch.Kind = Added
		case ch.New == 0:
			ch.Kind = Missing
		case ch.Existing != ch.New:
			ch.Kind = CountChanged
		}
		out = append(out, ch)
	}
	sortChanges(out)
	return out
}

func sortChanges(changes []SparkChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if a.Color != b.Color {
			return a.Color.Rank() < b.Color.Rank()
		}
		return a.Name < b.Name
	})
}
