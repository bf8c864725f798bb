// Package spark reads inheritance sparks out of a cropped inspiration panel:
// it tiles the panel into boxes, reads each box's label and counts its stars.
package spark

import (
	"fmt"
	"sort"

	"sparkscan/internal/vocab"
)

// Origin says which ancestor a spark was inherited from.
type Origin int

const (
	Parent Origin = iota
	GP1
	GP2
)

// Origins lists every origin in zone order.
var Origins = []Origin{Parent, GP1, GP2}

// Naming selects the labels used for origins in output.
type Naming string

const (
	// Lineage labels origins parent, gp1 and gp2.
	Lineage Naming = "lineage"
	// Legacy labels the parent "representative" and both grandparents "legacy".
	Legacy Naming = "legacy"
)

func (o Origin) String() string {
	return o.Label(Lineage)
}

// Label returns the origin name under the given naming scheme.
func (o Origin) Label(n Naming) string {
	if n == Legacy {
		if o == Parent {
			return "representative"
		}
		return "legacy"
	}
	switch o {
	case Parent:
		return "parent"
	case GP1:
		return "gp1"
	case GP2:
		return "gp2"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Spark is one resolved spark: a canonical name, its color and star count.
type Spark struct {
	Color vocab.Color `json:"color"`
	Name  string      `json:"spark_name"`
	Count int         `json:"count"`
}

// Occurrence is a spark together with the box it was read from.
type Occurrence struct {
	Spark
	Column int
	Row    int
}

// Shape selects how occurrences are turned into a spark list.
type Shape string

const (
	// Positional keeps one spark per box, in column then row order.
	Positional Shape = "positional"
	// Aggregate keeps one spark per (color, name) with counts summed.
	Aggregate Shape = "aggregate"
)

// Collect converts occurrences to the configured output shape.
func Collect(occs []Occurrence, shape Shape) []Spark {
	if shape == Aggregate {
		return AggregateCounts(occs)
	}
	out := make([]Spark, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Spark)
	}
	return out
}

// AggregateCounts sums counts per (color, name). Result order follows the
// first occurrence of each spark.
func AggregateCounts(occs []Occurrence) []Spark {
	type key struct {
		color vocab.Color
		name  string
	}
	index := make(map[key]int)
	var out []Spark
	for _, o := range occs {
		k := key{o.Color, o.Name}
		if i, ok := index[k]; ok {
			out[i].Count += o.Count
			continue
		}
		index[k] = len(out)
		out = append(out, o.Spark)
	}
	return out
}

// Sorted returns a copy ordered by color, name, then count.
func Sorted(sparks []Spark) []Spark {
	out := append([]Spark(nil), sparks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Color != b.Color {
			return a.Color.Rank() < b.Color.Rank()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Count < b.Count
	})
	return out
}

// FirstOfColor returns the first spark with color c.
func FirstOfColor(sparks []Spark, c vocab.Color) (Spark, bool) {
	for _, s := range sparks {
		if s.Color == c {
			return s, true
		}
	}
	return Spark{}, false
}
