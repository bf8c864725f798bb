// Package record defines the character record stored in the library.
package record

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"time"

	"sparkscan/internal/spark"
)

// Unknown names a grandparent that could not be identified.
const Unknown = "Unknown"

type Stats struct {
	Speed   int `json:"speed"`
	Stamina int `json:"stamina"`
	Power   int `json:"power"`
	Guts    int `json:"guts"`
	Wit     int `json:"wit"`
}

// Aptitudes holds one letter grade per track, distance and running style.
type Aptitudes struct {
	Turf   string `json:"turf"`
	Dirt   string `json:"dirt"`
	Sprint string `json:"sprint"`
	Mile   string `json:"mile"`
	Medium string `json:"medium"`
	Long   string `json:"long"`
	Front  string `json:"front"`
	Pace   string `json:"pace"`
	Late   string `json:"late"`
	End    string `json:"end"`
}

// Sparks partitions a record's sparks by origin.
type Sparks struct {
	Parent []spark.Spark `json:"parent"`
	GP1    []spark.Spark `json:"gp1"`
	GP2    []spark.Spark `json:"gp2"`
}

// Of returns the sparks inherited from o.
func (s Sparks) Of(o spark.Origin) []spark.Spark {
	switch o {
	case spark.Parent:
		return s.Parent
	case spark.GP1:
		return s.GP1
	case spark.GP2:
		return s.GP2
	}
	return nil
}

// Set replaces the sparks inherited from o.
func (s *Sparks) Set(o spark.Origin, list []spark.Spark) {
	switch o {
	case spark.Parent:
		s.Parent = list
	case spark.GP1:
		s.GP1 = list
	case spark.GP2:
		s.GP2 = list
	}
}

// Len returns the total number of sparks.
func (s Sparks) Len() int {
	return len(s.Parent) + len(s.GP1) + len(s.GP2)
}

// Record is one scanned character. Stats and aptitudes are flattened into
// the top level of the JSON form.
type Record struct {
	EntryID     int       `json:"entry_id"`
	EntryHash   string    `json:"entry_hash"`
	LastUpdated time.Time `json:"last_updated"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Stats
	Aptitudes
	GP1    string   `json:"gp1"`
	GP2    string   `json:"gp2"`
	Skills []string `json:"skills"`
	Sparks Sparks   `json:"sparks"`
}

// EntryHash derives the identity of a record from the folder it was scanned
// from and the character name.
func EntryHash(folder, name string) string {
	sum := md5.Sum([]byte(folder + "_" + name))
	return hex.EncodeToString(sum[:])
}

// New builds an empty record for a folder and character.
func New(folder, name string) Record {
	return Record{
		EntryHash: EntryHash(folder, name),
		Name:      name,
		GP1:       Unknown,
		GP2:       Unknown,
	}
}

// Canonical strips the volatile fields and orders collections so that two
// scans of the same screenshots compare equal.
func Canonical(r Record) Record {
	c := r
	c.EntryID = 0
	c.LastUpdated = time.Time{}
	c.Skills = append([]string{}, r.Skills...)
	sort.Strings(c.Skills)
	for _, o := range spark.Origins {
		c.Sparks.Set(o, append([]spark.Spark{}, spark.Sorted(r.Sparks.Of(o))...))
	}
	return c
}

// Equal reports whether two records hold the same data, ignoring entry id
// and update time.
func Equal(a, b Record) bool {
	return len(Diff(a, b)) == 0
}
