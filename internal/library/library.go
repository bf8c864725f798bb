// Package library keeps the collection of scanned records and the conflicts
// waiting for manual resolution.
package library

import (
	"context"
	"errors"
	"sort"

	"sparkscan/internal/record"
)

// ErrConflictNotFound is returned when resolving a hash with no pending
// conflict.
var ErrConflictNotFound = errors.New("no pending conflict for hash")

// Conflict pairs a stored record with a divergent re-scan of it.
type Conflict struct {
	Hash     string        `json:"hash"`
	Existing record.Record `json:"existing"`
	New      record.Record `json:"new"`
}

// Fields lists the fields that differ between the two sides.
func (c Conflict) Fields() []record.Field {
	return record.Diff(c.Existing, c.New)
}

// Snapshot is the full persisted state: records ordered by entry id and
// pending conflicts in detection order.
type Snapshot struct {
	Records []record.Record
	Pending []Conflict
}

// Store loads and saves snapshots. A pass reads the store once and writes it
// once.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Close() error
}

// NextID returns the id the next inserted record receives.
func (s Snapshot) NextID() int {
	maxID := 0
	for _, r := range s.Records {
		maxID = max(maxID, r.EntryID)
	}
	return maxID + 1
}

// Find returns the stored record with the given hash.
func (s Snapshot) Find(hash string) (record.Record, bool) {
	for _, r := range s.Records {
		if r.EntryHash == hash {
			return r, true
		}
	}
	return record.Record{}, false
}

// Conflict returns the pending conflict for hash.
func (s Snapshot) Conflict(hash string) (Conflict, bool) {
	for _, c := range s.Pending {
		if c.Hash == hash {
			return c, true
		}
	}
	return Conflict{}, false
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{
		Records: append([]record.Record(nil), s.Records...),
		Pending: append([]Conflict(nil), s.Pending...),
	}
}

func sortByID(records []record.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EntryID < records[j].EntryID
	})
}
