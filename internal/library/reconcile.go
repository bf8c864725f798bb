package library

import (
	"time"

	"sparkscan/internal/record"
)

// Outcome is the result of reconciling one batch of scanned records.
type Outcome struct {
	Snapshot Snapshot
	// Inserted are the records added with fresh entry ids.
	Inserted []record.Record
	// Unchanged are hashes whose scan matched the stored record.
	Unchanged []string
	// Conflicts are the conflicts detected in this batch.
	Conflicts []Conflict
	// Held are hashes skipped because a conflict for them is already pending.
	Held []string
	// Duplicates are hashes that appeared more than once in the batch; the
	// first occurrence was used.
	Duplicates []string
}

// Reconcile merges incoming records into a snapshot. New hashes are inserted
// with increasing entry ids; a hash that matches a stored record with
// different data becomes a pending conflict and the stored record is left
// untouched. The input snapshot is not modified.
func Reconcile(s Snapshot, incoming []record.Record, now time.Time) Outcome {
	out := Outcome{Snapshot: s.clone()}
	next := s.NextID()

	stored := make(map[string]record.Record, len(s.Records))
	for _, r := range s.Records {
		stored[r.EntryHash] = r
	}
	pending := make(map[string]bool, len(s.Pending))
	for _, c := range s.Pending {
		pending[c.Hash] = true
	}
	seen := make(map[string]bool, len(incoming))

	for _, r := range incoming {
		hash := r.EntryHash
		if seen[hash] {
			out.Duplicates = append(out.Duplicates, hash)
			continue
		}
		seen[hash] = true

		if pending[hash] {
			out.Held = append(out.Held, hash)
			continue
		}

		existing, ok := stored[hash]
		if !ok {
			r.EntryID = next
			r.LastUpdated = now
			next++
			out.Snapshot.Records = append(out.Snapshot.Records, r)
			out.Inserted = append(out.Inserted, r)
			continue
		}

		if record.Equal(existing, r) {
			out.Unchanged = append(out.Unchanged, hash)
			continue
		}

		c := Conflict{Hash: hash, Existing: existing, New: r}
		out.Snapshot.Pending = append(out.Snapshot.Pending, c)
		out.Conflicts = append(out.Conflicts, c)
		pending[hash] = true
	}

	sortByID(out.Snapshot.Records)
	return out
}
