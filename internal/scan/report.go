package scan

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sparkscan/internal/record"
)

// Report collects the outcomes of one scan run. Add is safe for concurrent
// use.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome

	mu sync.Mutex
}

func NewReport() *Report {
	return &Report{RunID: uuid.NewString(), Started: time.Now()}
}

func (r *Report) Add(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes = append(r.Outcomes, o)
}

// Finish stamps the end time and orders outcomes by folder.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = time.Now()
	sort.SliceStable(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Folder < r.Outcomes[j].Folder
	})
}

// Records returns the records of successful outcomes in folder order.
func (r *Report) Records() []record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []record.Record
	for _, o := range r.Outcomes {
		if o.Status == Success {
			out = append(out, o.Record)
		}
	}
	return out
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
