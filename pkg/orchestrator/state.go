package orchestrator

import (
	"sync"
	"time"

	"github.com/matzehuels/stemplan/pkg/solver"
)

// PerformanceRecord is the attempt history of one back-end.
type PerformanceRecord struct {
	Successes int           `json:"successes" yaml:"successes" bson:"successes"`
	Failures  int           `json:"failures" yaml:"failures" bson:"failures"`
	TotalTime time.Duration `json:"total_time" yaml:"total_time" bson:"total_time"`
}

// Attempts returns the number of recorded attempts.
func (r PerformanceRecord) Attempts() int { return r.Successes + r.Failures }

// SuccessRate returns successes over attempts, or 0 with no attempts.
func (r PerformanceRecord) SuccessRate() float64 {
	if n := r.Attempts(); n > 0 {
		return float64(r.Successes) / float64(n)
	}
	return 0
}

// AverageTime returns the mean attempt duration, or 0 with no attempts.
func (r PerformanceRecord) AverageTime() time.Duration {
	if n := r.Attempts(); n > 0 {
		return r.TotalTime / time.Duration(n)
	}
	return 0
}

// State holds one performance record per back-end kind. Records are
// created up front and never removed.
type State struct {
	mu      sync.Mutex
	records map[solver.Kind]*PerformanceRecord
}

// NewState creates zeroed records for every back-end kind.
func NewState() *State {
	s := &State{records: make(map[solver.Kind]*PerformanceRecord, len(solver.Kinds))}
	for _, k := range solver.Kinds {
		s.records[k] = &PerformanceRecord{}
	}
	return s
}

// Record adds one attempt to the record of k.
func (s *State) Record(k solver.Kind, success bool, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[k]
	if !ok {
		r = &PerformanceRecord{}
		s.records[k] = r
	}
	if success {
		r.Successes++
	} else {
		r.Failures++
	}
	r.TotalTime += elapsed
}

// Get returns a copy of the record of k.
func (s *State) Get(k solver.Kind) PerformanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[k]; ok {
		return *r
	}
	return PerformanceRecord{}
}

// Snapshot returns a copy of every record.
func (s *State) Snapshot() map[solver.Kind]PerformanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[solver.Kind]PerformanceRecord, len(s.records))
	for k, r := range s.records {
		out[k] = *r
	}
	return out
}

// Reset zeroes every record.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		*r = PerformanceRecord{}
	}
}

// Restore adds previously persisted records to the current ones.
func (s *State) Restore(records map[solver.Kind]PerformanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, add := range records {
		r, ok := s.records[k]
		if !ok {
			r = &PerformanceRecord{}
			s.records[k] = r
		}
		r.Successes += add.Successes
		r.Failures += add.Failures
		r.TotalTime += add.TotalTime
	}
}
