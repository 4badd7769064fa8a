package routing

import (
	"sync"
	"time"
)

// ModelStats tracks how a single model has been behaving.
type ModelStats struct {
	Model            string    `json:"model"`
	TotalRequests    int64     `json:"total_requests"`
	SuccessRequests  int64     `json:"success_requests"`
	FailedRequests   int64     `json:"failed_requests"`
	ConsecutiveFails int       `json:"consecutive_fails"`
	AverageLatency   float64   `json:"average_latency_ms"`
	LastSuccessful   time.Time `json:"last_successful"`
	LastFailure      time.Time `json:"last_failure"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

// Stats holds per-model counters. They are informational only and never
// influence which model is tried next.
type Stats struct {
	mu     sync.RWMutex
	order  []string
	models map[string]*ModelStats
}

// NewStats creates counters for the given models, preserving their order.
func NewStats(ids []string) *Stats {
	s := &Stats{
		order:  make([]string, 0, len(ids)),
		models: make(map[string]*ModelStats, len(ids)),
	}
	for _, id := range ids {
		s.entry(id)
	}
	return s
}

// entry returns the counters for id, creating them if needed. Caller holds mu
// (or is the constructor).
func (s *Stats) entry(id string) *ModelStats {
	m, ok := s.models[id]
	if !ok {
		m = &ModelStats{Model: id}
		s.models[id] = m
		s.order = append(s.order, id)
	}
	return m
}

// RecordSuccess records a usable reply from model.
func (s *Stats) RecordSuccess(model string, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.entry(model)
	m.TotalRequests++
	m.SuccessRequests++
	m.ConsecutiveFails = 0
	m.LastSuccessful = time.Now()
	m.ErrorMessage = ""
	updateLatency(m, latency)
}

// RecordFailure records a failed attempt against model.
func (s *Stats) RecordFailure(model string, err error, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.entry(model)
	m.TotalRequests++
	m.FailedRequests++
	m.ConsecutiveFails++
	m.LastFailure = time.Now()
	if err != nil {
		m.ErrorMessage = err.Error()
	}
	updateLatency(m, latency)
}

// updateLatency folds latency into an exponential moving average
func updateLatency(m *ModelStats, latency time.Duration) {
	ms := float64(latency.Milliseconds())
	if m.AverageLatency == 0 {
		m.AverageLatency = ms
	} else {
		m.AverageLatency = m.AverageLatency*0.9 + ms*0.1
	}
}

// Get returns a copy of the counters for model.
func (s *Stats) Get(model string) (ModelStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[model]
	if !ok {
		return ModelStats{}, false
	}
	return *m, true
}

// Snapshot returns a copy of every model's counters in roster order.
func (s *Stats) Snapshot() []ModelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ModelStats, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.models[id])
	}
	return out
}
