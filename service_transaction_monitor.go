package gatekit

import (
	"sync"
	"time"
)

// MutationMetrics summarizes the administrative mutations a Service has run.
type MutationMetrics struct {
	Total           int64            `json:"total"`
	Succeeded       int64            `json:"succeeded"`
	Failed          int64            `json:"failed"`
	Changed         int64            `json:"changed"`
	Retries         int64            `json:"retries"`
	AverageDuration time.Duration    `json:"average_duration"`
	MaxDuration     time.Duration    `json:"max_duration"`
	MinDuration     time.Duration    `json:"min_duration"`
	ByOperation     map[string]int64 `json:"by_operation"`
	LastReset       time.Time        `json:"last_reset"`
}

// mutationMonitor holds the in-process mutation statistics.
type mutationMonitor struct {
	mu            sync.Mutex
	total         int64
	succeeded     int64
	failed        int64
	changed       int64
	retries       int64
	totalDuration time.Duration
	maxDuration   time.Duration
	minDuration   time.Duration
	byOp          map[string]int64
	lastReset     time.Time
}

func newMutationMonitor() *mutationMonitor {
	m := &mutationMonitor{}
	m.resetLocked()
	return m
}

func (m *mutationMonitor) record(op string, duration time.Duration, attempts int, changed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byOp[op]++
	if err != nil {
		m.failed++
	} else {
		m.succeeded++
	}
	if changed {
		m.changed++
	}
	if attempts > 1 {
		m.retries += int64(attempts - 1)
	}

	m.totalDuration += duration
	if duration > m.maxDuration {
		m.maxDuration = duration
	}
	if m.minDuration == 0 || duration < m.minDuration {
		m.minDuration = duration
	}
}

func (m *mutationMonitor) snapshot() MutationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	byOp := make(map[string]int64, len(m.byOp))
	for k, v := range m.byOp {
		byOp[k] = v
	}

	var avg time.Duration
	if m.total > 0 {
		avg = m.totalDuration / time.Duration(m.total)
	}

	return MutationMetrics{
		Total:           m.total,
		Succeeded:       m.succeeded,
		Failed:          m.failed,
		Changed:         m.changed,
		Retries:         m.retries,
		AverageDuration: avg,
		MaxDuration:     m.maxDuration,
		MinDuration:     m.minDuration,
		ByOperation:     byOp,
		LastReset:       m.lastReset,
	}
}

func (m *mutationMonitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *mutationMonitor) resetLocked() {
	m.total, m.succeeded, m.failed, m.changed, m.retries = 0, 0, 0, 0, 0
	m.totalDuration, m.maxDuration, m.minDuration = 0, 0, 0
	m.byOp = make(map[string]int64)
	m.lastReset = time.Now()
}

// MutationMetrics returns the mutation statistics since the last reset.
func (s *Service) MutationMetrics() MutationMetrics {
	return s.monitor.snapshot()
}

// ResetMutationMetrics clears the mutation statistics.
func (s *Service) ResetMutationMetrics() {
	s.monitor.reset()
}

// IsMutationHealthy reports whether mutations are failing or slow.
// Fewer than 10 mutations are always healthy.
func (s *Service) IsMutationHealthy() bool {
	m := s.monitor.snapshot()
	if m.Total < 10 {
		return true
	}
	if float64(m.Failed)/float64(m.Total) > 0.05 {
		return false
	}
	return m.AverageDuration <= time.Second
}
