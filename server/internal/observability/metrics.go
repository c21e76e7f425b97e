package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates request counts and latencies per API operation.
type Metrics struct {
	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	mu         sync.Mutex
	operations map[string]*operationMetrics
}

type operationMetrics struct {
	requestCount  atomic.Int64
	errorCount    atomic.Int64
	totalDuration atomic.Int64 // milliseconds
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		operations: make(map[string]*operationMetrics),
	}
}

// RecordRequest records one completed request for an operation.
func (m *Metrics) RecordRequest(operation string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	if failed {
		m.requestFailed.Add(1)
	}
	om := m.getOperation(operation)
	om.requestCount.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if failed {
		om.errorCount.Add(1)
	}
}

func (m *Metrics) getOperation(operation string) *operationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	om, ok := m.operations[operation]
	if !ok {
		om = &operationMetrics{}
		m.operations[operation] = om
	}
	return om
}

// OperationSnapshot is a point-in-time view of one operation's counters.
type OperationSnapshot struct {
	RequestCount    int64 `json:"requestCount"`
	ErrorCount      int64 `json:"errorCount"`
	AverageDuration int64 `json:"averageDurationMs"`
}

// Snapshot is a point-in-time view of all request counters.
type Snapshot struct {
	RequestTotal  int64                        `json:"requestTotal"`
	RequestFailed int64                        `json:"requestFailed"`
	Operations    map[string]OperationSnapshot `json:"operations"`
}

// SuccessRate returns the success rate as a percentage.
func (s *Snapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}

// GetSnapshot captures current counters.
func (m *Metrics) GetSnapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	operations := make(map[string]OperationSnapshot, len(m.operations))
	for name, om := range m.operations {
		count := om.requestCount.Load()
		avg := int64(0)
		if count > 0 {
			avg = om.totalDuration.Load() / count
		}
		operations[name] = OperationSnapshot{
			RequestCount:    count,
			ErrorCount:      om.errorCount.Load(),
			AverageDuration: avg,
		}
	}
	return &Snapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		Operations:    operations,
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.mu.Lock()
	m.operations = make(map[string]*operationMetrics)
	m.mu.Unlock()
}
