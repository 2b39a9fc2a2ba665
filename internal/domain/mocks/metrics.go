package mocks

import (
	"context"
	"sync"
)

// Metrics is a mock implementation of ports.MetricsRecorder.
type Metrics struct {
	Mutations map[string]int // operation -> count
	Failures  map[string]int // operation -> failed count
	Conflicts int

	mu sync.Mutex
}

// NewMetrics creates an empty mock recorder.
func NewMetrics() *Metrics {
	return &Metrics{
		Mutations: make(map[string]int),
		Failures:  make(map[string]int),
	}
}

// RecordMutation counts an operation.
func (m *Metrics) RecordMutation(_ context.Context, operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Mutations[operation]++
	if err != nil {
		m.Failures[operation]++
	}
}

// RecordConflict counts a conflict.
func (m *Metrics) RecordConflict(_ context.Context, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Conflicts++
}
