package agent

import (
	"sync"
	"time"
)

// Metrics accumulates per-agent execution counters. The average is maintained
// incrementally over completed+failed tasks, never recomputed from history.
type Metrics struct {
	mu             sync.Mutex
	tasksCompleted int
	tasksFailed    int
	totalExecTime  time.Duration
	avgExecTime    time.Duration
	modelUsage     map[string]int
}

func NewMetrics() *Metrics {
	return &Metrics{
		modelUsage: make(map[string]int),
	}
}

func (m *Metrics) recordCompleted(model string, execTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksCompleted++
	m.modelUsage[model]++
	m.record(execTime)
}

func (m *Metrics) recordFailed(execTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksFailed++
	m.record(execTime)
}

// record assumes m.mu is held and the relevant counter already incremented.
func (m *Metrics) record(execTime time.Duration) {
	m.totalExecTime += execTime
	n := time.Duration(m.tasksCompleted + m.tasksFailed)
	m.avgExecTime = (m.avgExecTime*(n-1) + execTime) / n
}

// MetricsSnapshot is the serializable projection used by status rollups.
type MetricsSnapshot struct {
	TasksCompleted     int            `json:"tasks_completed"`
	TasksFailed        int            `json:"tasks_failed"`
	TotalExecutionMs   int64          `json:"total_execution_ms"`
	AverageExecutionMs int64          `json:"average_execution_ms"`
	ModelUsage         map[string]int `json:"model_usage"`
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	usage := make(map[string]int, len(m.modelUsage))
	for model, count := range m.modelUsage {
		usage[model] = count
	}
	return MetricsSnapshot{
		TasksCompleted:     m.tasksCompleted,
		TasksFailed:        m.tasksFailed,
		TotalExecutionMs:   m.totalExecTime.Milliseconds(),
		AverageExecutionMs: m.avgExecTime.Milliseconds(),
		ModelUsage:         usage,
	}
}

// AverageExecutionTime exposes the incremental average for tests and rollups.
func (m *Metrics) AverageExecutionTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avgExecTime
}
