package agent

import (
	"context"
	"sync"
	"time"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is one unit of work owned by a single agent's queue until it reaches
// a terminal status. Identity fields are immutable after submission; the
// mutable fields are written only by the owning drain worker.
type Task struct {
	ID         string
	Type       string
	Parameters map[string]any
	Priority   int // carried for callers; ordering is strictly FIFO

	mu          sync.Mutex
	status      TaskStatus
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	result      any
	errMsg      string
	modelUsed   string
	execTime    time.Duration

	done chan struct{}
}

func NewTask(taskType string, parameters map[string]any) *Task {
	return &Task{
		ID:         NewTaskID(),
		Type:       taskType,
		Parameters: parameters,
		status:     TaskPending,
		done:       make(chan struct{}),
	}
}

func (t *Task) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Wait blocks until the task reaches a terminal status or the context ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TaskSnapshot is a read-only copy of a task's state, safe to serialize.
type TaskSnapshot struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    int            `json:"priority,omitempty"`
	Status      TaskStatus     `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   time.Time      `json:"started_at,omitempty"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
	Result      any            `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	ModelUsed   string         `json:"model_used,omitempty"`
	ExecutionMs int64          `json:"execution_ms"`
}

func (t *Task) Snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskSnapshot{
		ID:          t.ID,
		Type:        t.Type,
		Parameters:  t.Parameters,
		Priority:    t.Priority,
		Status:      t.status,
		CreatedAt:   t.createdAt,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
		Result:      t.result,
		Error:       t.errMsg,
		ModelUsed:   t.modelUsed,
		ExecutionMs: t.execTime.Milliseconds(),
	}
}

func (t *Task) markSubmitted(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createdAt = now
}

func (t *Task) markRunning(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskRunning
	t.startedAt = now
}

func (t *Task) markCompleted(now time.Time, result any, model string, execTime time.Duration) {
	t.mu.Lock()
	t.status = TaskCompleted
	t.completedAt = now
	t.result = result
	t.modelUsed = model
	t.execTime = execTime
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) markFailed(now time.Time, errMsg, model string, execTime time.Duration) {
	t.mu.Lock()
	t.status = TaskFailed
	t.completedAt = now
	t.errMsg = errMsg
	t.modelUsed = model
	t.execTime = execTime
	t.mu.Unlock()
	close(t.done)
}
