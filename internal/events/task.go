package events

import "time"

// TaskSubmittedEvent - a task was appended to an agent's queue
type TaskSubmittedEvent struct {
	AgentID    string    `json:"agent_id"`
	TaskID     string    `json:"task_id"`
	TaskType   string    `json:"task_type"`
	QueueDepth int       `json:"queue_depth"`
	Timestamp  time.Time `json:"timestamp"`
}

func (TaskSubmittedEvent) Subject() string { return TaskSubmittedEventName }

// TaskStartedEvent - the drain worker picked the task up
type TaskStartedEvent struct {
	AgentID   string    `json:"agent_id"`
	TaskID    string    `json:"task_id"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

func (TaskStartedEvent) Subject() string { return TaskStartedEventName }

// TaskFinishedEvent - the task reached a terminal status
type TaskFinishedEvent struct {
	AgentID     string    `json:"agent_id"`
	TaskID      string    `json:"task_id"`
	Status      string    `json:"status"` // "completed", "failed"
	Error       string    `json:"error,omitempty"`
	Model       string    `json:"model,omitempty"`
	ExecutionMs int64     `json:"execution_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

func (TaskFinishedEvent) Subject() string { return TaskFinishedEventName }
