package api

import "time"

// SubmitTaskRequest enqueues a typed task on a named agent.
type SubmitTaskRequest struct {
	AgentID    string         `json:"agent_id"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Priority   int            `json:"priority,omitempty"`
}

type SubmitTaskResponse struct {
	TaskID    string    `json:"task_id"`
	AgentID   string    `json:"agent_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RouteRequest asks the orchestrator to classify and dispatch free text.
type RouteRequest struct {
	Text       string         `json:"text"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type RouteResponse struct {
	RoutedTo   string  `json:"routed_to"`
	TaskID     string  `json:"task_id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// DelegateRequest forwards a task to an explicit agent and waits for the
// terminal result.
type DelegateRequest struct {
	AgentID    string         `json:"agent_id"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type DelegateResponse struct {
	TaskID      string `json:"task_id"`
	AgentID     string `json:"agent_id"`
	Status      string `json:"status"`
	Result      any    `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	ModelUsed   string `json:"model_used,omitempty"`
	ExecutionMs int64  `json:"execution_ms"`
}

// AgentStatus mirrors one row of the fleet rollup.
type AgentStatus struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Status       string         `json:"status"`
	CurrentModel string         `json:"current_model"`
	QueueDepth   int            `json:"queue_depth"`
	Metrics      map[string]any `json:"metrics"`
}

type SystemStatusResponse struct {
	Agents     []AgentStatus `json:"agents"`
	Total      int           `json:"total"`
	ReadyCount int           `json:"ready_count"`
}

// Classification is returned alongside routing errors for diagnostics.
type Classification struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	Indicators []string `json:"indicators"`
}

type ErrorResponse struct {
	Error          string          `json:"error"`
	Classification *Classification `json:"classification,omitempty"`
}

type HealthStatus struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
