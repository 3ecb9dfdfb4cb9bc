package events

import "time"

// RouteDecisionEvent - the orchestrator mapped a request to an agent
type RouteDecisionEvent struct {
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	RoutedTo   string    `json:"routed_to"`
	TaskID     string    `json:"task_id"`
	Fallback   bool      `json:"fallback"` // true when the default agent took the request
	Timestamp  time.Time `json:"timestamp"`
}

func (RouteDecisionEvent) Subject() string { return RouteDecisionEventName }

// RouteFailedEvent - no agent, not even the default, could take the request
type RouteFailedEvent struct {
	Category   string    `json:"category"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

func (RouteFailedEvent) Subject() string { return RouteFailedEventName }
