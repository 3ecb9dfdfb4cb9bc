package events

const (
	TaskSubmittedEventName = "task-submitted"
	TaskStartedEventName   = "task-started"
	TaskFinishedEventName  = "task-finished"

	AgentStatusEventName = "agent-status"

	ModelFallbackEventName = "model-fallback"
	ModelSwitchEventName   = "model-switch"

	RouteDecisionEventName = "route-decision"
	RouteFailedEventName   = "route-failed"
)
