package events

import "time"

type AgentStatusEvent struct {
	AgentID   string    `json:"agent_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (AgentStatusEvent) Subject() string { return AgentStatusEventName }

// ModelFallbackEvent - the executor failed over from one model to another
type ModelFallbackEvent struct {
	AgentID   string    `json:"agent_id"`
	TaskID    string    `json:"task_id,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func (ModelFallbackEvent) Subject() string { return ModelFallbackEventName }

// ModelSwitchEvent - an explicit, probed switch of the active model
type ModelSwitchEvent struct {
	AgentID   string    `json:"agent_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

func (ModelSwitchEvent) Subject() string { return ModelSwitchEventName }
