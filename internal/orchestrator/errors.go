package orchestrator

import (
	"fmt"

	"github.com/agentfleet/dispatcher/internal/agent"
)

// AgentNotFoundError is returned by delegation when the target id is not
// registered.
type AgentNotFoundError struct {
	AgentID string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %s not found", e.AgentID)
}

// AgentNotReadyError is returned by delegation when the target exists but is
// not READY.
type AgentNotReadyError struct {
	AgentID string
	Status  agent.Status
}

func (e *AgentNotReadyError) Error() string {
	return fmt.Sprintf("agent %s is not ready (status %s)", e.AgentID, e.Status)
}

// NoAgentAvailableError is returned by routing when neither the target nor
// the default agent can take the request. It carries the classification for
// diagnostics.
type NoAgentAvailableError struct {
	Classification Classification
}

func (e *NoAgentAvailableError) Error() string {
	return fmt.Sprintf("no agent available for category %s", e.Classification.Category)
}
