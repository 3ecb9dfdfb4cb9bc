package orchestrator

import (
	"context"
	"log"

	"github.com/agentfleet/dispatcher/internal/agent"
	"github.com/agentfleet/dispatcher/internal/registry"
)

// Router maps a classification category onto a registered, READY agent.
// Classification-driven selection degrades to the default agent rather than
// erroring; delegation is strict because the caller named the target.
type Router struct {
	registry     *registry.Registry
	routes       map[string]string // category -> agent id
	defaultAgent string
}

func NewRouter(reg *registry.Registry, routes map[string]string, defaultAgent string) *Router {
	return &Router{
		registry:     reg,
		routes:       routes,
		defaultAgent: defaultAgent,
	}
}

// Select resolves the classification to an agent. The second return reports
// whether the default agent took the request in place of the mapped target.
func (r *Router) Select(c Classification) (*agent.Agent, bool, error) {
	if targetID, ok := r.routes[c.Category]; ok {
		if target, ok := r.registry.Get(targetID); ok && target.Status() == agent.StatusReady {
			return target, false, nil
		}
		log.Printf("Router: agent %s unavailable for category %s, trying default", targetID, c.Category)
	}

	if fallback, ok := r.registry.Get(r.defaultAgent); ok && fallback.Status() == agent.StatusReady {
		return fallback, true, nil
	}

	return nil, false, &NoAgentAvailableError{Classification: c}
}

// Delegate forwards the task to the named agent and waits for its terminal
// result. Unlike Select there is no silent redirection: a missing or
// not-READY target is the caller's error.
func (r *Router) Delegate(ctx context.Context, task *agent.Task, targetID string) (agent.TaskSnapshot, error) {
	target, ok := r.registry.Get(targetID)
	if !ok {
		return agent.TaskSnapshot{}, &AgentNotFoundError{AgentID: targetID}
	}
	if status := target.Status(); status != agent.StatusReady {
		return agent.TaskSnapshot{}, &AgentNotReadyError{AgentID: targetID, Status: status}
	}

	target.Submit(task)
	if err := task.Wait(ctx); err != nil {
		return agent.TaskSnapshot{}, err
	}
	return task.Snapshot(), nil
}
