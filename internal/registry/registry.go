package registry

import (
	"fmt"
	"sync"

	"github.com/agentfleet/dispatcher/internal/agent"
)

// Registry is the startup-populated directory of agent handles. Keys are
// unique and stable for the process lifetime; after wiring, the map is only
// read, so concurrent lookups from routing are safe.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*agent.Agent
	order  []string
}

func New() *Registry {
	return &Registry{
		agents: make(map[string]*agent.Agent),
	}
}

func (r *Registry) Register(a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[a.ID()]; exists {
		return fmt.Errorf("agent %s already registered", a.ID())
	}
	r.agents[a.ID()] = a
	r.order = append(r.order, a.ID())
	return nil
}

func (r *Registry) Get(id string) (*agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// List returns agents in registration order.
func (r *Registry) List() []*agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*agent.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// AgentStatus is one row of the fleet rollup.
type AgentStatus struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Status       agent.Status          `json:"status"`
	CurrentModel string                `json:"current_model"`
	QueueDepth   int                   `json:"queue_depth"`
	Metrics      agent.MetricsSnapshot `json:"metrics"`
}

// FleetStatus is a read-only projection of the whole fleet.
type FleetStatus struct {
	Agents     []AgentStatus `json:"agents"`
	Total      int           `json:"total"`
	ReadyCount int           `json:"ready_count"`
}

// SystemStatus rolls up every agent's snapshot fields. Pure read, safe to
// call concurrently with draining workers.
func (r *Registry) SystemStatus() FleetStatus {
	agents := r.List()

	fs := FleetStatus{
		Agents: make([]AgentStatus, 0, len(agents)),
		Total:  len(agents),
	}
	for _, a := range agents {
		status := a.Status()
		if status == agent.StatusReady {
			fs.ReadyCount++
		}
		fs.Agents = append(fs.Agents, AgentStatus{
			ID:           a.ID(),
			Name:         a.Name(),
			Status:       status,
			CurrentModel: a.CurrentModel(),
			QueueDepth:   a.QueueDepth(),
			Metrics:      a.Metrics().Snapshot(),
		})
	}
	return fs
}
