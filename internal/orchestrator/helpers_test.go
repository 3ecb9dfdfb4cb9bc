package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentfleet/dispatcher/internal/agent"
	"github.com/agentfleet/dispatcher/internal/eventsink"
	"github.com/agentfleet/dispatcher/internal/llm"
	"github.com/agentfleet/dispatcher/internal/registry"
)

// fakeCompletion is a deterministic completion service: a fixed response per
// model, or a ModelError for models marked down.
type fakeCompletion struct {
	mu        sync.Mutex
	responses map[string]string
	down      map[string]error
}

func newFakeCompletion() *fakeCompletion {
	return &fakeCompletion{
		responses: make(map[string]string),
		down:      make(map[string]error),
	}
}

func (c *fakeCompletion) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.down[opts.Model]; err != nil {
		return "", &llm.ModelError{Model: opts.Model, Err: err}
	}
	if resp, ok := c.responses[opts.Model]; ok {
		return resp, nil
	}
	return "ok", nil
}

func (c *fakeCompletion) Probe(ctx context.Context, model string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.down[model]; err != nil {
		return &llm.ModelError{Model: model, Err: err}
	}
	return nil
}

func testRules() []KeywordRule {
	return []KeywordRule{
		{Category: "code", Keywords: []string{"function", "code", "bug"}},
		{Category: "orchestration", Keywords: []string{"deploy", "pipeline"}},
	}
}

// newFleet registers one agent per id with its own model named after the id.
func newFleet(t *testing.T, client llm.CompletionClient, ids ...string) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, id := range ids {
		a := agent.New(agent.Config{
			ID:           id,
			Name:         id + " agent",
			PrimaryModel: "m-" + id,
		}, client, eventsink.NewMemorySink())
		require.NoError(t, reg.Register(a))
		a.Init(context.Background())
	}
	return reg
}
