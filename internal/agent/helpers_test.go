package agent

import (
	"context"
	"sync"

	"github.com/agentfleet/dispatcher/internal/llm"
)

type completionCall struct {
	Model  string
	Prompt string
}

// scriptedClient is a deterministic completion service for tests. Per-model
// errors simulate an unavailable model; probes consult the same table but
// are recorded separately so call assertions stay about task execution.
type scriptedClient struct {
	mu        sync.Mutex
	modelErrs map[string]error
	response  string
	calls     []completionCall
	probes    []string
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{
		modelErrs: make(map[string]error),
		response:  "ok",
	}
}

func (c *scriptedClient) failModel(model string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelErrs[model] = err
}

func (c *scriptedClient) healModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.modelErrs, model)
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, completionCall{Model: opts.Model, Prompt: prompt})
	err := c.modelErrs[opts.Model]
	c.mu.Unlock()

	if ctx.Err() != nil {
		return "", &llm.ModelError{Model: opts.Model, Err: ctx.Err()}
	}
	if err != nil {
		return "", &llm.ModelError{Model: opts.Model, Err: err}
	}
	return c.response, nil
}

func (c *scriptedClient) Probe(ctx context.Context, model string) error {
	c.mu.Lock()
	c.probes = append(c.probes, model)
	err := c.modelErrs[model]
	c.mu.Unlock()

	if err != nil {
		return &llm.ModelError{Model: model, Err: err}
	}
	return nil
}

func (c *scriptedClient) callModels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	models := make([]string, len(c.calls))
	for i, call := range c.calls {
		models[i] = call.Model
	}
	return models
}
