package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/agentfleet/dispatcher/internal/events"
	"github.com/agentfleet/dispatcher/internal/eventsink"
	"github.com/agentfleet/dispatcher/internal/llm"
)

// ErrTaskTimeout marks a task that hit its per-task deadline.
var ErrTaskTimeout = errors.New("task deadline exceeded")

// ExecResult is the outcome of one executor run over a task.
type ExecResult struct {
	Success       bool
	Result        any
	Err           error
	ExecutionTime time.Duration
	ModelUsed     string
	// ModelFailure is true when the final error came from the completion
	// service rather than the task handler.
	ModelFailure bool
}

// Executor runs task handlers against the completion service with bounded
// primary/secondary model fallback. The active model is sticky: once the
// executor fails over, later tasks keep using the fallback until an explicit
// SwitchModel.
type Executor struct {
	agentID   string
	primary   string
	secondary string

	client llm.CompletionClient
	sink   eventsink.Sink
	clock  Clock

	metrics *Metrics

	temperature float32
	maxTokens   int

	mu      sync.Mutex
	current string
}

func NewExecutor(agentID, primary, secondary string, client llm.CompletionClient, sink eventsink.Sink, clock Clock) *Executor {
	if secondary == "" {
		secondary = primary
	}
	return &Executor{
		agentID:   agentID,
		primary:   primary,
		secondary: secondary,
		current:   primary,
		client:    client,
		sink:      sink,
		clock:     clock,
		metrics:   NewMetrics(),
	}
}

func (e *Executor) SetCompletionOptions(temperature float32, maxTokens int) {
	e.temperature = temperature
	e.maxTokens = maxTokens
}

func (e *Executor) CurrentModel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Executor) Metrics() *Metrics { return e.metrics }

func (e *Executor) bind(model string) CompleteFunc {
	return func(ctx context.Context, prompt string) (string, error) {
		return e.client.Complete(ctx, prompt, llm.Options{
			Model:       model,
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
		})
	}
}

// Execute runs the handler, falling over to the secondary model on a
// ModelError. The fallback is a bounded walk over the candidate list, never
// a retry of a model that already failed: if the sticky current model is
// already the secondary, the first ModelError is final.
func (e *Executor) Execute(ctx context.Context, task *Task, handler TaskHandler) ExecResult {
	start := e.clock.Now()
	model := e.CurrentModel()

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		result, err := handler.Handle(ctx, task, e.bind(model))
		if err == nil {
			execTime := e.clock.Now().Sub(start)
			e.metrics.recordCompleted(model, execTime)
			return ExecResult{
				Success:       true,
				Result:        result,
				ExecutionTime: execTime,
				ModelUsed:     model,
			}
		}
		lastErr = err

		var modelErr *llm.ModelError
		if !errors.As(err, &modelErr) {
			// Handler fault, not a service fault: no fallback.
			execTime := e.clock.Now().Sub(start)
			e.metrics.recordFailed(execTime)
			return ExecResult{
				Err:           fmt.Errorf("task handler %s: %w", handler.Kind(), err),
				ExecutionTime: execTime,
				ModelUsed:     model,
			}
		}

		if model == e.secondary || ctx.Err() != nil {
			break
		}

		log.Printf("[%s] Model %s failed, falling back to %s: %v", e.agentID, model, e.secondary, err)
		e.mu.Lock()
		e.current = e.secondary
		e.mu.Unlock()
		e.sink.Emit(events.ModelFallbackEvent{
			AgentID:   e.agentID,
			TaskID:    task.ID,
			From:      model,
			To:        e.secondary,
			Reason:    err.Error(),
			Timestamp: e.clock.Now(),
		})
		model = e.secondary
	}

	execTime := e.clock.Now().Sub(start)
	e.metrics.recordFailed(execTime)

	if ctx.Err() == context.DeadlineExceeded {
		lastErr = fmt.Errorf("%w: %v", ErrTaskTimeout, lastErr)
	}

	return ExecResult{
		Err:           lastErr,
		ExecutionTime: execTime,
		ModelUsed:     model,
		ModelFailure:  true,
	}
}

// SwitchModel explicitly moves the executor onto one of its configured
// models, probing the target first so a dead model is never committed.
func (e *Executor) SwitchModel(ctx context.Context, model string) error {
	if model != e.primary && model != e.secondary {
		return fmt.Errorf("model %s is not configured for agent %s", model, e.agentID)
	}

	if err := e.client.Probe(ctx, model); err != nil {
		return fmt.Errorf("model %s failed probe: %w", model, err)
	}

	e.mu.Lock()
	from := e.current
	e.current = model
	e.mu.Unlock()

	if from != model {
		e.sink.Emit(events.ModelSwitchEvent{
			AgentID:   e.agentID,
			From:      from,
			To:        model,
			Timestamp: e.clock.Now(),
		})
	}
	return nil
}
