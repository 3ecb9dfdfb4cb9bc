package orchestrator

import (
	"context"
	"log"

	"github.com/agentfleet/dispatcher/internal/agent"
	"github.com/agentfleet/dispatcher/internal/events"
	"github.com/agentfleet/dispatcher/internal/eventsink"
	"github.com/agentfleet/dispatcher/internal/registry"
)

// RouteResult reports where a routed request landed.
type RouteResult struct {
	RoutedTo   string  `json:"routed_to"`
	TaskID     string  `json:"task_id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Orchestrator composes the classifier, router and registry: it classifies
// free text, picks the target agent and enqueues the request as a task on
// that agent's queue.
type Orchestrator struct {
	classifier *Classifier
	router     *Router
	registry   *registry.Registry
	sink       eventsink.Sink
	clock      agent.Clock
}

func New(classifier *Classifier, router *Router, reg *registry.Registry, sink eventsink.Sink) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		router:     router,
		registry:   reg,
		sink:       sink,
		clock:      agent.SystemClock(),
	}
}

func (o *Orchestrator) WithClock(clock agent.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Route classifies the text and enqueues it on the selected agent. When no
// agent can take the request, the returned error is a NoAgentAvailableError
// carrying the classification.
func (o *Orchestrator) Route(ctx context.Context, text string, parameters map[string]any) (*RouteResult, error) {
	classification := o.classifier.Classify(ctx, text)

	target, fallback, err := o.router.Select(classification)
	if err != nil {
		o.sink.Emit(events.RouteFailedEvent{
			Category:   classification.Category,
			Confidence: classification.Confidence,
			Timestamp:  o.clock.Now(),
		})
		return nil, err
	}

	if parameters == nil {
		parameters = make(map[string]any)
	}
	parameters["prompt"] = text

	task := agent.NewTask(classification.Category, parameters)
	target.Submit(task)

	log.Printf("Routed %s request to [%s] (confidence %.2f)", classification.Category, target.ID(), classification.Confidence)
	o.sink.Emit(events.RouteDecisionEvent{
		Category:   classification.Category,
		Confidence: classification.Confidence,
		RoutedTo:   target.ID(),
		TaskID:     task.ID,
		Fallback:   fallback,
		Timestamp:  o.clock.Now(),
	})

	return &RouteResult{
		RoutedTo:   target.ID(),
		TaskID:     task.ID,
		Category:   classification.Category,
		Confidence: classification.Confidence,
		Reason:     classification.Reason,
	}, nil
}

// Delegate forwards a task to an explicitly named agent and waits for the
// terminal result.
func (o *Orchestrator) Delegate(ctx context.Context, task *agent.Task, targetID string) (agent.TaskSnapshot, error) {
	return o.router.Delegate(ctx, task, targetID)
}

// SystemStatus exposes the registry rollup.
func (o *Orchestrator) SystemStatus() registry.FleetStatus {
	return o.registry.SystemStatus()
}
