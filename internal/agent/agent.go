package agent

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/agentfleet/dispatcher/internal/events"
	"github.com/agentfleet/dispatcher/internal/eventsink"
	"github.com/agentfleet/dispatcher/internal/llm"
)

const (
	defaultTaskTimeout = 120 * time.Second

	// After this many consecutive final model failures the agent is taken
	// out of rotation so the router stops feeding it.
	defaultMaxConsecutiveModelFailures = 5
)

// InitializationError reports that an agent's startup model probe failed.
type InitializationError struct {
	AgentID string
	Err     error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("agent %s failed to initialize: %v", e.AgentID, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Archive receives terminal task records, best-effort.
type Archive interface {
	SaveTask(agentID string, snap TaskSnapshot) error
}

// Config is the static definition of one agent, fixed at process start.
type Config struct {
	ID                          string
	Name                        string
	Capabilities                []string
	PrimaryModel                string
	SecondaryModel              string
	TaskTimeout                 time.Duration
	MaxConsecutiveModelFailures int
}

// Agent owns one FIFO task queue and one model configuration. Tasks on the
// queue are drained by at most one worker at a time, so per-agent execution
// is strictly sequential.
type Agent struct {
	id           string
	name         string
	capabilities []string

	executor *Executor
	sink     eventsink.Sink
	clock    Clock
	archive  Archive

	taskTimeout time.Duration
	maxFailures int

	handlers       map[string]TaskHandler
	defaultHandler TaskHandler

	mu                   sync.Mutex
	status               Status
	queue                []*Task
	draining             bool
	consecutiveModelFail int
	idle                 chan struct{} // closed while no drain worker is active
}

func New(cfg Config, client llm.CompletionClient, sink eventsink.Sink) *Agent {
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = defaultTaskTimeout
	}
	if cfg.MaxConsecutiveModelFailures <= 0 {
		cfg.MaxConsecutiveModelFailures = defaultMaxConsecutiveModelFailures
	}

	clock := SystemClock()
	a := &Agent{
		id:             cfg.ID,
		name:           cfg.Name,
		capabilities:   cfg.Capabilities,
		executor:       NewExecutor(cfg.ID, cfg.PrimaryModel, cfg.SecondaryModel, client, sink, clock),
		sink:           sink,
		clock:          clock,
		taskTimeout:    cfg.TaskTimeout,
		maxFailures:    cfg.MaxConsecutiveModelFailures,
		handlers:       make(map[string]TaskHandler),
		defaultHandler: genericHandler{},
		status:         StatusInitializing,
		idle:           closedChan(),
	}
	return a
}

// WithClock replaces the wall clock; call before Init.
func (a *Agent) WithClock(clock Clock) *Agent {
	a.clock = clock
	a.executor.clock = clock
	return a
}

// WithArchive attaches a terminal-task archive; call before Init.
func (a *Agent) WithArchive(archive Archive) *Agent {
	a.archive = archive
	return a
}

// RegisterHandler installs a handler for its task kind, replacing any
// previous registration for the same kind.
func (a *Agent) RegisterHandler(h TaskHandler) *Agent {
	a.handlers[h.Kind()] = h
	return a
}

func (a *Agent) ID() string             { return a.id }
func (a *Agent) Name() string           { return a.name }
func (a *Agent) Capabilities() []string { return a.capabilities }
func (a *Agent) CurrentModel() string   { return a.executor.CurrentModel() }
func (a *Agent) Metrics() *Metrics      { return a.executor.Metrics() }
func (a *Agent) Executor() *Executor    { return a.executor }

func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Agent) QueueDepth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// Init probes the primary model and moves the agent to READY, or to ERROR
// when the probe fails. Tasks submitted while INITIALIZING stay queued and
// start draining once the agent is READY.
func (a *Agent) Init(ctx context.Context) error {
	if err := a.executor.client.Probe(ctx, a.executor.primary); err != nil {
		a.setStatus(StatusError, "model probe failed")
		return &InitializationError{AgentID: a.id, Err: err}
	}

	a.setStatus(StatusReady, "model probe succeeded")
	log.Printf("[%s] Agent ready (primary=%s, secondary=%s)", a.id, a.executor.primary, a.executor.secondary)

	a.mu.Lock()
	a.maybeStartDrainLocked()
	a.mu.Unlock()
	return nil
}

// Submit appends the task to the queue tail. Enqueue never fails; failures
// surface on the task record, not here.
func (a *Agent) Submit(task *Task) {
	task.markSubmitted(a.clock.Now())

	a.mu.Lock()
	a.queue = append(a.queue, task)
	depth := len(a.queue)
	a.maybeStartDrainLocked()
	a.mu.Unlock()

	a.sink.Emit(events.TaskSubmittedEvent{
		AgentID:    a.id,
		TaskID:     task.ID,
		TaskType:   task.Type,
		QueueDepth: depth,
		Timestamp:  a.clock.Now(),
	})
}

// maybeStartDrainLocked starts the single drain worker if the agent is READY
// and none is active. Caller holds a.mu.
func (a *Agent) maybeStartDrainLocked() {
	if a.draining || len(a.queue) == 0 || a.status != StatusReady {
		return
	}
	a.draining = true
	a.idle = make(chan struct{})
	go a.drain()
}

// drain pops and executes queued tasks strictly in FIFO order until the
// queue empties or the agent leaves READY/BUSY. Task failures never stop
// the loop.
func (a *Agent) drain() {
	for {
		a.mu.Lock()
		if len(a.queue) == 0 || (a.status != StatusReady && a.status != StatusBusy) {
			if a.status == StatusBusy && len(a.queue) == 0 {
				a.transitionLocked(StatusReady, "queue drained")
			}
			a.draining = false
			close(a.idle)
			a.mu.Unlock()
			return
		}

		task := a.queue[0]
		a.queue = a.queue[1:]
		if a.status == StatusReady {
			a.transitionLocked(StatusBusy, "task started")
		}
		a.mu.Unlock()

		a.runTask(task)
	}
}

func (a *Agent) runTask(task *Task) {
	task.markRunning(a.clock.Now())
	a.sink.Emit(events.TaskStartedEvent{
		AgentID:   a.id,
		TaskID:    task.ID,
		Model:     a.executor.CurrentModel(),
		Timestamp: a.clock.Now(),
	})

	handler, ok := a.handlers[task.Type]
	if !ok {
		handler = a.defaultHandler
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.taskTimeout)
	res := a.executor.Execute(ctx, task, handler)
	cancel()

	now := a.clock.Now()
	if res.Success {
		task.markCompleted(now, res.Result, res.ModelUsed, res.ExecutionTime)
	} else {
		task.markFailed(now, res.Err.Error(), res.ModelUsed, res.ExecutionTime)
		log.Printf("[%s] Task %s failed: %v", a.id, task.ID, res.Err)
	}

	a.trackModelFailures(res)

	snap := task.Snapshot()
	a.sink.Emit(events.TaskFinishedEvent{
		AgentID:     a.id,
		TaskID:      task.ID,
		Status:      string(snap.Status),
		Error:       snap.Error,
		Model:       snap.ModelUsed,
		ExecutionMs: snap.ExecutionMs,
		Timestamp:   now,
	})

	if a.archive != nil {
		if err := a.archive.SaveTask(a.id, snap); err != nil {
			log.Printf("[%s] Failed to archive task %s: %v", a.id, task.ID, err)
		}
	}
}

// trackModelFailures moves the agent to ERROR after too many consecutive
// tasks lost to the completion service. Handler faults don't count: they
// say nothing about the service's health.
func (a *Agent) trackModelFailures(res ExecResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if res.Success {
		a.consecutiveModelFail = 0
		return
	}
	if !res.ModelFailure {
		return
	}
	a.consecutiveModelFail++
	if a.consecutiveModelFail >= a.maxFailures {
		a.transitionLocked(StatusError, fmt.Sprintf("%d consecutive model failures", a.consecutiveModelFail))
	}
}

// SwitchModel explicitly moves the agent onto the named model after a probe.
func (a *Agent) SwitchModel(ctx context.Context, model string) error {
	return a.executor.SwitchModel(ctx, model)
}

// Quiesce waits for the drain worker to go idle. Used during shutdown so the
// in-flight task finishes before the process exits.
func (a *Agent) Quiesce(ctx context.Context) error {
	a.mu.Lock()
	idle := a.idle
	a.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Agent) setStatus(to Status, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transitionLocked(to, reason)
}

// transitionLocked records a status change and emits it. Caller holds a.mu.
func (a *Agent) transitionLocked(to Status, reason string) {
	from := a.status
	if from == to {
		return
	}
	a.status = to
	a.sink.Emit(events.AgentStatusEvent{
		AgentID:   a.id,
		From:      string(from),
		To:        string(to),
		Reason:    reason,
		Timestamp: a.clock.Now(),
	})
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
