package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfleet/dispatcher/internal/events"
	"github.com/agentfleet/dispatcher/internal/eventsink"
)

func newTestAgent(t *testing.T, cfg Config, client *scriptedClient) (*Agent, *eventsink.MemorySink) {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "test-agent"
	}
	if cfg.PrimaryModel == "" {
		cfg.PrimaryModel = "primary"
	}
	if cfg.SecondaryModel == "" {
		cfg.SecondaryModel = "secondary"
	}
	sink := eventsink.NewMemorySink()
	return New(cfg, client, sink), sink
}

func waitTerminal(t *testing.T, tasks ...*Task) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, task := range tasks {
		require.NoError(t, task.Wait(ctx))
	}
}

func TestDrainExecutesFIFO(t *testing.T) {
	client := newScriptedClient()
	a, _ := newTestAgent(t, Config{}, client)

	var mu sync.Mutex
	var order []string
	a.RegisterHandler(HandlerFunc("echo", func(ctx context.Context, task *Task, complete CompleteFunc) (any, error) {
		mu.Lock()
		order = append(order, task.ID)
		mu.Unlock()
		return complete(ctx, "echo")
	}))

	require.NoError(t, a.Init(context.Background()))

	taskA := NewTask("echo", nil)
	taskB := NewTask("echo", nil)
	taskC := NewTask("echo", nil)
	// Priority is carried but never consulted for ordering.
	taskC.Priority = 100

	a.Submit(taskA)
	a.Submit(taskB)
	a.Submit(taskC)
	waitTerminal(t, taskA, taskB, taskC)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{taskA.ID, taskB.ID, taskC.ID}, order)
	assert.Equal(t, TaskCompleted, taskA.Status())
	assert.Equal(t, TaskCompleted, taskB.Status())
	assert.Equal(t, TaskCompleted, taskC.Status())
}

func TestAtMostOneTaskInFlight(t *testing.T) {
	client := newScriptedClient()
	a, _ := newTestAgent(t, Config{}, client)

	var inFlight, maxInFlight int32
	a.RegisterHandler(HandlerFunc("probe", func(ctx context.Context, task *Task, complete CompleteFunc) (any, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			observed := atomic.LoadInt32(&maxInFlight)
			if n <= observed || atomic.CompareAndSwapInt32(&maxInFlight, observed, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "done", nil
	}))

	require.NoError(t, a.Init(context.Background()))

	tasks := make([]*Task, 10)
	for i := range tasks {
		tasks[i] = NewTask("probe", nil)
		a.Submit(tasks[i])
	}
	waitTerminal(t, tasks...)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestHandlerFailureDoesNotStopDrain(t *testing.T) {
	client := newScriptedClient()
	a, _ := newTestAgent(t, Config{}, client)

	a.RegisterHandler(HandlerFunc("boom", func(ctx context.Context, task *Task, complete CompleteFunc) (any, error) {
		return nil, errors.New("handler exploded")
	}))

	require.NoError(t, a.Init(context.Background()))

	bad := NewTask("boom", nil)
	good := NewTask("generic", map[string]any{"prompt": "hello"})
	a.Submit(bad)
	a.Submit(good)
	waitTerminal(t, bad, good)

	assert.Equal(t, TaskFailed, bad.Status())
	assert.Contains(t, bad.Snapshot().Error, "handler exploded")
	assert.Equal(t, TaskCompleted, good.Status())

	snap := a.Metrics().Snapshot()
	assert.Equal(t, 1, snap.TasksFailed)
	assert.Equal(t, 1, snap.TasksCompleted)
}

func TestAgentReturnsToReadyAfterDrain(t *testing.T) {
	client := newScriptedClient()
	a, _ := newTestAgent(t, Config{}, client)
	require.NoError(t, a.Init(context.Background()))

	task := NewTask("generic", map[string]any{"prompt": "hi"})
	a.Submit(task)
	waitTerminal(t, task)

	require.NoError(t, a.Quiesce(context.Background()))
	assert.Equal(t, StatusReady, a.Status())
	assert.Equal(t, 0, a.QueueDepth())
}

func TestSubmitWhileInitializingQueuesUntilReady(t *testing.T) {
	client := newScriptedClient()
	a, _ := newTestAgent(t, Config{}, client)

	task := NewTask("generic", map[string]any{"prompt": "early"})
	a.Submit(task)

	assert.Equal(t, StatusInitializing, a.Status())
	assert.Equal(t, TaskPending, task.Status())
	assert.Equal(t, 1, a.QueueDepth())

	require.NoError(t, a.Init(context.Background()))
	waitTerminal(t, task)
	assert.Equal(t, TaskCompleted, task.Status())
}

func TestInitProbeFailureSetsError(t *testing.T) {
	client := newScriptedClient()
	client.failModel("primary", errors.New("model not loaded"))
	a, _ := newTestAgent(t, Config{}, client)

	err := a.Init(context.Background())
	require.Error(t, err)

	var initErr *InitializationError
	require.True(t, errors.As(err, &initErr))
	assert.Equal(t, "test-agent", initErr.AgentID)
	assert.Equal(t, StatusError, a.Status())
}

func TestTaskTimeoutReleasesSlot(t *testing.T) {
	client := newScriptedClient()
	a, _ := newTestAgent(t, Config{TaskTimeout: 50 * time.Millisecond}, client)

	a.RegisterHandler(HandlerFunc("hang", func(ctx context.Context, task *Task, complete CompleteFunc) (any, error) {
		// Simulates a hung external call: only the deadline ends it.
		<-ctx.Done()
		return complete(ctx, "too late")
	}))

	require.NoError(t, a.Init(context.Background()))

	hung := NewTask("hang", nil)
	next := NewTask("generic", map[string]any{"prompt": "after"})
	a.Submit(hung)
	a.Submit(next)
	waitTerminal(t, hung, next)

	assert.Equal(t, TaskFailed, hung.Status())
	assert.Contains(t, hung.Snapshot().Error, ErrTaskTimeout.Error())
	assert.Equal(t, TaskCompleted, next.Status())
}

func TestConsecutiveModelFailuresMoveAgentToError(t *testing.T) {
	client := newScriptedClient()
	client.healModel("primary") // probe must pass
	a, sink := newTestAgent(t, Config{MaxConsecutiveModelFailures: 2}, client)
	require.NoError(t, a.Init(context.Background()))

	client.failModel("primary", errors.New("gone"))
	client.failModel("secondary", errors.New("gone"))

	first := NewTask("generic", map[string]any{"prompt": "a"})
	second := NewTask("generic", map[string]any{"prompt": "b"})
	a.Submit(first)
	a.Submit(second)
	waitTerminal(t, first, second)

	require.NoError(t, a.Quiesce(context.Background()))
	assert.Equal(t, StatusError, a.Status())

	// The stranded queue stays put; the agent is out of rotation.
	stranded := NewTask("generic", map[string]any{"prompt": "c"})
	a.Submit(stranded)
	assert.Equal(t, TaskPending, stranded.Status())

	var sawError bool
	for _, ev := range sink.BySubject(events.AgentStatusEventName) {
		if ev.(events.AgentStatusEvent).To == string(StatusError) {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestSubmitEmitsQueueDepth(t *testing.T) {
	client := newScriptedClient()
	a, sink := newTestAgent(t, Config{}, client)

	a.Submit(NewTask("generic", nil))
	a.Submit(NewTask("generic", nil))

	submitted := sink.BySubject(events.TaskSubmittedEventName)
	require.Len(t, submitted, 2)
	assert.Equal(t, 1, submitted[0].(events.TaskSubmittedEvent).QueueDepth)
	assert.Equal(t, 2, submitted[1].(events.TaskSubmittedEvent).QueueDepth)
}
