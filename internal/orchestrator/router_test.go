package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentfleet/dispatcher/internal/agent"
)

func testRoutes() map[string]string {
	return map[string]string{
		"code":          "code",
		"orchestration": "orchestration",
		"conversation":  "chat",
	}
}

func TestSelectRoutesToMappedAgent(t *testing.T) {
	client := newFakeCompletion()
	reg := newFleet(t, client, "chat", "code")
	router := NewRouter(reg, testRoutes(), "chat")

	target, fallback, err := router.Select(Classification{Category: "code"})
	require.NoError(t, err)
	assert.Equal(t, "code", target.ID())
	assert.False(t, fallback)
}

func TestSelectDegradesToDefaultAgent(t *testing.T) {
	client := newFakeCompletion()
	client.down["m-code"] = errors.New("not loaded")
	reg := newFleet(t, client, "chat", "code") // code ends up in ERROR
	router := NewRouter(reg, testRoutes(), "chat")

	target, fallback, err := router.Select(Classification{Category: "code"})
	require.NoError(t, err)
	assert.Equal(t, "chat", target.ID())
	assert.True(t, fallback)
}

func TestSelectDegradesForUnmappedCategory(t *testing.T) {
	client := newFakeCompletion()
	reg := newFleet(t, client, "chat")
	router := NewRouter(reg, testRoutes(), "chat")

	target, fallback, err := router.Select(Classification{Category: "orchestration"})
	require.NoError(t, err)
	assert.Equal(t, "chat", target.ID())
	assert.True(t, fallback)
}

func TestSelectFailsWhenDefaultUnavailable(t *testing.T) {
	client := newFakeCompletion()
	client.down["m-chat"] = errors.New("not loaded")
	client.down["m-code"] = errors.New("not loaded")
	reg := newFleet(t, client, "chat", "code")
	router := NewRouter(reg, testRoutes(), "chat")

	classification := Classification{Category: "code", Confidence: 0.7}
	_, _, err := router.Select(classification)
	require.Error(t, err)

	var noAgent *NoAgentAvailableError
	require.True(t, errors.As(err, &noAgent))
	// The original classification rides along for diagnostics.
	assert.Equal(t, classification, noAgent.Classification)
}

func TestDelegateRequiresRegisteredAgent(t *testing.T) {
	client := newFakeCompletion()
	reg := newFleet(t, client, "chat")
	router := NewRouter(reg, testRoutes(), "chat")

	task := agent.NewTask("generic", nil)
	_, err := router.Delegate(context.Background(), task, "ghost")
	require.Error(t, err)

	var notFound *AgentNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "ghost", notFound.AgentID)
}

func TestDelegateRequiresReadyAgent(t *testing.T) {
	client := newFakeCompletion()
	client.down["m-code"] = errors.New("not loaded")
	reg := newFleet(t, client, "code")
	router := NewRouter(reg, testRoutes(), "code")

	task := agent.NewTask("generic", nil)
	_, err := router.Delegate(context.Background(), task, "code")
	require.Error(t, err)

	var notReady *AgentNotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.Equal(t, agent.StatusError, notReady.Status)
}

func TestDelegateReturnsTerminalResult(t *testing.T) {
	client := newFakeCompletion()
	client.responses["m-code"] = "func main() {}"
	reg := newFleet(t, client, "code")
	router := NewRouter(reg, testRoutes(), "code")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	task := agent.NewTask("generic", map[string]any{"prompt": "write main"})
	snap, err := router.Delegate(ctx, task, "code")
	require.NoError(t, err)

	assert.Equal(t, agent.TaskCompleted, snap.Status)
	assert.Equal(t, "func main() {}", snap.Result)
	assert.Equal(t, "m-code", snap.ModelUsed)
}
