package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentfleet/dispatcher/internal/agent"
	"github.com/agentfleet/dispatcher/internal/registry"
)

const (
	taskRecordTTL  = 12 * time.Hour
	fleetStatusTTL = 5 * time.Minute

	fleetStatusKey = "fleet:status"
)

// TaskRecord is a terminal task snapshot plus the agent that ran it.
type TaskRecord struct {
	AgentID string             `json:"agent_id"`
	Task    agent.TaskSnapshot `json:"task"`
}

// TaskArchive keeps terminal task records and fleet-status snapshots in
// Redis, TTL'd. It is observability, not recovery: queue contents are never
// persisted, and archive failures must not fail dispatch.
type TaskArchive struct {
	redis *RedisClient
}

func NewTaskArchive(redisURL string) (*TaskArchive, error) {
	redisClient, err := NewRedisClient(redisURL)
	if err != nil {
		return nil, err
	}
	return &TaskArchive{redis: redisClient}, nil
}

func taskKey(taskID string) string {
	return fmt.Sprintf("archive:%s", taskID)
}

// SaveTask writes one terminal task record. Satisfies agent.Archive.
func (ta *TaskArchive) SaveTask(agentID string, snap agent.TaskSnapshot) error {
	record := TaskRecord{
		AgentID: agentID,
		Task:    snap,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal task record: %w", err)
	}

	if err := ta.redis.Set(context.Background(), taskKey(snap.ID), string(data), taskRecordTTL); err != nil {
		return fmt.Errorf("failed to store task record: %w", err)
	}
	return nil
}

// GetTask reads a task record back; returns (nil, nil) when it is unknown
// or already expired.
func (ta *TaskArchive) GetTask(ctx context.Context, taskID string) (*TaskRecord, error) {
	data, err := ta.redis.Get(ctx, taskKey(taskID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task record: %w", err)
	}

	var record TaskRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task record: %w", err)
	}
	return &record, nil
}

// SaveFleetStatus writes the latest registry rollup for dashboard polling.
func (ta *TaskArchive) SaveFleetStatus(ctx context.Context, fs registry.FleetStatus) error {
	data, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet status: %w", err)
	}

	if err := ta.redis.Set(ctx, fleetStatusKey, string(data), fleetStatusTTL); err != nil {
		return fmt.Errorf("failed to store fleet status: %w", err)
	}
	return nil
}

func (ta *TaskArchive) HealthCheck(ctx context.Context) error {
	return ta.redis.Ping(ctx)
}

func (ta *TaskArchive) Close() error {
	return ta.redis.Close()
}
