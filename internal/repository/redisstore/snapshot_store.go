package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-tripplanner-be/pkg/trip"

	"github.com/redis/go-redis/v9"
)

const snapshotTTL = 24 * time.Hour

// SnapshotStore persists conversation state snapshots to Redis so a
// conversation can survive a process restart. The in-memory repository
// remains the source of truth during a turn; snapshots are written after
// the turn completes.
type SnapshotStore struct {
	client *redis.Client
}

func NewSnapshotStore(redisURL string) (*SnapshotStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &SnapshotStore{client: redis.NewClient(opts)}, nil
}

func snapshotKey(conversationID string) string {
	return "tripplanner:conversation:" + conversationID
}

func (s *SnapshotStore) Save(ctx context.Context, state *trip.ConversationState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal conversation state: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(state.ConversationID), payload, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context, conversationID string) (*trip.ConversationState, error) {
	payload, err := s.client.Get(ctx, snapshotKey(conversationID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var state trip.ConversationState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	// The component index is not serialized; restore it.
	state.Components.Rebuild()
	return &state, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, snapshotKey(conversationID)).Err()
}

func (s *SnapshotStore) Close() error {
	return s.client.Close()
}
