package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jo-hoe/kinface/internal/match"
	"github.com/jo-hoe/kinface/internal/verify"
)

const keyPrefix = "session:"

// State is the per-browser-session state of the demo. It replaces the
// original global click counter with an explicit, request-scoped value.
type State struct {
	Clicks      int            `json:"clicks"`
	Model       string         `json:"model"`
	Metric      string         `json:"metric"`
	LastOutcome *match.Outcome `json:"last_outcome,omitempty"`
}

// NewState returns the state of a fresh session: sample images shown,
// default model and metric selected.
func NewState() *State {
	return &State{
		Clicks: 0,
		Model:  verify.DefaultModel,
		Metric: verify.DefaultDistanceMetric,
	}
}

// ShowSamples reports whether the session still displays the bundled
// sample images instead of user uploads.
func (s *State) ShowSamples() bool {
	return s.Clicks == 0
}

// Store keeps session state between requests.
type Store interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, sessionID string, state *State) error
	Close() error
}

// RedisStore is a redis-backed session store. When no redis address is
// configured it runs an embedded in-process instance, which keeps the
// single-binary deployment of the demo working without extra services.
type RedisStore struct {
	client   *redis.Client
	ttl      time.Duration
	embedded *miniredis.Miniredis
}

// NewRedisStore connects to the redis at addr. An empty addr starts an
// embedded instance. States expire after ttl of inactivity.
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	store := &RedisStore{ttl: ttl}

	if addr == "" {
		embedded, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded session store: %w", err)
		}
		store.embedded = embedded
		addr = embedded.Addr()
		slog.Info("session store running embedded", "addr", addr)
	}

	store.client = redis.NewClient(&redis.Options{Addr: addr})
	return store, nil
}

// Get loads the session state, returning a fresh default state for
// unknown or expired sessions.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*State, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save stores the session state and refreshes its expiry.
func (s *RedisStore) Save(ctx context.Context, sessionID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

// Close shuts down the client and any embedded instance.
func (s *RedisStore) Close() error {
	err := s.client.Close()
	if s.embedded != nil {
		s.embedded.Close()
	}
	return err
}
