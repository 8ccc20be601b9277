// Package redis provides a RunStore backed by Redis, with an optional
// TTL so run history expires on its own.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/dispatchgo/store"
)

// RedisRunStore implements store.RunStore using Redis. Each run is one
// JSON value and a per-model set indexes the run ids.
type RedisRunStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configuration for the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "dispatchgo:"
	TTL      time.Duration // Expiration for runs, default 0 (no expiration)
}

// NewRedisRunStore creates a new Redis run store.
func NewRedisRunStore(opts RedisOptions) *RedisRunStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "dispatchgo:"
	}

	return &RedisRunStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *RedisRunStore) runKey(id string) string {
	return fmt.Sprintf("%srun:%s", s.prefix, id)
}

func (s *RedisRunStore) modelKey(model string) string {
	return fmt.Sprintf("%smodel:%s:runs", s.prefix, model)
}

// Save stores a run record
func (s *RedisRunStore) Save(ctx context.Context, run *store.RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(run.ID), data, s.ttl)
	if run.Model != "" {
		modelKey := s.modelKey(run.Model)
		pipe.SAdd(ctx, modelKey, run.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, modelKey, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run to redis: %w", err)
	}
	return nil
}

// Load retrieves a run by ID
func (s *RedisRunStore) Load(ctx context.Context, runID string) (*store.RunRecord, error) {
	data, err := s.client.Get(ctx, s.runKey(runID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run not found: %s", runID)
		}
		return nil, fmt.Errorf("failed to load run from redis: %w", err)
	}

	var run store.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &run, nil
}

// List returns all runs of a given model.
func (s *RedisRunStore) List(ctx context.Context, model string) ([]*store.RunRecord, error) {
	runIDs, err := s.client.SMembers(ctx, s.modelKey(model)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for model %s: %w", model, err)
	}
	if len(runIDs) == 0 {
		return []*store.RunRecord{}, nil
	}

	keys := make([]string, 0, len(runIDs))
	for _, id := range runIDs {
		keys = append(keys, s.runKey(id))
	}

	// MGet returns nil for expired keys, which just drop out of the list
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	var runs []*store.RunRecord
	for _, result := range results {
		strData, ok := result.(string)
		if !ok {
			continue
		}
		var run store.RunRecord
		if err := json.Unmarshal([]byte(strData), &run); err != nil {
			continue
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

// Delete removes a run
func (s *RedisRunStore) Delete(ctx context.Context, runID string) error {
	run, err := s.Load(ctx, runID)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.runKey(runID))
	if run.Model != "" {
		pipe.SRem(ctx, s.modelKey(run.Model), runID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// Clear removes all runs of a model
func (s *RedisRunStore) Clear(ctx context.Context, model string) error {
	modelKey := s.modelKey(model)
	runIDs, err := s.client.SMembers(ctx, modelKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get runs for clearing: %w", err)
	}
	if len(runIDs) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range runIDs {
		pipe.Del(ctx, s.runKey(id))
	}
	pipe.Del(ctx, modelKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	return nil
}
