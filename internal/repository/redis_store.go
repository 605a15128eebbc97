package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDocumentStore keeps each document as a string key prefix+name.
type RedisDocumentStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDocumentStore wraps client.
func NewRedisDocumentStore(client redis.UniversalClient, prefix string) *RedisDocumentStore {
	if prefix == "" {
		prefix = "warrantyflow:doc:"
	}
	return &RedisDocumentStore{client: client, prefix: prefix}
}

// Load decodes the named key into v.
func (s *RedisDocumentStore) Load(ctx context.Context, name string, v any) (bool, error) {
	if err := ValidateDocumentName(name); err != nil {
		return false, err
	}
	raw, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save stores v under the named key without expiry.
func (s *RedisDocumentStore) Save(ctx context.Context, name string, v any) error {
	if err := ValidateDocumentName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.client.Set(ctx, s.prefix+name, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
