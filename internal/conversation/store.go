// Package conversation persists per-conversation message history in Redis.
// Every operation except Delete degrades gracefully when the store is
// unavailable: reads come back empty, writes become no-ops, and the request
// carries on without history.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nyayagpt/nyayagpt/models"
)

const keyPrefix = "conv:"

// Store keeps ordered message lists keyed by conversation id with a sliding
// TTL reset on every write.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewStore creates a conversation store. client may be nil when Redis failed
// to initialize; the store then operates in degraded mode.
func NewStore(client *redis.Client, ttl time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(log.Writer(), "[CONV] ", log.LstdFlags)
	}
	return &Store{client: client, ttl: ttl, logger: logger}
}

// History returns the ordered message list for id. Absent conversations and
// store failures both yield an empty list.
func (s *Store) History(ctx context.Context, id string) []models.ChatMessage {
	if s.client == nil {
		s.logger.Printf("redis not initialized, returning empty history")
		return nil
	}

	data, err := s.client.Get(ctx, keyPrefix+id).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Printf("get conversation %s: %v", id, err)
		}
		return nil
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		s.logger.Printf("decode conversation %s: %v", id, err)
		return nil
	}
	return messages
}

// Append adds msg to the conversation, filling in the timestamp when absent.
// The full history is read, extended and rewritten with a fresh TTL; there is
// no partial-append primitive. Failures are logged, never returned.
func (s *Store) Append(ctx context.Context, id string, msg models.ChatMessage) {
	if s.client == nil {
		s.logger.Printf("redis not initialized, skipping message save")
		return
	}

	if msg.Timestamp == 0 {
		msg.Timestamp = float64(time.Now().UnixNano()) / float64(time.Second)
	}

	messages := append(s.History(ctx, id), msg)
	data, err := json.Marshal(messages)
	if err != nil {
		s.logger.Printf("encode conversation %s: %v", id, err)
		return
	}
	if err := s.client.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		s.logger.Printf("save conversation %s: %v", id, err)
	}
}

// Delete removes a conversation. Unlike the read/write paths it surfaces store
// failures, because deletion has user-visible deterministic expectations.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if s.client == nil {
		return false, errors.New("redis not initialized")
	}
	deleted, err := s.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

// Connected reports whether a Redis client was ever initialized.
func (s *Store) Connected() bool { return s.client != nil }

// Ping reports store connectivity for the status endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis not initialized")
	}
	return s.client.Ping(ctx).Err()
}
