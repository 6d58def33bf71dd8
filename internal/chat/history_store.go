package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/exa-engenharia/exa-chatbot/internal/completion"
)

const (
	defaultHistoryTTL   = 2 * time.Hour
	defaultHistoryTurns = 10
)

// HistoryStore keeps the recent generic-chat exchanges of each session.
type HistoryStore interface {
	Load(ctx context.Context, sessionID string) ([]completion.ChatMessage, error)
	Append(ctx context.Context, sessionID string, msgs ...completion.ChatMessage) error
	Clear(ctx context.Context, sessionID string) error
}

// HistoryOptions bound what a store keeps. Turns counts user/assistant pairs.
type HistoryOptions struct {
	TTL   time.Duration
	Turns int
}

func (o HistoryOptions) withDefaults() HistoryOptions {
	if o.TTL <= 0 {
		o.TTL = defaultHistoryTTL
	}
	if o.Turns <= 0 {
		o.Turns = defaultHistoryTurns
	}
	return o
}

func (o HistoryOptions) maxMessages() int {
	return o.Turns * 2
}

// RedisHistoryStore keeps each session's history in a capped Redis list.
type RedisHistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	opts   HistoryOptions
}

func NewRedisHistoryStore(client *redis.Client, opts HistoryOptions, tracer trace.Tracer) *RedisHistoryStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("exa.internal.chat.history")
	}
	return &RedisHistoryStore{redis: client, tracer: tracer, opts: opts.withDefaults()}
}

func (s *RedisHistoryStore) Load(ctx context.Context, sessionID string) ([]completion.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history", trace.WithAttributes(attribute.String("chat.session_id", sessionID)))
	defer span.End()

	raw, err := s.redis.LRange(ctx, historyKey(sessionID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}

	history := make([]completion.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg completion.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("chat: failed to decode history: %w", err)
		}
		history = append(history, msg)
	}
	return history, nil
}

func (s *RedisHistoryStore) Append(ctx context.Context, sessionID string, msgs ...completion.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "chat.append_history", trace.WithAttributes(attribute.Int("chat.messages", len(msgs))))
	defer span.End()

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("chat: failed to marshal history: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(sessionID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.opts.maxMessages()), -1)
		pipe.Expire(ctx, key, s.opts.TTL)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist history: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) Clear(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.clear_history")
	defer span.End()

	if err := s.redis.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to clear history: %w", err)
	}
	return nil
}

func historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}

// MemoryHistoryStore is the in-process HistoryStore used when Redis is not configured.
type MemoryHistoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryHistory
	opts    HistoryOptions
	now     func() time.Time
}

type memoryHistory struct {
	messages  []completion.ChatMessage
	expiresAt time.Time
}

func NewMemoryHistoryStore(opts HistoryOptions) *MemoryHistoryStore {
	return &MemoryHistoryStore{
		entries: make(map[string]memoryHistory),
		opts:    opts.withDefaults(),
		now:     time.Now,
	}
}

func (s *MemoryHistoryStore) Load(_ context.Context, sessionID string) ([]completion.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return nil, nil
	}
	out := make([]completion.ChatMessage, len(entry.messages))
	copy(out, entry.messages)
	return out, nil
}

func (s *MemoryHistoryStore) Append(_ context.Context, sessionID string, msgs ...completion.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	entry := s.entries[sessionID]
	if now.After(entry.expiresAt) {
		entry.messages = nil
	}
	entry.messages = append(entry.messages, msgs...)
	if limit := s.opts.maxMessages(); len(entry.messages) > limit {
		entry.messages = append([]completion.ChatMessage(nil), entry.messages[len(entry.messages)-limit:]...)
	}
	entry.expiresAt = now.Add(s.opts.TTL)
	s.entries[sessionID] = entry
	return nil
}

func (s *MemoryHistoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

var (
	_ HistoryStore = (*RedisHistoryStore)(nil)
	_ HistoryStore = (*MemoryHistoryStore)(nil)
)
