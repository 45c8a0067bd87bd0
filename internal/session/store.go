package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/8adimka/Go_Weather_Agent/internal/redisx"
)

const keyPrefix = "weather-agent:conversation:"

// Cache is the subset of redisx.Cache the store needs
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// Message is one persisted conversation turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store keeps agent conversation history in Redis
type Store struct {
	cache       Cache
	maxMessages int
}

// NewStore creates a history store keeping at most maxMessages per conversation
func NewStore(cache Cache, maxMessages int) *Store {
	return &Store{
		cache:       cache,
		maxMessages: maxMessages,
	}
}

// History returns the stored turns of a conversation, oldest first.
// An unknown conversation has an empty history.
func (s *Store) History(ctx context.Context, conversationID string) ([]Message, error) {
	var messages []Message
	if err := s.cache.Get(ctx, key(conversationID), &messages); err != nil {
		if errors.Is(err, redisx.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	return messages, nil
}

// Append adds turns to a conversation, dropping the oldest beyond the limit
func (s *Store) Append(ctx context.Context, conversationID string, turns ...Message) error {
	messages, err := s.History(ctx, conversationID)
	if err != nil {
		return err
	}

	messages = append(messages, turns...)
	if s.maxMessages > 0 && len(messages) > s.maxMessages {
		dropped := len(messages) - s.maxMessages
		messages = messages[dropped:]
		slog.DebugContext(ctx, "Trimmed conversation history",
			"conversation_id", conversationID,
			"dropped", dropped)
	}

	if err := s.cache.Set(ctx, key(conversationID), messages); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conversationID, err)
	}
	return nil
}

// Clear removes a conversation's history
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	return s.cache.Delete(ctx, key(conversationID))
}

func key(conversationID string) string {
	return keyPrefix + conversationID
}
