package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Message represents a conversation message for token counting
type Message struct {
	Role    string
	Content string
}

// TokenCounter counts tokens with tiktoken, falling back to a character
// based estimate when an encoding cannot be loaded.
type TokenCounter struct {
	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
	failed   map[string]bool
	load     func(encoding string) (*tiktoken.Tiktoken, error)
}

// NewTokenCounter creates a new token counter
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{
		encoders: make(map[string]*tiktoken.Tiktoken),
		failed:   make(map[string]bool),
		load:     tiktoken.GetEncoding,
	}
}

// Count counts tokens for a given text and model
func (tc *TokenCounter) Count(ctx context.Context, text string, model string) int {
	encoder, err := tc.getEncoder(model)
	if err != nil {
		slog.DebugContext(ctx, "Using fallback token estimation", "model", model, "error", err)
		return fallbackEstimate(text)
	}
	return len(encoder.Encode(text, nil, nil))
}

// CountMessages counts tokens for a conversation including per-message overhead
func (tc *TokenCounter) CountMessages(ctx context.Context, messages []Message, model string) int {
	total := 3 // reply priming
	for _, msg := range messages {
		total += 4 + tc.Count(ctx, msg.Content, model) + len(msg.Role)/3
	}
	return total
}

func (tc *TokenCounter) getEncoder(model string) (*tiktoken.Tiktoken, error) {
	name := encodingName(model)

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if encoder, ok := tc.encoders[name]; ok {
		return encoder, nil
	}
	// A failed load is not retried on every call.
	if tc.failed[name] {
		return nil, fmt.Errorf("encoding %s unavailable", name)
	}

	encoder, err := tc.load(name)
	if err != nil {
		tc.failed[name] = true
		return nil, fmt.Errorf("failed to get encoding for model %s: %w", model, err)
	}
	tc.encoders[name] = encoder
	return encoder, nil
}

// encodingName maps OpenAI model names to tiktoken encoding names
func encodingName(model string) string {
	model = strings.ToLower(model)

	switch {
	case strings.Contains(model, "gpt-4o"),
		strings.Contains(model, "gpt-4.1"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return "o200k_base"
	default:
		return "cl100k_base"
	}
}

// fallbackEstimate approximates 3 characters per token
func fallbackEstimate(text string) int {
	return len(text)/3 + 1
}
