package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/8adimka/Go_Weather_Agent/internal/redisx"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	data   map[string][]byte
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return redisx.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestStore_HistoryOfUnknownConversation(t *testing.T) {
	store := NewStore(newMemoryCache(), 10)

	history, err := store.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_AppendTrimsOldest(t *testing.T) {
	cache := newMemoryCache()
	store := NewStore(cache, 3)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "c1",
		Message{Role: "user", Content: "weather in Oslo?"},
		Message{Role: "assistant", Content: "5°C, cloudy"},
	))
	require.NoError(t, store.Append(ctx, "c1",
		Message{Role: "user", Content: "and tomorrow?"},
		Message{Role: "assistant", Content: "7°C, rain"},
	))

	history, err := store.History(ctx, "c1")
	require.NoError(t, err)

	want := []Message{
		{Role: "assistant", Content: "5°C, cloudy"},
		{Role: "user", Content: "and tomorrow?"},
		{Role: "assistant", Content: "7°C, rain"},
	}
	if diff := cmp.Diff(want, history); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, cache.data, "weather-agent:conversation:c1")
}

func TestStore_Clear(t *testing.T) {
	store := NewStore(newMemoryCache(), 0)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "c1", Message{Role: "user", Content: "hi"}))
	require.NoError(t, store.Clear(ctx, "c1"))

	history, err := store.History(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_CacheFailure(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	store := NewStore(cache, 10)

	_, err := store.History(context.Background(), "c1")
	assert.ErrorIs(t, err, cache.getErr)

	err = store.Append(context.Background(), "c1", Message{Role: "user", Content: "hi"})
	assert.Error(t, err)
}
