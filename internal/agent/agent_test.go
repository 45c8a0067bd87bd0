package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/session"
	"github.com/8adimka/Go_Weather_Agent/internal/tokens"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/registry"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replays canned completions and records the requests it saw
type scriptedLLM struct {
	responses []string
	err       error
	requests  []openai.ChatCompletionNewParams
}

func (s *scriptedLLM) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.requests = append(s.requests, body)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	raw := s.responses[0]
	s.responses = s.responses[1:]

	var completion openai.ChatCompletion
	if err := json.Unmarshal([]byte(raw), &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

func textCompletion(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": %q}}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 5, "total_tokens": 25}
	}`, content)
}

func toolCallCompletion(id, name, args string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "gpt-4o",
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": %q, "type": "function", "function": {"name": %q, "arguments": %q}}]}}],
		"usage": {"prompt_tokens": 30, "completion_tokens": 10, "total_tokens": 40}
	}`, id, name, args)
}

type fakeTools struct {
	results map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeTools) Definitions() []registry.Definition {
	return []registry.Definition{
		{Name: "get_weather", Description: "Get current weather for a location", InputSchema: map[string]interface{}{"type": "object"}},
		{Name: "get_weather_by_date", Description: "Get weather for a date", InputSchema: map[string]interface{}{"type": "object"}},
		{Name: "send_email", Description: "not for weather agents", InputSchema: map[string]interface{}{"type": "object"}},
	}
}

func (f *fakeTools) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	f.calls = append(f.calls, name+" "+string(args))
	if err := f.errs[name]; err != nil {
		return "", err
	}
	return f.results[name], nil
}

type memoryHistory struct {
	turns map[string][]session.Message
}

func (m *memoryHistory) History(ctx context.Context, id string) ([]session.Message, error) {
	return m.turns[id], nil
}

func (m *memoryHistory) Append(ctx context.Context, id string, turns ...session.Message) error {
	m.turns[id] = append(m.turns[id], turns...)
	return nil
}

// charCounter counts one token per content byte
type charCounter struct{}

func (charCounter) CountMessages(ctx context.Context, msgs []tokens.Message, model string) int {
	n := 0
	for _, m := range msgs {
		n += len(m.Content)
	}
	return n
}

func messageJSON(t *testing.T, msg openai.ChatCompletionMessageParamUnion) map[string]interface{} {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestReply_PlainAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []string{textCompletion("Which city?")}}
	a := New(WeatherAgent("gpt-4o"), llm, &fakeTools{}, Options{})

	reply, err := a.Reply(context.Background(), "c1", "what's the weather?")
	require.NoError(t, err)
	assert.Equal(t, "Which city?", reply)

	require.Len(t, llm.requests, 1)
	req := llm.requests[0]
	assert.Equal(t, "gpt-4o", string(req.Model))
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", messageJSON(t, req.Messages[0])["role"])
	assert.Equal(t, "what's the weather?", messageJSON(t, req.Messages[1])["content"])

	// send_email is registered but not in the weather agent's tool list
	assert.Len(t, req.Tools, 2)
}

func TestReply_ExecutesToolCalls(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		toolCallCompletion("call_1", "get_weather", `{"location":"Paris"}`),
		textCompletion("It is 18°C and sunny in Paris."),
	}}
	tools := &fakeTools{results: map[string]string{"get_weather": `{"temperature":18}`}}
	a := New(WeatherAgent("gpt-4o"), llm, tools, Options{})

	reply, err := a.Reply(context.Background(), "c1", "weather in Paris?")
	require.NoError(t, err)
	assert.Equal(t, "It is 18°C and sunny in Paris.", reply)
	assert.Equal(t, []string{`get_weather {"location":"Paris"}`}, tools.calls)

	require.Len(t, llm.requests, 2)
	second := llm.requests[1].Messages
	require.Len(t, second, 4)
	toolMsg := messageJSON(t, second[3])
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.Equal(t, `{"temperature":18}`, toolMsg["content"])
}

func TestReply_ToolErrorIsFedBack(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		toolCallCompletion("call_1", "get_weather_by_date", `{"location":"Atlantis","date":"2024-01-01"}`),
		textCompletion("I could not find Atlantis."),
	}}
	tools := &fakeTools{errs: map[string]error{
		"get_weather_by_date": fmt.Errorf("%w: 'Atlantis'", errorsx.ErrLocationNotFound),
	}}
	a := New(WeatherAgent("gpt-4o"), llm, tools, Options{})

	_, err := a.Reply(context.Background(), "c1", "weather in Atlantis on new year?")
	require.NoError(t, err)

	toolMsg := messageJSON(t, llm.requests[1].Messages[3])
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(toolMsg["content"].(string)), &payload))
	assert.Equal(t, "location_not_found", payload["error"])
	assert.Contains(t, payload["message"], "location not found: 'Atlantis'")
}

func TestReply_DisallowedToolIsNotExecuted(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		toolCallCompletion("call_1", "send_email", `{}`),
		textCompletion("I can only help with weather."),
	}}
	tools := &fakeTools{}
	a := New(WeatherAgent("gpt-4o"), llm, tools, Options{})

	_, err := a.Reply(context.Background(), "c1", "email my boss")
	require.NoError(t, err)
	assert.Empty(t, tools.calls)
}

func TestReply_TooManyToolCalls(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		toolCallCompletion("call_1", "get_weather", `{"location":"Oslo"}`),
		toolCallCompletion("call_2", "get_weather", `{"location":"Oslo"}`),
	}}
	a := New(WeatherAgent("gpt-4o"), llm, &fakeTools{}, Options{MaxToolIterations: 2})

	_, err := a.Reply(context.Background(), "c1", "loop forever")
	assert.ErrorContains(t, err, "too many tool calls")
	assert.Len(t, llm.requests, 2)
}

func TestReply_CompletionError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("503 service unavailable")}
	a := New(WeatherAgent("gpt-4o"), llm, &fakeTools{}, Options{})

	_, err := a.Reply(context.Background(), "c1", "hi")
	assert.ErrorIs(t, err, errorsx.ErrUpstream)
}

func TestReply_HistoryIsTrimmedAndSaved(t *testing.T) {
	def := Definition{Name: "Tiny", Instructions: "sys", Model: "gpt-4o"}
	history := &memoryHistory{turns: map[string][]session.Message{
		"c1": {
			{Role: "user", Content: "0123456789"},
			{Role: "assistant", Content: "abcdefghij"},
			{Role: "user", Content: "short"},
		},
	}}
	llm := &scriptedLLM{responses: []string{textCompletion("ok")}}
	a := New(def, llm, &fakeTools{}, Options{
		History:          history,
		Counter:          charCounter{},
		MaxContextTokens: 20,
	})

	_, err := a.Reply(context.Background(), "c1", "hello")
	require.NoError(t, err)

	// sys(3) + short(5) + hello(5) fits; adding either ten-byte turn does not
	msgs := llm.requests[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "short", messageJSON(t, msgs[1])["content"])

	saved := history.turns["c1"]
	require.Len(t, saved, 5)
	assert.Equal(t, session.Message{Role: "user", Content: "hello"}, saved[3])
	assert.Equal(t, session.Message{Role: "assistant", Content: "ok"}, saved[4])
}

func TestCatalog(t *testing.T) {
	c := NewCatalog()
	c.Register(New(WeatherAgent("gpt-4o"), &scriptedLLM{}, &fakeTools{}, Options{}))
	c.Register(New(Definition{Key: "alpha", Name: "Alpha", Model: "gpt-4o"}, &scriptedLLM{}, &fakeTools{}, Options{}))

	defs := c.List()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Key)
	assert.Equal(t, "weather", defs[1].Key)

	a, err := c.Get("weather")
	require.NoError(t, err)
	assert.Equal(t, "Weather Agent", a.Definition().Name)

	// Display names are not lookup keys
	_, err = c.Get("Weather Agent")
	assert.True(t, errorsx.IsNotFound(err))

	_, err = c.Reply(context.Background(), "nope", "c1", "hi")
	assert.True(t, errorsx.IsNotFound(err))
}

func TestCatalog_ReplyRoutesByKey(t *testing.T) {
	c := NewCatalog()
	llm := &scriptedLLM{responses: []string{textCompletion("Sunny.")}}
	c.Register(New(WeatherAgent("gpt-4o"), llm, &fakeTools{}, Options{}))

	reply, err := c.Reply(context.Background(), "weather", "c1", "weather in Rome?")
	require.NoError(t, err)
	assert.Equal(t, "Sunny.", reply)
}
