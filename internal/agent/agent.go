package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/metrics"
	"github.com/8adimka/Go_Weather_Agent/internal/session"
	"github.com/8adimka/Go_Weather_Agent/internal/tokens"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/registry"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// ChatCompleter is satisfied by the OpenAI chat completions service
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Tools lists and runs the tools an agent can call
type Tools interface {
	Definitions() []registry.Definition
	Execute(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// History persists conversation turns between requests
type History interface {
	History(ctx context.Context, conversationID string) ([]session.Message, error)
	Append(ctx context.Context, conversationID string, turns ...session.Message) error
}

// TokenCounter estimates the prompt size of a conversation
type TokenCounter interface {
	CountMessages(ctx context.Context, messages []tokens.Message, model string) int
}

// Options configures an Agent. Zero values disable the optional parts.
type Options struct {
	History           History
	Counter           TokenCounter
	Metrics           *metrics.Metrics
	MaxToolIterations int
	MaxContextTokens  int
}

// Agent answers user messages with an LLM that can call registered tools
type Agent struct {
	def   Definition
	llm   ChatCompleter
	tools Tools
	opts  Options
}

// New creates an agent
func New(def Definition, llm ChatCompleter, tools Tools, opts Options) *Agent {
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = 5
	}
	return &Agent{
		def:   def,
		llm:   llm,
		tools: tools,
		opts:  opts,
	}
}

// Definition returns the agent's definition
func (a *Agent) Definition() Definition {
	return a.def
}

// Reply runs one user turn: it calls the model, executes requested tools and
// feeds their results back until the model answers with text.
func (a *Agent) Reply(ctx context.Context, conversationID, message string) (string, error) {
	history := a.loadHistory(ctx, conversationID, message)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs, openai.SystemMessage(a.def.Instructions))
	for _, turn := range history {
		switch turn.Role {
		case "user":
			msgs = append(msgs, openai.UserMessage(turn.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(turn.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(message))

	tools := a.toolParams()

	for i := 0; i < a.opts.MaxToolIterations; i++ {
		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(a.def.Model),
			Messages: msgs,
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		start := time.Now()
		resp, err := a.llm.New(ctx, params)
		duration := time.Since(start)
		if err != nil {
			return "", fmt.Errorf("%w: chat completion: %w", errorsx.ErrUpstream, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: no choices returned by OpenAI", errorsx.ErrUpstream)
		}

		a.opts.Metrics.RecordCompletion(ctx, a.def.Name, a.def.Model, duration,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

		choice := resp.Choices[0].Message
		slog.InfoContext(ctx, "OpenAI API call completed",
			"agent", a.def.Name,
			"model", a.def.Model,
			"conversation_id", conversationID,
			"iteration", i+1,
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds(),
			"has_tool_calls", len(choice.ToolCalls) > 0,
		)

		if len(choice.ToolCalls) == 0 {
			a.saveTurn(ctx, conversationID, message, choice.Content)
			return choice.Content, nil
		}

		msgs = append(msgs, choice.ToParam())
		for _, call := range choice.ToolCalls {
			slog.InfoContext(ctx, "Tool call received",
				"conversation_id", conversationID,
				"tool_name", call.Function.Name,
				"args", call.Function.Arguments,
			)
			msgs = append(msgs, openai.ToolMessage(a.runTool(ctx, call.Function.Name, call.Function.Arguments), call.ID))
		}
	}

	return "", errors.New("too many tool calls, unable to generate reply")
}

// runTool executes a tool call and renders failures as a JSON error the model can read
func (a *Agent) runTool(ctx context.Context, name, arguments string) string {
	var err error
	if !a.def.allows(name) {
		err = fmt.Errorf("%w: %s", errorsx.ErrUnknownTool, name)
	} else {
		var result string
		result, err = a.tools.Execute(ctx, name, json.RawMessage(arguments))
		if err == nil {
			return result
		}
	}

	slog.WarnContext(ctx, "Tool call failed", "tool_name", name, "error", err)
	payload, _ := json.Marshal(map[string]string{
		"error":   errorsx.Code(err),
		"message": err.Error(),
	})
	return string(payload)
}

func (a *Agent) toolParams() []openai.ChatCompletionToolUnionParam {
	var params []openai.ChatCompletionToolUnionParam
	for _, def := range a.tools.Definitions() {
		if !a.def.allows(def.Name) {
			continue
		}
		params = append(params, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(def.InputSchema),
		}))
	}
	return params
}

// loadHistory returns prior turns, dropping the oldest ones until the prompt
// fits in MaxContextTokens.
func (a *Agent) loadHistory(ctx context.Context, conversationID, message string) []session.Message {
	if a.opts.History == nil {
		return nil
	}

	history, err := a.opts.History.History(ctx, conversationID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to load conversation history, continuing without it",
			"conversation_id", conversationID, "error", err)
		return nil
	}

	if a.opts.Counter == nil || a.opts.MaxContextTokens <= 0 {
		return history
	}

	count := func(turns []session.Message) int {
		msgs := make([]tokens.Message, 0, len(turns)+2)
		msgs = append(msgs, tokens.Message{Role: "system", Content: a.def.Instructions})
		for _, t := range turns {
			msgs = append(msgs, tokens.Message{Role: t.Role, Content: t.Content})
		}
		msgs = append(msgs, tokens.Message{Role: "user", Content: message})
		return a.opts.Counter.CountMessages(ctx, msgs, a.def.Model)
	}

	total := count(history)
	for len(history) > 0 && total > a.opts.MaxContextTokens {
		history = history[1:]
		total = count(history)
	}
	a.opts.Metrics.RecordContextTokenCount(ctx, a.def.Name, int64(total))

	return history
}

func (a *Agent) saveTurn(ctx context.Context, conversationID, message, reply string) {
	if a.opts.History == nil {
		return
	}
	err := a.opts.History.Append(ctx, conversationID,
		session.Message{Role: "user", Content: message},
		session.Message{Role: "assistant", Content: reply},
	)
	if err != nil {
		slog.WarnContext(ctx, "Failed to save conversation turn",
			"conversation_id", conversationID, "error", err)
	}
}
