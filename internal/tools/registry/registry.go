package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/metrics"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a human-readable description of what the tool does
	Description() string

	// Parameters returns the JSON schema for the tool's parameters
	Parameters() map[string]interface{}

	// OutputSchema returns the JSON schema of a successful result
	OutputSchema() map[string]interface{}

	// Execute runs the tool with JSON arguments and returns a JSON result
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Definition is the externally visible description of a tool
type Definition struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema"`
}

// ToolRegistry manages the registration and retrieval of tools
type ToolRegistry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	metrics *metrics.Metrics
}

// NewToolRegistry creates a new empty tool registry. m may be nil.
func NewToolRegistry(m *metrics.Metrics) *ToolRegistry {
	return &ToolRegistry{
		tools:   make(map[string]Tool),
		metrics: m,
	}
}

// Register adds a tool to the registry
func (r *ToolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		slog.Warn("Tool already registered, overwriting", "name", name)
	}
	r.tools[name] = tool
	slog.Info("Tool registered successfully", "name", name)
}

// Get returns a tool by name, or nil if not found
func (r *ToolRegistry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// GetAll returns all registered tools sorted by name
func (r *ToolRegistry) GetAll() []Tool {
	r.mu.RLock()
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Definitions describes every registered tool, sorted by name
func (r *ToolRegistry) Definitions() []Definition {
	tools := r.GetAll()
	defs := make([]Definition, 0, len(tools))
	for _, tool := range tools {
		defs = append(defs, Definition{
			Name:         tool.Name(),
			Description:  tool.Description(),
			InputSchema:  tool.Parameters(),
			OutputSchema: tool.OutputSchema(),
		})
	}
	return defs
}

// Count returns the number of registered tools
func (r *ToolRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs the named tool, recording its latency and outcome
func (r *ToolRegistry) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	tool := r.Get(name)
	if tool == nil {
		r.metrics.RecordToolCall(ctx, name, errorsx.Code(errorsx.ErrUnknownTool), 0)
		return "", fmt.Errorf("%w: %s", errorsx.ErrUnknownTool, name)
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	duration := time.Since(start)

	if err != nil {
		r.metrics.RecordToolCall(ctx, name, errorsx.Code(err), duration)
		// Missing data for a date or place is an answer, not a failure.
		level := slog.LevelWarn
		if errorsx.IsNoData(err) {
			level = slog.LevelInfo
		}
		slog.Log(ctx, level, "Tool execution failed",
			"tool", name,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return "", err
	}

	r.metrics.RecordToolCall(ctx, name, "ok", duration)
	slog.InfoContext(ctx, "Tool executed",
		"tool", name,
		"duration_ms", duration.Milliseconds(),
	)
	return result, nil
}
