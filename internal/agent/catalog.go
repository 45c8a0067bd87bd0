package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
)

// Catalog registers agents by key
type Catalog struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

func NewCatalog() *Catalog {
	return &Catalog{agents: make(map[string]*Agent)}
}

// Register adds an agent, replacing any agent with the same key
func (c *Catalog) Register(a *Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := a.def.Key
	if _, exists := c.agents[key]; exists {
		slog.Warn("Agent already registered, overwriting", "key", key)
	}
	c.agents[key] = a
	slog.Info("Agent registered", "key", key, "name", a.def.Name, "model", a.def.Model, "tools", a.def.Tools)
}

// Get returns the agent registered under key or an ErrNotFound error
func (c *Catalog) Get(key string) (*Agent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.agents[key]
	if !ok {
		return nil, fmt.Errorf("%w: agent %q", errorsx.ErrNotFound, key)
	}
	return a, nil
}

// List returns the definitions of all agents sorted by key
func (c *Catalog) List() []Definition {
	c.mu.RLock()
	defs := make([]Definition, 0, len(c.agents))
	for _, a := range c.agents {
		defs = append(defs, a.def)
	}
	c.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Key < defs[j].Key })
	return defs
}

// Reply routes a message to the agent registered under key
func (c *Catalog) Reply(ctx context.Context, key, conversationID, message string) (string, error) {
	a, err := c.Get(key)
	if err != nil {
		return "", err
	}
	return a.Reply(ctx, conversationID, message)
}
