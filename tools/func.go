package tools

import (
	"context"

	"github.com/ragware/ragloop/agent"
)

// funcTool adapts a plain function to the agent.Tool interface.
type funcTool struct {
	name string
	desc string
	fn   func(ctx context.Context, input string) (string, error)
}

// Func wraps a function as an agent tool.
func Func(name, description string, fn func(ctx context.Context, input string) (string, error)) agent.Tool {
	return &funcTool{name: name, desc: description, fn: fn}
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.desc }

func (t *funcTool) Invoke(ctx context.Context, input string) (string, error) {
	return t.fn(ctx, input)
}
