package agent

import (
	"context"
	"fmt"
	"sort"
)

// Tool is an action the reasoning loop can take between thoughts.
// Implementations must be safe for concurrent use.
type Tool interface {
	// Name is the identifier the model uses to select the tool.
	Name() string

	// Description tells the model when the tool applies.
	Description() string

	// Invoke executes the tool with the model-provided input.
	Invoke(ctx context.Context, input string) (string, error)
}

// Registry holds the tools available to an agent.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice is an error.
func (r *Registry) Register(tool Tool) error {
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTool)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe renders the tool list for the system prompt.
func (r *Registry) Describe() string {
	var out string
	for _, name := range r.Names() {
		out += fmt.Sprintf("- %s: %s\n", name, r.tools[name].Description())
	}
	return out
}
