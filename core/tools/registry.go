package tools

import (
	"fmt"

	"github.com/marketpulse/voice-core/core/events"
)

// Registry maps tool names to their definitions. It is populated once at
// session start and immutable for the session's lifetime, so lookups need
// no synchronization.
type Registry struct {
	byName []Tool
}

// NewRegistry builds a registry from the given tools, keeping registration
// order for the declared tool set.
func NewRegistry(registered ...Tool) *Registry {
	return &Registry{byName: append([]Tool(nil), registered...)}
}

// Lookup returns the tool registered under name. A miss wraps
// ErrUnknownTool; callers treat it as recoverable.
func (r *Registry) Lookup(name string) (Tool, error) {
	for _, tool := range r.byName {
		if tool.Name == name {
			return tool, nil
		}
	}
	return Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

// Definitions renders every registered tool's wire schema in registration
// order, ready for a session.update event.
func (r *Registry) Definitions() []events.ToolDefinition {
	definitions := make([]events.ToolDefinition, 0, len(r.byName))
	for _, tool := range r.byName {
		definitions = append(definitions, tool.Definition())
	}
	return definitions
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.byName) }
