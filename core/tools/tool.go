package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/marketpulse/voice-core/core/events"
)

var (
	// ErrUnknownTool reports a lookup for a name no tool was registered
	// under. Recoverable: dispatch surfaces it as a conversational
	// follow-up, never as a crash.
	ErrUnknownTool = errors.New("tool not found")
	// ErrInvalidArguments reports arguments that failed to parse or that
	// violate the declared parameter schema. Recoverable in the same way.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ParameterBase describes a single named tool parameter.
type ParameterBase struct {
	Type        string
	Description string
	Items       *ParameterBase
}

// Tool is one capability the remote agent may invoke. Definitions are
// immutable once registered; Execute validates raw argument JSON against
// the declared parameters before reaching the handler.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]ParameterBase
	Required    []string

	// Acknowledgement marks a remote-class tool: when non-empty, the
	// dispatch engine sends it as an immediate instruction before the
	// handler's network round-trip resolves.
	Acknowledgement string
	// FailureInstructions replaces the generic apology follow-up when the
	// handler fails.
	FailureInstructions string

	execute func(ctx context.Context, arguments string) (string, error)
}

// ToolOption adjusts a tool definition at construction time.
type ToolOption func(*Tool)

// WithAcknowledgement marks the tool as remote-class with the given
// deferred-work instruction.
func WithAcknowledgement(instructions string) ToolOption {
	return func(t *Tool) { t.Acknowledgement = instructions }
}

// WithFailureInstructions sets the apology follow-up used when the
// handler fails.
func WithFailureInstructions(instructions string) ToolOption {
	return func(t *Tool) { t.FailureInstructions = instructions }
}

// WithOptionalParameters removes the given parameter names from the
// required set. By default every declared parameter is required.
func WithOptionalParameters(names ...string) ToolOption {
	return func(t *Tool) {
		t.Required = slices.DeleteFunc(t.Required, func(name string) bool {
			return slices.Contains(names, name)
		})
	}
}

// NewTool creates a tool from an explicit parameter map and a handler
// typed over its argument struct. All declared parameters are required
// unless WithOptionalParameters says otherwise.
func NewTool[T any](name, description string, parameters map[string]ParameterBase, handler func(ctx context.Context, parameters T) (string, error), opts ...ToolOption) Tool {
	required := make([]string, 0, len(parameters))
	for parameterName := range parameters {
		required = append(required, parameterName)
	}
	slices.Sort(required)

	tool := Tool{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		Required:    required,
	}
	tool.execute = func(ctx context.Context, arguments string) (string, error) {
		var typedArguments T
		if err := json.Unmarshal([]byte(arguments), &typedArguments); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return handler(ctx, typedArguments)
	}

	for _, opt := range opts {
		opt(&tool)
	}
	return tool
}

// NewToolFor creates a tool whose parameter schema is reflected from the
// handler's argument struct instead of being declared by hand.
func NewToolFor[T any](name, description string, handler func(ctx context.Context, parameters T) (string, error), opts ...ToolOption) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(new(T))

	parameters := map[string]ParameterBase{}
	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			parameters[pair.Key] = parameterFromSchema(pair.Value)
		}
	}

	tool := NewTool(name, description, parameters, handler)
	tool.Required = append([]string(nil), schema.Required...)
	slices.Sort(tool.Required)

	for _, opt := range opts {
		opt(&tool)
	}
	return tool
}

func parameterFromSchema(schema *jsonschema.Schema) ParameterBase {
	parameter := ParameterBase{Type: schema.Type, Description: schema.Description}
	if schema.Items != nil {
		items := parameterFromSchema(schema.Items)
		parameter.Items = &items
	}
	return parameter
}

// Execute parses and validates raw argument JSON and invokes the handler.
// Parse and validation failures wrap ErrInvalidArguments.
func (t Tool) Execute(ctx context.Context, arguments string) (string, error) {
	if t.execute == nil {
		return "", fmt.Errorf("tool %q has no handler", t.Name)
	}
	if err := t.validateArguments(arguments); err != nil {
		return "", err
	}
	return t.execute(ctx, arguments)
}

func (t Tool) validateArguments(arguments string) error {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	for _, name := range t.Required {
		if _, present := parsed[name]; !present {
			return fmt.Errorf("%w: missing required parameter %q", ErrInvalidArguments, name)
		}
	}
	for name, value := range parsed {
		declared, known := t.Parameters[name]
		if !known {
			continue
		}
		if err := checkPrimitiveType(declared.Type, value); err != nil {
			return fmt.Errorf("%w: parameter %q %v", ErrInvalidArguments, name, err)
		}
	}

	return nil
}

func checkPrimitiveType(declared string, value any) error {
	if value == nil {
		return fmt.Errorf("is null, expected %s", declared)
	}

	switch declared {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("is not a string")
		}
	case "number", "integer":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("is not a number")
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("is not a boolean")
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("is not an array")
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("is not an object")
		}
	}
	return nil
}

// Definition renders the tool's wire schema for a session.update event.
func (t Tool) Definition() events.ToolDefinition {
	properties := make(map[string]events.ToolProperty, len(t.Parameters))
	for name, parameter := range t.Parameters {
		properties[name] = propertyFromParameter(parameter)
	}

	required := t.Required
	if required == nil {
		required = []string{}
	}

	return events.ToolDefinition{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		Parameters: events.ToolParameters{
			Type:       "object",
			Strict:     true,
			Properties: properties,
			Required:   required,
		},
	}
}

func propertyFromParameter(parameter ParameterBase) events.ToolProperty {
	property := events.ToolProperty{Type: parameter.Type, Description: parameter.Description}
	if parameter.Items != nil {
		items := propertyFromParameter(*parameter.Items)
		property.Items = &items
	}
	return property
}
