package session

import (
	"context"
	"testing"

	"github.com/marketpulse/voice-core/core/tools"
)

func TestWithToolsReplacesTheRegistry(t *testing.T) {
	registered := tools.NewTool("console_print", "print",
		map[string]tools.ParameterBase{"message": {Type: "string"}},
		func(_ context.Context, parameters struct {
			Message string `json:"message"`
		}) (string, error) {
			return "printed", nil
		})

	s := New(&stubNegotiator{}, WithTools(registered))
	if s.registry.Len() != 1 {
		t.Fatalf("expected one registered tool, got %d", s.registry.Len())
	}
	if _, err := s.registry.Lookup("console_print"); err != nil {
		t.Fatalf("expected the registered tool to resolve, got %v", err)
	}
}

func TestWithIDOverridesGeneratedID(t *testing.T) {
	s := New(&stubNegotiator{}, WithID("session_test"))
	if s.ID() != "session_test" {
		t.Fatalf("expected the provided id, got %q", s.ID())
	}
}

func TestNewAssignsDistinctIDs(t *testing.T) {
	first := New(&stubNegotiator{})
	second := New(&stubNegotiator{})
	if first.ID() == second.ID() {
		t.Fatalf("expected distinct generated session ids")
	}
}
