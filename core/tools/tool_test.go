package tools

import (
	"context"
	"errors"
	"testing"
)

func followStockTool(followed *[]string) Tool {
	return NewTool("follow_stock", "Follow a stock",
		map[string]ParameterBase{
			"ticker": {Type: "string", Description: "The stock ticker symbol to follow"},
		},
		func(_ context.Context, parameters struct {
			Ticker string `json:"ticker"`
		}) (string, error) {
			*followed = append(*followed, parameters.Ticker)
			return "followed", nil
		})
}

func TestExecuteParsesArgumentsIntoTypedHandler(t *testing.T) {
	followed := []string{}
	tool := followStockTool(&followed)

	response, err := tool.Execute(context.Background(), `{"ticker":"TSLA"}`)
	if err != nil {
		t.Fatalf("expected execute to succeed, got %v", err)
	}
	if response != "followed" {
		t.Fatalf("expected handler response, got %q", response)
	}
	if len(followed) != 1 || followed[0] != "TSLA" {
		t.Fatalf("expected handler to receive TSLA, got %v", followed)
	}
}

func TestExecuteRejectsUnparseableArguments(t *testing.T) {
	followed := []string{}
	tool := followStockTool(&followed)

	if _, err := tool.Execute(context.Background(), `{"ticker":`); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments for malformed JSON, got %v", err)
	}
	if len(followed) != 0 {
		t.Fatalf("expected handler to stay uninvoked, got %v", followed)
	}
}

func TestExecuteRejectsMissingRequiredParameter(t *testing.T) {
	followed := []string{}
	tool := followStockTool(&followed)

	if _, err := tool.Execute(context.Background(), `{}`); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments for missing parameter, got %v", err)
	}
}

func TestExecuteRejectsWrongPrimitiveType(t *testing.T) {
	followed := []string{}
	tool := followStockTool(&followed)

	if _, err := tool.Execute(context.Background(), `{"ticker":42}`); !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments for a number where a string was declared, got %v", err)
	}
}

func TestWithOptionalParametersRelaxesRequiredSet(t *testing.T) {
	tool := NewTool("get_stock_movement", "movement",
		map[string]ParameterBase{
			"ticker":    {Type: "string"},
			"timeframe": {Type: "string"},
		},
		func(_ context.Context, parameters struct {
			Ticker    string `json:"ticker"`
			Timeframe string `json:"timeframe"`
		}) (string, error) {
			return "ok", nil
		},
		WithOptionalParameters("timeframe"))

	if _, err := tool.Execute(context.Background(), `{"ticker":"AAPL"}`); err != nil {
		t.Fatalf("expected optional timeframe to be accepted, got %v", err)
	}
}

func TestNewToolForReflectsSchemaFromStruct(t *testing.T) {
	type movementArguments struct {
		Ticker    string `json:"ticker" jsonschema:"description=The stock ticker symbol or name"`
		Timeframe string `json:"timeframe" jsonschema:"description=The historical timeframe to check"`
	}

	tool := NewToolFor("get_stock_movement", "movement", func(_ context.Context, arguments movementArguments) (string, error) {
		return arguments.Ticker + " " + arguments.Timeframe, nil
	})

	definition := tool.Definition()
	if definition.Parameters.Type != "object" {
		t.Fatalf("expected object parameter schema, got %q", definition.Parameters.Type)
	}
	ticker, present := definition.Parameters.Properties["ticker"]
	if !present || ticker.Type != "string" {
		t.Fatalf("expected reflected string ticker property, got %+v", definition.Parameters.Properties)
	}
	if len(definition.Parameters.Required) != 2 {
		t.Fatalf("expected both reflected parameters required, got %v", definition.Parameters.Required)
	}

	response, err := tool.Execute(context.Background(), `{"ticker":"AAPL","timeframe":"Q1 2024"}`)
	if err != nil {
		t.Fatalf("expected execute to succeed, got %v", err)
	}
	if response != "AAPL Q1 2024" {
		t.Fatalf("expected handler to see parsed values, got %q", response)
	}
}

func TestRegistryLookupMissWrapsErrUnknownTool(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Lookup("display_color_palette"); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestRegistryDefinitionsKeepRegistrationOrder(t *testing.T) {
	followed := []string{}
	first := followStockTool(&followed)
	second := NewTool("console_print", "Print a message",
		map[string]ParameterBase{"message": {Type: "string"}},
		func(_ context.Context, parameters struct {
			Message string `json:"message"`
		}) (string, error) {
			return "printed", nil
		})

	registry := NewRegistry(first, second)
	definitions := registry.Definitions()
	if len(definitions) != 2 {
		t.Fatalf("expected two definitions, got %d", len(definitions))
	}
	if definitions[0].Name != "follow_stock" || definitions[1].Name != "console_print" {
		t.Fatalf("expected registration order preserved, got %q then %q", definitions[0].Name, definitions[1].Name)
	}
}

func TestWireDefinitionMarksStrictObjectSchema(t *testing.T) {
	followed := []string{}
	definition := followStockTool(&followed).Definition()

	if definition.Type != "function" {
		t.Fatalf("expected function tool type, got %q", definition.Type)
	}
	if !definition.Parameters.Strict {
		t.Fatalf("expected a strict parameter schema")
	}
	if len(definition.Parameters.Required) != 1 || definition.Parameters.Required[0] != "ticker" {
		t.Fatalf("expected ticker required, got %v", definition.Parameters.Required)
	}
}
