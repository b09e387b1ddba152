package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestConstructorsEmitExpectedTypes(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Type
	}{
		{name: "user message", event: NewUserMessage("hi"), expected: TypeConversationItemCreate},
		{name: "response create", event: NewResponseCreate(), expected: TypeResponseCreate},
		{name: "response instructions", event: NewResponseInstructions("steer"), expected: TypeResponseCreate},
		{name: "session update", event: NewSessionUpdate(nil), expected: TypeSessionUpdate},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Type; got != testCase.expected {
				t.Fatalf("expected type %q, got %q", testCase.expected, got)
			}
			if got := testCase.event.Direction; got != DirectionOutbound {
				t.Fatalf("expected outbound direction, got %q", got)
			}
		})
	}
}

func TestUserMessageWireShape(t *testing.T) {
	event := NewUserMessage("hello there")
	event.EventID = "evt_1"

	data, err := event.Encode()
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}

	expected := `{"event_id":"evt_1","type":"conversation.item.create","item":{"type":"message","role":"user","content":[{"type":"input_text","text":"hello there"}]}}`
	if string(data) != expected {
		t.Fatalf("expected wire payload %s, got %s", expected, string(data))
	}
}

func TestEncodeNeverTransmitsLocalAnnotations(t *testing.T) {
	event := NewResponseCreate()
	event.EventID = "evt_2"
	event.Seq = 42
	event.Timestamp = time.Now()

	data, err := event.Encode()
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}

	for _, field := range []string{"timestamp", "direction", "seq", "Seq"} {
		if strings.Contains(string(data), field) {
			t.Fatalf("expected %q to stay local, found it in %s", field, string(data))
		}
	}
}

func TestParseRejectsMissingType(t *testing.T) {
	if _, err := Parse([]byte(`{"event_id":"evt_3"}`)); err == nil {
		t.Fatalf("expected parse to reject a payload without a type")
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected parse to reject malformed JSON")
	}
}

func TestFunctionCallsExtractsEntriesInListedOrder(t *testing.T) {
	payload := `{
		"type": "response.done",
		"response": {
			"id": "resp_1",
			"output": [
				{"type": "function_call", "name": "follow_stock", "arguments": "{\"ticker\":\"TSLA\"}", "call_id": "call_1"},
				{"type": "message"},
				{"type": "function_call", "name": "console_print", "arguments": "{\"message\":\"hi\"}", "call_id": "call_2"}
			]
		}
	}`

	event, err := Parse([]byte(payload))
	if err != nil {
		t.Fatalf("expected parse to succeed, got %v", err)
	}

	calls := event.FunctionCalls()
	if len(calls) != 2 {
		t.Fatalf("expected two function calls, got %d", len(calls))
	}
	if calls[0].Name != "follow_stock" || calls[1].Name != "console_print" {
		t.Fatalf("expected listed order preserved, got %q then %q", calls[0].Name, calls[1].Name)
	}
	if calls[0].CorrelationID != "resp_1" || calls[1].CorrelationID != "resp_1" {
		t.Fatalf("expected correlation id of the enclosing response, got %q and %q", calls[0].CorrelationID, calls[1].CorrelationID)
	}
}

func TestFunctionCallsIgnoresOtherEventTypes(t *testing.T) {
	event := Event{Type: TypeResponseCreated, Response: &Response{Output: []OutputItem{{Type: OutputTypeFunctionCall, Name: "follow_stock"}}}}
	if calls := event.FunctionCalls(); calls != nil {
		t.Fatalf("expected no function calls outside response.done, got %v", calls)
	}
}

func TestSessionUpdateDeclaresAutoToolChoice(t *testing.T) {
	event := NewSessionUpdate([]ToolDefinition{{Type: "function", Name: "follow_stock"}})

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("expected marshal to succeed, got %v", err)
	}
	if !strings.Contains(string(data), `"tool_choice":"auto"`) {
		t.Fatalf("expected auto tool choice on the wire, got %s", string(data))
	}
}
