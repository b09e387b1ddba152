package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type discriminates the wire shape of an event.
type Type string

const (
	TypeConversationItemCreate  Type = "conversation.item.create"
	TypeConversationItemCreated Type = "conversation.item.created"
	TypeResponseCreate          Type = "response.create"
	TypeResponseCreated         Type = "response.created"
	TypeResponseDone            Type = "response.done"
	TypeSessionCreated          Type = "session.created"
	TypeSessionUpdate           Type = "session.update"
	TypeInputSpeechStarted      Type = "input_audio_buffer.speech_started"
	TypeInputSpeechStopped      Type = "input_audio_buffer.speech_stopped"
	TypeOutputAudioStarted      Type = "output_audio_buffer.started"
	TypeResponseAudioDelta      Type = "response.audio.delta"
	TypeError                   Type = "error"
)

// Direction records which side of the channel produced an event. It is a
// local annotation and never crosses the wire.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Event is one realtime control message. The json-tagged fields are the
// wire contract and must be preserved exactly; the remaining fields are
// local annotations assigned on append and stripped from transmission by
// construction.
type Event struct {
	EventID  string    `json:"event_id,omitempty"`
	Type     Type      `json:"type"`
	Item     *Item     `json:"item,omitempty"`
	Response *Response `json:"response,omitempty"`
	Session  *Session  `json:"session,omitempty"`

	Direction Direction `json:"-"`
	Seq       uint64    `json:"-"`
	Timestamp time.Time `json:"-"`
}

// Parse decodes a raw channel message. A payload without a type
// discriminator is malformed and rejected; callers log and drop it rather
// than closing the channel.
func Parse(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event is missing a type discriminator")
	}
	return event, nil
}

// Encode serializes the event for transmission. Local annotations are not
// part of the wire struct, so the output carries only wire fields.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %q event: %w", e.Type, err)
	}
	return data, nil
}

// FunctionCall is a tool invocation request extracted from a finished
// response. CorrelationID is the id of the enclosing response.
type FunctionCall struct {
	Name          string
	Arguments     string
	CallID        string
	CorrelationID string
}

// FunctionCalls returns the function_call entries of a response.done
// event's output array, in listed order. Any other event yields none.
func (e Event) FunctionCalls() []FunctionCall {
	if e.Type != TypeResponseDone || e.Response == nil {
		return nil
	}

	var calls []FunctionCall
	for _, output := range e.Response.Output {
		if output.Type != OutputTypeFunctionCall {
			continue
		}
		calls = append(calls, FunctionCall{
			Name:          output.Name,
			Arguments:     output.Arguments,
			CallID:        output.CallID,
			CorrelationID: e.Response.ID,
		})
	}
	return calls
}
