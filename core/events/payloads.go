package events

// Item is the conversation item payload of conversation.item.create(d).
type Item struct {
	ID      string        `json:"id,omitempty"`
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

const (
	ItemTypeMessage = "message"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentPart is one piece of an item's content array.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

const ContentTypeInputText = "input_text"

// Response is the response payload of response.create(d) and
// response.done events. Instructions steer an outbound request; Output
// carries the finished entries of an inbound response.done.
type Response struct {
	ID           string       `json:"id,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
	Output       []OutputItem `json:"output,omitempty"`
}

// OutputItem is one entry of a finished response's output array.
type OutputItem struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

const OutputTypeFunctionCall = "function_call"

// Session is the payload of session.update and session.created.
type Session struct {
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice string           `json:"tool_choice,omitempty"`
}

// ToolDefinition is the wire shape of one declared tool.
type ToolDefinition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is the declared argument schema of a tool.
type ToolParameters struct {
	Type       string                  `json:"type"`
	Strict     bool                    `json:"strict,omitempty"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required"`
}

// ToolProperty describes a single named parameter.
type ToolProperty struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Items       *ToolProperty `json:"items,omitempty"`
}
