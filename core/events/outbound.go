package events

// NewUserMessage creates a conversation.item.create event carrying a typed
// user message.
func NewUserMessage(text string) Event {
	return Event{
		Type:      TypeConversationItemCreate,
		Direction: DirectionOutbound,
		Item: &Item{
			Type: ItemTypeMessage,
			Role: RoleUser,
			Content: []ContentPart{
				{Type: ContentTypeInputText, Text: text},
			},
		},
	}
}

// NewResponseCreate creates a bare response.create event asking the remote
// agent to take its next turn.
func NewResponseCreate() Event {
	return Event{Type: TypeResponseCreate, Direction: DirectionOutbound}
}

// NewResponseInstructions creates a response.create event with steering
// instructions, used for tool follow-ups.
func NewResponseInstructions(instructions string) Event {
	return Event{
		Type:      TypeResponseCreate,
		Direction: DirectionOutbound,
		Response:  &Response{Instructions: instructions},
	}
}

// NewSessionUpdate creates a session.update event declaring the available
// tools with automatic tool choice.
func NewSessionUpdate(tools []ToolDefinition) Event {
	return Event{
		Type:      TypeSessionUpdate,
		Direction: DirectionOutbound,
		Session:   &Session{Tools: tools, ToolChoice: "auto"},
	}
}
