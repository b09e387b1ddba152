package session

import "github.com/marketpulse/voice-core/core/events"

// Presence is the derived conversational state shown to the user. It is
// never stored; it is recomputed from the event log's recent window after
// every append while the session is active.
type Presence string

const (
	PresenceIdle     Presence = "idle"
	PresenceThinking Presence = "thinking"
	PresenceSpeaking Presence = "speaking"
)

// presenceWindow is how many of the latest events DerivePresence considers.
const presenceWindow = 5

// DerivePresence classifies a recent window of events. Speaking wins over
// Thinking when both patterns appear; event types outside the known set
// contribute Idle.
func DerivePresence(window []events.Event) Presence {
	thinking := false
	for _, event := range window {
		switch event.Type {
		case events.TypeOutputAudioStarted, events.TypeResponseAudioDelta:
			return PresenceSpeaking
		case events.TypeConversationItemCreate, events.TypeConversationItemCreated:
			if event.Item != nil && event.Item.Role == events.RoleAssistant {
				return PresenceSpeaking
			}
		case events.TypeResponseCreate, events.TypeResponseCreated, events.TypeInputSpeechStarted:
			thinking = true
		}
	}
	if thinking {
		return PresenceThinking
	}
	return PresenceIdle
}
