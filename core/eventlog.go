package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/marketpulse/voice-core/core/events"
)

// EventLog is the append-only record of every control event a session saw,
// in arrival order. Events are immutable once appended; the log lives for
// one session and is discarded on stop.
type EventLog struct {
	mu      sync.Mutex
	events  []events.Event
	nextSeq uint64
	emitter func(events.Event)
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

// SetEmitter registers a callback fired synchronously after every append
// with the stored event. A nil emitter clears the subscription.
func (l *EventLog) SetEmitter(emitter func(events.Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.emitter = emitter
}

// Append stores an event and returns the stored copy. A missing event id is
// assigned, the sequence number always is; both survive on the returned
// copy. The emitter runs after the lock is released so it can read the log
// back.
func (l *EventLog) Append(event events.Event) events.Event {
	l.mu.Lock()

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	l.nextSeq++
	event.Seq = l.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.events = append(l.events, event)
	emitter := l.emitter
	l.mu.Unlock()

	if emitter != nil {
		emitter(event)
	}
	return event
}

// RecentWindow returns the last n events in arrival order. Fewer than n
// appends yields everything so far.
func (l *EventLog) RecentWindow(n int) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > len(l.events) {
		n = len(l.events)
	}
	window := make([]events.Event, n)
	copy(window, l.events[len(l.events)-n:])
	return window
}

// All returns deep copies of every event, newest first, for display.
func (l *EventLog) All() []events.Event {
	l.mu.Lock()
	stored := make([]events.Event, len(l.events))
	if err := copier.CopyWithOption(&stored, &l.events, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("Failed to deep copy event log, falling back to shallow copies", "error", err)
		copy(stored, l.events)
	}
	l.mu.Unlock()

	for i, j := 0, len(stored)-1; i < j; i, j = i+1, j-1 {
		stored[i], stored[j] = stored[j], stored[i]
	}
	return stored
}

// Len reports how many events have been appended.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
