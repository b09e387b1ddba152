// Package session manages one realtime voice conversation: it negotiates
// the transport, owns the append-only event log, derives presence for the
// UI and dispatches the remote agent's tool calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/marketpulse/voice-core/core/events"
	"github.com/marketpulse/voice-core/core/tools"
	"github.com/marketpulse/voice-core/core/transport"
	"go.opentelemetry.io/otel/codes"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateIdle        State = "idle"
	StateNegotiating State = "negotiating"
	StateActive      State = "active"
	StateClosing     State = "closing"
)

var (
	// ErrAlreadyStarted reports a Start call on a session that is not
	// idle. Starts are rejected, never queued.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrNotActive reports a send attempted before the channel opened or
	// after teardown began.
	ErrNotActive = errors.New("session is not active")
)

// Session is the lifecycle controller. It exclusively owns the negotiated
// channel, the media handles and the event log between Start and Stop;
// nothing outside it holds those across a stop/restart boundary.
type Session struct {
	id         string
	negotiator transport.Negotiator
	registry   *tools.Registry

	mu             sync.Mutex
	state          State
	presence       Presence
	channel        transport.Channel
	media          transport.Media
	log            *EventLog
	engine         *dispatchEngine
	cancel         context.CancelFunc
	toolsAnnounced bool
}

func New(negotiator transport.Negotiator, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		negotiator: negotiator,
		registry:   tools.NewRegistry(),
		state:      StateIdle,
		presence:   PresenceIdle,
		log:        NewEventLog(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Presence returns the last derived presence. Idle outside an active
// session.
func (s *Session) Presence() Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence
}

// Events returns the session's event log, newest first.
func (s *Session) Events() []events.Event {
	s.mu.Lock()
	log := s.log
	s.mu.Unlock()
	return log.All()
}

// Start negotiates a connection and begins processing channel traffic. It
// returns once the channel exists; the session turns Active on the
// channel's open signal, not before. A failed negotiation releases
// everything the negotiator acquired and leaves the session idle.
func (s *Session) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "start session")
	defer span.End()

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fmt.Errorf("cannot start in state %q: %w", s.state, ErrAlreadyStarted)
	}
	s.state = StateNegotiating
	s.log = NewEventLog()
	s.toolsAnnounced = false
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	channel, media, err := s.negotiator.Negotiate(ctx)
	if err != nil {
		cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.cancel = nil
		s.mu.Unlock()

		err = fmt.Errorf("session negotiation failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	engine := newDispatchEngine(s.registry)

	s.mu.Lock()
	if runCtx.Err() != nil || s.state != StateNegotiating {
		s.mu.Unlock()

		// Stopped while the negotiator was still working: the fresh
		// channel and media were never installed, so release them here.
		var errs []error
		if err := channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
		if media != nil {
			if err := media.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to release media: %w", err))
			}
		}

		err := fmt.Errorf("session stopped during negotiation: %w", ErrNotActive)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.Join(append(errs, err)...)
	}
	s.channel = channel
	s.media = media
	s.engine = engine
	s.log.SetEmitter(s.refreshPresence)
	s.mu.Unlock()

	channel.SetHandlers(
		func(event events.Event) { s.handleInbound(runCtx, event) },
		s.handleOpen,
		func() { s.handleClose(runCtx) },
	)
	go s.run(runCtx, engine)
	go func() {
		<-runCtx.Done()
		if err := s.Stop(); err != nil {
			logger.Warn("Session teardown after cancellation was incomplete", "error", err)
		}
	}()

	return nil
}

// SendText submits a typed user message and asks the agent to respond.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return fmt.Errorf("cannot send text in state %q: %w", s.state, ErrNotActive)
	}
	s.mu.Unlock()

	if err := s.sendEvent(events.NewUserMessage(text)); err != nil {
		return err
	}
	return s.sendEvent(events.NewResponseCreate())
}

// Stop tears the session down: channel, media and the presence
// subscription, best effort, every step attempted even when an earlier one
// fails. Valid from any state; stopping an idle session is a no-op and a
// second call is safe.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateClosing {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	channel := s.channel
	media := s.media
	engine := s.engine
	cancel := s.cancel
	s.log.SetEmitter(nil)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var errs []error
	if channel != nil {
		if err := channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if media != nil {
		if err := media.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release media: %w", err))
		}
	}
	if engine != nil {
		engine.await()
	}

	s.mu.Lock()
	s.state = StateIdle
	s.presence = PresenceIdle
	s.channel = nil
	s.media = nil
	s.engine = nil
	s.cancel = nil
	s.mu.Unlock()

	return errors.Join(errs...)
}

// run is the single sender on the channel for dispatch output: it drains
// the engine's follow-ups and turns each into a response.create.
func (s *Session) run(ctx context.Context, engine *dispatchEngine) {
	for {
		select {
		case <-ctx.Done():
			return
		case instructions := <-engine.followUps:
			if err := s.sendEvent(events.NewResponseInstructions(instructions)); err != nil {
				logger.Warn("Failed to send tool follow-up", "error", err)
			}
		}
	}
}

func (s *Session) handleOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateNegotiating {
		s.state = StateActive
	}
}

// handleClose reacts to the transport dropping underneath us. Teardown
// proceeds as for an explicit stop; Stop's state guard keeps the paths
// from running twice.
func (s *Session) handleClose(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.Stop(); err != nil {
		logger.Warn("Session teardown after channel close was incomplete", "error", err)
	}
}

// handleInbound appends one received event and reacts to it. Appending
// first keeps the log's causal order ahead of any dispatch side effects.
func (s *Session) handleInbound(ctx context.Context, event events.Event) {
	s.mu.Lock()
	log := s.log
	engine := s.engine
	s.mu.Unlock()

	stored := log.Append(event)

	switch stored.Type {
	case events.TypeSessionCreated:
		s.announceTools()
	case events.TypeResponseDone:
		if engine != nil {
			engine.dispatch(ctx, stored)
		}
	}
}

// announceTools sends the session.update declaring the registered tools,
// once per session, after the remote side confirms session creation.
func (s *Session) announceTools() {
	s.mu.Lock()
	if s.toolsAnnounced || s.registry.Len() == 0 {
		s.mu.Unlock()
		return
	}
	s.toolsAnnounced = true
	s.mu.Unlock()

	if err := s.sendEvent(events.NewSessionUpdate(s.registry.Definitions())); err != nil {
		logger.Warn("Failed to declare session tools", "error", err)
	}
}

// sendEvent transmits an outbound event and appends it to the log on
// success only, so the log never claims a delivery the channel refused.
func (s *Session) sendEvent(event events.Event) error {
	s.mu.Lock()
	channel := s.channel
	log := s.log
	s.mu.Unlock()

	if channel == nil {
		return ErrNotActive
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if err := channel.Send(event); err != nil {
		return fmt.Errorf("failed to send %q event: %w", event.Type, err)
	}
	log.Append(event)
	return nil
}

// refreshPresence runs synchronously on every log append.
func (s *Session) refreshPresence(events.Event) {
	s.mu.Lock()
	log := s.log
	active := s.state == StateActive
	s.mu.Unlock()

	if !active {
		return
	}
	presence := DerivePresence(log.RecentWindow(presenceWindow))

	s.mu.Lock()
	s.presence = presence
	s.mu.Unlock()
}
