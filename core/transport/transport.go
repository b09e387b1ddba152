// Package transport defines the duplex channel contract shared by the
// realtime transports and the negotiation error taxonomy the session layer
// reacts to.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/marketpulse/voice-core/core/events"
)

var (
	// ErrCredential reports a failure to obtain the short-lived bearer
	// credential. Terminal for the negotiation attempt.
	ErrCredential = errors.New("credential fetch failed")
	// ErrMediaPermission reports a failure to acquire local audio capture.
	// Terminal and not retried: permission denials are not idempotently
	// retryable.
	ErrMediaPermission = errors.New("media capture unavailable")
	// ErrConnection reports a failure while constructing the peer
	// transport or exchanging the offer/answer. Terminal for the attempt.
	ErrConnection = errors.New("connection negotiation failed")
	// ErrChannelClosed reports a send attempted after close. Logged no-op
	// at the call site, never a crash.
	ErrChannelClosed = errors.New("channel is closed")
)

// Channel is an ordered bidirectional control-event transport. Message
// delivery is single-goroutine per channel, in arrival order.
type Channel interface {
	// Send enqueues an event for transmission. When the underlying
	// transport is not open it logs and returns ErrChannelClosed instead
	// of panicking; callers check session state before relying on
	// delivery.
	Send(event events.Event) error
	// SetHandlers registers the message, open and close callbacks. The
	// open callback fires once when the transport becomes writable.
	SetHandlers(onMessage func(events.Event), onOpen func(), onClose func())
	// Close is idempotent.
	Close() error
}

// Media owns the negotiated audio legs of a session.
type Media interface {
	// Stop releases capture and playback resources. Idempotent.
	Stop() error
}

// Negotiator performs the multi-step handshake and yields a live channel
// plus the media handles it attached. Failures carry exactly one of the
// taxonomy sentinels.
type Negotiator interface {
	Negotiate(ctx context.Context) (Channel, Media, error)
}

// CaptureSource supplies local audio frames for the session's uplink.
type CaptureSource interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// PlaybackSink consumes remote audio frames for local playback.
type PlaybackSink interface {
	SendAudio(audio []byte) error
}

// Config carries the externally tunable negotiation settings. StepTimeout
// bounds each step that depends on an external service so a stalled
// negotiation fails instead of hanging.
type Config struct {
	TokenURL    string
	BaseURL     string
	Model       string
	StepTimeout time.Duration
}

// DefaultStepTimeout bounds a negotiation step when the config leaves it
// unset.
const DefaultStepTimeout = 15 * time.Second

func (c Config) StepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.StepTimeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
