// Package realtime negotiates a WebRTC session with the remote
// conversational agent and exposes its data channel as the session's
// duplex control-event transport. Audio travels in-band: the local capture
// source feeds the uplink track and remote track payloads feed the
// playback sink.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketpulse/voice-core/core/transport"
)

const (
	dataChannelLabel = "oai-events"
	uplinkFrameTime  = 20 * time.Millisecond
)

// Negotiator performs the credential → media → peer → offer/answer
// handshake. Each step is bounded by the config's step timeout; any
// failure releases everything acquired so far.
type Negotiator struct {
	config     transport.Config
	httpClient *http.Client
	capture    transport.CaptureSource
	playback   transport.PlaybackSink
}

// NegotiatorOption adjusts a negotiator at construction time.
type NegotiatorOption func(*Negotiator)

// WithCaptureSource injects the local audio capture device. Without one,
// negotiation skips the media step and the session is control-only.
func WithCaptureSource(capture transport.CaptureSource) NegotiatorOption {
	return func(n *Negotiator) { n.capture = capture }
}

// WithPlaybackSink injects the sink remote audio is forwarded to.
func WithPlaybackSink(playback transport.PlaybackSink) NegotiatorOption {
	return func(n *Negotiator) { n.playback = playback }
}

// WithHTTPClient overrides the negotiation HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) NegotiatorOption {
	return func(n *Negotiator) { n.httpClient = client }
}

func NewNegotiator(config transport.Config, opts ...NegotiatorOption) *Negotiator {
	negotiator := &Negotiator{
		config:     config,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(negotiator)
	}
	return negotiator
}

var _ transport.Negotiator = (*Negotiator)(nil)

// Negotiate runs the handshake and returns an opening channel plus the
// media handles it attached. The caller must wait for the channel's open
// signal before treating the session as active.
func (n *Negotiator) Negotiate(ctx context.Context) (transport.Channel, transport.Media, error) {
	ctx, span := tracer.Start(ctx, "negotiate realtime session")
	defer span.End()

	credentialCtx, cancelCredential := n.config.StepContext(ctx)
	credential, err := n.fetchCredential(credentialCtx)
	cancelCredential()
	if err != nil {
		return nil, nil, n.abort(span, nil, nil, fmt.Errorf("%w: %v", transport.ErrCredential, err))
	}

	mediaSession := newMediaSession(n.capture)
	if n.capture != nil {
		encoder, err := newOpusEncoder()
		if err != nil {
			return nil, nil, n.abort(span, nil, mediaSession, fmt.Errorf("%w: %v", transport.ErrConnection, err))
		}
		mediaSession.encoder = encoder
		if err := n.capture.StartCapture(ctx, mediaSession.pushUplink); err != nil {
			return nil, nil, n.abort(span, nil, mediaSession, fmt.Errorf("%w: %v", transport.ErrMediaPermission, err))
		}
	}

	peer, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, nil, n.abort(span, nil, mediaSession, fmt.Errorf("%w: failed to create peer connection: %v", transport.ErrConnection, err))
	}

	if n.capture != nil {
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio", "voice-core",
		)
		if err != nil {
			return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: failed to create local track: %v", transport.ErrConnection, err))
		}
		if _, err := peer.AddTrack(track); err != nil {
			return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: failed to attach local track: %v", transport.ErrConnection, err))
		}
		mediaSession.bindUplink(track)
	}

	if n.playback != nil {
		peer.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			go n.forwardRemoteAudio(remote)
		})
	}

	dc, err := peer.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: failed to create data channel: %v", transport.ErrConnection, err))
	}
	channel := newDataChannel(peer, dc)

	offer, err := peer.CreateOffer(nil)
	if err != nil {
		return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: failed to create offer: %v", transport.ErrConnection, err))
	}
	if err := peer.SetLocalDescription(offer); err != nil {
		return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: failed to apply local description: %v", transport.ErrConnection, err))
	}

	gatherCtx, cancelGather := n.config.StepContext(ctx)
	select {
	case <-webrtc.GatheringCompletePromise(peer):
	case <-gatherCtx.Done():
		cancelGather()
		return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: candidate gathering timed out", transport.ErrConnection))
	}
	cancelGather()

	answerCtx, cancelAnswer := n.config.StepContext(ctx)
	answer, err := n.exchangeSDP(answerCtx, credential, peer.LocalDescription().SDP)
	cancelAnswer()
	if err != nil {
		return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: %v", transport.ErrConnection, err))
	}

	if err := peer.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		return nil, nil, n.abort(span, peer, mediaSession, fmt.Errorf("%w: failed to apply remote description: %v", transport.ErrConnection, err))
	}

	return channel, mediaSession, nil
}

// abort releases every resource acquired before the failure and records it.
func (n *Negotiator) abort(span trace.Span, peer *webrtc.PeerConnection, mediaSession *MediaSession, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if mediaSession != nil {
		if stopErr := mediaSession.Stop(); stopErr != nil {
			logger.Warn("failed to release media during negotiation abort", "error", stopErr)
		}
	}
	if peer != nil {
		if closeErr := peer.Close(); closeErr != nil {
			logger.Warn("failed to close peer during negotiation abort", "error", closeErr)
		}
	}
	return err
}

func (n *Negotiator) forwardRemoteAudio(remote *webrtc.TrackRemote) {
	decoder, err := newOpusDecoder()
	if err != nil {
		logger.Warn("failed to create downlink decoder, dropping remote audio", "error", err)
		return
	}

	for {
		packet, _, err := remote.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("failed to read remote audio", "error", err)
			}
			return
		}
		if len(packet.Payload) == 0 {
			continue
		}

		pcm, err := decoder.decode(packet.Payload)
		if err != nil {
			logger.Warn("dropping undecodable remote frame", "error", err)
			continue
		}
		if err := n.playback.SendAudio(pcm); err != nil {
			logger.Warn("failed to forward remote audio to playback", "error", err)
		}
	}
}

// MediaSession owns the negotiated audio legs: the capture device, the
// encoder, and the uplink track it feeds. Frames captured before the
// track is attached are dropped.
type MediaSession struct {
	capture transport.CaptureSource
	encoder *opusEncoder

	mu     sync.Mutex
	uplink *webrtc.TrackLocalStaticSample

	stopOnce sync.Once
	stopErr  error
}

func newMediaSession(capture transport.CaptureSource) *MediaSession {
	return &MediaSession{capture: capture}
}

func (m *MediaSession) bindUplink(track *webrtc.TrackLocalStaticSample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uplink = track
}

// pushUplink runs on the capture device's callback goroutine, which is
// the encoder's only caller.
func (m *MediaSession) pushUplink(audio []byte) {
	m.mu.Lock()
	track := m.uplink
	m.mu.Unlock()
	if track == nil || m.encoder == nil {
		return
	}

	err := m.encoder.encode(audio, func(packet []byte) {
		if err := track.WriteSample(media.Sample{Data: packet, Duration: uplinkFrameTime}); err != nil {
			logger.Warn("failed to write capture frame to uplink", "error", err)
		}
	})
	if err != nil {
		logger.Warn("failed to encode capture frame", "error", err)
	}
}

// Stop releases the capture device. Idempotent; later calls return the
// first error.
func (m *MediaSession) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.uplink = nil
		m.mu.Unlock()

		if m.capture != nil {
			if err := m.capture.StopCapture(); err != nil {
				m.stopErr = fmt.Errorf("failed to stop capture: %w", err)
			}
		}
	})
	return m.stopErr
}

var _ transport.Media = (*MediaSession)(nil)
