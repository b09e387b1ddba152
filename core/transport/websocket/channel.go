// Package websocket carries the realtime control-event stream over a
// single websocket instead of a negotiated peer connection. It is the
// control-only transport: no media legs are attached, which makes it
// useful for text-driven sessions and for development against the same
// wire contract.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"

	ws "github.com/gorilla/websocket"

	"github.com/marketpulse/voice-core/core/events"
	"github.com/marketpulse/voice-core/core/transport"
)

// Negotiator dials the realtime websocket endpoint. Negotiation here is a
// single step: there is no media acquisition and no offer/answer exchange.
type Negotiator struct {
	config transport.Config
}

func NewNegotiator(config transport.Config) *Negotiator {
	return &Negotiator{config: config}
}

var _ transport.Negotiator = (*Negotiator)(nil)

func (n *Negotiator) Negotiate(ctx context.Context) (transport.Channel, transport.Media, error) {
	apiKey, ok := os.LookupEnv("OPENAI_API_KEY")
	if !ok {
		return nil, nil, fmt.Errorf("%w: api key not found", transport.ErrCredential)
	}

	endpoint, err := url.Parse(n.config.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: invalid endpoint: %v", transport.ErrConnection, err)
	}
	queryParams := endpoint.Query()
	queryParams.Set("model", n.config.Model)
	endpoint.RawQuery = queryParams.Encode()

	dialCtx, cancel := n.config.StepContext(ctx)
	defer cancel()

	conn, _, err := ws.DefaultDialer.DialContext(dialCtx, endpoint.String(), http.Header{
		"Authorization": {"Bearer " + apiKey},
		"OpenAI-Beta":   {"realtime=v1"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to open socket connection: %v", transport.ErrConnection, err)
	}

	return newChannel(conn), nil, nil
}

// channel is the duplex contract over a gorilla websocket connection. A
// single read goroutine delivers messages in arrival order.
type channel struct {
	conn *ws.Conn

	connMu    sync.Mutex
	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}

	onMessage func(events.Event)
	onOpen    func()
	onClose   func()
}

func newChannel(conn *ws.Conn) *channel {
	return &channel{conn: conn, closed: make(chan struct{})}
}

var _ transport.Channel = (*channel)(nil)

// SetHandlers registers the callbacks and starts the read loop. The open
// signal fires as soon as the loop is running, since the dialed socket is
// already writable; re-registering replaces the callbacks but never fires
// open again.
func (c *channel) SetHandlers(onMessage func(events.Event), onOpen func(), onClose func()) {
	c.connMu.Lock()
	c.onMessage = onMessage
	c.onOpen = onOpen
	c.onClose = onClose
	c.connMu.Unlock()

	c.startOnce.Do(func() {
		go c.readAndProcessMessages()
		if onOpen != nil {
			onOpen()
		}
	})
}

func (c *channel) Send(event events.Event) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.closed:
		logger.Warn("dropping send on closed channel", "type", string(event.Type))
		return transport.ErrChannelClosed
	default:
	}

	data, err := event.Encode()
	if err != nil {
		return err
	}
	if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %q event: %w", event.Type, err)
	}
	return nil
}

func (c *channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if closeErr := c.conn.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close websocket: %w", closeErr)
		}
	})
	return err
}

func (c *channel) readAndProcessMessages() {
	defer func() {
		c.connMu.Lock()
		onClose := c.onClose
		c.connMu.Unlock()
		if onClose != nil {
			onClose()
		}
	}()

	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				logger.Warn("failed to read websocket message", "error", err)
			}
			_ = c.Close()
			return
		}
		if msgType == ws.BinaryMessage {
			continue
		}

		event, parseErr := events.Parse(msg)
		if parseErr != nil {
			logger.Warn("dropping malformed channel message", "error", parseErr)
			continue
		}
		event.Direction = events.DirectionInbound
		c.connMu.Lock()
		onMessage := c.onMessage
		c.connMu.Unlock()
		if onMessage != nil {
			onMessage(event)
		}
	}
}
