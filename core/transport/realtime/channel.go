package realtime

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/marketpulse/voice-core/core/events"
	"github.com/marketpulse/voice-core/core/transport"
)

// dataChannel adapts the negotiated WebRTC data channel to the duplex
// channel contract. pion delivers messages for one data channel from a
// single goroutine, which gives the contract's in-order, non-reentrant
// delivery for free.
type dataChannel struct {
	peer *webrtc.PeerConnection
	dc   *webrtc.DataChannel

	sendMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newDataChannel(peer *webrtc.PeerConnection, dc *webrtc.DataChannel) *dataChannel {
	return &dataChannel{peer: peer, dc: dc}
}

var _ transport.Channel = (*dataChannel)(nil)

func (c *dataChannel) SetHandlers(onMessage func(events.Event), onOpen func(), onClose func()) {
	if onOpen != nil {
		c.dc.OnOpen(onOpen)
	}
	if onClose != nil {
		c.dc.OnClose(onClose)
	}
	if onMessage != nil {
		c.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			event, err := events.Parse(msg.Data)
			if err != nil {
				logger.Warn("dropping malformed channel message", "error", err)
				return
			}
			event.Direction = events.DirectionInbound
			onMessage(event)
		})
	}
}

func (c *dataChannel) Send(event events.Event) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.dc.ReadyState() != webrtc.DataChannelStateOpen {
		logger.Warn("dropping send on non-open channel", "type", string(event.Type))
		return transport.ErrChannelClosed
	}

	data, err := event.Encode()
	if err != nil {
		return err
	}
	if err := c.dc.SendText(string(data)); err != nil {
		return fmt.Errorf("failed to send %q event: %w", event.Type, err)
	}
	return nil
}

// Close tears down the data channel and its peer connection. Idempotent.
func (c *dataChannel) Close() error {
	c.closeOnce.Do(func() {
		if err := c.dc.Close(); err != nil {
			c.closeErr = fmt.Errorf("failed to close data channel: %w", err)
		}
		if err := c.peer.Close(); err != nil && c.closeErr == nil {
			c.closeErr = fmt.Errorf("failed to close peer connection: %w", err)
		}
	})
	return c.closeErr
}
