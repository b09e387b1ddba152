// voicedesk is a terminal front-end for a realtime voice session: it
// starts and stops the session, shows the event log and presence, and
// surfaces the built-in tools' effects.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	session "github.com/marketpulse/voice-core/core"
	"github.com/marketpulse/voice-core/core/audio/miniaudio"
	"github.com/marketpulse/voice-core/core/audio/portaudio"
	"github.com/marketpulse/voice-core/core/stocks"
	"github.com/marketpulse/voice-core/core/transport"
	"github.com/marketpulse/voice-core/core/transport/realtime"
	"github.com/marketpulse/voice-core/core/transport/websocket"
)

type config struct {
	TokenURL    string        `envconfig:"TOKEN_URL" default:"http://localhost:3000/api/voice/token"`
	RealtimeURL string        `envconfig:"REALTIME_URL" default:"https://api.openai.com/v1/realtime"`
	Model       string        `envconfig:"MODEL" default:"gpt-4o-realtime-preview-2024-12-17"`
	BackendURL  string        `envconfig:"BACKEND_URL" default:"http://localhost:8000"`
	StepTimeout time.Duration `envconfig:"STEP_TIMEOUT" default:"15s"`

	// Transport picks the negotiation strategy: "webrtc" carries audio
	// in-band on a peer connection, "websocket" is a control-only channel
	// for text-driven sessions.
	Transport string `envconfig:"TRANSPORT" default:"webrtc"`
	// CaptureDriver picks the microphone backend for the webrtc
	// transport: "miniaudio" or "portaudio".
	CaptureDriver string `envconfig:"CAPTURE_DRIVER" default:"miniaudio"`
	// CaptureBufferFrames sizes the portaudio read buffer.
	CaptureBufferFrames int `envconfig:"CAPTURE_BUFFER_FRAMES" default:"480"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	var cfg config
	if err := envconfig.Process("voicedesk", &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "failed to parse configuration:", err)
		os.Exit(1)
	}

	transportConfig := transport.Config{
		TokenURL:    cfg.TokenURL,
		BaseURL:     cfg.RealtimeURL,
		Model:       cfg.Model,
		StepTimeout: cfg.StepTimeout,
	}

	var negotiator transport.Negotiator
	switch cfg.Transport {
	case "websocket":
		negotiator = websocket.NewNegotiator(transportConfig)
	default:
		audioClient, err := miniaudio.NewClient()
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to initialize audio devices:", err)
			os.Exit(1)
		}
		defer audioClient.Close()

		var capture transport.CaptureSource = audioClient
		if cfg.CaptureDriver == "portaudio" {
			captureClient, err := portaudio.NewClient(cfg.CaptureBufferFrames)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed to initialize portaudio capture:", err)
				os.Exit(1)
			}
			defer captureClient.Close()
			capture = captureClient
		}

		negotiator = realtime.NewNegotiator(transportConfig,
			realtime.WithCaptureSource(capture),
			realtime.WithPlaybackSink(audioClient),
		)
	}

	stockClient := stocks.NewClient(cfg.BackendURL)
	board := newNoticeBoard()
	sess := session.New(negotiator,
		session.WithTools(session.DefaultTools(board, stockClient)...),
	)
	defer sess.Stop()

	program := tea.NewProgram(newModel(sess, stockClient, board), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "voicedesk exited with an error:", err)
		os.Exit(1)
	}
}
