package websocket

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/marketpulse/voice-core/core/transport/websocket"

var logger = otelslog.NewLogger(scopeName)
