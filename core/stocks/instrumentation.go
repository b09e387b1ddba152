package stocks

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/marketpulse/voice-core/core/stocks"

var tracer = otel.Tracer(scopeName)
