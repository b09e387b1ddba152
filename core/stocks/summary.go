package stocks

import (
	"fmt"
	"math"
	"strings"
)

// SummaryInstructions turns a movement report into the steering text for
// the follow-up response. The pick is deterministic: the movement with the
// largest absolute percent change wins, first listed wins ties, and a
// report with no nonzero movements falls back to the generic summary.
func SummaryInstructions(report *MovementReport) string {
	significant := mostSignificantMovement(report.Stock.Movements)
	if significant == nil {
		return fmt.Sprintf(
			"Briefly summarize the historical movements of %s during %s, noting very briefly the key events that affected the stock price.",
			report.Stock.Symbol, report.Timeframe,
		)
	}

	moved := "fell"
	if significant.Direction == "up" {
		moved = "rose"
	}

	return fmt.Sprintf(
		"Briefly summarize that %s %s %g%% on %s during %s. The main reason was: %s.",
		report.Stock.Symbol,
		moved,
		math.Abs(significant.PercentChange),
		significant.Date,
		report.Timeframe,
		leadSentence(significant.Story),
	)
}

func mostSignificantMovement(movements []Movement) *Movement {
	var significant *Movement
	for i := range movements {
		movement := &movements[i]
		if movement.PercentChange == 0 {
			continue
		}
		if significant == nil || math.Abs(movement.PercentChange) > math.Abs(significant.PercentChange) {
			significant = movement
		}
	}
	return significant
}

func leadSentence(story string) string {
	lead, _, _ := strings.Cut(story, ".")
	return strings.TrimSpace(lead)
}
