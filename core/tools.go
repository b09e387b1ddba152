package session

import (
	"context"

	"github.com/marketpulse/voice-core/core/stocks"
	"github.com/marketpulse/voice-core/core/tools"
)

// Capability is the application surface local-effect tools act on. The
// host owns the state behind it and serializes its own mutations; tools
// only request the effect.
type Capability interface {
	ShowColorPalette(theme string, colors []string)
	Print(message string)
	FollowStock(ticker string)
}

// DefaultTools builds the built-in tool set: three local-effect tools
// acting through the capability and one remote tool backed by the stock
// data client.
func DefaultTools(capability Capability, stockClient *stocks.Client) []tools.Tool {
	return []tools.Tool{
		tools.NewTool("display_color_palette", "Call this function when a user asks for a color palette.",
			map[string]tools.ParameterBase{
				"theme": {Type: "string", Description: "Description of the theme for the color scheme."},
				"colors": {
					Type:        "array",
					Description: "Array of five hex color codes based on the theme.",
					Items:       &tools.ParameterBase{Type: "string", Description: "Hex color code"},
				},
			},
			func(_ context.Context, parameters struct {
				Theme  string   `json:"theme"`
				Colors []string `json:"colors"`
			}) (string, error) {
				capability.ShowColorPalette(parameters.Theme, parameters.Colors)
				return "ask for feedback about the color palette - don't repeat the colors, just ask if they like the colors.", nil
			}),
		tools.NewTool("console_print", "Print a message to the console when the user asks to print something.",
			map[string]tools.ParameterBase{
				"message": {Type: "string", Description: "The message to print to the console"},
			},
			func(_ context.Context, parameters struct {
				Message string `json:"message"`
			}) (string, error) {
				capability.Print(parameters.Message)
				return "Ask if they want to print something else.", nil
			}),
		tools.NewTool("follow_stock", "Follow a stock when the user asks to follow or track a specific stock.",
			map[string]tools.ParameterBase{
				"ticker": {Type: "string", Description: "The stock ticker symbol to follow (e.g., AAPL, MSFT, TSLA)"},
			},
			func(_ context.Context, parameters struct {
				Ticker string `json:"ticker"`
			}) (string, error) {
				capability.FollowStock(parameters.Ticker)
				return "Confirm that you've added the stock to their following list.", nil
			}),
		tools.NewTool("get_stock_movement", "Get historical stock movement data explaining why a stock rose or fell during a specific timeframe",
			map[string]tools.ParameterBase{
				"ticker":    {Type: "string", Description: "The stock ticker symbol or name"},
				"timeframe": {Type: "string", Description: "The historical timeframe to check (e.g., 'January 2023', 'Q2 2022')"},
			},
			func(ctx context.Context, parameters struct {
				Ticker    string `json:"ticker"`
				Timeframe string `json:"timeframe"`
			}) (string, error) {
				report, err := stockClient.Movement(ctx, parameters.Ticker, parameters.Timeframe)
				if err != nil {
					return "", err
				}
				return stocks.SummaryInstructions(report), nil
			},
			tools.WithAcknowledgement("I'll fetch the historical stock data for you. This may take a moment."),
			tools.WithFailureInstructions("Apologize for not being able to fetch stock movement data. Ask if they'd like to try again with a different stock or timeframe."),
		),
	}
}
