// Package stocks is the HTTP client for the stock data backend: dated
// movement histories for the remote tool handler and the cached headline
// feed.
package stocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Movement is one dated price move with its explanation.
type Movement struct {
	Date          string   `json:"date"`
	PercentChange float64  `json:"percentChange"`
	Direction     string   `json:"direction"`
	Story         string   `json:"story"`
	Sources       []string `json:"sources,omitempty"`
}

// Stock groups the movements reported for one symbol.
type Stock struct {
	Symbol    string     `json:"symbol"`
	Movements []Movement `json:"movements"`
}

// MovementReport is the backend's answer to a movement query.
type MovementReport struct {
	Timeframe string `json:"timeframe"`
	Stock     Stock  `json:"stock"`
}

// Headline is one cached news item from the backend feed.
type Headline struct {
	Ticker  string   `json:"ticker,omitempty"`
	Title   string   `json:"title"`
	Story   string   `json:"story,omitempty"`
	Sources []string `json:"sources,omitempty"`
}

// Client talks to the stock data backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption adjusts a client at construction time.
type ClientOption func(*Client)

// WithHTTPClient overrides the backend HTTP client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Movement queries the backend for a ticker's dated movements over a
// timeframe. Non-success statuses are errors; the caller converts them
// into a conversational follow-up.
func (c *Client) Movement(ctx context.Context, ticker, timeframe string) (*MovementReport, error) {
	ctx, span := tracer.Start(ctx, "query stock movement")
	defer span.End()
	span.SetAttributes(
		attribute.String("stock.ticker", ticker),
		attribute.String("stock.timeframe", timeframe),
	)

	requestBody, err := json.Marshal(struct {
		Ticker    string `json:"ticker"`
		Timeframe string `json:"timeframe"`
	}{Ticker: ticker, Timeframe: timeframe})
	if err != nil {
		err = fmt.Errorf("error marshalling movement request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stock-movement", bytes.NewBuffer(requestBody))
	if err != nil {
		err = fmt.Errorf("error creating movement request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error querying stock movement: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("non-OK HTTP status from stock backend: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var report MovementReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		err = fmt.Errorf("error decoding movement response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &report, nil
}

// News fetches the backend's cached headline feed.
func (c *Client) News(ctx context.Context) ([]Headline, error) {
	ctx, span := tracer.Start(ctx, "fetch news feed")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getNews", nil)
	if err != nil {
		err = fmt.Errorf("error creating news request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error fetching news: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("non-OK HTTP status from news feed: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var headlines []Headline
	if err := json.NewDecoder(resp.Body).Decode(&headlines); err != nil {
		err = fmt.Errorf("error decoding news response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return headlines, nil
}
