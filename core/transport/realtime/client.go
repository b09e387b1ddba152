package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// fetchCredential obtains the short-lived bearer credential from the token
// endpoint: GET → {client_secret: {value}}.
func (n *Negotiator) fetchCredential(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "fetch session credential")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.config.TokenURL, nil)
	if err != nil {
		err = fmt.Errorf("error creating token request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error fetching token: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("non-OK HTTP status from token endpoint: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var body struct {
		ClientSecret struct {
			Value string `json:"value"`
		} `json:"client_secret"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		err = fmt.Errorf("error decoding token response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if body.ClientSecret.Value == "" {
		err := fmt.Errorf("token response carried no client secret")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return body.ClientSecret.Value, nil
}

// exchangeSDP posts the local offer to the negotiation endpoint and returns
// the remote answer verbatim.
func (n *Negotiator) exchangeSDP(ctx context.Context, credential, offerSDP string) (string, error) {
	ctx, span := tracer.Start(ctx, "exchange session description")
	defer span.End()

	url := n.config.BaseURL + "?model=" + n.config.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(offerSDP))
	if err != nil {
		err = fmt.Errorf("error creating negotiation request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := n.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending offer: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("non-OK HTTP status from negotiation endpoint: %s", resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("error reading answer body: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return string(answer), nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
