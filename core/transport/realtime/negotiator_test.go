package realtime

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/marketpulse/voice-core/core/transport"
)

type deniedCapture struct {
	mu    sync.Mutex
	stops int
}

func (c *deniedCapture) StartCapture(context.Context, func([]byte)) error {
	return errors.New("microphone permission denied")
}

func (c *deniedCapture) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *deniedCapture) stopCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

func tokenServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"client_secret":{"value":"` + secret + `"}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchCredentialParsesClientSecret(t *testing.T) {
	server := tokenServer(t, "ephemeral-key")
	negotiator := NewNegotiator(transport.Config{TokenURL: server.URL}, WithHTTPClient(server.Client()))

	credential, err := negotiator.fetchCredential(context.Background())
	if err != nil {
		t.Fatalf("expected credential fetch to succeed, got %v", err)
	}
	if credential != "ephemeral-key" {
		t.Fatalf("expected the client secret value, got %q", credential)
	}
}

func TestFetchCredentialRejectsEmptySecret(t *testing.T) {
	server := tokenServer(t, "")
	negotiator := NewNegotiator(transport.Config{TokenURL: server.URL}, WithHTTPClient(server.Client()))

	if _, err := negotiator.fetchCredential(context.Background()); err == nil {
		t.Fatalf("expected an error for a token response without a client secret")
	}
}

func TestFetchCredentialReportsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no session for you", http.StatusInternalServerError)
	}))
	defer server.Close()

	negotiator := NewNegotiator(transport.Config{TokenURL: server.URL}, WithHTTPClient(server.Client()))
	if _, err := negotiator.fetchCredential(context.Background()); err == nil {
		t.Fatalf("expected an error for a non-OK token status")
	}
}

func TestExchangeSDPPostsOfferWithBearerCredential(t *testing.T) {
	var gotAuth, gotContentType, gotModel, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotModel = r.URL.Query().Get("model")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte("v=0 answer"))
	}))
	defer server.Close()

	negotiator := NewNegotiator(transport.Config{
		BaseURL: server.URL,
		Model:   "gpt-4o-realtime-preview-2024-12-17",
	}, WithHTTPClient(server.Client()))

	answer, err := negotiator.exchangeSDP(context.Background(), "secret", "v=0 offer")
	if err != nil {
		t.Fatalf("expected the offer exchange to succeed, got %v", err)
	}
	if answer != "v=0 answer" {
		t.Fatalf("expected the answer body verbatim, got %q", answer)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected the bearer credential on the exchange, got %q", gotAuth)
	}
	if gotContentType != "application/sdp" {
		t.Fatalf("expected an sdp content type, got %q", gotContentType)
	}
	if gotModel != "gpt-4o-realtime-preview-2024-12-17" {
		t.Fatalf("expected the model as a query parameter, got %q", gotModel)
	}
	if gotBody != "v=0 offer" {
		t.Fatalf("expected the local offer as the request body, got %q", gotBody)
	}
}

func TestExchangeSDPReportsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad offer", http.StatusUnauthorized)
	}))
	defer server.Close()

	negotiator := NewNegotiator(transport.Config{BaseURL: server.URL}, WithHTTPClient(server.Client()))
	if _, err := negotiator.exchangeSDP(context.Background(), "secret", "v=0 offer"); err == nil {
		t.Fatalf("expected an error for a non-OK negotiation status")
	}
}

func TestNegotiateCredentialFailureCarriesSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token endpoint down", http.StatusBadGateway)
	}))
	defer server.Close()

	negotiator := NewNegotiator(transport.Config{TokenURL: server.URL}, WithHTTPClient(server.Client()))
	if _, _, err := negotiator.Negotiate(context.Background()); !errors.Is(err, transport.ErrCredential) {
		t.Fatalf("expected ErrCredential from a failed token fetch, got %v", err)
	}
}

func TestNegotiateMediaFailureReleasesCapture(t *testing.T) {
	server := tokenServer(t, "secret")
	capture := &deniedCapture{}
	negotiator := NewNegotiator(transport.Config{TokenURL: server.URL, BaseURL: server.URL},
		WithCaptureSource(capture), WithHTTPClient(server.Client()))

	channel, media, err := negotiator.Negotiate(context.Background())
	if !errors.Is(err, transport.ErrMediaPermission) {
		t.Fatalf("expected ErrMediaPermission from a denied capture, got %v", err)
	}
	if channel != nil || media != nil {
		t.Fatalf("expected no channel or media handles after a media failure")
	}
	if capture.stopCalls() == 0 {
		t.Fatalf("expected the capture device released on abort")
	}
}

func TestPCMByteConversionRoundTrips(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1234}

	got := pcmFromBytes(bytesFromPCM(samples))
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples back, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("expected sample %d to survive the round trip, got %d at index %d", samples[i], got[i], i)
		}
	}
}
