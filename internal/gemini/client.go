package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"

	chatTemperature     = 0.7
	chatMaxOutputTokens = 200
)

// ErrNotConfigured is returned when no API key is set. No request is made.
var ErrNotConfigured = errors.New("gemini api key not configured")

// Config holds the client settings. Zero values select the production defaults;
// a zero Timeout leaves the transport defaults in place.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to the hosted generateContent endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient constructs a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker("gemini"),
	}
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL, apiKey string) *Client {
	return NewClient(Config{APIKey: apiKey, BaseURL: baseURL})
}

// newBreaker trips after at least five calls with an 80% failure rate.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// countsAsHealthy reports whether err says nothing about upstream health: the caller
// gave up, or the request itself was rejected (4xx other than 429).
func countsAsHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
	}
	return false
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Chat asks the model to answer the conversation using the catalog listing as context.
// Transport and upstream failures are not returned as errors: they come back as a
// Completion carrying the fallback text. Only a missing API key is an error.
func (c *Client) Chat(ctx context.Context, history []Message, listing string) (Completion, error) {
	if !c.Configured() {
		slog.Error("gemini chat skipped", "err", ErrNotConfigured)
		return Completion{}, ErrNotConfigured
	}

	contents := make([]Content, 0, len(history))
	for _, m := range history {
		contents = append(contents, Content{Role: m.Role, Parts: []Part{{Text: m.Text}}})
	}

	req := generateRequest{
		Contents: contents,
		SystemInstruction: &Content{
			Role:  "system",
			Parts: []Part{{Text: SystemInstruction(listing)}},
		},
		GenerationConfig: &GenerationConfig{
			Temperature:     chatTemperature,
			MaxOutputTokens: chatMaxOutputTokens,
		},
	}

	resp, err := c.generate(ctx, req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			slog.Error("gemini chat upstream error", "err", err)
			return Completion{Text: ErrorText, Outcome: OutcomeUpstreamError}, nil
		}
		slog.Error("gemini chat transport error", "err", err)
		return Completion{Text: ConnectionText, Outcome: OutcomeTransportError}, nil
	}

	text, ok := resp.firstText()
	if !ok {
		return Completion{Text: NoResponseText, Outcome: OutcomeNoCandidates}, nil
	}
	return Completion{Text: text, Outcome: OutcomeGenerated}, nil
}

// Vibe rewrites a location's description into a short, upbeat blurb.
func (c *Client) Vibe(ctx context.Context, name, address, description string) (string, error) {
	if !c.Configured() {
		slog.Error("gemini vibe skipped", "err", ErrNotConfigured)
		return "", ErrNotConfigured
	}

	req := generateRequest{
		Contents: []Content{{Parts: []Part{{Text: VibePrompt(name, address, description)}}}},
	}

	resp, err := c.generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generating vibe for %s: %w", name, err)
	}

	text, ok := resp.firstText()
	if !ok {
		return "", fmt.Errorf("generating vibe for %s: no candidates", name)
	}
	return text, nil
}

// generate sends one request through the circuit breaker. A structured error in the
// response body is returned as *APIError.
func (c *Client) generate(ctx context.Context, req generateRequest) (*generateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return nil, err
	}
	return out.(*generateResponse), nil
}

func (c *Client) post(ctx context.Context, body []byte) (*generateResponse, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating generateContent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The *url.Error message carries the key-bearing URL.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("POST generateContent: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding generateContent response (status %d): %w", resp.StatusCode, err)
	}

	if out.Error != nil {
		return nil, out.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode), Message: "unexpected status"}
	}

	return &out, nil
}
