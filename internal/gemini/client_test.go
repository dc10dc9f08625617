package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/takeabreak/internal/gemini"
)

type capturedRequest struct {
	Path string
	Key  string
	Body map[string]any
}

func replyHandler(t *testing.T, text string, captured *capturedRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.Path = r.URL.Path
			captured.Key = r.URL.Query().Get("key")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured.Body))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
			},
		})
	}
}

func history() []gemini.Message {
	return []gemini.Message{
		{Role: "model", Text: "Hello!"},
		{Role: "user", Text: "a place with a rating over 4.5"},
	}
}

func TestChat_Success(t *testing.T) {
	var captured capturedRequest
	srv := httptest.NewServer(replyHandler(t, "I recommend Beans & Dots, rated 4.8/5.", &captured))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	got, err := c.Chat(context.Background(), history(), "Name: Beans & Dots; Rating: 4.8/5")
	require.NoError(t, err)

	assert.Equal(t, gemini.OutcomeGenerated, got.Outcome)
	assert.True(t, got.Generated())
	assert.Equal(t, "I recommend Beans & Dots, rated 4.8/5.", got.Text)

	assert.Equal(t, "/models/gemini-2.0-flash:generateContent", captured.Path)
	assert.Equal(t, "test-key", captured.Key)

	contents := captured.Body["contents"].([]any)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].(map[string]any)["role"])
	assert.Equal(t, "user", contents[1].(map[string]any)["role"])

	cfg := captured.Body["generationConfig"].(map[string]any)
	assert.Equal(t, 0.7, cfg["temperature"])
	assert.Equal(t, float64(200), cfg["maxOutputTokens"])

	sys := captured.Body["systemInstruction"].(map[string]any)
	sysText := sys["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Equal(t, 2, strings.Count(sysText, "Name: Beans & Dots; Rating: 4.8/5"), "listing is duplicated")
	assert.Contains(t, sysText, "EXACT NAME")
}

func TestChat_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	got, err := c.Chat(context.Background(), history(), "listing")
	require.NoError(t, err)
	assert.Equal(t, gemini.OutcomeNoCandidates, got.Outcome)
	assert.Equal(t, gemini.NoResponseText, got.Text)
	assert.False(t, got.Generated())
}

func TestChat_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "bad-key")
	got, err := c.Chat(context.Background(), history(), "listing")
	require.NoError(t, err)
	assert.Equal(t, gemini.OutcomeUpstreamError, got.Outcome)
	assert.Equal(t, gemini.ErrorText, got.Text)
	assert.NotContains(t, got.Text, "API key not valid", "detail is logged, not shown")
}

func TestChat_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := gemini.NewClientWithURL(url, "test-key")
	got, err := c.Chat(context.Background(), history(), "listing")
	require.NoError(t, err)
	assert.Equal(t, gemini.OutcomeTransportError, got.Outcome)
	assert.Equal(t, gemini.ConnectionText, got.Text)
}

func TestChat_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	got, err := c.Chat(context.Background(), history(), "listing")
	require.NoError(t, err)
	assert.Equal(t, gemini.OutcomeTransportError, got.Outcome)
}

func TestChat_NotConfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "")
	assert.False(t, c.Configured())

	_, err := c.Chat(context.Background(), history(), "listing")
	require.ErrorIs(t, err, gemini.ErrNotConfigured)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "no call without a key")
}

func TestChat_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	for i := 0; i < 5; i++ {
		got, err := c.Chat(context.Background(), history(), "listing")
		require.NoError(t, err)
		assert.Equal(t, gemini.OutcomeUpstreamError, got.Outcome)
	}

	got, err := c.Chat(context.Background(), history(), "listing")
	require.NoError(t, err)
	assert.Equal(t, gemini.OutcomeTransportError, got.Outcome, "open breaker reports a connection problem")
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}

func TestChat_CancelledCallsDoNotOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(replyHandler(t, "still here", nil))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	for i := 0; i < 8; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		got, err := c.Chat(ctx, history(), "listing")
		require.NoError(t, err)
		assert.Equal(t, gemini.OutcomeTransportError, got.Outcome)
	}

	got, err := c.Chat(context.Background(), history(), "listing")
	require.NoError(t, err)
	assert.Equal(t, gemini.OutcomeGenerated, got.Outcome, "abandoned requests say nothing about upstream health")
	assert.Equal(t, "still here", got.Text)
}

func TestChat_RejectedRequestsDoNotOpenBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	for i := 0; i < 8; i++ {
		got, err := c.Chat(context.Background(), history(), "listing")
		require.NoError(t, err)
		assert.Equal(t, gemini.OutcomeUpstreamError, got.Outcome)
	}
	assert.Equal(t, int32(8), atomic.LoadInt32(&hits), "every request reaches upstream")
}

func TestVibe_Success(t *testing.T) {
	var captured capturedRequest
	srv := httptest.NewServer(replyHandler(t, "Cozy corners ☕️", &captured))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	got, err := c.Vibe(context.Background(), "Beans & Dots", "Str. Episcopiei 3, Bucharest", "Specialty coffee")
	require.NoError(t, err)
	assert.Equal(t, "Cozy corners ☕️", got)

	_, hasSys := captured.Body["systemInstruction"]
	assert.False(t, hasSys)
	contents := captured.Body["contents"].([]any)
	text := contents[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, `"Beans & Dots"`)
	assert.Contains(t, text, "max 100 words")
}

func TestVibe_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := gemini.NewClientWithURL(srv.URL, "test-key")
	_, err := c.Vibe(context.Background(), "Olivo", "Piata Unirii 25, Cluj-Napoca", "Cafe")
	require.Error(t, err)

	var apiErr *gemini.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
}

func TestVibe_NotConfigured(t *testing.T) {
	c := gemini.NewClient(gemini.Config{})
	_, err := c.Vibe(context.Background(), "Olivo", "addr", "desc")
	require.ErrorIs(t, err, gemini.ErrNotConfigured)
}

func TestSystemInstruction_DuplicatesListing(t *testing.T) {
	got := gemini.SystemInstruction("LISTING")
	assert.Equal(t, 2, strings.Count(got, "LISTING"))
	assert.Contains(t, got, "- LISTING\nLISTING")
}
