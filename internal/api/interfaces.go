package api

import (
	"context"
	"io"
	"net/http"

	"github.com/neexbeast/takeabreak/internal/chat"
	"github.com/neexbeast/takeabreak/internal/location"
	"github.com/neexbeast/takeabreak/internal/profile"
	"github.com/neexbeast/takeabreak/internal/session"
)

// SessionStore resolves per-user app sessions.
type SessionStore interface {
	Get(id string) *session.Session
}

// ChatService runs chat exchanges.
type ChatService interface {
	Send(ctx context.Context, sessionID, text string, positions chat.PositionSource) (*chat.Exchange, error)
	Transcript(sessionID string) ([]session.Turn, bool)
}

// VibeService produces cached location blurbs.
type VibeService interface {
	Get(ctx context.Context, loc location.Location) (string, error)
	Refresh(ctx context.Context, loc location.Location) (string, error)
	WarmAll(ctx context.Context, records []location.Location) (int, error)
}

// AvatarUploader stores profile pictures.
type AvatarUploader interface {
	UploadAvatar(ctx context.Context, user profile.User, filename, contentType string, body io.Reader) (string, error)
}

// TokenVerifier resolves bearer tokens to users.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (profile.User, error)
}

// Pinger reports backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsCollector instruments requests and serves the scrape endpoint.
type MetricsCollector interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}
