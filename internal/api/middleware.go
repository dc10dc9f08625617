package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/neexbeast/takeabreak/internal/profile"
)

type ctxKey int

const userKey ctxKey = iota

// UserFrom returns the authenticated user stored by Authenticate.
func UserFrom(ctx context.Context) (profile.User, bool) {
	u, ok := ctx.Value(userKey).(profile.User)
	return u, ok
}

// Authenticate returns middleware that verifies the Authorization: Bearer <token> header
// and stores the resolved user in the request context.
func Authenticate(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(auth, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, profile.ErrInvalidToken) {
					log.Error("token verification failed", "err", err)
				}
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
		})
	}
}
