package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/neexbeast/takeabreak/internal/chat"
	"github.com/neexbeast/takeabreak/internal/gemini"
	"github.com/neexbeast/takeabreak/internal/location"
	"github.com/neexbeast/takeabreak/internal/profile"
	"github.com/neexbeast/takeabreak/internal/session"
)

// maxAvatarBytes caps profile picture uploads.
const maxAvatarBytes = 5 << 20

var errNoPositionFix = errors.New("no location fix supplied with the message")

type messageRequest struct {
	Text               string                    `json:"text" validate:"required,max=2000"`
	Location           *location.UserCoordinates `json:"location" validate:"omitempty"`
	LocationPermission string                    `json:"location_permission" validate:"omitempty,oneof=granted denied"`
}

// requestPosition serves the device fix the client attached to a chat message.
type requestPosition struct {
	fix    *location.UserCoordinates
	denied bool
}

func (p requestPosition) Position(_ context.Context) (location.UserCoordinates, error) {
	switch {
	case p.denied:
		return location.UserCoordinates{}, chat.ErrPermissionDenied
	case p.fix == nil:
		return location.UserCoordinates{}, errNoPositionFix
	default:
		return *p.fix, nil
	}
}

// PostMessage handles POST /api/v1/chat/messages.
// Returns 409 while another message from the same user is being answered.
func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, _ := UserFrom(r.Context())

	positions := requestPosition{fix: req.Location, denied: req.LocationPermission == "denied"}
	ex, err := h.chat.Send(r.Context(), user.ID, req.Text, positions)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ex)
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrExchangeInFlight):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, gemini.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "chat unavailable")
	default:
		h.log.Error("chat exchange failed", "session", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "chat exchange failed")
	}
}

// GetTranscript handles GET /api/v1/chat/transcript.
func (h *Handlers) GetTranscript(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	turns, pending := h.chat.Transcript(user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns, "pending": pending})
}

// GetState handles GET /api/v1/state.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.currentSession(r)
	writeJSON(w, http.StatusOK, sess.State.Snapshot())
}

type modeRequest struct {
	Mode   string `json:"mode" validate:"omitempty,oneof=list map"`
	Toggle bool   `json:"toggle"`
}

// PutMode handles PUT /api/v1/state/mode with either {"mode": "list"|"map"} or {"toggle": true}.
func (h *Handlers) PutMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Toggle && req.Mode == "" {
		writeError(w, http.StatusBadRequest, "mode or toggle is required")
		return
	}
	sess, _ := h.currentSession(r)

	if req.Toggle {
		sess.State.ToggleMode()
	} else if err := sess.State.SetMode(session.Mode(req.Mode)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.State.Snapshot())
}

// PutUserLocation handles PUT /api/v1/state/user-location.
func (h *Handlers) PutUserLocation(w http.ResponseWriter, r *http.Request) {
	var req location.UserCoordinates
	if !h.decode(w, r, &req) {
		return
	}
	sess, _ := h.currentSession(r)
	sess.State.SetUserLocation(&req)
	writeJSON(w, http.StatusOK, sess.State.Snapshot())
}

// ConsumeRecommendation handles POST /api/v1/state/recommendation/consume.
// The map reads and clears the recommendation in one step; 204 when there is none.
func (h *Handlers) ConsumeRecommendation(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.currentSession(r)
	loc, ok := sess.State.ConsumeRecommended()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, detail(loc))
}

// ClearRecommendation handles DELETE /api/v1/state/recommendation.
func (h *Handlers) ClearRecommendation(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.currentSession(r)
	sess.State.ClearRecommended()
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/v1/profile.
// It returns the authenticated user's id, email, username and avatar URL.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UploadAvatar handles POST /api/v1/profile/avatar (multipart field "file").
func (h *Handlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	if len(body) > maxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "avatar too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}

	user, _ := UserFrom(r.Context())
	avatarURL, err := h.avatars.UploadAvatar(r.Context(), user, header.Filename, contentType, bytes.NewReader(body))
	if err != nil {
		if errors.Is(err, profile.ErrUnsupportedMedia) {
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		h.log.Error("avatar upload failed", "user", user.ID, "err", err)
		writeError(w, http.StatusBadGateway, "failed to upload avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar_url": avatarURL})
}
