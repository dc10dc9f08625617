package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// AvatarBucket is the object-storage bucket holding profile pictures.
const AvatarBucket = "avatars"

var (
	// ErrUnsupportedMedia is returned for uploads that are not images.
	ErrUnsupportedMedia = errors.New("avatar must be an image")
	// ErrInvalidToken is returned when an access token cannot be verified.
	ErrInvalidToken = errors.New("invalid access token")
)

// User is an authenticated account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	AccessToken string `json:"-"`
}

// ObjectStore stores files and resolves their public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) error
	PublicURL(bucket, path string) string
}

// MetadataUpdater writes the avatar URL onto the user's metadata.
type MetadataUpdater interface {
	SetAvatarURL(ctx context.Context, user User, url string) error
}

// Service handles profile picture uploads.
type Service struct {
	store ObjectStore
	users MetadataUpdater
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store ObjectStore, users MetadataUpdater) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// SetClock replaces the time source (for tests).
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// AvatarPath returns the object path for an upload: <user-id>/<unix-millis>.<ext>.
func AvatarPath(userID, filename string, at time.Time) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), ext)
}

// UploadAvatar stores body and points the user's avatar_url at it.
// It returns the public URL of the stored image.
func (s *Service) UploadAvatar(ctx context.Context, user User, filename, contentType string, body io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedMedia
	}

	path := AvatarPath(user.ID, filename, s.now())
	if err := s.store.Upload(ctx, AvatarBucket, path, contentType, body); err != nil {
		return "", fmt.Errorf("uploading avatar for user %s: %w", user.ID, err)
	}

	url := s.store.PublicURL(AvatarBucket, path)
	if err := s.users.SetAvatarURL(ctx, user, url); err != nil {
		return "", fmt.Errorf("updating avatar url for user %s: %w", user.ID, err)
	}

	return url, nil
}
