package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/supabase-community/gotrue-go/types"
	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// Supabase adapts a supabase-go client to ObjectStore, MetadataUpdater and token verification.
// The underlying SDK calls take no context.
type Supabase struct {
	client *supabase.Client
}

// NewSupabase connects with the project URL and service key.
func NewSupabase(url, serviceKey string) (*Supabase, error) {
	client, err := supabase.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	return &Supabase{client: client}, nil
}

// VerifyToken resolves an access token to its user.
func (s *Supabase) VerifyToken(_ context.Context, token string) (User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return User{}, ErrInvalidToken
	}

	resp, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		// A transport failure says nothing about the token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return User{}, fmt.Errorf("verifying token: %w", err)
		}
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return User{
		ID:          resp.ID.String(),
		Email:       resp.Email,
		Username:    metadataString(resp.UserMetadata, "username"),
		AvatarURL:   metadataString(resp.UserMetadata, "avatar_url"),
		AccessToken: token,
	}, nil
}

func metadataString(meta map[string]interface{}, key string) string {
	v, _ := meta[key].(string)
	return v
}

// Upload writes body to bucket/path.
func (s *Supabase) Upload(_ context.Context, bucket, path, contentType string, body io.Reader) error {
	if _, err := s.client.Storage.UploadFile(bucket, path, body, storage_go.FileOptions{ContentType: &contentType}); err != nil {
		return fmt.Errorf("storing %s/%s: %w", bucket, path, err)
	}
	return nil
}

// PublicURL returns the public link of bucket/path.
func (s *Supabase) PublicURL(bucket, path string) string {
	return s.client.Storage.GetPublicUrl(bucket, path).SignedURL
}

// SetAvatarURL updates the user's avatar_url metadata with their own token.
func (s *Supabase) SetAvatarURL(_ context.Context, user User, url string) error {
	_, err := s.client.Auth.WithToken(user.AccessToken).UpdateUser(types.UpdateUserRequest{
		Data: map[string]interface{}{"avatar_url": url},
	})
	if err != nil {
		return fmt.Errorf("updating user metadata: %w", err)
	}
	return nil
}
