package model

import (
	"errors"
	"strings"
	"time"
)

// Identity is the signed-in user as reported by the auth provider.
// It is read-only to this system except for profile mirroring: on each
// sign-in the session merge-writes display name and timestamps to the
// identity's profile document.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Profile is the mirrored users/{id} document.
type Profile struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	LastPostAt  *time.Time `json:"last_post_at,omitempty"`
}

// DisplayLabel returns the name shown next to authored content:
// display name, else the local part of the email, else "Anonymous".
func (i *Identity) DisplayLabel() string {
	if i == nil {
		return "Anonymous"
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		if at := strings.IndexByte(i.Email, '@'); at > 0 {
			return i.Email[:at]
		}
		return i.Email
	}
	return "Anonymous"
}

var (
	// ErrSignInRequired is returned when an action needs an authenticated identity.
	ErrSignInRequired = errors.New("sign in required")

	// ErrNotOwner is returned when an action targets content the identity does not own.
	ErrNotOwner = errors.New("not the owner of this content")

	// ErrInvalidCredentials is returned when the auth provider rejects credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
