// Package auth defines the identity-provider boundary. The engine treats
// authentication as an external service: it exchanges credentials for an
// Identity and never stores passwords itself.
package auth

import (
	"context"
	"regexp"
	"strings"

	"github.com/DonyChristie/crux/internal/model"
)

// Provider is an external identity service.
type Provider interface {
	// SignIn exchanges email/password credentials for an identity.
	SignIn(ctx context.Context, email, password string) (model.Identity, error)

	// SignUp registers a new identity and signs it in.
	SignUp(ctx context.Context, email, password string) (model.Identity, error)

	// SignInFederated exchanges a federated provider's ID token (Google)
	// for an identity.
	SignInFederated(ctx context.Context, idToken string) (model.Identity, error)
}

var authCodeDecoration = regexp.MustCompile(`\(auth.*\)`)

// SanitizeError rewrites a provider error into user-presentable text by
// stripping the "Firebase: " prefix and the parenthesized error-code
// decoration such as "(auth/wrong-password)".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Replace(err.Error(), "Firebase: ", "", 1)
	msg = authCodeDecoration.ReplaceAllString(msg, "")
	return strings.TrimSpace(msg)
}
