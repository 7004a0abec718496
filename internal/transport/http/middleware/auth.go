package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/DonyChristie/crux/internal/httputil"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// SessionIDKey is the context key for the caller's engine session id
	SessionIDKey contextKey = "session_id"
)

// SessionAuthMiddleware validates the session token minted at session
// creation. Checks the Authorization header first, then falls back to
// the session cookie.
func SessionAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				// Expected format: "Bearer <token>"
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				cookie, err := r.Cookie("session_token")
				if err == nil && cookie.Value != "" {
					tokenString = cookie.Value
				}
			}

			// Browser websocket clients cannot set headers, so the token
			// may also ride the query string on the stream endpoint.
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}

			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing session token")
				return
			}

			sessionID, err := ParseSessionToken(jwtSecret, tokenString)
			if err != nil {
				httputil.WriteUnauthorized(w, "Invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IssueSessionToken mints the signed token carrying the session id.
func IssueSessionToken(jwtSecret, sessionID string, maxAgeSeconds int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"iat":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(now.Add(time.Duration(maxAgeSeconds) * time.Second)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ParseSessionToken validates the token and returns the session id.
func ParseSessionToken(jwtSecret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return sessionID, nil
}

// GetSessionIDFromContext extracts the session id from the request
// context. Returns false when the request skipped the auth middleware.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}
