// Package firebaseauth implements the identity-provider boundary against
// the Firebase Identity Toolkit REST API.
package firebaseauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/DonyChristie/crux/internal/model"
)

const defaultBaseURL = "https://identitytoolkit.googleapis.com/v1"

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithBaseURL points the client at a non-default endpoint, used
// for tests against a local stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

type authResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (model.Identity, error) {
	return c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (c *Client) SignUp(ctx context.Context, email, password string) (model.Identity, error) {
	return c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

func (c *Client) SignInFederated(ctx context.Context, idToken string) (model.Identity, error) {
	return c.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            fmt.Sprintf("id_token=%s&providerId=google.com", idToken),
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]any) (model.Identity, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.Identity{}, fmt.Errorf("identity toolkit request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error.Message == "" {
			return model.Identity{}, fmt.Errorf("identity toolkit returned status %d", resp.StatusCode)
		}
		log.Printf("[FirebaseAuth] %s rejected: %s", endpoint, apiErr.Error.Message)
		return model.Identity{}, providerError(apiErr.Error.Message)
	}

	var out authResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.Identity{}, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return model.Identity{
		ID:          out.LocalID,
		Email:       out.Email,
		DisplayName: out.DisplayName,
		AvatarURL:   out.PhotoURL,
	}, nil
}

// providerError formats a REST error code the way the hosted SDK surfaces
// it, keeping one sanitization path for both implementations.
func providerError(code string) error {
	slug := strings.ToLower(strings.ReplaceAll(code, "_", "-"))
	return fmt.Errorf("Firebase: %s (auth/%s).", code, slug)
}
