// Package memory is an in-process identity provider for tests and offline
// development. Its error messages mirror the hosted provider's format so
// the sanitization path behaves the same against either implementation.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/DonyChristie/crux/internal/model"
)

var (
	errWrongPassword     = errors.New("Firebase: The password is invalid or the user does not have a password. (auth/wrong-password).")
	errUserNotFound      = errors.New("Firebase: There is no user record corresponding to this identifier. (auth/user-not-found).")
	errEmailInUse        = errors.New("Firebase: The email address is already in use by another account. (auth/email-already-in-use).")
	errInvalidToken      = errors.New("Firebase: The supplied auth credential is malformed or has expired. (auth/invalid-credential).")
	errPasswordTooShort  = errors.New("Firebase: Password should be at least 6 characters (auth/weak-password).")
	errMalformedIdentity = errors.New("Firebase: The email address is badly formatted. (auth/invalid-email).")
)

type account struct {
	password string
	identity model.Identity
}

type Provider struct {
	mu        sync.Mutex
	accounts  map[string]account        // keyed by lowercased email
	federated map[string]model.Identity // keyed by ID token
}

func NewProvider() *Provider {
	return &Provider{
		accounts:  make(map[string]account),
		federated: make(map[string]model.Identity),
	}
}

// Seed registers an account without going through SignUp. Test helper.
func (p *Provider) Seed(email, password string, identity model.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[strings.ToLower(email)] = account{password: password, identity: identity}
}

// SeedFederated registers an identity reachable through the given ID token.
func (p *Provider) SeedFederated(idToken string, identity model.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.federated[idToken] = identity
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[strings.ToLower(email)]
	if !ok {
		return model.Identity{}, errUserNotFound
	}
	if acct.password != password {
		return model.Identity{}, errWrongPassword
	}
	return acct.identity, nil
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (model.Identity, error) {
	if !strings.Contains(email, "@") {
		return model.Identity{}, errMalformedIdentity
	}
	if len(password) < 6 {
		return model.Identity{}, errPasswordTooShort
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := p.accounts[key]; exists {
		return model.Identity{}, errEmailInUse
	}

	identity := model.Identity{ID: uuid.NewString(), Email: email}
	p.accounts[key] = account{password: password, identity: identity}
	return identity, nil
}

func (p *Provider) SignInFederated(ctx context.Context, idToken string) (model.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	identity, ok := p.federated[idToken]
	if !ok {
		return model.Identity{}, errInvalidToken
	}
	return identity, nil
}
