// Package localstore is the device-local key-value store: drafts kept for
// guests and as the offline copy for signed-in users, plus small
// preferences like the theme. Values survive restarts but are private to
// one installation; nothing here is shared between devices.
package localstore

import "context"

const (
	// ThemeKey stores the visual theme preference.
	ThemeKey = "crux-theme"

	// GuestIDKey stores the stable pseudo-identity for draft storage
	// before sign-in.
	GuestIDKey = "crux-guest-id"

	// draftsKeyPrefix scopes draft lists per owner.
	draftsKeyPrefix = "drafts-"
)

// DraftsKey returns the storage key for an owner's draft list. The owner
// is either an identity id or the guest id.
func DraftsKey(ownerID string) string {
	return draftsKeyPrefix + ownerID
}

// Store is a flat string key-value store.
// Using an interface enables testing with the memory backend and swapping
// the persistence mechanism per deployment.
type Store interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes the value for key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
