package model

import (
	"errors"
	"time"
)

// Draft is an unpublished snapshot of the compose form. A draft exists in
// two possibly-divergent stores: the local key-value store (per identity or
// guest) and the remote drafts collection (authenticated identities only).
// Its id is stable once created; the remote store is authoritative for id
// allocation when online.
type Draft struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft errors
var (
	ErrNothingToSave = errors.New("nothing to save")
	ErrDraftNotFound = errors.New("draft not found")
)

// IsEmpty reports whether the draft has no content worth persisting.
func (d *Draft) IsEmpty() bool {
	return d.Title == "" && d.Content == "" && len(d.Tags) == 0
}
