package model

import (
	"errors"
	"strings"
	"time"
)

// Post is a crux: a short opinion statement with optional title and tags.
// Rating aggregates are derived client-side and never stored on the post.
type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Content   string     `json:"content"`
	Tags      []string   `json:"tags,omitempty"`
	AuthorID  string     `json:"author_id"`
	Author    string     `json:"author"` // display-name snapshot taken at write time
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Post constraints
const (
	MaxTitleLength   = 144
	MaxContentLength = 2048
)

// Post errors
var (
	ErrPostNotFound    = errors.New("post not found")
	ErrContentRequired = errors.New("content is required")
	ErrContentTooLong  = errors.New("content too long")
	ErrTitleTooLong    = errors.New("title too long")
)

// ValidatePost checks title and content against the compose limits.
// Content is required and must be non-empty after trimming; length limits
// apply to the untrimmed input the user actually typed.
func ValidatePost(title, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	if len(content) > MaxContentLength {
		return ErrContentTooLong
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// ParseTags splits a comma-separated tag string into an ordered set:
// trimmed, empties dropped, duplicates removed case-insensitively with the
// first occurrence's casing preserved.
func ParseTags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tags []string
	for _, raw := range strings.Split(csv, ",") {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// HasTag reports whether the post carries the tag, compared case-insensitively.
func (p *Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
