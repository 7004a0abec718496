package model

import (
	"errors"
	"strings"
	"time"
)

// Comment is a sub-crux: a threaded reply on a post. ParentID is nil for
// top-level comments. A ParentID that no longer resolves (parent deleted)
// demotes the comment to top-level at display time; it is never dropped.
type Comment struct {
	ID        string     `json:"id"`
	PostID    string     `json:"post_id"`
	ParentID  *string    `json:"parent_id,omitempty"`
	Content   string     `json:"content"`
	AuthorID  string     `json:"author_id"`
	Author    string     `json:"author"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Comment constraints
const (
	MaxCommentLength = 2048
)

// Comment errors
var (
	ErrCommentNotFound = errors.New("comment not found")
)

// ValidateComment checks reply content against the compose limits.
func ValidateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	if len(content) > MaxCommentLength {
		return ErrContentTooLong
	}
	return nil
}
