// Package events journals board activity to a Redis stream so external
// consumers (analytics, moderation tooling) can tail what happens
// without touching the document store. Publishing is best-effort; the
// board never fails a request over a journal write.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the activity stream
const (
	EventPostCreated  = "post_created"
	EventPostDeleted  = "post_deleted"
	EventCommentAdded = "comment_added"
	EventRatingSet    = "rating_set"
)

// StreamActivity is the stream every board event lands on.
const StreamActivity = "stream:activity"

// Event represents one entry on the activity stream. All event types
// share this structure; unused fields stay empty.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp when the event occurred

	ActorID string `json:"actor_id,omitempty"`

	// Post events
	PostID string `json:"post_id,omitempty"`

	// Comment events
	CommentID string `json:"comment_id,omitempty"`

	// Rating events; Value is the submitted 0-11 rating.
	Value int `json:"value,omitempty"`
}

// NewPostCreatedEvent records a post publication.
func NewPostCreatedEvent(postID, actorID string) Event {
	return Event{
		Type:      EventPostCreated,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   actorID,
	}
}

// NewPostDeletedEvent records an owner removing their post.
func NewPostDeletedEvent(postID, actorID string) Event {
	return Event{
		Type:      EventPostDeleted,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		ActorID:   actorID,
	}
}

// NewCommentAddedEvent records a comment or reply landing on a post.
func NewCommentAddedEvent(postID, commentID, actorID string) Event {
	return Event{
		Type:      EventCommentAdded,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		ActorID:   actorID,
	}
}

// NewRatingSetEvent records a rating upsert on a post or comment. The
// comment id is empty for post ratings.
func NewRatingSetEvent(postID, commentID, actorID string, value int) Event {
	return Event{
		Type:      EventRatingSet,
		Timestamp: time.Now().Unix(),
		PostID:    postID,
		CommentID: commentID,
		ActorID:   actorID,
		Value:     value,
	}
}

// ToMap converts the event to a map for Redis XADD. Redis Streams store
// field-value pairs, so the full event rides as JSON in a "data" field
// next to a bare "type" for cheap filtering.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from Redis stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
