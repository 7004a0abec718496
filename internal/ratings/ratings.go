// Package ratings computes live rating aggregates and records ratings.
// A rating subject (post or comment) owns a ratings collection keyed by
// rater id, so one rater holds at most one rating per subject and rating
// again overwrites the previous value.
package ratings

import (
	"context"
	"fmt"
	"log"

	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/store"
)

// Aggregate is the derived rating state of one subject.
type Aggregate struct {
	// Average is the mean of all ratings, nil when the subject has none.
	// A nil average is distinct from an average of zero.
	Average *float64 `json:"average"`

	// Count is the number of ratings received.
	Count int `json:"count"`

	// SelfValue is the viewer's own rating, nil when the viewer has not
	// rated the subject or is signed out.
	SelfValue *int `json:"self_value,omitempty"`
}

// Engine reads and writes rating collections on the document store.
type Engine struct {
	store store.Store
}

func NewEngine(s store.Store) *Engine {
	return &Engine{store: s}
}

// Subscribe opens a live aggregate over the subject's ratings collection.
// onUpdate receives a fresh Aggregate on every change. onError is invoked
// if the subscription fails; the subject's last aggregate simply stops
// updating in that case.
func (e *Engine) Subscribe(ctx context.Context, ratingsCollection, viewerID string, onUpdate func(Aggregate), onError func(error)) store.DisposeFunc {
	return e.store.Watch(ctx, ratingsCollection, store.Query{},
		func(snap store.Snapshot) {
			onUpdate(FromSnapshot(snap, viewerID))
		},
		func(err error) {
			log.Printf("[Ratings] Subscription on %s failed: %v", ratingsCollection, err)
			onError(err)
		},
	)
}

// FromSnapshot derives the aggregate from a ratings snapshot. The rating
// document id is the rater id, which is how the viewer's own rating is
// recognized.
func FromSnapshot(snap store.Snapshot, viewerID string) Aggregate {
	var agg Aggregate
	var sum float64
	for _, doc := range snap.Docs {
		value, ok := ratingValue(doc.Fields["rating"])
		if !ok {
			continue
		}
		sum += float64(value)
		agg.Count++
		if viewerID != "" && doc.ID == viewerID {
			v := value
			agg.SelfValue = &v
		}
	}
	if agg.Count > 0 {
		average := sum / float64(agg.Count)
		agg.Average = &average
	}
	return agg
}

// Rate records the rater's rating of a subject, replacing any previous
// rating by the same rater. The write is a full overwrite, not a merge,
// so a re-rate leaves no stale fields behind.
func (e *Engine) Rate(ctx context.Context, ratingsCollection, raterID string, value int) error {
	if raterID == "" {
		return model.ErrSignInRequired
	}
	if err := model.ValidateRating(value); err != nil {
		return err
	}

	path := ratingsCollection + "/" + raterID
	err := e.store.Set(ctx, path, map[string]any{
		"rating":    value,
		"userId":    raterID,
		"createdAt": store.ServerTimestamp,
	}, false)
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}

func ratingValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
