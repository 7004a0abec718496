// Package sortpolicy holds the feed and thread orderings. The same three
// policies apply to posts and to comment siblings, so the comparison is
// defined once over anything that exposes an aggregate.
package sortpolicy

import (
	"sort"
	"time"
)

// Mode selects an ordering.
type Mode string

const (
	// Recency orders newest first.
	Recency Mode = "recency"

	// TopRated orders by average rating, highest first. Subjects with no
	// ratings sort below every rated subject, including those averaging
	// zero.
	TopRated Mode = "rating"

	// MostRated orders by rating count, highest first.
	MostRated Mode = "mostRated"
)

// ParseMode maps a wire value to a Mode, defaulting to Recency for
// anything unrecognized.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case TopRated:
		return TopRated
	case MostRated:
		return MostRated
	default:
		return Recency
	}
}

// Sortable is anything the policies can order: an aggregate plus a
// creation time for tie-breaks.
type Sortable interface {
	// SortAverage is the mean rating, nil when unrated.
	SortAverage() *float64

	// SortRatingCount is the number of ratings received.
	SortRatingCount() int

	// SortTime is the creation time.
	SortTime() time.Time
}

// unratedSentinel stands in for a nil average so unrated subjects sort
// below a genuine average of zero.
const unratedSentinel = -1.0

// Less reports whether a orders before b under the mode. Equal keys fall
// through to newest-first; a caller using a stable sort then preserves
// input order among true ties.
func Less(mode Mode, a, b Sortable) bool {
	switch mode {
	case TopRated:
		av, bv := averageOrSentinel(a), averageOrSentinel(b)
		if av != bv {
			return av > bv
		}
	case MostRated:
		if a.SortRatingCount() != b.SortRatingCount() {
			return a.SortRatingCount() > b.SortRatingCount()
		}
	}
	return a.SortTime().After(b.SortTime())
}

// Apply sorts items in place under the mode. The sort is stable so
// subjects tied on every key keep their incoming order.
func Apply[T Sortable](mode Mode, items []T) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(mode, items[i], items[j])
	})
}

func averageOrSentinel(s Sortable) float64 {
	if avg := s.SortAverage(); avg != nil {
		return *avg
	}
	return unratedSentinel
}
