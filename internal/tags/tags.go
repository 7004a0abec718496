// Package tags derives the tag directory from the post feed and handles
// tag-based feed filtering. Tags are compared case-insensitively
// everywhere; the casing shown is whichever the directory saw first.
package tags

import (
	"sort"
	"strings"

	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/ratings"
)

// Stat is the directory entry for one tag.
type Stat struct {
	// Tag carries the first-seen casing.
	Tag string `json:"tag"`

	// PostCount is the number of posts carrying the tag.
	PostCount int `json:"post_count"`

	// Average is the mean over the union of all ratings on those posts,
	// nil when none of them has been rated. Each underlying rating counts
	// once, so a heavily rated post weighs more than a barely rated one.
	Average *float64 `json:"average"`

	// RatingCount is the size of that union.
	RatingCount int `json:"rating_count"`
}

// SortMode orders the tag directory.
type SortMode string

const (
	ByPostCount  SortMode = "posts"
	ByAverage    SortMode = "rating"
	Alphabetical SortMode = "name"
)

// BuildIndex aggregates tag stats across the feed. aggs maps post id to
// its rating aggregate; posts missing from aggs count as unrated.
func BuildIndex(posts []model.Post, aggs map[string]ratings.Aggregate) []Stat {
	type bucket struct {
		tag         string
		postCount   int
		ratingSum   float64
		ratingCount int
	}

	buckets := make(map[string]*bucket)
	var order []string
	for _, post := range posts {
		agg := aggs[post.ID]
		for _, tag := range post.Tags {
			key := strings.ToLower(tag)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{tag: tag}
				buckets[key] = b
				order = append(order, key)
			}
			b.postCount++
			if agg.Average != nil {
				b.ratingSum += *agg.Average * float64(agg.Count)
				b.ratingCount += agg.Count
			}
		}
	}

	stats := make([]Stat, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		stat := Stat{Tag: b.tag, PostCount: b.postCount, RatingCount: b.ratingCount}
		if b.ratingCount > 0 {
			average := b.ratingSum / float64(b.ratingCount)
			stat.Average = &average
		}
		stats = append(stats, stat)
	}
	return stats
}

// Sort orders the directory in place. Ties fall through to alphabetical
// so the listing is stable across refreshes.
func Sort(stats []Stat, mode SortMode) {
	sort.SliceStable(stats, func(i, j int) bool {
		switch mode {
		case ByPostCount:
			if stats[i].PostCount != stats[j].PostCount {
				return stats[i].PostCount > stats[j].PostCount
			}
		case ByAverage:
			ai, aj := averageOrSentinel(stats[i]), averageOrSentinel(stats[j])
			if ai != aj {
				return ai > aj
			}
		}
		return strings.ToLower(stats[i].Tag) < strings.ToLower(stats[j].Tag)
	})
}

// Search narrows the directory to tags containing the query,
// case-insensitively. An empty query returns the input unchanged.
func Search(stats []Stat, query string) []Stat {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return stats
	}
	var out []Stat
	for _, stat := range stats {
		if strings.Contains(strings.ToLower(stat.Tag), query) {
			out = append(out, stat)
		}
	}
	return out
}

// MatchesAll reports whether the post carries every selected tag. An
// empty selection matches every post.
func MatchesAll(post model.Post, selected []string) bool {
	for _, tag := range selected {
		if !post.HasTag(tag) {
			return false
		}
	}
	return true
}

func averageOrSentinel(s Stat) float64 {
	if s.Average != nil {
		return *s.Average
	}
	return -1
}
