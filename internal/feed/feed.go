// Package feed maintains the live post list: one primary subscription on
// the posts collection plus one ratings subscription per visible post.
// Every primary emission supersedes the previous set of secondary
// subscriptions, so aggregates from a stale post set can never patch the
// current one.
package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/timeutil"
)

// Item is one post with its live rating aggregate.
type Item struct {
	Post      model.Post        `json:"post"`
	Aggregate ratings.Aggregate `json:"aggregate"`
}

func (it Item) SortAverage() *float64 { return it.Aggregate.Average }
func (it Item) SortRatingCount() int  { return it.Aggregate.Count }
func (it Item) SortTime() time.Time   { return it.Post.CreatedAt }

// Options configures a feed watch.
type Options struct {
	// ViewerID attributes self ratings in aggregates. Empty when signed
	// out.
	ViewerID string

	// AuthorID narrows the feed to one author's posts (profile view).
	// Empty for the global feed.
	AuthorID string

	// OnChange receives the full item list, newest first, on every
	// change to the post set or to any post's aggregate.
	OnChange func([]Item)

	// OnError is invoked when the primary subscription fails. The feed
	// switches to fallback content in that case; see SampleItems.
	OnError func(error)
}

// Watcher is a live feed subscription.
type Watcher struct {
	store  store.Store
	engine *ratings.Engine
	opts   Options
	ctx    context.Context

	mu         sync.Mutex
	epoch      int
	items      []Item
	index      map[string]int // post id -> position in items
	secondary  []store.DisposeFunc
	disposed   bool
	disposeFns []store.DisposeFunc
}

// Watch opens the feed subscription. Dispose the returned watcher to stop
// all underlying subscriptions.
func Watch(ctx context.Context, s store.Store, engine *ratings.Engine, opts Options) *Watcher {
	w := &Watcher{store: s, engine: engine, opts: opts, ctx: ctx}

	q := store.Query{}.OrderBy("createdAt", store.Desc)
	if opts.AuthorID != "" {
		q = store.Query{}.
			Where("authorId", "==", opts.AuthorID).
			OrderBy("createdAt", store.Desc)
	}

	primary := s.Watch(ctx, store.PostsCollection, q, w.onPrimary, w.onPrimaryError)
	w.register(primary)
	return w
}

// register records a disposer for Dispose to sweep. If Dispose already
// ran while the subscription was being opened, the disposer missed that
// sweep and is cancelled on the spot instead of leaking.
func (w *Watcher) register(dispose store.DisposeFunc) {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		dispose()
		return
	}
	w.disposeFns = append(w.disposeFns, dispose)
	w.mu.Unlock()
}

// Dispose cancels the primary subscription and every per-post ratings
// subscription. Idempotent.
func (w *Watcher) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	all := append(w.disposeFns, w.secondary...)
	w.disposeFns, w.secondary = nil, nil
	w.mu.Unlock()

	for _, dispose := range all {
		dispose()
	}
}

// onPrimary rebuilds the item list from a posts snapshot. Aggregates
// start at the unrated placeholder and fill in as each post's ratings
// subscription emits.
func (w *Watcher) onPrimary(snap store.Snapshot) {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}

	w.epoch++
	epoch := w.epoch
	stale := w.secondary
	w.secondary = nil

	items := make([]Item, 0, len(snap.Docs))
	index := make(map[string]int, len(snap.Docs))
	for _, doc := range snap.Docs {
		index[doc.ID] = len(items)
		items = append(items, Item{Post: DecodePost(doc)})
	}
	w.items = items
	w.index = index

	emit := snapshotItemsLocked(items)
	w.mu.Unlock()

	for _, dispose := range stale {
		dispose()
	}
	w.opts.OnChange(emit)

	for _, item := range items {
		w.subscribeRatings(epoch, item.Post.ID)
	}
}

func (w *Watcher) subscribeRatings(epoch int, postID string) {
	dispose := w.engine.Subscribe(w.ctx, store.PostRatingsCollection(postID), w.opts.ViewerID,
		func(agg ratings.Aggregate) {
			w.patch(epoch, postID, agg)
		},
		func(err error) {
			// The post keeps its placeholder aggregate; nothing else to do.
			log.Printf("[Feed] Ratings for post %s unavailable: %v", postID, err)
		},
	)

	w.mu.Lock()
	if w.disposed || epoch != w.epoch {
		w.mu.Unlock()
		dispose()
		return
	}
	w.secondary = append(w.secondary, dispose)
	w.mu.Unlock()
}

// patch applies an aggregate emission, dropping it when it belongs to a
// superseded post set.
func (w *Watcher) patch(epoch int, postID string, agg ratings.Aggregate) {
	w.mu.Lock()
	if w.disposed || epoch != w.epoch {
		w.mu.Unlock()
		return
	}
	pos, ok := w.index[postID]
	if !ok {
		w.mu.Unlock()
		return
	}
	w.items[pos].Aggregate = agg
	emit := snapshotItemsLocked(w.items)
	w.mu.Unlock()

	w.opts.OnChange(emit)
}

func (w *Watcher) onPrimaryError(err error) {
	log.Printf("[Feed] Posts subscription failed, serving fallback content: %v", err)

	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.epoch++
	stale := w.secondary
	w.secondary = nil
	w.items = nil
	w.index = nil
	w.mu.Unlock()

	for _, dispose := range stale {
		dispose()
	}
	if w.opts.OnError != nil {
		w.opts.OnError(err)
	}
	w.opts.OnChange(SampleItems(time.Now()))
}

func snapshotItemsLocked(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// DecodePost maps a post document onto the model. Unknown or malformed
// fields degrade to zero values rather than failing the whole snapshot.
func DecodePost(doc store.Document) model.Post {
	p := model.Post{ID: doc.ID}
	if title, ok := doc.Fields["title"].(string); ok {
		p.Title = title
	}
	if content, ok := doc.Fields["content"].(string); ok {
		p.Content = content
	}
	if authorID, ok := doc.Fields["authorId"].(string); ok {
		p.AuthorID = authorID
	}
	if author, ok := doc.Fields["author"].(string); ok {
		p.Author = author
	}
	p.Tags = decodeTags(doc.Fields["tags"])
	if at, ok := timeutil.Coerce(doc.Fields["createdAt"]); ok {
		p.CreatedAt = at
	}
	if at, ok := timeutil.Coerce(doc.Fields["updatedAt"]); ok {
		p.UpdatedAt = &at
	}
	return p
}

func decodeTags(v any) []string {
	switch tags := v.(type) {
	case []string:
		return tags
	case []any:
		out := make([]string, 0, len(tags))
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
