// Package session is the engine's front door: one Session per connected
// client, holding the viewer's identity, the live feed, the open post and
// profile views, drafts, and preferences. All state is owned by a single
// dispatch goroutine; exported methods hand work to it and wait, so
// callers never race each other and subscribers always observe a
// consistent snapshot.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DonyChristie/crux/internal/auth"
	"github.com/DonyChristie/crux/internal/drafts"
	"github.com/DonyChristie/crux/internal/feed"
	"github.com/DonyChristie/crux/internal/gate"
	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/sortpolicy"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/tags"
	"github.com/DonyChristie/crux/internal/thread"
)

// ErrClosed rejects calls made after Stop.
var ErrClosed = errors.New("session closed")

// taskQueueSize bounds pending work; emissions beyond it apply
// backpressure to the store's fan-out goroutines, not to callers.
const taskQueueSize = 256

// Theme is the visual theme preference.
type Theme string

const (
	ThemeClean  Theme = "clean"
	ThemeStarry Theme = "starry"
)

// Snapshot is the full observable state at one instant. Slices and
// pointers are fresh copies; subscribers may keep them.
type Snapshot struct {
	Viewer *model.Identity `json:"viewer,omitempty"`
	Theme  Theme           `json:"theme"`

	SortMode     sortpolicy.Mode `json:"sort_mode"`
	SelectedTags []string        `json:"selected_tags,omitempty"`

	// Feed is filtered by SelectedTags and ordered by SortMode.
	Feed []feed.Item `json:"feed"`

	// FeedFallback reports that Feed holds the built-in sample content
	// because the posts subscription failed.
	FeedFallback bool `json:"feed_fallback,omitempty"`

	// TagStats covers the whole feed regardless of the tag filter,
	// narrowed by the tag search query and ordered by the tag sort mode.
	TagStats []tags.Stat `json:"tag_stats"`

	OpenPost *PostView    `json:"open_post,omitempty"`
	Profile  *ProfileView `json:"profile,omitempty"`

	Drafts []drafts.Entry `json:"drafts"`

	// CooldownRemaining is the time until the viewer may post again,
	// zero when posting is open.
	CooldownRemaining time.Duration `json:"cooldown_remaining"`

	// AuthError is the sanitized message of the last failed auth
	// attempt, cleared on the next successful one.
	AuthError string `json:"auth_error,omitempty"`
}

// PostView is the open post with its threaded comments.
type PostView struct {
	Item     feed.Item      `json:"item"`
	Comments []*thread.Node `json:"comments"`

	// CommentsFailed reports that the comment subscription is broken;
	// Comments holds the last good tree.
	CommentsFailed bool `json:"comments_failed,omitempty"`
}

// ProfileView is an author page: their profile document and their posts.
type ProfileView struct {
	Profile model.Profile `json:"profile"`
	Posts   []feed.Item   `json:"posts"`
}

// Deps are the external services a Session runs against.
type Deps struct {
	Store   store.Store
	Auth    auth.Provider
	Local   localstore.Store
	Ratings *ratings.Engine
	Now     func() time.Time
}

// Session is one client's live engine instance.
type Session struct {
	deps Deps

	tasks  chan func()
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	// Everything below is owned by the dispatch goroutine.
	viewer       *model.Identity
	guestID      string
	theme        Theme
	sortMode     sortpolicy.Mode
	selectedTags []string
	tagSort      tags.SortMode
	tagQuery     string
	authError    string

	feedItems    []feed.Item
	feedFallback bool
	feedWatcher  *feed.Watcher

	postView    *postViewState
	profileView *profileViewState

	reconciler *drafts.Reconciler
	draftList  []drafts.Entry

	gate         *gate.Gate
	cooldownTick *time.Ticker
	cooldownStop chan struct{}

	// composeDraft mirrors the client's compose form. composeDirty is
	// set by edits and cleared by loads, saves and posting; only a dirty
	// buffer is worth auto-saving.
	composeDraft model.Draft
	composeDirty bool

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// New creates a stopped session. Call Start before use.
func New(deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{
		deps:        deps,
		tasks:       make(chan func(), taskQueueSize),
		theme:       ThemeClean,
		sortMode:    sortpolicy.Recency,
		tagSort:     tags.ByPostCount,
		gate:        gate.NewWithClock(deps.Now),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Start brings up the dispatch loop, restores device state (theme, guest
// drafts) and opens the feed subscription.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	return s.call(func() error {
		s.restoreDeviceState()
		s.openFeed()
		log.Printf("[Session] Started (guest=%s)", s.guestID)
		return nil
	})
}

// Stop tears down every subscription and drains the dispatch loop.
// Blocks until the loop has exited. Idempotent.
func (s *Session) Stop() {
	s.closeOnce.Do(func() {
		_ = s.call(func() error {
			s.autosaveCompose()
			s.closePostView()
			s.closeProfileView()
			if s.feedWatcher != nil {
				s.feedWatcher.Dispose()
				s.feedWatcher = nil
			}
			s.stopCooldownTicker()
			return nil
		})
		s.cancel()
		close(s.tasks)
		s.wg.Wait()
		log.Printf("[Session] Stopped")
	})
}

func (s *Session) run() {
	defer s.wg.Done()
	for task := range s.tasks {
		task()
	}
}

// do hands a task to the dispatch loop. Returns false once the session
// is stopping.
func (s *Session) do(task func()) bool {
	defer func() {
		// A send on the closed tasks channel panics; treat it as a
		// dropped task during shutdown.
		_ = recover()
	}()
	select {
	case s.tasks <- task:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// call runs fn on the dispatch loop and waits for its result.
func (s *Session) call(fn func() error) error {
	errc := make(chan error, 1)
	if !s.do(func() { errc <- fn() }) {
		return ErrClosed
	}
	return <-errc
}

// Subscribe registers a snapshot listener. It is invoked immediately with
// the current state and after every change until the returned cancel
// function runs.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	s.do(func() { fn(s.snapshotLocked()) })

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// CurrentSnapshot returns the state as of now.
func (s *Session) CurrentSnapshot() Snapshot {
	var snap Snapshot
	_ = s.call(func() error {
		snap = s.snapshotLocked()
		return nil
	})
	return snap
}

// emit pushes the current snapshot to every subscriber. Dispatch-loop
// only.
func (s *Session) emit() {
	snap := s.snapshotLocked()
	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// snapshotLocked assembles a Snapshot from dispatch-loop state.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Theme:             s.theme,
		SortMode:          s.sortMode,
		SelectedTags:      append([]string(nil), s.selectedTags...),
		FeedFallback:      s.feedFallback,
		CooldownRemaining: s.gate.Remaining(),
		AuthError:         s.authError,
		Drafts:            append([]drafts.Entry(nil), s.draftList...),
	}
	if s.viewer != nil {
		viewer := *s.viewer
		snap.Viewer = &viewer
	}

	// Feed: tag filter, then sort policy.
	filtered := make([]feed.Item, 0, len(s.feedItems))
	for _, item := range s.feedItems {
		if tags.MatchesAll(item.Post, s.selectedTags) {
			filtered = append(filtered, item)
		}
	}
	sortpolicy.Apply(s.sortMode, filtered)
	snap.Feed = filtered

	// Tag directory over the unfiltered feed.
	aggs := make(map[string]ratings.Aggregate, len(s.feedItems))
	for _, item := range s.feedItems {
		aggs[item.Post.ID] = item.Aggregate
	}
	stats := tags.BuildIndex(postsOf(s.feedItems), aggs)
	stats = tags.Search(stats, s.tagQuery)
	tags.Sort(stats, s.tagSort)
	snap.TagStats = stats

	if s.postView != nil {
		snap.OpenPost = s.postView.view(s.sortMode)
	}
	if s.profileView != nil {
		snap.Profile = s.profileView.view()
	}
	return snap
}

func postsOf(items []feed.Item) []model.Post {
	posts := make([]model.Post, len(items))
	for i, item := range items {
		posts[i] = item.Post
	}
	return posts
}

// viewerID is the rater/author id, empty when signed out. Dispatch-loop
// only.
func (s *Session) viewerID() string {
	if s.viewer == nil {
		return ""
	}
	return s.viewer.ID
}

// draftOwnerID keys local draft storage: the identity when signed in,
// the device guest id otherwise.
func (s *Session) draftOwnerID() string {
	if s.viewer != nil {
		return s.viewer.ID
	}
	return s.guestID
}

// restoreDeviceState loads the theme and guest identity from the local
// store and brings up the draft reconciler for the current owner.
func (s *Session) restoreDeviceState() {
	ctx := s.ctx

	if value, found, err := s.deps.Local.Get(ctx, localstore.ThemeKey); err == nil && found {
		if t := Theme(value); t == ThemeClean || t == ThemeStarry {
			s.theme = t
		}
	}

	guestID, found, err := s.deps.Local.Get(ctx, localstore.GuestIDKey)
	if err != nil || !found || guestID == "" {
		guestID = "guest-" + uuid.NewString()
		if err := s.deps.Local.Set(ctx, localstore.GuestIDKey, guestID); err != nil {
			log.Printf("[Session] Could not persist guest id: %v", err)
		}
	}
	s.guestID = guestID

	s.resetDrafts()
}

// resetDrafts rebuilds the reconciler for the current owner and loads its
// draft set. Dispatch-loop only.
func (s *Session) resetDrafts() {
	s.reconciler = drafts.NewReconciler(s.deps.Local, s.deps.Store, s.draftOwnerID(), s.viewer != nil)
	entries, err := s.reconciler.Load(s.ctx)
	if err != nil {
		log.Printf("[Session] Draft load failed: %v", err)
	}
	s.draftList = entries
}

// openFeed (re)opens the global feed subscription for the current viewer.
// Dispatch-loop only.
func (s *Session) openFeed() {
	if s.feedWatcher != nil {
		s.feedWatcher.Dispose()
	}
	s.feedItems = nil
	s.feedFallback = false

	s.feedWatcher = feed.Watch(s.ctx, s.deps.Store, s.deps.Ratings, feed.Options{
		ViewerID: s.viewerID(),
		OnChange: func(items []feed.Item) {
			s.do(func() {
				s.feedItems = items
				s.emit()
			})
		},
		OnError: func(error) {
			s.do(func() {
				s.feedFallback = true
			})
		},
	})
}

// startCooldownTicker re-emits every second while the posting gate is
// closed so subscribers can render a live countdown. Dispatch-loop only.
func (s *Session) startCooldownTicker() {
	if s.cooldownStop != nil {
		return
	}
	if s.gate.Remaining() == 0 {
		return
	}

	s.cooldownTick = time.NewTicker(time.Second)
	stop := make(chan struct{})
	s.cooldownStop = stop
	tick := s.cooldownTick

	go func() {
		for {
			select {
			case <-tick.C:
				s.do(func() {
					if s.gate.Remaining() == 0 {
						s.stopCooldownTicker()
					}
					s.emit()
				})
			case <-stop:
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Session) stopCooldownTicker() {
	if s.cooldownStop == nil {
		return
	}
	s.cooldownTick.Stop()
	close(s.cooldownStop)
	s.cooldownTick = nil
	s.cooldownStop = nil
}
