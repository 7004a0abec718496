package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DonyChristie/crux/internal/auth/memory"
	"github.com/DonyChristie/crux/internal/drafts"
	"github.com/DonyChristie/crux/internal/gate"
	"github.com/DonyChristie/crux/internal/localstore"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/sortpolicy"
	"github.com/DonyChristie/crux/internal/store"
	memstore "github.com/DonyChristie/crux/internal/store/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	session  *Session
	store    *memstore.Store
	provider *memory.Provider
	local    *localstore.MemoryStore
	clock    *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{
		store:    memstore.NewWithClock(clock.Now),
		provider: memory.NewProvider(),
		local:    localstore.NewMemory(),
		clock:    clock,
	}
	f.provider.Seed("ada@example.com", "hunter22", model.Identity{ID: "ada", Email: "ada@example.com", DisplayName: "Ada"})
	f.provider.Seed("bob@example.com", "hunter22", model.Identity{ID: "bob", Email: "bob@example.com"})

	f.session = New(Deps{
		Store:   f.store,
		Auth:    f.provider,
		Local:   f.local,
		Ratings: ratings.NewEngine(f.store),
		Now:     clock.Now,
	})
	if err := f.session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(f.session.Stop)
	return f
}

// waitFor polls snapshots until pred holds or the timeout expires.
func waitFor(t *testing.T, s *Session, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	snaps := make(chan Snapshot, 128)
	cancel := s.Subscribe(func(snap Snapshot) {
		select {
		case snaps <- snap:
		default:
		}
	})
	defer cancel()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case snap := <-snaps:
			if pred(snap) {
				return snap
			}
		case <-time.After(20 * time.Millisecond):
			if snap := s.CurrentSnapshot(); pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out; last snapshot: %+v", s.CurrentSnapshot())
			return Snapshot{}
		}
	}
}

func signIn(t *testing.T, f *fixture, email string) {
	t.Helper()
	if err := f.session.SignIn(context.Background(), email, "hunter22"); err != nil {
		t.Fatalf("SignIn(%s): %v", email, err)
	}
}

func createPost(t *testing.T, f *fixture, title, content, tagsCSV string) string {
	t.Helper()
	id, err := f.session.CreatePost(context.Background(), title, content, tagsCSV)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	return id
}

// ============================================================
// Posting and the daily gate
// ============================================================

func TestCreatePost_RequiresSignIn(t *testing.T) {
	f := newFixture(t)
	if _, err := f.session.CreatePost(context.Background(), "", "a thought", ""); !errors.Is(err, model.ErrSignInRequired) {
		t.Fatalf("err = %v, want ErrSignInRequired", err)
	}
}

func TestCreatePost_AppearsInFeedWithAuthorSnapshot(t *testing.T) {
	f := newFixture(t)
	signIn(t, f, "ada@example.com")

	postID := createPost(t, f, "On attention", "Attention is finite.", "attention, economics")

	snap := waitFor(t, f.session, func(s Snapshot) bool { return len(s.Feed) == 1 })
	post := snap.Feed[0].Post
	if post.ID != postID || post.Title != "On attention" || post.AuthorID != "ada" {
		t.Fatalf("post = %+v", post)
	}
	if post.Author != "Ada" {
		t.Fatalf("author snapshot = %q, want display name", post.Author)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "attention" {
		t.Fatalf("tags = %v", post.Tags)
	}
}

func TestCreatePost_CooldownBlocksSecondPostFor24h(t *testing.T) {
	f := newFixture(t)
	signIn(t, f, "ada@example.com")
	createPost(t, f, "", "first of the day", "")

	// A second post the same day is rejected.
	if _, err := f.session.CreatePost(context.Background(), "", "second", ""); !errors.Is(err, gate.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
	snap := f.session.CurrentSnapshot()
	if snap.CooldownRemaining <= 0 || snap.CooldownRemaining > gate.Cooldown {
		t.Fatalf("CooldownRemaining = %v", snap.CooldownRemaining)
	}

	// Just before the boundary it is still closed.
	f.clock.Advance(gate.Cooldown - time.Second)
	if _, err := f.session.CreatePost(context.Background(), "", "still too soon", ""); !errors.Is(err, gate.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}

	// Past it, posting reopens.
	f.clock.Advance(2 * time.Second)
	createPost(t, f, "", "a day later", "")
}

func TestCooldown_SurvivesSignOutAndSignIn(t *testing.T) {
	f := newFixture(t)
	signIn(t, f, "ada@example.com")
	createPost(t, f, "", "the daily crux", "")

	if err := f.session.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	signIn(t, f, "ada@example.com")

	// lastPostAt was persisted on the profile and reconciled at sign-in.
	if _, err := f.session.CreatePost(context.Background(), "", "sneaky second", ""); !errors.Is(err, gate.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
}

func TestCreatePost_Validation(t *testing.T) {
	f := newFixture(t)
	signIn(t, f, "ada@example.com")
	ctx := context.Background()

	if _, err := f.session.CreatePost(ctx, "", "   ", ""); !errors.Is(err, model.ErrContentRequired) {
		t.Fatalf("blank content err = %v", err)
	}
	long := make([]byte, model.MaxContentLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := f.session.CreatePost(ctx, "", string(long), ""); !errors.Is(err, model.ErrContentTooLong) {
		t.Fatalf("long content err = %v", err)
	}

	// Failed attempts must not consume the daily post.
	createPost(t, f, "", "valid after failures", "")
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	postID := createPost(t, f, "", "ada's post", "")

	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	signIn(t, f, "bob@example.com")
	if err := f.session.DeletePost(ctx, postID); !errors.Is(err, model.ErrNotOwner) {
		t.Fatalf("foreign delete err = %v, want ErrNotOwner", err)
	}

	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	signIn(t, f, "ada@example.com")
	if err := f.session.DeletePost(ctx, postID); err != nil {
		t.Fatalf("own delete: %v", err)
	}
	waitFor(t, f.session, func(s Snapshot) bool { return len(s.Feed) == 0 })
}

// ============================================================
// Ratings
// ============================================================

func TestRatePost_UpsertReflectedInFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	postID := createPost(t, f, "", "rate me", "")

	if err := f.session.RatePost(ctx, postID, 3); err != nil {
		t.Fatalf("RatePost: %v", err)
	}
	if err := f.session.RatePost(ctx, postID, 9); err != nil {
		t.Fatalf("re-RatePost: %v", err)
	}

	// One rating only, at the latest value, attributed to the viewer.
	snap := waitFor(t, f.session, func(s Snapshot) bool {
		return len(s.Feed) == 1 &&
			s.Feed[0].Aggregate.Count == 1 &&
			s.Feed[0].Aggregate.Average != nil &&
			*s.Feed[0].Aggregate.Average == 9
	})
	if snap.Feed[0].Aggregate.SelfValue == nil || *snap.Feed[0].Aggregate.SelfValue != 9 {
		t.Fatalf("SelfValue = %v", snap.Feed[0].Aggregate.SelfValue)
	}
}

func TestRatePost_SignedOutRejected(t *testing.T) {
	f := newFixture(t)
	if err := f.session.RatePost(context.Background(), "p1", 5); !errors.Is(err, model.ErrSignInRequired) {
		t.Fatalf("err = %v, want ErrSignInRequired", err)
	}
}

// ============================================================
// Sorting and tag filtering
// ============================================================

func TestSortModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Three posts by alternating accounts across the cooldown windows.
	signIn(t, f, "ada@example.com")
	unrated := createPost(t, f, "", "newest, never rated", "")
	_ = unrated
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	signIn(t, f, "bob@example.com")
	zeroRated := createPost(t, f, "", "rated zero", "")
	f.clock.Advance(25 * time.Hour)
	wellRated := createPost(t, f, "", "rated well", "")

	if err := f.session.RatePost(ctx, zeroRated, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.session.RatePost(ctx, wellRated, 8); err != nil {
		t.Fatal(err)
	}
	waitFor(t, f.session, func(s Snapshot) bool {
		counted := 0
		for _, item := range s.Feed {
			if item.Aggregate.Count == 1 {
				counted++
			}
		}
		return len(s.Feed) == 3 && counted == 2
	})

	// Top rated: rated posts first, a zero average above the unrated one.
	f.session.SetSortMode(sortpolicy.TopRated)
	snap := waitFor(t, f.session, func(s Snapshot) bool { return s.SortMode == sortpolicy.TopRated })
	if snap.Feed[0].Post.ID != wellRated || snap.Feed[1].Post.ID != zeroRated {
		t.Fatalf("top rated order = %s, %s", snap.Feed[0].Post.ID, snap.Feed[1].Post.ID)
	}
	if snap.Feed[2].Post.Content != "newest, never rated" {
		t.Fatalf("unrated post not last: %s", snap.Feed[2].Post.Content)
	}
}

func TestTagFilter_Conjunctive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	createPost(t, f, "", "both tags", "Minds, Ethics")
	f.clock.Advance(25 * time.Hour)
	createPost(t, f, "", "one tag", "minds")
	waitFor(t, f.session, func(s Snapshot) bool { return len(s.Feed) == 2 })

	f.session.SelectTags([]string{"minds", "ethics"})
	snap := waitFor(t, f.session, func(s Snapshot) bool { return len(s.SelectedTags) == 2 })
	if len(snap.Feed) != 1 || snap.Feed[0].Post.Content != "both tags" {
		t.Fatalf("filtered feed = %+v", snap.Feed)
	}

	f.session.SelectTags(nil)
	snap = waitFor(t, f.session, func(s Snapshot) bool { return len(s.SelectedTags) == 0 })
	if len(snap.Feed) != 2 {
		t.Fatalf("unfiltered feed = %d items", len(snap.Feed))
	}
	_ = ctx
}

// ============================================================
// Comments
// ============================================================

func TestComments_ThreadedAndOrphanPromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	postID := createPost(t, f, "", "discuss", "")

	parentID, err := f.session.AddComment(ctx, postID, nil, "parent")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	childID, err := f.session.AddComment(ctx, postID, &parentID, "child")
	if err != nil {
		t.Fatalf("AddComment reply: %v", err)
	}

	if err := f.session.OpenPost(ctx, postID); err != nil {
		t.Fatalf("OpenPost: %v", err)
	}
	waitFor(t, f.session, func(s Snapshot) bool {
		return s.OpenPost != nil && len(s.OpenPost.Comments) == 1 &&
			len(s.OpenPost.Comments[0].Replies) == 1
	})

	// Deleting the parent promotes the reply to a thread root.
	if err := f.session.DeleteComment(ctx, postID, parentID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	snap := waitFor(t, f.session, func(s Snapshot) bool {
		return s.OpenPost != nil && len(s.OpenPost.Comments) == 1 &&
			s.OpenPost.Comments[0].Comment.ID == childID
	})
	if snap.OpenPost.Comments[0].Comment.Content != "child" {
		t.Fatalf("promoted comment = %+v", snap.OpenPost.Comments[0].Comment)
	}
}

func TestEditComment_OwnerOnlyAndStampsUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	postID := createPost(t, f, "", "discuss", "")
	commentID, err := f.session.AddComment(ctx, postID, nil, "first wording")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	if err := f.session.EditComment(ctx, postID, commentID, "better wording"); err != nil {
		t.Fatalf("EditComment: %v", err)
	}
	doc, ok, _ := f.store.Get(ctx, store.CommentPath(postID, commentID))
	if !ok || doc.Fields["content"] != "better wording" {
		t.Fatalf("comment after edit = %+v", doc.Fields)
	}
	if _, isTime := doc.Fields["updatedAt"].(time.Time); !isTime {
		t.Fatalf("updatedAt = %T", doc.Fields["updatedAt"])
	}

	// Another account cannot edit it.
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	signIn(t, f, "bob@example.com")
	if err := f.session.EditComment(ctx, postID, commentID, "vandalism"); !errors.Is(err, model.ErrNotOwner) {
		t.Fatalf("foreign edit err = %v, want ErrNotOwner", err)
	}
}

func TestRateComment_ReflectedInThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	postID := createPost(t, f, "", "discuss", "")
	commentID, err := f.session.AddComment(ctx, postID, nil, "insightful")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if err := f.session.OpenPost(ctx, postID); err != nil {
		t.Fatalf("OpenPost: %v", err)
	}

	if err := f.session.RateComment(ctx, postID, commentID, 11); err != nil {
		t.Fatalf("RateComment: %v", err)
	}

	snap := waitFor(t, f.session, func(s Snapshot) bool {
		return s.OpenPost != nil && len(s.OpenPost.Comments) == 1 &&
			s.OpenPost.Comments[0].Aggregate.Count == 1
	})
	agg := snap.OpenPost.Comments[0].Aggregate
	if agg.Average == nil || *agg.Average != 11 || agg.SelfValue == nil || *agg.SelfValue != 11 {
		t.Fatalf("comment aggregate = %+v", agg)
	}
}

// ============================================================
// Auth and preferences
// ============================================================

func TestSignIn_FailureSurfacesSanitizedError(t *testing.T) {
	f := newFixture(t)

	err := f.session.SignIn(context.Background(), "ada@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error")
	}

	snap := f.session.CurrentSnapshot()
	if snap.AuthError == "" {
		t.Fatal("AuthError empty after failed sign-in")
	}
	if snap.Viewer != nil {
		t.Fatalf("Viewer = %+v after failed sign-in", snap.Viewer)
	}

	// A successful sign-in clears it.
	signIn(t, f, "ada@example.com")
	snap = f.session.CurrentSnapshot()
	if snap.AuthError != "" || snap.Viewer == nil {
		t.Fatalf("snapshot after recovery: authError=%q viewer=%v", snap.AuthError, snap.Viewer)
	}
}

func TestTheme_PersistsAcrossSessions(t *testing.T) {
	f := newFixture(t)
	if err := f.session.SetTheme(ThemeStarry); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	f.session.Stop()

	// A new session on the same device restores the theme.
	next := New(Deps{
		Store:   f.store,
		Auth:    f.provider,
		Local:   f.local,
		Ratings: ratings.NewEngine(f.store),
		Now:     f.clock.Now,
	})
	if err := next.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer next.Stop()

	if snap := next.CurrentSnapshot(); snap.Theme != ThemeStarry {
		t.Fatalf("Theme = %s, want starry", snap.Theme)
	}
}

func TestProfileMirror_WrittenOnSignIn(t *testing.T) {
	f := newFixture(t)
	signIn(t, f, "ada@example.com")

	doc, ok, _ := f.store.Get(context.Background(), store.UserPath("ada"))
	if !ok {
		t.Fatal("profile document missing after sign-in")
	}
	if doc.Fields["displayName"] != "Ada" || doc.Fields["email"] != "ada@example.com" {
		t.Fatalf("profile = %+v", doc.Fields)
	}
	if _, isTime := doc.Fields["lastSeenAt"].(time.Time); !isTime {
		t.Fatalf("lastSeenAt = %T", doc.Fields["lastSeenAt"])
	}
}

// ============================================================
// Drafts through the session
// ============================================================

func TestDrafts_GuestThenSignInKeepsSeparateSets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Guest saves a draft.
	guestEntry, err := f.session.SaveDraft(ctx, model.Draft{Content: "guest thought"})
	if err != nil {
		t.Fatalf("guest SaveDraft: %v", err)
	}
	if guestEntry.State != drafts.StateLocalOnly {
		t.Fatalf("guest draft state = %s", guestEntry.State)
	}

	// Signing in switches to the identity's (empty) draft set.
	signIn(t, f, "ada@example.com")
	snap := f.session.CurrentSnapshot()
	if len(snap.Drafts) != 0 {
		t.Fatalf("identity drafts = %+v, want none", snap.Drafts)
	}

	// The identity's saves mirror remotely.
	entry, err := f.session.SaveDraft(ctx, model.Draft{Content: "signed-in thought"})
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if entry.State != drafts.StateSynced {
		t.Fatalf("state = %s, want synced", entry.State)
	}

	// Signing out restores the guest set.
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	snap = f.session.CurrentSnapshot()
	if len(snap.Drafts) != 1 || snap.Drafts[0].Draft.Content != "guest thought" {
		t.Fatalf("guest drafts after sign-out = %+v", snap.Drafts)
	}
}

func TestSignOut_AutosavesComposeBuffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")

	f.session.SetCompose(model.Draft{Content: "half-finished crux"})
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	// The draft landed in ada's remote set and is there on re-sign-in.
	signIn(t, f, "ada@example.com")
	snap := f.session.CurrentSnapshot()
	if len(snap.Drafts) != 1 || snap.Drafts[0].Draft.Content != "half-finished crux" {
		t.Fatalf("drafts after re-sign-in = %+v", snap.Drafts)
	}
}

func TestSignOut_CleanComposeBufferNotResaved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")

	// One edit, one autosave.
	f.session.SetCompose(model.Draft{Content: "one idea"})
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	signIn(t, f, "ada@example.com")
	snap := f.session.CurrentSnapshot()
	if len(snap.Drafts) != 1 {
		t.Fatalf("drafts after first sign-out = %+v, want one", snap.Drafts)
	}
	savedID := snap.Drafts[0].Draft.ID

	// No edit since the autosave, so a second sign-out saves nothing
	// and does not mint another draft id for the same buffer.
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("second SignOut: %v", err)
	}
	signIn(t, f, "ada@example.com")
	snap = f.session.CurrentSnapshot()
	if len(snap.Drafts) != 1 || snap.Drafts[0].Draft.ID != savedID {
		t.Fatalf("drafts after second sign-out = %+v, want only %s", snap.Drafts, savedID)
	}
}

func TestLoadDraft_CleanUntilEditedThenAutosavesSameID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")

	stored, err := f.session.SaveDraft(ctx, model.Draft{Content: "stored thought"})
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	// Loading binds the draft to the compose buffer without dirtying it,
	// so signing out straight away saves nothing new.
	loaded, err := f.session.LoadDraft(stored.Draft.ID)
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if loaded.Draft.Content != "stored thought" {
		t.Fatalf("loaded content = %q", loaded.Draft.Content)
	}
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	signIn(t, f, "ada@example.com")
	snap := f.session.CurrentSnapshot()
	if len(snap.Drafts) != 1 || snap.Drafts[0].Draft.Content != "stored thought" {
		t.Fatalf("drafts after clean sign-out = %+v", snap.Drafts)
	}

	// An edit after loading dirties the buffer; the next sign-out
	// autosaves over the same draft id instead of creating a second one.
	if _, err := f.session.LoadDraft(stored.Draft.ID); err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	f.session.SetCompose(model.Draft{Content: "sharpened thought"})
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut after edit: %v", err)
	}
	signIn(t, f, "ada@example.com")
	snap = f.session.CurrentSnapshot()
	if len(snap.Drafts) != 1 {
		t.Fatalf("drafts after edited sign-out = %+v, want one", snap.Drafts)
	}
	got := snap.Drafts[0].Draft
	if got.ID != stored.Draft.ID || got.Content != "sharpened thought" {
		t.Fatalf("draft = %+v, want id %s with the edited content", got, stored.Draft.ID)
	}
}

func TestStop_AutosavesDirtyComposeBuffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")

	f.session.SetCompose(model.Draft{Content: "thought at shutdown"})
	f.session.Stop()

	docs, err := f.store.List(ctx, store.DraftsCollection("ada"), store.Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].Fields["content"] != "thought at shutdown" {
		t.Fatalf("remote drafts after Stop = %+v, want the compose buffer", docs)
	}
}

// ============================================================
// Feed fallback
// ============================================================

func TestFeed_FallbackOnSubscriptionFailure(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	st := memstore.NewWithClock(clock.Now)
	st.FailWatch(store.PostsCollection, errors.New("permission denied"))

	s := New(Deps{
		Store:   st,
		Auth:    memory.NewProvider(),
		Local:   localstore.NewMemory(),
		Ratings: ratings.NewEngine(st),
		Now:     clock.Now,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	snap := waitFor(t, s, func(snap Snapshot) bool {
		return snap.FeedFallback && len(snap.Feed) > 0
	})
	if snap.Feed[0].Post.Author != "Anonymous" {
		t.Fatalf("fallback author = %q", snap.Feed[0].Post.Author)
	}
}

// ============================================================
// Profile view
// ============================================================

func TestOpenProfile_ShowsAuthorPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	signIn(t, f, "ada@example.com")
	createPost(t, f, "", "ada writes", "")
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	signIn(t, f, "bob@example.com")
	createPost(t, f, "", "bob writes", "")

	if err := f.session.OpenProfile(ctx, "ada"); err != nil {
		t.Fatalf("OpenProfile: %v", err)
	}
	snap := waitFor(t, f.session, func(s Snapshot) bool {
		return s.Profile != nil && len(s.Profile.Posts) == 1
	})
	if snap.Profile.Profile.DisplayName != "Ada" {
		t.Fatalf("profile = %+v", snap.Profile.Profile)
	}
	if snap.Profile.Posts[0].Post.Content != "ada writes" {
		t.Fatalf("profile posts = %+v", snap.Profile.Posts)
	}
}
