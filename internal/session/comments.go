package session

import (
	"context"
	"fmt"
	"log"

	"github.com/DonyChristie/crux/internal/feed"
	"github.com/DonyChristie/crux/internal/model"
	"github.com/DonyChristie/crux/internal/ratings"
	"github.com/DonyChristie/crux/internal/sortpolicy"
	"github.com/DonyChristie/crux/internal/store"
	"github.com/DonyChristie/crux/internal/thread"
	"github.com/DonyChristie/crux/internal/timeutil"
)

// postViewState tracks the open post: its own rating aggregate, the
// comment set and one ratings subscription per comment. State is owned by
// the dispatch goroutine; subscription callbacks re-enter through tasks.
// The epoch counter discards aggregate emissions that belong to a
// superseded comment set.
type postViewState struct {
	postID string
	item   feed.Item
	failed bool

	comments []model.Comment
	aggs     map[string]ratings.Aggregate

	epoch       int
	disposers   []store.DisposeFunc
	commentSubs []store.DisposeFunc
}

func (pv *postViewState) view(mode sortpolicy.Mode) *PostView {
	return &PostView{
		Item:           pv.item,
		Comments:       thread.Build(pv.comments, pv.aggs, mode),
		CommentsFailed: pv.failed,
	}
}

// OpenPost loads a post and opens its live comment thread.
func (s *Session) OpenPost(ctx context.Context, postID string) error {
	return s.call(func() error {
		doc, ok, err := s.deps.Store.Get(ctx, store.PostPath(postID))
		if err != nil {
			return fmt.Errorf("failed to load post: %w", err)
		}
		if !ok {
			return model.ErrPostNotFound
		}

		s.closePostView()
		s.openPostViewWithPost(feed.DecodePost(doc))
		s.emit()
		return nil
	})
}

// ClosePost tears down the open post view.
func (s *Session) ClosePost() {
	s.do(func() {
		s.closePostView()
		s.emit()
	})
}

// openPostView reopens a view by id, for viewer changes. Dispatch-loop
// only.
func (s *Session) openPostView(postID string) {
	doc, ok, err := s.deps.Store.Get(s.ctx, store.PostPath(postID))
	if err != nil || !ok {
		log.Printf("[Session] Post %s no longer readable: %v", postID, err)
		return
	}
	s.openPostViewWithPost(feed.DecodePost(doc))
}

func (s *Session) openPostViewWithPost(post model.Post) {
	pv := &postViewState{
		postID: post.ID,
		item:   feed.Item{Post: post},
		aggs:   make(map[string]ratings.Aggregate),
	}
	s.postView = pv

	postRatings := s.deps.Ratings.Subscribe(s.ctx, store.PostRatingsCollection(post.ID), s.viewerID(),
		func(agg ratings.Aggregate) {
			s.do(func() {
				if s.postView != pv {
					return
				}
				pv.item.Aggregate = agg
				s.emit()
			})
		},
		func(error) {
			// Fail open; the post keeps its last aggregate.
		},
	)

	commentsQuery := store.Query{}.OrderBy("createdAt", store.Asc)
	commentsWatch := s.deps.Store.Watch(s.ctx, store.CommentsCollection(post.ID), commentsQuery,
		func(snap store.Snapshot) {
			s.do(func() {
				if s.postView != pv {
					return
				}
				s.applyComments(pv, snap)
				s.emit()
			})
		},
		func(err error) {
			s.do(func() {
				if s.postView != pv {
					return
				}
				pv.failed = true
				s.emit()
			})
		},
	)

	pv.disposers = append(pv.disposers, postRatings, commentsWatch)
}

// applyComments replaces the comment set and rebuilds the per-comment
// ratings subscriptions. Dispatch-loop only.
func (s *Session) applyComments(pv *postViewState, snap store.Snapshot) {
	pv.epoch++
	epoch := pv.epoch

	stale := pv.commentSubs
	pv.commentSubs = nil
	for _, dispose := range stale {
		dispose()
	}

	pv.comments = make([]model.Comment, 0, len(snap.Docs))
	pv.aggs = make(map[string]ratings.Aggregate, len(snap.Docs))
	for _, doc := range snap.Docs {
		pv.comments = append(pv.comments, DecodeComment(doc, pv.postID))
	}

	for _, comment := range pv.comments {
		commentID := comment.ID
		dispose := s.deps.Ratings.Subscribe(s.ctx, store.CommentRatingsCollection(pv.postID, commentID), s.viewerID(),
			func(agg ratings.Aggregate) {
				s.do(func() {
					if s.postView != pv || epoch != pv.epoch {
						return
					}
					pv.aggs[commentID] = agg
					s.emit()
				})
			},
			func(error) {
				// Fail open per comment.
			},
		)
		pv.commentSubs = append(pv.commentSubs, dispose)
	}
}

func (s *Session) closePostView() {
	if s.postView == nil {
		return
	}
	for _, dispose := range s.postView.disposers {
		dispose()
	}
	for _, dispose := range s.postView.commentSubs {
		dispose()
	}
	s.postView = nil
}

// AddComment posts a top-level comment or, with parentID set, a reply.
func (s *Session) AddComment(ctx context.Context, postID string, parentID *string, content string) (string, error) {
	var commentID string
	err := s.call(func() error {
		if s.viewer == nil {
			return model.ErrSignInRequired
		}
		if err := model.ValidateComment(content); err != nil {
			return err
		}

		fields := map[string]any{
			"content":   content,
			"authorId":  s.viewer.ID,
			"author":    s.viewer.DisplayLabel(),
			"createdAt": store.ServerTimestamp,
		}
		if parentID != nil {
			fields["parentId"] = *parentID
		}

		id, err := s.deps.Store.Add(ctx, store.CommentsCollection(postID), fields)
		if err != nil {
			return fmt.Errorf("failed to post comment: %w", err)
		}
		commentID = id
		return nil
	})
	return commentID, err
}

// EditComment rewrites the viewer's own comment, stamping updatedAt.
func (s *Session) EditComment(ctx context.Context, postID, commentID, content string) error {
	return s.call(func() error {
		if s.viewer == nil {
			return model.ErrSignInRequired
		}
		if err := model.ValidateComment(content); err != nil {
			return err
		}
		if err := s.requireCommentOwner(ctx, postID, commentID); err != nil {
			return err
		}

		err := s.deps.Store.Set(ctx, store.CommentPath(postID, commentID), map[string]any{
			"content":   content,
			"updatedAt": store.ServerTimestamp,
		}, true)
		if err != nil {
			return fmt.Errorf("failed to edit comment: %w", err)
		}
		return nil
	})
}

// DeleteComment removes the viewer's own comment. Replies survive and
// surface as thread roots.
func (s *Session) DeleteComment(ctx context.Context, postID, commentID string) error {
	return s.call(func() error {
		if s.viewer == nil {
			return model.ErrSignInRequired
		}
		if err := s.requireCommentOwner(ctx, postID, commentID); err != nil {
			return err
		}

		if err := s.deps.Store.Delete(ctx, store.CommentPath(postID, commentID)); err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		return nil
	})
}

// RateComment records the viewer's rating of a comment.
func (s *Session) RateComment(ctx context.Context, postID, commentID string, value int) error {
	return s.call(func() error {
		return s.deps.Ratings.Rate(ctx, store.CommentRatingsCollection(postID, commentID), s.viewerID(), value)
	})
}

func (s *Session) requireCommentOwner(ctx context.Context, postID, commentID string) error {
	doc, ok, err := s.deps.Store.Get(ctx, store.CommentPath(postID, commentID))
	if err != nil {
		return fmt.Errorf("failed to load comment: %w", err)
	}
	if !ok {
		return model.ErrCommentNotFound
	}
	if authorID, _ := doc.Fields["authorId"].(string); authorID != s.viewer.ID {
		return model.ErrNotOwner
	}
	return nil
}

// DecodeComment maps a comment document onto the model.
func DecodeComment(doc store.Document, postID string) model.Comment {
	c := model.Comment{ID: doc.ID, PostID: postID}
	if content, ok := doc.Fields["content"].(string); ok {
		c.Content = content
	}
	if authorID, ok := doc.Fields["authorId"].(string); ok {
		c.AuthorID = authorID
	}
	if author, ok := doc.Fields["author"].(string); ok {
		c.Author = author
	}
	if parentID, ok := doc.Fields["parentId"].(string); ok && parentID != "" {
		c.ParentID = &parentID
	}
	if at, ok := timeutil.Coerce(doc.Fields["createdAt"]); ok {
		c.CreatedAt = at
	}
	if at, ok := timeutil.Coerce(doc.Fields["updatedAt"]); ok {
		c.UpdatedAt = &at
	}
	return c
}
