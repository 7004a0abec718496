package store

import "strings"

// Collection and document paths used by the engine. The hierarchy mirrors
// the product's layout:
//
//	posts/{postID}
//	posts/{postID}/ratings/{raterID}
//	posts/{postID}/comments/{commentID}
//	posts/{postID}/comments/{commentID}/ratings/{raterID}
//	users/{userID}
//	users/{userID}/drafts/{draftID}
const (
	PostsCollection = "posts"
	UsersCollection = "users"
)

func PostPath(postID string) string {
	return join(PostsCollection, postID)
}

func PostRatingsCollection(postID string) string {
	return join(PostsCollection, postID, "ratings")
}

func PostRatingPath(postID, raterID string) string {
	return join(PostRatingsCollection(postID), raterID)
}

func CommentsCollection(postID string) string {
	return join(PostsCollection, postID, "comments")
}

func CommentPath(postID, commentID string) string {
	return join(CommentsCollection(postID), commentID)
}

func CommentRatingsCollection(postID, commentID string) string {
	return join(CommentPath(postID, commentID), "ratings")
}

func CommentRatingPath(postID, commentID, raterID string) string {
	return join(CommentRatingsCollection(postID, commentID), raterID)
}

func UserPath(userID string) string {
	return join(UsersCollection, userID)
}

func DraftsCollection(userID string) string {
	return join(UserPath(userID), "drafts")
}

func DraftPath(userID, draftID string) string {
	return join(DraftsCollection(userID), draftID)
}

func join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Split separates a document path into its parent collection and id.
func Split(path string) (collection, id string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
