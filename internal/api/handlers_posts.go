package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/store"
)

type createPostRequest struct {
	Content  string  `json:"content" validate:"required,max=10000"`
	ImageURL *string `json:"image_url" validate:"omitempty,url"`
}

type createCommentRequest struct {
	Content         string `json:"content" validate:"required,max=5000"`
	ParentCommentID *int64 `json:"parent_comment_id" validate:"omitempty,gt=0"`
}

func (a *API) listPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, 20, 100)
	posts, err := a.store.ListPosts(r.Context(), currentUser(r.Context()).ID, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *API) listUserPosts(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	limit, offset := page(r, 20, 100)
	posts, err := a.store.ListUserPosts(r.Context(), currentUser(r.Context()).ID, owner, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *API) searchPosts(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := page(r, 20, 100)
	posts, err := a.store.SearchPosts(r.Context(), currentUser(r.Context()).ID, q, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (a *API) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !a.decode(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	p, err := a.store.CreatePost(r.Context(), currentUser(r.Context()).ID, content, req.ImageURL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) likePost(w http.ResponseWriter, r *http.Request) {
	a.engage(w, r, store.NotifyLike, a.store.LikePost)
}

func (a *API) sharePost(w http.ResponseWriter, r *http.Request) {
	a.engage(w, r, store.NotifyShare, a.store.SharePost)
}

// engage records a like or share and notifies the post owner the first time.
func (a *API) engage(w http.ResponseWriter, r *http.Request, kind string, add func(ctx context.Context, user uuid.UUID, post int64) (bool, error)) {
	postID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	me := currentUser(r.Context()).ID
	owner, err := a.store.GetPostOwner(r.Context(), postID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := add(r.Context(), me, postID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if created {
		a.notify(r.Context(), store.NewNotification{UserID: owner, ActorID: me, Type: kind, PostID: &postID})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "created": created})
}

func (a *API) unlikePost(w http.ResponseWriter, r *http.Request) {
	a.disengage(w, r, a.store.UnlikePost)
}

func (a *API) unsharePost(w http.ResponseWriter, r *http.Request) {
	a.disengage(w, r, a.store.UnsharePost)
}

func (a *API) disengage(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, user uuid.UUID, post int64) error) {
	postID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := remove(r.Context(), currentUser(r.Context()).ID, postID); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) viewPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	views, err := a.store.AddView(r.Context(), postID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"view_count": views})
}

func (a *API) listComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	tree, err := a.store.ListComments(r.Context(), postID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (a *API) createComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var req createCommentRequest
	if !a.decode(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	me := currentUser(r.Context()).ID
	nc, err := a.store.CreateComment(r.Context(), me, postID, content, req.ParentCommentID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	commentID := nc.Comment.ID
	if nc.ParentOwnerID != nil {
		a.notify(r.Context(), store.NewNotification{
			UserID: *nc.ParentOwnerID, ActorID: me, Type: store.NotifyReply, PostID: &postID, CommentID: &commentID,
		})
	}
	if nc.ParentOwnerID == nil || *nc.ParentOwnerID != nc.PostOwnerID {
		a.notify(r.Context(), store.NewNotification{
			UserID: nc.PostOwnerID, ActorID: me, Type: store.NotifyComment, PostID: &postID, CommentID: &commentID,
		})
	}
	writeJSON(w, http.StatusCreated, nc.Comment)
}

func (a *API) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	mode, err := a.store.DeleteComment(r.Context(), currentUser(r.Context()).ID, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "mode": mode})
}
