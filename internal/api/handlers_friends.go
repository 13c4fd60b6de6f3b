package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/store"
)

type friendRequest struct {
	ToUserID uuid.UUID `json:"toUserId" validate:"required"`
}

func (a *API) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequest
	if !a.decode(w, r, &req) {
		return
	}
	me := currentUser(r.Context()).ID
	fr, err := a.store.SendFriendRequest(r.Context(), me, req.ToUserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.notify(r.Context(), store.NewNotification{
		UserID: req.ToUserID, ActorID: me, Type: store.NotifyFriendRequest, FriendshipID: &fr.ID,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "friendship": fr})
}

func (a *API) acceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	a.respondFriendRequest(w, r, true)
}

func (a *API) rejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	a.respondFriendRequest(w, r, false)
}

func (a *API) respondFriendRequest(w http.ResponseWriter, r *http.Request, accept bool) {
	other, ok := pathUUID(w, r, "otherID")
	if !ok {
		return
	}
	me := currentUser(r.Context()).ID
	fr, err := a.store.RespondFriendRequest(r.Context(), me, other, accept)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if accept {
		a.notify(r.Context(), store.NewNotification{
			UserID: fr.RequestedBy, ActorID: me, Type: store.NotifyFriendAccept, FriendshipID: &fr.ID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "friendship": fr})
}

func (a *API) unfriend(w http.ResponseWriter, r *http.Request) {
	other, ok := pathUUID(w, r, "otherID")
	if !ok {
		return
	}
	if err := a.store.Unfriend(r.Context(), currentUser(r.Context()).ID, other); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) listFriends(w http.ResponseWriter, r *http.Request) {
	links, err := a.store.ListFriends(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (a *API) incomingRequests(w http.ResponseWriter, r *http.Request) {
	links, err := a.store.ListIncomingRequests(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (a *API) outgoingRequests(w http.ResponseWriter, r *http.Request) {
	links, err := a.store.ListOutgoingRequests(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (a *API) suggestFriends(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, 20, 50)
	sugg, err := a.store.SuggestFriends(r.Context(), currentUser(r.Context()).ID, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sugg)
}
