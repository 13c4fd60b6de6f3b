package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/store"
)

type sendMessageRequest struct {
	ToUserID uuid.UUID `json:"toUserId" validate:"required"`
	Content  string    `json:"content" validate:"required,max=5000"`
}

func (a *API) conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := a.store.ListConversations(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (a *API) chatHistory(w http.ResponseWriter, r *http.Request) {
	other, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	limit, offset := page(r, 30, 100)
	msgs, err := a.store.ChatHistory(r.Context(), currentUser(r.Context()).ID, other, limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// sendMessage stores the message, then pushes it and a notification to the
// receiver's open streams.
func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !a.decode(w, r, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	me := currentUser(r.Context()).ID
	msg, err := a.store.InsertMessage(r.Context(), me, req.ToUserID, content)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.hub.Push(msg.ReceiverID, EventMessage, msg)
	a.notify(r.Context(), store.NewNotification{
		UserID: msg.ReceiverID, ActorID: me, Type: store.NotifyMessage, MessageID: &msg.ID,
	})
	writeJSON(w, http.StatusCreated, msg)
}

func (a *API) markChatRead(w http.ResponseWriter, r *http.Request) {
	other, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	n, err := a.store.MarkChatRead(r.Context(), currentUser(r.Context()).ID, other)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
}

func (a *API) stream(w http.ResponseWriter, r *http.Request) {
	a.hub.Serve(w, r, currentUser(r.Context()).ID)
}
