package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/store"
)

// notificationEvent is the payload of a "notification" stream event.
type notificationEvent struct {
	NotificationID int64     `json:"notification_id"`
	Type           string    `json:"notification_type"`
	ActorID        uuid.UUID `json:"actor_id"`
	PostID         *int64    `json:"post_id,omitempty"`
	CommentID      *int64    `json:"comment_id,omitempty"`
	FriendshipID   *int64    `json:"friendship_id,omitempty"`
	MessageID      *int64    `json:"message_id,omitempty"`
}

// notify stores a notification and pushes it to the recipient's streams.
// Users are never notified about their own actions. Failures are logged and
// never fail the request that triggered them.
func (a *API) notify(ctx context.Context, nn store.NewNotification) {
	if nn.UserID == nn.ActorID {
		return
	}
	n, err := a.store.InsertNotification(ctx, nn)
	if err != nil {
		a.log.Warn().Err(err).
			Str("type", nn.Type).
			Str("user_id", nn.UserID.String()).
			Msg("store notification")
		return
	}
	a.hub.Push(nn.UserID, EventNotification, notificationEvent{
		NotificationID: n.ID,
		Type:           nn.Type,
		ActorID:        nn.ActorID,
		PostID:         nn.PostID,
		CommentID:      nn.CommentID,
		FriendshipID:   nn.FriendshipID,
		MessageID:      nn.MessageID,
	})
}
