package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/exporter"
	"github.com/jsherman999/skillswap/internal/store"
)

// Store is the persistence the handlers use. *store.Store implements it.
type Store interface {
	exporter.Source

	Ping(ctx context.Context) error

	CreateProfile(ctx context.Context, email, username string, fullName *string, passwordHash string) (*store.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*store.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, u store.ProfileUpdate) (*store.Profile, error)
	ListProfiles(ctx context.Context, limit, offset int) ([]store.ProfileSummary, error)
	GetProfileStats(ctx context.Context, id uuid.UUID) (store.ProfileStats, error)

	ListSkills(ctx context.Context, userID uuid.UUID) ([]store.Skill, error)
	CreateSkill(ctx context.Context, userID uuid.UUID, name, skillType string) (*store.Skill, error)
	UpdateSkill(ctx context.Context, owner uuid.UUID, id int64, name, skillType *string) (*store.Skill, error)
	DeleteSkill(ctx context.Context, owner uuid.UUID, id int64) error

	CreatePost(ctx context.Context, userID uuid.UUID, content string, imageURL *string) (*store.Post, error)
	ListPosts(ctx context.Context, viewer uuid.UUID, limit, offset int) ([]store.Post, error)
	ListUserPosts(ctx context.Context, viewer, owner uuid.UUID, limit, offset int) ([]store.Post, error)
	SearchPosts(ctx context.Context, viewer uuid.UUID, q string, limit int) ([]store.Post, error)
	GetPostOwner(ctx context.Context, postID int64) (uuid.UUID, error)
	AddView(ctx context.Context, postID int64) (int, error)
	LikePost(ctx context.Context, userID uuid.UUID, postID int64) (bool, error)
	UnlikePost(ctx context.Context, userID uuid.UUID, postID int64) error
	SharePost(ctx context.Context, userID uuid.UUID, postID int64) (bool, error)
	UnsharePost(ctx context.Context, userID uuid.UUID, postID int64) error

	CreateComment(ctx context.Context, userID uuid.UUID, postID int64, content string, parentID *int64) (*store.NewComment, error)
	ListComments(ctx context.Context, postID int64) ([]*store.Comment, error)
	DeleteComment(ctx context.Context, actor uuid.UUID, commentID int64) (string, error)

	SendFriendRequest(ctx context.Context, from, to uuid.UUID) (*store.Friendship, error)
	RespondFriendRequest(ctx context.Context, me, other uuid.UUID, accept bool) (*store.Friendship, error)
	Unfriend(ctx context.Context, me, other uuid.UUID) error
	ListFriends(ctx context.Context, me uuid.UUID) ([]store.FriendLink, error)
	ListIncomingRequests(ctx context.Context, me uuid.UUID) ([]store.FriendLink, error)
	ListOutgoingRequests(ctx context.Context, me uuid.UUID) ([]store.FriendLink, error)
	SuggestFriends(ctx context.Context, me uuid.UUID, limit, offset int) ([]store.Suggestion, error)

	InsertMessage(ctx context.Context, from, to uuid.UUID, content string) (*store.Message, error)
	ListConversations(ctx context.Context, me uuid.UUID) ([]store.Conversation, error)
	ChatHistory(ctx context.Context, me, other uuid.UUID, limit, offset int) ([]store.Message, error)
	MarkChatRead(ctx context.Context, me, other uuid.UUID) (int64, error)

	InsertNotification(ctx context.Context, nn store.NewNotification) (*store.Notification, error)
	UnreadNotificationCount(ctx context.Context, me uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, me uuid.UUID, id int64) (*store.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, me uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, me uuid.UUID, id int64) error
}

var _ Store = (*store.Store)(nil)
