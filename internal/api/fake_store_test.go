package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/store"
)

// fakeStore keeps just enough state for handler tests. Methods it does not
// override fall through to the nil embedded Store and panic.
type fakeStore struct {
	Store

	mu       sync.Mutex
	nextID   int64
	profiles map[uuid.UUID]*store.Profile
	posts    map[int64]uuid.UUID
	engaged  map[string]bool
	skills   map[int64]*store.Skill
	comment  store.NewComment
	request  store.Friendship
	notes    []store.NewNotification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[uuid.UUID]*store.Profile{},
		posts:    map[int64]uuid.UUID{},
		engaged:  map[string]bool{},
		skills:   map[int64]*store.Skill{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) addProfile(name string) *store.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &store.Profile{ID: uuid.New(), Email: name + "@example.com", Username: name, CreatedAt: time.Now()}
	f.profiles[p.ID] = p
	return p
}

func (f *fakeStore) notifications() []store.NewNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.NewNotification(nil), f.notes...)
}

func (f *fakeStore) GetProfile(ctx context.Context, id uuid.UUID) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("get profile: %w", store.ErrNotFound)
	}
	return p, nil
}

func (f *fakeStore) GetProfileStats(ctx context.Context, id uuid.UUID) (store.ProfileStats, error) {
	return store.ProfileStats{Posts: 2, Friends: 1}, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, id uuid.UUID, u store.ProfileUpdate) (*store.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("update profile: %w", store.ErrNotFound)
	}
	if u.Bio != nil {
		p.Bio = u.Bio
	}
	if u.Location != nil {
		p.Location = u.Location
	}
	return p, nil
}

func (f *fakeStore) ListProfiles(ctx context.Context, limit, offset int) ([]store.ProfileSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.ProfileSummary{}
	for _, p := range f.profiles {
		out = append(out, store.ProfileSummary{ID: p.ID, Username: p.Username})
	}
	return out, nil
}

func (f *fakeStore) ListUserPosts(ctx context.Context, viewer, owner uuid.UUID, limit, offset int) ([]store.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Post{}
	for id, o := range f.posts {
		if o == owner {
			out = append(out, store.Post{ID: id, UserID: o})
		}
	}
	return out, nil
}

func (f *fakeStore) ListSkills(ctx context.Context, userID uuid.UUID) ([]store.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []store.Skill{}
	for _, k := range f.skills {
		if k.UserID == userID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateSkill(ctx context.Context, userID uuid.UUID, name, skillType string) (*store.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := &store.Skill{ID: f.id(), UserID: userID, SkillName: name, SkillType: skillType, CreatedAt: time.Now()}
	f.skills[k.ID] = k
	return k, nil
}

func (f *fakeStore) UpdateSkill(ctx context.Context, owner uuid.UUID, id int64, name, skillType *string) (*store.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.skills[id]
	if !ok || k.UserID != owner {
		return nil, fmt.Errorf("update skill: %w", store.ErrNotFound)
	}
	if name != nil {
		k.SkillName = *name
	}
	if skillType != nil {
		k.SkillType = *skillType
	}
	return k, nil
}

func (f *fakeStore) DeleteSkill(ctx context.Context, owner uuid.UUID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.skills[id]
	if !ok || k.UserID != owner {
		return fmt.Errorf("delete skill: %w", store.ErrNotFound)
	}
	delete(f.skills, id)
	return nil
}

func (f *fakeStore) GetPostOwner(ctx context.Context, postID int64) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.posts[postID]
	if !ok {
		return uuid.Nil, fmt.Errorf("get post owner: %w", store.ErrNotFound)
	}
	return owner, nil
}

func (f *fakeStore) engage(kind string, userID uuid.UUID, postID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%d", kind, userID, postID)
	if f.engaged[key] {
		return false
	}
	f.engaged[key] = true
	return true
}

func (f *fakeStore) LikePost(ctx context.Context, userID uuid.UUID, postID int64) (bool, error) {
	return f.engage("like", userID, postID), nil
}

func (f *fakeStore) SharePost(ctx context.Context, userID uuid.UUID, postID int64) (bool, error) {
	return f.engage("share", userID, postID), nil
}

func (f *fakeStore) CreateComment(ctx context.Context, userID uuid.UUID, postID int64, content string, parentID *int64) (*store.NewComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	nc := f.comment
	c := *nc.Comment
	c.UserID, c.PostID, c.ParentCommentID, c.Content = userID, postID, parentID, &content
	nc.Comment = &c
	return &nc, nil
}

func (f *fakeStore) SendFriendRequest(ctx context.Context, from, to uuid.UUID) (*store.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, v := store.CanonicalPair(from, to)
	f.request = store.Friendship{ID: f.id(), UserID: u, FriendID: v, Status: store.FriendPending, RequestedBy: from}
	fr := f.request
	return &fr, nil
}

func (f *fakeStore) RespondFriendRequest(ctx context.Context, me, other uuid.UUID, accept bool) (*store.Friendship, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.request.RequestedBy != other {
		return nil, fmt.Errorf("get friend request: %w", store.ErrNotFound)
	}
	f.request.Status = store.FriendRejected
	if accept {
		f.request.Status = store.FriendAccepted
	}
	fr := f.request
	return &fr, nil
}

func (f *fakeStore) InsertMessage(ctx context.Context, from, to uuid.UUID, content string) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if from == to {
		return nil, fmt.Errorf("message to self: %w", store.ErrInvalid)
	}
	return &store.Message{ID: f.id(), SenderID: from, ReceiverID: to, Content: content, CreatedAt: time.Now()}, nil
}

func (f *fakeStore) InsertNotification(ctx context.Context, nn store.NewNotification) (*store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, nn)
	actor := nn.ActorID
	return &store.Notification{ID: f.id(), UserID: nn.UserID, ActorID: &actor, Type: nn.Type, CreatedAt: time.Now()}, nil
}
