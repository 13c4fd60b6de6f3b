package api

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/auth"
	"github.com/jsherman999/skillswap/internal/realtime"
	"github.com/jsherman999/skillswap/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readyWire = "event: ready\ndata: {\"ok\":true}\n\n"

type fakeEnv struct {
	api    *API
	h      http.Handler
	store  *fakeStore
	tokens *auth.Tokens
}

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()
	tokens, err := auth.NewTokens("test-secret", time.Hour, nil)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	hub := realtime.New(realtime.WithMetrics(realtime.NewMetrics(reg)), realtime.WithHeartbeat(0))
	fs := newFakeStore()
	a := New(Deps{Config: testConfig(), Log: zerolog.Nop(), Store: fs, Hub: hub, Tokens: tokens, Metrics: reg})
	return &fakeEnv{api: a, h: a.Router(), store: fs, tokens: tokens}
}

func (e *fakeEnv) user(t *testing.T, name string) (*store.Profile, map[string]string) {
	t.Helper()
	p := e.store.addProfile(name)
	tok, err := e.tokens.Issue(p.ID, p.Email)
	require.NoError(t, err)
	return p, map[string]string{"Authorization": "Bearer " + tok}
}

// listen registers a connection for userID and consumes its ready frame.
func (e *fakeEnv) listen(t *testing.T, userID uuid.UUID) *realtime.Conn {
	t.Helper()
	c := e.api.hub.NewConn()
	e.api.hub.Register(userID, c)
	assert.Equal(t, readyWire, string(nextFrame(t, c)))
	return c
}

func nextFrame(t *testing.T, c *realtime.Conn) []byte {
	t.Helper()
	select {
	case f := <-c.Frames():
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return nil
	}
}

func assertNoFrame(t *testing.T, c *realtime.Conn) {
	t.Helper()
	select {
	case f := <-c.Frames():
		t.Fatalf("unexpected frame %q", f)
	default:
	}
}

func decodeFrame(t *testing.T, f []byte, dst any) string {
	t.Helper()
	var event string
	for _, line := range strings.Split(strings.TrimSuffix(string(f), "\n\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), dst))
		}
	}
	return event
}

type target struct {
	User uuid.UUID
	Type string
}

func targets(notes []store.NewNotification) []target {
	out := []target{}
	for _, n := range notes {
		out = append(out, target{n.UserID, n.Type})
	}
	return out
}

func TestStreamThroughRouter(t *testing.T) {
	e := newFakeEnv(t)
	alice, _ := e.user(t, "alice")
	tok, err := e.tokens.Issue(alice.ID, alice.Email)
	require.NoError(t, err)

	srv := httptest.NewServer(e.h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/chat/stream?token="+tok, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	br := bufio.NewReader(resp.Body)
	readWire := func() string {
		var sb strings.Builder
		for {
			line, err := br.ReadString('\n')
			require.NoError(t, err)
			sb.WriteString(line)
			if line == "\n" {
				return sb.String()
			}
		}
	}
	assert.Equal(t, readyWire, readWire())
	require.Equal(t, 1, e.api.hub.ConnCount(alice.ID))

	e.api.hub.Push(alice.ID, EventMessage, map[string]string{"content": "hi"})
	assert.Equal(t, "event: message\ndata: {\"content\":\"hi\"}\n\n", readWire())

	cancel()
	assert.Eventually(t, func() bool { return e.api.hub.ConnCount(alice.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamRejectsUnknownProfile(t *testing.T) {
	e := newFakeEnv(t)
	tok, err := e.tokens.Issue(uuid.New(), "gone@example.com")
	require.NoError(t, err)

	rec := do(t, e.h, http.MethodGet, "/api/chat/stream?token="+tok, "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "user not found", errorBody(t, rec))
}

func TestAuthenticateRejectsBadSubject(t *testing.T) {
	e := newFakeEnv(t)
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for _, path := range []string{"/api/users/me", "/api/chat/stream?token=" + bad} {
		rec := do(t, e.h, http.MethodGet, path, "", map[string]string{"Authorization": "Bearer " + bad})
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "invalid or expired token", errorBody(t, rec))
	}
}

func TestSendMessagePushesMessageThenNotification(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")
	bob, _ := e.user(t, "bob")
	c1, c2 := e.listen(t, bob.ID), e.listen(t, bob.ID)
	mine := e.listen(t, alice.ID)

	body := fmt.Sprintf(`{"toUserId":%q,"content":"  hello  "}`, bob.ID)
	rec := do(t, e.h, http.MethodPost, "/api/chat/messages", body, aliceAuth)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, c := range []*realtime.Conn{c1, c2} {
		var msg store.Message
		require.Equal(t, EventMessage, decodeFrame(t, nextFrame(t, c), &msg))
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, alice.ID, msg.SenderID)

		var n notificationEvent
		require.Equal(t, EventNotification, decodeFrame(t, nextFrame(t, c), &n))
		assert.Equal(t, store.NotifyMessage, n.Type)
		assert.Equal(t, alice.ID, n.ActorID)
		require.NotNil(t, n.MessageID)
		assert.Equal(t, msg.ID, *n.MessageID)
		assert.NotZero(t, n.NotificationID)
	}
	assertNoFrame(t, mine)
	assert.Equal(t, []target{{bob.ID, store.NotifyMessage}}, targets(e.store.notifications()))
}

func TestSendMessageValidation(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")

	rec := do(t, e.h, http.MethodPost, "/api/chat/messages", fmt.Sprintf(`{"toUserId":%q,"content":"   "}`, uuid.New()), aliceAuth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e.h, http.MethodPost, "/api/chat/messages", fmt.Sprintf(`{"toUserId":%q,"content":"me"}`, alice.ID), aliceAuth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, e.store.notifications())
}

func TestEngagementNotifiesOwnerOnce(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")
	bob, bobAuth := e.user(t, "bob")
	e.store.posts[7] = alice.ID
	c := e.listen(t, alice.ID)

	for i := 0; i < 2; i++ {
		rec := do(t, e.h, http.MethodPost, "/api/posts/7/like", "", bobAuth)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, e.h, http.MethodPost, "/api/posts/7/like", "", aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e.h, http.MethodPost, "/api/posts/7/share", "", bobAuth)
	require.Equal(t, http.StatusOK, rec.Code)

	var n notificationEvent
	require.Equal(t, EventNotification, decodeFrame(t, nextFrame(t, c), &n))
	assert.Equal(t, store.NotifyLike, n.Type)
	assert.Equal(t, bob.ID, n.ActorID)
	require.NotNil(t, n.PostID)
	assert.Equal(t, int64(7), *n.PostID)

	require.Equal(t, EventNotification, decodeFrame(t, nextFrame(t, c), &n))
	assert.Equal(t, store.NotifyShare, n.Type)
	assertNoFrame(t, c)

	assert.Equal(t, []target{{alice.ID, store.NotifyLike}, {alice.ID, store.NotifyShare}}, targets(e.store.notifications()))

	rec = do(t, e.h, http.MethodPost, "/api/posts/99/like", "", bobAuth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentNotificationTargets(t *testing.T) {
	owner, bob, carol := uuid.New(), uuid.New(), uuid.New()
	tests := []struct {
		name        string
		actor       uuid.UUID
		parentOwner *uuid.UUID
		want        func(ownerID uuid.UUID) []target
	}{
		{"top level", bob, nil, func(o uuid.UUID) []target { return []target{{o, store.NotifyComment}} }},
		{"reply to third party", carol, &bob, func(o uuid.UUID) []target {
			return []target{{bob, store.NotifyReply}, {o, store.NotifyComment}}
		}},
		{"reply to post owner", carol, &owner, func(o uuid.UUID) []target { return []target{{o, store.NotifyReply}} }},
		{"owner replies", owner, &bob, func(o uuid.UUID) []target { return []target{{bob, store.NotifyReply}} }},
		{"reply to self", bob, &bob, func(o uuid.UUID) []target { return []target{{o, store.NotifyComment}} }},
		{"owner top level", owner, nil, func(o uuid.UUID) []target { return []target{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newFakeEnv(t)
			actor := &store.Profile{ID: tt.actor, Email: "actor@example.com", Username: "actor"}
			e.store.profiles[actor.ID] = actor
			tok, err := e.tokens.Issue(actor.ID, actor.Email)
			require.NoError(t, err)
			e.store.comment = store.NewComment{Comment: &store.Comment{ID: 11}, PostOwnerID: owner, ParentOwnerID: tt.parentOwner}

			body := `{"content":"nice"}`
			if tt.parentOwner != nil {
				body = `{"content":"nice","parent_comment_id":10}`
			}
			rec := do(t, e.h, http.MethodPost, "/api/posts/3/comment", body, map[string]string{"Authorization": "Bearer " + tok})
			require.Equal(t, http.StatusCreated, rec.Code)

			notes := e.store.notifications()
			assert.Equal(t, tt.want(owner), targets(notes))
			for _, n := range notes {
				require.NotNil(t, n.CommentID)
				assert.Equal(t, int64(11), *n.CommentID)
				assert.Equal(t, tt.actor, n.ActorID)
			}
		})
	}
}

func TestFriendRequestNotifications(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")
	bob, bobAuth := e.user(t, "bob")
	ca, cb := e.listen(t, alice.ID), e.listen(t, bob.ID)

	rec := do(t, e.h, http.MethodPost, "/api/friends/request", fmt.Sprintf(`{"toUserId":%q}`, alice.ID), bobAuth)
	require.Equal(t, http.StatusCreated, rec.Code)

	var n notificationEvent
	require.Equal(t, EventNotification, decodeFrame(t, nextFrame(t, ca), &n))
	assert.Equal(t, store.NotifyFriendRequest, n.Type)
	assert.Equal(t, bob.ID, n.ActorID)
	require.NotNil(t, n.FriendshipID)
	assertNoFrame(t, cb)

	rec = do(t, e.h, http.MethodPatch, "/api/friends/requests/"+bob.ID.String()+"/accept", "", aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, EventNotification, decodeFrame(t, nextFrame(t, cb), &n))
	assert.Equal(t, store.NotifyFriendAccept, n.Type)
	assert.Equal(t, alice.ID, n.ActorID)
	assertNoFrame(t, ca)
}

func TestFriendRejectIsSilent(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")
	bob, bobAuth := e.user(t, "bob")

	rec := do(t, e.h, http.MethodPost, "/api/friends/request", fmt.Sprintf(`{"toUserId":%q}`, alice.ID), bobAuth)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, e.h, http.MethodPatch, "/api/friends/requests/"+bob.ID.String()+"/reject", "", aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []target{{alice.ID, store.NotifyFriendRequest}}, targets(e.store.notifications()))
}

func TestSkillsHandlers(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")
	_, bobAuth := e.user(t, "bob")

	rec := do(t, e.h, http.MethodPost, "/api/skills", `{"skill_name":"guitar"}`, aliceAuth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "skill_type is required", errorBody(t, rec))

	rec = do(t, e.h, http.MethodPost, "/api/skills", `{"skill_name":"  guitar ","skill_type":"teach"}`, aliceAuth)
	require.Equal(t, http.StatusCreated, rec.Code)
	var k store.Skill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &k))
	assert.Equal(t, "guitar", k.SkillName)
	assert.Equal(t, alice.ID, k.UserID)

	rec = do(t, e.h, http.MethodGet, "/api/skills/user/"+alice.ID.String(), "", bobAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []store.Skill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	path := fmt.Sprintf("/api/skills/%d", k.ID)
	rec = do(t, e.h, http.MethodPut, path, `{"skill_name":"bass"}`, bobAuth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e.h, http.MethodPut, path, `{}`, aliceAuth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, e.h, http.MethodPut, path, `{"skill_name":"bass"}`, aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &k))
	assert.Equal(t, "bass", k.SkillName)
	assert.Equal(t, "teach", k.SkillType)

	rec = do(t, e.h, http.MethodDelete, path, "", bobAuth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e.h, http.MethodDelete, path, "", aliceAuth)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e.h, http.MethodGet, "/api/skills/me", "", aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestProfileHandlers(t *testing.T) {
	e := newFakeEnv(t)
	alice, aliceAuth := e.user(t, "alice")
	bob, bobAuth := e.user(t, "bob")
	e.store.posts[5] = alice.ID
	_, err := e.store.CreateSkill(context.Background(), alice.ID, "go", "teach")
	require.NoError(t, err)

	rec := do(t, e.h, http.MethodGet, "/api/users/"+alice.ID.String(), "", bobAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		ID       uuid.UUID          `json:"id"`
		Username string             `json:"username"`
		Skills   []store.Skill      `json:"skills"`
		Stats    store.ProfileStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, alice.ID, view.ID)
	assert.Equal(t, "alice", view.Username)
	assert.Len(t, view.Skills, 1)
	assert.Equal(t, store.ProfileStats{Posts: 2, Friends: 1}, view.Stats)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, e.h, http.MethodGet, "/api/users/"+uuid.New().String(), "", bobAuth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e.h, http.MethodGet, "/api/users/not-a-uuid", "", bobAuth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e.h, http.MethodPut, "/api/users/me", `{"bio":"hi","location":"Oslo"}`, bobAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	var me store.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, bob.ID, me.ID)
	assert.Equal(t, "Oslo", *me.Location)

	rec = do(t, e.h, http.MethodPut, "/api/users/me", `{"avatar_url":"not a url"}`, bobAuth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e.h, http.MethodGet, "/api/users", "", aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []store.ProfileSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	rec = do(t, e.h, http.MethodGet, "/api/users/"+alice.ID.String()+"/posts", "", bobAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []store.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, int64(5), posts[0].ID)

	rec = do(t, e.h, http.MethodGet, "/api/users/me", "", aliceAuth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skills"`)
}
