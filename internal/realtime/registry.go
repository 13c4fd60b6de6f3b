// Package realtime keeps the in-process registry of open event streams per
// user and fans events out to them. Delivery is best-effort: events for a
// user with no open stream are dropped, and nothing survives a restart.
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Defaults used when the matching option is not given.
const (
	DefaultBuffer       = 64
	DefaultWriteTimeout = 10 * time.Second
	DefaultHeartbeat    = 25 * time.Second
)

// Conn is one open output stream. Frames are queued by Push and drained by
// the transport loop; Done closes once the stream is considered lost.
type Conn struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once

	// guarded by Registry.mu
	owner   uuid.UUID
	member  bool
	greeted bool
}

// NewConn returns an unregistered connection holding up to buf queued
// frames; buf <= 0 means DefaultBuffer.
func NewConn(buf int) *Conn {
	if buf <= 0 {
		buf = DefaultBuffer
	}
	return &Conn{frames: make(chan []byte, buf), done: make(chan struct{})}
}

// Frames yields queued frames in push order.
func (c *Conn) Frames() <-chan []byte { return c.frames }

// Done is closed when the connection is deregistered or found stalled.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) markLost() {
	c.once.Do(func() { close(c.done) })
}

// Registry maps a user id to that user's open connections.
type Registry struct {
	mu    sync.Mutex
	users map[uuid.UUID]map[*Conn]struct{}

	log          zerolog.Logger
	metrics      *Metrics
	clock        clockwork.Clock
	buffer       int
	writeTimeout time.Duration
	heartbeat    time.Duration
}

type Option func(*Registry)

func WithLogger(l zerolog.Logger) Option { return func(r *Registry) { r.log = l } }

func WithMetrics(m *Metrics) Option { return func(r *Registry) { r.metrics = m } }

func WithClock(c clockwork.Clock) Option { return func(r *Registry) { r.clock = c } }

// WithBuffer sets how many frames may queue on one connection before it is
// treated as stalled.
func WithBuffer(n int) Option { return func(r *Registry) { r.buffer = n } }

func WithWriteTimeout(d time.Duration) Option { return func(r *Registry) { r.writeTimeout = d } }

// WithHeartbeat sets the comment-frame interval; zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option { return func(r *Registry) { r.heartbeat = d } }

func New(opts ...Option) *Registry {
	r := &Registry{
		users:        make(map[uuid.UUID]map[*Conn]struct{}),
		log:          zerolog.Nop(),
		clock:        clockwork.NewRealClock(),
		buffer:       DefaultBuffer,
		writeTimeout: DefaultWriteTimeout,
		heartbeat:    DefaultHeartbeat,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewConn returns a connection sized to the registry's buffer setting.
func (r *Registry) NewConn() *Conn { return NewConn(r.buffer) }

// Register adds c to userID's set. Registering the same connection again is
// a no-op; registering it under another user moves it. The first
// registration queues the ready event.
func (r *Registry) Register(userID uuid.UUID, c *Conn) {
	if c == nil || c.closed() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.member {
		if c.owner == userID {
			return
		}
		r.removeLocked(c.owner, c)
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		r.users[userID] = set
	}
	set[c] = struct{}{}
	c.owner, c.member = userID, true
	r.metrics.opened()

	if !c.greeted {
		c.greeted = true
		select {
		case c.frames <- readyFrame():
		default:
			c.markLost()
		}
	}
}

// Deregister removes c from userID's set and marks it closed. It tolerates
// connections and users that are not registered.
func (r *Registry) Deregister(userID uuid.UUID, c *Conn) {
	if c == nil {
		return
	}
	r.mu.Lock()
	removed := c.member && c.owner == userID && r.removeLocked(userID, c)
	r.mu.Unlock()

	if removed {
		c.markLost()
	}
}

func (r *Registry) removeLocked(userID uuid.UUID, c *Conn) bool {
	set, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.users, userID)
	}
	c.owner, c.member = uuid.Nil, false
	r.metrics.closed()
	return true
}

// Push encodes the event once and queues it on every open connection of
// userID. A connection that is closed or whose queue is full is marked lost
// so its transport loop exits and deregisters it; the other connections are
// unaffected. Push never fails: a user with no connections is a silent drop.
func (r *Registry) Push(userID uuid.UUID, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID.String()).Msg("realtime: drop unencodable event")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.users[userID]
	if len(set) == 0 {
		return
	}
	r.metrics.pushed(event)
	for c := range set {
		if c.closed() {
			r.metrics.dropped()
			continue
		}
		select {
		case c.frames <- frame:
			r.metrics.delivered()
		default:
			r.metrics.dropped()
			c.markLost()
			r.log.Debug().Str("user_id", userID.String()).Str("event", event).Msg("realtime: slow stream marked lost")
		}
	}
}

// ConnCount reports how many connections userID currently has.
func (r *Registry) ConnCount(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users[userID])
}

// UserCount reports how many users have at least one connection.
func (r *Registry) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
