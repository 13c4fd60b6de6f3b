package realtime

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Serve turns the response into an event stream for userID and blocks until
// the client goes away, a write fails, or the connection is marked lost. The
// connection is always deregistered before Serve returns.
func (r *Registry) Serve(w http.ResponseWriter, req *http.Request, userID uuid.UUID) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	c := r.NewConn()
	r.Register(userID, c)
	defer r.Deregister(userID, c)

	var beat <-chan time.Time
	if r.heartbeat > 0 {
		t := r.clock.NewTicker(r.heartbeat)
		defer t.Stop()
		beat = t.Chan()
	}

	log := r.log.With().Str("user_id", userID.String()).Logger()
	log.Debug().Msg("realtime: stream opened")
	defer func() { log.Debug().Msg("realtime: stream closed") }()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-c.Done():
			return
		case f := <-c.Frames():
			if err := r.write(w, rc, f); err != nil {
				log.Debug().Err(err).Msg("realtime: write failed")
				return
			}
		case <-beat:
			if err := r.write(w, rc, pingFrame); err != nil {
				log.Debug().Err(err).Msg("realtime: heartbeat failed")
				return
			}
		}
	}
}

func (r *Registry) write(w http.ResponseWriter, rc *http.ResponseController, frame []byte) error {
	if r.writeTimeout > 0 {
		err := rc.SetWriteDeadline(time.Now().Add(r.writeTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return rc.Flush()
}
