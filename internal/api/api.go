package api

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/auth"
	"github.com/jsherman999/skillswap/internal/config"
	"github.com/jsherman999/skillswap/internal/logging"
	"github.com/jsherman999/skillswap/internal/realtime"
	"github.com/jsherman999/skillswap/internal/store"
	"github.com/jsherman999/skillswap/internal/webui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Event names pushed to a user's stream.
const (
	EventMessage      = "message"
	EventNotification = "notification"
)

type Deps struct {
	Config  *config.Config
	Log     zerolog.Logger
	Store   Store
	Hub     *realtime.Registry
	Tokens  *auth.Tokens
	Metrics prometheus.Gatherer
}

type API struct {
	cfg      *config.Config
	log      zerolog.Logger
	store    Store
	hub      *realtime.Registry
	tokens   *auth.Tokens
	gatherer prometheus.Gatherer
	validate *validator.Validate
}

func New(d Deps) *API {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	g := d.Metrics
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &API{cfg: d.Config, log: d.Log, store: d.Store, hub: d.Hub, tokens: d.Tokens, gatherer: g, validate: v}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Requests(a.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.API.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	if ui, err := webui.Handler(); err == nil {
		r.Handle("/console/*", http.StripPrefix("/console/", ui))
	} else {
		a.log.Warn().Err(err).Msg("console disabled")
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if n := a.cfg.API.RateLimit.AuthPerMinute; n > 0 {
				r.Use(httprate.LimitByIP(n, time.Minute))
			}
			r.Post("/signup", a.signup)
			r.Post("/login", a.login)
			r.Post("/refresh", a.refresh)
			r.Post("/logout", a.logout)
		})

		// EventSource cannot set headers, so the stream also accepts ?token=.
		r.With(a.authenticate(true)).Get("/chat/stream", a.stream)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate(false))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", a.listUsers)
				r.Get("/me", a.me)
				r.Put("/me", a.updateMe)
				r.Get("/me/export", a.exportMe)
				r.Get("/{userID}", a.getUser)
				r.Get("/{userID}/posts", a.listUserPosts)
			})

			r.Route("/skills", func(r chi.Router) {
				r.Get("/me", a.mySkills)
				r.Get("/user/{userID}", a.userSkills)
				r.Post("/", a.createSkill)
				r.Put("/{id}", a.updateSkill)
				r.Delete("/{id}", a.deleteSkill)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", a.listPosts)
				r.Post("/", a.createPost)
				r.Get("/search", a.searchPosts)
				r.Get("/user/{userID}", a.listUserPosts)
				r.Post("/{id}/like", a.likePost)
				r.Delete("/{id}/like", a.unlikePost)
				r.Post("/{id}/share", a.sharePost)
				r.Delete("/{id}/share", a.unsharePost)
				r.Post("/{id}/view", a.viewPost)
				r.Get("/{id}/comments", a.listComments)
				r.Post("/{id}/comment", a.createComment)
			})
			r.Delete("/comments/{id}", a.deleteComment)

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", a.listFriends)
				r.Post("/request", a.sendFriendRequest)
				r.Get("/requests/incoming", a.incomingRequests)
				r.Get("/requests/outgoing", a.outgoingRequests)
				r.Patch("/requests/{otherID}/accept", a.acceptFriendRequest)
				r.Patch("/requests/{otherID}/reject", a.rejectFriendRequest)
				r.Get("/suggestions", a.suggestFriends)
				r.Delete("/{otherID}", a.unfriend)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/conversations", a.conversations)
				r.Get("/with/{userID}", a.chatHistory)
				r.Patch("/with/{userID}/read", a.markChatRead)
				r.Post("/messages", a.sendMessage)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", a.listNotifications)
				r.Get("/unread-count", a.unreadCount)
				r.Patch("/read-all", a.markAllRead)
				r.Patch("/{id}/read", a.markRead)
				r.Delete("/{id}", a.deleteNotification)
			})
		})
	})

	return r
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "streams_users": a.hub.UserCount()}
	if a.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			resp["status"] = "degraded"
			resp["db"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps store and auth errors onto HTTP statuses. Anything unexpected is
// logged and reported as a 500 without detail.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.log.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server error")
	}
}

// decode reads a JSON body into dst and validates it. On failure it has
// already written the response.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := fe.Field() + " is invalid (" + fe.Tag() + ")"
			if fe.Tag() == "required" {
				msg = fe.Field() + " is required"
			}
			writeError(w, http.StatusBadRequest, msg)
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// page reads limit/offset query parameters. Missing or invalid values fall
// back to def and 0; limit is capped at max.
func page(r *http.Request, def, max int) (limit, offset int) {
	limit, offset = def, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	if limit > max {
		limit = max
	}
	return limit, offset
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, "bad "+name)
		return 0, false
	}
	return v, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad "+name)
		return uuid.Nil, false
	}
	return v, true
}
