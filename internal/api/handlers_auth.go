package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jsherman999/skillswap/internal/auth"
	"github.com/jsherman999/skillswap/internal/store"
)

type signupRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Username string  `json:"username" validate:"required,min=3,max=32"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type authResponse struct {
	User    *store.Profile `json:"user"`
	Token   string         `json:"token"`
	Session session        `json:"session"`
}

func (a *API) issue(w http.ResponseWriter, r *http.Request, status int, p *store.Profile) {
	tok, err := a.tokens.Issue(p.ID, p.Email)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, status, authResponse{User: p, Token: tok, Session: a.session(tok)})
}

func (a *API) session(tok string) session {
	return session{AccessToken: tok, TokenType: "bearer", ExpiresIn: int64(a.cfg.Auth.TokenTTL.Seconds())}
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !a.decode(w, r, &req) {
		return
	}
	hash, err := auth.HashPassword(req.Password, a.cfg.Auth.BcryptCost)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.store.CreateProfile(r.Context(), strings.TrimSpace(req.Email), req.Username, req.FullName, hash)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email or username already registered")
			return
		}
		a.fail(w, r, err)
		return
	}
	a.log.Info().Str("user_id", p.ID.String()).Msg("signup")
	a.issue(w, r, http.StatusCreated, p)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.store.GetProfileByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, auth.ErrBadPassword.Error())
			return
		}
		a.fail(w, r, err)
		return
	}
	if err := auth.CheckPassword(p.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	a.issue(w, r, http.StatusOK, p)
}

func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}
	tok, err := a.tokens.Refresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "session": a.session(tok)})
}

// logout is stateless: tokens are not stored server side, so the client
// simply discards its copy.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
