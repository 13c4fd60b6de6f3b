package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jsherman999/skillswap/internal/store"
)

type ctxKey struct{}

// currentUser returns the profile put in the context by authenticate.
func currentUser(ctx context.Context) *store.Profile {
	p, _ := ctx.Value(ctxKey{}).(*store.Profile)
	return p
}

func withUser(ctx context.Context, p *store.Profile) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate requires a valid access token for an existing profile. A
// missing token is 401; a bad token or unknown profile is 403.
func (a *API) authenticate(allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" && allowQuery {
				tok = r.URL.Query().Get("token")
			}
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "access token required")
				return
			}
			claims, err := a.tokens.Parse(tok)
			if err != nil {
				writeError(w, http.StatusForbidden, "invalid or expired token")
				return
			}
			id, err := claims.UserID()
			if err != nil {
				writeError(w, http.StatusForbidden, "invalid or expired token")
				return
			}
			p, err := a.store.GetProfile(r.Context(), id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusForbidden, "user not found")
					return
				}
				a.fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), p)))
		})
	}
}
