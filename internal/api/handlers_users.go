package api

import (
	"net/http"
	"time"

	"github.com/jsherman999/skillswap/internal/exporter"
	"github.com/jsherman999/skillswap/internal/store"
)

const exportLimit = 10000

// profileView is a profile with its skills and counts attached.
type profileView struct {
	*store.Profile
	Skills []store.Skill      `json:"skills"`
	Stats  store.ProfileStats `json:"stats"`
}

type updateProfileRequest struct {
	FullName      *string `json:"full_name" validate:"omitempty,max=100"`
	Bio           *string `json:"bio" validate:"omitempty,max=2000"`
	Location      *string `json:"location" validate:"omitempty,max=100"`
	Country       *string `json:"country" validate:"omitempty,max=100"`
	AvatarURL     *string `json:"avatar_url" validate:"omitempty,url"`
	CoverImageURL *string `json:"cover_image_url" validate:"omitempty,url"`
}

func (a *API) viewProfile(w http.ResponseWriter, r *http.Request, p *store.Profile) {
	skills, err := a.store.ListSkills(r.Context(), p.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	stats, err := a.store.GetProfileStats(r.Context(), p.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{Profile: p, Skills: skills, Stats: stats})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	a.viewProfile(w, r, currentUser(r.Context()))
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	p, err := a.store.GetProfile(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.viewProfile(w, r, p)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, 50, 100)
	users, err := a.store.ListProfiles(r.Context(), limit, offset)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.store.UpdateProfile(r.Context(), currentUser(r.Context()).ID, store.ProfileUpdate{
		FullName:      req.FullName,
		Bio:           req.Bio,
		Location:      req.Location,
		Country:       req.Country,
		AvatarURL:     req.AvatarURL,
		CoverImageURL: req.CoverImageURL,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) exportMe(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r.Context()).ID
	var (
		b     []byte
		ctype string
		err   error
	)
	ext := r.URL.Query().Get("format")
	switch ext {
	case "", "json":
		ext = "json"
		b, ctype, err = exporter.ExportUserJSON(r.Context(), a.store, me, exportLimit, time.Now())
	case "csv":
		b, ctype, err = exporter.ExportUserCSV(r.Context(), a.store, me, exportLimit)
	default:
		writeError(w, http.StatusBadRequest, "unknown format (use json|csv)")
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", `attachment; filename="skillswap-export.`+ext+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
