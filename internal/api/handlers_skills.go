package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type createSkillRequest struct {
	SkillName string `json:"skill_name" validate:"required,max=100"`
	SkillType string `json:"skill_type" validate:"required,max=50"`
}

type updateSkillRequest struct {
	SkillName *string `json:"skill_name" validate:"omitempty,min=1,max=100"`
	SkillType *string `json:"skill_type" validate:"omitempty,min=1,max=50"`
}

func (a *API) listSkills(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	skills, err := a.store.ListSkills(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, skills)
}

func (a *API) mySkills(w http.ResponseWriter, r *http.Request) {
	a.listSkills(w, r, currentUser(r.Context()).ID)
}

func (a *API) userSkills(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	a.listSkills(w, r, id)
}

func (a *API) createSkill(w http.ResponseWriter, r *http.Request) {
	var req createSkillRequest
	if !a.decode(w, r, &req) {
		return
	}
	name, kind := strings.TrimSpace(req.SkillName), strings.TrimSpace(req.SkillType)
	if name == "" || kind == "" {
		writeError(w, http.StatusBadRequest, "skill_name and skill_type are required")
		return
	}
	k, err := a.store.CreateSkill(r.Context(), currentUser(r.Context()).ID, name, kind)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, k)
}

func (a *API) updateSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var req updateSkillRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.SkillName == nil && req.SkillType == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	k, err := a.store.UpdateSkill(r.Context(), currentUser(r.Context()).ID, id, req.SkillName, req.SkillType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

func (a *API) deleteSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	if err := a.store.DeleteSkill(r.Context(), currentUser(r.Context()).ID, id); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
