package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/folio-dev/folio/internal/content"
	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/utils"
)

// userView is a user row plus the capped tier shown in listings.
type userView struct {
	domain.User
	DisplayLevel int
}

// GetUsers handles GET /admin/users
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	// Empty array instead of null
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{User: u, DisplayLevel: u.DisplayLevel()})
	}

	writeJSON(w, struct {
		Users []userView `json:"users"`
	}{views})
}

// GetBlacklist handles GET /admin/blacklist
func (h *Handler) GetBlacklist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.Blacklist()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if entries == nil {
		entries = []domain.BlacklistEntry{}
	}

	writeJSON(w, struct {
		Entries []domain.BlacklistEntry `json:"entries"`
	}{entries})
}

// SetUserLevel handles POST /admin/users/{uuid}/level
func (h *Handler) SetUserLevel(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	var body struct {
		Level *int `json:"level" validate:"required"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.admin.SetLevel(uuid, *body.Level); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Access level set to " + strconv.Itoa(*body.Level)))
}

// DeleteUser handles DELETE /admin/users/{uuid}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	uuid := mux.Vars(r)["uuid"]

	if err := h.admin.Delete(uuid); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User deleted successfully"))
}

// ReplaceData handles POST /admin/data
func (h *Handler) ReplaceData(w http.ResponseWriter, r *http.Request) {
	var doc content.Node
	if err := utils.Decode(r.Body, &doc); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if err := h.admin.ReplaceData(r.Header.Get("X-Admin-Password"), &doc); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Content replaced successfully"))
}
