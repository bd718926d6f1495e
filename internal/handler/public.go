package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/service"
	"github.com/folio-dev/folio/internal/utils"
)

// clientToken pulls the visitor identity from the access header, falling back
// to the uuid query param for plain links.
func clientToken(r *http.Request) string {
	if token := r.Header.Get("X-Access-Token"); token != "" {
		return token
	}
	return r.URL.Query().Get("uuid")
}

// GetPortfolio handles GET /api/portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	ip, err := utils.GetIP(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	view, err := h.request.Portfolio(clientToken(r), ip, r.UserAgent())
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, view)
}

// SubmitRequest handles POST /api/request
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email   string `json:"email" validate:"omitempty,email"`
		Name    string `json:"name" validate:"required"`
		Message string `json:"message" validate:"required"`
		Company string `json:"company"`
		Type    string `json:"type" validate:"required,oneof=resume contact access_request"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	ip, err := utils.GetIP(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	req := domain.Request{
		Email:   body.Email,
		Name:    body.Name,
		Message: body.Message,
		Company: body.Company,
		Type:    body.Type,
	}

	view, err := h.request.Submit(req, clientToken(r), ip, r.UserAgent())
	if errors.Is(err, service.ErrSuspiciousInput) {
		// Indistinguishable from success on purpose
		writeJSON(w, map[string]bool{"success": true})
		return
	}
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	writeJSON(w, view)
}

// Unsubscribe handles GET /api/unsubscribe
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email, _, err := h.security.Unsubscribe(r.URL.Query().Get("token"))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>You are unsubscribed</h1><p>%s will receive no further email. A restore link was sent for safe keeping.</p></body></html>", email)
}

// Whitelist handles GET /api/security/whitelist
func (h *Handler) Whitelist(w http.ResponseWriter, r *http.Request) {
	ip, err := utils.GetIP(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	email, err := h.security.Whitelist(r.URL.Query().Get("token"), ip)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>Welcome back</h1><p>Access restored for %s.</p></body></html>", email)
}

// VerifyTrap handles GET /api/security/verify
func (h *Handler) VerifyTrap(w http.ResponseWriter, r *http.Request) {
	if _, err := h.security.HandleTrap(r.URL.Query().Get("token")); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	// Looks like a normal confirmation page to the scraper that followed the link
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<html><body><h1>Verification complete</h1></body></html>"))
}
