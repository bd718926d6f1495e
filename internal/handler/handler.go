package handler

import (
	"net/http"

	"encoding/json"
	"log"

	"github.com/folio-dev/folio/internal/content"
	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/service"
)

// RequestService serves filtered portfolio views and admits visitor requests.
type RequestService interface {
	Portfolio(token, ip, userAgent string) (service.View, error)
	Submit(req domain.Request, token, ip, userAgent string) (service.View, error)
}

// SecurityService runs the unsubscribe, whitelist and honeypot flows.
type SecurityService interface {
	Unsubscribe(tokenStr string) (domain.Email, string, error)
	Whitelist(tokenStr, ip string) (domain.Email, error)
	HandleTrap(tokenStr string) (domain.Email, error)
}

// AdminService backs the token-gated admin surface.
type AdminService interface {
	Authorize(tokenStr string) error
	Users() ([]domain.User, error)
	Blacklist() ([]domain.BlacklistEntry, error)
	SetLevel(uuid domain.Uuid, level int) error
	Delete(uuid domain.Uuid) error
	ReplaceData(password string, doc *content.Node) error
}

type Handler struct {
	request  RequestService
	security SecurityService
	admin    AdminService
}

func New(request RequestService, security SecurityService, admin AdminService) *Handler {
	return &Handler{request, security, admin}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Print(err.Error())
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
