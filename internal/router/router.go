package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/folio-dev/folio/internal/middleware"
	"github.com/folio-dev/folio/internal/middleware/metrics"
	rl "github.com/folio-dev/folio/internal/middleware/ratelimiter"
	"github.com/folio-dev/folio/internal/setup"
	"github.com/folio-dev/folio/internal/utils"
)

// New creates and configures a new mux router with all the routes.
// IMPORTANT! ratelimiters set with .Use limit requests for all endpoints combined in that subrouter
func New(deps *setup.Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Enable gzip compression for all responses
	r.Use(handlers.CompressHandler)

	// setup CORS for the portfolio frontend
	r.Use(handlers.CORS(
		handlers.AllowedOrigins(deps.Config.Public.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Access-Token", "X-Admin-Password", "Authorization"}),
	))

	// Strict CSP: the API serves JSON plus a few script-free confirmation pages
	backendCSP := "default-src 'none'; frame-ancestors 'none'"
	r.Use(mw.SecurityHeaders(strings.HasPrefix(deps.Config.Public.BaseURL, "https://"), backendCSP))

	r.Use(metrics.Middleware)

	// Add a wildcard OPTIONS handler to avoid 404s for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := deps.Handler
	cfg := deps.Config.Public

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(mw.RateLimit(rl.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst, 1*time.Hour), utils.GetIP))

	api.HandleFunc("/portfolio", h.GetPortfolio).Methods("GET")
	api.HandleFunc("/unsubscribe", h.Unsubscribe).Methods("GET")
	api.HandleFunc("/security/whitelist", h.Whitelist).Methods("GET")
	api.HandleFunc("/security/verify", h.VerifyTrap).Methods("GET")

	// Request submission sends email, so it gets its own tighter bucket
	apiSendingEmail := api.NewRoute().Subrouter()
	apiSendingEmail.Use(mw.RateLimit(rl.New(1.0/10, 2, 1*time.Hour), utils.GetIP)) // 1 per 10s by IP
	apiSendingEmail.HandleFunc("/request", h.SubmitRequest).Methods("POST")

	// Admin routes gated by the signed token; /admin/data carries its own
	// password guard instead
	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/data", h.ReplaceData).Methods("POST")

	adminAuthed := admin.NewRoute().Subrouter()
	adminAuthed.Use(mw.AdminAuth(deps.Admin.Authorize))
	adminAuthed.HandleFunc("/users", h.GetUsers).Methods("GET")
	adminAuthed.HandleFunc("/users/{uuid}/level", h.SetUserLevel).Methods("POST")
	adminAuthed.HandleFunc("/users/{uuid}", h.DeleteUser).Methods("DELETE")
	adminAuthed.HandleFunc("/blacklist", h.GetBlacklist).Methods("GET")

	return r
}
