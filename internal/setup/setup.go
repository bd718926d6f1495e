package setup

import (
	"context"

	"github.com/folio-dev/folio/internal/ai"
	"github.com/folio-dev/folio/internal/config"
	"github.com/folio-dev/folio/internal/content"
	"github.com/folio-dev/folio/internal/email"
	"github.com/folio-dev/folio/internal/handler"
	"github.com/folio-dev/folio/internal/queue"
	"github.com/folio-dev/folio/internal/service"
	"github.com/folio-dev/folio/internal/storage/pg"
	"github.com/folio-dev/folio/internal/token"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Storage *pg.Storage
	Handler *handler.Handler
	Queue   *queue.Queue
	Admin   *service.Admin
	Config  *config.Config
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(&cfg.Private.Pg)
	if err != nil {
		return nil, err
	}

	store, err := content.NewStore(cfg.Public.ContentPath, cfg.Public.BackupDir)
	if err != nil {
		return nil, err
	}

	sender := email.New(&cfg.Private.Email)
	renderer := email.NewRenderer()
	tokens := token.New(
		cfg.Private.JwtSecret,
		cfg.Private.AdminSecret,
		cfg.Private.TrapSecret,
		cfg.Public.AdminTokenTTL,
		cfg.Public.TrapTokenTTL,
		cfg.Public.ReturnTokenTTL,
	)
	tasks := queue.New(ctx)
	responder := ai.NewGemini(cfg.Private.GeminiAPIKey, cfg.Private.GeminiModel, cfg.Public.ProfilePath)

	directory := service.NewDirectory(storage)
	request := service.NewRequest(directory, storage, store, tasks, responder, sender, tokens, renderer, service.RequestConfig{
		BaseURL:    cfg.Public.BaseURL,
		AdminEmail: cfg.Private.AdminEmail,
		ResumePath: cfg.Public.ResumePath,
	})
	security := service.NewSecurity(storage, tokens, tasks, sender, renderer, service.SecurityConfig{
		BaseURL:             cfg.Public.BaseURL,
		UnsubscribeCooldown: cfg.Public.UnsubscribeCooldown,
		AdminEmails:         cfg.Private.AdminEmails,
	})
	admin := service.NewAdmin(storage, store, tokens, sender, renderer, service.AdminConfig{
		BaseURL:           cfg.Public.BaseURL,
		AdminEmail:        cfg.Private.AdminEmail,
		AdminPasswordHash: cfg.Private.AdminPasswordHash,
	})

	h := handler.New(request, security, admin)

	return &Dependencies{
		Storage: storage,
		Handler: h,
		Queue:   tasks,
		Admin:   admin,
		Config:  cfg,
	}, nil
}
