package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/folio-dev/folio/internal/content"
	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/email"
	internal_errors "github.com/folio-dev/folio/internal/errors"
	"github.com/folio-dev/folio/internal/logger"
	"github.com/folio-dev/folio/internal/token"
	"golang.org/x/crypto/bcrypt"
)

// AdminStorage is the storage slice for administrative operations.
type AdminStorage interface {
	Users(limit int) ([]domain.User, error)
	UserByUuid(uuid domain.Uuid) (domain.User, error)
	SetAccessLevel(uuid domain.Uuid, level int) error
	DeleteUser(uuid domain.Uuid) error
	AddToBlacklist(email domain.Email, reason string) error
	RemoveFromBlacklist(email domain.Email) (bool, error)
	BlacklistEntries() ([]domain.BlacklistEntry, error)
}

// AdminTokens verifies and re-mints dashboard tokens.
type AdminTokens interface {
	VerifyAdmin(token string) error
	IssueAdmin() (string, error)
}

// AdminConfig is the settings slice for admin operations.
type AdminConfig struct {
	BaseURL           string
	AdminEmail        string
	AdminPasswordHash string // bcrypt, guards bulk content replacement
	UserListLimit     int
}

// Admin owns the higher-privilege operations behind the signed dashboard
// token.
type Admin struct {
	storage  AdminStorage
	store    *content.Store
	tokens   AdminTokens
	sender   Sender
	renderer *email.Renderer
	cfg      AdminConfig
}

func NewAdmin(storage AdminStorage, store *content.Store, tokens AdminTokens, sender Sender, renderer *email.Renderer, cfg AdminConfig) *Admin {
	if cfg.UserListLimit == 0 {
		cfg.UserListLimit = 100
	}
	return &Admin{
		storage:  storage,
		store:    store,
		tokens:   tokens,
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
	}
}

// Authorize validates a dashboard token. An expired token triggers the
// self-healing flow: a fresh token is minted and emailed to the admin, and
// the caller gets a 401 telling them to check their inbox.
func (a *Admin) Authorize(tokenStr string) error {
	err := a.tokens.VerifyAdmin(tokenStr)
	if err == nil {
		return nil
	}
	if !errors.Is(err, token.ErrExpired) {
		return &internal_errors.ErrorWithStatusCode{Message: "Unauthorized", StatusCode: http.StatusUnauthorized}
	}

	logger.Log.Info("admin token expired, minting fresh link")
	fresh, issueErr := a.tokens.IssueAdmin()
	if issueErr != nil {
		return issueErr
	}
	link := fmt.Sprintf("%s/admin/users?token=%s", a.cfg.BaseURL, fresh)
	html, renderErr := a.renderer.FreshAdminLink(link)
	if renderErr != nil {
		return renderErr
	}
	if sendErr := a.sender.Send(a.cfg.AdminEmail, "New admin link", html); sendErr != nil {
		logger.Log.Error("failed to email fresh admin link", "error", sendErr)
	}
	return &internal_errors.ErrorWithStatusCode{
		Message:    "Link expired. A fresh one was sent to your email.",
		StatusCode: http.StatusUnauthorized,
	}
}

// Users lists the most recently seen users.
func (a *Admin) Users() ([]domain.User, error) {
	return a.storage.Users(a.cfg.UserListLimit)
}

// Blacklist lists all banned emails.
func (a *Admin) Blacklist() ([]domain.BlacklistEntry, error) {
	return a.storage.BlacklistEntries()
}

// SetLevel changes a user's access level and keeps blacklist membership in
// sync: blocking inserts a blacklist row, any other level removes it.
func (a *Admin) SetLevel(uuid domain.Uuid, level int) error {
	if err := a.storage.SetAccessLevel(uuid, level); err != nil {
		return err
	}

	user, err := a.storage.UserByUuid(uuid)
	if err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}

	if level == domain.LevelBlocked {
		return a.storage.AddToBlacklist(user.Email, "Admin Block")
	}
	_, err = a.storage.RemoveFromBlacklist(user.Email)
	return err
}

// Delete removes a user record permanently.
func (a *Admin) Delete(uuid domain.Uuid) error {
	return a.storage.DeleteUser(uuid)
}

// ReplaceData swaps the whole portfolio document. It is guarded by the
// static shared secret, not the signed dashboard token.
func (a *Admin) ReplaceData(password string, doc *content.Node) error {
	if a.cfg.AdminPasswordHash == "" {
		return &internal_errors.ErrorWithStatusCode{Message: "Unauthorized", StatusCode: http.StatusUnauthorized}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminPasswordHash), []byte(password)); err != nil {
		return &internal_errors.ErrorWithStatusCode{Message: "Unauthorized", StatusCode: http.StatusUnauthorized}
	}
	return a.store.Replace(doc)
}
