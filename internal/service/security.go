package service

import (
	"context"
	"fmt"
	"time"

	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/email"
	internal_errors "github.com/folio-dev/folio/internal/errors"
	"github.com/folio-dev/folio/internal/logger"
)

// SecurityStorage is the storage slice for ban/unban flows.
type SecurityStorage interface {
	AddToBlacklist(email domain.Email, reason string) error
	RemoveFromBlacklist(email domain.Email) (bool, error)
	SetAccessLevelByEmail(email domain.Email, level int) error
	Cooldown(key string) (time.Time, error)
	UpsertCooldown(key string, ts time.Time) error
	LogAccess(entry domain.AccessLogEntry) error
}

// SecurityTokens verifies inbound signed links and mints outbound ones.
type SecurityTokens interface {
	VerifyTrap(token string) (string, error)
	VerifyUnsubscribe(token string) (string, error)
	IssueWhitelist(email string) (string, error)
	VerifyWhitelist(token string) (string, error)
	IssueTrap(email string) (string, error)
	IssueAdmin() (string, error)
}

// SecurityConfig is the settings slice for the security flows.
type SecurityConfig struct {
	BaseURL             string
	UnsubscribeCooldown time.Duration
	AdminEmails         []string
}

// Security owns the blacklist toggles: unsubscribe, whitelist restore and
// the honeypot trap. Ban and access level -1 always move together.
type Security struct {
	storage  SecurityStorage
	tokens   SecurityTokens
	tasks    Tasks
	sender   Sender
	renderer *email.Renderer
	cfg      SecurityConfig

	now func() time.Time // injectable for cooldown tests
}

func NewSecurity(storage SecurityStorage, tokens SecurityTokens, tasks Tasks, sender Sender, renderer *email.Renderer, cfg SecurityConfig) *Security {
	return &Security{
		storage:  storage,
		tokens:   tokens,
		tasks:    tasks,
		sender:   sender,
		renderer: renderer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Unsubscribe bans the email behind a valid unsubscribe token and returns
// the whitelist link that undoes it. The safe-keeping email carrying that
// link is rate limited to once per cooldown window per email, tracked in a
// persisted cooldown row.
func (s *Security) Unsubscribe(tokenStr string) (domain.Email, string, error) {
	addr, err := s.tokens.VerifyUnsubscribe(tokenStr)
	if err != nil {
		return "", "", err
	}

	if err := s.ban(addr, "User requested stop"); err != nil {
		return "", "", err
	}

	returnToken, err := s.tokens.IssueWhitelist(addr)
	if err != nil {
		return "", "", err
	}
	returnLink := fmt.Sprintf("%s/api/security/whitelist?token=%s", s.cfg.BaseURL, returnToken)

	key := "unsub_email:" + addr
	if s.cooldownElapsed(key) {
		html, err := s.renderer.ReturnToken(returnLink)
		if err != nil {
			return "", "", err
		}
		if err := s.sender.Send(addr, "Settings updated", html); err != nil {
			// The ban already took effect; a lost courtesy email is not
			// worth failing the request over.
			logger.Log.Error("failed to send safe-keeping email", "error", err)
		} else if err := s.storage.UpsertCooldown(key, s.now()); err != nil {
			logger.Log.Error("failed to persist cooldown", "key", key, "error", err)
		}
	} else {
		logger.Log.Info("safe-keeping email skipped, cooldown active", "email", addr)
	}

	return addr, returnLink, nil
}

// Whitelist restores a previously unsubscribed email to the public tier.
func (s *Security) Whitelist(tokenStr, ip string) (domain.Email, error) {
	addr, err := s.tokens.VerifyWhitelist(tokenStr)
	if err != nil {
		return "", err
	}

	if _, err := s.storage.RemoveFromBlacklist(addr); err != nil {
		return "", err
	}
	if err := s.storage.SetAccessLevelByEmail(addr, domain.LevelPublic); err != nil {
		return "", err
	}
	if err := s.storage.LogAccess(domain.AccessLogEntry{
		Email: addr,
		Name:  "[ACTION] User Restarted",
		IP:    ip,
	}); err != nil {
		logger.Log.Error("failed to write access log", "error", err)
	}
	return addr, nil
}

// HandleTrap processes a sprung honeypot: ban the embedded email and notify
// every configured administrator asynchronously. Verification failures fail
// closed — nothing is banned on a bad token.
func (s *Security) HandleTrap(tokenStr string) (domain.Email, error) {
	addr, err := s.tokens.VerifyTrap(tokenStr)
	if err != nil {
		return "", err
	}

	if err := s.ban(addr, "Honeypot"); err != nil {
		return "", err
	}
	logger.Log.Warn("honeypot triggered", "email", addr)

	adminToken, err := s.tokens.IssueAdmin()
	if err != nil {
		return "", err
	}
	adminLink := fmt.Sprintf("%s/admin/users?token=%s", s.cfg.BaseURL, adminToken)

	html, err := s.renderer.HoneypotAlert(addr, adminLink)
	if err != nil {
		return "", err
	}
	for _, admin := range s.cfg.AdminEmails {
		recipient := admin
		s.tasks.Enqueue("honeypot-alert", func(ctx context.Context) error {
			return s.sender.Send(recipient, "Honeypot triggered", html)
		})
	}
	return addr, nil
}

// TrapLink mints a honeypot link for embedding into hidden content.
func (s *Security) TrapLink(email domain.Email) (string, error) {
	trapToken, err := s.tokens.IssueTrap(email)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/api/security/verify?token=%s", s.cfg.BaseURL, trapToken), nil
}

// ban inserts the blacklist row and blocks the user record together, so the
// two stay consistent.
func (s *Security) ban(addr domain.Email, reason string) error {
	if err := s.storage.AddToBlacklist(addr, reason); err != nil {
		return err
	}
	return s.storage.SetAccessLevelByEmail(addr, domain.LevelBlocked)
}

func (s *Security) cooldownElapsed(key string) bool {
	last, err := s.storage.Cooldown(key)
	if err != nil {
		if !internal_errors.IsNotFound(err) {
			logger.Log.Error("cooldown lookup failed", "key", key, "error", err)
		}
		return true
	}
	return s.now().Sub(last) > s.cfg.UnsubscribeCooldown
}
