package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/folio-dev/folio/internal/ai"
	"github.com/folio-dev/folio/internal/content"
	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/email"
	internal_errors "github.com/folio-dev/folio/internal/errors"
	"github.com/folio-dev/folio/internal/logger"
	"github.com/folio-dev/folio/internal/queue"
	"github.com/folio-dev/folio/internal/security"
)

// ErrSuspiciousInput marks a request caught by the malicious-input
// heuristic. Callers respond success-shaped so the sender learns nothing.
var ErrSuspiciousInput = errors.New("suspicious input detected")

// RequestStorage is the storage slice the submission pipeline needs beyond
// identity resolution.
type RequestStorage interface {
	IsBlacklisted(email domain.Email) (bool, error)
	LogAccess(entry domain.AccessLogEntry) error
}

// Tasks is the background work sink.
type Tasks interface {
	Enqueue(name string, task queue.Task)
}

// Sender delivers outbound email.
type Sender interface {
	Send(recipientEmail, subject, htmlBody string, attachments ...email.Attachment) error
}

// RequestTokens mints the links embedded in notification emails.
type RequestTokens interface {
	IssueUnsubscribe(email string) (string, error)
	IssueAdmin() (string, error)
}

// Meta is the per-response visitor status block.
type Meta struct {
	Registered bool `json:"registered"`
	Level      int  `json:"level"`
}

// View is a filtered content response.
type View struct {
	Content *content.Node `json:"content"`
	Uuid    domain.Uuid   `json:"uuid,omitempty"`
	Meta    Meta          `json:"meta"`
}

// RequestConfig carries the handful of settings the pipeline needs.
type RequestConfig struct {
	BaseURL    string
	AdminEmail string
	ResumePath string
}

// Request admits inbound visitor submissions and runs the notification
// pipeline behind them.
type Request struct {
	directory *Directory
	storage   RequestStorage
	store     *content.Store
	tasks     Tasks
	responder ai.Responder
	sender    Sender
	tokens    RequestTokens
	renderer  *email.Renderer
	cfg       RequestConfig
}

func NewRequest(
	directory *Directory,
	storage RequestStorage,
	store *content.Store,
	tasks Tasks,
	responder ai.Responder,
	sender Sender,
	tokens RequestTokens,
	renderer *email.Renderer,
	cfg RequestConfig,
) *Request {
	return &Request{
		directory: directory,
		storage:   storage,
		store:     store,
		tasks:     tasks,
		responder: responder,
		sender:    sender,
		tokens:    tokens,
		renderer:  renderer,
		cfg:       cfg,
	}
}

// Portfolio returns the content tree filtered at the level of whoever the
// token resolves to. Unknown or absent tokens see the public tier.
// `registered` is true only when the token resolved to an existing user row.
func (r *Request) Portfolio(token, ip, userAgent string) (View, error) {
	level := domain.LevelPublic
	registered := false

	if token != "" {
		if user, ok := r.directory.Resolve(token); ok {
			level = user.AccessLevel
			registered = true
		}
		if err := r.storage.LogAccess(domain.AccessLogEntry{
			Uuid:      token,
			IP:        ip,
			UserAgent: userAgent,
			Payload:   "Portfolio View",
		}); err != nil {
			logger.Log.Error("failed to write access log", "error", err)
		}
	}

	doc, err := r.store.Load()
	if err != nil {
		return View{}, err
	}
	return View{
		Content: content.Filter(doc, level),
		Meta:    Meta{Registered: registered, Level: level},
	}, nil
}

// Submit admits a visitor request and, on success, enqueues the background
// notification task. The returned view is filtered at the admitted level —
// the caller never waits on the queue.
func (r *Request) Submit(req domain.Request, token, ip, userAgent string) (View, error) {
	if req.Email != "" {
		banned, err := r.storage.IsBlacklisted(req.Email)
		if err != nil {
			return View{}, err
		}
		if banned {
			return View{}, &internal_errors.ErrorWithStatusCode{Message: "Access denied", StatusCode: http.StatusForbidden}
		}
	}

	if security.IsMalicious(req.Message) || security.IsMalicious(req.Name) {
		if err := r.storage.LogAccess(domain.AccessLogEntry{
			Email:     req.Email,
			Name:      "[ATTACK] " + security.SanitizeText(req.Name),
			IP:        ip,
			UserAgent: userAgent,
			Payload:   security.SanitizeText(req.Message),
		}); err != nil {
			logger.Log.Error("failed to log attack", "error", err)
		}
		logger.Log.Warn("malicious input rejected", "ip", ip)
		return View{}, ErrSuspiciousInput
	}

	uuid, err := r.directory.ResolveOrCreate(req.Email, req.Name, token)
	if err != nil {
		return View{}, err
	}

	user, _ := r.directory.Resolve(uuid)
	if user.Blocked() {
		return View{}, &internal_errors.ErrorWithStatusCode{Message: "Blocked by admin", StatusCode: http.StatusForbidden}
	}

	r.tasks.Enqueue("request:"+req.Type, func(ctx context.Context) error {
		return r.process(ctx, req, uuid)
	})

	doc, err := r.store.Load()
	if err != nil {
		return View{}, err
	}
	return View{
		Content: content.Filter(doc, user.AccessLevel),
		Uuid:    uuid,
		Meta:    Meta{Registered: true, Level: user.AccessLevel},
	}, nil
}

// process is the queued notification task: generate the reply, email the
// visitor (if they identified themselves) and the admin. A responder failure
// degrades to the fallback body — notifications must still go out. Email
// failures propagate so the queue can classify and retry them.
func (r *Request) process(ctx context.Context, req domain.Request, uuid domain.Uuid) error {
	logger.Log.Info("processing request", "type", req.Type, "uuid", uuid)

	projects, err := r.projectContext()
	if err != nil {
		logger.Log.Error("failed to load project context", "error", err)
	}

	aiResp, err := r.responder.GenerateResponse(ctx, req, projects)
	if err != nil {
		logger.Log.Error("responder failed, using fallback reply", "error", err)
		aiResp = ai.Fallback()
	}

	adminToken, err := r.tokens.IssueAdmin()
	if err != nil {
		return err
	}
	adminLink := fmt.Sprintf("%s/admin/users?token=%s", r.cfg.BaseURL, adminToken)

	if req.Email != "" {
		unsubToken, err := r.tokens.IssueUnsubscribe(req.Email)
		if err != nil {
			return err
		}
		unsubLink := fmt.Sprintf("%s/api/unsubscribe?token=%s", r.cfg.BaseURL, unsubToken)

		userHTML, err := r.renderer.UserAcknowledgment(aiResp.Body, unsubLink)
		if err != nil {
			return err
		}

		var attachments []email.Attachment
		if aiResp.AttachResume && fileExists(r.cfg.ResumePath) {
			attachments = append(attachments, email.Attachment{Filename: "resume.pdf", Path: r.cfg.ResumePath})
		}
		if err := r.sender.Send(req.Email, aiResp.Subject, userHTML, attachments...); err != nil {
			return err
		}
	}

	adminHTML, err := r.renderer.AdminSummary(email.Summary{
		Name:         security.SanitizeText(req.Name),
		Email:        req.Email,
		Uuid:         uuid,
		Type:         req.Type,
		Company:      security.SanitizeText(req.Company),
		Message:      security.SanitizeText(req.Message),
		ResponseBody: aiResp.Body,
		AttachResume: aiResp.AttachResume,
		AdminLink:    adminLink,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("[%s] %s", req.Type, security.SanitizeText(req.Name))
	return r.sender.Send(r.cfg.AdminEmail, subject, adminHTML)
}

// projectContext extracts the blogs section of the document for the
// responder prompt.
func (r *Request) projectContext() ([]ai.Project, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	var projects []ai.Project
	for _, section := range doc.Items() {
		if section.TypeTag() != "blogs" {
			continue
		}
		blogs, ok := section.Field("blogs")
		if !ok {
			continue
		}
		for _, b := range blogs.Items() {
			projects = append(projects, ai.Project{
				Title:       b.StringField("title"),
				Description: b.StringField("content"),
				Link:        b.StringField("blog"),
			})
		}
	}
	return projects, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
