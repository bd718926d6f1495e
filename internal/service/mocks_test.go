package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/folio-dev/folio/internal/ai"
	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/email"
	internal_errors "github.com/folio-dev/folio/internal/errors"
	"github.com/folio-dev/folio/internal/queue"
)

func notFound(msg string) error {
	return &internal_errors.ErrorWithStatusCode{Message: msg, StatusCode: http.StatusNotFound}
}

// --- Mocks ---

type MockIdentityStorage struct {
	SaveUserFunc      func(user domain.User) error
	UserByEmailFunc   func(email domain.Email) (domain.User, error)
	UserByUuidFunc    func(uuid domain.Uuid) (domain.User, error)
	UserByTokenFunc   func(token string) (domain.User, error)
	BackfillEmailFunc func(uuid domain.Uuid, email domain.Email, name string) error
	TouchLastSeenFunc func(uuid domain.Uuid) error
}

func (m *MockIdentityStorage) SaveUser(user domain.User) error {
	if m.SaveUserFunc != nil {
		return m.SaveUserFunc(user)
	}
	return nil
}

func (m *MockIdentityStorage) UserByEmail(email domain.Email) (domain.User, error) {
	if m.UserByEmailFunc != nil {
		return m.UserByEmailFunc(email)
	}
	return domain.User{}, notFound("User not found")
}

func (m *MockIdentityStorage) UserByUuid(uuid domain.Uuid) (domain.User, error) {
	if m.UserByUuidFunc != nil {
		return m.UserByUuidFunc(uuid)
	}
	return domain.User{}, notFound("User not found")
}

func (m *MockIdentityStorage) UserByToken(token string) (domain.User, error) {
	if m.UserByTokenFunc != nil {
		return m.UserByTokenFunc(token)
	}
	return domain.User{}, notFound("User not found")
}

func (m *MockIdentityStorage) BackfillEmail(uuid domain.Uuid, email domain.Email, name string) error {
	if m.BackfillEmailFunc != nil {
		return m.BackfillEmailFunc(uuid, email, name)
	}
	return nil
}

func (m *MockIdentityStorage) TouchLastSeen(uuid domain.Uuid) error {
	if m.TouchLastSeenFunc != nil {
		return m.TouchLastSeenFunc(uuid)
	}
	return nil
}

type MockRequestStorage struct {
	IsBlacklistedFunc func(email domain.Email) (bool, error)
	LogAccessFunc     func(entry domain.AccessLogEntry) error

	mu      sync.Mutex
	entries []domain.AccessLogEntry
}

func (m *MockRequestStorage) IsBlacklisted(email domain.Email) (bool, error) {
	if m.IsBlacklistedFunc != nil {
		return m.IsBlacklistedFunc(email)
	}
	return false, nil
}

func (m *MockRequestStorage) LogAccess(entry domain.AccessLogEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, entry)
	m.mu.Unlock()
	if m.LogAccessFunc != nil {
		return m.LogAccessFunc(entry)
	}
	return nil
}

func (m *MockRequestStorage) Entries() []domain.AccessLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AccessLogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockTasks records enqueued tasks without running them unless asked.
type MockTasks struct {
	mu    sync.Mutex
	names []string
	tasks []queue.Task
}

func (m *MockTasks) Enqueue(name string, task queue.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.tasks = append(m.tasks, task)
}

func (m *MockTasks) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

func (m *MockTasks) Tasks() []queue.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

type sentEmail struct {
	Recipient   string
	Subject     string
	Body        string
	Attachments []email.Attachment
}

type MockSender struct {
	SendFunc func(recipientEmail, subject, htmlBody string, attachments ...email.Attachment) error

	mu   sync.Mutex
	sent []sentEmail
}

func (m *MockSender) Send(recipientEmail, subject, htmlBody string, attachments ...email.Attachment) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentEmail{recipientEmail, subject, htmlBody, attachments})
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(recipientEmail, subject, htmlBody, attachments...)
	}
	return nil
}

func (m *MockSender) Sent() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

type MockTokens struct {
	IssueUnsubscribeFunc  func(email string) (string, error)
	IssueAdminFunc        func() (string, error)
	IssueWhitelistFunc    func(email string) (string, error)
	IssueTrapFunc         func(email string) (string, error)
	VerifyUnsubscribeFunc func(token string) (string, error)
	VerifyWhitelistFunc   func(token string) (string, error)
	VerifyTrapFunc        func(token string) (string, error)
	VerifyAdminFunc       func(token string) error
}

func (m *MockTokens) IssueUnsubscribe(email string) (string, error) {
	if m.IssueUnsubscribeFunc != nil {
		return m.IssueUnsubscribeFunc(email)
	}
	return "unsub-token", nil
}

func (m *MockTokens) IssueAdmin() (string, error) {
	if m.IssueAdminFunc != nil {
		return m.IssueAdminFunc()
	}
	return "admin-token", nil
}

func (m *MockTokens) IssueWhitelist(email string) (string, error) {
	if m.IssueWhitelistFunc != nil {
		return m.IssueWhitelistFunc(email)
	}
	return "whitelist-token", nil
}

func (m *MockTokens) IssueTrap(email string) (string, error) {
	if m.IssueTrapFunc != nil {
		return m.IssueTrapFunc(email)
	}
	return "trap-token", nil
}

func (m *MockTokens) VerifyUnsubscribe(token string) (string, error) {
	if m.VerifyUnsubscribeFunc != nil {
		return m.VerifyUnsubscribeFunc(token)
	}
	return "", invalidLink()
}

func (m *MockTokens) VerifyWhitelist(token string) (string, error) {
	if m.VerifyWhitelistFunc != nil {
		return m.VerifyWhitelistFunc(token)
	}
	return "", invalidLink()
}

func (m *MockTokens) VerifyTrap(token string) (string, error) {
	if m.VerifyTrapFunc != nil {
		return m.VerifyTrapFunc(token)
	}
	return "", invalidLink()
}

func (m *MockTokens) VerifyAdmin(token string) error {
	if m.VerifyAdminFunc != nil {
		return m.VerifyAdminFunc(token)
	}
	return nil
}

func invalidLink() error {
	return &internal_errors.ErrorWithStatusCode{Message: "Invalid or expired link", StatusCode: http.StatusBadRequest}
}

type MockSecurityStorage struct {
	AddToBlacklistFunc        func(email domain.Email, reason string) error
	RemoveFromBlacklistFunc   func(email domain.Email) (bool, error)
	SetAccessLevelByEmailFunc func(email domain.Email, level int) error
	CooldownFunc              func(key string) (time.Time, error)
	UpsertCooldownFunc        func(key string, ts time.Time) error
	LogAccessFunc             func(entry domain.AccessLogEntry) error
}

func (m *MockSecurityStorage) AddToBlacklist(email domain.Email, reason string) error {
	if m.AddToBlacklistFunc != nil {
		return m.AddToBlacklistFunc(email, reason)
	}
	return nil
}

func (m *MockSecurityStorage) RemoveFromBlacklist(email domain.Email) (bool, error) {
	if m.RemoveFromBlacklistFunc != nil {
		return m.RemoveFromBlacklistFunc(email)
	}
	return true, nil
}

func (m *MockSecurityStorage) SetAccessLevelByEmail(email domain.Email, level int) error {
	if m.SetAccessLevelByEmailFunc != nil {
		return m.SetAccessLevelByEmailFunc(email, level)
	}
	return nil
}

func (m *MockSecurityStorage) Cooldown(key string) (time.Time, error) {
	if m.CooldownFunc != nil {
		return m.CooldownFunc(key)
	}
	return time.Time{}, notFound("Cooldown not found")
}

func (m *MockSecurityStorage) UpsertCooldown(key string, ts time.Time) error {
	if m.UpsertCooldownFunc != nil {
		return m.UpsertCooldownFunc(key, ts)
	}
	return nil
}

func (m *MockSecurityStorage) LogAccess(entry domain.AccessLogEntry) error {
	if m.LogAccessFunc != nil {
		return m.LogAccessFunc(entry)
	}
	return nil
}

type MockResponder struct {
	GenerateResponseFunc func(ctx context.Context, req domain.Request, projects []ai.Project) (ai.Response, error)
}

func (m *MockResponder) GenerateResponse(ctx context.Context, req domain.Request, projects []ai.Project) (ai.Response, error) {
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, req, projects)
	}
	return ai.Response{Subject: "Re: hello", Body: "<p>Generated.</p>", AttachResume: false}, nil
}

type MockAdminStorage struct {
	UsersFunc               func(limit int) ([]domain.User, error)
	UserByUuidFunc          func(uuid domain.Uuid) (domain.User, error)
	SetAccessLevelFunc      func(uuid domain.Uuid, level int) error
	DeleteUserFunc          func(uuid domain.Uuid) error
	AddToBlacklistFunc      func(email domain.Email, reason string) error
	RemoveFromBlacklistFunc func(email domain.Email) (bool, error)
	BlacklistEntriesFunc    func() ([]domain.BlacklistEntry, error)
}

func (m *MockAdminStorage) Users(limit int) ([]domain.User, error) {
	if m.UsersFunc != nil {
		return m.UsersFunc(limit)
	}
	return nil, nil
}

func (m *MockAdminStorage) UserByUuid(uuid domain.Uuid) (domain.User, error) {
	if m.UserByUuidFunc != nil {
		return m.UserByUuidFunc(uuid)
	}
	return domain.User{}, notFound("User not found")
}

func (m *MockAdminStorage) SetAccessLevel(uuid domain.Uuid, level int) error {
	if m.SetAccessLevelFunc != nil {
		return m.SetAccessLevelFunc(uuid, level)
	}
	return nil
}

func (m *MockAdminStorage) DeleteUser(uuid domain.Uuid) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(uuid)
	}
	return nil
}

func (m *MockAdminStorage) AddToBlacklist(email domain.Email, reason string) error {
	if m.AddToBlacklistFunc != nil {
		return m.AddToBlacklistFunc(email, reason)
	}
	return nil
}

func (m *MockAdminStorage) RemoveFromBlacklist(email domain.Email) (bool, error) {
	if m.RemoveFromBlacklistFunc != nil {
		return m.RemoveFromBlacklistFunc(email)
	}
	return true, nil
}

func (m *MockAdminStorage) BlacklistEntries() ([]domain.BlacklistEntry, error) {
	if m.BlacklistEntriesFunc != nil {
		return m.BlacklistEntriesFunc()
	}
	return nil, nil
}
