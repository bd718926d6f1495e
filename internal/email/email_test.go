package email

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-dev/folio/internal/config"
)

func newTestEmail() *Email {
	return New(&config.Email{
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		Username:   "noreply@example.com",
		Password:   "pw",
		SenderName: "Folio",
	})
}

func TestIsCorrect(t *testing.T) {
	e := newTestEmail()

	assert.NoError(t, e.IsCorrect("user@example.com"))
	assert.NoError(t, e.IsCorrect("Name <user@example.com>"))
	assert.Error(t, e.IsCorrect("not-an-email"))
	assert.Error(t, e.IsCorrect(""))
}

func TestBuildMessage_PlainHTML(t *testing.T) {
	e := newTestEmail()

	msg, err := e.buildMessage("user@b.c", "Hello", "<p>Body</p>", nil)
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "To: user@b.c\r\n")
	assert.Contains(t, s, "Subject: Hello\r\n")
	assert.Contains(t, s, "From: Folio <noreply@example.com>\r\n")
	assert.Contains(t, s, "Content-Type: text/html")
	assert.Contains(t, s, "<p>Body</p>")
	assert.NotContains(t, s, "multipart/mixed")
}

func TestBuildMessage_SubjectEncoding(t *testing.T) {
	e := newTestEmail()

	msg, err := e.buildMessage("user@b.c", "Привет", "<p>x</p>", nil)
	require.NoError(t, err)

	assert.Contains(t, string(msg), "=?utf-8?q?")
}

func TestBuildMessage_WithAttachment(t *testing.T) {
	e := newTestEmail()

	dir := t.TempDir()
	path := filepath.Join(dir, "resume.pdf")
	payload := []byte("%PDF-1.4 fake resume content")
	require.NoError(t, os.WriteFile(path, payload, 0644))

	msg, err := e.buildMessage("user@b.c", "Hello", "<p>Body</p>", []Attachment{
		{Filename: "resume.pdf", Path: path},
	})
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, `filename="resume.pdf"`)
	assert.Contains(t, s, "Content-Transfer-Encoding: base64")
	assert.Contains(t, s, base64.StdEncoding.EncodeToString(payload))
}

func TestBuildMessage_MissingAttachmentFails(t *testing.T) {
	e := newTestEmail()

	_, err := e.buildMessage("user@b.c", "Hello", "<p>Body</p>", []Attachment{
		{Filename: "resume.pdf", Path: "/does/not/exist.pdf"},
	})
	assert.Error(t, err)
}

func TestWrapBase64FoldsLongLines(t *testing.T) {
	encoded := string(wrapBase64(make([]byte, 600)))

	for _, line := range strings.Split(encoded, "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
	assert.Contains(t, encoded, "\r\n", "long payloads are folded")
}
