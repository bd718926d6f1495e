package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer turns responder output (markdown, possibly with inline HTML) into
// sanitized HTML email bodies.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md:     goldmark.New(goldmark.WithRendererOptions(ghtml.WithUnsafe())),
		policy: bluemonday.UGCPolicy(),
	}
}

// renderBody converts markdown to HTML and sanitizes the result. On a render
// failure the raw text is escaped and used as-is; an email must still go out.
func (r *Renderer) renderBody(text string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	safe := r.policy.Sanitize(strings.TrimSpace(buf.String()))
	return template.HTML(safe)
}

var layoutTmpl = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #222; max-width: 600px; margin: 0 auto;">
{{.Body}}
{{if .UnsubscribeLink}}<hr>
<p style="font-size: 12px; color: #888;">Don't want these emails? <a href="{{.UnsubscribeLink}}">Unsubscribe</a>.</p>
{{end}}</body>
</html>`))

type layoutData struct {
	Body            template.HTML
	UnsubscribeLink string
}

func (r *Renderer) render(body template.HTML, unsubLink string) (string, error) {
	var buf bytes.Buffer
	if err := layoutTmpl.Execute(&buf, layoutData{Body: body, UnsubscribeLink: unsubLink}); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return buf.String(), nil
}

// UserAcknowledgment wraps the responder's reply for the visitor, with an
// unsubscribe link appended.
func (r *Renderer) UserAcknowledgment(body, unsubLink string) (string, error) {
	return r.render(r.renderBody(body), unsubLink)
}

// Summary carries everything the admin notification shows about a request.
type Summary struct {
	Name         string
	Email        string
	Uuid         string
	Type         string
	Company      string
	Message      string
	ResponseBody string
	AttachResume bool
	AdminLink    string
}

var summaryTmpl = template.Must(template.New("summary").Parse(`<h2>New {{.Type}} request</h2>
<table cellpadding="4">
<tr><td><b>Name</b></td><td>{{.Name}}</td></tr>
<tr><td><b>Email</b></td><td>{{if .Email}}{{.Email}}{{else}}not provided{{end}}</td></tr>
<tr><td><b>Company</b></td><td>{{if .Company}}{{.Company}}{{else}}not specified{{end}}</td></tr>
<tr><td><b>Visitor</b></td><td>{{.Uuid}}</td></tr>
<tr><td><b>Resume attached</b></td><td>{{.AttachResume}}</td></tr>
</table>
<h3>Message</h3>
<blockquote>{{.Message}}</blockquote>
<h3>Reply sent</h3>
{{.Response}}
<p><a href="{{.AdminLink}}"><b>Open dashboard</b></a></p>`))

func (r *Renderer) AdminSummary(s Summary) (string, error) {
	var buf bytes.Buffer
	err := summaryTmpl.Execute(&buf, struct {
		Summary
		Response template.HTML
	}{s, r.renderBody(s.ResponseBody)})
	if err != nil {
		return "", fmt.Errorf("failed to render admin summary: %w", err)
	}
	return r.render(template.HTML(buf.String()), "")
}

// ReturnToken is the safe-keeping email sent when someone unsubscribes,
// carrying the link that restores them.
func (r *Renderer) ReturnToken(returnLink string) (string, error) {
	body := fmt.Sprintf(`<p>Your email preferences were updated. You will not receive further messages.</p>
<p>Changed your mind? You can restore delivery any time:</p>
<p><a href="%s"><b>Restore my access</b></a></p>
<p>Keep this email. The link does not expire.</p>`, template.HTMLEscapeString(returnLink))
	return r.render(template.HTML(body), "")
}

// FreshAdminLink is the self-healing email sent when an expired dashboard
// token is presented.
func (r *Renderer) FreshAdminLink(link string) (string, error) {
	body := fmt.Sprintf(`<p>You (or someone) tried to access the dashboard with an expired link.</p>
<p>Here is a fresh one:</p>
<p><a href="%s"><b>Access dashboard</b></a></p>`, template.HTMLEscapeString(link))
	return r.render(template.HTML(body), "")
}

// HoneypotAlert notifies an administrator that a trap was sprung.
func (r *Renderer) HoneypotAlert(email, adminLink string) (string, error) {
	body := fmt.Sprintf(`<p>Honeypot triggered. <b>%s</b> has been banned automatically.</p>
<p><a href="%s"><b>Manage</b></a></p>`,
		template.HTMLEscapeString(email), template.HTMLEscapeString(adminLink))
	return r.render(template.HTML(body), "")
}
