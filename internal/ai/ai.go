// Package ai wraps the text-generation backend behind a small contract:
// given an inbound request and project context, produce an email subject,
// body and an attach-resume decision.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/folio-dev/folio/internal/domain"
	"github.com/folio-dev/folio/internal/logger"
)

// Response is the structured reply contract.
type Response struct {
	Subject      string `json:"subject"`
	Body         string `json:"body"` // markdown/HTML, sanitized downstream
	AttachResume bool   `json:"attachResume"`
}

// Project is the slice of portfolio context handed to the model.
type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type Responder interface {
	GenerateResponse(ctx context.Context, req domain.Request, projects []Project) (Response, error)
}

// Fallback is the minimal reply used when no generation backend is
// configured or the call ultimately fails: the notification pipeline must
// keep moving either way.
func Fallback() Response {
	return Response{Subject: "Re: Request", Body: "<p>Received.</p>", AttachResume: false}
}

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// The responder retries rate-limited calls on its own, independently of
	// the task queue's retry layer.
	maxAttempts = 3
	backoffBase = 2 * time.Second
)

// Gemini calls a Gemini-style generateContent endpoint.
type Gemini struct {
	apiKey      string
	model       string
	baseURL     string
	profilePath string

	client *http.Client
	sleep  func(time.Duration) // injectable for tests
}

func NewGemini(apiKey, model, profilePath string) *Gemini {
	return &Gemini{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultBaseURL,
		profilePath: profilePath,
		client:      &http.Client{Timeout: 60 * time.Second},
		sleep:       time.Sleep,
	}
}

func (g *Gemini) GenerateResponse(ctx context.Context, req domain.Request, projects []Project) (Response, error) {
	if g.apiKey == "" {
		return Fallback(), nil
	}

	prompt := g.buildPrompt(req, projects)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := g.call(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRateLimited(err) || attempt == maxAttempts-1 {
			return Response{}, err
		}
		delay := backoffBase * time.Duration(1<<attempt)
		logger.Log.Warn("generation rate limited, backing off", "delay", delay, "attempt", attempt+1)
		g.sleep(delay)
	}
	return Response{}, lastErr
}

type rateLimitError struct{ msg string }

func (e *rateLimitError) Error() string { return e.msg }

func isRateLimited(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}

// generateContent request/response envelopes, trimmed to the fields used.
type generateRequest struct {
	Contents         []contentPart    `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type contentPart struct {
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType"`
	Temperature      float64 `json:"temperature"`
	TopP             float64 `json:"topP"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []textPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) call(ctx context.Context, prompt string) (Response, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []contentPart{{Parts: []textPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      1.2,
			TopP:             0.95,
		},
	})
	if err != nil {
		return Response{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("generation request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read generation response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return Response{}, &rateLimitError{msg: fmt.Sprintf("generation rate limited: %s", respBody)}
	}
	if httpResp.StatusCode != http.StatusOK {
		// Status code lands in the error text so the caller can classify
		// (404 model gone, 400 bad request, 401/403 key trouble).
		return Response{}, fmt.Errorf("generation failed with status %d: %s", httpResp.StatusCode, respBody)
	}

	var envelope generateResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return Response{}, fmt.Errorf("failed to decode generation response: %w", err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("empty response from model")
	}

	var out Response
	if err := json.Unmarshal([]byte(envelope.Candidates[0].Content.Parts[0].Text), &out); err != nil {
		return Response{}, fmt.Errorf("model returned malformed reply: %w", err)
	}
	return out, nil
}

func (g *Gemini) profile() string {
	data, err := os.ReadFile(g.profilePath)
	if err != nil {
		return "Senior Software Engineer."
	}
	return string(data)
}

func (g *Gemini) buildPrompt(req domain.Request, projects []Project) string {
	var instructions string
	switch req.Type {
	case domain.RequestResume:
		instructions = `ACT AS the portfolio owner. TONE: professional, honest, protective of data, first person.
If the request seems genuine (valid company, clear intent, professional wording), write a polite reply matching the profile to their context and set "attachResume": true.
If it looks like spam or fraud, politely decline to share the resume until they provide verifiable details, and set "attachResume": false.`
	case domain.RequestContact:
		instructions = `ACT AS the portfolio owner. TONE: casual, friendly, first person, factually grounded.
Acknowledge the message warmly. Set "attachResume": false unless explicitly needed.`
	default:
		instructions = `ACT AS the portfolio owner. TONE: neutral, efficient.
Confirm receipt of the access request without overselling. Set "attachResume": false.`
	}

	projectsJSON, _ := json.Marshal(projects)
	return fmt.Sprintf(`%s

MY PROFILE: %s
MY PROJECTS: %s

INCOMING MESSAGE:
From: %s
Company: %s
Type: %s
Message: %q

CRITICAL: Output valid JSON with the fields "subject" (string), "body" (HTML string) and "attachResume" (boolean). Sign off as the portfolio owner.`,
		instructions, g.profile(), projectsJSON,
		req.Name, orDefault(req.Company, "Not specified"), req.Type, req.Message)
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}
