// Package remote is the HTTP client for the authoritative backend.
//
// The remote store owns chapter content and, once synced, progress and
// answers. Every write endpoint the sync core depends on is idempotent:
// answers are upserted under a deterministic composite key and progress
// toggles are safe to repeat with the same payload, so retrying after an
// ambiguous failure never duplicates state.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/griiettner/eventos-finais/internal/models"
)

// keyDelimiter joins the components of a composite answer key. Component
// IDs are validated to exclude it, which keeps the key collision-free
// without a secondary index.
const keyDelimiter = "_"

// ErrUnauthorized is returned when the backend rejects the bearer
// credential.
var ErrUnauthorized = errors.New("remote: unauthorized")

// TokenGetter supplies the bearer credential for each request. The client
// does not manage credentials itself.
type TokenGetter func(ctx context.Context) (string, error)

// StaticToken adapts a fixed credential to a TokenGetter.
func StaticToken(token string) TokenGetter {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// Client talks to the remote progress/answer store.
type Client struct {
	baseURL string
	token   TokenGetter
	httpc   *http.Client
	logger  *log.Logger
}

// NewClient creates a client for the backend at baseURL.
//
// The token getter may be nil for unauthenticated endpoints such as the
// health probe. If logger is nil, a default stderr logger is used.
func NewClient(baseURL string, token TokenGetter, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// AnswerKey builds the deterministic `{user}_{chapter}_{question}` key for
// the idempotent answer upsert. Components containing the delimiter are
// rejected so distinct triples can never collide.
func AnswerKey(userID, chapterID, questionID string) (string, error) {
	for _, part := range []string{userID, chapterID, questionID} {
		if part == "" {
			return "", fmt.Errorf("answer key component must not be empty")
		}
		if strings.Contains(part, keyDelimiter) {
			return "", fmt.Errorf("answer key component %q must not contain %q", part, keyDelimiter)
		}
	}
	return userID + keyDelimiter + chapterID + keyDelimiter + questionID, nil
}

// answerPayload is the wire shape of an answer upsert.
type answerPayload struct {
	ChapterID  string `json:"chapterId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	UpdatedAt  string `json:"updatedAt"`
}

// PutAnswer upserts one answer under its composite key. Safe to call
// repeatedly with the same payload.
func (c *Client) PutAnswer(ctx context.Context, userID string, a models.UserAnswer) error {
	key, err := AnswerKey(userID, a.ChapterID, a.QuestionID)
	if err != nil {
		return err
	}
	payload := answerPayload{
		ChapterID:  a.ChapterID,
		QuestionID: a.QuestionID,
		Answer:     a.Answer,
		UpdatedAt:  a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPut, "/api/answers/"+key, payload, nil)
}

// ProgressUpdate is the wire shape of a progress toggle or checkpoint.
type ProgressUpdate struct {
	ChapterID       string  `json:"chapterId"`
	Completed       bool    `json:"completed"`
	AudioProgress   float64 `json:"audioProgress,omitempty"`
	IsAudioFinished bool    `json:"isAudioFinished,omitempty"`
}

// UpdateProgress posts a completion state or audio checkpoint. Idempotent
// under repeated identical calls.
func (c *Client) UpdateProgress(ctx context.Context, update ProgressUpdate) error {
	return c.do(ctx, http.MethodPost, "/api/progress", update, nil)
}

// RemoteProgress is a progress row as the backend reports it.
type RemoteProgress struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	ChapterID string  `json:"chapterId"`
	Completed bool    `json:"completed"`
	Position  float64 `json:"audioProgress"`
}

// Progress fetches the caller's progress rows.
func (c *Client) Progress(ctx context.Context) ([]RemoteProgress, error) {
	var out []RemoteProgress
	if err := c.do(ctx, http.MethodGet, "/api/progress", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chapters fetches every chapter for the local cache.
func (c *Client) Chapters(ctx context.Context) ([]models.Chapter, error) {
	var out []models.Chapter
	if err := c.do(ctx, http.MethodGet, "/api/chapters", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Questions fetches a chapter's questions.
func (c *Client) Questions(ctx context.Context, chapterID string) ([]models.Question, error) {
	var out []models.Question
	if err := c.do(ctx, http.MethodGet, "/api/chapters/"+chapterID+"/questions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pages fetches a chapter's pages.
func (c *Client) Pages(ctx context.Context, chapterID string) ([]models.ChapterPage, error) {
	var out []models.ChapterPage
	if err := c.do(ctx, http.MethodGet, "/api/chapters/"+chapterID+"/pages", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health probes the backend. A nil return means the remote store is
// reachable; the syncer uses this as its connectivity signal.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// apiError is the backend's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// do performs one request with the bearer credential attached, decoding a
// JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("failed to get access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
