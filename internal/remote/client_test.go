package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/griiettner/eventos-finais/internal/models"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestAnswerKey(t *testing.T) {
	tests := []struct {
		name                    string
		user, chapter, question string
		want                    string
		wantErr                 bool
	}{
		{name: "valid", user: "u1", chapter: "c1", question: "q1", want: "u1_c1_q1"},
		{name: "empty component", user: "", chapter: "c1", question: "q1", wantErr: true},
		{name: "delimiter in user", user: "u_1", chapter: "c1", question: "q1", wantErr: true},
		{name: "delimiter in question", user: "u1", chapter: "c1", question: "q_1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AnswerKey(tt.user, tt.chapter, tt.question)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got key %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("AnswerKey failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPutAnswer(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody answerPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("tok-123"), testLogger())
	err := c.PutAnswer(context.Background(), "u1", models.UserAnswer{
		ChapterID:  "c1",
		QuestionID: "q1",
		Answer:     "hello",
		UpdatedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("PutAnswer failed: %v", err)
	}

	if gotPath != "PUT /api/answers/u1_c1_q1" {
		t.Errorf("Unexpected request: %s", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Unexpected auth header: %q", gotAuth)
	}
	if gotBody.Answer != "hello" || gotBody.ChapterID != "c1" {
		t.Errorf("Unexpected payload: %+v", gotBody)
	}
}

func TestPutAnswerRejectsBadKeyWithoutNetworkCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	err := c.PutAnswer(context.Background(), "u_1", models.UserAnswer{
		ChapterID: "c1", QuestionID: "q1",
	})
	if err == nil {
		t.Fatal("Expected key validation error")
	}
	if called {
		t.Error("Invalid key must be rejected before any network call")
	}
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "chapter not found"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	err := c.UpdateProgress(context.Background(), ProgressUpdate{ChapterID: "nope"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if got := err.Error(); got != "POST /api/progress: chapter not found" {
		t.Errorf("Unexpected error: %q", got)
	}
}

func TestUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, StaticToken("bad"), testLogger())
	err := c.Health(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestChaptersDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chapters" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "c1", "title": "One", "order_index": 1},
			{"id": "c2", "title": "Two", "order_index": 2},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil, testLogger())
	chapters, err := c.Chapters(context.Background())
	if err != nil {
		t.Fatalf("Chapters failed: %v", err)
	}
	if len(chapters) != 2 || chapters[0].ID != "c1" || chapters[1].OrderIndex != 2 {
		t.Errorf("Unexpected chapters: %+v", chapters)
	}
}

func TestHealthProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	c := NewClient(srv.URL, nil, testLogger())
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}

	srv.Close()
	if err := c.Health(context.Background()); err == nil {
		t.Error("Expected health probe to fail against a dead server")
	}
}
