// Package models defines the entities cached locally and exchanged with
// the remote store.
package models

import "time"

// Chapter is a unit of study content. Chapters are owned by the remote
// store and cached read-only in the local database.
type Chapter struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Summary    string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Content    string     `json:"content,omitempty" yaml:"content,omitempty"`
	AudioURL   string     `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	OrderIndex int        `json:"order_index" yaml:"order_index"`
	CreatedAt  *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// ChapterPage is one paginated unit of a chapter's content. Display order
// is driven by OrderIndex, not PageNumber; the two are independent.
type ChapterPage struct {
	ID         string     `json:"id" yaml:"id"`
	ChapterID  string     `json:"chapter_id" yaml:"chapter_id"`
	Subtitle   string     `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	PageNumber int        `json:"page_number" yaml:"page_number"`
	Content    string     `json:"content" yaml:"content"`
	OrderIndex int        `json:"order_index" yaml:"order_index"`
	CreatedAt  *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Question is a study question attached to a chapter.
type Question struct {
	ID         string     `json:"id" yaml:"id"`
	ChapterID  string     `json:"chapter_id" yaml:"chapter_id"`
	Text       string     `json:"text" yaml:"text"`
	OrderIndex int        `json:"order_index" yaml:"order_index"`
	CreatedAt  *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// UserAnswer is a free-text response to a question. Identity is the
// (chapter, question) pair; writes are last-write-wins by UpdatedAt.
// Synced marks whether the remote store has confirmed the row.
type UserAnswer struct {
	ChapterID  string    `json:"chapter_id" yaml:"chapter_id"`
	QuestionID string    `json:"question_id" yaml:"question_id"`
	Answer     string    `json:"answer" yaml:"answer"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	Synced     bool      `json:"synced" yaml:"synced"`
}

// Progress tracks per-chapter completion. A row is upserted the moment a
// chapter is opened and updated on every playback checkpoint or toggle.
type Progress struct {
	ChapterID       string     `json:"chapter_id" yaml:"chapter_id"`
	IsRead          bool       `json:"is_read" yaml:"is_read"`
	AudioProgress   float64    `json:"audio_progress" yaml:"audio_progress"`
	IsCompleted     bool       `json:"is_completed" yaml:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	IsAudioFinished bool       `json:"is_audio_finished" yaml:"is_audio_finished"`
	AudioPlayCount  int        `json:"audio_play_count" yaml:"audio_play_count"`
}

// PageReadProgress marks a single page of a chapter as read.
type PageReadProgress struct {
	ChapterID string     `json:"chapter_id" yaml:"chapter_id"`
	PageID    string     `json:"page_id" yaml:"page_id"`
	IsRead    bool       `json:"is_read" yaml:"is_read"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// UserProfile caches the authenticated identity. The local table holds a
// single row with a fixed sentinel key, refreshed from the identity
// provider's claims on session init.
type UserProfile struct {
	Username   string `json:"username" yaml:"username"`
	Email      string `json:"email" yaml:"email"`
	IsVerified bool   `json:"is_verified" yaml:"is_verified"`
	IsAdmin    bool   `json:"is_admin" yaml:"is_admin"`
}
