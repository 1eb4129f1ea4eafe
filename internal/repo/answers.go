package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/griiettner/eventos-finais/internal/models"
)

// SaveAnswer buffers a free-text answer locally with synced = 0.
//
// Writes are last-write-wins by timestamp: an upsert carrying an older
// timestamp than the stored row is a no-op. Any accepted write resets the
// synced flag so the row is pushed again.
func (r *Repo) SaveAnswer(ctx context.Context, chapterID, questionID, answer string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := r.store.Exec(ctx, `
		INSERT INTO user_answers (chapter_id, question_id, answer, updated_at, synced)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(chapter_id, question_id) DO UPDATE SET
			answer = excluded.answer,
			updated_at = excluded.updated_at,
			synced = 0
		WHERE excluded.updated_at >= user_answers.updated_at`,
		chapterID, questionID, answer, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save answer for %s/%s: %w", chapterID, questionID, err)
	}
	return nil
}

// AnswerFor returns the stored answer for a question, or nil if none.
func (r *Repo) AnswerFor(ctx context.Context, chapterID, questionID string) (*models.UserAnswer, error) {
	row, err := r.store.Get(ctx,
		"SELECT * FROM user_answers WHERE chapter_id = ? AND question_id = ?",
		chapterID, questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get answer for %s/%s: %w", chapterID, questionID, err)
	}
	if row == nil {
		return nil, nil
	}
	a := scanAnswer(row)
	return &a, nil
}

// AnswersForChapter returns every stored answer for a chapter.
func (r *Repo) AnswersForChapter(ctx context.Context, chapterID string) ([]models.UserAnswer, error) {
	rows, err := r.store.GetAll(ctx,
		"SELECT * FROM user_answers WHERE chapter_id = ?", chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers for chapter %s: %w", chapterID, err)
	}
	return scanAnswers(rows), nil
}

// UnsyncedAnswers returns every answer the remote store has not confirmed.
func (r *Repo) UnsyncedAnswers(ctx context.Context) ([]models.UserAnswer, error) {
	rows, err := r.store.GetAll(ctx, "SELECT * FROM user_answers WHERE synced = 0")
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced answers: %w", err)
	}
	return scanAnswers(rows), nil
}

// UnsyncedCount returns how many answers are waiting to be pushed.
func (r *Repo) UnsyncedCount(ctx context.Context) (int, error) {
	row, err := r.store.Get(ctx, "SELECT COUNT(*) AS n FROM user_answers WHERE synced = 0")
	if err != nil {
		return 0, fmt.Errorf("failed to count unsynced answers: %w", err)
	}
	return fieldInt(row, "n"), nil
}

// MarkAnswerSynced flips one answer's synced flag after the remote store
// confirmed it. Called per row, only upon that row's own success.
func (r *Repo) MarkAnswerSynced(ctx context.Context, chapterID, questionID string) error {
	_, err := r.store.Exec(ctx,
		"UPDATE user_answers SET synced = 1 WHERE chapter_id = ? AND question_id = ?",
		chapterID, questionID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark answer %s/%s synced: %w", chapterID, questionID, err)
	}
	return nil
}

// AllAnswers returns every stored answer, for export.
func (r *Repo) AllAnswers(ctx context.Context) ([]models.UserAnswer, error) {
	rows, err := r.store.GetAll(ctx,
		"SELECT * FROM user_answers ORDER BY chapter_id, question_id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return scanAnswers(rows), nil
}

func scanAnswers(rows []map[string]any) []models.UserAnswer {
	answers := make([]models.UserAnswer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, scanAnswer(row))
	}
	return answers
}

func scanAnswer(row map[string]any) models.UserAnswer {
	a := models.UserAnswer{
		ChapterID:  fieldString(row, "chapter_id"),
		QuestionID: fieldString(row, "question_id"),
		Answer:     fieldString(row, "answer"),
		Synced:     fieldBool(row, "synced"),
	}
	if t := fieldTime(row, "updated_at"); t != nil {
		a.UpdatedAt = *t
	}
	return a
}
