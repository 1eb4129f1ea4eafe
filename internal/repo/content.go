package repo

import (
	"context"
	"fmt"

	"github.com/griiettner/eventos-finais/internal/models"
)

// CacheChapter inserts or updates a chapter in the local cache.
// Chapter content is owned by the remote store; the cache mirrors it.
func (r *Repo) CacheChapter(ctx context.Context, ch models.Chapter) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO chapters (id, title, summary, content, audio_url, order_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			content = excluded.content,
			audio_url = excluded.audio_url,
			order_index = excluded.order_index,
			updated_at = excluded.updated_at`,
		ch.ID, ch.Title, ch.Summary, ch.Content, ch.AudioURL, ch.OrderIndex,
		formatTime(ch.CreatedAt), formatTime(ch.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to cache chapter %s: %w", ch.ID, err)
	}
	return nil
}

// CacheChapterPage inserts or updates a page in the local cache.
func (r *Repo) CacheChapterPage(ctx context.Context, p models.ChapterPage) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO chapter_pages (id, chapter_id, subtitle, page_number, content, order_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chapter_id = excluded.chapter_id,
			subtitle = excluded.subtitle,
			page_number = excluded.page_number,
			content = excluded.content,
			order_index = excluded.order_index,
			updated_at = excluded.updated_at`,
		p.ID, p.ChapterID, p.Subtitle, p.PageNumber, p.Content, p.OrderIndex,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to cache page %s: %w", p.ID, err)
	}
	return nil
}

// CacheQuestion inserts or updates a question in the local cache.
func (r *Repo) CacheQuestion(ctx context.Context, q models.Question) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO questions (id, chapter_id, text, order_index, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chapter_id = excluded.chapter_id,
			text = excluded.text,
			order_index = excluded.order_index`,
		q.ID, q.ChapterID, q.Text, q.OrderIndex, formatTime(q.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to cache question %s: %w", q.ID, err)
	}
	return nil
}

// Chapters returns every cached chapter in display order.
func (r *Repo) Chapters(ctx context.Context) ([]models.Chapter, error) {
	rows, err := r.store.GetAll(ctx,
		"SELECT * FROM chapters ORDER BY order_index ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}

	chapters := make([]models.Chapter, 0, len(rows))
	for _, row := range rows {
		chapters = append(chapters, scanChapter(row))
	}
	return chapters, nil
}

// Chapter returns one cached chapter, or nil when it is not cached.
func (r *Repo) Chapter(ctx context.Context, id string) (*models.Chapter, error) {
	row, err := r.store.Get(ctx, "SELECT * FROM chapters WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter %s: %w", id, err)
	}
	if row == nil {
		return nil, nil
	}
	ch := scanChapter(row)
	return &ch, nil
}

// PagesForChapter returns a chapter's pages ordered by order_index.
// Page numbers do not drive display order.
func (r *Repo) PagesForChapter(ctx context.Context, chapterID string) ([]models.ChapterPage, error) {
	rows, err := r.store.GetAll(ctx,
		"SELECT * FROM chapter_pages WHERE chapter_id = ? ORDER BY order_index ASC",
		chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages for chapter %s: %w", chapterID, err)
	}

	pages := make([]models.ChapterPage, 0, len(rows))
	for _, row := range rows {
		pages = append(pages, models.ChapterPage{
			ID:         fieldString(row, "id"),
			ChapterID:  fieldString(row, "chapter_id"),
			Subtitle:   fieldString(row, "subtitle"),
			PageNumber: fieldInt(row, "page_number"),
			Content:    fieldString(row, "content"),
			OrderIndex: fieldInt(row, "order_index"),
			CreatedAt:  fieldTime(row, "created_at"),
			UpdatedAt:  fieldTime(row, "updated_at"),
		})
	}
	return pages, nil
}

// QuestionsForChapter returns a chapter's questions ordered by order_index.
func (r *Repo) QuestionsForChapter(ctx context.Context, chapterID string) ([]models.Question, error) {
	rows, err := r.store.GetAll(ctx,
		"SELECT * FROM questions WHERE chapter_id = ? ORDER BY order_index ASC",
		chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions for chapter %s: %w", chapterID, err)
	}

	questions := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, models.Question{
			ID:         fieldString(row, "id"),
			ChapterID:  fieldString(row, "chapter_id"),
			Text:       fieldString(row, "text"),
			OrderIndex: fieldInt(row, "order_index"),
			CreatedAt:  fieldTime(row, "created_at"),
		})
	}
	return questions, nil
}

// DeleteChapter removes a chapter and, via cascade, its pages, questions,
// answers, and progress. Idempotent.
func (r *Repo) DeleteChapter(ctx context.Context, id string) error {
	if _, err := r.store.Exec(ctx, "DELETE FROM chapters WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete chapter %s: %w", id, err)
	}
	return nil
}

func scanChapter(row map[string]any) models.Chapter {
	return models.Chapter{
		ID:         fieldString(row, "id"),
		Title:      fieldString(row, "title"),
		Summary:    fieldString(row, "summary"),
		Content:    fieldString(row, "content"),
		AudioURL:   fieldString(row, "audio_url"),
		OrderIndex: fieldInt(row, "order_index"),
		CreatedAt:  fieldTime(row, "created_at"),
		UpdatedAt:  fieldTime(row, "updated_at"),
	}
}
