package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/griiettner/eventos-finais/internal/models"
)

// MarkChapterRead upserts the progress row for a chapter the moment it is
// opened.
func (r *Repo) MarkChapterRead(ctx context.Context, chapterID string) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO progress (chapter_id, is_read) VALUES (?, 1)
		ON CONFLICT(chapter_id) DO UPDATE SET is_read = 1`,
		chapterID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark chapter %s read: %w", chapterID, err)
	}
	return nil
}

// SaveAudioProgress records a playback checkpoint in seconds. When the
// track finished, the play count is bumped and the finished flag set.
func (r *Repo) SaveAudioProgress(ctx context.Context, chapterID string, position float64, finished bool) error {
	_, err := r.store.Exec(ctx, `
		INSERT INTO progress (chapter_id, is_read, audio_progress) VALUES (?, 1, ?)
		ON CONFLICT(chapter_id) DO UPDATE SET audio_progress = excluded.audio_progress`,
		chapterID, position,
	)
	if err != nil {
		return fmt.Errorf("failed to save audio progress for %s: %w", chapterID, err)
	}

	if finished {
		_, err = r.store.Exec(ctx, `
			UPDATE progress
			SET is_audio_finished = 1, audio_play_count = audio_play_count + 1
			WHERE chapter_id = ?`,
			chapterID,
		)
		if err != nil {
			return fmt.Errorf("failed to record audio finish for %s: %w", chapterID, err)
		}
	}
	return nil
}

// MarkCompleted toggles a chapter's completion state.
func (r *Repo) MarkCompleted(ctx context.Context, chapterID string, completed bool) error {
	var completedAt any
	flag := 0
	if completed {
		flag = 1
		completedAt = time.Now().UTC().Format(timeLayout)
	}

	_, err := r.store.Exec(ctx, `
		INSERT INTO progress (chapter_id, is_read, is_completed, completed_at) VALUES (?, 1, ?, ?)
		ON CONFLICT(chapter_id) DO UPDATE SET
			is_completed = excluded.is_completed,
			completed_at = excluded.completed_at`,
		chapterID, flag, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark chapter %s completed=%v: %w", chapterID, completed, err)
	}
	return nil
}

// MergeRemoteProgress folds a progress row reported by the remote store
// into the local one. The merge only ever raises state: completion sticks
// once set on either side and the audio position keeps the larger value,
// so a refresh can never erase progress made offline.
func (r *Repo) MergeRemoteProgress(ctx context.Context, chapterID string, completed bool, position float64) error {
	var completedAt any
	flag := 0
	if completed {
		flag = 1
		completedAt = time.Now().UTC().Format(timeLayout)
	}

	_, err := r.store.Exec(ctx, `
		INSERT INTO progress (chapter_id, is_read, is_completed, completed_at, audio_progress)
		VALUES (?, 1, ?, ?, ?)
		ON CONFLICT(chapter_id) DO UPDATE SET
			is_completed = MAX(progress.is_completed, excluded.is_completed),
			completed_at = COALESCE(progress.completed_at, excluded.completed_at),
			audio_progress = MAX(progress.audio_progress, excluded.audio_progress)`,
		chapterID, flag, completedAt, position,
	)
	if err != nil {
		return fmt.Errorf("failed to merge remote progress for %s: %w", chapterID, err)
	}
	return nil
}

// ProgressFor returns the progress row for a chapter, or nil if the
// chapter was never opened.
func (r *Repo) ProgressFor(ctx context.Context, chapterID string) (*models.Progress, error) {
	row, err := r.store.Get(ctx, "SELECT * FROM progress WHERE chapter_id = ?", chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for %s: %w", chapterID, err)
	}
	if row == nil {
		return nil, nil
	}
	p := scanProgress(row)
	return &p, nil
}

// AllProgress returns every progress row, for export and cache refresh.
func (r *Repo) AllProgress(ctx context.Context) ([]models.Progress, error) {
	rows, err := r.store.GetAll(ctx, "SELECT * FROM progress ORDER BY chapter_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	progress := make([]models.Progress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, scanProgress(row))
	}
	return progress, nil
}

// MarkPageRead upserts the per-page read marker for a chapter page.
func (r *Repo) MarkPageRead(ctx context.Context, chapterID, pageID string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := r.store.Exec(ctx, `
		INSERT INTO page_read_progress (chapter_id, page_id, is_read, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(chapter_id, page_id) DO UPDATE SET
			is_read = 1,
			updated_at = excluded.updated_at`,
		chapterID, pageID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to mark page %s/%s read: %w", chapterID, pageID, err)
	}
	return nil
}

// PageReads returns the read markers for a chapter's pages.
func (r *Repo) PageReads(ctx context.Context, chapterID string) ([]models.PageReadProgress, error) {
	rows, err := r.store.GetAll(ctx,
		"SELECT * FROM page_read_progress WHERE chapter_id = ?", chapterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list page reads for %s: %w", chapterID, err)
	}

	reads := make([]models.PageReadProgress, 0, len(rows))
	for _, row := range rows {
		reads = append(reads, models.PageReadProgress{
			ChapterID: fieldString(row, "chapter_id"),
			PageID:    fieldString(row, "page_id"),
			IsRead:    fieldBool(row, "is_read"),
			CreatedAt: fieldTime(row, "created_at"),
			UpdatedAt: fieldTime(row, "updated_at"),
		})
	}
	return reads, nil
}

func scanProgress(row map[string]any) models.Progress {
	return models.Progress{
		ChapterID:       fieldString(row, "chapter_id"),
		IsRead:          fieldBool(row, "is_read"),
		AudioProgress:   fieldFloat(row, "audio_progress"),
		IsCompleted:     fieldBool(row, "is_completed"),
		CompletedAt:     fieldTime(row, "completed_at"),
		IsAudioFinished: fieldBool(row, "is_audio_finished"),
		AudioPlayCount:  fieldInt(row, "audio_play_count"),
	}
}
