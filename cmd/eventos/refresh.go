package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/remote"
	"github.com/griiettner/eventos-finais/internal/repo"
	"github.com/griiettner/eventos-finais/internal/ui"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh cached content from the remote store",
	Long: `Pull chapters, pages, questions, and progress from the remote store
and fold them into the local cache.

Content is owned by the remote store; the local rows are a read-only
cache. Remote progress merges in without ever regressing local state,
and buffered answers are untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := log.New(os.Stderr, "[remote] ", log.LstdFlags)
		s, r := openStore(logger)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		stats, err := refreshCache(ctx, newRemote(logger), r)
		if err != nil {
			return err
		}

		fmt.Printf("%s Cache refreshed\n", ui.RenderOK("✓"))
		fmt.Printf("   Chapters: %d\n", stats.chapters)
		fmt.Printf("   Pages: %d\n", stats.pages)
		fmt.Printf("   Questions: %d\n", stats.questions)
		fmt.Printf("   Progress rows: %d\n", stats.progress)
		return nil
	},
}

type refreshStats struct {
	chapters  int
	pages     int
	questions int
	progress  int
}

// refreshCache pulls remote content and progress into the local cache.
// Shared by the refresh command and daemon startup.
func refreshCache(ctx context.Context, client *remote.Client, r *repo.Repo) (refreshStats, error) {
	var stats refreshStats

	chapters, err := client.Chapters(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch chapters: %w", err)
	}

	for _, ch := range chapters {
		if err := r.CacheChapter(ctx, ch); err != nil {
			return stats, err
		}
		stats.chapters++

		pages, err := client.Pages(ctx, ch.ID)
		if err != nil {
			return stats, fmt.Errorf("failed to fetch pages for %s: %w", ch.ID, err)
		}
		for _, p := range pages {
			if err := r.CacheChapterPage(ctx, p); err != nil {
				return stats, err
			}
		}
		stats.pages += len(pages)

		questions, err := client.Questions(ctx, ch.ID)
		if err != nil {
			return stats, fmt.Errorf("failed to fetch questions for %s: %w", ch.ID, err)
		}
		for _, q := range questions {
			if err := r.CacheQuestion(ctx, q); err != nil {
				return stats, err
			}
		}
		stats.questions += len(questions)
	}

	remoteProgress, err := client.Progress(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch progress: %w", err)
	}
	for _, p := range remoteProgress {
		if err := r.MergeRemoteProgress(ctx, p.ChapterID, p.Completed, p.Position); err != nil {
			return stats, err
		}
	}
	stats.progress = len(remoteProgress)

	return stats, nil
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
