package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store and sync status",
	Long: `Display the state of the local store and remote connectivity.

Shows:
  - Store file location and size
  - Cached chapter count
  - Answers waiting to be pushed
  - Whether the remote store is reachable`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(io.Discard, "", 0)

		info, err := os.Stat(cfg.Database.Path)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Local store not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'eventos daemon' or 'eventos import' to create it\n\n")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check store: %w", err)
		}

		s, r := openStore(logger)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		chapters, err := r.Chapters(ctx)
		if err != nil {
			return err
		}
		pending, err := r.UnsyncedCount(ctx)
		if err != nil {
			return err
		}

		size := info.Size()
		sizeStr := fmt.Sprintf("%d bytes", size)
		if size > 1024*1024 {
			sizeStr = fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
		} else if size > 1024 {
			sizeStr = fmt.Sprintf("%.1f KB", float64(size)/1024)
		}

		remoteState := ui.RenderFail("offline")
		probeCtx, probeCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := newRemote(logger).Health(probeCtx); err == nil {
			remoteState = ui.RenderOK("online")
		}
		probeCancel()

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Local Store Status"))
		fmt.Printf("Location: %s\n", cfg.Database.Path)
		fmt.Printf("Size: %s\n", sizeStr)
		fmt.Printf("Chapters: %s\n", ui.RenderAccent(fmt.Sprint(len(chapters))))
		if pending > 0 {
			fmt.Printf("Pending answers: %s\n", ui.RenderWarn(fmt.Sprint(pending)))
		} else {
			fmt.Printf("Pending answers: %s\n", ui.RenderOK("0"))
		}
		fmt.Printf("Remote: %s (%s)\n", remoteState, ui.RenderDim(cfg.Remote.BaseURL))
		fmt.Printf("Modified: %s\n", ui.RenderDim(info.ModTime().Format("2006-01-02 15:04:05")))
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
