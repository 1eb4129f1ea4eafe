package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/syncer"
	"github.com/griiettner/eventos-finais/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push unsynced answers once",
	Long: `Perform a single sync pass.

Reads every answer the remote store has not confirmed and pushes them
row by row. Rows that fail stay buffered for the next pass; re-running
after a partial failure only retries what is still pending.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := log.New(os.Stderr, "[sync] ", log.LstdFlags)
		s, r := openStore(logger)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		pending, err := r.UnsyncedCount(ctx)
		if err != nil {
			return err
		}
		if pending == 0 {
			fmt.Printf("%s Nothing to sync\n", ui.RenderOK("✓"))
			return nil
		}

		client := newRemote(logger)
		if err := client.Health(ctx); err != nil {
			return fmt.Errorf("remote store unreachable: %w", err)
		}

		syncConfig := syncer.DefaultConfig()
		syncConfig.UserID = cfg.Remote.UserID
		syncConfig.Logger = logger
		manager := syncer.New(r, client, syncConfig)

		fmt.Printf("%s Pushing %s pending answers...\n",
			ui.RenderAccent("◆"), ui.RenderAccent(fmt.Sprint(pending)))
		start := time.Now()
		result := manager.SyncOnce(ctx)
		elapsed := time.Since(start).Round(time.Millisecond)

		if result.Failed > 0 {
			fmt.Printf("%s Sync finished with failures in %v\n", ui.RenderWarn("⚠"), elapsed)
			fmt.Printf("   Pushed: %d\n", result.Pushed)
			fmt.Printf("   Failed: %d (still buffered)\n", result.Failed)
			return fmt.Errorf("%d answers failed to sync", result.Failed)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderOK("✓"), elapsed)
		fmt.Printf("   Pushed: %d\n", result.Pushed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
