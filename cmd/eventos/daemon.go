package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/content"
	"github.com/griiettner/eventos-finais/internal/dashboard"
	"github.com/griiettner/eventos-finais/internal/logging"
	"github.com/griiettner/eventos-finais/internal/syncer"
	"github.com/griiettner/eventos-finais/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the sync daemon (foreground)",
	Long: `Run the sync daemon in foreground mode.

The daemon:
  1. Opens and initializes the local store
  2. Imports chapter documents from the content directory
  3. Watches the content directory for edits
  4. Pushes unsynced answers to the remote store on a schedule
  5. Optionally serves a WebSocket dashboard with live sync status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		logWriter, closeLog, err := logging.Writer(logging.Options{
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		if err != nil {
			return err
		}
		defer closeLog()

		storeLog := logging.New(logWriter, "[store] ")
		syncLog := logging.New(logWriter, "[sync] ")
		contentLog := logging.New(logWriter, "[content] ")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, r := openStore(storeLog)
		defer s.Close()

		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		importer := content.NewImporter(r, contentLog)
		if cfg.Content.Dir != "" {
			if _, err := os.Stat(cfg.Content.Dir); err == nil {
				n, err := importer.ImportDir(ctx, cfg.Content.Dir)
				if err != nil {
					return err
				}
				contentLog.Printf("Imported %d chapter documents from %s", n, cfg.Content.Dir)
			}
		}

		client := newRemote(syncLog)
		if err := client.Health(ctx); err == nil {
			stats, err := refreshCache(ctx, client, r)
			if err != nil {
				syncLog.Printf("WARNING: startup cache refresh failed: %v", err)
			} else {
				syncLog.Printf("Cache refreshed: %d chapters, %d progress rows",
					stats.chapters, stats.progress)
			}
		} else {
			syncLog.Printf("Remote unreachable, starting with cached content")
		}

		syncConfig := syncer.DefaultConfig()
		syncConfig.UserID = cfg.Remote.UserID
		syncConfig.Interval = cfg.Sync.Interval
		syncConfig.StartDelay = cfg.Sync.StartDelay
		syncConfig.Logger = syncLog
		manager := syncer.New(r, client, syncConfig)

		if cfg.Dashboard.Enabled {
			dash := dashboard.NewServer(manager, &dashboard.Config{
				Port:   cfg.Dashboard.Port,
				Logger: logging.New(logWriter, "[dashboard] "),
			})
			if err := dash.Start(); err != nil {
				return err
			}
			defer dash.Stop()
			fmt.Printf("%s Dashboard listening on %s\n", ui.RenderAccent("◆"), dash.Addr())
		}

		if cfg.Content.Watch && cfg.Content.Dir != "" {
			watcher, err := content.NewWatcher(importer, contentLog)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx, cfg.Content.Dir); err != nil {
				return err
			}
			defer watcher.Stop()
		}

		fmt.Printf("%s Sync daemon running (interval %v)\n", ui.RenderOK("✓"), cfg.Sync.Interval)
		fmt.Printf("   Store:  %s\n", cfg.Database.Path)
		fmt.Printf("   Remote: %s\n", cfg.Remote.BaseURL)
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		return manager.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
