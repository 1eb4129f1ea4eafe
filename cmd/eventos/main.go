// Command eventos manages the local reading-progress store and keeps it
// reconciled with the remote backend.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/config"
	"github.com/griiettner/eventos-finais/internal/remote"
	"github.com/griiettner/eventos-finais/internal/repo"
	"github.com/griiettner/eventos-finais/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "eventos",
	Short: "Offline-first reading progress sync",
	Long: `eventos keeps study content and reading progress in a local SQLite
cache that works fully offline, syncing buffered answers to the remote
store whenever connectivity allows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: eventos.yaml in . or the user config dir)")
}

// openStore creates the local store from config. The engine does not
// start until Init.
func openStore(logger *log.Logger) (*store.Store, *repo.Repo) {
	s := store.Open(cfg.Database.Path, logger)
	return s, repo.New(s)
}

// newRemote builds the backend client from config.
func newRemote(logger *log.Logger) *remote.Client {
	return remote.NewClient(cfg.Remote.BaseURL, remote.StaticToken(cfg.Remote.Token), logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
