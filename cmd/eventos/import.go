package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/content"
	"github.com/griiettner/eventos-finais/internal/ui"
)

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import chapter documents into the local store",
	Long: `Cache every chapter document from a directory.

Each *.json file holds one chapter with its pages and questions.
Re-importing a document updates the cached copy in place; user answers
and progress are untouched. Defaults to the configured content.dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.Content.Dir
		if len(args) > 0 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no content directory given and content.dir not configured")
		}

		logger := log.New(os.Stderr, "[content] ", log.LstdFlags)
		s, r := openStore(logger)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		n, err := content.NewImporter(r, logger).ImportDir(ctx, dir)
		if err != nil {
			return err
		}

		fmt.Printf("%s Imported %s chapter documents from %s\n",
			ui.RenderOK("✓"), ui.RenderAccent(fmt.Sprint(n)), dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
