package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/griiettner/eventos-finais/internal/models"
	"github.com/griiettner/eventos-finais/internal/ui"
)

var exportOutput string

// exportDocument is the YAML shape written by the export command.
type exportDocument struct {
	ExportedAt time.Time           `yaml:"exported_at"`
	Answers    []models.UserAnswer `yaml:"answers"`
	Progress   []models.Progress   `yaml:"progress"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export answers and progress as YAML",
	Long: `Write every stored answer and progress row as a YAML document.

Useful for backups and for inspecting exactly what the local store holds,
including the per-row synced flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.New(io.Discard, "", 0)
		s, r := openStore(logger)
		defer s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize store: %w", err)
		}

		answers, err := r.AllAnswers(ctx)
		if err != nil {
			return err
		}
		progress, err := r.AllProgress(ctx)
		if err != nil {
			return err
		}

		doc := exportDocument{
			ExportedAt: time.Now().UTC(),
			Answers:    answers,
			Progress:   progress,
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			out = f
		}

		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}

		if exportOutput != "" {
			fmt.Fprintf(os.Stderr, "%s Exported %d answers and %d progress rows to %s\n",
				ui.RenderOK("✓"), len(answers), len(progress), exportOutput)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
