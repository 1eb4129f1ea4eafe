package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/griiettner/eventos-finais/internal/repo"
	"github.com/griiettner/eventos-finais/internal/ui"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the cached profile's admin flag",
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <email>",
	Short: "Grant admin to the cached profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(args[0], true)
	},
}

var adminRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Revoke admin from the cached profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(args[0], false)
	},
}

var adminShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepo(func(ctx context.Context, r *repo.Repo) error {
			p, err := r.Profile(ctx)
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Printf("%s No profile cached yet\n", ui.RenderWarn("⚠"))
				return nil
			}
			admin := ui.RenderDim("no")
			if p.IsAdmin {
				admin = ui.RenderOK("yes")
			}
			fmt.Printf("Username: %s\n", p.Username)
			fmt.Printf("Email: %s\n", p.Email)
			fmt.Printf("Verified: %v\n", p.IsVerified)
			fmt.Printf("Admin: %s\n", admin)
			return nil
		})
	},
}

func setAdmin(email string, admin bool) error {
	return withRepo(func(ctx context.Context, r *repo.Repo) error {
		if err := r.SetAdmin(ctx, email, admin); err != nil {
			return err
		}
		verb := "granted to"
		if !admin {
			verb = "revoked from"
		}
		fmt.Printf("%s Admin %s %s\n", ui.RenderOK("✓"), verb, ui.RenderAccent(email))
		return nil
	})
}

// withRepo opens the store, initializes it, and runs fn against the repo.
func withRepo(fn func(context.Context, *repo.Repo) error) error {
	logger := log.New(io.Discard, "", 0)
	s, r := openStore(logger)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return fn(ctx, r)
}

func init() {
	adminCmd.AddCommand(adminGrantCmd)
	adminCmd.AddCommand(adminRevokeCmd)
	adminCmd.AddCommand(adminShowCmd)
	rootCmd.AddCommand(adminCmd)
}
