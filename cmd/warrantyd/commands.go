package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/goatkit/warrantyflow/internal/auth"
	"github.com/goatkit/warrantyflow/internal/config"
	"github.com/goatkit/warrantyflow/internal/database"
)

func syncCatalogCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-catalog",
		Short: "Fetch the storefront catalog and register new products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTool(*configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.SyncCatalogFromStore(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d new polic(ies)\n", n)
			return nil
		},
	}
}

func checkCmd(configPath *string) *cobra.Command {
	var claimant string
	cmd := &cobra.Command{
		Use:   "check <order-id>",
		Short: "Evaluate warranty coverage for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTool(*configPath)
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ev, err := a.svc.Check(cmd.Context(), args[0], claimant)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		},
	}
	cmd.Flags().StringVar(&claimant, "claimant", "", "Claimant id whose vouches are searched")
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API credentials",
	}

	var (
		subject string
		role    string
		ttl     time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTool(*configPath)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			m, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
			if err != nil {
				return err
			}
			token, expires, err := m.Issue(subject, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.UTC().Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().StringVar(&subject, "subject", "operator", "Token subject")
	issue.Flags().StringVar(&role, "role", auth.RoleAdmin, "Token role (admin or bridge)")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")

	hash := &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Hash a client secret for the auth.clients config list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.AddCommand(issue, hash)
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the documents table for the sql storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadForTool(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.BackendSQL {
				return fmt.Errorf("migrate needs storage.backend=sql, got %q", cfg.Storage.Backend)
			}
			db, driver, err := openDatabase(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.EnsureSchema(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready on %s\n", driver)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "example",
		Short: "Print an example YAML config with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.WriteExample(cmd.OutOrStdout())
		},
	})
	return cmd
}
