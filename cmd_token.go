package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/akinalp/emocircle/config"
	"github.com/akinalp/emocircle/services"
)

var tokenExpiry time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <facilitator-id>",
	Short: "Mint a facilitator token",
	Long: `Mint a facilitator token signed with AUTH_SECRET.

In production tokens come from the identity provider; this command is for
development and scripting.

Examples:
  emocircle token alice
  export EMOCIRCLE_TOKEN=$(emocircle token alice --expiry 1h)`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "Token lifetime (default AUTH_TOKEN_EXPIRY)")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	expiry := cfg.Auth.TokenExpiry
	if tokenExpiry > 0 {
		expiry = tokenExpiry
	}

	token, expiresAt, err := services.NewIdentityService(cfg.Auth.Secret, expiry).Issue(args[0])
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(os.Stderr, "expires %s (%s)\n", humanize.Time(expiresAt), expiresAt.Format(time.RFC3339))
	return nil
}
