package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openctemio/teams/internal/config"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/jwt"
)

var (
	flagTokenName string
	flagTokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a service token",
	Long: `Issue a service token that bypasses team access checks.

Service tokens are meant for internal automation. They carry a fresh
subject id and are valid for the given duration.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		gen := jwt.NewGenerator(jwt.Config{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.JWTIssuer,
			TokenTTL: cfg.Auth.TokenTTL,
		})

		token, expiresAt, err := gen.GenerateServiceToken(
			shared.NewID().String(), flagTokenName, flagTokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&flagTokenName, "name", "service", "Name recorded in the token")
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}
