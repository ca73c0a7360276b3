package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wp-quiz-service/internal/auth"
	"wp-quiz-service/internal/config"
)

// NewTokenCmd mints a session token for a user, mainly for local testing and
// smoke checks against a running server.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a session token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			tokens := auth.NewTokenService(cfg.Auth.Secret, ttl)
			token, err := tokens.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
