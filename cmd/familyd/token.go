package main

import (
	"errors"
	"fmt"

	"github.com/dimitrije/family-core/internal/config"
	"github.com/dimitrije/family-core/internal/services"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newTokenCommand issues an access token for local testing. Identity is owned
// by an upstream provider in production.
func newTokenCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Print a bearer token for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.IsProduction() {
				return errors.New("refusing to issue tokens in production")
			}

			token, err := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry).GenerateAccessToken(userID, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim of the token")
	return cmd
}
