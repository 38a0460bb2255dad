package main

import (
	"github.com/dimitrije/family-core/internal/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale invitations and remove old game locks once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, db, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := services.NewSweeper(db).Sweep(ctx)
			if err != nil {
				return err
			}

			log.Info().
				Int64("expired_invitations", result.ExpiredInvitations).
				Int64("removed_game_locks", result.RemovedGameLocks).
				Msg("sweep finished")
			return nil
		},
	}
}
