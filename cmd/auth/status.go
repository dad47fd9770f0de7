package auth

import (
	"fmt"
	"time"

	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/models"
	"github.com/spf13/cobra"
)

func StatusCmd(deps AuthDependencies) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:          "status",
		Short:        "Show the stored session",
		Long:         "Reconciles the session once (refreshing it when possible) and prints the result. With --offline only local storage is read.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			offline, err := cmd.Flags().GetBool("offline")
			if err != nil {
				return fmt.Errorf("could not get offline flag: %w", err)
			}

			s, err := deps.Session(ctx)
			if err != nil {
				return err
			}

			var snap models.Snapshot
			if offline {
				snap, err = localSnapshot(cmd, s, deps.Now())
				if err != nil {
					return err
				}
			} else {
				// The login route is public, so an absent session is reported
				// instead of being cleared.
				c := s.Controller(session.StaticNavigator(s.Options.LoginRoute))
				c.Reconcile(ctx)
				snap = c.Snapshot()
			}

			creds, err := s.Store.ReadCredentials(ctx)
			if err != nil {
				return err
			}
			deps.GeneralManager.PrintSession(cmd.OutOrStdout(), s.Name, snap, creds, deps.Now())
			return nil
		},
	}

	statusCmd.Flags().Bool("offline", false, "Do not contact the identity API")

	return statusCmd
}

func localSnapshot(cmd *cobra.Command, s *Session, now time.Time) (models.Snapshot, error) {
	ctx := commandContext(cmd)

	creds, err := s.Store.ReadCredentials(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	identity, err := s.Store.ReadIdentity(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{State: models.StateUnauthenticated, Identity: identity}
	if creds.HasAccess() && !creds.Expired(now) {
		snap.State = models.StateAuthenticated
	}
	return snap, nil
}
