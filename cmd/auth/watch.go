package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/models"
	"github.com/spf13/cobra"
)

func WatchCmd(deps AuthDependencies) *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive until interrupted",
		Long: `Runs the session controller in the foreground: the session is refreshed
before it expires and every change made by other processes is picked up.
The command ends when the session can no longer be kept alive.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := deps.Session(commandContext(cmd))
			if err != nil {
				return err
			}

			route, err := cmd.Flags().GetString("route")
			if err != nil {
				return fmt.Errorf("could not get route flag: %w", err)
			}
			if route == "" {
				route = s.Route
			}

			ctx, cancel := context.WithCancel(deps.GeneralManager.HandleSignals())
			defer cancel()

			// Written from the controller's timer or watcher goroutines.
			var ended atomic.Pointer[string]
			nav := session.NewRouteNavigator(route, func(to string) {
				ended.Store(&to)
				cancel()
			})

			c := s.Controller(nav)
			unsubscribe := c.OnChange(changePrinter(cmd, deps.Now))
			defer unsubscribe()

			cmd.Printf("Watching the %s session on %s (Ctrl+C to stop)\n", s.Name, route)
			c.Start(ctx)
			<-ctx.Done()
			c.Stop()

			if to := ended.Load(); to != nil {
				cmd.Printf("Session ended, redirected to %s. Log in again to continue.\n", *to)
			}
			return nil
		},
	}

	watchCmd.Flags().String("route", "", "Route the session is used on (public routes never force a logout)")

	return watchCmd
}

// changePrinter prints a line whenever the state or error changes.
func changePrinter(cmd *cobra.Command, now func() time.Time) func(models.Snapshot) {
	var (
		mu      sync.Mutex
		last    models.SessionState = -1
		lastErr string
	)
	return func(snap models.Snapshot) {
		errText := ""
		if snap.Err != nil {
			errText = snap.Err.Error()
		}

		mu.Lock()
		defer mu.Unlock()
		if snap.State == last && errText == lastErr {
			return
		}
		last, lastErr = snap.State, errText

		line := fmt.Sprintf("[%s] %s", now().Format(time.TimeOnly), snap.State)
		if errText != "" {
			line += " (" + errText + ")"
		}
		cmd.Println(line)
	}
}
