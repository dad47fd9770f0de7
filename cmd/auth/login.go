package auth

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/models"
	promptutils "github.com/BerryBytes/portalctl/utils/prompt"
	"github.com/spf13/cobra"
)

func LoginCmd(deps AuthDependencies) *cobra.Command {
	loginCmd := &cobra.Command{
		Use:          "login",
		Short:        "Log in and store the session",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			s, err := deps.Session(ctx)
			if err != nil {
				return err
			}

			username, err := cmd.Flags().GetString("username")
			if err != nil {
				return fmt.Errorf("could not get username flag: %w", err)
			}
			passwordStdin, err := cmd.Flags().GetBool("password-stdin")
			if err != nil {
				return fmt.Errorf("could not get password-stdin flag: %w", err)
			}

			if username == "" {
				username, err = deps.Prompter.PromptForInput("Username", "")
				if errors.Is(err, promptutils.ErrInterrupted) {
					return nil
				} else if err != nil {
					return err
				}
			}

			var password string
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				password = strings.TrimRight(line, "\r\n")
				if password == "" {
					return fmt.Errorf("failed to read password from stdin: %w", err)
				}
			} else {
				password, err = deps.Prompter.PromptForPassword("Password")
				if errors.Is(err, promptutils.ErrInterrupted) {
					return nil
				} else if err != nil {
					return err
				}
			}

			grant, err := session.Login(ctx, s.Store, s.Auth, s.Notifier, s.Options,
				models.LoginRequest{Username: username, Password: password}, deps.Now())
			if grant == nil {
				return err
			}
			if err != nil {
				cmd.PrintErrf("Warning: %v\n", err)
			}

			cmd.Printf("Logged in as %s (%s session)\n", username, s.Name)
			return nil
		},
	}

	loginCmd.Flags().StringP("username", "u", "", "Username to log in with")
	loginCmd.Flags().Bool("password-stdin", false, "Read the password from stdin")

	return loginCmd
}

func LogoutCmd(deps AuthDependencies) *cobra.Command {
	return &cobra.Command{
		Use:          "logout",
		Short:        "Clear the stored session",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			s, err := deps.Session(ctx)
			if err != nil {
				return err
			}
			if err := session.Logout(ctx, s.Store, s.Notifier, s.Options); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}

			cmd.Printf("Logged out of the %s session\n", s.Name)
			return nil
		},
	}
}
