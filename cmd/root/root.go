package root

import (
	"time"

	cmdAdmin "github.com/BerryBytes/portalctl/cmd/admin"
	cmdAuth "github.com/BerryBytes/portalctl/cmd/auth"
	cmdProxy "github.com/BerryBytes/portalctl/cmd/proxy"
	"github.com/BerryBytes/portalctl/internal/imageproxy"
	generalUtils "github.com/BerryBytes/portalctl/utils/general"
	promptutils "github.com/BerryBytes/portalctl/utils/prompt"
	"github.com/spf13/cobra"
)

type RootDependencies struct {
	Runtime        *Runtime
	Prompter       promptutils.Prompter
	GeneralManager generalUtils.GeneralUtilsInterface
	Loader         imageproxy.ConfigLoader
	Now            func() time.Time
}

// DefaultDependencies wires the real prompter, signal handling and AWS config.
func DefaultDependencies() RootDependencies {
	return RootDependencies{
		Runtime:        &Runtime{},
		Prompter:       promptutils.NewPrompt(),
		GeneralManager: generalUtils.NewGeneralUtilsManager(),
		Loader:         &imageproxy.RealConfigLoader{},
		Now:            time.Now,
	}
}

func NewRootCmd(deps RootDependencies) *cobra.Command {
	rt := deps.Runtime

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Portal session CLI",
		Long: `A CLI tool for the portal's user and admin sessions.
It logs in, keeps sessions alive across terminals and talks to the admin API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println("No subcommand provided. Showing help...")
			return cmd.Help()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.Close()
		},
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&rt.ConfigPath, "config", "", "Config file (default ~/.config/portalctl/config.yml)")
	rootCmd.PersistentFlags().StringVar(&rt.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	userDeps := cmdAuth.AuthDependencies{
		Session:        rt.UserSession,
		Prompter:       deps.Prompter,
		GeneralManager: deps.GeneralManager,
		Now:            deps.Now,
	}
	adminDeps := userDeps
	adminDeps.Session = rt.AdminSession

	rootCmd.AddCommand(cmdAuth.NewAuthCommands(userDeps)...)
	rootCmd.AddCommand(cmdAdmin.NewAdminCmd(cmdAdmin.AdminDependencies{
		Auth: adminDeps,
		API:  rt.AdminAPI,
	}))
	rootCmd.AddCommand(cmdProxy.NewProxyCmd(cmdProxy.ProxyDependencies{
		Config:         rt.Config,
		Logger:         rt.Logger,
		GeneralManager: deps.GeneralManager,
		Loader:         deps.Loader,
	}))

	return rootCmd
}
