package auth

import (
	"context"
	"time"

	"github.com/BerryBytes/portalctl/internal/notify"
	"github.com/BerryBytes/portalctl/internal/session"
	generalUtils "github.com/BerryBytes/portalctl/utils/general"
	promptutils "github.com/BerryBytes/portalctl/utils/prompt"
	"github.com/spf13/cobra"
)

// Session is one session variant as seen by the commands.
type Session struct {
	Name     string
	Route    string
	Options  session.Options
	Store    *session.Store
	Auth     session.Authenticator
	Notifier notify.Notifier
	// Controller builds a controller navigating with nav.
	Controller func(nav session.Navigator) *session.Controller
}

// Provider opens the session lazily so that help output never touches
// storage.
type Provider func(ctx context.Context) (*Session, error)

type AuthDependencies struct {
	Session        Provider
	Prompter       promptutils.Prompter
	GeneralManager generalUtils.GeneralUtilsInterface
	Now            func() time.Time
}

// NewAuthCommands returns login, logout, status and watch for one variant.
func NewAuthCommands(deps AuthDependencies) []*cobra.Command {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return []*cobra.Command{
		LoginCmd(deps),
		LogoutCmd(deps),
		StatusCmd(deps),
		WatchCmd(deps),
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
