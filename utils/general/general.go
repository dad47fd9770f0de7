package generalutils

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerryBytes/portalctl/models"
	"github.com/common-nighthawk/go-figure"
)

//go:generate mockgen -destination=mocks/mock_general.go -package=mock_general github.com/BerryBytes/portalctl/utils/general GeneralUtilsInterface

type GeneralUtilsInterface interface {
	HandleSignals() context.Context
	PrintSession(w io.Writer, name string, snap models.Snapshot, creds *models.CredentialSet, now time.Time)
	PrintBanner(w io.Writer, text string)
}

type DefaultGeneralUtilsManager struct{}

func (g *DefaultGeneralUtilsManager) HandleSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		fmt.Printf("Received termination signal: %v\n", sig)
		cancel()
	}()

	return ctx
}

func (d *DefaultGeneralUtilsManager) PrintSession(w io.Writer, name string, snap models.Snapshot, creds *models.CredentialSet, now time.Time) {
	account := "-"
	if id := snap.Identity; id != nil {
		switch {
		case id.User != nil:
			account = id.User.Username
		case id.Admin != nil:
			account = id.Admin.Username
		}
	}

	expiry := "-"
	if creds != nil && !creds.AccessExpiry.IsZero() {
		expiry = fmt.Sprintf("%s (%s)", creds.AccessExpiry.Local().Format(time.RFC3339), FormatRemaining(creds.TimeLeft(now)))
	}

	refresh := "no"
	if creds.CanRefresh() {
		refresh = "yes"
	}

	lastError := "-"
	if snap.Err != nil {
		lastError = snap.Err.Error()
	}

	fmt.Fprintf(w, `
Session Details (%s):
---------------------------------
State        : %s
Account      : %s
Expires      : %s
Refreshable  : %s
Last Error   : %s
---------------------------------
`, name, snap.State, account, expiry, refresh, lastError)
}

func (d *DefaultGeneralUtilsManager) PrintBanner(w io.Writer, text string) {
	fmt.Fprintln(w, figure.NewFigure(text, "cybermedium", true).String())
}

// FormatRemaining renders a lifetime rounded to seconds, or "expired".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	return d.Round(time.Second).String() + " left"
}

func NewGeneralUtilsManager() GeneralUtilsInterface {
	return &DefaultGeneralUtilsManager{}
}
