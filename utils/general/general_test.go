package generalutils

import (
	"bytes"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/BerryBytes/portalctl/models"
	"github.com/stretchr/testify/assert"
)

func TestHandleSignals(t *testing.T) {
	manager := &DefaultGeneralUtilsManager{}

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	ctx := manager.HandleSignals()

	err := syscall.Kill(syscall.Getpid(), syscall.SIGINT)
	if err != nil {
		t.Fatalf("Failed to send signal: %v", err)
	}

	select {
	case <-ctx.Done():
		assert.Error(t, ctx.Err(), "context should be cancelled")
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for signal handling")
	}

	w.Close()
	os.Stdout = oldStdout
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	if err != nil {
		t.Fatalf("Failed to copy output: %v", err)
	}

	assert.Contains(t, buf.String(), "Received termination signal")

	signal.Reset()
}

func TestPrintSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	manager := &DefaultGeneralUtilsManager{}

	t.Run("Authenticated", func(t *testing.T) {
		var buf bytes.Buffer
		manager.PrintSession(&buf, "user", models.Snapshot{
			State:    models.StateAuthenticated,
			Identity: &models.Identity{User: &models.UserProfile{Username: "alice"}},
		}, &models.CredentialSet{
			AccessToken:  "t1",
			AccessExpiry: now.Add(90 * time.Minute),
			RefreshToken: "r1",
		}, now)

		output := buf.String()
		assert.Contains(t, output, "Session Details (user)")
		assert.Contains(t, output, "State        : authenticated")
		assert.Contains(t, output, "Account      : alice")
		assert.Contains(t, output, "1h30m0s left")
		assert.Contains(t, output, "Refreshable  : yes")
		assert.Contains(t, output, "Last Error   : -")
	})

	t.Run("LoggedOut", func(t *testing.T) {
		var buf bytes.Buffer
		manager.PrintSession(&buf, "admin", models.Snapshot{
			State: models.StateUnauthenticated,
			Err:   errors.New("session expired"),
		}, nil, now)

		output := buf.String()
		assert.Contains(t, output, "Account      : -")
		assert.Contains(t, output, "Expires      : -")
		assert.Contains(t, output, "Refreshable  : no")
		assert.Contains(t, output, "Last Error   : session expired")
	})
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "expired", FormatRemaining(0))
	assert.Equal(t, "expired", FormatRemaining(-time.Second))
	assert.Equal(t, "1m5s left", FormatRemaining(65*time.Second+300*time.Millisecond))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	(&DefaultGeneralUtilsManager{}).PrintBanner(&buf, "portalctl")
	assert.NotEmpty(t, buf.String())
	assert.Greater(t, bytes.Count(buf.Bytes(), []byte("\n")), 2)
}

func TestNewGeneralUtilsManager(t *testing.T) {
	manager := NewGeneralUtilsManager()
	assert.NotNil(t, manager)
	_, ok := manager.(*DefaultGeneralUtilsManager)
	assert.True(t, ok, "should return DefaultGeneralUtilsManager")
}
