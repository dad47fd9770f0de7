package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BerryBytes/portalctl/internal/notify"
	"github.com/BerryBytes/portalctl/models"
)

var ErrEmptyGrant = errors.New("login response did not contain an access token")

// Login authenticates with auth and seeds store with the resulting grant.
// Credentials and records of a previous identity are dropped first, so a
// grant without a refresh token never inherits the old one. A failure to
// notify other processes is returned after the store has been written.
func Login(ctx context.Context, store *Store, auth Authenticator, n notify.Notifier, opts Options, req models.LoginRequest, now time.Time) (*models.Grant, error) {
	grant, err := auth.Login(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if grant == nil || grant.AccessToken == "" {
		return nil, ErrEmptyGrant
	}

	if err := store.Clear(ctx); err != nil {
		return nil, err
	}
	if err := writeGrant(ctx, store, grant, opts.DefaultTTL, now); err != nil {
		return nil, err
	}

	if n != nil && opts.Topic != "" {
		if err := n.Publish(ctx, notify.Event{Topic: opts.Topic}); err != nil {
			return grant, fmt.Errorf("failed to announce login: %w", err)
		}
	}
	return grant, nil
}

// Logout clears store and announces the change. It is used by processes that
// do not run a controller.
func Logout(ctx context.Context, store *Store, n notify.Notifier, opts Options) error {
	if err := store.Clear(ctx); err != nil {
		return err
	}
	if n != nil && opts.Topic != "" {
		if err := n.Publish(ctx, notify.Event{Topic: opts.Topic}); err != nil {
			return fmt.Errorf("failed to announce logout: %w", err)
		}
	}
	return nil
}

func writeGrant(ctx context.Context, store *Store, grant *models.Grant, ttl time.Duration, now time.Time) error {
	if ttl <= 0 {
		ttl = time.Hour
	}
	set := &models.CredentialSet{
		AccessToken:  grant.AccessToken,
		AccessExpiry: ResolveExpiry(grant.AccessToken, grant.AccessExpiry, ttl, now),
		RefreshToken: grant.RefreshToken,
	}
	if err := store.WriteCredentials(ctx, set); err != nil {
		return err
	}
	if !grant.Identity.Empty() {
		if err := store.WriteCachedProfile(ctx, grant.Identity); err != nil {
			return err
		}
	}
	return nil
}
