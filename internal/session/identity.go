package session

import (
	"context"
	"errors"

	"github.com/BerryBytes/portalctl/models"
)

//go:generate mockgen -destination=mocks/mock_session.go -package=mock_session github.com/BerryBytes/portalctl/internal/session IdentityAPI,Authenticator,Navigator

var (
	// ErrInvalidToken is returned by an IdentityAPI when the server rejects
	// the access token itself. It always forces a logout.
	ErrInvalidToken   = errors.New("invalid token")
	ErrNoCredentials  = errors.New("no session credentials")
	ErrSessionExpired = errors.New("session expired")
	ErrRefreshFailed  = errors.New("session refresh failed")
)

// IdentityAPI is the remote identity service used by a controller.
type IdentityAPI interface {
	// Refresh exchanges a refresh token for new credentials.
	Refresh(ctx context.Context, refreshToken string) (*models.Grant, error)
	// Profile fetches the current identity records for accessToken.
	Profile(ctx context.Context, accessToken string) (*models.Identity, error)
}

// Authenticator performs the interactive login that seeds a store.
type Authenticator interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.Grant, error)
}

// Navigator knows where the user is and can send them to another route.
type Navigator interface {
	CurrentRoute() string
	Redirect(route string)
}
