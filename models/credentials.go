package models

import "time"

// CredentialSet holds the tokens of one authenticated session.
// AccessToken and AccessExpiry are always written and cleared together.
type CredentialSet struct {
	AccessToken  string    `json:"accessToken" yaml:"accessToken"`
	AccessExpiry time.Time `json:"accessExpiry" yaml:"accessExpiry"`
	RefreshToken string    `json:"refreshToken,omitempty" yaml:"refreshToken,omitempty"`
}

// HasAccess reports whether both halves of the access credential are present.
func (c *CredentialSet) HasAccess() bool {
	return c != nil && c.AccessToken != "" && !c.AccessExpiry.IsZero()
}

// CanRefresh reports whether a refresh credential is available.
func (c *CredentialSet) CanRefresh() bool {
	return c != nil && c.RefreshToken != ""
}

// Expired reports whether the access token is no longer valid at now.
func (c *CredentialSet) Expired(now time.Time) bool {
	return !now.Before(c.AccessExpiry)
}

// TimeLeft returns the remaining lifetime of the access token, never negative.
func (c *CredentialSet) TimeLeft(now time.Time) time.Duration {
	if d := c.AccessExpiry.Sub(now); d > 0 {
		return d
	}
	return 0
}
