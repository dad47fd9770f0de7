package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ResolveExpiry picks the access expiry of a grant: the server value when
// present, else the token's exp claim when the token is a JWT, else now+ttl.
// The claim is read without verifying the signature; it only drives the local
// refresh schedule and the server stays authoritative.
func ResolveExpiry(token string, explicit time.Time, ttl time.Duration, now time.Time) time.Time {
	if !explicit.IsZero() {
		return explicit
	}
	if exp, ok := tokenExpiry(token); ok {
		return exp
	}
	return now.Add(ttl)
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
