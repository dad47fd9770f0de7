package models

import "time"

// LoginRequest carries the credentials typed by the user.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Grant is what the identity API returns from a login or a refresh.
// A zero AccessExpiry means the server did not send one.
type Grant struct {
	AccessToken  string
	AccessExpiry time.Time
	RefreshToken string
	Identity     *Identity
}
