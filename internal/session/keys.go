package session

import "github.com/BerryBytes/portalctl/models"

// Names of the two storage scopes. They double as the Key of storage events
// raised by the file watcher.
const (
	ScopeShort = "short"
	ScopeLong  = "long"
)

// Keys is the storage layout of one session variant. Access token material
// lives in the short-lived scope; the refresh token and cached records live in
// the long-lived scope.
type Keys struct {
	AccessToken  string
	AccessExpiry string
	// RefreshToken is empty for variants without a refresh credential.
	RefreshToken string
	Profiles     []models.ProfileKind
}

func UserKeys() Keys {
	return Keys{
		AccessToken:  "token",
		AccessExpiry: "access_expire",
		RefreshToken: "refresh_token",
		Profiles:     []models.ProfileKind{models.ProfileUser, models.ProfileApplication},
	}
}

func AdminKeys() Keys {
	return Keys{
		AccessToken:  "admin_token",
		AccessExpiry: "admin_access_expire",
		Profiles: []models.ProfileKind{
			models.ProfileAdmin,
			models.ProfileAdminServers,
			models.ProfileAdminApplications,
			models.ProfileAdminNotifications,
		},
	}
}

func (k Keys) profileKeys() []string {
	keys := make([]string, len(k.Profiles))
	for i, p := range k.Profiles {
		keys[i] = string(p)
	}
	return keys
}
