package session

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/BerryBytes/portalctl/models"
)

// encodeExpiry stores an expiry as epoch milliseconds.
func encodeExpiry(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// decodeExpiry accepts epoch milliseconds, epoch seconds or RFC3339.
// Anything else is reported as absent.
func decodeExpiry(raw string) (time.Time, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"`)
	if raw == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n <= 0 {
			return time.Time{}, false
		}
		// Ten digits of seconds cover dates until 2286.
		if n < 1e11 {
			return time.Unix(n, 0), true
		}
		return time.UnixMilli(n), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// decodeRecord parses a cached JSON record. Corrupt input, JSON null and
// non-object values are reported as absent.
func decodeRecord[T any](raw string) (*T, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return &v, true
}

// setRecord decodes raw into the field of id selected by kind.
func setRecord(id *models.Identity, kind models.ProfileKind, raw string) bool {
	switch kind {
	case models.ProfileUser:
		if v, ok := decodeRecord[models.UserProfile](raw); ok {
			id.User = v
			return true
		}
	case models.ProfileApplication:
		if v, ok := decodeRecord[models.ApplicationProfile](raw); ok {
			id.Application = v
			return true
		}
	case models.ProfileAdmin:
		if v, ok := decodeRecord[models.AdminProfile](raw); ok {
			id.Admin = v
			return true
		}
	case models.ProfileAdminServers:
		if v, ok := decodeRecord[models.ServerStatus](raw); ok {
			id.Servers = v
			return true
		}
	case models.ProfileAdminApplications:
		if v, ok := decodeRecord[models.ApplicationCounts](raw); ok {
			id.Applications = v
			return true
		}
	case models.ProfileAdminNotifications:
		if v, ok := decodeRecord[models.NotificationCounts](raw); ok {
			id.Notifications = v
			return true
		}
	}
	return false
}

// recordValues returns the non-nil records of id for the given kinds.
func recordValues(id *models.Identity, kinds []models.ProfileKind) map[models.ProfileKind]any {
	out := make(map[models.ProfileKind]any)
	if id == nil {
		return out
	}
	for _, kind := range kinds {
		var v any
		switch kind {
		case models.ProfileUser:
			if id.User != nil {
				v = id.User
			}
		case models.ProfileApplication:
			if id.Application != nil {
				v = id.Application
			}
		case models.ProfileAdmin:
			if id.Admin != nil {
				v = id.Admin
			}
		case models.ProfileAdminServers:
			if id.Servers != nil {
				v = id.Servers
			}
		case models.ProfileAdminApplications:
			if id.Applications != nil {
				v = id.Applications
			}
		case models.ProfileAdminNotifications:
			if id.Notifications != nil {
				v = id.Notifications
			}
		}
		if v != nil {
			out[kind] = v
		}
	}
	return out
}
