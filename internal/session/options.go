package session

import (
	"strings"
	"time"

	"github.com/BerryBytes/portalctl/internal/notify"
)

const DefaultPollInterval = 10 * time.Second

// Options configures one session variant. The user and admin sessions share
// the controller and differ only here.
type Options struct {
	Name string
	Keys Keys
	// Refresh enables the refresh attempt on an expired access token.
	Refresh bool
	// Topic is published whenever this controller changes credentials and is
	// also subscribed to.
	Topic string
	// InfoTopic, when set, is published after each successful profile fetch.
	// Controllers never subscribe to it.
	InfoTopic    string
	LoginRoute   string
	PublicRoutes []string
	PollInterval time.Duration
	// DefaultTTL is used when neither the server nor the token carries an
	// expiry.
	DefaultTTL time.Duration
}

func UserOptions() Options {
	return Options{
		Name:         "user",
		Keys:         UserKeys(),
		Refresh:      true,
		Topic:        notify.TopicUserToken,
		LoginRoute:   "/login",
		PublicRoutes: []string{"/", "/login", "/register", "/forgot-password"},
		PollInterval: DefaultPollInterval,
		DefaultTTL:   time.Hour,
	}
}

func AdminOptions() Options {
	return Options{
		Name:         "admin",
		Keys:         AdminKeys(),
		Refresh:      false,
		Topic:        notify.TopicAdminToken,
		InfoTopic:    notify.TopicAdminInfo,
		LoginRoute:   "/admin/login",
		PublicRoutes: []string{"/admin/login"},
		PollInterval: DefaultPollInterval,
		DefaultTTL:   time.Hour,
	}
}

// IsPublic reports whether route is one of the public routes. A public route
// ending in "/*" matches everything below it.
func (o Options) IsPublic(route string) bool {
	route = normalizeRoute(route)
	for _, p := range o.PublicRoutes {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			prefix = normalizeRoute(prefix)
			if route == prefix || strings.HasPrefix(route, prefix+"/") {
				return true
			}
			continue
		}
		if normalizeRoute(p) == route {
			return true
		}
	}
	return false
}

func normalizeRoute(route string) string {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	route = "/" + strings.Trim(route, "/")
	return route
}
