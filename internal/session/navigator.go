package session

import "sync"

// StaticNavigator always reports the same route and ignores redirects.
type StaticNavigator string

func (s StaticNavigator) CurrentRoute() string { return string(s) }

func (s StaticNavigator) Redirect(string) {}

// RouteNavigator tracks a current route for processes without a router of
// their own. A redirect moves the route and calls OnRedirect.
type RouteNavigator struct {
	mu         sync.Mutex
	route      string
	OnRedirect func(route string)
}

func NewRouteNavigator(route string, onRedirect func(string)) *RouteNavigator {
	return &RouteNavigator{route: route, OnRedirect: onRedirect}
}

func (n *RouteNavigator) CurrentRoute() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// Navigate changes the current route without triggering OnRedirect.
func (n *RouteNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = route
}

func (n *RouteNavigator) Redirect(route string) {
	n.mu.Lock()
	n.route = route
	fn := n.OnRedirect
	n.mu.Unlock()

	if fn != nil {
		fn(route)
	}
}
