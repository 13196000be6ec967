package model

import "strings"

// Route is the closed set of branches a request can be dispatched to.
type Route string

const (
	RouteMemory    Route = "memory"
	RouteDraft     Route = "draft"
	RouteReview    Route = "review"
	RouteLookup    Route = "lookup"
	RouteSmalltalk Route = "smalltalk"
)

// DefaultRoute is where every unresolved request ends up.
const DefaultRoute = RouteSmalltalk

var routes = []Route{RouteMemory, RouteDraft, RouteReview, RouteLookup, RouteSmalltalk}

// Routes returns all routes in a fixed order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

func (r Route) String() string {
	return string(r)
}

// Valid reports whether r is one of the five routes.
func (r Route) Valid() bool {
	for _, v := range routes {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRoute maps free text onto a Route. Anything that is not exactly one of
// the labels (ignoring case and surrounding space) is rejected.
func ParseRoute(s string) (Route, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range routes {
		if s == string(r) {
			return r, true
		}
	}
	return "", false
}
