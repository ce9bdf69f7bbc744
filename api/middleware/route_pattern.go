package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern resolves the chi pattern before routing has finished, which
// is the case for middleware mounted with Use on a sub-router.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	if rctx.Routes != nil {
		match := chi.NewRouteContext()
		if rctx.Routes.Match(match, r.Method, r.URL.Path) && match.RoutePattern() != "" {
			return match.RoutePattern()
		}
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return r.URL.Path
}

// matchedPattern reads the final pattern once the router has served r.
func matchedPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
