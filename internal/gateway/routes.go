package gateway

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/folioforge/portfolio-platform/internal/core/domain"
	"github.com/folioforge/portfolio-platform/internal/infrastructure/config"
)

// Route maps one public path prefix onto a backend. The remainder of the
// path after Prefix is appended to Rewrite; the query string is kept.
type Route struct {
	Prefix  string
	Service string
	Target  string
	Rewrite string
	// Protected routes run the token verifier before proxying. Open lists
	// exact paths under a protected prefix that skip it.
	Protected bool
	Open      []string
}

// DefaultRoutes builds the gateway route table. Public section prefixes map
// one to one; admin prefixes are protected and drop the /admin segment,
// except education and contact whose backends mount their writes under
// /{section}/admin.
func DefaultRoutes(urls config.ServiceURLs) []Route {
	routes := []Route{
		{
			Prefix: "/auth", Service: "auth", Target: urls.Auth, Rewrite: "/auth",
			Protected: true, Open: []string{"/auth/login", "/auth/signup"},
		},
		{Prefix: "/.well-known/jwks.json", Service: "auth", Target: urls.Auth, Rewrite: "/.well-known/jwks.json"},
		{Prefix: "/portfolio", Service: "portfolio", Target: urls.Portfolio, Rewrite: "/portfolio"},
		{Prefix: "/admin/portfolio", Service: "portfolio", Target: urls.Portfolio, Rewrite: "/admin/portfolio", Protected: true},
		{Prefix: "/ai", Service: "ai", Target: urls.AI, Rewrite: "/ai"},
	}

	for _, s := range domain.Sections {
		name := string(s)
		target := urls.Section(name)
		routes = append(routes, Route{Prefix: "/" + name, Service: name, Target: target, Rewrite: "/" + name})

		rewrite := "/" + name
		if s.HasAdminMount() {
			rewrite += "/admin"
		}
		routes = append(routes, Route{Prefix: "/admin/" + name, Service: name, Target: target, Rewrite: rewrite, Protected: true})
	}
	return routes
}

// Validate rejects tables the gateway cannot serve safely: bad targets,
// duplicate prefixes, and admin prefixes left unprotected.
func Validate(routes []Route) error {
	seen := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		if !strings.HasPrefix(r.Prefix, "/") || strings.HasSuffix(r.Prefix, "/") {
			return fmt.Errorf("route %q: prefix must start and not end with /", r.Prefix)
		}
		if _, dup := seen[r.Prefix]; dup {
			return fmt.Errorf("route %q: duplicate prefix", r.Prefix)
		}
		seen[r.Prefix] = struct{}{}

		u, err := url.Parse(r.Target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("route %q: invalid target %q", r.Prefix, r.Target)
		}
		if strings.HasPrefix(r.Prefix, "/admin/") && !r.Protected {
			return fmt.Errorf("route %q: admin routes must be protected", r.Prefix)
		}
		for _, p := range r.Open {
			if !matches(r.Prefix, p) {
				return fmt.Errorf("route %q: open path %q is outside the prefix", r.Prefix, p)
			}
		}
	}
	return nil
}

// RewritePath maps an inbound path to the backend path for r.
func (r Route) RewritePath(path string) string {
	return r.Rewrite + strings.TrimPrefix(path, r.Prefix)
}

// IsOpen reports whether path skips the verifier on a protected route.
func (r Route) IsOpen(path string) bool {
	for _, p := range r.Open {
		if p == path {
			return true
		}
	}
	return false
}

// matches is true for the prefix itself and anything below it on a segment
// boundary, so /auth never matches /authors.
func matches(prefix, path string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
