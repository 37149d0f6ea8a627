package gateway

import (
	"strings"
	"testing"

	"github.com/folioforge/portfolio-platform/internal/infrastructure/config"
)

func testURLs(base string) config.ServiceURLs {
	return config.ServiceURLs{
		Auth: base, Intro: base, About: base, Experience: base, Projects: base,
		Skills: base, Certificates: base, Education: base, Contact: base,
		Portfolio: base, AI: base,
	}
}

func routeByPrefix(t *testing.T, routes []Route, prefix string) Route {
	t.Helper()
	for _, r := range routes {
		if r.Prefix == prefix {
			return r
		}
	}
	t.Fatalf("no route with prefix %s", prefix)
	return Route{}
}

func TestRoute_RewritePath(t *testing.T) {
	routes := DefaultRoutes(testURLs("http://backend:9000"))

	cases := []struct {
		prefix string
		in     string
		want   string
	}{
		{"/admin/projects", "/admin/projects/abc", "/projects/abc"},
		{"/admin/education", "/admin/education", "/education/admin"},
		{"/admin/contact", "/admin/contact/9", "/contact/admin/9"},
		{"/admin/portfolio", "/admin/portfolio/status/42", "/admin/portfolio/status/42"},
		{"/education", "/education/3", "/education/3"},
	}
	for _, tc := range cases {
		if got := routeByPrefix(t, routes, tc.prefix).RewritePath(tc.in); got != tc.want {
			t.Fatalf("%s: rewritten to %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDefaultRoutes_EveryAdminRouteIsProtected(t *testing.T) {
	routes := DefaultRoutes(testURLs("http://backend:9000"))
	if err := Validate(routes); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}

	public := make(map[string]bool)
	for _, r := range routes {
		if !strings.HasPrefix(r.Prefix, "/admin/") {
			public[r.Prefix] = true
		}
	}
	for _, r := range routes {
		if !strings.HasPrefix(r.Prefix, "/admin/") {
			continue
		}
		if !r.Protected {
			t.Fatalf("%s is not protected", r.Prefix)
		}
		if !public[strings.TrimPrefix(r.Prefix, "/admin")] {
			t.Fatalf("%s has no public counterpart", r.Prefix)
		}
	}
}

func TestMatches_SegmentBoundary(t *testing.T) {
	cases := []struct {
		prefix, path string
		want         bool
	}{
		{"/auth", "/auth", true},
		{"/auth", "/auth/login", true},
		{"/auth", "/authors", false},
		{"/intro", "/introduction", false},
		{"/admin/intro", "/admin", false},
		{"/intro", "/", false},
	}
	for _, tc := range cases {
		if got := matches(tc.prefix, tc.path); got != tc.want {
			t.Fatalf("matches(%s, %s) = %v, want %v", tc.prefix, tc.path, got, tc.want)
		}
	}
}

func TestRoute_OpenPaths(t *testing.T) {
	r := routeByPrefix(t, DefaultRoutes(testURLs("http://backend:9000")), "/auth")
	if r.IsOpen("/auth/me") || r.IsOpen("/auth/users") {
		t.Fatalf("account routes must stay gated")
	}
	if !r.IsOpen("/auth/login") || !r.IsOpen("/auth/signup") {
		t.Fatalf("login and signup must be open")
	}
}

func TestValidate_RejectsUnsafeTables(t *testing.T) {
	cases := map[string][]Route{
		"unprotected admin": {{Prefix: "/admin/intro", Target: "http://x", Rewrite: "/intro"}},
		"bad target":        {{Prefix: "/intro", Target: "not a url", Rewrite: "/intro"}},
		"duplicate": {
			{Prefix: "/intro", Target: "http://x", Rewrite: "/intro"},
			{Prefix: "/intro", Target: "http://y", Rewrite: "/intro"},
		},
		"trailing slash": {{Prefix: "/intro/", Target: "http://x", Rewrite: "/intro"}},
		"open outside":   {{Prefix: "/auth", Target: "http://x", Rewrite: "/auth", Protected: true, Open: []string{"/login"}}},
	}

	for name, routes := range cases {
		if err := Validate(routes); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
