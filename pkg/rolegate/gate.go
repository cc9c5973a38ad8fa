package rolegate

import (
	"slices"
	"strings"
)

// Route is a guarded destination: a page, a command, a navigation entry.
type Route struct {
	Path  string
	Label string
	Roles []Role
}

// Allows reports whether role may open the route.
func (r Route) Allows(role Role) bool {
	return IsAllowed(role, r.Roles...)
}

// Gate holds the route table consulted by navigation and page guards.
// It is immutable after New and safe for concurrent use.
type Gate struct {
	routes []Route
	byPath map[string]Route
}

// New builds a gate from routes. Later duplicates of a path replace earlier ones
// in lookups but keep the original navigation position.
func New(routes ...Route) *Gate {
	g := &Gate{
		routes: make([]Route, 0, len(routes)),
		byPath: make(map[string]Route, len(routes)),
	}
	for _, r := range routes {
		r.Path = normalizePath(r.Path)
		r.Roles = slices.Clone(r.Roles)
		if _, exists := g.byPath[r.Path]; !exists {
			g.routes = append(g.routes, r)
		} else {
			for i := range g.routes {
				if g.routes[i].Path == r.Path {
					g.routes[i] = r
				}
			}
		}
		g.byPath[r.Path] = r
	}
	return g
}

// DefaultRoutes returns the grade portal's navigation table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/courses", Label: "Courses", Roles: []Role{Student}},
		{Path: "/grades", Label: "Grades", Roles: []Role{Student}},
		{Path: "/faculty/upload", Label: "Grade Upload", Roles: []Role{Faculty}},
		{Path: "/faculty/courses", Label: "Course Management", Roles: []Role{CourseAuditAdmin}},
	}
}

// Visible returns the routes role may open, in registration order.
func (g *Gate) Visible(role Role) []Route {
	out := make([]Route, 0, len(g.routes))
	for _, r := range g.routes {
		if r.Allows(role) {
			out = append(out, r)
		}
	}
	return out
}

// Route looks up a registered route.
func (g *Gate) Route(path string) (Route, bool) {
	r, ok := g.byPath[normalizePath(path)]
	return r, ok
}

// Authorize is the page guard. It returns nil when role may open path,
// a *NotAuthorizedError on role mismatch and ErrUnknownRoute otherwise.
func (g *Gate) Authorize(role Role, path string) error {
	r, ok := g.Route(path)
	if !ok {
		return ErrUnknownRoute
	}
	if !r.Allows(role) {
		return &NotAuthorizedError{Route: r, Role: role}
	}
	return nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
