package rolegate

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is a coarse capability classifier declared by the server.
// The zero value behaves like Unauthenticated.
type Role string

const (
	Unauthenticated  Role = "unauthenticated"
	Student          Role = "student"
	Faculty          Role = "faculty"
	CourseAuditAdmin Role = "course_audit_admin"
)

var knownRoles = []Role{Unauthenticated, Student, Faculty, CourseAuditAdmin}

// Parse converts a server-declared role into a Role.
func Parse(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return Unauthenticated, ErrUnknownRole
	}
	return r, nil
}

// Roles returns all known roles, Unauthenticated first.
func Roles() []Role {
	return slices.Clone(knownRoles)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return slices.Contains(knownRoles, r)
}

// Authenticated reports whether r represents a signed-in user.
func (r Role) Authenticated() bool {
	return r != "" && r != Unauthenticated && r.Valid()
}

func (r Role) String() string {
	if r == "" {
		return string(Unauthenticated)
	}
	return string(r)
}

// Label returns a human readable name, e.g. "Course Audit Admin".
func (r Role) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(r.String(), "_", " "))
}

// IsAllowed reports whether role is in the required allow-list.
// An empty allow-list denies everything; Unauthenticated is only allowed
// when listed explicitly.
func IsAllowed(role Role, required ...Role) bool {
	if role == "" {
		role = Unauthenticated
	}
	return slices.Contains(required, role)
}
