package rolegate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownRole is returned when a string is not one of the known roles.
	ErrUnknownRole = errors.New("rolegate.unknown_role")

	// ErrNotAuthorized is matched by every NotAuthorizedError.
	ErrNotAuthorized = errors.New("rolegate.not_authorized")

	// ErrUnknownRoute is returned by Gate.Authorize for paths that were never registered.
	ErrUnknownRoute = errors.New("rolegate.unknown_route")
)

// NotAuthorizedError describes a role mismatch on a guarded route.
type NotAuthorizedError struct {
	Route Route
	Role  Role
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("rolegate: role %q is not allowed to open %s", e.Role, e.Route.Path)
}

// Is lets errors.Is(err, ErrNotAuthorized) match.
func (e *NotAuthorizedError) Is(target error) bool {
	return target == ErrNotAuthorized
}

// Notice returns the message shown to the user after a guard redirects them away.
func (e *NotAuthorizedError) Notice() string {
	labels := make([]string, 0, len(e.Route.Roles))
	for _, r := range e.Route.Roles {
		labels = append(labels, r.Label())
	}
	if len(labels) == 0 {
		return fmt.Sprintf("Access denied: %s is not available.", e.Route.Label)
	}
	return fmt.Sprintf("Access denied: only %s can open %s.", strings.Join(labels, " or "), e.Route.Label)
}

// IsNotAuthorized reports whether err is a role mismatch.
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized)
}
