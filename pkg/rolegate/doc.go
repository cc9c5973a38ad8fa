// Package rolegate decides what the current user may see and open.
//
// Every authorization decision on the client side goes through a single
// allow-list predicate, IsAllowed. Navigation rendering and page guards are
// both built on top of it through Gate, so a link is visible exactly when the
// page behind it would let the user in.
//
// Basic usage:
//
//	if rolegate.IsAllowed(role, rolegate.Faculty) {
//	    // show grade upload
//	}
//
//	gate := rolegate.New(rolegate.DefaultRoutes()...)
//	for _, r := range gate.Visible(role) {
//	    fmt.Println(r.Label, r.Path)
//	}
//
//	if err := gate.Authorize(role, "/faculty/courses"); err != nil {
//	    var denied *rolegate.NotAuthorizedError
//	    if errors.As(err, &denied) {
//	        fmt.Println(denied.Notice())
//	    }
//	}
//
// Roles come from the server's login and refresh responses. Nothing in this
// package inspects access tokens.
package rolegate
