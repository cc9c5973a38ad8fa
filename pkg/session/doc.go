// Package session owns the client's authentication state.
//
// A Manager composes the token store, the renewal coordinator and the
// authenticated API client into one object with a single notion of "who is
// signed in". Its role comes only from the server: the login response, or a
// renewal response that declares one.
//
// # Lifecycle
//
//	unauthenticated --Login ok--------------> authenticated(role)
//	authenticated   --Logout----------------> unauthenticated
//	authenticated   --401 + renewal fails---> unauthenticated
//	unauthenticated --Probe + renewal ok----> authenticated(role)
//	authenticated   --renewal with role-----> authenticated(new role)
//
// A process start is the equivalent of a page reload: call Probe once to
// recover the session from the durable token store and renewal cookie.
//
// # Usage
//
//	m, err := session.New("https://grades.example.edu",
//	    session.WithStore(tokenstore.NewFileStore(path)),
//	)
//	if err != nil { ... }
//	m.Probe(ctx)
//	if !m.IsAuthenticated() {
//	    ok := m.Login(ctx, user, pass)
//	}
//	if err := m.Authorize("/faculty/upload"); err != nil { ... }
//	resp, err := m.Do(ctx, "/api/faculty/courses/7/grades", ...)
//
// Every exported method is safe for concurrent use.
package session
