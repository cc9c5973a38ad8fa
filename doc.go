// Package gradeclient is a client for the grade-management REST service.
//
// The module is split by concern:
//
//   - pkg/tokenstore keeps the short-lived access token (memory, file or Redis).
//   - pkg/jar carries the refresh cookie between runs.
//   - pkg/refresh renews the access token, one request at a time.
//   - pkg/apiclient attaches the token and retries once after renewal on 401.
//   - pkg/session owns the signed-in role and is what callers use.
//   - pkg/rolegate decides which role may see which route.
//   - pkg/gradebook wraps the course and grade endpoints.
//
// Basic usage:
//
//	mgr, err := session.New("http://localhost:8000",
//		session.WithStore(tokenstore.NewFileStore(path)),
//	)
//	if err != nil {
//		return err
//	}
//	mgr.Probe(ctx)
//	if !mgr.Login(ctx, "student1", "secret") {
//		return errors.New("sign in failed")
//	}
//	courses, err := gradebook.New(mgr).StudentCourses(ctx)
//
// The gradectl command wraps all of this for the terminal, and gradeapi-dev
// serves an in-memory copy of the service for local work.
package gradeclient
