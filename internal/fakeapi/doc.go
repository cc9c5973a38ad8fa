// Package fakeapi is an in-memory grade service used by tests and by the
// gradeapi-dev binary.
//
// It speaks the same HTTP contract as the production service: form login
// that returns a bearer token and sets an HttpOnly refresh_token cookie,
// cookie-based renewal, logout, and the course, enrollment and grade
// endpoints guarded by role. Test controls expire every access token, revoke
// renewal cookies, slow down renewals and count requests so client behaviour
// can be asserted from the outside.
//
// Seeded accounts (password "secret"): student1 (student), prof1 (faculty),
// auditor1 (course_audit_admin).
package fakeapi
