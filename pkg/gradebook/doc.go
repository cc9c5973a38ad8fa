// Package gradebook is the typed client for the grade service's business
// endpoints: course catalogue and management, student enrollment, the
// student's own grades and faculty grade upload.
//
// A Service needs only something that can perform an authenticated call,
// normally a *session.Manager, so token handling stays out of this package:
//
//	svc := gradebook.New(manager)
//	courses, err := svc.StudentCourses(ctx)
//	if errors.Is(err, gradebook.ErrUnauthorized) {
//	    // session expired and could not be renewed; sign in again
//	}
//
// Grade sheets in the form used by the upload screen, one "studentId,grade"
// pair per line, are read with ParseGradeSheet.
package gradebook
