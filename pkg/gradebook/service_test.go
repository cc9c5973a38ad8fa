package gradebook_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gradeclient/internal/fakeapi"
	"github.com/dmitrymomot/gradeclient/pkg/apiclient"
	"github.com/dmitrymomot/gradeclient/pkg/gradebook"
	"github.com/dmitrymomot/gradeclient/pkg/session"
)

func signedIn(t *testing.T, srv *httptest.Server, username string) *gradebook.Service {
	t.Helper()

	m, err := session.New(srv.URL)
	require.NoError(t, err)
	require.True(t, m.Login(context.Background(), username, fakeapi.DefaultPassword))
	return gradebook.New(m)
}

func newBackend(t *testing.T) (*fakeapi.Server, *httptest.Server) {
	t.Helper()

	api := fakeapi.New()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv
}

func TestStudentFlow(t *testing.T) {
	t.Parallel()

	api, srv := newBackend(t)
	student := signedIn(t, srv, "student1")
	faculty := signedIn(t, srv, "prof1")
	ctx := context.Background()

	courses, err := student.StudentCourses(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, courses)
	assert.Equal(t, "CS101", courses[0].Code)

	enrollment, err := student.Enroll(ctx, courses[0].ID)
	require.NoError(t, err)
	assert.True(t, enrollment.Enrolled)

	grades, err := student.MyGrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, grades)

	created, err := faculty.UploadGrades(ctx, courses[0].ID, []gradebook.GradeEntry{
		{StudentID: strconv.Itoa(api.UserID("student1")), Grade: "B+"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	grades, err = student.MyGrades(ctx)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "B+", grades[0].Value)
	assert.Equal(t, courses[0].ID, grades[0].CourseID)
}

func TestCourseManagement(t *testing.T) {
	t.Parallel()

	_, srv := newBackend(t)
	admin := signedIn(t, srv, "auditor1")
	ctx := context.Background()

	course, err := admin.CreateCourse(ctx, gradebook.CourseInput{Code: "PHY110", Name: "Physics", Capacity: 40})
	require.NoError(t, err)
	assert.NotZero(t, course.ID)
	assert.Equal(t, "PHY110", course.Code)

	updated, err := admin.UpdateCourse(ctx, course.ID, gradebook.CourseInput{Code: "PHY110", Name: "Physics I", Capacity: 45})
	require.NoError(t, err)
	assert.Equal(t, "Physics I", updated.Name)
	assert.Equal(t, 45, updated.Capacity)

	all, err := admin.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, admin.DeleteCourse(ctx, course.ID))

	err = admin.DeleteCourse(ctx, course.ID)
	require.ErrorIs(t, err, gradebook.ErrNotFound)
	var serr *gradebook.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
	assert.Equal(t, "Course not found", serr.Detail)
}

func TestForbidden(t *testing.T) {
	t.Parallel()

	_, srv := newBackend(t)
	student := signedIn(t, srv, "student1")

	_, err := student.CreateCourse(context.Background(), gradebook.CourseInput{Code: "X1", Name: "X"})
	assert.ErrorIs(t, err, gradebook.ErrForbidden)

	_, err = student.UploadGrades(context.Background(), 1, []gradebook.GradeEntry{{StudentID: "1", Grade: "A"}})
	assert.ErrorIs(t, err, gradebook.ErrForbidden)
}

func TestUnauthorizedAfterSessionEnds(t *testing.T) {
	t.Parallel()

	api, srv := newBackend(t)
	student := signedIn(t, srv, "student1")

	api.ExpireTokens()
	api.RevokeRefresh()

	_, err := student.MyGrades(context.Background())
	require.ErrorIs(t, err, gradebook.ErrUnauthorized)
	var serr *gradebook.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
}

func TestValidationHappensBeforeRequest(t *testing.T) {
	t.Parallel()

	api, srv := newBackend(t)
	admin := signedIn(t, srv, "auditor1")
	before := api.Requests()
	ctx := context.Background()

	_, err := admin.CreateCourse(ctx, gradebook.CourseInput{Capacity: -1})
	require.ErrorIs(t, err, gradebook.ErrInvalidInput)
	var fields gradebook.FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.True(t, fields.Has("code"))
	assert.True(t, fields.Has("name"))
	assert.True(t, fields.Has("capacity"))

	_, err = admin.UpdateCourse(ctx, 0, gradebook.CourseInput{Code: "A", Name: "B"})
	assert.ErrorIs(t, err, gradebook.ErrInvalidInput)

	assert.ErrorIs(t, admin.DeleteCourse(ctx, -3), gradebook.ErrInvalidInput)

	_, err = admin.UploadGrades(ctx, 1, nil)
	assert.ErrorIs(t, err, gradebook.ErrInvalidInput)

	_, err = admin.UploadGrades(ctx, 1, []gradebook.GradeEntry{{StudentID: "1"}})
	assert.ErrorIs(t, err, gradebook.ErrInvalidInput)

	_, err = admin.Enroll(ctx, 0)
	assert.ErrorIs(t, err, gradebook.ErrInvalidInput)

	assert.Equal(t, before, api.Requests())
}

type failingDoer struct{ err error }

func (f failingDoer) Do(context.Context, string, ...apiclient.RequestOption) (*http.Response, error) {
	return nil, f.err
}

func TestTransportErrorsPassThrough(t *testing.T) {
	t.Parallel()

	cause := errors.Join(apiclient.ErrTransport, errors.New("connection refused"))
	svc := gradebook.New(failingDoer{err: cause})

	_, err := svc.ListCourses(context.Background())
	assert.ErrorIs(t, err, apiclient.ErrTransport)
}

func TestListCourses_LargeCatalogue(t *testing.T) {
	t.Parallel()

	courses := make([]gradebook.Course, 800)
	for i := range courses {
		courses[i] = gradebook.Course{
			ID:         i + 1,
			Code:       "C" + strconv.Itoa(i+1),
			Name:       "Introduction to Topic " + strconv.Itoa(i+1),
			Instructor: "Instructor " + strconv.Itoa(i+1),
			Capacity:   30,
		}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(courses)
	}))
	t.Cleanup(srv.Close)

	m, err := session.New(srv.URL)
	require.NoError(t, err)

	got, err := gradebook.New(m).ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 800)
	assert.Equal(t, courses[799], got[799])
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, gradebook.ErrUnauthorized},
		{http.StatusForbidden, gradebook.ErrForbidden},
		{http.StatusNotFound, gradebook.ErrNotFound},
		{http.StatusUnprocessableEntity, gradebook.ErrInvalidInput},
		{http.StatusBadRequest, gradebook.ErrInvalidInput},
		{http.StatusInternalServerError, gradebook.ErrUnexpectedStatus},
	}
	for _, tt := range tests {
		err := &gradebook.StatusError{StatusCode: tt.code}
		assert.ErrorIs(t, err, tt.want, tt.code)
	}

	err := &gradebook.StatusError{StatusCode: http.StatusForbidden, Detail: "Forbidden"}
	assert.Equal(t, "gradebook: 403 Forbidden: Forbidden", err.Error())
}

func TestNew_PanicsWithoutDoer(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { gradebook.New(nil) })
}
