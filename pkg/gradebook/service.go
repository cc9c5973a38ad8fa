package gradebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/gradeclient/pkg/apiclient"
	"github.com/dmitrymomot/gradeclient/pkg/logger"
)

const maxErrorBody = 4 << 10

// Doer performs an authenticated API call. *session.Manager and
// *apiclient.Client satisfy it.
type Doer interface {
	Do(ctx context.Context, path string, opts ...apiclient.RequestOption) (*http.Response, error)
}

// Service wraps the grade service endpoints.
type Service struct {
	api    Doer
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for rejected calls. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service. It panics if api is nil.
func New(api Doer, opts ...Option) *Service {
	if api == nil {
		panic("gradebook: api is required")
	}
	s := &Service{api: api, logger: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCourses returns the full catalogue.
func (s *Service) ListCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := s.call(ctx, "/api/courses/", http.StatusOK, &out)
	return out, err
}

// StudentCourses returns the courses open to the signed-in student.
func (s *Service) StudentCourses(ctx context.Context) ([]Course, error) {
	var out []Course
	err := s.call(ctx, "/api/student/courses", http.StatusOK, &out)
	return out, err
}

// Enroll enrolls the signed-in student in a course.
func (s *Service) Enroll(ctx context.Context, courseID int) (Enrollment, error) {
	var out Enrollment
	if courseID <= 0 {
		return out, invalidCourseID(courseID)
	}
	err := s.call(ctx, "/api/student/courses/"+strconv.Itoa(courseID)+"/enroll", http.StatusOK, &out,
		apiclient.WithMethod(http.MethodPost))
	return out, err
}

// MyGrades returns the signed-in student's grades.
func (s *Service) MyGrades(ctx context.Context) ([]Grade, error) {
	var out []Grade
	err := s.call(ctx, "/api/student/me/grades", http.StatusOK, &out)
	return out, err
}

// UploadGrades records grades for a course and returns how many were stored.
func (s *Service) UploadGrades(ctx context.Context, courseID int, entries []GradeEntry) (int, error) {
	if courseID <= 0 {
		return 0, invalidCourseID(courseID)
	}
	var errs FieldErrors
	if len(entries) == 0 {
		errs.add("entries", "at least one grade is required")
	}
	for i, e := range entries {
		if e.StudentID == "" || e.Grade == "" {
			errs.add(fmt.Sprintf("entries[%d]", i), "student id and grade are required")
		}
	}
	if err := errs.orNil(); err != nil {
		return 0, err
	}

	payload := struct {
		Entries []GradeEntry `json:"entries"`
	}{Entries: entries}

	var out struct {
		Created int `json:"created"`
	}
	err := s.call(ctx, "/api/faculty/courses/"+strconv.Itoa(courseID)+"/grades", http.StatusOK, &out,
		apiclient.WithMethod(http.MethodPost), apiclient.WithJSON(payload))
	return out.Created, err
}

// CreateCourse adds a course to the catalogue.
func (s *Service) CreateCourse(ctx context.Context, in CourseInput) (Course, error) {
	var out Course
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := s.call(ctx, "/api/courses/", http.StatusCreated, &out,
		apiclient.WithMethod(http.MethodPost), apiclient.WithJSON(in))
	return out, err
}

// UpdateCourse replaces a course's details.
func (s *Service) UpdateCourse(ctx context.Context, id int, in CourseInput) (Course, error) {
	var out Course
	if id <= 0 {
		return out, invalidCourseID(id)
	}
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := s.call(ctx, "/api/courses/"+strconv.Itoa(id), http.StatusOK, &out,
		apiclient.WithMethod(http.MethodPut), apiclient.WithJSON(in))
	return out, err
}

// DeleteCourse removes a course.
func (s *Service) DeleteCourse(ctx context.Context, id int) error {
	if id <= 0 {
		return invalidCourseID(id)
	}
	return s.call(ctx, "/api/courses/"+strconv.Itoa(id), http.StatusOK, nil,
		apiclient.WithMethod(http.MethodDelete))
}

func (s *Service) call(ctx context.Context, path string, want int, out any, opts ...apiclient.RequestOption) error {
	resp, err := s.api.Do(ctx, path, opts...)
	if err != nil {
		return err
	}

	if resp.StatusCode != want {
		defer func() { _ = resp.Body.Close() }()
		serr := statusError(resp)
		s.logger.DebugContext(ctx, "grade service rejected request",
			logger.Component("gradebook"), logger.Path(path), logger.Status(resp.StatusCode), logger.Error(serr))
		return serr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil
	}
	return apiclient.DecodeJSON(resp, out)
}

func statusError(resp *http.Response) *StatusError {
	serr := &StatusError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return serr
	}
	var payload struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if detail, ok := payload.Detail.(string); ok {
			serr.Detail = detail
		}
	}
	return serr
}

func invalidCourseID(id int) error {
	return FieldErrors{{Field: "course_id", Message: fmt.Sprintf("invalid course id %d", id)}}
}
