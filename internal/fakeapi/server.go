package fakeapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "secret"

const refreshCookieName = "refresh_token"

type user struct {
	ID          int
	Username    string
	Role        rolegate.Role
	hash        []byte
	failed      int
	lockedUntil time.Time
}

type refreshEntry struct {
	userID  int
	expires time.Time
	revoked bool
}

// Course is a course record.
type Course struct {
	ID         int    `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Instructor string `json:"instructor,omitempty"`
	Capacity   int    `json:"capacity"`
}

// Grade is a grade record.
type Grade struct {
	ID         int       `json:"id"`
	StudentID  int       `json:"student_id"`
	CourseID   int       `json:"course_id"`
	GradeValue string    `json:"grade_value"`
	Semester   string    `json:"semester,omitempty"`
	UploadedBy int       `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type enrollment struct {
	ID        int
	StudentID int
	CourseID  int
}

// Server is the fake grade service. It implements http.Handler.
type Server struct {
	router chi.Router

	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rotate      bool
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time

	mu               sync.Mutex
	generation       int
	refreshDelay     time.Duration
	refreshOmitsRole bool
	users            map[string]*user
	usersByID        map[int]*user
	refreshTokens    map[string]*refreshEntry
	courses          map[int]*Course
	nextCourseID     int
	enrollments      []enrollment
	grades           []*Grade
	nextGradeID      int
	lastAuth         string

	requests     atomic.Int64
	refreshCalls atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HMAC key for access tokens.
func WithSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithAccessTTL sets the lifetime of access tokens. Default: 15m.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.accessTTL = d
		}
	}
}

// WithRotation makes renewal cookies single-use: every successful refresh
// revokes the presented cookie and issues a new one.
func WithRotation() Option {
	return func(s *Server) {
		s.rotate = true
	}
}

// WithLockout locks an account for d after attempts consecutive failures.
func WithLockout(attempts int, d time.Duration) Option {
	return func(s *Server) {
		s.maxAttempts = attempts
		s.lockout = d
	}
}

// WithUser adds an account.
func WithUser(username, password string, role rolegate.Role) Option {
	return func(s *Server) {
		s.addUser(username, password, role)
	}
}

// New creates a fake service with seeded accounts and courses.
func New(opts ...Option) *Server {
	s := &Server{
		secret:        []byte("fakeapi-development-secret"),
		accessTTL:     15 * time.Minute,
		refreshTTL:    7 * 24 * time.Hour,
		maxAttempts:   5,
		lockout:       15 * time.Minute,
		now:           time.Now,
		users:         make(map[string]*user),
		usersByID:     make(map[int]*user),
		refreshTokens: make(map[string]*refreshEntry),
		courses:       make(map[int]*Course),
	}

	s.addUser("student1", DefaultPassword, rolegate.Student)
	s.addUser("prof1", DefaultPassword, rolegate.Faculty)
	s.addUser("auditor1", DefaultPassword, rolegate.CourseAuditAdmin)
	s.addCourse(Course{Code: "CS101", Name: "Introduction to Programming", Instructor: "prof1", Capacity: 120})
	s.addCourse(Course{Code: "MATH201", Name: "Linear Algebra", Instructor: "prof1", Capacity: 60})

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.routes()
	return s
}

func (s *Server) addUser(username, password string, role rolegate.Role) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic("fakeapi: hash password: " + err.Error())
	}
	u := &user{ID: len(s.usersByID) + 1, Username: username, Role: role, hash: hash}
	s.users[username] = u
	s.usersByID[u.ID] = u
}

func (s *Server) addCourse(c Course) *Course {
	s.nextCourseID++
	c.ID = s.nextCourseID
	s.courses[c.ID] = &c
	return &c
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/api/courses/", s.handleListCourses)
		r.With(s.requireRole(rolegate.CourseAuditAdmin)).Post("/api/courses/", s.handleCreateCourse)
		r.With(s.requireRole(rolegate.CourseAuditAdmin)).Put("/api/courses/{courseID}", s.handleUpdateCourse)
		r.With(s.requireRole(rolegate.CourseAuditAdmin)).Delete("/api/courses/{courseID}", s.handleDeleteCourse)

		r.Route("/api/student", func(r chi.Router) {
			r.Use(s.requireRole(rolegate.Student))
			r.Get("/courses", s.handleListCourses)
			r.Post("/courses/{courseID}/enroll", s.handleEnroll)
			r.Get("/me/grades", s.handleMyGrades)
		})

		r.With(s.requireRole(rolegate.Faculty)).Post("/api/faculty/courses/{courseID}/grades", s.handleUploadGrades)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if r.URL.Path != "/api/auth/refresh" {
			s.mu.Lock()
			s.lastAuth = r.Header.Get("Authorization")
			s.mu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

// ExpireTokens invalidates every access token issued so far.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// RevokeRefresh revokes every renewal cookie issued so far.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.refreshTokens {
		e.revoked = true
	}
}

// SetRefreshDelay slows every renewal down by d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// SetRefreshOmitsRole makes renewal responses leave out the role.
func (s *Server) SetRefreshOmitsRole(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshOmitsRole = omit
}

// SetRole changes an account's role; tokens issued afterwards carry it.
func (s *Server) SetRole(username string, role rolegate.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		u.Role = role
	}
}

// RefreshCalls reports how many renewal requests were received.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// Requests reports how many requests were received in total.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// LastAuthorization returns the Authorization header of the latest request
// other than a renewal.
func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// Grades returns a copy of all grade records.
func (s *Server) Grades() []Grade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Grade, 0, len(s.grades))
	for _, g := range s.grades {
		out = append(out, *g)
	}
	return out
}

// UserID returns the id of an account, or 0 when it does not exist.
func (s *Server) UserID(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u.ID
	}
	return 0
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
