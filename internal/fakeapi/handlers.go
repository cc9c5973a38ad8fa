package fakeapi

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type courseInput struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Instructor string `json:"instructor"`
	Capacity   int    `json:"capacity"`
}

type gradeUpload struct {
	Entries []struct {
		StudentID string `json:"studentId"`
		Grade     string `json:"grade"`
	} `json:"entries"`
}

func courseID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "courseID"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "invalid course id")
		return 0, false
	}
	return id, true
}

func decodeCourse(w http.ResponseWriter, r *http.Request) (courseInput, bool) {
	var in courseInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid course payload")
		return in, false
	}
	in.Code, in.Name = strings.TrimSpace(in.Code), strings.TrimSpace(in.Name)
	if in.Code == "" || in.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "code and name are required")
		return in, false
	}
	return in, true
}

func (s *Server) handleListCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Course) int { return a.ID - b.ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCourse(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c := s.addCourse(Course{Code: in.Code, Name: in.Name, Instructor: in.Instructor, Capacity: in.Capacity})
	out := *c
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	in, ok := decodeCourse(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	c, found := s.courses[id]
	if found {
		c.Code, c.Name, c.Instructor, c.Capacity = in.Code, in.Name, in.Instructor, in.Capacity
	}
	var out Course
	if found {
		out = *c
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	_, found := s.courses[id]
	delete(s.courses, id)
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	u := currentUser(r)

	s.mu.Lock()
	if _, found := s.courses[id]; !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	e := enrollment{ID: len(s.enrollments) + 1, StudentID: u.ID, CourseID: id}
	s.enrollments = append(s.enrollments, e)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"enrolled": true, "id": e.ID})
}

func (s *Server) handleMyGrades(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	s.mu.Lock()
	out := make([]Grade, 0)
	for _, g := range s.grades {
		if g.StudentID == u.ID {
			out = append(out, *g)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUploadGrades(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	var in gradeUpload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid grade payload")
		return
	}
	uploader := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.courses[id]; !found {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}

	type parsed struct {
		studentID int
		grade     string
	}
	entries := make([]parsed, 0, len(in.Entries))
	for _, e := range in.Entries {
		studentID, err := strconv.Atoi(strings.TrimSpace(e.StudentID))
		grade := strings.TrimSpace(e.Grade)
		if err != nil || grade == "" {
			writeError(w, http.StatusUnprocessableEntity, "invalid grade entry for student "+e.StudentID)
			return
		}
		entries = append(entries, parsed{studentID: studentID, grade: grade})
	}

	now := s.now()
	for _, e := range entries {
		idx := slices.IndexFunc(s.grades, func(g *Grade) bool {
			return g.StudentID == e.studentID && g.CourseID == id
		})
		if idx >= 0 {
			s.grades[idx].GradeValue = e.grade
			s.grades[idx].UploadedBy = uploader.ID
			s.grades[idx].UploadedAt = now
			continue
		}
		s.nextGradeID++
		s.grades = append(s.grades, &Grade{
			ID:         s.nextGradeID,
			StudentID:  e.studentID,
			CourseID:   id,
			GradeValue: e.grade,
			UploadedBy: uploader.ID,
			UploadedAt: now,
		})
	}

	writeJSON(w, http.StatusOK, map[string]int{"created": len(entries)})
}
