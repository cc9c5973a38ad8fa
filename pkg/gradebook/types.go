package gradebook

import (
	"strings"
	"time"
)

// Course is a catalogue entry.
type Course struct {
	ID         int    `json:"id" yaml:"id"`
	Code       string `json:"code" yaml:"code"`
	Name       string `json:"name" yaml:"name"`
	Instructor string `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Capacity   int    `json:"capacity" yaml:"capacity"`
}

// CourseInput is the payload for creating or updating a course.
type CourseInput struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Instructor string `json:"instructor,omitempty"`
	Capacity   int    `json:"capacity"`
}

// Validate checks the fields the server requires.
func (in CourseInput) Validate() error {
	var errs FieldErrors
	if strings.TrimSpace(in.Code) == "" {
		errs.add("code", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		errs.add("name", "is required")
	}
	if in.Capacity < 0 {
		errs.add("capacity", "must not be negative")
	}
	return errs.orNil()
}

// Grade is a recorded grade of the signed-in student.
type Grade struct {
	ID         int       `json:"id" yaml:"id"`
	StudentID  int       `json:"student_id" yaml:"student_id"`
	CourseID   int       `json:"course_id" yaml:"course_id"`
	Value      string    `json:"grade_value" yaml:"grade"`
	Semester   string    `json:"semester,omitempty" yaml:"semester,omitempty"`
	UploadedBy int       `json:"uploaded_by,omitempty" yaml:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at" yaml:"uploaded_at"`
}

// GradeEntry is one line of a grade upload.
type GradeEntry struct {
	StudentID string `json:"studentId" yaml:"student_id"`
	Grade     string `json:"grade" yaml:"grade"`
}

// Enrollment is the result of enrolling in a course.
type Enrollment struct {
	Enrolled bool `json:"enrolled" yaml:"enrolled"`
	ID       int  `json:"id" yaml:"id"`
}
