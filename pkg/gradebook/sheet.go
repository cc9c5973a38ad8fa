package gradebook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseGradeSheet reads "studentId,grade" lines. Blank lines are skipped and
// a leading header row naming the columns is ignored.
func ParseGradeSheet(r io.Reader) ([]GradeEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var entries []GradeEntry
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGradeSheet, err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected studentId,grade", ErrInvalidGradeSheet, line)
		}

		id, grade := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if len(entries) == 0 && isHeader(id, grade) {
			continue
		}
		if id == "" || grade == "" {
			return nil, fmt.Errorf("%w: line %d: student id and grade are required", ErrInvalidGradeSheet, line)
		}
		entries = append(entries, GradeEntry{StudentID: id, Grade: grade})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidGradeSheet)
	}
	return entries, nil
}

func isHeader(id, grade string) bool {
	id = strings.ToLower(strings.ReplaceAll(id, "_", ""))
	return (id == "studentid" || id == "student") && strings.EqualFold(grade, "grade")
}
