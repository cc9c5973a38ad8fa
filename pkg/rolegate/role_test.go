package rolegate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gradeclient/pkg/rolegate"
)

func TestIsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		role     rolegate.Role
		required []rolegate.Role
		want     bool
	}{
		{"student on student route", rolegate.Student, []rolegate.Role{rolegate.Student}, true},
		{"student on faculty route", rolegate.Student, []rolegate.Role{rolegate.Faculty}, false},
		{"any of several", rolegate.Faculty, []rolegate.Role{rolegate.Student, rolegate.Faculty}, true},
		{"empty allow-list denies", rolegate.CourseAuditAdmin, nil, false},
		{"unauthenticated denied by default", rolegate.Unauthenticated, []rolegate.Role{rolegate.Student}, false},
		{"unauthenticated allowed when listed", rolegate.Unauthenticated, []rolegate.Role{rolegate.Unauthenticated}, true},
		{"zero role is unauthenticated", "", []rolegate.Role{rolegate.Unauthenticated}, true},
		{"unknown role never matches", rolegate.Role("root"), []rolegate.Role{rolegate.Student}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, rolegate.IsAllowed(tt.role, tt.required...))
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	r, err := rolegate.Parse("course_audit_admin")
	require.NoError(t, err)
	assert.Equal(t, rolegate.CourseAuditAdmin, r)

	r, err = rolegate.Parse(" faculty ")
	require.NoError(t, err)
	assert.Equal(t, rolegate.Faculty, r)

	r, err = rolegate.Parse("admin")
	assert.ErrorIs(t, err, rolegate.ErrUnknownRole)
	assert.Equal(t, rolegate.Unauthenticated, r)
}

func TestRole_Authenticated(t *testing.T) {
	t.Parallel()

	assert.False(t, rolegate.Unauthenticated.Authenticated())
	assert.False(t, rolegate.Role("").Authenticated())
	assert.False(t, rolegate.Role("nobody").Authenticated())
	assert.True(t, rolegate.Student.Authenticated())
	assert.True(t, rolegate.CourseAuditAdmin.Authenticated())
}

func TestRole_Label(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Course Audit Admin", rolegate.CourseAuditAdmin.Label())
	assert.Equal(t, "Student", rolegate.Student.Label())
	assert.Equal(t, "Unauthenticated", rolegate.Role("").Label())
}
