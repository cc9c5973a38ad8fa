package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/gradeclient/internal/fakeapi"
)

type cliHarness struct {
	api       *fakeapi.Server
	baseArgs  []string
	tokenFile string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	api := fakeapi.New()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	return &cliHarness{
		api:       api,
		tokenFile: tokenFile,
		baseArgs: []string{
			"gradectl",
			"--api-url", srv.URL,
			"--token-store", "file",
			"--token-file", tokenFile,
			"--cookie-file", filepath.Join(dir, "cookies.json"),
			"--output", "text",
		},
	}
}

// run executes one invocation, the command line equivalent of a page load.
func (h *cliHarness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out, &errOut)
	err := app.RunContext(context.Background(), append(append([]string{}, h.baseArgs...), args...))
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr), "expected an exit error, got %v", err)
	return exitErr.ExitCode()
}

func TestCLI_StudentSession(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	out, err := h.run(t, "", "login", "-u", "student1", "-p", fakeapi.DefaultPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Student.")

	// A new invocation recovers the session from disk.
	out, err = h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Student.")
	assert.Equal(t, int64(1), h.api.RefreshCalls())

	out, err = h.run(t, "", "courses")
	require.NoError(t, err)
	assert.Contains(t, out, "CS101")
	assert.Contains(t, out, "Linear Algebra")

	out, err = h.run(t, "", "enroll", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Enrolled in course 1.")

	out, err = h.run(t, "", "grades")
	require.NoError(t, err)
	assert.Contains(t, out, "No grades yet.")

	out, err = h.run(t, "", "nav")
	require.NoError(t, err)
	assert.Contains(t, out, "Courses")
	assert.Contains(t, out, "Grades")
	assert.NotContains(t, out, "Grade Upload")

	_, err = h.run(t, "", "upload-grades", "--course", "1")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(t, err))
	assert.Equal(t, "Access denied: only Faculty can open Grade Upload.", err.Error())

	out, err = h.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
	_, statErr := os.Stat(h.tokenFile)
	assert.True(t, os.IsNotExist(statErr), "token file removed on logout")

	_, err = h.run(t, "", "courses")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Please sign in first")
}

func TestCLI_LoginFailure(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	_, err := h.run(t, "", "login", "-u", "student1", "-p", "nope")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))

	out, err := h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestCLI_LoginPrompt(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	out, err := h.run(t, "prof1\n"+fakeapi.DefaultPassword+"\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Username: ")
	assert.Contains(t, out, "Signed in as Faculty.")
}

func TestCLI_FacultyUpload(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	_, err := h.run(t, "", "login", "-u", "prof1", "-p", fakeapi.DefaultPassword)
	require.NoError(t, err)

	studentID := strconv.Itoa(h.api.UserID("student1"))
	sheet := "studentId,grade\n" + studentID + ",A\n"
	out, err := h.run(t, sheet, "upload-grades", "--course", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded 1 grades.")

	grades := h.api.Grades()
	require.Len(t, grades, 1)
	assert.Equal(t, "A", grades[0].GradeValue)

	_, err = h.run(t, "not,a,sheet\n", "upload-grades", "--course", "1")
	assert.Error(t, err)
}

func TestCLI_CourseManagement(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	_, err := h.run(t, "", "login", "-u", "auditor1", "-p", fakeapi.DefaultPassword)
	require.NoError(t, err)

	out, err := h.run(t, "", "--output", "json", "manage-courses", "create", "--code", "ART1", "--name", "Drawing", "--capacity", "12")
	require.NoError(t, err)
	var created []struct {
		ID   int    `json:"id"`
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Len(t, created, 1)
	assert.Equal(t, "ART1", created[0].Code)

	id := strconv.Itoa(created[0].ID)
	_, err = h.run(t, "", "manage-courses", "update", "--code", "ART1", "--name", "Drawing II", id)
	require.NoError(t, err)

	out, err = h.run(t, "", "manage-courses", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Drawing II")

	out, err = h.run(t, "", "manage-courses", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted course "+id+".")

	_, err = h.run(t, "", "manage-courses", "delete", id)
	assert.Error(t, err)

	_, err = h.run(t, "", "courses")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only Student can open Courses")
}

func TestCLI_OutputFormats(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	_, err := h.run(t, "", "login", "-u", "auditor1", "-p", fakeapi.DefaultPassword)
	require.NoError(t, err)

	out, err := h.run(t, "", "--output", "json", "whoami")
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "course_audit_admin", state["role"])
	assert.Equal(t, true, state["authenticated"])

	out, err = h.run(t, "", "--output", "yaml", "nav")
	require.NoError(t, err)
	var routes []map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "/faculty/courses", routes[0]["path"])

	_, err = h.run(t, "", "--output", "xml", "whoami")
	assert.Error(t, err)
}

func TestCLI_SessionExpiredServerSide(t *testing.T) {
	t.Parallel()
	h := newCLIHarness(t)

	_, err := h.run(t, "", "login", "-u", "student1", "-p", fakeapi.DefaultPassword)
	require.NoError(t, err)

	h.api.RevokeRefresh()

	out, err := h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}
