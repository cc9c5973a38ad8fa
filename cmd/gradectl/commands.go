package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/dmitrymomot/gradeclient/pkg/gradebook"
	"github.com/dmitrymomot/gradeclient/pkg/session"
)

func loginCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with a username and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "read from stdin when omitted"},
		},
		Action: func(c *cli.Context) error {
			m := session.MustFromContext(c.Context)

			username, password := c.String("username"), c.String("password")
			if username == "" || password == "" {
				var err error
				username, password, err = a.prompt(username, password)
				if err != nil {
					return err
				}
			}

			if !m.Login(c.Context, username, password) {
				return cli.Exit("Login failed: check your username and password.", 2)
			}
			return a.printState(c.Context, m)
		},
	}
}

// prompt reads missing credentials from stdin, one per line.
func (a *app) prompt(username, password string) (string, string, error) {
	r := bufio.NewReader(a.in)
	read := func(label string) (string, error) {
		fmt.Fprintf(a.out, "%s: ", label)
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	var err error
	if username == "" {
		if username, err = read("Username"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = read("Password"); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}

func logoutCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "sign out and forget the stored session",
		Action: func(c *cli.Context) error {
			m := session.MustFromContext(c.Context)
			m.Logout(c.Context)
			return a.printState(c.Context, m)
		},
	}
}

func whoamiCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the current role",
		Action: func(c *cli.Context) error {
			return a.printState(c.Context, session.MustFromContext(c.Context))
		},
	}
}

type stateView struct {
	Role          string `json:"role" yaml:"role"`
	Authenticated bool   `json:"authenticated" yaml:"authenticated"`
	HasCredential bool   `json:"has_credential" yaml:"has_credential"`
}

func (a *app) printState(ctx context.Context, m *session.Manager) error {
	s := m.State(ctx)
	view := stateView{Role: s.Role.String(), Authenticated: s.Authenticated(), HasCredential: s.HasCredential}
	return render(a.out, a.output, view, func(w io.Writer) error {
		if !view.Authenticated {
			_, err := fmt.Fprintln(w, "Not signed in.")
			return err
		}
		_, err := fmt.Fprintf(w, "Signed in as %s.\n", s.Role.Label())
		return err
	})
}

type routeView struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label" yaml:"label"`
}

func navCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "nav",
		Usage: "list the sections available to the current role",
		Action: func(c *cli.Context) error {
			routes := session.MustFromContext(c.Context).Navigation()
			views := make([]routeView, 0, len(routes))
			for _, r := range routes {
				views = append(views, routeView{Path: r.Path, Label: r.Label})
			}
			return render(a.out, a.output, views, func(w io.Writer) error {
				if len(views) == 0 {
					_, err := fmt.Fprintln(w, "Nothing available. Sign in with: gradectl login")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, v := range views {
					fmt.Fprintf(tw, "%s\t%s\n", v.Label, v.Path)
				}
				return tw.Flush()
			})
		},
	}
}

func coursesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:   "courses",
		Usage:  "list the courses you can enroll in",
		Before: guard("/courses"),
		Action: func(c *cli.Context) error {
			courses, err := a.book.StudentCourses(c.Context)
			if err != nil {
				return describe(err)
			}
			return a.printCourses(courses)
		},
	}
}

func enrollCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "enroll",
		Usage:     "enroll in a course",
		ArgsUsage: "<course-id>",
		Before:    guard("/courses"),
		Action: func(c *cli.Context) error {
			id, err := courseIDArg(c)
			if err != nil {
				return err
			}
			e, err := a.book.Enroll(c.Context, id)
			if err != nil {
				return describe(err)
			}
			return render(a.out, a.output, e, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Enrolled in course %d.\n", id)
				return err
			})
		},
	}
}

func gradesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:   "grades",
		Usage:  "show your grades",
		Before: guard("/grades"),
		Action: func(c *cli.Context) error {
			grades, err := a.book.MyGrades(c.Context)
			if err != nil {
				return describe(err)
			}
			return render(a.out, a.output, grades, func(w io.Writer) error {
				if len(grades) == 0 {
					_, err := fmt.Fprintln(w, "No grades yet.")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "COURSE\tGRADE\tSEMESTER")
				for _, g := range grades {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", g.CourseID, g.Value, g.Semester)
				}
				return tw.Flush()
			})
		},
	}
}

func uploadGradesCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:   "upload-grades",
		Usage:  "upload a grade sheet of studentId,grade lines",
		Before: guard("/faculty/upload"),
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "course", Aliases: []string{"c"}, Required: true},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "-", Usage: "grade sheet, - for stdin"},
		},
		Action: func(c *cli.Context) error {
			entries, err := a.readSheet(c.String("file"))
			if err != nil {
				return err
			}
			n, err := a.book.UploadGrades(c.Context, c.Int("course"), entries)
			if err != nil {
				return describe(err)
			}
			return render(a.out, a.output, map[string]int{"created": n}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Uploaded %d grades.\n", n)
				return err
			})
		},
	}
}

func (a *app) readSheet(path string) ([]gradebook.GradeEntry, error) {
	if path == "-" {
		return gradebook.ParseGradeSheet(a.in)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gradebook.ParseGradeSheet(f)
}

func manageCoursesCommand(a *app) *cli.Command {
	courseFlags := []cli.Flag{
		&cli.StringFlag{Name: "code", Required: true},
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringFlag{Name: "instructor"},
		&cli.IntFlag{Name: "capacity"},
	}
	input := func(c *cli.Context) gradebook.CourseInput {
		return gradebook.CourseInput{
			Code:       c.String("code"),
			Name:       c.String("name"),
			Instructor: c.String("instructor"),
			Capacity:   c.Int("capacity"),
		}
	}

	return &cli.Command{
		Name:   "manage-courses",
		Usage:  "create, update and delete courses",
		Before: guard("/faculty/courses"),
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list every course",
				Action: func(c *cli.Context) error {
					courses, err := a.book.ListCourses(c.Context)
					if err != nil {
						return describe(err)
					}
					return a.printCourses(courses)
				},
			},
			{
				Name:  "create",
				Usage: "add a course",
				Flags: courseFlags,
				Action: func(c *cli.Context) error {
					course, err := a.book.CreateCourse(c.Context, input(c))
					if err != nil {
						return describe(err)
					}
					return a.printCourses([]gradebook.Course{course})
				},
			},
			{
				Name:      "update",
				Usage:     "replace a course's details",
				ArgsUsage: "<course-id>",
				Flags:     courseFlags,
				Action: func(c *cli.Context) error {
					id, err := courseIDArg(c)
					if err != nil {
						return err
					}
					course, err := a.book.UpdateCourse(c.Context, id, input(c))
					if err != nil {
						return describe(err)
					}
					return a.printCourses([]gradebook.Course{course})
				},
			},
			{
				Name:      "delete",
				Usage:     "remove a course",
				ArgsUsage: "<course-id>",
				Action: func(c *cli.Context) error {
					id, err := courseIDArg(c)
					if err != nil {
						return err
					}
					if err := a.book.DeleteCourse(c.Context, id); err != nil {
						return describe(err)
					}
					return render(a.out, a.output, map[string]bool{"deleted": true}, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "Deleted course %d.\n", id)
						return err
					})
				},
			},
		},
	}
}

func (a *app) printCourses(courses []gradebook.Course) error {
	return render(a.out, a.output, courses, func(w io.Writer) error {
		if len(courses) == 0 {
			_, err := fmt.Fprintln(w, "No courses.")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCODE\tNAME\tINSTRUCTOR\tCAPACITY")
		for _, c := range courses {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", c.ID, c.Code, c.Name, c.Instructor, c.Capacity)
		}
		return tw.Flush()
	})
}

func courseIDArg(c *cli.Context) (int, error) {
	id, err := strconv.Atoi(c.Args().First())
	if err != nil || id <= 0 {
		return 0, cli.Exit("a numeric course id is required", 2)
	}
	return id, nil
}

// describe turns service errors into user-facing messages.
func describe(err error) error {
	switch {
	case errors.Is(err, gradebook.ErrUnauthorized):
		return cli.Exit("Your session has expired. Sign in again: gradectl login", 3)
	case errors.Is(err, gradebook.ErrForbidden):
		return cli.Exit("The server refused this action for your role.", 3)
	}
	return err
}
