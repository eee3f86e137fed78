package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/counter"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/user"
)

var nowFunc = time.Now // mockable

type seedResult struct {
	name             string
	created, skipped int
}

func (r seedResult) String() string {
	return fmt.Sprintf("%s: %d created, %d skipped", r.name, r.created, r.skipped)
}

type accountsOptions struct {
	adminName, adminEmail, adminPassword          string
	academicName, academicEmail, academicPassword string
	academicDepartment                            string
}

func (cli *commandLine) seedCmd() *cobra.Command {
	var opts accountsOptions

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the reference data; existing records are skipped",
	}

	run := func(seed func(ctx context.Context) (seedResult, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			res, err := seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res)
			return nil
		}
	}

	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Create the admin & academic cell accounts",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context) (seedResult, error) {
			return cli.seedAccounts(ctx, opts)
		}),
	}
	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Seed courses, counters, sessions & accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := cli.seedAll(cmd.Context(), opts)
			for _, res := range results {
				fmt.Fprintln(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	for _, c := range []*cobra.Command{accountsCmd, allCmd} {
		flags := c.Flags()
		flags.StringVar(&opts.adminName, "admin-name", "Administrator", "name of the admin")
		flags.StringVar(&opts.adminEmail, "admin-email", "", "email of the admin (required)")
		flags.StringVar(&opts.adminPassword, "admin-password", "", "password of the admin (prompted when empty)")
		flags.StringVar(&opts.academicName, "academic-name", "Academic Cell", "name of the academic cell account")
		flags.StringVar(&opts.academicEmail, "academic-email", "", "email of the academic cell account; skipped when empty")
		flags.StringVar(&opts.academicPassword, "academic-password", "", "password of the academic cell account (prompted when empty)")
		flags.StringVar(&opts.academicDepartment, "academic-department", "Academics", "department of the academic cell account")
		_ = c.MarkFlagRequired("admin-email")
	}

	seedCmd.AddCommand(
		&cobra.Command{Use: "courses", Short: "Create the default courses", Args: cobra.NoArgs, RunE: run(cli.seedCourses)},
		&cobra.Command{Use: "counters", Short: "Create the sequence counters", Args: cobra.NoArgs, RunE: run(cli.seedCounters)},
		&cobra.Command{Use: "sessions", Short: "Create the current & previous academic sessions", Args: cobra.NoArgs, RunE: run(cli.seedSessions)},
		accountsCmd,
		allCmd,
	)
	return seedCmd
}

func (cli *commandLine) seedAll(ctx context.Context, opts accountsOptions) ([]seedResult, error) {
	steps := []func(context.Context) (seedResult, error){
		cli.seedCourses,
		cli.seedCounters,
		cli.seedSessions,
		func(ctx context.Context) (seedResult, error) { return cli.seedAccounts(ctx, opts) },
	}
	results := make([]seedResult, 0, len(steps))
	for _, seed := range steps {
		res, err := seed(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (cli *commandLine) seedCourses(ctx context.Context) (seedResult, error) {
	res := seedResult{name: "courses"}
	for _, nc := range defaultCourses() {
		if _, err := cli.svcs.Course.GetByCode(ctx, nc.Code); err == nil {
			res.skipped++
			continue
		} else if !core.IsNotFound(err) {
			return res, errors.Wrapf(err, "finding course %s", nc.Code)
		}

		if err := nc.Validate(ctx, cli.validate, cli.svcs.Course); err != nil {
			return res, cli.fieldErrors(err)
		}
		if _, err := cli.svcs.Course.Create(ctx, nc); err != nil {
			return res, errors.Wrapf(err, "creating course %s", nc.Code)
		}
		res.created++
	}
	return res, nil
}

func (cli *commandLine) seedCounters(ctx context.Context) (seedResult, error) {
	res := seedResult{name: "counters"}
	for _, name := range []string{counter.Receipt, counter.Enrollment} {
		_, created, err := cli.svcs.Counter.Ensure(ctx, name, 0)
		if err != nil {
			return res, errors.Wrapf(err, "creating counter %s", name)
		}
		if created {
			res.created++
		} else {
			res.skipped++
		}
	}
	return res, nil
}

// seedSessions creates the academic session in progress (April to March) and the previous one.
// The current session is activated unless another session already is.
func (cli *commandLine) seedSessions(ctx context.Context) (seedResult, error) {
	res := seedResult{name: "sessions"}

	now := nowFunc()
	start := now.Year()
	if now.Month() < time.April {
		start--
	}
	_, err := cli.svcs.Session.GetActive(ctx)
	hasActive := err == nil
	if err != nil && !core.IsNotFound(err) {
		return res, errors.Wrap(err, "finding active session")
	}

	for _, year := range []int{start - 1, start} {
		ns := session.NewSession{
			SessionID: fmt.Sprintf("%d-%02d", year, (year+1)%100),
			StartDate: core.NewDate(year, time.April, 1),
			EndDate:   core.NewDate(year+1, time.March, 31),
			IsActive:  year == start && !hasActive,
		}
		if _, err := cli.svcs.Session.GetBySessionID(ctx, ns.SessionID); err == nil {
			res.skipped++
			continue
		} else if !core.IsNotFound(err) {
			return res, errors.Wrapf(err, "finding session %s", ns.SessionID)
		}

		if err := ns.Validate(ctx, cli.validate, cli.svcs.Session); err != nil {
			return res, cli.fieldErrors(err)
		}
		if _, err := cli.svcs.Session.Create(ctx, ns); err != nil {
			return res, errors.Wrapf(err, "creating session %s", ns.SessionID)
		}
		res.created++
	}
	return res, nil
}

func (cli *commandLine) seedAccounts(ctx context.Context, opts accountsOptions) (seedResult, error) {
	res := seedResult{name: "accounts"}

	accounts := []struct {
		name, email, pwd, department string
		roles                        []string
	}{
		{opts.adminName, opts.adminEmail, opts.adminPassword, "", []string{user.RoleAdminOwner}},
		{opts.academicName, opts.academicEmail, opts.academicPassword, opts.academicDepartment, []string{user.RoleAcademic}},
	}
	for _, acc := range accounts {
		if acc.email == "" {
			continue
		}
		if _, err := cli.svcs.User.GetByEmail(ctx, acc.email); err == nil {
			res.skipped++
			continue
		} else if !core.IsNotFound(err) {
			return res, errors.Wrapf(err, "finding user %s", acc.email)
		}

		pwd := acc.pwd
		if pwd == "" {
			var err error
			if pwd, err = promptPassword(cli.out, "Password for "+acc.email); err != nil {
				return res, err
			}
		}
		nu := user.NewUser{
			Name:            acc.name,
			Email:           acc.email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           acc.roles,
			Department:      acc.department,
		}
		if err := nu.Validate(ctx, cli.validate, cli.svcs.User); err != nil {
			return res, cli.fieldErrors(err)
		}
		if _, err := cli.svcs.User.Create(ctx, nu); err != nil {
			return res, errors.Wrapf(err, "creating user %s", acc.email)
		}
		res.created++
	}
	return res, nil
}

func defaultCourses() []course.NewCourse {
	subj := func(code, name string, credits int) course.Subject {
		return course.Subject{Code: code, Name: name, Credits: credits}
	}
	return []course.NewCourse{
		{
			Code:          "BTECH-CSE",
			Name:          "B.Tech Computer Science & Engineering",
			Department:    "Engineering",
			DurationYears: 4,
			Semesters: []course.Semester{
				{Number: 1, Subjects: []course.Subject{
					subj("MA101", "Engineering Mathematics I", 4),
					subj("PH101", "Engineering Physics", 4),
					subj("CS101", "Programming Fundamentals", 4),
					subj("HS101", "Communication Skills", 2),
				}},
				{Number: 2, Subjects: []course.Subject{
					subj("MA102", "Engineering Mathematics II", 4),
					subj("CS102", "Data Structures", 4),
					subj("EE101", "Basic Electrical Engineering", 3),
				}},
			},
		},
		{
			Code:          "BBA",
			Name:          "Bachelor of Business Administration",
			Department:    "Management",
			DurationYears: 3,
			Semesters: []course.Semester{
				{Number: 1, Subjects: []course.Subject{
					subj("BB101", "Principles of Management", 4),
					subj("BB102", "Business Economics", 4),
					subj("BB103", "Financial Accounting", 4),
				}},
				{Number: 2, Subjects: []course.Subject{
					subj("BB201", "Organisational Behaviour", 4),
					subj("BB202", "Marketing Management", 4),
				}},
			},
		},
		{
			Code:          "BCOM",
			Name:          "Bachelor of Commerce",
			Department:    "Commerce",
			DurationYears: 3,
			Semesters: []course.Semester{
				{Number: 1, Subjects: []course.Subject{
					subj("BC101", "Financial Accounting I", 4),
					subj("BC102", "Business Law", 3),
					subj("BC103", "Business Statistics", 3),
				}},
			},
		},
	}
}
