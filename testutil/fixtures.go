package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/fee"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/student"
	"github.com/campuserp/erp/core/user"
)

// Password is set on the users created by CreateUser when none is given.
const Password = "Sup3r$ecret"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if pwd == "" {
		pwd = Password
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	require.NoError(t, usr.SetPassword(pwd))
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err, "CreateUser()")
	return usr
}

// CreateCourse creates a course with the given semesters, each holding subjects.
func CreateCourse(t *testing.T, svc course.Service, code, name string, semesters ...course.Semester) course.Course {
	t.Helper()
	c, err := svc.Create(context.Background(), course.NewCourse{
		Code:          code,
		Name:          name,
		Department:    "Engineering",
		DurationYears: 4,
		Semesters:     semesters,
	})
	require.NoError(t, err, "CreateCourse()")
	return c
}

func Semester(number int, subjectCodes ...string) course.Semester {
	sem := course.Semester{Number: number, Subjects: []course.Subject{}}
	for _, code := range subjectCodes {
		sem.Subjects = append(sem.Subjects, course.Subject{Code: code, Name: "Subject " + code, Credits: 4})
	}
	return sem
}

// CreateSession creates the academic session starting on April 1st of startYear.
func CreateSession(t *testing.T, svc session.Service, sessionID string, startYear int, active bool) session.Session {
	t.Helper()
	s, err := svc.Create(context.Background(), session.NewSession{
		SessionID: sessionID,
		StartDate: core.NewDate(startYear, time.April, 1),
		EndDate:   core.NewDate(startYear+1, time.March, 31),
		IsActive:  active,
	})
	require.NoError(t, err, "CreateSession()")
	return s
}

func CreateStudent(t *testing.T, svc student.Service, name, email, courseID, sessionID string, semester int) student.Student {
	t.Helper()
	s, err := svc.Create(context.Background(), student.NewStudent{
		Name:      name,
		Email:     email,
		CourseID:  courseID,
		Semester:  semester,
		SessionID: sessionID,
	})
	require.NoError(t, err, "CreateStudent()")
	return s
}

func CreateStructure(t *testing.T, svc fee.Service, courseID, sessionID string, semester int, heads ...fee.Head) fee.Structure {
	t.Helper()
	st, err := svc.CreateStructure(context.Background(), fee.NewStructure{
		CourseID:  courseID,
		SessionID: sessionID,
		Semester:  semester,
		Heads:     heads,
	})
	require.NoError(t, err, "CreateStructure()")
	return st
}

// StudentUser returns the account of a student.
func StudentUser(t *testing.T, svc user.Service, s student.Student) user.User {
	t.Helper()
	usr, err := svc.GetByID(context.Background(), s.UserID)
	require.NoError(t, err, "StudentUser()")
	return usr
}
