package student

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/counter"
	"github.com/campuserp/erp/core/course"
	"github.com/campuserp/erp/core/session"
	"github.com/campuserp/erp/core/user"
)

const enrollmentSeqWidth = 5

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("student")
	ErrEmailExists  = errors.New("a student with this email already exists")
	ErrAccountInUse = errors.New("this email belongs to a non-student account")

	courseNotFoundText = "course not found"
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email, excludedID string) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string) (Student, error)
		GetStudentByEnrollmentNo(ctx context.Context, enrollmentNo string) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email, excludedID string) error
		// Create enrolls a Student: draws an enrollment number, creates (or links) their account
		// and emails them a link to set their password.
		Create(ctx context.Context, ns NewStudent) (Student, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByUserID(ctx context.Context, userID string) (Student, error)
		GetByEnrollmentNo(ctx context.Context, enrollmentNo string) (Student, error)
		Update(ctx context.Context, s Student, ns NewStudent) (Student, error)
		UpdateProfile(ctx context.Context, s Student, up UpdateProfile) (Student, error)
		Delete(ctx context.Context, s Student) error
	}

	service struct {
		repo       Repository
		userSvc    user.Service
		counterSvc counter.Service
		courseSvc  course.Service
		sessionSvc session.Service
		events     core.EventPublisher
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	userSvc user.Service,
	counterSvc counter.Service,
	courseSvc course.Service,
	sessionSvc session.Service,
	events core.EventPublisher,
	logger core.Logger,
) Service {
	return &service{
		repo:       repo,
		userSvc:    userSvc,
		counterSvc: counterSvc,
		courseSvc:  courseSvc,
		sessionSvc: sessionSvc,
		events:     events,
		logger:     logger,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email, excludedID string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedID); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// checkReferences makes sure the course, semester & session of ns exist.
func (svc *service) checkReferences(ctx context.Context, ns NewStudent) (session.Session, error) {
	crs, err := svc.courseSvc.GetByID(ctx, ns.CourseID)
	if err != nil {
		if core.IsNotFound(err) {
			return session.Session{}, core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: courseNotFoundText})
		}
		return session.Session{}, pkgerrors.Wrap(err, "finding course")
	}
	if maxSem := crs.DurationYears * 2; maxSem > 0 && ns.Semester > maxSem {
		return session.Session{}, core.NewValidationError(nil, core.FieldError{
			Field: "semester",
			Error: fmt.Sprintf("%s has %d semesters", crs.Code, maxSem),
		})
	}

	sess, err := svc.sessionSvc.GetBySessionID(ctx, ns.SessionID)
	if err != nil {
		if core.IsNotFound(err) {
			return session.Session{}, core.NewValidationError(nil, core.FieldError{Field: "session_id", Error: "session not found"})
		}
		return session.Session{}, pkgerrors.Wrap(err, "finding session")
	}
	if ns.Batch != "" && len(sess.Batches) > 0 && !sess.HasBatch(ns.Batch) {
		return session.Session{}, core.NewValidationError(nil, core.FieldError{Field: "batch", Error: "batch not found in session"})
	}
	return sess, nil
}

// account finds the student: account for email or creates it.
func (svc *service) account(ctx context.Context, ns NewStudent, enrollmentNo string) (user.User, bool, error) {
	usr, err := svc.userSvc.GetByEmail(ctx, ns.Email)
	switch {
	case err == nil:
		if !usr.IsStudent() {
			return user.User{}, false, core.NewValidationError(ErrAccountInUse, core.FieldError{Field: "email", Error: ErrAccountInUse.Error()})
		}
		return usr, false, nil
	case !core.IsNotFound(err):
		return user.User{}, false, pkgerrors.Wrap(err, "finding user by email")
	}

	usr, err = svc.userSvc.Create(ctx, user.NewUser{
		Name:     ns.Name,
		Username: enrollmentNo,
		Email:    ns.Email,
		Roles:    []string{user.RoleStudent},
	})
	if err != nil {
		return user.User{}, false, pkgerrors.Wrap(err, "creating student account")
	}
	return usr, true, nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	sess, err := svc.checkReferences(ctx, ns)
	if err != nil {
		return Student{}, err
	}

	seq, err := svc.counterSvc.Next(ctx, counter.Enrollment)
	if err != nil {
		return Student{}, pkgerrors.Wrap(err, "drawing enrollment number")
	}
	enrollmentNo := counter.FormatCode(fmt.Sprint(sess.StartDate.Year()), seq, enrollmentSeqWidth)

	usr, created, err := svc.account(ctx, ns, enrollmentNo)
	if err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s, err := svc.repo.CreateStudent(ctx, Student{
		UserID:        usr.ID,
		EnrollmentNo:  enrollmentNo,
		Name:          ns.Name,
		Email:         ns.Email,
		Phone:         ns.Phone,
		CourseID:      ns.CourseID,
		Semester:      ns.Semester,
		Batch:         ns.Batch,
		SessionID:     ns.SessionID,
		GuardianName:  ns.GuardianName,
		GuardianPhone: ns.GuardianPhone,
		Address:       ns.Address,
		DateOfBirth:   ns.DateOfBirth,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if created {
			if dErr := svc.userSvc.Delete(ctx, usr.ID); dErr != nil {
				svc.logger.Error(fmt.Sprintf("cleaning up student account %s: %v", usr.ID, dErr), dErr)
			}
		}
		return Student{}, pkgerrors.Wrap(err, "creating student")
	}

	if created {
		svc.userSvc.SendPasswordResetMail(usr)
	}
	if svc.events != nil {
		ev := core.NewEvent(core.EventStudentEnrolled, s.ID, map[string]interface{}{
			"enrollment_no": s.EnrollmentNo,
			"course_id":     s.CourseID,
			"session_id":    s.SessionID,
		})
		if err := svc.events.Publish(ctx, ev); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", ev.Name, err), err)
		}
	}
	return s, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if err := core.CheckOrdering(ordering, OrderingColumns...); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *service) GetByEnrollmentNo(ctx context.Context, enrollmentNo string) (Student, error) {
	return svc.repo.GetStudentByEnrollmentNo(ctx, core.CleanString(enrollmentNo))
}

// Update replaces the record of s & keeps the name and email of their account in sync.
// The enrollment number never changes.
func (svc *service) Update(ctx context.Context, s Student, ns NewStudent) (Student, error) {
	if _, err := svc.checkReferences(ctx, ns); err != nil {
		return Student{}, err
	}

	var (
		usr         user.User
		syncAccount bool
	)
	if s.UserID != "" && (ns.Email != s.Email || ns.Name != s.Name) {
		var err error
		usr, err = svc.userSvc.GetByID(ctx, s.UserID)
		switch {
		case err == nil:
			syncAccount = true
		case !core.IsNotFound(err):
			return Student{}, pkgerrors.Wrap(err, "finding student account")
		}
		if syncAccount && usr.Email != ns.Email {
			if err := svc.userSvc.CheckUniqueness(ctx, "", ns.Email, usr); err != nil {
				return Student{}, err
			}
		}
	}

	s.Name = ns.Name
	s.Email = ns.Email
	s.Phone = ns.Phone
	s.CourseID = ns.CourseID
	s.Semester = ns.Semester
	s.Batch = ns.Batch
	s.SessionID = ns.SessionID
	s.GuardianName = ns.GuardianName
	s.GuardianPhone = ns.GuardianPhone
	s.Address = ns.Address
	s.DateOfBirth = ns.DateOfBirth
	s.UpdatedAt = time.Now().UTC()
	s, err := svc.repo.UpdateStudent(ctx, s)
	if err != nil || !syncAccount {
		return s, err
	}

	_, err = svc.userSvc.Update(ctx, usr, user.UpdateUser{
		Name:     ns.Name,
		Username: usr.Username,
		Email:    ns.Email,
	})
	if err != nil {
		return Student{}, pkgerrors.Wrap(err, "updating student account")
	}
	return s, nil
}

func (svc *service) UpdateProfile(ctx context.Context, s Student, up UpdateProfile) (Student, error) {
	if up.Phone != nil {
		s.Phone = *up.Phone
	}
	if up.Address != nil {
		s.Address = *up.Address
	}
	if up.GuardianName != nil {
		s.GuardianName = *up.GuardianName
	}
	if up.GuardianPhone != nil {
		s.GuardianPhone = *up.GuardianPhone
	}
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

// Delete removes the Student record and deactivates their account.
func (svc *service) Delete(ctx context.Context, s Student) error {
	if err := svc.repo.DeleteStudent(ctx, s.ID); err != nil {
		return err
	}
	usr, err := svc.userSvc.GetByID(ctx, s.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return pkgerrors.Wrap(err, "finding student account")
	}
	inactive := false
	_, err = svc.userSvc.Update(ctx, usr, user.UpdateUser{
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
		IsActive: &inactive,
	})
	return pkgerrors.Wrap(err, "deactivating student account")
}
