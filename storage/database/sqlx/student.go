package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/student"
)

type studentRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	EnrollmentNo  string    `db:"enrollment_no"`
	Name          string    `db:"name"`
	Email         string    `db:"email"`
	Phone         string    `db:"phone"`
	CourseID      string    `db:"course_id"`
	Semester      int       `db:"semester"`
	Batch         string    `db:"batch"`
	SessionID     string    `db:"session_id"`
	GuardianName  string    `db:"guardian_name"`
	GuardianPhone string    `db:"guardian_phone"`
	Address       string    `db:"address"`
	DateOfBirth   core.Date `db:"date_of_birth"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const studentColumns = `id, user_id, enrollment_no, name, email, phone, course_id, semester, batch, session_id,
	guardian_name, guardian_phone, address, date_of_birth, created_at, updated_at`

func toStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:            s.ID,
		UserID:        s.UserID,
		EnrollmentNo:  s.EnrollmentNo,
		Name:          s.Name,
		Email:         s.Email,
		Phone:         s.Phone,
		CourseID:      s.CourseID,
		Semester:      s.Semester,
		Batch:         s.Batch,
		SessionID:     s.SessionID,
		GuardianName:  s.GuardianName,
		GuardianPhone: s.GuardianPhone,
		Address:       s.Address,
		DateOfBirth:   s.DateOfBirth,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:            r.ID,
		UserID:        r.UserID,
		EnrollmentNo:  r.EnrollmentNo,
		Name:          r.Name,
		Email:         r.Email,
		Phone:         r.Phone,
		CourseID:      r.CourseID,
		Semester:      r.Semester,
		Batch:         r.Batch,
		SessionID:     r.SessionID,
		GuardianName:  r.GuardianName,
		GuardianPhone: r.GuardianPhone,
		Address:       r.Address,
		DateOfBirth:   r.DateOfBirth,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckEmailUniqueness(ctx context.Context, email, excludedID string) error {
	var found bool
	err := repo.db.GetContext(ctx, &found,
		"SELECT EXISTS (SELECT 1 FROM students WHERE email = $1 AND id::text <> $2)", email, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking student email uniqueness")
	}
	if found {
		return student.ErrEmailExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (:id, :user_id, :enrollment_no, :name, :email, :phone, :course_id, :semester, :batch, :session_id,
			:guardian_name, :guardian_phone, :address, :date_of_birth, :created_at, :updated_at)`,
		toStudentRow(s))
	if err != nil {
		return student.Student{}, trapConstraintErr(err, "email", "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var conds conditions
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds.add("name ILIKE ? OR email ILIKE ? OR enrollment_no ILIKE ?", val, val, val)
	}
	if filter.CourseID != "" {
		conds.add("course_id::text = ?", filter.CourseID)
	}
	if filter.Semester > 0 {
		conds.add("semester = ?", filter.Semester)
	}
	if filter.SessionID != "" {
		conds.add("session_id = ?", filter.SessionID)
	}
	if filter.Batch != "" {
		conds.add("batch = ?", filter.Batch)
	}

	var rows []studentRow
	q := repo.db.Rebind("SELECT " + studentColumns + " FROM students" + conds.where() + orderBy(ordering, "enrollment_no"))
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students, nil
}

func (repo *studentRepository) getBy(ctx context.Context, where string, arg interface{}) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+studentColumns+" FROM students WHERE "+where, arg); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return row.student(), nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *studentRepository) GetStudentByUserID(ctx context.Context, userID string) (student.Student, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	return repo.getBy(ctx, "user_id = $1", userID)
}

func (repo *studentRepository) GetStudentByEnrollmentNo(ctx context.Context, enrollmentNo string) (student.Student, error) {
	return repo.getBy(ctx, "enrollment_no = $1", enrollmentNo)
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE students SET name = :name, email = :email, phone = :phone, course_id = :course_id, semester = :semester,
			batch = :batch, session_id = :session_id, guardian_name = :guardian_name, guardian_phone = :guardian_phone,
			address = :address, date_of_birth = :date_of_birth, updated_at = :updated_at
		WHERE id = :id`, toStudentRow(s))
	if err != nil {
		return student.Student{}, trapConstraintErr(err, "email", "updating student")
	}
	if err = checkDeleted(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return student.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	if err != nil {
		return trapConstraintErr(err, "id", "deleting student")
	}
	return checkDeleted(res, student.ErrNotFound)
}
