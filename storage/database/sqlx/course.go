package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campuserp/erp/core/course"
)

type courseRow struct {
	ID            string    `db:"id"`
	Code          string    `db:"code"`
	Name          string    `db:"name"`
	Department    string    `db:"department"`
	DurationYears int       `db:"duration_years"`
	Semesters     null.JSON `db:"semesters"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

const courseColumns = `id, code, name, department, duration_years, semesters, created_at, updated_at`

func toCourseRow(c course.Course) (courseRow, error) {
	sems, err := jsonCol(c.Semesters)
	if err != nil {
		return courseRow{}, err
	}
	return courseRow{
		ID:            c.ID,
		Code:          c.Code,
		Name:          c.Name,
		Department:    c.Department,
		DurationYears: c.DurationYears,
		Semesters:     sems,
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}, nil
}

func (r courseRow) course() (course.Course, error) {
	c := course.Course{
		ID:            r.ID,
		Code:          r.Code,
		Name:          r.Name,
		Department:    r.Department,
		DurationYears: r.DurationYears,
		Semesters:     []course.Semester{},
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	return c, fromJSONCol(r.Semesters, &c.Semesters)
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CheckCodeUniqueness(ctx context.Context, code, excludedID string) error {
	var found bool
	err := repo.db.GetContext(ctx, &found,
		"SELECT EXISTS (SELECT 1 FROM courses WHERE UPPER(code) = UPPER($1) AND id::text <> $2)", code, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking course code uniqueness")
	}
	if found {
		return course.ErrCodeExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	row, err := toCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (:id, :code, :name, :department, :duration_years, :semesters, :created_at, :updated_at)`, row)
	if err != nil {
		return course.Course{}, trapConstraintErr(err, "code", "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	var conds conditions
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds.add("code ILIKE ? OR name ILIKE ?", val, val)
	}
	if filter.Department != "" {
		conds.add("LOWER(department) = LOWER(?)", filter.Department)
	}

	var rows []courseRow
	q := repo.db.Rebind("SELECT " + courseColumns + " FROM courses" + conds.where() + " ORDER BY code")
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		c, err := r.course()
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (repo *courseRepository) getBy(ctx context.Context, where string, arg interface{}) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+courseColumns+" FROM courses WHERE "+where, arg); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.course()
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	return repo.getBy(ctx, "id = $1", id)
}

func (repo *courseRepository) GetCourseByCode(ctx context.Context, code string) (course.Course, error) {
	return repo.getBy(ctx, "UPPER(code) = UPPER($1)", code)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	row, err := toCourseRow(c)
	if err != nil {
		return course.Course{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE courses SET code = :code, name = :name, department = :department, duration_years = :duration_years,
			semesters = :semesters, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return course.Course{}, trapConstraintErr(err, "code", "updating course")
	}
	if err = checkDeleted(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM courses WHERE id = $1", id)
	if err != nil {
		return trapConstraintErr(err, "id", "deleting course")
	}
	return checkDeleted(res, course.ErrNotFound)
}
