package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/attendance"
)

type attendanceRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	CourseID    string      `db:"course_id"`
	Semester    int         `db:"semester"`
	SubjectCode string      `db:"subject_code"`
	Date        core.Date   `db:"date"`
	Status      string      `db:"status"`
	MarkedBy    null.String `db:"marked_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

const attendanceColumns = `id, student_id, course_id, semester, subject_code, date, status, marked_by, created_at, updated_at`

func toAttendanceRow(r attendance.Record) attendanceRow {
	return attendanceRow{
		ID:          r.ID,
		StudentID:   r.StudentID,
		CourseID:    r.CourseID,
		Semester:    r.Semester,
		SubjectCode: r.SubjectCode,
		Date:        r.Date,
		Status:      r.Status,
		MarkedBy:    null.NewString(r.MarkedBy, r.MarkedBy != ""),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (r attendanceRow) record() attendance.Record {
	return attendance.Record{
		ID:          r.ID,
		StudentID:   r.StudentID,
		CourseID:    r.CourseID,
		Semester:    r.Semester,
		SubjectCode: r.SubjectCode,
		Date:        r.Date,
		Status:      r.Status,
		MarkedBy:    r.MarkedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) UpsertRecords(ctx context.Context, records []attendance.Record) ([]attendance.Record, error) {
	saved := make([]attendance.Record, 0, len(records))
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, r := range records {
			r.ID = uuid.New().String()
			q, args, err := tx.BindNamed(`
				INSERT INTO attendance (`+attendanceColumns+`)
				VALUES (:id, :student_id, :course_id, :semester, :subject_code, :date, :status, :marked_by, :created_at, :updated_at)
				ON CONFLICT (student_id, subject_code, date) DO UPDATE
					SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
				RETURNING `+attendanceColumns, toAttendanceRow(r))
			if err != nil {
				return errors.Wrap(err, "binding attendance record")
			}
			var row attendanceRow
			if err = tx.GetContext(ctx, &row, q, args...); err != nil {
				return trapConstraintErr(err, "entries", "upserting attendance record")
			}
			saved = append(saved, row.record())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	var conds conditions
	if filter.StudentID != "" {
		conds.add("student_id::text = ?", filter.StudentID)
	}
	if filter.CourseID != "" {
		conds.add("course_id::text = ?", filter.CourseID)
	}
	if filter.Semester > 0 {
		conds.add("semester = ?", filter.Semester)
	}
	if filter.SubjectCode != "" {
		conds.add("UPPER(subject_code) = UPPER(?)", filter.SubjectCode)
	}
	if filter.Status != "" {
		conds.add("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		conds.add("date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		conds.add("date <= ?", filter.To)
	}

	var rows []attendanceRow
	q := repo.db.Rebind("SELECT " + attendanceColumns + " FROM attendance" + conds.where() + " ORDER BY date, student_id")
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	records := make([]attendance.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.record())
	}
	return records, nil
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM attendance WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return checkDeleted(res, attendance.ErrNotFound)
}
