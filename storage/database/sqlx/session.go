package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campuserp/erp/core"
	"github.com/campuserp/erp/core/session"
)

type sessionRow struct {
	ID        string    `db:"id"`
	SessionID string    `db:"session_id"`
	StartDate core.Date `db:"start_date"`
	EndDate   core.Date `db:"end_date"`
	IsActive  bool      `db:"is_active"`
	Batches   null.JSON `db:"batches"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const sessionColumns = `id, session_id, start_date, end_date, is_active, batches, created_at, updated_at`

func toSessionRow(s session.Session) (sessionRow, error) {
	batches, err := jsonCol(s.Batches)
	if err != nil {
		return sessionRow{}, err
	}
	return sessionRow{
		ID:        s.ID,
		SessionID: s.SessionID,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		IsActive:  s.IsActive,
		Batches:   batches,
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}, nil
}

func (r sessionRow) session() (session.Session, error) {
	s := session.Session{
		ID:        r.ID,
		SessionID: r.SessionID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		IsActive:  r.IsActive,
		Batches:   []session.Batch{},
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	return s, fromJSONCol(r.Batches, &s.Batches)
}

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CheckSessionIDUniqueness(ctx context.Context, sessionID, excludedID string) error {
	var found bool
	err := repo.db.GetContext(ctx, &found,
		"SELECT EXISTS (SELECT 1 FROM academic_sessions WHERE session_id = $1 AND id::text <> $2)", sessionID, excludedID)
	if err != nil {
		return errors.Wrap(err, "checking session id uniqueness")
	}
	if found {
		return session.ErrSessionIDExists
	}
	return nil
}

func (repo *sessionRepository) CreateSession(ctx context.Context, s session.Session) (session.Session, error) {
	s.ID = uuid.New().String()
	row, err := toSessionRow(s)
	if err != nil {
		return session.Session{}, err
	}
	row.IsActive = false // activation goes through ActivateSession
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO academic_sessions (`+sessionColumns+`)
		VALUES (:id, :session_id, :start_date, :end_date, :is_active, :batches, :created_at, :updated_at)`, row)
	if err != nil {
		return session.Session{}, trapConstraintErr(err, "session_id", "inserting session")
	}
	s.IsActive = false
	return s, nil
}

func (repo *sessionRepository) selectSessions(ctx context.Context, q string, args ...interface{}) ([]session.Session, error) {
	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, r := range rows {
		s, err := r.session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter session.QueryFilter) ([]session.Session, error) {
	var conds conditions
	if filter.IsActive != nil {
		conds.add("is_active = ?", *filter.IsActive)
	}
	q := repo.db.Rebind("SELECT " + sessionColumns + " FROM academic_sessions" + conds.where() + " ORDER BY start_date DESC")
	return repo.selectSessions(ctx, q, conds.args...)
}

func (repo *sessionRepository) getBy(ctx context.Context, notFound error, where string, args ...interface{}) (session.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+sessionColumns+" FROM academic_sessions WHERE "+where, args...); err != nil {
		return session.Session{}, trapNoRowsErr(err, notFound, "finding session")
	}
	return row.session()
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Session{}, session.ErrNotFound
	}
	return repo.getBy(ctx, session.ErrNotFound, "id = $1", id)
}

func (repo *sessionRepository) GetSessionBySessionID(ctx context.Context, sessionID string) (session.Session, error) {
	return repo.getBy(ctx, session.ErrNotFound, "session_id = $1", sessionID)
}

func (repo *sessionRepository) GetActiveSession(ctx context.Context) (session.Session, error) {
	return repo.getBy(ctx, session.ErrNoActiveSession, "is_active LIMIT 1")
}

// UpdateSession may deactivate s; activation goes through ActivateSession.
func (repo *sessionRepository) UpdateSession(ctx context.Context, s session.Session) (session.Session, error) {
	row, err := toSessionRow(s)
	if err != nil {
		return session.Session{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE academic_sessions SET session_id = :session_id, start_date = :start_date, end_date = :end_date,
			is_active = is_active AND :is_active, batches = :batches, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return session.Session{}, trapConstraintErr(err, "session_id", "updating session")
	}
	if err = checkDeleted(res, session.ErrNotFound); err != nil {
		return session.Session{}, err
	}
	return repo.GetSession(ctx, s.ID)
}

func (repo *sessionRepository) ActivateSession(ctx context.Context, id string) (session.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return session.Session{}, session.ErrNotFound
	}
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx, "UPDATE academic_sessions SET is_active = FALSE, updated_at = $1 WHERE is_active AND id <> $2", now, id); err != nil {
			return errors.Wrap(err, "deactivating sessions")
		}
		res, err := tx.ExecContext(ctx, "UPDATE academic_sessions SET is_active = TRUE, updated_at = $1 WHERE id = $2", now, id)
		if err != nil {
			return errors.Wrap(err, "activating session")
		}
		return checkDeleted(res, session.ErrNotFound)
	})
	if err != nil {
		return session.Session{}, err
	}
	return repo.GetSession(ctx, id)
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return session.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM academic_sessions WHERE id = $1", id)
	if err != nil {
		return trapConstraintErr(err, "id", "deleting session")
	}
	return checkDeleted(res, session.ErrNotFound)
}
