package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campuserp/erp/core/notice"
)

type noticeRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Body        string         `db:"body"`
	Category    string         `db:"category"`
	Audience    pq.StringArray `db:"audience"`
	PublishedAt time.Time      `db:"published_at"`
	ExpiresAt   null.Time      `db:"expires_at"`
	CreatedBy   null.String    `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

const noticeColumns = `id, title, body, category, audience, published_at, expires_at, created_by, created_at, updated_at`

func toNoticeRow(n notice.Notice) noticeRow {
	audience := pq.StringArray(n.Audience)
	if audience == nil {
		audience = pq.StringArray{}
	}
	return noticeRow{
		ID:          n.ID,
		Title:       n.Title,
		Body:        n.Body,
		Category:    n.Category,
		Audience:    audience,
		PublishedAt: n.PublishedAt.UTC(),
		ExpiresAt:   null.NewTime(n.ExpiresAt.UTC(), !n.ExpiresAt.IsZero()),
		CreatedBy:   null.NewString(n.CreatedBy, n.CreatedBy != ""),
		CreatedAt:   n.CreatedAt.UTC(),
		UpdatedAt:   n.UpdatedAt.UTC(),
	}
}

func (r noticeRow) notice() notice.Notice {
	n := notice.Notice{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Body,
		Category:    r.Category,
		Audience:    []string(r.Audience),
		PublishedAt: r.PublishedAt.UTC(),
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.ExpiresAt.Valid {
		n.ExpiresAt = r.ExpiresAt.Time.UTC()
	}
	return n
}

type noticeRepository struct {
	db *sqlx.DB
}

var _ notice.Repository = (*noticeRepository)(nil)

func NewNoticeRepository(db *sqlx.DB) notice.Repository {
	return &noticeRepository{db: db}
}

func (repo *noticeRepository) CreateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	n.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO notices (`+noticeColumns+`)
		VALUES (:id, :title, :body, :category, :audience, :published_at, :expires_at, :created_by, :created_at, :updated_at)`,
		toNoticeRow(n))
	if err != nil {
		return notice.Notice{}, errors.Wrap(err, "inserting notice")
	}
	return n, nil
}

func (repo *noticeRepository) QueryNotices(ctx context.Context) ([]notice.Notice, error) {
	var rows []noticeRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+noticeColumns+" FROM notices ORDER BY published_at DESC"); err != nil {
		return nil, errors.Wrap(err, "querying notices")
	}
	notices := make([]notice.Notice, 0, len(rows))
	for _, r := range rows {
		notices = append(notices, r.notice())
	}
	return notices, nil
}

func (repo *noticeRepository) GetNotice(ctx context.Context, id string) (notice.Notice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notice.Notice{}, notice.ErrNotFound
	}
	var row noticeRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+noticeColumns+" FROM notices WHERE id = $1", id); err != nil {
		return notice.Notice{}, trapNoRowsErr(err, notice.ErrNotFound, "finding notice")
	}
	return row.notice(), nil
}

func (repo *noticeRepository) UpdateNotice(ctx context.Context, n notice.Notice) (notice.Notice, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE notices SET title = :title, body = :body, category = :category, audience = :audience,
			published_at = :published_at, expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id`, toNoticeRow(n))
	if err != nil {
		return notice.Notice{}, errors.Wrap(err, "updating notice")
	}
	if err = checkDeleted(res, notice.ErrNotFound); err != nil {
		return notice.Notice{}, err
	}
	return n, nil
}

func (repo *noticeRepository) DeleteNotice(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return notice.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM notices WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting notice")
	}
	return checkDeleted(res, notice.ErrNotFound)
}
