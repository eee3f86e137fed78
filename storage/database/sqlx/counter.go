package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/campuserp/erp/core/counter"
)

type counterRepository struct {
	db *sqlx.DB
}

var _ counter.Repository = (*counterRepository)(nil)

func NewCounterRepository(db *sqlx.DB) counter.Repository {
	return &counterRepository{db: db}
}

// Next relies on the row lock of the upsert for atomicity.
func (repo *counterRepository) Next(ctx context.Context, name string) (int64, error) {
	var val int64
	err := repo.db.GetContext(ctx, &val, `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, name)
	if err != nil {
		return 0, errors.Wrap(err, "incrementing counter")
	}
	return val, nil
}

func (repo *counterRepository) Ensure(ctx context.Context, name string, start int64) (counter.Counter, bool, error) {
	res, err := repo.db.ExecContext(ctx, "INSERT INTO counters (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING", name, start)
	if err != nil {
		return counter.Counter{}, false, errors.Wrap(err, "ensuring counter")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return counter.Counter{}, false, errors.Wrap(err, "ensuring counter")
	}
	c, err := repo.GetCounter(ctx, name)
	return c, n > 0, err
}

func (repo *counterRepository) GetCounter(ctx context.Context, name string) (counter.Counter, error) {
	var c counter.Counter
	if err := repo.db.GetContext(ctx, &c, "SELECT name, value FROM counters WHERE name = $1", name); err != nil {
		return counter.Counter{}, trapNoRowsErr(err, counter.ErrNotFound, "finding counter")
	}
	return c, nil
}

func (repo *counterRepository) QueryCounters(ctx context.Context) ([]counter.Counter, error) {
	counters := make([]counter.Counter, 0)
	if err := repo.db.SelectContext(ctx, &counters, "SELECT name, value FROM counters ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying counters")
	}
	return counters, nil
}
