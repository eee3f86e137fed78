package inmemdb

import (
	"context"
	"sort"

	"github.com/campuserp/erp/core/counter"
)

type counterRepository struct {
	db *counterTable
}

var _ counter.Repository = (*counterRepository)(nil)

func NewCounterRepository(db *DB) counter.Repository {
	return &counterRepository{db: db.counter}
}

func (repo *counterRepository) Next(_ context.Context, name string) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[name]++
	return repo.db.table[name], nil
}

func (repo *counterRepository) Ensure(_ context.Context, name string, start int64) (counter.Counter, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if val, ok := repo.db.table[name]; ok {
		return counter.Counter{Name: name, Value: val}, false, nil
	}
	repo.db.table[name] = start
	return counter.Counter{Name: name, Value: start}, true, nil
}

func (repo *counterRepository) GetCounter(_ context.Context, name string) (counter.Counter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if val, ok := repo.db.table[name]; ok {
		return counter.Counter{Name: name, Value: val}, nil
	}
	return counter.Counter{}, counter.ErrNotFound
}

func (repo *counterRepository) QueryCounters(_ context.Context) ([]counter.Counter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	counters := make([]counter.Counter, 0, len(repo.db.table))
	for name, val := range repo.db.table {
		counters = append(counters, counter.Counter{Name: name, Value: val})
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].Name < counters[j].Name })
	return counters, nil
}
