package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/campuserp/erp/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) UpsertRecords(_ context.Context, records []attendance.Record) ([]attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	saved := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		var existing *attendance.Record
		for _, rec := range repo.db.table {
			if rec.StudentID == r.StudentID && strings.EqualFold(rec.SubjectCode, r.SubjectCode) && rec.Date.Equal(r.Date) {
				existing = rec
				break
			}
		}
		if existing != nil {
			existing.Status = r.Status
			existing.MarkedBy = r.MarkedBy
			existing.UpdatedAt = r.UpdatedAt
			saved = append(saved, *existing)
			continue
		}
		r.ID = newID()
		stored := r
		repo.db.table[r.ID] = &stored
		saved = append(saved, r)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.QueryFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	records := make([]attendance.Record, 0)
	for _, r := range repo.db.table {
		if filter.Matches(*r) {
			records = append(records, *r)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].StudentID < records[j].StudentID
	})
	return records, nil
}

func (repo *attendanceRepository) DeleteRecord(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
