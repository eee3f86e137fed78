package inmemdb

import (
	"context"

	"github.com/campuserp/erp/core/notice"
)

type noticeRepository struct {
	db *noticeTable
}

var _ notice.Repository = (*noticeRepository)(nil)

func NewNoticeRepository(db *DB) notice.Repository {
	return &noticeRepository{db: db.notice}
}

func copyNotice(n notice.Notice) notice.Notice {
	n.Audience = append([]string{}, n.Audience...)
	return n
}

func (repo *noticeRepository) CreateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	n.ID = newID()
	stored := copyNotice(n)
	repo.db.table[n.ID] = &stored
	return n, nil
}

func (repo *noticeRepository) QueryNotices(_ context.Context) ([]notice.Notice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	notices := make([]notice.Notice, 0, len(repo.db.table))
	for _, n := range repo.db.table {
		notices = append(notices, copyNotice(*n))
	}
	return notices, nil
}

func (repo *noticeRepository) GetNotice(_ context.Context, id string) (notice.Notice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if n, ok := repo.db.table[id]; ok {
		return copyNotice(*n), nil
	}
	return notice.Notice{}, notice.ErrNotFound
}

func (repo *noticeRepository) UpdateNotice(_ context.Context, n notice.Notice) (notice.Notice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[n.ID]; !ok {
		return notice.Notice{}, notice.ErrNotFound
	}
	stored := copyNotice(n)
	repo.db.table[n.ID] = &stored
	return n, nil
}

func (repo *noticeRepository) DeleteNotice(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return notice.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
