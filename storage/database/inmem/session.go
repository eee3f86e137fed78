package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/campuserp/erp/core/session"
)

type sessionRepository struct {
	db       *sessionTable
	students *studentTable
	fees     *feeTables
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session, students: db.student, fees: db.fee}
}

func copySession(s session.Session) session.Session {
	s.Batches = append([]session.Batch{}, s.Batches...)
	return s
}

func (repo *sessionRepository) CheckSessionIDUniqueness(_ context.Context, sessionID, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.table {
		if s.ID != excludedID && s.SessionID == sessionID {
			return session.ErrSessionIDExists
		}
	}
	return nil
}

func (repo *sessionRepository) CreateSession(_ context.Context, s session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	s.ID = newID()
	s.IsActive = false // activation goes through ActivateSession
	stored := copySession(s)
	repo.db.table[s.ID] = &stored
	return s, nil
}

func (repo *sessionRepository) QuerySessions(_ context.Context, filter session.QueryFilter) ([]session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	sessions := make([]session.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		if filter.IsActive == nil || s.IsActive == *filter.IsActive {
			sessions = append(sessions, copySession(*s))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartDate.After(sessions[j].StartDate) })
	return sessions, nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.table[id]; ok {
		return copySession(*s), nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) GetSessionBySessionID(_ context.Context, sessionID string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.table {
		if s.SessionID == sessionID {
			return copySession(*s), nil
		}
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) GetActiveSession(_ context.Context) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, s := range repo.db.table {
		if s.IsActive {
			return copySession(*s), nil
		}
	}
	return session.Session{}, session.ErrNoActiveSession
}

// UpdateSession may deactivate s; activation goes through ActivateSession.
func (repo *sessionRepository) UpdateSession(_ context.Context, s session.Session) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.table[s.ID]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	s.IsActive = s.IsActive && orig.IsActive
	if s.SessionID != orig.SessionID {
		repo.renameReferences(orig.SessionID, s.SessionID)
	}
	stored := copySession(s)
	repo.db.table[s.ID] = &stored
	return s, nil
}

// renameReferences moves students & fee structures from one session id to another.
func (repo *sessionRepository) renameReferences(from, to string) {
	repo.students.Lock()
	for _, st := range repo.students.table {
		if st.SessionID == from {
			st.SessionID = to
		}
	}
	repo.students.Unlock()

	repo.fees.Lock()
	for _, st := range repo.fees.structures {
		if st.SessionID == from {
			st.SessionID = to
		}
	}
	repo.fees.Unlock()
}

func (repo *sessionRepository) ActivateSession(_ context.Context, id string) (session.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	target, ok := repo.db.table[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	now := time.Now().UTC()
	for _, s := range repo.db.table {
		if s.IsActive && s.ID != id {
			s.IsActive = false
			s.UpdatedAt = now
		}
	}
	target.IsActive = true
	target.UpdatedAt = now
	return copySession(*target), nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
