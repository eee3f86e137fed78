package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/campuserp/erp/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("session")
	ErrNoActiveSession = core.NewNotFoundError("active session")
	ErrSessionIDExists = errors.New("a session with this session id already exists")
)

type (
	Repository interface {
		CheckSessionIDUniqueness(ctx context.Context, sessionID, excludedID string) error
		CreateSession(ctx context.Context, s Session) (Session, error)
		QuerySessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		GetSessionBySessionID(ctx context.Context, sessionID string) (Session, error)
		GetActiveSession(ctx context.Context) (Session, error)
		UpdateSession(ctx context.Context, s Session) (Session, error)
		// ActivateSession marks the Session active and every other one inactive, atomically.
		ActivateSession(ctx context.Context, id string) (Session, error)
		DeleteSession(ctx context.Context, id string) error
	}

	Service interface {
		CheckSessionIDUniqueness(ctx context.Context, sessionID, excludedID string) error
		Create(ctx context.Context, ns NewSession) (Session, error)
		Query(ctx context.Context, filter QueryFilter) ([]Session, error)
		GetByID(ctx context.Context, id string) (Session, error)
		GetBySessionID(ctx context.Context, sessionID string) (Session, error)
		GetActive(ctx context.Context) (Session, error)
		Update(ctx context.Context, s Session, ns NewSession) (Session, error)
		Activate(ctx context.Context, id string) (Session, error)
		Delete(ctx context.Context, id string) error
	}

	service struct {
		repo   Repository
		events core.EventPublisher
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, events core.EventPublisher, logger core.Logger) Service {
	return &service{repo: repo, events: events, logger: logger}
}

func (svc *service) CheckSessionIDUniqueness(ctx context.Context, sessionID, excludedID string) error {
	if err := svc.repo.CheckSessionIDUniqueness(ctx, sessionID, excludedID); err != nil {
		if err == ErrSessionIDExists {
			return core.NewValidationError(err, core.FieldError{Field: "session_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSession) (Session, error) {
	now := time.Now().UTC()
	s, err := svc.repo.CreateSession(ctx, Session{
		SessionID: ns.SessionID,
		StartDate: ns.StartDate,
		EndDate:   ns.EndDate,
		Batches:   batchesOrEmpty(ns.Batches),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Session{}, pkgerrors.Wrap(err, "creating session")
	}
	if ns.IsActive {
		return svc.Activate(ctx, s.ID)
	}
	return s, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *service) GetBySessionID(ctx context.Context, sessionID string) (Session, error) {
	return svc.repo.GetSessionBySessionID(ctx, core.CleanString(sessionID))
}

func (svc *service) GetActive(ctx context.Context) (Session, error) {
	return svc.repo.GetActiveSession(ctx)
}

// Update replaces s with ns. Activation is applied through Activate; an active session stays active.
func (svc *service) Update(ctx context.Context, s Session, ns NewSession) (Session, error) {
	s.SessionID = ns.SessionID
	s.StartDate = ns.StartDate
	s.EndDate = ns.EndDate
	s.Batches = batchesOrEmpty(ns.Batches)
	s.UpdatedAt = time.Now().UTC()

	wasActive := s.IsActive
	if !ns.IsActive {
		s.IsActive = false
	}
	s, err := svc.repo.UpdateSession(ctx, s)
	if err != nil {
		return Session{}, pkgerrors.Wrap(err, "updating session")
	}
	if ns.IsActive && !wasActive {
		return svc.Activate(ctx, s.ID)
	}
	return s, nil
}

func (svc *service) Activate(ctx context.Context, id string) (Session, error) {
	s, err := svc.repo.ActivateSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if svc.events != nil {
		ev := core.NewEvent(core.EventSessionActivated, s.ID, map[string]interface{}{"session_id": s.SessionID})
		if err := svc.events.Publish(ctx, ev); err != nil {
			svc.logger.Warn(fmt.Sprintf("publishing %s: %v", ev.Name, err), err)
		}
	}
	return s, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSession(ctx, id)
}

func batchesOrEmpty(batches []Batch) []Batch {
	if batches == nil {
		return []Batch{}
	}
	return batches
}
