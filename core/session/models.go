package session

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campuserp/erp/core"
)

type (
	// Session is an academic session (ex: 2024-25).
	Session struct {
		ID        string    `json:"id"`
		SessionID string    `json:"session_id"`
		StartDate core.Date `json:"start_date"`
		EndDate   core.Date `json:"end_date"`
		IsActive  bool      `json:"is_active"`
		Batches   []Batch   `json:"batches"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Batch struct {
		Name     string `json:"name" validate:"required,max=100"`
		CourseID string `json:"course_id,omitempty"`
	}
)

// Covers reports whether d falls within the session.
func (s Session) Covers(d core.Date) bool {
	return !d.Before(s.StartDate) && !d.After(s.EndDate)
}

func (s Session) HasBatch(name string) bool {
	for _, b := range s.Batches {
		if b.Name == name {
			return true
		}
	}
	return false
}

// NewSession contains the information needed to create or replace a Session.
type NewSession struct {
	SessionID string    `json:"session_id" validate:"required,sessionid"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	Batches   []Batch   `json:"batches" validate:"dive"`
}

func (ns *NewSession) Clean() {
	ns.SessionID = core.CleanString(ns.SessionID)
	for i := range ns.Batches {
		ns.Batches[i].Name = core.CleanString(ns.Batches[i].Name)
		ns.Batches[i].CourseID = core.CleanString(ns.Batches[i].CourseID)
	}
}

func (ns *NewSession) Validate(ctx context.Context, validate *validator.Validate, svc Service, orig ...Session) error {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	var excludedID string
	if len(orig) > 0 {
		excludedID = orig[0].ID
	}
	return svc.CheckSessionIDUniqueness(ctx, ns.SessionID, excludedID)
}

type QueryFilter struct {
	IsActive *bool
}
