package core

import (
	"context"
	"time"
)

// Event names
const (
	EventPaymentRecorded   = "fee.payment_recorded"
	EventPaymentOrdered    = "fee.payment_ordered"
	EventNoticePublished   = "notice.published"
	EventStudentEnrolled   = "student.enrolled"
	EventAttendanceMarked  = "attendance.marked"
	EventSessionActivated  = "session.activated"
	EventPasswordResetSent = "user.password_reset_requested"
)

type (
	// Event is a domain event emitted after a state change was persisted.
	Event struct {
		Name       string      `json:"event"`
		Key        string      `json:"key"`
		Payload    interface{} `json:"payload"`
		OccurredAt time.Time   `json:"ts"`
	}

	// EventPublisher delivers events to interested parties. Publishing is best effort.
	EventPublisher interface {
		Publish(ctx context.Context, events ...Event) error
		Close() error
	}
)

func NewEvent(name, key string, payload interface{}) Event {
	return Event{Name: name, Key: key, Payload: payload, OccurredAt: time.Now().UTC()}
}
