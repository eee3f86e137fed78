package eventsvc

import (
	"context"
	"sync"

	"github.com/campuserp/erp/core"
)

type logPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*logPublisher)(nil)

// NewLogPublisher logs events at debug level; used when Kafka is not configured.
func NewLogPublisher(logger core.Logger) core.EventPublisher {
	return &logPublisher{logger: logger}
}

func (p *logPublisher) Publish(_ context.Context, events ...core.Event) error {
	for _, evt := range events {
		p.logger.Debug("event "+evt.Name, map[string]interface{}{"key": evt.Key, "payload": evt.Payload})
	}
	return nil
}

func (p *logPublisher) Close() error { return nil }

// Recorder keeps published events in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, events ...core.Event) error {
	r.mu.Lock()
	r.events = append(r.events, events...)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns the recorded events, optionally only those named name.
func (r *Recorder) Events(name ...string) []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]core.Event, 0, len(r.events))
	for _, evt := range r.events {
		if len(name) == 0 || evt.Name == name[0] {
			events = append(events, evt)
		}
	}
	return events
}

func (r *Recorder) Clear() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
