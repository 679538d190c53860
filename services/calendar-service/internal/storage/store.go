package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("event not found")
	ErrOverlap  = errors.New("overlapping event")
)

// Guard inspects the events already stored on the target day (the event
// being written excluded) while the day is locked. A non-nil error aborts
// the write and is returned unchanged.
type Guard func(sameDay []model.Event) error

// Store persists calendar events and their outbox records. Every write
// commits the event change and its outbox record atomically.
type Store interface {
	// List returns every event ordered by date then start time.
	List(ctx context.Context) ([]model.Event, error)
	// ListByDate returns the events on day ordered by start time.
	ListByDate(ctx context.Context, day model.Date) ([]model.Event, error)
	Get(ctx context.Context, id string) (model.Event, error)
	// Create assigns a new ID to ev and stores it.
	Create(ctx context.Context, ev model.Event, guard Guard) (model.Event, error)
	// Update replaces the event with ev.ID. ErrNotFound if it does not exist.
	Update(ctx context.Context, ev model.Event, guard Guard) (model.Event, error)
	Delete(ctx context.Context, id string) (model.Event, error)

	outbox.Source

	Ping(ctx context.Context) error
	Close() error
}

func runGuard(guard Guard, sameDay []model.Event, selfID string) error {
	if guard == nil {
		return nil
	}
	others := make([]model.Event, 0, len(sameDay))
	for _, e := range sameDay {
		if e.ID != selfID {
			others = append(others, e)
		}
	}
	return guard(others)
}
