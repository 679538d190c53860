package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	otelx "github.com/md-rashed-zaman/dayplanner/libs/otel"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/availability"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/storage"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound     = errors.New("event not found")
	ErrOverlap      = errors.New("overlapping event")
	ErrInvalidEvent = errors.New("invalid event")
)

// OverlapError lists the stored events a write collided with. It matches
// ErrOverlap under errors.Is.
type OverlapError struct {
	Conflicts []model.Event
}

func (e *OverlapError) Error() string {
	return ErrOverlap.Error()
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

// ConflictIDs returns the ids of the conflicting events in start order.
func (e *OverlapError) ConflictIDs() []string {
	return lo.Map(e.Conflicts, func(c model.Event, _ int) string { return c.ID })
}

// Service is the calendar's application layer: validation, overlap checks
// and slot search on top of a Store.
type Service struct {
	store  storage.Store
	policy availability.Policy
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
	tracer trace.Tracer
}

type Option func(*Service)

// WithPolicy overrides the working window and buffer used for slot search.
func WithPolicy(p availability.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithClock injects the current time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the wall-clock zone events are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: availability.DefaultPolicy,
		logger: logger,
		now:    time.Now,
		loc:    time.Local,
		tracer: otelx.Tracer("calendar-service/events"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time in the service location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Location is the zone slot timestamps are expressed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.List")
	defer span.End()

	events, err := s.store.List(ctx)
	return events, s.fail(span, err)
}

func (s *Service) Get(ctx context.Context, id string) (model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.Get", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	ev, err := s.store.Get(ctx, id)
	return ev, s.fail(span, mapStoreError(err))
}

func (s *Service) ListByDate(ctx context.Context, day model.Date) ([]model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.ListByDate", trace.WithAttributes(attribute.String("event.date", day.String())))
	defer span.End()

	events, err := s.store.ListByDate(ctx, day)
	return events, s.fail(span, err)
}

func (s *Service) Today(ctx context.Context) ([]model.Event, error) {
	return s.ListByDate(ctx, model.DateOf(s.Now()))
}

// RemainingToday returns today's events that have not ended yet, by start time.
func (s *Service) RemainingToday(ctx context.Context) ([]model.Event, error) {
	now := s.Now()
	events, err := s.ListByDate(ctx, model.DateOf(now))
	if err != nil {
		return nil, err
	}
	return lo.Filter(events, func(e model.Event, _ int) bool {
		return !e.End(s.loc).Before(now)
	}), nil
}

// Create validates ev and stores it unless it overlaps an event on the same day.
func (s *Service) Create(ctx context.Context, ev model.Event) (model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.Create", trace.WithAttributes(attribute.String("event.date", ev.Date.String())))
	defer span.End()

	ev.ID = ""
	ev.Title = strings.TrimSpace(ev.Title)
	if err := s.validate(ev, true); err != nil {
		return model.Event{}, s.fail(span, err)
	}

	saved, err := s.store.Create(ctx, ev, overlapGuard(ev))
	if err != nil {
		return model.Event{}, s.fail(span, s.rejected(ev, mapStoreError(err)))
	}
	span.SetAttributes(attribute.String("event.id", saved.ID))
	s.logger.Info("event created", "id", saved.ID, "date", saved.Date.String(), "start", saved.StartTime.String(), "minutes", int(saved.Duration().Minutes()))
	return saved, nil
}

// Update replaces the event id with ev. The event's own current interval
// does not count as a conflict.
func (s *Service) Update(ctx context.Context, id string, ev model.Event) (model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.Update", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Event{}, s.fail(span, mapStoreError(err))
	}

	ev.ID = id
	ev.Title = strings.TrimSpace(ev.Title)
	retimed := ev.Date != current.Date || ev.StartTime != current.StartTime || ev.EndTime != current.EndTime
	if err := s.validate(ev, retimed); err != nil {
		return model.Event{}, s.fail(span, err)
	}

	saved, err := s.store.Update(ctx, ev, overlapGuard(ev))
	if err != nil {
		return model.Event{}, s.fail(span, s.rejected(ev, mapStoreError(err)))
	}
	s.logger.Info("event updated", "id", saved.ID, "date", saved.Date.String(), "start", saved.StartTime.String(), "end", saved.EndTime.String())
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "events.Delete", trace.WithAttributes(attribute.String("event.id", id)))
	defer span.End()

	if _, err := s.store.Delete(ctx, id); err != nil {
		return s.fail(span, mapStoreError(err))
	}
	s.logger.Info("event deleted", "id", id)
	return nil
}

// NextSlot returns the earliest free interval of minutes on day. The bool is
// false when the day has no room left.
func (s *Service) NextSlot(ctx context.Context, day model.Date, minutes int) (availability.Interval, bool, error) {
	ctx, span := s.tracer.Start(ctx, "events.NextSlot", trace.WithAttributes(
		attribute.String("event.date", day.String()),
		attribute.Int("slot.minutes", minutes),
	))
	defer span.End()

	existing, err := s.store.ListByDate(ctx, day)
	if err != nil {
		return availability.Interval{}, false, s.fail(span, err)
	}
	slot, found, err := s.policy.NextAvailableSlot(existing, day, minutes, s.Now())
	if err != nil {
		return availability.Interval{}, false, s.fail(span, err)
	}
	span.SetAttributes(attribute.Bool("slot.found", found))
	return slot, found, nil
}

// Slots lists every free interval of minutes on day on a grid of step minutes.
func (s *Service) Slots(ctx context.Context, day model.Date, minutes, step int) ([]availability.Interval, error) {
	ctx, span := s.tracer.Start(ctx, "events.Slots", trace.WithAttributes(
		attribute.String("event.date", day.String()),
		attribute.Int("slot.minutes", minutes),
		attribute.Int("slot.step", step),
	))
	defer span.End()

	existing, err := s.store.ListByDate(ctx, day)
	if err != nil {
		return nil, s.fail(span, err)
	}
	slots, err := s.policy.AvailableSlots(existing, day, minutes, step, s.Now())
	return slots, s.fail(span, err)
}

func (s *Service) validate(ev model.Event, checkPast bool) error {
	if err := validateEvent(ev); err != nil {
		return err
	}
	if checkPast {
		now := s.Now().Truncate(time.Minute)
		if ev.Start(s.loc).Before(now) {
			return fmt.Errorf("%w: event cannot start in the past", ErrInvalidEvent)
		}
	}
	return nil
}

func (s *Service) rejected(ev model.Event, err error) error {
	var overlap *OverlapError
	if errors.As(err, &overlap) {
		s.logger.Info("event rejected", "date", ev.Date.String(), "start", ev.StartTime.String(), "conflicts", overlap.ConflictIDs())
	}
	return err
}

func (s *Service) fail(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func overlapGuard(candidate model.Event) storage.Guard {
	return func(sameDay []model.Event) error {
		if conflicts := availability.Conflicts(candidate, sameDay); len(conflicts) > 0 {
			return &OverlapError{Conflicts: conflicts}
		}
		return nil
	}
}

func mapStoreError(err error) error {
	var overlap *OverlapError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &overlap):
		return overlap
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, storage.ErrOverlap):
		return ErrOverlap
	default:
		return err
	}
}
