package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/dayplanner/libs/db"
	otelx "github.com/md-rashed-zaman/dayplanner/libs/otel"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/outbox"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore keeps events in calendar_events. Writes take a per-day
// advisory lock before running the guard; the exclusion constraint on
// (event_date, minute range) rejects anything that slips past it.
type PostgresStore struct {
	pool *db.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const eventColumns = `id::text, title, event_type, event_date::text, start_minute, end_minute`

func (s *PostgresStore) List(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		ORDER BY event_date ASC, start_minute ASC
	`)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (s *PostgresStore) ListByDate(ctx context.Context, day model.Date) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE event_date = $1::date
		ORDER BY start_minute ASC
	`, day.String())
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func (s *PostgresStore) Get(ctx context.Context, id string) (model.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Event{}, ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE id = $1
	`, id)
	if err != nil {
		return model.Event{}, err
	}
	ev, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, ErrNotFound
	}
	return ev, err
}

func (s *PostgresStore) Create(ctx context.Context, ev model.Event, guard Guard) (model.Event, error) {
	ev.ID = uuid.NewString()
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := lockDays(ctx, tx, ev.Date); err != nil {
			return err
		}
		sameDay, err := eventsOnDay(ctx, tx, ev.Date)
		if err != nil {
			return err
		}
		if err := runGuard(guard, sameDay, ""); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO calendar_events (id, title, event_type, event_date, start_minute, end_minute)
			VALUES ($1, $2, $3, $4::date, $5, $6)
		`, ev.ID, ev.Title, string(ev.Type), ev.Date.String(), int(ev.StartTime), int(ev.EndTime)); err != nil {
			return err
		}
		return s.appendOutbox(ctx, tx, outbox.EventCreated, ev)
	})
	if err != nil {
		return model.Event{}, mapPgError(err)
	}
	return ev, nil
}

func (s *PostgresStore) Update(ctx context.Context, ev model.Event, guard Guard) (model.Event, error) {
	if _, err := uuid.Parse(ev.ID); err != nil {
		return model.Event{}, ErrNotFound
	}
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+eventColumns+`
			FROM calendar_events
			WHERE id = $1
			FOR UPDATE
		`, ev.ID)
		if err != nil {
			return err
		}
		current, err := pgx.CollectExactlyOneRow(rows, scanEvent)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := lockDays(ctx, tx, current.Date, ev.Date); err != nil {
			return err
		}
		sameDay, err := eventsOnDay(ctx, tx, ev.Date)
		if err != nil {
			return err
		}
		if err := runGuard(guard, sameDay, ev.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE calendar_events
			SET title = $2,
				event_type = $3,
				event_date = $4::date,
				start_minute = $5,
				end_minute = $6,
				updated_at = now()
			WHERE id = $1
		`, ev.ID, ev.Title, string(ev.Type), ev.Date.String(), int(ev.StartTime), int(ev.EndTime)); err != nil {
			return err
		}
		return s.appendOutbox(ctx, tx, outbox.EventUpdated, ev)
	})
	if err != nil {
		return model.Event{}, mapPgError(err)
	}
	return ev, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (model.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Event{}, ErrNotFound
	}
	var deleted model.Event
	err := s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM calendar_events
			WHERE id = $1
			RETURNING `+eventColumns, id)
		if err != nil {
			return err
		}
		deleted, err = pgx.CollectExactlyOneRow(rows, scanEvent)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return s.appendOutbox(ctx, tx, outbox.EventDeleted, deleted)
	})
	if err != nil {
		return model.Event{}, err
	}
	return deleted, nil
}

func (s *PostgresStore) PublishBatch(ctx context.Context, limit int, fn func([]outbox.Record) error) error {
	return s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, event_id::text, aggregate_id, event_type, payload::text, traceparent, tracestate, created_at
			FROM calendar_outbox
			WHERE published_at IS NULL
			ORDER BY id ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return err
		}
		records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Record, error) {
			var r outbox.Record
			var payload string
			err := row.Scan(&r.Seq, &r.EventID, &r.AggregateID, &r.EventType, &payload, &r.Traceparent, &r.Tracestate, &r.CreatedAt)
			r.Payload = []byte(payload)
			return r, err
		})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		if err := fn(records); err != nil {
			return err
		}
		ids := make([]int64, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.Seq)
		}
		_, err = tx.Exec(ctx, `
			UPDATE calendar_outbox
			SET published_at = now()
			WHERE id = ANY($1)
		`, ids)
		return err
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return db.ReadyCheck(s.pool)(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) appendOutbox(ctx context.Context, tx pgx.Tx, eventType string, ev model.Event) error {
	msg, err := outbox.NewEvent(eventType, ev, s.now())
	if err != nil {
		return err
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err = tx.Exec(ctx, `
		INSERT INTO calendar_outbox (event_id, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6)
	`, msg.EventID, msg.AggregateID, msg.EventType, string(msg.Payload), traceparent, tracestate)
	return err
}

// lockDays serializes writers per calendar day. Keys are taken in sorted
// order so two writers touching the same pair of days cannot deadlock.
func lockDays(ctx context.Context, tx pgx.Tx, days ...model.Date) error {
	keys := make([]string, 0, len(days))
	for _, d := range days {
		keys = append(keys, "calendar-day:"+d.String())
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	for _, k := range keys {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, k); err != nil {
			return err
		}
	}
	return nil
}

func eventsOnDay(ctx context.Context, tx pgx.Tx, day model.Date) ([]model.Event, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+eventColumns+`
		FROM calendar_events
		WHERE event_date = $1::date
		ORDER BY start_minute ASC
	`, day.String())
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (model.Event, error) {
	var (
		ev         model.Event
		kind, date string
		start, end int
	)
	if err := row.Scan(&ev.ID, &ev.Title, &kind, &date, &start, &end); err != nil {
		return model.Event{}, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return model.Event{}, err
	}
	ev.Type = model.EventType(kind)
	ev.Date = d
	ev.StartTime = model.Clock(start)
	ev.EndTime = model.Clock(end)
	return ev, nil
}

func mapPgError(err error) error {
	if db.HasCode(err, db.CodeExclusionViolation) {
		return fmt.Errorf("%w: %v", ErrOverlap, err)
	}
	return err
}
