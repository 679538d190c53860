package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	otelx "github.com/md-rashed-zaman/dayplanner/libs/otel"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/outbox"
)

// Key layout:
//
//	event:{id}                      -> JSON model.Event
//	day:{date}:{start minute}:{id}  -> empty; ordered index per day
//	outbox:{seq}                    -> JSON outbox.Record
//
// Dates are ISO formatted and minutes zero padded so prefix scans come back
// in chronological order.
const (
	eventPrefix  = "event:"
	dayPrefix    = "day:"
	outboxPrefix = "outbox:"
	outboxSeqKey = "seq:outbox"
)

// BadgerStore is the embedded single-node backend. Writes are serialized by
// mu so the guard and the write see the same day.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// OpenBadger opens (or creates) a store at path. An empty path keeps
// everything in memory.
func OpenBadger(path string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(outboxSeqKey), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("outbox sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, logger: logger, now: time.Now}, nil
}

func (s *BadgerStore) List(_ context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		events, err = scanDayIndex(txn, dayPrefix)
		return err
	})
	return events, err
}

func (s *BadgerStore) ListByDate(_ context.Context, day model.Date) ([]model.Event, error) {
	var events []model.Event
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		events, err = scanDayIndex(txn, dayKeyPrefix(day))
		return err
	})
	return events, err
}

func (s *BadgerStore) Get(_ context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		ev, err = getEvent(txn, id)
		return err
	})
	return ev, err
}

func (s *BadgerStore) Create(ctx context.Context, ev model.Event, guard Guard) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = uuid.NewString()
	err := s.db.Update(func(txn *badger.Txn) error {
		sameDay, err := scanDayIndex(txn, dayKeyPrefix(ev.Date))
		if err != nil {
			return err
		}
		if err := runGuard(guard, sameDay, ""); err != nil {
			return err
		}
		if err := putEvent(txn, ev); err != nil {
			return err
		}
		return s.appendOutbox(ctx, txn, outbox.EventCreated, ev)
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

func (s *BadgerStore) Update(ctx context.Context, ev model.Event, guard Guard) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := getEvent(txn, ev.ID)
		if err != nil {
			return err
		}
		sameDay, err := scanDayIndex(txn, dayKeyPrefix(ev.Date))
		if err != nil {
			return err
		}
		if err := runGuard(guard, sameDay, ev.ID); err != nil {
			return err
		}
		if err := txn.Delete(dayKey(current)); err != nil {
			return err
		}
		if err := putEvent(txn, ev); err != nil {
			return err
		}
		return s.appendOutbox(ctx, txn, outbox.EventUpdated, ev)
	})
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted model.Event
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		deleted, err = getEvent(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete([]byte(eventPrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete(dayKey(deleted)); err != nil {
			return err
		}
		return s.appendOutbox(ctx, txn, outbox.EventDeleted, deleted)
	})
	if err != nil {
		return model.Event{}, err
	}
	return deleted, nil
}

// PublishBatch hands the oldest pending records to fn and removes them once
// fn succeeds. It does not take mu: the read and the delete run in separate
// transactions and only the keys handed to fn are deleted, which is safe for
// the single consumer outbox.Source allows.
func (s *BadgerStore) PublishBatch(_ context.Context, limit int, fn func([]outbox.Record) error) error {
	var (
		records []outbox.Record
		keys    [][]byte
	)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(outboxPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid() && len(records) < limit; it.Next() {
			item := it.Item()
			var r outbox.Record
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &r) }); err != nil {
				return err
			}
			records = append(records, r)
			keys = append(keys, item.KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(records) == 0 {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil && s.logger != nil {
		s.logger.Warn("release outbox sequence", "err", err)
	}
	return s.db.Close()
}

func (s *BadgerStore) appendOutbox(ctx context.Context, txn *badger.Txn, eventType string, ev model.Event) error {
	now := s.now()
	msg, err := outbox.NewEvent(eventType, ev, now)
	if err != nil {
		return err
	}
	seq, err := s.seq.Next()
	if err != nil {
		return err
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	rec := outbox.Record{
		Seq:         int64(seq),
		EventID:     msg.EventID,
		AggregateID: msg.AggregateID,
		EventType:   msg.EventType,
		Payload:     msg.Payload,
		Traceparent: traceparent,
		Tracestate:  tracestate,
		CreatedAt:   now.UTC(),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set([]byte(fmt.Sprintf("%s%020d", outboxPrefix, seq)), raw)
}

func putEvent(txn *badger.Txn, ev model.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := txn.Set([]byte(eventPrefix+ev.ID), raw); err != nil {
		return err
	}
	return txn.Set(dayKey(ev), nil)
}

func getEvent(txn *badger.Txn, id string) (model.Event, error) {
	item, err := txn.Get([]byte(eventPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	err = item.Value(func(v []byte) error { return json.Unmarshal(v, &ev) })
	return ev, err
}

// scanDayIndex walks day index keys under prefix and loads each event.
func scanDayIndex(txn *badger.Txn, prefix string) ([]model.Event, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	events := []model.Event{}
	for it.Rewind(); it.Valid(); it.Next() {
		key := string(it.Item().Key())
		id := key[strings.LastIndexByte(key, ':')+1:]
		ev, err := getEvent(txn, id)
		if err != nil {
			return nil, fmt.Errorf("day index %s: %w", key, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func dayKeyPrefix(day model.Date) string {
	return dayPrefix + day.String() + ":"
}

func dayKey(ev model.Event) []byte {
	return []byte(fmt.Sprintf("%s%04d:%s", dayKeyPrefix(ev.Date), int(ev.StartTime), ev.ID))
}
