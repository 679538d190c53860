package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/events"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/storage"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.January, 28, 8, 0, 0, 0, time.UTC)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store, err := storage.OpenBadger("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := events.NewService(store, logger,
		events.WithClock(func() time.Time { return testNow }),
		events.WithLocation(time.UTC),
	)
	mux := http.NewServeMux()
	NewEventHandler(svc, logger).Register(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, req)
	return rw
}

func decode[T any](t *testing.T, rw *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &v), rw.Body.String())
	return v
}

func TestEventLifecycle(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	rw := do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"Standup","type":"MEETING","date":"2026-01-28","startTime":"09:00","endTime":"09:30"}`)
	req.Equal(http.StatusCreated, rw.Code, rw.Body.String())
	created := decode[model.Event](t, rw)
	req.NotEmpty(created.ID)

	rw = do(t, mux, http.MethodGet, "/api/events/getEvent/"+created.ID, "")
	req.Equal(http.StatusOK, rw.Code)
	req.Equal(created, decode[model.Event](t, rw))

	rw = do(t, mux, http.MethodPut, "/api/events/editEvent/"+created.ID,
		`{"title":"Daily standup","type":"MEETING","date":"2026-01-28","startTime":"09:00","endTime":"09:15"}`)
	req.Equal(http.StatusOK, rw.Code, rw.Body.String())
	req.Equal("Daily standup", decode[model.Event](t, rw).Title)

	rw = do(t, mux, http.MethodGet, "/api/events/byDate?date=2026-01-28", "")
	req.Equal(http.StatusOK, rw.Code)
	req.Len(decode[[]model.Event](t, rw), 1)

	rw = do(t, mux, http.MethodDelete, "/api/events/deleteEvent/"+created.ID, "")
	req.Equal(http.StatusNoContent, rw.Code)

	rw = do(t, mux, http.MethodGet, "/api/events/getEvent/"+created.ID, "")
	req.Equal(http.StatusNotFound, rw.Code)

	rw = do(t, mux, http.MethodGet, "/api/events/getEvents", "")
	req.Equal(http.StatusOK, rw.Code)
	req.JSONEq(`[]`, rw.Body.String())
}

func TestEditIgnoresDisplayFields(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	rw := do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"Standup","type":"MEETING","date":"2026-01-28","startTime":"09:00","endTime":"09:30"}`)
	req.Equal(http.StatusCreated, rw.Code, rw.Body.String())
	created := decode[model.Event](t, rw)

	// The calendar UI echoes the stored event back with its computed start/end.
	body := `{"id":"` + created.ID + `","title":"Standup 2","type":"MEETING","date":"2026-01-28",` +
		`"startTime":"09:00","endTime":"09:30",` +
		`"start":"2026-01-28T09:00:00.000Z","end":"2026-01-28T09:30:00.000Z"}`
	rw = do(t, mux, http.MethodPut, "/api/events/editEvent/"+created.ID, body)
	req.Equal(http.StatusOK, rw.Code, rw.Body.String())

	updated := decode[model.Event](t, rw)
	req.Equal(created.ID, updated.ID)
	req.Equal("Standup 2", updated.Title)
}

func TestCreateErrors(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	rw := do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"A","type":"TASK","date":"2026-01-28","startTime":"10:00","endTime":"11:00"}`)
	req.Equal(http.StatusCreated, rw.Code)
	first := decode[model.Event](t, rw)

	rw = do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"B","type":"TASK","date":"2026-01-28","startTime":"10:30","endTime":"11:30"}`)
	req.Equal(http.StatusConflict, rw.Code)
	req.Equal("Overlapping event", strings.TrimSpace(rw.Body.String()))
	req.Equal(first.ID, rw.Header().Get(ConflictsHeader))

	rw = do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"","type":"TASK","date":"2026-01-28","startTime":"12:00","endTime":"13:00"}`)
	req.Equal(http.StatusBadRequest, rw.Code)

	rw = do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"C","type":"TASK","date":"2026-01-28","startTime":"9:00","endTime":"13:00"}`)
	req.Equal(http.StatusBadRequest, rw.Code)

	rw = do(t, mux, http.MethodPost, "/api/events/addEvent", `not json`)
	req.Equal(http.StatusBadRequest, rw.Code)

	rw = do(t, mux, http.MethodPut, "/api/events/editEvent/missing",
		`{"title":"X","type":"TASK","date":"2026-01-28","startTime":"12:00","endTime":"13:00"}`)
	req.Equal(http.StatusNotFound, rw.Code)
}

func TestAvailableSlot(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	rw := do(t, mux, http.MethodGet, "/api/events/availableSlot?date=2026-01-28&minutes=30", "")
	req.Equal(http.StatusOK, rw.Code)
	req.Equal(slotResponse{Start: "2026-01-28T09:00", End: "2026-01-28T09:30"}, decode[slotResponse](t, rw))

	rw = do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"Block","type":"OOO","date":"2026-01-28","startTime":"09:00","endTime":"17:00"}`)
	req.Equal(http.StatusCreated, rw.Code)

	rw = do(t, mux, http.MethodGet, "/api/events/availableSlot?date=2026-01-28&minutes=30", "")
	req.Equal(http.StatusNoContent, rw.Code)
	req.Empty(rw.Body.String())

	rw = do(t, mux, http.MethodGet, "/api/events/availableSlot?date=2026-01-28&minutes=0", "")
	req.Equal(http.StatusBadRequest, rw.Code)

	rw = do(t, mux, http.MethodGet, "/api/events/availableSlot?date=tomorrow&minutes=30", "")
	req.Equal(http.StatusBadRequest, rw.Code)
}

func TestSlots(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	rw := do(t, mux, http.MethodGet, "/api/events/slots?date=2026-01-28&minutes=60&step=60", "")
	req.Equal(http.StatusOK, rw.Code)
	slots := decode[[]slotResponse](t, rw)
	req.Len(slots, 8)
	req.Equal("2026-01-28T16:00", slots[7].Start)

	rw = do(t, mux, http.MethodGet, "/api/events/slots?date=2026-01-28&minutes=60&step=0", "")
	req.Equal(http.StatusBadRequest, rw.Code)
}

func TestTodayEndpoints(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	for _, body := range []string{
		`{"title":"Today","type":"REMINDER","date":"2026-01-28","startTime":"09:00","endTime":"09:05"}`,
		`{"title":"Tomorrow","type":"REMINDER","date":"2026-01-29","startTime":"09:00","endTime":"09:05"}`,
	} {
		req.Equal(http.StatusCreated, do(t, mux, http.MethodPost, "/api/events/addEvent", body).Code)
	}

	rw := do(t, mux, http.MethodGet, "/api/events/todayDate", "")
	req.Equal(http.StatusOK, rw.Code)
	today := decode[[]model.Event](t, rw)
	req.Len(today, 1)
	req.Equal("Today", today[0].Title)

	rw = do(t, mux, http.MethodGet, "/api/events/todayRemaining", "")
	req.Equal(http.StatusOK, rw.Code)
	req.Len(decode[[]model.Event](t, rw), 1)
}

func TestExportICS(t *testing.T) {
	req := require.New(t)
	mux := newTestMux(t)

	req.Equal(http.StatusCreated, do(t, mux, http.MethodPost, "/api/events/addEvent",
		`{"title":"Review","type":"MEETING","date":"2026-01-28","startTime":"14:00","endTime":"15:00"}`).Code)

	rw := do(t, mux, http.MethodGet, "/api/events/export.ics?date=2026-01-28", "")
	req.Equal(http.StatusOK, rw.Code)
	req.Contains(rw.Header().Get("Content-Type"), "text/calendar")
	req.Contains(rw.Body.String(), "BEGIN:VEVENT")
	req.Contains(rw.Body.String(), "SUMMARY:Review")

	rw = do(t, mux, http.MethodGet, "/api/events/export.ics?date=bad", "")
	req.Equal(http.StatusBadRequest, rw.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rw := do(t, newTestMux(t), http.MethodPost, "/api/events/getEvents", "")
	require.Equal(t, http.StatusMethodNotAllowed, rw.Code)
}
