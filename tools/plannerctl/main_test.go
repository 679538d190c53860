package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/events/byDate", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2026-01-28", r.URL.Query().Get("date"))
		_ = json.NewEncoder(w).Encode([]event{{ID: "e1", Title: "Standup", Type: "MEETING", Date: "2026-01-28", StartTime: "09:00", EndTime: "09:15"}})
	})
	mux.HandleFunc("GET /api/events/availableSlot", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("minutes") == "600" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(slot{Start: "2026-01-28T09:16", End: "2026-01-28T09:46"})
	})
	mux.HandleFunc("POST /api/events/addEvent", func(w http.ResponseWriter, r *http.Request) {
		var ev event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		if ev.StartTime == "09:00" {
			http.Error(w, "Overlapping event", http.StatusConflict)
			return
		}
		ev.ID = "e2"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ev)
	})
	mux.HandleFunc("DELETE /api/events/deleteEvent/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(append([]string{"--base-url", srv.URL}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestListByDate(t *testing.T) {
	out, err := run(t, fakeAPI(t), "list", "--date", "2026-01-28")
	require.NoError(t, err)
	require.Contains(t, out, "Standup")
	require.Contains(t, out, "09:15")
}

func TestNextSlot(t *testing.T) {
	srv := fakeAPI(t)
	out, err := run(t, srv, "next-slot", "--date", "2026-01-28", "--minutes", "30")
	require.NoError(t, err)
	require.Equal(t, "2026-01-28T09:16 -> 2026-01-28T09:46\n", out)

	out, err = run(t, srv, "next-slot", "--date", "2026-01-28", "--minutes", "600")
	require.NoError(t, err)
	require.Equal(t, "no free slot\n", out)
}

func TestAddAndConflict(t *testing.T) {
	srv := fakeAPI(t)
	out, err := run(t, srv, "add", "--title", "Review", "--date", "2026-01-28", "--start", "10:00", "--end", "11:00")
	require.NoError(t, err)
	require.Contains(t, out, "e2")

	_, err = run(t, srv, "add", "--title", "Clash", "--date", "2026-01-28", "--start", "09:00", "--end", "09:30")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "Overlapping event", apiErr.Body)
}

func TestDelete(t *testing.T) {
	out, err := run(t, fakeAPI(t), "delete", "e1")
	require.NoError(t, err)
	require.Equal(t, "deleted e1\n", out)
}
