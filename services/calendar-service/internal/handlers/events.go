package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/dayplanner/libs/httpx"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/availability"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/events"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

// SlotTimeLayout is the wire form of slot boundaries: local wall-clock time
// without zone.
const SlotTimeLayout = "2006-01-02T15:04"

const defaultSlotStep = 15

// ConflictsHeader carries the ids of the events an overlapping write hit.
const ConflictsHeader = "X-Conflicting-Events"

type EventHandler struct {
	svc    *events.Service
	logger *slog.Logger
}

func NewEventHandler(svc *events.Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

type slotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Register mounts the calendar API under /api/events.
func (h *EventHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events/getEvents", h.List)
	mux.HandleFunc("GET /api/events/getEvent/{id}", h.Get)
	mux.HandleFunc("GET /api/events/byDate", h.ByDate)
	mux.HandleFunc("GET /api/events/todayDate", h.Today)
	mux.HandleFunc("GET /api/events/todayRemaining", h.TodayRemaining)
	mux.HandleFunc("GET /api/events/availableSlot", h.AvailableSlot)
	mux.HandleFunc("GET /api/events/slots", h.Slots)
	mux.HandleFunc("GET /api/events/export.ics", h.ExportICS)
	mux.HandleFunc("POST /api/events/addEvent", h.Create)
	mux.HandleFunc("PUT /api/events/editEvent/{id}", h.Update)
	mux.HandleFunc("DELETE /api/events/deleteEvent/{id}", h.Delete)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ev)
}

func (h *EventHandler) ByDate(w http.ResponseWriter, r *http.Request) {
	day, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.svc.ListByDate(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *EventHandler) Today(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Today(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *EventHandler) TodayRemaining(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.RemainingToday(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// AvailableSlot answers 204 when the day has no room for the requested length.
func (h *EventHandler) AvailableSlot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := model.ParseDate(strings.TrimSpace(q.Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(q.Get("minutes")))
	if err != nil {
		http.Error(w, "minutes must be an integer", http.StatusBadRequest)
		return
	}

	slot, found, err := h.svc.NextSlot(r.Context(), day, minutes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlotResponse(slot))
}

func (h *EventHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := model.ParseDate(strings.TrimSpace(q.Get("date")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(q.Get("minutes")))
	if err != nil {
		http.Error(w, "minutes must be an integer", http.StatusBadRequest)
		return
	}
	step := defaultSlotStep
	if raw := strings.TrimSpace(q.Get("step")); raw != "" {
		step, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "step must be an integer", http.StatusBadRequest)
			return
		}
	}

	slots, err := h.svc.Slots(r.Context(), day, minutes, step)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]slotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *EventHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	var day *model.Date
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		day = &d
	}
	body, err := h.svc.ExportICS(r.Context(), day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	_, _ = w.Write([]byte(body))
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, err := h.svc.Create(r.Context(), ev)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, saved)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	saved, err := h.svc.Update(r.Context(), r.PathValue("id"), ev)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, saved)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, events.ErrInvalidEvent),
		errors.Is(err, availability.ErrInvalidDuration),
		errors.Is(err, availability.ErrInvalidStep):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, events.ErrOverlap):
		var overlap *events.OverlapError
		if errors.As(err, &overlap) {
			w.Header().Set(ConflictsHeader, strings.Join(overlap.ConflictIDs(), ","))
		}
		http.Error(w, "Overlapping event", http.StatusConflict)
	case errors.Is(err, events.ErrNotFound):
		http.Error(w, "event not found", http.StatusNotFound)
	default:
		h.logger.Error("calendar request failed",
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toSlotResponse(s availability.Interval) slotResponse {
	return slotResponse{Start: s.Start.Format(SlotTimeLayout), End: s.End.Format(SlotTimeLayout)}
}
