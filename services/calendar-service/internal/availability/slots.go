package availability

import (
	"cmp"
	"slices"
	"time"

	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/samber/lo"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// FindNextAvailableSlot runs NextAvailableSlot with DefaultPolicy.
func FindNextAvailableSlot(existingForDay []model.Event, day model.Date, durationMinutes int, now time.Time) (Interval, bool, error) {
	return DefaultPolicy.NextAvailableSlot(existingForDay, day, durationMinutes, now)
}

// NextAvailableSlot returns the earliest interval of durationMinutes on day that
// lies inside the working window, starts no earlier than the current minute
// and overlaps none of the events of that day. Events dated on other days are
// ignored. The bool is false when no such interval exists.
//
// Timestamps are built in now's location. existingForDay is not modified.
func (p Policy) NextAvailableSlot(existingForDay []model.Event, day model.Date, durationMinutes int, now time.Time) (Interval, bool, error) {
	if durationMinutes <= 0 {
		return Interval{}, false, ErrInvalidDuration
	}
	if err := p.Validate(); err != nil {
		return Interval{}, false, err
	}

	loc := now.Location()
	duration := time.Duration(durationMinutes) * time.Minute
	dayEnd := day.At(p.WorkdayEnd, loc)
	cursor := p.searchStart(day, now)

	for _, e := range eventsOn(existingForDay, day) {
		slotEnd := cursor.Add(duration)
		if slotEnd.After(dayEnd) {
			// The cursor never moves backwards, so nothing later can fit either.
			return Interval{}, false, nil
		}
		if !slotEnd.After(e.Start(loc)) {
			return Interval{Start: cursor, End: slotEnd}, true, nil
		}
		if end := e.End(loc); cursor.Before(end) {
			cursor = end.Add(p.Buffer)
		}
	}

	if slotEnd := cursor.Add(duration); !slotEnd.After(dayEnd) {
		return Interval{Start: cursor, End: slotEnd}, true, nil
	}
	return Interval{}, false, nil
}

// AvailableSlots returns every slot of durationMinutes whose start lies on a
// step grid anchored at the start of the working window, that fits inside the
// window, starts no earlier than the current minute and does not overlap an
// event of day extended by the policy buffer.
func (p Policy) AvailableSlots(existingForDay []model.Event, day model.Date, durationMinutes, stepMinutes int, now time.Time) ([]Interval, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if stepMinutes <= 0 {
		return nil, ErrInvalidStep
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	loc := now.Location()
	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(stepMinutes) * time.Minute
	win := p.window(day, loc)
	earliest := truncateToMinute(now)

	busy := lo.Map(eventsOn(existingForDay, day), func(e model.Event, _ int) Interval {
		return Interval{Start: e.Start(loc), End: e.End(loc).Add(p.Buffer)}
	})

	var slots []Interval
	for t := win.Start; !t.Add(duration).After(win.End); t = t.Add(step) {
		if t.Before(earliest) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, Interval{Start: t, End: t.Add(duration)})
		}
	}
	return slots, nil
}

// eventsOn returns the events dated on day, sorted by start time, in a new slice.
func eventsOn(events []model.Event, day model.Date) []model.Event {
	out := lo.Filter(events, func(e model.Event, _ int) bool {
		return e.Date == day
	})
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})
	return out
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
