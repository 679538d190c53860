package availability

import (
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
	"github.com/samber/lo"
)

// IsOverlapping reports whether candidate conflicts with any event in existing
// that falls on the same calendar day.
//
// Intervals are half-open: [start,end) overlaps [e.start,e.end) iff
// start < e.end && end > e.start, so back-to-back events do not conflict.
// IsOverlapping has no notion of identity. When an event is being edited the
// caller must leave its stored version out of existing.
func IsOverlapping(candidate model.Event, existing []model.Event) bool {
	return lo.ContainsBy(existing, func(e model.Event) bool {
		return e.Date == candidate.Date && overlaps(candidate.StartTime, candidate.EndTime, e.StartTime, e.EndTime)
	})
}

// Conflicts returns every event in existing that IsOverlapping would reject
// candidate for, in input order.
func Conflicts(candidate model.Event, existing []model.Event) []model.Event {
	return lo.Filter(existing, func(e model.Event, _ int) bool {
		return e.Date == candidate.Date && overlaps(candidate.StartTime, candidate.EndTime, e.StartTime, e.EndTime)
	})
}

func overlaps(start, end, otherStart, otherEnd model.Clock) bool {
	return start < otherEnd && end > otherStart
}
