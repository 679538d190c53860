package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

var (
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidStep     = errors.New("step must be positive")
	ErrInvalidPolicy   = errors.New("invalid availability policy")
)

// Policy configures slot search. Buffer only affects where the search resumes
// after an existing event; it plays no part in IsOverlapping, which accepts
// events that touch exactly.
type Policy struct {
	WorkdayStart model.Clock
	WorkdayEnd   model.Clock
	Buffer       time.Duration
}

var DefaultPolicy = Policy{
	WorkdayStart: model.NewClock(9, 0),
	WorkdayEnd:   model.NewClock(17, 0),
	Buffer:       time.Minute,
}

func (p Policy) Validate() error {
	if !p.WorkdayStart.Valid() || !p.WorkdayEnd.Valid() {
		return fmt.Errorf("%w: workday bounds out of range", ErrInvalidPolicy)
	}
	if p.WorkdayEnd <= p.WorkdayStart {
		return fmt.Errorf("%w: workday end %s must be after start %s", ErrInvalidPolicy, p.WorkdayEnd, p.WorkdayStart)
	}
	if p.Buffer < 0 {
		return fmt.Errorf("%w: negative buffer", ErrInvalidPolicy)
	}
	return nil
}

// window returns the absolute working window of day, in loc.
func (p Policy) window(day model.Date, loc *time.Location) Interval {
	return Interval{Start: day.At(p.WorkdayStart, loc), End: day.At(p.WorkdayEnd, loc)}
}

// searchStart is the earliest instant a slot on day may begin: the start of
// the working window, or the current minute if that is later.
func (p Policy) searchStart(day model.Date, now time.Time) time.Time {
	loc := now.Location()
	start := day.At(p.WorkdayStart, loc)
	current := truncateToMinute(now)
	if current.After(start) {
		return current
	}
	return start
}

func truncateToMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
