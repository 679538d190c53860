package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

func at(day model.Date, hour, minute int) time.Time {
	return time.Date(day.Year, day.Month, day.Day, hour, minute, 0, 0, time.UTC)
}

func expectSlot(t *testing.T, got Interval, found bool, err error, start, end time.Time) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatalf("expected slot %s-%s, got none", start.Format("15:04"), end.Format("15:04"))
	}
	if !got.Start.Equal(start) || !got.End.Equal(end) {
		t.Fatalf("expected slot %s-%s, got %s-%s",
			start.Format("15:04"), end.Format("15:04"), got.Start.Format("15:04"), got.End.Format("15:04"))
	}
}

func expectNoSlot(t *testing.T, got Interval, found bool, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected no slot, got %s-%s", got.Start.Format(time.RFC3339), got.End.Format(time.RFC3339))
	}
}

func TestFindNextAvailableSlot_EmptyDayClampsToWorkdayStart(t *testing.T) {
	got, found, err := FindNextAvailableSlot(nil, testDay, 30, at(testDay, 8, 0))
	expectSlot(t, got, found, err, at(testDay, 9, 0), at(testDay, 9, 30))
}

func TestFindNextAvailableSlot_BufferAfterEvent(t *testing.T) {
	existing := []model.Event{event(testDay, "09:00", "10:00")}
	got, found, err := FindNextAvailableSlot(existing, testDay, 30, at(testDay, 8, 0))
	expectSlot(t, got, found, err, at(testDay, 10, 1), at(testDay, 10, 31))
}

func TestFindNextAvailableSlot_FullDay(t *testing.T) {
	existing := []model.Event{event(testDay, "09:00", "17:00")}
	got, found, err := FindNextAvailableSlot(existing, testDay, 30, at(testDay, 8, 0))
	expectNoSlot(t, got, found, err)
}

func TestFindNextAvailableSlot_WorkdayEndBoundary(t *testing.T) {
	existing := []model.Event{event(testDay, "09:00", "16:29")}

	got, found, err := FindNextAvailableSlot(existing, testDay, 30, at(testDay, 8, 0))
	expectSlot(t, got, found, err, at(testDay, 16, 30), at(testDay, 17, 0))

	got, found, err = FindNextAvailableSlot(existing, testDay, 31, at(testDay, 8, 0))
	expectNoSlot(t, got, found, err)
}

func TestFindNextAvailableSlot_GapSelection(t *testing.T) {
	existing := []model.Event{
		event(testDay, "10:45", "12:00"),
		event(testDay, "09:00", "10:00"),
	}

	got, found, err := FindNextAvailableSlot(existing, testDay, 30, at(testDay, 8, 0))
	expectSlot(t, got, found, err, at(testDay, 10, 1), at(testDay, 10, 31))

	// 10:01 + 45m ends at 10:46, one minute into the next event.
	got, found, err = FindNextAvailableSlot(existing, testDay, 45, at(testDay, 8, 0))
	expectSlot(t, got, found, err, at(testDay, 12, 1), at(testDay, 12, 46))
}

func TestFindNextAvailableSlot_TodayStartsAtCurrentMinute(t *testing.T) {
	now := time.Date(testDay.Year, testDay.Month, testDay.Day, 11, 17, 45, 500, time.UTC)
	existing := []model.Event{event(testDay, "09:00", "10:00")}
	got, found, err := FindNextAvailableSlot(existing, testDay, 30, now)
	expectSlot(t, got, found, err, at(testDay, 11, 17), at(testDay, 11, 47))
}

func TestFindNextAvailableSlot_TodayInsideEvent(t *testing.T) {
	existing := []model.Event{event(testDay, "11:00", "12:00")}
	got, found, err := FindNextAvailableSlot(existing, testDay, 30, at(testDay, 11, 40))
	expectSlot(t, got, found, err, at(testDay, 12, 1), at(testDay, 12, 31))
}

func TestFindNextAvailableSlot_PastDay(t *testing.T) {
	got, found, err := FindNextAvailableSlot(nil, testDay.AddDays(-1), 30, at(testDay, 8, 0))
	expectNoSlot(t, got, found, err)
}

func TestFindNextAvailableSlot_AfterWorkday(t *testing.T) {
	got, found, err := FindNextAvailableSlot(nil, testDay, 30, at(testDay, 16, 45))
	expectNoSlot(t, got, found, err)
}

func TestFindNextAvailableSlot_EventPastWorkdayEnd(t *testing.T) {
	existing := []model.Event{event(testDay, "18:00", "19:00")}
	got, found, err := FindNextAvailableSlot(existing, testDay, 30, at(testDay, 16, 50))
	expectNoSlot(t, got, found, err)
}

func TestFindNextAvailableSlot_IgnoresOtherDays(t *testing.T) {
	existing := []model.Event{
		event(testDay.AddDays(1), "09:00", "17:00"),
		event(testDay.AddDays(-1), "09:00", "17:00"),
	}
	got, found, err := FindNextAvailableSlot(existing, testDay, 60, at(testDay, 8, 0))
	expectSlot(t, got, found, err, at(testDay, 9, 0), at(testDay, 10, 0))
}

func TestFindNextAvailableSlot_InvalidDuration(t *testing.T) {
	for _, minutes := range []int{0, -15} {
		_, found, err := FindNextAvailableSlot(nil, testDay, minutes, at(testDay, 8, 0))
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", minutes, err)
		}
		if found {
			t.Fatalf("duration %d: expected no slot", minutes)
		}
	}
}

func TestFindNextAvailableSlot_Idempotent(t *testing.T) {
	existing := []model.Event{
		event(testDay, "13:00", "14:00"),
		event(testDay, "09:00", "12:30"),
	}
	now := at(testDay, 8, 0)

	first, found1, err1 := FindNextAvailableSlot(existing, testDay, 20, now)
	second, found2, err2 := FindNextAvailableSlot(existing, testDay, 20, now)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if found1 != found2 || !first.Start.Equal(second.Start) || !first.End.Equal(second.End) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	if existing[0].StartTime != model.NewClock(13, 0) {
		t.Fatal("input slice was reordered")
	}
	expectSlot(t, first, found1, err1, at(testDay, 12, 31), at(testDay, 12, 51))
}

func TestPolicy_CustomWindowWithoutBuffer(t *testing.T) {
	p := Policy{WorkdayStart: model.NewClock(8, 0), WorkdayEnd: model.NewClock(12, 0)}
	existing := []model.Event{event(testDay, "08:00", "09:00")}
	got, found, err := p.NextAvailableSlot(existing, testDay, 60, at(testDay, 7, 0))
	expectSlot(t, got, found, err, at(testDay, 9, 0), at(testDay, 10, 0))
}

func TestPolicy_Invalid(t *testing.T) {
	p := Policy{WorkdayStart: model.NewClock(17, 0), WorkdayEnd: model.NewClock(9, 0)}
	if _, _, err := p.NextAvailableSlot(nil, testDay, 30, at(testDay, 8, 0)); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
	p = Policy{WorkdayStart: model.NewClock(9, 0), WorkdayEnd: model.NewClock(17, 0), Buffer: -time.Minute}
	if err := p.Validate(); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for negative buffer, got %v", err)
	}
}

func TestAvailableSlots_Basic(t *testing.T) {
	p := Policy{WorkdayStart: model.NewClock(9, 0), WorkdayEnd: model.NewClock(10, 0)}
	existing := []model.Event{event(testDay, "09:15", "09:45")}

	slots, err := p.AvailableSlots(existing, testDay, 15, 15, at(testDay, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(testDay, 9, 0)) {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	if !slots[1].Start.Equal(at(testDay, 9, 45)) {
		t.Fatalf("expected second slot 09:45, got %s", slots[1].Start.Format(time.RFC3339))
	}
}

func TestAvailableSlots_BufferBlocksAdjacentStart(t *testing.T) {
	p := Policy{WorkdayStart: model.NewClock(9, 0), WorkdayEnd: model.NewClock(10, 0), Buffer: time.Minute}
	existing := []model.Event{event(testDay, "09:15", "09:45")}

	slots, err := p.AvailableSlots(existing, testDay, 15, 15, at(testDay, 0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 1 || !slots[0].Start.Equal(at(testDay, 9, 0)) {
		t.Fatalf("expected only 09:00, got %+v", slots)
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	p := Policy{WorkdayStart: model.NewClock(9, 0), WorkdayEnd: model.NewClock(10, 0)}

	now := at(testDay, 9, 31)
	slots, err := p.AvailableSlots(nil, testDay, 15, 15, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 09:00, 09:15, 09:30 start before now. 09:45 is future.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(testDay, 9, 45)) {
		t.Fatalf("expected slot 09:45, got %s", slots[0].Start.Format(time.RFC3339))
	}
}

func TestAvailableSlots_InvalidInput(t *testing.T) {
	if _, err := DefaultPolicy.AvailableSlots(nil, testDay, 0, 15, at(testDay, 8, 0)); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := DefaultPolicy.AvailableSlots(nil, testDay, 30, 0, at(testDay, 8, 0)); !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("expected ErrInvalidStep, got %v", err)
	}
}
