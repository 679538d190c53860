package availability

import (
	"testing"

	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

var testDay = model.Date{Year: 2026, Month: 1, Day: 28}

func event(date model.Date, start, end string) model.Event {
	s, err := model.ParseClock(start)
	if err != nil {
		panic(err)
	}
	e, err := model.ParseClock(end)
	if err != nil {
		panic(err)
	}
	return model.Event{Title: start + "-" + end, Type: model.EventTypeMeeting, Date: date, StartTime: s, EndTime: e}
}

func TestIsOverlapping_BackToBack(t *testing.T) {
	a := event(testDay, "09:00", "10:00")
	b := event(testDay, "10:00", "11:00")
	if IsOverlapping(a, []model.Event{b}) {
		t.Fatal("expected back-to-back events not to overlap")
	}
	if IsOverlapping(b, []model.Event{a}) {
		t.Fatal("expected back-to-back events not to overlap (reversed)")
	}
}

func TestIsOverlapping_IdenticalIntervals(t *testing.T) {
	a := event(testDay, "09:00", "10:00")
	if !IsOverlapping(a, []model.Event{a}) {
		t.Fatal("expected identical intervals to overlap")
	}
}

func TestIsOverlapping_Containment(t *testing.T) {
	outer := event(testDay, "09:00", "12:00")
	inner := event(testDay, "10:00", "11:00")
	if !IsOverlapping(outer, []model.Event{inner}) {
		t.Fatal("expected containing event to overlap")
	}
	if !IsOverlapping(inner, []model.Event{outer}) {
		t.Fatal("expected contained event to overlap")
	}
}

func TestIsOverlapping_CrossDay(t *testing.T) {
	a := event(testDay, "09:00", "10:00")
	b := event(testDay.AddDays(1), "09:00", "10:00")
	if IsOverlapping(a, []model.Event{b}) {
		t.Fatal("expected events on different days not to overlap")
	}
}

func TestIsOverlapping_PartialAndScan(t *testing.T) {
	existing := []model.Event{
		event(testDay, "08:00", "09:00"),
		event(testDay, "13:00", "14:00"),
		event(testDay, "10:30", "11:30"),
	}
	if !IsOverlapping(event(testDay, "11:00", "12:00"), existing) {
		t.Fatal("expected partial overlap with 10:30-11:30")
	}
	if IsOverlapping(event(testDay, "11:30", "13:00"), existing) {
		t.Fatal("expected gap 11:30-13:00 to be free")
	}
	if IsOverlapping(event(testDay, "09:00", "10:00"), nil) {
		t.Fatal("expected no overlap against an empty day")
	}
}

func TestIsOverlapping_Symmetric(t *testing.T) {
	clocks := []string{"09:00", "09:30", "10:00", "10:30", "11:00"}
	var all []model.Event
	for i := range clocks {
		for j := i + 1; j < len(clocks); j++ {
			all = append(all, event(testDay, clocks[i], clocks[j]))
		}
	}
	for _, a := range all {
		for _, b := range all {
			if IsOverlapping(a, []model.Event{b}) != IsOverlapping(b, []model.Event{a}) {
				t.Fatalf("asymmetric result for %s vs %s", a.Title, b.Title)
			}
		}
	}
}

func TestConflicts(t *testing.T) {
	existing := []model.Event{
		event(testDay, "09:00", "10:00"),
		event(testDay, "10:00", "11:00"),
		event(testDay.AddDays(1), "09:30", "10:30"),
	}
	got := Conflicts(event(testDay, "09:30", "10:30"), existing)
	if len(got) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(got))
	}
	if got[0].Title != "09:00-10:00" || got[1].Title != "10:00-11:00" {
		t.Fatalf("unexpected conflicts: %+v", got)
	}
}
