package model

import "time"

type EventType string

const (
	EventTypeReminder    EventType = "REMINDER"
	EventTypeMeeting     EventType = "MEETING"
	EventTypeTask        EventType = "TASK"
	EventTypeOutOfOffice EventType = "OOO"
)

// EventTypes lists every accepted event category in display order.
var EventTypes = []EventType{EventTypeReminder, EventTypeMeeting, EventTypeTask, EventTypeOutOfOffice}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is a time-boxed entry on a single calendar day. ID is empty until the
// event has been persisted.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	Type      EventType `json:"type"`
	Date      Date      `json:"date"`
	StartTime Clock     `json:"startTime"`
	EndTime   Clock     `json:"endTime"`
}

// Start returns the absolute start of the event in loc.
func (e Event) Start(loc *time.Location) time.Time {
	return e.Date.At(e.StartTime, loc)
}

// End returns the absolute end of the event in loc.
func (e Event) End(loc *time.Location) time.Time {
	return e.Date.At(e.EndTime, loc)
}

func (e Event) Duration() time.Duration {
	return time.Duration(e.EndTime-e.StartTime) * time.Minute
}
