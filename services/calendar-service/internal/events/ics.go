package events

import (
	"context"

	ics "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

const icsProductID = "-//dayplanner//calendar-service//EN"

// ExportICS renders events as an iCalendar document. A nil day exports
// every event.
func (s *Service) ExportICS(ctx context.Context, day *model.Date) (string, error) {
	var (
		events []model.Event
		err    error
	)
	if day != nil {
		events, err = s.ListByDate(ctx, *day)
	} else {
		events, err = s.List(ctx)
	}
	if err != nil {
		return "", err
	}
	return renderICS(events, s), nil
}

func renderICS(events []model.Event, s *Service) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	stamp := s.Now()
	for _, e := range events {
		ve := cal.AddEvent(e.ID + "@dayplanner")
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.Start(s.loc))
		ve.SetEndAt(e.End(s.loc))
		ve.SetSummary(e.Title)
		ve.SetProperty(ics.ComponentPropertyCategories, string(e.Type))
	}
	return cal.Serialize()
}
