package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dayplanner/services/calendar-service/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return model.EventType(fl.Field().String()).Valid()
	})
	return v
}

type eventInput struct {
	Title     string `validate:"required,max=200"`
	Type      string `validate:"required,event_type"`
	Date      string `validate:"required,datetime=2006-01-02"`
	StartTime int    `validate:"min=0,max=1439"`
	EndTime   int    `validate:"max=1439,gtfield=StartTime"`
}

// validateEvent checks the fields of ev and returns an ErrInvalidEvent
// describing the first problem.
func validateEvent(ev model.Event) error {
	in := eventInput{
		Title:     ev.Title,
		Type:      string(ev.Type),
		Date:      ev.Date.String(),
		StartTime: int(ev.StartTime),
		EndTime:   int(ev.EndTime),
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidEvent, describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "event_type":
		types := make([]string, 0, len(model.EventTypes))
		for _, t := range model.EventTypes {
			types = append(types, string(t))
		}
		return fmt.Sprintf("type must be one of %s", strings.Join(types, ", "))
	case "gtfield":
		return "endTime must be after startTime"
	case "datetime":
		return "date must be YYYY-MM-DD"
	case "max":
		if field == "title" {
			return "title is too long"
		}
		return field + " is out of range"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
