package gcal

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tracka/pkg/model"
	"github.com/harrisonrobin/tracka/pkg/taxonomy"
)

// ErrNoDeadline is returned when a task without a deadline is pushed.
var ErrNoDeadline = errors.New("task has no deadline")

// taskIDProperty keys the private extended property linking an event back to
// the task it was created from.
const taskIDProperty = "tracka_id"

// BuildEvent converts a task into the all-day event mirrored to the
// calendar: single-date range on the deadline, category emoji in the title,
// priority mapped to the event color.
func BuildEvent(t model.Task) (*calendar.Event, error) {
	if t.Deadline == nil {
		return nil, ErrNoDeadline
	}

	c, _ := taxonomy.CategoryByID(t.Category)
	p, _ := taxonomy.PriorityByID(t.Priority)

	summary := t.Text
	if c.Emoji != "" {
		summary = fmt.Sprintf("%s %s", c.Emoji, t.Text)
	}

	var desc strings.Builder
	if t.Description != "" {
		desc.WriteString(t.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Приоритет: %s\n", p.Label)
	fmt.Fprintf(&desc, "Категория: %s\n\n", c.Label)
	desc.WriteString("Добавлено из Task Tracker")

	date := t.Deadline.String()
	return &calendar.Event{
		Summary:     summary,
		Description: desc.String(),
		ColorId:     taxonomy.CalendarColorID(t.Priority),
		Start:       &calendar.EventDateTime{Date: date},
		End:         &calendar.EventDateTime{Date: date},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{taskIDProperty: t.ID},
		},
	}, nil
}
