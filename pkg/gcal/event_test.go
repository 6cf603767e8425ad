package gcal

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tracka/pkg/model"
)

func TestBuildEvent(t *testing.T) {
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := model.Task{
		ID:          "task-1",
		Text:        "Пробежка",
		Description: "5 км в парке",
		Category:    "health",
		Priority:    "medium",
		Deadline:    &deadline,
	}

	event, err := BuildEvent(task)
	require.NoError(t, err)

	assert.Equal(t, "💪 Пробежка", event.Summary)
	assert.Equal(t, "5", event.ColorId)

	// All-day event: single date range, no time component.
	require.NotNil(t, event.Start)
	require.NotNil(t, event.End)
	assert.Equal(t, "2026-02-22", event.Start.Date)
	assert.Equal(t, "2026-02-22", event.End.Date)
	assert.Empty(t, event.Start.DateTime)

	assert.True(t, strings.HasPrefix(event.Description, "5 км в парке\n\n"))
	assert.Contains(t, event.Description, "Приоритет: Средний")
	assert.Contains(t, event.Description, "Категория: Здоровье")

	require.NotNil(t, event.ExtendedProperties)
	assert.Equal(t, "task-1", event.ExtendedProperties.Private[taskIDProperty])
}

func TestBuildEventWithoutDescription(t *testing.T) {
	deadline := civil.Date{Year: 2026, Month: 2, Day: 25}
	task := model.Task{ID: "task-2", Text: "Сделать презентацию", Category: "work", Priority: "high", Deadline: &deadline}

	event, err := BuildEvent(task)
	require.NoError(t, err)

	assert.Equal(t, "11", event.ColorId)
	assert.True(t, strings.HasPrefix(event.Description, "Приоритет: Высокий\n"))
}

func TestBuildEventRequiresDeadline(t *testing.T) {
	_, err := BuildEvent(model.Task{ID: "task-3", Text: "x", Category: "work", Priority: "low"})
	assert.ErrorIs(t, err, ErrNoDeadline)
}
