package dateutil

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsOverdue(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 2, Day: 22}
	yesterday := today.AddDays(-1)
	tomorrow := today.AddDays(1)

	assert.False(t, IsOverdue(nil, today), "missing deadline is never overdue")
	assert.False(t, IsOverdue(&today, today), "a deadline of today is never overdue")
	assert.True(t, IsOverdue(&yesterday, today))
	assert.False(t, IsOverdue(&tomorrow, today))
}

func TestParse(t *testing.T) {
	d, err := Parse("2026-02-22")
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 2026, Month: 2, Day: 22}, d)

	_, err = Parse("22.02.2026")
	assert.Error(t, err)

	_, err = Parse("")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "22 фев", Format(civil.Date{Year: 2026, Month: 2, Day: 22}))
	assert.Equal(t, "1 янв", Format(civil.Date{Year: 2026, Month: 1, Day: 1}))
}

func TestFormatLong(t *testing.T) {
	today := civil.Date{Year: 2026, Month: 2, Day: 22}

	assert.Equal(t, "Сегодня", FormatLong(today, today))
	assert.Equal(t, "Вчера", FormatLong(today.AddDays(-1), today))
	assert.Equal(t, "19 февраля", FormatLong(civil.Date{Year: 2026, Month: 2, Day: 19}, today))
}
