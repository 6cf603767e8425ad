package advisory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardExpiry(t *testing.T) {
	now := time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)
	b := NewBoard(3 * time.Second)
	b.now = func() time.Time { return now }

	b.Success("Добавлено в Google Calendar! 📅")
	b.Warn("Сессия истекла")

	msgs := b.Active()
	require.Len(t, msgs, 2)
	assert.Equal(t, Success, msgs[0].Kind)
	assert.Equal(t, Error, msgs[1].Kind)

	now = now.Add(2 * time.Second)
	assert.Len(t, b.Active(), 2, "messages inside the TTL stay visible")

	now = now.Add(2 * time.Second)
	assert.Empty(t, b.Active(), "messages auto-dismiss after the TTL")
}

func TestBoardDefaultTTL(t *testing.T) {
	b := NewBoard(0)
	assert.Equal(t, DefaultTTL, b.ttl)
}
