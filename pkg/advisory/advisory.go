// Package advisory implements the transient user-visible notifications the
// rest of the system reports outcomes through. Messages auto-expire after a
// fixed interval and never block anything.
package advisory

import (
	"sync"
	"time"
)

type Kind int

const (
	Success Kind = iota
	Error
)

// DefaultTTL matches the auto-dismiss interval of the UI toasts.
const DefaultTTL = 3 * time.Second

type Message struct {
	Text string
	Kind Kind
	At   time.Time
}

// Board collects advisory messages and drops them once they expire.
type Board struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	msgs []Message
}

func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl, now: time.Now}
}

// Post publishes a message.
func (b *Board) Post(kind Kind, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, Message{Text: text, Kind: kind, At: b.now()})
}

// Success posts a success message.
func (b *Board) Success(text string) { b.Post(Success, text) }

// Warn posts an error message.
func (b *Board) Warn(text string) { b.Post(Error, text) }

// Active returns the not-yet-expired messages, pruning the rest.
func (b *Board) Active() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-b.ttl)
	live := b.msgs[:0]
	for _, m := range b.msgs {
		if m.At.After(cutoff) {
			live = append(live, m)
		}
	}
	b.msgs = live
	out := make([]Message, len(live))
	copy(out, live)
	return out
}
