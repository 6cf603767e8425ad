// Package store owns the canonical task list. Two implementations exist:
// MemoryStore keeps the list in process (optionally persisted to a JSON
// file), FirestoreStore mirrors every mutation to a per-user Firestore
// partition and feeds local state exclusively from a snapshot listener.
// Either way, every subscription delivery is the complete current task list,
// never a delta.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harrisonrobin/tracka/pkg/model"
	"github.com/harrisonrobin/tracka/pkg/taxonomy"
)

var (
	ErrEmptyText   = errors.New("task text is empty")
	ErrBadCategory = errors.New("unknown category")
	ErrBadPriority = errors.New("unknown priority")
)

// Store is the mutation surface for the task list. Unknown ids are silently
// ignored by ToggleDone, Delete and SetCalendarEventID so that stale
// responses arriving after a local delete land harmlessly.
type Store interface {
	Create(ctx context.Context, draft model.Draft) (model.Task, error)
	ToggleDone(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	// SetCalendarEventID is called by the calendar bridge after a successful
	// push (non-empty id) or removal (empty id).
	SetCalendarEventID(ctx context.Context, id, eventID string) error
	// Tasks returns the current local snapshot.
	Tasks() []model.Task
	// Subscribe returns a channel of full task-list snapshots. Each delivery
	// replaces any prior state the consumer holds.
	Subscribe() <-chan []model.Task
	Close() error
}

// newTask validates a draft and builds the task record with defaults and a
// fresh id. Text is trimmed and must be non-empty.
func newTask(draft model.Draft) (model.Task, error) {
	text := strings.TrimSpace(draft.Text)
	if text == "" {
		return model.Task{}, ErrEmptyText
	}

	category := draft.Category
	if category == "" {
		category = taxonomy.DefaultCategory
	}
	if !taxonomy.ValidCategory(category) {
		return model.Task{}, ErrBadCategory
	}

	priority := draft.Priority
	if priority == "" {
		priority = taxonomy.DefaultPriority
	}
	if !taxonomy.ValidPriority(priority) {
		return model.Task{}, ErrBadPriority
	}

	return model.Task{
		ID:          uuid.NewString(),
		Text:        text,
		Description: strings.TrimSpace(draft.Description),
		Category:    category,
		Priority:    priority,
		Deadline:    draft.Deadline,
	}, nil
}

// notifier fans full snapshots out to subscribers. Channels are buffered
// with capacity one and a pending snapshot is replaced rather than queued:
// a slow consumer always wakes up to the latest complete list.
type notifier struct {
	mu     sync.Mutex
	subs   []chan []model.Task
	closed bool
}

func (n *notifier) subscribe() <-chan []model.Task {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan []model.Task, 1)
	if n.closed {
		close(ch)
		return ch
	}
	n.subs = append(n.subs, ch)
	return ch
}

func (n *notifier) publish(tasks []model.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	for _, ch := range n.subs {
		select {
		case <-ch:
		default:
		}
		ch <- model.CloneTasks(tasks)
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for _, ch := range n.subs {
		close(ch)
	}
	n.subs = nil
}
