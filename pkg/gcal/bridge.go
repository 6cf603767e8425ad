// Package gcal is the bridge between the task store and Google Calendar:
// pushing deadline tasks as all-day events, removing them again, and
// recording the resulting event id on the task.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"cloud.google.com/go/civil"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/tracka/pkg/advisory"
	"github.com/harrisonrobin/tracka/pkg/dateutil"
	"github.com/harrisonrobin/tracka/pkg/logging"
	"github.com/harrisonrobin/tracka/pkg/model"
	"github.com/harrisonrobin/tracka/pkg/session"
)

// ErrSyncInFlight is returned when a push or removal is already running for
// the same task.
var ErrSyncInFlight = errors.New("sync already in progress for this task")

// EventsAPI is the slice of the Calendar API the bridge uses.
type EventsAPI interface {
	Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
	Patch(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, eventID string) error
}

// EventRecorder records sync results on the task. The store tolerates
// unknown ids, so a result landing after a local delete is a harmless no-op.
type EventRecorder interface {
	SetCalendarEventID(ctx context.Context, id, eventID string) error
}

type Bridge struct {
	api    EventsAPI
	rec    EventRecorder
	sess   *session.Session
	board  *advisory.Board
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

func New(api EventsAPI, rec EventRecorder, sess *session.Session, board *advisory.Board, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		api:      api,
		rec:      rec,
		sess:     sess,
		board:    board,
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// Syncing reports whether an operation is in flight for the task.
func (b *Bridge) Syncing(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight[id]
}

func (b *Bridge) begin(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight[id] {
		return false
	}
	b.inFlight[id] = true
	return true
}

func (b *Bridge) end(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, id)
}

// Push mirrors the task as an all-day event on its deadline date. It
// requires a signed-in session and a deadline; either missing precondition
// posts a warning and performs no network call.
func (b *Bridge) Push(ctx context.Context, t model.Task) error {
	if !b.sess.SignedIn() {
		b.board.Warn("Сначала войди в Google")
		return session.ErrSignedOut
	}
	if t.Deadline == nil {
		b.board.Warn("Добавь дедлайн к задаче")
		return ErrNoDeadline
	}
	if !b.begin(t.ID) {
		return ErrSyncInFlight
	}
	defer b.end(t.ID)

	event, err := BuildEvent(t)
	if err != nil {
		return err
	}
	created, err := b.api.Insert(ctx, event)
	if err != nil {
		if unauthorized(err) {
			b.sess.Invalidate()
			b.board.Warn("Сессия истекла")
			return fmt.Errorf("calendar push unauthorized: %w", err)
		}
		b.board.Warn("Ошибка при добавлении")
		return fmt.Errorf("calendar push failed: %w", err)
	}

	if err := b.rec.SetCalendarEventID(ctx, t.ID, created.Id); err != nil {
		b.logger.Error("could not record event id", logging.TaskID(t.ID), logging.Err(err))
	}
	b.logger.Debug("event created", logging.TaskID(t.ID), logging.EventID(created.Id))
	b.board.Success("Добавлено в Google Calendar! 📅")
	return nil
}

// Remove deletes the task's calendar event and clears the recorded id. It is
// a no-op when the session is gone or the task has no event.
func (b *Bridge) Remove(ctx context.Context, t model.Task) error {
	if !b.sess.SignedIn() || !t.Synced() {
		return nil
	}
	if !b.begin(t.ID) {
		return ErrSyncInFlight
	}
	defer b.end(t.ID)

	if err := b.api.Delete(ctx, t.CalendarEventID); err != nil {
		if unauthorized(err) {
			b.sess.Invalidate()
			b.board.Warn("Сессия истекла")
			return fmt.Errorf("calendar removal unauthorized: %w", err)
		}
		b.board.Warn("Ошибка при удалении")
		return fmt.Errorf("calendar removal failed: %w", err)
	}

	if err := b.rec.SetCalendarEventID(ctx, t.ID, ""); err != nil {
		b.logger.Error("could not clear event id", logging.TaskID(t.ID), logging.Err(err))
	}
	b.board.Success("Удалено из Google Calendar")
	return nil
}

// SweepOverdue patches a warning prefix onto the events of synced, still
// active tasks whose deadline has passed. Returns the number of events
// patched. The patch recomputes the full summary, so repeated sweeps are
// idempotent.
func (b *Bridge) SweepOverdue(ctx context.Context, tasks []model.Task, today civil.Date) int {
	patched := 0
	for _, t := range tasks {
		if !t.Synced() || t.Done || !dateutil.IsOverdue(t.Deadline, today) {
			continue
		}
		event, err := BuildEvent(t)
		if err != nil {
			continue
		}
		patch := &calendar.Event{Summary: "⚠ " + event.Summary}
		if _, err := b.api.Patch(ctx, t.CalendarEventID, patch); err != nil {
			b.logger.Error("sweep: could not patch event", logging.EventID(t.CalendarEventID), logging.Err(err))
			continue
		}
		patched++
	}
	return patched
}

func unauthorized(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized
}

// calendarAPI is the production EventsAPI on top of the Calendar service.
type calendarAPI struct {
	svc        *calendar.Service
	calendarID string
}

// NewAPI builds the Calendar events client from the session's credential.
// calendarID may be empty, which targets the user's primary calendar.
func NewAPI(ctx context.Context, sess *session.Session, calendarID string) (EventsAPI, error) {
	client, err := sess.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &calendarAPI{svc: svc, calendarID: calendarID}, nil
}

func (c *calendarAPI) Insert(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
}

func (c *calendarAPI) Patch(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.svc.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *calendarAPI) Delete(ctx context.Context, eventID string) error {
	return c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}
