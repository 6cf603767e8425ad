package gcal

import (
	"context"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/tracka/pkg/advisory"
	"github.com/harrisonrobin/tracka/pkg/model"
	"github.com/harrisonrobin/tracka/pkg/session"
	"github.com/harrisonrobin/tracka/pkg/store"
)

type stubFlow struct{}

func (stubFlow) Authorize(context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "test-token"}, nil
}

func (stubFlow) Identify(context.Context, *oauth2.Token) (session.Identity, error) {
	return session.Identity{Name: "Тест", Email: "test@example.com"}, nil
}

func (stubFlow) Client(context.Context, *oauth2.Token) (*http.Client, error) {
	return http.DefaultClient, nil
}

func (stubFlow) Revoke() error { return nil }

type fakeAPI struct {
	insertErr error
	deleteErr error
	inserted  []*calendar.Event
	patched   map[string]*calendar.Event
	deleted   []string
	nextID    string
}

func (f *fakeAPI) Insert(_ context.Context, event *calendar.Event) (*calendar.Event, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, event)
	created := *event
	created.Id = f.nextID
	if created.Id == "" {
		created.Id = "evt-1"
	}
	return &created, nil
}

func (f *fakeAPI) Patch(_ context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	if f.patched == nil {
		f.patched = make(map[string]*calendar.Event)
	}
	f.patched[eventID] = patch
	return patch, nil
}

func (f *fakeAPI) Delete(_ context.Context, eventID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fixture struct {
	api    *fakeAPI
	st     *store.MemoryStore
	sess   *session.Session
	board  *advisory.Board
	bridge *Bridge
}

func newFixture(t *testing.T, signedIn bool) *fixture {
	t.Helper()
	st, err := store.NewMemoryStore("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sess := session.New(nil, session.WithFlow(stubFlow{}))
	if signedIn {
		_, err := sess.SignIn(context.Background())
		require.NoError(t, err)
	}

	api := &fakeAPI{}
	board := advisory.NewBoard(time.Minute)
	return &fixture{
		api:    api,
		st:     st,
		sess:   sess,
		board:  board,
		bridge: New(api, st, sess, board, nil),
	}
}

func (f *fixture) createTask(t *testing.T, draft model.Draft) model.Task {
	t.Helper()
	task, err := f.st.Create(context.Background(), draft)
	require.NoError(t, err)
	return task
}

func advisoryTexts(b *advisory.Board) []string {
	var texts []string
	for _, m := range b.Active() {
		texts = append(texts, m.Text)
	}
	return texts
}

func TestPushAndRemove(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := f.createTask(t, model.Draft{Text: "Пробежка", Deadline: &deadline, Priority: "medium"})

	require.NoError(t, f.bridge.Push(ctx, task))
	got := f.st.Tasks()[0]
	assert.Equal(t, "evt-1", got.CalendarEventID)
	require.Len(t, f.api.inserted, 1)

	require.NoError(t, f.bridge.Remove(ctx, got))
	assert.False(t, f.st.Tasks()[0].Synced())
	assert.Equal(t, []string{"evt-1"}, f.api.deleted)
}

func TestPushRequiresDeadline(t *testing.T) {
	f := newFixture(t, true)
	task := f.createTask(t, model.Draft{Text: "Без дедлайна"})

	err := f.bridge.Push(context.Background(), task)
	assert.ErrorIs(t, err, ErrNoDeadline)
	assert.Empty(t, f.api.inserted, "no network call happens")
	assert.False(t, f.st.Tasks()[0].Synced())
	assert.Contains(t, advisoryTexts(f.board), "Добавь дедлайн к задаче")
}

func TestPushRequiresSession(t *testing.T) {
	f := newFixture(t, false)
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := f.createTask(t, model.Draft{Text: "x", Deadline: &deadline})

	err := f.bridge.Push(context.Background(), task)
	assert.ErrorIs(t, err, session.ErrSignedOut)
	assert.Empty(t, f.api.inserted)
	assert.Contains(t, advisoryTexts(f.board), "Сначала войди в Google")
}

func TestPushUnauthorizedInvalidatesSession(t *testing.T) {
	f := newFixture(t, true)
	f.api.insertErr = &googleapi.Error{Code: http.StatusUnauthorized}
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := f.createTask(t, model.Draft{Text: "x", Deadline: &deadline})

	err := f.bridge.Push(context.Background(), task)
	require.Error(t, err)
	assert.False(t, f.sess.SignedIn(), "a 401 forces sign-out")
	assert.Nil(t, f.sess.Current())
	assert.False(t, f.st.Tasks()[0].Synced(), "calendarEventId is left untouched")
	assert.Contains(t, advisoryTexts(f.board), "Сессия истекла")
}

func TestPushGenericFailureChangesNothing(t *testing.T) {
	f := newFixture(t, true)
	f.api.insertErr = &googleapi.Error{Code: http.StatusInternalServerError}
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := f.createTask(t, model.Draft{Text: "x", Deadline: &deadline})

	err := f.bridge.Push(context.Background(), task)
	require.Error(t, err)
	assert.True(t, f.sess.SignedIn(), "only 401 invalidates the session")
	assert.False(t, f.st.Tasks()[0].Synced())
	assert.Contains(t, advisoryTexts(f.board), "Ошибка при добавлении")
}

func TestRemoveWithoutEventIsNoop(t *testing.T) {
	f := newFixture(t, true)
	task := f.createTask(t, model.Draft{Text: "x"})

	require.NoError(t, f.bridge.Remove(context.Background(), task))
	assert.Empty(t, f.api.deleted)
}

func TestRemoveFailureKeepsEventID(t *testing.T) {
	f := newFixture(t, true)
	f.api.deleteErr = &googleapi.Error{Code: http.StatusBadGateway}
	task := f.createTask(t, model.Draft{Text: "x"})
	ctx := context.Background()
	require.NoError(t, f.st.SetCalendarEventID(ctx, task.ID, "evt-9"))
	task.CalendarEventID = "evt-9"

	err := f.bridge.Remove(ctx, task)
	require.Error(t, err)
	assert.Equal(t, "evt-9", f.st.Tasks()[0].CalendarEventID)
	assert.Contains(t, advisoryTexts(f.board), "Ошибка при удалении")
}

func TestOnlyOneOperationInFlightPerTask(t *testing.T) {
	f := newFixture(t, true)
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := f.createTask(t, model.Draft{Text: "x", Deadline: &deadline})

	f.bridge.mu.Lock()
	f.bridge.inFlight[task.ID] = true
	f.bridge.mu.Unlock()
	assert.True(t, f.bridge.Syncing(task.ID))

	err := f.bridge.Push(context.Background(), task)
	assert.ErrorIs(t, err, ErrSyncInFlight)
	assert.Empty(t, f.api.inserted)

	err = f.bridge.Remove(context.Background(), model.Task{ID: task.ID, CalendarEventID: "evt-1"})
	assert.ErrorIs(t, err, ErrSyncInFlight)
}

func TestStaleResultAfterDeleteIsTolerated(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	deadline := civil.Date{Year: 2026, Month: 2, Day: 22}
	task := f.createTask(t, model.Draft{Text: "x", Deadline: &deadline})

	// The task vanishes while the push is conceptually in flight; the
	// recorded result lands on a missing id without error.
	require.NoError(t, f.st.Delete(ctx, task.ID))
	require.NoError(t, f.bridge.Push(ctx, task))
	assert.Empty(t, f.st.Tasks())
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	today := civil.Date{Year: 2026, Month: 2, Day: 22}
	past := today.AddDays(-2)
	future := today.AddDays(2)

	tasks := []model.Task{
		{ID: "1", Text: "просрочена", Category: "work", Priority: "high", Deadline: &past, CalendarEventID: "evt-late"},
		{ID: "2", Text: "в срок", Category: "work", Priority: "low", Deadline: &future, CalendarEventID: "evt-ok"},
		{ID: "3", Text: "не в календаре", Category: "work", Priority: "low", Deadline: &past},
		{ID: "4", Text: "сделана", Category: "work", Priority: "low", Deadline: &past, Done: true, CalendarEventID: "evt-done"},
	}

	n := f.bridge.SweepOverdue(ctx, tasks, today)
	assert.Equal(t, 1, n)
	require.Contains(t, f.api.patched, "evt-late")
	assert.Equal(t, "⚠ 💼 просрочена", f.api.patched["evt-late"].Summary)
	assert.NotContains(t, f.api.patched, "evt-ok")
	assert.NotContains(t, f.api.patched, "evt-done")
}
