package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/harrisonrobin/tracka/pkg/dateutil"
	"github.com/harrisonrobin/tracka/pkg/logging"
	"github.com/harrisonrobin/tracka/pkg/model"
)

const taskCollection = "tasks"

// FirestoreStore is the remote-persisted Store variant. Mutations are
// applied against the owner's partition of the task collection; the local
// list is updated only when the snapshot listener delivers the authoritative
// state back, so a successful write shows up via the same path as a write
// made from another device.
type FirestoreStore struct {
	client *firestore.Client
	col    *firestore.CollectionRef
	owner  string
	logger *slog.Logger

	mu    sync.Mutex
	tasks []model.Task
	n     notifier

	cancel context.CancelFunc
	done   chan struct{}
}

// OpenFirestore connects to the project's task collection and starts the
// snapshot listener for the given owner. Owner is the authenticated user's
// stable identity (email) and scopes every query and document.
func OpenFirestore(ctx context.Context, projectID, owner string, logger *slog.Logger) (*FirestoreStore, error) {
	if owner == "" {
		return nil, errors.New("firestore store requires a signed-in owner")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("connect to firestore: %w", err)
	}

	s := &FirestoreStore{
		client: client,
		col:    client.Collection(taskCollection),
		owner:  owner,
		logger: logger,
		done:   make(chan struct{}),
	}

	// The listener outlives the opening call; it stops on Close.
	lctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.listen(lctx)
	return s, nil
}

func (s *FirestoreStore) listen(ctx context.Context) {
	defer close(s.done)
	snaps := s.col.Where("owner", "==", s.owner).Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error("task subscription failed", logging.Err(err))
			return
		}
		tasks, err := decodeSnapshot(snap)
		if err != nil {
			s.logger.Error("decode task snapshot", logging.Err(err))
			continue
		}
		s.mu.Lock()
		s.tasks = tasks
		snapCopy := model.CloneTasks(tasks)
		s.mu.Unlock()
		s.n.publish(snapCopy)
	}
}

func decodeSnapshot(snap *firestore.QuerySnapshot) ([]model.Task, error) {
	var tasks []model.Task
	for {
		doc, err := snap.Documents.Next()
		if err == iterator.Done {
			return tasks, nil
		}
		if err != nil {
			return nil, err
		}
		var t model.Task
		if err := doc.DataTo(&t); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.Ref.ID, err)
		}
		t.ID = doc.Ref.ID
		tasks = append(tasks, t)
	}
}

func (s *FirestoreStore) Create(ctx context.Context, draft model.Draft) (model.Task, error) {
	task, err := newTask(draft)
	if err != nil {
		return model.Task{}, err
	}
	task.Owner = s.owner
	if _, err := s.col.Doc(task.ID).Set(ctx, task); err != nil {
		return model.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *FirestoreStore) ToggleDone(ctx context.Context, id string) error {
	current, ok := s.find(id)
	if !ok {
		return nil
	}
	updates := []firestore.Update{{Path: "done", Value: !current.Done}}
	if current.Done {
		updates = append(updates, firestore.Update{Path: "completedAt", Value: firestore.Delete})
	} else {
		today := dateutil.Today()
		updates = append(updates, firestore.Update{Path: "completedAt", Value: today})
	}
	if _, err := s.col.Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("toggle task %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col.Doc(id).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	updates := []firestore.Update{{Path: "calendarEventId", Value: eventID}}
	if _, err := s.col.Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) find(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (s *FirestoreStore) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneTasks(s.tasks)
}

func (s *FirestoreStore) Subscribe() <-chan []model.Task {
	return s.n.subscribe()
}

func (s *FirestoreStore) Close() error {
	s.cancel()
	<-s.done
	s.n.close()
	return s.client.Close()
}
