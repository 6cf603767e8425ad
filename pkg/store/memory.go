package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/harrisonrobin/tracka/pkg/dateutil"
	"github.com/harrisonrobin/tracka/pkg/logging"
	"github.com/harrisonrobin/tracka/pkg/model"
)

// MemoryStore is the local-only Store variant. When constructed with a path
// it loads the task list from that JSON file and writes it back after every
// mutation, so the list survives restarts without any backend.
type MemoryStore struct {
	mu     sync.Mutex
	tasks  []model.Task
	path   string
	dirty  bool
	n      notifier
	logger *slog.Logger
}

// NewMemoryStore creates a local store. path may be empty for a purely
// in-memory list (tests, throwaway sessions).
func NewMemoryStore(path string, logger *slog.Logger) (*MemoryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MemoryStore{path: path, logger: logger}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MemoryStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open task file: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&s.tasks); err != nil {
		return fmt.Errorf("decode task file %s: %w", s.path, err)
	}
	return nil
}

// save writes the list back to disk. Callers hold s.mu.
func (s *MemoryStore) save() {
	if s.path == "" || !s.dirty {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		s.logger.Error("create task dir", logging.Err(err))
		return
	}
	f, err := os.Create(s.path)
	if err != nil {
		s.logger.Error("write task file", logging.Err(err))
		return
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.tasks); err != nil {
		s.logger.Error("encode task file", logging.Err(err))
		return
	}
	s.dirty = false
}

func (s *MemoryStore) Create(_ context.Context, draft model.Draft) (model.Task, error) {
	task, err := newTask(draft)
	if err != nil {
		return model.Task{}, err
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.dirty = true
	s.save()
	snap := model.CloneTasks(s.tasks)
	s.mu.Unlock()
	s.n.publish(snap)
	return task, nil
}

func (s *MemoryStore) ToggleDone(_ context.Context, id string) error {
	s.mu.Lock()
	changed := false
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		t := &s.tasks[i]
		t.Done = !t.Done
		if t.Done {
			today := dateutil.Today()
			t.CompletedAt = &today
		} else {
			t.CompletedAt = nil
		}
		changed = true
		break
	}
	var snap []model.Task
	if changed {
		s.dirty = true
		s.save()
		snap = model.CloneTasks(s.tasks)
	}
	s.mu.Unlock()
	if changed {
		s.n.publish(snap)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	kept := s.tasks[:0]
	changed := false
	for _, t := range s.tasks {
		if t.ID == id {
			changed = true
			continue
		}
		kept = append(kept, t)
	}
	s.tasks = kept
	var snap []model.Task
	if changed {
		s.dirty = true
		s.save()
		snap = model.CloneTasks(s.tasks)
	}
	s.mu.Unlock()
	if changed {
		s.n.publish(snap)
	}
	return nil
}

func (s *MemoryStore) SetCalendarEventID(_ context.Context, id, eventID string) error {
	s.mu.Lock()
	changed := false
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		if s.tasks[i].CalendarEventID != eventID {
			s.tasks[i].CalendarEventID = eventID
			changed = true
		}
		break
	}
	var snap []model.Task
	if changed {
		s.dirty = true
		s.save()
		snap = model.CloneTasks(s.tasks)
	}
	s.mu.Unlock()
	if changed {
		s.n.publish(snap)
	}
	return nil
}

func (s *MemoryStore) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneTasks(s.tasks)
}

func (s *MemoryStore) Subscribe() <-chan []model.Task {
	return s.n.subscribe()
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.save()
	s.mu.Unlock()
	s.n.close()
	return nil
}
