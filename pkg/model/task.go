package model

import (
	"cloud.google.com/go/civil"
)

// Task is a single to-do item. Deadline and CompletedAt are calendar dates
// with no time component; a nil pointer means the date is absent.
// CalendarEventID is empty unless the task is currently mirrored to
// Google Calendar.
type Task struct {
	ID              string      `json:"id" firestore:"id"`
	Owner           string      `json:"-" firestore:"owner"`
	Text            string      `json:"text" firestore:"text"`
	Description     string      `json:"description,omitempty" firestore:"description"`
	Category        string      `json:"category" firestore:"category"`
	Priority        string      `json:"priority" firestore:"priority"`
	Deadline        *civil.Date `json:"deadline,omitempty" firestore:"deadline,omitempty"`
	Done            bool        `json:"done" firestore:"done"`
	CompletedAt     *civil.Date `json:"completedAt,omitempty" firestore:"completedAt,omitempty"`
	CalendarEventID string      `json:"calendarEventId,omitempty" firestore:"calendarEventId"`
}

// Synced reports whether the task currently has a calendar event attached.
func (t Task) Synced() bool {
	return t.CalendarEventID != ""
}

// Draft holds the user-supplied fields for a new task. Everything except
// Text is optional; the store fills in defaults and generated fields.
type Draft struct {
	Text        string
	Description string
	Category    string
	Priority    string
	Deadline    *civil.Date
}

// CloneTasks returns a copy of the slice so callers can hand out snapshots
// without sharing backing arrays with the store.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
