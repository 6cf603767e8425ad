// Package view derives everything the presentation layer renders from the
// task list and the current filters. Derivation is pure: same inputs, same
// output, no store access.
package view

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/harrisonrobin/tracka/pkg/dateutil"
	"github.com/harrisonrobin/tracka/pkg/model"
	"github.com/harrisonrobin/tracka/pkg/taxonomy"
)

// Metric selects what the third summary counter counts. The local-only UI
// counts calendar-synced tasks, the backend-persisted one counts all
// completed tasks; both are supported and chosen by configuration.
type Metric string

const (
	MetricSynced    Metric = "synced"
	MetricCompleted Metric = "completed"
)

type Stats struct {
	Active  int // tasks with done=false
	Urgent  int // active tasks with high priority
	Tracked int // synced or completed count, per Metric
}

// Group is one archive bucket: the tasks completed on Date. A nil Date is
// the bucket for completed tasks without a completion date.
type Group struct {
	Date  *civil.Date
	Tasks []model.Task
}

// Model is the fully derived view state.
type Model struct {
	Active  []model.Task
	Done    []model.Task
	Archive []Group // most recent date first, dateless bucket last
	Stats   Stats
}

// Derive computes the view for the given filters. filter and archiveFilter
// are a category id or taxonomy.FilterAll.
func Derive(tasks []model.Task, filter, archiveFilter string, metric Metric) Model {
	var m Model
	for _, t := range tasks {
		if !t.Done {
			m.Stats.Active++
			if t.Priority == taxonomy.PriorityHigh {
				m.Stats.Urgent++
			}
			if matches(t, filter) {
				m.Active = append(m.Active, t)
			}
		} else if matches(t, archiveFilter) {
			m.Done = append(m.Done, t)
		}

		switch metric {
		case MetricCompleted:
			if t.Done {
				m.Stats.Tracked++
			}
		default:
			if t.Synced() {
				m.Stats.Tracked++
			}
		}
	}
	m.Archive = groupByCompletion(m.Done)
	return m
}

func matches(t model.Task, filter string) bool {
	return filter == "" || filter == taxonomy.FilterAll || t.Category == filter
}

// groupByCompletion partitions completed tasks by completion date, most
// recent first. Dates order by their string form (YYYY-MM-DD), which matches
// chronological order.
func groupByCompletion(done []model.Task) []Group {
	byDate := make(map[civil.Date][]model.Task)
	var dateless []model.Task
	for _, t := range done {
		if t.CompletedAt == nil {
			dateless = append(dateless, t)
			continue
		}
		byDate[*t.CompletedAt] = append(byDate[*t.CompletedAt], t)
	}

	dates := make([]civil.Date, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].String() > dates[j].String()
	})

	var groups []Group
	for _, d := range dates {
		d := d
		groups = append(groups, Group{Date: &d, Tasks: byDate[d]})
	}
	if len(dateless) > 0 {
		groups = append(groups, Group{Tasks: dateless})
	}
	return groups
}

// IsOverdue reports whether the task's deadline has passed, by calendar date
// only. Completed tasks are never overdue.
func IsOverdue(t model.Task, today civil.Date) bool {
	if t.Done {
		return false
	}
	return dateutil.IsOverdue(t.Deadline, today)
}
