// Package schedule implements the pure ordering and classification used to
// present tasks by urgency. Nothing here mutates a store or talks to a
// capability; both the interactive schedule intent and the periodic
// workflows call into these functions.
package schedule

import (
	"sort"
	"time"

	"taskpilot/internal/task"
)

// Order returns the tasks sorted for presentation: priority rank ascending
// (high before medium before low), then due date ascending with undated
// tasks after all dated ones. The sort is stable, so ties keep the input
// (store) order. The input slice is not modified.
func Order(tasks []task.Task) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		switch {
		case a.DueDate == nil:
			return false
		case b.DueDate == nil:
			return true
		default:
			return a.DueDate.Before(*b.DueDate)
		}
	})
	return out
}

// DaysUntilDue returns the whole 24h periods between now and the due date,
// truncated toward zero for future dates and negative for past ones.
// ok is false for unscheduled tasks.
func DaysUntilDue(t task.Task, now time.Time) (days int, ok bool) {
	if t.DueDate == nil {
		return 0, false
	}
	return int(t.DueDate.Sub(now).Hours() / 24), true
}

// AgeDays returns the whole days elapsed since the task was created.
func AgeDays(t task.Task, now time.Time) int {
	return int(now.Sub(t.CreatedAt).Hours() / 24)
}

// Buckets groups tasks by due-date proximity for advisory rendering.
type Buckets struct {
	Overdue     []task.Task
	DueTomorrow []task.Task
	DueSoon     []task.Task
}

// Classify assigns each dated task to at most one bucket. The thresholds
// are exact: overdue means the due date is before now; due-tomorrow means
// 0 <= days-until-due <= 1; due-soon means 2 <= days-until-due <= 3.
// Undated tasks and tasks further out belong to no bucket. Input order is
// preserved within each bucket, so callers wanting urgency order pass the
// output of Order.
func Classify(tasks []task.Task, now time.Time) Buckets {
	var b Buckets
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(now) {
			b.Overdue = append(b.Overdue, t)
			continue
		}
		days, _ := DaysUntilDue(t, now)
		switch {
		case days >= 0 && days <= 1:
			b.DueTomorrow = append(b.DueTomorrow, t)
		case days >= 2 && days <= 3:
			b.DueSoon = append(b.DueSoon, t)
		}
	}
	return b
}
