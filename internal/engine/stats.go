package engine

import (
	"fmt"
	"strings"

	"taskpilot/internal/task"
)

// stats aggregates the full task set for the productivity report.
type stats struct {
	Total      int
	Completed  int
	Pending    int
	InProgress int
	Cancelled  int
	HighOpen   int
}

func computeStats(tasks []task.Task) stats {
	var st stats
	st.Total = len(tasks)
	for _, t := range tasks {
		switch t.Status {
		case task.StatusCompleted:
			st.Completed++
		case task.StatusPending:
			st.Pending++
		case task.StatusInProgress:
			st.InProgress++
		case task.StatusCancelled:
			st.Cancelled++
		}
		if t.Priority == task.PriorityHigh && (t.Status == task.StatusPending || t.Status == task.StatusInProgress) {
			st.HighOpen++
		}
	}
	return st
}

// CompletionRate is the completed share in whole percent. An empty set
// rates zero.
func (s stats) CompletionRate() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}

// tierMessage picks the qualitative closer: 80% and up is celebratory,
// 60 to 79 positive, anything below encouraging.
func (s stats) tierMessage() string {
	rate := s.CompletionRate()
	switch {
	case rate >= 80:
		return "Outstanding! You're crushing your task list."
	case rate >= 60:
		return "Good pace. A focused push clears the rest."
	default:
		return "Every task counts. Pick one small thing and start there."
	}
}

func renderStats(s stats) string {
	if s.Total == 0 {
		return "No tasks to analyze yet. Create a few and check back."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here's where you stand: %d tasks total, %d completed (%d%%), %d pending, %d in progress",
		s.Total, s.Completed, s.CompletionRate(), s.Pending, s.InProgress)
	if s.Cancelled > 0 {
		fmt.Fprintf(&b, ", %d cancelled", s.Cancelled)
	}
	b.WriteString(".")
	if s.HighOpen > 0 {
		fmt.Fprintf(&b, " %d high priority %s still open.", s.HighOpen, pluralize(s.HighOpen, "task is", "tasks are"))
	}
	b.WriteString(" ")
	b.WriteString(s.tierMessage())
	return b.String()
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
