package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskpilot/internal/task"
)

func statusTask(status task.Status, priority task.Priority) task.Task {
	return task.Task{Title: "t", Status: status, Priority: priority}
}

func TestComputeStats(t *testing.T) {
	tasks := []task.Task{
		statusTask(task.StatusCompleted, task.PriorityMedium),
		statusTask(task.StatusCompleted, task.PriorityHigh),
		statusTask(task.StatusPending, task.PriorityHigh),
		statusTask(task.StatusInProgress, task.PriorityHigh),
		statusTask(task.StatusCancelled, task.PriorityLow),
	}

	st := computeStats(tasks)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 2, st.Completed)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 1, st.InProgress)
	assert.Equal(t, 1, st.Cancelled)
	assert.Equal(t, 2, st.HighOpen)
	assert.Equal(t, 40, st.CompletionRate())
}

func TestCompletionRateEmptySet(t *testing.T) {
	assert.Equal(t, 0, stats{}.CompletionRate())
}

// TestTierBoundaries pins the exact qualitative thresholds.
func TestTierBoundaries(t *testing.T) {
	assert.Contains(t, stats{Total: 100, Completed: 80}.tierMessage(), "Outstanding")
	assert.Contains(t, stats{Total: 100, Completed: 79}.tierMessage(), "Good pace")
	assert.Contains(t, stats{Total: 100, Completed: 60}.tierMessage(), "Good pace")
	assert.Contains(t, stats{Total: 100, Completed: 59}.tierMessage(), "Every task counts")
}

func TestRenderStats(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		assert.Equal(t, "No tasks to analyze yet. Create a few and check back.", renderStats(stats{}))
	})

	t.Run("full report", func(t *testing.T) {
		got := renderStats(stats{Total: 5, Completed: 4, Pending: 1, HighOpen: 1})
		assert.Contains(t, got, "5 tasks total")
		assert.Contains(t, got, "4 completed (80%)")
		assert.Contains(t, got, "1 high priority task is still open.")
		assert.Contains(t, got, "Outstanding")
	})

	t.Run("plural high priority", func(t *testing.T) {
		got := renderStats(stats{Total: 4, Completed: 1, Pending: 3, HighOpen: 2})
		assert.Contains(t, got, "2 high priority tasks are still open.")
		assert.Contains(t, got, "Every task counts")
	})

	t.Run("cancelled only mentioned when present", func(t *testing.T) {
		assert.NotContains(t, renderStats(stats{Total: 2, Completed: 2}), "cancelled")
		assert.Contains(t, renderStats(stats{Total: 3, Completed: 2, Cancelled: 1}), "1 cancelled")
	})
}
