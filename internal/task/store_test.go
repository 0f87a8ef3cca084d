package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one second on every call so UpdatedAt comparisons
// never depend on wall-clock resolution.
func tickingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func newTestStore() *Store {
	s := NewStore()
	s.now = tickingClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return s
}

func mustCreate(t *testing.T, s *Store, f Fields) Task {
	t.Helper()
	created, err := s.Create(f)
	require.NoError(t, err)
	return created
}

func TestCreateAssignsMonotonicIDs(t *testing.T) {
	s := newTestStore()

	a := mustCreate(t, s, Fields{Title: "first"})
	b := mustCreate(t, s, Fields{Title: "second"})
	c := mustCreate(t, s, Fields{Title: "third"})
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, int64(3), c.ID)

	require.True(t, s.Delete(b.ID))
	d := mustCreate(t, s, Fields{Title: "fourth"})
	assert.Equal(t, int64(4), d.ID, "deleted ids must never be reused")
}

func TestCreateRequiresTitle(t *testing.T) {
	s := newTestStore()

	for _, title := range []string{"", "   ", "\t\n"} {
		_, err := s.Create(Fields{Title: title})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
	}
	assert.Equal(t, 0, s.Len())
}

func TestCreateDefaults(t *testing.T) {
	s := newTestStore()

	created := mustCreate(t, s, Fields{Title: "  buy milk  "})
	assert.Equal(t, "buy milk", created.Title)
	assert.Equal(t, PriorityMedium, created.Priority)
	assert.Equal(t, StatusPending, created.Status)
	assert.Nil(t, created.DueDate)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore()
	a := mustCreate(t, s, Fields{Title: "oldest"})
	b := mustCreate(t, s, Fields{Title: "middle"})
	c := mustCreate(t, s, Fields{Title: "newest"})

	got := s.List(Filter{}, 0)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, []int64{got[0].ID, got[1].ID, got[2].ID})
}

func TestListFilterPreservesRelativeOrder(t *testing.T) {
	s := newTestStore()
	a := mustCreate(t, s, Fields{Title: "a"})
	mustCreate(t, s, Fields{Title: "b"})
	c := mustCreate(t, s, Fields{Title: "c"})

	for _, id := range []int64{a.ID, c.ID} {
		_, ok, err := s.Update(id, Patch{Status: statusPtr(StatusCompleted)})
		require.NoError(t, err)
		require.True(t, ok)
	}

	got := s.List(Filter{Status: StatusCompleted}, 0)
	require.Len(t, got, 2)
	assert.Equal(t, c.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)
}

func TestListConjunctionAndLimit(t *testing.T) {
	s := newTestStore()
	mustCreate(t, s, Fields{Title: "low", Priority: PriorityLow})
	_ = mustCreate(t, s, Fields{Title: "high one", Priority: PriorityHigh})
	h2 := mustCreate(t, s, Fields{Title: "high two", Priority: PriorityHigh})

	got := s.List(Filter{Status: StatusPending, Priority: PriorityHigh}, 0)
	require.Len(t, got, 2)
	assert.Equal(t, h2.ID, got[0].ID)

	got = s.List(Filter{}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, h2.ID, got[0].ID, "limit truncates from the front")

	got = s.List(Filter{Status: StatusCancelled}, 0)
	assert.Empty(t, got, "no filter match is an empty result, not an error")
}

func TestUpdateChangesOnlyPatchedField(t *testing.T) {
	s := newTestStore()
	due := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	before := mustCreate(t, s, Fields{
		Title:       "write report",
		Description: "quarterly numbers",
		Priority:    PriorityLow,
		DueDate:     &due,
		Tags:        "work",
		Metadata:    map[string]any{"origin": "test"},
	})

	after, ok, err := s.Update(before.ID, Patch{Priority: priorityPtr(PriorityHigh)})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, PriorityHigh, after.Priority)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Description, after.Description)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.DueDate, after.DueDate)
	assert.Equal(t, before.Tags, after.Tags)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, before.Metadata, after.Metadata)
}

func TestUpdateAlwaysRewritesUpdatedAt(t *testing.T) {
	s := newTestStore()
	created := mustCreate(t, s, Fields{Title: "repeatable"})

	first, ok, err := s.Update(created.ID, Patch{Status: statusPtr(StatusCompleted)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, first.Status)

	// Completing an already-completed task succeeds and still rewrites
	// UpdatedAt; that is the documented no-op-update contract.
	second, ok, err := s.Update(created.ID, Patch{Status: statusPtr(StatusCompleted)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, second.Status)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestUpdateValidation(t *testing.T) {
	s := newTestStore()
	created := mustCreate(t, s, Fields{Title: "target"})

	cases := []Patch{
		{Priority: priorityPtr(Priority("urgent"))},
		{Status: statusPtr(Status("done"))},
		{Title: strPtr("   ")},
	}
	for _, patch := range cases {
		_, _, err := s.Update(created.ID, patch)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	}

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created.Title, got.Title, "rejected patches must not partially apply")
}

func TestUpdateMissingIDIsNotAnError(t *testing.T) {
	s := newTestStore()
	_, ok, err := s.Update(42, Patch{Status: statusPtr(StatusCompleted)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteMissingLeavesStoreUnchanged(t *testing.T) {
	s := newTestStore()
	mustCreate(t, s, Fields{Title: "keeper"})
	tasksBefore, counterBefore := s.Snapshot()

	assert.False(t, s.Delete(99))

	tasksAfter, counterAfter := s.Snapshot()
	assert.Equal(t, tasksBefore, tasksAfter)
	assert.Equal(t, counterBefore, counterAfter)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := newTestStore()
	mustCreate(t, s, Fields{Title: "one"})
	mustCreate(t, s, Fields{Title: "two"})
	tasks, counter := s.Snapshot()

	restored := newTestStore()
	restored.Restore(tasks, counter)

	gotTasks, gotCounter := restored.Snapshot()
	assert.Equal(t, tasks, gotTasks)
	assert.Equal(t, counter, gotCounter)

	next := mustCreate(t, restored, Fields{Title: "three"})
	assert.Equal(t, counter+1, next.ID)
}

func TestRestoreRaisesLaggingCounter(t *testing.T) {
	s := newTestStore()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.Restore([]Task{
		{ID: 7, Title: "existing", Priority: PriorityMedium, Status: StatusPending, CreatedAt: now, UpdatedAt: now},
	}, 2)

	created := mustCreate(t, s, Fields{Title: "new"})
	assert.Equal(t, int64(8), created.ID)
}

func TestReturnedTasksShareNoState(t *testing.T) {
	s := newTestStore()
	created := mustCreate(t, s, Fields{Title: "guarded", Metadata: map[string]any{"k": "v"}})

	created.Metadata["k"] = "mutated"
	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "v", got.Metadata["k"])
}

func TestValidationErrorMessage(t *testing.T) {
	err := error(&ValidationError{Field: "title", Reason: "must not be empty"})
	assert.Equal(t, "task: invalid title: must not be empty", err.Error())
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func strPtr(s string) *string          { return &s }
func priorityPtr(p Priority) *Priority { return &p }
func statusPtr(s Status) *Status       { return &s }
