package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/capability"
	"taskpilot/internal/conversation"
	"taskpilot/internal/task"
)

type stubEmbedder struct {
	calls int
	mu    sync.Mutex
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return []float32{1, 0}, nil
}

type stubIndex struct {
	mu      sync.Mutex
	vectors map[int64][]float32
}

func newStubIndex() *stubIndex { return &stubIndex{vectors: map[int64][]float32{}} }

func (s *stubIndex) Upsert(ctx context.Context, id int64, vector []float32, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors[id] = vector
	return nil
}

func (s *stubIndex) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vectors, id)
	return nil
}

func (s *stubIndex) Search(ctx context.Context, vector []float32, k int) ([]capability.Match, error) {
	return nil, nil
}

func (s *stubIndex) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vectors[id]
	return ok
}

func newTestRunner(t *testing.T) (*Runner, *task.Store, *conversation.Log) {
	t.Helper()
	store := task.NewStore()
	log := conversation.NewLog()
	return NewRunner(store, log, nil, nil, 2, zerolog.Nop()), store, log
}

func TestRunUnknownTrigger(t *testing.T) {
	r, _, log := newTestRunner(t)

	_, err := r.Run(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknown)
	assert.Equal(t, 0, log.Len())
}

func TestRunAppendsOneEntry(t *testing.T) {
	r, store, log := newTestRunner(t)
	_, err := store.Create(task.Fields{Title: "buy milk"})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), DailyReminder)
	require.NoError(t, err)

	assert.Equal(t, DailyReminder, res.Workflow)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, 1, res.TasksExamined)
	assert.Contains(t, res.Response, "buy milk")

	require.Equal(t, 1, log.Len())
	entries := log.Recent(1)
	assert.Equal(t, DailyReminder, entries[0].UserMessage)
	assert.Equal(t, res.Response, entries[0].AgentResponse)
	assert.Equal(t, true, entries[0].Context["workflow"])
	assert.NotEmpty(t, entries[0].Context["run_id"])
}

func TestDailyReminderBuckets(t *testing.T) {
	r, store, _ := newTestRunner(t)
	now := time.Now()

	overdue := now.Add(-48 * time.Hour)
	tomorrow := now.Add(12 * time.Hour)
	soon := now.Add(60 * time.Hour)
	for _, f := range []task.Fields{
		{Title: "late report", DueDate: &overdue},
		{Title: "standup prep", DueDate: &tomorrow},
		{Title: "quarterly review", DueDate: &soon},
	} {
		_, err := store.Create(f)
		require.NoError(t, err)
	}

	res, err := r.Run(context.Background(), DailyReminder)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "Overdue:")
	assert.Contains(t, res.Response, "late report")
	assert.Contains(t, res.Response, "Due today or tomorrow:")
	assert.Contains(t, res.Response, "standup prep")
	assert.Contains(t, res.Response, "Due soon:")
	assert.Contains(t, res.Response, "quarterly review")
}

func TestDailyReminderNothingOpen(t *testing.T) {
	r, store, _ := newTestRunner(t)
	created, err := store.Create(task.Fields{Title: "done already"})
	require.NoError(t, err)
	done := task.StatusCompleted
	_, _, err = store.Update(created.ID, task.Patch{Status: &done})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), DailyReminder)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "Nothing is open")
}

func TestProductivityReportTiers(t *testing.T) {
	r, store, _ := newTestRunner(t)
	done := task.StatusCompleted
	for i := 0; i < 5; i++ {
		created, err := store.Create(task.Fields{Title: "t"})
		require.NoError(t, err)
		if i < 4 {
			_, _, err = store.Update(created.ID, task.Patch{Status: &done})
			require.NoError(t, err)
		}
	}

	res, err := r.Run(context.Background(), ProductivityReport)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "4 completed (80%)")
	assert.Contains(t, res.Response, "Outstanding")
}

func TestProductivityReportEmpty(t *testing.T) {
	r, _, _ := newTestRunner(t)

	res, err := r.Run(context.Background(), ProductivityReport)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TasksExamined)
	assert.Contains(t, res.Response, "no tasks on record")
}

func TestAutoScheduleOrdersAndBackfills(t *testing.T) {
	store := task.NewStore()
	log := conversation.NewLog()
	embedder := &stubEmbedder{}
	index := newStubIndex()
	r := NewRunner(store, log, embedder, index, 2, zerolog.Nop())

	due := time.Now().Add(24 * time.Hour)
	_, err := store.Create(task.Fields{Title: "low chore", Priority: task.PriorityLow})
	require.NoError(t, err)
	urgent, err := store.Create(task.Fields{Title: "urgent fix", Priority: task.PriorityHigh, DueDate: &due})
	require.NoError(t, err)

	// Pre-index one task; backfill should only embed the other.
	require.NoError(t, index.Upsert(context.Background(), urgent.ID, []float32{1, 0}, nil))

	res, err := r.Run(context.Background(), AutoSchedule)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "1. #2 \"urgent fix\"")
	assert.Contains(t, res.Response, "2. #1 \"low chore\"")
	assert.Equal(t, 1, embedder.calls)
	assert.True(t, index.Has(1))
}

func TestPriorityReviewFlags(t *testing.T) {
	r, store, _ := newTestRunner(t)
	overdue := time.Now().Add(-24 * time.Hour)
	_, err := store.Create(task.Fields{Title: "slipped deadline", Priority: task.PriorityLow, DueDate: &overdue})
	require.NoError(t, err)
	_, err = store.Create(task.Fields{Title: "vague ambition", Priority: task.PriorityHigh})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), PriorityReview)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "slipped deadline")
	assert.Contains(t, res.Response, "consider raising")
	assert.Contains(t, res.Response, "vague ambition")
	assert.Contains(t, res.Response, "no due date")
}

func TestPriorityReviewNoChanges(t *testing.T) {
	r, store, _ := newTestRunner(t)
	due := time.Now().Add(5 * 24 * time.Hour)
	_, err := store.Create(task.Fields{Title: "well managed", Priority: task.PriorityMedium, DueDate: &due})
	require.NoError(t, err)

	res, err := r.Run(context.Background(), PriorityReview)
	require.NoError(t, err)
	assert.Contains(t, res.Response, "No changes suggested")
}
