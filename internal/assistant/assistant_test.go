package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpilot/internal/conversation"
	"taskpilot/internal/engine"
	"taskpilot/internal/intent"
	"taskpilot/internal/storage"
	"taskpilot/internal/task"
	"taskpilot/internal/workflow"
)

// rulesResolver runs the deterministic tier only, like a deployment
// with no model configured.
type rulesResolver struct{}

func (rulesResolver) Resolve(_ context.Context, message string) intent.Intent {
	return intent.ResolveRules(message)
}

// failingPersister simulates a broken commit path.
type failingPersister struct{}

func (failingPersister) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (failingPersister) PutAll(context.Context, map[string][]byte) error {
	return storage.ErrStorageFailure
}

func newTestAssistant(t *testing.T, persist Persister) *Assistant {
	t.Helper()
	store := task.NewStore()
	log := conversation.NewLog()
	eng := engine.NewEngine(store, log, rulesResolver{}, engine.Capabilities{}, zerolog.Nop())
	runner := workflow.NewRunner(store, log, nil, nil, 2, zerolog.Nop())
	return New(store, log, eng, runner, persist, zerolog.Nop())
}

func openTestStorage(t *testing.T, path string) *storage.Store {
	t.Helper()
	s, err := storage.Open(path, 5*time.Second, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChatCreateThenList(t *testing.T) {
	a := newTestAssistant(t, nil)
	ctx := context.Background()

	created, err := a.Chat(ctx, "Create a task to buy milk", nil)
	require.NoError(t, err)
	assert.Contains(t, created.Response, "buy milk")

	idPattern := regexp.MustCompile(`#(\d+)`)
	m := idPattern.FindStringSubmatch(created.Response)
	require.NotNil(t, m, "creation confirmation should carry the task id")

	listed, err := a.Chat(ctx, "Show my pending tasks", nil)
	require.NoError(t, err)
	assert.Contains(t, listed.Response, "buy milk")
	assert.Contains(t, listed.Response, "#"+m[1])
}

func TestChatPersistsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.db")
	ctx := context.Background()

	store := openTestStorage(t, path)
	a := newTestAssistant(t, store)
	_, err := a.Chat(ctx, "Create a task to water the plants", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// A fresh assistant over the same database sees the task and the
	// conversation history.
	store2 := openTestStorage(t, path)
	b := newTestAssistant(t, store2)
	require.NoError(t, b.Load(ctx))

	tasks := b.ListTasks(ctx, task.Filter{}, 0)
	require.Len(t, tasks, 1)
	assert.Equal(t, "water the plants", tasks[0].Title)

	history := b.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, "Create a task to water the plants", history[0].UserMessage)
}

func TestLoadFreshInstance(t *testing.T) {
	store := openTestStorage(t, filepath.Join(t.TempDir(), "fresh.db"))
	a := newTestAssistant(t, store)

	require.NoError(t, a.Load(context.Background()))
	assert.Empty(t, a.ListTasks(context.Background(), task.Filter{}, 0))
}

func TestChatStorageFailurePropagates(t *testing.T) {
	a := newTestAssistant(t, failingPersister{})

	_, err := a.Chat(context.Background(), "Create a task to buy milk", nil)
	require.ErrorIs(t, err, storage.ErrStorageFailure)
}

func TestCreateTaskDirect(t *testing.T) {
	a := newTestAssistant(t, nil)

	res, err := a.CreateTask(context.Background(), task.Fields{Title: "ship release", Priority: task.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ID)
	assert.Contains(t, res.Message, "ship release")
	assert.Contains(t, res.Message, "high priority")
}

func TestCreateTaskValidation(t *testing.T) {
	a := newTestAssistant(t, nil)

	_, err := a.CreateTask(context.Background(), task.Fields{Title: "   "})
	var verr *task.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
}

func TestUpdateTaskNotFound(t *testing.T) {
	a := newTestAssistant(t, nil)

	title := "renamed"
	_, found, err := a.UpdateTask(context.Background(), 99, task.Patch{Title: &title})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteTask(t *testing.T) {
	a := newTestAssistant(t, nil)
	ctx := context.Background()

	res, err := a.CreateTask(ctx, task.Fields{Title: "temp"})
	require.NoError(t, err)

	del, found, err := a.DeleteTask(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, del.Message, "Deleted")

	_, found, err = a.DeleteTask(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunWorkflowPersistsEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.db")
	ctx := context.Background()

	store := openTestStorage(t, path)
	a := newTestAssistant(t, store)
	_, err := a.CreateTask(ctx, task.Fields{Title: "open item"})
	require.NoError(t, err)

	res, err := a.RunWorkflow(ctx, workflow.DailyReminder)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
	require.NoError(t, store.Close())

	store2 := openTestStorage(t, path)
	b := newTestAssistant(t, store2)
	require.NoError(t, b.Load(ctx))

	history := b.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, workflow.DailyReminder, history[0].UserMessage)
}

func TestRunWorkflowUnknown(t *testing.T) {
	a := newTestAssistant(t, nil)

	_, err := a.RunWorkflow(context.Background(), "bogus")
	assert.True(t, errors.Is(err, workflow.ErrUnknown))
}
