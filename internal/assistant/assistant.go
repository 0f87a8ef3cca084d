// Package assistant is the boundary surface of one conversational agent:
// chat, task CRUD, and workflow triggers over a single task store and
// conversation log, with every mutation written back to durable storage
// in one transaction. Transports (HTTP, MCP) talk only to this facade.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"taskpilot/internal/conversation"
	"taskpilot/internal/engine"
	"taskpilot/internal/storage"
	"taskpilot/internal/task"
	"taskpilot/internal/workflow"
)

// Persister is the durable store the facade writes snapshots through.
// *storage.Store implements it; tests substitute stubs.
type Persister interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	PutAll(ctx context.Context, blobs map[string][]byte) error
}

// ChatResult is the outcome of one chat exchange.
type ChatResult struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateResult confirms a direct task creation.
type CreateResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// MutateResult confirms a direct update or delete.
type MutateResult struct {
	Message string `json:"message"`
}

// Assistant owns exactly one store, log, engine, and workflow runner.
// The single-instance policy of the system lives here: whoever
// constructs an Assistant decides its addressing, and the core never
// reaches for global state.
type Assistant struct {
	store   *task.Store
	log     *conversation.Log
	engine  *engine.Engine
	runner  *workflow.Runner
	persist Persister
	logger  zerolog.Logger
}

// New wires a facade. persist may be nil for a purely in-memory
// assistant (tests, ephemeral sessions); all durability guarantees are
// then off.
func New(store *task.Store, log *conversation.Log, eng *engine.Engine, runner *workflow.Runner, persist Persister, logger zerolog.Logger) *Assistant {
	return &Assistant{
		store:   store,
		log:     log,
		engine:  eng,
		runner:  runner,
		persist: persist,
		logger:  logger,
	}
}

// Snapshot wire shapes. The identifier counters travel inside the blobs
// so one PutAll covers collection and counter together.
type taskSnapshot struct {
	Tasks   []task.Task `json:"tasks"`
	Counter int64       `json:"counter"`
}

type convSnapshot struct {
	Entries []conversation.Entry `json:"entries"`
	Seq     int64                `json:"seq"`
}

// Load restores store and log from the last persisted snapshots. Missing
// keys mean a fresh instance and are not an error.
func (a *Assistant) Load(ctx context.Context) error {
	if a.persist == nil {
		return nil
	}

	if data, ok, err := a.persist.Get(ctx, storage.KeyTasks); err != nil {
		return fmt.Errorf("load tasks snapshot: %w", err)
	} else if ok {
		var snap taskSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decode tasks snapshot: %w", err)
		}
		a.store.Restore(snap.Tasks, snap.Counter)
	}

	if data, ok, err := a.persist.Get(ctx, storage.KeyConversation); err != nil {
		return fmt.Errorf("load conversation snapshot: %w", err)
	} else if ok {
		var snap convSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decode conversation snapshot: %w", err)
		}
		a.log.Restore(snap.Entries, snap.Seq)
	}

	a.logger.Info().Int("tasks", a.store.Len()).Int("entries", a.log.Len()).Msg("assistant state loaded")
	return nil
}

// save writes both snapshots in one transaction. Returns a
// StorageFailure-wrapped error on any commit problem; in-memory state
// stays authoritative for reads either way.
func (a *Assistant) save(ctx context.Context) error {
	if a.persist == nil {
		return nil
	}

	tasks, counter := a.store.Snapshot()
	entries, seq := a.log.Snapshot()

	taskBlob, err := json.Marshal(taskSnapshot{Tasks: tasks, Counter: counter})
	if err != nil {
		return fmt.Errorf("%w: encode tasks: %v", storage.ErrStorageFailure, err)
	}
	convBlob, err := json.Marshal(convSnapshot{Entries: entries, Seq: seq})
	if err != nil {
		return fmt.Errorf("%w: encode conversation: %v", storage.ErrStorageFailure, err)
	}

	return a.persist.PutAll(ctx, map[string][]byte{
		storage.KeyTasks:        taskBlob,
		storage.KeyConversation: convBlob,
	})
}

// Chat handles one message. Every call appends a log entry, so every
// call persists; a failed commit is the one error Chat can return.
func (a *Assistant) Chat(ctx context.Context, message string, meta map[string]any) (ChatResult, error) {
	entry := a.engine.Handle(ctx, message, meta)
	if err := a.save(ctx); err != nil {
		a.logger.Error().Err(err).Msg("failed to persist after chat")
		return ChatResult{}, err
	}
	return ChatResult{Response: entry.AgentResponse, Timestamp: entry.CreatedAt}, nil
}

// ListTasks returns matching tasks in store order. limit <= 0 returns
// every match; the conversational default of ten does not apply here.
func (a *Assistant) ListTasks(ctx context.Context, f task.Filter, limit int) []task.Task {
	return a.store.List(f, limit)
}

// GetTask returns one task by id.
func (a *Assistant) GetTask(ctx context.Context, id int64) (task.Task, bool) {
	return a.store.Get(id)
}

// CreateTask creates a task directly, bypassing intent resolution.
// Validation errors pass through typed; persistence failures are
// StorageFailure.
func (a *Assistant) CreateTask(ctx context.Context, f task.Fields) (CreateResult, error) {
	t, err := a.store.Create(f)
	if err != nil {
		return CreateResult{}, err
	}
	if err := a.save(ctx); err != nil {
		a.logger.Error().Err(err).Int64("task_id", t.ID).Msg("failed to persist after create")
		return CreateResult{}, err
	}
	return CreateResult{
		ID:      t.ID,
		Message: fmt.Sprintf("Created task #%d: %q (%s priority).", t.ID, t.Title, t.Priority),
	}, nil
}

// UpdateTask patches a task directly. found=false means the id does not
// exist and nothing was written.
func (a *Assistant) UpdateTask(ctx context.Context, id int64, p task.Patch) (MutateResult, bool, error) {
	t, found, err := a.store.Update(id, p)
	if err != nil || !found {
		return MutateResult{}, found, err
	}
	if err := a.save(ctx); err != nil {
		a.logger.Error().Err(err).Int64("task_id", id).Msg("failed to persist after update")
		return MutateResult{}, true, err
	}
	return MutateResult{Message: fmt.Sprintf("Updated task #%d: %q [%s/%s].", t.ID, t.Title, t.Priority, t.Status)}, true, nil
}

// DeleteTask removes a task directly. found=false means the id does not
// exist and nothing was written.
func (a *Assistant) DeleteTask(ctx context.Context, id int64) (MutateResult, bool, error) {
	if !a.store.Delete(id) {
		return MutateResult{}, false, nil
	}
	if err := a.save(ctx); err != nil {
		a.logger.Error().Err(err).Int64("task_id", id).Msg("failed to persist after delete")
		return MutateResult{}, true, err
	}
	return MutateResult{Message: fmt.Sprintf("Deleted task #%d.", id)}, true, nil
}

// RunWorkflow executes a trigger and persists its synthesized log
// entry. Unknown names return workflow.ErrUnknown.
func (a *Assistant) RunWorkflow(ctx context.Context, name string) (workflow.Result, error) {
	res, err := a.runner.Run(ctx, name)
	if err != nil {
		return workflow.Result{}, err
	}
	if err := a.save(ctx); err != nil {
		a.logger.Error().Err(err).Str("workflow", name).Msg("failed to persist after workflow run")
		return workflow.Result{}, err
	}
	return res, nil
}

// History returns the most recent conversation entries, oldest first.
func (a *Assistant) History(n int) []conversation.Entry {
	return a.log.Recent(n)
}

var _ workflow.Executor = (*Assistant)(nil)
