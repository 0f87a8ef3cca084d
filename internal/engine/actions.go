package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskpilot/internal/capability"
	"taskpilot/internal/intent"
	"taskpilot/internal/schedule"
	"taskpilot/internal/task"
)

// defaultListLimit caps conversational listings so a long backlog does
// not flood the reply. Boundary callers pass their own limits.
const defaultListLimit = 10

func (e *Engine) createTask(ctx context.Context, in intent.Intent) string {
	title, ok := in.StringParam("title")
	if !ok {
		return askTitle
	}

	f := task.Fields{Title: title}
	if desc, ok := in.StringParam("description"); ok {
		f.Description = desc
	}
	if p, ok := in.StringParam("priority"); ok {
		f.Priority = task.Priority(strings.ToLower(p))
	}
	if due, ok := dueDateParam(in); ok {
		f.DueDate = due
	}
	if tags, ok := in.StringParam("tags"); ok {
		f.Tags = tags
	}
	if md, ok := in.Parameters["metadata"].(map[string]any); ok {
		f.Metadata = md
	}

	t, err := e.store.Create(f)
	if err != nil {
		return validationReply(err)
	}
	e.enrich(ctx, t)
	return confirmCreated(t)
}

func (e *Engine) listTasks(in intent.Intent) string {
	var f task.Filter
	if s, ok := in.StringParam("status"); ok {
		f.Status = task.Status(strings.ToLower(s))
	}
	if p, ok := in.StringParam("priority"); ok {
		f.Priority = task.Priority(strings.ToLower(p))
	}
	limit := defaultListLimit
	if n, ok := in.Int64Param("limit"); ok && n > 0 {
		limit = int(n)
	}

	tasks := e.store.List(f, limit)
	if len(tasks) == 0 {
		if f == (task.Filter{}) && e.store.Len() == 0 {
			return emptyStoreReply
		}
		return noMatchReply
	}
	return renderListing("Here are your tasks:", tasks)
}

func (e *Engine) updateTask(in intent.Intent) string {
	id, ok := in.TaskID()
	if !ok {
		return askUpdateID
	}
	p := patchFromIntent(in)
	if p.Empty() {
		return fmt.Sprintf("What should I change on task #%d? You can set the title, description, priority, status, due date, or tags.", id)
	}

	t, found, err := e.store.Update(id, p)
	if err != nil {
		return validationReply(err)
	}
	if !found {
		return notFoundReply(id)
	}
	return fmt.Sprintf("Updated task %s.", taskLine(t))
}

func (e *Engine) completeTask(in intent.Intent) string {
	id, ok := in.TaskID()
	if !ok {
		return askCompleteID
	}
	done := task.StatusCompleted
	t, found, err := e.store.Update(id, task.Patch{Status: &done})
	if err != nil {
		return validationReply(err)
	}
	if !found {
		return notFoundReply(id)
	}
	return fmt.Sprintf("Marked task #%d %q as completed. Nice work!", t.ID, t.Title)
}

func (e *Engine) deleteTask(ctx context.Context, in intent.Intent) string {
	id, ok := in.TaskID()
	if !ok {
		return askDeleteID
	}
	if !e.store.Delete(id) {
		return notFoundReply(id)
	}
	if e.caps.Index != nil {
		if err := e.caps.Index.Delete(ctx, id); err != nil {
			e.logger.Debug().Err(err).Int64("task_id", id).Msg("vector delete failed")
		}
	}
	return fmt.Sprintf("Deleted task #%d.", id)
}

func (e *Engine) scheduleTasks() string {
	pending := e.store.List(task.Filter{Status: task.StatusPending}, 0)
	if len(pending) == 0 {
		return nothingPendingReply
	}
	return renderListing("Here's the order I'd tackle things in:", schedule.Order(pending))
}

func (e *Engine) analyzeProductivity() string {
	return renderStats(computeStats(e.store.All()))
}

// enrich embeds a freshly created task for semantic lookup. Strictly
// best effort: any failure is logged at debug and the creation stands.
func (e *Engine) enrich(ctx context.Context, t task.Task) {
	if e.caps.Embedder == nil || e.caps.Index == nil {
		return
	}
	text := t.Title
	if t.Description != "" {
		text += "\n" + t.Description
	}
	vec, err := e.caps.Embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, capability.ErrUnavailable) {
			e.logger.Debug().Err(err).Int64("task_id", t.ID).Msg("embedding failed")
		}
		return
	}
	meta := map[string]string{"title": t.Title, "priority": string(t.Priority)}
	if err := e.caps.Index.Upsert(ctx, t.ID, vec, meta); err != nil {
		e.logger.Debug().Err(err).Int64("task_id", t.ID).Msg("vector upsert failed")
	}
}

// patchFromIntent maps intent parameters onto the closed patch type.
// Values outside the declared enumerations pass through untouched; the
// store validates them and the reply explains the rejection.
func patchFromIntent(in intent.Intent) task.Patch {
	var p task.Patch
	if title, ok := in.StringParam("title"); ok {
		p.Title = &title
	}
	if desc, ok := in.StringParam("description"); ok {
		p.Description = &desc
	}
	if s, ok := in.StringParam("priority"); ok {
		pr := task.Priority(strings.ToLower(s))
		p.Priority = &pr
	}
	if s, ok := in.StringParam("status"); ok {
		st := task.Status(strings.ToLower(s))
		p.Status = &st
	}
	if due, ok := dueDateParam(in); ok {
		p.DueDate = due
	}
	if tags, ok := in.StringParam("tags"); ok {
		p.Tags = &tags
	}
	if md, ok := in.Parameters["metadata"].(map[string]any); ok {
		p.Metadata = md
	}
	return p
}

// dueDateParam parses the due_date parameter. Unparsable values are
// dropped, leaving the task unscheduled.
func dueDateParam(in intent.Intent) (*time.Time, bool) {
	s, ok := in.StringParam("due_date")
	if !ok {
		return nil, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts, true
		}
	}
	return nil, false
}
