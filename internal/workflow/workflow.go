// Package workflow implements the periodic triggers: daily reminder,
// productivity report, auto schedule, and priority review. Each trigger
// runs over the full current task set, appends one synthesized entry to
// the conversation log (the user message is the trigger label), and
// returns a status object. Triggers never fail for conversational
// reasons; the only error a run can surface comes from the caller's
// persistence hook, which lives outside this package.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"taskpilot/internal/capability"
	"taskpilot/internal/conversation"
	"taskpilot/internal/schedule"
	"taskpilot/internal/task"
)

// Trigger labels. These double as the synthesized user messages in the
// conversation log.
const (
	DailyReminder      = "daily_reminder"
	ProductivityReport = "productivity_report"
	AutoSchedule       = "auto_schedule"
	PriorityReview     = "priority_review"
)

// Names lists every known trigger in a stable order.
var Names = []string{DailyReminder, ProductivityReport, AutoSchedule, PriorityReview}

// ErrUnknown reports a trigger name outside the declared set.
var ErrUnknown = errors.New("workflow: unknown trigger")

// Result is the status object a trigger run returns.
type Result struct {
	Workflow      string    `json:"workflow"`
	Status        string    `json:"status"`
	TasksExamined int       `json:"tasks_examined"`
	RanAt         time.Time `json:"ran_at"`
	Response      string    `json:"response"`
}

// Runner executes triggers against one assistant instance.
type Runner struct {
	store    *task.Store
	log      *conversation.Log
	embedder capability.Embedder
	index    capability.VectorIndex

	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRunner wires a runner. embedder and index may be nil; the
// auto-schedule backfill then skips embedding work. concurrency bounds
// the backfill pool and defaults to 4 when non-positive.
func NewRunner(store *task.Store, log *conversation.Log, embedder capability.Embedder, index capability.VectorIndex, concurrency int, logger zerolog.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Runner{
		store:       store,
		log:         log,
		embedder:    embedder,
		index:       index,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes the named trigger. The only failure mode is an unknown
// name; every known trigger completes and logs its exchange.
func (r *Runner) Run(ctx context.Context, name string) (Result, error) {
	runID := uuid.NewString()
	now := r.now()
	tasks := r.store.All()

	var response string
	switch name {
	case DailyReminder:
		response = r.dailyReminder(tasks, now)
	case ProductivityReport:
		response = r.productivityReport(tasks)
	case AutoSchedule:
		response = r.autoSchedule(ctx, tasks)
	case PriorityReview:
		response = r.priorityReview(tasks, now)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknown, name)
	}

	entry := r.log.Append(name, response, map[string]any{"workflow": true, "run_id": runID})
	r.logger.Info().
		Str("workflow", name).
		Str("run_id", runID).
		Int("tasks_examined", len(tasks)).
		Int64("entry_id", entry.ID).
		Msg("workflow run completed")

	return Result{
		Workflow:      name,
		Status:        "ok",
		TasksExamined: len(tasks),
		RanAt:         now,
		Response:      response,
	}, nil
}

func openTasks(tasks []task.Task) []task.Task {
	var open []task.Task
	for _, t := range tasks {
		if t.Status == task.StatusPending || t.Status == task.StatusInProgress {
			open = append(open, t)
		}
	}
	return open
}

func (r *Runner) dailyReminder(tasks []task.Task, now time.Time) string {
	open := schedule.Order(openTasks(tasks))
	if len(open) == 0 {
		return "Good morning! Nothing is open right now. A clean slate — enjoy it."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Good morning! You have %d open %s.", len(open), plural(len(open), "task", "tasks"))

	buckets := schedule.Classify(open, now)
	writeBucket(&b, "Overdue", buckets.Overdue)
	writeBucket(&b, "Due today or tomorrow", buckets.DueTomorrow)
	writeBucket(&b, "Due soon", buckets.DueSoon)

	b.WriteString("\nTop of the list: ")
	b.WriteString(taskLine(open[0]))
	return b.String()
}

func (r *Runner) productivityReport(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "Productivity report: no tasks on record yet. Create a few and check back."
	}

	var completed, pending, inProgress, cancelled int
	for _, t := range tasks {
		switch t.Status {
		case task.StatusCompleted:
			completed++
		case task.StatusPending:
			pending++
		case task.StatusInProgress:
			inProgress++
		case task.StatusCancelled:
			cancelled++
		}
	}
	rate := completed * 100 / len(tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "Productivity report: %d tasks tracked, %d completed (%d%%), %d pending, %d in progress",
		len(tasks), completed, rate, pending, inProgress)
	if cancelled > 0 {
		fmt.Fprintf(&b, ", %d cancelled", cancelled)
	}
	b.WriteString(". ")
	switch {
	case rate >= 80:
		b.WriteString("Outstanding week — you're clearing nearly everything you take on.")
	case rate >= 60:
		b.WriteString("Solid pace. One focused session would clear most of the rest.")
	default:
		b.WriteString("Plenty still open. Pick the smallest task and get it done first.")
	}
	return b.String()
}

// autoSchedule renders the advisor's plan for the open tasks and, best
// effort, backfills missing embeddings so semantic lookup covers the
// backlog. Embedding failures are logged and never affect the plan.
func (r *Runner) autoSchedule(ctx context.Context, tasks []task.Task) string {
	open := schedule.Order(openTasks(tasks))
	r.backfillEmbeddings(ctx, open)

	if len(open) == 0 {
		return "Auto-schedule: nothing is open, so there's nothing to plan."
	}
	var b strings.Builder
	b.WriteString("Auto-schedule: here's the recommended order for your open tasks:")
	for i, t := range open {
		fmt.Fprintf(&b, "\n%d. %s", i+1, taskLine(t))
	}
	return b.String()
}

func (r *Runner) priorityReview(tasks []task.Task, now time.Time) string {
	open := schedule.Order(openTasks(tasks))
	if len(open) == 0 {
		return "Priority review: nothing open to review."
	}

	var notes []string
	for _, t := range open {
		switch {
		case t.DueDate != nil && t.DueDate.Before(now) && t.Priority != task.PriorityHigh:
			notes = append(notes, fmt.Sprintf("#%d %q is overdue but only %s priority — consider raising it.", t.ID, t.Title, t.Priority))
		case t.Priority == task.PriorityHigh && t.DueDate == nil:
			notes = append(notes, fmt.Sprintf("#%d %q is high priority with no due date — give it one so it can't drift.", t.ID, t.Title))
		case t.Priority == task.PriorityHigh && schedule.AgeDays(t, now) >= staleAgeDays:
			notes = append(notes, fmt.Sprintf("#%d %q has been open %d days at high priority — finish it or break it down.", t.ID, t.Title, schedule.AgeDays(t, now)))
		}
	}
	if len(notes) == 0 {
		return fmt.Sprintf("Priority review: %d open %s, priorities look consistent. No changes suggested.",
			len(open), plural(len(open), "task", "tasks"))
	}

	var b strings.Builder
	b.WriteString("Priority review:")
	for _, n := range notes {
		b.WriteString("\n- ")
		b.WriteString(n)
	}
	return b.String()
}

// staleAgeDays is how long a high-priority task may sit open before the
// review flags it.
const staleAgeDays = 7

// backfillEmbeddings embeds open tasks that the index does not cover
// yet, a bounded number at a time. Indexes that cannot report coverage
// are re-upserted; the operation is idempotent.
func (r *Runner) backfillEmbeddings(ctx context.Context, open []task.Task) {
	if r.embedder == nil || r.index == nil {
		return
	}
	type coverage interface{ Has(id int64) bool }
	covered, _ := r.index.(coverage)

	p := pool.New().WithMaxGoroutines(r.concurrency)
	for _, t := range open {
		if covered != nil && covered.Has(t.ID) {
			continue
		}
		t := t
		p.Go(func() {
			text := t.Title
			if t.Description != "" {
				text += "\n" + t.Description
			}
			vec, err := r.embedder.Embed(ctx, text)
			if err != nil {
				if !errors.Is(err, capability.ErrUnavailable) {
					r.logger.Debug().Err(err).Int64("task_id", t.ID).Msg("backfill embedding failed")
				}
				return
			}
			meta := map[string]string{"title": t.Title, "priority": string(t.Priority)}
			if err := r.index.Upsert(ctx, t.ID, vec, meta); err != nil {
				r.logger.Debug().Err(err).Int64("task_id", t.ID).Msg("backfill upsert failed")
			}
		})
	}
	p.Wait()
}

const dueDateFormat = "Jan 2, 2006"

func taskLine(t task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %q [%s/%s]", t.ID, t.Title, t.Priority, t.Status)
	if t.DueDate != nil {
		b.WriteString(", due ")
		b.WriteString(t.DueDate.Format(dueDateFormat))
	}
	return b.String()
}

func writeBucket(b *strings.Builder, header string, tasks []task.Task) {
	if len(tasks) == 0 {
		return
	}
	b.WriteString("\n" + header + ":")
	for _, t := range tasks {
		b.WriteString("\n- ")
		b.WriteString(taskLine(t))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
