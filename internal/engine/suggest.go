package engine

import (
	"context"
	"fmt"
	"strings"

	"taskpilot/internal/schedule"
	"taskpilot/internal/task"
)

// suggestionPromptLimit caps how many open tasks the advice prompt
// carries; the model does not need the whole backlog to be useful.
const suggestionPromptLimit = 10

const adviceTemplate = `You are a friendly productivity coach inside a task management assistant.
The user's current open tasks, most urgent first:
%s

Offer two or three short, concrete suggestions for what to focus on and how to make progress today. Plain text, no markdown.`

var staticTips = []string{
	"Knock out one small task first to build momentum.",
	"Tackle high priority items before anything else.",
	"Batch similar tasks together and clear them in one sitting.",
	"Anything that takes under two minutes: do it now.",
	"Give every important task a due date so it can't drift.",
}

// suggest asks the generator for personalized advice and falls back to
// the static tips on any failure, including empty output.
func (e *Engine) suggest(ctx context.Context) string {
	if e.caps.Generator == nil {
		return renderTips()
	}

	prompt := fmt.Sprintf(adviceTemplate, summarizeTasks(e.openTasks()))
	text, err := e.caps.Generator.Generate(ctx, prompt, e.caps.Options)
	if err != nil {
		e.logger.Debug().Err(err).Msg("suggestion generation failed, using static tips")
		return renderTips()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return renderTips()
	}
	return text
}

func (e *Engine) openTasks() []task.Task {
	open := e.store.List(task.Filter{Status: task.StatusPending}, 0)
	open = append(open, e.store.List(task.Filter{Status: task.StatusInProgress}, 0)...)
	return schedule.Order(open)
}

func summarizeTasks(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "(no open tasks)"
	}
	if len(tasks) > suggestionPromptLimit {
		tasks = tasks[:suggestionPromptLimit]
	}
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %q (%s priority", t.Title, t.Priority)
		if t.DueDate != nil {
			b.WriteString(", due " + t.DueDate.Format(dueDateFormat))
		}
		b.WriteString(")")
	}
	return b.String()
}

func renderTips() string {
	var b strings.Builder
	b.WriteString("A few things that usually help:")
	for i, tip := range staticTips {
		fmt.Fprintf(&b, "\n%d. %s", i+1, tip)
	}
	return b.String()
}
