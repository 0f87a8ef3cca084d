package engine

import (
	"errors"
	"fmt"
	"strings"

	"taskpilot/internal/task"
)

const dueDateFormat = "Jan 2, 2006"

const helpText = `I can help you stay on top of your tasks. Try one of these:
- "Create a task to buy milk"
- "Show my pending tasks"
- "Complete task 3"
- "Update task 2 to high priority"
- "Delete task 4"
- "What should I work on today?"
- "How is my productivity?"
- "Any suggestions?"`

const (
	askTitle      = `What should the task say? For example: "Create a task to buy milk".`
	askUpdateID   = `Which task should I update? Give me its number, like "Update task 2 to high priority".`
	askCompleteID = `Which task should I mark as completed? Give me its number, like "Complete task 3".`
	askDeleteID   = `Which task should I delete? Give me its number, like "Delete task 4".`

	emptyStoreReply     = `You don't have any tasks yet. Say "Create a task to buy milk" to add your first one.`
	noMatchReply        = "No tasks match that filter."
	nothingPendingReply = "Nothing is pending right now. Enjoy the breathing room, or create a new task."
)

func notFoundReply(id int64) string {
	return fmt.Sprintf(`I couldn't find task #%d. Say "Show my tasks" to see what's there.`, id)
}

// validationReply turns a store-level validation failure into
// conversational text. The store only returns ValidationError here; the
// generic branch covers anything unexpected.
func validationReply(err error) string {
	var verr *task.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("That didn't work: the %s %s.", verr.Field, verr.Reason)
	}
	return "That didn't work, please rephrase and try again."
}

func taskLine(t task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %q [%s/%s]", t.ID, t.Title, t.Priority, t.Status)
	if t.DueDate != nil {
		b.WriteString(", due ")
		b.WriteString(t.DueDate.Format(dueDateFormat))
	}
	if t.Tags != "" {
		b.WriteString(", tags: ")
		b.WriteString(t.Tags)
	}
	return b.String()
}

func renderListing(header string, tasks []task.Task) string {
	var b strings.Builder
	b.WriteString(header)
	for i, t := range tasks {
		fmt.Fprintf(&b, "\n%d. %s", i+1, taskLine(t))
	}
	return b.String()
}

func confirmCreated(t task.Task) string {
	details := []string{string(t.Priority) + " priority"}
	if t.DueDate != nil {
		details = append(details, "due "+t.DueDate.Format(dueDateFormat))
	}
	if t.Tags != "" {
		details = append(details, "tags: "+t.Tags)
	}
	msg := fmt.Sprintf("Created task #%d: %q (%s).", t.ID, t.Title, strings.Join(details, ", "))
	if t.Description != "" {
		msg += " Noted: " + t.Description
	}
	return msg
}
