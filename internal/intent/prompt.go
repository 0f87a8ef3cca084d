package intent

import (
	"fmt"
	"strings"
)

// promptTemplate is the fixed classification prompt for the model tier.
// The closed type list and the worked examples keep small models on the
// rails; the schema in extract.go rejects anything that strays anyway.
const promptTemplate = `You are the intent classifier of a task management assistant.
Classify the user message into exactly one intent type and extract its parameters.

Intent types:
- create_task: add a new task. Parameters: title (required), description, priority (high|medium|low), due_date (RFC 3339), tags
- list_tasks: show existing tasks. Parameters: status (pending|in_progress|completed|cancelled), priority, limit
- update_task: change fields of a task. Parameters: task_id (required), title, description, priority, status
- complete_task: mark a task completed. Parameters: task_id (required)
- delete_task: remove a task. Parameters: task_id (required)
- schedule_tasks: ask what to work on, in what order
- analyze_productivity: ask for completion statistics
- get_suggestions: ask for productivity advice
- general: anything else

Examples:
Message: "Create a task to buy milk"
{"type": "create_task", "parameters": {"title": "buy milk"}}
Message: "Show my pending tasks"
{"type": "list_tasks", "parameters": {"status": "pending"}}
Message: "Complete task 3"
{"type": "complete_task", "parameters": {"task_id": 3}}
Message: "What should I work on today?"
{"type": "schedule_tasks", "parameters": {}}
Message: "How is my productivity this week?"
{"type": "analyze_productivity", "parameters": {}}

Respond with a single JSON object and nothing else.

Message: %q
JSON:`

// BuildPrompt renders the classification prompt for one message. Input is
// normalized (trimmed, newlines unified) so identical messages produce
// identical prompts for caching.
func BuildPrompt(message string) string {
	return fmt.Sprintf(promptTemplate, normalizeMessage(message))
}

func normalizeMessage(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
