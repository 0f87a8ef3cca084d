// Package intent classifies free-form messages into structured task
// operations. Resolution is two-tier: a model-assisted tier that prompts
// the text-generation capability and extracts a JSON object from its
// reply, and a deterministic keyword tier that never fails. Callers
// always get an intent back; total inability to classify yields general.
package intent

import (
	"strconv"
	"strings"
)

// Type is the classification of a message into one of the supported
// operations.
type Type string

const (
	TypeCreateTask          Type = "create_task"
	TypeListTasks           Type = "list_tasks"
	TypeUpdateTask          Type = "update_task"
	TypeCompleteTask        Type = "complete_task"
	TypeDeleteTask          Type = "delete_task"
	TypeScheduleTasks       Type = "schedule_tasks"
	TypeAnalyzeProductivity Type = "analyze_productivity"
	TypeGetSuggestions      Type = "get_suggestions"
	TypeGeneral             Type = "general"
)

// Types lists every recognized intent type; the model-tier schema and the
// prompt template derive their closed lists from it.
var Types = []Type{
	TypeCreateTask,
	TypeListTasks,
	TypeUpdateTask,
	TypeCompleteTask,
	TypeDeleteTask,
	TypeScheduleTasks,
	TypeAnalyzeProductivity,
	TypeGetSuggestions,
	TypeGeneral,
}

// Valid reports whether t is a recognized intent type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Intent is the transient result of resolving one message. It is never
// persisted.
type Intent struct {
	Type       Type           `json:"type"`
	Parameters map[string]any `json:"parameters"`
}

// General is the catch-all intent returned when nothing else applies.
func General() Intent {
	return Intent{Type: TypeGeneral, Parameters: map[string]any{}}
}

// TaskID returns the numeric task id parameter. The model tier may encode
// it as a JSON number or a digit string; both are accepted.
func (in Intent) TaskID() (int64, bool) {
	return in.Int64Param("task_id")
}

// Int64Param coerces the named parameter to int64.
func (in Intent) Int64Param(key string) (int64, bool) {
	v, ok := in.Parameters[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// StringParam returns the named parameter as trimmed non-empty text.
func (in Intent) StringParam(key string) (string, bool) {
	v, ok := in.Parameters[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
