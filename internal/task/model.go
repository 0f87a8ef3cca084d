// Package task implements the authoritative task collection: validated
// records with monotonically assigned identifiers, newest-first ordering,
// and filtered listing.
package task

import (
	"fmt"
	"maps"
	"time"
)

// Priority is the urgency level of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the declared priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps a priority to its sort rank (high=1, medium=2, low=3).
// Unknown values rank after all declared levels.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the declared status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Task is one unit of user work.
type Task struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Tags        string         `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// clone returns a copy that shares no mutable state with t.
func (t Task) clone() Task {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.Metadata != nil {
		c.Metadata = maps.Clone(t.Metadata)
	}
	return c
}

// Fields carries the caller-supplied attributes for Create. Zero values
// mean "not supplied" and fall back to the documented defaults.
type Fields struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	Tags        string
	Metadata    map[string]any
}

// Patch is the closed set of updatable attributes. A nil pointer leaves
// the field unchanged; a non-nil pointer overwrites it. Unknown fields do
// not exist here at all: transports that decode a patch from JSON must
// reject keys outside this set.
type Patch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Priority    *Priority      `json:"priority,omitempty"`
	Status      *Status        `json:"status,omitempty"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Tags        *string        `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && p.DueDate == nil && p.Tags == nil && p.Metadata == nil
}

// ValidationError reports a missing or malformed field at the store
// boundary. It is surfaced to the immediate caller as a structured
// failure, never downgraded to a log line.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("task: invalid %s: %s", e.Field, e.Reason)
}
