package task

import (
	"strings"
	"sync"
	"time"
)

// Filter narrows List results. Absent (empty) fields impose no constraint;
// supplied fields are combined as a conjunction.
type Filter struct {
	Status   Status
	Priority Priority
}

// Store holds the task collection for one assistant instance. Records are
// kept newest-first; identifiers come from a counter that only moves
// forward, so deletions never cause id reuse. All operations are safe for
// concurrent use; the counter increment and record insertion happen under
// one critical section.
type Store struct {
	mu      sync.Mutex
	counter int64
	tasks   []Task

	now func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Create validates fields, assigns the next identifier and inserts the new
// task at the front of the listing order. The only hard precondition is a
// non-empty title; its absence is a ValidationError.
func (s *Store) Create(f Fields) (Task, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return Task{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	priority := f.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Task{}, &ValidationError{Field: "priority", Reason: "must be high, medium or low"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	now := s.now()
	t := Task{
		ID:          s.counter,
		Title:       title,
		Description: f.Description,
		Priority:    priority,
		Status:      StatusPending,
		DueDate:     f.DueDate,
		Tags:        f.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    f.Metadata,
	}
	t = t.clone()
	s.tasks = append([]Task{t}, s.tasks...)
	return t.clone(), nil
}

// Get returns the task with the given id, or ok=false when no such record
// exists. A missing id is a normal outcome, not an error.
func (s *Store) Get(id int64) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return s.tasks[i].clone(), true
		}
	}
	return Task{}, false
}

// List returns tasks matching the filter in store order (newest first).
// limit > 0 truncates from the front; limit <= 0 returns every match.
// No match yields an empty slice, never an error.
func (s *Store) List(f Filter, limit int) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for i := range s.tasks {
		t := &s.tasks[i]
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		out = append(out, t.clone())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Update applies a shallow merge of the patch onto the stored record and
// rewrites UpdatedAt, even when every patched field already holds the
// supplied value. Status transitions are not validated; any declared enum
// value is accepted as-is. Returns ok=false when the id does not exist.
// The only error is a ValidationError for a value outside the declared
// enumerations or a title patched to empty text.
func (s *Store) Update(id int64, p Patch) (Task, bool, error) {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Task{}, false, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return Task{}, false, &ValidationError{Field: "priority", Reason: "must be high, medium or low"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return Task{}, false, &ValidationError{Field: "status", Reason: "must be pending, in_progress, completed or cancelled"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		t := &s.tasks[i]
		if p.Title != nil {
			t.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.Status != nil {
			t.Status = *p.Status
		}
		if p.DueDate != nil {
			due := *p.DueDate
			t.DueDate = &due
		}
		if p.Tags != nil {
			t.Tags = *p.Tags
		}
		if p.Metadata != nil {
			t.Metadata = p.Metadata
		}
		t.UpdatedAt = s.now()
		return t.clone(), true, nil
	}
	return Task{}, false, nil
}

// Delete removes the task with the given id. It reports whether a record
// was removed and never errors; deleting an absent id leaves the store
// untouched, including the identifier counter.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a copy of every task in store order.
func (s *Store) All() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for i := range s.tasks {
		out = append(out, s.tasks[i].clone())
	}
	return out
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Snapshot copies out the records and the identifier counter for
// persistence.
func (s *Store) Snapshot() ([]Task, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for i := range s.tasks {
		out = append(out, s.tasks[i].clone())
	}
	return out, s.counter
}

// Restore replaces the store contents from a persisted snapshot. The
// counter is raised to the highest restored id when the stored counter
// lags behind, so restored stores keep the monotonic-id invariant.
func (s *Store) Restore(tasks []Task, counter int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make([]Task, 0, len(tasks))
	for i := range tasks {
		s.tasks = append(s.tasks, tasks[i].clone())
		if tasks[i].ID > counter {
			counter = tasks[i].ID
		}
	}
	s.counter = counter
}
