// Package conversation implements the append-only exchange log. Entries
// are sequence-numbered in append order and the core never prunes them;
// retention is an operational concern outside this package.
package conversation

import (
	"maps"
	"sync"
	"time"
)

// Entry is one logged exchange between a caller and the dialogue engine.
// UserMessage may be synthetic, e.g. a workflow trigger label.
type Entry struct {
	ID            int64          `json:"id"`
	UserMessage   string         `json:"user_message"`
	AgentResponse string         `json:"agent_response"`
	CreatedAt     time.Time      `json:"created_at"`
	Context       map[string]any `json:"context,omitempty"`
}

func (e Entry) clone() Entry {
	c := e
	if e.Context != nil {
		c.Context = maps.Clone(e.Context)
	}
	return c
}

// Log is the append-only conversation record for one assistant instance.
// Append runs under a single lock so concurrent callers cannot interleave
// sequence assignment and insertion.
type Log struct {
	mu      sync.Mutex
	seq     int64
	entries []Entry

	now func() time.Time
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

// Append records one exchange and returns the stored entry.
func (l *Log) Append(userMessage, agentResponse string, ctx map[string]any) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	e := Entry{
		ID:            l.seq,
		UserMessage:   userMessage,
		AgentResponse: agentResponse,
		CreatedAt:     l.now(),
		Context:       ctx,
	}
	e = e.clone()
	l.entries = append(l.entries, e)
	return e.clone()
}

// Recent returns the last n entries in chronological order. n <= 0 returns
// the whole log.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if n > 0 && len(l.entries) > n {
		start = len(l.entries) - n
	}
	out := make([]Entry, 0, len(l.entries)-start)
	for i := start; i < len(l.entries); i++ {
		out = append(out, l.entries[i].clone())
	}
	return out
}

// Len returns the number of logged entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot copies out the entries and the sequence counter for
// persistence.
func (l *Log) Snapshot() ([]Entry, int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0, len(l.entries))
	for i := range l.entries {
		out = append(out, l.entries[i].clone())
	}
	return out, l.seq
}

// Restore replaces the log contents from a persisted snapshot, raising the
// sequence counter to the highest restored id when the stored counter lags.
func (l *Log) Restore(entries []Entry, seq int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]Entry, 0, len(entries))
	for i := range entries {
		l.entries = append(l.entries, entries[i].clone())
		if entries[i].ID > seq {
			seq = entries[i].ID
		}
	}
	l.seq = seq
}
