package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"supplyguard/internal/domain/risk"
)

const DefaultActionLogSize = 20

type ActionEntry struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	At        time.Time   `json:"at"`
	Intent    risk.Intent `json:"intent"`
	RiskScore int         `json:"risk_score"`
	Detail    string      `json:"detail"`
}

// Text renders "[HH:MM:SS] INTENT (score/5) → detail".
func (e ActionEntry) Text() string {
	return fmt.Sprintf("[%s] %s (%d/5) → %s", e.At.Format(time.TimeOnly), e.Intent, e.RiskScore, e.Detail)
}

// ActionLog keeps the most recent entries for diagnostics. It is not a record of truth.
type ActionLog struct {
	mu      sync.Mutex
	entries []ActionEntry
	next    int
	full    bool
}

func NewActionLog(size int) *ActionLog {
	if size <= 0 {
		size = DefaultActionLogSize
	}
	return &ActionLog{entries: make([]ActionEntry, size)}
}

func (l *ActionLog) Append(entry ActionEntry) ActionEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = entry
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	return entry
}

// Entries returns a copy, oldest first.
func (l *ActionLog) Entries() []ActionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]ActionEntry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}

	out := make([]ActionEntry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

func (l *ActionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}
