// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package history keeps the in-memory log of the sent messages.  The log
// lives as long as the process does.
package history

import (
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"
)

// Entry is a single sent message.  Entries are never modified once
// appended.
type Entry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Common field values.
const (
	RoleAssistant = "assistant"
	StatusSent    = "sent"
)

// NewEntry returns the entry for a message that was sent at t.
func NewEntry(content string, t time.Time) Entry {
	return Entry{
		Role:      RoleAssistant,
		Content:   content,
		Status:    StatusSent,
		Timestamp: t.Format(time.RFC3339),
	}
}

// Log is the ordered message log, safe for concurrent use.  With a positive
// capacity it keeps the last capacity entries, otherwise it grows without a
// bound.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	start   int // index of the oldest entry, only used when full.
	cap     int
}

// New creates a new log.  Zero or negative capacity means unbounded.
func New(capacity int) *Log {
	return &Log{cap: max(capacity, 0)}
}

// Append adds the entry to the log.  On a bounded log that is full, the
// oldest entry is overwritten.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cap == 0 || len(l.entries) < l.cap {
		l.entries = append(l.entries, e)
		return
	}
	l.entries[l.start] = e
	l.start = (l.start + 1) % l.cap
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.start:]...)
	out = append(out, l.entries[:l.start]...)
	return out
}

// All iterates over a snapshot of the entries, oldest first.
func (l *Log) All() iter.Seq2[int, Entry] {
	entries := l.Entries()
	return func(yield func(int, Entry) bool) {
		for i, e := range entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

const noHistory = "No message history available."

// Format renders the log as markdown.
func (l *Log) Format() string {
	if l.Len() == 0 {
		return noHistory
	}
	var sb strings.Builder
	sb.WriteString("# Message History\n\n")
	for i, e := range l.All() {
		fmt.Fprintf(&sb, "## %d. %s\n", i+1, capitalise(e.Role))
		fmt.Fprintf(&sb, "%s\n\n", e.Content)
		if e.Status != "" {
			fmt.Fprintf(&sb, "Status: %s\n", e.Status)
		}
		if e.Timestamp != "" {
			fmt.Fprintf(&sb, "Time: %s\n", e.Timestamp)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
