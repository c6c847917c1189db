// Package record keeps the unbounded per-session acquisition history and
// turns it into exports. The session log is deliberately distinct from the
// bounded series window: eviction there never touches export completeness
package record

import (
	"sort"
	"sync"
	"time"
)

// Entry is one recorded sample batch with its originating raw line
type Entry struct {
	Timestamp time.Time
	Raw       string
	Values    map[string]float64
}

// SessionLog is the append-only history of every non-empty batch acquired
// this session
type SessionLog struct {
	mu      sync.RWMutex
	start   time.Time
	entries []Entry
	labels  map[string]struct{}
}

// NewSessionLog instantiates an empty SessionLog stamped with the session
// start time
func NewSessionLog() *SessionLog {
	return &SessionLog{
		start:  time.Now(),
		labels: make(map[string]struct{}),
	}
}

// Start returns the session start time
func (l *SessionLog) Start() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.start
}

// Len returns the number of recorded entries
func (l *SessionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Append records one entry and folds its names into the label set
func (l *SessionLog) Append(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	for name := range entry.Values {
		l.labels[name] = struct{}{}
	}
}

// Entries returns a copy of the recorded history in append order
func (l *SessionLog) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Labels returns every measurement name seen this session, sorted
func (l *SessionLog) Labels() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	labels := make([]string, 0, len(l.labels))
	for name := range l.labels {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	return labels
}

// Reset clears the recorded history and label set and restamps the session
// start. Exposed separately from the series window clear: wiping the display
// never has to cost the export history, nor the other way around
func (l *SessionLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.labels = make(map[string]struct{})
	l.start = time.Now()
}
