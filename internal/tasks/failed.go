package tasks

import "sync"

// FailedVideoLog records videos that could not be appended during one run.
type FailedVideoLog struct {
	mu      sync.Mutex
	entries []string
}

// Add records a title, or the video ID when the title is unknown.
func (l *FailedVideoLog) Add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Reset empties the log at the start of a run.
func (l *FailedVideoLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Entries returns a copy of the log in insertion order.
func (l *FailedVideoLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}
