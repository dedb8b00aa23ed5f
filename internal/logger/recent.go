package logger

import (
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

// Entry is one captured log line.
type Entry struct {
	Level     string `json:"level"`
	Component string `json:"component,omitempty"`
	Message   string `json:"message"`
	Time      string `json:"time,omitempty"`
}

// RecentBuffer is a fixed-size ring of the most recent log entries.
type RecentBuffer struct {
	mu       sync.RWMutex
	entries  []Entry
	size     int
	writePos int
	count    int
}

var (
	globalBuffer *RecentBuffer
	bufferOnce   sync.Once
)

// GetBuffer returns the global recent-entries ring.
func GetBuffer() *RecentBuffer {
	bufferOnce.Do(func() {
		globalBuffer = NewRecentBuffer(1000)
	})
	return globalBuffer
}

// NewRecentBuffer creates a ring holding the last size entries.
func NewRecentBuffer(size int) *RecentBuffer {
	return &RecentBuffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Add appends an entry, overwriting the oldest when full.
func (b *RecentBuffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.writePos] = e
	b.writePos = (b.writePos + 1) % b.size
	if b.count < b.size {
		b.count++
	}
}

// Recent returns up to limit entries, newest first.
func (b *RecentBuffer) Recent(limit int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.count {
		limit = b.count
	}
	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (b.writePos - 1 - i + b.size) % b.size
		out = append(out, b.entries[idx])
	}
	return out
}

// Count returns the number of captured entries.
func (b *RecentBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// CaptureWriter tees zerolog output into the global ring.
type CaptureWriter struct {
	buffer   *RecentBuffer
	original io.Writer
}

// NewCaptureWriter wraps original so every rendered line is also captured.
func NewCaptureWriter(original io.Writer) *CaptureWriter {
	return &CaptureWriter{
		buffer:   GetBuffer(),
		original: original,
	}
}

// Write implements io.Writer.
func (w *CaptureWriter) Write(p []byte) (n int, err error) {
	if w.original != nil {
		n, err = w.original.Write(p)
	} else {
		n = len(p)
	}

	var e Entry
	if jsonErr := gojson.Unmarshal(p, &e); jsonErr == nil && (e.Message != "" || e.Level != "") {
		w.buffer.Add(e)
	}

	return n, err
}
