// Package ringbuffer implements the bounded FIFO of QDS buffer entries.
//
// Entries are kept in insertion order. In counter mode 0 ids must be
// strictly increasing, so insertion order coincides with ascending id; in
// counter mode 1 ids are arbitrary and re-pushing an id replaces the
// existing entry unless it is locked. When the buffer is full and overflow
// is allowed, the oldest unlocked entries are evicted to make room; locked
// entries are never evicted.
package ringbuffer

import (
	"strconv"
	"sync"
	"time"

	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

// OnDelete is notified under the buffer's exclusive lock whenever entries
// leave the buffer. Three events share the signature:
//
//	entry != nil, timestampMS > 0: overflow eviction at timestampMS
//	entry != nil, timestampMS == 0: explicit delete or mode-1 overwrite
//	entry == nil, clear == true: reset, drop everything
//
// The callback must not fail; error handling is the caller's concern.
type OnDelete func(entry *qds.BufferEntry, clear bool, timestampMS uint64)

// RingBuffer is a thread-safe bounded FIFO of buffer entries.
type RingBuffer struct {
	maxSize       int
	counterMode   int8
	allowOverflow bool
	onDelete      OnDelete

	mu      sync.RWMutex
	entries []*qds.BufferEntry
}

// New creates a buffer holding at most maxSize entries. counterMode is 0
// (strictly increasing ids) or 1 (arbitrary ids, reinsert replaces).
func New(maxSize int, counterMode int8, allowOverflow bool, onDelete OnDelete) *RingBuffer {
	return &RingBuffer{
		maxSize:       maxSize,
		counterMode:   counterMode,
		allowOverflow: allowOverflow,
		onDelete:      onDelete,
	}
}

// Push appends a new entry. It returns the number of entries evicted to
// make room and whether the entry was accepted; accepted == false with a
// nil error means the push was declined by locked entries.
func (b *RingBuffer) Push(id int64, measurements []qds.Measurement) (int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Discard old unlocked data.
	evicted := 0
	if len(b.entries) >= b.maxSize {
		if !b.allowOverflow {
			return 0, false, &qds.RingBufferError{Kind: qds.Overflow, Msg: "Data overflow", Scope: "RingBuffer.Push"}
		}

		i := 0
		for i < len(b.entries) && len(b.entries) >= b.maxSize {
			e := b.entries[i]
			if e.Locked() {
				i++
				continue
			}
			if b.onDelete != nil {
				b.onDelete(e, false, nowMS())
			}
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			evicted++
		}

		if len(b.entries) >= b.maxSize {
			// All surviving data is locked, can't add new data.
			return evicted, false, nil
		}
	}

	if b.counterMode == 0 {
		// Only allow ids newer than the last element.
		if n := len(b.entries); n > 0 && b.entries[n-1].ID >= id {
			return evicted, false, &qds.RingBufferError{
				Kind:  qds.BadID,
				Msg:   "Bad Id " + strconv.FormatInt(id, 10),
				Scope: "RingBuffer.Push",
			}
		}
	} else {
		// Check for an existing entry with the same id.
		for i, e := range b.entries {
			if e.ID != id {
				continue
			}
			if e.Locked() {
				// No action if the entry is locked.
				return evicted, false, nil
			}
			if b.onDelete != nil {
				b.onDelete(e, false, 0)
			}
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}

	b.entries = append(b.entries, qds.NewBufferEntry(id, measurements, nowMS()))
	return evicted, true, nil
}

// Delete removes the entry with the given id. A missing id is success.
func (b *RingBuffer) Delete(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, e := range b.entries {
		if e.ID == id {
			if b.onDelete != nil {
				b.onDelete(e, false, 0)
			}
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
		if b.counterMode == 0 && e.ID > id {
			// Entries are sorted in mode 0, stop early.
			return
		}
	}
}

// Reset discards every entry, locked or not. On an empty buffer it returns
// the zero sentinel and notifies nobody; otherwise the delete hook fires
// exactly once with the clear flag.
func (b *RingBuffer) Reset(reason qds.ResetReason) qds.ResetInformation {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) == 0 {
		return qds.ResetInformation{}
	}

	if b.onDelete != nil {
		b.onDelete(nil, true, 0)
	}

	info := qds.ResetInformation{
		ResetTimeMS:         nowMS(),
		Reason:              reason,
		OldestDatasetTimeMS: b.entries[0].CreatedAtMS,
		NewestDatasetTimeMS: b.entries[len(b.entries)-1].CreatedAtMS,
		DeletedCount:        uint32(len(b.entries)),
	}
	b.entries = nil
	return info
}

// SharedLock returns the lock that must be held while iterating over
// Entries. Mutating operations take the matching exclusive lock internally.
func (b *RingBuffer) SharedLock() sync.Locker {
	return b.mu.RLocker()
}

// Entries returns the live entry sequence in insertion order. The caller
// must hold SharedLock for the whole traversal; the lock bit of a visited
// entry is the only field that may be mutated through the result.
func (b *RingBuffer) Entries() []*qds.BufferEntry {
	return b.entries
}

// Size returns the number of buffered entries.
func (b *RingBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// MaxSize returns the capacity.
func (b *RingBuffer) MaxSize() int { return b.maxSize }

// LastID returns the id of the newest entry, or -1 when empty.
func (b *RingBuffer) LastID() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.entries) == 0 {
		return -1
	}
	return b.entries[len(b.entries)-1].ID
}

// CounterMode returns the configured counter mode.
func (b *RingBuffer) CounterMode() int8 { return b.counterMode }

// AllowOverflow reports whether a full buffer evicts instead of failing.
func (b *RingBuffer) AllowOverflow() bool { return b.allowOverflow }

func nowMS() uint64 {
	return uint64(time.Now().UnixMilli())
}
