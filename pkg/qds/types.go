package qds

import "sync/atomic"

// BufferEntry is one buffered data set: a counter-tagged measurement list
// with its arrival time and a lock bit.
//
// The measurement slice is shared: iterators may keep it after the entry is
// evicted and it stays readable until the last holder drops it. The lock bit
// is the only field that may be mutated after insertion; it may be flipped
// through an iterator while holding the buffer's shared lock.
type BufferEntry struct {
	ID           int64
	Measurements []Measurement
	CreatedAtMS  uint64

	locked atomic.Bool
}

// NewBufferEntry builds an unlocked entry.
func NewBufferEntry(id int64, measurements []Measurement, createdAtMS uint64) *BufferEntry {
	return &BufferEntry{ID: id, Measurements: measurements, CreatedAtMS: createdAtMS}
}

// Locked reports whether the entry is pinned. A locked entry survives
// overflow eviction and counter-mode-1 overwrite.
func (e *BufferEntry) Locked() bool { return e.locked.Load() }

// SetLocked pins or unpins the entry.
func (e *BufferEntry) SetLocked(locked bool) { e.locked.Store(locked) }

// ResetReason describes who triggered a buffer reset.
type ResetReason uint8

const (
	ResetUnknown ResetReason = iota
	ResetSystem
	ResetUser
)

// String returns a readable reason name.
func (r ResetReason) String() string {
	switch r {
	case ResetSystem:
		return "system"
	case ResetUser:
		return "user"
	}
	return "unknown"
}

// ResetInformation records one reset that discarded at least one entry.
// A zero ResetTimeMS marks the sentinel produced by resetting an empty
// buffer; sentinels are never journaled.
type ResetInformation struct {
	ResetTimeMS         uint64
	Reason              ResetReason
	OldestDatasetTimeMS uint64
	NewestDatasetTimeMS uint64
	DeletedCount        uint32
}

// DeletionInformation records one entry evicted on overflow. Explicit
// deletes and resets are not journaled.
type DeletionInformation struct {
	DeletionTimeMS uint64
	DatasetTimeMS  uint64
}

// ResetInformationList is the bounded reset journal. ExceededMaxEntries
// latches once the cap forced the oldest element out and stays set until
// the journal is acknowledged.
type ResetInformationList struct {
	List               []ResetInformation
	ExceededMaxEntries bool
}

// DeletionInformationList is the bounded overflow-eviction journal,
// with the same latching semantics as ResetInformationList.
type DeletionInformationList struct {
	List               []DeletionInformation
	ExceededMaxEntries bool
}
