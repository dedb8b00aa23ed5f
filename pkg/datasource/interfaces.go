// Package datasource composes the parser, validator, ring buffer and
// reference table into the public QDS buffer API, and keeps the reset and
// overflow journals.
package datasource

import (
	"sync"

	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

// SharedGetters are the metadata accessors available on both capability
// views.
type SharedGetters interface {
	// Size returns the number of buffered data sets.
	Size() int
	// MaxSize returns the buffer capacity.
	MaxSize() int
	// LastID returns the id of the newest data set, or -1 when empty.
	LastID() int64
	// CounterMode returns the active counter mode (0 or 1).
	CounterMode() int8
	// AllowOverflow reports whether a full buffer evicts instead of failing.
	AllowOverflow() bool
}

// DataSourceIn is the producer-facing view of a data source.
type DataSourceIn interface {
	SharedGetters

	// Add parses, validates and buffers one QDS data set. It returns the
	// number of entries evicted to make room and whether the set was
	// accepted; accepted == false with a nil error means locked entries
	// declined it.
	Add(id int64, json []byte) (evicted int, accepted bool, err error)

	// SetReference registers a binary attachment under a symbolic name.
	SetReference(name string, data []byte, format string) error

	// Reset discards every buffered data set and clears the reference
	// table. Resetting an empty buffer is a no-op.
	Reset(reason qds.ResetReason)
}

// DataSourceOut is the consumer-facing view of a data source.
type DataSourceOut interface {
	SharedGetters

	// Delete removes one data set; a missing id is success.
	Delete(id int64)

	// IsReset reports whether unacknowledged resets exist.
	IsReset() bool
	// AcknowledgeReset returns the reset journal and empties it.
	AcknowledgeReset() qds.ResetInformationList

	// IsOverflown reports whether unacknowledged overflow evictions exist.
	IsOverflown() bool
	// AcknowledgeOverflow returns the deletion journal and empties it.
	AcknowledgeOverflow() qds.DeletionInformationList

	// GetReference returns the attachment stored under name.
	GetReference(name string) (qds.ReferenceData, error)

	// SharedLock returns the lock to hold while traversing Entries.
	SharedLock() sync.Locker
	// Entries returns the buffered data sets in insertion order; hold
	// SharedLock for the whole traversal. Flipping an entry's lock bit is
	// the only mutation allowed through the result.
	Entries() []*qds.BufferEntry
}

// DataSourceInOut combines both capability views. Narrow a value to
// DataSourceIn or DataSourceOut to hand out input-only or output-only
// access.
type DataSourceInOut interface {
	DataSourceIn
	DataSourceOut

	// ResetJournalSize returns the reset journal cap.
	ResetJournalSize() int
	// DeletionJournalSize returns the deletion journal cap.
	DeletionJournalSize() int
}
