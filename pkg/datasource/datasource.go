package datasource

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/basekick-labs/qds-buffer/internal/qdsjson"
	"github.com/basekick-labs/qds-buffer/internal/refstore"
	"github.com/basekick-labs/qds-buffer/internal/ringbuffer"
	"github.com/basekick-labs/qds-buffer/internal/telemetry"
	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

// Options parameterize a data source. The zero value is not usable; use
// DefaultOptions as the base.
type Options struct {
	// BufferSize is the entry capacity.
	BufferSize int
	// CounterMode is 0 (strictly increasing ids) or 1 (arbitrary ids).
	CounterMode int8
	// AllowOverflow makes a full buffer evict oldest unlocked entries
	// instead of failing.
	AllowOverflow bool
	// ResetJournalSize caps the reset journal.
	ResetJournalSize int
	// DeletionJournalSize caps the overflow-eviction journal.
	DeletionJournalSize int
	// CompressRefsOver stores reference content zstd-compressed at or
	// above this many bytes; 0 disables compression.
	CompressRefsOver int
	// Logger receives structured events; defaults to a disabled logger.
	Logger zerolog.Logger
}

// DefaultOptions returns the standard configuration: capacity 100, counter
// mode 0, overflow allowed, journal caps 100.
func DefaultOptions() Options {
	return Options{
		BufferSize:          100,
		CounterMode:         0,
		AllowOverflow:       true,
		ResetJournalSize:    100,
		DeletionJournalSize: 100,
		Logger:              zerolog.Nop(),
	}
}

// DataSource is the concrete combined-view implementation.
type DataSource struct {
	buffer *ringbuffer.RingBuffer
	refs   *refstore.Table

	resetJournalSize    int
	deletionJournalSize int

	resetMu      sync.RWMutex
	resetJournal qds.ResetInformationList

	deletionMu      sync.RWMutex
	deletionJournal qds.DeletionInformationList

	log zerolog.Logger
}

// compile-time interface check
var _ DataSourceInOut = (*DataSource)(nil)

// New creates a data source. The returned value satisfies DataSourceInOut
// and can be narrowed to DataSourceIn or DataSourceOut.
func New(opts Options) *DataSource {
	ds := &DataSource{
		refs:                refstore.New(opts.CompressRefsOver, opts.Logger.With().Str("component", "refstore").Logger()),
		resetJournalSize:    opts.ResetJournalSize,
		deletionJournalSize: opts.DeletionJournalSize,
		log:                 opts.Logger,
	}
	ds.buffer = ringbuffer.New(opts.BufferSize, opts.CounterMode, opts.AllowOverflow, ds.onDelete)
	return ds
}

// Add parses and validates json, resolves its REF measurements against the
// reference table and pushes the resulting set into the buffer. When the
// push is declined or fails, references bound under this id are unbound
// again before returning.
func (ds *DataSource) Add(id int64, json []byte) (int, bool, error) {
	state := qdsjson.NewState()
	if err := qdsjson.Parse(json, state); err != nil {
		telemetry.Get().ParseError()
		return 0, false, err
	}

	measurements := state.Data

	for i := range measurements {
		if measurements[i].Type != qds.TypeRef {
			continue
		}
		if err := ds.refs.BindOrIngest(id, &measurements[i]); err != nil {
			ds.refs.UnbindByEntry(id)
			telemetry.Get().RefError()
			return 0, false, err
		}
	}

	evicted, accepted, err := ds.buffer.Push(id, measurements)
	if err != nil || !accepted {
		ds.refs.UnbindByEntry(id)
	}
	if err != nil {
		return evicted, false, err
	}
	if !accepted {
		telemetry.Get().DatasetRejected()
		ds.log.Warn().Int64("id", id).Msg("data set declined by locked entries")
		return evicted, false, nil
	}

	telemetry.Get().DatasetAdded()
	if evicted > 0 {
		telemetry.Get().EntriesEvicted(evicted)
	}
	ds.log.Debug().Int64("id", id).Int("measurements", len(measurements)).Int("evicted", evicted).Msg("data set added")
	return evicted, true, nil
}

// SetReference registers a reference; the data becomes lifetime-bound to an
// entry once a data set names it.
func (ds *DataSource) SetReference(name string, data []byte, format string) error {
	return ds.refs.Set(name, data, format)
}

// GetReference returns the reference stored under name.
func (ds *DataSource) GetReference(name string) (qds.ReferenceData, error) {
	return ds.refs.Get(name)
}

// Delete removes one data set; its references are unbound via the delete
// hook. A missing id is success.
func (ds *DataSource) Delete(id int64) {
	ds.buffer.Delete(id)
	telemetry.Get().EntryDeleted()
}

// Reset discards the whole buffer and reference table. A reset that
// removed at least one entry is journaled.
func (ds *DataSource) Reset(reason qds.ResetReason) {
	info := ds.buffer.Reset(reason)
	if info.ResetTimeMS == 0 {
		return
	}

	telemetry.Get().Reset()
	ds.log.Info().
		Str("reason", reason.String()).
		Uint32("deleted", info.DeletedCount).
		Msg("buffer reset")

	ds.resetMu.Lock()
	defer ds.resetMu.Unlock()
	ds.resetJournal.List = append(ds.resetJournal.List, info)
	if len(ds.resetJournal.List) > ds.resetJournalSize {
		ds.resetJournal.List = ds.resetJournal.List[1:]
		ds.resetJournal.ExceededMaxEntries = true
	}
}

// IsReset reports whether unacknowledged resets exist.
func (ds *DataSource) IsReset() bool {
	ds.resetMu.RLock()
	defer ds.resetMu.RUnlock()
	return len(ds.resetJournal.List) > 0
}

// AcknowledgeReset returns a snapshot of the reset journal and empties it.
func (ds *DataSource) AcknowledgeReset() qds.ResetInformationList {
	ds.resetMu.Lock()
	defer ds.resetMu.Unlock()

	out := qds.ResetInformationList{
		List:               append([]qds.ResetInformation(nil), ds.resetJournal.List...),
		ExceededMaxEntries: ds.resetJournal.ExceededMaxEntries,
	}
	ds.resetJournal = qds.ResetInformationList{}
	return out
}

// IsOverflown reports whether unacknowledged overflow evictions exist.
func (ds *DataSource) IsOverflown() bool {
	ds.deletionMu.RLock()
	defer ds.deletionMu.RUnlock()
	return len(ds.deletionJournal.List) > 0
}

// AcknowledgeOverflow returns a snapshot of the deletion journal and
// empties it.
func (ds *DataSource) AcknowledgeOverflow() qds.DeletionInformationList {
	ds.deletionMu.Lock()
	defer ds.deletionMu.Unlock()

	out := qds.DeletionInformationList{
		List:               append([]qds.DeletionInformation(nil), ds.deletionJournal.List...),
		ExceededMaxEntries: ds.deletionJournal.ExceededMaxEntries,
	}
	ds.deletionJournal = qds.DeletionInformationList{}
	return out
}

// SharedLock returns the buffer's shared lock; hold it while traversing
// Entries.
func (ds *DataSource) SharedLock() sync.Locker {
	return ds.buffer.SharedLock()
}

// Entries returns the buffered data sets in insertion order.
func (ds *DataSource) Entries() []*qds.BufferEntry {
	return ds.buffer.Entries()
}

// Size returns the number of buffered data sets.
func (ds *DataSource) Size() int { return ds.buffer.Size() }

// MaxSize returns the buffer capacity.
func (ds *DataSource) MaxSize() int { return ds.buffer.MaxSize() }

// LastID returns the id of the newest data set, or -1 when empty.
func (ds *DataSource) LastID() int64 { return ds.buffer.LastID() }

// CounterMode returns the active counter mode.
func (ds *DataSource) CounterMode() int8 { return ds.buffer.CounterMode() }

// AllowOverflow reports whether a full buffer evicts instead of failing.
func (ds *DataSource) AllowOverflow() bool { return ds.buffer.AllowOverflow() }

// ResetJournalSize returns the reset journal cap.
func (ds *DataSource) ResetJournalSize() int { return ds.resetJournalSize }

// DeletionJournalSize returns the deletion journal cap.
func (ds *DataSource) DeletionJournalSize() int { return ds.deletionJournalSize }

// onDelete is invoked by the ring buffer under its exclusive lock. Overflow
// evictions (timestampMS > 0) are journaled and unbound; explicit deletes
// and mode-1 overwrites only unbind; a reset clears the reference table.
func (ds *DataSource) onDelete(entry *qds.BufferEntry, clear bool, timestampMS uint64) {
	if entry != nil {
		if timestampMS > 0 {
			ds.deletionMu.Lock()
			ds.deletionJournal.List = append(ds.deletionJournal.List, qds.DeletionInformation{
				DeletionTimeMS: timestampMS,
				DatasetTimeMS:  entry.CreatedAtMS,
			})
			if len(ds.deletionJournal.List) > ds.deletionJournalSize {
				ds.deletionJournal.List = ds.deletionJournal.List[1:]
				ds.deletionJournal.ExceededMaxEntries = true
			}
			ds.deletionMu.Unlock()
		}
		ds.refs.UnbindByEntry(entry.ID)
		return
	}

	if clear {
		ds.refs.Clear()
	}
}
