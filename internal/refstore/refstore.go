// Package refstore implements the reference table: binary attachments
// addressed by symbolic name, with a secondary index by owning entry id so
// that evicting an entry can drop all of its references in one sweep.
//
// Both indices are kept consistent under a single readers-writer lock.
// Content can optionally be held zstd-compressed above a size threshold;
// lookups always return the original bytes.
package refstore

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/basekick-labs/qds-buffer/internal/telemetry"
	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

// entry wraps the public record with storage details.
type entry struct {
	data       qds.ReferenceData
	compressed bool
}

// Table is a thread-safe dual-indexed reference store.
type Table struct {
	mu     sync.RWMutex
	byName map[string]*entry
	byID   map[int64]map[string]*entry

	// Synthesized reference names are "ref-<counter>"; the counter only
	// ever grows, names are never reused.
	refCounter uint64

	// Content at or above compressOver bytes is stored zstd-compressed;
	// zero disables compression.
	compressOver int

	log zerolog.Logger
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// New creates an empty table. compressOver is the compression threshold in
// bytes (0 = off).
func New(compressOver int, log zerolog.Logger) *Table {
	return &Table{
		byName:       make(map[string]*entry),
		byID:         make(map[int64]map[string]*entry),
		compressOver: compressOver,
		log:          log,
	}
}

// Set registers a reference under a caller-chosen name with id 0; the id is
// patched once a data set referencing the name is accepted.
func (t *Table) Set(name string, content []byte, format string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byName[name]; ok {
		return &qds.RefError{Kind: qds.RefExists, Msg: "Reference " + name + " exists already", Scope: "ReferenceTable.Set"}
	}
	t.insert(0, name, format, content)
	return nil
}

// Get returns the reference stored under name. The returned record holds
// the uncompressed content and is a copy safe to retain.
func (t *Table) Get(name string) (qds.ReferenceData, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.byName[name]
	if !ok {
		return qds.ReferenceData{}, &qds.RefError{Kind: qds.RefNotFound, Msg: "Reference " + name + " not found", Scope: "ReferenceTable.Get"}
	}
	out := e.data
	if e.compressed {
		plain, err := zstdDecoder.DecodeAll(e.data.Content, nil)
		if err != nil {
			return qds.ReferenceData{}, &qds.FileIOError{Msg: "Could not decompress reference " + name, Scope: "ReferenceTable.Get", Err: err}
		}
		out.Content = plain
	}
	return out, nil
}

// BindOrIngest resolves one REF-typed measurement for the entry being
// added. A known unbound reference is bound to entryID; a known bound
// reference is refused. Otherwise the value is treated as a file path: the
// file is read whole, removed, stored under a synthesized name, and the
// measurement's value is rewritten to that name.
func (t *Table) BindOrIngest(entryID int64, m *qds.Measurement) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	value := m.Value.Str()

	if e, ok := t.byName[value]; ok {
		if e.data.ID != 0 {
			return &qds.RefError{Kind: qds.RefInUse, Msg: "The reference '" + value + "' is already in use", Scope: "ReferenceTable.BindOrIngest"}
		}
		t.rebind(e, entryID)
		return nil
	}

	// Not a known reference: the value must be a readable file.
	f, err := os.Open(value)
	if err != nil {
		return &qds.RefError{
			Kind:  qds.RefInvalid,
			Msg:   "The reference of '" + m.Name + "' is neither an existing file, nor an existing reference",
			Scope: "ReferenceTable.BindOrIngest",
		}
	}
	content, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return &qds.FileIOError{Msg: "Could not read from file " + value, Scope: "ReferenceTable.BindOrIngest", Err: err}
	}
	if len(content) == 0 {
		return &qds.FileIOError{Msg: "File size is 0 bytes", Scope: "ReferenceTable.BindOrIngest"}
	}
	if err := os.Remove(value); err != nil {
		return &qds.FileIOError{Msg: "Could not delete file " + value, Scope: "ReferenceTable.BindOrIngest", Err: err}
	}

	name := "ref-" + strconv.FormatUint(t.refCounter, 10)
	t.refCounter++

	format := "unknown"
	if i := strings.LastIndexByte(value, '.'); i >= 0 {
		format = value[i+1:]
	}

	t.insert(entryID, name, format, content)
	telemetry.Get().RefIngested(len(content))

	t.log.Debug().
		Str("path", value).
		Str("ref", name).
		Str("format", format).
		Int("bytes", len(content)).
		Int64("id", entryID).
		Msg("ingested reference file")

	// Replace the original path value with the synthesized name.
	m.Value = qds.StringValue(name)
	return nil
}

// UnbindByEntry drops every reference bound to entryID. Unbound references
// (id 0) are never touched.
func (t *Table) UnbindByEntry(entryID int64) {
	if entryID == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for name := range t.byID[entryID] {
		delete(t.byName, name)
	}
	delete(t.byID, entryID)
}

// Clear drops the entire table, bound and unbound alike.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byName = make(map[string]*entry)
	t.byID = make(map[int64]map[string]*entry)
}

// Len returns the number of stored references.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byName)
}

// insert stores a record under both indices; the name must be absent.
// Caller holds the exclusive lock.
func (t *Table) insert(id int64, name, format string, content []byte) {
	compressed := false
	if t.compressOver > 0 && len(content) >= t.compressOver {
		if packed := zstdEncoder.EncodeAll(content, nil); len(packed) < len(content) {
			content = packed
			compressed = true
		}
	}
	e := &entry{
		data:       qds.ReferenceData{ID: id, Name: name, Format: format, Content: content},
		compressed: compressed,
	}
	t.byName[name] = e
	if t.byID[id] == nil {
		t.byID[id] = make(map[string]*entry)
	}
	t.byID[id][name] = e
}

// rebind moves an entry from id 0 to its owning entry id, keeping both
// indices consistent. Caller holds the exclusive lock.
func (t *Table) rebind(e *entry, entryID int64) {
	delete(t.byID[0], e.data.Name)
	if len(t.byID[0]) == 0 {
		delete(t.byID, 0)
	}
	e.data.ID = entryID
	if t.byID[entryID] == nil {
		t.byID[entryID] = make(map[string]*entry)
	}
	t.byID[entryID][e.data.Name] = e
}
