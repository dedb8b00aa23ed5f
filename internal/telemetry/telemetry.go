// Package telemetry counts what flows through the buffer: accepted and
// declined data sets, evictions, resets and reference traffic. Counters
// are process-wide atomics; there is no sampling loop.
package telemetry

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Telemetry holds the buffer's counters.
type Telemetry struct {
	startTime time.Time

	datasetsAdded    atomic.Int64
	datasetsRejected atomic.Int64
	parseErrors      atomic.Int64
	refErrors        atomic.Int64
	entriesEvicted   atomic.Int64
	entriesDeleted   atomic.Int64
	resets           atomic.Int64
	refsIngested     atomic.Int64
	refBytesStored   atomic.Int64
}

var (
	instance *Telemetry
	once     sync.Once
)

// Get returns the singleton instance.
func Get() *Telemetry {
	once.Do(func() {
		instance = &Telemetry{startTime: time.Now()}
	})
	return instance
}

func (t *Telemetry) DatasetAdded()         { t.datasetsAdded.Add(1) }
func (t *Telemetry) DatasetRejected()      { t.datasetsRejected.Add(1) }
func (t *Telemetry) ParseError()           { t.parseErrors.Add(1) }
func (t *Telemetry) RefError()             { t.refErrors.Add(1) }
func (t *Telemetry) EntriesEvicted(n int)  { t.entriesEvicted.Add(int64(n)) }
func (t *Telemetry) EntryDeleted()         { t.entriesDeleted.Add(1) }
func (t *Telemetry) Reset()                { t.resets.Add(1) }
func (t *Telemetry) RefIngested(bytes int) { t.refsIngested.Add(1); t.refBytesStored.Add(int64(bytes)) }

// Snapshot returns the current counter values.
func (t *Telemetry) Snapshot() map[string]int64 {
	return map[string]int64{
		"datasets_added":    t.datasetsAdded.Load(),
		"datasets_rejected": t.datasetsRejected.Load(),
		"parse_errors":      t.parseErrors.Load(),
		"ref_errors":        t.refErrors.Load(),
		"entries_evicted":   t.entriesEvicted.Load(),
		"entries_deleted":   t.entriesDeleted.Load(),
		"resets":            t.resets.Load(),
		"refs_ingested":     t.refsIngested.Load(),
		"ref_bytes_stored":  t.refBytesStored.Load(),
	}
}

// LogSummary writes one summary event with all counters and heap stats.
func (t *Telemetry) LogSummary(log zerolog.Logger) {
	ev := log.Info()
	for k, v := range t.Snapshot() {
		ev = ev.Int64(k, v)
	}
	heap, sys := MemStats()
	ev.Uint64("heap_alloc_bytes", heap).
		Uint64("sys_bytes", sys).
		Dur("uptime", time.Since(t.startTime)).
		Msg("telemetry summary")
}

// MemStats returns current heap allocation and total OS memory obtained.
func MemStats() (heapAlloc, sys uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, ms.Sys
}
