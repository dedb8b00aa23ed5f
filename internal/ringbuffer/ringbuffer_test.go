package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basekick-labs/qds-buffer/pkg/qds"
)

func dummy() []qds.Measurement {
	return []qds.Measurement{}
}

func named(name string) []qds.Measurement {
	return []qds.Measurement{{Name: name, Type: qds.TypeString, Value: qds.StringValue("")}}
}

func mustPush(t *testing.T, b *RingBuffer, id int64, m []qds.Measurement) {
	t.Helper()
	_, accepted, err := b.Push(id, m)
	require.NoError(t, err)
	require.True(t, accepted)
}

func TestSimplePushRead(t *testing.T) {
	b := New(100, 0, true, nil)

	mustPush(t, b, 111, named("SimplePushRead 0123"))

	entries := b.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(111), entries[0].ID)
	assert.Equal(t, "SimplePushRead 0123", entries[0].Measurements[0].Name)
}

func TestPushBadID(t *testing.T) {
	b := New(100, 0, true, nil)

	mustPush(t, b, 1, dummy())
	mustPush(t, b, 2, dummy())
	mustPush(t, b, 3, dummy())

	_, _, err := b.Push(2, dummy())
	var rbErr *qds.RingBufferError
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, qds.BadID, rbErr.Kind)

	mustPush(t, b, 99, dummy())

	_, _, err = b.Push(50, dummy())
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, qds.BadID, rbErr.Kind)
}

func TestOverflow(t *testing.T) {
	b := New(3, 0, true, nil)

	mustPush(t, b, 1, dummy())
	assert.Equal(t, 1, b.Size())
	assert.Equal(t, int64(1), b.LastID())
	mustPush(t, b, 10, dummy())
	assert.Equal(t, 2, b.Size())
	assert.Equal(t, int64(10), b.LastID())
	mustPush(t, b, 50, dummy())
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, int64(50), b.LastID())

	evicted, accepted, err := b.Push(100, dummy())
	require.NoError(t, err)
	require.True(t, accepted)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, int64(100), b.LastID())

	evicted, accepted, err = b.Push(500, dummy())
	require.NoError(t, err)
	require.True(t, accepted)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, int64(500), b.LastID())
}

func TestOverflowDisallowed(t *testing.T) {
	b := New(2, 0, false, nil)

	mustPush(t, b, 1, dummy())
	mustPush(t, b, 2, dummy())

	_, _, err := b.Push(3, dummy())
	var rbErr *qds.RingBufferError
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, qds.Overflow, rbErr.Kind)
	assert.Equal(t, 2, b.Size())
}

func TestIterate(t *testing.T) {
	b := New(100, 0, true, nil)
	for _, id := range []int64{1, 10, 50, 100, 500} {
		mustPush(t, b, id, dummy())
	}

	lock := b.SharedLock()
	lock.Lock()
	defer lock.Unlock()

	var got []int64
	for _, e := range b.Entries() {
		got = append(got, e.ID)
	}
	assert.Equal(t, []int64{1, 10, 50, 100, 500}, got)
}

func TestLockedEntriesSurviveOverflow(t *testing.T) {
	b := New(3, 0, true, nil)
	mustPush(t, b, 1, dummy())
	mustPush(t, b, 10, dummy())
	mustPush(t, b, 50, dummy())

	b.Entries()[1].SetLocked(true) // lock entry '10'

	mustPush(t, b, 100, dummy())
	mustPush(t, b, 500, dummy())
	mustPush(t, b, 1000, dummy())

	ids := func() []int64 {
		var out []int64
		for _, e := range b.Entries() {
			out = append(out, e.ID)
		}
		return out
	}
	require.Equal(t, []int64{10, 500, 1000}, ids())

	b.Entries()[1].SetLocked(true) // lock entry '500'
	b.Entries()[2].SetLocked(true) // lock entry '1000'

	// Everything is locked: new pushes are declined without error.
	for _, id := range []int64{5000, 10000, 50000} {
		_, accepted, err := b.Push(id, dummy())
		require.NoError(t, err)
		assert.False(t, accepted)
	}
	assert.Equal(t, []int64{10, 500, 1000}, ids())
}

func TestDelete(t *testing.T) {
	b := New(100, 0, true, nil)
	for _, id := range []int64{1, 10, 50, 100, 500} {
		mustPush(t, b, id, dummy())
	}
	require.Equal(t, 5, b.Size())

	b.Delete(1)
	assert.Equal(t, 4, b.Size())

	b.Delete(100)
	b.Delete(50)
	assert.Equal(t, 2, b.Size())

	var got []int64
	for _, e := range b.Entries() {
		got = append(got, e.ID)
	}
	assert.Equal(t, []int64{10, 500}, got)
}

func TestDeleteNotFound(t *testing.T) {
	b := New(100, 0, true, nil)
	for _, id := range []int64{1, 10, 50, 100, 500} {
		mustPush(t, b, id, dummy())
	}

	b.Delete(2) // absent, not an error
	assert.Equal(t, 5, b.Size())

	b.Delete(10)
	b.Delete(11)
	b.Delete(100)
	assert.Equal(t, 3, b.Size())
}

func TestReset(t *testing.T) {
	b := New(100, 0, true, nil)
	for _, id := range []int64{1, 10, 50, 100, 500} {
		mustPush(t, b, id, dummy())
	}
	require.Equal(t, 5, b.Size())

	info := b.Reset(qds.ResetUser)
	assert.Equal(t, 0, b.Size())
	assert.NotZero(t, info.ResetTimeMS)
	assert.Equal(t, qds.ResetUser, info.Reason)
	assert.Equal(t, uint32(5), info.DeletedCount)
}

func TestResetEmptyIsSentinel(t *testing.T) {
	b := New(100, 0, true, nil)

	info := b.Reset(qds.ResetSystem)
	assert.Zero(t, info.ResetTimeMS)
	assert.Zero(t, info.DeletedCount)
}

func TestLastID(t *testing.T) {
	b := New(100, 0, true, nil)
	assert.Equal(t, int64(-1), b.LastID())

	for _, id := range []int64{1, 10, 50, 100, 500} {
		mustPush(t, b, id, dummy())
	}
	assert.Equal(t, int64(500), b.LastID())

	// Deleting the tail exposes the previous entry as the new tail.
	b.Delete(500)
	assert.Equal(t, int64(100), b.LastID())
}

func TestOnDeleteCallback(t *testing.T) {
	var lastID int64
	var lastClear bool
	var lastTS uint64
	calls := 0

	b := New(3, 0, true, func(e *qds.BufferEntry, clear bool, ts uint64) {
		calls++
		if e != nil {
			lastID = e.ID
		} else {
			lastID = 0
		}
		lastClear = clear
		lastTS = ts
	})

	mustPush(t, b, 1, dummy())
	mustPush(t, b, 2, dummy())
	mustPush(t, b, 3, dummy())
	assert.Equal(t, 0, calls)

	// Overflow eviction carries a timestamp.
	mustPush(t, b, 4, dummy())
	assert.Equal(t, int64(1), lastID)
	assert.False(t, lastClear)
	assert.NotZero(t, lastTS)

	mustPush(t, b, 5, dummy())
	assert.Equal(t, int64(2), lastID)

	// Explicit delete does not.
	b.Delete(4)
	assert.Equal(t, int64(4), lastID)
	assert.Zero(t, lastTS)

	// Reset fires once with the clear flag.
	calls = 0
	b.Reset(qds.ResetUnknown)
	assert.Equal(t, 1, calls)
	assert.True(t, lastClear)
	assert.Equal(t, int64(0), lastID)
}

func TestCounterMode0(t *testing.T) {
	b := New(100, 0, true, nil)

	mustPush(t, b, 1, dummy())
	mustPush(t, b, 3, dummy())
	mustPush(t, b, 4, dummy())

	_, _, err := b.Push(2, dummy())
	var rbErr *qds.RingBufferError
	require.ErrorAs(t, err, &rbErr)

	assert.Equal(t, 3, b.Size())
	b.Delete(3)
	assert.Equal(t, 2, b.Size())
}

func TestCounterMode1(t *testing.T) {
	hookCalls := 0
	b := New(100, 1, true, func(e *qds.BufferEntry, clear bool, ts uint64) {
		hookCalls++
	})

	mustPush(t, b, 1, named("CounterMode 01"))
	mustPush(t, b, 3, named("CounterMode 03"))
	mustPush(t, b, 4, named("CounterMode 04"))
	mustPush(t, b, 2, named("CounterMode 02")) // out of order is fine in mode 1

	assert.Equal(t, 4, b.Size())
	b.Delete(3)
	assert.Equal(t, 3, b.Size())
	hookCalls = 0

	e := b.Entries()[1]
	assert.Equal(t, int64(4), e.ID)
	assert.Equal(t, "CounterMode 04", e.Measurements[0].Name)

	// Reinsertion over an unlocked id replaces the entry and fires the
	// hook exactly once for the displaced entry.
	mustPush(t, b, 4, named("CounterMode 04b"))
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, 1, hookCalls)

	e = b.Entries()[len(b.Entries())-1]
	assert.Equal(t, int64(4), e.ID)
	assert.False(t, e.Locked())
	assert.Equal(t, "CounterMode 04b", e.Measurements[0].Name)

	// Over a locked id: no state change, no hook call.
	e.SetLocked(true)
	hookCalls = 0
	_, accepted, err := b.Push(4, named("CounterMode 04c"))
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, 0, hookCalls)
	assert.Equal(t, 3, b.Size())

	e = b.Entries()[len(b.Entries())-1]
	assert.Equal(t, int64(4), e.ID)
	assert.True(t, e.Locked())
	assert.Equal(t, "CounterMode 04b", e.Measurements[0].Name)
}

func TestSnapshotSurvivesEviction(t *testing.T) {
	b := New(1, 0, true, nil)
	mustPush(t, b, 1, named("snapshot"))

	lock := b.SharedLock()
	lock.Lock()
	snapshot := b.Entries()[0].Measurements
	lock.Unlock()

	mustPush(t, b, 2, named("replacement")) // evicts entry 1

	require.Len(t, snapshot, 1)
	assert.Equal(t, "snapshot", snapshot[0].Name)
}
