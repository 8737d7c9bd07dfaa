package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/core"
	"budgetwatch/internal/store"
	"budgetwatch/internal/store/memory"
)

var (
	july  = core.NewMonthYear(2024, time.July)
	day15 = core.NewDate(2024, 7, 15)
	day16 = core.NewDate(2024, 7, 16)
)

func TestRecordNotifiedDoesNotMutateInput(t *testing.T) {
	base := Map{"2024-07": {"Transport-warning": "2024-07-01"}}
	got := RecordNotified(base, july, core.Groceries, core.ThresholdWarning, day15)

	assert.Equal(t, "2024-07-15", got["2024-07"]["Groceries-warning"])
	assert.Equal(t, "2024-07-01", got["2024-07"]["Transport-warning"])
	_, leaked := base["2024-07"]["Groceries-warning"]
	assert.False(t, leaked, "input map must not change")
}

func TestWasNotifiedToday(t *testing.T) {
	h := RecordNotified(nil, july, core.Groceries, core.ThresholdWarning, day15)

	assert.True(t, WasNotifiedToday(h, july, core.Groceries, core.ThresholdWarning, day15))
	assert.False(t, WasNotifiedToday(h, july, core.Groceries, core.ThresholdWarning, day16), "new day resets")
	assert.False(t, WasNotifiedToday(h, july, core.Groceries, core.ThresholdExceeded, day15))
	assert.False(t, WasNotifiedToday(h, core.NewMonthYear(2024, time.August), core.Groceries, core.ThresholdWarning, day15))
	assert.False(t, WasNotifiedToday(nil, july, core.Groceries, core.ThresholdWarning, day15))
}

func TestMergeKeepsLatestDate(t *testing.T) {
	a := Map{"2024-07": {"Groceries-warning": "2024-07-15", "Transport-warning": "2024-07-02"}}
	b := Map{
		"2024-07": {"Groceries-warning": "2024-07-10", "Transport-warning": "2024-07-16"},
		"2024-06": {"Housing-exceeded": "2024-06-30"},
	}
	got := Merge(a, b)
	assert.Equal(t, "2024-07-15", got["2024-07"]["Groceries-warning"])
	assert.Equal(t, "2024-07-16", got["2024-07"]["Transport-warning"])
	assert.Equal(t, "2024-06-30", got["2024-06"]["Housing-exceeded"])
	assert.Equal(t, "2024-07-02", a["2024-07"]["Transport-warning"], "inputs are untouched")
}

func TestDecode(t *testing.T) {
	h, err := Decode("")
	require.NoError(t, err)
	assert.Empty(t, h)

	h, err = Decode("null")
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = Decode("{not json")
	assert.Error(t, err)

	doc, err := Encode(Map{"2024-07": {"Groceries-warning": "2024-07-15"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-07":{"Groceries-warning":"2024-07-15"}}`, doc)
}

func TestStoreRoundTripPerOwner(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := NewStore(kv, nil)

	snap, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, snap.Version)

	snap.History = RecordNotified(snap.History, july, core.Groceries, core.ThresholdWarning, day15)
	_, err = s.Save(ctx, "alice", snap)
	require.NoError(t, err)

	got, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, WasNotifiedToday(got.History, july, core.Groceries, core.ThresholdWarning, day15))

	other, err := s.Load(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, other.History, "histories are partitioned by owner")

	entry, err := kv.Get(ctx, "notification_history:alice")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.Value)
}

func TestStoreLoadCorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	require.NoError(t, kv.Set(ctx, StorageKey("alice"), "]]garbage"))
	s := NewStore(kv, nil)

	snap, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, snap.History)
	assert.EqualValues(t, 1, snap.Version)

	snap.History = RecordNotified(snap.History, july, core.Groceries, core.ThresholdExceeded, day15)
	_, err = s.Save(ctx, "alice", snap)
	require.NoError(t, err, "a corrupt document is overwritten by the next save")
}

type failingKV struct{ store.KeyValueStore }

func (failingKV) Get(context.Context, string) (store.Entry, error) {
	return store.Entry{}, errors.New("disk on fire")
}

func TestStoreLoadReadFailure(t *testing.T) {
	s := NewStore(failingKV{}, nil)
	snap, err := s.Load(context.Background(), "alice")
	assert.Error(t, err)
	assert.NotNil(t, snap.History)
	assert.Empty(t, snap.History)
}

func TestCommitMergesOnConflict(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	s := NewStore(kv, nil)

	loaded, err := s.Load(ctx, "alice")
	require.NoError(t, err)

	// A concurrent pass records Transport first.
	concurrent := RecordNotified(Map{}, july, core.Transport, core.ThresholdWarning, day15)
	_, err = s.Save(ctx, "alice", Snapshot{History: concurrent, Version: loaded.Version})
	require.NoError(t, err)

	mine := RecordNotified(loaded.History, july, core.Groceries, core.ThresholdExceeded, day15)
	require.NoError(t, s.Commit(ctx, "alice", loaded, mine, 3))

	final, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, WasNotifiedToday(final.History, july, core.Transport, core.ThresholdWarning, day15))
	assert.True(t, WasNotifiedToday(final.History, july, core.Groceries, core.ThresholdExceeded, day15))
	assert.EqualValues(t, 2, final.Version)
}

type alwaysConflictKV struct{ *memory.Store }

func (alwaysConflictKV) CompareAndSet(context.Context, string, string, int64) (int64, error) {
	return 0, store.ErrVersionConflict
}

func TestCommitGivesUp(t *testing.T) {
	s := NewStore(alwaysConflictKV{memory.New()}, nil)
	err := s.Commit(context.Background(), "alice", Snapshot{History: Map{}}, Map{}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrVersionConflict))
}
