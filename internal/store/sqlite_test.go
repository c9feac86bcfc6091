package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chime.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(kind string, observedAt time.Time) *NotificationRecord {
	return &NotificationRecord{
		Kind:       kind,
		RawLine:    "Queuing action present for app com.microsoft.teams2 items:",
		ObservedAt: observedAt,
	}
}

func TestInsert_AssignsID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	r := record("chat", time.Now())
	require.NoError(t, s.Insert(r))
	assert.Positive(t, r.ID)
}

func TestList_ReturnsNewestFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	require.NoError(t, s.Insert(record("chat", base)))
	require.NoError(t, s.Insert(record("urgent", base.Add(10*time.Minute))))
	require.NoError(t, s.Insert(record("chat", base.Add(20*time.Minute))))

	records, err := s.List(Filter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "chat", records[0].Kind)
	assert.Equal(t, "urgent", records[1].Kind)
	assert.True(t, records[0].ObservedAt.After(records[2].ObservedAt))
}

func TestList_FiltersByKindSinceAndLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(record("chat", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, s.Insert(record("urgent", base.Add(30*time.Minute))))

	urgent, err := s.List(Filter{Kind: "urgent"})
	require.NoError(t, err)
	assert.Len(t, urgent, 1)

	recent, err := s.List(Filter{Since: base.Add(2 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 4)

	limited, err := s.List(Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestList_WhenEmpty_ReturnsNoRecords(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	records, err := s.List(Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCountByKind_GroupsSince(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.Insert(record("chat", now.Add(-2*time.Hour))))
	require.NoError(t, s.Insert(record("chat", now.Add(-10*time.Minute))))
	require.NoError(t, s.Insert(record("chat", now.Add(-5*time.Minute))))
	require.NoError(t, s.Insert(record("urgent", now.Add(-time.Minute))))

	counts, err := s.CountByKind(now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"chat": 2, "urgent": 1}, counts)
}

func TestPrune_DeletesOldRecordsOnly(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	now := time.Now()

	require.NoError(t, s.Insert(record("chat", now.Add(-48*time.Hour))))
	require.NoError(t, s.Insert(record("chat", now.Add(-36*time.Hour))))
	require.NoError(t, s.Insert(record("urgent", now)))

	deleted, err := s.Prune(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := s.List(Filter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "urgent", remaining[0].Kind)
}

func TestNewSQLiteStore_ReopeningKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chime.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(record("chat", time.Now())))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	records, err := s.List(Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
