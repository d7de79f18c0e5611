package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerInMemory(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	require.False(t, l.Persistent())
	require.NoError(t, l.EnsureTable(ctx))
	known, err := l.Preload(ctx, "run")
	require.NoError(t, err)
	assert.Zero(t, known)

	require.NoError(t, l.Record(ctx, Entry{RunID: "run", Stage: "ratings", Index: 0, Size: 2, Status: StatusCommitted}))
	require.NoError(t, l.Record(ctx, Entry{RunID: "run", Stage: "movies", Index: 1, Size: 1, Status: StatusFailed, Error: "boom"}))
	require.NoError(t, l.Record(ctx, Entry{RunID: "run", Stage: "movies", Index: 0, Size: 3, Status: StatusCommitted}))
	require.NoError(t, l.Record(ctx, Entry{RunID: "other", Stage: "movies", Index: 0, Status: StatusCommitted}))

	assert.True(t, l.IsCommitted(Entry{RunID: "run", Stage: "movies", Index: 0, Size: 3}))
	assert.False(t, l.IsCommitted(Entry{RunID: "run", Stage: "movies", Index: 1, Size: 1}))
	assert.False(t, l.IsCommitted(Entry{RunID: "run", Stage: "movies", Index: 2}))

	entries := l.Entries("run")
	require.Len(t, entries, 3)
	assert.Equal(t, "movies", entries[0].Stage)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, 1, entries[1].Index)
	assert.Equal(t, "ratings", entries[2].Stage)
	assert.False(t, entries[0].UpdatedAt.IsZero())

	known, err = l.Preload(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, 3, known)
}

func TestLedgerRecordReplaces(t *testing.T) {
	ctx := context.Background()
	l := New(nil)

	require.NoError(t, l.Record(ctx, Entry{RunID: "r", Stage: "movies", Index: 4, Status: StatusFailed, Error: "timeout"}))
	require.NoError(t, l.Record(ctx, Entry{RunID: "r", Stage: "movies", Index: 4, Status: StatusCommitted}))

	assert.True(t, l.IsCommitted(Entry{RunID: "r", Stage: "movies", Index: 4}))
	entries := l.Entries("r")
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Error)
}

func TestLedgerCommittedRequiresSameRecords(t *testing.T) {
	ctx := context.Background()
	l := New(nil)
	committed := Entry{RunID: "r", Stage: "ratings", Index: 1, FirstKey: "a/3", LastKey: "a/4", Size: 2, Status: StatusCommitted}
	require.NoError(t, l.Record(ctx, committed))

	tests := []struct {
		name  string
		batch Entry
		want  bool
	}{
		{name: "same batch", batch: Entry{RunID: "r", Stage: "ratings", Index: 1, FirstKey: "a/3", LastKey: "a/4", Size: 2}, want: true},
		{name: "larger batch", batch: Entry{RunID: "r", Stage: "ratings", Index: 1, FirstKey: "a/5", LastKey: "a/8", Size: 4}},
		{name: "shifted input", batch: Entry{RunID: "r", Stage: "ratings", Index: 1, FirstKey: "a/2", LastKey: "a/3", Size: 2}},
		{name: "other stage", batch: Entry{RunID: "r", Stage: "movies", Index: 1, FirstKey: "a/3", LastKey: "a/4", Size: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.IsCommitted(tt.batch))
		})
	}
}
