package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamLog(t *testing.T, maxLen int64) (*StreamLog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStreamLog(client, "", maxLen), mr
}

func TestStreamLogAppendsEntries(t *testing.T) {
	log, _ := newStreamLog(t, 0)
	ctx := context.Background()

	first := NewEntry(ctx, ActionCreate, "IRRF", "rec-1", 1, json.RawMessage(`{"rate":0.075}`))
	second := NewEntry(ctx, ActionDelete, "IRRF", "rec-1", 0, nil)
	require.NoError(t, log.Append(ctx, first))
	require.NoError(t, log.Append(ctx, second))

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)
	assert.JSONEq(t, `{"rate":0.075}`, string(entries[1].Fields))
}

func TestStreamLogUsesDefaultStream(t *testing.T) {
	log, mr := newStreamLog(t, 0)
	ctx := context.Background()
	require.NoError(t, log.Append(ctx, NewEntry(ctx, ActionCreate, "FGTS", "rec-2", 1, nil)))
	assert.True(t, mr.Exists(DefaultStream))
}

func TestStreamLogRejectsInvalidEntry(t *testing.T) {
	log, _ := newStreamLog(t, 0)
	assert.Error(t, log.Append(context.Background(), Entry{}))
}

func TestStreamLogReportsBrokenConnection(t *testing.T) {
	log, mr := newStreamLog(t, 100)
	mr.Close()
	ctx := context.Background()
	err := log.Append(ctx, NewEntry(ctx, ActionCreate, "IRRF", "rec-3", 1, nil))
	assert.Error(t, err)
}
