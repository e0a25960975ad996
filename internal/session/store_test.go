package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaslabs/raas-platform/pkg/logging"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, time.Hour, logging.New("error")), mr
}

func TestLoadMissingReturnsFresh(t *testing.T) {
	store, _ := newTestStore(t)

	s := store.Load(context.Background(), "unseen")
	require.NotNil(t, s)
	assert.Equal(t, StatusNew, s.Status)
	assert.Empty(t, s.History)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	s := New()
	s.Status = StatusCollectingInfo
	s.Patient.Name = "Test User"
	s.AppendHistory(RoleUser, "hello")

	require.NoError(t, store.Save(ctx, "sess-1", s))

	// TTL refreshed on write.
	ttl := mr.TTL(sessionKeyPrefix + "sess-1")
	assert.Equal(t, time.Hour, ttl)

	got := store.Load(ctx, "sess-1")
	assert.Equal(t, StatusCollectingInfo, got.Status)
	assert.Equal(t, "Test User", got.Patient.Name)
	require.Len(t, got.History, 1)
	assert.Equal(t, "hello", got.History[0].Content)
}

func TestLoadCorruptPayloadResets(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))

	s := store.Load(context.Background(), "bad")
	require.NotNil(t, s)
	assert.Equal(t, StatusNew, s.Status)
}

func TestLoadTerminalSessionDeletesAndResets(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	closed := New()
	closed.Metadata.SessionClosed = true
	require.NoError(t, store.Save(ctx, "done", closed))

	s := store.Load(ctx, "done")
	assert.Equal(t, StatusNew, s.Status)
	assert.False(t, s.Metadata.SessionClosed)

	// The store must no longer hold the prior entry.
	assert.False(t, mr.Exists(sessionKeyPrefix+"done"))
}

func TestLoadTerminalByStatusResets(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	confirmed := New()
	confirmed.Status = StatusConfirmed
	require.NoError(t, store.Save(ctx, "confirmed", confirmed))

	s := store.Load(ctx, "confirmed")
	assert.Equal(t, StatusNew, s.Status)
	assert.False(t, mr.Exists(sessionKeyPrefix+"confirmed"))
}

func TestDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "gone", New()))
	require.NoError(t, store.Delete(ctx, "gone"))
	assert.False(t, mr.Exists(sessionKeyPrefix+"gone"))
}
