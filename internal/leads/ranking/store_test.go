package ranking

import (
	"context"
	"io"
	"testing"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "", logger.NewWithWriter("test", io.Discard)), mr
}

func TestStore_RecordAndTop(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	hot, warm, cold := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, store.Record(ctx, warm, 55, domain.StatusAssigned))
	require.NoError(t, store.Record(ctx, hot, 81, domain.StatusNew))
	require.NoError(t, store.Record(ctx, cold, 12, domain.StatusContacted))

	top, err := store.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, Entry{LeadID: hot, Overall: 81}, top[0])
	assert.Equal(t, Entry{LeadID: warm, Overall: 55}, top[1])

	score, err := mr.ZScore(DefaultKey, cold.String())
	require.NoError(t, err)
	assert.Equal(t, 12.0, score)
}

func TestStore_RecordUpdatesScore(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Record(ctx, id, 40, domain.StatusNew))
	require.NoError(t, store.Record(ctx, id, 72, domain.StatusAssigned))

	top, err := store.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 72, top[0].Overall)
}

func TestStore_TerminalLeadsLeaveRanking(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, store.Record(ctx, id, 90, domain.StatusQuoted))
	require.NoError(t, store.Record(ctx, id, 100, domain.StatusConverted))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestStore_TopDropsMalformedMembers(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := mr.ZAdd(DefaultKey, 99, "not-a-uuid")
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, id, 50, domain.StatusNew))

	top, err := store.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, id, top[0].LeadID)
	assert.Equal(t, []string{id.String()}, mustMembers(t, mr))
}

func TestStore_SubscribeFollowsLeadScored(t *testing.T) {
	store, _ := setupStore(t)
	bus := events.NewInMemoryBus(logger.NewWithWriter("test", io.Discard))
	store.Subscribe(bus)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, bus.PublishSync(ctx, events.LeadScored{LeadID: id, Status: "new", Overall: 64}))
	top, err := store.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 64, top[0].Overall)

	require.NoError(t, bus.PublishSync(ctx, events.LeadScored{LeadID: id, Status: "dead", Overall: 0}))
	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestStore_ApplyIgnoresOlderScores(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	id := uuid.New()
	newer := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	applied, err := store.Apply(ctx, id, 80, domain.StatusAssigned, newer)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.Apply(ctx, id, 35, domain.StatusNew, newer.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, applied)

	top, err := store.Top(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 80, top[0].Overall)
}

func TestStore_LateScoreCannotResurrectClosedLead(t *testing.T) {
	store, _ := setupStore(t)
	bus := events.NewInMemoryBus(logger.NewWithWriter("test", io.Discard))
	store.Subscribe(bus)
	ctx := context.Background()
	id := uuid.New()
	closedAt := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)

	closed := events.LeadScored{BaseEvent: events.BaseEvent{Timestamp: closedAt}, LeadID: id, Status: "converted", Overall: 95}
	earlier := events.LeadScored{BaseEvent: events.BaseEvent{Timestamp: closedAt.Add(-time.Minute)}, LeadID: id, Status: "quoted", Overall: 70}

	require.NoError(t, bus.PublishSync(ctx, closed))
	require.NoError(t, bus.PublishSync(ctx, earlier))

	size, err := store.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func mustMembers(t *testing.T, mr *miniredis.Miniredis) []string {
	t.Helper()
	members, err := mr.ZMembers(DefaultKey)
	require.NoError(t, err)
	return members
}
