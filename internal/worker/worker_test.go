package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/services/queue"
	"github.com/sagaforge/saga-engine/internal/storage"
)

func newWorkerEnv(t *testing.T) (*Worker, *queue.Client, *storage.MockStorage, *services.MockOracle) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewMockStorage()
	oracle := &services.MockOracle{}
	q := queue.NewClient(rdb, testLogger())
	p := NewProcessor(store, oracle, &services.MockIllustrator{}, nil, testLogger())
	w := New(q, p, rdb, testLogger(), "worker-test")
	return w, q, store, oracle
}

func TestWorker_ProcessesQueuedJob(t *testing.T) {
	w, q, store, oracle := newWorkerEnv(t)
	gs := seedGame(t, store, 10)

	require.NoError(t, q.EnqueueSummaryRefresh(context.Background(), gs.ID))

	require.NoError(t, w.processNext())

	require.Len(t, oracle.SummarizeCalls, 1)
	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	reloaded, err := store.LoadGameState(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, "A summary of events so far.", reloaded.Character.StorySummary)
}

func TestWorker_RequeuesLockedGame(t *testing.T) {
	w, q, store, oracle := newWorkerEnv(t)
	gs := seedGame(t, store, 10)

	// Another worker holds this game's lock.
	require.NoError(t, w.redisClient.SetNX(context.Background(),
		"game-lock:"+gs.ID.String(), "other-worker", time.Minute).Err())

	require.NoError(t, q.EnqueueSummaryRefresh(context.Background(), gs.ID))
	require.NoError(t, w.processNext())

	assert.Empty(t, oracle.SummarizeCalls)
	depth, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, depth, "job goes back on the queue")
}

func TestWorker_ReleasesOnlyOwnLock(t *testing.T) {
	w, _, store, _ := newWorkerEnv(t)
	gs := seedGame(t, store, 1)
	ctx := context.Background()

	key := "game-lock:" + gs.ID.String()
	require.NoError(t, w.redisClient.Set(ctx, key, "other-worker", time.Minute).Err())

	w.releaseGameLock(gs.ID)

	owner, err := w.redisClient.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "other-worker", owner)
}
