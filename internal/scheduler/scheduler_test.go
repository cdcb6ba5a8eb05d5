package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/store/memstore"
)

func newTestScheduler(t *testing.T) (*Scheduler, store.Store) {
	t.Helper()
	s := memstore.New()
	cfg := Config{MaxActiveUsers: 2, PopTimeout: 50 * time.Millisecond, DeferSleep: 5 * time.Millisecond, PausedSleep: 10 * time.Millisecond}
	return New(s, cfg, nil), s
}

func pushJob(t *testing.T, ctx context.Context, s store.Store, jobID, userID string) {
	t.Helper()
	require.NoError(t, s.HashSetMany(ctx, store.KeyJob(jobID), map[string]string{"user_id": userID}))
	require.NoError(t, s.ListPushRight(ctx, store.KeySchedPending, jobID))
}

func TestBootstrapDefaultsToPaused(t *testing.T) {
	ctx := context.Background()
	sch, _ := newTestScheduler(t)
	require.NoError(t, sch.Bootstrap(ctx))

	state, err := sch.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, state)
}

func TestBootstrapDoesNotOverrideExistingState(t *testing.T) {
	ctx := context.Background()
	sch, _ := newTestScheduler(t)
	require.NoError(t, sch.Start(ctx))
	require.NoError(t, sch.Bootstrap(ctx))

	state, err := sch.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
}

func TestTickAdmitsJobToUserQueueWhenBelowCap(t *testing.T) {
	ctx := context.Background()
	sch, s := newTestScheduler(t)
	pushJob(t, ctx, s, "job-1", "u1")

	require.NoError(t, sch.tick(ctx))

	n, err := s.ListLen(ctx, store.KeyUserQueue("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pendingLen, err := s.ListLen(ctx, store.KeySchedPending)
	require.NoError(t, err)
	assert.Equal(t, 0, pendingLen)
}

func TestTickDropsJobWithMissingUser(t *testing.T) {
	ctx := context.Background()
	sch, s := newTestScheduler(t)
	require.NoError(t, s.HashSetMany(ctx, store.KeyJob("orphan"), map[string]string{}))
	require.NoError(t, s.ListPushRight(ctx, store.KeySchedPending, "orphan"))

	require.NoError(t, sch.tick(ctx))

	n, err := s.ListLen(ctx, store.KeySchedPending)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestTickDefersWhenUserNotActiveAndCapReached(t *testing.T) {
	ctx := context.Background()
	sch, s := newTestScheduler(t)

	// Saturate the active-user set at the cap (2).
	require.NoError(t, s.SetAdd(ctx, store.KeySchedActive, "u1"))
	require.NoError(t, s.SetAdd(ctx, store.KeySchedActive, "u2"))

	pushJob(t, ctx, s, "job-1", "u3")
	require.NoError(t, sch.tick(ctx))

	n, err := s.ListLen(ctx, store.KeyUserQueue("u3"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pendingLen, err := s.ListLen(ctx, store.KeySchedPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pendingLen)
}

func TestTickAdmitsAlreadyActiveUserEvenAtCap(t *testing.T) {
	ctx := context.Background()
	sch, s := newTestScheduler(t)

	require.NoError(t, s.SetAdd(ctx, store.KeySchedActive, "u1"))
	require.NoError(t, s.SetAdd(ctx, store.KeySchedActive, "u2"))

	pushJob(t, ctx, s, "job-2", "u1")
	require.NoError(t, sch.tick(ctx))

	n, err := s.ListLen(ctx, store.KeyUserQueue("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunRespectsPausedState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	sch, s := newTestScheduler(t)
	pushJob(t, ctx, s, "job-1", "u1")

	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx) }()
	<-ctx.Done()
	<-done

	n, err := s.ListLen(ctx, store.KeySchedPending)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "paused scheduler must not admit jobs")
}

func TestRunAdmitsAfterStart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	sch, s := newTestScheduler(t)
	require.NoError(t, sch.Start(context.Background()))
	pushJob(t, context.Background(), s, "job-1", "u1")

	done := make(chan error, 1)
	go func() { done <- sch.Run(ctx) }()
	<-ctx.Done()
	<-done

	n, err := s.ListLen(context.Background(), store.KeyUserQueue("u1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
