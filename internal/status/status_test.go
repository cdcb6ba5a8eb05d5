package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histoflow/engine/internal/jobmanager"
	"github.com/histoflow/engine/internal/scheduler"
	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/store/memstore"
)

func TestSnapshotDefaultsToPausedWhenStateUnset(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	r := New(s)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatePaused, snap.SchedulerState)
	assert.Empty(t, snap.ActiveUsers)
	assert.Empty(t, snap.RunningJobs)
	assert.Equal(t, 0, snap.PendingJobs)
}

func TestSnapshotReflectsStoreContents(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.KeySet(ctx, store.KeySchedState, scheduler.StateRunning))
	require.NoError(t, s.SetAdd(ctx, store.KeySchedActive, "u1"))
	require.NoError(t, s.SetAdd(ctx, store.KeySchedRunning, "job-1"))
	require.NoError(t, s.ListPushRight(ctx, store.KeySchedPending, "job-2"))

	r := New(s)
	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateRunning, snap.SchedulerState)
	assert.Equal(t, []string{"u1"}, snap.ActiveUsers)
	assert.Equal(t, []string{"job-1"}, snap.RunningJobs)
	assert.Equal(t, 1, snap.PendingJobs)
}

func TestJobProgressRoundTripsThroughJobManager(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	jm := jobmanager.New(s)
	r := New(s)

	jobID, err := jm.Create(ctx, "u1", "wf", "run", "b0", "fake_sleep", map[string]any{})
	require.NoError(t, err)
	require.NoError(t, jm.UpdateProgress(ctx, jobID, "u1", 40, "working", 0, 0, "running", ""))

	rec, ok, err := r.JobProgress(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.4, rec.Percent)
	assert.Equal(t, "working", rec.Message)

	all, err := r.AllProgress(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, jobID)
}

func TestJobProgressMissing(t *testing.T) {
	ctx := context.Background()
	r := New(memstore.New())
	_, ok, err := r.JobProgress(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
