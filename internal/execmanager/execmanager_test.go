package execmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histoflow/engine/internal/catalog"
	"github.com/histoflow/engine/internal/jobmanager"
	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/store/memstore"
)

func newFixture(t *testing.T) (*Manager, *catalog.Catalog, store.Store) {
	t.Helper()
	s := memstore.New()
	c := catalog.New(s)
	jm := jobmanager.New(s)
	return New(s, c, jm, nil), c, s
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	m, _, _ := newFixture(t)
	_, err := m.Execute(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestExecuteCreatesJobsInBranchOrderAndEnqueuesGlobally(t *testing.T) {
	ctx := context.Background()
	m, c, s := newFixture(t)

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{TemplateID: "fake_sleep", InputPayload: map[string]any{}}))
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{TemplateID: "fake_sleep", InputPayload: map[string]any{"n": 2.0}}))

	result, err := m.Execute(ctx, wfID)
	require.NoError(t, err)
	assert.Equal(t, wfID, result.WorkflowID)
	require.Len(t, result.JobIDs, 2)

	pendingLen, err := s.ListLen(ctx, store.KeySchedPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pendingLen)

	runJobs, err := s.ListRange(ctx, store.KeyWorkflowRunJobs(wfID, result.RunID), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, result.JobIDs, runJobs)
}

func TestExecuteMergesSlideMetadataForSlideInitTemplate(t *testing.T) {
	ctx := context.Background()
	m, c, s := newFixture(t)

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)
	slideID, err := c.RegisterSlide(ctx, "u1", "/slides/a.svs", 2048)
	require.NoError(t, err)
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{
		TemplateID:   "init_wsi",
		InputPayload: map[string]any{"slide_id": slideID, "tile_size": 2048.0},
	}))

	result, err := m.Execute(ctx, wfID)
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 1)

	jm := jobmanager.New(s)
	job, ok, err := jm.Get(ctx, result.JobIDs[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/slides/a.svs", job.InputPayload["slide_path"])
	assert.Equal(t, 2048.0, job.InputPayload["tile_size"])
	assert.Equal(t, 128.0, job.InputPayload["overlap"])
}

func TestExecuteSkipsSlideInitJobMissingSlideIDWithoutAbortingRun(t *testing.T) {
	ctx := context.Background()
	m, c, _ := newFixture(t)

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{TemplateID: "init_wsi", InputPayload: map[string]any{}}))
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{TemplateID: "fake_sleep", InputPayload: map[string]any{}}))

	result, err := m.Execute(ctx, wfID)
	require.NoError(t, err)
	assert.Len(t, result.JobIDs, 1)
}

func TestExecuteSkipsSlideInitJobWithUnknownSlide(t *testing.T) {
	ctx := context.Background()
	m, c, _ := newFixture(t)

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{
		TemplateID:   "wsi_initialize",
		InputPayload: map[string]any{"slide_id": "does-not-exist"},
	}))

	result, err := m.Execute(ctx, wfID)
	require.NoError(t, err)
	assert.Empty(t, result.JobIDs)
}
