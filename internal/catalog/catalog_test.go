package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/store/memstore"
)

func TestWorkflowBranchJobSpecRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(memstore.New())

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)

	spec := model.JobSpec{TemplateID: "fake_sleep", InputPayload: map[string]any{"seconds": 1.0}}
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", spec))

	specs, err := c.JobSpecs(ctx, wfID, "0")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, spec, specs[0])
}

func TestLegacyBareStringJobSpecAccepted(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c := New(s)

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)

	// A legacy writer stored a bare JSON string instead of the object form.
	require.NoError(t, s.ListPushRight(ctx, "workflow:"+wfID+":branch:0", `"fake_sleep"`))

	specs, err := c.JobSpecs(ctx, wfID, "0")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "fake_sleep", specs[0].TemplateID)
	assert.Equal(t, map[string]any{}, specs[0].InputPayload)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	c := New(memstore.New())

	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "0", model.JobSpec{TemplateID: "fake_sleep"}))
	slideID, err := c.RegisterSlide(ctx, "u1", "/slides/a.svs", 1024)
	require.NoError(t, err)

	require.NoError(t, c.DeleteUser(ctx, "u1"))

	_, ok, err := c.GetWorkflow(ctx, wfID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.GetSlide(ctx, slideID)
	require.NoError(t, err)
	assert.False(t, ok)

	specs, err := c.JobSpecs(ctx, wfID, "0")
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestRemoveBranchDestroysJobSpecList(t *testing.T) {
	ctx := context.Background()
	c := New(memstore.New())
	require.NoError(t, c.RegisterUser(ctx, "u1"))
	wfID, err := c.CreateWorkflow(ctx, "demo", "u1", "0")
	require.NoError(t, err)
	require.NoError(t, c.AddBranch(ctx, wfID, "1"))
	require.NoError(t, c.AppendJobSpec(ctx, wfID, "1", model.JobSpec{TemplateID: "fake_sleep"}))

	require.NoError(t, c.RemoveBranch(ctx, wfID, "1"))

	branches, err := c.Branches(ctx, wfID)
	require.NoError(t, err)
	assert.NotContains(t, branches, "1")

	specs, err := c.JobSpecs(ctx, wfID, "1")
	require.NoError(t, err)
	assert.Empty(t, specs)
}
