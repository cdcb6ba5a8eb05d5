package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/registry"
)

type recordingReporter struct {
	calls []struct {
		progress       int
		current, total int
	}
}

func (r *recordingReporter) UpdateProgress(ctx context.Context, progress int, message string, current, total int, stage, eta string) error {
	r.calls = append(r.calls, struct {
		progress       int
		current, total int
	}{progress, current, total})
	return nil
}

func TestFakeSleepRegisteredAndReturnsSentinel(t *testing.T) {
	h, ok := registry.Lookup(fakeSleepTemplate)
	require.True(t, ok)

	out, err := h.Run(context.Background(), "job-1", map[string]any{"duration_ms": 1.0}, &recordingReporter{})
	require.NoError(t, err)
	assert.Equal(t, "fake job success!", out["result"])
}

func TestWSIInitializeRegisteredUnderBothNames(t *testing.T) {
	forInit, ok := registry.Lookup(model.TemplateInitWSI)
	require.True(t, ok)
	forLegacy, ok := registry.Lookup(model.TemplateWSIInitialize)
	require.True(t, ok)

	payload := map[string]any{"slide_path": "/slides/a.svs", "tile_size": 1024.0, "overlap": 128.0}
	out, err := forInit.Run(context.Background(), "job-1", payload, &recordingReporter{})
	require.NoError(t, err)
	assert.Equal(t, "/slides/a.svs", out["slide_path"])
	assert.Greater(t, out["num_tiles"], 0)

	_, err = forLegacy.Run(context.Background(), "job-2", payload, &recordingReporter{})
	require.NoError(t, err)
}

func TestWSIInitializeRejectsMissingSlidePath(t *testing.T) {
	h, ok := registry.Lookup(model.TemplateInitWSI)
	require.True(t, ok)

	_, err := h.Run(context.Background(), "job-1", map[string]any{}, &recordingReporter{})
	assert.Error(t, err)
}

func TestWSIInitializeRejectsInvalidTileGeometry(t *testing.T) {
	h, ok := registry.Lookup(model.TemplateInitWSI)
	require.True(t, ok)

	payload := map[string]any{"slide_path": "/slides/a.svs", "tile_size": 100.0, "overlap": 200.0}
	_, err := h.Run(context.Background(), "job-1", payload, &recordingReporter{})
	assert.Error(t, err)
}

func TestTileSegmentationReportsCurrentTotalProgress(t *testing.T) {
	h, ok := registry.Lookup(tileSegmentationTemplate)
	require.True(t, ok)

	reporter := &recordingReporter{}
	out, err := h.Run(context.Background(), "job-1", map[string]any{"num_tiles": 3.0}, reporter)
	require.NoError(t, err)
	assert.Equal(t, 3, out["num_tiles"])
	require.Len(t, reporter.calls, 3)
	assert.Equal(t, 1, reporter.calls[0].current)
	assert.Equal(t, 3, reporter.calls[0].total)
	assert.Equal(t, 3, reporter.calls[2].current)
}
