package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	reset()
	_ = code
}

func TestRegisterAndLookup(t *testing.T) {
	defer reset()

	Register("echo", HandlerFunc(func(ctx context.Context, jobID string, payload map[string]any, progress ProgressReporter) (map[string]any, error) {
		return payload, nil
	}))

	h, ok := Lookup("echo")
	require.True(t, ok)

	out, err := h.Run(context.Background(), "job-1", map[string]any{"x": 1.0}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1.0}, out)
}

func TestLookupUnknownTemplate(t *testing.T) {
	defer reset()
	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer reset()
	Register("dup", HandlerFunc(func(ctx context.Context, jobID string, payload map[string]any, progress ProgressReporter) (map[string]any, error) {
		return nil, nil
	}))
	assert.Panics(t, func() {
		Register("dup", HandlerFunc(func(ctx context.Context, jobID string, payload map[string]any, progress ProgressReporter) (map[string]any, error) {
			return nil, nil
		}))
	})
}
