package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histoflow/engine/internal/jobmanager"
	"github.com/histoflow/engine/internal/registry"
	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/store/memstore"
)

type fakeHandler struct {
	output map[string]any
	err    error
	ran    chan struct{}
}

func (h *fakeHandler) Run(ctx context.Context, jobID string, payload map[string]any, progress registry.ProgressReporter) (map[string]any, error) {
	if h.ran != nil {
		close(h.ran)
	}
	if h.err != nil {
		return nil, h.err
	}
	_ = progress.UpdateProgress(ctx, 50, "halfway", 0, 0, "working", "")
	return h.output, nil
}

func registerTestHandler(t *testing.T, name string, h registry.Handler) {
	t.Helper()
	registry.Register(name, h)
}

func newFixture(t *testing.T) (*Pool, store.Store, *jobmanager.Manager) {
	t.Helper()
	s := memstore.New()
	jm := jobmanager.New(s)
	p := NewPool(s, jm, Config{IdleSleep: 5 * time.Millisecond}, nil)
	return p, s, jm
}

func TestRunJobSucceedsAndCleansUpSets(t *testing.T) {
	ctx := context.Background()
	p, s, jm := newFixture(t)

	name := "worker-test-success"
	registerTestHandler(t, name, &fakeHandler{output: map[string]any{"result": "ok"}})

	jobID, err := jm.Create(ctx, "u1", "wf", "run", "b0", name, map[string]any{})
	require.NoError(t, err)

	p.runJob(ctx, "u1", jobID, p.logger)

	job, ok, err := jm.Get(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", string(job.Status))
	assert.Equal(t, "ok", job.OutputPayload["result"])

	running, err := s.SetMembers(ctx, store.KeySchedRunning)
	require.NoError(t, err)
	assert.Empty(t, running)

	active, err := s.SetMembers(ctx, store.KeySchedActive)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRunJobFailsWhenTemplateNotRegistered(t *testing.T) {
	ctx := context.Background()
	p, _, jm := newFixture(t)

	jobID, err := jm.Create(ctx, "u1", "wf", "run", "b0", "no-such-template", map[string]any{})
	require.NoError(t, err)

	p.runJob(ctx, "u1", jobID, p.logger)

	job, ok, err := jm.Get(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FAILED", string(job.Status))
	assert.Contains(t, job.ProgressMessage, "not registered")
}

func TestRunJobFailsOnHandlerError(t *testing.T) {
	ctx := context.Background()
	p, _, jm := newFixture(t)

	name := "worker-test-handler-error"
	registerTestHandler(t, name, &fakeHandler{err: errors.New("boom")})

	jobID, err := jm.Create(ctx, "u1", "wf", "run", "b0", name, map[string]any{})
	require.NoError(t, err)

	p.runJob(ctx, "u1", jobID, p.logger)

	job, ok, err := jm.Get(ctx, jobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FAILED", string(job.Status))
}

func TestRunJobKeepsUserActiveWhileAnotherJobStillRunning(t *testing.T) {
	ctx := context.Background()
	p, s, jm := newFixture(t)

	name := "worker-test-keep-active"
	registerTestHandler(t, name, &fakeHandler{output: map[string]any{}})

	otherJobID, err := jm.Create(ctx, "u1", "wf", "run", "b0", name, map[string]any{})
	require.NoError(t, err)
	require.NoError(t, jm.MarkRunning(ctx, otherJobID))
	require.NoError(t, s.SetAdd(ctx, store.KeySchedRunning, otherJobID))
	require.NoError(t, s.SetAdd(ctx, store.KeySchedActive, "u1"))

	jobID, err := jm.Create(ctx, "u1", "wf", "run", "b0", name, map[string]any{})
	require.NoError(t, err)

	p.runJob(ctx, "u1", jobID, p.logger)

	active, err := s.SetMembers(ctx, store.KeySchedActive)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, active)
}

func TestDecodePayloadHandlesDoubleEncodedJSON(t *testing.T) {
	plain := decodePayload(`{"a":1}`)
	assert.Equal(t, 1.0, plain["a"])

	doubled := decodePayload(`"{\"b\":2}"`)
	assert.Equal(t, 2.0, doubled["b"])

	assert.Empty(t, decodePayload(""))
	assert.Empty(t, decodePayload("not json"))
}

func TestRunLoopDrainsQueueAndStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p, s, jm := newFixture(t)
	name := "worker-test-loop"
	ran := make(chan struct{})
	registerTestHandler(t, name, &fakeHandler{output: map[string]any{}, ran: ran})

	jobID, err := jm.Create(context.Background(), "u1", "wf", "run", "b0", name, map[string]any{})
	require.NoError(t, err)
	require.NoError(t, s.ListPushRight(context.Background(), store.KeyUserQueue("u1"), jobID))

	done := make(chan error, 1)
	go func() { done <- p.runLoop(ctx, "u1") }()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}

	<-ctx.Done()
	require.NoError(t, <-done)
}

func TestPoolEnsureWorkerLaunchesOncePerUser(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	p, _, _ := newFixture(t)
	p.Start(ctx, []string{"u1"})
	p.EnsureWorker("u1")
	p.EnsureWorker("u2")

	<-ctx.Done()
	require.NoError(t, p.Wait())
}
