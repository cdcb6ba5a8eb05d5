// Copyright 2026 The Histoflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package worker implements the per-user worker loops of spec.md §4.6: one
// worker per registered user drains that user's queue, runs the registered
// handler, and maintains the running-job set and active-user set. The fleet
// of per-user goroutines is supervised by an errgroup.Group, an
// ecosystem-standard choice for a dynamic set of goroutines rather than one
// with direct precedent in the teacher's own code, which supervises its
// long-running components with bare goroutine launches instead.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/histoflow/engine/internal/apperrors"
	"github.com/histoflow/engine/internal/jobmanager"
	"github.com/histoflow/engine/internal/log"
	"github.com/histoflow/engine/internal/metrics"
	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/registry"
	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/tracing"
)

// Config bundles worker timing knobs.
type Config struct {
	IdleSleep time.Duration
}

// nowFunc is overridable in tests that need deterministic durations.
var nowFunc = time.Now

// Pool owns one worker goroutine per user.
type Pool struct {
	store  store.Store
	jobs   *jobmanager.Manager
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	started map[string]bool
	g       *errgroup.Group
	gctx    context.Context
}

// NewPool creates a Pool backed by s and jobs.
func NewPool(s store.Store, jobs *jobmanager.Manager, cfg Config, logger *slog.Logger) *Pool {
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		store:   s,
		jobs:    jobs,
		cfg:     cfg,
		logger:  log.WithComponent(logger, "worker"),
		started: make(map[string]bool),
	}
}

// Start launches the errgroup supervising user workers and starts one
// worker per user in userIDs. Additional users may be added later with
// EnsureWorker, to support lazy launch when a user registers at runtime.
func (p *Pool) Start(ctx context.Context, userIDs []string) {
	g, gctx := errgroup.WithContext(ctx)
	p.mu.Lock()
	p.g = g
	p.gctx = gctx
	p.mu.Unlock()

	for _, userID := range userIDs {
		p.EnsureWorker(userID)
	}
}

// EnsureWorker lazily launches a worker for userID if one isn't already
// running. Safe to call concurrently and after Start.
func (p *Pool) EnsureWorker(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started[userID] {
		return
	}
	p.started[userID] = true
	g, gctx := p.g, p.gctx
	g.Go(func() error {
		return p.runLoop(gctx, userID)
	})
}

// Wait blocks until every worker has returned (normally only once the
// pool's context is cancelled) or one returns an unrecoverable error.
func (p *Pool) Wait() error {
	p.mu.Lock()
	g := p.g
	p.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// runLoop is one user's worker loop, per spec.md §4.6.
func (p *Pool) runLoop(ctx context.Context, userID string) error {
	logger := p.logger.With(slog.String(log.UserIDKey, userID))
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		jobID, ok, err := p.store.ListPopLeft(ctx, store.KeyUserQueue(userID))
		if err != nil {
			logger.Warn("popping user queue failed, backing off", slog.Any("error", err))
			sleepOrDone(ctx, p.cfg.IdleSleep)
			continue
		}
		if !ok {
			sleepOrDone(ctx, p.cfg.IdleSleep)
			continue
		}

		p.runJob(ctx, userID, jobID, logger)
	}
}

// runJob drives a single job instance from admitted-pending through a
// terminal state, per spec.md §4.6 steps 2-8.
func (p *Pool) runJob(ctx context.Context, userID, jobID string, logger *slog.Logger) {
	logger = logger.With(slog.String(log.JobIDKey, jobID))

	fields, err := p.store.HashGetAll(ctx, store.KeyJob(jobID))
	if err != nil {
		logger.Warn("loading job metadata failed", slog.Any("error", err))
		return
	}
	templateID := fields["template_id"]
	workflowID := fields["workflow_id"]
	payload := decodePayload(fields["input_payload"])

	spanCtx, span := tracing.StartJobSpan(ctx, jobID, workflowID, templateID)
	started := nowFunc()
	defer func() {
		tracing.EndJobSpan(span, nil)
	}()
	ctx = spanCtx

	if err := p.jobs.MarkRunning(ctx, jobID); err != nil {
		logger.Warn("marking job running failed", slog.Any("error", err))
		return
	}
	if err := p.store.SetAdd(ctx, store.KeySchedRunning, jobID); err != nil {
		logger.Warn("adding job to running set failed", slog.Any("error", err))
	}
	if err := p.store.SetAdd(ctx, store.KeySchedActive, userID); err != nil {
		logger.Warn("adding user to active set failed", slog.Any("error", err))
	}
	// Legacy mirror; no known consumer reads it today (see DESIGN.md).
	_ = p.store.SetAdd(ctx, store.KeyActiveUsers, userID)
	if err := p.jobs.WriteStartProgress(ctx, jobID, userID); err != nil {
		logger.Warn("writing start progress failed", slog.Any("error", err))
	}

	defer p.cleanup(ctx, userID, jobID, logger)

	handler, found := registry.Lookup(templateID)
	if !found {
		msg := (&apperrors.NotRegisteredError{Template: templateID}).Error()
		p.fail(ctx, jobID, userID, templateID, msg, started, logger)
		return
	}

	reporter := &progressReporter{jobs: p.jobs, jobID: jobID, userID: userID}
	output, err := handler.Run(ctx, jobID, payload, reporter)
	if err != nil {
		msg := formatHandlerError(err)
		p.fail(ctx, jobID, userID, templateID, msg, started, logger)
		return
	}

	if err := p.jobs.MarkSuccess(ctx, jobID, output); err != nil {
		logger.Warn("marking job success failed", slog.Any("error", err))
		return
	}
	if err := p.jobs.WriteTerminalProgress(ctx, jobID, userID, model.StatusSuccess, ""); err != nil {
		logger.Warn("writing terminal progress failed", slog.Any("error", err))
	}
	metrics.ObserveJobDuration(templateID, string(model.StatusSuccess), nowFunc().Sub(started))
}

func (p *Pool) fail(ctx context.Context, jobID, userID, templateID, message string, started time.Time, logger *slog.Logger) {
	if err := p.jobs.MarkFailed(ctx, jobID, message); err != nil {
		logger.Warn("marking job failed failed", slog.Any("error", err))
	}
	if err := p.jobs.WriteTerminalProgress(ctx, jobID, userID, model.StatusFailed, message); err != nil {
		logger.Warn("writing terminal progress failed", slog.Any("error", err))
	}
	metrics.ObserveJobDuration(templateID, string(model.StatusFailed), nowFunc().Sub(started))
}

// cleanup removes jobID from the running set and, if userID owns no other
// running job, removes userID from the active-user set, per spec.md §4.6
// step 8.
func (p *Pool) cleanup(ctx context.Context, userID, jobID string, logger *slog.Logger) {
	if err := p.store.SetRemove(ctx, store.KeySchedRunning, jobID); err != nil {
		logger.Warn("removing job from running set failed", slog.Any("error", err))
	}

	runningJobs, err := p.store.SetMembers(ctx, store.KeySchedRunning)
	if err != nil {
		logger.Warn("listing running jobs failed", slog.Any("error", err))
		return
	}

	stillOwnsRunning := false
	for _, otherJobID := range runningJobs {
		ownerID, ok, err := p.store.HashGet(ctx, store.KeyJob(otherJobID), "user_id")
		if err == nil && ok && ownerID == userID {
			stillOwnsRunning = true
			break
		}
	}
	if !stillOwnsRunning {
		if err := p.store.SetRemove(ctx, store.KeySchedActive, userID); err != nil {
			logger.Warn("removing user from active set failed", slog.Any("error", err))
		}
		_ = p.store.SetRemove(ctx, store.KeyActiveUsers, userID)
	}
}

// decodePayload decodes a JSON-encoded map defensively: if the payload was
// double-encoded (a JSON string containing JSON), it decodes twice; on
// parse failure it falls back to an empty map, per spec.md §4.6 step 2.
func decodePayload(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err == nil {
		return m
	}

	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil {
		var m2 map[string]any
		if err := json.Unmarshal([]byte(inner), &m2); err == nil {
			return m2
		}
	}
	return map[string]any{}
}

func formatHandlerError(err error) string {
	var he *apperrors.HandlerError
	if apperrors.As(err, &he) {
		return he.Error()
	}
	return fmt.Sprintf("HandlerError: %s", err.Error())
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// progressReporter adapts jobmanager.Manager to registry.ProgressReporter.
type progressReporter struct {
	jobs   *jobmanager.Manager
	jobID  string
	userID string
}

func (r *progressReporter) UpdateProgress(ctx context.Context, progress int, message string, current, total int, stage, eta string) error {
	return r.jobs.UpdateProgress(ctx, r.jobID, r.userID, progress, message, current, total, stage, eta)
}

var _ registry.ProgressReporter = (*progressReporter)(nil)
