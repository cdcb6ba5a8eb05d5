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

// Package scheduler implements the single global admission loop described
// in spec.md §4.5: it drains the global pending queue and either admits a
// job onto its owning user's queue or defers it to the tail of the pending
// queue, enforcing a cap on the number of distinct active users.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/histoflow/engine/internal/log"
	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/tracing"
)

const (
	// StateRunning and StatePaused are the values stored under
	// store.KeySchedState.
	StateRunning = "running"
	StatePaused  = "paused"
)

// Config bundles the scheduler's timing knobs, per spec.md §6.
type Config struct {
	MaxActiveUsers int
	PopTimeout     time.Duration
	DeferSleep     time.Duration
	PausedSleep    time.Duration
}

// Scheduler is the single long-running admission loop.
type Scheduler struct {
	store  store.Store
	cfg    Config
	logger *slog.Logger

	// deferLimiter paces re-enqueue-to-tail cycling instead of a bare
	// time.Sleep, so a scheduler pinned against a saturated active-user
	// set doesn't spin the CPU between deferrals.
	deferLimiter *rate.Limiter
}

// New creates a Scheduler, filling in defaults for zero-valued Config
// fields. It does not touch the store; Bootstrap initializes the control
// state to paused on first boot, per spec.md §4.5 step 1.
func New(s store.Store, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.MaxActiveUsers <= 0 {
		cfg.MaxActiveUsers = 3
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = time.Second
	}
	if cfg.DeferSleep <= 0 {
		cfg.DeferSleep = 200 * time.Millisecond
	}
	if cfg.PausedSleep <= 0 {
		cfg.PausedSleep = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	rateLimit := rate.Every(cfg.DeferSleep)
	return &Scheduler{
		store:        s,
		cfg:          cfg,
		logger:       log.WithComponent(logger, "scheduler"),
		deferLimiter: rate.NewLimiter(rateLimit, 1),
	}
}

// Bootstrap initializes the control key to paused if it doesn't already
// exist.
func (sch *Scheduler) Bootstrap(ctx context.Context) error {
	exists, err := sch.store.KeyExists(ctx, store.KeySchedState)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return sch.store.KeySet(ctx, store.KeySchedState, StatePaused)
}

// Start sets the control state to running.
func (sch *Scheduler) Start(ctx context.Context) error {
	return sch.store.KeySet(ctx, store.KeySchedState, StateRunning)
}

// Pause sets the control state to paused. Workers continue to drain their
// queues; only admission stops.
func (sch *Scheduler) Pause(ctx context.Context) error {
	return sch.store.KeySet(ctx, store.KeySchedState, StatePaused)
}

// State returns the current control state.
func (sch *Scheduler) State(ctx context.Context) (string, error) {
	v, ok, err := sch.store.KeyGet(ctx, store.KeySchedState)
	if err != nil {
		return "", err
	}
	if !ok {
		return StatePaused, nil
	}
	return v, nil
}

// Run executes the admission loop until ctx is cancelled.
func (sch *Scheduler) Run(ctx context.Context) error {
	if err := sch.Bootstrap(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		state, err := sch.State(ctx)
		if err != nil {
			sch.logger.Warn("reading scheduler state failed", slog.Any("error", err))
			sleepOrDone(ctx, sch.cfg.PausedSleep)
			continue
		}
		if state != StateRunning {
			sleepOrDone(ctx, sch.cfg.PausedSleep)
			continue
		}

		if err := sch.tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			sch.logger.Warn("scheduler tick failed", slog.Any("error", err))
		}
	}
}

// tick performs one pop/admit-or-defer cycle.
func (sch *Scheduler) tick(ctx context.Context) error {
	jobID, ok, err := sch.store.BLPop(ctx, store.KeySchedPending, sch.cfg.PopTimeout)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	fields, err := sch.store.HashGetAll(ctx, store.KeyJob(jobID))
	if err != nil {
		return err
	}
	userID := fields["user_id"]
	if len(fields) == 0 || userID == "" {
		sch.logger.Warn("dropping job with missing metadata", slog.String(log.JobIDKey, jobID))
		return nil
	}

	spanCtx, span := tracing.StartAdmissionSpan(ctx, jobID, userID)
	admitted, err := sch.admit(spanCtx, userID)
	if err != nil {
		span.End()
		return err
	}
	tracing.EndAdmissionSpan(span, admitted)

	if admitted {
		return sch.store.ListPushRight(ctx, store.KeyUserQueue(userID), jobID)
	}

	// Defer: push back to the tail and pace the retry.
	if err := sch.store.ListPushRight(ctx, store.KeySchedPending, jobID); err != nil {
		return err
	}
	return sch.deferLimiter.Wait(ctx)
}

// admit reports whether a job owned by userID may be placed on that user's
// queue right now, per spec.md §4.5 step 4. It never adds userID to the
// active-user set itself — only a worker does that, at RUNNING time.
func (sch *Scheduler) admit(ctx context.Context, userID string) (bool, error) {
	alreadyActive, err := sch.store.SetContains(ctx, store.KeySchedActive, userID)
	if err != nil {
		return false, err
	}
	if alreadyActive {
		return true, nil
	}

	activeCount, err := sch.store.SetCard(ctx, store.KeySchedActive)
	if err != nil {
		return false, err
	}
	return activeCount < sch.cfg.MaxActiveUsers, nil
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
