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

// Package daemon composes the store, catalog, job manager, execution
// manager, scheduler, worker pool, and status surface into one
// long-running process, in the shape of the teacher's
// internal/daemon/daemon.go.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/histoflow/engine/internal/handlers" // side-effecting template registration

	"github.com/histoflow/engine/internal/catalog"
	"github.com/histoflow/engine/internal/config"
	"github.com/histoflow/engine/internal/execmanager"
	"github.com/histoflow/engine/internal/jobmanager"
	internallog "github.com/histoflow/engine/internal/log"
	"github.com/histoflow/engine/internal/metrics"
	"github.com/histoflow/engine/internal/scheduler"
	"github.com/histoflow/engine/internal/status"
	"github.com/histoflow/engine/internal/store"
	"github.com/histoflow/engine/internal/store/memstore"
	"github.com/histoflow/engine/internal/tracing"
	"github.com/histoflow/engine/internal/worker"
)

// Daemon owns the lifecycle of every long-running engine component.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	Store       store.Store
	Catalog     *catalog.Catalog
	Jobs        *jobmanager.Manager
	ExecManager *execmanager.Manager
	Scheduler   *scheduler.Scheduler
	Workers     *worker.Pool
	Status      *status.Reader
	tracer      *tracing.Provider

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New assembles a Daemon from cfg. s is the backing store; pass nil to use
// an in-process memstore.Store (the single-binary default).
func New(cfg *config.Config, s store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if s == nil {
		s = memstore.New()
	}
	if logger == nil {
		logger = internallog.New(&internallog.Config{Level: cfg.Log.Level, Format: internallog.Format(cfg.Log.Format)})
	}
	dlogger := internallog.WithComponent(logger, "daemon")

	tracer, err := tracing.New("histoflow-engine", nil)
	if err != nil {
		return nil, fmt.Errorf("daemon: initializing tracer: %w", err)
	}

	cat := catalog.New(s)
	jobs := jobmanager.New(s)
	exec := execmanager.New(s, cat, jobs, logger)
	sched := scheduler.New(s, scheduler.Config{
		MaxActiveUsers: cfg.MaxActiveUsers,
		PopTimeout:     cfg.SchedulerPopTimeout,
		DeferSleep:     cfg.DeferSleep,
		PausedSleep:    cfg.SchedulerPausedSleep,
	}, logger)
	pool := worker.NewPool(s, jobs, worker.Config{IdleSleep: cfg.WorkerIdleSleep}, logger)

	metrics.ActiveUserCap.Set(float64(cfg.MaxActiveUsers))

	return &Daemon{
		cfg:         cfg,
		logger:      dlogger,
		Store:       s,
		Catalog:     cat,
		Jobs:        jobs,
		ExecManager: exec,
		Scheduler:   sched,
		Workers:     pool,
		Status:      status.New(s),
		tracer:      tracer,
	}, nil
}

// Start launches the scheduler loop and one worker per currently
// registered user, returning once both are running. It does not block;
// call Shutdown (or cancel the context passed in) to stop.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon: already started")
	}
	d.started = true
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.mu.Unlock()

	if err := d.Scheduler.Bootstrap(runCtx); err != nil {
		return fmt.Errorf("daemon: bootstrapping scheduler: %w", err)
	}

	userIDs, err := d.Store.SetMembers(runCtx, store.KeyUsers)
	if err != nil {
		return fmt.Errorf("daemon: listing registered users: %w", err)
	}
	d.Workers.Start(runCtx, userIDs)

	go func() {
		defer close(d.done)
		if err := d.Scheduler.Run(runCtx); err != nil {
			d.logger.Warn("scheduler loop exited with error", slog.Any("error", err))
		}
	}()

	go d.refreshMetricsLoop(runCtx)

	d.logger.Info("daemon started", slog.Int("registered_users", len(userIDs)))
	return nil
}

// RegisterUser registers a new user and lazily launches its worker, so
// work submitted after Start picks up users that did not exist at boot.
func (d *Daemon) RegisterUser(ctx context.Context, userID string) error {
	if err := d.Catalog.RegisterUser(ctx, userID); err != nil {
		return err
	}
	d.Workers.EnsureWorker(userID)
	return nil
}

// Shutdown cancels the run context, which stops the scheduler loop and
// every worker loop, waits for them to return, and flushes the tracer
// provider. Jobs still on a user queue are left there; a handler in flight
// sees its context cancelled. ctx bounds only the wait for the scheduler
// loop and the tracer flush.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	cancel := d.cancel
	done := d.done
	d.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := d.Workers.Wait(); err != nil {
		d.logger.Warn("worker pool exited with error", slog.Any("error", err))
	}
	if err := d.tracer.Shutdown(ctx); err != nil {
		return fmt.Errorf("daemon: shutting down tracer: %w", err)
	}
	d.logger.Info("daemon stopped")
	return nil
}

// refreshMetricsLoop periodically refreshes the point-in-time gauges from
// a status snapshot, per spec.md §4.7.
func (d *Daemon) refreshMetricsLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := d.Status.Snapshot(ctx)
			if err != nil {
				d.logger.Warn("refreshing status gauges failed", slog.Any("error", err))
				continue
			}
			metrics.RefreshGauges(d.cfg.MaxActiveUsers, len(snap.ActiveUsers), snap.PendingJobs, len(snap.RunningJobs))
		}
	}
}
