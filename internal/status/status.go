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

// Package status is the read-only control and progress surface of
// spec.md §4.7: a single aggregation point over running jobs, active
// users, pending jobs, scheduler state, and per-job progress, consumed by
// cmd/enginectl's global-status subcommand and by internal/daemon's
// metrics gauge refresh loop.
package status

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/scheduler"
	"github.com/histoflow/engine/internal/store"
)

func decodeProgress(raw string) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Reader aggregates the engine's global status from the store.
type Reader struct {
	store store.Store
}

// New creates a Reader backed by s.
func New(s store.Store) *Reader {
	return &Reader{store: s}
}

// GlobalStatus is the full snapshot returned by Snapshot.
type GlobalStatus struct {
	SchedulerState string   `json:"scheduler_state"`
	ActiveUsers    []string `json:"active_users"`
	RunningJobs    []string `json:"running_jobs"`
	PendingJobs    int      `json:"pending_jobs"`
}

// Snapshot reads the current global status in one pass.
func (r *Reader) Snapshot(ctx context.Context) (GlobalStatus, error) {
	state, err := r.schedulerState(ctx)
	if err != nil {
		return GlobalStatus{}, fmt.Errorf("status: reading scheduler state: %w", err)
	}

	activeUsers, err := r.store.SetMembers(ctx, store.KeySchedActive)
	if err != nil {
		return GlobalStatus{}, fmt.Errorf("status: reading active users: %w", err)
	}
	runningJobs, err := r.store.SetMembers(ctx, store.KeySchedRunning)
	if err != nil {
		return GlobalStatus{}, fmt.Errorf("status: reading running jobs: %w", err)
	}
	pendingLen, err := r.store.ListLen(ctx, store.KeySchedPending)
	if err != nil {
		return GlobalStatus{}, fmt.Errorf("status: reading pending queue length: %w", err)
	}

	return GlobalStatus{
		SchedulerState: state,
		ActiveUsers:    activeUsers,
		RunningJobs:    runningJobs,
		PendingJobs:    pendingLen,
	}, nil
}

func (r *Reader) schedulerState(ctx context.Context) (string, error) {
	v, ok, err := r.store.KeyGet(ctx, store.KeySchedState)
	if err != nil {
		return "", err
	}
	if !ok {
		return scheduler.StatePaused, nil
	}
	return v, nil
}

// JobProgress returns the decoded progress record for jobID, if any.
func (r *Reader) JobProgress(ctx context.Context, jobID string) (*model.ProgressRecord, bool, error) {
	raw, ok, err := r.store.HashGet(ctx, store.KeySchedProgress, jobID)
	if err != nil {
		return nil, false, fmt.Errorf("status: reading progress for %s: %w", jobID, err)
	}
	if !ok {
		return nil, false, nil
	}
	rec, err := decodeProgress(raw)
	if err != nil {
		return nil, false, fmt.Errorf("status: decoding progress for %s: %w", jobID, err)
	}
	return rec, true, nil
}

// AllProgress returns every progress record currently recorded, keyed by
// job id.
func (r *Reader) AllProgress(ctx context.Context) (map[string]model.ProgressRecord, error) {
	raw, err := r.store.HashGetAll(ctx, store.KeySchedProgress)
	if err != nil {
		return nil, fmt.Errorf("status: reading progress hash: %w", err)
	}
	out := make(map[string]model.ProgressRecord, len(raw))
	for jobID, encoded := range raw {
		rec, err := decodeProgress(encoded)
		if err != nil {
			continue
		}
		out[jobID] = *rec
	}
	return out, nil
}
