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

// Package jobmanager owns JobInstance lifecycle: create, transition,
// record progress, record outputs, per spec.md §4.3.
package jobmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/store"
)

// nowFunc is overridable in tests that need deterministic timestamps.
var nowFunc = time.Now

// Manager implements the Job Manager contracts.
type Manager struct {
	store store.Store
}

// New creates a Manager backed by s.
func New(s store.Store) *Manager {
	return &Manager{store: s}
}

func encodeJSON(v any) (string, error) {
	if v == nil {
		v = map[string]any{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSONMap(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Create persists a new PENDING JobInstance and returns its job_id.
func (m *Manager) Create(ctx context.Context, userID, workflowID, runID, branchID, templateID string, inputPayload map[string]any) (string, error) {
	jobID := uuid.NewString()
	now := nowFunc().UTC()

	payloadJSON, err := encodeJSON(inputPayload)
	if err != nil {
		return "", fmt.Errorf("jobmanager: encoding input payload: %w", err)
	}

	fields := map[string]string{
		"job_id":         jobID,
		"workflow_id":    workflowID,
		"run_id":         runID,
		"branch_id":      branchID,
		"template_id":    templateID,
		"user_id":        userID,
		"status":         string(model.StatusPending),
		"created_at":     now.Format(time.RFC3339Nano),
		"input_payload":  payloadJSON,
		"output_payload": "",
		"progress":       "0",
	}
	if err := m.store.HashSetMany(ctx, store.KeyJob(jobID), fields); err != nil {
		return "", fmt.Errorf("jobmanager: creating job %s: %w", jobID, err)
	}
	return jobID, nil
}

// Get returns the JobInstance for jobID, or ok=false if absent.
func (m *Manager) Get(ctx context.Context, jobID string) (*model.JobInstance, bool, error) {
	fields, err := m.store.HashGetAll(ctx, store.KeyJob(jobID))
	if err != nil {
		return nil, false, fmt.Errorf("jobmanager: loading job %s: %w", jobID, err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fieldsToJob(jobID, fields), true, nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func fieldsToJob(jobID string, f map[string]string) *model.JobInstance {
	progress := 0
	fmt.Sscanf(f["progress"], "%d", &progress)

	j := &model.JobInstance{
		JobID:           jobID,
		WorkflowID:      f["workflow_id"],
		RunID:           f["run_id"],
		BranchID:        f["branch_id"],
		TemplateID:      f["template_id"],
		UserID:          f["user_id"],
		Status:          model.JobStatus(f["status"]),
		CreatedAt:       derefTime(parseTime(f["created_at"])),
		ScheduledAt:     parseTime(f["scheduled_at"]),
		StartedAt:       parseTime(f["started_at"]),
		FinishedAt:      parseTime(f["finished_at"]),
		InputPayload:    decodeJSONMap(f["input_payload"]),
		OutputPayload:   decodeJSONMap(f["output_payload"]),
		Progress:        progress,
		ProgressMessage: f["progress_message"],
		Stage:           f["stage"],
	}
	if eta, ok := f["eta"]; ok && eta != "" {
		j.ETA = &eta
	}
	return j
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// MarkRunning transitions jobID to RUNNING, setting started_at and
// scheduled_at to now.
func (m *Manager) MarkRunning(ctx context.Context, jobID string) error {
	now := nowFunc().UTC().Format(time.RFC3339Nano)
	return m.store.HashSetMany(ctx, store.KeyJob(jobID), map[string]string{
		"status":       string(model.StatusRunning),
		"started_at":   now,
		"scheduled_at": now,
	})
}

// MarkSuccess transitions jobID to SUCCESS with the given output.
func (m *Manager) MarkSuccess(ctx context.Context, jobID string, output map[string]any) error {
	outJSON, err := encodeJSON(output)
	if err != nil {
		return fmt.Errorf("jobmanager: encoding output for %s: %w", jobID, err)
	}
	return m.store.HashSetMany(ctx, store.KeyJob(jobID), map[string]string{
		"status":         string(model.StatusSuccess),
		"finished_at":    nowFunc().UTC().Format(time.RFC3339Nano),
		"output_payload": outJSON,
		"progress":       "100",
		"stage":          "completed",
	})
}

// MarkFailed transitions jobID to FAILED with errMsg recorded as the
// progress message and {"error": errMsg} as the output payload.
func (m *Manager) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	outJSON, err := encodeJSON(map[string]any{"error": errMsg})
	if err != nil {
		return fmt.Errorf("jobmanager: encoding failure output for %s: %w", jobID, err)
	}
	return m.store.HashSetMany(ctx, store.KeyJob(jobID), map[string]string{
		"status":           string(model.StatusFailed),
		"finished_at":      nowFunc().UTC().Format(time.RFC3339Nano),
		"output_payload":   outJSON,
		"progress_message": errMsg,
		"stage":            "failed",
		"progress":         "100",
	})
}

// UpdateProgress records local progress on the job hash and a global
// progress record under scheduler:job_progress, per spec.md §4.3. When
// current and total are both zero, percent is derived from progress/100.
func (m *Manager) UpdateProgress(ctx context.Context, jobID, userID string, progress int, message string, current, total int, stage, eta string) error {
	fields := map[string]string{
		"progress":         fmt.Sprintf("%d", progress),
		"progress_message": message,
	}
	if stage != "" {
		fields["stage"] = stage
	}
	if eta != "" {
		fields["eta"] = eta
	}
	if err := m.store.HashSetMany(ctx, store.KeyJob(jobID), fields); err != nil {
		return fmt.Errorf("jobmanager: updating progress for %s: %w", jobID, err)
	}

	percent := float64(progress) / 100
	if total > 0 {
		percent = float64(current) / float64(total)
	}

	rec := model.ProgressRecord{
		JobID:     jobID,
		UserID:    userID,
		Status:    model.StatusRunning,
		Percent:   percent,
		Message:   message,
		Stage:     stage,
		ETA:       eta,
		UpdatedAt: nowFunc().UTC(),
	}
	return m.writeGlobalProgress(ctx, jobID, rec)
}

// WriteTerminalProgress writes the final progress record for a job that
// just reached SUCCESS or FAILED.
func (m *Manager) WriteTerminalProgress(ctx context.Context, jobID, userID string, status model.JobStatus, message string) error {
	rec := model.ProgressRecord{
		JobID:     jobID,
		UserID:    userID,
		Status:    status,
		Percent:   1.0,
		Message:   message,
		Stage:     string(status),
		UpdatedAt: nowFunc().UTC(),
	}
	return m.writeGlobalProgress(ctx, jobID, rec)
}

// WriteStartProgress writes the initial RUNNING progress record (percent 0)
// a worker records right after marking a job RUNNING.
func (m *Manager) WriteStartProgress(ctx context.Context, jobID, userID string) error {
	rec := model.ProgressRecord{
		JobID:     jobID,
		UserID:    userID,
		Status:    model.StatusRunning,
		Percent:   0,
		UpdatedAt: nowFunc().UTC(),
	}
	return m.writeGlobalProgress(ctx, jobID, rec)
}

func (m *Manager) writeGlobalProgress(ctx context.Context, jobID string, rec model.ProgressRecord) error {
	encoded, err := encodeJSON(rec)
	if err != nil {
		return fmt.Errorf("jobmanager: encoding progress record for %s: %w", jobID, err)
	}
	return m.store.HashSet(ctx, store.KeySchedProgress, jobID, encoded)
}

// GetGlobalProgress returns the decoded progress record for jobID.
func (m *Manager) GetGlobalProgress(ctx context.Context, jobID string) (*model.ProgressRecord, bool, error) {
	raw, ok, err := m.store.HashGet(ctx, store.KeySchedProgress, jobID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var rec model.ProgressRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("jobmanager: decoding progress record for %s: %w", jobID, err)
	}
	return &rec, true, nil
}
