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

// Package execmanager expands a workflow into job instances at execution
// time and publishes them to the global pending queue, per spec.md §4.4.
package execmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/histoflow/engine/internal/catalog"
	"github.com/histoflow/engine/internal/jobmanager"
	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/store"
)

// ErrWorkflowNotFound is returned by Execute when workflowID has no
// matching workflow.
var ErrWorkflowNotFound = errors.New("execmanager: workflow not found")

// Manager expands workflows into job instances and enqueues them globally.
type Manager struct {
	store    store.Store
	catalog  *catalog.Catalog
	jobs     *jobmanager.Manager
	logger   *slog.Logger
}

// New creates a Manager.
func New(s store.Store, c *catalog.Catalog, jobs *jobmanager.Manager, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: s, catalog: c, jobs: jobs, logger: logger}
}

// Result is what Execute returns per spec.md §4.4.
type Result struct {
	WorkflowID string
	RunID      string
	JobIDs     []string
}

// Execute materializes every JobSpec across workflowID's branches into a
// PENDING JobInstance, in branch order within each branch, and enqueues each
// one globally. Per-job errors (missing slide, unresolved template input)
// are logged and skip that job; they never abort the run.
func (m *Manager) Execute(ctx context.Context, workflowID string) (Result, error) {
	wf, ok, err := m.catalog.GetWorkflow(ctx, workflowID)
	if err != nil {
		return Result{}, fmt.Errorf("execmanager: loading workflow %s: %w", workflowID, err)
	}
	if !ok {
		return Result{}, ErrWorkflowNotFound
	}

	runID := catalog.NewRunID()
	if err := m.store.SetAdd(ctx, store.KeyWorkflowRuns(wf.WorkflowID), runID); err != nil {
		return Result{}, fmt.Errorf("execmanager: registering run %s: %w", runID, err)
	}

	branchIDs, err := m.catalog.Branches(ctx, wf.WorkflowID)
	if err != nil {
		return Result{}, fmt.Errorf("execmanager: loading branches for %s: %w", workflowID, err)
	}

	var jobIDs []string
	for _, branchID := range branchIDs {
		specs, err := m.catalog.JobSpecs(ctx, wf.WorkflowID, branchID)
		if err != nil {
			return Result{}, fmt.Errorf("execmanager: loading job specs for %s/%s: %w", workflowID, branchID, err)
		}

		for _, spec := range specs {
			payload, skip, reason := m.resolvePayload(ctx, spec)
			if skip {
				m.logger.Warn("skipping job, could not resolve payload",
					slog.String("workflow_id", workflowID),
					slog.String("branch_id", branchID),
					slog.String("template_id", spec.TemplateID),
					slog.String("reason", reason))
				continue
			}

			jobID, err := m.jobs.Create(ctx, wf.OwnerUserID, wf.WorkflowID, runID, branchID, spec.TemplateID, payload)
			if err != nil {
				return Result{}, fmt.Errorf("execmanager: creating job for %s/%s: %w", workflowID, branchID, err)
			}

			if err := m.store.ListPushRight(ctx, store.KeyWorkflowRunJobs(wf.WorkflowID, runID), jobID); err != nil {
				return Result{}, fmt.Errorf("execmanager: recording job %s on run %s: %w", jobID, runID, err)
			}
			if err := m.store.ListPushRight(ctx, store.KeySchedPending, jobID); err != nil {
				return Result{}, fmt.Errorf("execmanager: enqueuing job %s: %w", jobID, err)
			}
			jobIDs = append(jobIDs, jobID)
		}
	}

	return Result{WorkflowID: wf.WorkflowID, RunID: runID, JobIDs: jobIDs}, nil
}

// resolvePayload derives the final input payload for spec, merging slide
// metadata and default tiling parameters for slide-initialization
// templates, per spec.md §4.4 step 4.
func (m *Manager) resolvePayload(ctx context.Context, spec model.JobSpec) (payload map[string]any, skip bool, reason string) {
	if !model.IsSlideInitTemplate(spec.TemplateID) {
		return spec.InputPayload, false, ""
	}

	slideIDRaw, ok := spec.InputPayload["slide_id"]
	if !ok {
		return nil, true, "missing slide_id"
	}
	slideID, ok := slideIDRaw.(string)
	if !ok || slideID == "" {
		return nil, true, "missing slide_id"
	}

	slide, found, err := m.catalog.GetSlide(ctx, slideID)
	if err != nil || !found {
		return nil, true, fmt.Sprintf("slide record not found: %s", slideID)
	}

	merged := map[string]any{}
	for k, v := range model.DefaultTilingParams() {
		merged[k] = v
	}
	for k, v := range spec.InputPayload {
		merged[k] = v
	}
	merged["slide_path"] = slide.SlidePath

	return merged, false, ""
}
