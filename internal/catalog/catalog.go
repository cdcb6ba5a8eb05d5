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

// Package catalog provides the data-access helpers for the entities whose
// CRUD HTTP surface is out of scope per spec.md §1 (users, workflows,
// branches, slides): registration, branch/job-spec authoring, and cascading
// deletes. The Execution Manager and the operator CLI both read through
// this package rather than poking the store directly.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/store"
)

// Catalog is the data-access layer for users, workflows, branches, and
// slides.
type Catalog struct {
	store store.Store
}

// New creates a Catalog backed by s.
func New(s store.Store) *Catalog {
	return &Catalog{store: s}
}

// RegisterUser adds userID to the users set with status idle.
func (c *Catalog) RegisterUser(ctx context.Context, userID string) error {
	if err := c.store.SetAdd(ctx, store.KeyUsers, userID); err != nil {
		return err
	}
	return c.store.HashSet(ctx, store.KeyUser(userID), "status", string(model.UserIdle))
}

// DeleteUser cascades through the user's workflows, branches, and executed
// job instances, per spec.md §3's ownership rules. It uses only the tracked
// sets, never a pattern scan over the whole key space.
func (c *Catalog) DeleteUser(ctx context.Context, userID string) error {
	workflowIDs, err := c.store.SetMembers(ctx, store.KeyWorkflows)
	if err != nil {
		return err
	}
	for _, wfID := range workflowIDs {
		fields, err := c.store.HashGetAll(ctx, store.KeyWorkflow(wfID))
		if err != nil {
			return err
		}
		if fields["owner_user_id"] != userID {
			continue
		}
		runIDs, err := c.store.SetMembers(ctx, store.KeyWorkflowRuns(wfID))
		if err != nil {
			return err
		}
		for _, runID := range runIDs {
			jobIDs, err := c.store.ListRange(ctx, store.KeyWorkflowRunJobs(wfID, runID), 0, -1)
			if err != nil {
				return err
			}
			for _, jobID := range jobIDs {
				if err := c.store.KeyDel(ctx, store.KeyJob(jobID)); err != nil {
					return err
				}
			}
		}
		if err := c.DeleteWorkflow(ctx, wfID); err != nil {
			return err
		}
	}

	slideIDs, err := c.store.SetMembers(ctx, store.KeyUserSlides(userID))
	if err != nil {
		return err
	}
	for _, slideID := range slideIDs {
		if err := c.store.KeyDel(ctx, store.KeySlide(slideID)); err != nil {
			return err
		}
	}
	if err := c.store.KeyDel(ctx, store.KeyUserSlides(userID)); err != nil {
		return err
	}

	if err := c.store.KeyDel(ctx, store.KeyUser(userID)); err != nil {
		return err
	}
	if err := c.store.KeyDel(ctx, store.KeyUserQueue(userID)); err != nil {
		return err
	}
	return c.store.SetRemove(ctx, store.KeyUsers, userID)
}

// CreateWorkflow creates a workflow owned by ownerUserID with entryBranch as
// its default branch identifier.
func (c *Catalog) CreateWorkflow(ctx context.Context, name, ownerUserID, entryBranch string) (string, error) {
	workflowID := uuid.NewString()
	if err := c.store.SetAdd(ctx, store.KeyWorkflows, workflowID); err != nil {
		return "", err
	}
	fields := map[string]string{
		"name":          name,
		"owner_user_id": ownerUserID,
		"entry_branch":  entryBranch,
	}
	if err := c.store.HashSetMany(ctx, store.KeyWorkflow(workflowID), fields); err != nil {
		return "", err
	}
	if err := c.store.SetAdd(ctx, store.KeyWorkflowBranches(workflowID), entryBranch); err != nil {
		return "", err
	}
	return workflowID, nil
}

// GetWorkflow returns the Workflow for workflowID, or ok=false if absent.
func (c *Catalog) GetWorkflow(ctx context.Context, workflowID string) (*model.Workflow, bool, error) {
	fields, err := c.store.HashGetAll(ctx, store.KeyWorkflow(workflowID))
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return &model.Workflow{
		WorkflowID:  workflowID,
		Name:        fields["name"],
		OwnerUserID: fields["owner_user_id"],
		EntryBranch: fields["entry_branch"],
	}, true, nil
}

// DeleteWorkflow cascades through the workflow's branches.
func (c *Catalog) DeleteWorkflow(ctx context.Context, workflowID string) error {
	branchIDs, err := c.store.SetMembers(ctx, store.KeyWorkflowBranches(workflowID))
	if err != nil {
		return err
	}
	for _, branchID := range branchIDs {
		if err := c.store.KeyDel(ctx, store.KeyWorkflowBranch(workflowID, branchID)); err != nil {
			return err
		}
	}
	if err := c.store.KeyDel(ctx, store.KeyWorkflowBranches(workflowID)); err != nil {
		return err
	}
	if err := c.store.KeyDel(ctx, store.KeyWorkflow(workflowID)); err != nil {
		return err
	}
	return c.store.SetRemove(ctx, store.KeyWorkflows, workflowID)
}

// Branches returns the (unordered) set of branch ids owned by workflowID.
func (c *Catalog) Branches(ctx context.Context, workflowID string) ([]string, error) {
	return c.store.SetMembers(ctx, store.KeyWorkflowBranches(workflowID))
}

// AddBranch registers a new branch id under workflowID.
func (c *Catalog) AddBranch(ctx context.Context, workflowID, branchID string) error {
	return c.store.SetAdd(ctx, store.KeyWorkflowBranches(workflowID), branchID)
}

// RemoveBranch removes branchID from workflowID's branch set and destroys
// its job-spec list.
func (c *Catalog) RemoveBranch(ctx context.Context, workflowID, branchID string) error {
	if err := c.store.KeyDel(ctx, store.KeyWorkflowBranch(workflowID, branchID)); err != nil {
		return err
	}
	return c.store.SetRemove(ctx, store.KeyWorkflowBranches(workflowID), branchID)
}

// AppendJobSpec appends spec to the ordered job-spec list of
// (workflowID, branchID).
func (c *Catalog) AppendJobSpec(ctx context.Context, workflowID, branchID string, spec model.JobSpec) error {
	encoded, err := encodeJobSpec(spec)
	if err != nil {
		return err
	}
	return c.store.ListPushRight(ctx, store.KeyWorkflowBranch(workflowID, branchID), encoded)
}

// JobSpecs returns the ordered JobSpec list for (workflowID, branchID),
// accepting the legacy bare-template-string encoding on read per spec.md §6.
func (c *Catalog) JobSpecs(ctx context.Context, workflowID, branchID string) ([]model.JobSpec, error) {
	raw, err := c.store.ListRange(ctx, store.KeyWorkflowBranch(workflowID, branchID), 0, -1)
	if err != nil {
		return nil, err
	}
	specs := make([]model.JobSpec, 0, len(raw))
	for _, r := range raw {
		spec, err := decodeJobSpec(r)
		if err != nil {
			return nil, fmt.Errorf("catalog: decoding job spec in %s/%s: %w", workflowID, branchID, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// DeleteJobSpecAt removes the job spec at the given position (0-indexed).
func (c *Catalog) DeleteJobSpecAt(ctx context.Context, workflowID, branchID string, index int) error {
	raw, err := c.store.ListRange(ctx, store.KeyWorkflowBranch(workflowID, branchID), 0, -1)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(raw) {
		return fmt.Errorf("catalog: index %d out of range", index)
	}
	return c.store.ListRemoveByValue(ctx, store.KeyWorkflowBranch(workflowID, branchID), raw[index])
}

func encodeJobSpec(spec model.JobSpec) (string, error) {
	payload := spec.InputPayload
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(struct {
		TemplateID   string         `json:"template_id"`
		InputPayload map[string]any `json:"input_payload"`
	}{TemplateID: spec.TemplateID, InputPayload: payload})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeJobSpec accepts both {"template_id": ..., "input_payload": ...} and
// the legacy bare template-name string, per spec.md §6.
func decodeJobSpec(raw string) (model.JobSpec, error) {
	var obj struct {
		TemplateID   string         `json:"template_id"`
		InputPayload map[string]any `json:"input_payload"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil && obj.TemplateID != "" {
		payload := obj.InputPayload
		if payload == nil {
			payload = map[string]any{}
		}
		return model.JobSpec{TemplateID: obj.TemplateID, InputPayload: payload}, nil
	}

	var bare string
	if err := json.Unmarshal([]byte(raw), &bare); err == nil && bare != "" {
		return model.JobSpec{TemplateID: bare, InputPayload: map[string]any{}}, nil
	}

	// Raw, un-encoded string (e.g. hand-written fixtures).
	return model.JobSpec{TemplateID: raw, InputPayload: map[string]any{}}, nil
}

// RegisterSlide stores slide metadata owned by userID.
func (c *Catalog) RegisterSlide(ctx context.Context, userID, slidePath string, sizeBytes int64) (string, error) {
	slideID := uuid.NewString()
	fields := map[string]string{
		"slide_id":   slideID,
		"user_id":    userID,
		"slide_path": slidePath,
		"size_bytes": fmt.Sprintf("%d", sizeBytes),
	}
	if err := c.store.HashSetMany(ctx, store.KeySlide(slideID), fields); err != nil {
		return "", err
	}
	if err := c.store.SetAdd(ctx, store.KeyUserSlides(userID), slideID); err != nil {
		return "", err
	}
	return slideID, nil
}

// GetSlide returns the Slide for slideID, or ok=false if absent.
func (c *Catalog) GetSlide(ctx context.Context, slideID string) (*model.Slide, bool, error) {
	fields, err := c.store.HashGetAll(ctx, store.KeySlide(slideID))
	if err != nil {
		return nil, false, err
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	var size int64
	fmt.Sscanf(fields["size_bytes"], "%d", &size)
	return &model.Slide{
		SlideID:   slideID,
		UserID:    fields["user_id"],
		SlidePath: fields["slide_path"],
		SizeBytes: size,
	}, true, nil
}

// NewRunID generates a fresh, globally unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}
