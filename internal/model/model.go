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

// Package model holds the data model entities from spec.md §3: User,
// Workflow, Branch, JobSpec, WorkflowRun, JobInstance, and Slide.
package model

import "time"

// UserStatus is the coarse status of a user.
type UserStatus string

const (
	UserIdle    UserStatus = "idle"
	UserRunning UserStatus = "running"
)

// User is a registered tenant of the engine.
type User struct {
	UserID string     `json:"user_id"`
	Status UserStatus `json:"status"`
}

// Workflow is a named collection of branches owned by a user.
type Workflow struct {
	WorkflowID   string `json:"workflow_id"`
	Name         string `json:"name"`
	OwnerUserID  string `json:"owner_user_id"`
	EntryBranch  string `json:"entry_branch"`
}

// JobSpec pairs a template identifier with a default input payload. It is an
// immutable element of a Branch's job list once appended.
type JobSpec struct {
	TemplateID   string         `json:"template_id"`
	InputPayload map[string]any `json:"input_payload"`
}

// WorkflowRun groups the job instances materialized by one execution of a
// workflow.
type WorkflowRun struct {
	RunID      string   `json:"run_id"`
	WorkflowID string   `json:"workflow_id"`
	JobIDs     []string `json:"job_ids"`
}

// JobStatus is the JobInstance lifecycle state, per spec.md §4.3.
type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	// StatusQueued is reserved for future priority bookkeeping; the
	// current execution flows never transition a job into it. See
	// DESIGN.md's open-question decision.
	StatusQueued JobStatus = "QUEUED"
	StatusRunning JobStatus = "RUNNING"
	StatusSuccess JobStatus = "SUCCESS"
	StatusFailed  JobStatus = "FAILED"
)

// IsTerminal reports whether s is SUCCESS or FAILED.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// JobInstance is a concrete, executable unit of work created per workflow
// execution.
type JobInstance struct {
	JobID      string    `json:"job_id"`
	WorkflowID string    `json:"workflow_id"`
	RunID      string    `json:"run_id"`
	BranchID   string    `json:"branch_id"`
	TemplateID string    `json:"template_id"`
	UserID     string    `json:"user_id"`
	Status     JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	InputPayload  map[string]any `json:"input_payload"`
	OutputPayload map[string]any `json:"output_payload,omitempty"`

	Progress        int     `json:"progress"`
	ProgressMessage string  `json:"progress_message,omitempty"`
	Stage           string  `json:"stage,omitempty"`
	ETA             *string `json:"eta,omitempty"`
}

// Slide is external metadata for a whole-slide image, opaque to the engine
// except for the fields the slide-initialization template reads.
type Slide struct {
	SlideID   string `json:"slide_id"`
	UserID    string `json:"user_id"`
	SlidePath string `json:"slide_path"`
	SizeBytes int64  `json:"size_bytes"`
}

// ProgressRecord is the global progress record written under
// scheduler:job_progress, per spec.md §4.3.
type ProgressRecord struct {
	JobID     string    `json:"job_id"`
	UserID    string    `json:"user_id"`
	Status    JobStatus `json:"status"`
	Percent   float64   `json:"percent"`
	Message   string    `json:"message,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	ETA       string    `json:"eta,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reserved slide-initialization template names, per spec.md §4.4.
const (
	TemplateInitWSI       = "init_wsi"
	TemplateWSIInitialize = "wsi_initialize"
)

// IsSlideInitTemplate reports whether templateID is one of the reserved
// slide-initialization template names.
func IsSlideInitTemplate(templateID string) bool {
	return templateID == TemplateInitWSI || templateID == TemplateWSIInitialize
}

// DefaultTilingParams are the default tiling parameters merged into a
// slide-initialization payload unless the caller overrides them.
func DefaultTilingParams() map[string]any {
	return map[string]any{
		"tile_size": 1024,
		"overlap":   128,
		"min_tile":  512,
		"max_tile":  1536,
	}
}
