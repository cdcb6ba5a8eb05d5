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

package store

import "fmt"

// Global, fixed keys. Keep these stable across migrations — components and
// operators alike depend on this layout, per spec.md §6.
const (
	KeyUsers          = "users"
	KeyActiveUsers    = "active_users"            // reserved / legacy mirror
	KeySchedActive    = "scheduler:active_users"  // user ids owning a RUNNING job
	KeySchedPending   = "scheduler:pending_jobs"  // FIFO list, left-to-right
	KeySchedRunning   = "scheduler:running_jobs"  // job ids currently RUNNING
	KeySchedProgress  = "scheduler:job_progress"  // job_id -> encoded progress record
	KeySchedState     = "scheduler:state"         // "running" | "paused"
	KeyWorkflows      = "workflows"
)

// KeyUser returns the per-user hash key.
func KeyUser(userID string) string { return fmt.Sprintf("user:%s", userID) }

// KeyUserQueue returns the per-user admitted job queue key.
func KeyUserQueue(userID string) string { return fmt.Sprintf("user:%s:queue", userID) }

// KeyUserSlides returns the per-user slide id set key.
func KeyUserSlides(userID string) string { return fmt.Sprintf("user:%s:slides", userID) }

// KeySlide returns the per-slide hash key.
func KeySlide(slideID string) string { return fmt.Sprintf("slide:%s", slideID) }

// KeyWorkflow returns the per-workflow hash key.
func KeyWorkflow(workflowID string) string { return fmt.Sprintf("workflow:%s", workflowID) }

// KeyWorkflowBranches returns the per-workflow branch id set key.
func KeyWorkflowBranches(workflowID string) string {
	return fmt.Sprintf("workflow:%s:branches", workflowID)
}

// KeyWorkflowBranch returns the ordered JobSpec list key for one branch.
func KeyWorkflowBranch(workflowID, branchID string) string {
	return fmt.Sprintf("workflow:%s:branch:%s", workflowID, branchID)
}

// KeyWorkflowRuns returns the per-workflow run id set key.
func KeyWorkflowRuns(workflowID string) string {
	return fmt.Sprintf("workflow:%s:runs", workflowID)
}

// KeyWorkflowRunJobs returns the insertion-ordered job id list key for one run.
func KeyWorkflowRunJobs(workflowID, runID string) string {
	return fmt.Sprintf("workflow:%s:run:%s:jobs", workflowID, runID)
}

// KeyJob returns the per-job hash key holding JobInstance fields.
func KeyJob(jobID string) string { return fmt.Sprintf("job:%s:data", jobID) }
