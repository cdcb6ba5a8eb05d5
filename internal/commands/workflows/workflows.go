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

// Package workflows implements enginectl's "workflows" command group:
// currently just execute, per SPEC_FULL.md §6.
package workflows

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/histoflow/engine/internal/cli"
)

// NewCommand creates the "workflows" command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Trigger a workflow execution",
	}
	cmd.AddCommand(newExecuteCommand())
	return cmd
}

func newExecuteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <workflow-id>",
		Short: "Materialize and enqueue every job spec in a workflow's branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cli.NewDaemon()
			if err != nil {
				return err
			}
			result, err := d.ExecManager.Execute(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("executing workflow %s: %w", args[0], err)
			}

			if cli.JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"workflow_id": result.WorkflowID,
					"run_id":      result.RunID,
					"job_ids":     result.JobIDs,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: enqueued %d job(s)\n", result.RunID, len(result.JobIDs))
			for _, jobID := range result.JobIDs {
				fmt.Fprintf(out, "  - %s\n", jobID)
			}
			return nil
		},
	}
}
