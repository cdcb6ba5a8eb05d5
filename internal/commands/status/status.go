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

// Package status implements enginectl's "global-status" command, per
// SPEC_FULL.md §6 and spec.md §4.7.
package status

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/histoflow/engine/internal/cli"
)

// NewCommand creates the "global-status" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "global-status",
		Short: "Show the scheduler state, active users, and running/pending job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cli.NewDaemon()
			if err != nil {
				return err
			}
			snap, err := d.Status.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			if cli.JSONOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"scheduler_state": snap.SchedulerState,
					"active_users":    snap.ActiveUsers,
					"running_jobs":    snap.RunningJobs,
					"pending_jobs":    snap.PendingJobs,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scheduler state: %s\n", snap.SchedulerState)
			fmt.Fprintf(out, "active users:    %d (%v)\n", len(snap.ActiveUsers), snap.ActiveUsers)
			fmt.Fprintf(out, "running jobs:    %d\n", len(snap.RunningJobs))
			fmt.Fprintf(out, "pending jobs:    %d\n", snap.PendingJobs)
			return nil
		},
	}
}
