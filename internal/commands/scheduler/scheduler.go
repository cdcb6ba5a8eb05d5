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

// Package scheduler implements enginectl's "scheduler" command group:
// start, pause, and state, per SPEC_FULL.md §6.
package scheduler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/histoflow/engine/internal/cli"
)

// NewCommand creates the "scheduler" command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Start, pause, or inspect the global admission scheduler",
	}
	cmd.AddCommand(newStartCommand())
	cmd.AddCommand(newPauseCommand())
	cmd.AddCommand(newStateCommand())
	return cmd
}

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Set the scheduler control state to running",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cli.NewDaemon()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := d.Scheduler.Bootstrap(ctx); err != nil {
				return err
			}
			if err := d.Scheduler.Start(ctx); err != nil {
				return err
			}
			return printState(cmd, "running")
		},
	}
}

func newPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Set the scheduler control state to paused",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cli.NewDaemon()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := d.Scheduler.Bootstrap(ctx); err != nil {
				return err
			}
			if err := d.Scheduler.Pause(ctx); err != nil {
				return err
			}
			return printState(cmd, "paused")
		},
	}
}

func newStateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the scheduler control state",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cli.NewDaemon()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := d.Scheduler.Bootstrap(ctx); err != nil {
				return err
			}
			state, err := d.Scheduler.State(ctx)
			if err != nil {
				return err
			}
			return printState(cmd, state)
		},
	}
}

func printState(cmd *cobra.Command, state string) error {
	if cli.JSONOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"state": state})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scheduler state: %s\n", state)
	return nil
}
