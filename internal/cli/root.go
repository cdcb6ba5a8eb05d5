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

// Package cli assembles the enginectl root command. Each subcommand opens
// its own Daemon over a fresh in-memory store rather than talking
// to a running engined over a control API, per SPEC_FULL.md §6 (no HTTP
// transport in scope).
package cli

import (
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// SetVersion records the build-time version info for the "version" command.
func SetVersion(v, c string) {
	version, commit = v, c
}

// GetVersion returns the recorded build-time version info.
func GetVersion() (string, string) {
	return version, commit
}

// Flags shared by every subcommand.
var (
	ConfigPath string
	JSONOutput bool
)

// NewRootCommand creates the root Cobra command for enginectl.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enginectl",
		Short: "Operator CLI for the histoflow execution engine",
		Long: `enginectl is the operator surface for the histoflow execution engine:
start or pause the global scheduler, inspect its state, trigger a workflow
execution, and show the global status snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&ConfigPath, "config", "", "Path to engine config file (YAML)")
	cmd.PersistentFlags().BoolVar(&JSONOutput, "json", false, "Output in JSON format")

	return cmd
}
