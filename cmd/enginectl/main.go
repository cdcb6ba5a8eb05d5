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

// Command enginectl is the operator CLI for the histoflow execution
// engine: scheduler start/pause/state, global-status, and workflow
// execution, built directly on the daemon packages per SPEC_FULL.md §6.
package main

import (
	"os"

	"github.com/histoflow/engine/internal/cli"
	"github.com/histoflow/engine/internal/commands/scheduler"
	"github.com/histoflow/engine/internal/commands/status"
	"github.com/histoflow/engine/internal/commands/version"
	"github.com/histoflow/engine/internal/commands/workflows"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

func main() {
	cli.SetVersion(buildVersion, buildCommit)

	root := cli.NewRootCommand()
	root.AddCommand(scheduler.NewCommand())
	root.AddCommand(status.NewCommand())
	root.AddCommand(workflows.NewCommand())
	root.AddCommand(version.NewCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
