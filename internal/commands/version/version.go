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

// Package version implements enginectl's "version" command.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/histoflow/engine/internal/cli"
)

// NewCommand creates the "version" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show enginectl version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, commit := cli.GetVersion()
			fmt.Fprintf(cmd.OutOrStdout(), "enginectl %s (commit: %s)\n", v, commit)
			return nil
		},
	}
}
