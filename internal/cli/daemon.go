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

package cli

import (
	"fmt"

	"github.com/histoflow/engine/internal/config"
	"github.com/histoflow/engine/internal/daemon"
)

// NewDaemon loads the engine config from ConfigPath and assembles a Daemon
// against it, for subcommands that inspect or mutate engine state directly.
func NewDaemon() (*daemon.Daemon, error) {
	cfg, err := config.Load(ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	d, err := daemon.New(cfg, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating daemon: %w", err)
	}
	return d, nil
}
