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

// Command engined runs the long-lived execution engine: the scheduler loop,
// one worker per registered user, and the metrics/tracing surfaces.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/histoflow/engine/internal/config"
	"github.com/histoflow/engine/internal/daemon"
	"github.com/histoflow/engine/internal/log"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configPath     = flag.String("config", "", "Path to engine config file (YAML)")
		maxActiveUsers = flag.Int("max-active-users", 0, "Override max_active_users")
		showVersion    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("engined %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	logger := log.New(log.FromEnv())
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if *maxActiveUsers > 0 {
		cfg.MaxActiveUsers = *maxActiveUsers
	}

	d, err := daemon.New(cfg, nil, logger)
	if err != nil {
		logger.Error("failed to create daemon", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := d.Start(ctx); err != nil {
		logger.Error("failed to start daemon", slog.Any("error", err))
		os.Exit(1)
	}

	sig := <-sigCh
	logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
	cancel()
	if err := d.Shutdown(context.Background()); err != nil {
		logger.Error("error during shutdown", slog.Any("error", err))
		os.Exit(1)
	}
}
