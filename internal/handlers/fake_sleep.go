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

package handlers

import (
	"context"
	"time"

	"github.com/histoflow/engine/internal/registry"
)

const fakeSleepTemplate = "fake_sleep"

func init() {
	registry.Register(fakeSleepTemplate, registry.HandlerFunc(runFakeSleep))
}

// runFakeSleep is the reference handler behind scenarios S1/S2/S4/S5: it
// sleeps briefly, reports a midpoint progress update, and returns a fixed
// sentinel output, adapted from the original backend/app/workers/fake_job.py.
func runFakeSleep(ctx context.Context, jobID string, payload map[string]any, progress registry.ProgressReporter) (map[string]any, error) {
	duration := 20 * time.Millisecond
	if ms, ok := payload["duration_ms"].(float64); ok && ms > 0 {
		duration = time.Duration(ms) * time.Millisecond
	}

	if err := progress.UpdateProgress(ctx, 50, "sleeping", 0, 0, "sleeping", ""); err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	return map[string]any{
		"result":        "fake job success!",
		"slept_ms":      duration.Milliseconds(),
		"input_payload": payload,
	}, nil
}
