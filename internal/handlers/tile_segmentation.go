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
	"fmt"

	"github.com/histoflow/engine/internal/registry"
)

const tileSegmentationTemplate = "tile_segmentation"

// simulatedTileCount stands in for the tile count a real segmentation run
// would derive from wsi_initialize's manifest.
const simulatedTileCount = 8

func init() {
	registry.Register(tileSegmentationTemplate, registry.HandlerFunc(runTileSegmentation))
}

// runTileSegmentation reports staged current/total progress across
// simulated tiles, exercising the current/total percent derivation of
// spec.md §4.3, adapted from the batch-inference loop of
// backend/app/jobs/tile_segmentation.py without the torch/cv2 dependency.
func runTileSegmentation(ctx context.Context, jobID string, payload map[string]any, progress registry.ProgressReporter) (map[string]any, error) {
	total := simulatedTileCount
	if n := intFromPayload(payload, "num_tiles", 0); n > 0 {
		total = n
	}

	for processed := 1; processed <= total; processed++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		stage := fmt.Sprintf("segmenting tile %d/%d", processed, total)
		if err := progress.UpdateProgress(ctx, 0, stage, processed, total, "segmenting", ""); err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"num_tiles":        total,
		"mask_filename":    fmt.Sprintf("%s_mask.png", jobID),
		"overlay_filename": fmt.Sprintf("%s_overlay.png", jobID),
	}, nil
}
