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

	"github.com/histoflow/engine/internal/apperrors"
	"github.com/histoflow/engine/internal/model"
	"github.com/histoflow/engine/internal/registry"
)

// syntheticSlideWidth and syntheticSlideHeight stand in for the
// dimensions openslide would report for a real whole-slide image; slide
// storage itself is out of scope (see SPEC_FULL.md §4.8).
const (
	syntheticSlideWidth  = 98304
	syntheticSlideHeight = 73728
)

func init() {
	h := registry.HandlerFunc(runWSIInitialize)
	registry.Register(model.TemplateInitWSI, h)
	registry.Register(model.TemplateWSIInitialize, h)
}

// runWSIInitialize validates the tiling payload the Execution Manager
// merged in (spec.md §4.4) and returns a synthetic tiling manifest,
// adapted from the tissue-mask/tile-grid logic of the original
// backend/app/jobs/wsi_initialize.py without touching real slide storage.
func runWSIInitialize(ctx context.Context, jobID string, payload map[string]any, progress registry.ProgressReporter) (map[string]any, error) {
	slidePath, _ := payload["slide_path"].(string)
	if slidePath == "" {
		return nil, &apperrors.HandlerError{
			Kind:    "InvalidPayload",
			Message: "wsi_initialize requires a resolved slide_path",
		}
	}

	tileSize := intFromPayload(payload, "tile_size", 1024)
	overlap := intFromPayload(payload, "overlap", 128)
	if tileSize <= overlap {
		return nil, &apperrors.HandlerError{
			Kind:    "InvalidPayload",
			Message: fmt.Sprintf("tile_size (%d) must exceed overlap (%d)", tileSize, overlap),
		}
	}

	if err := progress.UpdateProgress(ctx, 50, "computing tile grid", 0, 0, "tiling", ""); err != nil {
		return nil, err
	}

	stride := tileSize - overlap
	tilesX := ceilDiv(syntheticSlideWidth, stride)
	tilesY := ceilDiv(syntheticSlideHeight, stride)

	return map[string]any{
		"slide_path": slidePath,
		"width":      syntheticSlideWidth,
		"height":     syntheticSlideHeight,
		"tile_size":  tileSize,
		"overlap":    overlap,
		"num_tiles":  tilesX * tilesY,
	}, nil
}

func intFromPayload(payload map[string]any, key string, fallback int) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
