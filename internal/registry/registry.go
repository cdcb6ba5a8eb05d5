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

// Package registry is the job template registry: a write-once-at-startup
// map from template name to Handler, in the shape of the teacher's LLM
// provider registry (pkg/llm.RegisterFactory / pkg/llm/providers).
// Handler packages call Register from their own init() function; the
// registry is read-only once the daemon has booted.
package registry

import (
	"context"
	"sync"
)

// ProgressReporter lets a handler report progress without reaching for
// package-level globals, per spec.md's Design Notes.
type ProgressReporter interface {
	// UpdateProgress records local and global progress for the job.
	// current/total are optional; when both are zero, Percent is derived
	// from progress/100 instead.
	UpdateProgress(ctx context.Context, progress int, message string, current, total int, stage, eta string) error
}

// Handler is the unit of reusable work registered under a template name.
type Handler interface {
	// Run executes the job and returns its output payload, or an error
	// that becomes the job's HandlerError.
	Run(ctx context.Context, jobID string, payload map[string]any, progress ProgressReporter) (map[string]any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, jobID string, payload map[string]any, progress ProgressReporter) (map[string]any, error)

func (f HandlerFunc) Run(ctx context.Context, jobID string, payload map[string]any, progress ProgressReporter) (map[string]any, error) {
	return f(ctx, jobID, payload, progress)
}

var (
	mu       sync.RWMutex
	handlers = make(map[string]Handler)
)

// Register adds a handler under name. Intended to be called from init();
// panics on duplicate registration since that indicates two handler
// packages were imported for the same template name.
func Register(name string, h Handler) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := handlers[name]; exists {
		panic("registry: template already registered: " + name)
	}
	handlers[name] = h
}

// Lookup returns the handler registered for name, if any.
func Lookup(name string) (Handler, bool) {
	mu.RLock()
	defer mu.RUnlock()
	h, ok := handlers[name]
	return h, ok
}

// Names returns every registered template name, for diagnostics.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(handlers))
	for n := range handlers {
		names = append(names, n)
	}
	return names
}

// reset clears the registry. Test-only: unexported so production code
// cannot accidentally wipe a booted registry.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	handlers = make(map[string]Handler)
}
