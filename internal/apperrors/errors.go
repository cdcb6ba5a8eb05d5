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

// Package apperrors defines the error kinds used across the execution and
// scheduling subsystem, and small helpers for wrapping and inspecting them.
package apperrors

import (
	"errors"
	"fmt"
)

// NotRegisteredError is returned when a job references a template with no
// registered handler. Jobs failed with this error are never retried.
type NotRegisteredError struct {
	Template string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("template not registered: %s", e.Template)
}

// InvalidPayloadError represents a job payload missing required keys for its
// template (for example a slide-initialization job without a slide_id).
type InvalidPayloadError struct {
	Template string
	Reason   string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload for %s: %s", e.Template, e.Reason)
}

// MissingExternalResourceError represents a reference to external metadata
// (e.g. a Slide) that could not be found.
type MissingExternalResourceError struct {
	Resource string
	ID       string
}

func (e *MissingExternalResourceError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// HandlerError wraps an error raised by a job handler. The job transitions
// to FAILED and its OutputPayload is set to {"error": <Error() text>}.
type HandlerError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *HandlerError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// StoreTransientError represents a momentary store failure. Callers must log
// and back off; a job must never be marked FAILED on this error alone.
type StoreTransientError struct {
	Op    string
	Cause error
}

func (e *StoreTransientError) Error() string {
	return fmt.Sprintf("store: transient failure on %s: %v", e.Op, e.Cause)
}

func (e *StoreTransientError) Unwrap() error {
	return e.Cause
}

// StoreFatalError represents an unrecoverable store failure. The owning
// component should exit and let its supervisor restart it.
type StoreFatalError struct {
	Op    string
	Cause error
}

func (e *StoreFatalError) Error() string {
	return fmt.Sprintf("store: fatal failure on %s: %v", e.Op, e.Cause)
}

func (e *StoreFatalError) Unwrap() error {
	return e.Cause
}

// Wrap adds context to err. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to err. Returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree matching target's type.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
