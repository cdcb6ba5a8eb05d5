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

// Package tracing wires an OpenTelemetry tracer provider for the engine,
// exporting to stdout per spec.md §3's domain stack. One span covers a job
// instance from the moment a worker picks it up to its terminal state (the
// time it waits in the queues is not covered); one covers a scheduler
// admission decision.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/histoflow/engine"

// Provider owns the engine's tracer provider lifecycle.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New creates a Provider exporting spans as JSON to out. A nil out
// discards the exporter's writes (io.Discard), useful for tests that only
// care about span shape, not output.
func New(serviceName string, out io.Writer) (*Provider, error) {
	if out == nil {
		out = io.Discard
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("tracing: creating stdout exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: building resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp}, nil
}

// Shutdown flushes and releases the underlying tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartJobSpan starts a span covering one job instance's execution,
// tagged with job/workflow/template identifiers.
func StartJobSpan(ctx context.Context, jobID, workflowID, templateID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("workflow.id", workflowID),
			attribute.String("job.template", templateID),
		),
	)
}

// EndJobSpan ends span, recording err (if non-nil) as a failure status.
func EndJobSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartAdmissionSpan starts a span covering one scheduler admission
// decision for jobID.
func StartAdmissionSpan(ctx context.Context, jobID, userID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "scheduler.admit",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("user.id", userID),
		),
	)
}

// EndAdmissionSpan ends span, recording whether the job was admitted.
func EndAdmissionSpan(span trace.Span, admitted bool) {
	span.SetAttributes(attribute.Bool("scheduler.admitted", admitted))
	span.SetStatus(codes.Ok, "")
	span.End()
}
