// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tracing sets up OpenTelemetry spans for a single csvlag run.
package tracing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Exporter names
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// TracerName is the instrumentation scope of csvlag spans.
const TracerName = "github.com/AleutianAI/csvlag"

// ErrUnknownExporter is returned for an exporter name Init does not know.
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config selects where spans go.
type Config struct {
	// Exporter is none, stdout or otlp. Empty means none.
	Exporter string

	// File receives stdout exporter output. Empty writes to Console.
	File string

	// Console receives stdout exporter output when File is empty, in one
	// write at shutdown so spans never interleave with a running TUI.
	// Nil means os.Stderr.
	Console io.Writer

	// Endpoint is the OTLP gRPC receiver, e.g. localhost:4317.
	Endpoint string

	// Insecure disables TLS for the OTLP connection.
	Insecure bool

	// ServiceVersion is recorded on the resource.
	ServiceVersion string
}

// Init builds a tracer for one run.
//
// # Description
//
// With the none exporter the returned tracer is a no-op and shutdown does
// nothing. Otherwise spans are batched and flushed by shutdown, which must
// be called before the process exits. Console output is held in memory
// until shutdown.
//
// # Inputs
//
//   - ctx: Used for the exporter connection.
//   - cfg: Exporter selection.
//   - runID: Recorded as csvlag.run_id on every span's resource.
//
// # Outputs
//
//   - trace.Tracer: Tracer for the run's spans.
//   - func(context.Context) error: Flushes and closes the exporter.
//   - error: ErrUnknownExporter, or an exporter setup failure.
func Init(ctx context.Context, cfg Config, runID string) (trace.Tracer, func(context.Context) error, error) {
	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		return noop.NewTracerProvider().Tracer(TracerName), func(context.Context) error { return nil }, nil
	}

	var (
		exporter sdktrace.SpanExporter
		closer   io.Closer
		flush    func() error
		err      error
	)
	switch cfg.Exporter {
	case ExporterStdout:
		var w io.Writer
		if cfg.File != "" {
			f, ferr := openTraceFile(cfg.File)
			if ferr != nil {
				return nil, nil, ferr
			}
			w, closer = f, f
		} else {
			console := cfg.Console
			if console == nil {
				console = os.Stderr
			}
			var held bytes.Buffer
			w = &held
			flush = func() error {
				_, err := held.WriteTo(console)
				return err
			}
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(w))

	case ExporterOTLP:
		opts := []otlptracegrpc.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.Exporter)
	}
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "csvlag"),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("csvlag.run_id", runID),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	shutdown := func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if flush != nil {
			err = errors.Join(err, flush())
		}
		if closer != nil {
			err = errors.Join(err, closer.Close())
		}
		return err
	}
	return tp.Tracer(TracerName), shutdown, nil
}

func openTraceFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
