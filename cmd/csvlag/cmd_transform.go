// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/csvlag/pkg/logging"
	"github.com/AleutianAI/csvlag/pkg/ux"
	"github.com/AleutianAI/csvlag/services/lagframe/classification"
	"github.com/AleutianAI/csvlag/services/lagframe/metrics"
	"github.com/AleutianAI/csvlag/services/lagframe/settings"
	"github.com/AleutianAI/csvlag/services/lagframe/table"
	"github.com/AleutianAI/csvlag/services/lagframe/tracing"
	"github.com/AleutianAI/csvlag/services/lagframe/transform"
	"github.com/AleutianAI/csvlag/services/lagframe/tui"
)

// Classifier lets the user edit c and returns the finished result.
type Classifier func(ctx context.Context, c classification.FieldClassification) (classification.Result, error)

// LagPrompter asks for the lag count, offering def.
type LagPrompter func(ctx context.Context, def int) (int, error)

// errPromptAborted is returned by a LagPrompter when the user cancels.
var errPromptAborted = errors.New("lag prompt aborted")

// Where the confirmed classification came from, for logs and metrics.
const (
	sourceInteractive = "interactive"
	sourceCached      = "cached"
	sourceDefault     = "default"
)

// =============================================================================
// Arguments
// =============================================================================

// transformArgs are the positional arguments of a transform.
type transformArgs struct {
	Input  string `validate:"required,csvpath"`
	Output string `validate:"required,csvpath"`
	Lags   int    `validate:"gte=1"`
}

var argValidator = newArgValidator()

func newArgValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("csvpath", func(fl validator.FieldLevel) bool {
		return hasCSVExtension(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// hasCSVExtension reports whether path ends in .csv, ignoring case.
func hasCSVExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// parseLags parses a positive lag count.
func parseLags(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("n_lags must be a positive integer, got %q", s)
	}
	return n, nil
}

// validateArgs checks a before any file is touched and turns validator
// errors into readable messages.
func validateArgs(a transformArgs) error {
	err := argValidator.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s path is required", name))
		case "csvpath":
			msgs = append(msgs, fmt.Sprintf("%s file %q must have a .csv extension", name, fe.Value()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("n_lags must be a positive integer, got %v", fe.Value()))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// parseTransformArgs builds transformArgs from the positional arguments,
// using defLags when n_lags is absent. The bool result reports whether
// n_lags was given explicitly.
func parseTransformArgs(args []string, defLags int) (transformArgs, bool, error) {
	if len(args) < 2 {
		return transformArgs{}, false, errors.New("expected <input.csv> <output.csv> [n_lags]")
	}
	ta := transformArgs{
		Input:  args[0],
		Output: args[1],
		Lags:   defLags,
	}
	explicit := len(args) > 2
	if explicit {
		n, err := parseLags(args[2])
		if err != nil {
			return transformArgs{}, false, err
		}
		ta.Lags = n
	}
	if err := validateArgs(ta); err != nil {
		return transformArgs{}, false, err
	}
	return ta, explicit, nil
}

// checkTransformArgs is the cobra Args validator for transform. It runs
// before the config is loaded, so a bad invocation touches no file. The
// configured default lag count is checked by config validation.
func checkTransformArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.RangeArgs(2, 3)(cmd, args); err != nil {
		return NewUsageError(cmd.Name(), err)
	}
	if _, _, err := parseTransformArgs(args, 1); err != nil {
		return NewUsageError(cmd.Name(), err)
	}
	return nil
}

// checkRootArgs accepts no arguments (help) or transform arguments.
func checkRootArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return checkTransformArgs(cmd, args)
}

// resolveArgs applies the configured default lag count.
func (a *app) resolveArgs(args []string) (transformArgs, bool, error) {
	return parseTransformArgs(args, a.cfg.DefaultLags)
}

// =============================================================================
// Command
// =============================================================================

// runTransform handles `csvlag transform` and the bare root invocation.
func (a *app) runTransform(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ta, explicitLags, err := a.resolveArgs(args)
	if err != nil {
		return NewUsageError("transform", err)
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	recorder := metrics.NewRecorder(runID, time.Now())
	interactive := !a.flags.nonInteractive && a.interactive()

	tracer, shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Exporter:       a.cfg.Trace.Exporter,
		File:           a.cfg.Trace.File,
		Endpoint:       a.cfg.Trace.Endpoint,
		Insecure:       a.cfg.Trace.Insecure,
		ServiceVersion: version,
		Console:        cmd.ErrOrStderr(),
	}, runID)
	if err != nil {
		return NewUsageError("transform", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("traces not flushed", "error", err)
		}
	}()

	defer func() {
		if a.flags.metricsFile == "" {
			return
		}
		recorder.Finish(time.Now())
		if err := recorder.WriteTextfile(a.flags.metricsFile); err != nil {
			logger.Warn("metrics not written", "error", err)
			return
		}
		logger.Debug("metrics written", "path", a.flags.metricsFile)
	}()

	if !explicitLags && a.flags.promptLags && interactive {
		n, err := a.promptLags(ctx, ta.Lags)
		switch {
		case errors.Is(err, errPromptAborted):
			recorder.ObserveOutcome(classification.OutcomeAborted.String(), sourceInteractive)
			logger.Info("lag prompt aborted")
			ux.Info("aborted, nothing written")
			return nil
		case err != nil:
			return WrapCommandError("transform", ExitFailure, fmt.Errorf("lag prompt: %w", err))
		}
		ta.Lags = n
	}

	run := &transformRun{
		args:        ta,
		encoding:    a.cfg.Encoding,
		store:       settings.NewStore(a.cfg.SettingsPath, settings.WithLogger(logger.Slog())),
		classify:    a.classify,
		interactive: interactive,
		logger:      logger,
		recorder:    recorder,
		tracer:      tracer,
	}
	report, err := run.run(ctx)
	if err != nil {
		return WrapCommandError("transform", ExitFailure, err)
	}

	if !report.Result.IsConfirmed() {
		ux.Info("aborted, nothing written")
		return nil
	}
	if !interactive {
		ux.Muted(fmt.Sprintf("classifier skipped, used the %s classification", report.Source))
	}
	ux.Success(fmt.Sprintf("wrote %s", ta.Output))
	ux.FieldSummary(report.Stats.Kept, report.Stats.Windowed, report.Stats.Dropped, report.Stats.OutputColumns)
	return nil
}

// tuiClassifier runs the terminal classifier with console logging muted,
// so log lines cannot tear the screen. The file sink keeps recording.
func (a *app) tuiClassifier(ctx context.Context, c classification.FieldClassification) (classification.Result, error) {
	unmute := a.logger.MuteConsole()
	defer unmute()
	return tui.Run(ctx, c, tui.RunOptions{
		AltScreen: a.cfg.UI.AltScreen,
		Logger:    a.logger.Slog(),
	})
}

// huhLagPrompter asks for n_lags with a single input form.
func huhLagPrompter(ctx context.Context, def int) (int, error) {
	value := strconv.Itoa(def)
	input := huh.NewInput().
		Title("Number of lags").
		Description("Shifted copies written for every windowed field").
		Value(&value).
		Validate(func(s string) error {
			_, err := parseLags(s)
			return err
		})

	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, errPromptAborted
		}
		return 0, err
	}
	return parseLags(value)
}

// =============================================================================
// Run
// =============================================================================

// transformRun is one pass of read, classify, save, transform and write.
type transformRun struct {
	args        transformArgs
	encoding    string
	store       *settings.Store
	classify    Classifier
	interactive bool
	logger      *logging.Logger
	recorder    *metrics.Recorder
	tracer      trace.Tracer
}

// transformReport summarizes a finished run.
type transformReport struct {
	Result classification.Result
	Source string
	Match  settings.Match
	Stats  transform.Stats
}

// run executes the flow.
//
// # Description
//
// The input is read first so the classification can be built on its
// header. The saved classification for the file is used when there is
// one, otherwise every field starts kept. In interactive mode the user
// edits it; otherwise it is confirmed as is.
//
// A confirmed classification is saved before the transform, so the
// choice survives a failed write. An aborted session saves and writes
// nothing.
//
// # Outputs
//
//   - transformReport: Result is Aborted when the user quit.
//   - error: Read, save, transform or write failure.
func (r *transformRun) run(ctx context.Context) (report transformReport, err error) {
	ctx, span := r.tracer.Start(ctx, "csvlag.run", trace.WithAttributes(
		attribute.String("csvlag.input", r.args.Input),
		attribute.String("csvlag.output", r.args.Output),
		attribute.Int("csvlag.lags", r.args.Lags),
	))
	defer func() {
		span.SetAttributes(
			attribute.String("csvlag.outcome", report.Result.Outcome.String()),
			attribute.String("csvlag.source", report.Source),
		)
		tracing.End(span, err)
	}()

	_, readSpan := r.tracer.Start(ctx, "csvlag.read_input")
	src, err := table.ReadFile(r.args.Input, table.ReadOptions{Encoding: r.encoding})
	tracing.End(readSpan, err)
	if err != nil {
		return report, fmt.Errorf("read input: %w", err)
	}
	r.logger.Info("input read", "path", r.args.Input, "rows", src.NumRows(), "columns", src.NumColumns())

	initial, source, match, err := r.initial(src.Header())
	if err != nil {
		return report, err
	}
	report.Source, report.Match = source, match

	if r.interactive {
		report.Source = sourceInteractive
		classifyCtx, classifySpan := r.tracer.Start(ctx, "csvlag.classify")
		report.Result, err = r.classify(classifyCtx, initial)
		tracing.End(classifySpan, err)
		if err != nil {
			r.recorder.ObserveOutcome(classification.OutcomeAborted.String(), report.Source)
			return report, fmt.Errorf("classifier: %w", err)
		}
	} else {
		report.Result = classification.Confirmed(initial)
	}
	r.recorder.ObserveOutcome(report.Result.Outcome.String(), report.Source)

	if !report.Result.IsConfirmed() {
		r.logger.Info("classification aborted", "source", report.Source)
		return report, nil
	}
	final := report.Result.Classification
	r.logger.Info("classification confirmed", "source", report.Source, "classification", final.String())

	_, saveSpan := r.tracer.Start(ctx, "csvlag.save_settings")
	err = r.store.Save(r.args.Input, final)
	tracing.End(saveSpan, err)
	if err != nil {
		return report, fmt.Errorf("save settings: %w", err)
	}

	_, transformSpan := r.tracer.Start(ctx, "csvlag.transform")
	out, stats, err := transform.Transform(src, final, r.args.Lags)
	transformSpan.SetAttributes(attribute.Int("csvlag.output_columns", stats.OutputColumns))
	tracing.End(transformSpan, err)
	if err != nil {
		return report, fmt.Errorf("transform: %w", err)
	}
	report.Stats = stats
	r.recorder.ObserveTransform(stats)

	_, writeSpan := r.tracer.Start(ctx, "csvlag.write_output")
	err = table.WriteFile(r.args.Output, out)
	tracing.End(writeSpan, err)
	if err != nil {
		return report, fmt.Errorf("write output: %w", err)
	}
	r.logger.Info("output written",
		"path", r.args.Output,
		"lags", r.args.Lags,
		"rows", stats.Rows,
		"columns", stats.OutputColumns,
	)
	return report, nil
}

// initial returns the classification the session starts from.
func (r *transformRun) initial(header []string) (classification.FieldClassification, string, settings.Match, error) {
	cached, match, err := r.store.Load(r.args.Input)
	if err != nil {
		return classification.FieldClassification{}, "", settings.MatchNone, fmt.Errorf("load settings: %w", err)
	}
	if match != settings.MatchNone {
		c, changed, err := cached.Reconcile(header)
		if err != nil {
			return classification.FieldClassification{}, "", match, fmt.Errorf("saved settings: %w", err)
		}
		if changed {
			r.logger.Warn("saved settings were for a different header, new columns start kept",
				"match", match.String())
		}
		r.logger.Debug("using saved settings", "match", match.String())
		return c, sourceCached, match, nil
	}

	c, err := classification.Default(header)
	if err != nil {
		return classification.FieldClassification{}, "", match, fmt.Errorf("default classification: %w", err)
	}
	return c, sourceDefault, match, nil
}
