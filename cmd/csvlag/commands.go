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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/csvlag/cmd/csvlag/config"
	"github.com/AleutianAI/csvlag/pkg/logging"
	"github.com/AleutianAI/csvlag/pkg/ux"
	"github.com/AleutianAI/csvlag/services/lagframe/tracing"
)

// cliFlags holds values bound to command line flags.
type cliFlags struct {
	settingsPath   string
	nonInteractive bool
	promptLags     bool
	encoding       string
	metricsFile    string
	traceFile      string
	logLevel       string
	logDir         string
	personality    string
}

// app is the state shared by one command tree. Production code uses
// newApp; tests replace the interactive pieces.
type app struct {
	flags cliFlags

	// configPath, when set, bypasses the global config singleton.
	configPath string

	cfg    config.CsvlagConfig
	logger *logging.Logger

	// classify runs the interactive classifier.
	classify Classifier

	// promptLags asks for n_lags when it was not given.
	promptLags LagPrompter

	// interactive reports whether the classifier may be shown. It is
	// consulted after setup has applied the personality.
	interactive func() bool
}

func newApp() *app {
	a := &app{
		promptLags:  huhLagPrompter,
		interactive: ux.IsInteractive,
	}
	a.classify = a.tuiClassifier
	return a
}

// newRootCmd builds the command tree bound to a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "csvlag [input.csv output.csv [n_lags]]",
		Short: "Classify CSV columns and expand the windowed ones into lag columns",
		Long: `csvlag reads a CSV file, lets you mark each column as windowed, dropped
or kept, remembers that choice for the file, and writes a new CSV where every
windowed column is replaced by n_lags shifted copies named <field>_T-<i>.

Running csvlag with positional arguments is the same as 'csvlag transform'.`,
		Version:           version,
		Args:              checkRootArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runTransform(cmd, args)
		},
	}

	// --- Transform ---
	transformCmd := &cobra.Command{
		Use:   "transform <input.csv> <output.csv> [n_lags]",
		Short: "Classify the columns of a CSV file and write the lagged table",
		Args:  checkTransformArgs,
		RunE:  a.runTransform, // Defined in cmd_transform.go
	}

	// --- Saved settings ---
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or remove saved field classifications",
	}
	settingsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List every saved classification",
		Args:  cobra.NoArgs,
		RunE:  a.runSettingsList, // Defined in cmd_settings.go
	}
	settingsShowCmd := &cobra.Command{
		Use:   "show <input.csv>",
		Short: "Show the classification that would be used for a file",
		Args:  checkInputArg,
		RunE:  a.runSettingsShow,
	}
	settingsForgetCmd := &cobra.Command{
		Use:   "forget <input.csv>",
		Short: "Remove the classification saved for a file",
		Args:  checkInputArg,
		RunE:  a.runSettingsForget,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.settingsPath, "settings", "", "saved classifications file (default from config)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logDir, "log-file-dir", "", "directory for JSON log files")
	pf.StringVar(&a.flags.personality, "personality", "", "output style: full, standard, minimal, machine")

	for _, cmd := range []*cobra.Command{rootCmd, transformCmd} {
		f := cmd.Flags()
		f.BoolVar(&a.flags.nonInteractive, "non-interactive", false, "use the saved or default classification without showing the classifier")
		f.BoolVar(&a.flags.promptLags, "prompt-lags", false, "ask for n_lags when it is not given")
		f.StringVar(&a.flags.encoding, "encoding", "", "input encoding: utf-8, latin1, windows-1252")
		f.StringVar(&a.flags.metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
		f.StringVar(&a.flags.traceFile, "trace-file", "", "write run spans as JSON to this file")
	}

	settingsCmd.AddCommand(settingsListCmd, settingsShowCmd, settingsForgetCmd)
	rootCmd.AddCommand(transformCmd, settingsCmd)
	return rootCmd
}

// setup loads the config and initializes output and logging. Flags
// override config values.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return NewUsageError(cmd.Name(), err)
	}
	if a.flags.settingsPath != "" {
		cfg.SettingsPath = a.flags.settingsPath
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.logDir != "" {
		cfg.Log.Dir = a.flags.logDir
	}
	if a.flags.personality != "" {
		cfg.UI.Personality = a.flags.personality
	}
	if a.flags.encoding != "" {
		cfg.Encoding = a.flags.encoding
	}
	if a.flags.traceFile != "" {
		cfg.Trace.Exporter = tracing.ExporterStdout
		cfg.Trace.File = a.flags.traceFile
	}
	if err := config.Validate(cfg); err != nil {
		return NewUsageError(cmd.Name(), fmt.Errorf("invalid option: %w", err))
	}
	a.cfg = cfg

	ux.InitPersonality(cfg.UI.Personality)

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return NewUsageError(cmd.Name(), err)
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "csvlag",
		Console: cmd.ErrOrStderr(),
	})
	a.logger.Debug("config loaded", "settings_path", cfg.SettingsPath, "encoding", cfg.Encoding)
	return nil
}

// execute runs the command tree with args and returns the process exit
// code. Errors are reported on errOut.
func execute(ctx context.Context, a *app, args []string, out, errOut io.Writer) int {
	restore := ux.SetOutput(out, errOut)
	defer restore()

	a.logger = nil
	rootCmd := newRootCmd(a)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	err := rootCmd.ExecuteContext(ctx)
	if a.logger != nil {
		if err != nil {
			unmute := a.logger.MuteConsole()
			a.logger.Error("command failed", "error", err)
			unmute()
		}
		if closeErr := a.logger.Close(); closeErr != nil {
			ux.Warning(fmt.Sprintf("close log file: %v", closeErr))
		}
	}
	if err != nil {
		ux.Error(err.Error())
		if IsUsageError(err) {
			fmt.Fprintln(errOut, "Run 'csvlag --help' for usage.")
		}
	}
	return ExitCodeOf(err)
}

func (a *app) loadConfig(notice io.Writer) (config.CsvlagConfig, error) {
	if a.configPath != "" {
		return config.LoadFrom(a.configPath, notice)
	}
	if err := config.Load(notice); err != nil {
		return config.CsvlagConfig{}, err
	}
	return config.Global, nil
}
