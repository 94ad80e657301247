// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
)

// CsvlagConfig is the on-disk csvlag.yaml.
type CsvlagConfig struct {
	// SettingsPath: file holding saved field classifications
	SettingsPath string `yaml:"settings_path" validate:"required"`

	// DefaultLags: lag count used when the command line omits n_lags
	DefaultLags int `yaml:"default_lags" validate:"gte=1,lte=10000"`

	// Encoding: input text encoding, e.g. utf-8, latin1, windows-1252
	Encoding string `yaml:"encoding" validate:"required,encoding"`

	Log   LogConfig   `yaml:"log"`
	UI    UIConfig    `yaml:"ui"`
	Trace TraceConfig `yaml:"trace"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir,omitempty"` // e.g. ~/.csvlag/logs, empty disables file logs
}

type UIConfig struct {
	// Personality: full, standard, minimal or machine. Empty means auto.
	Personality string `yaml:"personality,omitempty" validate:"omitempty,oneof=full standard minimal machine"`

	// AltScreen: draw the classifier on the alternate screen
	AltScreen bool `yaml:"alt_screen"`
}

// TraceConfig selects where run spans are exported.
type TraceConfig struct {
	Exporter string `yaml:"exporter" validate:"oneof=none stdout otlp"`
	File     string `yaml:"file,omitempty"`     // stdout exporter target, empty for stderr
	Endpoint string `yaml:"endpoint,omitempty"` // OTLP gRPC receiver, e.g. localhost:4317
	Insecure bool   `yaml:"insecure,omitempty"`
}

// HomeDir returns ~/.csvlag, or .csvlag in the working directory when the
// home directory is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".csvlag"
	}
	return filepath.Join(home, ".csvlag")
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() CsvlagConfig {
	return CsvlagConfig{
		SettingsPath: filepath.Join(HomeDir(), "fields_setting.json"),
		DefaultLags:  1,
		Encoding:     "utf-8",
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			AltScreen: true,
		},
		Trace: TraceConfig{
			Exporter: "none",
		},
	}
}
