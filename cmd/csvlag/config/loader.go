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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/csvlag/services/lagframe/table"
)

// Environment overrides
const (
	EnvConfig   = "CSVLAG_CONFIG"
	EnvSettings = "CSVLAG_SETTINGS"
	EnvLogLevel = "CSVLAG_LOG_LEVEL"
)

var (
	// Global is a singleton instance
	Global CsvlagConfig
	once   sync.Once

	validate = newValidator()
)

// newValidator registers the "encoding" tag, which accepts every name the
// CSV reader can decode.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("encoding", func(fl validator.FieldLevel) bool {
		return table.SupportedEncoding(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Load ensures the config is loaded into the Global variable. Notices
// such as first-run creation are written to notice.
func Load(notice io.Writer) error {
	var err error
	once.Do(func() {
		Global, err = LoadFrom(Path(), notice)
	})
	return err
}

// Path returns the config file location: $CSVLAG_CONFIG or
// ~/.csvlag/csvlag.yaml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(HomeDir(), "csvlag.yaml")
}

// LoadFrom reads, overrides from the environment, and validates the config
// at path, creating it with defaults when it does not exist.
func LoadFrom(path string, notice io.Writer) (CsvlagConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if notice != nil {
			fmt.Fprintf(notice, "First run detected, creating the config at %s\n", path)
		}
		if err := createDefault(path); err != nil {
			return CsvlagConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return CsvlagConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	// missing keys keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CsvlagConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return CsvlagConfig{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func Validate(cfg CsvlagConfig) error {
	return validate.Struct(cfg)
}

func applyEnv(cfg *CsvlagConfig) {
	if v := os.Getenv(EnvSettings); v != "" {
		cfg.SettingsPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}
