// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/DataBridgeTech/dqcheck/loaders"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrParsingConfig = errors.New("failed to parse environment config")

// Config holds the process settings read from the environment (and a .env file when present).
type Config struct {
	DB              string                    `env:"DQC_DB"`
	LogLevel        string                    `env:"DQC_LOG_LEVEL" envDefault:"warn"`
	LogFormat       string                    `env:"DQC_LOG_FORMAT" envDefault:"text"`
	LoadConcurrency int                       `env:"DQC_LOAD_CONCURRENCY" envDefault:"4"`
	ObjectStore     loaders.ObjectStoreConfig `envPrefix:"DQC_S3_"`
}

func loadConfig() (*Config, error) {
	// the .env file is optional
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	return &cfg, nil
}

// resultsDB picks the store location: the checks file's db key, then DQC_DB, then the default.
func (c *Config) resultsDB(checksCfg *dqcheck.ChecksFileConfig) string {
	if checksCfg != nil && checksCfg.DB != "" {
		return checksCfg.DB
	}
	if c.DB != "" {
		return c.DB
	}
	return dqcheck.DefaultResultsDB
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: must be \"json\" or \"text\"", format)
	}
}
