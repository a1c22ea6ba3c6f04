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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/DataBridgeTech/dqcheck/dqc"
	"github.com/DataBridgeTech/dqcheck/profilers"
	"github.com/DataBridgeTech/dqcheck/store"
	"github.com/urfave/cli/v3"
)

var (
	errChecksFailed = errors.New("one or more checks failed")
	errNoCommand    = errors.New("no command given")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := newApp(stdout, stderr).Run(ctx, args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errChecksFailed), errors.Is(err, errNoCommand):
		return 1
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "dqc",
		Usage:     "Data Quality Checker - validate datasets against quality rules",
		Version:   dqc.Version,
		Writer:    stdout,
		ErrWriter: stderr,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_ = cli.ShowAppHelp(cmd)
			return errNoCommand
		},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Run data quality checks on a dataset",
				ArgsUsage: "<file.csv|file.parquet|s3://bucket/key|datasource@[schema.table]>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "path to the YAML checks file",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return checkAction(ctx, cmd, stdout, stderr)
				},
			},
			{
				Name:      "logs",
				Usage:     "Print all validation logs from a database",
				ArgsUsage: "<validation_logs.db>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return logsAction(ctx, cmd, stdout, stderr)
				},
			},
			{
				Name:      "profile",
				Usage:     "Print column metrics of a dataset as JSON",
				ArgsUsage: "<dataset>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "checks file declaring the datasources referenced by <dataset>",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "maximum number of concurrent column tasks",
						Value: 4,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return profileAction(ctx, cmd, stdout, stderr)
				},
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, err := fmt.Fprintf(stdout, "dqc %s\n", dqc.GetVersion())
					return err
				},
			},
		},
	}
}

func setup(stderr io.Writer) (*Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s expects exactly one argument: %s", cmd.Name, name)
	}
	return cmd.Args().First(), nil
}

func checkAction(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	datasetRef, err := requireArg(cmd, "dataset")
	if err != nil {
		return err
	}
	cfg, logger, err := setup(stderr)
	if err != nil {
		return err
	}

	checksCfg, err := dqcheck.LoadChecksFileConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	results, err := store.Open(ctx, cfg.resultsDB(checksCfg), store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer results.Close()

	loader := dqc.NewDatasetLoader(checksCfg.DataSources, cfg.ObjectStore, logger)
	defer loader.Close()

	runner := dqc.NewRunner(loader, results,
		dqc.WithLogger(logger),
		dqc.WithLoadConcurrency(cfg.LoadConcurrency))

	report, err := runner.Run(ctx, datasetRef, checksCfg.Checks)
	if err != nil {
		return err
	}

	for _, skipped := range report.Skipped {
		fmt.Fprintf(stdout, "  Unknown check type: %s, skipping\n", skipped.Type)
	}
	if err := report.Print(stdout); err != nil {
		return err
	}

	if !report.Passed() {
		return errChecksFailed
	}
	return nil
}

func logsAction(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	dbPath, err := requireArg(cmd, "database")
	if err != nil {
		return err
	}
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("Database file not found: %s", dbPath)
		}
		return err
	}

	_, logger, err := setup(stderr)
	if err != nil {
		return err
	}

	results, err := store.Open(ctx, dbPath, store.WithLogger(logger))
	if err != nil {
		return err
	}
	defer results.Close()

	return results.PrintAll(ctx, stdout)
}

func profileAction(ctx context.Context, cmd *cli.Command, stdout, stderr io.Writer) error {
	datasetRef, err := requireArg(cmd, "dataset")
	if err != nil {
		return err
	}
	cfg, logger, err := setup(stderr)
	if err != nil {
		return err
	}

	var dataSources []dqcheck.DataSource
	if path := cmd.String("config"); path != "" {
		checksCfg, err := dqcheck.LoadChecksFileConfig(path)
		if err != nil {
			return err
		}
		dataSources = checksCfg.DataSources
	}

	loader := dqc.NewDatasetLoader(dataSources, cfg.ObjectStore, logger)
	defer loader.Close()

	ds, err := loader.Load(ctx, datasetRef)
	if err != nil {
		return err
	}

	metrics, err := profilers.NewDatasetProfiler(logger).ProfileDataset(ctx, ds, int(cmd.Int("concurrency")))
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metrics)
}
