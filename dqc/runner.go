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

package dqc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/google/uuid"
)

const defaultLoadConcurrency = 4

// Runner evaluates the checks of a checks file against one dataset.
type Runner struct {
	loader          dqcheck.DatasetLoader
	results         dqcheck.ResultLogger
	logger          *slog.Logger
	loadConcurrency int
	validatorOpts   []dqcheck.ValidatorOption
	newRunID        func() string
}

type RunnerOption func(*Runner)

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLoadConcurrency limits how many datasets are loaded at once.
func WithLoadConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.loadConcurrency = n
		}
	}
}

func WithValidatorOptions(opts ...dqcheck.ValidatorOption) RunnerOption {
	return func(r *Runner) {
		r.validatorOpts = append(r.validatorOpts, opts...)
	}
}

func WithRunIDGenerator(fn func() string) RunnerOption {
	return func(r *Runner) {
		if fn != nil {
			r.newRunID = fn
		}
	}
}

func NewRunner(loader dqcheck.DatasetLoader, results dqcheck.ResultLogger, opts ...RunnerOption) *Runner {
	r := &Runner{
		loader:          loader,
		results:         results,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		loadConcurrency: defaultLoadConcurrency,
		newRunID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loads datasetRef and every parent dataset the checks reference, then evaluates the checks
// in order. Each logged record carries the run_id and dataset params. Checks of unknown type
// are skipped. The first check error (a missing column, a storage failure) stops the run and is
// returned together with the partial report.
func (r *Runner) Run(ctx context.Context, datasetRef string, checks []dqcheck.DataQualityCheck) (*RunReport, error) {
	startTime := time.Now()
	report := &RunReport{
		RunID:     r.newRunID(),
		Dataset:   datasetRef,
		StartedAt: startTime,
	}
	defer func() {
		report.Duration = time.Since(startTime)
	}()

	datasets, err := r.loadDatasets(ctx, datasetRef, checks)
	if err != nil {
		return report, err
	}
	ds := datasets[datasetRef]

	results := dqcheck.WithParams(r.results, dqcheck.Params{
		"run_id":  report.RunID,
		"dataset": datasetRef,
	})
	validator := dqcheck.NewValidator(results, r.logger, r.validatorOpts...)

	for i := range checks {
		check := checks[i]
		checkStart := time.Now()

		var (
			pass bool
			err  error
		)
		switch check.Type {
		case dqcheck.CheckTypeUnique:
			pass, err = validator.IsColumnUnique(ctx, ds, check.Column)
		case dqcheck.CheckTypeNotNull:
			pass, err = validator.IsColumnNotNull(ctx, ds, check.Column)
		case dqcheck.CheckTypeAcceptedValues:
			pass, err = validator.IsColumnEnum(ctx, ds, check.Column, check.Values)
		case dqcheck.CheckTypeReferentialIntegrity:
			pass, err = validator.AreTablesReferentialIntegral(ctx, datasets[check.Parent], ds, check.ParentKey, check.ChildKey)
		default:
			r.logger.Warn("unknown check type, skipping", "check_type", string(check.Type))
			report.Skipped = append(report.Skipped, check)
			continue
		}

		if err != nil {
			r.logger.Error("check failed to run",
				"run_id", report.RunID,
				"check_type", string(check.Type),
				"error", err.Error())
			return report, fmt.Errorf("%s check on %s: %w", check.Type, datasetRef, err)
		}

		status := StatusPass
		if !pass {
			status = StatusFail
			if !check.FailsRun() {
				status = StatusWarn
			}
		}
		report.Results = append(report.Results, CheckResult{
			Check:    check,
			Status:   status,
			Duration: time.Since(checkStart),
		})
	}

	r.logger.Info("check run finished",
		"run_id", report.RunID,
		"dataset", datasetRef,
		"passed", report.PassedCount(),
		"total", report.Total(),
		"skipped", len(report.Skipped))

	return report, nil
}

// loadDatasets loads datasetRef and the distinct parents of referential checks on a TaskPool.
func (r *Runner) loadDatasets(ctx context.Context, datasetRef string, checks []dqcheck.DataQualityCheck) (map[string]*dqcheck.Dataset, error) {
	refs := []string{datasetRef}
	seen := map[string]bool{datasetRef: true}
	for _, check := range checks {
		if check.Type != dqcheck.CheckTypeReferentialIntegrity {
			continue
		}
		if check.Parent == "" {
			return nil, fmt.Errorf("%w: %s check without parent dataset", dqcheck.ErrInvalidCheck, check.Type)
		}
		if !seen[check.Parent] {
			seen[check.Parent] = true
			refs = append(refs, check.Parent)
		}
	}

	var mu sync.Mutex
	datasets := make(map[string]*dqcheck.Dataset, len(refs))
	taskPool := dqcheck.NewTaskPool(r.loadConcurrency, r.logger)
	for _, ref := range refs {
		taskPool.Enqueue(ctx, "load:"+ref, func(ctx context.Context) error {
			ds, err := r.loader.Load(ctx, ref)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", ref, err)
			}
			mu.Lock()
			datasets[ref] = ds
			mu.Unlock()
			return nil
		})
	}

	if err := taskPool.Join(); err != nil {
		return nil, err
	}
	return datasets, nil
}
