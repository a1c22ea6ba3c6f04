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

package dqcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// CheckType identifies a data quality rule in logs and checks files.
type CheckType string

const (
	CheckTypeUnique               CheckType = "unique"
	CheckTypeNotNull              CheckType = "not_null"
	CheckTypeAcceptedValues       CheckType = "accepted_values"
	CheckTypeReferentialIntegrity CheckType = "referential_integrity"
)

// DataValidator is the interface that wraps the data quality rules.
//
// Every method returns ColumnNotFoundError before doing anything else when a referenced column
// is missing. Otherwise the result is logged and returned; a failed log write is returned as
// StorageWriteError next to the computed result.
type DataValidator interface {
	// IsColumnUnique passes when no two rows share the same non-null value in column.
	IsColumnUnique(ctx context.Context, ds *Dataset, column string) (bool, error)

	// IsColumnNotNull passes when column has no null values.
	IsColumnNotNull(ctx context.Context, ds *Dataset, column string) (bool, error)

	// IsColumnEnum passes when every non-null value of column is one of accepted. An accepted
	// value NormalizeValue cannot convert fails with ErrUnsupportedValue and nothing is logged.
	IsColumnEnum(ctx context.Context, ds *Dataset, column string, accepted []any) (bool, error)

	// AreTablesReferentialIntegral passes when every non-null childKey value exists in parentKey.
	AreTablesReferentialIntegral(ctx context.Context, parent, child *Dataset, parentKey, childKey string) (bool, error)
}

// NullPolicy controls how nulls take part in the uniqueness and accepted values rules.
// The zero value ignores nulls in both.
type NullPolicy struct {
	// NullsCollide makes two or more nulls count as a duplicate in the uniqueness rule.
	NullsCollide bool
	// EnumRejectsNulls makes any null fail the accepted values rule.
	EnumRejectsNulls bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithNullPolicy overrides the default null handling.
func WithNullPolicy(policy NullPolicy) ValidatorOption {
	return func(v *Validator) {
		v.nullPolicy = policy
	}
}

// Validator evaluates rules against in-memory datasets and records each outcome.
type Validator struct {
	results    ResultLogger
	logger     *slog.Logger
	nullPolicy NullPolicy
}

var _ DataValidator = (*Validator)(nil)

func NewValidator(results ResultLogger, logger *slog.Logger, opts ...ValidatorOption) *Validator {
	if logger == nil {
		// noop logger by default
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v := &Validator{
		results: results,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) IsColumnUnique(ctx context.Context, ds *Dataset, column string) (bool, error) {
	col, err := lookupColumn(ds, column)
	if err != nil {
		return false, err
	}

	startTime := time.Now()
	seen := make(map[any]struct{}, col.Len())
	nulls := 0
	pass := true
	for i := 0; i < col.Len() && pass; i++ {
		val := col.Value(i)
		if val == nil {
			nulls++
			if v.nullPolicy.NullsCollide && nulls > 1 {
				pass = false
			}
			continue
		}
		key := ValueKey(val)
		if _, dup := seen[key]; dup {
			pass = false
			continue
		}
		seen[key] = struct{}{}
	}

	params := Params{"column": column}
	if v.nullPolicy.NullsCollide {
		params["nulls_collide"] = true
	}
	return v.record(ctx, CheckTypeUnique, pass, params, startTime)
}

func (v *Validator) IsColumnNotNull(ctx context.Context, ds *Dataset, column string) (bool, error) {
	col, err := lookupColumn(ds, column)
	if err != nil {
		return false, err
	}

	startTime := time.Now()
	pass := col.NullCount() == 0

	return v.record(ctx, CheckTypeNotNull, pass, Params{"column": column}, startTime)
}

func (v *Validator) IsColumnEnum(ctx context.Context, ds *Dataset, column string, accepted []any) (bool, error) {
	col, err := lookupColumn(ds, column)
	if err != nil {
		return false, err
	}

	normalized := make([]any, len(accepted))
	allowed := make(map[any]struct{}, len(accepted))
	for i, raw := range accepted {
		val, _, err := NormalizeValue(raw)
		if err != nil {
			return false, fmt.Errorf("invalid accepted value at position %d: %w", i, err)
		}
		normalized[i] = val
		if val != nil {
			allowed[ValueKey(val)] = struct{}{}
		}
	}

	startTime := time.Now()
	pass := true
	for i := 0; i < col.Len() && pass; i++ {
		val := col.Value(i)
		if val == nil {
			pass = !v.nullPolicy.EnumRejectsNulls
			continue
		}
		_, pass = allowed[ValueKey(val)]
	}

	params := Params{
		"column":          column,
		"accepted_values": normalized,
	}
	if v.nullPolicy.EnumRejectsNulls {
		params["reject_nulls"] = true
	}
	return v.record(ctx, CheckTypeAcceptedValues, pass, params, startTime)
}

func (v *Validator) AreTablesReferentialIntegral(ctx context.Context, parent, child *Dataset, parentKey, childKey string) (bool, error) {
	parentCol, err := lookupColumn(parent, parentKey)
	if err != nil {
		return false, err
	}
	childCol, err := lookupColumn(child, childKey)
	if err != nil {
		return false, err
	}

	startTime := time.Now()
	keys := make(map[any]struct{}, parentCol.Len())
	for i := 0; i < parentCol.Len(); i++ {
		if val := parentCol.Value(i); val != nil {
			keys[ValueKey(val)] = struct{}{}
		}
	}

	pass := true
	orphans := 0
	for i := 0; i < childCol.Len(); i++ {
		val := childCol.Value(i)
		if val == nil {
			continue
		}
		if _, ok := keys[ValueKey(val)]; !ok {
			pass = false
			orphans++
		}
	}
	if orphans > 0 {
		v.logger.Debug("orphaned child keys found",
			"parent_key", parentKey,
			"child_key", childKey,
			"orphans", orphans)
	}

	params := Params{
		"parent_key": parentKey,
		"child_key":  childKey,
	}
	return v.record(ctx, CheckTypeReferentialIntegrity, pass, params, startTime)
}

func (v *Validator) record(ctx context.Context, checkType CheckType, pass bool, params Params, startTime time.Time) (bool, error) {
	v.logger.Debug("check evaluated",
		"check_type", string(checkType),
		"pass", pass,
		"duration_ms", time.Since(startTime).Milliseconds())

	if v.results == nil {
		return pass, &StorageWriteError{CheckType: string(checkType), Err: errors.New("result logger is not provided")}
	}

	if err := v.results.Log(ctx, string(checkType), pass, params); err != nil {
		var writeErr *StorageWriteError
		if !errors.As(err, &writeErr) {
			err = &StorageWriteError{CheckType: string(checkType), Err: err}
		}
		v.logger.Error("failed to log check result", "check_type", string(checkType), "error", err.Error())
		return pass, err
	}

	return pass, nil
}

func lookupColumn(ds *Dataset, column string) (*Column, error) {
	if ds == nil {
		return nil, &ColumnNotFoundError{Column: column}
	}
	col, ok := ds.Column(column)
	if !ok {
		return nil, &ColumnNotFoundError{Column: column, Dataset: ds.Name()}
	}
	return col, nil
}
