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
	"maps"
	"time"
)

// Params carries the context of a single check invocation (column names, accepted values, keys).
// Values should be JSON-serializable scalars or slices of scalars.
type Params map[string]any

// ValidationRecord is one immutable entry of the validation log.
type ValidationRecord struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	CheckType        string    `json:"check_type"`
	Result           bool      `json:"result"`
	AdditionalParams Params    `json:"additional_params,omitempty"`
}

// ResultLogger is the interface that wraps the Log method.
//
// Log appends one record for a computed check result. The id and timestamp are assigned by
// the implementation. Failures are reported as *StorageWriteError.
type ResultLogger interface {
	Log(ctx context.Context, checkType string, result bool, params Params) error
}

// ResultReader returns every logged record in insertion order.
type ResultReader interface {
	ReadAll(ctx context.Context) ([]ValidationRecord, error)
}

// WithParams decorates a ResultLogger so that every logged record also carries extra.
// Keys set by the check itself take precedence over extra.
func WithParams(next ResultLogger, extra Params) ResultLogger {
	if len(extra) == 0 {
		return next
	}
	return &paramsDecorator{next: next, extra: maps.Clone(extra)}
}

type paramsDecorator struct {
	next  ResultLogger
	extra Params
}

func (p *paramsDecorator) Log(ctx context.Context, checkType string, result bool, params Params) error {
	merged := make(Params, len(p.extra)+len(params))
	maps.Copy(merged, p.extra)
	maps.Copy(merged, params)
	return p.next.Log(ctx, checkType, result, merged)
}
