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

import "context"

// DataProfiler is the interface that wraps the basic data profiling method.
type DataProfiler interface {
	// ProfileDataset computes per-column metrics, running up to maxConcurrent columns at once.
	ProfileDataset(ctx context.Context, ds *Dataset, maxConcurrent int) (*TableMetrics, error)
}

// TableMetrics represents the metrics of a dataset.
type TableMetrics struct {
	ProfiledAt          int64                     `json:"profiled_at"`
	DatasetName         string                    `json:"dataset_name"`
	TotalRows           uint64                    `json:"total_rows"`
	ColumnsMetrics      map[string]*ColumnMetrics `json:"columns_metrics"`
	ProfilingDurationMs int64                     `json:"profiling_duration_ms"`
}

// ColumnMetrics represents the metrics of a column.
type ColumnMetrics struct {
	ColumnName          string   `json:"col_name"`
	ColumnPosition      uint     `json:"col_position"`
	DataType            string   `json:"data_type"`
	NullCount           uint64   `json:"null_count"`
	DistinctCount       uint64   `json:"distinct_count"`
	BlankCount          *int64   `json:"blank_count,omitempty"`         // string only
	MinValue            *float64 `json:"min_value,omitempty"`           // numeric only
	MaxValue            *float64 `json:"max_value,omitempty"`           // numeric only
	AvgValue            *float64 `json:"avg_value,omitempty"`           // numeric only
	MostFrequentValue   *string  `json:"most_frequent_value,omitempty"` // nil when the column is all nulls
	ProfilingDurationMs int64    `json:"profiling_duration_ms"`
}
