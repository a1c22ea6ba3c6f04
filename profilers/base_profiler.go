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

package profilers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/DataBridgeTech/dqcheck"
)

// DatasetProfiler computes column metrics of in-memory datasets.
type DatasetProfiler struct {
	logger *slog.Logger
}

var _ dqcheck.DataProfiler = (*DatasetProfiler)(nil)

func NewDatasetProfiler(logger *slog.Logger) *DatasetProfiler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &DatasetProfiler{logger: logger}
}

// ProfileDataset runs the per-column metric tasks on a TaskPool of maxConcurrent workers.
func (p *DatasetProfiler) ProfileDataset(ctx context.Context, ds *dqcheck.Dataset, maxConcurrent int) (*dqcheck.TableMetrics, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}

	startTime := time.Now()
	taskPool := dqcheck.NewTaskPool(maxConcurrent, p.logger)

	metrics := &dqcheck.TableMetrics{
		ProfiledAt:     time.Now().Unix(),
		DatasetName:    ds.Name(),
		TotalRows:      uint64(ds.NumRows()),
		ColumnsMetrics: make(map[string]*dqcheck.ColumnMetrics, ds.NumColumns()),
	}

	if ds.NumColumns() == 0 {
		p.logger.Warn("no columns found for dataset, returning basic info", "dataset", ds.Name())
		metrics.ProfilingDurationMs = time.Since(startTime).Milliseconds()
		return metrics, nil
	}

	p.logger.Debug(fmt.Sprintf("found %d columns to process", ds.NumColumns()))

	var metricsLock sync.Mutex
	var columnsWg sync.WaitGroup
	for position, column := range ds.Columns() {
		var colWg sync.WaitGroup
		var colMetricsLock sync.Mutex
		colStartTime := time.Now()

		colMetrics := &dqcheck.ColumnMetrics{
			ColumnName:     column.Name(),
			ColumnPosition: uint(position + 1),
			DataType:       column.Kind().String(),
		}

		taskIdPrefix := fmt.Sprintf("task:%s:", column.Name())

		enqueueTask(ctx, taskPool, &colWg, taskIdPrefix+"null_count", func() error {
			nullCount := uint64(column.NullCount())
			colMetricsLock.Lock()
			colMetrics.NullCount = nullCount
			colMetricsLock.Unlock()
			return nil
		})

		if column.Kind() == dqcheck.KindString {
			enqueueTask(ctx, taskPool, &colWg, taskIdPrefix+"blank_count", func() error {
				blankCount := blankCount(column)
				colMetricsLock.Lock()
				colMetrics.BlankCount = &blankCount
				colMetricsLock.Unlock()
				return nil
			})
		}

		if column.Kind().IsNumeric() {
			enqueueTask(ctx, taskPool, &colWg, taskIdPrefix+"num_stats", func() error {
				minValue, maxValue, avgValue, ok := numericStats(column)
				if !ok {
					return nil
				}
				colMetricsLock.Lock()
				colMetrics.MinValue = &minValue
				colMetrics.MaxValue = &maxValue
				colMetrics.AvgValue = &avgValue
				colMetricsLock.Unlock()
				return nil
			})
		}

		enqueueTask(ctx, taskPool, &colWg, taskIdPrefix+"mfv", func() error {
			distinct, mfv := frequencies(column)
			colMetricsLock.Lock()
			colMetrics.DistinctCount = distinct
			colMetrics.MostFrequentValue = mfv
			colMetricsLock.Unlock()
			return nil
		})

		columnsWg.Add(1)
		go func() {
			defer columnsWg.Done()
			colWg.Wait()
			colMetrics.ProfilingDurationMs = time.Since(colStartTime).Milliseconds()

			metricsLock.Lock()
			metrics.ColumnsMetrics[column.Name()] = colMetrics
			metricsLock.Unlock()

			p.logger.Debug("finished processing column",
				"col_name", column.Name(),
				"proc_duration_ms", colMetrics.ProfilingDurationMs)
		}()
	}

	poolErr := taskPool.Join()
	columnsWg.Wait()
	if poolErr != nil {
		return nil, fmt.Errorf("failed to profile %s: %w", ds.Name(), poolErr)
	}

	metrics.ProfilingDurationMs = time.Since(startTime).Milliseconds()

	p.logger.Debug("finished data profiling for dataset",
		"dataset", ds.Name(),
		"profile_duration_ms", metrics.ProfilingDurationMs)

	return metrics, nil
}

// enqueueTask marks the task done on subsetWg even when the pool drops it on cancellation.
func enqueueTask(ctx context.Context, taskPool *dqcheck.TaskPool, subsetWg *sync.WaitGroup, taskId string, task func() error) {
	subsetWg.Add(1)
	var once sync.Once
	done := func() { once.Do(subsetWg.Done) }
	// releases the slot of a task the pool drops on cancellation
	stop := context.AfterFunc(ctx, done)

	taskPool.Enqueue(ctx, taskId, func(ctx context.Context) error {
		defer func() {
			stop()
			done()
		}()
		return task()
	})
}

func blankCount(column *dqcheck.Column) int64 {
	var count int64
	for i := 0; i < column.Len(); i++ {
		if s, ok := column.Value(i).(string); ok && strings.TrimSpace(s) == "" {
			count++
		}
	}
	return count
}

func numericStats(column *dqcheck.Column) (minValue, maxValue, avgValue float64, ok bool) {
	var sum float64
	var count int
	for i := 0; i < column.Len(); i++ {
		var v float64
		switch val := column.Value(i).(type) {
		case int64:
			v = float64(val)
		case float64:
			v = val
		default:
			continue
		}
		if count == 0 || v < minValue {
			minValue = v
		}
		if count == 0 || v > maxValue {
			maxValue = v
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, 0, 0, false
	}
	return minValue, maxValue, sum / float64(count), true
}

// frequencies returns the number of distinct non-null values and the most frequent one.
// Ties go to the value seen first.
func frequencies(column *dqcheck.Column) (uint64, *string) {
	counts := make(map[any]int)
	var order []any
	firstValue := make(map[any]any)
	for i := 0; i < column.Len(); i++ {
		val := column.Value(i)
		if val == nil {
			continue
		}
		key := dqcheck.ValueKey(val)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			firstValue[key] = val
		}
		counts[key]++
	}

	if len(order) == 0 {
		return 0, nil
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	mfv := formatValue(firstValue[best])
	return uint64(len(order)), &mfv
}

func formatValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
