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
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// Kind is the value type held by a column.
type Kind uint8

const (
	// KindNull is the kind of a column that holds no non-null values.
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int64"
	case KindFloat:
		return "float64"
	case KindString:
		return "string"
	case KindTime:
		return "timestamp"
	default:
		return "null"
	}
}

// IsNumeric reports whether the kind holds int64 or float64 values.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindFloat
}

// Column is a named, homogeneous sequence of nullable values. A nil entry is null.
type Column struct {
	name   string
	kind   Kind
	values []any
}

// NewColumn normalizes values into a column. Integers of any width become int64, floats become
// float64, []byte becomes string and time.Time is converted to UTC. Nil pointers are nulls.
// Mixing int and float values widens the column to float64; any other mix fails with ErrMixedTypes.
func NewColumn(name string, values []any) (*Column, error) {
	col := &Column{
		name:   name,
		kind:   KindNull,
		values: make([]any, len(values)),
	}

	for i, raw := range values {
		v, kind, err := NormalizeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("column %q, row %d: %w", name, i, err)
		}
		col.values[i] = v
		if kind == KindNull {
			continue
		}

		switch {
		case col.kind == KindNull:
			col.kind = kind
		case col.kind == kind:
		case col.kind.IsNumeric() && kind.IsNumeric():
			col.kind = KindFloat
		default:
			return nil, fmt.Errorf("column %q: %w (%s and %s)", name, ErrMixedTypes, col.kind, kind)
		}
	}

	if col.kind == KindFloat {
		for i, v := range col.values {
			if iv, ok := v.(int64); ok {
				col.values[i] = float64(iv)
			}
		}
	}

	return col, nil
}

func (c *Column) Name() string {
	return c.name
}

func (c *Column) Kind() Kind {
	return c.kind
}

func (c *Column) Len() int {
	return len(c.values)
}

// Value returns the normalized value at row i, nil for null.
func (c *Column) Value(i int) any {
	return c.values[i]
}

func (c *Column) IsNull(i int) bool {
	return c.values[i] == nil
}

func (c *Column) NullCount() int {
	count := 0
	for _, v := range c.values {
		if v == nil {
			count++
		}
	}
	return count
}

// Dataset is an in-memory columnar table. It is never mutated once built.
type Dataset struct {
	name    string
	columns []*Column
	index   map[string]int
	rows    int
}

// NewDataset assembles columns into a dataset. Columns must have unique names and equal lengths.
func NewDataset(columns ...*Column) (*Dataset, error) {
	ds := &Dataset{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if col == nil {
			return nil, fmt.Errorf("column at position %d is nil", i)
		}
		if _, exists := ds.index[col.name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.name)
		}
		if i == 0 {
			ds.rows = col.Len()
		} else if col.Len() != ds.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrColumnLength, col.name, col.Len(), ds.rows)
		}
		ds.index[col.name] = len(ds.columns)
		ds.columns = append(ds.columns, col)
	}

	return ds, nil
}

// FromMap builds a dataset from column name to values, with columns ordered by name.
func FromMap(data map[string][]any) (*Dataset, error) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		col, err := NewColumn(name, data[name])
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return NewDataset(columns...)
}

// MustFromMap is like FromMap but panics on error.
func MustFromMap(data map[string][]any) *Dataset {
	ds, err := FromMap(data)
	if err != nil {
		panic(err)
	}
	return ds
}

// Named returns a shallow copy of the dataset carrying the given name.
func (d *Dataset) Named(name string) *Dataset {
	cp := *d
	cp.name = name
	return &cp
}

func (d *Dataset) Name() string {
	return d.name
}

func (d *Dataset) NumRows() int {
	return d.rows
}

func (d *Dataset) NumColumns() int {
	return len(d.columns)
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Columns returns the columns in their dataset order.
func (d *Dataset) Columns() []*Column {
	out := make([]*Column, len(d.columns))
	copy(out, d.columns)
	return out
}

func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.name
	}
	return names
}

// NormalizeValue converts a Go value into one of the dataset value types and reports its kind.
func NormalizeValue(v any) (any, Kind, error) {
	switch val := v.(type) {
	case nil:
		return nil, KindNull, nil
	case bool:
		return val, KindBool, nil
	case int:
		return int64(val), KindInt, nil
	case int8:
		return int64(val), KindInt, nil
	case int16:
		return int64(val), KindInt, nil
	case int32:
		return int64(val), KindInt, nil
	case int64:
		return val, KindInt, nil
	case uint:
		return normalizeUint(uint64(val))
	case uint8:
		return int64(val), KindInt, nil
	case uint16:
		return int64(val), KindInt, nil
	case uint32:
		return int64(val), KindInt, nil
	case uint64:
		return normalizeUint(val)
	case float32:
		return float64(val), KindFloat, nil
	case float64:
		return val, KindFloat, nil
	case string:
		return val, KindString, nil
	case []byte:
		return string(val), KindString, nil
	case time.Time:
		return val.UTC(), KindTime, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, KindNull, nil
		}
		return NormalizeValue(rv.Elem().Interface())
	}

	return nil, KindNull, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func normalizeUint(v uint64) (any, Kind, error) {
	if v > math.MaxInt64 {
		return nil, KindNull, fmt.Errorf("%w: uint64 %d overflows int64", ErrUnsupportedValue, v)
	}
	return int64(v), KindInt, nil
}

type timeKey struct {
	unixNano int64
}

// ValueKey maps a normalized value to a comparable key. Integral floats share the key of the
// equal int64 so that keys loaded from differently typed sources still match.
func ValueKey(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && val >= math.MinInt64 && val < math.MaxInt64 {
			return int64(val)
		}
		return val
	case time.Time:
		return timeKey{unixNano: val.UnixNano()}
	default:
		return v
	}
}
