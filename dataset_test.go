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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColumn_Normalization(t *testing.T) {
	name := "Ada"
	var nilName *string
	loc := time.FixedZone("EET", 2*3600)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, loc)

	tests := []struct {
		name     string
		values   []any
		kind     Kind
		expected []any
	}{
		{
			name:     "integers of any width",
			values:   []any{int8(1), int16(2), int32(3), 4, uint32(5), uint64(6)},
			kind:     KindInt,
			expected: []any{int64(1), int64(2), int64(3), int64(4), int64(5), int64(6)},
		},
		{
			name:     "int and float widen to float",
			values:   []any{1, 2.5, nil},
			kind:     KindFloat,
			expected: []any{float64(1), 2.5, nil},
		},
		{
			name:     "bytes become strings",
			values:   []any{[]byte("a"), "b"},
			kind:     KindString,
			expected: []any{"a", "b"},
		},
		{
			name:     "pointers are dereferenced",
			values:   []any{&name, nilName},
			kind:     KindString,
			expected: []any{"Ada", nil},
		},
		{
			name:     "times are converted to UTC",
			values:   []any{ts},
			kind:     KindTime,
			expected: []any{ts.UTC()},
		},
		{
			name:     "all nulls",
			values:   []any{nil, nil},
			kind:     KindNull,
			expected: []any{nil, nil},
		},
		{
			name:     "empty",
			values:   []any{},
			kind:     KindNull,
			expected: []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, err := NewColumn("c", tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, col.Kind())
			require.Equal(t, len(tt.expected), col.Len())
			for i, want := range tt.expected {
				assert.Equal(t, want, col.Value(i), "row %d", i)
			}
		})
	}
}

func TestNewColumn_Errors(t *testing.T) {
	_, err := NewColumn("mixed", []any{1, "one"})
	assert.ErrorIs(t, err, ErrMixedTypes)

	_, err = NewColumn("bool_and_int", []any{true, 1})
	assert.ErrorIs(t, err, ErrMixedTypes)

	_, err = NewColumn("overflow", []any{uint64(math.MaxUint64)})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = NewColumn("struct", []any{struct{}{}})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestColumn_NullCount(t *testing.T) {
	col, err := NewColumn("email", []any{"a@x.io", nil, "b@x.io", nil})
	require.NoError(t, err)

	assert.Equal(t, 2, col.NullCount())
	assert.True(t, col.IsNull(1))
	assert.False(t, col.IsNull(0))
}

func TestNewDataset(t *testing.T) {
	id, _ := NewColumn("id", []any{1, 2, 3})
	email, _ := NewColumn("email", []any{"a", "b", nil})
	short, _ := NewColumn("short", []any{1})

	ds, err := NewDataset(id, email)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, 2, ds.NumColumns())
	assert.Equal(t, []string{"id", "email"}, ds.ColumnNames())

	col, ok := ds.Column("email")
	require.True(t, ok)
	assert.Equal(t, "email", col.Name())

	_, ok = ds.Column("missing")
	assert.False(t, ok)

	_, err = NewDataset(id, id)
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = NewDataset(id, short)
	assert.ErrorIs(t, err, ErrColumnLength)

	empty, err := NewDataset()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumRows())
}

func TestFromMap(t *testing.T) {
	ds, err := FromMap(map[string][]any{
		"status": {"active", "inactive"},
		"id":     {1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "status"}, ds.ColumnNames())

	named := ds.Named("users.csv")
	assert.Equal(t, "users.csv", named.Name())
	assert.Equal(t, "", ds.Name())

	assert.Panics(t, func() {
		MustFromMap(map[string][]any{"a": {1}, "b": {1, 2}})
	})
}

func TestValueKey(t *testing.T) {
	assert.Equal(t, ValueKey(int64(3)), ValueKey(float64(3)))
	assert.NotEqual(t, ValueKey(int64(3)), ValueKey(3.5))
	assert.NotEqual(t, ValueKey(int64(1)), ValueKey("1"))
	assert.NotEqual(t, ValueKey(int64(1)), ValueKey(true))

	a := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	b := a.In(time.FixedZone("X", 3600))
	assert.Equal(t, ValueKey(a), ValueKey(b))

	assert.Equal(t, math.Inf(1), ValueKey(math.Inf(1)))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "int64", KindInt.String())
	assert.Equal(t, "float64", KindFloat.String())
	assert.Equal(t, "null", KindNull.String())
	assert.True(t, KindFloat.IsNumeric())
	assert.False(t, KindString.IsNumeric())
}
