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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResultLogger struct {
	mock.Mock
}

func (m *mockResultLogger) Log(ctx context.Context, checkType string, result bool, params Params) error {
	args := m.Called(ctx, checkType, result, params)
	return args.Error(0)
}

func newMockedValidator(t *testing.T, opts ...ValidatorOption) (*Validator, *mockResultLogger) {
	t.Helper()
	results := &mockResultLogger{}
	t.Cleanup(func() { results.AssertExpectations(t) })
	return NewValidator(results, nil, opts...), results
}

func TestValidator_IsColumnUnique(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		pass   bool
	}{
		{"distinct values", []any{1, 2, 3}, true},
		{"duplicate values", []any{1, 2, 2, 3}, false},
		{"duplicate strings", []any{"a", "b", "a"}, false},
		{"nulls are ignored", []any{1, nil, nil, 2}, true},
		{"int and float keys collide", []any{1, 1.0}, false},
		{"empty column", []any{}, true},
		{"only nulls", []any{nil, nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, results := newMockedValidator(t)
			ds := MustFromMap(map[string][]any{"id": tt.values})

			results.On("Log", mock.Anything, "unique", tt.pass, Params{"column": "id"}).Return(nil).Once()

			pass, err := validator.IsColumnUnique(context.Background(), ds, "id")
			require.NoError(t, err)
			assert.Equal(t, tt.pass, pass)
		})
	}
}

func TestValidator_IsColumnUnique_NullsCollide(t *testing.T) {
	validator, results := newMockedValidator(t, WithNullPolicy(NullPolicy{NullsCollide: true}))
	ds := MustFromMap(map[string][]any{"id": {1, nil, nil}})

	results.On("Log", mock.Anything, "unique", false, Params{"column": "id", "nulls_collide": true}).Return(nil).Once()

	pass, err := validator.IsColumnUnique(context.Background(), ds, "id")
	require.NoError(t, err)
	assert.False(t, pass)
}

func TestValidator_IsColumnNotNull(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		pass   bool
	}{
		{"no nulls", []any{"a@x.io", "b@x.io"}, true},
		{"one null", []any{"a@x.io", nil}, false},
		{"empty column", []any{}, true},
		{"empty string is not null", []any{""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, results := newMockedValidator(t)
			ds := MustFromMap(map[string][]any{"email": tt.values})

			results.On("Log", mock.Anything, "not_null", tt.pass, Params{"column": "email"}).Return(nil).Once()

			pass, err := validator.IsColumnNotNull(context.Background(), ds, "email")
			require.NoError(t, err)
			assert.Equal(t, tt.pass, pass)
		})
	}
}

func TestValidator_IsColumnEnum(t *testing.T) {
	tests := []struct {
		name       string
		values     []any
		accepted   []any
		normalized []any
		pass       bool
	}{
		{
			name:       "all values accepted",
			values:     []any{"active", "inactive", "active"},
			accepted:   []any{"active", "inactive"},
			normalized: []any{"active", "inactive"},
			pass:       true,
		},
		{
			name:       "unexpected value",
			values:     []any{"active", "deleted"},
			accepted:   []any{"active", "inactive"},
			normalized: []any{"active", "inactive"},
			pass:       false,
		},
		{
			name:       "nulls are ignored",
			values:     []any{"active", nil},
			accepted:   []any{"active"},
			normalized: []any{"active"},
			pass:       true,
		},
		{
			name:       "numeric values match across widths",
			values:     []any{int64(1), int64(2)},
			accepted:   []any{1, uint8(2)},
			normalized: []any{int64(1), int64(2)},
			pass:       true,
		},
		{
			name:       "empty accepted set fails non-empty column",
			values:     []any{"active"},
			accepted:   []any{},
			normalized: []any{},
			pass:       false,
		},
		{
			name:       "empty column passes",
			values:     []any{},
			accepted:   []any{},
			normalized: []any{},
			pass:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, results := newMockedValidator(t)
			ds := MustFromMap(map[string][]any{"status": tt.values})

			expectedParams := Params{"column": "status", "accepted_values": tt.normalized}
			results.On("Log", mock.Anything, "accepted_values", tt.pass, expectedParams).Return(nil).Once()

			pass, err := validator.IsColumnEnum(context.Background(), ds, "status", tt.accepted)
			require.NoError(t, err)
			assert.Equal(t, tt.pass, pass)
		})
	}
}

func TestValidator_IsColumnEnum_RejectNulls(t *testing.T) {
	validator, results := newMockedValidator(t, WithNullPolicy(NullPolicy{EnumRejectsNulls: true}))
	ds := MustFromMap(map[string][]any{"status": {"active", nil}})

	results.On("Log", mock.Anything, "accepted_values", false, Params{
		"column":          "status",
		"accepted_values": []any{"active"},
		"reject_nulls":    true,
	}).Return(nil).Once()

	pass, err := validator.IsColumnEnum(context.Background(), ds, "status", []any{"active"})
	require.NoError(t, err)
	assert.False(t, pass)
}

func TestValidator_IsColumnEnum_InvalidAcceptedValue(t *testing.T) {
	validator, results := newMockedValidator(t)
	ds := MustFromMap(map[string][]any{"status": {"active"}})

	_, err := validator.IsColumnEnum(context.Background(), ds, "status", []any{struct{}{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	results.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidator_AreTablesReferentialIntegral(t *testing.T) {
	tests := []struct {
		name      string
		parentIDs []any
		childIDs  []any
		pass      bool
	}{
		{"all children have parents", []any{1, 2, 3}, []any{1, 1, 3}, true},
		{"orphaned child", []any{1, 2}, []any{1, 3}, false},
		{"null child keys are ignored", []any{1}, []any{1, nil}, true},
		{"empty child", []any{1}, []any{}, true},
		{"empty parent with children", []any{}, []any{1}, false},
		{"float child keys match int parents", []any{1, 2}, []any{2.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator, results := newMockedValidator(t)
			parent := MustFromMap(map[string][]any{"id": tt.parentIDs})
			child := MustFromMap(map[string][]any{"customer_id": tt.childIDs})

			results.On("Log", mock.Anything, "referential_integrity", tt.pass, Params{
				"parent_key": "id",
				"child_key":  "customer_id",
			}).Return(nil).Once()

			pass, err := validator.AreTablesReferentialIntegral(context.Background(), parent, child, "id", "customer_id")
			require.NoError(t, err)
			assert.Equal(t, tt.pass, pass)
		})
	}
}

func TestValidator_ColumnNotFound(t *testing.T) {
	ctx := context.Background()
	ds := MustFromMap(map[string][]any{"id": {1, 2}}).Named("users.csv")
	validator, results := newMockedValidator(t)

	checks := map[string]func() (bool, error){
		"unique": func() (bool, error) { return validator.IsColumnUnique(ctx, ds, "email") },
		"not_null": func() (bool, error) {
			return validator.IsColumnNotNull(ctx, ds, "email")
		},
		"accepted_values": func() (bool, error) {
			return validator.IsColumnEnum(ctx, ds, "email", []any{"a"})
		},
		"referential_integrity parent": func() (bool, error) {
			return validator.AreTablesReferentialIntegral(ctx, ds, ds, "missing", "id")
		},
		"referential_integrity child": func() (bool, error) {
			return validator.AreTablesReferentialIntegral(ctx, ds, ds, "id", "missing")
		},
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			pass, err := check()
			require.Error(t, err)
			assert.False(t, pass)
			assert.ErrorIs(t, err, ErrColumnNotFound)

			var notFound *ColumnNotFoundError
			require.ErrorAs(t, err, &notFound)
			assert.Equal(t, "users.csv", notFound.Dataset)
			assert.Contains(t, err.Error(), "Column '")
		})
	}

	results.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestValidator_StorageFailure(t *testing.T) {
	validator, results := newMockedValidator(t)
	ds := MustFromMap(map[string][]any{"id": {1, 2}})

	results.On("Log", mock.Anything, "unique", true, mock.Anything).Return(errors.New("disk full")).Once()

	pass, err := validator.IsColumnUnique(context.Background(), ds, "id")
	assert.True(t, pass)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.Contains(t, err.Error(), "disk full")
}

func TestValidator_StorageWriteErrorIsNotRewrapped(t *testing.T) {
	validator, results := newMockedValidator(t)
	ds := MustFromMap(map[string][]any{"id": {1, nil}})

	original := &StorageWriteError{CheckType: "not_null", Err: errors.New("locked")}
	results.On("Log", mock.Anything, "not_null", false, mock.Anything).Return(original).Once()

	pass, err := validator.IsColumnNotNull(context.Background(), ds, "id")
	assert.False(t, pass)
	assert.Same(t, original, err)
}

func TestValidator_NilResultLogger(t *testing.T) {
	validator := NewValidator(nil, nil)
	ds := MustFromMap(map[string][]any{"id": {1}})

	pass, err := validator.IsColumnNotNull(context.Background(), ds, "id")
	assert.True(t, pass)
	assert.ErrorIs(t, err, ErrStorageWrite)
}

func TestWithParams(t *testing.T) {
	results := &mockResultLogger{}
	decorated := WithParams(results, Params{"run_id": "r1", "column": "ignored"})

	results.On("Log", mock.Anything, "unique", true, Params{"run_id": "r1", "column": "id"}).Return(nil).Once()

	require.NoError(t, decorated.Log(context.Background(), "unique", true, Params{"column": "id"}))
	results.AssertExpectations(t)

	assert.Same(t, results, WithParams(results, nil))
}
