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
	"errors"
	"reflect"
	"testing"
)

func TestParseCheckExpression(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		expected    *CheckExpression
		expectError bool
	}{
		{
			name:       "not_null function",
			expression: "not_null(col_name)",
			expected: &CheckExpression{
				FunctionName:       "not_null",
				FunctionParameters: []string{"col_name"},
			},
		},
		{
			name:       "uniqueness function with spaces",
			expression: "  uniqueness( id )  ",
			expected: &CheckExpression{
				FunctionName:       "uniqueness",
				FunctionParameters: []string{"id"},
			},
		},
		{
			name:       "accepted_values with values",
			expression: "accepted_values(status, 'active', inactive, 3)",
			expected: &CheckExpression{
				FunctionName:       "accepted_values",
				FunctionParameters: []string{"status", "'active'", "inactive", "3"},
			},
		},
		{
			name:       "quoted values keep their commas",
			expression: `accepted_values(status, 'a, b', "c,d", e)`,
			expected: &CheckExpression{
				FunctionName:       "accepted_values",
				FunctionParameters: []string{"status", "'a, b'", `"c,d"`, "e"},
			},
		},
		{
			name:       "apostrophe inside double quotes",
			expression: `accepted_values(name, "O'Brien, Pat", x)`,
			expected: &CheckExpression{
				FunctionName:       "accepted_values",
				FunctionParameters: []string{"name", `"O'Brien, Pat"`, "x"},
			},
		},
		{
			name:       "referential_integrity",
			expression: "referential_integrity(data/customers.csv, id, customer_id)",
			expected: &CheckExpression{
				FunctionName:       "referential_integrity",
				FunctionParameters: []string{"data/customers.csv", "id", "customer_id"},
			},
		},
		{
			name:       "function without parentheses",
			expression: "row_count",
			expected: &CheckExpression{
				FunctionName:       "row_count",
				FunctionParameters: []string{},
			},
		},
		{
			name:       "empty parentheses",
			expression: "row_count()",
			expected: &CheckExpression{
				FunctionName:       "row_count",
				FunctionParameters: []string{},
			},
		},
		{
			name:        "empty expression",
			expression:  "   ",
			expectError: true,
		},
		{
			name:        "operator expression is not supported",
			expression:  "row_count > 100",
			expectError: true,
		},
		{
			name:        "unbalanced parentheses",
			expression:  "not_null(id",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseCheckExpression(tt.expression)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %+v, got %+v", tt.expected, result)
			}
		})
	}
}

func TestCheckExpression_ToCheck(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		expected    DataQualityCheck
		expectError bool
	}{
		{
			name:       "unique",
			expression: "unique(id)",
			expected:   DataQualityCheck{Type: CheckTypeUnique, Column: "id"},
		},
		{
			name:       "uniqueness alias",
			expression: "uniqueness(id)",
			expected:   DataQualityCheck{Type: CheckTypeUnique, Column: "id"},
		},
		{
			name:       "not_null",
			expression: "not_null(email)",
			expected:   DataQualityCheck{Type: CheckTypeNotNull, Column: "email"},
		},
		{
			name:       "accepted_values with typed values",
			expression: `accepted_values(level, 1, 2.5, "3", low)`,
			expected: DataQualityCheck{
				Type:   CheckTypeAcceptedValues,
				Column: "level",
				Values: []any{1, 2.5, "3", "low"},
			},
		},
		{
			name:       "accepted_values with quoted commas",
			expression: `accepted_values(status, 'a, b', c)`,
			expected: DataQualityCheck{
				Type:   CheckTypeAcceptedValues,
				Column: "status",
				Values: []any{"a, b", "c"},
			},
		},
		{
			name:       "enum alias without values",
			expression: "enum(level)",
			expected: DataQualityCheck{
				Type:   CheckTypeAcceptedValues,
				Column: "level",
				Values: []any{},
			},
		},
		{
			name:       "referential_integrity",
			expression: "referential_integrity(customers.csv, id, customer_id)",
			expected: DataQualityCheck{
				Type:      CheckTypeReferentialIntegrity,
				Parent:    "customers.csv",
				ParentKey: "id",
				ChildKey:  "customer_id",
			},
		},
		{
			name:       "unknown type passes through",
			expression: "freshness(updated_at)",
			expected:   DataQualityCheck{Type: CheckType("freshness"), Column: "updated_at"},
		},
		{
			name:        "unique without column",
			expression:  "unique()",
			expectError: true,
		},
		{
			name:        "not_null with two columns",
			expression:  "not_null(a, b)",
			expectError: true,
		},
		{
			name:        "referential_integrity missing child key",
			expression:  "referential_integrity(customers.csv, id)",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseCheckExpression(tt.expression)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}

			check, err := parsed.ToCheck()
			if tt.expectError {
				if !errors.Is(err, ErrInvalidCheck) {
					t.Errorf("expected ErrInvalidCheck, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(check, tt.expected) {
				t.Errorf("expected %+v, got %+v", tt.expected, check)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		expected any
	}{
		{"42", 42},
		{"-7", -7},
		{"3.14", 3.14},
		{"'42'", "42"},
		{`"quoted value"`, "quoted value"},
		{"plain", "plain"},
		{"1e3", "1e3"},
		{"'", "'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseValue(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("parseValue(%q) = %#v, expected %#v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCanonicalCheckType(t *testing.T) {
	tests := []struct {
		name     string
		expected CheckType
		known    bool
	}{
		{"unique", CheckTypeUnique, true},
		{"Uniqueness", CheckTypeUnique, true},
		{"enum", CheckTypeAcceptedValues, true},
		{" not_null ", CheckTypeNotNull, true},
		{"referential_integrity", CheckTypeReferentialIntegrity, true},
		{"freshness", CheckType("freshness"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := CanonicalCheckType(tt.name)
			if got != tt.expected || known != tt.known {
				t.Errorf("CanonicalCheckType(%q) = (%q, %v), expected (%q, %v)", tt.name, got, known, tt.expected, tt.known)
			}
		})
	}
}
