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
	"regexp"
	"strconv"
	"strings"
)

// CheckExpression is the parsed form of a scalar check such as "accepted_values(status, active, inactive)".
type CheckExpression struct {
	FunctionName       string
	FunctionParameters []string
}

var (
	functionRegex = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

	checkTypeAliases = map[string]CheckType{
		"unique":                CheckTypeUnique,
		"uniqueness":            CheckTypeUnique,
		"not_null":              CheckTypeNotNull,
		"accepted_values":       CheckTypeAcceptedValues,
		"enum":                  CheckTypeAcceptedValues,
		"referential_integrity": CheckTypeReferentialIntegrity,
	}
)

func ParseCheckExpression(expression string) (*CheckExpression, error) {
	expression = strings.TrimSpace(expression)

	if expression == "" {
		return nil, fmt.Errorf("empty expression")
	}

	matches := functionRegex.FindStringSubmatch(expression)
	if matches == nil {
		return nil, fmt.Errorf("invalid expression format: %s", expression)
	}

	return &CheckExpression{
		FunctionName:       matches[1],
		FunctionParameters: parseParameters(matches[2]),
	}, nil
}

// CanonicalCheckType resolves aliases such as "uniqueness" and "enum". Unknown names are
// returned unchanged with ok set to false.
func CanonicalCheckType(name string) (CheckType, bool) {
	checkType, ok := checkTypeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return CheckType(name), false
	}
	return checkType, true
}

// ToCheck maps the expression parameters onto check fields:
//
//	not_null(column), unique(column)
//	accepted_values(column, value, ...)
//	referential_integrity(parent_ref, parent_key, child_key)
func (e *CheckExpression) ToCheck() (DataQualityCheck, error) {
	checkType, known := CanonicalCheckType(e.FunctionName)
	check := DataQualityCheck{Type: checkType}
	params := e.FunctionParameters

	if !known {
		if len(params) > 0 {
			check.Column = params[0]
		}
		return check, nil
	}

	switch checkType {
	case CheckTypeUnique, CheckTypeNotNull:
		if len(params) != 1 {
			return check, fmt.Errorf("%w: %s check requires exactly one column parameter", ErrInvalidCheck, checkType)
		}
		check.Column = params[0]

	case CheckTypeAcceptedValues:
		if len(params) == 0 {
			return check, fmt.Errorf("%w: %s check requires a column parameter", ErrInvalidCheck, checkType)
		}
		check.Column = params[0]
		check.Values = make([]any, 0, len(params)-1)
		for _, raw := range params[1:] {
			check.Values = append(check.Values, parseValue(raw))
		}

	case CheckTypeReferentialIntegrity:
		if len(params) != 3 {
			return check, fmt.Errorf("%w: %s check requires parent, parent_key and child_key parameters", ErrInvalidCheck, checkType)
		}
		check.Parent = params[0]
		check.ParentKey = params[1]
		check.ChildKey = params[2]
	}

	return check, nil
}

func parseParameters(paramStr string) []string {
	if strings.TrimSpace(paramStr) == "" {
		return []string{}
	}

	// commas inside single or double quotes belong to the value
	var params []string
	var quote rune
	start := 0
	for i, r := range paramStr {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ',':
			params = append(params, strings.TrimSpace(paramStr[start:i]))
			start = i + 1
		}
	}
	params = append(params, strings.TrimSpace(paramStr[start:]))

	return params
}

// parseValue keeps quoted parameters as strings and turns bare numbers into int or float64.
func parseValue(valueStr string) any {
	valueStr = strings.TrimSpace(valueStr)

	if len(valueStr) >= 2 {
		first, last := valueStr[0], valueStr[len(valueStr)-1]
		if (first == '\'' || first == '"') && first == last {
			return valueStr[1 : len(valueStr)-1]
		}
	}

	if intVal, err := strconv.Atoi(valueStr); err == nil {
		return intVal
	}

	if strings.Contains(valueStr, ".") {
		if floatVal, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return floatVal
		}
	}

	return valueStr
}
