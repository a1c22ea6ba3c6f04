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
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type OnFailAction string

const (
	OnFailActionWarn  OnFailAction = "warn"
	OnFailActionError OnFailAction = "error"
)

// DefaultResultsDB is used when neither the checks file nor the environment names a store.
const DefaultResultsDB = "validation_logs.db"

type ChecksFileConfig struct {
	Version     string             `yaml:"version,omitempty"`
	DB          string             `yaml:"db,omitempty"`
	DataSources []DataSource       `yaml:"datasources,omitempty"`
	Checks      []DataQualityCheck `yaml:"checks"`
}

// DataQualityCheck is one entry of the checks list. It can be written as a mapping
//
//	- type: accepted_values
//	  column: status
//	  values: [active, inactive]
//
// or as an expression, optionally with details:
//
//	- not_null(id)
//	- referential_integrity(customers.csv, id, customer_id):
//	    on_fail: warn
type DataQualityCheck struct {
	Expression  string       `yaml:"-"`
	Type        CheckType    `yaml:"type"`
	Column      string       `yaml:"column,omitempty"`
	Values      []any        `yaml:"values,omitempty"`
	Parent      string       `yaml:"parent,omitempty"`
	ParentKey   string       `yaml:"parent_key,omitempty"`
	ChildKey    string       `yaml:"child_key,omitempty"`
	Description string       `yaml:"desc,omitempty"`
	OnFail      OnFailAction `yaml:"on_fail,omitempty"`
}

var checkFieldNames = map[string]bool{
	"type":       true,
	"column":     true,
	"values":     true,
	"parent":     true,
	"parent_key": true,
	"child_key":  true,
	"desc":       true,
	"on_fail":    true,
}

func (c *DataQualityCheck) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return c.fromExpression(node.Value)

	case yaml.MappingNode:
		if len(node.Content) == 2 && !checkFieldNames[node.Content[0].Value] {
			if err := c.fromExpression(node.Content[0].Value); err != nil {
				return err
			}

			details := node.Content[1]
			if details.Kind == yaml.MappingNode {
				var checkDetails struct {
					Desc   string       `yaml:"desc,omitempty"`
					OnFail OnFailAction `yaml:"on_fail,omitempty"`
				}
				if err := details.Decode(&checkDetails); err != nil {
					return err
				}
				c.Description = checkDetails.Desc
				c.OnFail = checkDetails.OnFail
			}
			return nil
		}

		type plain DataQualityCheck
		if err := node.Decode((*plain)(c)); err != nil {
			return err
		}
		if c.Type == "" {
			return fmt.Errorf("%w: line %d: check is missing 'type'", ErrInvalidCheck, node.Line)
		}
		c.Type, _ = CanonicalCheckType(string(c.Type))
		for i, value := range c.Values {
			if _, _, err := NormalizeValue(value); err != nil {
				return fmt.Errorf("%w: line %d: value at position %d: %v", ErrInvalidCheck, node.Line, i, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: line %d: check must be an expression or a mapping", ErrInvalidCheck, node.Line)
	}
}

func (c *DataQualityCheck) fromExpression(expression string) error {
	parsed, err := ParseCheckExpression(expression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCheck, err)
	}
	check, err := parsed.ToCheck()
	if err != nil {
		return err
	}
	*c = check
	c.Expression = expression
	return nil
}

// FailsRun reports whether a failing result of this check should fail the whole run.
func (c *DataQualityCheck) FailsRun() bool {
	return c.OnFail != OnFailActionWarn
}

// TargetColumn is the column of the checked dataset the check looks at.
func (c *DataQualityCheck) TargetColumn() string {
	if c.Type == CheckTypeReferentialIntegrity {
		return c.ChildKey
	}
	return c.Column
}

func LoadChecksFileConfig(fileName string) (*ChecksFileConfig, error) {
	file, err := os.Open(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s: %w", fileName, err)
		}
		return nil, err
	}
	defer file.Close()

	return DecodeChecksFileConfig(file)
}

func DecodeChecksFileConfig(r io.Reader) (*ChecksFileConfig, error) {
	var cfg ChecksFileConfig
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: config file must contain a YAML mapping", ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if cfg.Checks == nil {
		return nil, fmt.Errorf("%w: config file must contain a 'checks' key", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(cfg.DataSources))
	for i := range cfg.DataSources {
		ds := &cfg.DataSources[i]
		if ds.ID == "" {
			return nil, fmt.Errorf("%w: datasource at position %d has no id", ErrInvalidConfig, i)
		}
		if seen[ds.ID] {
			return nil, fmt.Errorf("%w: duplicate datasource id %q", ErrInvalidConfig, ds.ID)
		}
		seen[ds.ID] = true

		switch ds.Type {
		case DataSourceTypeClickhouse, DataSourceTypePostgresql, DataSourceTypeMysql:
		default:
			return nil, fmt.Errorf("%w: unsupported data source type: %s", ErrInvalidConfig, ds.Type)
		}

		ds.Configuration.Username = os.ExpandEnv(ds.Configuration.Username)
		ds.Configuration.Password = os.ExpandEnv(ds.Configuration.Password)
	}

	return &cfg, nil
}
