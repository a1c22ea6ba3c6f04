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
	"fmt"
	"regexp"
	"strings"
)

// DatasetLoader is the interface that wraps the basic dataset loading method.
type DatasetLoader interface {
	// Load reads the dataset addressed by ref fully into memory.
	Load(ctx context.Context, ref string) (*Dataset, error)
}

type DataSourceType string

const (
	DataSourceTypeClickhouse DataSourceType = "clickhouse"
	DataSourceTypePostgresql DataSourceType = "postgresql"
	DataSourceTypeMysql      DataSourceType = "mysql"
)

// DataSource describes a database that datasets can be loaded from with the id@[schema.table] syntax.
type DataSource struct {
	ID            string           `yaml:"id"`
	Type          DataSourceType   `yaml:"type"`
	Configuration ConnectionConfig `yaml:"configuration"`
}

type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type DatasetRefKind string

const (
	RefKindFile     DatasetRefKind = "file"
	RefKindObject   DatasetRefKind = "object"
	RefKindDatabase DatasetRefKind = "database"
)

// DatasetRef is a parsed dataset reference.
//
//	data/users.csv                 local file
//	s3://bucket/path/users.parquet object storage
//	pg@[public.users]              table of the data source with id "pg"
type DatasetRef struct {
	Kind         DatasetRefKind
	Raw          string
	Path         string
	Bucket       string
	Key          string
	DataSourceID string
	Table        string
}

var databaseRefRegex = regexp.MustCompile(`^([\w-]+)@\[(.+)\]$`)

func ParseDatasetRef(ref string) (DatasetRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return DatasetRef{}, fmt.Errorf("empty dataset reference")
	}

	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return DatasetRef{}, fmt.Errorf("invalid object reference %q: expected s3://bucket/key", ref)
		}
		return DatasetRef{Kind: RefKindObject, Raw: ref, Bucket: bucket, Key: key}, nil
	}

	if matches := databaseRefRegex.FindStringSubmatch(ref); matches != nil {
		return DatasetRef{
			Kind:         RefKindDatabase,
			Raw:          ref,
			DataSourceID: matches[1],
			Table:        strings.TrimSpace(matches[2]),
		}, nil
	}

	return DatasetRef{Kind: RefKindFile, Raw: ref, Path: ref}, nil
}
