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

// Package dqc wires loaders, validator and result store into check runs.
package dqc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/DataBridgeTech/dqcheck/cnn"
	"github.com/DataBridgeTech/dqcheck/loaders"
)

const (
	Version = "v0.4.0"

	defaultPoolSize = 4
)

func GetVersion() string {
	return Version
}

// DatasetLoader routes a reference to the file, object store or database loader. Object store
// and database connections are opened on first use and released by Close.
type DatasetLoader struct {
	files       *loaders.FileLoader
	dataSources map[string]dqcheck.DataSource
	objectCfg   loaders.ObjectStoreConfig
	logger      *slog.Logger

	mu        sync.Mutex
	objects   dqcheck.DatasetLoader
	dbLoaders map[string]dqcheck.DatasetLoader
	closers   []func() error
}

var _ dqcheck.DatasetLoader = (*DatasetLoader)(nil)

func NewDatasetLoader(dataSources []dqcheck.DataSource, objectCfg loaders.ObjectStoreConfig, logger *slog.Logger) *DatasetLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	byID := make(map[string]dqcheck.DataSource, len(dataSources))
	for _, ds := range dataSources {
		byID[ds.ID] = ds
	}

	return &DatasetLoader{
		files:       loaders.NewFileLoader(logger),
		dataSources: byID,
		objectCfg:   objectCfg,
		logger:      logger,
		dbLoaders:   make(map[string]dqcheck.DatasetLoader),
	}
}

// WithObjectStore makes the loader use store for s3:// references instead of a minio client.
func (l *DatasetLoader) WithObjectStore(store loaders.ObjectStore) *DatasetLoader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.objects = loaders.NewObjectLoader(store, l.logger)
	return l
}

// Load reads the dataset and names it after ref.
func (l *DatasetLoader) Load(ctx context.Context, ref string) (*dqcheck.Dataset, error) {
	parsed, err := dqcheck.ParseDatasetRef(ref)
	if err != nil {
		return nil, err
	}

	var ds *dqcheck.Dataset
	switch parsed.Kind {
	case dqcheck.RefKindObject:
		objects, err := l.objectLoader()
		if err != nil {
			return nil, err
		}
		ds, err = objects.Load(ctx, parsed.Raw)
		if err != nil {
			return nil, err
		}

	case dqcheck.RefKindDatabase:
		dbLoader, err := l.databaseLoader(parsed.DataSourceID)
		if err != nil {
			return nil, err
		}
		ds, err = dbLoader.Load(ctx, parsed.Table)
		if err != nil {
			return nil, err
		}

	default:
		ds, err = l.files.Load(ctx, parsed.Path)
		if err != nil {
			return nil, err
		}
	}

	return ds.Named(parsed.Raw), nil
}

func (l *DatasetLoader) objectLoader() (dqcheck.DatasetLoader, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.objects != nil {
		return l.objects, nil
	}
	if !l.objectCfg.Configured() {
		return nil, fmt.Errorf("object storage is not configured, set DQC_S3_ENDPOINT")
	}

	client, err := loaders.NewS3Client(l.objectCfg)
	if err != nil {
		return nil, err
	}
	l.objects = loaders.NewObjectLoader(client, l.logger)
	return l.objects, nil
}

func (l *DatasetLoader) databaseLoader(dataSourceID string) (dqcheck.DatasetLoader, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if loader, ok := l.dbLoaders[dataSourceID]; ok {
		return loader, nil
	}

	dataSource, ok := l.dataSources[dataSourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dqcheck.ErrUnknownDataSource, dataSourceID)
	}

	loader, closer, err := newDatabaseLoader(dataSource, l.logger)
	if err != nil {
		return nil, err
	}
	l.dbLoaders[dataSourceID] = loader
	l.closers = append(l.closers, closer)
	return loader, nil
}

func newDatabaseLoader(dataSource dqcheck.DataSource, logger *slog.Logger) (dqcheck.DatasetLoader, func() error, error) {
	switch dataSource.Type {
	case dqcheck.DataSourceTypeClickhouse:
		connection, err := cnn.NewClickhouseConnection(dataSource.Configuration)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
		}
		return loaders.NewClickhouseLoader(connection, logger), connection.Close, nil
	case dqcheck.DataSourceTypePostgresql:
		connection, err := cnn.NewPostgresqlConnection(dataSource.Configuration, defaultPoolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgresql connection: %w", err)
		}
		return loaders.NewSQLLoader(connection, dataSource.Type, logger), connection.Close, nil
	case dqcheck.DataSourceTypeMysql:
		connection, err := cnn.NewMysqlConnection(dataSource.Configuration, defaultPoolSize)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mysql connection: %w", err)
		}
		return loaders.NewSQLLoader(connection, dataSource.Type, logger), connection.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported data source type: %s", dataSource.Type)
	}
}

// Close releases every database connection opened by Load.
func (l *DatasetLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for _, closeFn := range l.closers {
		errs = append(errs, closeFn())
	}
	l.closers = nil
	l.dbLoaders = make(map[string]dqcheck.DatasetLoader)
	return errors.Join(errs...)
}
