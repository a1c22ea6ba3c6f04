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

package loaders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig holds the S3 compatible endpoint settings, read from DQC_S3_* variables.
type ObjectStoreConfig struct {
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	UseSSL          bool   `env:"USE_SSL" envDefault:"true"`
}

func (c ObjectStoreConfig) Configured() bool {
	return c.Endpoint != ""
}

// ObjectStore is the interface that wraps the basic object download method.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3Client implements ObjectStore with minio-go.
type S3Client struct {
	client *minio.Client
}

var _ ObjectStore = (*S3Client)(nil)

func NewS3Client(cfg ObjectStoreConfig) (*S3Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}

	// accept both host:port and a full URL
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &S3Client{client: client}, nil
}

func (s *S3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinioError(bucket, key, err)
	}
	return data, nil
}

func classifyMinioError(bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey":
		return fmt.Errorf("%w: s3://%s/%s: %s", dqcheck.ErrDatasetNotFound, bucket, key, resp.Message)
	}
	return fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
}

// ObjectLoader loads s3://bucket/key references ending in .csv or .parquet.
type ObjectLoader struct {
	store  ObjectStore
	logger *slog.Logger
}

var _ dqcheck.DatasetLoader = (*ObjectLoader)(nil)

func NewObjectLoader(store ObjectStore, logger *slog.Logger) *ObjectLoader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &ObjectLoader{
		store:  store,
		logger: logger,
	}
}

func (l *ObjectLoader) Load(ctx context.Context, ref string) (*dqcheck.Dataset, error) {
	parsed, err := dqcheck.ParseDatasetRef(ref)
	if err != nil {
		return nil, err
	}
	if parsed.Kind != dqcheck.RefKindObject {
		return nil, fmt.Errorf("not an object reference: %q", ref)
	}

	format := FormatOf(parsed.Key)
	if format != FormatCSV && format != FormatParquet {
		return nil, fmt.Errorf("%w: %q (expected .csv or .parquet)", dqcheck.ErrUnsupportedFormat, ref)
	}

	startTime := time.Now()
	data, err := l.store.GetObject(ctx, parsed.Bucket, parsed.Key)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("object downloaded",
		"bucket", parsed.Bucket,
		"key", parsed.Key,
		"bytes", len(data),
		"duration_ms", time.Since(startTime).Milliseconds())

	if format == FormatCSV {
		return DecodeCSV(bytes.NewReader(data), ref)
	}
	return loadParquetBytes(ctx, data, ref)
}

// loadParquetBytes spills the object to a temp file since the parquet reader needs random access.
func loadParquetBytes(ctx context.Context, data []byte, name string) (ds *dqcheck.Dataset, err error) {
	tmp, err := os.CreateTemp("", "dqc-*.parquet")
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, os.Remove(tmp.Name()))
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	return LoadParquetFile(ctx, tmp.Name(), name)
}
