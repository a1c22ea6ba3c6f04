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
)

var (
	// ErrColumnNotFound is matched by every *ColumnNotFoundError.
	ErrColumnNotFound = errors.New("column not found")

	// ErrStorageInit is matched by every *StorageInitError.
	ErrStorageInit = errors.New("failed to initialize result store")

	// ErrStorageWrite is matched by every *StorageWriteError.
	ErrStorageWrite = errors.New("failed to write validation record")

	ErrDuplicateColumn    = errors.New("duplicate column name")
	ErrColumnLength       = errors.New("column length mismatch")
	ErrMixedTypes         = errors.New("column holds values of different types")
	ErrUnsupportedValue   = errors.New("unsupported value type")
	ErrUnsupportedFormat  = errors.New("unsupported dataset format")
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrInvalidConfig      = errors.New("invalid checks config")
	ErrInvalidCheck       = errors.New("invalid check definition")
	ErrUnknownDataSource  = errors.New("unknown data source")
	ErrIncompatibleSchema = errors.New("incompatible validation_log schema")
)

// ColumnNotFoundError is returned when a check references a column the dataset does not have.
// It is always raised before the check is evaluated or logged.
type ColumnNotFoundError struct {
	Column  string
	Dataset string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("Column '%s' not found in dataset '%s'", e.Column, e.Dataset)
	}
	return fmt.Sprintf("Column '%s' not found in dataset", e.Column)
}

func (e *ColumnNotFoundError) Is(target error) bool {
	return target == ErrColumnNotFound
}

// StorageInitError means the result store could not be opened or its schema is unusable.
type StorageInitError struct {
	Location string
	Err      error
}

func (e *StorageInitError) Error() string {
	return fmt.Sprintf("failed to initialize result store at %q: %v", e.Location, e.Err)
}

func (e *StorageInitError) Unwrap() error {
	return e.Err
}

func (e *StorageInitError) Is(target error) bool {
	return target == ErrStorageInit
}

// StorageWriteError means a check result was computed but could not be recorded.
type StorageWriteError struct {
	CheckType string
	Err       error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("failed to log %s check result: %v", e.CheckType, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}

func (e *StorageWriteError) Is(target error) bool {
	return target == ErrStorageWrite
}
