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

package cnn

import (
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/DataBridgeTech/dqcheck"
)

const defaultClickhousePort = 9000

// ClickhouseOptions maps a data source configuration onto native protocol options.
func ClickhouseOptions(connectionCfg dqcheck.ConnectionConfig) *clickhouse.Options {
	port := connectionCfg.Port
	if port == 0 {
		port = defaultClickhousePort
	}

	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", connectionCfg.Host, port)},
		Auth: clickhouse.Auth{
			Database: connectionCfg.Database,
			Username: connectionCfg.Username,
			Password: connectionCfg.Password,
		},
		DialTimeout:  10 * time.Second,
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		//TLS: &tls.Config{
		//	InsecureSkipVerify: true,
		//},
	}
}

func NewClickhouseConnection(connectionCfg dqcheck.ConnectionConfig) (driver.Conn, error) {
	return clickhouse.Open(ClickhouseOptions(connectionCfg))
}
