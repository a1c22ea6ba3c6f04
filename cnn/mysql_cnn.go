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
	"database/sql"
	"fmt"

	"github.com/DataBridgeTech/dqcheck"
	"github.com/go-sql-driver/mysql"
)

const defaultMysqlPort = 3306

// MysqlDSN builds a go-sql-driver DSN. Credentials are escaped by the driver's formatter.
func MysqlDSN(connectionCfg dqcheck.ConnectionConfig) string {
	port := connectionCfg.Port
	if port == 0 {
		port = defaultMysqlPort
	}

	cfg := mysql.NewConfig()
	cfg.User = connectionCfg.Username
	cfg.Passwd = connectionCfg.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", connectionCfg.Host, port)
	cfg.DBName = connectionCfg.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func NewMysqlConnection(connectionCfg dqcheck.ConnectionConfig, poolSize int) (*sql.DB, error) {
	db, err := sql.Open("mysql", MysqlDSN(connectionCfg))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	return db, nil
}
