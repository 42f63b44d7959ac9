// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package sqlite is an XDBC driver that emulates the externally visible
// behavior of Apache Derby on top of an embedded SQLite database
// (modernc.org/sqlite, no cgo). It is the reference driver the
// validation suites run against: Derby typing, the APP and SYS schemas,
// the SYSIBM ODBC catalog procedures, SQL and JDBC savepoints, and
// Derby SQLSTATEs.
//
// Options are passed to NewDatabase as a map:
//
//	uri                               modernc DSN, default a private
//	                                  in-memory database
//	xdbc.sqlite.lock_timeout_ms       busy timeout, default 2000
//	xdbc.sqlite.statement_cache_size  prepared statements kept per
//	                                  connection, default 32
package sqlite

import (
	"context"
	"database/sql"
	"runtime/debug"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	_ "modernc.org/sqlite"
)

const (
	// OptionLockTimeoutMillis is how long a statement waits for a lock
	// held by another connection before failing with 40XL1.
	OptionLockTimeoutMillis = "xdbc.sqlite.lock_timeout_ms"
	// OptionStatementCacheSize bounds the number of prepared statements
	// each connection keeps open.
	OptionStatementCacheSize = "xdbc.sqlite.statement_cache_size"

	DefaultLockTimeoutMillis  = 2000
	DefaultStatementCacheSize = 32

	// VendorName is reported for InfoVendorName.
	VendorName = "Apache Derby (SQLite emulation)"

	driverName = "SQLite"
	sqlDriver  = "sqlite"
)

var infoVendorVersion string

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "modernc.org/sqlite" {
				infoVendorVersion = dep.Version
			}
		}
	}
}

// Option customizes the driver.
type Option func(*driverImpl)

// WithSQLDB makes every database created by the driver use db instead
// of opening its own. The driver does not close db.
func WithSQLDB(db *sql.DB) Option {
	return func(d *driverImpl) {
		d.shared = db
	}
}

type driverImpl struct {
	driverbase.DriverImplBase

	shared *sql.DB
}

// NewDriver creates a new SQLite driver using the given Arrow allocator.
func NewDriver(alloc memory.Allocator, opts ...Option) xdbc.Driver {
	info := driverbase.DefaultDriverInfo(driverName)
	if err := info.RegisterInfoCode(xdbc.InfoVendorName, VendorName); err != nil {
		panic(err)
	}
	if infoVendorVersion != "" {
		if err := info.RegisterInfoCode(xdbc.InfoVendorVersion, infoVendorVersion); err != nil {
			panic(err)
		}
	}
	if err := info.RegisterInfoCode(xdbc.InfoDriverSavepoints, true); err != nil {
		panic(err)
	}
	if err := info.RegisterInfoCode(xdbc.InfoDriverNumericFunctions, strings.Join(numericFunctions, ",")); err != nil {
		panic(err)
	}
	if err := info.RegisterInfoCode(xdbc.InfoDriverStringFunctions, strings.Join(stringFunctions, ",")); err != nil {
		panic(err)
	}

	d := &driverImpl{DriverImplBase: driverbase.NewDriverImplBase(info, alloc)}
	for _, opt := range opts {
		opt(d)
	}
	return driverbase.NewDriver(d)
}

func (d *driverImpl) NewDatabase(opts map[string]string) (xdbc.Database, error) {
	return d.NewDatabaseWithContext(context.Background(), opts)
}

func (d *driverImpl) NewDatabaseWithContext(ctx context.Context, opts map[string]string) (xdbc.Database, error) {
	base, err := driverbase.NewDatabaseImplBase(ctx, &d.DriverImplBase)
	if err != nil {
		return nil, err
	}
	db := newDatabase(base, d.shared)
	if err := db.SetOptions(opts); err != nil {
		return nil, err
	}
	return driverbase.NewDatabase(db), nil
}
