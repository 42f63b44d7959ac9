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

package sqlite_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/sqlite"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/apache/derby-conformance/go/xdbc/validation"
	"github.com/stretchr/testify/suite"
)

type SQLiteQuirks struct {
	mem *memory.CheckedAllocator
}

func (q *SQLiteQuirks) SetupDriver(t *testing.T) xdbc.Driver {
	q.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
	return sqlite.NewDriver(q.mem)
}

func (q *SQLiteQuirks) TearDownDriver(t *testing.T, _ xdbc.Driver) {
	q.mem.AssertSize(t, 0)
}

func (q *SQLiteQuirks) DatabaseOptions() map[string]string { return nil }
func (q *SQLiteQuirks) BindParameter(int) string          { return "?" }
func (q *SQLiteQuirks) SupportsConcurrentStatements() bool { return true }
func (q *SQLiteQuirks) SupportsTransactions() bool         { return true }
func (q *SQLiteQuirks) SupportsGetParameterSchema() bool   { return true }
func (q *SQLiteQuirks) Alloc() memory.Allocator            { return q.mem }
func (q *SQLiteQuirks) SupportsSavepoints() bool           { return true }
func (q *SQLiteQuirks) SupportsSQLSavepoints() bool        { return true }
func (q *SQLiteQuirks) SupportsODBCProcedures() bool       { return true }
func (q *SQLiteQuirks) LockTimeoutState() string           { return xdbc.StateLockTimeout }

func (q *SQLiteQuirks) GetMetadata(code xdbc.InfoCode) any {
	switch code {
	case xdbc.InfoVendorName:
		return sqlite.VendorName
	case xdbc.InfoDriverName:
		return "XDBC SQLite Driver - Go"
	case xdbc.InfoDriverSavepoints:
		return true
	}
	// versions depend on the build
	return nil
}

func (q *SQLiteQuirks) CreateSampleTable(ctx context.Context, cnxn xdbc.Connection, tableName string, r arrow.Record) error {
	rdr, err := array.NewRecordReader(r.Schema(), []arrow.Record{r})
	if err != nil {
		return err
	}
	defer rdr.Release()
	_, err = xdbc.IngestStream(ctx, cnxn, rdr, xdbc.IngestStreamOption{
		TargetTable: tableName,
		IngestMode:  xdbc.OptionValueIngestModeCreate,
	})
	return err
}

// Quoted identifiers lose their quotes; unquoted ones are stored as
// written since SQLite does not fold case.
func (q *SQLiteQuirks) StoredIdentifier(id string) string {
	if strings.HasPrefix(id, `"`) && strings.HasSuffix(id, `"`) && len(id) > 1 {
		return strings.ReplaceAll(id[1:len(id)-1], `""`, `"`)
	}
	return id
}

func (q *SQLiteQuirks) DeclaredType(t sqltypes.SQLType) string { return t.FixtureDDL() }

func (q *SQLiteQuirks) LockTimeoutOptions(t *testing.T) map[string]string {
	return map[string]string{
		xdbc.OptionKeyURI:              filepath.Join(t.TempDir(), "lock.db"),
		sqlite.OptionLockTimeoutMillis: "100",
	}
}

func TestValidation(t *testing.T) {
	quirks := &SQLiteQuirks{}
	suite.Run(t, &validation.DatabaseTests{Quirks: quirks})
	suite.Run(t, &validation.ConnectionTests{Quirks: quirks})
	suite.Run(t, &validation.StatementTests{Quirks: quirks})
	suite.Run(t, &validation.MetadataTests{Quirks: quirks})
	suite.Run(t, &validation.ParameterMappingTests{Quirks: quirks})
	suite.Run(t, &validation.SavepointTests{Quirks: quirks})
	suite.Run(t, &validation.WrapperTests{Quirks: quirks})
}
