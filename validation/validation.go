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

// Package validation is a driver-agnostic conformance suite for xdbc
// drivers. It provides a series of utilities and testify suites that
// check a driver follows the expected behavior: connection and
// statement lifecycle, catalog metadata, parameter and result type
// mapping, savepoints, and the statement wrappers of this module.
//
// A driver runs the suites by implementing DriverQuirks and calling
// suite.Run for each suite with the quirks set.
package validation

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/apache/derby-conformance/go/xdbc/utils"
	"github.com/stretchr/testify/suite"
)

type DriverQuirks interface {
	// Called in SetupTest to initialize anything needed for testing
	SetupDriver(*testing.T) xdbc.Driver
	// Called in TearDownTest to clean up anything necessary in between tests
	TearDownDriver(*testing.T, xdbc.Driver)
	// Return the list of key/value pairs of options to pass when
	// calling NewDatabase
	DatabaseOptions() map[string]string
	// Return the SQL to reference the bind parameter for a given index
	BindParameter(index int) string
	// Whether two statements can be used at the same time on a single connection
	SupportsConcurrentStatements() bool
	// Whether transactions are supported (Commit/Rollback on connection)
	SupportsTransactions() bool
	// Whether retrieving the schema of prepared statement params is supported
	SupportsGetParameterSchema() bool
	// Expected GetInfo value for a code, nil when the value is not
	// predictable and should not be checked
	GetMetadata(xdbc.InfoCode) any
	// Create a sample table from an arrow record
	CreateSampleTable(ctx context.Context, cnxn xdbc.Connection, tableName string, r arrow.Record) error
	// The allocator handed to the driver, checked for leaks by the suites
	Alloc() memory.Allocator

	// How the database stores an unquoted identifier (Derby folds to
	// upper case)
	StoredIdentifier(string) string
	// Column DDL used for t in fixture tables, "" when the database has
	// no such type
	DeclaredType(t sqltypes.SQLType) string
	// Whether the connection implements xdbc.ConnectionSavepoints
	SupportsSavepoints() bool
	// Whether SAVEPOINT, RELEASE SAVEPOINT and ROLLBACK TO SAVEPOINT
	// statements are supported
	SupportsSQLSavepoints() bool
	// Whether the SYSIBM ODBC catalog procedures are available
	SupportsODBCProcedures() bool
	// The SQLSTATE reported when a lock wait times out
	LockTimeoutState() string
	// Database options under which two connections can block each
	// other on a lock and time out quickly. nil skips the lock tests.
	LockTimeoutOptions(*testing.T) map[string]string
}

type DatabaseTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks
}

func (d *DatabaseTests) SetupTest() {
	d.Driver = d.Quirks.SetupDriver(d.T())
}

func (d *DatabaseTests) TearDownTest() {
	d.Quirks.TearDownDriver(d.T(), d.Driver)
	d.Driver = nil
}

func (d *DatabaseTests) TestNewDatabase() {
	db, err := d.Driver.NewDatabase(d.Quirks.DatabaseOptions())
	d.NoError(err)
	d.NotNil(db)
	d.Implements((*xdbc.Database)(nil), db)
	d.NoError(db.Close())
}

func (d *DatabaseTests) TestUnknownOption() {
	db, err := d.Driver.NewDatabase(d.Quirks.DatabaseOptions())
	d.Require().NoError(err)
	defer CheckedClose(d.T(), db)

	var xerr xdbc.Error
	d.ErrorAs(db.SetOptions(map[string]string{"xdbc.no.such.option": "1"}), &xerr)
	d.Equal(xdbc.StatusNotImplemented, xerr.Code)
}

type ConnectionTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks

	DB xdbc.Database
}

func (c *ConnectionTests) SetupTest() {
	c.Driver = c.Quirks.SetupDriver(c.T())
	var err error
	c.DB, err = c.Driver.NewDatabase(c.Quirks.DatabaseOptions())
	c.Require().NoError(err)
}

func (c *ConnectionTests) TearDownTest() {
	c.NoError(c.DB.Close())
	c.Quirks.TearDownDriver(c.T(), c.Driver)
	c.Driver = nil
	c.DB = nil
}

func (c *ConnectionTests) TestNewConn() {
	cnxn, err := c.DB.Open(context.Background())
	c.NoError(err)
	c.NotNil(cnxn)

	c.NoError(cnxn.Close())
}

func (c *ConnectionTests) TestCloseConnTwice() {
	cnxn, err := c.DB.Open(context.Background())
	c.NoError(err)
	c.NotNil(cnxn)

	c.NoError(cnxn.Close())
	err = cnxn.Close()
	var xerr xdbc.Error
	c.ErrorAs(err, &xerr)
	c.Equal(xdbc.StatusInvalidState, xerr.Code)
}

func (c *ConnectionTests) TestConcurrent() {
	cnxn, _ := c.DB.Open(context.Background())
	cnxn2, err := c.DB.Open(context.Background())
	c.Require().NoError(err)

	c.NoError(cnxn.Close())
	c.NoError(cnxn2.Close())
}

func (c *ConnectionTests) TestAutocommitDefault() {
	ctx := context.Background()
	// drivers act as if autocommit is enabled, and return
	// INVALID_STATE if the client tries to commit or rollback
	cnxn, _ := c.DB.Open(ctx)
	defer CheckedClose(c.T(), cnxn)

	expectedCode := xdbc.StatusInvalidState
	var xerr xdbc.Error
	err := cnxn.Commit(ctx)
	c.ErrorAs(err, &xerr)
	c.Equal(expectedCode, xerr.Code)
	err = cnxn.Rollback(ctx)
	c.ErrorAs(err, &xerr)
	c.Equal(expectedCode, xerr.Code)

	// if the driver supports setting options after init, it should error
	// on an invalid option value for autocommit
	if cnxnopts, ok := cnxn.(xdbc.PostInitOptions); ok {
		c.Error(cnxnopts.SetOption(xdbc.OptionKeyAutoCommit, "invalid"))
	}
}

func (c *ConnectionTests) TestAutocommitToggle() {
	ctx := context.Background()
	cnxn, _ := c.DB.Open(ctx)
	defer CheckedClose(c.T(), cnxn)

	if !c.Quirks.SupportsTransactions() {
		return
	}

	cnxnopt, ok := cnxn.(xdbc.PostInitOptions)
	if !ok {
		return
	}

	// it is ok to enable autocommit when it is already enabled
	c.NoError(cnxnopt.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueEnabled))
	c.NoError(cnxnopt.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))

	// it is ok to disable autocommit when it isn't enabled
	c.NoError(cnxnopt.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))

	c.NoError(cnxn.Commit(ctx))
	c.NoError(cnxn.Rollback(ctx))
}

func (c *ConnectionTests) TestMetadataGetInfo() {
	ctx := context.Background()
	cnxn, _ := c.DB.Open(ctx)
	defer CheckedClose(c.T(), cnxn)

	info := []xdbc.InfoCode{
		xdbc.InfoDriverName,
		xdbc.InfoDriverVersion,
		xdbc.InfoDriverArrowVersion,
		xdbc.InfoVendorName,
		xdbc.InfoVendorVersion,
		xdbc.InfoVendorArrowVersion,
		xdbc.InfoDriverSavepoints,
	}

	rdr, err := cnxn.GetInfo(ctx, info)
	c.Require().NoError(err)
	defer rdr.Release()

	c.Truef(xdbc.GetInfoSchema.Equal(rdr.Schema()), "expected: %s\ngot: %s",
		xdbc.GetInfoSchema, rdr.Schema())

	seen := 0
	for rdr.Next() {
		rec := rdr.Record()
		codeCol := rec.Column(0).(*array.Uint32)
		valUnion := rec.Column(1).(*array.DenseUnion)
		for i := 0; i < int(rec.NumRows()); i++ {
			code := xdbc.InfoCode(codeCol.Value(i))
			seen++
			want := c.Quirks.GetMetadata(code)
			if want == nil {
				continue
			}
			offset := int(valUnion.ValueOffset(i))
			switch child := valUnion.Field(valUnion.ChildID(i)).(type) {
			case *array.String:
				c.Equal(want, child.Value(offset), code.String())
			case *array.Boolean:
				c.Equal(want, child.Value(offset), code.String())
			case *array.Int64:
				c.Equal(want, child.Value(offset), code.String())
			default:
				c.Failf("unexpected info value type", "%s: %s", code, child.DataType())
			}
		}
	}
	c.NoError(rdr.Err())
	c.LessOrEqual(seen, len(info))
}

func (c *ConnectionTests) TestMetadataGetTableSchema() {
	rec := SampleRecord(c.Quirks.Alloc())
	defer rec.Release()

	ctx := context.Background()
	cnxn, _ := c.DB.Open(ctx)
	defer CheckedClose(c.T(), cnxn)

	table := c.Quirks.StoredIdentifier("sample_test")
	c.Require().NoError(c.Quirks.CreateSampleTable(ctx, cnxn, table, rec))

	sc, err := cnxn.GetTableSchema(ctx, nil, nil, table)
	c.Require().NoError(err)

	c.Require().Equal(2, sc.NumFields())
	for i, want := range rec.Schema().Fields() {
		got := sc.Field(i)
		c.Equal(want.Name, got.Name)
		c.Truef(arrow.TypeEqual(want.Type, got.Type), "%s: expected %s, got %s", want.Name, want.Type, got.Type)
		c.True(got.Nullable)
	}

	_, err = cnxn.GetTableSchema(ctx, nil, nil, c.Quirks.StoredIdentifier("no_such_table"))
	AssertSQLState(c.T(), xdbc.StateTableNotFound, err)
}

func (c *ConnectionTests) TestMetadataGetTableTypes() {
	ctx := context.Background()
	cnxn, _ := c.DB.Open(ctx)
	defer CheckedClose(c.T(), cnxn)

	rdr, err := cnxn.GetTableTypes(ctx)
	c.Require().NoError(err)
	defer rdr.Release()

	c.Truef(utils.SameShape(xdbc.TableTypesSchema, rdr.Schema()), "expected: %s\ngot: %s", xdbc.TableTypesSchema, rdr.Schema())
	c.True(rdr.Next())
}

type StatementTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks

	DB   xdbc.Database
	Cnxn xdbc.Connection
	ctx  context.Context
}

func (s *StatementTests) SetupTest() {
	s.Driver = s.Quirks.SetupDriver(s.T())
	var err error
	s.DB, err = s.Driver.NewDatabase(s.Quirks.DatabaseOptions())
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.Cnxn, err = s.DB.Open(s.ctx)
	s.Require().NoError(err)
}

func (s *StatementTests) TearDownTest() {
	s.Require().NoError(s.Cnxn.Close())
	s.Require().NoError(s.DB.Close())
	s.Quirks.TearDownDriver(s.T(), s.Driver)
	s.Cnxn = nil
	s.DB = nil
	s.Driver = nil
}

func (s *StatementTests) TestNewStatement() {
	stmt, err := s.Cnxn.NewStatement()
	s.NoError(err)
	s.NotNil(stmt)
	s.NoError(stmt.Close())
	// closing again is a no-op, using the statement is not
	s.NoError(stmt.Close())
	AssertSQLState(s.T(), xdbc.StateStatementClosed, stmt.SetSqlQuery("SELECT 1"))

	stmt, err = s.Cnxn.NewStatement()
	s.NoError(err)
	defer CheckedClose(s.T(), stmt)
	_, _, err = stmt.ExecuteQuery(s.ctx)
	var xerr xdbc.Error
	s.ErrorAs(err, &xerr)
	s.Equal(xdbc.StatusInvalidState, xerr.Code)
}

func (s *StatementTests) TestSQLPrepareGetParameterSchema() {
	stmt, err := s.Cnxn.NewStatement()
	s.NoError(err)
	defer CheckedClose(s.T(), stmt)

	query := "SELECT " + s.Quirks.BindParameter(0) + ", " + s.Quirks.BindParameter(1)
	s.NoError(stmt.SetSqlQuery(query))
	s.NoError(stmt.Prepare(s.ctx))

	sc, err := stmt.GetParameterSchema()
	if !s.Quirks.SupportsGetParameterSchema() {
		var xerr xdbc.Error
		s.ErrorAs(err, &xerr)
		s.Equal(xdbc.StatusNotImplemented, xerr.Code)
		return
	}
	s.NoError(err)

	// it's allowed to be nil as some systems don't provide param schemas
	if sc != nil {
		s.Len(sc.Fields(), 2)
	}
}

func (s *StatementTests) TestSQLPrepareSelectNoParams() {
	stmt, err := s.Cnxn.NewStatement()
	s.NoError(err)
	defer CheckedClose(s.T(), stmt)

	s.NoError(stmt.SetSqlQuery("SELECT 1"))
	s.NoError(stmt.Prepare(s.ctx))

	rdr, n, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	s.True(n == 1 || n == -1)
	defer rdr.Release()

	sc := rdr.Schema()
	s.Require().NotNil(sc)
	s.Len(sc.Fields(), 1)

	s.True(rdr.Next())
	rec := rdr.Record()
	s.EqualValues(1, rec.NumCols())
	s.EqualValues(1, rec.NumRows())

	switch arr := rec.Column(0).(type) {
	case *array.Int32:
		s.EqualValues(1, arr.Value(0))
	case *array.Int64:
		s.EqualValues(1, arr.Value(0))
	default:
		s.Failf("unexpected column type", "%s", arr.DataType())
	}

	s.False(rdr.Next())
}

func (s *StatementTests) TestSQLPrepareSelectParams() {
	stmt, err := s.Cnxn.NewStatement()
	s.Require().NoError(err)
	defer CheckedClose(s.T(), stmt)

	table := s.Quirks.StoredIdentifier("bind_test")
	rec := SampleRecord(s.Quirks.Alloc())
	defer rec.Release()
	s.Require().NoError(s.Quirks.CreateSampleTable(s.ctx, s.Cnxn, table, rec))

	s.NoError(stmt.SetSqlQuery("SELECT STRINGS FROM " + table + " WHERE INTS = " + s.Quirks.BindParameter(0)))
	s.NoError(stmt.Prepare(s.ctx))

	params, _, err := array.RecordFromJSON(s.Quirks.Alloc(), arrow.NewSchema([]arrow.Field{
		{Name: "p", Type: arrow.PrimitiveTypes.Int64},
	}, nil), jsonReader(`[{"p": 42}]`))
	s.Require().NoError(err)
	defer params.Release()
	s.Require().NoError(stmt.Bind(s.ctx, params))

	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	defer rdr.Release()
	s.Require().True(rdr.Next())
	out := rdr.Record()
	s.EqualValues(1, out.NumRows())
	s.Equal("foo", out.Column(0).(*array.String).Value(0))
	s.False(rdr.Next())
}

func (s *StatementTests) TestConcurrentStatements() {
	if !s.Quirks.SupportsConcurrentStatements() {
		s.T().Skip("driver does not support concurrent statements")
	}
	first, err := s.Cnxn.NewStatement()
	s.Require().NoError(err)
	defer CheckedClose(s.T(), first)
	second, err := s.Cnxn.NewStatement()
	s.Require().NoError(err)
	defer CheckedClose(s.T(), second)

	s.Require().NoError(first.SetSqlQuery("SELECT 1"))
	s.Require().NoError(second.SetSqlQuery("SELECT 2"))
	r1, _, err := first.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	defer r1.Release()
	r2, _, err := second.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	defer r2.Release()
	s.True(r1.Next())
	s.True(r2.Next())
}

func (s *StatementTests) TestCloseOnCompletion() {
	stmt, err := s.Cnxn.NewStatement()
	s.Require().NoError(err)
	coc, ok := stmt.(xdbc.StatementCloseOnCompletion)
	if !ok {
		s.NoError(stmt.Close())
		s.T().Skip("statement does not support close on completion")
	}
	s.Require().NoError(stmt.SetSqlQuery("SELECT 1"))
	s.Require().NoError(coc.CloseOnCompletion())
	on, err := coc.IsCloseOnCompletion()
	s.Require().NoError(err)
	s.True(on)

	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	for rdr.Next() {
	}
	s.False(coc.IsClosed())
	rdr.Release()
	s.True(coc.IsClosed())
	s.NoError(stmt.Close())
}
