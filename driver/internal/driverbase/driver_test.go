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

package driverbase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	OptionKeyRecognized   = "recognized"
	OptionKeyUnrecognized = "unrecognized"
)

// NewDriver creates a new xdbc.Driver for testing. Log records go to
// handler; useHelpers registers the optional connection helpers instead
// of relying on the driverbase defaults.
func NewDriver(alloc memory.Allocator, handler slog.Handler, useHelpers bool) xdbc.Driver {
	info := driverbase.DefaultDriverInfo("MockDriver")
	_ = info.RegisterInfoCode(xdbc.InfoCode(20_001), "my custom info")
	return driverbase.NewDriver(&driverImpl{DriverImplBase: driverbase.NewDriverImplBase(info, alloc), handler: handler, useHelpers: useHelpers})
}

func checkedClose(t *testing.T, c io.Closer) {
	require.NoError(t, c.Close())
}

func openConnection(t *testing.T, alloc memory.Allocator, handler slog.Handler, useHelpers bool) (xdbc.Database, xdbc.Connection) {
	drv := NewDriver(alloc, handler, useHelpers)
	db, err := drv.NewDatabase(nil)
	require.NoError(t, err)
	cnxn, err := db.Open(context.Background())
	require.NoError(t, err)
	return db, cnxn
}

func TestDefaultDriver(t *testing.T) {
	var handler MockedHandler
	handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

	ctx := context.TODO()
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	drv := NewDriver(alloc, &handler, false)

	db, err := drv.NewDatabase(nil)
	require.NoError(t, err)
	defer checkedClose(t, db)

	require.NoError(t, db.SetOptions(map[string]string{OptionKeyRecognized: "should-pass"}))

	err = db.SetOptions(map[string]string{OptionKeyUnrecognized: "should-fail"})
	require.Error(t, err)
	require.Equal(t, "Not Implemented: [MockDriver] Unknown database option 'unrecognized'", err.Error())

	cnxn, err := db.Open(ctx)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, cnxn.Close())
		require.Error(t, cnxn.Close())
	}()

	err = cnxn.Commit(ctx)
	require.Error(t, err)
	require.Equal(t, "Invalid State: [MockDriver] Cannot commit when autocommit is enabled", err.Error())

	err = cnxn.Rollback(ctx)
	require.Error(t, err)
	require.Equal(t, "Invalid State: [MockDriver] Cannot rollback when autocommit is enabled", err.Error())

	info := readInfo(t, cnxn, nil)
	assert.Equal(t, "MockDriver", info[xdbc.InfoVendorName])
	assert.Equal(t, "XDBC MockDriver Driver - Go", info[xdbc.InfoDriverName])
	assert.EqualValues(t, driverbase.DefaultInfoDriverAPIVersion, info[xdbc.InfoDriverAPIVersion])
	assert.Equal(t, "my custom info", info[xdbc.InfoCode(20_001)])
	assert.NotContains(t, info, xdbc.InfoDriverSavepoints)

	// unknown codes are skipped
	info = readInfo(t, cnxn, []xdbc.InfoCode{xdbc.InfoVendorName, xdbc.InfoCode(55_555)})
	assert.Len(t, info, 1)

	_, err = cnxn.GetObjects(ctx, xdbc.ObjectDepthAll, nil, nil, nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, "Not Implemented: [MockDriver] GetObjects", err.Error())

	_, err = cnxn.GetTableTypes(ctx)
	require.Error(t, err)
	require.Equal(t, "Not Implemented: [MockDriver] GetTableTypes", err.Error())

	autocommit, err := cnxn.(xdbc.GetSetOptions).GetOption(xdbc.OptionKeyAutoCommit)
	require.NoError(t, err)
	require.Equal(t, xdbc.OptionValueEnabled, autocommit)

	err = cnxn.(xdbc.GetSetOptions).SetOption(xdbc.OptionKeyAutoCommit, "false")
	require.Error(t, err)
	require.Equal(t, "Not Implemented: [MockDriver] Unsupported connection option 'xdbc.connection.autocommit'", err.Error())

	_, err = cnxn.(xdbc.GetSetOptions).GetOption(xdbc.OptionKeyCurrentCatalog)
	require.Error(t, err)
	require.Equal(t, "Not Found: [MockDriver] Unknown connection option 'xdbc.connection.catalog'", err.Error())

	// savepoints need a Savepointer
	_, err = cnxn.(xdbc.ConnectionSavepoints).SetSavepoint(ctx)
	require.Error(t, err)
	assert.Equal(t, xdbc.StateFeatureNotSupported, xdbc.SQLStateOf(err))

	assertLogged(t, &handler, logMessage{Message: "Opening a new connection", Level: "INFO", Attrs: map[string]string{"withHelpers": "false"}})
}

func TestCustomizedDriver(t *testing.T) {
	var handler MockedHandler
	handler.On("Handle", mock.Anything, mock.Anything).Return(nil)

	ctx := context.TODO()
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	db, cnxn := openConnection(t, alloc, &handler, true)
	defer checkedClose(t, db)
	defer checkedClose(t, cnxn)

	info := readInfo(t, cnxn, nil)
	assert.Equal(t, true, info[xdbc.InfoDriverSavepoints])
	assert.Equal(t, "this was fetched dynamically", info[xdbc.InfoCode(20_002)])

	tableTypes, err := cnxn.GetTableTypes(ctx)
	require.NoError(t, err)
	tableTypeTable := tableFromRecordReader(tableTypes)
	defer tableTypeTable.Release()
	expectedTableTypes, err := array.TableFromJSON(alloc, xdbc.TableTypesSchema, []string{`[
		{ "table_type": "TABLE" },
		{ "table_type": "VIEW" }
	]`})
	require.NoError(t, err)
	defer expectedTableTypes.Release()
	require.Truef(t, array.TableEqual(expectedTableTypes, tableTypeTable), "expected: %s\ngot: %s", expectedTableTypes, tableTypeTable)

	// depth DBSchemas stops before tables
	dbObjects, err := cnxn.GetObjects(ctx, xdbc.ObjectDepthDBSchemas, nil, nil, nil, nil, nil)
	require.NoError(t, err)
	dbObjectsTable := tableFromRecordReader(dbObjects)
	defer dbObjectsTable.Release()
	expectedDbObjects, err := array.TableFromJSON(alloc, xdbc.GetObjectsSchema, []string{`[
		{
			"catalog_name": "",
			"catalog_db_schemas": [
				{"db_schema_name": "APP"},
				{"db_schema_name": "SYS"}
			]
		}
	]`})
	require.NoError(t, err)
	defer expectedDbObjects.Release()
	require.Truef(t, array.TableEqual(expectedDbObjects, dbObjectsTable), "expected: %s\ngot: %s", expectedDbObjects, dbObjectsTable)

	// columns carry the SQL type metadata of the table schema
	tblName := "EMP%"
	dbObjects, err = cnxn.GetObjects(ctx, xdbc.ObjectDepthAll, nil, nil, &tblName, nil, nil)
	require.NoError(t, err)
	dbObjectsTable = tableFromRecordReader(dbObjects)
	defer dbObjectsTable.Release()
	require.EqualValues(t, 1, dbObjectsTable.NumRows())
	schemas := dbObjectsTable.Column(1).Data().Chunk(0).(*array.List)
	assert.Equal(t, 2, schemas.ListValues().Len())

	autocommit, err := cnxn.(xdbc.GetSetOptions).GetOption(xdbc.OptionKeyAutoCommit)
	require.NoError(t, err)
	require.Equal(t, xdbc.OptionValueEnabled, autocommit)

	require.NoError(t, cnxn.(xdbc.GetSetOptions).SetOption(xdbc.OptionKeyAutoCommit, "false"))
	err = cnxn.(xdbc.GetSetOptions).SetOption(xdbc.OptionKeyAutoCommit, "maybe")
	require.Error(t, err)

	// Commit is not implemented by the mock, but autocommit no longer blocks it
	err = cnxn.Commit(ctx)
	require.Error(t, err)
	require.Equal(t, "Not Implemented: [MockDriver] Commit", err.Error())

	_, err = cnxn.(xdbc.GetSetOptions).GetOption(xdbc.OptionKeyCurrentCatalog)
	require.Error(t, err)
	require.Equal(t, "Not Found: [MockDriver] failed to get current catalog: current catalog is not set", err.Error())

	require.NoError(t, cnxn.(xdbc.GetSetOptions).SetOption(xdbc.OptionKeyCurrentDbSchema, "APP"))
	currentDbSchema, err := cnxn.(xdbc.GetSetOptions).GetOption(xdbc.OptionKeyCurrentDbSchema)
	require.NoError(t, err)
	require.Equal(t, "APP", currentDbSchema)

	assertLogged(t, &handler,
		logMessage{Message: "Opening a new connection", Level: "INFO", Attrs: map[string]string{"withHelpers": "true"}},
		logMessage{Message: "SetAutocommit", Level: "DEBUG", Attrs: map[string]string{"enabled": "false"}},
		logMessage{Message: "SetCurrentDbSchema", Level: "DEBUG", Attrs: map[string]string{"val": "APP"}},
	)
}

func TestTraceParent(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	db, cnxn := openConnection(t, alloc, discard{}, true)
	defer checkedClose(t, db)
	defer checkedClose(t, cnxn)

	const parent = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	opts := cnxn.(xdbc.GetSetOptions)
	require.NoError(t, opts.SetOption(xdbc.OptionKeyTelemetryTraceParent, parent))
	got, err := opts.GetOption(xdbc.OptionKeyTelemetryTraceParent)
	require.NoError(t, err)
	assert.Equal(t, parent, got)

	stmt, err := cnxn.NewStatement()
	require.NoError(t, err)
	defer checkedClose(t, stmt)
	_, err = stmt.(xdbc.GetSetOptions).GetOption(xdbc.OptionKeyTelemetryTraceParent)
	require.NoError(t, err)

	// statement spans are children of the connection's parent
	ctx, span := stmt.(xdbc.OTelTracing).StartSpan(context.Background(), "probe")
	defer span.End()
	assert.NotNil(t, ctx)
}

func TestStatementCloseOnCompletion(t *testing.T) {
	ctx := context.Background()
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	db, cnxn := openConnection(t, alloc, discard{}, true)
	defer checkedClose(t, db)
	defer checkedClose(t, cnxn)

	t.Run("closes after last result", func(t *testing.T) {
		stmt, err := cnxn.NewStatement()
		require.NoError(t, err)
		coc := stmt.(xdbc.StatementCloseOnCompletion)

		on, err := coc.IsCloseOnCompletion()
		require.NoError(t, err)
		assert.False(t, on)
		require.NoError(t, coc.CloseOnCompletion())

		rdr1, _, err := stmt.ExecuteQuery(ctx)
		require.NoError(t, err)
		rdr2, _, err := stmt.ExecuteQuery(ctx)
		require.NoError(t, err)

		rdr1.Retain()
		rdr1.Release()
		rdr1.Release()
		assert.False(t, coc.IsClosed())

		for rdr2.Next() {
		}
		rdr2.Release()
		assert.True(t, coc.IsClosed())

		_, err = coc.IsCloseOnCompletion()
		assert.Equal(t, xdbc.StateStatementClosed, xdbc.SQLStateOf(err))
		assert.Equal(t, xdbc.StateStatementClosed, xdbc.SQLStateOf(coc.CloseOnCompletion()))
		_, _, err = stmt.ExecuteQuery(ctx)
		assert.Equal(t, xdbc.StateStatementClosed, xdbc.SQLStateOf(err))
		// closing again is a no-op
		require.NoError(t, stmt.Close())
	})

	t.Run("option form", func(t *testing.T) {
		stmt, err := cnxn.NewStatement()
		require.NoError(t, err)
		defer checkedClose(t, stmt)
		opts := stmt.(xdbc.GetSetOptions)

		require.NoError(t, opts.SetOption(xdbc.OptionKeyCloseOnCompletion, "true"))
		v, err := opts.GetOption(xdbc.OptionKeyCloseOnCompletion)
		require.NoError(t, err)
		assert.Equal(t, "true", v)
		require.NoError(t, opts.SetOption(xdbc.OptionKeyCloseOnCompletion, "false"))
		require.Error(t, opts.SetOption(xdbc.OptionKeyCloseOnCompletion, "sometimes"))

		rdr, _, err := stmt.ExecuteQuery(ctx)
		require.NoError(t, err)
		rdr.Release()
		assert.False(t, stmt.(xdbc.StatementCloseOnCompletion).IsClosed())
	})
}

type driverImpl struct {
	driverbase.DriverImplBase

	handler    slog.Handler
	useHelpers bool
}

func (drv *driverImpl) NewDatabase(opts map[string]string) (xdbc.Database, error) {
	return drv.NewDatabaseWithContext(context.Background(), opts)
}

func (drv *driverImpl) NewDatabaseWithContext(ctx context.Context, opts map[string]string) (xdbc.Database, error) {
	dbBase, err := driverbase.NewDatabaseImplBase(ctx, &drv.DriverImplBase)
	if err != nil {
		return nil, err
	}
	db := driverbase.NewDatabase(&databaseImpl{
		DatabaseImplBase: dbBase,
		useHelpers:       drv.useHelpers,
	})
	db.SetLogger(slog.New(drv.handler))
	return db, nil
}

type databaseImpl struct {
	driverbase.DatabaseImplBase

	useHelpers bool
}

func (d *databaseImpl) SetOptions(options map[string]string) error {
	for k, v := range options {
		if err := d.SetOption(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *databaseImpl) SetOption(key, value string) error {
	if key == OptionKeyRecognized {
		return nil
	}
	return d.DatabaseImplBase.SetOption(key, value)
}

func (d *databaseImpl) Open(ctx context.Context) (xdbc.Connection, error) {
	d.Logger.Info("Opening a new connection", "withHelpers", d.useHelpers)
	cnxn := &connectionImpl{ConnectionImplBase: driverbase.NewConnectionImplBase(&d.DatabaseImplBase)}
	bldr := driverbase.NewConnectionBuilder(cnxn)
	if d.useHelpers {
		return bldr.
			WithAutocommitSetter(cnxn).
			WithCurrentNamespacer(cnxn).
			WithTableTypeLister(cnxn).
			WithDriverInfoPreparer(cnxn).
			WithDbObjectsEnumerator(cnxn).
			WithSavepointer(&recordingSavepointer{}).
			Connection(), nil
	}
	return bldr.Connection(), nil
}

type connectionImpl struct {
	driverbase.ConnectionImplBase

	currentDbSchema string
}

func (c *connectionImpl) NewStatement() (xdbc.Statement, error) {
	return driverbase.NewStatement(&testStatement{
		StatementImplBase: driverbase.NewStatementImplBase(c.Base(), c.ErrorHelper),
		alloc:             c.Alloc,
	}), nil
}

func (c *connectionImpl) SetAutocommit(enabled bool) error {
	c.Logger.Debug("SetAutocommit", "enabled", enabled)
	return nil
}

func (c *connectionImpl) GetCurrentCatalog() (string, error) {
	return "", errors.New("current catalog is not set")
}

func (c *connectionImpl) GetCurrentDbSchema() (string, error) {
	if c.currentDbSchema == "" {
		return "", errors.New("current db schema is not set")
	}
	return c.currentDbSchema, nil
}

func (c *connectionImpl) SetCurrentCatalog(val string) error {
	return c.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "catalogs are fixed")
}

func (c *connectionImpl) SetCurrentDbSchema(val string) error {
	c.Logger.Debug("SetCurrentDbSchema", "val", val)
	c.currentDbSchema = val
	return nil
}

func (c *connectionImpl) ListTableTypes(ctx context.Context) ([]string, error) {
	return []string{"TABLE", "VIEW"}, nil
}

func (c *connectionImpl) PrepareDriverInfo(ctx context.Context, infoCodes []xdbc.InfoCode) error {
	if err := c.DriverInfo.RegisterInfoCode(xdbc.InfoDriverSavepoints, true); err != nil {
		return err
	}
	return c.DriverInfo.RegisterInfoCode(xdbc.InfoCode(20_002), "this was fetched dynamically")
}

var empSchema = arrow.NewSchema([]arrow.Field{
	sqltypes.Declared{Type: sqltypes.Integer}.Field("ID", false, 1),
	sqltypes.Declared{Type: sqltypes.Varchar, Length: 32}.Field("NAME", true, 2),
}, nil)

func (c *connectionImpl) GetObjectsCatalogs(ctx context.Context, catalog *string) ([]string, error) {
	return []string{""}, nil
}

func (c *connectionImpl) GetObjectsDbSchemas(ctx context.Context, depth xdbc.ObjectDepth, catalog, schema *string) (map[string][]string, error) {
	return map[string][]string{"": {"APP", "SYS"}}, nil
}

func (c *connectionImpl) GetObjectsTables(ctx context.Context, depth xdbc.ObjectDepth, catalog, schema, tableName, columnName *string, tableType []string) (map[internal.CatalogAndSchema][]internal.TableInfo, error) {
	re := internal.PatternToRegexp(tableName)
	out := map[internal.CatalogAndSchema][]internal.TableInfo{}
	for _, tbl := range []internal.TableInfo{{Name: "EMPLOYEE", TableType: "TABLE", Schema: empSchema}, {Name: "DEPT", TableType: "TABLE"}} {
		if re == nil || re.MatchString(tbl.Name) {
			key := internal.CatalogAndSchema{Schema: "APP"}
			out[key] = append(out[key], tbl)
		}
	}
	return out, nil
}

// recordingSavepointer stands in for a backend.
type recordingSavepointer struct {
	calls []string
	fail  error
}

func (r *recordingSavepointer) record(op, name string) error {
	if r.fail != nil {
		return r.fail
	}
	r.calls = append(r.calls, op+" "+name)
	return nil
}

func (r *recordingSavepointer) CreateSavepoint(_ context.Context, name string) error {
	return r.record("SAVEPOINT", name)
}

func (r *recordingSavepointer) ReleaseSavepoint(_ context.Context, name string) error {
	return r.record("RELEASE", name)
}

func (r *recordingSavepointer) RollbackToSavepoint(_ context.Context, name string) error {
	return r.record("ROLLBACK TO", name)
}

type testStatement struct {
	driverbase.StatementImplBase

	alloc memory.Allocator
}

func (st *testStatement) Base() *driverbase.StatementImplBase {
	return &st.StatementImplBase
}

func (st *testStatement) Close() error {
	st.MarkClosed()
	return nil
}

func (st *testStatement) ExecuteQuery(ctx context.Context) (array.RecordReader, int64, error) {
	if err := st.CheckOpen(); err != nil {
		return nil, -1, err
	}
	bldr := array.NewRecordBuilder(st.alloc, empSchema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int32Builder).Append(1)
	bldr.Field(1).(*array.StringBuilder).Append("ALICE")
	rec := bldr.NewRecord()
	defer rec.Release()
	rdr, err := array.NewRecordReader(empSchema, []arrow.Record{rec})
	if err != nil {
		return nil, -1, err
	}
	return st.TrackResult(rdr), 1, nil
}

func (st *testStatement) Bind(ctx context.Context, values arrow.Record) error {
	return st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "Bind")
}

func (st *testStatement) BindStream(ctx context.Context, stream array.RecordReader) error {
	return st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "BindStream")
}

func (st *testStatement) ExecuteSchema(ctx context.Context) (*arrow.Schema, error) {
	return empSchema, nil
}

func (st *testStatement) ExecuteUpdate(ctx context.Context) (int64, error) {
	return 0, st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "ExecuteUpdate")
}

func (st *testStatement) GetParameterSchema() (*arrow.Schema, error) {
	return nil, st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "GetParameterSchema")
}

func (st *testStatement) Prepare(ctx context.Context) error {
	return nil
}

func (st *testStatement) SetSqlQuery(query string) error {
	return nil
}

func readInfo(t *testing.T, cnxn xdbc.Connection, codes []xdbc.InfoCode) map[xdbc.InfoCode]any {
	rdr, err := cnxn.GetInfo(context.Background(), codes)
	require.NoError(t, err)
	defer rdr.Release()

	out := map[xdbc.InfoCode]any{}
	for rdr.Next() {
		rec := rdr.Record()
		names := rec.Column(0).(*array.Uint32)
		values := rec.Column(1).(*array.DenseUnion)
		for i := 0; i < int(rec.NumRows()); i++ {
			child := values.Field(values.ChildID(i))
			off := int(values.ValueOffset(i))
			var v any
			switch c := child.(type) {
			case *array.String:
				v = c.Value(off)
			case *array.Int64:
				v = c.Value(off)
			case *array.Boolean:
				v = c.Value(off)
			}
			out[xdbc.InfoCode(names.Value(i))] = v
		}
	}
	require.NoError(t, rdr.Err())
	return out
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }

type MockedHandler struct {
	mock.Mock
}

func (h *MockedHandler) Enabled(ctx context.Context, level slog.Level) bool { return true }
func (h *MockedHandler) WithAttrs(attrs []slog.Attr) slog.Handler           { return h }
func (h *MockedHandler) WithGroup(name string) slog.Handler                 { return h }
func (h *MockedHandler) Handle(ctx context.Context, r slog.Record) error {
	// timestamps make records nondeterministic; only the call is recorded
	args := h.Called(ctx, r)
	return args.Error(0)
}

type logMessage struct {
	Message string
	Level   string
	Attrs   map[string]string
}

func newLogMessage(r slog.Record) logMessage {
	message := logMessage{Message: r.Message, Level: r.Level.String(), Attrs: make(map[string]string)}
	r.Attrs(func(a slog.Attr) bool {
		message.Attrs[a.Key] = a.Value.String()
		return true
	})
	return message
}

func assertLogged(t *testing.T, handler *MockedHandler, expected ...logMessage) {
	t.Helper()
	var logged []logMessage
	for _, call := range handler.Calls {
		sr, ok := call.Arguments.Get(1).(slog.Record)
		require.True(t, ok)
		logged = append(logged, newLogMessage(sr))
	}
	for _, want := range expected {
		assert.Containsf(t, logged, want, "expected message was never logged: %v", want)
	}
}

func tableFromRecordReader(rdr array.RecordReader) arrow.Table {
	defer rdr.Release()

	var recs []arrow.Record
	for rdr.Next() {
		rec := rdr.Record()
		rec.Retain()
		defer rec.Release()
		recs = append(recs, rec)
	}
	return array.NewTableFromRecords(rdr.Schema(), recs)
}
