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

package driverbase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ConnectionMessageOptionUnknown     = "Unknown connection option"
	ConnectionMessageOptionUnsupported = "Unsupported connection option"
	ConnectionMessageCannotCommit      = "Cannot commit when autocommit is enabled"
	ConnectionMessageCannotRollback    = "Cannot rollback when autocommit is enabled"
	ConnectionMessageClosed            = "Connection is closed"
)

// ConnectionImpl is an interface that drivers implement to provide
// vendor-specific functionality.
type ConnectionImpl interface {
	xdbc.Connection
	xdbc.GetSetOptions
	Base() *ConnectionImplBase
}

// CurrentNamespacer is an interface that drivers may implement to delegate
// stateful namespacing with DB catalogs and schemas. The appropriate (Get/Set)Options
// implementations will be provided using the results of these methods.
type CurrentNamespacer interface {
	GetCurrentCatalog() (string, error)
	GetCurrentDbSchema() (string, error)
	SetCurrentCatalog(string) error
	SetCurrentDbSchema(string) error
}

// DriverInfoPreparer is an interface that drivers may implement to add/update
// DriverInfo values whenever xdbc.Connection.GetInfo() is called.
type DriverInfoPreparer interface {
	PrepareDriverInfo(ctx context.Context, infoCodes []xdbc.InfoCode) error
}

// TableTypeLister is an interface that drivers may implement to simplify the
// implementation of xdbc.Connection.GetTableTypes() for backends that do not natively
// send these values as arrow records. The conversion of the result to a RecordReader
// is handled automatically.
type TableTypeLister interface {
	ListTableTypes(ctx context.Context) ([]string, error)
}

// AutocommitSetter is an interface that drivers may implement to simplify the
// implementation of autocommit state management. SetAutocommit should only
// attempt to update the autocommit state in the backend, committing any open
// transaction. Local driver state, savepoints included, is updated if the
// call does not produce an error.
type AutocommitSetter interface {
	SetAutocommit(enabled bool) error
}

// DbObjectsEnumerator is an interface that drivers may implement to simplify the
// implementation of xdbc.Connection.GetObjects(). By independently implementing lookup
// for catalogs, dbSchemas and tables, the driverbase is able to provide the full
// GetObjects functionality for arbitrary search patterns and lookup depth.
type DbObjectsEnumerator interface {
	GetObjectsCatalogs(ctx context.Context, catalog *string) ([]string, error)
	GetObjectsDbSchemas(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, schema *string) (map[string][]string, error)
	GetObjectsTables(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, schema *string, tableName *string, columnName *string, tableType []string) (map[internal.CatalogAndSchema][]internal.TableInfo, error)
}

// Connection is the interface satisfied by the result of the NewConnection constructor,
// given that an input is provided satisfying the ConnectionImpl interface.
type Connection interface {
	xdbc.Connection
	xdbc.GetSetOptions
	xdbc.ConnectionSavepoints
}

// ConnectionImplBase is a struct that provides default implementations of the
// ConnectionImpl interface. It is meant to be used as a composite struct for a
// driver's ConnectionImpl implementation.
type ConnectionImplBase struct {
	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	DriverInfo  *DriverInfo
	Logger      *slog.Logger
	Tracer      trace.Tracer
	Savepoints  *Savepoints

	Autocommit bool
	Closed     bool

	database    *DatabaseImplBase
	traceParent string
}

// NewConnectionImplBase instantiates ConnectionImplBase.
//
//   - database is a DatabaseImplBase containing the common resources from the parent
//     database, allowing the Arrow allocator, error handler, logger and tracer to be reused.
func NewConnectionImplBase(database *DatabaseImplBase) ConnectionImplBase {
	return ConnectionImplBase{
		Alloc:       database.Alloc,
		ErrorHelper: database.ErrorHelper,
		DriverInfo:  database.DriverInfo,
		Logger:      database.Logger,
		Tracer:      database.Tracer,
		Savepoints:  NewSavepoints(database.ErrorHelper),
		Autocommit:  true,
		Closed:      false,
		database:    database,
		traceParent: database.GetTraceParent(),
	}
}

func (base *ConnectionImplBase) Base() *ConnectionImplBase {
	return base
}

// CheckOpen fails with 08003 once the connection is closed.
func (base *ConnectionImplBase) CheckOpen() error {
	if base.Closed {
		return base.ErrorHelper.StateErrorf(xdbc.StateNoConnection, ConnectionMessageClosed)
	}
	return nil
}

func (base *ConnectionImplBase) Commit(ctx context.Context) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "Commit")
}

func (base *ConnectionImplBase) Rollback(context.Context) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "Rollback")
}

func (base *ConnectionImplBase) GetInfo(ctx context.Context, infoCodes []xdbc.InfoCode) (array.RecordReader, error) {
	if len(infoCodes) == 0 {
		infoCodes = base.DriverInfo.InfoSupportedCodes()
	}

	bldr := array.NewRecordBuilder(base.Alloc, xdbc.GetInfoSchema)
	defer bldr.Release()
	bldr.Reserve(len(infoCodes))

	infoNameBldr := bldr.Field(0).(*array.Uint32Builder)
	infoValueBldr := bldr.Field(1).(*array.DenseUnionBuilder)
	strInfoBldr := infoValueBldr.Child(int(xdbc.InfoValueStringType)).(*array.StringBuilder)
	intInfoBldr := infoValueBldr.Child(int(xdbc.InfoValueInt64Type)).(*array.Int64Builder)
	boolInfoBldr := infoValueBldr.Child(int(xdbc.InfoValueBooleanType)).(*array.BooleanBuilder)

	for _, code := range infoCodes {
		value, ok := base.DriverInfo.GetInfoForInfoCode(code)
		if !ok {
			// unrecognized codes are omitted
			continue
		}
		infoNameBldr.Append(uint32(code))

		// a nil value is reported as a null string
		if value == nil {
			infoValueBldr.Append(xdbc.InfoValueStringType)
			strInfoBldr.AppendNull()
			continue
		}

		switch v := value.(type) {
		case string:
			infoValueBldr.Append(xdbc.InfoValueStringType)
			strInfoBldr.Append(v)
		case int64:
			infoValueBldr.Append(xdbc.InfoValueInt64Type)
			intInfoBldr.Append(v)
		case bool:
			infoValueBldr.Append(xdbc.InfoValueBooleanType)
			boolInfoBldr.Append(v)
		default:
			return nil, fmt.Errorf("no defined type code for info_value of type %T", v)
		}
	}

	final := bldr.NewRecord()
	defer final.Release()
	return array.NewRecordReader(xdbc.GetInfoSchema, []arrow.Record{final})
}

func (base *ConnectionImplBase) Close() error {
	return nil
}

func (base *ConnectionImplBase) GetObjects(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, dbSchema *string, tableName *string, columnName *string, tableType []string) (array.RecordReader, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "GetObjects")
}

func (base *ConnectionImplBase) GetTableSchema(ctx context.Context, catalog *string, dbSchema *string, tableName string) (*arrow.Schema, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "GetTableSchema")
}

func (base *ConnectionImplBase) GetTableTypes(context.Context) (array.RecordReader, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "GetTableTypes")
}

func (base *ConnectionImplBase) NewStatement() (xdbc.Statement, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "NewStatement")
}

func (base *ConnectionImplBase) GetOption(key string) (string, error) {
	switch key {
	case xdbc.OptionKeyTelemetryTraceParent:
		return base.GetTraceParent(), nil
	}
	return "", base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) GetOptionBytes(key string) ([]byte, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) GetOptionDouble(key string) (float64, error) {
	return 0, base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) GetOptionInt(key string) (int64, error) {
	return 0, base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) SetOption(key string, val string) error {
	switch key {
	case xdbc.OptionKeyAutoCommit:
		return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", ConnectionMessageOptionUnsupported, key)
	case xdbc.OptionKeyTelemetryTraceParent:
		base.SetTraceParent(val)
		return nil
	}
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) SetOptionBytes(key string, val []byte) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) SetOptionDouble(key string, val float64) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) SetOptionInt(key string, val int64) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", ConnectionMessageOptionUnknown, key)
}

func (base *ConnectionImplBase) GetTraceParent() string {
	return base.traceParent
}

func (base *ConnectionImplBase) SetTraceParent(traceParent string) {
	base.traceParent = traceParent
}

func (base *ConnectionImplBase) StartSpan(
	ctx context.Context,
	spanName string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	ctx, _ = maybeAddTraceParent(ctx, base, nil)
	return base.Tracer.Start(ctx, spanName, opts...)
}

func (base *ConnectionImplBase) GetInitialSpanAttributes() []attribute.KeyValue {
	return getInitialSpanAttributes(base.DriverInfo)
}

type connection struct {
	ConnectionImpl

	dbObjectsEnumerator DbObjectsEnumerator
	currentNamespacer   CurrentNamespacer
	driverInfoPreparer  DriverInfoPreparer
	tableTypeLister     TableTypeLister
	autocommitSetter    AutocommitSetter
	savepointer         Savepointer
}

type ConnectionBuilder struct {
	connection *connection
}

func NewConnectionBuilder(impl ConnectionImpl) *ConnectionBuilder {
	return &ConnectionBuilder{connection: &connection{ConnectionImpl: impl}}
}

func (b *ConnectionBuilder) WithDbObjectsEnumerator(helper DbObjectsEnumerator) *ConnectionBuilder {
	if b == nil {
		panic("nil ConnectionBuilder: cannot reuse after calling Connection()")
	}
	b.connection.dbObjectsEnumerator = helper
	return b
}

func (b *ConnectionBuilder) WithCurrentNamespacer(helper CurrentNamespacer) *ConnectionBuilder {
	if b == nil {
		panic("nil ConnectionBuilder: cannot reuse after calling Connection()")
	}
	b.connection.currentNamespacer = helper
	return b
}

func (b *ConnectionBuilder) WithDriverInfoPreparer(helper DriverInfoPreparer) *ConnectionBuilder {
	if b == nil {
		panic("nil ConnectionBuilder: cannot reuse after calling Connection()")
	}
	b.connection.driverInfoPreparer = helper
	return b
}

func (b *ConnectionBuilder) WithAutocommitSetter(helper AutocommitSetter) *ConnectionBuilder {
	if b == nil {
		panic("nil ConnectionBuilder: cannot reuse after calling Connection()")
	}
	b.connection.autocommitSetter = helper
	return b
}

func (b *ConnectionBuilder) WithTableTypeLister(helper TableTypeLister) *ConnectionBuilder {
	if b == nil {
		panic("nil ConnectionBuilder: cannot reuse after calling Connection()")
	}
	b.connection.tableTypeLister = helper
	return b
}

func (b *ConnectionBuilder) WithSavepointer(helper Savepointer) *ConnectionBuilder {
	if b == nil {
		panic("nil ConnectionBuilder: cannot reuse after calling Connection()")
	}
	b.connection.savepointer = helper
	return b
}

func (b *ConnectionBuilder) Connection() Connection {
	conn := b.connection
	b.connection = nil
	return conn
}

// GetObjects implements Connection.
func (cnxn *connection) GetObjects(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, dbSchema *string, tableName *string, columnName *string, tableType []string) (array.RecordReader, error) {
	if err := cnxn.Base().CheckOpen(); err != nil {
		return nil, err
	}
	helper := cnxn.dbObjectsEnumerator

	// without an enumerator the driver provides its own GetObjects
	if helper == nil {
		return cnxn.ConnectionImpl.GetObjects(ctx, depth, catalog, dbSchema, tableName, columnName, tableType)
	}

	// result sets are assumed to fit in memory; one response avoids N+1 queries
	g := internal.GetObjects{Ctx: ctx, Depth: depth, Catalog: catalog, DbSchema: dbSchema, TableName: tableName, ColumnName: columnName, TableType: tableType}
	if err := g.Init(cnxn.Base().Alloc, helper.GetObjectsDbSchemas, helper.GetObjectsTables); err != nil {
		return nil, err
	}
	defer g.Release()

	catalogs, err := helper.GetObjectsCatalogs(ctx, catalog)
	if err != nil {
		return nil, err
	}

	for _, catalog := range catalogs {
		g.AppendCatalog(catalog)
	}

	// some backends report no catalogs but still have schemas
	if len(catalogs) == 0 && depth != xdbc.ObjectDepthCatalogs {
		g.AppendCatalog("")
	}
	return g.Finish()
}

func (cnxn *connection) GetOption(key string) (string, error) {
	switch key {
	case xdbc.OptionKeyAutoCommit:
		if cnxn.Base().Autocommit {
			return xdbc.OptionValueEnabled, nil
		}
		return xdbc.OptionValueDisabled, nil
	case xdbc.OptionKeyCurrentCatalog:
		if cnxn.currentNamespacer != nil {
			val, err := cnxn.currentNamespacer.GetCurrentCatalog()
			if err != nil {
				return "", cnxn.Base().ErrorHelper.Errorf(xdbc.StatusNotFound, "failed to get current catalog: %s", err)
			}
			return val, nil
		}
	case xdbc.OptionKeyCurrentDbSchema:
		if cnxn.currentNamespacer != nil {
			val, err := cnxn.currentNamespacer.GetCurrentDbSchema()
			if err != nil {
				return "", cnxn.Base().ErrorHelper.Errorf(xdbc.StatusNotFound, "failed to get current db schema: %s", err)
			}
			return val, nil
		}
	}
	return cnxn.ConnectionImpl.GetOption(key)
}

func (cnxn *connection) SetOption(key string, val string) error {
	switch key {
	case xdbc.OptionKeyAutoCommit:
		if cnxn.autocommitSetter != nil {
			var autocommit bool
			switch val {
			case xdbc.OptionValueEnabled:
				autocommit = true
			case xdbc.OptionValueDisabled:
				autocommit = false
			default:
				return cnxn.Base().ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "cannot set value %s for key %s", val, key)
			}
			if autocommit == cnxn.Base().Autocommit {
				return nil
			}

			if err := cnxn.autocommitSetter.SetAutocommit(autocommit); err != nil {
				return err
			}
			cnxn.Base().Autocommit = autocommit
			cnxn.Base().Savepoints.EndTransaction()
			return nil
		}
	case xdbc.OptionKeyCurrentCatalog:
		if cnxn.currentNamespacer != nil {
			return cnxn.currentNamespacer.SetCurrentCatalog(val)
		}
	case xdbc.OptionKeyCurrentDbSchema:
		if cnxn.currentNamespacer != nil {
			return cnxn.currentNamespacer.SetCurrentDbSchema(val)
		}
	}
	return cnxn.ConnectionImpl.SetOption(key, val)
}

func (cnxn *connection) GetInfo(ctx context.Context, infoCodes []xdbc.InfoCode) (array.RecordReader, error) {
	if cnxn.driverInfoPreparer != nil {
		if err := cnxn.driverInfoPreparer.PrepareDriverInfo(ctx, infoCodes); err != nil {
			return nil, err
		}
	}

	return cnxn.Base().GetInfo(ctx, infoCodes)
}

func (cnxn *connection) GetTableTypes(ctx context.Context) (array.RecordReader, error) {
	if cnxn.tableTypeLister == nil {
		return cnxn.ConnectionImpl.GetTableTypes(ctx)
	}

	tableTypes, err := cnxn.tableTypeLister.ListTableTypes(ctx)
	if err != nil {
		return nil, err
	}

	bldr := array.NewRecordBuilder(cnxn.Base().Alloc, xdbc.TableTypesSchema)
	defer bldr.Release()

	bldr.Field(0).(*array.StringBuilder).AppendValues(tableTypes, nil)
	final := bldr.NewRecord()
	defer final.Release()
	return array.NewRecordReader(xdbc.TableTypesSchema, []arrow.Record{final})
}

func (cnxn *connection) Commit(ctx context.Context) error {
	if cnxn.Base().Autocommit {
		return cnxn.Base().ErrorHelper.Errorf(xdbc.StatusInvalidState, ConnectionMessageCannotCommit)
	}
	if err := cnxn.ConnectionImpl.Commit(ctx); err != nil {
		return err
	}
	cnxn.Base().Savepoints.EndTransaction()
	return nil
}

func (cnxn *connection) Rollback(ctx context.Context) error {
	if cnxn.Base().Autocommit {
		return cnxn.Base().ErrorHelper.Errorf(xdbc.StatusInvalidState, ConnectionMessageCannotRollback)
	}
	if err := cnxn.ConnectionImpl.Rollback(ctx); err != nil {
		return err
	}
	cnxn.Base().Savepoints.EndTransaction()
	return nil
}

func (cnxn *connection) savepointsSupported() error {
	if err := cnxn.Base().CheckOpen(); err != nil {
		return err
	}
	if cnxn.savepointer == nil {
		return cnxn.Base().ErrorHelper.StateErrorf(xdbc.StateFeatureNotSupported, "Savepoints are not supported")
	}
	return nil
}

func (cnxn *connection) SetSavepoint(ctx context.Context) (xdbc.Savepoint, error) {
	if err := cnxn.savepointsSupported(); err != nil {
		return nil, err
	}
	return cnxn.Base().Savepoints.Set(ctx, cnxn.savepointer, cnxn.Base().Autocommit, nil, false)
}

func (cnxn *connection) SetNamedSavepoint(ctx context.Context, name *string) (xdbc.Savepoint, error) {
	if err := cnxn.savepointsSupported(); err != nil {
		return nil, err
	}
	return cnxn.Base().Savepoints.Set(ctx, cnxn.savepointer, cnxn.Base().Autocommit, name, true)
}

func (cnxn *connection) ReleaseSavepoint(ctx context.Context, sp xdbc.Savepoint) error {
	if err := cnxn.savepointsSupported(); err != nil {
		return err
	}
	return cnxn.Base().Savepoints.Release(ctx, cnxn.savepointer, cnxn.Base().Autocommit, sp)
}

func (cnxn *connection) RollbackToSavepoint(ctx context.Context, sp xdbc.Savepoint) error {
	if err := cnxn.savepointsSupported(); err != nil {
		return err
	}
	return cnxn.Base().Savepoints.RollbackTo(ctx, cnxn.savepointer, cnxn.Base().Autocommit, sp)
}

func (cnxn *connection) Close() error {
	if cnxn.Base().Closed {
		return cnxn.Base().ErrorHelper.Errorf(xdbc.StatusInvalidState, "Trying to close already closed connection")
	}

	err := cnxn.ConnectionImpl.Close()
	if err == nil {
		cnxn.Base().Closed = true
	}

	return err
}

var _ ConnectionImpl = (*ConnectionImplBase)(nil)
