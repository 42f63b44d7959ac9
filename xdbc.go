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


// Package xdbc defines the Arrow-based driver interfaces that the
// conformance suites in package validation are written against.
//
// The interfaces follow the Arrow Database Connectivity model: a
// Driver creates a Database, a Database opens Connections and a
// Connection creates Statements. Results and bound parameters are
// exchanged as Arrow record batches. On top of that model xdbc adds
// the pieces of the JDBC contract that conformance checks need:
// SQLSTATE-carrying errors, savepoints, close-on-completion
// statements and typed parameter setters (see package sqltypes).
//
// In general, it's expected for objects to allow serialized access
// safely from multiple goroutines, but not necessarily concurrent
// access. Specific implementations may allow concurrent access.
package xdbc

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

//go:generate go run golang.org/x/tools/cmd/stringer -type Status -linecomment
//go:generate go run golang.org/x/tools/cmd/stringer -type InfoCode -linecomment

// ErrorDetail is additional driver-specific error metadata.
//
// Drivers use it to return structured information (for example the
// native error code of the engine underneath) without encoding it in
// the error message.
type ErrorDetail interface {
	// Key identifies the kind of detail.
	Key() string
	// Serialize the detail value to a byte array.
	Serialize() ([]byte, error)
}

// ProtobufErrorDetail is an ErrorDetail backed by a Protobuf message.
type ProtobufErrorDetail struct {
	Name    string
	Message proto.Message
}

func (d *ProtobufErrorDetail) Key() string {
	return d.Name
}

// Serialize serializes the Protobuf message (wrapped in Any).
func (d *ProtobufErrorDetail) Serialize() ([]byte, error) {
	any, err := anypb.New(d.Message)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(any)
}

// TextErrorDetail is an ErrorDetail backed by a human-readable string.
type TextErrorDetail struct {
	Name   string
	Detail string
}

func (d *TextErrorDetail) Key() string {
	return d.Name
}

func (d *TextErrorDetail) Serialize() ([]byte, error) {
	return []byte(d.Detail), nil
}

// BinaryErrorDetail is an ErrorDetail backed by a binary payload.
type BinaryErrorDetail struct {
	Name   string
	Detail []byte
}

func (d *BinaryErrorDetail) Key() string {
	return d.Name
}

func (d *BinaryErrorDetail) Serialize() ([]byte, error) {
	return d.Detail, nil
}

// Error is the detailed error for an operation
type Error struct {
	// Msg is a string representing a human readable error message
	Msg string
	// Code is the status representing this error
	Code Status
	// VendorCode is a vendor-specific error code, if applicable
	VendorCode int32
	// SqlState is a SQLSTATE error code, if provided. Derby specific
	// states (XJ010, 40XL1 and so on) are carried here too. If not
	// set, it will be "\0\0\0\0\0"
	SqlState [5]byte
	// Details is an array of additional driver-specific error details.
	Details []ErrorDetail
}

func (e Error) Error() string {
	if e.SqlState[0] != 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Msg, string(e.SqlState[:]))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// State returns the SQLSTATE as a string, or "" when none is set.
func (e Error) State() string {
	if e.SqlState[0] == 0 {
		return ""
	}
	return string(e.SqlState[:])
}

// Status represents an error code for operations that may fail
type Status uint8

const (
	// No Error
	StatusOK Status = iota // OK
	// An unknown error occurred.
	StatusUnknown // Unknown
	// The operation is not implemented or supported.
	StatusNotImplemented // Not Implemented
	// A requested resource was not found.
	StatusNotFound // Not Found
	// A requested resource already exists
	StatusAlreadyExists // Already Exists
	// The arguments are invalid, likely a programming error.
	//
	// For instance, they may be of the wrong format, or out of range.
	StatusInvalidArgument // Invalid Argument
	// The preconditions for the operation are not met, likely a
	// programming error.
	//
	// For instance, a savepoint was requested while autocommit is on.
	StatusInvalidState // Invalid State
	// Invalid data was processed (not a programming error)
	//
	// For instance, a numeric value did not fit the target column.
	StatusInvalidData // Invalid Data
	// The database's integrity was affected.
	StatusIntegrity // Integrity Issue
	// An error internal to the driver or database occurred.
	StatusInternal // Internal
	// An I/O error occurred.
	StatusIO // I/O
	// The operation was cancelled, not due to a timeout.
	StatusCancelled // Cancelled
	// The operation was cancelled due to a timeout, including lock
	// wait timeouts.
	StatusTimeout // Timeout
	// Authentication failed.
	StatusUnauthenticated // Unauthenticated
	// The client is not authorized to perform the given operation.
	StatusUnauthorized // Unauthorized
)

const (
	APIVersion1_0_0 int64 = 1_000_000
	APIVersion1_1_0 int64 = 1_001_000
)

// Canonical option values
const (
	OptionValueEnabled  = "true"
	OptionValueDisabled = "false"
	OptionKeyAutoCommit = "xdbc.connection.autocommit"
	// The current catalog.
	OptionKeyCurrentCatalog = "xdbc.connection.catalog"
	// The current schema.
	OptionKeyCurrentDbSchema          = "xdbc.connection.db_schema"
	OptionKeyIngestTargetTable        = "xdbc.ingest.target_table"
	OptionKeyIngestMode               = "xdbc.ingest.mode"
	OptionKeyIsolationLevel           = "xdbc.connection.transaction.isolation_level"
	OptionKeyReadOnly                 = "xdbc.connection.readonly"
	OptionValueIngestModeCreate       = "xdbc.ingest.mode.create"
	OptionValueIngestModeAppend       = "xdbc.ingest.mode.append"
	OptionValueIngestModeReplace      = "xdbc.ingest.mode.replace"
	OptionValueIngestModeCreateAppend = "xdbc.ingest.mode.create_append"
	OptionValueIngestTargetDBSchema   = "xdbc.ingest.target_db_schema"
	OptionKeyURI                      = "uri"
	OptionKeyUsername                 = "username"
	OptionKeyPassword                 = "password"
	// Sets/Gets the trace parent on OpenTelemetry traces
	OptionKeyTelemetryTraceParent = "xdbc.telemetry.trace_parent"
	// Statement option toggling close-on-completion ("true"/"false").
	OptionKeyCloseOnCompletion = "xdbc.statement.close_on_completion"
)

// Field metadata keys used on bound parameter schemas. They record
// which JDBC setter produced a column so that the driver can apply
// the matching conversion rules.
const (
	MetadataKeySetter = "xdbc.setter"
	MetadataKeyObject = "xdbc.object"
)

// Traces Telemetry exporter option type
type OptionTelemetryExporter string

// Traces Telemetry exporter options
const (
	TelemetryExporterNone    OptionTelemetryExporter = "none"
	TelemetryExporterOtlp    OptionTelemetryExporter = "otlp"
	TelemetryExporterConsole OptionTelemetryExporter = "console"
	TelemetryExporterFile    OptionTelemetryExporter = "xdbcfile"
)

type OptionIsolationLevel string

const (
	LevelDefault         OptionIsolationLevel = "xdbc.connection.transaction.isolation.default"
	LevelReadUncommitted OptionIsolationLevel = "xdbc.connection.transaction.isolation.read_uncommitted"
	LevelReadCommitted   OptionIsolationLevel = "xdbc.connection.transaction.isolation.read_committed"
	LevelRepeatableRead  OptionIsolationLevel = "xdbc.connection.transaction.isolation.repeatable_read"
	LevelSnapshot        OptionIsolationLevel = "xdbc.connection.transaction.isolation.snapshot"
	LevelSerializable    OptionIsolationLevel = "xdbc.connection.transaction.isolation.serializable"
	LevelLinearizable    OptionIsolationLevel = "xdbc.connection.transaction.isolation.linearizable"
)

// Table types reported by catalog queries.
const (
	TableTypeTable       = "TABLE"
	TableTypeSystemTable = "SYSTEM TABLE"
	TableTypeView        = "VIEW"
	TableTypeSynonym     = "SYNONYM"
)

// Driver is the entry point for the interface. It is similar to
// [database/sql.Driver] taking a map of keys and values as options
// to initialize a [Connection] to the database.
type Driver interface {
	NewDatabase(opts map[string]string) (Database, error)
}

type Database interface {
	SetOptions(map[string]string) error
	Open(ctx context.Context) (Connection, error)

	// Close closes this database and releases any associated resources.
	Close() error
}

type InfoCode uint32

const (
	// The database vendor/product name (type: utf8)
	InfoVendorName InfoCode = 0 // VendorName
	// The database vendor/product version (type: utf8)
	InfoVendorVersion InfoCode = 1 // VendorVersion
	// The database vendor/product Arrow library version (type: utf8)
	InfoVendorArrowVersion InfoCode = 2 // VendorArrowVersion
	// Indicates whether SQL queries are supported (type: bool).
	InfoVendorSql InfoCode = 3 // VendorSql
	// The driver name (type: utf8)
	InfoDriverName InfoCode = 100 // DriverName
	// The driver version (type: utf8)
	InfoDriverVersion InfoCode = 101 // DriverVersion
	// The driver Arrow library version (type: utf8)
	InfoDriverArrowVersion InfoCode = 102 // DriverArrowVersion
	// The driver API version (type: int64)
	InfoDriverAPIVersion InfoCode = 103 // DriverAPIVersion
	// Whether the driver supports savepoints (type: bool)
	InfoDriverSavepoints InfoCode = 10_001 // DriverSavepoints
	// The numeric functions usable in a {fn ...} escape, comma
	// separated (type: utf8)
	InfoDriverNumericFunctions InfoCode = 10_002 // DriverNumericFunctions
	// The string functions usable in a {fn ...} escape (type: utf8)
	InfoDriverStringFunctions InfoCode = 10_003 // DriverStringFunctions
)

type InfoValueTypeCode = arrow.UnionTypeCode

const (
	InfoValueStringType              InfoValueTypeCode = 0
	InfoValueBooleanType             InfoValueTypeCode = 1
	InfoValueInt64Type               InfoValueTypeCode = 2
	InfoValueInt32BitmaskType        InfoValueTypeCode = 3
	InfoValueStringListType          InfoValueTypeCode = 4
	InfoValueInt32ToInt32ListMapType InfoValueTypeCode = 5
)

type ObjectDepth int

const (
	ObjectDepthAll ObjectDepth = iota
	ObjectDepthCatalogs
	ObjectDepthDBSchemas
	ObjectDepthTables
	ObjectDepthColumns = ObjectDepthAll
)

// Connection is an active Database connection.
//
// Connections are not required to be safely accessible by concurrent
// goroutines.
type Connection interface {
	// Metadata methods return an array.RecordReader with the schemas
	// declared in standard_schemas.go.
	//
	// Some methods accept "search pattern" arguments: "%" matches zero
	// or more characters and "_" matches exactly one, as in the
	// DatabaseMetaData methods of JDBC. Matching is case sensitive and
	// escaping is not supported. See package pattern.

	// GetInfo returns metadata about the database/driver with schema
	// GetInfoSchema. Unrecognized codes are omitted from the result.
	GetInfo(ctx context.Context, infoCodes []InfoCode) (array.RecordReader, error)

	// GetObjects gets a hierarchical view of all catalogs, database
	// schemas, tables, and columns with schema GetObjectsSchema.
	//
	// For the parameters: If nil is passed, then that parameter will not
	// be filtered by at all. If an empty string, then only objects
	// without that property will be returned. tableName and columnName
	// must be either nil or non-empty.
	GetObjects(ctx context.Context, depth ObjectDepth, catalog, dbSchema, tableName, columnName *string, tableType []string) (array.RecordReader, error)

	GetTableSchema(ctx context.Context, catalog, dbSchema *string, tableName string) (*arrow.Schema, error)

	// GetTableTypes returns a list of the table types in the database
	// with schema TableTypesSchema.
	GetTableTypes(context.Context) (array.RecordReader, error)

	// Commit commits any pending transactions on this connection, it should
	// only be used if autocommit is disabled.
	Commit(context.Context) error

	// Rollback rolls back any pending transactions. Only used if autocommit
	// is disabled.
	Rollback(context.Context) error

	// NewStatement initializes a new statement object tied to this connection
	NewStatement() (Statement, error)

	// Close closes this connection and releases any associated resources.
	Close() error
}

// PostInitOptions is an optional interface which can be implemented by
// drivers which allow modifying and setting options after initializing
// a connection or statement.
type PostInitOptions interface {
	SetOption(key, value string) error
}

// Statement is a container for all state needed to execute a database
// query, such as the query itself, parameters for prepared statements,
// driver parameters, etc.
//
// Statements may be used multiple times and can be reconfigured.
// Executing a statement invalidates result sets obtained prior to
// that execution.
type Statement interface {
	// Close releases any relevant resources associated with this statement
	// and closes it (particularly if it is a prepared statement).
	Close() error

	// SetOption sets a string option on this statement
	SetOption(key, val string) error

	// SetSqlQuery sets the query string to be executed.
	SetSqlQuery(query string) error

	// ExecuteQuery executes the current query or prepared statement
	// and returns a RecordReader for the results along with the number
	// of rows affected if known, otherwise it will be -1.
	ExecuteQuery(context.Context) (array.RecordReader, int64, error)

	// ExecuteUpdate executes a statement that does not generate a result
	// set. It returns the number of rows affected if known, otherwise -1.
	//
	// When a stream of parameters is bound, the statement is executed
	// once per row and the total is returned. This is the batch
	// execution path.
	ExecuteUpdate(context.Context) (int64, error)

	// Prepare turns this statement into a prepared statement to be executed
	// multiple times. This invalidates any prior result sets.
	Prepare(context.Context) error

	// Bind uses an arrow record batch to bind parameters to the query.
	//
	// The driver will call release on the passed in Record when it is done,
	// but it may not do this until the statement is closed or another
	// record is bound.
	Bind(ctx context.Context, values arrow.Record) error

	// BindStream uses a record batch stream to bind parameters for this
	// query.
	BindStream(ctx context.Context, stream array.RecordReader) error

	// GetParameterSchema returns an Arrow schema representation of
	// the expected parameters to be bound. Fields carry the target
	// column's declared type in their metadata when it is known,
	// otherwise the type is NA (NullType).
	//
	// This should be called only after calling Prepare.
	GetParameterSchema() (*arrow.Schema, error)
}

// StatementExecuteSchema is a Statement that also supports ExecuteSchema.
type StatementExecuteSchema interface {
	// ExecuteSchema gets the schema of the result set of a query without executing it.
	ExecuteSchema(context.Context) (*arrow.Schema, error)
}

// GetSetOptions is a PostInitOptions that also supports getting and setting option values of different types.
//
// GetOption functions should return an error with StatusNotFound for unsupported options.
// SetOption functions should return an error with StatusNotImplemented for unsupported options.
type GetSetOptions interface {
	PostInitOptions

	SetOptionBytes(key string, value []byte) error
	SetOptionInt(key string, value int64) error
	SetOptionDouble(key string, value float64) error
	GetOption(key string) (string, error)
	GetOptionBytes(key string) ([]byte, error)
	GetOptionInt(key string) (int64, error)
	GetOptionDouble(key string) (float64, error)
}
