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

package sqldriver

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/param"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

func getIsolationlevel(lvl sql.IsolationLevel) xdbc.OptionIsolationLevel {
	switch lvl {
	case sql.LevelDefault:
		return xdbc.LevelDefault
	case sql.LevelReadUncommitted:
		return xdbc.LevelReadUncommitted
	case sql.LevelReadCommitted:
		return xdbc.LevelReadCommitted
	case sql.LevelRepeatableRead:
		return xdbc.LevelRepeatableRead
	case sql.LevelSnapshot:
		return xdbc.LevelSnapshot
	case sql.LevelSerializable:
		return xdbc.LevelSerializable
	case sql.LevelLinearizable:
		return xdbc.LevelLinearizable
	}
	return ""
}

// parseConnectStr splits a DSN of the form key=value;key2=value2. Empty
// segments, such as a trailing semicolon, are ignored.
func parseConnectStr(str string) (ret map[string]string, err error) {
	ret = make(map[string]string)
	for _, kv := range strings.Split(str, ";") {
		if strings.TrimSpace(kv) == "" {
			continue
		}
		parsed := strings.SplitN(kv, "=", 2)
		if len(parsed) != 2 {
			return nil, xdbc.Error{
				Msg:  "invalid format for connection string",
				Code: xdbc.StatusInvalidArgument,
			}
		}

		ret[strings.TrimSpace(parsed[0])] = strings.TrimSpace(parsed[1])
	}
	return
}

type connector struct {
	db  xdbc.Database
	drv xdbc.Driver
}

// Connect opens a new xdbc connection. The sql package pools the
// connections it gets back, so nothing is cached here.
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	cnxn, err := c.db.Open(ctx)
	if err != nil {
		return nil, err
	}

	return &conn{Conn: cnxn, drv: c.db}, nil
}

// Driver returns the underlying Driver of the connector,
// mainly to maintain compatibility with the Driver method on sql.DB
func (c *connector) Driver() driver.Driver { return Driver{c.drv} }

// Close closes the database the connector opens connections from.
// sql.DB.Close calls it through io.Closer.
func (c *connector) Close() error {
	return c.db.Close()
}

// Driver adapts an xdbc.Driver to database/sql.
type Driver struct {
	Driver xdbc.Driver
}

// Open returns a new connection to the database. The name is a list of
// semicolon separated database options: key=value;key2=value2.
func (d Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}
	return connector.Connect(context.Background())
}

// OpenConnector expects the same format as driver.Open
func (d Driver) OpenConnector(name string) (driver.Connector, error) {
	opts, err := parseConnectStr(name)
	if err != nil {
		return nil, err
	}

	db, err := d.Driver.NewDatabase(opts)
	if err != nil {
		return nil, err
	}

	return &connector{db, d.Driver}, nil
}

// NewConnector wraps an already configured database. Closing the
// returned connector closes db.
func NewConnector(drv xdbc.Driver, db xdbc.Database) driver.Connector {
	return &connector{db: db, drv: drv}
}

type ctxOptsKey struct{}

// SetOptionsInCtx attaches statement options to ctx. Statements created
// for a query run with ctx set them before executing.
func SetOptionsInCtx(ctx context.Context, opts map[string]string) context.Context {
	return context.WithValue(ctx, ctxOptsKey{}, opts)
}

func GetOptionsFromCtx(ctx context.Context) map[string]string {
	v, ok := ctx.Value(ctxOptsKey{}).(map[string]string)
	if !ok {
		return nil
	}
	return v
}

// conn is a connection to a database. It is not used concurrently by
// multiple goroutines. It is assumed to be stateful.
type conn struct {
	Conn xdbc.Connection
	drv  xdbc.Database
}

// Connection returns the xdbc connection behind a driver connection
// handed out by sql.Conn.Raw.
func Connection(driverConn any) (xdbc.Connection, error) {
	c, ok := driverConn.(*conn)
	if !ok {
		return nil, xdbc.Error{
			Code: xdbc.StatusInvalidArgument,
			Msg:  "not a connection of this driver",
		}
	}
	return c.Conn, nil
}

// Prepare prepares query on the connection behind a driver connection
// handed out by sql.Conn.Raw. The caller owns the returned statement.
func Prepare(ctx context.Context, driverConn any, query string) (*Stmt, error) {
	c, ok := driverConn.(*conn)
	if !ok {
		return nil, xdbc.Error{
			Code: xdbc.StatusInvalidArgument,
			Msg:  "not a connection of this driver",
		}
	}
	return c.prepare(ctx, query)
}

// Close invalidates the connection together with its prepared
// statements and open transaction.
func (c *conn) Close() error {
	return c.Conn.Close()
}

func (c *conn) Query(query string, values []driver.Value) (driver.Rows, error) {
	namedValues := make([]driver.NamedValue, len(values))
	for i, value := range values {
		namedValues[i] = driver.NamedValue{
			Ordinal: i + 1,
			Value:   value,
		}
	}
	return c.QueryContext(context.Background(), query, namedValues)
}

func (c *conn) newStatement(ctx context.Context, query string) (xdbc.Statement, error) {
	s, err := c.Conn.NewStatement()
	if err != nil {
		return nil, err
	}
	for k, v := range GetOptionsFromCtx(ctx) {
		if err := s.SetOption(k, v); err != nil {
			return nil, errors.Join(err, s.Close())
		}
	}
	if err = s.SetSqlQuery(query); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	s, err := c.newStatement(ctx, query)
	if err != nil {
		return nil, err
	}

	st := &Stmt{stmt: s, oneShot: true}
	r, err := st.QueryContext(ctx, args)
	if err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return r, nil
}

func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	s, err := c.newStatement(ctx, query)
	if err != nil {
		return nil, err
	}

	res, err := (&Stmt{stmt: s}).ExecContext(ctx, args)
	return res, errors.Join(err, s.Close())
}

// CheckNamedValue accepts the same argument types as prepared
// statements do for queries run directly on the connection.
func (c *conn) CheckNamedValue(val *driver.NamedValue) error {
	return (&Stmt{}).CheckNamedValue(val)
}

// Begin exists to fulfill the Conn interface, but will return an error.
// Instead, the ConnBeginTx interface is implemented instead.
//
// Deprecated
func (c *conn) Begin() (driver.Tx, error) {
	return nil, xdbc.Error{Code: xdbc.StatusNotImplemented}
}

// BeginTx turns autocommit off for the life of the transaction. The
// isolation level and read-only flag are only sent to the connection
// when they differ from the defaults.
func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	postopt, ok := c.Conn.(xdbc.PostInitOptions)
	if !ok {
		return nil, xdbc.Error{Code: xdbc.StatusNotImplemented}
	}

	isolationLevel := getIsolationlevel(sql.IsolationLevel(opts.Isolation))
	if isolationLevel == "" {
		return nil, xdbc.Error{Code: xdbc.StatusNotImplemented}
	}
	if isolationLevel != xdbc.LevelDefault {
		if err := postopt.SetOption(xdbc.OptionKeyIsolationLevel, string(isolationLevel)); err != nil {
			return nil, err
		}
	}
	if opts.ReadOnly {
		if err := postopt.SetOption(xdbc.OptionKeyReadOnly, xdbc.OptionValueEnabled); err != nil {
			return nil, err
		}
	}
	if err := postopt.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled); err != nil {
		return nil, err
	}
	return tx{ctx: ctx, conn: c.Conn, readOnly: opts.ReadOnly}, nil
}

// Prepare returns a prepared statement, bound to this connection.
func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

// PrepareContext returns a prepared statement, bound to this connection.
// The context only covers preparation.
func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	return c.prepare(ctx, query)
}

func (c *conn) prepare(ctx context.Context, query string) (*Stmt, error) {
	s, err := c.newStatement(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := s.Prepare(ctx); err != nil {
		return nil, errors.Join(err, s.Close())
	}

	paramSchema, err := s.GetParameterSchema()
	var xdbcErr xdbc.Error
	if errors.As(err, &xdbcErr) {
		if xdbcErr.Code != xdbc.StatusNotImplemented {
			return nil, errors.Join(err, s.Close())
		}
	}

	return &Stmt{stmt: s, paramSchema: paramSchema}, nil
}

type tx struct {
	ctx      context.Context
	conn     xdbc.Connection
	readOnly bool
}

func (t tx) end(err error) error {
	if err != nil {
		return err
	}
	postopt := t.conn.(xdbc.PostInitOptions)
	if t.readOnly {
		if err := postopt.SetOption(xdbc.OptionKeyReadOnly, xdbc.OptionValueDisabled); err != nil {
			return err
		}
	}
	return postopt.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueEnabled)
}

func (t tx) Commit() error {
	return t.end(t.conn.Commit(t.ctx))
}

func (t tx) Rollback() error {
	return t.end(t.conn.Rollback(t.ctx))
}

// Stmt is a database/sql statement over an xdbc.Statement. Besides the
// driver.Stmt methods it implements xdbc.StatementCloseOnCompletion.
type Stmt struct {
	stmt        xdbc.Statement
	paramSchema *arrow.Schema
	// closed together with the rows of its only query
	oneShot bool
	closed  bool
}

func (s *Stmt) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stmt.Close()
}

// Unwrap returns the xdbc statement.
func (s *Stmt) Unwrap() xdbc.Statement { return s.stmt }

func (s *Stmt) completion() (xdbc.StatementCloseOnCompletion, error) {
	c, ok := s.stmt.(xdbc.StatementCloseOnCompletion)
	if !ok {
		return nil, xdbc.NewSQLError(xdbc.StatusNotImplemented, xdbc.StateFeatureNotSupported,
			"feature not implemented: closeOnCompletion")
	}
	return c, nil
}

// CloseOnCompletion makes the statement close once the rows of its
// last query are closed.
func (s *Stmt) CloseOnCompletion() error {
	c, err := s.completion()
	if err != nil {
		return err
	}
	return c.CloseOnCompletion()
}

func (s *Stmt) IsCloseOnCompletion() (bool, error) {
	c, err := s.completion()
	if err != nil {
		return false, err
	}
	return c.IsCloseOnCompletion()
}

func (s *Stmt) IsClosed() bool {
	if s.closed {
		return true
	}
	if c, ok := s.stmt.(xdbc.StatementCloseOnCompletion); ok {
		return c.IsClosed()
	}
	return false
}

func (s *Stmt) NumInput() int {
	if s.paramSchema == nil {
		return -1
	}

	return len(s.paramSchema.Fields())
}

func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, driver.ErrSkip
}

func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, driver.ErrSkip
}

// CheckNamedValue lets through every value the parameter binder
// accepts as an object. Anything else goes to the default converter.
// Named parameters must exist in the parameter schema.
func (s *Stmt) CheckNamedValue(val *driver.NamedValue) error {
	if val.Name != "" {
		if s.paramSchema == nil || !s.paramSchema.HasField(val.Name) {
			return xdbc.Error{
				Msg:  "could not find parameter named '" + val.Name + "'",
				Code: xdbc.StatusInvalidArgument,
			}
		}
	} else if s.paramSchema != nil && val.Ordinal > len(s.paramSchema.Fields()) {
		return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateInvalidParamIndex,
			"the parameter position '%d' is out of range, the number of parameters for this statement is %d",
			val.Ordinal, len(s.paramSchema.Fields()))
	}

	switch val.Value.(type) {
	case nil, string, bool, []byte, int, int8, int16, int32, int64, float32, float64,
		time.Time, convert.Decimal, *big.Int, *convert.Blob, *convert.Clob,
		param.Date, param.Time, param.Timestamp, param.Calendar:
		return nil
	}
	return driver.ErrSkip
}

// position maps a named or ordinal argument to its 1-based parameter
// position.
func (s *Stmt) position(v driver.NamedValue) int {
	if v.Name != "" && s.paramSchema != nil {
		if idx := s.paramSchema.FieldIndices(v.Name); len(idx) > 0 {
			return idx[0] + 1
		}
	}
	return v.Ordinal
}

// nullType is the declared type of parameter pos, VARCHAR if unknown.
func (s *Stmt) nullType(pos int) sqltypes.SQLType {
	if s.paramSchema == nil || pos > len(s.paramSchema.Fields()) {
		return sqltypes.Varchar
	}
	f := s.paramSchema.Field(pos - 1)
	if f.Type.ID() == arrow.NULL {
		return sqltypes.Varchar
	}
	return sqltypes.FromField(f).Type
}

func (s *Stmt) createBoundRecord(values []driver.NamedValue) (arrow.Record, error) {
	b := param.NewBinder(memory.DefaultAllocator, s.NumInput())
	for _, v := range values {
		pos := s.position(v)
		var err error
		if v.Value == nil {
			err = b.SetNull(pos, s.nullType(pos))
		} else {
			err = b.SetObject(pos, v.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return b.Record()
}

func (s *Stmt) bind(ctx context.Context, args []driver.NamedValue) error {
	if len(args) == 0 && s.NumInput() <= 0 {
		return nil
	}
	rec, err := s.createBoundRecord(args)
	if err != nil {
		return err
	}
	defer rec.Release()
	return s.stmt.Bind(ctx, rec)
}

func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if err := s.bind(ctx, args); err != nil {
		return nil, err
	}

	affected, err := s.stmt.ExecuteUpdate(ctx)
	if err != nil {
		return nil, err
	}

	return driver.RowsAffected(affected), nil
}

func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if err := s.bind(ctx, args); err != nil {
		return nil, err
	}

	rdr, affected, err := s.stmt.ExecuteQuery(ctx)
	if err != nil {
		return nil, err
	}

	return &rows{rdr: rdr, rowsAffected: affected, stmt: s}, nil
}

type rows struct {
	rdr          array.RecordReader
	curRow       int64
	curRecord    arrow.Record
	rowsAffected int64
	stmt         *Stmt
}

func (r *rows) Columns() (out []string) {
	out = make([]string, len(r.rdr.Schema().Fields()))
	for i, f := range r.rdr.Schema().Fields() {
		out[i] = f.Name
	}
	return
}

// Close releases the result. Statements created for a single query
// are closed with it.
func (r *rows) Close() error {
	if r.rdr == nil {
		return nil
	}
	r.curRecord = nil
	r.rdr.Release()
	r.rdr = nil

	var err error
	if r.stmt != nil && r.stmt.oneShot {
		err = r.stmt.Close()
	}
	r.stmt = nil
	return err
}

// driverValue converts v to one of the types database/sql scans from.
// Decimals travel as their exact string form.
func driverValue(v convert.Value) (driver.Value, error) {
	switch v.Kind() {
	case convert.KindNull:
		return nil, nil
	case convert.KindInt:
		return v.Int64()
	case convert.KindFloat:
		return v.Float64()
	case convert.KindDecimal, convert.KindBigInt:
		return v.Text()
	case convert.KindBool:
		return v.Bool()
	case convert.KindString:
		return v.Text()
	case convert.KindBytes:
		return v.Binary()
	case convert.KindDate:
		return v.DateOf()
	case convert.KindTime:
		return v.TimeOf()
	default:
		return v.TimestampOf()
	}
}

func (r *rows) Next(dest []driver.Value) error {
	if r.curRecord != nil && r.curRow == r.curRecord.NumRows() {
		r.curRecord = nil
	}

	for r.curRecord == nil {
		if !r.rdr.Next() {
			if err := r.rdr.Err(); err != nil {
				return err
			}
			return io.EOF
		}
		r.curRecord = r.rdr.Record()
		r.curRow = 0
		if r.curRecord.NumRows() == 0 {
			r.curRecord = nil
		}
	}

	for i, col := range r.curRecord.Columns() {
		row := int(r.curRow)
		if colUnion, ok := col.(array.Union); ok && !col.IsNull(row) {
			col = colUnion.Field(colUnion.ChildID(row))
			if dense, ok := colUnion.(*array.DenseUnion); ok {
				row = int(dense.ValueOffset(row))
			}
		}
		v, err := convert.FromArrow(col, row)
		if err != nil {
			return xdbc.Error{
				Code: xdbc.StatusNotImplemented,
				Msg:  "not yet implemented populating from columns of type " + col.DataType().String(),
			}
		}
		if dest[i], err = driverValue(v); err != nil {
			return err
		}
	}

	r.curRow++
	return nil
}

// ColumnTypeDatabaseTypeName reports the SQL type name when the driver
// described the column, and the Arrow type name otherwise.
func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	f := r.rdr.Schema().Field(index)
	if name, ok := f.Metadata.GetValue(sqltypes.MetaTypeName); ok {
		return name
	}
	return f.Type.String()
}

func (r *rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	return r.rdr.Schema().Field(index).Nullable, true
}

func (r *rows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	typ := r.rdr.Schema().Field(index).Type
	switch dt := typ.(type) {
	case *arrow.Decimal128Type:
		return int64(dt.Precision), int64(dt.Scale), true
	case *arrow.Decimal256Type:
		return int64(dt.Precision), int64(dt.Scale), true
	}
	return 0, 0, false
}

func (r *rows) ColumnTypeLength(index int) (length int64, ok bool) {
	f := r.rdr.Schema().Field(index)
	switch f.Type.ID() {
	case arrow.STRING, arrow.BINARY:
	default:
		return 0, false
	}
	if _, ok := f.Metadata.GetValue(sqltypes.MetaTypeName); !ok {
		return 0, false
	}
	return int64(sqltypes.FromField(f).ColumnSize()), true
}

func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	switch r.rdr.Schema().Field(index).Type.ID() {
	case arrow.BOOL:
		return reflect.TypeOf(false)
	case arrow.INT8, arrow.UINT8, arrow.INT16, arrow.UINT16,
		arrow.INT32, arrow.UINT32, arrow.INT64:
		return reflect.TypeOf(int64(0))
	case arrow.FLOAT32, arrow.FLOAT64:
		return reflect.TypeOf(float64(0))
	case arrow.DECIMAL128, arrow.STRING, arrow.LARGE_STRING:
		return reflect.TypeOf("")
	case arrow.BINARY, arrow.LARGE_BINARY:
		return reflect.TypeOf([]byte{})
	case arrow.TIME32, arrow.TIME64, arrow.DATE32, arrow.DATE64, arrow.TIMESTAMP:
		return reflect.TypeOf(time.Time{})
	}
	return nil
}
