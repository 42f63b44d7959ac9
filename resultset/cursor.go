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


// Package resultset provides a forward-only cursor with JDBC getter
// semantics over the Arrow record streams statements return.
package resultset

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

// Cursor walks the rows of a record stream. Column positions are
// 1-based. A Cursor is not safe for concurrent use.
type Cursor struct {
	rdr     array.RecordReader
	schema  *arrow.Schema
	decls   []sqltypes.Declared
	rec     arrow.Record
	row     int
	wasNull bool
	closed  bool
	onClose []func()
}

// New takes ownership of rdr.
func New(rdr array.RecordReader) *Cursor {
	sc := rdr.Schema()
	decls := make([]sqltypes.Declared, sc.NumFields())
	for i, f := range sc.Fields() {
		decls[i] = sqltypes.FromField(f)
	}
	return &Cursor{rdr: rdr, schema: sc, decls: decls, row: -1}
}

// OnClose registers fn to run once when the cursor is closed.
func (c *Cursor) OnClose(fn func()) { c.onClose = append(c.onClose, fn) }

func (c *Cursor) Schema() *arrow.Schema { return c.schema }

func (c *Cursor) ColumnCount() int { return len(c.decls) }

// ColumnType returns the declared type of column col.
func (c *Cursor) ColumnType(col int) (sqltypes.Declared, error) {
	if col < 1 || col > len(c.decls) {
		return sqltypes.Declared{}, badColumn(col, len(c.decls))
	}
	return c.decls[col-1], nil
}

// FindColumn maps a column label to its position, ignoring case.
func (c *Cursor) FindColumn(label string) (int, error) {
	for i, f := range c.schema.Fields() {
		if strings.EqualFold(f.Name, label) {
			return i + 1, nil
		}
	}
	return 0, xdbc.NewSQLError(xdbc.StatusNotFound, xdbc.StateInvalidColumnName,
		"column '%s' not found", label)
}

// Next advances to the next row and reports whether there is one.
// The cursor closes itself after the last row.
func (c *Cursor) Next() (bool, error) {
	if c.closed {
		return false, closedErr()
	}
	c.row++
	for c.rec == nil || c.row >= int(c.rec.NumRows()) {
		if !c.rdr.Next() {
			err := c.rdr.Err()
			return false, errors.Join(err, c.Close())
		}
		c.rec = c.rdr.Record()
		c.row = 0
	}
	return true, nil
}

// Close releases the stream. Closing twice is a no-op.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.rec = nil
	c.rdr.Release()
	for _, fn := range c.onClose {
		fn()
	}
	return nil
}

func (c *Cursor) IsClosed() bool { return c.closed }

// WasNull reports whether the last value read was NULL.
func (c *Cursor) WasNull() bool { return c.wasNull }

func (c *Cursor) value(g sqltypes.Getter, col int) (convert.Value, error) {
	if c.closed {
		return convert.Null(), closedErr()
	}
	if col < 1 || col > len(c.decls) {
		return convert.Null(), badColumn(col, len(c.decls))
	}
	if c.rec == nil {
		return convert.Null(), xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateNoCurrentRow,
			"invalid cursor state - no current row")
	}
	d := c.decls[col-1]
	if g == sqltypes.GetUnicodeStream {
		return convert.Null(), xdbc.NewSQLError(xdbc.StatusNotImplemented, xdbc.StateFeatureNotSupported,
			"feature not implemented: getUnicodeStream")
	}
	if !sqltypes.GetterAllowed(g, d.Type) {
		return convert.Null(), xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateTypeMismatch,
			"an attempt was made to get a data value of type '%s' from a data value of type '%s'",
			strings.TrimPrefix(g.String(), "get"), d.Type.TypeName())
	}
	v, err := convert.FromArrow(c.rec.Column(col-1), c.row)
	if err != nil {
		return convert.Null(), err
	}
	c.wasNull = v.IsNull()
	return v, nil
}

func (c *Cursor) GetByte(col int) (int8, error) {
	v, err := c.value(sqltypes.GetByte, col)
	if err != nil || v.IsNull() {
		return 0, err
	}
	return convert.Narrow[int8](v, "TINYINT")
}

func (c *Cursor) GetShort(col int) (int16, error) {
	v, err := c.value(sqltypes.GetShort, col)
	if err != nil || v.IsNull() {
		return 0, err
	}
	return convert.Narrow[int16](v, "SMALLINT")
}

func (c *Cursor) GetInt(col int) (int32, error) {
	v, err := c.value(sqltypes.GetInt, col)
	if err != nil || v.IsNull() {
		return 0, err
	}
	return convert.Narrow[int32](v, "INTEGER")
}

func (c *Cursor) GetLong(col int) (int64, error) {
	v, err := c.value(sqltypes.GetLong, col)
	if err != nil || v.IsNull() {
		return 0, err
	}
	return v.Int64()
}

func (c *Cursor) GetFloat(col int) (float32, error) {
	v, err := c.value(sqltypes.GetFloat, col)
	if err != nil || v.IsNull() {
		return 0, err
	}
	return v.Float32()
}

func (c *Cursor) GetDouble(col int) (float64, error) {
	v, err := c.value(sqltypes.GetDouble, col)
	if err != nil || v.IsNull() {
		return 0, err
	}
	return v.Float64()
}

// GetBigDecimal returns the value with its natural scale. NULL is
// reported as a zero Decimal with WasNull set.
func (c *Cursor) GetBigDecimal(col int) (convert.Decimal, error) {
	v, err := c.value(sqltypes.GetBigDecimal, col)
	if err != nil || v.IsNull() {
		return convert.Decimal{}, err
	}
	return v.Decimal()
}

func (c *Cursor) GetBoolean(col int) (bool, error) {
	v, err := c.value(sqltypes.GetBoolean, col)
	if err != nil || v.IsNull() {
		return false, err
	}
	return v.Bool()
}

func (c *Cursor) GetString(col int) (string, error) {
	v, err := c.value(sqltypes.GetString, col)
	if err != nil || v.IsNull() {
		return "", err
	}
	return v.Text()
}

func (c *Cursor) GetBytes(col int) ([]byte, error) {
	v, err := c.value(sqltypes.GetBytes, col)
	if err != nil || v.IsNull() {
		return nil, err
	}
	return v.Binary()
}

func (c *Cursor) GetDate(col int) (time.Time, error) {
	v, err := c.value(sqltypes.GetDate, col)
	if err != nil || v.IsNull() {
		return time.Time{}, err
	}
	return v.DateOf()
}

func (c *Cursor) GetTime(col int) (time.Time, error) {
	v, err := c.value(sqltypes.GetTime, col)
	if err != nil || v.IsNull() {
		return time.Time{}, err
	}
	return v.TimeOf()
}

func (c *Cursor) GetTimestamp(col int) (time.Time, error) {
	v, err := c.value(sqltypes.GetTimestamp, col)
	if err != nil || v.IsNull() {
		return time.Time{}, err
	}
	return v.TimestampOf()
}

func (c *Cursor) stream(g sqltypes.Getter, col int) (io.Reader, error) {
	v, err := c.value(g, col)
	if err != nil || v.IsNull() {
		return nil, err
	}
	if b, err := v.Binary(); err == nil {
		return bytes.NewReader(b), nil
	}
	s, err := v.Text()
	if err != nil {
		return nil, err
	}
	return strings.NewReader(s), nil
}

func (c *Cursor) GetAsciiStream(col int) (io.Reader, error) {
	return c.stream(sqltypes.GetAsciiStream, col)
}

func (c *Cursor) GetCharacterStream(col int) (io.Reader, error) {
	return c.stream(sqltypes.GetCharacterStream, col)
}

func (c *Cursor) GetBinaryStream(col int) (io.Reader, error) {
	return c.stream(sqltypes.GetBinaryStream, col)
}

// GetUnicodeStream is deprecated in JDBC and always fails.
func (c *Cursor) GetUnicodeStream(col int) (io.Reader, error) {
	return c.stream(sqltypes.GetUnicodeStream, col)
}

func (c *Cursor) GetClob(col int) (*convert.Clob, error) {
	v, err := c.value(sqltypes.GetClob, col)
	if err != nil || v.IsNull() {
		return nil, err
	}
	s, err := v.Text()
	if err != nil {
		return nil, err
	}
	return convert.NewClob(s), nil
}

func (c *Cursor) GetBlob(col int) (*convert.Blob, error) {
	v, err := c.value(sqltypes.GetBlob, col)
	if err != nil || v.IsNull() {
		return nil, err
	}
	b, err := v.Binary()
	if err != nil {
		return nil, err
	}
	return convert.NewBlob(b), nil
}

// Get reads col with getter g and returns the getter's result type
// boxed in an any.
func (c *Cursor) Get(g sqltypes.Getter, col int) (any, error) {
	switch g {
	case sqltypes.GetByte:
		return c.GetByte(col)
	case sqltypes.GetShort:
		return c.GetShort(col)
	case sqltypes.GetInt:
		return c.GetInt(col)
	case sqltypes.GetLong:
		return c.GetLong(col)
	case sqltypes.GetFloat:
		return c.GetFloat(col)
	case sqltypes.GetDouble:
		return c.GetDouble(col)
	case sqltypes.GetBigDecimal:
		return c.GetBigDecimal(col)
	case sqltypes.GetBoolean:
		return c.GetBoolean(col)
	case sqltypes.GetString:
		return c.GetString(col)
	case sqltypes.GetBytes:
		return c.GetBytes(col)
	case sqltypes.GetDate:
		return c.GetDate(col)
	case sqltypes.GetTime:
		return c.GetTime(col)
	case sqltypes.GetTimestamp:
		return c.GetTimestamp(col)
	case sqltypes.GetAsciiStream:
		return c.GetAsciiStream(col)
	case sqltypes.GetCharacterStream:
		return c.GetCharacterStream(col)
	case sqltypes.GetBinaryStream:
		return c.GetBinaryStream(col)
	case sqltypes.GetClob:
		return c.GetClob(col)
	case sqltypes.GetBlob:
		return c.GetBlob(col)
	default:
		return c.GetUnicodeStream(col)
	}
}

// GetObject returns the column value as the Go counterpart of the
// class getObject would return for its type: int32, int64, float32,
// float64, convert.Decimal, bool, string, []byte, time.Time,
// *convert.Clob or *convert.Blob. NULL is returned as nil.
func (c *Cursor) GetObject(col int) (any, error) {
	d, err := c.ColumnType(col)
	if err != nil {
		return nil, err
	}
	var g sqltypes.Getter
	switch sqltypes.ObjectClass(d.Type) {
	case sqltypes.ObjInteger:
		g = sqltypes.GetInt
	case sqltypes.ObjLong:
		g = sqltypes.GetLong
	case sqltypes.ObjFloat:
		g = sqltypes.GetFloat
	case sqltypes.ObjDouble:
		g = sqltypes.GetDouble
	case sqltypes.ObjBigDecimal:
		g = sqltypes.GetBigDecimal
	case sqltypes.ObjBoolean:
		g = sqltypes.GetBoolean
	case sqltypes.ObjString:
		g = sqltypes.GetString
	case sqltypes.ObjBytes:
		g = sqltypes.GetBytes
	case sqltypes.ObjDate:
		g = sqltypes.GetDate
	case sqltypes.ObjTime:
		g = sqltypes.GetTime
	case sqltypes.ObjTimestamp:
		g = sqltypes.GetTimestamp
	case sqltypes.ObjClob:
		g = sqltypes.GetClob
	default:
		g = sqltypes.GetBlob
	}
	v, err := c.Get(g, col)
	if err != nil || c.wasNull {
		return nil, err
	}
	return v, nil
}

func closedErr() error {
	return xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateCursorClosed, "ResultSet not open")
}

func badColumn(col, n int) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateInvalidColumnIndex,
		"the column position '%d' is out of range, the number of columns for this ResultSet is '%d'", col, n)
}
