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


// Package param binds statement parameters the way the JDBC setters
// do. A Binder collects one value per parameter position and produces
// the Arrow record handed to Statement.Bind. Each column carries the
// setter (and for setObject the argument class) that produced it, so
// the driver can apply the conversion rules of that setter.
package param

import (
	"fmt"
	"io"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

type slot struct {
	setter sqltypes.Setter
	object sqltypes.ObjectKind
	// the declared type passed to setNull
	null  sqltypes.SQLType
	dtype arrow.DataType
	value convert.Value
}

// Binder accumulates parameter values. Parameter positions are 1-based.
type Binder struct {
	mem   memory.Allocator
	count int
	slots []*slot
}

// NewBinder returns a Binder for a statement with count parameters.
// A negative count leaves the number of parameters open.
func NewBinder(mem memory.Allocator, count int) *Binder {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Binder{mem: mem, count: count}
}

func (b *Binder) put(i int, s *slot) error {
	if i < 1 || (b.count >= 0 && i > b.count) {
		return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateInvalidParamIndex,
			"the parameter position '%d' is out of range, the number of parameters for this statement is %d", i, b.count)
	}
	for len(b.slots) < i {
		b.slots = append(b.slots, nil)
	}
	b.slots[i-1] = s
	return nil
}

func (b *Binder) set(i int, setter sqltypes.Setter, dt arrow.DataType, v convert.Value) error {
	return b.put(i, &slot{setter: setter, dtype: dt, value: v})
}

func (b *Binder) SetByte(i int, v int8) error {
	return b.set(i, sqltypes.SetByte, arrow.PrimitiveTypes.Int8, convert.Int(int64(v)))
}

func (b *Binder) SetShort(i int, v int16) error {
	return b.set(i, sqltypes.SetShort, arrow.PrimitiveTypes.Int16, convert.Int(int64(v)))
}

func (b *Binder) SetInt(i int, v int32) error {
	return b.set(i, sqltypes.SetInt, arrow.PrimitiveTypes.Int32, convert.Int(int64(v)))
}

func (b *Binder) SetLong(i int, v int64) error {
	return b.set(i, sqltypes.SetLong, arrow.PrimitiveTypes.Int64, convert.Int(v))
}

func (b *Binder) SetFloat(i int, v float32) error {
	return b.set(i, sqltypes.SetFloat, arrow.PrimitiveTypes.Float32, convert.Float32(v))
}

func (b *Binder) SetDouble(i int, v float64) error {
	return b.set(i, sqltypes.SetDouble, arrow.PrimitiveTypes.Float64, convert.Float64(v))
}

func (b *Binder) SetBigDecimal(i int, v convert.Decimal) error {
	return b.set(i, sqltypes.SetBigDecimal, decimalType(v.Scale), convert.Dec(v))
}

func (b *Binder) SetBoolean(i int, v bool) error {
	return b.set(i, sqltypes.SetBoolean, arrow.FixedWidthTypes.Boolean, convert.Bool(v))
}

func (b *Binder) SetString(i int, v string) error {
	return b.set(i, sqltypes.SetString, arrow.BinaryTypes.String, convert.String(v))
}

func (b *Binder) SetBytes(i int, v []byte) error {
	return b.set(i, sqltypes.SetBytes, arrow.BinaryTypes.Binary, convert.Bytes(v))
}

func (b *Binder) SetDate(i int, v time.Time) error {
	return b.set(i, sqltypes.SetDate, arrow.FixedWidthTypes.Date32, convert.Date(v))
}

func (b *Binder) SetTime(i int, v time.Time) error {
	return b.set(i, sqltypes.SetTime, arrow.FixedWidthTypes.Time32s, convert.Time(v))
}

func (b *Binder) SetTimestamp(i int, v time.Time) error {
	return b.set(i, sqltypes.SetTimestamp, timestampType, convert.Timestamp(v))
}

// SetAsciiStream reads exactly length bytes from r. A negative length
// reads r to the end.
func (b *Binder) SetAsciiStream(i int, r io.Reader, length int) error {
	data, err := readStream(r, length)
	if err != nil {
		return err
	}
	return b.set(i, sqltypes.SetAsciiStream, arrow.BinaryTypes.String, convert.String(string(data)).AsLOB())
}

// SetCharacterStream reads exactly length characters from r.
func (b *Binder) SetCharacterStream(i int, r io.Reader, length int) error {
	data, err := readStream(r, -1)
	if err != nil {
		return err
	}
	if length >= 0 && utf8.RuneCount(data) != length {
		return streamLength(length)
	}
	return b.set(i, sqltypes.SetCharacterStream, arrow.BinaryTypes.String, convert.String(string(data)).AsLOB())
}

func (b *Binder) SetBinaryStream(i int, r io.Reader, length int) error {
	data, err := readStream(r, length)
	if err != nil {
		return err
	}
	return b.set(i, sqltypes.SetBinaryStream, arrow.BinaryTypes.Binary, convert.Bytes(data).AsLOB())
}

// SetUnicodeStream is deprecated in JDBC and not supported.
func (b *Binder) SetUnicodeStream(int, io.Reader, int) error {
	return xdbc.NewSQLError(xdbc.StatusNotImplemented, xdbc.StateFeatureNotSupported,
		"feature not implemented: setUnicodeStream")
}

func (b *Binder) SetClob(i int, v *convert.Clob) error {
	if v == nil {
		return b.SetNull(i, sqltypes.Clob)
	}
	return b.set(i, sqltypes.SetClob, arrow.BinaryTypes.String, convert.String(v.String()).AsLOB())
}

func (b *Binder) SetBlob(i int, v *convert.Blob) error {
	if v == nil {
		return b.SetNull(i, sqltypes.Blob)
	}
	data, _ := v.Bytes(1, int(v.Length()))
	return b.set(i, sqltypes.SetBlob, arrow.BinaryTypes.Binary, convert.Bytes(data).AsLOB())
}

// SetNull binds NULL declared as type t.
func (b *Binder) SetNull(i int, t sqltypes.SQLType) error {
	return b.put(i, &slot{setter: sqltypes.SetNull, null: t, dtype: sqltypes.ArrowType(sqltypes.Of(t))})
}

// Distinct argument types for SetObject where a Go type alone does not
// say which JDBC class is meant.
type (
	Date      time.Time
	Time      time.Time
	Timestamp time.Time
	// Calendar is a java.util.Calendar argument.
	Calendar time.Time
)

// SetObject binds v with the conversion rules of its class. time.Time
// stands for java.util.Date.
func (b *Binder) SetObject(i int, v any) error {
	var (
		kind sqltypes.ObjectKind
		dt   arrow.DataType
		val  convert.Value
	)
	switch v := v.(type) {
	case nil:
		return b.SetNull(i, sqltypes.Varchar)
	case string:
		kind, dt, val = sqltypes.ObjString, arrow.BinaryTypes.String, convert.String(v)
	case convert.Decimal:
		kind, dt, val = sqltypes.ObjBigDecimal, decimalType(v.Scale), convert.Dec(v)
	case bool:
		kind, dt, val = sqltypes.ObjBoolean, arrow.FixedWidthTypes.Boolean, convert.Bool(v)
	case int32:
		kind, dt, val = sqltypes.ObjInteger, arrow.PrimitiveTypes.Int32, convert.Int(int64(v))
	case int:
		kind, dt, val = sqltypes.ObjInteger, arrow.PrimitiveTypes.Int32, convert.Int(int64(v))
		if int64(v) != int64(int32(v)) {
			kind, dt = sqltypes.ObjLong, arrow.PrimitiveTypes.Int64
		}
	case int64:
		kind, dt, val = sqltypes.ObjLong, arrow.PrimitiveTypes.Int64, convert.Int(v)
	case float32:
		kind, dt, val = sqltypes.ObjFloat, arrow.PrimitiveTypes.Float32, convert.Float32(v)
	case float64:
		kind, dt, val = sqltypes.ObjDouble, arrow.PrimitiveTypes.Float64, convert.Float64(v)
	case []byte:
		kind, dt, val = sqltypes.ObjBytes, arrow.BinaryTypes.Binary, convert.Bytes(v)
	case Date:
		kind, dt, val = sqltypes.ObjDate, arrow.FixedWidthTypes.Date32, convert.Date(time.Time(v))
	case Time:
		kind, dt, val = sqltypes.ObjTime, arrow.FixedWidthTypes.Time32s, convert.Time(time.Time(v))
	case Timestamp:
		kind, dt, val = sqltypes.ObjTimestamp, timestampType, convert.Timestamp(time.Time(v))
	case *convert.Blob:
		data, _ := v.Bytes(1, int(v.Length()))
		kind, dt, val = sqltypes.ObjBlob, arrow.BinaryTypes.Binary, convert.Bytes(data).AsLOB()
	case *convert.Clob:
		kind, dt, val = sqltypes.ObjClob, arrow.BinaryTypes.String, convert.String(v.String()).AsLOB()
	case int8:
		kind, dt, val = sqltypes.ObjByte, arrow.PrimitiveTypes.Int8, convert.Int(int64(v))
	case int16:
		kind, dt, val = sqltypes.ObjShort, arrow.PrimitiveTypes.Int16, convert.Int(int64(v))
	case *big.Int:
		if v.BitLen() > 126 {
			return xdbc.NewSQLError(xdbc.StatusInvalidData, xdbc.StateNumericOutOfRange,
				"BigInteger value %s does not fit a DECIMAL(38,0) parameter", v)
		}
		kind, dt, val = sqltypes.ObjBigInteger, decimalType(0), convert.BigInteger(v)
	case time.Time:
		kind, dt, val = sqltypes.ObjUtilDate, timestampType, convert.Timestamp(v)
	case Calendar:
		kind, dt, val = sqltypes.ObjCalendar, timestampType, convert.Timestamp(time.Time(v))
	default:
		return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateTypeMismatch,
			"an object of type %T cannot be bound as a parameter", v)
	}
	return b.put(i, &slot{setter: sqltypes.SetObject, object: kind, dtype: dt, value: val})
}

// ClearParameters unsets every parameter.
func (b *Binder) ClearParameters() { b.slots = b.slots[:0] }

var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond}

func decimalType(scale int32) arrow.DataType {
	if scale < 0 {
		scale = 0
	}
	return &arrow.Decimal128Type{Precision: 38, Scale: scale}
}

func readStream(r io.Reader, length int) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	if length < 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, xdbc.Error{Code: xdbc.StatusIO, Msg: err.Error()}
		}
		return data, nil
	}
	data := make([]byte, length)
	n, err := io.ReadFull(r, data)
	if err != nil || n != length {
		return nil, streamLength(length)
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n > 0 {
		return nil, streamLength(length)
	}
	return data, nil
}

func streamLength(length int) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateStreamLength,
		"the input stream did not contain exactly the requested length %d", length)
}

// Record builds a one row record with a column per parameter, named
// p1, p2 and so on. Every parameter must have been set.
func (b *Binder) Record() (arrow.Record, error) {
	n := len(b.slots)
	if b.count >= 0 {
		n = b.count
	}
	fields := make([]arrow.Field, n)
	for i := 0; i < n; i++ {
		if i >= len(b.slots) || b.slots[i] == nil {
			return nil, xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateParamNotSet,
				"at least one parameter to the current statement is uninitialized (parameter %d)", i+1)
		}
		fields[i] = b.slots[i].field(i + 1)
	}

	bldr := array.NewRecordBuilder(b.mem, arrow.NewSchema(fields, nil))
	defer bldr.Release()
	for i := 0; i < n; i++ {
		if err := convert.Append(bldr.Field(i), b.slots[i].value); err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i+1, err)
		}
	}
	return bldr.NewRecord(), nil
}

func (s *slot) field(pos int) arrow.Field {
	keys := []string{xdbc.MetadataKeySetter}
	values := []string{s.setter.String()}
	switch s.setter {
	case sqltypes.SetObject:
		keys = append(keys, xdbc.MetadataKeyObject)
		values = append(values, s.object.String())
	case sqltypes.SetNull:
		keys = append(keys, sqltypes.MetaDataType)
		values = append(values, fmt.Sprint(int(s.null.Code())))
	}
	return arrow.Field{
		Name:     fmt.Sprintf("p%d", pos),
		Type:     s.dtype,
		Nullable: true,
		Metadata: arrow.NewMetadata(keys, values),
	}
}
