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


package convert

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// FromArrow reads row i of arr.
func FromArrow(arr arrow.Array, i int) (Value, error) {
	if arr.IsNull(i) {
		return Null(), nil
	}
	switch a := arr.(type) {
	case *array.Int8:
		return Int(int64(a.Value(i))), nil
	case *array.Int16:
		return Int(int64(a.Value(i))), nil
	case *array.Int32:
		return Int(int64(a.Value(i))), nil
	case *array.Int64:
		return Int(a.Value(i)), nil
	case *array.Uint8:
		return Int(int64(a.Value(i))), nil
	case *array.Uint16:
		return Int(int64(a.Value(i))), nil
	case *array.Uint32:
		return Int(int64(a.Value(i))), nil
	case *array.Float32:
		return Float32(a.Value(i)), nil
	case *array.Float64:
		return Float64(a.Value(i)), nil
	case *array.Decimal128:
		dt := a.DataType().(*arrow.Decimal128Type)
		return Dec(Decimal{Num: a.Value(i), Scale: dt.Scale}), nil
	case *array.Boolean:
		return Bool(a.Value(i)), nil
	case *array.String:
		return String(a.Value(i)), nil
	case *array.LargeString:
		return String(a.Value(i)), nil
	case *array.Binary:
		return Bytes(append([]byte(nil), a.Value(i)...)), nil
	case *array.LargeBinary:
		return Bytes(append([]byte(nil), a.Value(i)...)), nil
	case *array.Date32:
		return Date(a.Value(i).ToTime()), nil
	case *array.Date64:
		return Date(a.Value(i).ToTime()), nil
	case *array.Time32:
		return Time(a.Value(i).ToTime(a.DataType().(*arrow.Time32Type).Unit)), nil
	case *array.Time64:
		return Time(a.Value(i).ToTime(a.DataType().(*arrow.Time64Type).Unit)), nil
	case *array.Timestamp:
		return Timestamp(a.Value(i).ToTime(a.DataType().(*arrow.TimestampType).Unit)), nil
	}
	return Null(), fmt.Errorf("unsupported arrow type %s", arr.DataType())
}

// Append adds v to b, converting it to the builder's type.
func Append(b array.Builder, v Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}
	switch b := b.(type) {
	case *array.Int8Builder:
		n, err := Narrow[int8](v, "TINYINT")
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Int16Builder:
		n, err := Narrow[int16](v, "SMALLINT")
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Int32Builder:
		n, err := Narrow[int32](v, "INTEGER")
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Int64Builder:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		b.Append(n)
	case *array.Float32Builder:
		f, err := v.Float32()
		if err != nil {
			return err
		}
		b.Append(f)
	case *array.Float64Builder:
		f, err := v.Float64()
		if err != nil {
			return err
		}
		b.Append(f)
	case *array.Decimal128Builder:
		dt := b.Type().(*arrow.Decimal128Type)
		d, err := v.DecimalOf(dt.Precision, dt.Scale)
		if err != nil {
			return err
		}
		b.Append(d.Num)
	case *array.BooleanBuilder:
		x, err := v.Bool()
		if err != nil {
			return err
		}
		b.Append(x)
	case *array.StringBuilder:
		s, err := v.Text()
		if err != nil {
			return err
		}
		b.Append(s)
	case *array.BinaryBuilder:
		if v.kind == KindString {
			b.Append([]byte(v.s))
			return nil
		}
		bs, err := v.Binary()
		if err != nil {
			return err
		}
		b.Append(bs)
	case *array.Date32Builder:
		t, err := v.DateOf()
		if err != nil {
			return err
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.Time32Builder:
		t, err := v.TimeOf()
		if err != nil {
			return err
		}
		unit := b.Type().(*arrow.Time32Type).Unit
		secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
		if unit == arrow.Millisecond {
			secs *= 1000
		}
		b.Append(arrow.Time32(secs))
	case *array.TimestampBuilder:
		t, err := v.TimestampOf()
		if err != nil {
			return err
		}
		ts, err := arrow.TimestampFromTime(t, b.Type().(*arrow.TimestampType).Unit)
		if err != nil {
			return outOfRange("TIMESTAMP", FormatTimestamp(t))
		}
		b.Append(ts)
	default:
		return fmt.Errorf("unsupported arrow builder %T", b)
	}
	return nil
}
