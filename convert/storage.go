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
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

// Layouts of the datetime types in storage.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

// Coerce converts v into a value of the column type d, applying its
// range, precision and length rules. The result's Kind is the natural
// one for d.
func Coerce(v Value, d sqltypes.Declared) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	t := d.Type
	switch {
	case t == sqltypes.TinyInt:
		n, err := Narrow[int8](v, t.TypeName())
		return Int(int64(n)), err
	case t == sqltypes.SmallInt:
		n, err := Narrow[int16](v, t.TypeName())
		return Int(int64(n)), err
	case t == sqltypes.Integer:
		n, err := Narrow[int32](v, t.TypeName())
		return Int(int64(n)), err
	case t == sqltypes.BigInt:
		n, err := Narrow[int64](v, t.TypeName())
		return Int(n), err
	case t == sqltypes.Real:
		f, err := v.Float32()
		if err == nil && (math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)) {
			err = outOfRange(t.TypeName(), FormatFloat(float64(f), 32))
		}
		return Float32(f), err
	case t.IsApproxNumeric():
		f, err := v.Float64()
		if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
			err = outOfRange(t.TypeName(), FormatFloat(f, 64))
		}
		return Float64(f), err
	case t == sqltypes.Decimal || t == sqltypes.Numeric:
		dec, err := v.DecimalOf(d.Precision, d.Scale)
		return Dec(dec), err
	case t == sqltypes.Boolean || t == sqltypes.Bit:
		b, err := v.boolLiteral()
		return Bool(b), err
	case t.IsCharacter():
		if v.kind == KindBytes {
			return Null(), mismatch(v.kind.sqlName(), t.TypeName())
		}
		s, err := v.Text()
		if err != nil {
			return Null(), err
		}
		s, err = fitText(s, d)
		return String(s), err
	case t == sqltypes.Clob:
		if v.kind != KindString {
			return Null(), mismatch(v.kind.sqlName(), t.TypeName())
		}
		s, err := fitText(v.s, d)
		return String(s), err
	case t.IsBinary() || t == sqltypes.Blob:
		if v.kind == KindString && !v.lob && t != sqltypes.Blob {
			b, err := fitBytes([]byte(v.s), d)
			return Bytes(b), err
		}
		b, err := v.Binary()
		if err != nil {
			return Null(), mismatch(v.kind.sqlName(), t.TypeName())
		}
		b, err = fitBytes(b, d)
		return Bytes(b), err
	case t == sqltypes.Date:
		tm, err := v.DateOf()
		return Date(tm), err
	case t == sqltypes.Time:
		tm, err := v.TimeOf()
		return Time(tm), err
	case t == sqltypes.Timestamp:
		tm, err := v.TimestampOf()
		return Timestamp(tm), err
	}
	return Null(), mismatch(v.kind.sqlName(), t.TypeName())
}

// fitText enforces the maximum length of a character column. Trailing
// blanks beyond the limit are dropped; anything else fails with
// 22001. CHAR values are blank padded.
func fitText(s string, d sqltypes.Declared) (string, error) {
	max := int(d.Length)
	n := utf8.RuneCountInString(s)
	if max > 0 && n > max {
		cut := 0
		for i := range s {
			if cut == max {
				if strings.Trim(s[i:], " ") != "" {
					return "", truncated(d.DDL(), max)
				}
				s, n = s[:i], max
				break
			}
			cut++
		}
	}
	if d.Type == sqltypes.Char && n < max {
		s += strings.Repeat(" ", max-n)
	}
	return s, nil
}

func fitBytes(b []byte, d sqltypes.Declared) ([]byte, error) {
	max := int(d.Length)
	if max > 0 && len(b) > max {
		if len(bytes.Trim(b[max:], " ")) != 0 {
			return nil, truncated(d.DDL(), max)
		}
		b = b[:max]
	}
	if d.Type == sqltypes.Binary && len(b) < max {
		b = append(append([]byte(nil), b...), bytes.Repeat([]byte{' '}, max-len(b))...)
	}
	return b, nil
}

// Storage returns the database/sql argument a coerced value is stored
// as.
func Storage(v Value) any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.dec.String()
	case KindBigInt:
		return v.big.String()
	case KindBool:
		if v.b {
			return int64(1)
		}
		return int64(0)
	case KindString:
		return v.s
	case KindBytes:
		return v.bs
	case KindDate:
		return v.t.Format(DateLayout)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindTimestamp:
		return v.t.Format(TimestampLayout)
	}
	return nil
}

// Load reads a value as returned by the database/sql driver for a
// column declared as d.
func Load(raw any, d sqltypes.Declared) (Value, error) {
	var v Value
	switch raw := raw.(type) {
	case nil:
		return Null(), nil
	case int64:
		v = Int(raw)
	case float64:
		v = Float64(raw)
	case bool:
		v = Bool(raw)
	case string:
		v = String(raw)
	case []byte:
		if d.Type.IsBinary() || d.Type == sqltypes.Blob {
			v = Bytes(append([]byte(nil), raw...))
		} else {
			v = String(string(raw))
		}
	case time.Time:
		v = Timestamp(raw)
	default:
		return Null(), fmt.Errorf("unsupported storage value %T", raw)
	}

	switch t := d.Type; {
	case t.IsCharacter() || t == sqltypes.Clob:
		s, err := v.Text()
		return String(s), err
	case t.IsBinary() || t == sqltypes.Blob:
		if v.kind == KindString {
			return Bytes([]byte(v.s)), nil
		}
	case t == sqltypes.Decimal || t == sqltypes.Numeric:
		if v.kind == KindFloat {
			n, err := decimal128.FromFloat64(v.f, 38, d.Scale)
			if err != nil {
				return Null(), outOfRange(t.TypeName(), FormatFloat(v.f, 64))
			}
			return Dec(Decimal{Num: n, Scale: d.Scale}), nil
		}
		dec, err := v.DecimalOf(38, d.Scale)
		return Dec(dec), err
	case t == sqltypes.Boolean || t == sqltypes.Bit:
		b, err := v.boolLiteral()
		return Bool(b), err
	}
	return Coerce(v, sqltypes.Declared{Type: d.Type, Length: 0, Precision: 38, Scale: d.Scale})
}
