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


// Package convert implements the value conversions between the
// client side setters and getters and the SQL column types: range and
// length checks, string parsing and formatting, and the SQLSTATE each
// failure maps to.
package convert

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/derby-conformance/go/xdbc"
)

// Kind is the representation a Value currently holds.
type Kind int8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindDecimal
	KindBigInt
	KindBool
	KindString
	KindBytes
	KindDate
	KindTime
	KindTimestamp
)

// Decimal is a fixed point number with up to 38 digits.
type Decimal struct {
	Num   decimal128.Num
	Scale int32
}

func (d Decimal) String() string { return d.Num.ToString(d.Scale) }

// Float64 returns the float64 nearest to the exact decimal value.
func (d Decimal) Float64() float64 {
	// a range error leaves f at ±Inf
	f, _ := strconv.ParseFloat(d.String(), 64)
	return f
}

// Value is a single SQL value in one of the Kind representations.
// The zero Value is NULL.
type Value struct {
	kind Kind
	// float32 source; controls string formatting
	single bool
	// the value came from a LOB or a stream setter
	lob bool

	i   int64
	f   float64
	dec Decimal
	big *big.Int
	b   bool
	s   string
	bs  []byte
	t   time.Time
}

func Null() Value                 { return Value{} }
func Int(v int64) Value           { return Value{kind: KindInt, i: v} }
func Float32(v float32) Value     { return Value{kind: KindFloat, f: float64(v), single: true} }
func Float64(v float64) Value     { return Value{kind: KindFloat, f: v} }
func Dec(v Decimal) Value         { return Value{kind: KindDecimal, dec: v} }
func BigInteger(v *big.Int) Value { return Value{kind: KindBigInt, big: new(big.Int).Set(v)} }
func Bool(v bool) Value           { return Value{kind: KindBool, b: v} }
func String(v string) Value       { return Value{kind: KindString, s: v} }
func Bytes(v []byte) Value        { return Value{kind: KindBytes, bs: v} }

// Date, Time and Timestamp values are civil times carried in UTC.
func Date(v time.Time) Value {
	y, m, d := v.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Time(v time.Time) Value {
	return Value{kind: KindTime, t: time.Date(1970, 1, 1, v.Hour(), v.Minute(), v.Second(), 0, time.UTC)}
}

func Timestamp(v time.Time) Value {
	y, m, d := v.Date()
	return Value{kind: KindTimestamp, t: time.Date(y, m, d, v.Hour(), v.Minute(), v.Second(), v.Nanosecond(), time.UTC)}
}

// AsLOB marks a character or binary value as coming from a stream or
// LOB setter.
func (v Value) AsLOB() Value {
	v.lob = true
	return v
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsLOB() bool  { return v.lob }

func (v Value) GoString() string {
	if v.kind == KindNull {
		return "NULL"
	}
	s, err := v.Text()
	if err != nil {
		return fmt.Sprintf("<%d>", v.kind)
	}
	return strconv.Quote(s)
}

// ParseDecimal reads a decimal literal, keeping its scale.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if _, ok := new(big.Float).SetString(s); !ok || strings.ContainsAny(s, "xXpP_") {
		return Decimal{}, invalidChar(s)
	}
	mant, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return Decimal{}, invalidChar(s)
		}
		mant, exp = s[:i], e
	}
	scale := 0
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		scale = len(mant) - i - 1
	}
	scale -= exp
	if scale < 0 {
		scale = 0
	}
	if scale > 38 {
		scale = 38
	}
	n, err := decimal128.FromString(s, 38, int32(scale))
	if err != nil {
		return Decimal{}, outOfRange("DECIMAL", s)
	}
	return Decimal{Num: n, Scale: int32(scale)}, nil
}

// FormatFloat renders v the way Java's Float.toString and
// Double.toString do: plain notation with at least one fraction digit
// for magnitudes in [1e-3, 1e7), computerized scientific otherwise.
func FormatFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}
	if a := math.Abs(v); a >= 1e-3 && a < 1e7 {
		s := strconv.FormatFloat(v, 'f', -1, bitSize)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(v, 'E', -1, bitSize)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	neg := strings.HasPrefix(exp, "-")
	exp = strings.TrimLeft(exp, "+-0")
	if neg {
		exp = "-" + exp
	}
	return mant + "E" + exp
}

// FormatTimestamp renders t as java.sql.Timestamp.toString does.
func FormatTimestamp(t time.Time) string {
	s := t.Format("2006-01-02 15:04:05")
	frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond()), "0")
	if frac == "" {
		frac = "0"
	}
	return s + "." + frac
}

var (
	dateLayouts = []string{"2006-01-02", "01/02/2006", "02.01.2006"}
	timeLayouts = []string{"15:04:05", "15.04.05", "15:04"}
	tsLayouts   = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02-15.04.05.999999999",
		"2006-01-02 15:04",
	}
)

func parseLayouts(layouts []string, s string) (time.Time, bool) {
	for _, l := range layouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func invalidChar(s string) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidData, xdbc.StateInvalidCharFormat,
		"invalid character string format for type: %q", s)
}

func outOfRange(target, v string) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidData, xdbc.StateNumericOutOfRange,
		"the resulting value is outside the range for the data type %s: %s", target, v)
}

func badDatetime(s string) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidData, xdbc.StateInvalidDatetime,
		"the syntax of the string representation of a date/time value is incorrect: %q", s)
}

func mismatch(from, to string) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateTypeMismatch,
		"an attempt was made to get a data value of type '%s' from a data value of type '%s'", to, from)
}

func truncated(target string, n int) error {
	return xdbc.NewSQLError(xdbc.StatusInvalidData, xdbc.StateStringTruncation,
		"a truncation error was encountered trying to shrink %s to length %d", target, n)
}

func (k Kind) sqlName() string {
	switch k {
	case KindInt:
		return "BIGINT"
	case KindFloat:
		return "DOUBLE"
	case KindDecimal:
		return "DECIMAL"
	case KindBigInt:
		return "java.math.BigInteger"
	case KindBool:
		return "BOOLEAN"
	case KindString:
		return "VARCHAR"
	case KindBytes:
		return "VARCHAR () FOR BIT DATA"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	case KindTimestamp:
		return "TIMESTAMP"
	}
	return "NULL"
}
