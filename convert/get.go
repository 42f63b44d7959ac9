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
	"encoding/hex"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unsafe"

	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"golang.org/x/exp/constraints"
)

// Narrow converts v to the signed integer type T. Fractions are
// truncated; values outside T's range fail with 22003.
func Narrow[T constraints.Signed](v Value, target string) (T, error) {
	bits := uint(unsafe.Sizeof(T(0))) * 8
	lo := int64(-1) << (bits - 1)
	hi := -(lo + 1)
	n, err := v.integer(lo, hi, target)
	return T(n), err
}

// Int64 is Narrow[int64].
func (v Value) Int64() (int64, error) { return Narrow[int64](v, "BIGINT") }

func (v Value) integer(lo, hi int64, target string) (int64, error) {
	switch v.kind {
	case KindInt:
		if v.i < lo || v.i > hi {
			return 0, outOfRange(target, strconv.FormatInt(v.i, 10))
		}
		return v.i, nil
	case KindFloat:
		t := math.Trunc(v.f)
		if math.IsNaN(t) || t < float64(lo) || t >= -float64(lo) {
			return 0, outOfRange(target, FormatFloat(v.f, 64))
		}
		return int64(t), nil
	case KindDecimal:
		return bigInRange(v.dec.Num.ReduceScaleBy(v.dec.Scale, false).BigInt(), lo, hi, target)
	case KindBigInt:
		return bigInRange(v.big, lo, hi, target)
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		if v.lob {
			break
		}
		s := strings.TrimSpace(v.s)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, outOfRange(target, s)
			}
			return 0, invalidChar(s)
		}
		return Int(n).integer(lo, hi, target)
	}
	return 0, mismatch(v.kind.sqlName(), target)
}

func bigInRange(n *big.Int, lo, hi int64, target string) (int64, error) {
	if !n.IsInt64() || n.Int64() < lo || n.Int64() > hi {
		return 0, outOfRange(target, n.String())
	}
	return n.Int64(), nil
}

// Float64 converts v to a double.
func (v Value) Float64() (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	case KindDecimal:
		return v.dec.Float64(), nil
	case KindBigInt:
		f, _ := new(big.Float).SetInt(v.big).Float64()
		return f, nil
	case KindBool:
		if v.b {
			return 1, nil
		}
		return 0, nil
	case KindString:
		if v.lob {
			break
		}
		s := strings.TrimSpace(v.s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, outOfRange("DOUBLE", s)
			}
			return 0, invalidChar(s)
		}
		return f, nil
	}
	return 0, mismatch(v.kind.sqlName(), "DOUBLE")
}

// Float32 converts v to a real; magnitudes beyond float32 fail with 22003.
func (v Value) Float32() (float32, error) {
	f, err := v.Float64()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
		return 0, outOfRange("REAL", FormatFloat(f, 64))
	}
	return float32(f), nil
}

// Decimal returns v as a decimal with its natural scale.
func (v Value) Decimal() (Decimal, error) {
	switch v.kind {
	case KindInt:
		return Decimal{Num: decimal128.FromI64(v.i)}, nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return Decimal{}, outOfRange("DECIMAL", FormatFloat(v.f, 64))
		}
		bits := 64
		if v.single {
			bits = 32
		}
		return ParseDecimal(strconv.FormatFloat(v.f, 'f', -1, bits))
	case KindDecimal:
		return v.dec, nil
	case KindBigInt:
		if v.big.BitLen() > 126 {
			return Decimal{}, outOfRange("DECIMAL", v.big.String())
		}
		return Decimal{Num: decimal128.FromBigInt(v.big)}, nil
	case KindBool:
		if v.b {
			return Decimal{Num: decimal128.FromU64(1)}, nil
		}
		return Decimal{}, nil
	case KindString:
		if v.lob {
			break
		}
		return ParseDecimal(v.s)
	}
	return Decimal{}, mismatch(v.kind.sqlName(), "DECIMAL")
}

// DecimalOf converts v to DECIMAL(prec, scale). Excess fraction digits
// are truncated; integral digits that do not fit fail with 22003.
func (v Value) DecimalOf(prec, scale int32) (Decimal, error) {
	d, err := v.Decimal()
	if err != nil {
		return Decimal{}, err
	}
	if prec < 1 || prec > 38 {
		prec = 38
	}
	n := d.Num
	switch {
	case d.Scale > scale:
		n = n.ReduceScaleBy(d.Scale-scale, false)
	case d.Scale < scale:
		up := scale - d.Scale
		if up >= 38 || !n.FitsInPrecision(38-up) {
			return Decimal{}, outOfRange("DECIMAL", d.String())
		}
		n = n.IncreaseScaleBy(up)
	}
	if !n.FitsInPrecision(prec) {
		return Decimal{}, outOfRange("DECIMAL", d.String())
	}
	return Decimal{Num: n, Scale: scale}, nil
}

// Bool converts v to a boolean. Strings are false when they read "0"
// or "false" in any case, and true otherwise.
func (v Value) Bool() (bool, error) {
	switch v.kind {
	case KindString:
		if v.lob {
			break
		}
		s := strings.TrimSpace(v.s)
		return !(s == "0" || strings.EqualFold(s, "false")), nil
	case KindBool:
		return v.b, nil
	case KindInt:
		return v.i != 0, nil
	case KindFloat:
		return v.f != 0, nil
	case KindDecimal:
		return v.dec.Num.Sign() != 0, nil
	case KindBigInt:
		return v.big.Sign() != 0, nil
	}
	return false, mismatch(v.kind.sqlName(), "BOOLEAN")
}

// boolLiteral is the stricter rule applied when storing into a BOOLEAN
// column: only the boolean literals and 0/1 are accepted.
func (v Value) boolLiteral() (bool, error) {
	if v.kind != KindString {
		return v.Bool()
	}
	switch s := strings.ToLower(strings.TrimSpace(v.s)); s {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, invalidChar(v.s)
	}
}

// Text renders v as a character string.
func (v Value) Text() (string, error) {
	switch v.kind {
	case KindString:
		return v.s, nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		if v.single {
			return FormatFloat(v.f, 32), nil
		}
		return FormatFloat(v.f, 64), nil
	case KindDecimal:
		return v.dec.String(), nil
	case KindBigInt:
		return v.big.String(), nil
	case KindBool:
		return strconv.FormatBool(v.b), nil
	case KindBytes:
		return hex.EncodeToString(v.bs), nil
	case KindDate:
		return v.t.Format("2006-01-02"), nil
	case KindTime:
		return v.t.Format("15:04:05"), nil
	case KindTimestamp:
		return FormatTimestamp(v.t), nil
	}
	return "", mismatch(v.kind.sqlName(), "VARCHAR")
}

// Binary returns the bytes of a binary value.
func (v Value) Binary() ([]byte, error) {
	if v.kind == KindBytes {
		return v.bs, nil
	}
	return nil, mismatch(v.kind.sqlName(), "VARCHAR () FOR BIT DATA")
}

// DateOf converts v to a DATE.
func (v Value) DateOf() (time.Time, error) {
	switch v.kind {
	case KindDate:
		return v.t, nil
	case KindTimestamp:
		return Date(v.t).t, nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if t, ok := parseLayouts(dateLayouts, s); ok {
			return t, nil
		}
		if t, ok := parseLayouts(tsLayouts, s); ok {
			return Date(t).t, nil
		}
		return time.Time{}, badDatetime(s)
	}
	return time.Time{}, mismatch(v.kind.sqlName(), "DATE")
}

// TimeOf converts v to a TIME on 1970-01-01.
func (v Value) TimeOf() (time.Time, error) {
	switch v.kind {
	case KindTime:
		return v.t, nil
	case KindTimestamp:
		return Time(v.t).t, nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if t, ok := parseLayouts(timeLayouts, s); ok {
			return Time(t).t, nil
		}
		if t, ok := parseLayouts(tsLayouts, s); ok {
			return Time(t).t, nil
		}
		return time.Time{}, badDatetime(s)
	}
	return time.Time{}, mismatch(v.kind.sqlName(), "TIME")
}

// TimestampOf converts v to a TIMESTAMP. A TIME is placed on
// 1970-01-01.
func (v Value) TimestampOf() (time.Time, error) {
	switch v.kind {
	case KindTimestamp, KindDate, KindTime:
		return v.t, nil
	case KindString:
		s := strings.TrimSpace(v.s)
		if t, ok := parseLayouts(tsLayouts, s); ok {
			return t, nil
		}
		if t, ok := parseLayouts(dateLayouts, s); ok {
			return t, nil
		}
		return time.Time{}, badDatetime(s)
	}
	return time.Time{}, mismatch(v.kind.sqlName(), "TIMESTAMP")
}
