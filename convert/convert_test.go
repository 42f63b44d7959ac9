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


package convert_test

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decl(t *testing.T, s string) sqltypes.Declared {
	d, err := sqltypes.ParseDeclaredType(s)
	require.NoError(t, err)
	return d
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		v    float64
		bits int
		want string
	}{
		{98, 64, "98.0"},
		{98.5, 64, "98.5"},
		{float64(float32(98.4)), 32, "98.4"},
		{0, 64, "0.0"},
		{1e7, 64, "1.0E7"},
		{1.5e-4, 64, "1.5E-4"},
		{-2.5e10, 64, "-2.5E10"},
		{math.Inf(1), 64, "Infinity"},
		{math.NaN(), 64, "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, convert.FormatFloat(tt.v, tt.bits))
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2004, 2, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2004-02-14 00:00:00.0", convert.FormatTimestamp(ts))
	assert.Equal(t, "2004-02-14 00:00:00.12", convert.FormatTimestamp(ts.Add(120*time.Millisecond)))
}

func TestParseDecimal(t *testing.T) {
	d, err := convert.ParseDecimal(" 98.50 ")
	require.NoError(t, err)
	assert.EqualValues(t, 2, d.Scale)
	assert.Equal(t, "98.50", d.String())

	d, err = convert.ParseDecimal("1.5E2")
	require.NoError(t, err)
	assert.Equal(t, "150", d.String())

	_, err = convert.ParseDecimal("abc")
	assert.Equal(t, xdbc.StateInvalidCharFormat, xdbc.SQLStateOf(err))
	_, err = convert.ParseDecimal("0x10")
	assert.Equal(t, xdbc.StateInvalidCharFormat, xdbc.SQLStateOf(err))
}

func TestDecimalFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"98.00000", 98},
		{"12345.67890", 12345.6789},
		{"-0.10", -0.1},
		{"0.3", 0.3},
		{"98", 98},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := convert.ParseDecimal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Float64())

			f, err := convert.Dec(d).Float64()
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)

			f32, err := convert.Dec(d).Float32()
			require.NoError(t, err)
			assert.Equal(t, float32(tt.want), f32)
		})
	}
}

func TestNarrow(t *testing.T) {
	n, err := convert.Narrow[int8](convert.Int(127), "TINYINT")
	require.NoError(t, err)
	assert.EqualValues(t, 127, n)

	_, err = convert.Narrow[int8](convert.Int(128), "TINYINT")
	assert.Equal(t, xdbc.StateNumericOutOfRange, xdbc.SQLStateOf(err))

	s, err := convert.Narrow[int16](convert.Float64(98.9), "SMALLINT")
	require.NoError(t, err)
	assert.EqualValues(t, 98, s)

	_, err = convert.Narrow[int64](convert.Float64(math.Pow(2, 63)), "BIGINT")
	assert.Equal(t, xdbc.StateNumericOutOfRange, xdbc.SQLStateOf(err))

	i, err := convert.Narrow[int32](convert.String(" 32 "), "INTEGER")
	require.NoError(t, err)
	assert.EqualValues(t, 32, i)

	_, err = convert.Narrow[int32](convert.String("32.5"), "INTEGER")
	assert.Equal(t, xdbc.StateInvalidCharFormat, xdbc.SQLStateOf(err))

	_, err = convert.Narrow[int32](convert.Bytes([]byte{1}), "INTEGER")
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))

	b, err := convert.Narrow[int32](convert.Bool(true), "INTEGER")
	require.NoError(t, err)
	assert.EqualValues(t, 1, b)
}

func TestBool(t *testing.T) {
	for s, want := range map[string]bool{"0": false, " FALSE ": false, "false": false, "1": true, "32": true, "TRUE": true, "": true} {
		got, err := convert.String(s).Bool()
		require.NoError(t, err)
		assert.Equal(t, want, got, s)
	}
	_, err := convert.Date(time.Now()).Bool()
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))
}

func TestTextOfEveryKind(t *testing.T) {
	day := time.Date(2004, 2, 14, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		v    convert.Value
		want string
	}{
		{convert.Int(98), "98"},
		{convert.Float32(98.4), "98.4"},
		{convert.Float64(98.5), "98.5"},
		{convert.Dec(convert.Decimal{Num: mustDec(t, "98.0").Num, Scale: 1}), "98.0"},
		{convert.BigInteger(big.NewInt(1)), "1"},
		{convert.Bool(true), "true"},
		{convert.Bytes([]byte{0x04}), "04"},
		{convert.Date(day), "2004-02-14"},
		{convert.Time(day), "00:00:00"},
		{convert.Timestamp(day), "2004-02-14 00:00:00.0"},
	}
	for _, tt := range tests {
		got, err := tt.v.Text()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func mustDec(t *testing.T, s string) convert.Decimal {
	d, err := convert.ParseDecimal(s)
	require.NoError(t, err)
	return d
}

func TestCoerceNumeric(t *testing.T) {
	v, err := convert.Coerce(convert.Float32(98.4), decl(t, "SMALLINT"))
	require.NoError(t, err)
	assert.EqualValues(t, int64(98), convert.Storage(v))

	v, err = convert.Coerce(convert.Dec(mustDec(t, "98.0")), decl(t, "DECIMAL(10,5)"))
	require.NoError(t, err)
	assert.Equal(t, "98.00000", convert.Storage(v))

	v, err = convert.Coerce(convert.String("98"), decl(t, "DECIMAL(10,5)"))
	require.NoError(t, err)
	assert.Equal(t, "98.00000", convert.Storage(v))

	_, err = convert.Coerce(convert.Int(123456), decl(t, "DECIMAL(10,5)"))
	assert.Equal(t, xdbc.StateNumericOutOfRange, xdbc.SQLStateOf(err))

	_, err = convert.Coerce(convert.Float64(math.MaxFloat64), decl(t, "REAL"))
	assert.Equal(t, xdbc.StateNumericOutOfRange, xdbc.SQLStateOf(err))

	_, err = convert.Coerce(convert.String("abc"), decl(t, "DOUBLE"))
	assert.Equal(t, xdbc.StateInvalidCharFormat, xdbc.SQLStateOf(err))

	v, err = convert.Coerce(convert.Float64(98.5), decl(t, "BOOLEAN"))
	require.NoError(t, err)
	assert.EqualValues(t, int64(1), convert.Storage(v))

	_, err = convert.Coerce(convert.String("maybe"), decl(t, "BOOLEAN"))
	assert.Equal(t, xdbc.StateInvalidCharFormat, xdbc.SQLStateOf(err))
}

func TestCoerceBigInteger(t *testing.T) {
	huge, _ := new(big.Int).SetString("9223372036854775808", 10)
	negHuge, _ := new(big.Int).SetString("-9223372036854775809", 10)

	columns := map[string]string{
		"SMALLINT":    xdbc.StateNumericOutOfRange,
		"INTEGER":     xdbc.StateNumericOutOfRange,
		"BIGINT":      xdbc.StateNumericOutOfRange,
		"REAL":        "",
		"FLOAT":       "",
		"DOUBLE":      "",
		"DECIMAL(31)": "",
		"NUMERIC(31)": "",
		"CHAR(10)":    xdbc.StateStringTruncation,
		"VARCHAR(10)": xdbc.StateStringTruncation,
	}
	for _, seed := range []*big.Int{huge, negHuge} {
		for ddl, state := range columns {
			_, err := convert.Coerce(convert.BigInteger(seed), decl(t, ddl))
			assert.Equal(t, state, xdbc.SQLStateOf(err), "%s into %s", seed, ddl)
		}
	}
	for ddl := range columns {
		_, err := convert.Coerce(convert.BigInteger(big.NewInt(1)), decl(t, ddl))
		assert.NoError(t, err, ddl)
	}
}

func TestCoerceCharacter(t *testing.T) {
	v, err := convert.Coerce(convert.String("98"), decl(t, "CHAR(5)"))
	require.NoError(t, err)
	assert.Equal(t, "98   ", convert.Storage(v))

	v, err = convert.Coerce(convert.String("ab   "), decl(t, "VARCHAR(3)"))
	require.NoError(t, err)
	assert.Equal(t, "ab ", convert.Storage(v))

	_, err = convert.Coerce(convert.String("abcd"), decl(t, "VARCHAR(3)"))
	assert.Equal(t, xdbc.StateStringTruncation, xdbc.SQLStateOf(err))

	_, err = convert.Coerce(convert.Bytes([]byte{1}), decl(t, "VARCHAR(3)"))
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))

	v, err = convert.Coerce(convert.Bool(true), decl(t, "CHAR(60)"))
	require.NoError(t, err)
	assert.Len(t, convert.Storage(v), 60)

	v, err = convert.Coerce(convert.String("89").AsLOB(), decl(t, "CLOB(1K)"))
	require.NoError(t, err)
	assert.Equal(t, "89", convert.Storage(v))

	_, err = convert.Coerce(convert.Int(1), decl(t, "CLOB(1K)"))
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))
}

func TestCoerceBinary(t *testing.T) {
	v, err := convert.Coerce(convert.Bytes([]byte{4}), decl(t, "CHAR(3) FOR BIT DATA"))
	require.NoError(t, err)
	assert.Equal(t, []byte{4, ' ', ' '}, convert.Storage(v))

	_, err = convert.Coerce(convert.Bytes([]byte{1, 2, 3, 4}), decl(t, "VARCHAR(3) FOR BIT DATA"))
	assert.Equal(t, xdbc.StateStringTruncation, xdbc.SQLStateOf(err))

	_, err = convert.Coerce(convert.String("0x4"), decl(t, "BLOB(1K)"))
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))

	v, err = convert.Coerce(convert.String("98"), decl(t, "LONG VARCHAR FOR BIT DATA"))
	require.NoError(t, err)
	assert.Equal(t, []byte("98"), convert.Storage(v))
}

func TestCoerceDatetime(t *testing.T) {
	day := time.Date(2004, 2, 14, 0, 0, 0, 0, time.UTC)

	v, err := convert.Coerce(convert.Timestamp(day.Add(3*time.Hour)), decl(t, "DATE"))
	require.NoError(t, err)
	assert.Equal(t, "2004-02-14", convert.Storage(v))

	v, err = convert.Coerce(convert.String("2004-02-14 00:00:00"), decl(t, "TIMESTAMP"))
	require.NoError(t, err)
	assert.Equal(t, "2004-02-14 00:00:00", convert.Storage(v))

	_, err = convert.Coerce(convert.Time(day), decl(t, "DATE"))
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))

	_, err = convert.Coerce(convert.String("32"), decl(t, "DATE"))
	assert.Equal(t, xdbc.StateInvalidDatetime, xdbc.SQLStateOf(err))

	_, err = convert.Coerce(convert.Int(32), decl(t, "TIME"))
	assert.Equal(t, xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))
}

func TestLoad(t *testing.T) {
	v, err := convert.Load(int64(98), decl(t, "DECIMAL(10,5)"))
	require.NoError(t, err)
	d, err := v.Decimal()
	require.NoError(t, err)
	assert.Equal(t, "98.00000", d.String())

	v, err = convert.Load(98.5, decl(t, "DECIMAL(10,5)"))
	require.NoError(t, err)
	s, err := v.Text()
	require.NoError(t, err)
	assert.Equal(t, "98.50000", s)

	v, err = convert.Load(time.Date(2004, 2, 14, 0, 0, 0, 0, time.UTC), decl(t, "DATE"))
	require.NoError(t, err)
	assert.Equal(t, convert.KindDate, v.Kind())

	v, err = convert.Load("00:00:00", decl(t, "TIME"))
	require.NoError(t, err)
	assert.Equal(t, convert.KindTime, v.Kind())

	v, err = convert.Load(int64(1), decl(t, "BOOLEAN"))
	require.NoError(t, err)
	b, err := v.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	v, err = convert.Load(nil, decl(t, "INTEGER"))
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = convert.Load([]byte("ab"), decl(t, "VARCHAR(60)"))
	require.NoError(t, err)
	assert.Equal(t, convert.KindString, v.Kind())
}

func TestArrowRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	fields := []arrow.Field{
		{Name: "i", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		{Name: "d", Type: &arrow.Decimal128Type{Precision: 10, Scale: 5}, Nullable: true},
		{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "dt", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
		{Name: "tm", Type: arrow.FixedWidthTypes.Time32s, Nullable: true},
		{Name: "ts", Type: &arrow.TimestampType{Unit: arrow.Nanosecond}, Nullable: true},
	}
	bldr := array.NewRecordBuilder(mem, arrow.NewSchema(fields, nil))
	defer bldr.Release()

	when := time.Date(2004, 2, 14, 13, 14, 15, 0, time.UTC)
	row := []convert.Value{
		convert.Int(32),
		convert.String("98.5"),
		convert.Float64(98.5),
		convert.Timestamp(when),
		convert.Timestamp(when),
		convert.String("2004-02-14 13:14:15"),
	}
	for i, v := range row {
		require.NoError(t, convert.Append(bldr.Field(i), v))
	}
	for i := range row {
		require.NoError(t, convert.Append(bldr.Field(i), convert.Null()))
	}
	rec := bldr.NewRecord()
	defer rec.Release()

	want := []string{"32", "98.50000", "98.5", "2004-02-14", "13:14:15", "2004-02-14 13:14:15.0"}
	for i := range row {
		v, err := convert.FromArrow(rec.Column(i), 0)
		require.NoError(t, err)
		s, err := v.Text()
		require.NoError(t, err)
		assert.Equal(t, want[i], s, fields[i].Name)

		v, err = convert.FromArrow(rec.Column(i), 1)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	}

	err := convert.Append(bldr.Field(0), convert.Int(1<<20))
	assert.Equal(t, xdbc.StateNumericOutOfRange, xdbc.SQLStateOf(err))
}
