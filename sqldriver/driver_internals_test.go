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
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectStr(t *testing.T) {
	const (
		uri      = "file:conformance.db?mode=rwc"
		username = "username"
		password = "token=="
	)

	dsn := strings.Join([]string{
		fmt.Sprintf("%s=%s", xdbc.OptionKeyURI, uri),
		fmt.Sprintf("%s=%s", xdbc.OptionKeyUsername, username),
		fmt.Sprintf("%s=%s", xdbc.OptionKeyPassword, password),
		fmt.Sprintf("%s=%s", xdbc.OptionKeyReadOnly, xdbc.OptionValueEnabled),
	}, " ; ") + ";"

	expectOpts := map[string]string{
		xdbc.OptionKeyURI:      uri,
		xdbc.OptionKeyUsername: username,
		xdbc.OptionKeyPassword: password,
		xdbc.OptionKeyReadOnly: xdbc.OptionValueEnabled,
	}

	gotOpts, err := parseConnectStr(dsn)
	if assert.NoError(t, err) {
		assert.Equal(t, expectOpts, gotOpts)
	}

	_, err = parseConnectStr("uri")
	var xerr xdbc.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, xdbc.StatusInvalidArgument, xerr.Code)

	gotOpts, err = parseConnectStr("")
	require.NoError(t, err)
	assert.Empty(t, gotOpts)
}

func TestColumnTypeDatabaseTypeName(t *testing.T) {
	tests := []struct {
		field  arrow.Field
		dtName string
	}{
		{
			field:  arrow.Field{Type: &arrow.StringType{}},
			dtName: "utf8",
		},
		{
			field:  arrow.Field{Type: &arrow.Date32Type{}},
			dtName: "date32",
		},
		{
			field:  arrow.Field{Type: &arrow.TimestampType{Unit: arrow.Millisecond}},
			dtName: "timestamp[ms]",
		},
		{
			field:  arrow.Field{Type: &arrow.Time32Type{Unit: arrow.Second}},
			dtName: "time32[s]",
		},
		{
			field:  sqltypes.Of(sqltypes.Varchar).Field("NAME", true, 1),
			dtName: "VARCHAR",
		},
		{
			field:  sqltypes.Of(sqltypes.Decimal).Field("AMOUNT", true, 2),
			dtName: "DECIMAL",
		},
	}

	for i, test := range tests {
		t.Run(fmt.Sprintf("%d-%s", i, test.dtName), func(t *testing.T) {
			schema := arrow.NewSchema([]arrow.Field{test.field}, nil)
			reader, err := array.NewRecordReader(schema, nil)
			require.NoError(t, err)
			r := &rows{rdr: reader}
			assert.Equal(t, test.dtName, r.ColumnTypeDatabaseTypeName(0))
		})
	}
}

func TestColumnTypeLength(t *testing.T) {
	decl := sqltypes.Declared{Type: sqltypes.Varchar, Length: 20, Text: "VARCHAR(20)"}
	schema := arrow.NewSchema([]arrow.Field{
		decl.Field("NAME", true, 1),
		{Name: "RAW", Type: arrow.BinaryTypes.String},
		sqltypes.Of(sqltypes.Integer).Field("ID", false, 2),
	}, nil)
	reader, err := array.NewRecordReader(schema, nil)
	require.NoError(t, err)
	r := &rows{rdr: reader}

	n, ok := r.ColumnTypeLength(0)
	assert.True(t, ok)
	assert.EqualValues(t, 20, n)
	_, ok = r.ColumnTypeLength(1)
	assert.False(t, ok)
	_, ok = r.ColumnTypeLength(2)
	assert.False(t, ok)
}

func TestDriverValue(t *testing.T) {
	day := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   convert.Value
		want driver.Value
	}{
		{"null", convert.Null(), nil},
		{"int", convert.Int(42), int64(42)},
		{"double", convert.Float64(1.5), float64(1.5)},
		{"decimal", convert.Dec(convert.Decimal{Num: decimal128.FromI64(12345), Scale: 2}), "123.45"},
		{"bigint", convert.BigInteger(big.NewInt(-7)), "-7"},
		{"bool", convert.Bool(true), true},
		{"string", convert.String("abc"), "abc"},
		{"bytes", convert.Bytes([]byte{1, 2}), []byte{1, 2}},
		{"date", convert.Date(day), day},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := driverValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckNamedValue(t *testing.T) {
	s := &Stmt{paramSchema: arrow.NewSchema([]arrow.Field{
		{Name: "0", Type: arrow.PrimitiveTypes.Int32},
	}, nil)}

	assert.NoError(t, s.CheckNamedValue(&driver.NamedValue{Ordinal: 1, Value: int32(1)}))
	assert.NoError(t, s.CheckNamedValue(&driver.NamedValue{Ordinal: 1, Value: nil}))
	assert.ErrorIs(t, s.CheckNamedValue(&driver.NamedValue{Ordinal: 1, Value: uint(1)}), driver.ErrSkip)

	err := s.CheckNamedValue(&driver.NamedValue{Ordinal: 2, Value: int32(1)})
	assert.Equal(t, "XCL13", xdbc.SQLStateOf(err))

	err = s.CheckNamedValue(&driver.NamedValue{Name: "missing", Value: int32(1)})
	var xerr xdbc.Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, xdbc.StatusInvalidArgument, xerr.Code)
}
