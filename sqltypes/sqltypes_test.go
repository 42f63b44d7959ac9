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


package sqltypes_test

import (
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLTypesTests struct {
	suite.Suite
}

func TestSQLTypes(t *testing.T) {
	suite.Run(t, new(SQLTypesTests))
}

func (s *SQLTypesTests) TestTypeCodes() {
	s.Equal(sqltypes.XdbcDataType(-6), sqltypes.TinyInt.Code())
	s.Equal(sqltypes.XdbcDataType(16), sqltypes.Boolean.Code())
	s.Equal(sqltypes.XdbcDataType(2005), sqltypes.Clob.Code())
	s.Equal(sqltypes.XdbcDataType(2004), sqltypes.Blob.Code())
	s.Len(sqltypes.AllTypes, 22)

	for _, t := range sqltypes.AllTypes {
		back, ok := sqltypes.FromCode(t.Code())
		s.True(ok)
		s.Equal(t, back)
	}
	s.Equal("LONGVARBINARY", sqltypes.LongVarbinary.String())
	s.Equal("CHAR () FOR BIT DATA", sqltypes.Binary.TypeName())
}

func (s *SQLTypesTests) TestUnsupportedFixtureTypes() {
	var unsupported []sqltypes.SQLType
	for _, t := range sqltypes.AllTypes {
		if !t.Supported() {
			unsupported = append(unsupported, t)
		}
	}
	s.Equal([]sqltypes.SQLType{sqltypes.TinyInt, sqltypes.Numeric, sqltypes.Bit}, unsupported)
}

func (s *SQLTypesTests) TestTypeInfoAttributes() {
	s.EqualValues(math.MaxInt32, sqltypes.Blob.Precision())
	s.EqualValues(32672, sqltypes.Varchar.Precision())
	s.EqualValues(254, sqltypes.Char.Precision())
	s.EqualValues(29, sqltypes.Timestamp.Precision())

	p, ok := sqltypes.Decimal.CreateParams()
	s.True(ok)
	s.Equal("precision,scale", p)
	_, ok = sqltypes.Integer.CreateParams()
	s.False(ok)

	s.Equal(sqltypes.TypePredNone, sqltypes.Blob.Searchable())
	s.Equal(sqltypes.TypePredChar, sqltypes.LongVarchar.Searchable())
	s.Equal(sqltypes.TypeSearch, sqltypes.Varchar.Searchable())
	s.Equal(sqltypes.TypePredBasic, sqltypes.Integer.Searchable())

	min, max, ok := sqltypes.Timestamp.ScaleRange()
	s.True(ok)
	s.EqualValues(0, min)
	s.EqualValues(9, max)
	_, _, ok = sqltypes.Varchar.ScaleRange()
	s.False(ok)
}

func (s *SQLTypesTests) TestGetterMatrix() {
	s.True(sqltypes.GetterAllowed(sqltypes.GetInt, sqltypes.Char))
	s.False(sqltypes.GetterAllowed(sqltypes.GetInt, sqltypes.Binary))
	s.True(sqltypes.GetterAllowed(sqltypes.GetString, sqltypes.Timestamp))
	s.False(sqltypes.GetterAllowed(sqltypes.GetString, sqltypes.Clob))
	s.True(sqltypes.GetterAllowed(sqltypes.GetTimestamp, sqltypes.Date))
	s.False(sqltypes.GetterAllowed(sqltypes.GetDate, sqltypes.Time))
	s.True(sqltypes.GetterAllowed(sqltypes.GetAsciiStream, sqltypes.LongVarbinary))
	for _, t := range sqltypes.AllTypes {
		s.False(sqltypes.GetterAllowed(sqltypes.GetUnicodeStream, t))
	}
}

func (s *SQLTypesTests) TestSetterMatrix() {
	s.True(sqltypes.SetterAllowed(sqltypes.SetString, sqltypes.Date))
	s.False(sqltypes.SetterAllowed(sqltypes.SetString, sqltypes.Binary))
	s.False(sqltypes.SetterAllowed(sqltypes.SetString, sqltypes.Clob))
	s.True(sqltypes.SetterAllowed(sqltypes.SetTime, sqltypes.Char))
	s.False(sqltypes.SetterAllowed(sqltypes.SetTime, sqltypes.Timestamp))
	s.True(sqltypes.SetterAllowed(sqltypes.SetCharacterStream, sqltypes.Clob))
	s.True(sqltypes.SetterAllowed(sqltypes.SetBinaryStream, sqltypes.Blob))
	for _, t := range sqltypes.AllTypes {
		s.True(sqltypes.SetterAllowed(sqltypes.SetNull, t))
	}
	s.Len(sqltypes.AllSetters, 19)
}

func (s *SQLTypesTests) TestObjectMatrix() {
	s.True(sqltypes.ObjectAllowed(sqltypes.ObjString, sqltypes.LongVarbinary))
	s.False(sqltypes.ObjectAllowed(sqltypes.ObjString, sqltypes.LongVarchar))
	s.True(sqltypes.ObjectAllowed(sqltypes.ObjBigInteger, sqltypes.BigInt))
	s.False(sqltypes.ObjectAllowed(sqltypes.ObjBigInteger, sqltypes.Integer))
	s.True(sqltypes.ObjectAllowed(sqltypes.ObjCalendar, sqltypes.Time))
	s.Equal(sqltypes.ObjLong, sqltypes.ObjectClass(sqltypes.BigInt))
	s.Equal(sqltypes.ObjInteger, sqltypes.ObjectClass(sqltypes.SmallInt))
	s.Equal(sqltypes.ObjDouble, sqltypes.ObjectClass(sqltypes.Float))
	s.Equal(sqltypes.ObjBytes, sqltypes.ObjectClass(sqltypes.Varbinary))
}

func (s *SQLTypesTests) TestParseNames() {
	st, ok := sqltypes.ParseSetter("setCharacterStream")
	s.True(ok)
	s.Equal(sqltypes.SetCharacterStream, st)
	_, ok = sqltypes.ParseSetter("setWhatever")
	s.False(ok)

	k, ok := sqltypes.ParseObjectKind("util.Date")
	s.True(ok)
	s.Equal(sqltypes.ObjUtilDate, k)
}

func TestParseDeclaredType(t *testing.T) {
	tests := []struct {
		decl string
		want sqltypes.Declared
	}{
		{"SMALLINT", sqltypes.Declared{Type: sqltypes.SmallInt}},
		{"integer", sqltypes.Declared{Type: sqltypes.Integer}},
		{"DECIMAL(10,5)", sqltypes.Declared{Type: sqltypes.Decimal, Precision: 10, Scale: 5}},
		{"NUMERIC(7)", sqltypes.Declared{Type: sqltypes.Numeric, Precision: 7}},
		{"CHAR(60)", sqltypes.Declared{Type: sqltypes.Char, Length: 60}},
		{"VARCHAR(60) FOR BIT DATA", sqltypes.Declared{Type: sqltypes.Varbinary, Length: 60}},
		{"CHAR FOR BIT DATA(60)", sqltypes.Declared{Type: sqltypes.Binary, Length: 60}},
		{"LONG VARCHAR", sqltypes.Declared{Type: sqltypes.LongVarchar, Length: 32700}},
		{"LONG VARCHAR FOR BIT DATA", sqltypes.Declared{Type: sqltypes.LongVarbinary, Length: 32700}},
		{"CLOB(1K)", sqltypes.Declared{Type: sqltypes.Clob, Length: 1024}},
		{"BLOB(1024)", sqltypes.Declared{Type: sqltypes.Blob, Length: 1024}},
		{"FLOAT", sqltypes.Declared{Type: sqltypes.Double}},
		{"FLOAT(10)", sqltypes.Declared{Type: sqltypes.Real}},
		{"DOUBLE PRECISION", sqltypes.Declared{Type: sqltypes.Double}},
		{"TIMESTAMP", sqltypes.Declared{Type: sqltypes.Timestamp}},
		{"CHARACTER VARYING (12)", sqltypes.Declared{Type: sqltypes.Varchar, Length: 12}},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			got, err := sqltypes.ParseDeclaredType(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Type, got.Type)
			if tt.want.Length != 0 {
				assert.Equal(t, tt.want.Length, got.Length)
			}
			if tt.want.Precision != 0 {
				assert.Equal(t, tt.want.Precision, got.Precision)
				assert.Equal(t, tt.want.Scale, got.Scale)
			}
		})
	}

	for _, bad := range []string{"", "GEOMETRY", "INTEGER FOR BIT DATA", "DECIMAL(40,2)", "DECIMAL(5,7)", "DATE(3)", "CHAR(10,2)", "VARCHAR("} {
		_, err := sqltypes.ParseDeclaredType(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDeclaredLengthUnits(t *testing.T) {
	tests := []struct {
		decl string
		want int32
	}{
		{"CLOB(2K)", 2048},
		{"BLOB(3M)", 3 << 20},
		{"CLOB(1G)", 1 << 30},
		{"CLOB(2G)", math.MaxInt32},
		{"CLOB(2048M)", math.MaxInt32},
		{"BLOB(2097152K)", math.MaxInt32},
		{"BLOB(9000000000000000000M)", math.MaxInt32},
		{"CLOB(2147483647)", math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			got, err := sqltypes.ParseDeclaredType(tt.decl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Length)
		})
	}

	_, err := sqltypes.ParseDeclaredType("CLOB(2147483648)")
	assert.Error(t, err)
	_, err = sqltypes.ParseDeclaredType("CLOB(1T)")
	assert.Error(t, err)
}

func TestParseDeclaredTypeKeepsSpelling(t *testing.T) {
	upper, err := sqltypes.ParseDeclaredType("DECIMAL(9,4)")
	require.NoError(t, err)
	lower, err := sqltypes.ParseDeclaredType(" decimal(9,4) ")
	require.NoError(t, err)
	again, err := sqltypes.ParseDeclaredType("DECIMAL(9,4)")
	require.NoError(t, err)

	assert.Equal(t, "DECIMAL(9,4)", upper.Text)
	assert.Equal(t, "decimal(9,4)", lower.Text)
	assert.Equal(t, "DECIMAL(9,4)", again.Text)
	assert.Equal(t, upper.Precision, lower.Precision)
	assert.Equal(t, upper.Scale, lower.Scale)
}

func TestFieldRoundTrip(t *testing.T) {
	for _, typ := range sqltypes.AllTypes {
		if !typ.Supported() {
			continue
		}
		d, err := sqltypes.ParseDeclaredType(typ.FixtureDDL())
		require.NoError(t, err, typ.FixtureDDL())

		f := d.Field("C", true, 3)
		back := sqltypes.FromField(f)
		assert.Equal(t, d.Type, back.Type, typ.FixtureDDL())
		assert.Equal(t, d.Length, back.Length)
		assert.Equal(t, d.Precision, back.Precision)

		ord, ok := f.Metadata.GetValue(sqltypes.MetaOrdinal)
		assert.True(t, ok)
		assert.Equal(t, "3", ord)
	}
}

func TestFieldMetadata(t *testing.T) {
	d, err := sqltypes.ParseDeclaredType("DECIMAL(10,5)")
	require.NoError(t, err)
	f := d.Field("AMOUNT", false, 0)

	assert.True(t, arrow.TypeEqual(&arrow.Decimal128Type{Precision: 10, Scale: 5}, f.Type))
	v, _ := f.Metadata.GetValue(sqltypes.MetaTypeName)
	assert.Equal(t, "DECIMAL", v)
	v, _ = f.Metadata.GetValue(sqltypes.MetaPrecision)
	assert.Equal(t, "10", v)
	v, _ = f.Metadata.GetValue(sqltypes.MetaScale)
	assert.Equal(t, "5", v)
	v, _ = f.Metadata.GetValue(sqltypes.MetaNumPrecRadix)
	assert.Equal(t, "10", v)
	v, _ = f.Metadata.GetValue(sqltypes.MetaIsNullable)
	assert.Equal(t, "NO", v)

	assert.Equal(t, sqltypes.Varchar, sqltypes.FromField(arrow.Field{Name: "s", Type: arrow.BinaryTypes.String}).Type)
	assert.Equal(t, sqltypes.Timestamp, sqltypes.FromArrowType(arrow.FixedWidthTypes.Timestamp_us).Type)
}
