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


// Package sqltypes describes the SQL column types exercised by the
// conformance suites, the JDBC conversion matrices between them and
// the client side getters and setters, and their Arrow mapping.
package sqltypes

import "math"

// The JDBC/ODBC-defined type of any object.
// All the values here are the sames as in the JDBC and ODBC specs.
type XdbcDataType int32

const (
	XdbcDataType_XDBC_UNKNOWN_TYPE  XdbcDataType = 0
	XdbcDataType_XDBC_CHAR          XdbcDataType = 1
	XdbcDataType_XDBC_NUMERIC       XdbcDataType = 2
	XdbcDataType_XDBC_DECIMAL       XdbcDataType = 3
	XdbcDataType_XDBC_INTEGER       XdbcDataType = 4
	XdbcDataType_XDBC_SMALLINT      XdbcDataType = 5
	XdbcDataType_XDBC_FLOAT         XdbcDataType = 6
	XdbcDataType_XDBC_REAL          XdbcDataType = 7
	XdbcDataType_XDBC_DOUBLE        XdbcDataType = 8
	XdbcDataType_XDBC_VARCHAR       XdbcDataType = 12
	XdbcDataType_XDBC_BOOLEAN       XdbcDataType = 16
	XdbcDataType_XDBC_DATE          XdbcDataType = 91
	XdbcDataType_XDBC_TIME          XdbcDataType = 92
	XdbcDataType_XDBC_TIMESTAMP     XdbcDataType = 93
	XdbcDataType_XDBC_BLOB          XdbcDataType = 2004
	XdbcDataType_XDBC_CLOB          XdbcDataType = 2005
	XdbcDataType_XDBC_LONGVARCHAR   XdbcDataType = -1
	XdbcDataType_XDBC_BINARY        XdbcDataType = -2
	XdbcDataType_XDBC_VARBINARY     XdbcDataType = -3
	XdbcDataType_XDBC_LONGVARBINARY XdbcDataType = -4
	XdbcDataType_XDBC_BIGINT        XdbcDataType = -5
	XdbcDataType_XDBC_TINYINT       XdbcDataType = -6
	XdbcDataType_XDBC_BIT           XdbcDataType = -7
)

// SQLType is one of the JDBC types covered by the parameter mapping
// matrices. The order is the column order of those matrices.
type SQLType int

//go:generate go run golang.org/x/tools/cmd/stringer -type SQLType -linecomment

const (
	TinyInt       SQLType = iota // TINYINT
	SmallInt                     // SMALLINT
	Integer                      // INTEGER
	BigInt                       // BIGINT
	Real                         // REAL
	Float                        // FLOAT
	Double                       // DOUBLE
	Decimal                      // DECIMAL
	Numeric                      // NUMERIC
	Bit                          // BIT
	Boolean                      // BOOLEAN
	Char                         // CHAR
	Varchar                      // VARCHAR
	LongVarchar                  // LONGVARCHAR
	Binary                       // BINARY
	Varbinary                    // VARBINARY
	LongVarbinary                // LONGVARBINARY
	Date                         // DATE
	Time                         // TIME
	Timestamp                    // TIMESTAMP
	Clob                         // CLOB
	Blob                         // BLOB

	numSQLTypes = int(Blob) + 1
)

// AllTypes lists every SQLType in matrix order.
var AllTypes = func() []SQLType {
	out := make([]SQLType, numSQLTypes)
	for i := range out {
		out[i] = SQLType(i)
	}
	return out
}()

// Searchability values reported by getTypeInfo.
const (
	TypePredNone  int16 = 0
	TypePredChar  int16 = 1
	TypePredBasic int16 = 2
	TypeSearch    int16 = 3
)

// TypeNullable is the NULLABLE value reported for every type.
const TypeNullable int16 = 1

type typeInfo struct {
	code XdbcDataType
	// Derby's name for the type, as reported in TYPE_NAME.
	name string
	// DDL used for the fixture tables. Empty when Derby has no such type.
	ddl       string
	precision int32
	// createParams for getTypeInfo, "" when null.
	createParams string
	searchable   int16
	radix        int16
	minScale     int16
	maxScale     int16
	hasScale     bool
	literalQuote string
}

var types = [numSQLTypes]typeInfo{
	TinyInt:       {code: XdbcDataType_XDBC_TINYINT, name: "TINYINT", precision: 3, searchable: TypePredBasic, radix: 10},
	SmallInt:      {code: XdbcDataType_XDBC_SMALLINT, name: "SMALLINT", ddl: "SMALLINT", precision: 5, searchable: TypePredBasic, radix: 10, hasScale: true},
	Integer:       {code: XdbcDataType_XDBC_INTEGER, name: "INTEGER", ddl: "INTEGER", precision: 10, searchable: TypePredBasic, radix: 10, hasScale: true},
	BigInt:        {code: XdbcDataType_XDBC_BIGINT, name: "BIGINT", ddl: "BIGINT", precision: 19, searchable: TypePredBasic, radix: 10, hasScale: true},
	Real:          {code: XdbcDataType_XDBC_REAL, name: "REAL", ddl: "REAL", precision: 23, searchable: TypePredBasic, radix: 2},
	Float:         {code: XdbcDataType_XDBC_FLOAT, name: "FLOAT", ddl: "FLOAT", precision: 52, createParams: "precision", searchable: TypePredBasic, radix: 2},
	Double:        {code: XdbcDataType_XDBC_DOUBLE, name: "DOUBLE", ddl: "DOUBLE", precision: 52, searchable: TypePredBasic, radix: 2},
	Decimal:       {code: XdbcDataType_XDBC_DECIMAL, name: "DECIMAL", ddl: "DECIMAL(10,5)", precision: 31, createParams: "precision,scale", searchable: TypePredBasic, radix: 10, maxScale: 31, hasScale: true},
	Numeric:       {code: XdbcDataType_XDBC_NUMERIC, name: "NUMERIC", precision: 31, createParams: "precision,scale", searchable: TypePredBasic, radix: 10, maxScale: 31, hasScale: true},
	Bit:           {code: XdbcDataType_XDBC_BIT, name: "BIT", precision: 1, searchable: TypePredBasic},
	Boolean:       {code: XdbcDataType_XDBC_BOOLEAN, name: "BOOLEAN", ddl: "BOOLEAN", precision: 1, searchable: TypePredBasic},
	Char:          {code: XdbcDataType_XDBC_CHAR, name: "CHAR", ddl: "CHAR(60)", precision: 254, createParams: "length", searchable: TypeSearch, literalQuote: "'"},
	Varchar:       {code: XdbcDataType_XDBC_VARCHAR, name: "VARCHAR", ddl: "VARCHAR(60)", precision: 32672, createParams: "length", searchable: TypeSearch, literalQuote: "'"},
	LongVarchar:   {code: XdbcDataType_XDBC_LONGVARCHAR, name: "LONG VARCHAR", ddl: "LONG VARCHAR", precision: 32700, searchable: TypePredChar, literalQuote: "'"},
	Binary:        {code: XdbcDataType_XDBC_BINARY, name: "CHAR () FOR BIT DATA", ddl: "CHAR(60) FOR BIT DATA", precision: 254, createParams: "length", searchable: TypePredBasic, literalQuote: "X'"},
	Varbinary:     {code: XdbcDataType_XDBC_VARBINARY, name: "VARCHAR () FOR BIT DATA", ddl: "VARCHAR(60) FOR BIT DATA", precision: 32672, createParams: "length", searchable: TypePredBasic, literalQuote: "X'"},
	LongVarbinary: {code: XdbcDataType_XDBC_LONGVARBINARY, name: "LONG VARCHAR FOR BIT DATA", ddl: "LONG VARCHAR FOR BIT DATA", precision: 32700, searchable: TypePredNone, literalQuote: "X'"},
	Date:          {code: XdbcDataType_XDBC_DATE, name: "DATE", ddl: "DATE", precision: 10, searchable: TypePredBasic, radix: 10, hasScale: true, literalQuote: "DATE'"},
	Time:          {code: XdbcDataType_XDBC_TIME, name: "TIME", ddl: "TIME", precision: 8, searchable: TypePredBasic, radix: 10, hasScale: true, literalQuote: "TIME'"},
	Timestamp:     {code: XdbcDataType_XDBC_TIMESTAMP, name: "TIMESTAMP", ddl: "TIMESTAMP", precision: 29, searchable: TypePredBasic, radix: 10, maxScale: 9, hasScale: true, literalQuote: "TIMESTAMP'"},
	Clob:          {code: XdbcDataType_XDBC_CLOB, name: "CLOB", ddl: "CLOB(1K)", precision: math.MaxInt32, createParams: "length", searchable: TypePredChar, literalQuote: "'"},
	Blob:          {code: XdbcDataType_XDBC_BLOB, name: "BLOB", ddl: "BLOB(1K)", precision: math.MaxInt32, createParams: "length", searchable: TypePredNone},
}

// Code returns the JDBC type code.
func (t SQLType) Code() XdbcDataType { return types[t].code }

// TypeName is the database's name for the type as reported in
// TYPE_NAME columns.
func (t SQLType) TypeName() string { return types[t].name }

// FixtureDDL returns the column definition the parameter mapping
// fixture uses for t, or "" if Derby has no column type for t.
func (t SQLType) FixtureDDL() string { return types[t].ddl }

// Supported reports whether columns of this type can be created.
func (t SQLType) Supported() bool { return types[t].ddl != "" }

// Precision is the maximum precision reported by getTypeInfo.
func (t SQLType) Precision() int32 { return types[t].precision }

// CreateParams returns the getTypeInfo CREATE_PARAMS value.
func (t SQLType) CreateParams() (string, bool) {
	p := types[t].createParams
	return p, p != ""
}

func (t SQLType) Searchable() int16 { return types[t].searchable }

// NumPrecRadix returns 10 or 2 for numeric and datetime types.
func (t SQLType) NumPrecRadix() (int16, bool) {
	r := types[t].radix
	return r, r != 0
}

// ScaleRange returns getTypeInfo's MINIMUM_SCALE and MAXIMUM_SCALE.
func (t SQLType) ScaleRange() (min, max int16, ok bool) {
	i := types[t]
	return i.minScale, i.maxScale, i.hasScale
}

// LiteralAffixes returns getTypeInfo's LITERAL_PREFIX and LITERAL_SUFFIX.
func (t SQLType) LiteralAffixes() (prefix, suffix string, ok bool) {
	p := types[t].literalQuote
	if p == "" {
		return "", "", false
	}
	return p, "'", true
}

func (t SQLType) IsInteger() bool {
	return t == TinyInt || t == SmallInt || t == Integer || t == BigInt
}

func (t SQLType) IsExactNumeric() bool {
	return t.IsInteger() || t == Decimal || t == Numeric
}

func (t SQLType) IsApproxNumeric() bool {
	return t == Real || t == Float || t == Double
}

func (t SQLType) IsNumeric() bool { return t.IsExactNumeric() || t.IsApproxNumeric() }

// IsCharacter covers CHAR, VARCHAR and LONG VARCHAR, not CLOB.
func (t SQLType) IsCharacter() bool {
	return t == Char || t == Varchar || t == LongVarchar
}

// IsBinary covers the FOR BIT DATA types, not BLOB.
func (t SQLType) IsBinary() bool {
	return t == Binary || t == Varbinary || t == LongVarbinary
}

func (t SQLType) IsDatetime() bool {
	return t == Date || t == Time || t == Timestamp
}

// CaseSensitive is true for the character types.
func (t SQLType) CaseSensitive() bool {
	return t.IsCharacter() || t == Clob
}

// FromCode maps a JDBC type code back to its SQLType.
func FromCode(code XdbcDataType) (SQLType, bool) {
	for i, info := range types {
		if info.code == code {
			return SQLType(i), true
		}
	}
	return 0, false
}

// InTypeInfo reports whether getTypeInfo lists the type.
func (t SQLType) InTypeInfo() bool {
	return t != TinyInt && t != Bit
}
