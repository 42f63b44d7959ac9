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


package sqltypes

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field metadata keys describing a column's SQL type. The XDBC_ keys
// are the ones GetObjects reads to fill its column attributes.
const (
	MetaTypeName        = "XDBC_TYPE_NAME"
	MetaDataType        = "XDBC_DATA_TYPE"
	MetaSQLDataType     = "XDBC_SQL_DATA_TYPE"
	MetaNullable        = "XDBC_NULLABLE"
	MetaIsNullable      = "XDBC_IS_NULLABLE"
	MetaPrecision       = "XDBC_PRECISION"
	MetaCharMaxLength   = "CHARACTER_MAXIMUM_LENGTH"
	MetaScale           = "XDBC_SCALE"
	MetaNumPrecRadix    = "XDBC_NUM_PREC_RADIX"
	MetaCharOctetLength = "XDBC_CHAR_OCTET_LENGTH"
	MetaDatetimeSub     = "XDBC_DATETIME_SUB"
	MetaOrdinal         = "ORDINAL_POSITION"
	MetaComment         = "COMMENT"
	MetaColumnDefault   = "XDBC_COLUMN_DEF"
	MetaDeclaredType    = "xdbc.declared_type"
)

// ArrowType is the Arrow type values of the declaration travel as.
func ArrowType(d Declared) arrow.DataType {
	switch d.Type {
	case TinyInt:
		return arrow.PrimitiveTypes.Int8
	case SmallInt:
		return arrow.PrimitiveTypes.Int16
	case Integer:
		return arrow.PrimitiveTypes.Int32
	case BigInt:
		return arrow.PrimitiveTypes.Int64
	case Real:
		return arrow.PrimitiveTypes.Float32
	case Float, Double:
		return arrow.PrimitiveTypes.Float64
	case Decimal, Numeric:
		return &arrow.Decimal128Type{Precision: d.Precision, Scale: d.Scale}
	case Bit, Boolean:
		return arrow.FixedWidthTypes.Boolean
	case Char, Varchar, LongVarchar, Clob:
		return arrow.BinaryTypes.String
	case Binary, Varbinary, LongVarbinary, Blob:
		return arrow.BinaryTypes.Binary
	case Date:
		return arrow.FixedWidthTypes.Date32
	case Time:
		return arrow.FixedWidthTypes.Time32s
	default:
		return &arrow.TimestampType{Unit: arrow.Nanosecond}
	}
}

// Field builds the Arrow field for a column of this declaration, with
// the type described in its metadata.
func (d Declared) Field(name string, nullable bool, ordinal int) arrow.Field {
	keys := []string{MetaTypeName, MetaDataType, MetaSQLDataType, MetaNullable, MetaIsNullable, MetaDeclaredType}
	isNullable := "NO"
	if nullable {
		isNullable = "YES"
	}
	values := []string{
		d.Type.TypeName(),
		strconv.Itoa(int(d.Type.Code())),
		strconv.Itoa(int(d.Type.Code())),
		strconv.FormatBool(nullable),
		isNullable,
		d.DDL(),
	}
	add := func(k, v string) {
		keys = append(keys, k)
		values = append(values, v)
	}

	switch {
	case d.Type.IsNumeric(), d.Type.IsDatetime(), d.Type == Boolean:
		add(MetaPrecision, strconv.Itoa(int(d.ColumnSize())))
	default:
		add(MetaCharMaxLength, strconv.Itoa(int(d.ColumnSize())))
	}
	if s, ok := d.DecimalDigits(); ok {
		add(MetaScale, strconv.Itoa(int(s)))
	}
	if r, ok := d.Type.NumPrecRadix(); ok && d.Type.IsNumeric() {
		add(MetaNumPrecRadix, strconv.Itoa(int(r)))
	}
	if n, ok := d.CharOctetLength(); ok {
		add(MetaCharOctetLength, strconv.Itoa(int(n)))
	}
	if ordinal > 0 {
		add(MetaOrdinal, strconv.Itoa(ordinal))
	}

	return arrow.Field{
		Name:     name,
		Type:     ArrowType(d),
		Nullable: nullable,
		Metadata: arrow.NewMetadata(keys, values),
	}
}

// FromField recovers the declaration of a column from its field. The
// metadata written by Field is preferred; fields without it are mapped
// from their Arrow type.
func FromField(f arrow.Field) Declared {
	if decl, ok := f.Metadata.GetValue(MetaDeclaredType); ok {
		if d, err := ParseDeclaredType(decl); err == nil {
			return d
		}
	}
	if code, ok := f.Metadata.GetValue(MetaDataType); ok {
		if c, err := strconv.Atoi(code); err == nil {
			if t, ok := FromCode(XdbcDataType(c)); ok {
				d := Of(t)
				if dt, ok := f.Type.(*arrow.Decimal128Type); ok {
					d.Precision, d.Scale = dt.Precision, dt.Scale
				}
				return d
			}
		}
	}
	return FromArrowType(f.Type)
}

// FromArrowType picks the SQL type a value of the given Arrow type
// would naturally be stored as.
func FromArrowType(dt arrow.DataType) Declared {
	switch dt := dt.(type) {
	case *arrow.Int8Type:
		return Of(TinyInt)
	case *arrow.Int16Type, *arrow.Uint8Type:
		return Of(SmallInt)
	case *arrow.Int32Type, *arrow.Uint16Type:
		return Of(Integer)
	case *arrow.Int64Type, *arrow.Uint32Type, *arrow.Uint64Type:
		return Of(BigInt)
	case *arrow.Float32Type:
		return Of(Real)
	case *arrow.Float64Type:
		return Of(Double)
	case *arrow.Decimal128Type:
		d := Of(Decimal)
		d.Precision, d.Scale = dt.Precision, dt.Scale
		return d
	case *arrow.BooleanType:
		return Of(Boolean)
	case *arrow.StringType, *arrow.LargeStringType:
		return Of(Varchar)
	case *arrow.BinaryType, *arrow.LargeBinaryType, *arrow.FixedSizeBinaryType:
		return Of(Varbinary)
	case *arrow.Date32Type, *arrow.Date64Type:
		return Of(Date)
	case *arrow.Time32Type, *arrow.Time64Type:
		return Of(Time)
	case *arrow.TimestampType:
		return Of(Timestamp)
	}
	return Of(Varchar)
}
