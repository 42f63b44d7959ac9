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

package xdbc

import "github.com/apache/arrow-go/v18/arrow"

var (
	GetInfoSchema = arrow.NewSchema([]arrow.Field{
		{Name: "info_name", Type: arrow.PrimitiveTypes.Uint32},
		{Name: "info_value", Type: arrow.DenseUnionOf(
			[]arrow.Field{
				{Name: "string_value", Type: arrow.BinaryTypes.String, Nullable: true},
				{Name: "bool_value", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
				{Name: "int64_value", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
				{Name: "int32_bitmask", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
				{Name: "string_list", Type: arrow.ListOf(arrow.BinaryTypes.String), Nullable: true},
				{Name: "int32_to_int32_list_map",
					Type: arrow.MapOf(arrow.PrimitiveTypes.Int32,
						arrow.ListOf(arrow.PrimitiveTypes.Int32)), Nullable: true},
			},
			[]arrow.UnionTypeCode{0, 1, 2, 3, 4, 5},
		), Nullable: true},
	}, nil)

	TableTypesSchema = arrow.NewSchema([]arrow.Field{{Name: "table_type", Type: arrow.BinaryTypes.String}}, nil)

	UsageSchema = arrow.StructOf(
		arrow.Field{Name: "fk_catalog", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "fk_db_schema", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "fk_table", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "fk_column_name", Type: arrow.BinaryTypes.String},
	)

	ConstraintSchema = arrow.StructOf(
		arrow.Field{Name: "constraint_name", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "constraint_type", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "constraint_column_names", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		arrow.Field{Name: "constraint_column_usage", Type: arrow.ListOf(UsageSchema), Nullable: true},
	)

	ColumnSchema = arrow.StructOf(
		arrow.Field{Name: "column_name", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "ordinal_position", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		arrow.Field{Name: "remarks", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_data_type", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		arrow.Field{Name: "xdbc_type_name", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_column_size", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		arrow.Field{Name: "xdbc_decimal_digits", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		arrow.Field{Name: "xdbc_num_prec_radix", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		arrow.Field{Name: "xdbc_nullable", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		arrow.Field{Name: "xdbc_column_def", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_sql_data_type", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		arrow.Field{Name: "xdbc_datetime_sub", Type: arrow.PrimitiveTypes.Int16, Nullable: true},
		arrow.Field{Name: "xdbc_char_octet_length", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
		arrow.Field{Name: "xdbc_is_nullable", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_scope_catalog", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_scope_schema", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_scope_table", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "xdbc_is_autoincrement", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		arrow.Field{Name: "xdbc_is_generatedcolumn", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
	)

	TableSchema = arrow.StructOf(
		arrow.Field{Name: "table_name", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "table_type", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "table_columns", Type: arrow.ListOf(ColumnSchema), Nullable: true},
		arrow.Field{Name: "table_constraints", Type: arrow.ListOf(ConstraintSchema), Nullable: true},
	)

	DBSchemaSchema = arrow.StructOf(
		arrow.Field{Name: "db_schema_name", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "db_schema_tables", Type: arrow.ListOf(TableSchema), Nullable: true},
	)

	GetObjectsSchema = arrow.NewSchema([]arrow.Field{
		{Name: "catalog_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "catalog_db_schemas", Type: arrow.ListOf(DBSchemaSchema), Nullable: true},
	}, nil)

	GetTableSchemaSchema = arrow.NewSchema([]arrow.Field{
		{Name: "catalog_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "db_schema_name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "table_name", Type: arrow.BinaryTypes.String},
		{Name: "table_type", Type: arrow.BinaryTypes.String},
		{Name: "table_schema", Type: arrow.BinaryTypes.Binary},
	}, nil)
)

// Flat catalog result shapes, as returned by the JDBC DatabaseMetaData
// methods and the SYSIBM catalog procedures. The ODBC flavor differs
// from the JDBC one only in column names and in which integer columns
// are SMALLINT.

type flatColumn struct {
	name     string
	typ      arrow.DataType
	nullable bool
}

func flatSchema(cols []flatColumn) *arrow.Schema {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c.name, Type: c.typ, Nullable: c.nullable}
	}
	return arrow.NewSchema(fields, nil)
}

var (
	varchar  = arrow.BinaryTypes.String
	integer  = arrow.PrimitiveTypes.Int32
	smallint = arrow.PrimitiveTypes.Int16
	bigint   = arrow.PrimitiveTypes.Int64
	boolean  = arrow.FixedWidthTypes.Boolean
)

// TablesSchema is the shape of a getTables result (JDBC and ODBC alike).
var TablesSchema = flatSchema([]flatColumn{
	{"TABLE_CAT", varchar, false},
	{"TABLE_SCHEM", varchar, false},
	{"TABLE_NAME", varchar, false},
	{"TABLE_TYPE", varchar, true},
	{"REMARKS", varchar, false},
	{"TYPE_CAT", varchar, true},
	{"TYPE_SCHEM", varchar, true},
	{"TYPE_NAME", varchar, true},
	{"SELF_REFERENCING_COL_NAME", varchar, true},
	{"REF_GENERATION", varchar, true},
})

// ColumnsSchema returns the shape of a getColumns result.
func ColumnsSchema(odbc bool) *arrow.Schema {
	short := integer
	if odbc {
		short = smallint
	}
	return flatSchema([]flatColumn{
		{"TABLE_CAT", varchar, false},
		{"TABLE_SCHEM", varchar, false},
		{"TABLE_NAME", varchar, false},
		{"COLUMN_NAME", varchar, false},
		{"DATA_TYPE", short, true},
		{"TYPE_NAME", varchar, true},
		{"COLUMN_SIZE", integer, true},
		{"BUFFER_LENGTH", integer, true},
		{"DECIMAL_DIGITS", short, true},
		{"NUM_PREC_RADIX", short, true},
		{"NULLABLE", short, true},
		{"REMARKS", varchar, false},
		{"COLUMN_DEF", varchar, true},
		{"SQL_DATA_TYPE", short, true},
		{"SQL_DATETIME_SUB", short, true},
		{"CHAR_OCTET_LENGTH", integer, true},
		{"ORDINAL_POSITION", integer, false},
		{"IS_NULLABLE", varchar, false},
		{"SCOPE_CATALOG", varchar, true},
		{"SCOPE_SCHEMA", varchar, true},
		{"SCOPE_TABLE", varchar, true},
		{"SOURCE_DATA_TYPE", smallint, true},
		{"IS_AUTOINCREMENT", varchar, false},
		{"IS_GENERATEDCOLUMN", varchar, false},
		{"SCOPE_CATLOG", varchar, true},
	})
}

// TypeInfoSchema returns the shape of a getTypeInfo result. The ODBC
// flavor renames PRECISION and AUTO_INCREMENT and appends
// INTERVAL_PRECISION.
func TypeInfoSchema(odbc bool) *arrow.Schema {
	if !odbc {
		return flatSchema([]flatColumn{
			{"TYPE_NAME", varchar, true},
			{"DATA_TYPE", integer, false},
			{"PRECISION", integer, true},
			{"LITERAL_PREFIX", varchar, true},
			{"LITERAL_SUFFIX", varchar, true},
			{"CREATE_PARAMS", varchar, true},
			{"NULLABLE", smallint, false},
			{"CASE_SENSITIVE", boolean, false},
			{"SEARCHABLE", smallint, false},
			{"UNSIGNED_ATTRIBUTE", boolean, true},
			{"FIXED_PREC_SCALE", boolean, false},
			{"AUTO_INCREMENT", boolean, true},
			{"LOCAL_TYPE_NAME", varchar, true},
			{"MINIMUM_SCALE", smallint, true},
			{"MAXIMUM_SCALE", smallint, true},
			{"SQL_DATA_TYPE", integer, true},
			{"SQL_DATETIME_SUB", integer, true},
			{"NUM_PREC_RADIX", integer, true},
		})
	}
	return flatSchema([]flatColumn{
		{"TYPE_NAME", varchar, true},
		{"DATA_TYPE", smallint, false},
		{"COLUMN_SIZE", integer, true},
		{"LITERAL_PREFIX", varchar, true},
		{"LITERAL_SUFFIX", varchar, true},
		{"CREATE_PARAMS", varchar, true},
		{"NULLABLE", smallint, false},
		{"CASE_SENSITIVE", smallint, false},
		{"SEARCHABLE", smallint, false},
		{"UNSIGNED_ATTRIBUTE", smallint, true},
		{"FIXED_PREC_SCALE", smallint, false},
		{"AUTO_UNIQUE_VAL", smallint, true},
		{"LOCAL_TYPE_NAME", varchar, true},
		{"MINIMUM_SCALE", smallint, true},
		{"MAXIMUM_SCALE", smallint, true},
		{"SQL_DATA_TYPE", smallint, false},
		{"SQL_DATETIME_SUB", smallint, true},
		{"NUM_PREC_RADIX", integer, true},
		{"INTERVAL_PRECISION", smallint, true},
	})
}

// PrimaryKeysSchema is the shape of a getPrimaryKeys result (JDBC and
// ODBC alike).
var PrimaryKeysSchema = flatSchema([]flatColumn{
	{"TABLE_CAT", varchar, false},
	{"TABLE_SCHEM", varchar, false},
	{"TABLE_NAME", varchar, false},
	{"COLUMN_NAME", varchar, false},
	{"KEY_SEQ", smallint, true},
	{"PK_NAME", varchar, false},
})

// ForeignKeysSchema is the shape of getImportedKeys, getExportedKeys
// and getCrossReference results. SQLFOREIGNKEYS returns it for both
// flavors.
var ForeignKeysSchema = flatSchema([]flatColumn{
	{"PKTABLE_CAT", varchar, false},
	{"PKTABLE_SCHEM", varchar, false},
	{"PKTABLE_NAME", varchar, false},
	{"PKCOLUMN_NAME", varchar, false},
	{"FKTABLE_CAT", varchar, false},
	{"FKTABLE_SCHEM", varchar, false},
	{"FKTABLE_NAME", varchar, false},
	{"FKCOLUMN_NAME", varchar, false},
	{"KEY_SEQ", smallint, true},
	{"UPDATE_RULE", smallint, true},
	{"DELETE_RULE", smallint, true},
	{"FK_NAME", varchar, false},
	{"PK_NAME", varchar, false},
	{"DEFERRABILITY", smallint, true},
})

// IndexInfoSchema returns the shape of a getIndexInfo result. ODBC has
// no BOOLEAN, so its NON_UNIQUE is SMALLINT.
func IndexInfoSchema(odbc bool) *arrow.Schema {
	nonUnique := arrow.DataType(boolean)
	if odbc {
		nonUnique = smallint
	}
	return flatSchema([]flatColumn{
		{"TABLE_CAT", varchar, false},
		{"TABLE_SCHEM", varchar, false},
		{"TABLE_NAME", varchar, false},
		{"NON_UNIQUE", nonUnique, false},
		{"INDEX_QUALIFIER", varchar, false},
		{"INDEX_NAME", varchar, true},
		{"TYPE", smallint, true},
		{"ORDINAL_POSITION", smallint, true},
		{"COLUMN_NAME", varchar, false},
		{"ASC_OR_DESC", varchar, false},
		{"CARDINALITY", bigint, true},
		{"PAGES", bigint, true},
		{"FILTER_CONDITION", varchar, true},
	})
}

// ProceduresSchema returns the shape of a getProcedures result. The
// ODBC flavor lacks SPECIFIC_NAME.
func ProceduresSchema(odbc bool) *arrow.Schema {
	cols := []flatColumn{
		{"PROCEDURE_CAT", varchar, false},
		{"PROCEDURE_SCHEM", varchar, false},
		{"PROCEDURE_NAME", varchar, false},
		{"RESERVED1", integer, true},
		{"RESERVED2", integer, true},
		{"RESERVED3", integer, true},
		{"REMARKS", varchar, true},
		{"PROCEDURE_TYPE", smallint, true},
	}
	if !odbc {
		cols = append(cols, flatColumn{"SPECIFIC_NAME", varchar, false})
	}
	return flatSchema(cols)
}

// ProcedureColumnsSchema returns the shape of a getProcedureColumns
// result. The ODBC flavor uses the ODBC names for the size columns,
// narrows DATA_TYPE to SMALLINT and lacks SPECIFIC_NAME.
func ProcedureColumnsSchema(odbc bool) *arrow.Schema {
	dataType, size, length, scale, radix := integer, "PRECISION", "LENGTH", "SCALE", "RADIX"
	if odbc {
		dataType, size, length, scale, radix = smallint, "COLUMN_SIZE", "BUFFER_LENGTH", "DECIMAL_DIGITS", "NUM_PREC_RADIX"
	}
	cols := []flatColumn{
		{"PROCEDURE_CAT", varchar, true},
		{"PROCEDURE_SCHEM", varchar, false},
		{"PROCEDURE_NAME", varchar, false},
		{"COLUMN_NAME", varchar, false},
		{"COLUMN_TYPE", smallint, true},
		{"DATA_TYPE", dataType, true},
		{"TYPE_NAME", varchar, true},
		{size, integer, true},
		{length, integer, true},
		{scale, smallint, true},
		{radix, smallint, true},
		{"NULLABLE", smallint, true},
		{"REMARKS", varchar, true},
		{"COLUMN_DEF", varchar, true},
		{"SQL_DATA_TYPE", integer, true},
		{"SQL_DATETIME_SUB", integer, true},
		{"CHAR_OCTET_LENGTH", integer, true},
		{"ORDINAL_POSITION", integer, true},
		{"IS_NULLABLE", varchar, true},
	}
	if !odbc {
		cols = append(cols, flatColumn{"SPECIFIC_NAME", varchar, false})
	}
	return flatSchema(cols)
}
