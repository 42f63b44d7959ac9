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

package internal

import (
	"context"
	"regexp"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/pattern"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

const (
	Unique     = "UNIQUE"
	PrimaryKey = "PRIMARY KEY"
	ForeignKey = "FOREIGN KEY"
)

type CatalogAndSchema struct {
	Catalog, Schema string
}

type TableInfo struct {
	Name, TableType string
	Schema          *arrow.Schema
	Constraints     []ConstraintSchema
}

type UsageSchema struct {
	ForeignKeyCatalog, ForeignKeyDbSchema, ForeignKeyTable, ForeignKeyColName string
}

type ConstraintSchema struct {
	ConstraintName, ConstraintType string
	ConstraintColumnNames          []string
	ConstraintColumnUsages         []UsageSchema
}

type GetObjDBSchemasFn func(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, schema *string) (map[string][]string, error)
type GetObjTablesFn func(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, schema *string, tableName *string, columnName *string, tableType []string) (map[CatalogAndSchema][]TableInfo, error)
type SchemaToTableInfo = map[CatalogAndSchema][]TableInfo

// PatternToRegexp compiles a search pattern (%, _) to a regexp. A nil
// pattern matches everything and yields a nil regexp.
func PatternToRegexp(p *string) *regexp.Regexp {
	if p == nil {
		return nil
	}
	return pattern.Compile(*p)
}

// ToXdbcDataType returns the JDBC type code a column of the given Arrow
// type is reported with. Extension types are reported as their storage.
func ToXdbcDataType(dt arrow.DataType) sqltypes.XdbcDataType {
	if dt == nil {
		return sqltypes.XdbcDataType_XDBC_UNKNOWN_TYPE
	}
	if ext, ok := dt.(arrow.ExtensionType); ok {
		return ToXdbcDataType(ext.StorageType())
	}
	if dt.ID() == arrow.NULL {
		return sqltypes.XdbcDataType_XDBC_UNKNOWN_TYPE
	}
	return sqltypes.FromArrowType(dt).Type.Code()
}

// Helper to store state needed for GetObjects
type GetObjects struct {
	Ctx        context.Context
	Depth      xdbc.ObjectDepth
	Catalog    *string
	DbSchema   *string
	TableName  *string
	ColumnName *string
	TableType  []string

	builder           *array.RecordBuilder
	schemaLookup      map[string][]string
	tableLookup       map[CatalogAndSchema][]TableInfo
	catalogPattern    *regexp.Regexp
	columnNamePattern *regexp.Regexp

	catalogNameBuilder           *array.StringBuilder
	catalogDbSchemasBuilder      *array.ListBuilder
	catalogDbSchemasItems        *array.StructBuilder
	dbSchemaNameBuilder          *array.StringBuilder
	dbSchemaTablesBuilder        *array.ListBuilder
	dbSchemaTablesItems          *array.StructBuilder
	tableNameBuilder             *array.StringBuilder
	tableTypeBuilder             *array.StringBuilder
	tableColumnsBuilder          *array.ListBuilder
	tableColumnsItems            *array.StructBuilder
	columnNameBuilder            *array.StringBuilder
	ordinalPositionBuilder       *array.Int32Builder
	remarksBuilder               *array.StringBuilder
	xdbcDataTypeBuilder          *array.Int16Builder
	xdbcTypeNameBuilder          *array.StringBuilder
	xdbcColumnSizeBuilder        *array.Int32Builder
	xdbcDecimalDigitsBuilder     *array.Int16Builder
	xdbcNumPrecRadixBuilder      *array.Int16Builder
	xdbcNullableBuilder          *array.Int16Builder
	xdbcColumnDefBuilder         *array.StringBuilder
	xdbcSqlDataTypeBuilder       *array.Int16Builder
	xdbcDatetimeSubBuilder       *array.Int16Builder
	xdbcCharOctetLengthBuilder   *array.Int32Builder
	xdbcIsNullableBuilder        *array.StringBuilder
	xdbcScopeCatalogBuilder      *array.StringBuilder
	xdbcScopeSchemaBuilder       *array.StringBuilder
	xdbcScopeTableBuilder        *array.StringBuilder
	xdbcIsAutoincrementBuilder   *array.BooleanBuilder
	xdbcIsGeneratedcolumnBuilder *array.BooleanBuilder
	tableConstraintsBuilder      *array.ListBuilder
	tableConstraintsItems        *array.StructBuilder
	constraintNameBuilder        *array.StringBuilder
	constraintTypeBuilder        *array.StringBuilder
	constraintColumnNameBuilder  *array.ListBuilder
	constraintColumnUsageBuilder *array.ListBuilder
	constraintColumnNameItems    *array.StringBuilder
	constraintColumnUsageItems   *array.StructBuilder
	columnUsageCatalogBuilder    *array.StringBuilder
	columnUsageSchemaBuilder     *array.StringBuilder
	columnUsageTableBuilder      *array.StringBuilder
	columnUsageColumnBuilder     *array.StringBuilder
}

func (g *GetObjects) Init(mem memory.Allocator, getObj GetObjDBSchemasFn, getTbls GetObjTablesFn) error {
	catalogToDbSchemas, err := getObj(g.Ctx, g.Depth, g.Catalog, g.DbSchema)
	if err != nil {
		return err
	}
	g.schemaLookup = catalogToDbSchemas

	tableLookup, err := getTbls(g.Ctx, g.Depth, g.Catalog, g.DbSchema, g.TableName, g.ColumnName, g.TableType)
	if err != nil {
		return err
	}
	g.tableLookup = tableLookup

	g.catalogPattern = PatternToRegexp(g.Catalog)
	g.columnNamePattern = PatternToRegexp(g.ColumnName)

	g.builder = array.NewRecordBuilder(mem, xdbc.GetObjectsSchema)
	g.catalogNameBuilder = g.builder.Field(0).(*array.StringBuilder)
	g.catalogDbSchemasBuilder = g.builder.Field(1).(*array.ListBuilder)
	g.catalogDbSchemasItems = g.catalogDbSchemasBuilder.ValueBuilder().(*array.StructBuilder)
	g.dbSchemaNameBuilder = g.catalogDbSchemasItems.FieldBuilder(0).(*array.StringBuilder)
	g.dbSchemaTablesBuilder = g.catalogDbSchemasItems.FieldBuilder(1).(*array.ListBuilder)
	g.dbSchemaTablesItems = g.dbSchemaTablesBuilder.ValueBuilder().(*array.StructBuilder)
	g.tableNameBuilder = g.dbSchemaTablesItems.FieldBuilder(0).(*array.StringBuilder)
	g.tableTypeBuilder = g.dbSchemaTablesItems.FieldBuilder(1).(*array.StringBuilder)
	g.tableColumnsBuilder = g.dbSchemaTablesItems.FieldBuilder(2).(*array.ListBuilder)
	g.tableColumnsItems = g.tableColumnsBuilder.ValueBuilder().(*array.StructBuilder)
	g.columnNameBuilder = g.tableColumnsItems.FieldBuilder(0).(*array.StringBuilder)
	g.ordinalPositionBuilder = g.tableColumnsItems.FieldBuilder(1).(*array.Int32Builder)
	g.remarksBuilder = g.tableColumnsItems.FieldBuilder(2).(*array.StringBuilder)
	g.xdbcDataTypeBuilder = g.tableColumnsItems.FieldBuilder(3).(*array.Int16Builder)
	g.xdbcTypeNameBuilder = g.tableColumnsItems.FieldBuilder(4).(*array.StringBuilder)
	g.xdbcColumnSizeBuilder = g.tableColumnsItems.FieldBuilder(5).(*array.Int32Builder)
	g.xdbcDecimalDigitsBuilder = g.tableColumnsItems.FieldBuilder(6).(*array.Int16Builder)
	g.xdbcNumPrecRadixBuilder = g.tableColumnsItems.FieldBuilder(7).(*array.Int16Builder)
	g.xdbcNullableBuilder = g.tableColumnsItems.FieldBuilder(8).(*array.Int16Builder)
	g.xdbcColumnDefBuilder = g.tableColumnsItems.FieldBuilder(9).(*array.StringBuilder)
	g.xdbcSqlDataTypeBuilder = g.tableColumnsItems.FieldBuilder(10).(*array.Int16Builder)
	g.xdbcDatetimeSubBuilder = g.tableColumnsItems.FieldBuilder(11).(*array.Int16Builder)
	g.xdbcCharOctetLengthBuilder = g.tableColumnsItems.FieldBuilder(12).(*array.Int32Builder)
	g.xdbcIsNullableBuilder = g.tableColumnsItems.FieldBuilder(13).(*array.StringBuilder)
	g.xdbcScopeCatalogBuilder = g.tableColumnsItems.FieldBuilder(14).(*array.StringBuilder)
	g.xdbcScopeSchemaBuilder = g.tableColumnsItems.FieldBuilder(15).(*array.StringBuilder)
	g.xdbcScopeTableBuilder = g.tableColumnsItems.FieldBuilder(16).(*array.StringBuilder)
	g.xdbcIsAutoincrementBuilder = g.tableColumnsItems.FieldBuilder(17).(*array.BooleanBuilder)
	g.xdbcIsGeneratedcolumnBuilder = g.tableColumnsItems.FieldBuilder(18).(*array.BooleanBuilder)
	g.tableConstraintsBuilder = g.dbSchemaTablesItems.FieldBuilder(3).(*array.ListBuilder)
	g.tableConstraintsItems = g.tableConstraintsBuilder.ValueBuilder().(*array.StructBuilder)
	g.constraintNameBuilder = g.tableConstraintsItems.FieldBuilder(0).(*array.StringBuilder)
	g.constraintTypeBuilder = g.tableConstraintsItems.FieldBuilder(1).(*array.StringBuilder)
	g.constraintColumnNameBuilder = g.tableConstraintsItems.FieldBuilder(2).(*array.ListBuilder)
	g.constraintColumnNameItems = g.constraintColumnNameBuilder.ValueBuilder().(*array.StringBuilder)
	g.constraintColumnUsageBuilder = g.tableConstraintsItems.FieldBuilder(3).(*array.ListBuilder)
	g.constraintColumnUsageItems = g.constraintColumnUsageBuilder.ValueBuilder().(*array.StructBuilder)
	g.columnUsageCatalogBuilder = g.constraintColumnUsageItems.FieldBuilder(0).(*array.StringBuilder)
	g.columnUsageSchemaBuilder = g.constraintColumnUsageItems.FieldBuilder(1).(*array.StringBuilder)
	g.columnUsageTableBuilder = g.constraintColumnUsageItems.FieldBuilder(2).(*array.StringBuilder)
	g.columnUsageColumnBuilder = g.constraintColumnUsageItems.FieldBuilder(3).(*array.StringBuilder)

	return nil
}

func (g *GetObjects) Release() {
	g.builder.Release()
}

func (g *GetObjects) Finish() (array.RecordReader, error) {
	record := g.builder.NewRecord()
	defer record.Release()

	result, err := array.NewRecordReader(g.builder.Schema(), []arrow.Record{record})
	if err != nil {
		return nil, xdbc.Error{
			Msg:  err.Error(),
			Code: xdbc.StatusInternal,
		}
	}
	return result, nil
}

func (g *GetObjects) AppendCatalog(catalogName string) {
	if g.catalogPattern != nil && !g.catalogPattern.MatchString(catalogName) {
		return
	}
	g.catalogNameBuilder.Append(catalogName)

	if g.Depth == xdbc.ObjectDepthCatalogs {
		g.catalogDbSchemasBuilder.AppendNull()
		return
	}

	g.catalogDbSchemasBuilder.Append(true)

	for _, dbSchemaName := range g.schemaLookup[catalogName] {
		g.appendDbSchema(catalogName, dbSchemaName)
	}
}

func (g *GetObjects) appendDbSchema(catalogName, dbSchemaName string) {
	g.dbSchemaNameBuilder.Append(dbSchemaName)
	g.catalogDbSchemasItems.Append(true)

	if g.Depth == xdbc.ObjectDepthDBSchemas {
		g.dbSchemaTablesBuilder.AppendNull()
		return
	}
	g.dbSchemaTablesBuilder.Append(true)

	catalogAndSchema := CatalogAndSchema{Catalog: catalogName, Schema: dbSchemaName}
	for _, tableInfo := range g.tableLookup[catalogAndSchema] {
		g.appendTableInfo(tableInfo)
	}
}

func (g *GetObjects) appendTableInfo(tableInfo TableInfo) {
	g.tableNameBuilder.Append(tableInfo.Name)
	g.tableTypeBuilder.Append(tableInfo.TableType)
	g.dbSchemaTablesItems.Append(true)

	g.appendTableConstraints(tableInfo)
	g.appendColumnsInfo(tableInfo)
}

func (g *GetObjects) appendTableConstraints(tableInfo TableInfo) {
	if g.Depth == xdbc.ObjectDepthTables {
		g.tableConstraintsBuilder.AppendNull()
		return
	}

	g.tableConstraintsBuilder.Append(true)
	for _, data := range tableInfo.Constraints {
		g.constraintNameBuilder.Append(data.ConstraintName)
		g.constraintTypeBuilder.Append(data.ConstraintType)
		g.appendConstraintColumns(data)
		g.appendConstraintColumnUsages(data)
		g.tableConstraintsItems.Append(true)
	}
}

func (g *GetObjects) appendConstraintColumns(constraintSchema ConstraintSchema) {
	if len(constraintSchema.ConstraintColumnNames) == 0 {
		g.constraintColumnNameBuilder.AppendNull()
		return
	}
	g.constraintColumnNameBuilder.Append(true)
	for _, columnName := range constraintSchema.ConstraintColumnNames {
		g.constraintColumnNameItems.Append(columnName)
	}
}

func (g *GetObjects) appendConstraintColumnUsages(constraintSchema ConstraintSchema) {
	if len(constraintSchema.ConstraintColumnUsages) == 0 {
		g.constraintColumnUsageBuilder.AppendNull()
		return
	}
	g.constraintColumnUsageBuilder.Append(true)
	for _, columnUsages := range constraintSchema.ConstraintColumnUsages {
		g.columnUsageCatalogBuilder.Append(columnUsages.ForeignKeyCatalog)
		g.columnUsageSchemaBuilder.Append(columnUsages.ForeignKeyDbSchema)
		g.columnUsageTableBuilder.Append(columnUsages.ForeignKeyTable)
		g.columnUsageColumnBuilder.Append(columnUsages.ForeignKeyColName)
		g.constraintColumnUsageItems.Append(true)
	}
}

func appendMetaString(b *array.StringBuilder, md arrow.Metadata, key string) {
	if v, ok := md.GetValue(key); ok {
		b.Append(v)
	} else {
		b.AppendNull()
	}
}

func appendMetaInt16(b *array.Int16Builder, md arrow.Metadata, key string) {
	if v, ok := md.GetValue(key); ok {
		if n, err := strconv.ParseInt(v, 10, 16); err == nil {
			b.Append(int16(n))
			return
		}
	}
	b.AppendNull()
}

func appendMetaInt32(b *array.Int32Builder, md arrow.Metadata, key string) bool {
	if v, ok := md.GetValue(key); ok {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			b.Append(int32(n))
			return true
		}
	}
	return false
}

func (g *GetObjects) appendColumnsInfo(tableInfo TableInfo) {
	if g.Depth == xdbc.ObjectDepthTables {
		g.tableColumnsBuilder.AppendNull()
		return
	}

	g.tableColumnsBuilder.Append(true)

	if tableInfo.Schema == nil {
		return
	}

	for colIndex, column := range tableInfo.Schema.Fields() {
		if g.columnNamePattern != nil && !g.columnNamePattern.MatchString(column.Name) {
			continue
		}
		g.columnNameBuilder.Append(column.Name)
		pos := int32(colIndex + 1)

		if !column.HasMetadata() {
			g.remarksBuilder.AppendNull()
			g.xdbcDataTypeBuilder.Append(int16(ToXdbcDataType(column.Type)))
			g.xdbcTypeNameBuilder.AppendNull()
			g.xdbcNullableBuilder.Append(boolToInt16(column.Nullable))
			g.xdbcIsNullableBuilder.AppendNull()
			g.xdbcColumnSizeBuilder.AppendNull()
			g.xdbcDecimalDigitsBuilder.AppendNull()
			g.xdbcNumPrecRadixBuilder.AppendNull()
			g.xdbcCharOctetLengthBuilder.AppendNull()
			g.xdbcDatetimeSubBuilder.AppendNull()
			g.xdbcSqlDataTypeBuilder.AppendNull()
			g.xdbcColumnDefBuilder.AppendNull()
		} else {
			md := column.Metadata
			appendMetaString(g.remarksBuilder, md, sqltypes.MetaComment)
			appendMetaString(g.xdbcTypeNameBuilder, md, sqltypes.MetaTypeName)

			if strNullable, ok := md.GetValue(sqltypes.MetaNullable); ok {
				nullable, _ := strconv.ParseBool(strNullable)
				g.xdbcNullableBuilder.Append(boolToInt16(nullable))
			} else {
				g.xdbcNullableBuilder.AppendNull()
			}
			appendMetaString(g.xdbcIsNullableBuilder, md, sqltypes.MetaIsNullable)

			if _, ok := md.GetValue(sqltypes.MetaDataType); ok {
				appendMetaInt16(g.xdbcDataTypeBuilder, md, sqltypes.MetaDataType)
			} else {
				g.xdbcDataTypeBuilder.Append(int16(ToXdbcDataType(column.Type)))
			}
			appendMetaInt16(g.xdbcSqlDataTypeBuilder, md, sqltypes.MetaSQLDataType)

			// numeric columns carry a precision, text and binary ones a length
			if !appendMetaInt32(g.xdbcColumnSizeBuilder, md, sqltypes.MetaPrecision) &&
				!appendMetaInt32(g.xdbcColumnSizeBuilder, md, sqltypes.MetaCharMaxLength) {
				g.xdbcColumnSizeBuilder.AppendNull()
			}

			appendMetaInt16(g.xdbcDecimalDigitsBuilder, md, sqltypes.MetaScale)
			appendMetaInt16(g.xdbcNumPrecRadixBuilder, md, sqltypes.MetaNumPrecRadix)
			if !appendMetaInt32(g.xdbcCharOctetLengthBuilder, md, sqltypes.MetaCharOctetLength) {
				g.xdbcCharOctetLengthBuilder.AppendNull()
			}
			appendMetaInt16(g.xdbcDatetimeSubBuilder, md, sqltypes.MetaDatetimeSub)
			appendMetaString(g.xdbcColumnDefBuilder, md, sqltypes.MetaColumnDefault)

			if ordinal, ok := md.GetValue(sqltypes.MetaOrdinal); ok {
				if v, err := strconv.ParseInt(ordinal, 10, 32); err == nil {
					pos = int32(v)
				}
			}
		}
		g.ordinalPositionBuilder.Append(pos)

		g.xdbcScopeCatalogBuilder.AppendNull()
		g.xdbcScopeSchemaBuilder.AppendNull()
		g.xdbcScopeTableBuilder.AppendNull()
		g.xdbcIsAutoincrementBuilder.AppendNull()
		g.xdbcIsGeneratedcolumnBuilder.AppendNull()

		g.tableColumnsItems.Append(true)
	}
}

func boolToInt16(b bool) int16 {
	if b {
		return 1
	}
	return 0
}
