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

package sqlite

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

// Derby's ODBC metadata comes from catalog procedures in SYSIBM. They
// take the same arguments as the JDBC DatabaseMetaData methods plus an
// options string; DATATYPE='ODBC' selects the ODBC result shape.

// SQL_DATETIME, the ODBC SQL_DATA_TYPE of the datetime types.
const odbcDatetime = 9

type procedure func(c *connectionImpl, ctx context.Context, args []*string, odbc bool) (arrow.Record, error)

type procParam struct {
	name string
	decl sqltypes.Declared
}

type catalogProcedure struct {
	params  []procParam
	fn      procedure
	remarks string
}

func procParams(spec ...string) []procParam {
	out := make([]procParam, len(spec))
	for i, s := range spec {
		name, decl, _ := strings.Cut(s, " ")
		d, err := sqltypes.ParseDeclaredType(decl)
		if err != nil {
			panic(err)
		}
		out[i] = procParam{name: name, decl: d}
	}
	return out
}

const (
	nameParam    = "VARCHAR(128)"
	optionsParam = "OPTIONS VARCHAR(4000)"
)

var procedures map[string]catalogProcedure

func init() {
	procedures = map[string]catalogProcedure{
		"SQLTABLES": {
			procParams("CATALOGNAME "+nameParam, "SCHEMANAME "+nameParam, "TABLENAME "+nameParam, "TABLETYPE VARCHAR(4000)", optionsParam),
			(*connectionImpl).sqlTables, "getTables",
		},
		"SQLCOLUMNS": {
			procParams("CATALOGNAME "+nameParam, "SCHEMANAME "+nameParam, "TABLENAME "+nameParam, "COLUMNNAME "+nameParam, optionsParam),
			(*connectionImpl).sqlColumns, "getColumns",
		},
		"SQLGETTYPEINFO": {
			procParams("DATATYPE SMALLINT", optionsParam),
			(*connectionImpl).sqlGetTypeInfo, "getTypeInfo",
		},
		"SQLPRIMARYKEYS": {
			procParams("CATALOGNAME "+nameParam, "SCHEMANAME "+nameParam, "TABLENAME "+nameParam, optionsParam),
			(*connectionImpl).sqlPrimaryKeys, "getPrimaryKeys",
		},
		"SQLFOREIGNKEYS": {
			procParams("PKCATALOGNAME "+nameParam, "PKSCHEMANAME "+nameParam, "PKTABLENAME "+nameParam,
				"FKCATALOGNAME "+nameParam, "FKSCHEMANAME "+nameParam, "FKTABLENAME "+nameParam, optionsParam),
			(*connectionImpl).sqlForeignKeys, "getImportedKeys, getExportedKeys and getCrossReference",
		},
		"SQLSTATISTICS": {
			procParams("CATALOGNAME "+nameParam, "SCHEMANAME "+nameParam, "TABLENAME "+nameParam,
				"UNIQUE SMALLINT", "RESERVED SMALLINT", optionsParam),
			(*connectionImpl).sqlStatistics, "getIndexInfo",
		},
		"SQLPROCEDURES": {
			procParams("CATALOGNAME "+nameParam, "SCHEMANAME "+nameParam, "PROCNAME "+nameParam, optionsParam),
			(*connectionImpl).sqlProcedures, "getProcedures",
		},
		"SQLPROCEDURECOLS": {
			procParams("CATALOGNAME "+nameParam, "SCHEMANAME "+nameParam, "PROCNAME "+nameParam, "PARAMNAME "+nameParam, optionsParam),
			(*connectionImpl).sqlProcedureCols, "getProcedureColumns",
		},
	}
}

// call runs a catalog procedure. Parameter markers take their values,
// in order, from params.
func (c *connectionImpl) call(ctx context.Context, cmd *callCmd, params []convert.Value) (array.RecordReader, error) {
	schema, name := cmd.Name.split()
	proc, ok := procedures[strings.ToUpper(name)]
	if !ok || !strings.EqualFold(schema, schemaSysIBM) || len(cmd.Args) != len(proc.params) {
		return nil, c.ErrorHelper.StateErrorf(xdbc.StateUnknownRoutine,
			"'%s' is not recognized as a function or procedure.", strings.TrimPrefix(schema+"."+name, "."))
	}

	args := make([]*string, len(cmd.Args))
	next := 0
	for i, a := range cmd.Args {
		switch {
		case a.Param:
			if next >= len(params) {
				return nil, c.ErrorHelper.StateErrorf(xdbc.StateParamNotSet, "At least one parameter to the current statement is uninitialized.")
			}
			v := params[next]
			next++
			if v.IsNull() {
				continue
			}
			s, err := v.Text()
			if err != nil {
				return nil, err
			}
			args[i] = &s
		case a.String != nil:
			s := stringValue(*a.String)
			args[i] = &s
		case a.Number != nil:
			args[i] = a.Number
		}
	}

	odbc := false
	if opts := args[len(args)-1]; opts != nil {
		odbc = strings.EqualFold(procedureOptions(*opts)["DATATYPE"], "ODBC")
	}

	c.Logger.Debug("calling catalog procedure", "procedure", name, "odbc", odbc)
	rec, err := proc.fn(c, ctx, args, odbc)
	if err != nil {
		return nil, err
	}
	defer rec.Release()
	return array.NewRecordReader(rec.Schema(), []arrow.Record{rec})
}

// procedureOptions parses an options string such as
// "DATATYPE='ODBC';GETCATALOGS=1".
func procedureOptions(s string) map[string]string {
	out := map[string]string{}
	for _, kv := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), "'")
	}
	return out
}

// appendRow appends one value per column. Integers are narrowed to the
// column type; booleans become 0 or 1 in integer columns.
func appendRow(b *array.RecordBuilder, values ...any) {
	for i, v := range values {
		fb := b.Field(i)
		if v == nil {
			fb.AppendNull()
			continue
		}
		if bv, ok := v.(bool); ok {
			if _, isBool := fb.(*array.BooleanBuilder); !isBool {
				v = 0
				if bv {
					v = 1
				}
			}
		}
		switch fb := fb.(type) {
		case *array.StringBuilder:
			fb.Append(v.(string))
		case *array.BooleanBuilder:
			fb.Append(v.(bool))
		case *array.Int16Builder:
			fb.Append(int16(toInt(v)))
		case *array.Int32Builder:
			fb.Append(int32(toInt(v)))
		case *array.Int64Builder:
			fb.Append(toInt(v))
		default:
			panic(fmt.Sprintf("unexpected builder %T", fb))
		}
	}
}

func toInt(v any) int64 {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case sqltypes.XdbcDataType:
		return int64(v)
	}
	panic(fmt.Sprintf("unexpected integer %T", v))
}

func splitTypes(s *string) []string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(*s, ",") {
		if t = strings.Trim(strings.TrimSpace(t), "'"); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (c *connectionImpl) sqlTables(ctx context.Context, args []*string, _ bool) (arrow.Record, error) {
	catalog, schema, table, types := args[0], args[1], args[2], splitTypes(args[3])

	var rows []tableEntry
	if matches(catalog, "") {
		for _, s := range c.schemaNames() {
			if !matches(schema, s) {
				continue
			}
			tables, err := c.listTables(ctx, s)
			if err != nil {
				return nil, err
			}
			for _, t := range tables {
				if matches(table, t.name) && (types == nil || slices.Contains(types, t.tableType)) {
					rows = append(rows, t)
				}
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.tableType != b.tableType {
			return a.tableType < b.tableType
		}
		if a.schema != b.schema {
			return a.schema < b.schema
		}
		return a.name < b.name
	})

	b := array.NewRecordBuilder(c.Alloc, xdbc.TablesSchema)
	defer b.Release()
	for _, t := range rows {
		appendRow(b, "", t.schema, t.name, t.tableType, "", nil, nil, nil, nil, nil)
	}
	return b.NewRecord(), nil
}

func (c *connectionImpl) sqlColumns(ctx context.Context, args []*string, odbc bool) (arrow.Record, error) {
	catalog, schema, table, column := args[0], args[1], args[2], args[3]

	b := array.NewRecordBuilder(c.Alloc, xdbc.ColumnsSchema(odbc))
	defer b.Release()
	if !matches(catalog, "") {
		return b.NewRecord(), nil
	}

	for _, s := range c.schemaNames() {
		if !matches(schema, s) {
			continue
		}
		tables, err := c.listTables(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if !matches(table, t.name) {
				continue
			}
			cols, err := c.tableColumns(ctx, s, t.name)
			if err != nil {
				return nil, err
			}
			for _, ci := range cols {
				if matches(column, ci.name) {
					appendRow(b, columnRow(t, ci, odbc)...)
				}
			}
		}
	}
	return b.NewRecord(), nil
}

// columnRow is one getColumns row.
func columnRow(t tableEntry, ci columnInfo, odbc bool) []any {
	d := ci.decl
	var decimals, radix, octets, def, sqlType, datetimeSub any
	if v, ok := d.DecimalDigits(); ok {
		decimals = v
	}
	if v, ok := d.Type.NumPrecRadix(); ok && d.Type.IsNumeric() {
		radix = v
	}
	if v, ok := d.CharOctetLength(); ok {
		octets = v
	}
	if ci.def != nil {
		def = *ci.def
	}
	if odbc {
		sqlType, datetimeSub = odbcSQLType(d.Type)
	}
	nullable, isNullable := 0, "NO"
	if ci.nullable {
		nullable, isNullable = 1, "YES"
	}
	return []any{
		"", t.schema, t.name, ci.name,
		d.Type.Code(), d.Type.TypeName(), d.ColumnSize(), nil,
		decimals, radix, nullable, "", def,
		sqlType, datetimeSub, octets, ci.ordinal, isNullable,
		nil, nil, nil, nil, "NO", "NO", nil,
	}
}

// odbcSQLType returns the ODBC SQL_DATA_TYPE and SQL_DATETIME_SUB of t.
func odbcSQLType(t sqltypes.SQLType) (any, any) {
	switch t {
	case sqltypes.Date:
		return odbcDatetime, 1
	case sqltypes.Time:
		return odbcDatetime, 2
	case sqltypes.Timestamp:
		return odbcDatetime, 3
	}
	return t.Code(), nil
}

func (c *connectionImpl) sqlGetTypeInfo(_ context.Context, args []*string, odbc bool) (arrow.Record, error) {
	var want int64
	if args[0] != nil {
		n, err := strconv.ParseInt(*args[0], 10, 16)
		if err != nil {
			return nil, c.ErrorHelper.StateErrorf(xdbc.StateInvalidCharFormat, "Invalid character string format for type SMALLINT.")
		}
		want = n
	}

	var types []sqltypes.SQLType
	for _, t := range sqltypes.AllTypes {
		if t.InTypeInfo() && (want == 0 || int64(t.Code()) == want) {
			types = append(types, t)
		}
	}
	sort.SliceStable(types, func(i, j int) bool { return types[i].Code() < types[j].Code() })

	b := array.NewRecordBuilder(c.Alloc, xdbc.TypeInfoSchema(odbc))
	defer b.Release()
	for _, t := range types {
		appendRow(b, typeInfoRow(t, odbc)...)
	}
	return b.NewRecord(), nil
}

// typeInfoRow is one getTypeInfo row. The ODBC flavor also fills
// SQL_DATA_TYPE and SQL_DATETIME_SUB and appends INTERVAL_PRECISION.
func typeInfoRow(t sqltypes.SQLType, odbc bool) []any {
	var prefix, suffix, params, unsigned, autoInc, minScale, maxScale, radix, sqlType, datetimeSub any
	if p, s, ok := t.LiteralAffixes(); ok {
		prefix, suffix = p, s
	}
	if p, ok := t.CreateParams(); ok {
		params = p
	}
	if t.IsNumeric() {
		unsigned = false
		autoInc = t.IsInteger()
	}
	if lo, hi, ok := t.ScaleRange(); ok {
		minScale, maxScale = lo, hi
	}
	if r, ok := t.NumPrecRadix(); ok {
		radix = r
	}
	if odbc {
		sqlType, datetimeSub = odbcSQLType(t)
	}
	row := []any{
		t.TypeName(), t.Code(), t.Precision(), prefix, suffix, params,
		sqltypes.TypeNullable, t.CaseSensitive(), t.Searchable(), unsigned,
		false, autoInc, t.TypeName(), minScale, maxScale,
		sqlType, datetimeSub, radix,
	}
	if odbc {
		row = append(row, nil)
	}
	return row
}

// DatabaseMetaData constants used by the key, index and procedure
// results.
const (
	tableIndexOther   = 3
	procedureNoResult = 1
	procedureColumnIn = 1
	procedureNullable = 1
)

// namedTables lists the tables in the schemas matching schema whose
// name is exactly table, as stored. A nil table lists every table.
func (c *connectionImpl) namedTables(ctx context.Context, catalog, schema, table *string) ([]tableEntry, error) {
	if !matches(catalog, "") {
		return nil, nil
	}
	var out []tableEntry
	for _, s := range c.schemaNames() {
		if !matches(schema, s) {
			continue
		}
		tables, err := c.listTables(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if t.tableType != xdbc.TableTypeView && (table == nil || *table == t.name) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (c *connectionImpl) nullTableName() error {
	return c.ErrorHelper.StateErrorf(xdbc.StateNullTableName, "Table name can not be null")
}

func (c *connectionImpl) sqlPrimaryKeys(ctx context.Context, args []*string, _ bool) (arrow.Record, error) {
	if args[2] == nil {
		return nil, c.nullTableName()
	}
	tables, err := c.namedTables(ctx, args[0], args[1], args[2])
	if err != nil {
		return nil, err
	}

	type pkRow struct {
		schema, table, column string
		seq                   int
		name                  string
	}
	var rows []pkRow
	for _, t := range tables {
		keys, err := c.uniqueKeys(ctx, t.schema, t.name)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 || keys[0].kind != internal.PrimaryKey {
			continue
		}
		for i, col := range keys[0].columns {
			rows = append(rows, pkRow{t.schema, t.name, col, i + 1, keys[0].name})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].schema != rows[j].schema {
			return rows[i].schema < rows[j].schema
		}
		return rows[i].column < rows[j].column
	})

	b := array.NewRecordBuilder(c.Alloc, xdbc.PrimaryKeysSchema)
	defer b.Release()
	for _, r := range rows {
		appendRow(b, "", r.schema, r.table, r.column, r.seq, r.name)
	}
	return b.NewRecord(), nil
}

type fkRow struct {
	pkSchema, pkTable, pkColumn string
	fkSchema, fkTable, fkColumn string
	seq                         int
	key                         keyConstraint
}

// sqlForeignKeys answers getImportedKeys with IMPORTEDKEY=1 and
// getExportedKeys with EXPORTEDKEY=1. Otherwise it is getCrossReference,
// except that both table names may be null.
func (c *connectionImpl) sqlForeignKeys(ctx context.Context, args []*string, _ bool) (arrow.Record, error) {
	pkCatalog, pkSchema, pkTable := args[0], args[1], args[2]
	fkCatalog, fkSchema, fkTable := args[3], args[4], args[5]
	var opts map[string]string
	if args[6] != nil {
		opts = procedureOptions(*args[6])
	}
	imported, exported := opts["IMPORTEDKEY"] == "1", opts["EXPORTEDKEY"] == "1"
	switch {
	case imported:
		if fkTable == nil {
			return nil, c.nullTableName()
		}
		pkCatalog, pkSchema, pkTable = nil, nil, nil
	case exported:
		if pkTable == nil {
			return nil, c.nullTableName()
		}
		fkCatalog, fkSchema, fkTable = nil, nil, nil
	}

	var rows []fkRow
	if matches(pkCatalog, "") {
		tables, err := c.namedTables(ctx, fkCatalog, fkSchema, fkTable)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if !matches(pkSchema, t.schema) {
				continue
			}
			fks, err := c.foreignKeys(ctx, t.schema, t.name)
			if err != nil {
				return nil, err
			}
			for _, k := range fks {
				if pkTable != nil && *pkTable != k.refTable {
					continue
				}
				for i, col := range k.columns {
					r := fkRow{pkSchema: t.schema, pkTable: k.refTable, fkSchema: t.schema, fkTable: t.name, fkColumn: col, seq: i + 1, key: k}
					if i < len(k.refColumns) {
						r.pkColumn = k.refColumns[i]
					}
					rows = append(rows, r)
				}
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		ka := []string{a.fkSchema, a.fkTable}
		kb := []string{b.fkSchema, b.fkTable}
		if imported {
			ka, kb = []string{a.pkSchema, a.pkTable}, []string{b.pkSchema, b.pkTable}
		}
		if cmp := slices.Compare(ka, kb); cmp != 0 {
			return cmp < 0
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return a.key.name < b.key.name
	})

	b := array.NewRecordBuilder(c.Alloc, xdbc.ForeignKeysSchema)
	defer b.Release()
	for _, r := range rows {
		appendRow(b, "", r.pkSchema, r.pkTable, r.pkColumn, "", r.fkSchema, r.fkTable, r.fkColumn,
			r.seq, r.key.onUpdate, r.key.onDelete, r.key.name, r.key.refName, keyNotDeferrable)
	}
	return b.NewRecord(), nil
}

// sqlStatistics is getIndexInfo. A UNIQUE argument of 0 selects unique
// indexes only.
func (c *connectionImpl) sqlStatistics(ctx context.Context, args []*string, odbc bool) (arrow.Record, error) {
	if args[2] == nil {
		return nil, c.nullTableName()
	}
	uniqueOnly := args[3] != nil && (*args[3] == "0" || strings.EqualFold(*args[3], "false"))
	tables, err := c.namedTables(ctx, args[0], args[1], args[2])
	if err != nil {
		return nil, err
	}

	type indexRow struct {
		t  tableEntry
		ic indexColumn
	}
	var rows []indexRow
	for _, t := range tables {
		idx, err := c.tableIndexes(ctx, t.schema, t.name)
		if err != nil {
			return nil, err
		}
		for _, ic := range idx {
			if ic.unique || !uniqueOnly {
				rows = append(rows, indexRow{t, ic})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].ic, rows[j].ic
		if a.unique != b.unique {
			return a.unique
		}
		if a.index != b.index {
			return a.index < b.index
		}
		return a.ordinal < b.ordinal
	})

	b := array.NewRecordBuilder(c.Alloc, xdbc.IndexInfoSchema(odbc))
	defer b.Release()
	for _, r := range rows {
		order := "A"
		if r.ic.desc {
			order = "D"
		}
		appendRow(b, "", r.t.schema, r.t.name, !r.ic.unique, "", r.ic.index, tableIndexOther,
			r.ic.ordinal, r.ic.column, order, nil, nil, nil)
	}
	return b.NewRecord(), nil
}

// procedureNames lists the catalog procedures matching name, sorted.
func procedureNames(catalog, schema, name *string) []string {
	if !matches(catalog, "") || !matches(schema, schemaSysIBM) {
		return nil
	}
	var out []string
	for n := range procedures {
		if matches(name, n) {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// sqlProcedures is getProcedures. The only procedures are the catalog
// procedures themselves.
func (c *connectionImpl) sqlProcedures(_ context.Context, args []*string, odbc bool) (arrow.Record, error) {
	b := array.NewRecordBuilder(c.Alloc, xdbc.ProceduresSchema(odbc))
	defer b.Release()
	for _, name := range procedureNames(args[0], args[1], args[2]) {
		row := []any{"", schemaSysIBM, name, nil, nil, nil, procedures[name].remarks, procedureNoResult}
		if !odbc {
			row = append(row, name)
		}
		appendRow(b, row...)
	}
	return b.NewRecord(), nil
}

// bufferLength is the LENGTH of a procedure parameter: its size in
// bytes where that is fixed.
func bufferLength(d sqltypes.Declared) any {
	if n, ok := d.CharOctetLength(); ok {
		return n
	}
	switch d.Type {
	case sqltypes.SmallInt:
		return 2
	case sqltypes.Integer:
		return 4
	case sqltypes.BigInt:
		return 8
	}
	return nil
}

func (c *connectionImpl) sqlProcedureCols(_ context.Context, args []*string, odbc bool) (arrow.Record, error) {
	b := array.NewRecordBuilder(c.Alloc, xdbc.ProcedureColumnsSchema(odbc))
	defer b.Release()
	for _, name := range procedureNames(args[0], args[1], args[2]) {
		for i, p := range procedures[name].params {
			if !matches(args[3], p.name) {
				continue
			}
			d := p.decl
			var decimals, radix, octets any
			if v, ok := d.DecimalDigits(); ok {
				decimals = v
			}
			if v, ok := d.Type.NumPrecRadix(); ok && d.Type.IsNumeric() {
				radix = v
			}
			if v, ok := d.CharOctetLength(); ok {
				octets = v
			}
			sqlType, datetimeSub := odbcSQLType(d.Type)
			row := []any{
				nil, schemaSysIBM, name, p.name, procedureColumnIn,
				d.Type.Code(), d.Type.TypeName(), d.ColumnSize(), bufferLength(d), decimals, radix,
				procedureNullable, nil, nil, sqlType, datetimeSub, octets, i + 1, "YES",
			}
			if !odbc {
				row = append(row, name)
			}
			appendRow(b, row...)
		}
	}
	return b.NewRecord(), nil
}
