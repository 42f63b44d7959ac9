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
	"database/sql"
	"slices"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal"
	"github.com/apache/derby-conformance/go/xdbc/pattern"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

const schemaSysIBM = "SYSIBM"

var tableTypes = []string{xdbc.TableTypeSynonym, xdbc.TableTypeSystemTable, xdbc.TableTypeTable, xdbc.TableTypeView}

type tableEntry struct {
	schema, name, tableType string
}

type columnInfo struct {
	name     string
	decl     sqltypes.Declared
	nullable bool
	def      *string
	ordinal  int
	// position in the primary key, 0 outside it
	pk       int
}

func matches(p *string, s string) bool {
	return p == nil || pattern.Match(*p, s)
}

// schemaNames lists the schemas visible to the connection, sorted.
func (c *connectionImpl) schemaNames() []string {
	names := []string{schemaApp, schemaSys, schemaSysIBM}
	schemas, _ := c.db.snapshotSchemas()
	for _, s := range schemas {
		if c.attached[s.name] {
			names = append(names, s.name)
		}
	}
	sort.Strings(names)
	return names
}

// dbAlias returns the attached database holding a schema's tables.
// SYSIBM exists but holds no tables.
func (c *connectionImpl) dbAlias(schema string) (string, bool) {
	switch schema {
	case schemaApp, schemaSys:
		return "main", true
	case schemaSysIBM:
		return "", true
	}
	if c.attached[schema] {
		return schema, true
	}
	return "", false
}

func (c *connectionImpl) listTables(ctx context.Context, schema string) ([]tableEntry, error) {
	alias, ok := c.dbAlias(schema)
	if !ok || alias == "" {
		return nil, nil
	}

	rows, err := c.conn.QueryContext(ctx, "SELECT name, type FROM "+quoteIdent(alias)+".sqlite_schema WHERE type IN ('table', 'view')")
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	defer rows.Close()

	var out []tableEntry
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, c.fail(ctx, err)
		}
		system := strings.HasPrefix(name, "sqlite_")
		switch {
		case schema == schemaSys && system:
			out = append(out, tableEntry{schema, name, xdbc.TableTypeSystemTable})
		case schema != schemaSys && !system && typ == "view":
			out = append(out, tableEntry{schema, name, xdbc.TableTypeView})
		case schema != schemaSys && !system:
			out = append(out, tableEntry{schema, name, xdbc.TableTypeTable})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}
	if schema == schemaSys {
		out = append(out, tableEntry{schema, "sqlite_schema", xdbc.TableTypeSystemTable})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// declaredOf resolves a column's declared type. Declarations outside
// the Derby grammar fall back to SQLite's type affinity rules.
func declaredOf(decl string) sqltypes.Declared {
	if d, err := sqltypes.ParseDeclaredType(decl); err == nil {
		return d
	}
	upper := strings.ToUpper(decl)
	switch {
	case strings.Contains(upper, "INT"):
		return sqltypes.Of(sqltypes.BigInt)
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return sqltypes.Of(sqltypes.Varchar)
	case upper == "", strings.Contains(upper, "BLOB"):
		return sqltypes.Of(sqltypes.Varbinary)
	}
	return sqltypes.Of(sqltypes.Double)
}

func (c *connectionImpl) tableColumns(ctx context.Context, schema, table string) ([]columnInfo, error) {
	alias, ok := c.dbAlias(schema)
	if !ok || alias == "" {
		return nil, nil
	}

	rows, err := c.conn.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", dflt_value, pk FROM pragma_table_info(?, ?)`, table, alias)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	defer rows.Close()

	var out []columnInfo
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			def              sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &def, &pk); err != nil {
			return nil, c.fail(ctx, err)
		}
		ci := columnInfo{
			name:     name,
			decl:     declaredOf(typ),
			nullable: notNull == 0 && pk == 0,
			ordinal:  cid + 1,
			pk:       pk,
		}
		if def.Valid {
			ci.def = &def.String
		}
		out = append(out, ci)
	}
	return out, c.fail(ctx, rows.Err())
}

func (ci columnInfo) field() arrow.Field {
	f := ci.decl.Field(ci.name, ci.nullable, ci.ordinal)
	if ci.def != nil {
		keys := append(slices.Clone(f.Metadata.Keys()), sqltypes.MetaColumnDefault)
		values := append(slices.Clone(f.Metadata.Values()), *ci.def)
		f.Metadata = arrow.NewMetadata(keys, values)
	}
	return f
}

func (c *connectionImpl) GetObjectsCatalogs(ctx context.Context, catalog *string) ([]string, error) {
	if matches(catalog, "") {
		return []string{""}, nil
	}
	return []string{}, nil
}

func (c *connectionImpl) GetObjectsDbSchemas(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, schema *string) (map[string][]string, error) {
	out := map[string][]string{}
	if !matches(catalog, "") {
		return out, nil
	}
	if err := c.syncSchemas(ctx); err != nil {
		return nil, err
	}
	for _, name := range c.schemaNames() {
		if matches(schema, name) {
			out[""] = append(out[""], name)
		}
	}
	return out, nil
}

func (c *connectionImpl) GetObjectsTables(ctx context.Context, depth xdbc.ObjectDepth, catalog *string, schema *string, tableName *string, columnName *string, tableType []string) (map[internal.CatalogAndSchema][]internal.TableInfo, error) {
	out := make(map[internal.CatalogAndSchema][]internal.TableInfo)
	if !matches(catalog, "") {
		return out, nil
	}
	if err := c.syncSchemas(ctx); err != nil {
		return nil, err
	}

	for _, s := range c.schemaNames() {
		if !matches(schema, s) {
			continue
		}
		tables, err := c.listTables(ctx, s)
		if err != nil {
			return nil, err
		}
		key := internal.CatalogAndSchema{Catalog: "", Schema: s}
		for _, t := range tables {
			if !matches(tableName, t.name) || (len(tableType) > 0 && !slices.Contains(tableType, t.tableType)) {
				continue
			}
			info := internal.TableInfo{Name: t.name, TableType: t.tableType}
			if depth == xdbc.ObjectDepthAll {
				cols, err := c.tableColumns(ctx, s, t.name)
				if err != nil {
					return nil, err
				}
				fields := make([]arrow.Field, len(cols))
				for i, ci := range cols {
					fields[i] = ci.field()
				}
				info.Schema = arrow.NewSchema(fields, nil)
				if info.Constraints, err = c.objectConstraints(ctx, s, t.name); err != nil {
					return nil, err
				}
			}
			out[key] = append(out[key], info)
		}
	}
	return out, nil
}

func (c *connectionImpl) GetTableSchema(ctx context.Context, catalog *string, dbSchema *string, tableName string) (*arrow.Schema, error) {
	ctx, span := c.StartSpan(ctx, "connectionImpl.GetTableSchema")
	defer span.End()

	if tableName == "" {
		return nil, c.ErrorHelper.StateErrorf(xdbc.StateNullTableName, "Table name can not be null")
	}
	if catalog != nil && *catalog != "" {
		return nil, c.ErrorHelper.StateErrorf(xdbc.StateTableNotFound, "Table/View '%s' does not exist.", tableName)
	}
	if err := c.syncSchemas(ctx); err != nil {
		return nil, err
	}
	schema := c.schema
	if dbSchema != nil {
		schema = *dbSchema
	}
	if _, ok := c.dbAlias(schema); !ok {
		return nil, c.ErrorHelper.StateErrorf(xdbc.StateSchemaNotFound, "Schema '%s' does not exist", schema)
	}

	cols, err := c.tableColumns(ctx, schema, tableName)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, c.ErrorHelper.StateErrorf(xdbc.StateTableNotFound, "Table/View '%s.%s' does not exist.", schema, tableName)
	}
	fields := make([]arrow.Field, len(cols))
	for i, ci := range cols {
		fields[i] = ci.field()
	}
	return arrow.NewSchema(fields, nil), nil
}

func (c *connectionImpl) ListTableTypes(ctx context.Context) ([]string, error) {
	return slices.Clone(tableTypes), nil
}
