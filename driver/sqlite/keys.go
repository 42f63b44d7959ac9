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
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/apache/derby-conformance/go/xdbc/driver/internal"
)

// SQLite keeps no names for constraints, so they are read back from the
// CONSTRAINT clauses of the table's DDL. Unnamed constraints get an SQL
// prefixed name derived from the table.

// JDBC DatabaseMetaData constants for foreign key rules.
const (
	keyCascade       = 0
	keyRestrict      = 1
	keySetNull       = 2
	keyNoAction      = 3
	keySetDefault    = 4
	keyNotDeferrable = 7
)

type keyConstraint struct {
	name    string
	kind    string
	columns []string

	// foreign keys only
	refTable   string
	refColumns []string
	refName    string
	onUpdate   int16
	onDelete   int16
}

type indexColumn struct {
	index   string
	unique  bool
	ordinal int
	column  string
	desc    bool
}

// declaredConstraints lists the named constraints of a CREATE TABLE
// statement with the columns they cover.
func declaredConstraints(ddl string) []keyConstraint {
	toks, err := tokenize(ddl)
	if err != nil {
		return nil
	}
	s := toks.significant()

	var out []keyConstraint
	depth, column, start := 0, "", false
	for i := 0; i < len(s); i++ {
		switch {
		case s.punct(i, "("):
			depth++
			if depth == 1 {
				start = true
				continue
			}
		case s.punct(i, ")"):
			depth--
		case depth == 1 && s.punct(i, ","):
			start = true
			continue
		}
		if depth != 1 {
			continue
		}
		if start {
			start, column = false, ""
			if !slices.ContainsFunc([]string{"CONSTRAINT", "PRIMARY", "UNIQUE", "FOREIGN", "CHECK"},
				func(kw string) bool { return s.keyword(i, kw) }) {
				column = identValue(s[i])
			}
		}
		if !s.keyword(i, "CONSTRAINT") || !(s.is(i+1, "Ident") || s.is(i+1, "QuotedIdent")) {
			continue
		}

		k := keyConstraint{name: identValue(s[i+1])}
		j := i + 2
		switch {
		case s.keyword(j, "PRIMARY"):
			k.kind, j = internal.PrimaryKey, j+2
		case s.keyword(j, "UNIQUE"):
			k.kind, j = internal.Unique, j+1
		case s.keyword(j, "FOREIGN"):
			k.kind, j = internal.ForeignKey, j+2
		case s.keyword(j, "REFERENCES"):
			k.kind = internal.ForeignKey
			k.columns = []string{column}
		default:
			continue
		}
		if k.columns == nil {
			if s.punct(j, "(") {
				k.columns = s.identList(j)
			} else {
				k.columns = []string{column}
			}
		}
		out = append(out, k)
	}
	return out
}

// identList returns the identifiers of the parenthesized list opening
// at i, without ASC and DESC.
func (t tokens) identList(i int) []string {
	var out []string
	for i++; i < len(t) && !t.punct(i, ")"); i++ {
		if t.keyword(i, "ASC") || t.keyword(i, "DESC") {
			continue
		}
		if t.is(i, "Ident") || t.is(i, "QuotedIdent") {
			out = append(out, identValue(t[i]))
		}
	}
	return out
}

func sameColumns(a, b []string) bool {
	return slices.EqualFunc(a, b, strings.EqualFold)
}

func findConstraint(keys []keyConstraint, kind string, columns []string) (keyConstraint, bool) {
	for _, k := range keys {
		if k.kind == kind && sameColumns(k.columns, columns) {
			return k, true
		}
	}
	return keyConstraint{}, false
}

func referentialAction(s string) int16 {
	switch strings.ToUpper(s) {
	case "CASCADE":
		return keyCascade
	case "RESTRICT":
		return keyRestrict
	case "SET NULL":
		return keySetNull
	case "SET DEFAULT":
		return keySetDefault
	}
	return keyNoAction
}

func (c *connectionImpl) tableDDL(ctx context.Context, alias, table string) (string, error) {
	var ddl sql.NullString
	err := c.conn.QueryRowContext(ctx,
		"SELECT sql FROM "+quoteIdent(alias)+".sqlite_schema WHERE type = 'table' AND name = ?", table).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", c.fail(ctx, err)
	}
	return ddl.String, nil
}

// storedTableName resolves a table name the way SQLite does, ignoring
// case, and returns it as stored.
func (c *connectionImpl) storedTableName(ctx context.Context, alias, table string) (string, error) {
	var name string
	err := c.conn.QueryRowContext(ctx,
		"SELECT name FROM "+quoteIdent(alias)+".sqlite_schema WHERE type = 'table' AND name = ? COLLATE NOCASE", table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return table, nil
	}
	if err != nil {
		return "", c.fail(ctx, err)
	}
	return name, nil
}

func (c *connectionImpl) indexColumns(ctx context.Context, alias, table string) ([]indexColumn, map[string]string, error) {
	rows, err := c.conn.QueryContext(ctx, `SELECT il.name, il."unique", il.origin, ii.seqno, ii.name, ii."desc"
		FROM pragma_index_list(?, ?) AS il, pragma_index_xinfo(il.name, ?) AS ii
		WHERE ii.key = 1 AND ii.name IS NOT NULL
		ORDER BY il.name, ii.seqno`, table, alias, alias)
	if err != nil {
		return nil, nil, c.fail(ctx, err)
	}
	defer rows.Close()

	var out []indexColumn
	origins := map[string]string{}
	for rows.Next() {
		var (
			ic     indexColumn
			origin string
		)
		if err := rows.Scan(&ic.index, &ic.unique, &origin, &ic.ordinal, &ic.column, &ic.desc); err != nil {
			return nil, nil, c.fail(ctx, err)
		}
		ic.ordinal++
		origins[ic.index] = origin
		out = append(out, ic)
	}
	return out, origins, c.fail(ctx, rows.Err())
}

// groupIndexes returns the columns of each index in key order, keyed by
// index name, and the index names in order.
func groupIndexes(cols []indexColumn) (map[string][]string, []string) {
	out := map[string][]string{}
	var names []string
	for _, ic := range cols {
		if _, ok := out[ic.index]; !ok {
			names = append(names, ic.index)
		}
		out[ic.index] = append(out[ic.index], ic.column)
	}
	return out, names
}

// uniqueKeys returns the primary key of a table followed by its UNIQUE
// constraints.
func (c *connectionImpl) uniqueKeys(ctx context.Context, schema, table string) ([]keyConstraint, error) {
	alias, ok := c.dbAlias(schema)
	if !ok || alias == "" {
		return nil, nil
	}
	ddl, err := c.tableDDL(ctx, alias, table)
	if err != nil {
		return nil, err
	}
	declared := declaredConstraints(ddl)

	cols, err := c.tableColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	var out []keyConstraint
	pkCols := primaryKeyColumns(cols)
	if len(pkCols) > 0 {
		k, ok := findConstraint(declared, internal.PrimaryKey, pkCols)
		if !ok {
			k = keyConstraint{name: fmt.Sprintf("SQL_%s_PK", strings.ToUpper(table)), kind: internal.PrimaryKey}
		}
		k.columns = pkCols
		out = append(out, k)
	}

	idx, origins, err := c.indexColumns(ctx, alias, table)
	if err != nil {
		return nil, err
	}
	byIndex, names := groupIndexes(idx)
	for _, name := range names {
		if origins[name] != "u" {
			continue
		}
		k, ok := findConstraint(declared, internal.Unique, byIndex[name])
		if !ok {
			k = keyConstraint{name: fmt.Sprintf("SQL_%s_UQ%d", strings.ToUpper(table), len(out)), kind: internal.Unique}
		}
		k.columns = byIndex[name]
		out = append(out, k)
	}
	return out, nil
}

// primaryKeyColumns returns the primary key columns in key order.
func primaryKeyColumns(cols []columnInfo) []string {
	pk := slices.Clone(cols)
	pk = slices.DeleteFunc(pk, func(ci columnInfo) bool { return ci.pk == 0 })
	sort.Slice(pk, func(i, j int) bool { return pk[i].pk < pk[j].pk })
	out := make([]string, len(pk))
	for i, ci := range pk {
		out[i] = ci.name
	}
	return out
}

// foreignKeys returns the foreign keys declared on a table, with the
// referenced columns and key resolved.
func (c *connectionImpl) foreignKeys(ctx context.Context, schema, table string) ([]keyConstraint, error) {
	alias, ok := c.dbAlias(schema)
	if !ok || alias == "" {
		return nil, nil
	}
	ddl, err := c.tableDDL(ctx, alias, table)
	if err != nil {
		return nil, err
	}
	declared := declaredConstraints(ddl)

	rows, err := c.conn.QueryContext(ctx,
		`SELECT id, "table", "from", "to", on_update, on_delete FROM pragma_foreign_key_list(?, ?) ORDER BY id DESC, seq`,
		table, alias)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	var (
		out    []keyConstraint
		lastID = -1
	)
	for rows.Next() {
		var (
			id                     int
			parent, from, upd, del string
			to                     sql.NullString
		)
		if err := rows.Scan(&id, &parent, &from, &to, &upd, &del); err != nil {
			rows.Close()
			return nil, c.fail(ctx, err)
		}
		if id != lastID {
			lastID = id
			out = append(out, keyConstraint{
				kind:     internal.ForeignKey,
				refTable: parent,
				onUpdate: referentialAction(upd),
				onDelete: referentialAction(del),
			})
		}
		k := &out[len(out)-1]
		k.columns = append(k.columns, from)
		if to.Valid {
			k.refColumns = append(k.refColumns, to.String)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, c.fail(ctx, err)
	}

	for i := range out {
		k := &out[i]
		if d, ok := findConstraint(declared, internal.ForeignKey, k.columns); ok {
			k.name = d.name
		} else {
			k.name = fmt.Sprintf("SQL_%s_FK%d", strings.ToUpper(table), i+1)
		}
		if k.refTable, err = c.storedTableName(ctx, alias, k.refTable); err != nil {
			return nil, err
		}
		parentKeys, err := c.uniqueKeys(ctx, schema, k.refTable)
		if err != nil {
			return nil, err
		}
		if len(k.refColumns) != len(k.columns) && len(parentKeys) > 0 && parentKeys[0].kind == internal.PrimaryKey {
			k.refColumns = parentKeys[0].columns
		}
		for _, pk := range parentKeys {
			if sameColumns(pk.columns, k.refColumns) {
				k.refName = pk.name
				k.refColumns = pk.columns
				break
			}
		}
	}
	return out, nil
}

// objectConstraints describes a table's keys for GetObjects.
func (c *connectionImpl) objectConstraints(ctx context.Context, schema, table string) ([]internal.ConstraintSchema, error) {
	keys, err := c.uniqueKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	fks, err := c.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	var out []internal.ConstraintSchema
	for _, k := range append(keys, fks...) {
		cs := internal.ConstraintSchema{
			ConstraintName:        k.name,
			ConstraintType:        k.kind,
			ConstraintColumnNames: k.columns,
		}
		for _, col := range k.refColumns {
			cs.ConstraintColumnUsages = append(cs.ConstraintColumnUsages, internal.UsageSchema{
				ForeignKeyDbSchema: schema,
				ForeignKeyTable:    k.refTable,
				ForeignKeyColName:  col,
			})
		}
		out = append(out, cs)
	}
	return out, nil
}

// tableIndexes returns the index columns of a table. Indexes backing a
// constraint are named after it. A primary key on the rowid has no
// index in SQLite and gets one here.
func (c *connectionImpl) tableIndexes(ctx context.Context, schema, table string) ([]indexColumn, error) {
	alias, ok := c.dbAlias(schema)
	if !ok || alias == "" {
		return nil, nil
	}
	keys, err := c.uniqueKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	idx, origins, err := c.indexColumns(ctx, alias, table)
	if err != nil {
		return nil, err
	}
	byIndex, _ := groupIndexes(idx)

	hasPK := false
	for i := range idx {
		ic := &idx[i]
		kind := ""
		switch origins[ic.index] {
		case "pk":
			kind, hasPK = internal.PrimaryKey, true
		case "u":
			kind = internal.Unique
		}
		if kind == "" {
			continue
		}
		if k, ok := findConstraint(keys, kind, byIndex[ic.index]); ok {
			ic.index = k.name
		}
	}
	if len(keys) > 0 && keys[0].kind == internal.PrimaryKey && !hasPK {
		for i, col := range keys[0].columns {
			idx = append(idx, indexColumn{index: keys[0].name, unique: true, ordinal: i + 1, column: col})
		}
	}
	return idx, nil
}
