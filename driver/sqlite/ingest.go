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
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/param"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

// executeIngest loads the bound records into the target table,
// creating it from the record schema when the mode asks for that.
func (s *statementImpl) executeIngest(ctx context.Context) (int64, error) {
	c := s.cnxn
	if s.bound == nil && s.boundStream == nil {
		return -1, s.ErrorHelper.Errorf(xdbc.StatusInvalidState, "must call Bind before bulk ingestion")
	}
	schema := s.ingest.schema
	if schema == "" || strings.EqualFold(schema, schemaApp) {
		schema = schemaApp
	}
	if err := c.syncSchemas(ctx); err != nil {
		return -1, err
	}
	alias, ok := c.dbAlias(schema)
	if !ok || alias == "" {
		return -1, s.ErrorHelper.StateErrorf(xdbc.StateSchemaNotFound, "Schema '%s' does not exist", schema)
	}
	target := quoteIdent(alias) + "." + quoteIdent(s.ingest.table)

	var fields []arrow.Field
	if s.bound != nil {
		fields = s.bound.Schema().Fields()
	} else {
		fields = s.boundStream.Schema().Fields()
	}

	implicit := c.Autocommit && !c.inTx
	if implicit {
		if _, err := c.conn.ExecContext(ctx, "BEGIN"); err != nil {
			return -1, translate(&c.ErrorHelper, err)
		}
		c.inTx = true
	} else if err := c.begin(ctx); err != nil {
		return -1, err
	}

	count, err := s.ingestRows(ctx, schema, target, fields)
	if implicit {
		verb := "COMMIT"
		if err != nil {
			verb = "ROLLBACK"
		}
		if !c.inTx {
			// a lock timeout already rolled back
			return -1, err
		}
		if txErr := c.endTx(context.WithoutCancel(ctx), verb); err == nil && txErr != nil {
			return -1, txErr
		}
	}
	if err != nil {
		return -1, err
	}
	c.Logger.Debug("ingested rows", "connection", c.id, "table", s.ingest.table, "rows", count)
	return count, nil
}

func (s *statementImpl) ingestRows(ctx context.Context, schema, target string, fields []arrow.Field) (int64, error) {
	c := s.cnxn
	cols, err := c.tableColumns(ctx, schema, s.ingest.table)
	if err != nil {
		return -1, err
	}
	exists := len(cols) > 0

	mode := s.ingest.mode
	if mode == "" {
		mode = xdbc.OptionValueIngestModeCreate
	}
	switch mode {
	case xdbc.OptionValueIngestModeCreate:
		if exists {
			return -1, s.ErrorHelper.StateErrorf(xdbc.StateObjectExists,
				"Table/View '%s' already exists in Schema '%s'.", s.ingest.table, schema)
		}
	case xdbc.OptionValueIngestModeAppend:
		if !exists {
			return -1, s.ErrorHelper.StateErrorf(xdbc.StateTableNotFound,
				"Table/View '%s' does not exist.", s.ingest.table)
		}
	case xdbc.OptionValueIngestModeReplace:
		if exists {
			if _, err := c.conn.ExecContext(ctx, "DROP TABLE "+target); err != nil {
				return -1, c.fail(ctx, err)
			}
			exists = false
		}
	}

	if !exists {
		if err := s.createIngestTable(ctx, target, fields); err != nil {
			return -1, err
		}
		if cols, err = c.tableColumns(ctx, schema, s.ingest.table); err != nil {
			return -1, err
		}
	}

	// bind record columns to table columns by name
	decls := make([]sqltypes.Declared, len(fields))
	names := make([]string, len(fields))
	marks := make([]string, len(fields))
	for i, f := range fields {
		found := false
		for _, col := range cols {
			if strings.EqualFold(col.name, f.Name) {
				decls[i], names[i], found = col.decl, quoteIdent(col.name), true
				break
			}
		}
		if !found {
			return -1, s.ErrorHelper.StateErrorf(xdbc.StateColumnNotFound,
				"Column '%s' is not in any table in the FROM list or it appears within a join specification and is outside the scope of the join specification or appears in a HAVING clause and is not in the GROUP BY list.", f.Name)
		}
		marks[i] = "?"
	}

	insert := "INSERT INTO " + target + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	st, err := c.prepare(ctx, insert)
	if err != nil {
		return -1, err
	}

	var count int64
	load := func(rec arrow.Record) error {
		for row := 0; row < int(rec.NumRows()); row++ {
			args, err := param.Args(rec, row)
			if err != nil {
				return err
			}
			vals := make([]any, len(args))
			for i, a := range args {
				if vals[i], err = a.Assign(decls[i]); err != nil {
					return err
				}
			}
			if _, err := st.ExecContext(ctx, vals...); err != nil {
				return c.fail(ctx, err)
			}
			count++
		}
		return nil
	}

	if s.bound != nil {
		err = load(s.bound)
	} else {
		for s.boundStream.Next() {
			if err = load(s.boundStream.Record()); err != nil {
				break
			}
		}
		if err == nil {
			err = s.boundStream.Err()
		}
	}
	return count, err
}

func (s *statementImpl) createIngestTable(ctx context.Context, target string, fields []arrow.Field) error {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(target)
	b.WriteString(" (")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(f.Name))
		b.WriteByte(' ')
		b.WriteString(sqltypes.FromField(f).DDL())
		if !f.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")

	toks, err := tokenize(b.String())
	if err != nil {
		return s.ErrorHelper.Wrap(err, "building table for ingestion")
	}
	if _, err := s.cnxn.conn.ExecContext(ctx, toks.rewrite()); err != nil {
		return s.cnxn.fail(ctx, err)
	}
	return nil
}
