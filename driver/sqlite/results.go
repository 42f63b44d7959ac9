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
	"database/sql"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

// resultBuilder materializes query results into a single record. The
// column types come from the declared types of the result columns;
// expressions without one are typed from their first non-null value.
type resultBuilder struct {
	alloc  memory.Allocator
	schema *arrow.Schema
	decls  []sqltypes.Declared
	bldr   *array.RecordBuilder
	rows   int64
}

func newResultBuilder(alloc memory.Allocator) *resultBuilder {
	return &resultBuilder{alloc: alloc}
}

// scanAll reads every row of rows as returned by the driver.
func scanAll(rows *sql.Rows, limit int) ([][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, raw)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func inferDeclared(dbType string, raws [][]any, col int) sqltypes.Declared {
	if dbType != "" {
		return declaredOf(dbType)
	}
	for _, row := range raws {
		switch row[col].(type) {
		case int64:
			return sqltypes.Of(sqltypes.BigInt)
		case float64:
			return sqltypes.Of(sqltypes.Double)
		case []byte:
			return sqltypes.Of(sqltypes.Varbinary)
		case time.Time:
			return sqltypes.Of(sqltypes.Timestamp)
		case string:
			return sqltypes.Of(sqltypes.Varchar)
		}
	}
	return sqltypes.Of(sqltypes.Varchar)
}

type columnDesc struct {
	name, dbType string
}

// columnsOf captures the column names and declared types. It must be
// called before the rows are read; database/sql closes exhausted rows.
func columnsOf(rows *sql.Rows) ([]columnDesc, error) {
	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	out := make([]columnDesc, len(cts))
	for i, ct := range cts {
		out[i] = columnDesc{name: ct.Name(), dbType: ct.DatabaseTypeName()}
	}
	return out, nil
}

// describe builds the result schema from the columns and a sample of
// raw values.
func describe(cols []columnDesc, raws [][]any) (*arrow.Schema, []sqltypes.Declared) {
	fields := make([]arrow.Field, len(cols))
	decls := make([]sqltypes.Declared, len(cols))
	for i, col := range cols {
		decls[i] = inferDeclared(col.dbType, raws, i)
		fields[i] = decls[i].Field(col.name, true, 0)
	}
	return arrow.NewSchema(fields, nil), decls
}

// consume appends all rows. The first call fixes the schema.
func (r *resultBuilder) consume(rows *sql.Rows) error {
	defer rows.Close()

	cols, err := columnsOf(rows)
	if err != nil {
		return err
	}
	raws, err := scanAll(rows, 0)
	if err != nil {
		return err
	}
	if r.schema == nil {
		r.schema, r.decls = describe(cols, raws)
		r.bldr = array.NewRecordBuilder(r.alloc, r.schema)
	}

	for _, raw := range raws {
		for i, v := range raw {
			val, err := convert.Load(v, r.decls[i])
			if err != nil {
				return err
			}
			if err := convert.Append(r.bldr.Field(i), val); err != nil {
				return err
			}
		}
		r.rows++
	}
	return nil
}

// reader returns the materialized results. Without any consumed rows
// the result has an empty schema.
func (r *resultBuilder) reader() (array.RecordReader, error) {
	if r.bldr == nil {
		schema := arrow.NewSchema(nil, nil)
		rec := array.NewRecord(schema, nil, 0)
		defer rec.Release()
		return array.NewRecordReader(schema, []arrow.Record{rec})
	}
	defer r.bldr.Release()
	rec := r.bldr.NewRecord()
	defer rec.Release()
	return array.NewRecordReader(r.schema, []arrow.Record{rec})
}
