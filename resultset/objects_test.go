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

package resultset_test

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/resultset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objectsJSON = `[
  {"catalog_name": "", "catalog_db_schemas": [
    {"db_schema_name": "APP", "db_schema_tables": [
      {"table_name": "T1", "table_type": "TABLE", "table_columns": [
        {"column_name": "A", "ordinal_position": 1, "remarks": "", "xdbc_data_type": 4,
         "xdbc_type_name": "INTEGER", "xdbc_column_size": 10, "xdbc_decimal_digits": 0,
         "xdbc_nullable": 0, "xdbc_is_nullable": "NO"},
        {"column_name": "B", "ordinal_position": 2, "remarks": "", "xdbc_data_type": 12,
         "xdbc_type_name": "VARCHAR", "xdbc_column_size": 10, "xdbc_nullable": 1,
         "xdbc_column_def": "'x'", "xdbc_is_nullable": "YES"}
      ], "table_constraints": [
        {"constraint_name": "T1_PK", "constraint_type": "PRIMARY KEY", "constraint_column_names": ["A"],
         "constraint_column_usage": null},
        {"constraint_name": "T1_FK", "constraint_type": "FOREIGN KEY", "constraint_column_names": ["B"],
         "constraint_column_usage": [{"fk_catalog": "", "fk_db_schema": "APP", "fk_table": "T2", "fk_column_name": "C"}]}
      ]},
      {"table_name": "V1", "table_type": "VIEW", "table_columns": null}
    ]},
    {"db_schema_name": "SYS", "db_schema_tables": null}
  ]}
]`

func TestReadObjects(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer mem.AssertSize(t, 0)

	rec, _, err := array.RecordFromJSON(mem, xdbc.GetObjectsSchema, strings.NewReader(objectsJSON))
	require.NoError(t, err)
	defer rec.Release()
	rdr, err := array.NewRecordReader(xdbc.GetObjectsSchema, []arrow.Record{rec})
	require.NoError(t, err)

	objs, err := resultset.ReadObjects(rdr)
	require.NoError(t, err)

	assert.Equal(t, []string{""}, objs.Catalogs)
	assert.Equal(t, []resultset.SchemaRow{{Name: "APP"}, {Name: "SYS"}}, objs.Schemas)
	assert.Equal(t, []string{"APP.T1", "APP.V1"}, objs.TableNames())
	assert.Equal(t, "VIEW", objs.Tables[1].Type)

	require.Len(t, objs.Columns, 2)
	a, b := objs.Columns[0], objs.Columns[1]
	assert.Equal(t, "A", a.Name)
	assert.EqualValues(t, 1, a.Ordinal)
	assert.EqualValues(t, 4, a.DataType)
	assert.EqualValues(t, 10, *a.ColumnSize)
	assert.EqualValues(t, 0, *a.DecimalDigits)
	assert.Nil(t, a.Default)
	assert.Equal(t, "NO", a.IsNullable)

	assert.Equal(t, "T1", b.Table.Name)
	assert.EqualValues(t, 2, b.Ordinal)
	assert.Nil(t, b.DecimalDigits)
	assert.Equal(t, "'x'", *b.Default)
	assert.EqualValues(t, 1, b.Nullable)

	require.Len(t, objs.Constraints, 2)
	pk, fk := objs.Constraints[0], objs.Constraints[1]
	assert.Equal(t, "T1", pk.Table.Name)
	assert.Equal(t, "PRIMARY KEY", pk.Type)
	assert.Equal(t, []string{"A"}, pk.Columns)
	assert.Empty(t, pk.References)
	assert.Equal(t, "T1_FK", fk.Name)
	assert.Equal(t, []resultset.ColumnRef{{Schema: "APP", Table: "T2", Column: "C"}}, fk.References)
}
