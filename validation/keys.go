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


package validation

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/resultset"
	"github.com/apache/derby-conformance/go/xdbc/utils"
	"github.com/samber/lo"
)

// cell renders a catalog result value for comparison, NULL as "NULL".
func cell(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return "NULL"
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i))
	}
	v, _ := intValue(arr, i)
	return strconv.FormatInt(v, 10)
}

// callRows runs a catalog procedure, checks the shape of its result and
// returns the rows rendered by cell.
func (m *MetadataTests) callRows(query string, shape *arrow.Schema) [][]string {
	rec, err := QueryRecord(m.ctx, m.Cnxn, query)
	m.Require().NoError(err, query)
	defer rec.Release()
	m.Require().Truef(utils.SameShape(shape, rec.Schema()), "%s\nexpected: %s\ngot: %s", query, shape, rec.Schema())

	out := [][]string{}
	for i := 0; i < int(rec.NumRows()); i++ {
		row := make([]string, rec.NumCols())
		for j := range row {
			row[j] = cell(rec.Column(j), i)
		}
		out = append(out, row)
	}
	return out
}

func quoted(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// createKeysFixture creates KT1 with a primary key, a unique constraint
// and two more indexes, and two tables with foreign keys into it. It
// returns the schema they live in.
func (m *MetadataTests) createKeysFixture() string {
	m.exec(`CREATE TABLE KT1 (I INTEGER NOT NULL, S SMALLINT NOT NULL, C30 CHAR(30) NOT NULL,
		VC10 VARCHAR(10) NOT NULL,
		CONSTRAINT PRIMKEY PRIMARY KEY (VC10, I),
		CONSTRAINT UNIQUEKEY UNIQUE (C30, S))`)
	m.exec("CREATE UNIQUE INDEX U1 ON KT1 (S ASC, I DESC)")
	m.exec("CREATE INDEX U2 ON KT1 (S)")
	m.exec(`CREATE TABLE REFTAB (VC10 VARCHAR(10), I INTEGER, S SMALLINT, C30 CHAR(30), S2 SMALLINT,
		DPRIM DECIMAL(5,1) NOT NULL, DFOR DECIMAL(5,1) NOT NULL,
		CONSTRAINT PKEY_REFTAB PRIMARY KEY (DPRIM),
		CONSTRAINT FKEYSELF FOREIGN KEY (DFOR) REFERENCES REFTAB,
		CONSTRAINT FKEY1 FOREIGN KEY (VC10, I) REFERENCES KT1,
		CONSTRAINT FKEY2 FOREIGN KEY (C30, S2) REFERENCES KT1 (C30, S),
		CONSTRAINT FKEY3 FOREIGN KEY (C30, S) REFERENCES KT1 (C30, S))`)
	m.exec(`CREATE TABLE REFTAB2 (T2_VC10 VARCHAR(10), T2_I INTEGER,
		CONSTRAINT T2_FKEY1 FOREIGN KEY (T2_VC10, T2_I) REFERENCES KT1)`)

	table := "KT1"
	objs := m.objects(xdbc.ObjectDepthTables, nil, &table, nil, nil)
	m.Require().Len(objs.Tables, 1)
	return objs.Tables[0].Schema
}

func (m *MetadataTests) TestPrimaryKeys() {
	if !m.Quirks.SupportsODBCProcedures() {
		m.T().Skip("driver has no catalog procedures")
	}
	schema := m.createKeysFixture()
	want := [][]string{
		{"", schema, "KT1", "I", "2", "PRIMKEY"},
		{"", schema, "KT1", "VC10", "1", "PRIMKEY"},
	}
	call := func(args, flavor string) [][]string {
		return m.callRows("CALL SYSIBM.SQLPRIMARYKEYS("+args+", "+datatype(flavor)+")", xdbc.PrimaryKeysSchema)
	}

	for _, flavor := range flavors {
		m.Equal(want, call("'', '%', 'KT1'", flavor), flavor)
		m.Equal(want, call("NULL, "+quoted(schema)+", 'KT1'", flavor), flavor)
		m.Equal(want, call("NULL, NULL, 'KT1'", flavor), flavor)
		m.Empty(call("NULL, '', 'KT1'", flavor), flavor)
		// the table name is matched as stored, not as a pattern
		m.Empty(call("NULL, NULL, '%'", flavor), flavor)
		m.Empty(call("NULL, NULL, 'REFTAB2'", flavor), flavor)

		_, err := QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLPRIMARYKEYS(NULL, NULL, NULL, "+datatype(flavor)+")")
		AssertSQLState(m.T(), xdbc.StateNullTableName, err, flavor)
	}
}

func (m *MetadataTests) TestImportedAndExportedKeys() {
	if !m.Quirks.SupportsODBCProcedures() {
		m.T().Skip("driver has no catalog procedures")
	}
	schema := m.createKeysFixture()
	row := func(pkTable, pkCol, fkTable, fkCol, seq, fkName, pkName string) []string {
		return []string{"", schema, pkTable, pkCol, "", schema, fkTable, fkCol, seq, "3", "3", fkName, pkName, "7"}
	}
	exported := [][]string{
		row("KT1", "VC10", "REFTAB", "VC10", "1", "FKEY1", "PRIMKEY"),
		row("KT1", "C30", "REFTAB", "C30", "1", "FKEY2", "UNIQUEKEY"),
		row("KT1", "C30", "REFTAB", "C30", "1", "FKEY3", "UNIQUEKEY"),
		row("KT1", "I", "REFTAB", "I", "2", "FKEY1", "PRIMKEY"),
		row("KT1", "S", "REFTAB", "S2", "2", "FKEY2", "UNIQUEKEY"),
		row("KT1", "S", "REFTAB", "S", "2", "FKEY3", "UNIQUEKEY"),
		row("KT1", "VC10", "REFTAB2", "T2_VC10", "1", "T2_FKEY1", "PRIMKEY"),
		row("KT1", "I", "REFTAB2", "T2_I", "2", "T2_FKEY1", "PRIMKEY"),
	}
	imported := [][]string{
		row("KT1", "VC10", "REFTAB", "VC10", "1", "FKEY1", "PRIMKEY"),
		row("KT1", "C30", "REFTAB", "C30", "1", "FKEY2", "UNIQUEKEY"),
		row("KT1", "C30", "REFTAB", "C30", "1", "FKEY3", "UNIQUEKEY"),
		row("KT1", "I", "REFTAB", "I", "2", "FKEY1", "PRIMKEY"),
		row("KT1", "S", "REFTAB", "S2", "2", "FKEY2", "UNIQUEKEY"),
		row("KT1", "S", "REFTAB", "S", "2", "FKEY3", "UNIQUEKEY"),
		row("REFTAB", "DPRIM", "REFTAB", "DFOR", "1", "FKEYSELF", "PKEY_REFTAB"),
	}
	keys := func(args, opts string) [][]string {
		return m.callRows("CALL SYSIBM.SQLFOREIGNKEYS("+args+", '"+opts+"')", xdbc.ForeignKeysSchema)
	}
	s := quoted(schema)

	for _, flavor := range flavors {
		opt := "DATATYPE=''" + flavor + "''"
		m.Equal(exported, keys("NULL, "+s+", 'KT1', NULL, NULL, NULL", "EXPORTEDKEY=1;"+opt), flavor)
		m.Equal(imported, keys("NULL, NULL, NULL, NULL, "+s+", 'REFTAB'", "IMPORTEDKEY=1;"+opt), flavor)
		m.Equal(exported[6:], keys("NULL, "+s+", 'KT1', NULL, "+s+", 'REFTAB2'", opt), flavor)
		m.Empty(keys("NULL, "+s+", 'REFTAB2', NULL, "+s+", 'KT1'", opt), flavor)

		// without IMPORTEDKEY or EXPORTEDKEY the call is a cross
		// reference, with null tables as wildcards
		m.Equal(exported, keys("NULL, "+s+", 'KT1', NULL, NULL, NULL", opt), flavor)
		m.ElementsMatch(imported, keys("NULL, NULL, NULL, NULL, "+s+", 'REFTAB'", opt), flavor)
		m.ElementsMatch(append(exported, imported[6]), keys("NULL, NULL, NULL, NULL, NULL, NULL", opt), flavor)

		_, err := QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLFOREIGNKEYS(NULL, NULL, NULL, NULL, NULL, NULL, 'IMPORTEDKEY=1;"+opt+"')")
		AssertSQLState(m.T(), xdbc.StateNullTableName, err, flavor)
		_, err = QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLFOREIGNKEYS(NULL, NULL, NULL, NULL, NULL, NULL, 'EXPORTEDKEY=1;"+opt+"')")
		AssertSQLState(m.T(), xdbc.StateNullTableName, err, flavor)
	}
}

// TestGetObjectsConstraints checks that GetObjects reports the keys the
// catalog procedures report.
func (m *MetadataTests) TestGetObjectsConstraints() {
	schema := m.createKeysFixture()
	table := "REFTAB"

	objs := m.objects(xdbc.ObjectDepthTables, nil, &table, nil, nil)
	m.Empty(objs.Constraints)

	objs = m.objects(xdbc.ObjectDepthAll, nil, &table, nil, nil)
	byName := lo.KeyBy(objs.Constraints, func(c resultset.ConstraintRow) string { return c.Name })
	m.ElementsMatch([]string{"PKEY_REFTAB", "FKEYSELF", "FKEY1", "FKEY2", "FKEY3"}, lo.Keys(byName))

	pk := byName["PKEY_REFTAB"]
	m.Equal("PRIMARY KEY", pk.Type)
	m.Equal([]string{"DPRIM"}, pk.Columns)
	m.Empty(pk.References)

	fk := byName["FKEY2"]
	m.Equal("FOREIGN KEY", fk.Type)
	m.Equal([]string{"C30", "S2"}, fk.Columns)
	m.Equal([]resultset.ColumnRef{{Schema: schema, Table: "KT1", Column: "C30"}, {Schema: schema, Table: "KT1", Column: "S"}}, fk.References)

	self := byName["FKEYSELF"]
	m.Equal([]resultset.ColumnRef{{Schema: schema, Table: "REFTAB", Column: "DPRIM"}}, self.References)

	table = "KT1"
	objs = m.objects(xdbc.ObjectDepthAll, nil, &table, nil, nil)
	kinds := lo.Map(objs.Constraints, func(c resultset.ConstraintRow, _ int) string { return c.Name + ":" + c.Type })
	m.ElementsMatch([]string{"PRIMKEY:PRIMARY KEY", "UNIQUEKEY:UNIQUE"}, kinds)
}

func (m *MetadataTests) TestIndexInfo() {
	if !m.Quirks.SupportsODBCProcedures() {
		m.T().Skip("driver has no catalog procedures")
	}
	schema := m.createKeysFixture()

	for _, flavor := range flavors {
		no, yes := "false", "true"
		if flavor == "ODBC" {
			no, yes = "0", "1"
		}
		row := func(nonUnique, index, ordinal, column, order string) []string {
			return []string{"", schema, "KT1", nonUnique, "", index, "3", ordinal, column, order, "NULL", "NULL", "NULL"}
		}
		unique := [][]string{
			row(no, "PRIMKEY", "1", "VC10", "A"),
			row(no, "PRIMKEY", "2", "I", "A"),
			row(no, "U1", "1", "S", "A"),
			row(no, "U1", "2", "I", "D"),
			row(no, "UNIQUEKEY", "1", "C30", "A"),
			row(no, "UNIQUEKEY", "2", "S", "A"),
		}
		stats := func(args string) [][]string {
			return m.callRows("CALL SYSIBM.SQLSTATISTICS("+args+", "+datatype(flavor)+")", xdbc.IndexInfoSchema(flavor == "ODBC"))
		}

		// UNIQUE 0 selects unique indexes only
		m.Equal(unique, stats("'', "+quoted(schema)+", 'KT1', 0, 0"), flavor)
		m.Equal(append(unique, row(yes, "U2", "1", "S", "A")), stats("'', "+quoted(schema)+", 'KT1', 1, 0"), flavor)
		m.Empty(stats("'', "+quoted(schema)+", 'KT2', 1, 0"), flavor)

		_, err := QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLSTATISTICS(NULL, NULL, NULL, 1, 1, "+datatype(flavor)+")")
		AssertSQLState(m.T(), xdbc.StateNullTableName, err, flavor)
	}
}

// TestProcedures checks that the catalog procedures describe themselves
// through SQLPROCEDURES and SQLPROCEDURECOLS.
func (m *MetadataTests) TestProcedures() {
	if !m.Quirks.SupportsODBCProcedures() {
		m.T().Skip("driver has no catalog procedures")
	}
	catalogProcs := []string{
		"SQLCOLUMNS", "SQLFOREIGNKEYS", "SQLGETTYPEINFO", "SQLPRIMARYKEYS",
		"SQLPROCEDURECOLS", "SQLPROCEDURES", "SQLSTATISTICS", "SQLTABLES",
	}

	for _, flavor := range flavors {
		odbc := flavor == "ODBC"
		procs := m.callRows("CALL SYSIBM.SQLPROCEDURES(NULL, 'SYSIBM', 'SQL%', "+datatype(flavor)+")", xdbc.ProceduresSchema(odbc))
		names := lo.Map(procs, func(r []string, _ int) string { return r[2] })
		m.Subset(names, catalogProcs, flavor)
		for _, r := range procs {
			m.Equal("SYSIBM", r[1])
			m.Equal([]string{"NULL", "NULL", "NULL"}, r[3:6])
			if !odbc {
				m.NotEqual("NULL", r[8])
			}
		}
		m.Empty(m.callRows("CALL SYSIBM.SQLPROCEDURES(NULL, 'APP', 'SQL%', "+datatype(flavor)+")", xdbc.ProceduresSchema(odbc)))

		cols := m.callRows("CALL SYSIBM.SQLPROCEDURECOLS(NULL, 'SYSIBM', 'SQLPRIMARYKEYS', '%', "+datatype(flavor)+")",
			xdbc.ProcedureColumnsSchema(odbc))
		m.Equal([]string{"CATALOGNAME", "SCHEMANAME", "TABLENAME", "OPTIONS"},
			lo.Map(cols, func(r []string, _ int) string { return r[3] }), flavor)
		for i, r := range cols {
			m.Equal("SQLPRIMARYKEYS", r[2])
			// an input parameter of type VARCHAR
			m.Equal("1", r[4], r[3])
			m.Equal("12", r[5], r[3])
			m.Equal("VARCHAR", r[6], r[3])
			m.Equal(strconv.Itoa(i+1), r[17], r[3])
		}
		m.Equal("128", cols[0][7])
		m.Equal("4000", cols[3][7])

		unique := m.callRows("CALL SYSIBM.SQLPROCEDURECOLS(NULL, 'SYSIBM', 'SQLSTATISTICS', 'UNIQUE', "+datatype(flavor)+")",
			xdbc.ProcedureColumnsSchema(odbc))
		m.Require().Len(unique, 1)
		m.Equal("5", unique[0][5])
		m.Equal("SMALLINT", unique[0][6])
	}

	jdbc := xdbc.ProcedureColumnsSchema(false)
	odbc := xdbc.ProcedureColumnsSchema(true)
	m.Equal("PRECISION", jdbc.Field(7).Name)
	m.Equal("COLUMN_SIZE", odbc.Field(7).Name)
	m.Equal(jdbc.NumFields()-1, odbc.NumFields())
}

// TestEscapedFunctions runs every function GetInfo lists as usable in
// a {fn ...} escape.
func (m *MetadataTests) TestEscapedFunctions() {
	samples := map[string]string{
		"ABS": "-25.67", "ACOS": "0.0707", "ASIN": "0.997", "ATAN": "17.91", "ATAN2": "9.0, 3.0",
		"CEILING": "3.4", "COS": "1.2", "DEGREES": "2.1", "EXP": "2.3", "FLOOR": "3.4",
		"LOG": "100.0", "LOG10": "100.0", "MOD": "7, 3", "PI": "", "RADIANS": "180.0",
		"SIGN": "-3.2", "SIN": "1.2", "SQRT": "4.0", "TAN": "1.2",
		"CONCAT": "'hello', 'there'", "LCASE": "'Hello'", "LENGTH": "'four'",
		"LTRIM": "'  left'", "RTRIM": "'right  '", "SUBSTRING": "'hello', 2, 3", "UCASE": "'Hello'",
	}

	rdr, err := m.Cnxn.GetInfo(m.ctx, []xdbc.InfoCode{xdbc.InfoDriverNumericFunctions, xdbc.InfoDriverStringFunctions})
	m.Require().NoError(err)
	var functions []string
	for rdr.Next() {
		rec := rdr.Record()
		values := rec.Column(1).(*array.DenseUnion)
		for i := 0; i < int(rec.NumRows()); i++ {
			if list, ok := values.Field(values.ChildID(i)).(*array.String); ok {
				functions = append(functions, strings.Split(list.Value(int(values.ValueOffset(i))), ",")...)
			}
		}
	}
	m.NoError(rdr.Err())
	rdr.Release()
	if len(functions) == 0 {
		m.T().Skip("driver lists no escaped functions")
	}

	for _, fn := range functions {
		args, ok := samples[fn]
		if !m.Truef(ok, "no sample arguments for %s", fn) {
			continue
		}
		rec, err := QueryRecord(m.ctx, m.Cnxn, "VALUES ({fn "+fn+"("+args+")})")
		if m.NoError(err, fn) {
			m.EqualValues(1, rec.NumRows(), fn)
			rec.Release()
		}
	}

	cur, err := Query(m.ctx, m.Cnxn, "VALUES ({fn UCASE('Hello')}, {fn LCASE('Hello')}, {fn LOG(100.0)})")
	m.Require().NoError(err)
	defer CheckedClose(m.T(), cur)
	ok, err := cur.Next()
	m.Require().NoError(err)
	m.Require().True(ok)
	upper, err := cur.GetString(1)
	m.NoError(err)
	m.Equal("HELLO", upper)
	lower, err := cur.GetString(2)
	m.NoError(err)
	m.Equal("hello", lower)
	// LOG is the natural logarithm
	ln, err := cur.GetDouble(3)
	m.NoError(err)
	m.InDelta(4.60517, ln, 1e-4)
}
