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
	"context"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/pattern"
	"github.com/apache/derby-conformance/go/xdbc/resultset"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/apache/derby-conformance/go/xdbc/utils"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

// IDS are the identifiers the catalog fixtures are named from. They
// mix case and quoting so that pattern matching has to work on the
// stored form of each name.
var IDS = []string{
	"one_dmd_test",
	"TWO_dmd_test",
	"ThReE_dmd_test",
	`"four_dmd_test"`,
	`"FIVE_dmd_test"`,
	`"sIx_dmd_test"`,
}

type MetadataTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks

	DB   xdbc.Database
	Cnxn xdbc.Connection
	ctx  context.Context
}

func (m *MetadataTests) SetupTest() {
	m.Driver = m.Quirks.SetupDriver(m.T())
	var err error
	m.DB, err = m.Driver.NewDatabase(m.Quirks.DatabaseOptions())
	m.Require().NoError(err)
	m.ctx = context.Background()
	m.Cnxn, err = m.DB.Open(m.ctx)
	m.Require().NoError(err)
}

func (m *MetadataTests) TearDownTest() {
	m.Require().NoError(m.Cnxn.Close())
	m.Require().NoError(m.DB.Close())
	m.Quirks.TearDownDriver(m.T(), m.Driver)
	m.Cnxn = nil
	m.DB = nil
	m.Driver = nil
}

func (m *MetadataTests) exec(query string) {
	_, err := Exec(m.ctx, m.Cnxn, query)
	m.Require().NoError(err, query)
}

// stored returns the stored form of every identifier in ids.
func (m *MetadataTests) stored(ids []string) []string {
	return lo.Map(ids, func(id string, _ int) string { return m.Quirks.StoredIdentifier(id) })
}

func (m *MetadataTests) objects(depth xdbc.ObjectDepth, schema, table, column *string, tableTypes []string) *resultset.Objects {
	rdr, err := m.Cnxn.GetObjects(m.ctx, depth, nil, schema, table, column, tableTypes)
	m.Require().NoError(err)
	m.Require().Truef(xdbc.GetObjectsSchema.Equal(rdr.Schema()), "expected: %s\ngot: %s",
		xdbc.GetObjectsSchema, rdr.Schema())
	objs, err := resultset.ReadObjects(rdr)
	m.Require().NoError(err)
	return objs
}

// createIDSFixture creates one schema per identifier in IDS, each
// holding one table per identifier. The columns of each table are
// named from IDS round-robin.
func (m *MetadataTests) createIDSFixture() {
	types := []string{
		m.Quirks.DeclaredType(sqltypes.Integer),
		m.Quirks.DeclaredType(sqltypes.Varchar),
		m.Quirks.DeclaredType(sqltypes.Decimal),
	}
	for _, schema := range IDS {
		m.exec("CREATE SCHEMA " + schema)
		for j, table := range IDS {
			cols := make([]string, len(types))
			for i, typ := range types {
				cols[i] = IDS[(i+j)%len(IDS)] + " " + typ
			}
			m.exec(fmt.Sprintf("CREATE TABLE %s.%s (%s)", schema, table, strings.Join(cols, ", ")))
		}
	}
}

func (m *MetadataTests) TestTableTypes() {
	rdr, err := m.Cnxn.GetTableTypes(m.ctx)
	m.Require().NoError(err)
	defer rdr.Release()

	var types []string
	for rdr.Next() {
		col := rdr.Record().Column(0).(*array.String)
		for i := 0; i < col.Len(); i++ {
			types = append(types, col.Value(i))
		}
	}
	m.Require().NoError(rdr.Err())
	m.Equal([]string{xdbc.TableTypeSynonym, xdbc.TableTypeSystemTable, xdbc.TableTypeTable, xdbc.TableTypeView}, types)
}

func (m *MetadataTests) TestGetObjectsNilMatchesAll() {
	m.exec("CREATE TABLE " + m.Quirks.StoredIdentifier("T1") + " (A " + m.Quirks.DeclaredType(sqltypes.Integer) + ")")

	all := m.objects(xdbc.ObjectDepthAll, nil, nil, nil, nil)
	pct := "%"
	matched := m.objects(xdbc.ObjectDepthAll, &pct, &pct, &pct, nil)
	m.Equal(all.Schemas, matched.Schemas)
	m.Equal(all.Tables, matched.Tables)
	m.Equal(all.Columns, matched.Columns)
	m.NotEmpty(all.Columns)
}

func (m *MetadataTests) TestGetObjectsUnknownSchema() {
	name := m.Quirks.StoredIdentifier("no_such_schema")
	objs := m.objects(xdbc.ObjectDepthAll, &name, nil, nil, nil)
	m.Empty(objs.Schemas)
	m.Empty(objs.Tables)
	m.Empty(objs.Columns)
}

func (m *MetadataTests) TestGetObjectsTableTypes() {
	t1 := m.Quirks.StoredIdentifier("T1")
	v1 := m.Quirks.StoredIdentifier("V1")
	m.exec("CREATE TABLE " + t1 + " (A " + m.Quirks.DeclaredType(sqltypes.Integer) + ")")
	m.exec("CREATE VIEW " + v1 + " AS SELECT * FROM " + t1)

	sys := m.Quirks.StoredIdentifier("SYS")
	objs := m.objects(xdbc.ObjectDepthTables, nil, nil, nil, []string{xdbc.TableTypeSystemTable})
	m.NotEmpty(objs.Tables)
	for _, t := range objs.Tables {
		m.Equal(xdbc.TableTypeSystemTable, t.Type, t.Name)
		m.Equal(sys, t.Schema, t.Name)
	}

	byType := func(types ...string) []string {
		objs := m.objects(xdbc.ObjectDepthTables, nil, nil, nil, types)
		return lo.FilterMap(objs.Tables, func(t resultset.TableRow, _ int) (string, bool) {
			return t.Name, t.Name == t1 || t.Name == v1
		})
	}
	m.Equal([]string{t1}, byType(xdbc.TableTypeTable))
	m.Equal([]string{v1}, byType(xdbc.TableTypeView))
	m.ElementsMatch([]string{t1, v1}, byType(xdbc.TableTypeTable, xdbc.TableTypeView))
	m.ElementsMatch([]string{t1, v1}, byType())
}

func (m *MetadataTests) TestGetObjectsDepth() {
	m.createIDSFixture()
	schemas := m.stored(IDS)

	objs := m.objects(xdbc.ObjectDepthCatalogs, nil, nil, nil, nil)
	m.NotEmpty(objs.Catalogs)
	m.Empty(objs.Schemas)

	objs = m.objects(xdbc.ObjectDepthDBSchemas, nil, nil, nil, nil)
	names := lo.Map(objs.Schemas, func(s resultset.SchemaRow, _ int) string { return s.Name })
	m.Subset(names, schemas)
	m.Empty(objs.Tables)

	objs = m.objects(xdbc.ObjectDepthTables, nil, nil, nil, nil)
	m.Subset(objs.TableNames(), fixtureTables(schemas))
	m.Empty(objs.Columns)
}

func fixtureTables(stored []string) []string {
	out := make([]string, 0, len(stored)*len(stored))
	for _, s := range stored {
		for _, t := range stored {
			out = append(out, s+"."+t)
		}
	}
	return out
}

// TestGetObjectsPatterns checks GetObjects against the expected
// matches of randomly generated patterns over the IDS fixture.
func (m *MetadataTests) TestGetObjectsPatterns() {
	m.createIDSFixture()
	ids := m.stored(IDS)
	ours := func(schema string) bool { return slices.Contains(ids, schema) }

	for seed := int64(0); seed < 20; seed++ {
		r := rand.New(rand.NewSource(seed))
		sp, tp, cp := pattern.Generate(r, ids), pattern.Generate(r, ids), pattern.Generate(r, ids)

		var wantTables, wantColumns []string
		for _, s := range pattern.Filter(&sp, ids) {
			for j, t := range ids {
				if !pattern.Match(tp, t) {
					continue
				}
				wantTables = append(wantTables, s+"."+t)
				for i := 0; i < 3; i++ {
					if c := ids[(i+j)%len(ids)]; pattern.Match(cp, c) {
						wantColumns = append(wantColumns, s+"."+t+"."+c)
					}
				}
			}
		}

		objs := m.objects(xdbc.ObjectDepthAll, &sp, &tp, &cp, nil)
		gotTables := lo.FilterMap(objs.Tables, func(t resultset.TableRow, _ int) (string, bool) {
			return t.Schema + "." + t.Name, ours(t.Schema)
		})
		gotColumns := lo.FilterMap(objs.Columns, func(c resultset.ColumnRow, _ int) (string, bool) {
			return c.Table.Schema + "." + c.Table.Name + "." + c.Name, ours(c.Table.Schema)
		})
		m.ElementsMatch(wantTables, gotTables, "schema %q table %q", sp, tp)
		m.ElementsMatch(wantColumns, gotColumns, "schema %q table %q column %q", sp, tp, cp)
	}
}

// intValue reads an integer catalog column of any width. ok is false
// for NULL.
func intValue(arr arrow.Array, i int) (v int64, ok bool) {
	if arr.IsNull(i) {
		return 0, false
	}
	switch a := arr.(type) {
	case *array.Int16:
		return int64(a.Value(i)), true
	case *array.Int32:
		return int64(a.Value(i)), true
	case *array.Int64:
		return a.Value(i), true
	}
	panic(fmt.Sprintf("not an integer column: %s", arr.DataType()))
}

func (m *MetadataTests) callColumns(schema, table string, odbc bool) arrow.Record {
	datatype := "JDBC"
	if odbc {
		datatype = "ODBC"
	}
	rec, err := QueryRecord(m.ctx, m.Cnxn, fmt.Sprintf(
		"CALL SYSIBM.SQLCOLUMNS(NULL, '%s', '%s', NULL, 'DATATYPE=''%s''')", schema, table, datatype))
	m.Require().NoError(err)
	m.Require().Truef(utils.SameShape(xdbc.ColumnsSchema(odbc), rec.Schema()), "expected: %s\ngot: %s",
		xdbc.ColumnsSchema(odbc), rec.Schema())
	return rec
}

// TestGetObjectsMatchesProcedures checks that GetObjects and the
// SQLCOLUMNS catalog procedure describe columns the same way.
func (m *MetadataTests) TestGetObjectsMatchesProcedures() {
	if !m.Quirks.SupportsODBCProcedures() {
		m.T().Skip("driver has no catalog procedures")
	}
	table := m.Quirks.StoredIdentifier("TYPES_dmd_test")
	var cols []string
	for _, t := range sqltypes.AllTypes {
		if ddl := m.Quirks.DeclaredType(t); ddl != "" {
			cols = append(cols, "C_"+t.String()+" "+ddl)
		}
	}
	m.exec("CREATE TABLE " + table + " (ID " + m.Quirks.DeclaredType(sqltypes.Integer) + " NOT NULL, " + strings.Join(cols, ", ") + ")")

	objs := m.objects(xdbc.ObjectDepthAll, nil, &table, nil, nil)
	m.Require().Len(objs.Columns, len(cols)+1)
	schema := objs.Columns[0].Table.Schema

	jdbc := m.callColumns(schema, table, false)
	defer jdbc.Release()
	odbc := m.callColumns(schema, table, true)
	defer odbc.Release()
	m.Require().EqualValues(len(objs.Columns), jdbc.NumRows())
	m.Require().EqualValues(len(objs.Columns), odbc.NumRows())

	for i, c := range objs.Columns {
		for _, rec := range []arrow.Record{jdbc, odbc} {
			m.Equal(c.Name, rec.Column(3).(*array.String).Value(i))
			m.Equal(c.TypeName, rec.Column(5).(*array.String).Value(i), c.Name)
			ordinal, _ := intValue(rec.Column(16), i)
			m.EqualValues(c.Ordinal, ordinal, c.Name)
			nullable, _ := intValue(rec.Column(10), i)
			m.EqualValues(c.Nullable, nullable, c.Name)
			m.Equal(c.IsNullable, rec.Column(17).(*array.String).Value(i), c.Name)
		}

		dataType, ok := intValue(jdbc.Column(4), i)
		m.True(ok, c.Name)
		m.EqualValues(c.DataType, dataType, c.Name)

		size, ok := intValue(jdbc.Column(6), i)
		m.Equal(c.ColumnSize != nil, ok, c.Name)
		if ok && c.ColumnSize != nil {
			m.EqualValues(*c.ColumnSize, size, c.Name)
		}

		digits, ok := intValue(jdbc.Column(8), i)
		m.Equal(c.DecimalDigits != nil, ok, c.Name)
		if ok && c.DecimalDigits != nil {
			m.EqualValues(*c.DecimalDigits, digits, c.Name)
		}
	}
	m.EqualValues(0, objs.Columns[0].Nullable)
	m.Equal("NO", objs.Columns[0].IsNullable)
}

// flavors are the DATATYPE options of the catalog procedures.
var flavors = []string{"JDBC", "ODBC"}

func datatype(flavor string) string { return "'DATATYPE=''" + flavor + "'''" }

// TestProcedureShapes checks the shape of SQLTABLES and SQLGETTYPEINFO
// in both flavors and that their rows agree with GetObjects and with
// each other.
func (m *MetadataTests) TestProcedureShapes() {
	if !m.Quirks.SupportsODBCProcedures() {
		m.T().Skip("driver has no catalog procedures")
	}
	table, view := m.Quirks.StoredIdentifier("SHAPE_T"), m.Quirks.StoredIdentifier("SHAPE_V")
	m.exec("CREATE TABLE " + table + " (A " + m.Quirks.DeclaredType(sqltypes.Integer) + ")")
	m.exec("CREATE VIEW " + view + " AS SELECT * FROM " + table)

	tableKey := func(t resultset.TableRow, _ int) string { return t.Schema + "." + t.Name + ":" + t.Type }
	all := lo.Map(m.objects(xdbc.ObjectDepthTables, nil, nil, nil, nil).Tables, tableKey)
	onlyTables := lo.Map(m.objects(xdbc.ObjectDepthTables, nil, nil, nil, []string{xdbc.TableTypeTable}).Tables, tableKey)
	m.Require().NotEmpty(onlyTables)
	m.Require().Greater(len(all), len(onlyTables))

	for _, flavor := range flavors {
		for types, want := range map[string][]string{"NULL": all, "'TABLE'": onlyTables} {
			rec, err := QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLTABLES(NULL, NULL, NULL, "+types+", "+datatype(flavor)+")")
			m.Require().NoError(err)
			m.Truef(utils.SameShape(xdbc.TablesSchema, rec.Schema()), "%s: %s", flavor, rec.Schema())
			var got []string
			for i := 0; i < int(rec.NumRows()); i++ {
				got = append(got, tableKey(resultset.TableRow{
					Schema: rec.Column(1).(*array.String).Value(i),
					Name:   rec.Column(2).(*array.String).Value(i),
					Type:   rec.Column(3).(*array.String).Value(i),
				}, i))
			}
			m.ElementsMatch(want, got, "%s table types %s", flavor, types)
			rec.Release()
		}
	}

	jdbc, err := QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLGETTYPEINFO(0, "+datatype("JDBC")+")")
	m.Require().NoError(err)
	defer jdbc.Release()
	m.True(utils.SameShape(xdbc.TypeInfoSchema(false), jdbc.Schema()))
	m.EqualValues(18, jdbc.NumCols())
	m.Positive(jdbc.NumRows())

	odbc, err := QueryRecord(m.ctx, m.Cnxn, "CALL SYSIBM.SQLGETTYPEINFO(0, "+datatype("ODBC")+")")
	m.Require().NoError(err)
	defer odbc.Release()
	m.True(utils.SameShape(xdbc.TypeInfoSchema(true), odbc.Schema()))
	m.EqualValues(19, odbc.NumCols())

	// ODBC has no BOOLEAN and narrower integers, and renames two columns
	m.Equal("PRECISION", jdbc.ColumnName(2))
	m.Equal("COLUMN_SIZE", odbc.ColumnName(2))
	m.Equal("AUTO_INCREMENT", jdbc.ColumnName(11))
	m.Equal("AUTO_UNIQUE_VAL", odbc.ColumnName(11))
	m.Equal("INTERVAL_PRECISION", odbc.ColumnName(18))
	m.Equal(arrow.INT32, jdbc.Column(1).DataType().ID())
	m.Equal(arrow.INT16, odbc.Column(1).DataType().ID())
	m.Equal(arrow.BOOL, jdbc.Column(7).DataType().ID())
	m.Equal(arrow.INT16, odbc.Column(7).DataType().ID())

	m.Require().Equal(jdbc.NumRows(), odbc.NumRows())
	for i := 0; i < int(jdbc.NumRows()); i++ {
		name := jdbc.Column(0).(*array.String).Value(i)
		m.Equal(name, odbc.Column(0).(*array.String).Value(i))
		for _, col := range []int{1, 2, 6, 8, 13, 14, 17} {
			want, wantOK := intValue(jdbc.Column(col), i)
			got, gotOK := intValue(odbc.Column(col), i)
			m.Equal(wantOK, gotOK, "%s %s", name, jdbc.ColumnName(col))
			m.Equal(want, got, "%s %s", name, jdbc.ColumnName(col))
		}
		for _, col := range []int{7, 10} {
			flag, ok := intValue(odbc.Column(col), i)
			m.True(ok, "%s %s", name, odbc.ColumnName(col))
			m.Equal(jdbc.Column(col).(*array.Boolean).Value(i), flag == 1, "%s %s", name, odbc.ColumnName(col))
		}
		m.True(odbc.Column(18).IsNull(i), name)
	}
}

func (m *MetadataTests) TestGetTableSchemaEmptyName() {
	_, err := m.Cnxn.GetTableSchema(m.ctx, nil, nil, "")
	AssertSQLState(m.T(), xdbc.StateNullTableName, err)
}

// TestConcurrentGetObjects runs GetObjects on two connections at once.
func (m *MetadataTests) TestConcurrentGetObjects() {
	m.createIDSFixture()
	other, err := m.DB.Open(m.ctx)
	m.Require().NoError(err)
	defer CheckedClose(m.T(), other)

	var ready sync.WaitGroup
	ready.Add(2)
	results := make([]*resultset.Objects, 2)
	g, ctx := errgroup.WithContext(m.ctx)
	for i, cnxn := range []xdbc.Connection{m.Cnxn, other} {
		g.Go(func() error {
			ready.Done()
			ready.Wait()
			rdr, err := cnxn.GetObjects(ctx, xdbc.ObjectDepthAll, nil, nil, nil, nil, nil)
			if err != nil {
				return err
			}
			results[i], err = resultset.ReadObjects(rdr)
			return err
		})
	}
	m.Require().NoError(g.Wait())
	m.Equal(results[0].TableNames(), results[1].TableNames())
	m.Equal(len(results[0].Columns), len(results[1].Columns))
	m.Subset(results[0].TableNames(), fixtureTables(m.stored(IDS)))
}
