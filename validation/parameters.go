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
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/param"
	"github.com/apache/derby-conformance/go/xdbc/resultset"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/suite"
)

var (
	testDate      = time.Date(2004, 2, 14, 0, 0, 0, 0, time.UTC)
	testTime      = time.Date(1970, 1, 1, 12, 0, 0, 0, time.UTC)
	testTimestamp = time.Date(2004, 2, 14, 12, 0, 0, 0, time.UTC)
)

// literal is the string form of the fixture value for a column of
// type t.
func literal(t sqltypes.SQLType) string {
	switch t {
	case sqltypes.Boolean:
		return "true"
	case sqltypes.Date:
		return "2004-02-14"
	case sqltypes.Time:
		return "12:00:00"
	case sqltypes.Timestamp:
		return "2004-02-14 12:00:00"
	}
	return "98"
}

// ParameterMappingTests exercises every getter, setter and setObject
// argument class against a table holding one column per SQL type,
// checking the conversion matrices are enforced.
type ParameterMappingTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks

	DB   xdbc.Database
	Cnxn xdbc.Connection
	ctx  context.Context

	table string
	// the column types of the fixture table, C_<type> in this order
	types []sqltypes.SQLType
}

func (p *ParameterMappingTests) SetupTest() {
	p.Driver = p.Quirks.SetupDriver(p.T())
	var err error
	p.DB, err = p.Driver.NewDatabase(p.Quirks.DatabaseOptions())
	p.Require().NoError(err)
	p.ctx = context.Background()
	p.Cnxn, err = p.DB.Open(p.ctx)
	p.Require().NoError(err)

	p.table = p.Quirks.StoredIdentifier("PM_T")
	p.types = p.types[:0]
	cols := []string{"ID " + p.Quirks.DeclaredType(sqltypes.Integer)}
	for _, t := range sqltypes.AllTypes {
		if ddl := p.Quirks.DeclaredType(t); ddl != "" {
			p.types = append(p.types, t)
			cols = append(cols, column(t)+" "+ddl)
		}
	}
	_, err = Exec(p.ctx, p.Cnxn, "CREATE TABLE "+p.table+" ("+strings.Join(cols, ", ")+")")
	p.Require().NoError(err)

	// row 1 holds a value in every column, row 2 only its id
	marks := make([]string, len(p.types)+1)
	names := make([]string, len(p.types)+1)
	names[0] = "ID"
	for i := range marks {
		marks[i] = p.Quirks.BindParameter(i)
		if i > 0 {
			names[i] = column(p.types[i-1])
		}
	}
	n, err := p.execParams("INSERT INTO "+p.table+" ("+strings.Join(names, ", ")+") VALUES ("+strings.Join(marks, ", ")+")",
		len(marks), func(b *param.Binder) error {
			if err := b.SetInt(1, 1); err != nil {
				return err
			}
			for i, t := range p.types {
				if err := setFixture(b, i+2, t); err != nil {
					return err
				}
			}
			return nil
		})
	p.Require().NoError(err)
	p.EqualValues(1, n)
	_, err = Exec(p.ctx, p.Cnxn, "INSERT INTO "+p.table+" (ID) VALUES (2)")
	p.Require().NoError(err)
}

func (p *ParameterMappingTests) TearDownTest() {
	p.Require().NoError(p.Cnxn.Close())
	p.Require().NoError(p.DB.Close())
	p.Quirks.TearDownDriver(p.T(), p.Driver)
	p.Cnxn = nil
	p.DB = nil
	p.Driver = nil
}

func column(t sqltypes.SQLType) string { return "C_" + t.String() }

// setFixture binds the row 1 value of a column of type t with the
// setter natural for it.
func setFixture(b *param.Binder, i int, t sqltypes.SQLType) error {
	switch {
	case t == sqltypes.Boolean:
		return b.SetBoolean(i, true)
	case t.IsBinary():
		return b.SetBytes(i, []byte{4})
	case t == sqltypes.Date:
		return b.SetDate(i, testDate)
	case t == sqltypes.Time:
		return b.SetTime(i, testTime)
	case t == sqltypes.Timestamp:
		return b.SetTimestamp(i, testTimestamp)
	case t == sqltypes.Clob:
		return b.SetClob(i, convert.NewClob("98"))
	case t == sqltypes.Blob:
		return b.SetBlob(i, convert.NewBlob([]byte{4}))
	}
	return b.SetString(i, "98")
}

// execParams prepares query, binds the single row set fills and
// executes it.
func (p *ParameterMappingTests) execParams(query string, count int, set func(*param.Binder) error) (int64, error) {
	stmt, err := p.Cnxn.NewStatement()
	if err != nil {
		return -1, err
	}
	defer CheckedClose(p.T(), stmt)
	if err := stmt.SetSqlQuery(query); err != nil {
		return -1, err
	}
	if err := stmt.Prepare(p.ctx); err != nil {
		return -1, err
	}
	b := param.NewBinder(p.Quirks.Alloc(), count)
	if err := set(b); err != nil {
		return -1, err
	}
	rec, err := b.Record()
	if err != nil {
		return -1, err
	}
	defer rec.Release()
	if err := stmt.Bind(p.ctx, rec); err != nil {
		return -1, err
	}
	return stmt.ExecuteUpdate(p.ctx)
}

func (p *ParameterMappingTests) update(t sqltypes.SQLType, set func(*param.Binder) error) error {
	_, err := p.execParams("UPDATE "+p.table+" SET "+column(t)+" = "+p.Quirks.BindParameter(0)+" WHERE ID = 1", 1, set)
	return err
}

func (p *ParameterMappingTests) rows() *resultset.Cursor {
	cur, err := Query(p.ctx, p.Cnxn, "SELECT * FROM "+p.table+" ORDER BY ID")
	p.Require().NoError(err)
	return cur
}

func (p *ParameterMappingTests) next(cur *resultset.Cursor) {
	ok, err := cur.Next()
	p.Require().NoError(err)
	p.Require().True(ok)
}

// judgeGet checks a getter outcome. An allowed getter must work but
// may reject a value that cannot be parsed as its type; a disallowed
// one must fail with 22005.
func (p *ParameterMappingTests) judgeGet(g sqltypes.Getter, t sqltypes.SQLType, err error) {
	what := fmt.Sprintf("%s on %s", g, t)
	if g == sqltypes.GetUnicodeStream {
		AssertSQLState(p.T(), xdbc.StateFeatureNotSupported, err, what)
		return
	}
	if !sqltypes.GetterAllowed(g, t) {
		AssertSQLState(p.T(), xdbc.StateTypeMismatch, err, what)
		return
	}
	switch xdbc.SQLStateOf(err) {
	case "", xdbc.StateInvalidDatetime, xdbc.StateInvalidCharFormat:
	default:
		p.Failf("allowed getter failed", "%s: %v", what, err)
	}
}

// judgeSet checks a setter outcome. An allowed setter must work, and
// may only fail as not supported. A disallowed one may work, and
// otherwise must fail with 22005.
func (p *ParameterMappingTests) judgeSet(what string, allowed bool, err error) {
	if err == nil {
		return
	}
	state := xdbc.SQLStateOf(err)
	if allowed {
		p.Equalf(xdbc.StateFeatureNotSupported, state, "%s: %v", what, err)
		return
	}
	p.Equalf(xdbc.StateTypeMismatch, state, "%s: %v", what, err)
}

func (p *ParameterMappingTests) TestGetters() {
	cur := p.rows()
	defer CheckedClose(p.T(), cur)
	p.next(cur)

	for i, t := range p.types {
		for _, g := range sqltypes.AllGetters {
			_, err := cur.Get(g, i+2)
			p.judgeGet(g, t, err)
		}
	}
}

func (p *ParameterMappingTests) col(t sqltypes.SQLType) int {
	for i, ct := range p.types {
		if ct == t {
			return i + 2
		}
	}
	p.T().Skipf("driver has no %s columns", t)
	return 0
}

func (p *ParameterMappingTests) TestGetterValues() {
	cur := p.rows()
	defer CheckedClose(p.T(), cur)
	p.next(cur)

	n, err := cur.GetInt(p.col(sqltypes.Integer))
	p.NoError(err)
	p.EqualValues(98, n)
	s, err := cur.GetString(p.col(sqltypes.Varchar))
	p.NoError(err)
	p.Equal("98", s)
	d, err := cur.GetDouble(p.col(sqltypes.Decimal))
	p.NoError(err)
	p.Equal(98.0, d)
	ok, err := cur.GetBoolean(p.col(sqltypes.Boolean))
	p.NoError(err)
	p.True(ok)
	bs, err := cur.GetBytes(p.col(sqltypes.Varbinary))
	p.NoError(err)
	p.Equal([]byte{4}, bs)
	date, err := cur.GetDate(p.col(sqltypes.Date))
	p.NoError(err)
	p.Equal(testDate.Format(time.DateOnly), date.Format(time.DateOnly))
	ts, err := cur.GetTimestamp(p.col(sqltypes.Timestamp))
	p.NoError(err)
	p.Equal(testTimestamp.Format(time.DateTime), ts.Format(time.DateTime))
	clob, err := cur.GetClob(p.col(sqltypes.Clob))
	p.NoError(err)
	p.Equal("98", clob.String())

	// "98" is no time of day
	_, err = cur.GetTime(p.col(sqltypes.Varchar))
	AssertSQLState(p.T(), xdbc.StateInvalidDatetime, err)
}

func (p *ParameterMappingTests) TestGettersOnNull() {
	cur := p.rows()
	defer CheckedClose(p.T(), cur)
	p.next(cur)
	p.next(cur)

	for i, t := range p.types {
		for _, g := range sqltypes.AllGetters {
			if !sqltypes.GetterAllowed(g, t) {
				continue
			}
			_, err := cur.Get(g, i+2)
			p.NoErrorf(err, "%s on NULL %s", g, t)
			p.Truef(cur.WasNull(), "%s on NULL %s", g, t)
		}
		v, err := cur.GetObject(i + 2)
		p.NoError(err)
		p.Nil(v, t.String())
	}
}

// TestGetObject checks the Go type getObject returns for each column
// type.
func (p *ParameterMappingTests) TestGetObject() {
	cur := p.rows()
	defer CheckedClose(p.T(), cur)
	p.next(cur)

	for i, t := range p.types {
		v, err := cur.GetObject(i + 2)
		p.Require().NoError(err, t.String())
		var ok bool
		switch sqltypes.ObjectClass(t) {
		case sqltypes.ObjInteger:
			_, ok = v.(int32)
		case sqltypes.ObjLong:
			_, ok = v.(int64)
		case sqltypes.ObjFloat:
			_, ok = v.(float32)
		case sqltypes.ObjDouble:
			_, ok = v.(float64)
		case sqltypes.ObjBigDecimal:
			_, ok = v.(convert.Decimal)
		case sqltypes.ObjBoolean:
			_, ok = v.(bool)
		case sqltypes.ObjString:
			_, ok = v.(string)
		case sqltypes.ObjBytes:
			_, ok = v.([]byte)
		case sqltypes.ObjDate, sqltypes.ObjTime, sqltypes.ObjTimestamp:
			_, ok = v.(time.Time)
		case sqltypes.ObjClob:
			_, ok = v.(*convert.Clob)
		case sqltypes.ObjBlob:
			_, ok = v.(*convert.Blob)
		}
		p.Truef(ok, "getObject on %s returned %T", t, v)
	}
}

// setValue binds a value suited to target with setter s.
func setValue(b *param.Binder, s sqltypes.Setter, target sqltypes.SQLType) error {
	lit := literal(target)
	switch s {
	case sqltypes.SetByte:
		return b.SetByte(1, 98)
	case sqltypes.SetShort:
		return b.SetShort(1, 98)
	case sqltypes.SetInt:
		return b.SetInt(1, 98)
	case sqltypes.SetLong:
		return b.SetLong(1, 98)
	case sqltypes.SetFloat:
		return b.SetFloat(1, 98)
	case sqltypes.SetDouble:
		return b.SetDouble(1, 98)
	case sqltypes.SetBigDecimal:
		d, err := convert.ParseDecimal("98")
		if err != nil {
			return err
		}
		return b.SetBigDecimal(1, d)
	case sqltypes.SetBoolean:
		return b.SetBoolean(1, true)
	case sqltypes.SetString:
		return b.SetString(1, lit)
	case sqltypes.SetBytes:
		return b.SetBytes(1, []byte{4})
	case sqltypes.SetDate:
		return b.SetDate(1, testDate)
	case sqltypes.SetTime:
		return b.SetTime(1, testTime)
	case sqltypes.SetTimestamp:
		return b.SetTimestamp(1, testTimestamp)
	case sqltypes.SetAsciiStream:
		return b.SetAsciiStream(1, strings.NewReader(lit), len(lit))
	case sqltypes.SetCharacterStream:
		return b.SetCharacterStream(1, strings.NewReader(lit), len(lit))
	case sqltypes.SetBinaryStream:
		return b.SetBinaryStream(1, bytes.NewReader([]byte{4}), 1)
	case sqltypes.SetClob:
		return b.SetClob(1, convert.NewClob(lit))
	case sqltypes.SetBlob:
		return b.SetBlob(1, convert.NewBlob([]byte{4}))
	case sqltypes.SetUnicodeStream:
		return b.SetUnicodeStream(1, strings.NewReader(lit), len(lit))
	}
	return b.SetNull(1, target)
}

func (p *ParameterMappingTests) TestSetters() {
	for _, s := range sqltypes.AllSetters {
		p.Run(s.String(), func() {
			for _, t := range p.types {
				err := p.update(t, func(b *param.Binder) error { return setValue(b, s, t) })
				if s == sqltypes.SetUnicodeStream {
					AssertSQLState(p.T(), xdbc.StateFeatureNotSupported, err, t.String())
					continue
				}
				p.judgeSet(s.String()+" on "+t.String(), sqltypes.SetterAllowed(s, t), err)
			}
		})
	}
}

func (p *ParameterMappingTests) TestSetNull() {
	for _, t := range p.types {
		p.NoError(p.update(t, func(b *param.Binder) error { return b.SetNull(1, t) }), t.String())
	}
	cur := p.rows()
	defer CheckedClose(p.T(), cur)
	p.next(cur)
	for i := range p.types {
		v, err := cur.GetObject(i + 2)
		p.NoError(err)
		p.Nil(v)
	}
}

// objectValue is a setObject argument of class k suited to target.
func objectValue(k sqltypes.ObjectKind, target sqltypes.SQLType) any {
	switch k {
	case sqltypes.ObjString:
		return literal(target)
	case sqltypes.ObjBigDecimal:
		d, _ := convert.ParseDecimal("98")
		return d
	case sqltypes.ObjBoolean:
		return true
	case sqltypes.ObjInteger:
		return int32(98)
	case sqltypes.ObjLong:
		return int64(98)
	case sqltypes.ObjFloat:
		return float32(98)
	case sqltypes.ObjDouble:
		return float64(98)
	case sqltypes.ObjBytes:
		return []byte{4}
	case sqltypes.ObjDate:
		return param.Date(testDate)
	case sqltypes.ObjTime:
		return param.Time(testTime)
	case sqltypes.ObjTimestamp:
		return param.Timestamp(testTimestamp)
	case sqltypes.ObjBlob:
		return convert.NewBlob([]byte{4})
	case sqltypes.ObjClob:
		return convert.NewClob(literal(target))
	case sqltypes.ObjByte:
		return int8(98)
	case sqltypes.ObjShort:
		return int16(98)
	case sqltypes.ObjBigInteger:
		return big.NewInt(98)
	case sqltypes.ObjUtilDate:
		return testTimestamp
	}
	return param.Calendar(testTimestamp)
}

func (p *ParameterMappingTests) TestSetObject() {
	for _, k := range sqltypes.AllObjectKinds {
		p.Run(k.String(), func() {
			for _, t := range p.types {
				err := p.update(t, func(b *param.Binder) error { return b.SetObject(1, objectValue(k, t)) })
				p.judgeSet("setObject("+k.String()+") on "+t.String(), sqltypes.ObjectAllowed(k, t), err)
			}
		})
	}
}

func (p *ParameterMappingTests) TestConversionErrors() {
	huge := new(big.Int).Lsh(big.NewInt(1), 130)
	err := p.update(sqltypes.BigInt, func(b *param.Binder) error { return b.SetObject(1, huge) })
	AssertSQLState(p.T(), xdbc.StateNumericOutOfRange, err)

	err = p.update(sqltypes.Boolean, func(b *param.Binder) error { return b.SetString(1, "98") })
	AssertSQLState(p.T(), xdbc.StateInvalidCharFormat, err)

	err = p.update(sqltypes.SmallInt, func(b *param.Binder) error { return b.SetInt(1, 1<<20) })
	AssertSQLState(p.T(), xdbc.StateNumericOutOfRange, err)

	p.Require().NoError(p.update(sqltypes.BigInt, func(b *param.Binder) error { return b.SetLong(1, 1<<40) }))
	cur := p.rows()
	defer CheckedClose(p.T(), cur)
	p.next(cur)
	_, err = cur.GetInt(p.col(sqltypes.BigInt))
	AssertSQLState(p.T(), xdbc.StateNumericOutOfRange, err)
	n, err := cur.GetLong(p.col(sqltypes.BigInt))
	p.NoError(err)
	p.EqualValues(int64(1)<<40, n)
}

func (p *ParameterMappingTests) TestParameterCount() {
	query := "UPDATE " + p.table + " SET " + column(sqltypes.Integer) + " = " + p.Quirks.BindParameter(0) +
		" WHERE ID = " + p.Quirks.BindParameter(1)

	_, err := p.execParams(query, 1, func(b *param.Binder) error { return b.SetInt(1, 7) })
	AssertSQLState(p.T(), xdbc.StateParamNotSet, err)

	b := param.NewBinder(p.Quirks.Alloc(), 2)
	p.NoError(b.SetInt(1, 7))
	_, err = b.Record()
	AssertSQLState(p.T(), xdbc.StateParamNotSet, err)
	AssertSQLState(p.T(), xdbc.StateInvalidParamIndex, b.SetInt(3, 7))
}

// TestBatch binds two parameter rows as a stream.
func (p *ParameterMappingTests) TestBatch() {
	query := "INSERT INTO " + p.table + " (ID, " + column(sqltypes.Integer) + ") VALUES (" +
		p.Quirks.BindParameter(0) + ", " + p.Quirks.BindParameter(1) + ")"

	var recs []arrow.Record
	for _, id := range []int32{10, 11} {
		b := param.NewBinder(p.Quirks.Alloc(), 2)
		p.Require().NoError(b.SetInt(1, id))
		p.Require().NoError(b.SetInt(2, id*2))
		rec, err := b.Record()
		p.Require().NoError(err)
		defer rec.Release()
		recs = append(recs, rec)
	}
	rdr, err := array.NewRecordReader(recs[0].Schema(), recs)
	p.Require().NoError(err)
	defer rdr.Release()

	stmt, err := p.Cnxn.NewStatement()
	p.Require().NoError(err)
	defer CheckedClose(p.T(), stmt)
	p.Require().NoError(stmt.SetSqlQuery(query))
	p.Require().NoError(stmt.BindStream(p.ctx, rdr))
	n, err := stmt.ExecuteUpdate(p.ctx)
	p.Require().NoError(err)
	p.EqualValues(2, n)

	cur, err := Query(p.ctx, p.Cnxn, "SELECT "+column(sqltypes.Integer)+" FROM "+p.table+" WHERE ID >= 10 ORDER BY ID")
	p.Require().NoError(err)
	defer CheckedClose(p.T(), cur)
	var got []int32
	for {
		ok, err := cur.Next()
		p.Require().NoError(err)
		if !ok {
			break
		}
		v, err := cur.GetInt(1)
		p.Require().NoError(err)
		got = append(got, v)
	}
	p.Equal([]int32{20, 22}, got)
}
