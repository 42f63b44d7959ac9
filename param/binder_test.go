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


package param_test

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/param"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/suite"
)

type BinderSuite struct {
	suite.Suite
	mem *memory.CheckedAllocator
}

func (s *BinderSuite) SetupTest() {
	s.mem = memory.NewCheckedAllocator(memory.DefaultAllocator)
}

func (s *BinderSuite) TearDownTest() {
	s.mem.AssertSize(s.T(), 0)
}

func (s *BinderSuite) TestRecordCarriesSetters() {
	b := param.NewBinder(s.mem, 4)
	s.NoError(b.SetShort(1, 98))
	s.NoError(b.SetString(2, "98"))
	s.NoError(b.SetObject(3, big.NewInt(1)))
	s.NoError(b.SetNull(4, sqltypes.Date))

	rec, err := b.Record()
	s.Require().NoError(err)
	defer rec.Release()

	s.EqualValues(1, rec.NumRows())
	s.Equal(arrow.PrimitiveTypes.Int16, rec.Schema().Field(0).Type)
	s.Equal("p2", rec.Schema().Field(1).Name)
	s.Equal(arrow.FixedWidthTypes.Date32, rec.Schema().Field(3).Type)
	s.True(rec.Column(3).IsNull(0))

	args, err := param.Args(rec, 0)
	s.Require().NoError(err)
	s.Len(args, 4)
	s.Equal(sqltypes.SetShort, args[0].Setter)
	s.Equal(sqltypes.SetString, args[1].Setter)
	s.Equal(sqltypes.SetObject, args[2].Setter)
	s.Equal(sqltypes.ObjBigInteger, args[2].Object)
	s.Equal(sqltypes.SetNull, args[3].Setter)
	s.True(args[3].Value.IsNull())
}

func (s *BinderSuite) TestAssign() {
	b := param.NewBinder(s.mem, 2)
	s.NoError(b.SetFloat(1, 98.4))
	s.NoError(b.SetAsciiStream(2, strings.NewReader("89"), 2))

	rec, err := b.Record()
	s.Require().NoError(err)
	defer rec.Release()
	args, err := param.Args(rec, 0)
	s.Require().NoError(err)

	v, err := args[0].Assign(sqltypes.Of(sqltypes.Integer))
	s.NoError(err)
	s.EqualValues(int64(98), v)

	s.True(args[1].Value.IsLOB())
	d, err := sqltypes.ParseDeclaredType("CLOB(1K)")
	s.Require().NoError(err)
	v, err = args[1].Assign(d)
	s.NoError(err)
	s.Equal("89", v)

	_, err = args[1].Assign(sqltypes.Of(sqltypes.Integer))
	s.Equal(xdbc.StateTypeMismatch, xdbc.SQLStateOf(err))
}

func (s *BinderSuite) TestErrors() {
	b := param.NewBinder(s.mem, 2)
	s.Equal(xdbc.StateInvalidParamIndex, xdbc.SQLStateOf(b.SetInt(0, 1)))
	s.Equal(xdbc.StateInvalidParamIndex, xdbc.SQLStateOf(b.SetInt(3, 1)))
	s.Equal(xdbc.StateFeatureNotSupported, xdbc.SQLStateOf(b.SetUnicodeStream(1, strings.NewReader("x"), 1)))
	s.Equal(xdbc.StateStreamLength, xdbc.SQLStateOf(b.SetAsciiStream(1, strings.NewReader("89"), 3)))
	s.Equal(xdbc.StateStreamLength, xdbc.SQLStateOf(b.SetBinaryStream(1, strings.NewReader("890"), 2)))
	s.Equal(xdbc.StateTypeMismatch, xdbc.SQLStateOf(b.SetObject(1, struct{}{})))

	s.NoError(b.SetInt(1, 1))
	_, err := b.Record()
	s.Equal(xdbc.StateParamNotSet, xdbc.SQLStateOf(err))

	b.ClearParameters()
	_, err = b.Record()
	s.Equal(xdbc.StateParamNotSet, xdbc.SQLStateOf(err))
}

func (s *BinderSuite) TestObjectClasses() {
	day := time.Date(2004, 2, 14, 0, 0, 0, 0, time.UTC)
	objects := []struct {
		v    any
		kind sqltypes.ObjectKind
	}{
		{"98", sqltypes.ObjString},
		{convert.Decimal{}, sqltypes.ObjBigDecimal},
		{true, sqltypes.ObjBoolean},
		{int32(98), sqltypes.ObjInteger},
		{int64(98), sqltypes.ObjLong},
		{float32(98), sqltypes.ObjFloat},
		{98.5, sqltypes.ObjDouble},
		{[]byte{4}, sqltypes.ObjBytes},
		{param.Date(day), sqltypes.ObjDate},
		{param.Time(day), sqltypes.ObjTime},
		{param.Timestamp(day), sqltypes.ObjTimestamp},
		{convert.NewBlob([]byte{4}), sqltypes.ObjBlob},
		{convert.NewClob("4"), sqltypes.ObjClob},
		{int8(98), sqltypes.ObjByte},
		{int16(98), sqltypes.ObjShort},
		{big.NewInt(98), sqltypes.ObjBigInteger},
		{day, sqltypes.ObjUtilDate},
		{param.Calendar(day), sqltypes.ObjCalendar},
	}
	b := param.NewBinder(s.mem, len(objects))
	for i, o := range objects {
		s.Require().NoError(b.SetObject(i+1, o.v), "%T", o.v)
	}
	rec, err := b.Record()
	s.Require().NoError(err)
	defer rec.Release()

	args, err := param.Args(rec, 0)
	s.Require().NoError(err)
	for i, o := range objects {
		s.Equal(o.kind, args[i].Object, "%T", o.v)
	}
	s.True(args[11].Value.IsLOB())
}

func TestBinder(t *testing.T) {
	suite.Run(t, new(BinderSuite))
}
