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

package stmtpool_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/sqlite"
	"github.com/apache/derby-conformance/go/xdbc/param"
	"github.com/apache/derby-conformance/go/xdbc/stmtpool"
	"github.com/stretchr/testify/suite"
)

type PoolSuite struct {
	suite.Suite

	ctx   context.Context
	alloc *memory.CheckedAllocator
	db    xdbc.Database
	cnxn  xdbc.Connection
	pool  *stmtpool.Pool
}

func (s *PoolSuite) SetupTest() {
	s.ctx = context.Background()
	s.alloc = memory.NewCheckedAllocator(memory.DefaultAllocator)
	var err error
	s.db, err = sqlite.NewDriver(s.alloc).NewDatabase(nil)
	s.Require().NoError(err)
	s.cnxn, err = s.db.Open(s.ctx)
	s.Require().NoError(err)
	s.pool = stmtpool.New(s.cnxn, 3)
}

func (s *PoolSuite) TearDownTest() {
	s.NoError(s.pool.Close())
	s.NoError(s.cnxn.Close())
	s.NoError(s.db.Close())
	s.alloc.AssertSize(s.T(), 0)
}

func (s *PoolSuite) exec(query string) {
	stmt, err := s.cnxn.NewStatement()
	s.Require().NoError(err)
	defer stmt.Close()
	s.Require().NoError(stmt.SetSqlQuery(query))
	_, err = stmt.ExecuteUpdate(s.ctx)
	s.Require().NoError(err, query)
}

func (s *PoolSuite) single(stmt xdbc.Statement) int64 {
	rdr, _, err := stmt.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	defer rdr.Release()
	s.Require().True(rdr.Next())
	s.Require().EqualValues(1, rdr.Record().NumRows())
	return rdr.Record().Column(0).(*array.Int64).Value(0)
}

func (s *PoolSuite) TestReuse() {
	ps, err := s.pool.Prepare(s.ctx, "SELECT 7")
	s.Require().NoError(err)
	s.EqualValues(7, s.single(ps))
	s.NoError(ps.Close())
	s.Equal(1, s.pool.Len())

	ps, err = s.pool.Prepare(s.ctx, "SELECT 7")
	s.Require().NoError(err)
	s.Equal(0, s.pool.Len())
	s.EqualValues(7, s.single(ps))
	s.NoError(ps.Close())

	hits, misses := s.pool.Stats()
	s.EqualValues(1, hits)
	s.EqualValues(1, misses)
}

func (s *PoolSuite) TestCacheOverflow() {
	for i := 0; i < 20; i++ {
		ps, err := s.pool.Prepare(s.ctx, fmt.Sprintf("SELECT %d", i))
		s.Require().NoError(err)
		s.EqualValues(i, s.single(ps))
		s.NoError(ps.Close())
	}
	s.Equal(3, s.pool.Len())
}

func (s *PoolSuite) TestSameTextTwice() {
	a, err := s.pool.Prepare(s.ctx, "SELECT 1")
	s.Require().NoError(err)
	b, err := s.pool.Prepare(s.ctx, "SELECT 1")
	s.Require().NoError(err)
	s.NoError(a.Close())
	s.NoError(b.Close())
	s.Equal(1, s.pool.Len())
}

func (s *PoolSuite) TestClosingStatementClosesResults() {
	ps, err := s.pool.Prepare(s.ctx, "SELECT 99")
	s.Require().NoError(err)
	rdr, _, err := ps.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	s.NoError(ps.Close())

	s.False(rdr.Next())
	s.Equal(xdbc.StateCursorClosed, xdbc.SQLStateOf(rdr.Err()))
	rdr.Release()
}

func (s *PoolSuite) TestClosedStatement() {
	ps, err := s.pool.Prepare(s.ctx, "SELECT 1")
	s.Require().NoError(err)
	s.False(ps.IsClosed())
	s.NoError(ps.Close())
	s.True(ps.IsClosed())
	s.NoError(ps.Close())

	_, _, err = ps.ExecuteQuery(s.ctx)
	s.Equal(xdbc.StateStatementClosed, xdbc.SQLStateOf(err))
	_, err = ps.ExecuteUpdate(s.ctx)
	s.Equal(xdbc.StateStatementClosed, xdbc.SQLStateOf(err))
	_, err = ps.GetParameterSchema()
	s.Equal(xdbc.StateStatementClosed, xdbc.SQLStateOf(err))
	s.Equal(xdbc.StateStatementClosed, xdbc.SQLStateOf(ps.CloseOnCompletion()))
	_, err = ps.IsCloseOnCompletion()
	s.Equal(xdbc.StateStatementClosed, xdbc.SQLStateOf(err))
}

func (s *PoolSuite) TestCloseOnCompletion() {
	ps, err := s.pool.Prepare(s.ctx, "SELECT 5")
	s.Require().NoError(err)
	on, err := ps.IsCloseOnCompletion()
	s.NoError(err)
	s.False(on)

	s.Require().NoError(ps.CloseOnCompletion())
	s.EqualValues(5, s.single(ps))
	s.True(ps.IsClosed())
	s.Equal(1, s.pool.Len())
}

func (s *PoolSuite) TestSqlTextIsFixed() {
	ps, err := s.pool.Prepare(s.ctx, "SELECT 1")
	s.Require().NoError(err)
	defer ps.Close()
	s.Equal("SELECT 1", ps.Query())
	s.Error(ps.SetSqlQuery("SELECT 2"))
	s.NoError(ps.Prepare(s.ctx))
}

func (s *PoolSuite) TestDroppedTableInCache() {
	s.exec("CREATE TABLE POOLED (ID INTEGER)")
	s.exec("INSERT INTO POOLED VALUES (1)")

	ps, err := s.pool.Prepare(s.ctx, "SELECT * FROM POOLED")
	s.Require().NoError(err)
	rdr, _, err := ps.ExecuteQuery(s.ctx)
	s.Require().NoError(err)
	rdr.Release()
	s.NoError(ps.Close())

	s.exec("DROP TABLE POOLED")
	ps, err = s.pool.Prepare(s.ctx, "SELECT * FROM POOLED")
	s.Require().NoError(err)
	defer ps.Close()
	_, _, err = ps.ExecuteQuery(s.ctx)
	s.Equal(xdbc.StateTableNotFound, xdbc.SQLStateOf(err))
}

func (s *PoolSuite) TestNoCommitOnReuse() {
	s.exec("CREATE TABLE POOLDATA (VAL INTEGER)")
	s.Require().NoError(s.cnxn.(xdbc.PostInitOptions).SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))

	const insert = "INSERT INTO POOLDATA (VAL) VALUES (?)"
	for _, v := range []int32{68, 77} {
		ps, err := s.pool.Prepare(s.ctx, insert)
		s.Require().NoError(err)
		b := param.NewBinder(s.alloc, 1)
		s.Require().NoError(b.SetInt(1, v))
		rec, err := b.Record()
		s.Require().NoError(err)
		s.Require().NoError(ps.Bind(s.ctx, rec))
		rec.Release()
		n, err := ps.ExecuteUpdate(s.ctx)
		s.Require().NoError(err)
		s.EqualValues(1, n)
		s.NoError(ps.Close())
	}

	count, err := s.pool.Prepare(s.ctx, "SELECT COUNT(*) FROM POOLDATA")
	s.Require().NoError(err)
	s.EqualValues(2, s.single(count))
	s.Require().NoError(s.cnxn.Rollback(s.ctx))
	s.EqualValues(0, s.single(count))
	s.NoError(count.Close())
	s.Require().NoError(s.cnxn.(xdbc.PostInitOptions).SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueEnabled))
}

func (s *PoolSuite) TestPoolClose() {
	ps, err := s.pool.Prepare(s.ctx, "SELECT 1")
	s.Require().NoError(err)
	idle, err := s.pool.Prepare(s.ctx, "SELECT 2")
	s.Require().NoError(err)
	s.NoError(idle.Close())
	s.Equal(1, s.pool.Len())

	s.NoError(s.pool.Close())
	s.Equal(0, s.pool.Len())
	_, err = s.pool.Prepare(s.ctx, "SELECT 1")
	s.Equal(xdbc.StateNoConnection, xdbc.SQLStateOf(err))

	// still usable until closed
	s.EqualValues(1, s.single(ps))
	s.NoError(ps.Close())
	s.Equal(0, s.pool.Len())
}

func TestPool(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}
