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
	"database/sql"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/sqldriver"
	"github.com/apache/derby-conformance/go/xdbc/stmtpool"
	"github.com/apache/derby-conformance/go/xdbc/stmtwrap"
	"github.com/stretchr/testify/suite"
)

// WrapperTests checks closeOnCompletion through stmtwrap for every
// statement kind the driver can be reached by.
type WrapperTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks

	DB   xdbc.Database
	Cnxn xdbc.Connection
	ctx  context.Context
}

func (w *WrapperTests) SetupTest() {
	w.Driver = w.Quirks.SetupDriver(w.T())
	var err error
	w.DB, err = w.Driver.NewDatabase(w.Quirks.DatabaseOptions())
	w.Require().NoError(err)
	w.ctx = context.Background()
	w.Cnxn, err = w.DB.Open(w.ctx)
	w.Require().NoError(err)
}

func (w *WrapperTests) TearDownTest() {
	w.Require().NoError(w.Cnxn.Close())
	if w.DB != nil {
		w.Require().NoError(w.DB.Close())
	}
	w.Quirks.TearDownDriver(w.T(), w.Driver)
	w.Cnxn = nil
	w.DB = nil
	w.Driver = nil
}

func (w *WrapperTests) checkCloseOnCompletion(st *stmtwrap.Statement41) {
	on, err := st.IsCloseOnCompletion()
	w.Require().NoError(err)
	w.False(on)
	w.False(st.IsClosed())

	w.Require().NoError(st.CloseOnCompletion())
	on, err = st.IsCloseOnCompletion()
	w.Require().NoError(err)
	w.True(on)

	rdr, _, err := st.Statement().ExecuteQuery(w.ctx)
	w.Require().NoError(err)
	for rdr.Next() {
	}
	w.NoError(rdr.Err())
	w.False(st.IsClosed(), "open until the result is released")
	rdr.Release()
	w.True(st.IsClosed())

	_, err = st.IsCloseOnCompletion()
	AssertSQLState(w.T(), xdbc.StateStatementClosed, err)
	AssertSQLState(w.T(), xdbc.StateStatementClosed, st.CloseOnCompletion())
}

func (w *WrapperTests) TestDriverStatement() {
	stmt, err := w.Cnxn.NewStatement()
	w.Require().NoError(err)
	defer CheckedClose(w.T(), stmt)
	w.Require().NoError(stmt.SetSqlQuery("SELECT 1"))

	st, err := stmtwrap.Wrap(stmt)
	if xdbc.SQLStateOf(err) == xdbc.StateFeatureNotSupported {
		w.T().Skip("driver statements do not support close on completion")
	}
	w.Require().NoError(err)
	w.Equal(stmtwrap.KindDriver, st.Kind())
	w.checkCloseOnCompletion(st)
}

func (w *WrapperTests) TestLogicalStatement() {
	pool := stmtpool.New(w.Cnxn, 4)
	defer CheckedClose(w.T(), pool)

	ls, err := pool.Prepare(w.ctx, "SELECT 1")
	w.Require().NoError(err)
	st, err := stmtwrap.Wrap(ls)
	w.Require().NoError(err)
	w.Equal(stmtwrap.KindLogical, st.Kind())
	w.Same(ls, st.Unwrap())
	w.checkCloseOnCompletion(st)

	// the physical statement went back to the pool
	w.Equal(1, pool.Len())
	again, err := pool.Prepare(w.ctx, "SELECT 1")
	w.Require().NoError(err)
	defer CheckedClose(w.T(), again)
	hits, _ := pool.Stats()
	w.EqualValues(1, hits)
}

func (w *WrapperTests) TestLogicalStatementOpenResults() {
	if !w.Quirks.SupportsConcurrentStatements() {
		w.T().Skip("driver does not support concurrent results")
	}
	pool := stmtpool.New(w.Cnxn, 4)
	defer CheckedClose(w.T(), pool)

	ls, err := pool.Prepare(w.ctx, "SELECT 1")
	w.Require().NoError(err)
	w.Require().NoError(ls.CloseOnCompletion())

	first, _, err := ls.ExecuteQuery(w.ctx)
	w.Require().NoError(err)
	second, _, err := ls.ExecuteQuery(w.ctx)
	w.Require().NoError(err)
	first.Release()
	w.False(ls.IsClosed())
	second.Release()
	w.True(ls.IsClosed())
}

func (w *WrapperTests) TestSQLStatement() {
	db := sql.OpenDB(sqldriver.NewConnector(w.Driver, w.DB))
	// closing db closes the database
	w.DB = nil
	defer CheckedClose(w.T(), db)

	conn, err := db.Conn(w.ctx)
	w.Require().NoError(err)
	defer CheckedClose(w.T(), conn)

	var stmt *sqldriver.Stmt
	w.Require().NoError(conn.Raw(func(dc any) error {
		stmt, err = sqldriver.Prepare(w.ctx, dc, "SELECT 1")
		return err
	}))
	defer CheckedClose(w.T(), stmt)

	st, err := stmtwrap.Wrap(stmt)
	w.Require().NoError(err)
	w.Equal(stmtwrap.KindSQL, st.Kind())
	if _, err := st.IsCloseOnCompletion(); xdbc.SQLStateOf(err) == xdbc.StateFeatureNotSupported {
		w.T().Skip("driver statements do not support close on completion")
	}
	w.checkCloseOnCompletion(st)
}

func (w *WrapperTests) TestUnsupported() {
	_, err := stmtwrap.Wrap(w.Cnxn)
	AssertSQLState(w.T(), xdbc.StateFeatureNotSupported, err)
	_, err = stmtwrap.Wrap((*stmtpool.LogicalStatement)(nil))
	AssertSQLState(w.T(), xdbc.StateFeatureNotSupported, err)
}
