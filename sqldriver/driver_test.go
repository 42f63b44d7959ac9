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

package sqldriver_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/sqlite"
	"github.com/apache/derby-conformance/go/xdbc/sqldriver"
	"github.com/stretchr/testify/suite"
)

func Example() {
	sql.Register("xdbc-sqlite", sqldriver.Driver{Driver: sqlite.NewDriver(memory.DefaultAllocator)})

	// an empty DSN opens a private in-memory database
	db, err := sql.Open("xdbc-sqlite", "")
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE CITIES (ID INTEGER NOT NULL, NAME VARCHAR(20))"); err != nil {
		panic(err)
	}
	if _, err := db.Exec("INSERT INTO CITIES VALUES (?, ?)", 1, "Dublin"); err != nil {
		panic(err)
	}

	rows, err := db.Query("SELECT ID, NAME FROM CITIES")
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			panic(err)
		}
	}()

	colNames, err := rows.Columns()
	if err != nil {
		panic(err)
	}
	fmt.Println(colNames)
	cols, err := rows.ColumnTypes()
	if err != nil {
		panic(err)
	}
	fmt.Println(cols[0].DatabaseTypeName(), cols[1].DatabaseTypeName())

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			panic(err)
		}
		fmt.Println(id, name)
	}

	// Output:
	// [ID NAME]
	// INTEGER VARCHAR
	// 1 Dublin
}

type SQLDriverSuite struct {
	suite.Suite

	ctx context.Context
	db  *sql.DB
}

func (s *SQLDriverSuite) SetupTest() {
	s.ctx = context.Background()
	drv := sqlite.NewDriver(memory.DefaultAllocator)
	xdb, err := drv.NewDatabase(nil)
	s.Require().NoError(err)
	s.db = sql.OpenDB(sqldriver.NewConnector(drv, xdb))
	// one connection keeps the shared in-memory database free of
	// table locks between pooled connections
	s.db.SetMaxOpenConns(1)

	_, err = s.db.ExecContext(s.ctx, "CREATE TABLE ACCOUNTS (ID INTEGER NOT NULL, NAME VARCHAR(20), BALANCE DECIMAL(10,2))")
	s.Require().NoError(err)
}

func (s *SQLDriverSuite) TearDownTest() {
	s.NoError(s.db.Close())
}

func (s *SQLDriverSuite) count() int64 {
	var n int64
	s.Require().NoError(s.db.QueryRowContext(s.ctx, "SELECT COUNT(*) FROM ACCOUNTS").Scan(&n))
	return n
}

func (s *SQLDriverSuite) TestRoundTrip() {
	stmt, err := s.db.PrepareContext(s.ctx, "INSERT INTO ACCOUNTS VALUES (?, ?, ?)")
	s.Require().NoError(err)
	defer stmt.Close()

	res, err := stmt.ExecContext(s.ctx, 1, "alice", "12.50")
	s.Require().NoError(err)
	n, err := res.RowsAffected()
	s.Require().NoError(err)
	s.EqualValues(1, n)

	_, err = stmt.ExecContext(s.ctx, 2, nil, nil)
	s.Require().NoError(err)

	rows, err := s.db.QueryContext(s.ctx, "SELECT ID, NAME, BALANCE FROM ACCOUNTS ORDER BY ID")
	s.Require().NoError(err)
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	s.Require().NoError(err)
	prec, scale, ok := cols[2].DecimalSize()
	s.True(ok)
	s.EqualValues(10, prec)
	s.EqualValues(2, scale)

	type account struct {
		id      int64
		name    sql.NullString
		balance sql.NullString
	}
	var got []account
	for rows.Next() {
		var a account
		s.Require().NoError(rows.Scan(&a.id, &a.name, &a.balance))
		got = append(got, a)
	}
	s.Require().NoError(rows.Err())
	s.Equal([]account{
		{1, sql.NullString{String: "alice", Valid: true}, sql.NullString{String: "12.50", Valid: true}},
		{2, sql.NullString{}, sql.NullString{}},
	}, got)
}

func (s *SQLDriverSuite) TestArgumentCount() {
	_, err := s.db.ExecContext(s.ctx, "INSERT INTO ACCOUNTS VALUES (?, ?, ?)", 1)
	s.Error(err)
}

func (s *SQLDriverSuite) TestTransactions() {
	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	_, err = tx.ExecContext(s.ctx, "INSERT INTO ACCOUNTS (ID) VALUES (1)")
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())
	s.EqualValues(0, s.count())

	tx, err = s.db.BeginTx(s.ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	s.Require().NoError(err)
	_, err = tx.ExecContext(s.ctx, "INSERT INTO ACCOUNTS (ID) VALUES (1)")
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())
	s.EqualValues(1, s.count())

	_, err = s.db.BeginTx(s.ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	var xerr xdbc.Error
	s.Require().ErrorAs(err, &xerr)
	s.Equal(xdbc.StatusNotImplemented, xerr.Code)
}

func (s *SQLDriverSuite) TestReadOnlyTransaction() {
	tx, err := s.db.BeginTx(s.ctx, &sql.TxOptions{ReadOnly: true})
	s.Require().NoError(err)
	_, err = tx.ExecContext(s.ctx, "INSERT INTO ACCOUNTS (ID) VALUES (1)")
	s.Error(err)
	s.Require().NoError(tx.Rollback())

	_, err = s.db.ExecContext(s.ctx, "INSERT INTO ACCOUNTS (ID) VALUES (1)")
	s.Require().NoError(err)
	s.EqualValues(1, s.count())
}

func (s *SQLDriverSuite) TestRawConnection() {
	conn, err := s.db.Conn(s.ctx)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.Raw(func(driverConn any) error {
		cnxn, err := sqldriver.Connection(driverConn)
		s.Require().NoError(err)
		schema, err := cnxn.GetTableSchema(s.ctx, nil, nil, "ACCOUNTS")
		s.Require().NoError(err)
		s.Len(schema.Fields(), 3)

		stmt, err := sqldriver.Prepare(s.ctx, driverConn, "SELECT ID FROM ACCOUNTS")
		s.Require().NoError(err)
		s.False(stmt.IsClosed())
		s.NoError(stmt.CloseOnCompletion())
		on, err := stmt.IsCloseOnCompletion()
		s.NoError(err)
		s.True(on)

		rows, err := stmt.QueryContext(s.ctx, nil)
		s.Require().NoError(err)
		s.False(stmt.IsClosed())
		s.NoError(rows.Close())
		s.True(stmt.IsClosed())
		return stmt.Close()
	}))

	_, err = sqldriver.Connection("not a connection")
	s.Error(err)
}

func TestSQLDriver(t *testing.T) {
	suite.Run(t, new(SQLDriverSuite))
}
