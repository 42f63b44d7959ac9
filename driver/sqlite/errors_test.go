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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/types/known/wrapperspb"
	sqlite3 "modernc.org/sqlite/lib"
)

type engineError struct {
	code int
	msg  string
}

func (e engineError) Error() string { return e.msg }
func (e engineError) Code() int     { return e.code }

func TestStateOf(t *testing.T) {
	tests := []struct {
		code  int
		msg   string
		state string
	}{
		{sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed: T.A", xdbc.StateUniqueViolation},
		{sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "UNIQUE constraint failed: T.ID", xdbc.StateUniqueViolation},
		{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY constraint failed", xdbc.StateForeignKeyViolated},
		{sqlite3.SQLITE_CONSTRAINT_NOTNULL, "NOT NULL constraint failed: T.A", xdbc.StateNotNullViolated},
		{sqlite3.SQLITE_CONSTRAINT_CHECK, "CHECK constraint failed: c1", xdbc.StateCheckViolated},
		{sqlite3.SQLITE_CONSTRAINT, "constraint failed", xdbc.StateIntegrity},
		{sqlite3.SQLITE_BUSY, "database is locked", xdbc.StateLockTimeout},
		{sqlite3.SQLITE_LOCKED | 1<<8, "database table is locked", xdbc.StateLockTimeout},
		{sqlite3.SQLITE_TOOBIG, "string or blob too big", xdbc.StateStringTruncation},
		{sqlite3.SQLITE_ERROR, `near "SELEC": syntax error`, xdbc.StateSyntaxError},
		{sqlite3.SQLITE_ERROR, "no such table: T9", xdbc.StateTableNotFound},
		{sqlite3.SQLITE_ERROR, "no such column: X", xdbc.StateColumnNotFound},
		{sqlite3.SQLITE_ERROR, "unknown database S9", xdbc.StateSchemaNotFound},
		{sqlite3.SQLITE_ERROR, "table T1 already exists", xdbc.StateObjectExists},
		{sqlite3.SQLITE_ERROR, "something else", ""},
		{sqlite3.SQLITE_IOERR, "disk I/O error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.state, stateOf(tt.code, tt.msg))
		})
	}
}

type MockedEngineSuite struct {
	suite.Suite

	ctx   context.Context
	mock  sqlmock.Sqlmock
	db    xdbc.Database
	cnxn  xdbc.Connection
	alloc *memory.CheckedAllocator
}

func (s *MockedEngineSuite) SetupTest() {
	s.ctx = context.Background()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	s.Require().NoError(err)
	s.mock = mock
	s.T().Cleanup(func() { _ = sqlDB.Close() })

	s.alloc = memory.NewCheckedAllocator(memory.DefaultAllocator)
	s.db, err = NewDriver(s.alloc, WithSQLDB(sqlDB)).NewDatabase(nil)
	s.Require().NoError(err)

	mock.ExpectExec("PRAGMA busy_timeout = 2000").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA foreign_keys = ON").WillReturnResult(sqlmock.NewResult(0, 0))
	s.cnxn, err = s.db.Open(s.ctx)
	s.Require().NoError(err)
}

func (s *MockedEngineSuite) TearDownTest() {
	s.NoError(s.cnxn.Close())
	s.NoError(s.db.Close())
	s.NoError(s.mock.ExpectationsWereMet())
	s.alloc.AssertSize(s.T(), 0)
}

func (s *MockedEngineSuite) exec(query string) error {
	stmt, err := s.cnxn.NewStatement()
	s.Require().NoError(err)
	defer stmt.Close()
	s.Require().NoError(stmt.SetSqlQuery(query))
	_, err = stmt.ExecuteUpdate(s.ctx)
	return err
}

func (s *MockedEngineSuite) TestConstraintViolation() {
	s.mock.ExpectPrepare("INSERT INTO T1 VALUES (1)").
		ExpectExec().
		WillReturnError(engineError{sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE constraint failed: T1.A"})

	err := s.exec("INSERT INTO T1 VALUES (1)")
	s.Require().Error(err)

	var xerr xdbc.Error
	s.Require().ErrorAs(err, &xerr)
	s.Equal(xdbc.StateUniqueViolation, string(xerr.SqlState[:]))
	s.Equal(xdbc.StatusIntegrity, xerr.Code)
	s.EqualValues(sqlite3.SQLITE_CONSTRAINT_UNIQUE, xerr.VendorCode)
	s.Contains(xerr.Msg, "UNIQUE constraint failed")

	s.Require().Len(xerr.Details, 1)
	s.Equal(ErrorDetailResultCode, xerr.Details[0].Key())
	detail, ok := xerr.Details[0].(*xdbc.ProtobufErrorDetail)
	s.Require().True(ok)
	code, ok := detail.Message.(*wrapperspb.Int32Value)
	s.Require().True(ok)
	s.EqualValues(sqlite3.SQLITE_CONSTRAINT_UNIQUE, code.GetValue())
}

func (s *MockedEngineSuite) TestLockTimeoutRollsBack() {
	s.Require().NoError(s.cnxn.(xdbc.PostInitOptions).SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))

	s.mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectPrepare("UPDATE T1 SET A = 2").
		ExpectExec().
		WillReturnError(engineError{sqlite3.SQLITE_BUSY, "database is locked"})
	s.mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.exec("UPDATE T1 SET A = 2")
	s.Equal(xdbc.StateLockTimeout, xdbc.SQLStateOf(err))
}

func (s *MockedEngineSuite) TestOtherErrorsKeepTransaction() {
	s.Require().NoError(s.cnxn.(xdbc.PostInitOptions).SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))

	s.mock.ExpectExec("BEGIN").WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectPrepare("UPDATE T1 SET A = 2").
		ExpectExec().
		WillReturnError(engineError{sqlite3.SQLITE_CONSTRAINT_NOTNULL, "NOT NULL constraint failed: T1.B"})
	// closing with the transaction still open rolls it back
	s.mock.ExpectExec("ROLLBACK").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.exec("UPDATE T1 SET A = 2")
	s.Equal(xdbc.StateNotNullViolated, xdbc.SQLStateOf(err))
}

func (s *MockedEngineSuite) TestDriverErrorsWithoutResultCode() {
	s.mock.ExpectPrepare("DELETE FROM T1").WillReturnError(assert.AnError)

	err := s.exec("DELETE FROM T1")
	var xerr xdbc.Error
	s.Require().ErrorAs(err, &xerr)
	s.Equal(xdbc.StatusInternal, xerr.Code)
	s.Empty(xdbc.SQLStateOf(err))
}

func TestMockedEngine(t *testing.T) {
	suite.Run(t, new(MockedEngineSuite))
}

func TestTranslatePassesThrough(t *testing.T) {
	in := xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateSavepointInvalid, "gone")
	out := translate(nil, in)
	require.Equal(t, in, out)
}
