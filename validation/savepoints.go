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
	"strconv"
	"strings"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/stretchr/testify/suite"
)

type SavepointTests struct {
	suite.Suite

	Driver xdbc.Driver
	Quirks DriverQuirks

	DB   xdbc.Database
	Cnxn xdbc.Connection
	Sps  xdbc.ConnectionSavepoints
	ctx  context.Context

	table string
}

func (s *SavepointTests) SetupTest() {
	if !s.Quirks.SupportsSavepoints() {
		s.T().Skip("driver does not support savepoints")
	}
	s.Driver = s.Quirks.SetupDriver(s.T())
	s.ctx = context.Background()
	s.open(s.Quirks.DatabaseOptions())
}

func (s *SavepointTests) open(opts map[string]string) {
	var err error
	s.DB, err = s.Driver.NewDatabase(opts)
	s.Require().NoError(err)
	s.Cnxn, err = s.DB.Open(s.ctx)
	s.Require().NoError(err)
	var ok bool
	s.Sps, ok = s.Cnxn.(xdbc.ConnectionSavepoints)
	s.Require().True(ok, "connection does not implement xdbc.ConnectionSavepoints")

	s.table = s.Quirks.StoredIdentifier("SP_T")
	_, err = Exec(s.ctx, s.Cnxn, "CREATE TABLE "+s.table+" (A "+s.Quirks.DeclaredType(sqltypes.Integer)+")")
	s.Require().NoError(err)
	s.Require().NoError(SetAutocommit(s.Cnxn, false))
}

func (s *SavepointTests) TearDownTest() {
	if s.Driver == nil {
		return
	}
	s.close()
	s.Quirks.TearDownDriver(s.T(), s.Driver)
	s.Driver = nil
}

func (s *SavepointTests) close() {
	// fails under autocommit, which is fine
	_ = s.Cnxn.Rollback(s.ctx)
	s.Require().NoError(s.Cnxn.Close())
	s.Require().NoError(s.DB.Close())
	s.Cnxn, s.Sps, s.DB = nil, nil, nil
}

func (s *SavepointTests) insert(v int) {
	_, err := Exec(s.ctx, s.Cnxn, "INSERT INTO "+s.table+" VALUES ("+strconv.Itoa(v)+")")
	s.Require().NoError(err)
}

func (s *SavepointTests) count() int64 {
	cur, err := Query(s.ctx, s.Cnxn, "SELECT COUNT(*) FROM "+s.table)
	s.Require().NoError(err)
	defer CheckedClose(s.T(), cur)
	ok, err := cur.Next()
	s.Require().NoError(err)
	s.Require().True(ok)
	n, err := cur.GetLong(1)
	s.Require().NoError(err)
	return n
}

func (s *SavepointTests) named(name string) xdbc.Savepoint {
	sp, err := s.Sps.SetNamedSavepoint(s.ctx, &name)
	s.Require().NoError(err)
	return sp
}

func (s *SavepointTests) unnamed() xdbc.Savepoint {
	sp, err := s.Sps.SetSavepoint(s.ctx)
	s.Require().NoError(err)
	return sp
}

func (s *SavepointTests) TestAutocommit() {
	s.Require().NoError(SetAutocommit(s.Cnxn, true))
	_, err := s.Sps.SetSavepoint(s.ctx)
	AssertSQLState(s.T(), xdbc.StateAutocommitSavepoint, err)
	name := "A"
	_, err = s.Sps.SetNamedSavepoint(s.ctx, &name)
	AssertSQLState(s.T(), xdbc.StateAutocommitSavepoint, err)
}

func (s *SavepointTests) TestNames() {
	_, err := s.Sps.SetNamedSavepoint(s.ctx, nil)
	AssertSQLState(s.T(), xdbc.StateNullSavepointName, err)

	sys := "SYSPOINT"
	_, err = s.Sps.SetNamedSavepoint(s.ctx, &sys)
	AssertSQLState(s.T(), xdbc.StateReservedSystemPrefix, err)

	long := strings.Repeat("x", 129)
	_, err = s.Sps.SetNamedSavepoint(s.ctx, &long)
	AssertSQLState(s.T(), xdbc.StateIdentifierTooLong, err)
	s.named(long[:128])

	s.named("dup")
	dup := "dup"
	_, err = s.Sps.SetNamedSavepoint(s.ctx, &dup)
	AssertSQLState(s.T(), xdbc.StateSavepointExists, err)
	// names are case sensitive
	s.named("DUP")
}

func (s *SavepointTests) TestIDAndName() {
	sp := s.unnamed()
	id, err := sp.ID()
	s.NoError(err)
	s.Positive(id)
	_, err = sp.Name()
	AssertSQLState(s.T(), xdbc.StateSavepointNoName, err)

	next := s.unnamed()
	nextID, err := next.ID()
	s.NoError(err)
	s.NotEqual(id, nextID)

	sp = s.named("mySavepoint")
	name, err := sp.Name()
	s.NoError(err)
	s.Equal("mySavepoint", name)
	_, err = sp.ID()
	AssertSQLState(s.T(), xdbc.StateSavepointNoID, err)
}

func (s *SavepointTests) TestRollbackKeepsSavepoint() {
	s.insert(1)
	sp1 := s.named("S1")
	s.insert(2)
	sp2 := s.unnamed()
	s.insert(3)

	s.Require().NoError(s.Sps.RollbackToSavepoint(s.ctx, sp1))
	s.EqualValues(1, s.count())
	// the target survives, later savepoints do not
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.ReleaseSavepoint(s.ctx, sp2))
	s.insert(4)
	s.Require().NoError(s.Sps.RollbackToSavepoint(s.ctx, sp1))
	s.EqualValues(1, s.count())
	s.NoError(s.Sps.ReleaseSavepoint(s.ctx, sp1))

	s.Require().NoError(s.Cnxn.Commit(s.ctx))
	s.EqualValues(1, s.count())
}

func (s *SavepointTests) TestReleaseReleasesLater() {
	sp1 := s.unnamed()
	sp2 := s.named("S2")
	sp3 := s.unnamed()
	s.Require().NoError(s.Sps.ReleaseSavepoint(s.ctx, sp2))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.ReleaseSavepoint(s.ctx, sp3))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.RollbackToSavepoint(s.ctx, sp2))
	s.NoError(s.Sps.ReleaseSavepoint(s.ctx, sp1))

	// a released name can be reused
	s.named("S2")
}

func (s *SavepointTests) TestEndOfTransaction() {
	sp := s.unnamed()
	s.Require().NoError(s.Cnxn.Commit(s.ctx))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.ReleaseSavepoint(s.ctx, sp))

	sp = s.named("S1")
	s.Require().NoError(s.Cnxn.Rollback(s.ctx))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.RollbackToSavepoint(s.ctx, sp))
	// the name is free again in the new transaction
	s.named("S1")

	sp = s.unnamed()
	s.Require().NoError(SetAutocommit(s.Cnxn, true))
	AssertSQLState(s.T(), xdbc.StateAutocommitSavepoint, s.Sps.ReleaseSavepoint(s.ctx, sp))
	s.Require().NoError(SetAutocommit(s.Cnxn, false))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.ReleaseSavepoint(s.ctx, sp))
}

func (s *SavepointTests) TestOtherConnection() {
	other, err := s.DB.Open(s.ctx)
	s.Require().NoError(err)
	defer CheckedClose(s.T(), other)
	s.Require().NoError(SetAutocommit(other, false))

	sp := s.unnamed()
	otherSps := other.(xdbc.ConnectionSavepoints)
	AssertSQLState(s.T(), xdbc.StateSavepointOtherCnxn, otherSps.ReleaseSavepoint(s.ctx, sp))
	AssertSQLState(s.T(), xdbc.StateSavepointOtherCnxn, otherSps.RollbackToSavepoint(s.ctx, sp))
	s.NoError(s.Sps.ReleaseSavepoint(s.ctx, sp))
	s.NoError(other.Rollback(s.ctx))
}

func (s *SavepointTests) sql(query string) error {
	_, err := Exec(s.ctx, s.Cnxn, query)
	return err
}

func (s *SavepointTests) TestSQLSavepoints() {
	if !s.Quirks.SupportsSQLSavepoints() {
		s.T().Skip("driver does not support SAVEPOINT statements")
	}
	AssertSQLState(s.T(), xdbc.StateSyntaxError, s.sql("SAVEPOINT S1"))
	AssertSQLState(s.T(), xdbc.StateClauseRepeated, s.sql("SAVEPOINT S1 UNIQUE UNIQUE ON ROLLBACK RETAIN CURSORS"))
	AssertSQLState(s.T(), xdbc.StateReservedSystemPrefix, s.sql("SAVEPOINT SYSX ON ROLLBACK RETAIN CURSORS"))

	s.Require().NoError(s.sql(`SAVEPOINT "MiXed" ON ROLLBACK RETAIN CURSORS`))
	AssertSQLState(s.T(), xdbc.StateSavepointNesting, s.sql("SAVEPOINT S2 ON ROLLBACK RETAIN CURSORS"))
	s.insert(1)
	// an unquoted name is folded to upper case and does not match
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.sql("ROLLBACK TO SAVEPOINT mixed"))
	s.Require().NoError(s.sql(`ROLLBACK TO SAVEPOINT "MiXed"`))
	s.EqualValues(0, s.count())
	s.Require().NoError(s.sql(`RELEASE SAVEPOINT "MiXed"`))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.sql(`RELEASE SAVEPOINT "MiXed"`))

	s.Require().NoError(s.sql("SAVEPOINT s3 ON ROLLBACK RETAIN CURSORS"))
	s.Require().NoError(s.sql("RELEASE SAVEPOINT S3"))
	s.Require().NoError(s.sql("COMMIT"))

	s.Require().NoError(SetAutocommit(s.Cnxn, true))
	AssertSQLState(s.T(), xdbc.StateAutocommitSavepoint, s.sql("SAVEPOINT S4 ON ROLLBACK RETAIN CURSORS"))
}

func (s *SavepointTests) TestSQLSavepointForms() {
	if !s.Quirks.SupportsSQLSavepoints() {
		s.T().Skip("driver does not support SAVEPOINT statements")
	}
	AssertSQLState(s.T(), xdbc.StateClauseRepeated,
		s.sql("SAVEPOINT S1 ON ROLLBACK RETAIN LOCKS ON ROLLBACK RETAIN CURSORS ON ROLLBACK RETAIN LOCKS"))
	AssertSQLState(s.T(), xdbc.StateClauseRepeated,
		s.sql("SAVEPOINT S1 ON ROLLBACK RETAIN CURSORS ON ROLLBACK RETAIN CURSORS"))

	s.Require().NoError(s.sql("SAVEPOINT S1 UNIQUE ON ROLLBACK RETAIN LOCKS ON ROLLBACK RETAIN CURSORS"))
	s.insert(1)
	s.Require().NoError(s.sql("ROLLBACK WORK TO SAVEPOINT S1"))
	s.EqualValues(0, s.count())
	s.Require().NoError(s.sql("RELEASE TO SAVEPOINT S1"))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.sql("ROLLBACK WORK TO SAVEPOINT S1"))
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.sql("RELEASE TO SAVEPOINT S1"))
}

// TestSQLSavepointInsideAPISavepoint checks that a SAVEPOINT statement
// cannot nest inside a savepoint set through the connection, while the
// connection can still address the SQL savepoint once it is the only one.
func (s *SavepointTests) TestSQLSavepointInsideAPISavepoint() {
	if !s.Quirks.SupportsSQLSavepoints() {
		s.T().Skip("driver does not support SAVEPOINT statements")
	}
	sp := s.named("API1")
	AssertSQLState(s.T(), xdbc.StateSavepointNesting, s.sql("SAVEPOINT S1 ON ROLLBACK RETAIN CURSORS"))
	s.unnamed()
	AssertSQLState(s.T(), xdbc.StateSavepointNesting, s.sql("SAVEPOINT S1 ON ROLLBACK RETAIN CURSORS"))

	s.Require().NoError(s.Sps.ReleaseSavepoint(s.ctx, sp))
	s.Require().NoError(s.sql("SAVEPOINT S1 ON ROLLBACK RETAIN CURSORS"))
	s.insert(1)
	s.Require().NoError(s.sql("ROLLBACK TO SAVEPOINT S1"))
	s.EqualValues(0, s.count())
	s.Require().NoError(s.sql("RELEASE SAVEPOINT S1"))
}

// TestLockTimeout checks that a lock timeout, which rolls back the
// waiting transaction, releases its savepoints.
func (s *SavepointTests) TestLockTimeout() {
	opts := s.Quirks.LockTimeoutOptions(s.T())
	if opts == nil {
		s.T().Skip("driver cannot provoke lock timeouts")
	}
	s.close()
	s.open(opts)

	holder, err := s.DB.Open(s.ctx)
	s.Require().NoError(err)
	defer CheckedClose(s.T(), holder)
	s.Require().NoError(s.Cnxn.Commit(s.ctx))

	s.Require().NoError(SetAutocommit(holder, false))
	_, err = Exec(s.ctx, holder, "INSERT INTO "+s.table+" VALUES (1)")
	s.Require().NoError(err)

	sp := s.unnamed()
	_, err = Exec(s.ctx, s.Cnxn, "INSERT INTO "+s.table+" VALUES (2)")
	AssertSQLState(s.T(), s.Quirks.LockTimeoutState(), err)
	AssertSQLState(s.T(), xdbc.StateSavepointInvalid, s.Sps.ReleaseSavepoint(s.ctx, sp))

	s.NoError(holder.Rollback(s.ctx))
}
