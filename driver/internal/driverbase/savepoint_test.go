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

package driverbase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func ptr(s string) *string { return &s }

type SavepointSuite struct {
	suite.Suite

	ctx     context.Context
	backend *recordingSavepointer
	sps     *driverbase.Savepoints
}

func (s *SavepointSuite) SetupTest() {
	s.ctx = context.Background()
	s.backend = &recordingSavepointer{}
	s.sps = driverbase.NewSavepoints(driverbase.ErrorHelper{DriverName: "test"})
}

func (s *SavepointSuite) assertState(state string, err error) {
	s.Require().Error(err)
	s.Equal(state, xdbc.SQLStateOf(err), err.Error())
}

func (s *SavepointSuite) set(name *string, named bool) xdbc.Savepoint {
	sp, err := s.sps.Set(s.ctx, s.backend, false, name, named)
	s.Require().NoError(err)
	return sp
}

func (s *SavepointSuite) TestAutocommitChecksComeFirst() {
	_, err := s.sps.Set(s.ctx, s.backend, true, nil, false)
	s.assertState(xdbc.StateAutocommitSavepoint, err)
	_, err = s.sps.Set(s.ctx, s.backend, true, nil, true)
	s.assertState(xdbc.StateAutocommitSavepoint, err)

	sp := s.set(nil, false)
	s.assertState(xdbc.StateAutocommitSavepoint, s.sps.Release(s.ctx, s.backend, true, sp))
	s.assertState(xdbc.StateAutocommitSavepoint, s.sps.RollbackTo(s.ctx, s.backend, true, sp))

	// even a savepoint of another connection reports autocommit first
	other := driverbase.NewSavepoints(driverbase.ErrorHelper{DriverName: "test"})
	s.assertState(xdbc.StateAutocommitSavepoint, other.Release(s.ctx, s.backend, true, sp))
	s.assertState(xdbc.StateAutocommitSavepoint, s.sps.SetSQL(s.ctx, s.backend, true, "S1"))
}

func (s *SavepointSuite) TestNamesAndIDs() {
	_, err := s.sps.Set(s.ctx, s.backend, false, nil, true)
	s.assertState(xdbc.StateNullSavepointName, err)

	unnamed := s.set(nil, false)
	id, err := unnamed.ID()
	s.NoError(err)
	s.Equal(1, id)
	_, err = unnamed.Name()
	s.assertState(xdbc.StateSavepointNoName, err)

	named := s.set(ptr("MyName"), true)
	name, err := named.Name()
	s.NoError(err)
	s.Equal("MyName", name)
	_, err = named.ID()
	s.assertState(xdbc.StateSavepointNoID, err)

	// quotes are passed through untouched
	odd := s.set(ptr(`a " b ' c`), true)
	name, err = odd.Name()
	s.NoError(err)
	s.Equal(`a " b ' c`, name)

	// generated and user names live in separate namespaces
	s.set(ptr("SAVEPT2"), true)
	second := s.set(nil, false)
	id, err = second.ID()
	s.NoError(err)
	s.Equal(2, id)

	s.Equal([]string{
		"SAVEPOINT i.SAVEPT1",
		"SAVEPOINT e.MyName",
		`SAVEPOINT e.a " b ' c`,
		"SAVEPOINT e.SAVEPT2",
		"SAVEPOINT i.SAVEPT2",
	}, s.backend.calls)
}

func (s *SavepointSuite) TestNameRules() {
	_, err := s.sps.Set(s.ctx, s.backend, false, ptr("SYSSP"), true)
	s.assertState(xdbc.StateReservedSystemPrefix, err)
	_, err = s.sps.Set(s.ctx, s.backend, false, ptr(strings.Repeat("x", 129)), true)
	s.assertState(xdbc.StateIdentifierTooLong, err)
	s.set(ptr(strings.Repeat("x", 128)), true)
	// the check is case-sensitive: lower-case sys is an ordinary name
	s.set(ptr("sysSp"), true)

	s.set(ptr("dup"), true)
	_, err = s.sps.Set(s.ctx, s.backend, false, ptr("dup"), true)
	s.assertState(xdbc.StateSavepointExists, err)
}

func (s *SavepointSuite) TestReleaseAndRollback() {
	s1 := s.set(ptr("s1"), true)
	s2 := s.set(ptr("s2"), true)
	s3 := s.set(ptr("s3"), true)

	// rollback keeps the target and drops what follows
	s.NoError(s.sps.RollbackTo(s.ctx, s.backend, false, s2))
	s.NoError(s.sps.RollbackTo(s.ctx, s.backend, false, s2))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.Release(s.ctx, s.backend, false, s3))
	s.Equal(2, s.sps.Active())

	// release drops the target as well
	s.NoError(s.sps.Release(s.ctx, s.backend, false, s1))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.Release(s.ctx, s.backend, false, s1))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.RollbackTo(s.ctx, s.backend, false, s2))
	s.Zero(s.sps.Active())

	// a released name can be reused
	s.set(ptr("s1"), true)

	s.assertState(xdbc.StateSavepointInvalid, s.sps.Release(s.ctx, s.backend, false, nil))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.RollbackTo(s.ctx, s.backend, false, nil))
}

func (s *SavepointSuite) TestTransactionBoundaries() {
	sp := s.set(nil, false)
	s.sps.EndTransaction()
	s.assertState(xdbc.StateSavepointInvalid, s.sps.Release(s.ctx, s.backend, false, sp))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.RollbackTo(s.ctx, s.backend, false, sp))
}

func (s *SavepointSuite) TestOtherConnection() {
	sp := s.set(ptr("mine"), true)
	other := driverbase.NewSavepoints(driverbase.ErrorHelper{DriverName: "test"})
	s.assertState(xdbc.StateSavepointOtherCnxn, other.Release(s.ctx, s.backend, false, sp))
	s.assertState(xdbc.StateSavepointOtherCnxn, other.RollbackTo(s.ctx, s.backend, false, sp))
}

func (s *SavepointSuite) TestBackendFailureLeavesStateAlone() {
	s.backend.fail = errors.New("disk on fire")
	_, err := s.sps.Set(s.ctx, s.backend, false, ptr("s1"), true)
	s.Error(err)
	s.Zero(s.sps.Active())

	s.backend.fail = nil
	sp := s.set(ptr("s1"), true)
	s.backend.fail = errors.New("disk on fire")
	s.Error(s.sps.Release(s.ctx, s.backend, false, sp))
	s.Equal(1, s.sps.Active())
}

func (s *SavepointSuite) TestSQLSavepoints() {
	s.NoError(s.sps.SetSQL(s.ctx, s.backend, false, "S1"))
	// SQL savepoints do not nest, whatever the name
	s.assertState(xdbc.StateSavepointNesting, s.sps.SetSQL(s.ctx, s.backend, false, "S1"))
	s.assertState(xdbc.StateSavepointNesting, s.sps.SetSQL(s.ctx, s.backend, false, "S2"))

	s.NoError(s.sps.RollbackToSQL(s.ctx, s.backend, false, "S1"))
	s.NoError(s.sps.ReleaseSQL(s.ctx, s.backend, false, "S1"))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.ReleaseSQL(s.ctx, s.backend, false, "S1"))
	s.assertState(xdbc.StateSavepointInvalid, s.sps.RollbackToSQL(s.ctx, s.backend, false, "NOPE"))

	s.assertState(xdbc.StateReservedSystemPrefix, s.sps.SetSQL(s.ctx, s.backend, false, "SYSX"))

	// a connection-level savepoint also blocks SQL ones
	s.set(nil, false)
	s.assertState(xdbc.StateSavepointNesting, s.sps.SetSQL(s.ctx, s.backend, false, "S3"))

	s.Equal([]string{"SAVEPOINT S1", "ROLLBACK TO S1", "RELEASE S1", "SAVEPOINT i.SAVEPT1"}, s.backend.calls)
}

func TestSavepointSuite(t *testing.T) {
	suite.Run(t, new(SavepointSuite))
}

func TestConnectionSavepoints(t *testing.T) {
	ctx := context.Background()
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	db, cnxn := openConnection(t, alloc, discard{}, true)
	defer checkedClose(t, db)
	defer checkedClose(t, cnxn)

	sps := cnxn.(xdbc.ConnectionSavepoints)
	opts := cnxn.(xdbc.GetSetOptions)

	_, err := sps.SetSavepoint(ctx)
	assert.Equal(t, xdbc.StateAutocommitSavepoint, xdbc.SQLStateOf(err))

	require.NoError(t, opts.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))
	sp1, err := sps.SetSavepoint(ctx)
	require.NoError(t, err)
	id, err := sp1.ID()
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	// commit ends the transaction; the mock commit fails, so roll back
	// through the autocommit toggle instead
	require.NoError(t, opts.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueEnabled))
	require.NoError(t, opts.SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))
	err = sps.ReleaseSavepoint(ctx, sp1)
	assert.Equal(t, xdbc.StateSavepointInvalid, xdbc.SQLStateOf(err))

	// ids keep counting across transactions
	sp2, err := sps.SetNamedSavepoint(ctx, nil)
	assert.Equal(t, xdbc.StateNullSavepointName, xdbc.SQLStateOf(err))
	assert.Nil(t, sp2)
	sp2, err = sps.SetSavepoint(ctx)
	require.NoError(t, err)
	id, err = sp2.ID()
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	require.NoError(t, sps.RollbackToSavepoint(ctx, sp2))
	require.NoError(t, sps.ReleaseSavepoint(ctx, sp2))

	// a savepoint from a second connection is rejected
	cnxn2, err := db.Open(ctx)
	require.NoError(t, err)
	defer checkedClose(t, cnxn2)
	require.NoError(t, cnxn2.(xdbc.GetSetOptions).SetOption(xdbc.OptionKeyAutoCommit, xdbc.OptionValueDisabled))
	foreign, err := cnxn2.(xdbc.ConnectionSavepoints).SetSavepoint(ctx)
	require.NoError(t, err)
	err = sps.RollbackToSavepoint(ctx, foreign)
	assert.Equal(t, xdbc.StateSavepointOtherCnxn, xdbc.SQLStateOf(err))
}
