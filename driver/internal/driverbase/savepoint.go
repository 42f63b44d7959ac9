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

package driverbase

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/apache/derby-conformance/go/xdbc"
)

// Savepointer is an interface that drivers may implement to support
// savepoints. The driverbase validates every request against the
// connection's transaction state and only passes well-formed operations
// on to the driver. Names passed to the Savepointer are internal names:
// unnamed savepoints are "i.SAVEPT<id>", named ones "e.<name>" and SQL
// savepoints use the identifier as written in the statement.
type Savepointer interface {
	CreateSavepoint(ctx context.Context, internalName string) error
	ReleaseSavepoint(ctx context.Context, internalName string) error
	RollbackToSavepoint(ctx context.Context, internalName string) error
}

const (
	MaxSavepointNameLength = 128

	ConnectionMessageSavepointAutocommit = "Cannot set a savepoint when in auto-commit mode"
	ConnectionMessageSavepointNullName   = "Cannot set savepoint with a null name"
	ConnectionMessageSavepointInvalid    = "Savepoint does not exist or is not active in the current transaction"
)

type savepoint struct {
	owner    *Savepoints
	gen      uint64
	id       int
	name     string
	named    bool
	internal string
	errs     *ErrorHelper
}

func (sp *savepoint) ID() (int, error) {
	if sp.named {
		return 0, sp.errs.StateErrorf(xdbc.StateSavepointNoID, "No ID for named savepoints")
	}
	return sp.id, nil
}

func (sp *savepoint) Name() (string, error) {
	if !sp.named {
		return "", sp.errs.StateErrorf(xdbc.StateSavepointNoName, "No name for un-named savepoints")
	}
	return sp.name, nil
}

func (sp *savepoint) String() string {
	if sp.named {
		return sp.name
	}
	return "#" + strconv.Itoa(sp.id)
}

// Savepoints is the savepoint state of one connection. Every commit or
// rollback, whether requested by the user or performed by the database,
// starts a new transaction generation and discards the active
// savepoints; savepoints of older generations are rejected with 3B001.
type Savepoints struct {
	mu     sync.Mutex
	errs   ErrorHelper
	gen    uint64
	nextID int
	active []*savepoint
}

func NewSavepoints(errs ErrorHelper) *Savepoints {
	return &Savepoints{errs: errs}
}

// EndTransaction starts a new transaction generation.
func (s *Savepoints) EndTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.active = nil
}

// Active returns the number of savepoints active in the transaction.
func (s *Savepoints) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Savepoints) checkName(name string) error {
	if strings.HasPrefix(name, "SYS") {
		return s.errs.StateErrorf(xdbc.StateReservedSystemPrefix, "'%s' is not allowed: names starting with 'SYS' are reserved", name)
	}
	if utf8.RuneCountInString(name) > MaxSavepointNameLength {
		return s.errs.StateErrorf(xdbc.StateIdentifierTooLong, "The name '%s' is too long. The maximum length is '%d'", name, MaxSavepointNameLength)
	}
	return nil
}

func (s *Savepoints) indexOf(internal string) int {
	for i, sp := range s.active {
		if sp.internal == internal {
			return i
		}
	}
	return -1
}

// Set creates a savepoint through the connection API. A nil name makes
// an unnamed savepoint unless named is set, in which case it fails with
// XJ011.
func (s *Savepoints) Set(ctx context.Context, impl Savepointer, autocommit bool, name *string, named bool) (xdbc.Savepoint, error) {
	if autocommit {
		return nil, s.errs.StateErrorf(xdbc.StateAutocommitSavepoint, ConnectionMessageSavepointAutocommit)
	}
	if named && name == nil {
		return nil, s.errs.StateErrorf(xdbc.StateNullSavepointName, ConnectionMessageSavepointNullName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sp := &savepoint{owner: s, gen: s.gen, errs: &s.errs}
	if name != nil {
		if err := s.checkName(*name); err != nil {
			return nil, err
		}
		sp.named, sp.name, sp.internal = true, *name, "e."+*name
	} else {
		s.nextID++
		sp.id = s.nextID
		sp.internal = "i.SAVEPT" + strconv.Itoa(sp.id)
	}
	if s.indexOf(sp.internal) >= 0 {
		return nil, s.errs.StateErrorf(xdbc.StateSavepointExists, "A SAVEPOINT with the passed name already exists in the current transaction")
	}

	if err := impl.CreateSavepoint(ctx, sp.internal); err != nil {
		return nil, err
	}
	s.active = append(s.active, sp)
	return sp, nil
}

// verify resolves a savepoint passed back by the application to its
// position among the active savepoints.
func (s *Savepoints) verify(autocommit bool, v xdbc.Savepoint) (int, error) {
	if autocommit {
		return -1, s.errs.StateErrorf(xdbc.StateAutocommitSavepoint, ConnectionMessageSavepointAutocommit)
	}
	sp, ok := v.(*savepoint)
	if !ok || sp == nil {
		return -1, s.errs.StateErrorf(xdbc.StateSavepointInvalid, ConnectionMessageSavepointInvalid)
	}
	if sp.owner != s {
		return -1, s.errs.StateErrorf(xdbc.StateSavepointOtherCnxn, "Savepoint %s was set on a different connection", sp)
	}
	if sp.gen != s.gen {
		return -1, s.errs.StateErrorf(xdbc.StateSavepointInvalid, "Savepoint %s was set in an earlier transaction", sp)
	}
	idx := -1
	for i, active := range s.active {
		if active == sp {
			idx = i
		}
	}
	if idx < 0 {
		return -1, s.errs.StateErrorf(xdbc.StateSavepointInvalid, "Savepoint %s has been released", sp)
	}
	return idx, nil
}

// Release releases the savepoint and every savepoint set after it.
func (s *Savepoints) Release(ctx context.Context, impl Savepointer, autocommit bool, v xdbc.Savepoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.verify(autocommit, v)
	if err != nil {
		return err
	}
	if err := impl.ReleaseSavepoint(ctx, s.active[idx].internal); err != nil {
		return err
	}
	s.active = s.active[:idx]
	return nil
}

// RollbackTo undoes the work done since the savepoint was set. The
// savepoint stays active; later ones are released.
func (s *Savepoints) RollbackTo(ctx context.Context, impl Savepointer, autocommit bool, v xdbc.Savepoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.verify(autocommit, v)
	if err != nil {
		return err
	}
	if err := impl.RollbackToSavepoint(ctx, s.active[idx].internal); err != nil {
		return err
	}
	s.active = s.active[:idx+1]
	return nil
}

// SetSQL creates a savepoint for a SAVEPOINT statement. SQL savepoints
// cannot be nested inside any other savepoint.
func (s *Savepoints) SetSQL(ctx context.Context, impl Savepointer, autocommit bool, name string) error {
	if autocommit {
		return s.errs.StateErrorf(xdbc.StateAutocommitSavepoint, ConnectionMessageSavepointAutocommit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.active) > 0 {
		return s.errs.StateErrorf(xdbc.StateSavepointNesting, "Maximum savepoint level reached: SQL savepoints cannot be nested")
	}
	if err := s.checkName(name); err != nil {
		return err
	}
	if err := impl.CreateSavepoint(ctx, name); err != nil {
		return err
	}
	s.active = append(s.active, &savepoint{owner: s, gen: s.gen, named: true, name: name, internal: name, errs: &s.errs})
	return nil
}

func (s *Savepoints) lookupSQL(autocommit bool, name string) (int, error) {
	if autocommit {
		return -1, s.errs.StateErrorf(xdbc.StateAutocommitSavepoint, ConnectionMessageSavepointAutocommit)
	}
	idx := s.indexOf(name)
	if idx < 0 {
		return -1, s.errs.StateErrorf(xdbc.StateSavepointInvalid, "SAVEPOINT %s does not exist or is not active in the current transaction", name)
	}
	return idx, nil
}

// ReleaseSQL executes RELEASE [TO] SAVEPOINT name.
func (s *Savepoints) ReleaseSQL(ctx context.Context, impl Savepointer, autocommit bool, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.lookupSQL(autocommit, name)
	if err != nil {
		return err
	}
	if err := impl.ReleaseSavepoint(ctx, name); err != nil {
		return err
	}
	s.active = s.active[:idx]
	return nil
}

// RollbackToSQL executes ROLLBACK [WORK] TO SAVEPOINT name.
func (s *Savepoints) RollbackToSQL(ctx context.Context, impl Savepointer, autocommit bool, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.lookupSQL(autocommit, name)
	if err != nil {
		return err
	}
	if err := impl.RollbackToSavepoint(ctx, name); err != nil {
		return err
	}
	s.active = s.active[:idx+1]
	return nil
}
