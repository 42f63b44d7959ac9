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

package stmtpool

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
)

// LogicalStatement is the handle Prepare returns. It forwards to a
// pooled physical statement until it is closed. Closing it closes its
// open results and hands the physical statement back to the pool.
type LogicalStatement struct {
	pool  *Pool
	query string

	mu                sync.Mutex
	phys              xdbc.Statement
	closeOnCompletion bool
	results           map[*result]struct{}
}

var (
	_ xdbc.Statement                  = (*LogicalStatement)(nil)
	_ xdbc.StatementCloseOnCompletion = (*LogicalStatement)(nil)
)

func newLogical(p *Pool, query string, phys xdbc.Statement) *LogicalStatement {
	return &LogicalStatement{
		pool:    p,
		query:   query,
		phys:    phys,
		results: map[*result]struct{}{},
	}
}

func closedErr() error {
	return xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateStatementClosed,
		"Statement Closed")
}

func (s *LogicalStatement) physical() (xdbc.Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phys == nil {
		return nil, closedErr()
	}
	return s.phys, nil
}

// Query returns the SQL text the statement was prepared for.
func (s *LogicalStatement) Query() string { return s.query }

// Close closes the results of the statement and returns the physical
// statement to the pool. Closing twice is a no-op.
func (s *LogicalStatement) Close() error {
	s.mu.Lock()
	phys := s.phys
	if phys == nil {
		s.mu.Unlock()
		return nil
	}
	s.phys = nil
	open := s.results
	s.results = nil
	s.mu.Unlock()

	for r := range open {
		r.invalidate()
	}
	return s.pool.checkIn(context.Background(), s.query, phys)
}

func (s *LogicalStatement) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phys == nil
}

func (s *LogicalStatement) CloseOnCompletion() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phys == nil {
		return closedErr()
	}
	s.closeOnCompletion = true
	return nil
}

func (s *LogicalStatement) IsCloseOnCompletion() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phys == nil {
		return false, closedErr()
	}
	return s.closeOnCompletion, nil
}

// SetOption handles close-on-completion itself, since the pooled
// statement outlives the logical one, and forwards everything else.
func (s *LogicalStatement) SetOption(key, val string) error {
	phys, err := s.physical()
	if err != nil {
		return err
	}
	if key == xdbc.OptionKeyCloseOnCompletion {
		on, err := strconv.ParseBool(val)
		if err != nil {
			return xdbc.Error{Code: xdbc.StatusInvalidArgument, Msg: "invalid value for " + key + ": " + val}
		}
		s.mu.Lock()
		s.closeOnCompletion = on
		s.mu.Unlock()
		return nil
	}
	return phys.SetOption(key, val)
}

// SetSqlQuery is not allowed: the text is what the pool keys on.
func (s *LogicalStatement) SetSqlQuery(string) error {
	if _, err := s.physical(); err != nil {
		return err
	}
	return xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateFeatureNotSupported,
		"the SQL text of a pooled statement cannot be changed")
}

// Prepare is a no-op; the physical statement is already prepared.
func (s *LogicalStatement) Prepare(context.Context) error {
	_, err := s.physical()
	return err
}

func (s *LogicalStatement) Bind(ctx context.Context, values arrow.Record) error {
	phys, err := s.physical()
	if err != nil {
		return err
	}
	return phys.Bind(ctx, values)
}

func (s *LogicalStatement) BindStream(ctx context.Context, stream array.RecordReader) error {
	phys, err := s.physical()
	if err != nil {
		return err
	}
	return phys.BindStream(ctx, stream)
}

func (s *LogicalStatement) GetParameterSchema() (*arrow.Schema, error) {
	phys, err := s.physical()
	if err != nil {
		return nil, err
	}
	return phys.GetParameterSchema()
}

func (s *LogicalStatement) ExecuteUpdate(ctx context.Context) (int64, error) {
	phys, err := s.physical()
	if err != nil {
		return -1, err
	}
	return phys.ExecuteUpdate(ctx)
}

// ExecuteSchema describes the result without running the query, when
// the physical statement supports it.
func (s *LogicalStatement) ExecuteSchema(ctx context.Context) (*arrow.Schema, error) {
	phys, err := s.physical()
	if err != nil {
		return nil, err
	}
	es, ok := phys.(xdbc.StatementExecuteSchema)
	if !ok {
		return nil, xdbc.NewSQLError(xdbc.StatusNotImplemented, xdbc.StateFeatureNotSupported,
			"feature not implemented: ExecuteSchema")
	}
	return es.ExecuteSchema(ctx)
}

// ExecuteQuery runs the query. The result stops delivering records once
// the logical statement is closed, failing with XCL16.
func (s *LogicalStatement) ExecuteQuery(ctx context.Context) (array.RecordReader, int64, error) {
	phys, err := s.physical()
	if err != nil {
		return nil, -1, err
	}
	rdr, n, err := phys.ExecuteQuery(ctx)
	if err != nil {
		return nil, n, err
	}
	r := &result{RecordReader: rdr, owner: s}
	r.refs.Store(1)

	s.mu.Lock()
	if s.results == nil {
		s.mu.Unlock()
		rdr.Release()
		return nil, -1, closedErr()
	}
	s.results[r] = struct{}{}
	s.mu.Unlock()
	return r, n, nil
}

// done is called when a result is released.
func (s *LogicalStatement) done(r *result) {
	s.mu.Lock()
	if s.results == nil {
		s.mu.Unlock()
		return
	}
	delete(s.results, r)
	shouldClose := len(s.results) == 0 && s.closeOnCompletion
	s.mu.Unlock()

	if shouldClose {
		if err := s.Close(); err != nil {
			s.pool.logger.Warn("close on completion failed", "query", s.query, "error", err)
		}
	}
}

type result struct {
	array.RecordReader
	owner *LogicalStatement
	refs  atomic.Int64

	mu     sync.Mutex
	closed bool
	err    error
}

func (r *result) invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *result) Next() bool {
	r.mu.Lock()
	if r.closed {
		r.err = xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateCursorClosed,
			"ResultSet not open. Operation 'next' not permitted. Verify that autocommit is off.")
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()
	return r.RecordReader.Next()
}

func (r *result) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.RecordReader.Err()
}

func (r *result) Retain() {
	r.refs.Add(1)
	r.RecordReader.Retain()
}

func (r *result) Release() {
	if r.refs.Add(-1) == 0 {
		r.RecordReader.Release()
		r.owner.done(r)
		return
	}
	r.RecordReader.Release()
}
