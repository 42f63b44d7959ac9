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

// Package stmtpool caches prepared statements per connection.
//
// Prepare hands out a LogicalStatement that wraps a physical prepared
// xdbc.Statement. Closing the logical statement returns the physical
// one to the pool, keyed by its SQL text, so that the next Prepare of
// the same text skips preparation. The pool is a bounded LRU: physical
// statements pushed out of it are closed, and so is every idle one when
// the pool closes.
package stmtpool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/bluele/gcache"
)

// DefaultSize is the number of idle statements a pool keeps.
const DefaultSize = 40

type entry struct {
	stmt xdbc.Statement
	// set while Prepare takes the entry out of the cache
	taken bool
}

// Pool is a statement cache bound to one connection. Like the
// connection it is meant for serialized use.
type Pool struct {
	cnxn   xdbc.Connection
	logger *slog.Logger

	mu     sync.Mutex
	cache  gcache.Cache
	closed bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger statement evictions are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New returns a pool keeping up to size idle statements prepared on
// cnxn. A size below one selects DefaultSize.
func New(cnxn xdbc.Connection, size int, opts ...Option) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	p := &Pool{
		cnxn:   cnxn,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cache = gcache.New(size).LRU().
		EvictedFunc(func(key, value any) {
			e := value.(*entry)
			if e.taken {
				return
			}
			p.logger.Debug("closing evicted statement", "query", key)
			p.closePhysical(key.(string), e.stmt)
		}).
		PurgeVisitorFunc(func(key, value any) {
			p.closePhysical(key.(string), value.(*entry).stmt)
		}).
		Build()
	return p
}

func (p *Pool) closePhysical(query string, stmt xdbc.Statement) {
	if err := stmt.Close(); err != nil {
		p.logger.Warn("failed to close pooled statement", "query", query, "error", err)
	}
}

// Prepare returns a logical statement for query, reusing an idle
// physical statement when one was prepared for the same text.
func (p *Pool) Prepare(ctx context.Context, query string) (*LogicalStatement, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateNoConnection,
			"No current connection.")
	}
	if v, err := p.cache.GetIFPresent(query); err == nil {
		e := v.(*entry)
		e.taken = true
		p.cache.Remove(query)
		p.mu.Unlock()
		return newLogical(p, query, e.stmt), nil
	}
	p.mu.Unlock()

	stmt, err := p.cnxn.NewStatement()
	if err != nil {
		return nil, err
	}
	if err := stmt.SetSqlQuery(query); err != nil {
		return nil, errors.Join(err, stmt.Close())
	}
	if err := stmt.Prepare(ctx); err != nil {
		return nil, errors.Join(err, stmt.Close())
	}
	return newLogical(p, query, stmt), nil
}

// checkIn takes back the physical statement of a closed logical one.
// It is closed instead when the pool is closed or already holds an idle
// statement for the same text.
func (p *Pool) checkIn(ctx context.Context, query string, stmt xdbc.Statement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.cache.Has(query) {
		return stmt.Close()
	}
	// clear the parameters for the next user
	if err := stmt.Bind(ctx, nil); err != nil {
		p.logger.Debug("statement cannot be reset, closing it", "query", query, "error", err)
		return stmt.Close()
	}
	return p.cache.Set(query, &entry{stmt: stmt})
}

// Len returns the number of idle statements in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len(false)
}

// Stats reports how many Prepare calls were served from the pool and
// how many prepared a new statement.
func (p *Pool) Stats() (hits, misses uint64) {
	return p.cache.HitCount(), p.cache.MissCount()
}

// Close closes every idle statement. Logical statements still in use
// close their physical statement when they are closed. The connection
// stays open.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.cache.Purge()
	return nil
}
