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

// Package stmtwrap gives the JDBC 4.1 statement methods a single entry
// point across the statement implementations of this module: driver
// statements, database/sql statements from sqldriver and pooled logical
// statements from stmtpool.
package stmtwrap

import (
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/sqldriver"
	"github.com/apache/derby-conformance/go/xdbc/stmtpool"
)

//go:generate go run golang.org/x/tools/cmd/stringer -type Kind -linecomment

// Kind names the implementation behind a Statement41.
type Kind int

const (
	KindDriver  Kind = iota // driver
	KindSQL                 // database/sql
	KindLogical             // logical
)

// Statement41 forwards closeOnCompletion, isCloseOnCompletion and
// isClosed to the wrapped statement.
type Statement41 struct {
	kind    Kind
	driver  xdbc.StatementCloseOnCompletion
	sql     *sqldriver.Stmt
	logical *stmtpool.LogicalStatement
}

// Wrap wraps stmt. Values that are none of the supported statement
// kinds fail with SQLSTATE 0A000.
func Wrap(stmt any) (*Statement41, error) {
	switch st := stmt.(type) {
	case *stmtpool.LogicalStatement:
		if st != nil {
			return &Statement41{kind: KindLogical, logical: st}, nil
		}
	case *sqldriver.Stmt:
		if st != nil {
			return &Statement41{kind: KindSQL, sql: st}, nil
		}
	case xdbc.StatementCloseOnCompletion:
		if _, ok := st.(xdbc.Statement); ok {
			return &Statement41{kind: KindDriver, driver: st}, nil
		}
	}
	return nil, xdbc.NewSQLError(xdbc.StatusNotImplemented, xdbc.StateFeatureNotSupported,
		"Unsupported statement type %T", stmt)
}

// Kind reports which implementation is wrapped.
func (w *Statement41) Kind() Kind { return w.kind }

func (w *Statement41) CloseOnCompletion() error {
	switch w.kind {
	case KindLogical:
		return w.logical.CloseOnCompletion()
	case KindSQL:
		return w.sql.CloseOnCompletion()
	default:
		return w.driver.CloseOnCompletion()
	}
}

func (w *Statement41) IsCloseOnCompletion() (bool, error) {
	switch w.kind {
	case KindLogical:
		return w.logical.IsCloseOnCompletion()
	case KindSQL:
		return w.sql.IsCloseOnCompletion()
	default:
		return w.driver.IsCloseOnCompletion()
	}
}

func (w *Statement41) IsClosed() bool {
	switch w.kind {
	case KindLogical:
		return w.logical.IsClosed()
	case KindSQL:
		return w.sql.IsClosed()
	default:
		return w.driver.IsClosed()
	}
}

// Unwrap returns the wrapped statement.
func (w *Statement41) Unwrap() any {
	switch w.kind {
	case KindLogical:
		return w.logical
	case KindSQL:
		return w.sql
	default:
		return w.driver
	}
}

// Statement returns the xdbc statement doing the work: the statement
// itself, the one behind a database/sql statement, or the logical
// statement.
func (w *Statement41) Statement() xdbc.Statement {
	switch w.kind {
	case KindLogical:
		return w.logical
	case KindSQL:
		return w.sql.Unwrap()
	default:
		return w.driver.(xdbc.Statement)
	}
}
