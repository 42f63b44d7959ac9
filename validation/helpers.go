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
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/resultset"
	"github.com/stretchr/testify/assert"
)

// CheckedClose closes c and fails t if that fails.
func CheckedClose(t assert.TestingT, c io.Closer) {
	assert.NoError(t, c.Close())
}

// AssertSQLState asserts that err is an xdbc.Error carrying the
// SQLSTATE want.
func AssertSQLState(t assert.TestingT, want string, err error, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if err == nil {
		return assert.Fail(t, "expected SQLSTATE "+want+" but there was no error", msgAndArgs...)
	}
	var xerr xdbc.Error
	if !errors.As(err, &xerr) {
		return assert.Fail(t, "expected SQLSTATE "+want+", got a non-xdbc error: "+err.Error(), msgAndArgs...)
	}
	if got := xerr.State(); got != want {
		return assert.Fail(t, "expected SQLSTATE "+want+", got "+got+": "+err.Error(), msgAndArgs...)
	}
	return true
}

// SampleRecord returns three rows of (ints BIGINT, strings VARCHAR)
// with a NULL in each column.
func SampleRecord(mem memory.Allocator) arrow.Record {
	rec, _, err := array.RecordFromJSON(mem, arrow.NewSchema(
		[]arrow.Field{
			{Name: "INTS", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
			{Name: "STRINGS", Type: arrow.BinaryTypes.String, Nullable: true},
		}, nil), strings.NewReader(`[
			{"INTS": 42, "STRINGS": "foo"},
			{"INTS": -42, "STRINGS": null},
			{"INTS": null, "STRINGS": ""}
		]`))
	if err != nil {
		panic(err)
	}
	return rec
}

// Exec runs a statement that returns no rows on a fresh statement.
func Exec(ctx context.Context, cnxn xdbc.Connection, query string) (n int64, err error) {
	stmt, err := cnxn.NewStatement()
	if err != nil {
		return -1, err
	}
	defer func() {
		err = errors.Join(err, stmt.Close())
	}()
	if err = stmt.SetSqlQuery(query); err != nil {
		return -1, err
	}
	return stmt.ExecuteUpdate(ctx)
}

// Query runs query and returns a cursor over its result. The statement
// is closed once the cursor is.
func Query(ctx context.Context, cnxn xdbc.Connection, query string) (*resultset.Cursor, error) {
	stmt, err := cnxn.NewStatement()
	if err != nil {
		return nil, err
	}
	if err := stmt.SetSqlQuery(query); err != nil {
		return nil, errors.Join(err, stmt.Close())
	}
	rdr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		return nil, errors.Join(err, stmt.Close())
	}
	cur := resultset.New(rdr)
	cur.OnClose(func() { stmt.Close() })
	return cur, nil
}

// QueryRecord runs query and returns its single record.
func QueryRecord(ctx context.Context, cnxn xdbc.Connection, query string) (rec arrow.Record, err error) {
	stmt, err := cnxn.NewStatement()
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, stmt.Close())
	}()
	if err = stmt.SetSqlQuery(query); err != nil {
		return nil, err
	}
	rdr, _, err := stmt.ExecuteQuery(ctx)
	if err != nil {
		return nil, err
	}
	defer rdr.Release()
	if !rdr.Next() {
		if err := rdr.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: no result", query)
	}
	rec = rdr.Record()
	rec.Retain()
	return rec, nil
}

// SetAutocommit toggles autocommit on a connection that supports
// options after initialization.
func SetAutocommit(cnxn xdbc.Connection, on bool) error {
	opts, ok := cnxn.(xdbc.PostInitOptions)
	if !ok {
		return xdbc.Error{Code: xdbc.StatusNotImplemented, Msg: "connection does not accept options"}
	}
	v := xdbc.OptionValueDisabled
	if on {
		v = xdbc.OptionValueEnabled
	}
	return opts.SetOption(xdbc.OptionKeyAutoCommit, v)
}

func jsonReader(s string) io.Reader { return strings.NewReader(s) }
