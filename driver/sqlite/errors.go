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
	"errors"
	"strings"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"google.golang.org/protobuf/types/known/wrapperspb"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrorDetailResultCode names the error detail carrying the SQLite
// extended result code behind a translated error.
const ErrorDetailResultCode = "xdbc.sqlite.result_code"

// resultCoder is implemented by *sqlite.Error.
type resultCoder interface {
	error
	Code() int
}

// stateOf maps a SQLite result code and message to the SQLSTATE Derby
// raises for the same condition.
func stateOf(code int, msg string) string {
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return xdbc.StateUniqueViolation
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return xdbc.StateForeignKeyViolated
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return xdbc.StateNotNullViolated
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return xdbc.StateCheckViolated
	}

	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return xdbc.StateLockTimeout
	case sqlite3.SQLITE_CONSTRAINT:
		return xdbc.StateIntegrity
	case sqlite3.SQLITE_TOOBIG:
		return xdbc.StateStringTruncation
	case sqlite3.SQLITE_MISMATCH:
		return xdbc.StateTypeMismatch
	case sqlite3.SQLITE_RANGE:
		return xdbc.StateInvalidParamIndex
	case sqlite3.SQLITE_ERROR:
		switch {
		case strings.Contains(msg, "syntax error"), strings.Contains(msg, "incomplete input"),
			strings.Contains(msg, "unrecognized token"):
			return xdbc.StateSyntaxError
		case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such view"):
			return xdbc.StateTableNotFound
		case strings.Contains(msg, "no such column"):
			return xdbc.StateColumnNotFound
		case strings.Contains(msg, "unknown database"), strings.Contains(msg, "no such database"):
			return xdbc.StateSchemaNotFound
		case strings.Contains(msg, "already exists"):
			return xdbc.StateObjectExists
		}
	}
	return ""
}

// translate converts an error returned by database/sql into an
// xdbc.Error. Errors that already are xdbc.Errors pass through.
func translate(helper *driverbase.ErrorHelper, err error) error {
	if err == nil {
		return nil
	}
	var xerr xdbc.Error
	if errors.As(err, &xerr) {
		return xerr
	}

	var rc resultCoder
	if !errors.As(err, &rc) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return helper.Wrap(err, "interrupted")
		}
		return helper.Errorf(xdbc.StatusInternal, "%s", err.Error())
	}

	code := rc.Code()
	state := stateOf(code, rc.Error())
	status := xdbc.StatusInternal
	if state != "" {
		status = xdbc.StatusFor(state)
	}
	e := xdbc.NewSQLError(status, state, "[%s] %s", helper.DriverName, rc.Error())
	e.VendorCode = int32(code)
	e.Details = []xdbc.ErrorDetail{
		&xdbc.ProtobufErrorDetail{Name: ErrorDetailResultCode, Message: wrapperspb.Int32(int32(code))},
	}
	return e
}
