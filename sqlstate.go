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


package xdbc

import (
	"errors"
	"fmt"
)

// SQLSTATE values raised by drivers and asserted by the conformance
// suites. The X* and 4?X* classes are Derby specific.
const (
	StateFeatureNotSupported = "0A000"
	StateNoConnection        = "08003"

	StateStringTruncation   = "22001"
	StateNumericOutOfRange  = "22003"
	StateTypeMismatch       = "22005"
	StateInvalidDatetime    = "22007"
	StateInvalidCharFormat  = "22018"
	StateIntegrity          = "23000"
	StateUniqueViolation    = "23505"
	StateForeignKeyViolated = "23503"
	StateNotNullViolated    = "23502"
	StateCheckViolated      = "23513"

	StateSavepointInvalid     = "3B001"
	StateSavepointNesting     = "3B002"
	StateSavepointExists      = "3B501"
	StateSavepointOtherCnxn   = "3B502"
	StateLockTimeout          = "40XL1"
	StateDeadlock             = "40001"
	StateSyntaxError          = "42X01"
	StateTableNotFound        = "42X05"
	StateColumnNotFound       = "42X04"
	StateSchemaNotFound       = "42Y07"
	StateClauseRepeated       = "42613"
	StateIdentifierTooLong    = "42622"
	StateReservedSystemPrefix = "42939"
	StateNotAProcedure        = "42962"
	StateUnknownRoutine       = "42Y03"
	StateObjectExists         = "X0Y32"
	StateSchemaExists         = "X0Y68"
	StateSchemaNotEmpty       = "X0Y54"

	StateAutocommitSavepoint = "XJ010"
	StateNullSavepointName   = "XJ011"
	StateStatementClosed     = "XJ012"
	StateSavepointNoID       = "XJ013"
	StateSavepointNoName     = "XJ014"
	StateInvalidColumnIndex  = "XCL14"
	StateInvalidColumnName   = "S0022"
	StateCursorClosed        = "XCL16"
	StateNoCurrentRow        = "24000"
	StateNullTableName       = "XJ103"
	StateLOBClosed           = "XJ215"
	StateLOBPosition         = "XJ070"
	StateStreamLength        = "XJ023"
	StateInvalidParamIndex   = "XCL13"
	StateParamNotSet         = "07000"
)

// NewSQLError builds an Error carrying the given SQLSTATE.
func NewSQLError(code Status, state string, format string, args ...any) Error {
	e := Error{Msg: fmt.Sprintf(format, args...), Code: code}
	copy(e.SqlState[:], state)
	return e
}

// SQLStateOf returns the SQLSTATE of the first Error in err's chain,
// or "" if there is none.
func SQLStateOf(err error) string {
	var e Error
	if errors.As(err, &e) {
		return e.State()
	}
	var pe *Error
	if errors.As(err, &pe) && pe != nil {
		return pe.State()
	}
	return ""
}

// StatusFor returns the Status drivers use for a SQLSTATE class.
func StatusFor(state string) Status {
	if len(state) < 2 {
		return StatusUnknown
	}
	switch state[:2] {
	case "0A":
		return StatusNotImplemented
	case "08":
		return StatusIO
	case "22":
		return StatusInvalidData
	case "23":
		return StatusIntegrity
	case "X0":
		return StatusAlreadyExists
	case "3B", "XJ", "XC", "07":
		return StatusInvalidState
	case "40":
		if state == StateLockTimeout {
			return StatusTimeout
		}
		return StatusInvalidState
	case "42":
		switch state {
		case StateTableNotFound, StateSchemaNotFound, StateColumnNotFound, StateUnknownRoutine:
			return StatusNotFound
		}
		return StatusInvalidArgument
	}
	return StatusUnknown
}
