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


package xdbc_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := xdbc.NewSQLError(xdbc.StatusInvalidState, xdbc.StateSavepointInvalid, "savepoint %q does not exist", "s1")
	assert.Equal(t, `Invalid State: savepoint "s1" does not exist (3B001)`, err.Error())

	plain := xdbc.Error{Msg: "boom", Code: xdbc.StatusInternal}
	assert.Equal(t, "Internal: boom", plain.Error())
	assert.Equal(t, "", plain.State())
}

func TestSQLStateOf(t *testing.T) {
	base := xdbc.NewSQLError(xdbc.StatusInvalidData, xdbc.StateNumericOutOfRange, "overflow")
	assert.Equal(t, "22003", xdbc.SQLStateOf(base))
	assert.Equal(t, "22003", xdbc.SQLStateOf(fmt.Errorf("wrapped: %w", base)))
	assert.Equal(t, "22003", xdbc.SQLStateOf(errors.Join(errors.New("other"), base)))
	assert.Equal(t, "22003", xdbc.SQLStateOf(&base))
	assert.Equal(t, "", xdbc.SQLStateOf(errors.New("plain")))
	assert.Equal(t, "", xdbc.SQLStateOf(nil))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		state string
		want  xdbc.Status
	}{
		{xdbc.StateFeatureNotSupported, xdbc.StatusNotImplemented},
		{xdbc.StateNumericOutOfRange, xdbc.StatusInvalidData},
		{xdbc.StateUniqueViolation, xdbc.StatusIntegrity},
		{xdbc.StateSavepointInvalid, xdbc.StatusInvalidState},
		{xdbc.StateAutocommitSavepoint, xdbc.StatusInvalidState},
		{xdbc.StateLockTimeout, xdbc.StatusTimeout},
		{xdbc.StateTableNotFound, xdbc.StatusNotFound},
		{xdbc.StateSyntaxError, xdbc.StatusInvalidArgument},
		{xdbc.StateObjectExists, xdbc.StatusAlreadyExists},
		{xdbc.StateUnknownRoutine, xdbc.StatusNotFound},
		{"", xdbc.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.want, xdbc.StatusFor(tt.state))
		})
	}
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "Not Implemented", xdbc.StatusNotImplemented.String())
	assert.Equal(t, "Integrity Issue", xdbc.StatusIntegrity.String())
	assert.Equal(t, "Status(99)", xdbc.Status(99).String())
	assert.Equal(t, "DriverName", xdbc.InfoDriverName.String())
	assert.Equal(t, "DriverSavepoints", xdbc.InfoDriverSavepoints.String())
	assert.Equal(t, "InfoCode(7)", xdbc.InfoCode(7).String())
}
