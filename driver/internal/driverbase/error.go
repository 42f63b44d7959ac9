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
	"errors"
	"fmt"

	"github.com/apache/derby-conformance/go/xdbc"
)

// ErrorHelper helps format errors for XDBC drivers.
type ErrorHelper struct {
	DriverName string
}

func (helper *ErrorHelper) Errorf(code xdbc.Status, message string, format ...interface{}) error {
	msg := fmt.Sprintf(message, format...)
	return xdbc.Error{
		Code: code,
		Msg:  fmt.Sprintf("[%s] %s", helper.DriverName, msg),
	}
}

// SQLErrorf is Errorf for errors carrying a SQLSTATE.
func (helper *ErrorHelper) SQLErrorf(code xdbc.Status, state string, message string, format ...interface{}) error {
	err := xdbc.NewSQLError(code, state, message, format...)
	err.Msg = fmt.Sprintf("[%s] %s", helper.DriverName, err.Msg)
	return err
}

// StateErrorf is SQLErrorf with the status derived from the SQLSTATE.
func (helper *ErrorHelper) StateErrorf(state string, message string, format ...interface{}) error {
	return helper.SQLErrorf(xdbc.StatusFor(state), state, message, format...)
}

// Wrap converts err to an xdbc.Error tagged with the driver name. Errors
// that already are xdbc.Errors keep their status and SQLSTATE; context
// errors map to cancelled and timeout.
func (helper *ErrorHelper) Wrap(err error, message string, format ...interface{}) error {
	if err == nil {
		return nil
	}
	prefix := fmt.Sprintf(message, format...)

	var xerr xdbc.Error
	if errors.As(err, &xerr) {
		xerr.Msg = fmt.Sprintf("%s: %s", prefix, xerr.Msg)
		return xerr
	}

	code := xdbc.StatusInternal
	switch {
	case errors.Is(err, context.Canceled):
		code = xdbc.StatusCancelled
	case errors.Is(err, context.DeadlineExceeded):
		code = xdbc.StatusTimeout
	}
	return helper.Errorf(code, "%s: %s", prefix, err.Error())
}
