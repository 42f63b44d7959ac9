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
	"testing"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"github.com/stretchr/testify/require"
)

func TestDriverInfo(t *testing.T) {
	driverInfo := driverbase.DefaultDriverInfo("test")

	require.Equal(t, "test", driverInfo.GetName())

	expectedDefaultInfoCodes := []xdbc.InfoCode{
		xdbc.InfoVendorName,
		xdbc.InfoVendorVersion,
		xdbc.InfoVendorArrowVersion,
		xdbc.InfoDriverName,
		xdbc.InfoDriverVersion,
		xdbc.InfoDriverArrowVersion,
		xdbc.InfoDriverAPIVersion,
	}
	require.Equal(t, expectedDefaultInfoCodes, driverInfo.InfoSupportedCodes())

	vendorName, ok := driverInfo.GetInfoForInfoCode(xdbc.InfoVendorName)
	require.True(t, ok)
	require.Equal(t, "test", vendorName)

	driverName, ok := driverInfo.GetInfoForInfoCode(xdbc.InfoDriverName)
	require.True(t, ok)
	require.Equal(t, "XDBC test Driver - Go", driverName)

	require.NoError(t, driverInfo.RegisterInfoCode(xdbc.InfoDriverVersion, "string_value"))

	err := driverInfo.RegisterInfoCode(xdbc.InfoDriverVersion, 123)
	require.Error(t, err)
	require.Equal(t, "DriverVersion: info_value 123 has unexpected type int", err.Error())

	// savepoint support is a standard code and must be a bool
	require.Error(t, driverInfo.RegisterInfoCode(xdbc.InfoDriverSavepoints, "yes"))
	require.NoError(t, driverInfo.RegisterInfoCode(xdbc.InfoDriverSavepoints, true))

	// vendor codes are not type checked
	require.NoError(t, driverInfo.RegisterInfoCode(xdbc.InfoCode(20_001), "string_value"))
	require.NoError(t, driverInfo.RegisterInfoCode(xdbc.InfoCode(20_001), 123))
	require.Contains(t, driverInfo.InfoSupportedCodes(), xdbc.InfoCode(20_001))

	arrowVersion, ok := driverInfo.GetInfoForInfoCode(xdbc.InfoDriverArrowVersion)
	require.True(t, ok)
	require.IsType(t, "", arrowVersion)

	_, ok = driverInfo.GetInfoForInfoCode(xdbc.InfoCode(20_002))
	require.False(t, ok)
}
