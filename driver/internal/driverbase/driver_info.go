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
	"fmt"
	"sort"

	"github.com/apache/derby-conformance/go/xdbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	UnknownVersion              = "(unknown or development build)"
	DefaultInfoDriverAPIVersion = xdbc.APIVersion1_1_0
)

var infoValueTypeCodeForInfoCode = map[xdbc.InfoCode]xdbc.InfoValueTypeCode{
	xdbc.InfoVendorName:         xdbc.InfoValueStringType,
	xdbc.InfoVendorVersion:      xdbc.InfoValueStringType,
	xdbc.InfoVendorArrowVersion: xdbc.InfoValueStringType,
	xdbc.InfoDriverName:         xdbc.InfoValueStringType,
	xdbc.InfoDriverVersion:      xdbc.InfoValueStringType,
	xdbc.InfoDriverArrowVersion: xdbc.InfoValueStringType,
	xdbc.InfoDriverAPIVersion:   xdbc.InfoValueInt64Type,
	xdbc.InfoVendorSql:          xdbc.InfoValueBooleanType,
	xdbc.InfoDriverSavepoints:   xdbc.InfoValueBooleanType,

	xdbc.InfoDriverNumericFunctions: xdbc.InfoValueStringType,
	xdbc.InfoDriverStringFunctions:  xdbc.InfoValueStringType,
}

const (
	// namespace prefix
	otelInfoSemConv attribute.Key = driverNamespace + ".info."

	otelSemConvInfoVendorName         attribute.Key = otelInfoSemConv + "vendor.name"
	otelSemConvInfoVendorVersion      attribute.Key = otelInfoSemConv + "vendor.version"
	otelSemConvInfoVendorArrowVersion attribute.Key = otelInfoSemConv + "vendor.arrow.version"
	otelSemConvInfoVendorSql          attribute.Key = otelInfoSemConv + "vendor.sql"
	otelSemConvInfoDriverName         attribute.Key = otelInfoSemConv + "driver.name"
	otelSemConvInfoDriverVersion      attribute.Key = otelInfoSemConv + "driver.version"
	otelSemConvInfoDriverArrowVersion attribute.Key = otelInfoSemConv + "driver.arrow.version"
	otelSemConvInfoDriverAPIVersion   attribute.Key = otelInfoSemConv + "driver.api.version"
	otelSemConvInfoDriverSavepoints   attribute.Key = otelInfoSemConv + "driver.savepoints"
	otelSemConvInfoNumericFunctions   attribute.Key = otelInfoSemConv + "driver.functions.numeric"
	otelSemConvInfoStringFunctions    attribute.Key = otelInfoSemConv + "driver.functions.string"
)

var otelAttrForInfoCode = map[xdbc.InfoCode]attribute.Key{
	xdbc.InfoVendorName:         otelSemConvInfoVendorName,
	xdbc.InfoVendorVersion:      otelSemConvInfoVendorVersion,
	xdbc.InfoVendorArrowVersion: otelSemConvInfoVendorArrowVersion,
	xdbc.InfoDriverName:         otelSemConvInfoDriverName,
	xdbc.InfoDriverVersion:      otelSemConvInfoDriverVersion,
	xdbc.InfoDriverArrowVersion: otelSemConvInfoDriverArrowVersion,
	xdbc.InfoDriverAPIVersion:   otelSemConvInfoDriverAPIVersion,
	xdbc.InfoVendorSql:          otelSemConvInfoVendorSql,
	xdbc.InfoDriverSavepoints:   otelSemConvInfoDriverSavepoints,

	xdbc.InfoDriverNumericFunctions: otelSemConvInfoNumericFunctions,
	xdbc.InfoDriverStringFunctions:  otelSemConvInfoStringFunctions,
}

func DefaultDriverInfo(name string) *DriverInfo {
	return &DriverInfo{
		name: name,
		info: map[xdbc.InfoCode]any{
			xdbc.InfoVendorName:         name,
			xdbc.InfoDriverName:         fmt.Sprintf("XDBC %s Driver - Go", name),
			xdbc.InfoDriverVersion:      UnknownVersion,
			xdbc.InfoDriverArrowVersion: UnknownVersion,
			xdbc.InfoVendorVersion:      UnknownVersion,
			xdbc.InfoVendorArrowVersion: UnknownVersion,
			xdbc.InfoDriverAPIVersion:   DefaultInfoDriverAPIVersion,
		},
	}
}

type DriverInfo struct {
	name string
	info map[xdbc.InfoCode]any
}

func (di *DriverInfo) GetName() string { return di.name }

// InfoSupportedCodes lists every code with a registered value, sorted.
// Drivers register a default for each code they know about at init.
func (di *DriverInfo) InfoSupportedCodes() []xdbc.InfoCode {
	codes := make([]xdbc.InfoCode, 0, len(di.info))
	for code := range di.info {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return codes[i] < codes[j]
	})
	return codes
}

// RegisterInfoCode sets the value reported for code. Values of the
// standard codes are checked against the type GetInfo reports them as.
func (di *DriverInfo) RegisterInfoCode(code xdbc.InfoCode, value any) error {
	infoValueTypeCode, isStandardInfoCode := infoValueTypeCodeForInfoCode[code]
	if !isStandardInfoCode {
		di.info[code] = value
		return nil
	}

	var ok bool
	switch infoValueTypeCode {
	case xdbc.InfoValueStringType:
		_, ok = value.(string)
	case xdbc.InfoValueInt64Type:
		_, ok = value.(int64)
	case xdbc.InfoValueBooleanType:
		_, ok = value.(bool)
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("%s: info_value %v has unexpected type %T", code, value, value)
	}

	di.info[code] = value
	return nil
}

func (di *DriverInfo) GetInfoForInfoCode(code xdbc.InfoCode) (any, bool) {
	val, ok := di.info[code]
	return val, ok
}

func SetOTelDriverInfoAttributes(driverInfo *DriverInfo, span trace.Span) {
	attrs := []attribute.KeyValue{}
	for _, code := range driverInfo.InfoSupportedCodes() {
		attr, ok := otelAttrForInfoCode[code]
		if !ok {
			continue
		}
		switch v, _ := driverInfo.GetInfoForInfoCode(code); v := v.(type) {
		case string:
			attrs = append(attrs, attr.String(v))
		case bool:
			attrs = append(attrs, attr.Bool(v))
		case int64:
			attrs = append(attrs, attr.Int64(v))
		}
	}
	span.SetAttributes(attrs...)
}
