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

// Package driverbase implements the parts of an XDBC driver that do not
// depend on the database: option and state bookkeeping, savepoint
// tracking, GetInfo/GetObjects result building, tracing and logging.
// A driver supplies the *Impl interfaces and wraps them with NewDriver,
// NewDatabase and NewConnectionBuilder.
package driverbase

import (
	"context"
	"runtime/debug"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
)

// buildVersions holds the versions read from the binary's build info.
// Both stay empty in tests and development builds.
var buildVersions = func() (v struct{ driver, arrow string }) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if ver := info.Main.Version; ver != "" && ver != "(devel)" {
		v.driver = ver
		for _, s := range info.Settings {
			if s.Key == "vcs.modified" && s.Value == "true" {
				v.driver += "-dev"
			}
		}
	}
	for _, dep := range info.Deps {
		if strings.HasPrefix(dep.Path, "github.com/apache/arrow-go/") {
			v.arrow = dep.Version
			break
		}
	}
	return
}()

// DriverImpl is what a driver implements; the embedded DriverImplBase
// supplies everything but NewDatabase.
type DriverImpl interface {
	xdbc.Driver
	xdbc.DriverWithContext
	Base() *DriverImplBase
}

// Driver is returned by NewDriver.
type Driver interface {
	xdbc.Driver
	xdbc.DriverWithContext
}

// DriverImplBase carries the state shared by every database a driver
// opens.
type DriverImplBase struct {
	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	DriverInfo  *DriverInfo
}

func (base *DriverImplBase) NewDatabase(opts map[string]string) (xdbc.Database, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "NewDatabase")
}

func (base *DriverImplBase) NewDatabaseWithContext(ctx context.Context, opts map[string]string) (xdbc.Database, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "NewDatabaseWithContext")
}

// NewDriverImplBase fills in the build versions of info and returns a
// base whose errors are prefixed with the driver's name. A nil alloc
// means memory.DefaultAllocator.
func NewDriverImplBase(info *DriverInfo, alloc memory.Allocator) DriverImplBase {
	if alloc == nil {
		alloc = memory.DefaultAllocator
	}
	for code, v := range map[xdbc.InfoCode]string{
		xdbc.InfoDriverVersion:      buildVersions.driver,
		xdbc.InfoDriverArrowVersion: buildVersions.arrow,
	} {
		if v == "" {
			continue
		}
		if err := info.RegisterInfoCode(code, v); err != nil {
			panic(err)
		}
	}
	return DriverImplBase{
		Alloc:       alloc,
		ErrorHelper: ErrorHelper{DriverName: info.GetName()},
		DriverInfo:  info,
	}
}

func (base *DriverImplBase) Base() *DriverImplBase {
	return base
}

type driver struct {
	DriverImpl
}

// NewDriver wraps a DriverImpl to create a Driver.
func NewDriver(impl DriverImpl) Driver {
	return &driver{DriverImpl: impl}
}

var _ DriverImpl = (*DriverImplBase)(nil)
