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


package param

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

// Arg is one bound parameter value as the driver sees it.
type Arg struct {
	Setter sqltypes.Setter
	// Object is the argument class when Setter is SetObject.
	Object sqltypes.ObjectKind
	Value  convert.Value
}

// Assign converts the argument for storage into a column declared as
// d and returns the database/sql value to store.
func (a Arg) Assign(d sqltypes.Declared) (any, error) {
	if a.Setter == sqltypes.SetUnicodeStream {
		return nil, xdbc.NewSQLError(xdbc.StatusNotImplemented, xdbc.StateFeatureNotSupported,
			"feature not implemented: setUnicodeStream")
	}
	if !a.Allowed(d.Type) {
		what := a.Setter.String()
		if a.Setter == sqltypes.SetObject {
			what = "setObject(" + a.Object.String() + ")"
		}
		return nil, xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateTypeMismatch,
			"an attempt was made to get a data value of type '%s' from %s", d.Type.TypeName(), what)
	}
	v, err := convert.Coerce(a.Value, d)
	if err != nil {
		return nil, err
	}
	return convert.Storage(v), nil
}

// Allowed reports whether the argument's setter may target a column of
// type t. Nulls passed through setNull or setObject fit any column.
func (a Arg) Allowed(t sqltypes.SQLType) bool {
	switch {
	case a.Setter == sqltypes.SetNull:
		return true
	case a.Setter == sqltypes.SetObject:
		return a.Value.IsNull() || sqltypes.ObjectAllowed(a.Object, t)
	}
	return sqltypes.SetterAllowed(a.Setter, t)
}

// Args decodes row of a bound record. Columns without setter metadata
// (records built by other clients) are treated as setObject with the
// class matching their Arrow type.
func Args(rec arrow.Record, row int) ([]Arg, error) {
	args := make([]Arg, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		v, err := convert.FromArrow(rec.Column(i), row)
		if err != nil {
			return nil, err
		}
		a := Arg{Setter: sqltypes.SetObject, Object: sqltypes.ObjectClass(sqltypes.FromArrowType(f.Type).Type), Value: v}
		if name, ok := f.Metadata.GetValue(xdbc.MetadataKeySetter); ok {
			if s, ok := sqltypes.ParseSetter(name); ok {
				a.Setter = s
			}
		}
		if name, ok := f.Metadata.GetValue(xdbc.MetadataKeyObject); ok {
			if k, ok := sqltypes.ParseObjectKind(name); ok {
				a.Object = k
			}
		}
		if isLOBSetter(a.Setter) || (a.Setter == sqltypes.SetObject && (a.Object == sqltypes.ObjClob || a.Object == sqltypes.ObjBlob)) {
			a.Value = a.Value.AsLOB()
		}
		args[i] = a
	}
	return args, nil
}

func isLOBSetter(s sqltypes.Setter) bool {
	switch s {
	case sqltypes.SetAsciiStream, sqltypes.SetCharacterStream, sqltypes.SetBinaryStream,
		sqltypes.SetClob, sqltypes.SetBlob:
		return true
	}
	return false
}
