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

package resultset

import (
	"github.com/apache/arrow-go/v18/arrow/array"
)

// SchemaRow, TableRow and ColumnRow are the flattened levels of a
// GetObjects result.
type SchemaRow struct {
	Catalog string
	Name    string
}

type TableRow struct {
	Catalog string
	Schema  string
	Name    string
	Type    string
}

type ColumnRow struct {
	Table         TableRow
	Name          string
	Ordinal       int32
	DataType      int16
	TypeName      string
	ColumnSize    *int32
	DecimalDigits *int16
	Nullable      int16
	Default       *string
	IsNullable    string
	Remarks       string
}

// ConstraintRow is one table constraint. References holds the
// referenced table and columns of a foreign key.
type ConstraintRow struct {
	Table      TableRow
	Name       string
	Type       string
	Columns    []string
	References []ColumnRef
}

type ColumnRef struct {
	Schema, Table, Column string
}

// Objects is a GetObjects result with every level flattened into a
// slice, in the order the driver returned it.
type Objects struct {
	Catalogs []string
	Schemas  []SchemaRow
	Tables   []TableRow
	Columns  []ColumnRow

	Constraints []ConstraintRow
}

// ReadObjects drains and releases rdr, which must have the
// xdbc.GetObjectsSchema shape.
func ReadObjects(rdr array.RecordReader) (*Objects, error) {
	defer rdr.Release()

	out := &Objects{}
	for rdr.Next() {
		rec := rdr.Record()
		catalogs := rec.Column(0).(*array.String)
		schemaLists := rec.Column(1).(*array.List)
		for i := 0; i < int(rec.NumRows()); i++ {
			catalog := catalogs.Value(i)
			out.Catalogs = append(out.Catalogs, catalog)
			if schemaLists.IsNull(i) {
				continue
			}
			out.readSchemas(catalog, schemaLists, i)
		}
	}
	return out, rdr.Err()
}

func (o *Objects) readSchemas(catalog string, lst *array.List, row int) {
	schemas := lst.ListValues().(*array.Struct)
	names := schemas.Field(0).(*array.String)
	tableLists := schemas.Field(1).(*array.List)
	start, end := lst.ValueOffsets(row)
	for i := int(start); i < int(end); i++ {
		sr := SchemaRow{Catalog: catalog, Name: names.Value(i)}
		o.Schemas = append(o.Schemas, sr)
		if tableLists.IsNull(i) {
			continue
		}
		o.readTables(sr, tableLists, i)
	}
}

func (o *Objects) readTables(sr SchemaRow, lst *array.List, row int) {
	tables := lst.ListValues().(*array.Struct)
	names := tables.Field(0).(*array.String)
	types := tables.Field(1).(*array.String)
	columnLists := tables.Field(2).(*array.List)
	constraintLists := tables.Field(3).(*array.List)
	start, end := lst.ValueOffsets(row)
	for i := int(start); i < int(end); i++ {
		tr := TableRow{Catalog: sr.Catalog, Schema: sr.Name, Name: names.Value(i), Type: types.Value(i)}
		o.Tables = append(o.Tables, tr)
		if !constraintLists.IsNull(i) {
			o.readConstraints(tr, constraintLists, i)
		}
		if columnLists.IsNull(i) {
			continue
		}
		o.readColumns(tr, columnLists, i)
	}
}

func (o *Objects) readConstraints(tr TableRow, lst *array.List, row int) {
	cons := lst.ListValues().(*array.Struct)
	var (
		name       = cons.Field(0).(*array.String)
		typ        = cons.Field(1).(*array.String)
		columns    = cons.Field(2).(*array.List)
		columnVals = columns.ListValues().(*array.String)
		usages     = cons.Field(3).(*array.List)
		usageVals  = usages.ListValues().(*array.Struct)
	)
	start, end := lst.ValueOffsets(row)
	for i := int(start); i < int(end); i++ {
		cr := ConstraintRow{Table: tr, Name: name.Value(i), Type: typ.Value(i)}
		if columns.IsValid(i) {
			from, to := columns.ValueOffsets(i)
			for j := int(from); j < int(to); j++ {
				cr.Columns = append(cr.Columns, columnVals.Value(j))
			}
		}
		if usages.IsValid(i) {
			schemas := usageVals.Field(1).(*array.String)
			tables := usageVals.Field(2).(*array.String)
			cols := usageVals.Field(3).(*array.String)
			from, to := usages.ValueOffsets(i)
			for j := int(from); j < int(to); j++ {
				cr.References = append(cr.References, ColumnRef{schemas.Value(j), tables.Value(j), cols.Value(j)})
			}
		}
		o.Constraints = append(o.Constraints, cr)
	}
}

func (o *Objects) readColumns(tr TableRow, lst *array.List, row int) {
	cols := lst.ListValues().(*array.Struct)
	var (
		name       = cols.Field(0).(*array.String)
		ordinal    = cols.Field(1).(*array.Int32)
		remarks    = cols.Field(2).(*array.String)
		dataType   = cols.Field(3).(*array.Int16)
		typeName   = cols.Field(4).(*array.String)
		size       = cols.Field(5).(*array.Int32)
		digits     = cols.Field(6).(*array.Int16)
		nullable   = cols.Field(8).(*array.Int16)
		def        = cols.Field(9).(*array.String)
		isNullable = cols.Field(13).(*array.String)
	)
	start, end := lst.ValueOffsets(row)
	for i := int(start); i < int(end); i++ {
		cr := ColumnRow{
			Table:      tr,
			Name:       name.Value(i),
			Ordinal:    ordinal.Value(i),
			DataType:   dataType.Value(i),
			TypeName:   typeName.Value(i),
			Nullable:   nullable.Value(i),
			IsNullable: isNullable.Value(i),
			Remarks:    remarks.Value(i),
		}
		if size.IsValid(i) {
			v := size.Value(i)
			cr.ColumnSize = &v
		}
		if digits.IsValid(i) {
			v := digits.Value(i)
			cr.DecimalDigits = &v
		}
		if def.IsValid(i) {
			v := def.Value(i)
			cr.Default = &v
		}
		o.Columns = append(o.Columns, cr)
	}
}

// TableNames returns the names of the tables, qualified by schema.
func (o *Objects) TableNames() []string {
	out := make([]string, len(o.Tables))
	for i, t := range o.Tables {
		out[i] = t.Schema + "." + t.Name
	}
	return out
}
