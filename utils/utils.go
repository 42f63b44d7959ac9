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


// Package utils holds Arrow schema helpers shared by the conformance
// suites and the drivers.
package utils

import "github.com/apache/arrow-go/v18/arrow"

// RemoveSchemaMetadata returns schema with the metadata of the schema
// and of every field, nested ones included, dropped. Drivers describe
// column types in field metadata, which catalog shape checks must not
// see.
func RemoveSchemaMetadata(schema *arrow.Schema) *arrow.Schema {
	fields := make([]arrow.Field, schema.NumFields())
	for i, f := range schema.Fields() {
		fields[i] = bareField(f)
	}
	return arrow.NewSchema(fields, nil)
}

// SameShape reports whether two schemas have the same field names,
// types and nullability, ignoring all metadata.
func SameShape(a, b *arrow.Schema) bool {
	return RemoveSchemaMetadata(a).Equal(RemoveSchemaMetadata(b))
}

func bareFields(fields []arrow.Field) []arrow.Field {
	out := make([]arrow.Field, len(fields))
	for i, f := range fields {
		out[i] = bareField(f)
	}
	return out
}

func bareField(f arrow.Field) arrow.Field {
	return arrow.Field{Name: f.Name, Type: bareType(f.Type), Nullable: f.Nullable}
}

func bareType(dt arrow.DataType) arrow.DataType {
	switch t := dt.(type) {
	case *arrow.StructType:
		return arrow.StructOf(bareFields(t.Fields())...)
	case *arrow.ListType:
		return arrow.ListOfField(bareField(t.ElemField()))
	case *arrow.LargeListType:
		return arrow.LargeListOfField(bareField(t.ElemField()))
	case *arrow.FixedSizeListType:
		return arrow.FixedSizeListOfField(t.Len(), bareField(t.ElemField()))
	case *arrow.MapType:
		// MapOf cannot take fields, so custom entry names are lost
		m := arrow.MapOf(bareType(t.KeyType()), bareType(t.ItemType()))
		m.KeysSorted = t.KeysSorted
		return m
	case *arrow.DenseUnionType:
		return arrow.DenseUnionOf(bareFields(t.Fields()), t.TypeCodes())
	case *arrow.SparseUnionType:
		return arrow.SparseUnionOf(bareFields(t.Fields()), t.TypeCodes())
	}
	return dt
}
