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


package sqltypes

// Getter is a typed accessor on a result cursor (getInt, getString ...).
type Getter int

//go:generate go run golang.org/x/tools/cmd/stringer -type Getter -linecomment

const (
	GetByte            Getter = iota // getByte
	GetShort                         // getShort
	GetInt                           // getInt
	GetLong                          // getLong
	GetFloat                         // getFloat
	GetDouble                        // getDouble
	GetBigDecimal                    // getBigDecimal
	GetBoolean                       // getBoolean
	GetString                        // getString
	GetBytes                         // getBytes
	GetDate                          // getDate
	GetTime                          // getTime
	GetTimestamp                     // getTimestamp
	GetAsciiStream                   // getAsciiStream
	GetCharacterStream               // getCharacterStream
	GetBinaryStream                  // getBinaryStream
	GetClob                          // getClob
	GetBlob                          // getBlob
	GetUnicodeStream                 // getUnicodeStream

	numGetters = int(GetUnicodeStream) + 1
)

// Setter is a typed parameter setter (setInt, setString ...).
type Setter int

//go:generate go run golang.org/x/tools/cmd/stringer -type Setter -linecomment

const (
	SetByte            Setter = iota // setByte
	SetShort                         // setShort
	SetInt                           // setInt
	SetLong                          // setLong
	SetFloat                         // setFloat
	SetDouble                        // setDouble
	SetBigDecimal                    // setBigDecimal
	SetBoolean                       // setBoolean
	SetString                        // setString
	SetBytes                         // setBytes
	SetDate                          // setDate
	SetTime                          // setTime
	SetTimestamp                     // setTimestamp
	SetAsciiStream                   // setAsciiStream
	SetCharacterStream               // setCharacterStream
	SetBinaryStream                  // setBinaryStream
	SetClob                          // setClob
	SetBlob                          // setBlob
	SetUnicodeStream                 // setUnicodeStream
	SetNull                          // setNull
	SetObject                        // setObject

	numSetters = int(SetObject) + 1
)

// ObjectKind is the class of the argument passed to setObject.
type ObjectKind int

//go:generate go run golang.org/x/tools/cmd/stringer -type ObjectKind -linecomment

const (
	ObjString     ObjectKind = iota // String
	ObjBigDecimal                   // BigDecimal
	ObjBoolean                      // Boolean
	ObjInteger                      // Integer
	ObjLong                         // Long
	ObjFloat                        // Float
	ObjDouble                       // Double
	ObjBytes                        // byte[]
	ObjDate                         // Date
	ObjTime                         // Time
	ObjTimestamp                    // Timestamp
	ObjBlob                         // Blob
	ObjClob                         // Clob
	ObjByte                         // Byte
	ObjShort                        // Short
	ObjBigInteger                   // BigInteger
	ObjUtilDate                     // util.Date
	ObjCalendar                     // Calendar

	numObjectKinds = int(ObjCalendar) + 1
)

// AllGetters, AllSetters and AllObjectKinds list the enums in matrix
// row order. AllSetters excludes SetNull and SetObject which are not
// rows of the setter matrix.
var (
	AllGetters     = enumerate[Getter](numGetters)
	AllSetters     = enumerate[Setter](int(SetUnicodeStream) + 1)
	AllObjectKinds = enumerate[ObjectKind](numObjectKinds)
)

func enumerate[T ~int](n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = T(i)
	}
	return out
}

type typeSet [numSQLTypes]bool

func setOf(ts ...SQLType) (s typeSet) {
	for _, t := range ts {
		s[t] = true
	}
	return
}

func rangeOf(from, to SQLType) []SQLType {
	out := make([]SQLType, 0, to-from+1)
	for t := from; t <= to; t++ {
		out = append(out, t)
	}
	return out
}

var (
	numericAndChar = setOf(rangeOf(TinyInt, LongVarchar)...)
	binaries       = setOf(Binary, Varbinary, LongVarbinary)
	chars          = []SQLType{Char, Varchar, LongVarchar}
)

// getterMatrix is table B-6 of the JDBC specification as Derby
// implements it: which getter may be used on which column type.
var getterMatrix = [numGetters]typeSet{
	GetByte:            numericAndChar,
	GetShort:           numericAndChar,
	GetInt:             numericAndChar,
	GetLong:            numericAndChar,
	GetFloat:           numericAndChar,
	GetDouble:          numericAndChar,
	GetBigDecimal:      numericAndChar,
	GetBoolean:         numericAndChar,
	GetString:          setOf(rangeOf(TinyInt, Timestamp)...),
	GetBytes:           binaries,
	GetDate:            setOf(append(chars, Date, Timestamp)...),
	GetTime:            setOf(append(chars, Time, Timestamp)...),
	GetTimestamp:       setOf(append(chars, Date, Time, Timestamp)...),
	GetAsciiStream:     setOf(rangeOf(Char, LongVarbinary)...),
	GetCharacterStream: setOf(rangeOf(Char, LongVarbinary)...),
	GetBinaryStream:    binaries,
	GetClob:            setOf(Clob),
	GetBlob:            setOf(Blob),
	GetUnicodeStream:   {},
}

// setterMatrix is Derby's variant of table B-2: which setter may target
// which column type.
var setterMatrix = [numSetters]typeSet{
	SetByte:            numericAndChar,
	SetShort:           numericAndChar,
	SetInt:             numericAndChar,
	SetLong:            numericAndChar,
	SetFloat:           numericAndChar,
	SetDouble:          numericAndChar,
	SetBigDecimal:      numericAndChar,
	SetBoolean:         numericAndChar,
	SetString:          setOf(append(rangeOf(TinyInt, LongVarchar), Date, Time, Timestamp)...),
	SetBytes:           binaries,
	SetDate:            setOf(append(chars, Date, Timestamp)...),
	SetTime:            setOf(append(chars, Time)...),
	SetTimestamp:       setOf(append(chars, Date, Time, Timestamp)...),
	SetAsciiStream:     setOf(append(chars, Clob)...),
	SetCharacterStream: setOf(append(chars, Clob)...),
	SetBinaryStream:    setOf(Binary, Varbinary, LongVarbinary, Blob),
	SetClob:            setOf(Clob),
	SetBlob:            setOf(Blob),
	SetUnicodeStream:   {},
	SetNull:            setOf(AllTypes...),
}

// objectMatrix is table B-5: which setObject argument class may target
// which column type.
var objectMatrix = [numObjectKinds]typeSet{
	ObjString:     setOf(append(rangeOf(TinyInt, Varchar), LongVarbinary, Date, Time, Timestamp)...),
	ObjBigDecimal: numericAndChar,
	ObjBoolean:    numericAndChar,
	ObjInteger:    numericAndChar,
	ObjLong:       numericAndChar,
	ObjFloat:      numericAndChar,
	ObjDouble:     numericAndChar,
	ObjBytes:      binaries,
	ObjDate:       setOf(append(chars, Date, Timestamp)...),
	ObjTime:       setOf(append(chars, Time)...),
	ObjTimestamp:  setOf(append(chars, Date, Time, Timestamp)...),
	ObjBlob:       setOf(Blob),
	ObjClob:       setOf(Clob),
	ObjByte:       numericAndChar,
	ObjShort:      numericAndChar,
	ObjBigInteger: setOf(BigInt, Char, Varchar, LongVarchar),
	ObjUtilDate:   setOf(append(chars, Date, Time, Timestamp)...),
	ObjCalendar:   setOf(append(chars, Date, Time, Timestamp)...),
}

// GetterAllowed reports whether g may read a column of type t.
func GetterAllowed(g Getter, t SQLType) bool {
	return getterMatrix[g][t]
}

// SetterAllowed reports whether s may write a column of type t. For
// SetObject use ObjectAllowed.
func SetterAllowed(s Setter, t SQLType) bool {
	return setterMatrix[s][t]
}

// ObjectAllowed reports whether setObject with an argument of kind k
// may write a column of type t.
func ObjectAllowed(k ObjectKind, t SQLType) bool {
	return objectMatrix[k][t]
}

// ObjectClass is table B-3: the class getObject returns for a column.
func ObjectClass(t SQLType) ObjectKind {
	switch t {
	case TinyInt, SmallInt, Integer:
		return ObjInteger
	case BigInt:
		return ObjLong
	case Real:
		return ObjFloat
	case Float, Double:
		return ObjDouble
	case Decimal, Numeric:
		return ObjBigDecimal
	case Bit, Boolean:
		return ObjBoolean
	case Char, Varchar, LongVarchar:
		return ObjString
	case Binary, Varbinary, LongVarbinary:
		return ObjBytes
	case Date:
		return ObjDate
	case Time:
		return ObjTime
	case Timestamp:
		return ObjTimestamp
	case Clob:
		return ObjClob
	default:
		return ObjBlob
	}
}

// ParseSetter returns the Setter whose String is name.
func ParseSetter(name string) (Setter, bool) {
	for i := 0; i < numSetters; i++ {
		if Setter(i).String() == name {
			return Setter(i), true
		}
	}
	return 0, false
}

// ParseObjectKind returns the ObjectKind whose String is name.
func ParseObjectKind(name string) (ObjectKind, bool) {
	for i := 0; i < numObjectKinds; i++ {
		if ObjectKind(i).String() == name {
			return ObjectKind(i), true
		}
	}
	return 0, false
}
