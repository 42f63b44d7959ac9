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

import (
	"fmt"
	"math"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/bluele/gcache"
)

// Declared is a column type as written in a table definition, resolved
// to its SQLType and size attributes.
type Declared struct {
	Type SQLType
	// Length is the maximum length in characters or bytes for the
	// character, binary and LOB types.
	Length int32
	// Precision and Scale apply to DECIMAL and NUMERIC.
	Precision int32
	Scale     int32
	// Text is the declaration the type was parsed from.
	Text string
}

// Of returns the declaration of t with Derby's default attributes.
func Of(t SQLType) Declared {
	d := Declared{Type: t, Text: t.TypeName()}
	switch t {
	case Decimal, Numeric:
		d.Precision, d.Scale = 5, 0
	case Char, Binary:
		d.Length = 1
	case Varchar, Varbinary:
		d.Length = 32672
	case LongVarchar, LongVarbinary:
		d.Length = 32700
	case Clob, Blob:
		d.Length = math.MaxInt32
	}
	return d
}

type declAST struct {
	Head []string `@Ident+`
	Args *declArgs `( "(" @@ ")" )?`
	Tail []string `@Ident*`
}

type declArgs struct {
	Size  int64  `@Int`
	Unit  string `@Ident?`
	Scale *int64 `( "," @Int )?`
}

var declLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var declParser = participle.MustBuild[declAST](
	participle.Lexer(declLexer),
	participle.Elide("Whitespace"),
)

// declCache memoizes ParseDeclaredType; drivers resolve the same few
// declarations for every row batch they build.
var declCache = gcache.New(512).LRU().Build()

// ParseDeclaredType resolves a column type declaration such as
// "DECIMAL(10,5)", "VARCHAR(60) FOR BIT DATA" or "CLOB(1K)". The FOR
// BIT DATA suffix may also precede the length ("CHAR FOR BIT DATA(60)").
func ParseDeclaredType(decl string) (Declared, error) {
	text := strings.TrimSpace(decl)
	key := strings.ToUpper(text)
	var d Declared
	if v, err := declCache.Get(key); err == nil {
		d = v.(Declared)
	} else {
		if d, err = parseDeclared(key); err != nil {
			return Declared{}, err
		}
		_ = declCache.Set(key, d)
	}
	// the cache is shared by every spelling of the declaration
	d.Text = text
	return d, nil
}

func parseDeclared(decl string) (Declared, error) {
	if decl == "" {
		return Declared{}, fmt.Errorf("empty type declaration")
	}
	ast, err := declParser.ParseString("", decl)
	if err != nil {
		return Declared{}, fmt.Errorf("invalid type declaration %q: %w", decl, err)
	}

	words := append(append([]string{}, ast.Head...), ast.Tail...)
	forBitData := false
	if n := len(words); n >= 3 && words[n-3] == "FOR" && words[n-2] == "BIT" && words[n-1] == "DATA" {
		forBitData = true
		words = words[:n-3]
	}
	name := strings.Join(words, " ")

	var t SQLType
	switch name {
	case "SMALLINT":
		t = SmallInt
	case "INT", "INTEGER":
		t = Integer
	case "BIGINT":
		t = BigInt
	case "REAL":
		t = Real
	case "FLOAT":
		t = Double
		if ast.Args != nil && ast.Args.Size <= 23 {
			t = Real
		}
	case "DOUBLE", "DOUBLE PRECISION":
		t = Double
	case "DEC", "DECIMAL":
		t = Decimal
	case "NUMERIC":
		t = Numeric
	case "BOOLEAN":
		t = Boolean
	case "CHAR", "CHARACTER":
		t = Char
	case "VARCHAR", "CHAR VARYING", "CHARACTER VARYING", "TEXT":
		t = Varchar
	case "LONG VARCHAR":
		t = LongVarchar
	case "CLOB", "CHAR LARGE OBJECT", "CHARACTER LARGE OBJECT":
		t = Clob
	case "BLOB", "BINARY LARGE OBJECT":
		t = Blob
	case "DATE":
		t = Date
	case "TIME":
		t = Time
	case "TIMESTAMP":
		t = Timestamp
	default:
		return Declared{}, fmt.Errorf("unknown column type %q", name)
	}

	if forBitData {
		switch t {
		case Char:
			t = Binary
		case Varchar:
			t = Varbinary
		case LongVarchar:
			t = LongVarbinary
		default:
			return Declared{}, fmt.Errorf("FOR BIT DATA is not valid for %s", name)
		}
	}

	d := Of(t)
	if ast.Args == nil {
		return d, nil
	}

	size, err := scaleUnit(ast.Args.Size, ast.Args.Unit)
	if err != nil {
		return Declared{}, err
	}
	switch t {
	case Decimal, Numeric:
		if size < 1 || size > 31 {
			return Declared{}, fmt.Errorf("precision %d out of range for %s", size, name)
		}
		d.Precision = int32(size)
		if ast.Args.Scale != nil {
			if *ast.Args.Scale > size {
				return Declared{}, fmt.Errorf("scale %d exceeds precision %d", *ast.Args.Scale, size)
			}
			d.Scale = int32(*ast.Args.Scale)
		}
	case Char, Binary, Varchar, Varbinary, Clob, Blob:
		if ast.Args.Scale != nil {
			return Declared{}, fmt.Errorf("%s does not take a scale", name)
		}
		if size < 1 || size > math.MaxInt32 {
			return Declared{}, fmt.Errorf("length %d out of range for %s", size, name)
		}
		d.Length = int32(size)
	case Real, Double:
		// FLOAT(p)
	default:
		return Declared{}, fmt.Errorf("%s does not take a length", name)
	}
	return d, nil
}

// scaleUnit applies a K, M or G length multiplier. Scaled lengths
// saturate at math.MaxInt32, the LOB maximum.
func scaleUnit(size int64, unit string) (int64, error) {
	var mult int64
	switch unit {
	case "":
		return size, nil
	case "K":
		mult = 1 << 10
	case "M":
		mult = 1 << 20
	case "G":
		mult = 1 << 30
	default:
		return 0, fmt.Errorf("unknown length unit %q", unit)
	}
	if size > math.MaxInt32/mult {
		return math.MaxInt32, nil
	}
	return size * mult, nil
}

// ColumnSize is the COLUMN_SIZE reported for the declaration.
func (d Declared) ColumnSize() int32 {
	switch d.Type {
	case Decimal, Numeric:
		return d.Precision
	case Char, Varchar, LongVarchar, Binary, Varbinary, LongVarbinary, Clob, Blob:
		return d.Length
	}
	return d.Type.Precision()
}

// DecimalDigits is the DECIMAL_DIGITS value, if the type has one.
func (d Declared) DecimalDigits() (int16, bool) {
	switch {
	case d.Type == Decimal || d.Type == Numeric:
		return int16(d.Scale), true
	case d.Type.IsInteger(), d.Type == Date, d.Type == Time:
		return 0, true
	case d.Type == Timestamp:
		return 9, true
	}
	return 0, false
}

// CharOctetLength is the CHAR_OCTET_LENGTH value, if the type has one.
func (d Declared) CharOctetLength() (int32, bool) {
	switch {
	case d.Type.IsCharacter():
		if d.Length > math.MaxInt32/2 {
			return math.MaxInt32, true
		}
		return d.Length * 2, true
	case d.Type.IsBinary(), d.Type == Clob, d.Type == Blob:
		return d.Length, true
	}
	return 0, false
}

// DDL renders the declaration in Derby syntax.
func (d Declared) DDL() string {
	switch d.Type {
	case Decimal, Numeric:
		return fmt.Sprintf("%s(%d,%d)", d.Type.TypeName(), d.Precision, d.Scale)
	case Char, Varchar:
		return fmt.Sprintf("%s(%d)", d.Type.TypeName(), d.Length)
	case Binary:
		return fmt.Sprintf("CHAR(%d) FOR BIT DATA", d.Length)
	case Varbinary:
		return fmt.Sprintf("VARCHAR(%d) FOR BIT DATA", d.Length)
	case Clob, Blob:
		return fmt.Sprintf("%s(%d)", d.Type.TypeName(), d.Length)
	}
	return d.Type.TypeName()
}
