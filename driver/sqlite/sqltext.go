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

package sqlite

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// sqlLexer tokenizes statements well enough to find parameter markers,
// rewrite Derby-only syntax and recognize the statements the driver
// executes itself.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"`},
	{Name: "Number", Pattern: `(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_$#@]*`},
	{Name: "Param", Pattern: `\?`},
	{Name: "Punct", Pattern: `[(),.;=<>!|+\-*/%:\[\]{}]`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Other", Pattern: `.`},
})

var tokenTypes = sqlLexer.Symbols()

type tokens []lexer.Token

func tokenize(query string) (tokens, error) {
	lex, err := sqlLexer.LexString("", query)
	if err != nil {
		return nil, err
	}
	toks, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}
	// drop the EOF token
	if n := len(toks); n > 0 && toks[n-1].EOF() {
		toks = toks[:n-1]
	}
	return toks, nil
}

func (t tokens) is(i int, typ string) bool {
	return i >= 0 && i < len(t) && t[i].Type == tokenTypes[typ]
}

func (t tokens) keyword(i int, kw string) bool {
	return t.is(i, "Ident") && strings.EqualFold(t[i].Value, kw)
}

func (t tokens) punct(i int, p string) bool {
	return t.is(i, "Punct") && t[i].Value == p
}

// next returns the index of the first significant token at or after i.
func (t tokens) next(i int) int {
	for i < len(t) && (t.is(i, "Whitespace") || t.is(i, "Comment")) {
		i++
	}
	return i
}

// prev returns the index of the last significant token before i, or -1.
func (t tokens) prev(i int) int {
	i--
	for i >= 0 && (t.is(i, "Whitespace") || t.is(i, "Comment")) {
		i--
	}
	return i
}

// significant returns the tokens without whitespace and comments.
func (t tokens) significant() tokens {
	out := make(tokens, 0, len(t))
	for i := range t {
		if !t.is(i, "Whitespace") && !t.is(i, "Comment") {
			out = append(out, t[i])
		}
	}
	return out
}

func (t tokens) params() int {
	n := 0
	for i := range t {
		if t.is(i, "Param") {
			n++
		}
	}
	return n
}

// leading returns the first two keywords of the statement, upper case.
func (t tokens) leading() (string, string) {
	s := t.significant()
	var first, second string
	if s.is(0, "Ident") {
		first = strings.ToUpper(s[0].Value)
	}
	if s.is(1, "Ident") {
		second = strings.ToUpper(s[1].Value)
	}
	return first, second
}

// identValue returns the stored form of an identifier token: quoted
// identifiers lose their quotes, unquoted ones are kept as written.
func identValue(tok lexer.Token) string {
	v := tok.Value
	if strings.HasPrefix(v, `"`) {
		return strings.ReplaceAll(v[1:len(v)-1], `""`, `"`)
	}
	return v
}

func stringValue(v string) string {
	return strings.ReplaceAll(v[1:len(v)-1], `''`, `'`)
}

var lengthUnits = map[string]int64{"K": 1024, "M": 1024 * 1024, "G": 1024 * 1024 * 1024}

// The functions a {fn ...} escape may call, reported through GetInfo.
var (
	numericFunctions = []string{
		"ABS", "ACOS", "ASIN", "ATAN", "ATAN2", "CEILING", "COS", "DEGREES", "EXP",
		"FLOOR", "LOG", "LOG10", "MOD", "PI", "RADIANS", "SIGN", "SIN", "SQRT", "TAN",
	}
	stringFunctions = []string{"CONCAT", "LCASE", "LENGTH", "LTRIM", "RTRIM", "SUBSTRING", "UCASE"}
)

// escapedNames maps escape function names to their SQLite spelling
// where the two differ. JDBC's LOG is the natural logarithm.
var escapedNames = map[string]string{
	"LCASE":     "LOWER",
	"UCASE":     "UPPER",
	"LOG":       "LN",
	"SUBSTRING": "SUBSTR",
}

// rewrite turns a Derby statement into one SQLite accepts:
//
//   - the APP schema qualifier becomes main
//   - CHAR(n) FOR BIT DATA becomes CHAR FOR BIT DATA(n), since SQLite
//     only allows the size at the end of a type name
//   - lengths with a K, M or G unit are multiplied out
//   - {fn NAME(args)} escapes become plain function calls
func (t tokens) rewrite() string {
	var b strings.Builder
	escapes := 0
	for i := 0; i < len(t); i++ {
		tok := t[i]

		if t.punct(i, "{") {
			fn := t.next(i + 1)
			if name := t.next(fn + 1); t.keyword(fn, "fn") && t.is(name, "Ident") {
				v := t[name].Value
				if mapped, ok := escapedNames[strings.ToUpper(v)]; ok {
					v = mapped
				}
				b.WriteString(v)
				escapes++
				i = name
				continue
			}
		}
		if t.punct(i, "}") && escapes > 0 {
			escapes--
			continue
		}

		isApp := t.is(i, "QuotedIdent") && identValue(tok) == schemaApp ||
			t.is(i, "Ident") && strings.EqualFold(tok.Value, schemaApp)
		if isApp {
			if t.punct(i+1, ".") && !t.punct(t.prev(i), ".") {
				b.WriteString("main")
				continue
			}
		}

		if t.keyword(i, "CHAR") || t.keyword(i, "CHARACTER") || t.keyword(i, "VARCHAR") {
			if end, size, ok := t.bitDataSuffix(i); ok {
				b.WriteString(tok.Value)
				b.WriteString(" FOR BIT DATA(")
				b.WriteString(size)
				b.WriteString(")")
				i = end
				continue
			}
		}

		if t.punct(i, "(") && t.is(i+1, "Number") && t.is(i+2, "Ident") && t.punct(i+3, ")") {
			if mul, ok := lengthUnits[strings.ToUpper(t[i+2].Value)]; ok {
				if n, err := strconv.ParseInt(t[i+1].Value, 10, 64); err == nil {
					n *= mul
					if n > 1<<31-1 {
						n = 1<<31 - 1
					}
					b.WriteString("(" + strconv.FormatInt(n, 10) + ")")
					i += 3
					continue
				}
			}
		}

		b.WriteString(tok.Value)
	}
	return b.String()
}

// bitDataSuffix matches "(n) FOR BIT DATA" after the type keyword at i
// and returns the index of DATA and the size.
func (t tokens) bitDataSuffix(i int) (int, string, bool) {
	open := t.next(i + 1)
	if !t.punct(open, "(") || !t.is(open+1, "Number") || !t.punct(open+2, ")") {
		return 0, "", false
	}
	j := open + 2
	for _, kw := range []string{"FOR", "BIT", "DATA"} {
		j = t.next(j + 1)
		if !t.keyword(j, kw) {
			return 0, "", false
		}
	}
	return j, t[open+1].Value, true
}

// columnRef is the column a parameter marker is assigned to or
// compared with.
type columnRef struct {
	schema, table, column string
}

// paramTargets works out which column each parameter marker of an
// INSERT, UPDATE, DELETE or single-table SELECT stands for. Markers
// without a recognizable target get a zero columnRef. cols supplies the
// column list of a table for INSERT statements without one.
func (t tokens) paramTargets(cols func(schema, table string) []string) []columnRef {
	s := t.significant()
	targets := make([]columnRef, 0, s.params())

	schema, table, after := s.targetTable()
	if table == "" {
		for range s.params() {
			targets = append(targets, columnRef{})
		}
		return targets
	}

	if s.keyword(0, "INSERT") {
		i := after
		var names []string
		if s.punct(i, "(") {
			for i++; i < len(s) && !s.punct(i, ")"); i++ {
				if s.is(i, "Ident") || s.is(i, "QuotedIdent") {
					names = append(names, identValue(s[i]))
				}
			}
			i++
		} else if cols != nil {
			names = cols(schema, table)
		}
		if s.keyword(i, "VALUES") && s.punct(i+1, "(") {
			pos, depth := 0, 0
			for j := i + 2; j < len(s); j++ {
				switch {
				case s.punct(j, "("):
					depth++
				case s.punct(j, ")"):
					if depth == 0 {
						j = len(s)
						continue
					}
					depth--
				case s.punct(j, ",") && depth == 0:
					pos++
				case s.is(j, "Param"):
					ref := columnRef{}
					if depth == 0 && pos < len(names) && (s.punct(j-1, "(") || s.punct(j-1, ",")) {
						ref = columnRef{schema, table, names[pos]}
					}
					targets = append(targets, ref)
				}
			}
		}
		for len(targets) < s.params() {
			targets = append(targets, columnRef{})
		}
		return targets
	}

	for i := range s {
		if !s.is(i, "Param") {
			continue
		}
		ref := columnRef{}
		if op := i - 1; s.is(op, "Punct") && strings.Contains("=<>", s[op].Value) {
			c := op - 1
			for c >= 0 && s.is(c, "Punct") && strings.Contains("=<>!", s[c].Value) {
				c--
			}
			if s.is(c, "Ident") || s.is(c, "QuotedIdent") {
				ref = columnRef{schema, table, identValue(s[c])}
			}
		}
		targets = append(targets, ref)
	}
	return targets
}

// targetTable finds the table an INSERT, UPDATE, DELETE or SELECT
// operates on, and the index of the token after its name. SELECTs over
// more than one table yield no table.
func (t tokens) targetTable() (schema, table string, after int) {
	var at int
	switch {
	case t.keyword(0, "INSERT") && t.keyword(1, "INTO"):
		at = 2
	case t.keyword(0, "UPDATE"):
		at = 1
	case t.keyword(0, "DELETE") && t.keyword(1, "FROM"):
		at = 2
	case t.keyword(0, "SELECT"):
		from := -1
		for i := range t {
			if t.keyword(i, "FROM") {
				if from >= 0 {
					return "", "", 0
				}
				from = i
			}
			if t.keyword(i, "JOIN") {
				return "", "", 0
			}
		}
		if from < 0 {
			return "", "", 0
		}
		at = from + 1
		if end := at + 1; t.punct(end, ",") || (t.punct(end, ".") && t.punct(end+2, ",")) {
			return "", "", 0
		}
	default:
		return "", "", 0
	}

	if !t.is(at, "Ident") && !t.is(at, "QuotedIdent") {
		return "", "", 0
	}
	table = identValue(t[at])
	after = at + 1
	if t.punct(at+1, ".") && (t.is(at+2, "Ident") || t.is(at+2, "QuotedIdent")) {
		schema, table = table, identValue(t[at+2])
		after = at + 3
	}
	return schema, table, after
}
