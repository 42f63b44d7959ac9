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
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/apache/derby-conformance/go/xdbc"
)

// command is a statement SQLite either lacks or implements differently
// from Derby. The driver executes these itself.
type command struct {
	Savepoint    *savepointCmd  `  "SAVEPOINT" @@`
	Release      *releaseCmd    `| "RELEASE" @@`
	Rollback     *rollbackCmd   `| @@`
	Commit       *commitCmd     `| @@`
	CreateSchema *identifier    `| "CREATE" "SCHEMA" @@`
	DropSchema   *identifier    `| "DROP" "SCHEMA" @@ "RESTRICT"`
	Truncate     *qualifiedName `| "TRUNCATE" "TABLE" @@`
	Call         *callCmd       `| "CALL" @@`
}

type savepointCmd struct {
	Name    identifier         `@@`
	Clauses []*savepointClause `@@*`
}

type savepointClause struct {
	Unique bool   `  @"UNIQUE"`
	Retain string `| "ON" "ROLLBACK" "RETAIN" @("LOCKS" | "CURSORS")`
}

type releaseCmd struct {
	To   bool       `@"TO"?`
	Name identifier `"SAVEPOINT" @@`
}

type rollbackCmd struct {
	Verb string      `@"ROLLBACK"`
	Work bool        `@"WORK"?`
	To   *identifier `( "TO" "SAVEPOINT" @@ )?`
}

type commitCmd struct {
	Verb string `@"COMMIT"`
	Work bool   `@"WORK"?`
}

type identifier struct {
	Quoted *string `  @QuotedIdent`
	Plain  *string `| @Ident`
}

type qualifiedName struct {
	Parts []identifier `@@ ( "." @@ )*`
}

type callCmd struct {
	Name qualifiedName `@@`
	Args []*callArg    `"(" ( @@ ( "," @@ )* )? ")"`
}

type callArg struct {
	Param  bool    `  @Param`
	Null   bool    `| @"NULL"`
	String *string `| @String`
	Number *string `| @("-"? Number)`
}

var commandParser = participle.MustBuild[command](
	participle.Lexer(sqlLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.CaseInsensitive("Ident"),
)

// value returns the identifier as stored. With upper set, unquoted
// identifiers are folded to upper case the way Derby stores them.
func (id identifier) value(upper bool) string {
	if id.Quoted != nil {
		q := *id.Quoted
		return strings.ReplaceAll(q[1:len(q)-1], `""`, `"`)
	}
	if upper {
		return strings.ToUpper(*id.Plain)
	}
	return *id.Plain
}

func (id identifier) quoted() bool { return id.Quoted != nil }

func (q qualifiedName) split() (schema, name string) {
	n := len(q.Parts)
	name = q.Parts[n-1].value(false)
	if n > 1 {
		schema = q.Parts[n-2].value(false)
	}
	return schema, name
}

// sql renders the name for SQLite, mapping APP to main.
func (q qualifiedName) sql() string {
	parts := make([]string, len(q.Parts))
	for i, p := range q.Parts {
		v := p.value(false)
		if i < len(q.Parts)-1 && (p.quoted() && v == schemaApp || !p.quoted() && strings.EqualFold(v, schemaApp)) {
			v = "main"
		}
		parts[i] = quoteIdent(v)
	}
	return strings.Join(parts, ".")
}

var interceptedKeywords = map[string]bool{
	"SAVEPOINT": true,
	"RELEASE":   true,
	"ROLLBACK":  true,
	"COMMIT":    true,
	"TRUNCATE":  true,
	"CALL":      true,
}

// parseCommand recognizes the statements the driver executes itself.
// It returns nil for any other statement. A statement that starts like
// one of them but does not parse fails with 42X01.
func parseCommand(query string, toks tokens) (*command, error) {
	first, second := toks.leading()
	if !interceptedKeywords[first] && !((first == "CREATE" || first == "DROP") && second == "SCHEMA") {
		return nil, nil
	}

	text := strings.TrimRight(strings.TrimSpace(query), ";")
	cmd, err := commandParser.ParseString("", text)
	if err != nil {
		return nil, xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateSyntaxError,
			"[%s] Syntax error: %s", driverName, err)
	}
	if cmd.Savepoint != nil {
		if err := cmd.Savepoint.check(); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

// check applies Derby's rules for the SAVEPOINT clauses: each clause at
// most once, and ON ROLLBACK RETAIN CURSORS is mandatory.
func (s *savepointCmd) check() error {
	var unique, locks, cursors int
	for _, c := range s.Clauses {
		switch {
		case c.Unique:
			unique++
		case strings.EqualFold(c.Retain, "LOCKS"):
			locks++
		case strings.EqualFold(c.Retain, "CURSORS"):
			cursors++
		}
	}
	repeated := ""
	switch {
	case unique > 1:
		repeated = "UNIQUE"
	case locks > 1:
		repeated = "ON ROLLBACK RETAIN LOCKS"
	case cursors > 1:
		repeated = "ON ROLLBACK RETAIN CURSORS"
	}
	if repeated != "" {
		return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateClauseRepeated,
			"[%s] Multiple or conflicting keywords involving the '%s' clause are present.", driverName, repeated)
	}
	if cursors == 0 {
		return xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateSyntaxError,
			"[%s] Syntax error: Missing required ON ROLLBACK RETAIN CURSORS.", driverName)
	}
	return nil
}
