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
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/convert"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"github.com/apache/derby-conformance/go/xdbc/param"
	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
)

type ingestOptions struct {
	table  string
	schema string
	mode   string
}

type statementImpl struct {
	driverbase.StatementImplBase

	cnxn *connectionImpl

	query    string
	toks     tokens
	parseErr error
	cmd      *command
	rewritten string

	// declared types of the columns the parameter markers stand for,
	// nil where unknown
	targets  []*sqltypes.Declared
	resolved bool

	bound       arrow.Record
	boundStream array.RecordReader

	ingest ingestOptions
}

func newStatement(c *connectionImpl) *statementImpl {
	return &statementImpl{
		StatementImplBase: driverbase.NewStatementImplBase(&c.ConnectionImplBase, c.ErrorHelper),
		cnxn:              c,
	}
}

func (s *statementImpl) Base() *driverbase.StatementImplBase {
	return &s.StatementImplBase
}

func (s *statementImpl) Close() error {
	if s.MarkClosed() {
		s.clearBinding()
	}
	return nil
}

func (s *statementImpl) clearBinding() {
	if s.bound != nil {
		s.bound.Release()
		s.bound = nil
	}
	if s.boundStream != nil {
		s.boundStream.Release()
		s.boundStream = nil
	}
}

func (s *statementImpl) SetOption(key, value string) error {
	switch key {
	case xdbc.OptionKeyIngestTargetTable:
		s.resetQuery()
		s.ingest.table = value
	case xdbc.OptionValueIngestTargetDBSchema:
		s.ingest.schema = value
	case xdbc.OptionKeyIngestMode:
		switch value {
		case xdbc.OptionValueIngestModeCreate, xdbc.OptionValueIngestModeAppend,
			xdbc.OptionValueIngestModeReplace, xdbc.OptionValueIngestModeCreateAppend:
			s.ingest.mode = value
		default:
			return s.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "invalid statement option %s=%s", key, value)
		}
	default:
		return s.StatementImplBase.SetOption(key, value)
	}
	return nil
}

func (s *statementImpl) GetOption(key string) (string, error) {
	switch key {
	case xdbc.OptionKeyIngestTargetTable:
		return s.ingest.table, nil
	case xdbc.OptionValueIngestTargetDBSchema:
		return s.ingest.schema, nil
	case xdbc.OptionKeyIngestMode:
		return s.ingest.mode, nil
	}
	return s.StatementImplBase.GetOption(key)
}

func (s *statementImpl) resetQuery() {
	s.query, s.toks, s.parseErr, s.cmd, s.rewritten = "", nil, nil, nil, ""
	s.targets, s.resolved = nil, false
}

func (s *statementImpl) SetSqlQuery(query string) error {
	if err := s.CheckOpen(); err != nil {
		return err
	}
	s.resetQuery()
	s.ingest = ingestOptions{}
	s.query = query

	toks, err := tokenize(query)
	if err != nil {
		s.parseErr = s.ErrorHelper.StateErrorf(xdbc.StateSyntaxError, "Syntax error: %s", err)
		return nil
	}
	s.toks = toks
	if s.cmd, err = parseCommand(query, toks); err != nil {
		s.parseErr = err
		return nil
	}
	s.rewritten = toks.rewrite()
	return nil
}

func (s *statementImpl) checkQuery() error {
	if err := s.CheckOpen(); err != nil {
		return err
	}
	if s.query == "" {
		return s.ErrorHelper.Errorf(xdbc.StatusInvalidState, "no query set")
	}
	return s.parseErr
}

func (s *statementImpl) Prepare(ctx context.Context) error {
	ctx, span := s.StartSpan(ctx, "statementImpl.Prepare")
	defer span.End()

	if err := s.checkQuery(); err != nil {
		return err
	}
	if s.cmd != nil {
		return nil
	}
	if err := s.cnxn.syncSchemas(ctx); err != nil {
		return err
	}
	if _, err := s.cnxn.prepare(ctx, s.rewritten); err != nil {
		return err
	}
	return s.resolveParams(ctx)
}

// resolveParams looks up the declared type of the column behind each
// parameter marker.
func (s *statementImpl) resolveParams(ctx context.Context) error {
	if s.resolved {
		return nil
	}
	if s.toks.params() == 0 {
		s.resolved = true
		return nil
	}
	tables := map[columnRef][]columnInfo{}
	load := func(schema, table string) ([]columnInfo, error) {
		if schema == "" || strings.EqualFold(schema, schemaApp) {
			schema = schemaApp
		}
		key := columnRef{schema: schema, table: table}
		if cols, ok := tables[key]; ok {
			return cols, nil
		}
		cols, err := s.cnxn.tableColumns(ctx, schema, table)
		tables[key] = cols
		return cols, err
	}

	var loadErr error
	refs := s.toks.paramTargets(func(schema, table string) []string {
		cols, err := load(schema, table)
		if err != nil {
			loadErr = err
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.name
		}
		return names
	})
	if loadErr != nil {
		return loadErr
	}

	s.targets = make([]*sqltypes.Declared, len(refs))
	for i, ref := range refs {
		if ref.table == "" {
			continue
		}
		cols, err := load(ref.schema, ref.table)
		if err != nil {
			return err
		}
		for _, c := range cols {
			if strings.EqualFold(c.name, ref.column) {
				d := c.decl
				s.targets[i] = &d
				break
			}
		}
	}
	s.resolved = true
	return nil
}

func (s *statementImpl) GetParameterSchema() (*arrow.Schema, error) {
	if err := s.checkQuery(); err != nil {
		return nil, err
	}
	if !s.resolved && s.cmd == nil {
		if err := s.resolveParams(context.Background()); err != nil {
			return nil, err
		}
	}

	n := s.toks.params()
	fields := make([]arrow.Field, n)
	for i := range fields {
		name := strconv.Itoa(i)
		if i < len(s.targets) && s.targets[i] != nil {
			fields[i] = s.targets[i].Field(name, true, 0)
			continue
		}
		fields[i] = arrow.Field{Name: name, Type: arrow.Null, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func (s *statementImpl) Bind(_ context.Context, values arrow.Record) error {
	if err := s.CheckOpen(); err != nil {
		return err
	}
	s.clearBinding()
	s.bound = values
	if s.bound != nil {
		s.bound.Retain()
	}
	return nil
}

func (s *statementImpl) BindStream(_ context.Context, stream array.RecordReader) error {
	if err := s.CheckOpen(); err != nil {
		return err
	}
	s.clearBinding()
	s.boundStream = stream
	if s.boundStream != nil {
		s.boundStream.Retain()
	}
	return nil
}

// eachParamRow calls fn once per bound parameter row, or once with no
// arguments when nothing is bound.
func (s *statementImpl) eachParamRow(fn func(args []param.Arg) error) error {
	want := s.toks.params()
	check := func(rec arrow.Record) error {
		switch n := int(rec.NumCols()); {
		case n < want:
			return s.ErrorHelper.StateErrorf(xdbc.StateParamNotSet, "At least one parameter to the current statement is uninitialized.")
		case n > want:
			return s.ErrorHelper.StateErrorf(xdbc.StateInvalidParamIndex, "The parameter position '%d' is out of range.  The number of parameters for this prepared  statement is '%d'.", n, want)
		}
		return nil
	}
	rows := func(rec arrow.Record) error {
		if err := check(rec); err != nil {
			return err
		}
		for row := 0; row < int(rec.NumRows()); row++ {
			args, err := param.Args(rec, row)
			if err != nil {
				return err
			}
			if err := fn(args); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case s.bound != nil:
		return rows(s.bound)
	case s.boundStream != nil:
		for s.boundStream.Next() {
			if err := rows(s.boundStream.Record()); err != nil {
				return err
			}
		}
		return s.boundStream.Err()
	}
	if want > 0 {
		return s.ErrorHelper.StateErrorf(xdbc.StateParamNotSet, "At least one parameter to the current statement is uninitialized.")
	}
	return fn(nil)
}

// storageArgs converts one parameter row for the columns the markers
// stand for. Markers without a known target are stored as the natural
// type of the bound value.
func (s *statementImpl) storageArgs(args []param.Arg, fields []arrow.Field) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		var d sqltypes.Declared
		switch {
		case i < len(s.targets) && s.targets[i] != nil:
			d = *s.targets[i]
		case i < len(fields):
			d = sqltypes.FromArrowType(fields[i].Type)
		default:
			d = sqltypes.Of(sqltypes.Varchar)
		}
		v, err := a.Assign(d)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *statementImpl) boundFields() []arrow.Field {
	switch {
	case s.bound != nil:
		return s.bound.Schema().Fields()
	case s.boundStream != nil:
		return s.boundStream.Schema().Fields()
	}
	return nil
}

// firstParams returns the values of the first bound row, for the
// statements the driver runs itself.
func (s *statementImpl) firstParams() ([]convert.Value, error) {
	var rec arrow.Record
	switch {
	case s.bound != nil:
		rec = s.bound
	case s.boundStream != nil && s.boundStream.Next():
		rec = s.boundStream.Record()
	}
	if rec == nil || rec.NumRows() == 0 {
		return nil, nil
	}
	args, err := param.Args(rec, 0)
	if err != nil {
		return nil, err
	}
	out := make([]convert.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out, nil
}

func (s *statementImpl) ExecuteUpdate(ctx context.Context) (int64, error) {
	ctx, span := s.StartSpan(ctx, "statementImpl.ExecuteUpdate")
	defer span.End()

	if err := s.CheckOpen(); err != nil {
		return -1, err
	}
	if s.ingest.table != "" {
		return s.executeIngest(ctx)
	}
	if err := s.checkQuery(); err != nil {
		return -1, err
	}
	if s.cmd != nil {
		rdr, err := s.runCommand(ctx)
		if rdr != nil {
			rdr.Release()
		}
		return 0, err
	}

	st, err := s.start(ctx)
	if err != nil {
		return -1, err
	}
	first, _ := s.toks.leading()
	ddl := first == "CREATE" || first == "DROP" || first == "ALTER"
	fields := s.boundFields()

	var total int64
	err = s.eachParamRow(func(args []param.Arg) error {
		vals, err := s.storageArgs(args, fields)
		if err != nil {
			return err
		}
		res, err := st.ExecContext(ctx, vals...)
		if err != nil {
			return s.cnxn.fail(ctx, err)
		}
		if n, err := res.RowsAffected(); err == nil && !ddl {
			total += n
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	s.cnxn.Logger.Debug("executed update", "connection", s.cnxn.id, "rows", total)
	return total, nil
}

// start readies the connection and prepares the rewritten query.
func (s *statementImpl) start(ctx context.Context) (*sql.Stmt, error) {
	if err := s.cnxn.begin(ctx); err != nil {
		return nil, err
	}
	st, err := s.cnxn.prepare(ctx, s.rewritten)
	if err != nil {
		return nil, err
	}
	if err := s.resolveParams(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *statementImpl) ExecuteQuery(ctx context.Context) (array.RecordReader, int64, error) {
	ctx, span := s.StartSpan(ctx, "statementImpl.ExecuteQuery")
	defer span.End()

	if err := s.checkQuery(); err != nil {
		return nil, -1, err
	}
	if s.cmd != nil {
		rdr, err := s.runCommand(ctx)
		if err != nil {
			return nil, -1, err
		}
		if rdr == nil {
			rdr, _ = newResultBuilder(s.cnxn.Alloc).reader()
		}
		return s.TrackResult(rdr), -1, nil
	}

	st, err := s.start(ctx)
	if err != nil {
		return nil, -1, err
	}
	results := newResultBuilder(s.cnxn.Alloc)
	fields := s.boundFields()
	err = s.eachParamRow(func(args []param.Arg) error {
		vals, err := s.storageArgs(args, fields)
		if err != nil {
			return err
		}
		rows, err := st.QueryContext(ctx, vals...)
		if err != nil {
			return s.cnxn.fail(ctx, err)
		}
		if err := results.consume(rows); err != nil {
			return s.cnxn.fail(ctx, err)
		}
		return nil
	})
	if err != nil {
		if results.bldr != nil {
			results.bldr.Release()
		}
		return nil, -1, err
	}

	rdr, err := results.reader()
	if err != nil {
		return nil, -1, err
	}
	s.cnxn.Logger.Debug("executed query", "connection", s.cnxn.id, "rows", results.rows)
	return s.TrackResult(rdr), results.rows, nil
}

// ExecuteSchema describes the result of a query. Only statements that
// return rows are run, and only up to their first row.
func (s *statementImpl) ExecuteSchema(ctx context.Context) (*arrow.Schema, error) {
	ctx, span := s.StartSpan(ctx, "statementImpl.ExecuteSchema")
	defer span.End()

	if err := s.checkQuery(); err != nil {
		return nil, err
	}
	if s.cmd != nil {
		if s.cmd.Call == nil {
			return arrow.NewSchema(nil, nil), nil
		}
		rdr, err := s.runCommand(ctx)
		if err != nil {
			return nil, err
		}
		defer rdr.Release()
		return rdr.Schema(), nil
	}

	first, _ := s.toks.leading()
	if first != "SELECT" && first != "VALUES" && first != "WITH" {
		return arrow.NewSchema(nil, nil), nil
	}
	st, err := s.start(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := st.QueryContext(ctx, make([]any, s.toks.params())...)
	if err != nil {
		return nil, s.cnxn.fail(ctx, err)
	}
	defer rows.Close()
	cols, err := columnsOf(rows)
	if err != nil {
		return nil, s.cnxn.fail(ctx, err)
	}
	sample, err := scanAll(rows, 1)
	if err != nil {
		return nil, s.cnxn.fail(ctx, err)
	}
	schema, _ := describe(cols, sample)
	return schema, nil
}
