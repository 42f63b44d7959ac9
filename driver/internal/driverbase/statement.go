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
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	StatementMessageOptionUnknown              = "Unknown statement option"
	StatementMessageOptionUnsupported          = "Unsupported statement option"
	StatementMessageTraceParentIncorrectFormat = "Incorrect or unsupported trace parent format"
	StatementMessageClosed                     = "Statement is closed"
)

type StatementImpl interface {
	xdbc.Statement
	xdbc.StatementExecuteSchema
	xdbc.GetSetOptions
	xdbc.OTelTracing
	Base() *StatementImplBase
}

// StatementImplBase carries the state every statement shares: tracing,
// the closed flag and close-on-completion bookkeeping.
type StatementImplBase struct {
	ErrorHelper ErrorHelper
	Tracer      trace.Tracer

	cnxn        *ConnectionImplBase
	traceParent string

	mu                sync.Mutex
	closed            bool
	closeOnCompletion bool
	openResults       int
	closer            func() error
}

type Statement interface {
	xdbc.Statement
	xdbc.StatementExecuteSchema
	xdbc.GetSetOptions
	xdbc.StatementCloseOnCompletion
}

type statement struct {
	StatementImpl
}

func NewStatementImplBase(cnxn *ConnectionImplBase, errorHelper ErrorHelper) StatementImplBase {
	return StatementImplBase{
		ErrorHelper: errorHelper,
		Tracer:      cnxn.Tracer,
		cnxn:        cnxn,
	}
}

// NewStatement wraps a StatementImpl. Closing on completion goes through
// the implementation's Close.
func NewStatement(impl StatementImpl) Statement {
	impl.Base().closer = impl.Close
	return &statement{
		StatementImpl: impl,
	}
}

func (st *statement) CloseOnCompletion() error {
	return st.Base().CloseOnCompletion()
}

func (st *statement) IsCloseOnCompletion() (bool, error) {
	return st.Base().IsCloseOnCompletion()
}

func (st *statement) IsClosed() bool {
	return st.Base().IsClosed()
}

func (st *StatementImplBase) SetOption(key, value string) error {
	switch strings.ToLower(key) {
	case xdbc.OptionKeyTelemetryTraceParent:
		st.SetTraceParent(strings.TrimSpace(value))
		return nil
	case xdbc.OptionKeyCloseOnCompletion:
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return st.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "%s '%s': %s", StatementMessageOptionUnsupported, key, value)
		}
		if !enabled {
			if err := st.CheckOpen(); err != nil {
				return err
			}
			st.mu.Lock()
			st.closeOnCompletion = false
			st.mu.Unlock()
			return nil
		}
		return st.CloseOnCompletion()
	}
	return st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) SetOptionBytes(key string, value []byte) error {
	return st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) SetOptionInt(key string, value int64) error {
	return st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) SetOptionDouble(key string, value float64) error {
	return st.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) GetOption(key string) (string, error) {
	switch strings.ToLower(key) {
	case xdbc.OptionKeyTelemetryTraceParent:
		return st.GetTraceParent(), nil
	case xdbc.OptionKeyCloseOnCompletion:
		v, err := st.IsCloseOnCompletion()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(v), nil
	}
	return "", st.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) GetOptionBytes(key string) ([]byte, error) {
	return nil, st.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) GetOptionInt(key string) (int64, error) {
	return 0, st.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) GetOptionDouble(key string) (float64, error) {
	return 0, st.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", StatementMessageOptionUnknown, key)
}

func (st *StatementImplBase) GetTraceParent() string {
	return st.traceParent
}

func (st *StatementImplBase) SetTraceParent(traceParent string) {
	st.traceParent = traceParent
}

func (st *StatementImplBase) StartSpan(
	ctx context.Context,
	spanName string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	ctx, _ = maybeAddTraceParent(ctx, st.cnxn, st)
	return st.Tracer.Start(ctx, spanName, opts...)
}

func (st *StatementImplBase) GetInitialSpanAttributes() []attribute.KeyValue {
	return st.cnxn.GetInitialSpanAttributes()
}

// CheckOpen fails with XJ012 once the statement is closed.
func (st *StatementImplBase) CheckOpen() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return st.ErrorHelper.StateErrorf(xdbc.StateStatementClosed, StatementMessageClosed)
	}
	return nil
}

// MarkClosed records that the statement is closed. It reports whether
// the statement was open, so Close implementations stay idempotent.
func (st *StatementImplBase) MarkClosed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	wasOpen := !st.closed
	st.closed = true
	return wasOpen
}

func (st *StatementImplBase) IsClosed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.closed
}

func (st *StatementImplBase) CloseOnCompletion() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return st.ErrorHelper.StateErrorf(xdbc.StateStatementClosed, StatementMessageClosed)
	}
	st.closeOnCompletion = true
	return nil
}

func (st *StatementImplBase) IsCloseOnCompletion() (bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return false, st.ErrorHelper.StateErrorf(xdbc.StateStatementClosed, StatementMessageClosed)
	}
	return st.closeOnCompletion, nil
}

// TrackResult registers rdr as a result of the statement. When the last
// tracked result is released and close-on-completion is set, the
// statement closes itself.
func (st *StatementImplBase) TrackResult(rdr array.RecordReader) array.RecordReader {
	st.mu.Lock()
	st.openResults++
	st.mu.Unlock()

	tr := &trackedReader{RecordReader: rdr, done: st.resultDone}
	tr.refs.Store(1)
	return tr
}

func (st *StatementImplBase) resultDone() {
	st.mu.Lock()
	st.openResults--
	shouldClose := st.openResults == 0 && st.closeOnCompletion && !st.closed
	closer := st.closer
	st.mu.Unlock()

	if shouldClose && closer != nil {
		_ = closer()
	}
}

type trackedReader struct {
	array.RecordReader
	refs atomic.Int64
	done func()
}

func (r *trackedReader) Retain() {
	r.refs.Add(1)
}

func (r *trackedReader) Release() {
	if r.refs.Add(-1) == 0 {
		r.RecordReader.Release()
		r.done()
	}
}
