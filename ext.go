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

package xdbc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/array"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DatabaseLogging is a Database that also supports logging information to an
// application-supplied log sink.
type DatabaseLogging interface {
	SetLogger(*slog.Logger)
}

// OTelTracingInit is a Database that also supports OpenTelemetry tracing.
type OTelTracingInit interface {
	InitTracing(ctx context.Context, driverName string, driverVersion string) error
}

// DriverWithContext is an extension interface to allow the creation of a database
// by providing an existing [context.Context] to initialize OpenTelemetry tracing.
type DriverWithContext interface {
	NewDatabaseWithContext(ctx context.Context, opts map[string]string) (Database, error)
}

// OTelTracing is an interface that supports instrumentation of [OpenTelemetry tracing].
//
// [OpenTelemetry tracing]: https://opentelemetry.io/docs/concepts/signals/traces/
type OTelTracing interface {
	// Sets the trace parent from an external trace span. A blank value, removes the parent relationship.
	SetTraceParent(string)
	// Gets the trace parent from an external trace span. A blank value, indicates no parent relationship.
	GetTraceParent() string
	// Starts a new span. Implementers should enhance the [context.Context]
	// with the provided trace parent value, if it exists.
	StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)

	// Gets the initial span attributes for any newly started span.
	GetInitialSpanAttributes() []attribute.KeyValue
}

// Savepoint is a named or unnamed point inside a transaction created
// by [ConnectionSavepoints]. Unnamed savepoints are identified by a
// positive id.
type Savepoint interface {
	// ID returns the id of an unnamed savepoint. Named savepoints fail
	// with SQLSTATE XJ013.
	ID() (int, error)
	// Name returns the name of a named savepoint. Unnamed savepoints
	// fail with SQLSTATE XJ014.
	Name() (string, error)
}

// ConnectionSavepoints is a Connection that supports savepoints.
//
// Savepoints may only be set while autocommit is disabled. They are
// released by Commit, Rollback, by re-enabling autocommit and by any
// rollback the database performs on its own (a lock timeout, for
// instance). Using a released savepoint fails with SQLSTATE 3B001.
type ConnectionSavepoints interface {
	// SetSavepoint creates an unnamed savepoint in the current transaction.
	SetSavepoint(ctx context.Context) (Savepoint, error)
	// SetNamedSavepoint creates a named savepoint. A nil name fails
	// with XJ011 and a name already in use in the transaction with 3B501.
	SetNamedSavepoint(ctx context.Context, name *string) (Savepoint, error)
	// ReleaseSavepoint removes the savepoint and every savepoint set
	// after it.
	ReleaseSavepoint(ctx context.Context, sp Savepoint) error
	// RollbackToSavepoint undoes all work done after the savepoint was
	// set. The savepoint stays valid; savepoints set after it are released.
	RollbackToSavepoint(ctx context.Context, sp Savepoint) error
}

// StatementCloseOnCompletion is a Statement that can close itself once
// all of its result sets have been consumed and released.
type StatementCloseOnCompletion interface {
	CloseOnCompletion() error
	IsCloseOnCompletion() (bool, error)
	IsClosed() bool
}

// IngestStreamOption bundles the most-common IngestStream settings.
// Any other options can go into Extra.
type IngestStreamOption struct {
	TargetTable string            // required
	IngestMode  string            // required, e.g. OptionValueIngestModeCreateAppend, or OptionValueIngestModeReplace
	Extra       map[string]string // any other stmt.SetOption(...) args
}

// IngestStream is a helper for executing a bulk ingestion: NewStatement,
// SetOption, BindStream, ExecuteUpdate and Close. The conformance
// suites load their fixture tables with it.
func IngestStream(ctx context.Context, cnxn Connection, reader array.RecordReader, opt IngestStreamOption) (count int64, err error) {
	stmt, err := cnxn.NewStatement()
	if err != nil {
		return -1, fmt.Errorf("IngestStream: NewStatement: %w", err)
	}
	defer func() {
		err = errors.Join(err, stmt.Close())
	}()

	if err = stmt.BindStream(ctx, reader); err != nil {
		return -1, fmt.Errorf("IngestStream: BindStream: %w", err)
	}

	if err = stmt.SetOption(OptionKeyIngestTargetTable, opt.TargetTable); err != nil {
		return 0, fmt.Errorf("IngestStream: SetOption(target_table=%s): %w", opt.TargetTable, err)
	}
	if err = stmt.SetOption(OptionKeyIngestMode, opt.IngestMode); err != nil {
		return 0, fmt.Errorf("IngestStream: SetOption(mode=%s): %w", opt.IngestMode, err)
	}

	for k, v := range opt.Extra {
		if err = stmt.SetOption(k, v); err != nil {
			return 0, fmt.Errorf("IngestStream: SetOption(%s=%s): %w", k, v, err)
		}
	}

	count, err = stmt.ExecuteUpdate(ctx)
	if err != nil {
		return 0, fmt.Errorf("IngestStream: ExecuteUpdate: %w", err)
	}

	return count, nil
}
