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
	"log/slog"

	"github.com/apache/derby-conformance/go/xdbc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const traceParentKey = "traceparent"

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// nilLogger is the logger used until the application supplies one.
func nilLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

func nilTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer(driverNamespace)
}

// maybeAddTraceParent extracts the W3C trace parent set on the statement,
// or failing that on the connection, into ctx.
func maybeAddTraceParent(ctx context.Context, cnxn xdbc.OTelTracing, st xdbc.OTelTracing) (context.Context, error) {
	var traceParent string
	if st != nil {
		traceParent = st.GetTraceParent()
	}
	if traceParent == "" && cnxn != nil {
		traceParent = cnxn.GetTraceParent()
	}
	if traceParent == "" {
		return ctx, nil
	}

	carrier := propagation.MapCarrier{traceParentKey: traceParent}
	ctx = propagation.TraceContext{}.Extract(ctx, carrier)
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return ctx, xdbc.Error{
			Code: xdbc.StatusInvalidArgument,
			Msg:  "invalid trace parent: " + traceParent,
		}
	}
	return ctx, nil
}

func getInitialSpanAttributes(driverInfo *DriverInfo) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("db.system.name", driverInfo.GetName()),
	}
	if v, ok := driverInfo.GetInfoForInfoCode(xdbc.InfoDriverVersion); ok {
		if s, ok := v.(string); ok {
			attrs = append(attrs, otelSemConvInfoDriverVersion.String(s))
		}
	}
	return attrs
}
