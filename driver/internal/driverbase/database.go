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
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	driverNamespace = "apache.derby.xdbc"

	// EnvTracesExporter selects the span exporter: none, otlp, console
	// or xdbcfile. Unset means the global otel tracer provider.
	EnvTracesExporter = "OTEL_TRACES_EXPORTER"

	DatabaseMessageOptionUnknown       = "Unknown database option"
	DatabaseMessageTracesExporterUnkwn = "Unknown " + EnvTracesExporter + " value"
)

var getExporterName = sync.OnceValue(func() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(EnvTracesExporter)))
})

// DatabaseImpl is an interface that drivers implement to provide
// vendor-specific functionality.
type DatabaseImpl interface {
	xdbc.Database
	xdbc.GetSetOptions
	Base() *DatabaseImplBase
}

// Database is the interface satisfied by the result of the NewDatabase constructor,
// given an input is provided satisfying the DatabaseImpl interface.
type Database interface {
	xdbc.Database
	xdbc.GetSetOptions
	xdbc.DatabaseLogging
	xdbc.OTelTracingInit
}

// DatabaseImplBase is a struct that provides default implementations of the
// DatabaseImpl interface. It is meant to be used as a composite struct for a
// driver's DatabaseImpl implementation.
type DatabaseImplBase struct {
	Alloc       memory.Allocator
	ErrorHelper ErrorHelper
	DriverInfo  *DriverInfo
	Logger      *slog.Logger
	Tracer      trace.Tracer

	shutdownTracer func(context.Context) error
	traceParent    string
}

// NewDatabaseImplBase instantiates DatabaseImplBase.
//
//   - driver is a DriverImplBase containing the common resources from the parent
//     driver, allowing the Arrow allocator and error handler to be reused.
func NewDatabaseImplBase(ctx context.Context, driver *DriverImplBase) (DatabaseImplBase, error) {
	database := DatabaseImplBase{
		Alloc:       driver.Alloc,
		ErrorHelper: driver.ErrorHelper,
		DriverInfo:  driver.DriverInfo,
		Logger:      nilLogger(),
		Tracer:      nilTracer(),
	}
	err := database.InitTracing(ctx, driver.DriverInfo.GetName(), getDriverVersion(driver.DriverInfo))
	return database, err
}

func (base *DatabaseImplBase) Base() *DatabaseImplBase {
	return base
}

func (base *DatabaseImplBase) GetOption(key string) (string, error) {
	if key == xdbc.OptionKeyTelemetryTraceParent {
		return base.traceParent, nil
	}
	return "", base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) GetOptionBytes(key string) ([]byte, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) GetOptionDouble(key string) (float64, error) {
	return 0, base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) GetOptionInt(key string) (int64, error) {
	return 0, base.ErrorHelper.Errorf(xdbc.StatusNotFound, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) SetOption(key string, val string) error {
	if key == xdbc.OptionKeyTelemetryTraceParent {
		base.traceParent = val
		return nil
	}
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) SetOptionBytes(key string, val []byte) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) SetOptionDouble(key string, val float64) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

func (base *DatabaseImplBase) SetOptionInt(key string, val int64) error {
	return base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "%s '%s'", DatabaseMessageOptionUnknown, key)
}

// Close flushes and stops the tracer provider, if the database owns one.
func (base *DatabaseImplBase) Close() error {
	if base.shutdownTracer == nil {
		return nil
	}
	shutdown := base.shutdownTracer
	base.shutdownTracer = nil
	return shutdown(context.Background())
}

func (base *DatabaseImplBase) Open(ctx context.Context) (xdbc.Connection, error) {
	return nil, base.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "Open")
}

// SetOptions applies options through the driver's SetOption, so drivers
// embedding DatabaseImplBase should override it when they add options.
func (base *DatabaseImplBase) SetOptions(options map[string]string) error {
	for key, val := range options {
		if err := base.SetOption(key, val); err != nil {
			return err
		}
	}
	return nil
}

func (base *DatabaseImplBase) GetInitialSpanAttributes() []attribute.KeyValue {
	return getInitialSpanAttributes(base.DriverInfo)
}

func (base *DatabaseImplBase) GetTraceParent() string {
	return base.traceParent
}

func (base *DatabaseImplBase) SetTraceParent(traceParent string) {
	base.traceParent = traceParent
}

func (base *DatabaseImplBase) StartSpan(
	ctx context.Context,
	spanName string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	ctx, _ = maybeAddTraceParent(ctx, base, nil)
	return base.Tracer.Start(ctx, spanName, opts...)
}

// InitTracing picks the span exporters named by OTEL_TRACES_EXPORTER and
// installs a tracer backed by them.
func (base *DatabaseImplBase) InitTracing(ctx context.Context, driverName string, driverVersion string) error {
	scope := driverNamespace + "." + driverName

	name := getExporterName()
	if name == "" {
		base.Tracer = otel.Tracer(scope)
		return nil
	}

	exporters, err := newExporters(ctx, xdbc.OptionTelemetryExporter(name), driverName)
	if errors.Is(err, errUnknownExporter) {
		return base.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "%s '%s'", DatabaseMessageTracesExporterUnkwn, name)
	} else if err != nil {
		return base.ErrorHelper.Wrap(err, "initializing %s exporter", name)
	}
	if len(exporters) == 0 {
		// "none": spans are created but dropped
		base.Tracer = nilTracer()
		return nil
	}

	provider := newTracerProvider(exporters...)
	base.shutdownTracer = provider.Shutdown
	base.Tracer = provider.Tracer(
		scope,
		trace.WithInstrumentationVersion(driverVersion),
		trace.WithSchemaURL(semconv.SchemaURL),
	)
	return nil
}

var errUnknownExporter = errors.New("unknown exporter")

func newExporters(ctx context.Context, name xdbc.OptionTelemetryExporter, driverName string) ([]sdktrace.SpanExporter, error) {
	switch name {
	case xdbc.TelemetryExporterNone:
		return nil, nil
	case xdbc.TelemetryExporterConsole:
		exp, err := stdouttrace.New()
		if err != nil {
			return nil, err
		}
		return []sdktrace.SpanExporter{exp}, nil
	case xdbc.TelemetryExporterOtlp:
		return newOtlpExporters(ctx)
	case xdbc.TelemetryExporterFile:
		exp, err := newFileExporter(driverName)
		if err != nil {
			return nil, err
		}
		return []sdktrace.SpanExporter{exp}, nil
	}
	return nil, errUnknownExporter
}

func getDriverVersion(driverInfo *DriverInfo) string {
	if v, ok := driverInfo.GetInfoForInfoCode(xdbc.InfoDriverVersion); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}

// newOtlpExporters exports over both OTLP transports; endpoints, headers
// and protocol come from the standard OTEL_EXPORTER_OTLP_* variables.
func newOtlpExporters(ctx context.Context) ([]sdktrace.SpanExporter, error) {
	const (
		retryInitial = 5 * time.Second
		retryMax     = 30 * time.Second
	)
	grpcExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
		Enabled:         true,
		InitialInterval: retryInitial,
		MaxInterval:     retryMax,
	}))
	if err != nil {
		return nil, err
	}
	httpExporter, err := otlptracehttp.New(ctx, otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
		Enabled:         true,
		InitialInterval: retryInitial,
		MaxInterval:     retryMax,
	}))
	if err != nil {
		return nil, errors.Join(err, grpcExporter.Shutdown(ctx))
	}
	return []sdktrace.SpanExporter{grpcExporter, httpExporter}, nil
}

func newFileExporter(driverName string) (*stdouttrace.Exporter, error) {
	prefix := strings.ToLower(driverNamespace + "." + driverName)
	w, err := NewRotatingFileWriter(WithLogNamePrefix(prefix))
	if err != nil {
		return nil, err
	}
	return stdouttrace.New(stdouttrace.WithWriter(w))
}

func newTracerProvider(exporters ...sdktrace.SpanExporter) *sdktrace.TracerProvider {
	own := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(driverNamespace))
	res, err := resource.Merge(resource.Default(), own)
	if err != nil {
		// resource.Default may carry a different schema URL
		res = own
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// database is the implementation of xdbc.Database.
type database struct {
	DatabaseImpl
}

// NewDatabase wraps a DatabaseImpl to create an xdbc.Database.
func NewDatabase(impl DatabaseImpl) Database {
	return &database{DatabaseImpl: impl}
}

func (db *database) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = nilLogger()
	}
	db.Base().Logger = logger
}

func (db *database) InitTracing(ctx context.Context, driverName string, driverVersion string) error {
	return db.Base().InitTracing(ctx, driverName, driverVersion)
}

func (db *database) Close() error {
	return errors.Join(db.DatabaseImpl.Close(), db.Base().Close())
}

var _ DatabaseImpl = (*DatabaseImplBase)(nil)
