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
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"github.com/google/uuid"
)

const (
	schemaApp = "APP"
	schemaSys = "SYS"
)

// attachedSchema is a user schema. Each one lives in its own SQLite
// database that every connection attaches under the schema's name.
type attachedSchema struct {
	name string
	dsn  string
}

type databaseImpl struct {
	driverbase.DatabaseImplBase

	mu          sync.Mutex
	uri         string
	lockTimeout int64
	cacheSize   int64

	shared *sql.DB
	db     *sql.DB
	// keeper pins the in-memory databases for the lifetime of the
	// Database; SQLite drops a shared-cache memory database as soon as
	// its last connection closes.
	keeper *sql.Conn

	schemas   []attachedSchema
	schemaGen uint64

	engineVersion sync.Once
}

func newDatabase(base driverbase.DatabaseImplBase, shared *sql.DB) *databaseImpl {
	return &databaseImpl{
		DatabaseImplBase: base,
		uri:              memoryURI(),
		lockTimeout:      DefaultLockTimeoutMillis,
		cacheSize:        DefaultStatementCacheSize,
		shared:           shared,
	}
}

func memoryURI() string {
	return "file:xdbc-" + uuid.NewString() + "?mode=memory&cache=shared"
}

func isMemoryURI(uri string) bool {
	return uri == ":memory:" || strings.Contains(uri, "mode=memory")
}

func (d *databaseImpl) pool(ctx context.Context) (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return d.db, nil
	}
	if d.shared != nil {
		d.db = d.shared
		return d.db, nil
	}

	db, err := sql.Open(sqlDriver, d.uri)
	if err != nil {
		return nil, d.ErrorHelper.Wrap(err, "failed to open %s", d.uri)
	}
	keeper, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, d.ErrorHelper.SQLErrorf(xdbc.StatusIO, xdbc.StateNoConnection, "failed to connect to %s: %s", d.uri, err)
	}
	d.db, d.keeper = db, keeper
	d.Logger.Debug("opened database", "uri", d.uri)
	return d.db, nil
}

func (d *databaseImpl) Open(ctx context.Context) (xdbc.Connection, error) {
	ctx, span := d.StartSpan(ctx, "databaseImpl.Open")
	defer span.End()

	db, err := d.pool(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, d.ErrorHelper.SQLErrorf(xdbc.StatusIO, xdbc.StateNoConnection, "failed to connect: %s", err)
	}

	c := newConnection(d, conn)
	if err := c.init(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	d.Logger.Debug("opened connection", "connection", c.id)

	return driverbase.NewConnectionBuilder(c).
		WithAutocommitSetter(c).
		WithCurrentNamespacer(c).
		WithDbObjectsEnumerator(c).
		WithDriverInfoPreparer(c).
		WithTableTypeLister(c).
		WithSavepointer(c).
		Connection(), nil
}

func (d *databaseImpl) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.keeper != nil {
		err = d.keeper.Close()
		d.keeper = nil
	}
	if d.db != nil && d.db != d.shared {
		if cerr := d.db.Close(); err == nil {
			err = cerr
		}
	}
	d.db = nil
	if terr := d.DatabaseImplBase.Close(); err == nil {
		err = terr
	}
	return err
}

func (d *databaseImpl) GetOption(key string) (string, error) {
	switch key {
	case xdbc.OptionKeyURI:
		return d.uri, nil
	case OptionLockTimeoutMillis:
		return strconv.FormatInt(d.lockTimeout, 10), nil
	case OptionStatementCacheSize:
		return strconv.FormatInt(d.cacheSize, 10), nil
	}
	return d.DatabaseImplBase.GetOption(key)
}

func (d *databaseImpl) GetOptionInt(key string) (int64, error) {
	switch key {
	case OptionLockTimeoutMillis:
		return d.lockTimeout, nil
	case OptionStatementCacheSize:
		return d.cacheSize, nil
	}
	return d.DatabaseImplBase.GetOptionInt(key)
}

func (d *databaseImpl) SetOptions(options map[string]string) error {
	for k, v := range options {
		if err := d.SetOption(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *databaseImpl) SetOption(key, value string) error {
	switch key {
	case xdbc.OptionKeyURI:
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.db != nil {
			return d.ErrorHelper.Errorf(xdbc.StatusInvalidState, "cannot change %s after the database was opened", key)
		}
		d.uri = value
		return nil
	case OptionLockTimeoutMillis, OptionStatementCacheSize:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return d.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "invalid value '%s' for %s", value, key)
		}
		return d.SetOptionInt(key, n)
	}
	return d.DatabaseImplBase.SetOption(key, value)
}

func (d *databaseImpl) SetOptionInt(key string, value int64) error {
	switch key {
	case OptionLockTimeoutMillis:
		if value < 0 {
			return d.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "%s must not be negative", key)
		}
		d.lockTimeout = value
		return nil
	case OptionStatementCacheSize:
		if value < 1 {
			return d.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "%s must be at least 1", key)
		}
		d.cacheSize = value
		return nil
	}
	return d.DatabaseImplBase.SetOptionInt(key, value)
}

// schemaDSN picks the database a new schema is stored in: another
// shared-cache memory database, or a file next to the main one.
func (d *databaseImpl) schemaDSN(name string) string {
	if d.shared != nil || isMemoryURI(d.uri) {
		return memoryURI()
	}
	path := strings.TrimPrefix(d.uri, "file:")
	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i:]
	}
	if p, err := url.PathUnescape(path); err == nil {
		path = p
	}
	file := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "." + hex.EncodeToString([]byte(name)) + ".db"
	return "file:" + filepath.Join(filepath.Dir(path), file) + query
}

func (d *databaseImpl) lookupSchema(name string) (attachedSchema, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.schemas {
		if strings.EqualFold(s.name, name) {
			return s, true
		}
	}
	return attachedSchema{}, false
}

func (d *databaseImpl) snapshotSchemas() ([]attachedSchema, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]attachedSchema(nil), d.schemas...), d.schemaGen
}

// createSchema registers a schema and attaches it to the keeper
// connection so it outlives the connections that use it.
func (d *databaseImpl) createSchema(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if strings.EqualFold(name, schemaApp) || strings.EqualFold(name, schemaSys) || strings.EqualFold(name, "main") || strings.EqualFold(name, "temp") {
		return d.ErrorHelper.StateErrorf(xdbc.StateSchemaExists, "Schema '%s' already exists.", name)
	}
	for _, s := range d.schemas {
		if strings.EqualFold(s.name, name) {
			return d.ErrorHelper.StateErrorf(xdbc.StateSchemaExists, "Schema '%s' already exists.", name)
		}
	}

	s := attachedSchema{name: name, dsn: d.schemaDSN(name)}
	if d.keeper != nil {
		if _, err := d.keeper.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(name), s.dsn); err != nil {
			return translate(&d.ErrorHelper, err)
		}
	}
	d.schemas = append(d.schemas, s)
	d.schemaGen++
	d.Logger.Info("created schema", "schema", name, "dsn", s.dsn)
	return nil
}

func (d *databaseImpl) dropSchema(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.schemas {
		if !strings.EqualFold(s.name, name) {
			continue
		}
		if d.keeper != nil {
			if _, err := d.keeper.ExecContext(ctx, "DETACH DATABASE "+quoteIdent(s.name)); err != nil {
				return translate(&d.ErrorHelper, err)
			}
		}
		d.schemas = append(d.schemas[:i], d.schemas[i+1:]...)
		d.schemaGen++
		d.Logger.Info("dropped schema", "schema", name)
		return nil
	}
	return d.ErrorHelper.StateErrorf(xdbc.StateSchemaNotFound, "Schema '%s' does not exist", name)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
