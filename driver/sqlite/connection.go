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
	"slices"
	"strconv"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/internal/driverbase"
	"github.com/bluele/gcache"
	"github.com/google/uuid"
)

// connectionImpl pins one SQLite connection. Transactions are started
// lazily: with autocommit off, BEGIN is issued before the first
// statement or savepoint of each transaction.
type connectionImpl struct {
	driverbase.ConnectionImplBase

	db   *databaseImpl
	conn *sql.Conn
	id   string

	schema      string
	inTx        bool
	readOnly    bool
	attached    map[string]bool
	attachedGen uint64

	// prepared statements by query text
	stmts gcache.Cache
}

func newConnection(db *databaseImpl, conn *sql.Conn) *connectionImpl {
	c := &connectionImpl{
		ConnectionImplBase: driverbase.NewConnectionImplBase(&db.DatabaseImplBase),
		db:                 db,
		conn:               conn,
		id:                 uuid.NewString(),
		schema:             schemaApp,
		attached:           map[string]bool{},
	}
	c.stmts = gcache.New(int(db.cacheSize)).LRU().
		EvictedFunc(func(key, value any) {
			if err := value.(*sql.Stmt).Close(); err != nil {
				c.Logger.Warn("failed to close evicted statement", "query", key, "error", err)
			}
		}).
		Build()
	return c
}

func (c *connectionImpl) init(ctx context.Context) error {
	if _, err := c.conn.ExecContext(ctx, "PRAGMA busy_timeout = "+strconv.FormatInt(c.db.lockTimeout, 10)); err != nil {
		return translate(&c.ErrorHelper, err)
	}
	if _, err := c.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return translate(&c.ErrorHelper, err)
	}
	return c.syncSchemas(ctx)
}

// syncSchemas attaches schemas created, and detaches schemas dropped,
// through other connections. SQLite only allows this outside a
// transaction.
func (c *connectionImpl) syncSchemas(ctx context.Context) error {
	schemas, gen := c.db.snapshotSchemas()
	if gen == c.attachedGen || c.inTx {
		return nil
	}

	live := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		live[s.name] = true
		if c.attached[s.name] {
			continue
		}
		if _, err := c.conn.ExecContext(ctx, "ATTACH DATABASE ? AS "+quoteIdent(s.name), s.dsn); err != nil {
			return translate(&c.ErrorHelper, err)
		}
		c.attached[s.name] = true
	}
	for name := range c.attached {
		if live[name] {
			continue
		}
		if _, err := c.conn.ExecContext(ctx, "DETACH DATABASE "+quoteIdent(name)); err != nil {
			return translate(&c.ErrorHelper, err)
		}
		delete(c.attached, name)
	}
	c.attachedGen = gen
	return nil
}

// begin readies the connection for a statement: it starts the
// transaction when autocommit is off.
func (c *connectionImpl) begin(ctx context.Context) error {
	if c.inTx {
		return nil
	}
	if err := c.syncSchemas(ctx); err != nil {
		return err
	}
	if c.Autocommit {
		return nil
	}
	if _, err := c.conn.ExecContext(ctx, "BEGIN"); err != nil {
		return translate(&c.ErrorHelper, err)
	}
	c.inTx = true
	return nil
}

// fail translates err. Like Derby, a lock timeout or deadlock rolls
// back the whole transaction, which releases its savepoints.
func (c *connectionImpl) fail(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	err = translate(&c.ErrorHelper, err)
	state := xdbc.SQLStateOf(err)
	if c.inTx && (state == xdbc.StateLockTimeout || state == xdbc.StateDeadlock) {
		if _, rerr := c.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rerr != nil {
			c.Logger.Warn("rollback after lock timeout failed", "connection", c.id, "error", rerr)
		}
		c.inTx = false
		c.Savepoints.EndTransaction()
		c.Logger.Info("transaction rolled back", "connection", c.id, "sqlstate", state)
	}
	return err
}

func (c *connectionImpl) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if v, err := c.stmts.Get(query); err == nil {
		return v.(*sql.Stmt), nil
	}
	st, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, c.fail(ctx, err)
	}
	_ = c.stmts.Set(query, st)
	return st, nil
}

func (c *connectionImpl) endTx(ctx context.Context, verb string) error {
	if !c.inTx {
		return nil
	}
	if _, err := c.conn.ExecContext(ctx, verb); err != nil {
		return translate(&c.ErrorHelper, err)
	}
	c.inTx = false
	return nil
}

func (c *connectionImpl) Commit(ctx context.Context) error {
	ctx, span := c.StartSpan(ctx, "connectionImpl.Commit")
	defer span.End()
	return c.endTx(ctx, "COMMIT")
}

func (c *connectionImpl) Rollback(ctx context.Context) error {
	ctx, span := c.StartSpan(ctx, "connectionImpl.Rollback")
	defer span.End()
	return c.endTx(ctx, "ROLLBACK")
}

// SetAutocommit implements driverbase.AutocommitSetter. Turning
// autocommit on commits the open transaction.
func (c *connectionImpl) SetAutocommit(enabled bool) error {
	if enabled {
		return c.endTx(context.Background(), "COMMIT")
	}
	return nil
}

// CreateSavepoint implements driverbase.Savepointer.
func (c *connectionImpl) CreateSavepoint(ctx context.Context, name string) error {
	if err := c.begin(ctx); err != nil {
		return err
	}
	_, err := c.conn.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name))
	return translate(&c.ErrorHelper, err)
}

func (c *connectionImpl) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := c.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+quoteIdent(name))
	return translate(&c.ErrorHelper, err)
}

func (c *connectionImpl) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := c.conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(name))
	return translate(&c.ErrorHelper, err)
}

// SetOption accepts the isolation levels SQLite provides and maps
// read-only to PRAGMA query_only.
func (c *connectionImpl) SetOption(key, val string) error {
	switch key {
	case xdbc.OptionKeyIsolationLevel:
		switch xdbc.OptionIsolationLevel(val) {
		case xdbc.LevelDefault, xdbc.LevelSerializable:
			return nil
		}
		return c.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "isolation level %s is not supported", val)
	case xdbc.OptionKeyReadOnly:
		var on bool
		switch val {
		case xdbc.OptionValueEnabled:
			on = true
		case xdbc.OptionValueDisabled:
		default:
			return c.ErrorHelper.Errorf(xdbc.StatusInvalidArgument, "cannot set value %s for key %s", val, key)
		}
		pragma := "PRAGMA query_only = OFF"
		if on {
			pragma = "PRAGMA query_only = ON"
		}
		if _, err := c.conn.ExecContext(context.Background(), pragma); err != nil {
			return translate(&c.ErrorHelper, err)
		}
		c.readOnly = on
		return nil
	}
	return c.ConnectionImplBase.SetOption(key, val)
}

func (c *connectionImpl) GetOption(key string) (string, error) {
	switch key {
	case xdbc.OptionKeyIsolationLevel:
		return string(xdbc.LevelSerializable), nil
	case xdbc.OptionKeyReadOnly:
		if c.readOnly {
			return xdbc.OptionValueEnabled, nil
		}
		return xdbc.OptionValueDisabled, nil
	}
	return c.ConnectionImplBase.GetOption(key)
}

func (c *connectionImpl) GetCurrentCatalog() (string, error) {
	return "", nil
}

func (c *connectionImpl) GetCurrentDbSchema() (string, error) {
	return c.schema, nil
}

func (c *connectionImpl) SetCurrentCatalog(value string) error {
	if value != "" {
		return c.ErrorHelper.Errorf(xdbc.StatusNotImplemented, "catalogs are not supported")
	}
	return nil
}

// SetCurrentDbSchema changes the schema metadata calls default to.
// Unqualified names in SQL statements still resolve through SQLite's
// search order.
func (c *connectionImpl) SetCurrentDbSchema(value string) error {
	if _, ok := c.dbAlias(value); !ok {
		return c.ErrorHelper.StateErrorf(xdbc.StateSchemaNotFound, "Schema '%s' does not exist", value)
	}
	c.schema = value
	return nil
}

// PrepareDriverInfo reports the version of the SQLite engine.
func (c *connectionImpl) PrepareDriverInfo(ctx context.Context, infoCodes []xdbc.InfoCode) error {
	if len(infoCodes) > 0 && !slices.Contains(infoCodes, xdbc.InfoVendorVersion) {
		return nil
	}
	var err error
	c.db.engineVersion.Do(func() {
		var v string
		if err = c.conn.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v); err != nil {
			err = translate(&c.ErrorHelper, err)
			return
		}
		version := "SQLite " + v
		if infoVendorVersion != "" {
			version += " (modernc.org/sqlite " + infoVendorVersion + ")"
		}
		err = c.DriverInfo.RegisterInfoCode(xdbc.InfoVendorVersion, version)
	})
	return err
}

func (c *connectionImpl) NewStatement() (xdbc.Statement, error) {
	if err := c.CheckOpen(); err != nil {
		return nil, err
	}
	return driverbase.NewStatement(newStatement(c)), nil
}

func (c *connectionImpl) Close() error {
	ctx := context.Background()
	for _, v := range c.stmts.GetALL(false) {
		_ = v.(*sql.Stmt).Close()
	}
	c.stmts.Purge()

	if c.inTx {
		c.Logger.Warn("rolling back open transaction on close", "connection", c.id)
		if _, err := c.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
			c.Logger.Warn("rollback on close failed", "connection", c.id, "error", err)
		}
		c.inTx = false
	}
	c.Savepoints.EndTransaction()
	return translate(&c.ErrorHelper, c.conn.Close())
}
