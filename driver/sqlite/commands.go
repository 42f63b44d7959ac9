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

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/derby-conformance/go/xdbc"
)

// runCommand executes a statement the driver handles itself. Only CALL
// produces a result.
func (s *statementImpl) runCommand(ctx context.Context) (array.RecordReader, error) {
	c := s.cnxn
	cmd := s.cmd
	c.Logger.Debug("running intercepted statement", "connection", c.id, "query", s.query)

	switch {
	case cmd.Savepoint != nil:
		return nil, c.Savepoints.SetSQL(ctx, c, c.Autocommit, cmd.Savepoint.Name.value(true))
	case cmd.Release != nil:
		return nil, c.Savepoints.ReleaseSQL(ctx, c, c.Autocommit, cmd.Release.Name.value(true))
	case cmd.Rollback != nil && cmd.Rollback.To != nil:
		return nil, c.Savepoints.RollbackToSQL(ctx, c, c.Autocommit, cmd.Rollback.To.value(true))
	case cmd.Rollback != nil:
		return nil, s.endTransaction(ctx, "ROLLBACK")
	case cmd.Commit != nil:
		return nil, s.endTransaction(ctx, "COMMIT")
	case cmd.CreateSchema != nil:
		return nil, s.schemaDDL(ctx, func() error {
			return c.db.createSchema(ctx, cmd.CreateSchema.value(false))
		})
	case cmd.DropSchema != nil:
		name := cmd.DropSchema.value(false)
		return nil, s.schemaDDL(ctx, func() error {
			if _, ok := c.db.lookupSchema(name); ok {
				tables, err := c.listTables(ctx, name)
				if err != nil {
					return err
				}
				if len(tables) > 0 {
					return c.ErrorHelper.StateErrorf(xdbc.StateSchemaNotEmpty,
						"Cannot drop schema '%s' because it is not empty.", name)
				}
			}
			return c.db.dropSchema(ctx, name)
		})
	case cmd.Truncate != nil:
		if err := c.begin(ctx); err != nil {
			return nil, err
		}
		_, err := c.conn.ExecContext(ctx, "DELETE FROM "+cmd.Truncate.sql())
		return nil, c.fail(ctx, err)
	case cmd.Call != nil:
		if err := c.syncSchemas(ctx); err != nil {
			return nil, err
		}
		params, err := s.firstParams()
		if err != nil {
			return nil, err
		}
		return c.call(ctx, cmd.Call, params)
	}
	return nil, s.ErrorHelper.StateErrorf(xdbc.StateSyntaxError, "Syntax error: %s", s.query)
}

// endTransaction runs a COMMIT or ROLLBACK statement. Under autocommit
// there is nothing to end.
func (s *statementImpl) endTransaction(ctx context.Context, verb string) error {
	c := s.cnxn
	if c.Autocommit {
		return nil
	}
	if err := c.endTx(ctx, verb); err != nil {
		return err
	}
	c.Savepoints.EndTransaction()
	return nil
}

// schemaDDL runs fn outside of any transaction. Schema changes commit
// the open transaction first, as other DDL does in Derby.
func (s *statementImpl) schemaDDL(ctx context.Context, fn func() error) error {
	c := s.cnxn
	if c.inTx {
		if err := c.endTx(ctx, "COMMIT"); err != nil {
			return err
		}
		c.Savepoints.EndTransaction()
	}
	if err := fn(); err != nil {
		return err
	}
	return c.syncSchemas(ctx)
}
