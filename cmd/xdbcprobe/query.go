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


package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/apache/derby-conformance/go/xdbc/sqldriver"
	"github.com/spf13/cobra"
)

func newQueryCmd(p *probe) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query through database/sql and print the rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			drv, db, err := p.open()
			if err != nil {
				return err
			}
			// closing the pool closes db
			pool := sql.OpenDB(sqldriver.NewConnector(drv, db))
			defer func() { err = errors.Join(err, pool.Close()) }()

			// --init and the query run on the same connection
			conn, err := pool.Conn(ctx)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, conn.Close()) }()
			for _, q := range p.init {
				if _, err := conn.ExecContext(ctx, q); err != nil {
					return fmt.Errorf("init %q: %w", q, err)
				}
			}

			rows, err := conn.QueryContext(ctx, args[0])
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, rows.Close()) }()

			n, err := printRows(cmd, rows)
			if err != nil {
				return err
			}
			p.logger.Info("query finished", "rows", n)
			return nil
		},
	}
}

func printRows(cmd *cobra.Command, rows *sql.Rows) (int, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	table := newTable(cols...)
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		cells := make([]interface{}, len(vals))
		for i, v := range vals {
			switch v := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = fmt.Sprintf("%x", v)
			default:
				cells[i] = v
			}
		}
		table.AddRow(cells...)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	fmt.Fprintf(cmd.OutOrStdout(), "(%d rows)\n", n)
	return n, nil
}
