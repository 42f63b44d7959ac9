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
	"errors"
	"fmt"
	"strconv"

	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/resultset"
	"github.com/spf13/cobra"
)

var depths = map[string]xdbc.ObjectDepth{
	"catalogs": xdbc.ObjectDepthCatalogs,
	"schemas":  xdbc.ObjectDepthDBSchemas,
	"tables":   xdbc.ObjectDepthTables,
	"columns":  xdbc.ObjectDepthColumns,
}

func newObjectsCmd(p *probe) *cobra.Command {
	var (
		schema, table, column string
		types                 []string
		depth                 string
	)
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "List catalog objects, flattened, as GetObjects returns them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			d, ok := depths[depth]
			if !ok {
				return fmt.Errorf("unknown --depth %q", depth)
			}
			ctx := cmd.Context()
			_, db, err := p.open()
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, db.Close()) }()

			cnxn, err := db.Open(ctx)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, cnxn.Close()) }()
			if err := p.runInit(ctx, cnxn); err != nil {
				return err
			}

			rdr, err := cnxn.GetObjects(ctx, d, nil, flagPattern(cmd, "schema", schema),
				flagPattern(cmd, "table", table), flagPattern(cmd, "column", column), types)
			if err != nil {
				return err
			}
			objs, err := resultset.ReadObjects(rdr)
			if err != nil {
				return err
			}
			printObjects(cmd, d, objs)
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "schema name pattern")
	cmd.Flags().StringVar(&table, "table", "", "table name pattern")
	cmd.Flags().StringVar(&column, "column", "", "column name pattern")
	cmd.Flags().StringSliceVar(&types, "type", nil, "table types to include (TABLE, VIEW, SYSTEM TABLE, SYNONYM)")
	cmd.Flags().StringVar(&depth, "depth", "columns", "catalogs, schemas, tables or columns")
	return cmd
}

// flagPattern returns nil for a flag that was never given, which
// matches everything, so that "--table ''" still means the empty pattern.
func flagPattern(cmd *cobra.Command, name, val string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &val
}

func printObjects(cmd *cobra.Command, depth xdbc.ObjectDepth, objs *resultset.Objects) {
	out := cmd.OutOrStdout()
	switch depth {
	case xdbc.ObjectDepthCatalogs:
		t := newTable("CATALOG")
		for _, c := range objs.Catalogs {
			t.AddRow(c)
		}
		fmt.Fprintln(out, t)
	case xdbc.ObjectDepthDBSchemas:
		t := newTable("CATALOG", "SCHEMA")
		for _, s := range objs.Schemas {
			t.AddRow(s.Catalog, s.Name)
		}
		fmt.Fprintln(out, t)
	case xdbc.ObjectDepthTables:
		t := newTable("SCHEMA", "TABLE", "TYPE")
		for _, tr := range objs.Tables {
			t.AddRow(tr.Schema, tr.Name, tr.Type)
		}
		fmt.Fprintln(out, t)
	default:
		t := newTable("SCHEMA", "TABLE", "TYPE", "COLUMN", "ORDINAL", "TYPE_NAME", "SIZE", "NULLABLE")
		for _, c := range objs.Columns {
			size := ""
			if c.ColumnSize != nil {
				size = strconv.Itoa(int(*c.ColumnSize))
			}
			t.AddRow(c.Table.Schema, c.Table.Name, c.Table.Type, c.Name, c.Ordinal, c.TypeName, size, c.IsNullable)
		}
		fmt.Fprintln(out, t)
	}
	fmt.Fprintf(out, "%d schemas, %d tables, %d columns\n", len(objs.Schemas), len(objs.Tables), len(objs.Columns))
}
