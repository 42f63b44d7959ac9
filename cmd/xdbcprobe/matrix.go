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
	"fmt"

	"github.com/apache/derby-conformance/go/xdbc/sqltypes"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	allowedMark    = color.New(color.FgGreen).Sprint("Y")
	disallowedMark = color.New(color.FgRed).Sprint("_")
)

func newMatrixCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "matrix getters|setters|objects",
		Short:     "Print a conversion matrix against every SQL type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"getters", "setters", "objects"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []fmt.Stringer
			var allowed func(i int, t sqltypes.SQLType) bool
			switch args[0] {
			case "getters":
				for _, g := range sqltypes.AllGetters {
					rows = append(rows, g)
				}
				allowed = func(i int, t sqltypes.SQLType) bool {
					return sqltypes.GetterAllowed(sqltypes.AllGetters[i], t)
				}
			case "setters":
				for _, s := range sqltypes.AllSetters {
					rows = append(rows, s)
				}
				allowed = func(i int, t sqltypes.SQLType) bool {
					return sqltypes.SetterAllowed(sqltypes.AllSetters[i], t)
				}
			case "objects":
				for _, k := range sqltypes.AllObjectKinds {
					rows = append(rows, k)
				}
				allowed = func(i int, t sqltypes.SQLType) bool {
					return sqltypes.ObjectAllowed(sqltypes.AllObjectKinds[i], t)
				}
			default:
				return fmt.Errorf("unknown matrix %q: want getters, setters or objects", args[0])
			}
			printMatrix(cmd, rows, allowed)
			return nil
		},
	}
}

func printMatrix(cmd *cobra.Command, rows []fmt.Stringer, allowed func(int, sqltypes.SQLType) bool) {
	header := []string{""}
	for _, t := range sqltypes.AllTypes {
		header = append(header, t.String())
	}
	table := newTable(header...)
	for i, r := range rows {
		cells := []interface{}{r.String()}
		for _, t := range sqltypes.AllTypes {
			if allowed(i, t) {
				cells = append(cells, allowedMark)
			} else {
				cells = append(cells, disallowedMark)
			}
		}
		table.AddRow(cells...)
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
}
