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

	"github.com/apache/derby-conformance/go/xdbc/pattern"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <pattern> <value>...",
		Short: "Match values against a metadata search pattern",
		Long:  "Matches each value against a pattern where % is any run of characters and _ is exactly one.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pat := args[0]
			re := pattern.Compile(pat)
			table := newTable("VALUE", "MATCH")
			for _, v := range args[1:] {
				m := pattern.Match(pat, v)
				if m != re.MatchString(v) {
					return fmt.Errorf("matcher and regexp disagree on %q", v)
				}
				mark := color.RedString("no")
				if m {
					mark = color.GreenString("yes")
				}
				table.AddRow(v, mark)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pattern %q (regexp %s)\n", pat, re)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
