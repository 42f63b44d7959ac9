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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/derby-conformance/go/xdbc"
	"github.com/apache/derby-conformance/go/xdbc/driver/sqlite"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "XDBCPROBE"

// probe holds the settings shared by every subcommand.
type probe struct {
	cfgFile  string
	uri      string
	logLevel string
	init     []string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	p := &probe{}
	root := &cobra.Command{
		Use:           "xdbcprobe",
		Short:         "Inspect the reference XDBC driver",
		Long:          "Runs metadata, conversion and pattern checks against the SQLite reference driver.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := p.initConfig(cmd); err != nil {
				return err
			}
			return p.initLogging(cmd.ErrOrStderr())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVarP(&p.cfgFile, "config", "c", "",
		"config file (default is $HOME/.xdbcprobe.yaml)")
	flags.StringVar(&p.uri, "uri", "",
		"SQLite URI of the database to open (default is a fresh in-memory database)")
	flags.StringVar(&p.logLevel, "log-level", "warn",
		"logging level: debug, info, warn, error")
	flags.StringArrayVar(&p.init, "init", nil,
		"SQL statement to run before the command; may be repeated")

	root.AddCommand(
		newObjectsCmd(p),
		newMatrixCmd(),
		newMatchCmd(),
		newQueryCmd(p),
	)
	return root
}

// initConfig layers the config file and XDBCPROBE_* environment
// variables under the command line: a flag set explicitly always wins.
func (p *probe) initConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if p.cfgFile != "" {
		v.SetConfigFile(p.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".xdbcprobe")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}
		if f.Value.Type() == "stringArray" || f.Value.Type() == "stringSlice" {
			for _, s := range v.GetStringSlice(f.Name) {
				if err := cmd.Flags().Set(f.Name, s); err != nil {
					bindErr = err
					return
				}
			}
			return
		}
		bindErr = cmd.Flags().Set(f.Name, v.GetString(f.Name))
	})
	return bindErr
}

func (p *probe) initLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(p.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", p.logLevel, err)
	}
	p.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// open creates the reference driver and a database for --uri, logging
// through the --log-level handler.
func (p *probe) open() (xdbc.Driver, xdbc.Database, error) {
	drv := sqlite.NewDriver(memory.DefaultAllocator)
	opts := map[string]string{}
	if p.uri != "" {
		opts[xdbc.OptionKeyURI] = p.uri
	}
	db, err := drv.NewDatabase(opts)
	if err != nil {
		return nil, nil, err
	}
	if lg, ok := db.(xdbc.DatabaseLogging); ok && p.logger != nil {
		lg.SetLogger(p.logger)
		p.logger.Debug("opened database", "uri", p.uri)
	}
	return drv, db, nil
}

func (p *probe) runInit(ctx context.Context, cnxn xdbc.Connection) error {
	for _, query := range p.init {
		if err := execute(ctx, cnxn, query); err != nil {
			return fmt.Errorf("init %q: %w", query, err)
		}
	}
	return nil
}

func execute(ctx context.Context, cnxn xdbc.Connection, query string) (err error) {
	stmt, err := cnxn.NewStatement()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, stmt.Close())
	}()
	if err = stmt.SetSqlQuery(query); err != nil {
		return err
	}
	_, err = stmt.ExecuteUpdate(ctx)
	return err
}

var headerFmt = color.New(color.FgGreen, color.Underline).SprintFunc()

// newTable returns a table whose first row is the colored header.
func newTable(header ...string) *uitable.Table {
	t := uitable.New()
	t.MaxColWidth = 60
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = headerFmt(h)
	}
	t.AddRow(cells...)
	return t
}
