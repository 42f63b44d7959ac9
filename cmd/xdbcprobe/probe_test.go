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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	color.NoColor = true
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestObjects(t *testing.T) {
	out, _, err := run(t, "objects",
		"--init", "CREATE TABLE T1 (A INTEGER NOT NULL, B VARCHAR(10))",
		"--init", "CREATE TABLE OTHER (C INTEGER)",
		"--schema", "APP", "--table", "T_")
	require.NoError(t, err)

	assert.Contains(t, out, "T1")
	assert.Contains(t, out, "VARCHAR")
	assert.NotContains(t, out, "OTHER")
	assert.Contains(t, out, "1 schemas, 1 tables, 2 columns")
}

func TestObjectsDepth(t *testing.T) {
	out, _, err := run(t, "objects", "--depth", "tables", "--type", "SYSTEM TABLE")
	require.NoError(t, err)
	assert.Contains(t, out, "SYSTEM TABLE")
	assert.Contains(t, out, "SYS")
	assert.NotContains(t, out, "COLUMN")

	_, _, err = run(t, "objects", "--depth", "rows")
	assert.ErrorContains(t, err, "unknown --depth")
}

func TestMatrix(t *testing.T) {
	out, _, err := run(t, "matrix", "getters")
	require.NoError(t, err)
	assert.Contains(t, out, "getUnicodeStream")
	assert.Contains(t, out, "LONGVARBINARY")

	out, _, err = run(t, "matrix", "setters")
	require.NoError(t, err)
	assert.Contains(t, out, "setBigDecimal")

	out, _, err = run(t, "matrix", "objects")
	require.NoError(t, err)
	assert.Contains(t, out, "BigInteger")

	_, _, err = run(t, "matrix", "casts")
	assert.ErrorContains(t, err, "unknown matrix")

	_, _, err = run(t, "matrix")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	out, _, err := run(t, "match", "T_%", "T1", "TABLE", "T")
	require.NoError(t, err)
	assert.Contains(t, out, `pattern "T_%"`)
	assert.Regexp(t, `T1\s+yes`, out)
	assert.Regexp(t, `TABLE\s+yes`, out)
	assert.Regexp(t, `(?m)^T\s+no`, out)

	_, _, err = run(t, "match", "%")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	out, _, err := run(t, "query", "SELECT A, B FROM Q ORDER BY A",
		"--init", "CREATE TABLE Q (A INTEGER, B VARCHAR(10))",
		"--init", "INSERT INTO Q VALUES (1, 'one')",
		"--init", "INSERT INTO Q (A) VALUES (2)")
	require.NoError(t, err)
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
}

func TestQueryError(t *testing.T) {
	_, _, err := run(t, "query", "SELECT * FROM MISSING")
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	_, _, err := run(t, "--log-level", "loud", "match", "%", "x")
	assert.ErrorContains(t, err, "invalid --log-level")

	_, stderr, err := run(t, "--log-level", "debug", "objects", "--depth", "catalogs")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
}

func TestEnvironment(t *testing.T) {
	t.Setenv("XDBCPROBE_LOG_LEVEL", "loud")
	_, _, err := run(t, "match", "%", "x")
	assert.ErrorContains(t, err, "invalid --log-level")

	// the command line wins over the environment
	_, _, err = run(t, "--log-level", "info", "match", "%", "x")
	assert.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "probe.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`init:
  - CREATE TABLE FROM_CONFIG (C INTEGER)
`), 0o600))

	out, _, err := run(t, "--config", cfg, "objects", "--depth", "tables", "--schema", "APP")
	require.NoError(t, err)
	assert.Contains(t, out, "FROM_CONFIG")

	_, _, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "match", "%", "x")
	assert.Error(t, err)
}
