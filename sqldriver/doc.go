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

// Package sqldriver is a wrapper around the xdbc interfaces to support
// the standard golang database/sql package, described here:
// https://go.dev/src/database/sql/doc.txt
//
// Any xdbc driver can then be used with database/sql without a second
// driver implementation. Registering the driver is done with
//
//	sql.Register("drivername", sqldriver.Driver{xdbcDriver})
//
// or, for a database that is already configured, with
// sql.OpenDB(sqldriver.NewConnector(xdbcDriver, db)).
//
// Arguments are bound with the conversion rules of the matching
// setObject call (see package param); nil binds NULL typed as the
// parameter's column. DECIMAL results are returned as strings so that
// no precision is lost.
//
// The xdbc connection behind a database/sql connection is reachable
// through sql.Conn.Raw together with Connection and Prepare. Statements
// returned by Prepare implement xdbc.StatementCloseOnCompletion.
package sqldriver
