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
	"testing"

	"github.com/apache/derby-conformance/go/xdbc/driver/internal"
	"github.com/stretchr/testify/assert"
)

func TestDeclaredConstraints(t *testing.T) {
	ddl := `CREATE TABLE reftab (vc10 VARCHAR(10), i INT CONSTRAINT ifk REFERENCES kt1 (i),
		dprim DECIMAL(5,1) NOT NULL CONSTRAINT "pk Ref" PRIMARY KEY,
		dfor DECIMAL(5,1) NOT NULL,
		CONSTRAINT FKEYSELF FOREIGN KEY (dfor) REFERENCES reftab,
		CONSTRAINT UQ UNIQUE (vc10 ASC, i DESC),
		UNIQUE (dfor),
		CONSTRAINT CK CHECK (i > 0))`

	got := declaredConstraints(ddl)
	want := []keyConstraint{
		{name: "ifk", kind: internal.ForeignKey, columns: []string{"i"}},
		{name: "pk Ref", kind: internal.PrimaryKey, columns: []string{"dprim"}},
		{name: "FKEYSELF", kind: internal.ForeignKey, columns: []string{"dfor"}},
		{name: "UQ", kind: internal.Unique, columns: []string{"vc10", "i"}},
	}
	assert.Equal(t, want, got)

	k, ok := findConstraint(got, internal.Unique, []string{"VC10", "I"})
	assert.True(t, ok)
	assert.Equal(t, "UQ", k.name)
	_, ok = findConstraint(got, internal.Unique, []string{"dfor"})
	assert.False(t, ok)

	assert.Empty(t, declaredConstraints("CREATE TABLE t (a INT)"))
}

func TestReferentialAction(t *testing.T) {
	assert.EqualValues(t, keyNoAction, referentialAction("NO ACTION"))
	assert.EqualValues(t, keyCascade, referentialAction("cascade"))
	assert.EqualValues(t, keySetNull, referentialAction("SET NULL"))
	assert.EqualValues(t, keySetDefault, referentialAction("SET DEFAULT"))
	assert.EqualValues(t, keyRestrict, referentialAction("RESTRICT"))
}
