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


package pattern_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/apache/derby-conformance/go/xdbc/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern, value string
		want           bool
	}{
		{"", "", true},
		{"", "a", false},
		{"a", "", false},
		{"%", "", true},
		{"%", "anything at all", true},
		{"_", "", false},
		{"_", "x", true},
		{"_", "xy", false},
		{"__", "xy", true},
		{"one%", "one_dmd_test", true},
		{"one%", "ONE_DMD_TEST", false},
		{"%dmd%", "TWO_dmd_test", true},
		{"%_test", "_test", true},
		{"%_test", "test", false},
		{"%_test", "x_test", true},
		{"T_O%", "TWO_dmd_test", true},
		{"a%b%c", "aXXbYYc", true},
		{"a%b%c", "aXXcYYb", false},
		{"%%", "", true},
		{"\"four_dmd_test\"", "\"four_dmd_test\"", true},
		{"f%r", "f\nr", true},
		{"é_", "éa", true},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, pattern.Match(tt.pattern, tt.value))
			assert.Equal(t, tt.want, pattern.Compile(tt.pattern).MatchString(tt.value))
		})
	}
}

func TestMatchesFromOffsets(t *testing.T) {
	assert.True(t, pattern.Matches("xx_test", 2, "yyy_test", 3))
	assert.True(t, pattern.Matches("%", 0, "abc", 3))
	assert.False(t, pattern.Matches("a", 1, "ab", 1))
	assert.True(t, pattern.Matches("a", 1, "ab", 2))
}

const alphabet = "ab_%"

func randomString(r *rand.Rand, n int, chars string) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(chars[r.Intn(len(chars))])
	}
	return b.String()
}

func TestAgreesWithRegexp(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		p := randomString(r, r.Intn(6), alphabet)
		s := randomString(r, r.Intn(7), "ab_")
		require.Equal(t, pattern.Compile(p).MatchString(s), pattern.Match(p, s), "pattern %q value %q", p, s)
	}
}

func TestPercentAlwaysMatches(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		s := randomString(r, r.Intn(20), "xyz_%é")
		assert.True(t, pattern.Match("%", s))
		assert.True(t, pattern.Match("%%%", s))
	}
	assert.False(t, pattern.Match("_", ""))
}

func TestGenerateMatchesAnID(t *testing.T) {
	ids := []string{"one_dmd_test", "TWO_dmd_test", "ThReE_dmd_test", "\"four_dmd_test\"", "\"FIVE_dmd_test\"", "\"sIx_dmd_test\""}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		p := pattern.Generate(r, ids)
		assert.NotEmpty(t, pattern.Filter(&p, ids), "pattern %q matched nothing", p)
	}
	assert.Equal(t, "%", pattern.Generate(r, nil))
}

func TestFilter(t *testing.T) {
	values := []string{"APP", "SYS", "SYSIBM", "one"}
	assert.Equal(t, values, pattern.Filter(nil, values))
	p := "SYS%"
	assert.Equal(t, []string{"SYS", "SYSIBM"}, pattern.Filter(&p, values))
	empty := ""
	assert.Empty(t, pattern.Filter(&empty, values))
}
