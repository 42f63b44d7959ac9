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


// Package pattern implements the search patterns accepted by catalog
// methods such as GetObjects: "_" matches exactly one character, "%"
// matches any run of characters, everything else matches itself.
// Matching is case sensitive and there is no escape character.
package pattern

import (
	"math/rand"
	"regexp"
	"strings"
)

const (
	anyOne  = '_'
	anyMany = '%'
)

// Match reports whether s matches pattern in full.
func Match(pattern, s string) bool {
	return Matches(pattern, 0, s, 0)
}

// Matches reports whether the suffix of result starting at rune
// offset rp matches the suffix of pattern starting at rune offset pp.
func Matches(pattern string, pp int, result string, rp int) bool {
	return matchRunes([]rune(pattern), pp, []rune(result), rp)
}

func matchRunes(p []rune, pp int, r []rune, rp int) bool {
	for ; pp < len(p); pp++ {
		switch p[pp] {
		case anyOne:
			if rp >= len(r) {
				return false
			}
			rp++
		case anyMany:
			if pp == len(p)-1 {
				return true
			}
			for split := rp; split <= len(r); split++ {
				if matchRunes(p, pp+1, r, split) {
					return true
				}
			}
			return false
		default:
			if rp >= len(r) || p[pp] != r[rp] {
				return false
			}
			rp++
		}
	}
	return rp >= len(r)
}

// Compile returns an anchored regular expression equivalent to pattern.
func Compile(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, c := range pattern {
		switch c {
		case anyOne:
			b.WriteByte('.')
		case anyMany:
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteByte('$')
	return regexp.MustCompile(b.String())
}

// Generate returns a random search pattern that matches at least one of
// ids. A literal prefix of a randomly chosen id is kept, optionally
// with one character replaced by "_", and the rest is either "%" or
// the unchanged remainder.
func Generate(r *rand.Rand, ids []string) string {
	if len(ids) == 0 {
		return "%"
	}
	id := []rune(ids[r.Intn(len(ids))])
	if len(id) == 0 {
		return "%"
	}
	cut := r.Intn(len(id) + 1)
	prefix := append([]rune(nil), id[:cut]...)
	if cut > 0 && r.Intn(2) == 0 {
		prefix[r.Intn(cut)] = anyOne
	}
	switch r.Intn(3) {
	case 0:
		return string(prefix) + "%"
	case 1:
		return string(prefix) + string(id[cut:])
	default:
		return "%" + string(id[cut:])
	}
}

// Filter returns the elements of values matched by pattern. A nil
// pattern matches everything.
func Filter(pattern *string, values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if pattern == nil || Match(*pattern, v) {
			out = append(out, v)
		}
	}
	return out
}
