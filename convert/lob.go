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


package convert

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/apache/derby-conformance/go/xdbc"
)

// Clob is a character large object value.
type Clob struct{ data string }

func NewClob(s string) *Clob { return &Clob{data: s} }

// Length is the length in characters.
func (c *Clob) Length() int64 { return int64(utf8.RuneCountInString(c.data)) }

// SubString returns up to n characters starting at the 1-based pos.
func (c *Clob) SubString(pos int64, n int) (string, error) {
	if pos < 1 || n < 0 {
		return "", xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateLOBPosition,
			"invalid position %d or length %d", pos, n)
	}
	runes := []rune(c.data)
	if pos > int64(len(runes))+1 {
		return "", xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateLOBPosition,
			"position %d exceeds the length of the LOB", pos)
	}
	end := min(int(pos-1)+n, len(runes))
	return string(runes[pos-1 : end]), nil
}

func (c *Clob) CharacterStream() io.Reader { return strings.NewReader(c.data) }

func (c *Clob) String() string { return c.data }

// Blob is a binary large object value.
type Blob struct{ data []byte }

func NewBlob(b []byte) *Blob { return &Blob{data: append([]byte(nil), b...)} }

func (b *Blob) Length() int64 { return int64(len(b.data)) }

// Bytes returns up to n bytes starting at the 1-based pos.
func (b *Blob) Bytes(pos int64, n int) ([]byte, error) {
	if pos < 1 || n < 0 || pos > int64(len(b.data))+1 {
		return nil, xdbc.NewSQLError(xdbc.StatusInvalidArgument, xdbc.StateLOBPosition,
			"invalid position %d or length %d", pos, n)
	}
	end := min(int(pos-1)+n, len(b.data))
	return append([]byte(nil), b.data[pos-1:end]...), nil
}

func (b *Blob) BinaryStream() io.Reader { return bytes.NewReader(b.data) }
