// Copyright 2018-2019 The logrange Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rows contains the row model and row sources. A row is one record
// of an input stream with named fields, two of them carry the row start and
// end timestamps.
package rows

import (
	"context"
	"fmt"
	"io"
	"strings"
)

type (
	// Row struct is one decoded record of the input
	Row struct {
		// Num is the row number in the input stream, starting from 1
		Num int

		// Fields contains the decoded row fields
		Fields map[string]string

		// Data contains the original record as it was read, without the line
		// terminator
		Data []byte
	}

	// Iterator interface provides methods for iterating over a collection of rows
	Iterator interface {
		io.Closer

		// Next switches to the next row, if any
		Next(ctx context.Context)

		// Get returns the current row or an error if any. It returns io.EOF when
		// end of the collection is reached. Get called several times without
		// Next in between returns the same result.
		Get(ctx context.Context) (Row, error)
	}

	// Format defines how a line of the input is decoded into the row fields
	Format string

	sliceIterator struct {
		rows []Row
		idx  int
	}
)

const (
	FmtLogfmt Format = "logfmt"
	FmtJson   Format = "json"
)

// ToFormat turns the string into Format
func ToFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FmtLogfmt, FmtJson:
		return f, nil
	}
	return "", fmt.Errorf("unknown data format %q, expected one of %q", s, []Format{FmtLogfmt, FmtJson})
}

// Value returns the field value and whether the field is present
func (r Row) Value(fld string) (string, bool) {
	v, ok := r.Fields[fld]
	return v, ok
}

func (r Row) String() string {
	return fmt.Sprintf("{Num=%d, Fields=%v}", r.Num, r.Fields)
}

// NewSliceIterator returns an Iterator over the rows provided
func NewSliceIterator(rows []Row) Iterator {
	return &sliceIterator{rows: rows}
}

func (si *sliceIterator) Next(ctx context.Context) {
	if si.idx < len(si.rows) {
		si.idx++
	}
}

func (si *sliceIterator) Get(ctx context.Context) (Row, error) {
	if si.idx < len(si.rows) {
		return si.rows[si.idx], nil
	}
	return Row{}, io.EOF
}

func (si *sliceIterator) Close() error {
	return nil
}
