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

package rows

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kr/logfmt"
	rbytes "github.com/logrange/range/pkg/utils/bytes"
	"github.com/pkg/errors"
)

type (
	// reader decodes rows from an input stream line by line
	reader struct {
		r       *bufio.Reader
		c       io.Closer
		decode  decodeF
		num     int
		partial bool
		row     Row
		rowErr  error
		err     error
		valid   bool
	}

	decodeF func(line []byte, flds map[string]string) error

	logfmtFields map[string]string
)

const (
	// MinRecordSize is the minimal record size allowed
	MinRecordSize = 64
)

// NewReader returns an Iterator which decodes rows from r in accordance with
// the format. Lines longer than maxRecSize are split into several records.
// Empty lines are skipped. If r implements io.Closer, it is closed by Close()
// of the Iterator.
func NewReader(r io.Reader, frmt Format, maxRecSize int) (Iterator, error) {
	var dec decodeF
	switch frmt {
	case FmtLogfmt:
		dec = decodeLogfmt
	case FmtJson:
		dec = decodeJson
	default:
		return nil, fmt.Errorf("unsupported data format %q", frmt)
	}

	if maxRecSize < MinRecordSize {
		maxRecSize = MinRecordSize
	}

	rd := new(reader)
	rd.r = bufio.NewReaderSize(r, maxRecSize)
	rd.decode = dec
	if c, ok := r.(io.Closer); ok {
		rd.c = c
	}
	return rd, nil
}

func (rd *reader) Next(ctx context.Context) {
	rd.valid = false
	rd.row = Row{}
	rd.rowErr = nil
}

func (rd *reader) Get(ctx context.Context) (Row, error) {
	if rd.valid {
		return rd.row, rd.rowErr
	}
	if rd.err != nil {
		return Row{}, rd.err
	}

	for {
		if ctx != nil && ctx.Err() != nil {
			return Row{}, ctx.Err()
		}

		line, err := rd.readLine()
		if err != nil {
			rd.err = err
			return Row{}, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		flds := make(map[string]string)
		if err = rd.decode(line, flds); err != nil {
			// the row is consumed, so Next() is the way to skip it
			rd.valid = true
			rd.row = Row{Num: rd.num, Data: line}
			rd.rowErr = errors.Wrapf(err, "could not decode row #%d", rd.num)
			return rd.row, rd.rowErr
		}

		rd.row = Row{Num: rd.num, Fields: flds, Data: line}
		rd.valid = true
		return rd.row, nil
	}
}

func (rd *reader) Close() error {
	rd.err = io.EOF
	rd.valid = false
	if rd.c != nil {
		return rd.c.Close()
	}
	return nil
}

// readLine returns the next record. Fragments of a line longer than the
// buffer are returned one by one and share the line number.
func (rd *reader) readLine() ([]byte, error) {
	line, err := rd.r.ReadSlice('\n')
	if err != nil && err != bufio.ErrBufferFull && (err != io.EOF || len(line) == 0) {
		return nil, err
	}
	if !rd.partial {
		rd.num++
	}
	rd.partial = err == bufio.ErrBufferFull
	return rbytes.BytesCopy(line), nil
}

func decodeLogfmt(line []byte, flds map[string]string) error {
	return logfmt.Unmarshal(line, logfmtFields(flds))
}

func (lf logfmtFields) HandleLogfmt(key, val []byte) error {
	lf[string(key)] = string(val)
	return nil
}

func decodeJson(line []byte, flds map[string]string) error {
	var obj map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return err
	}

	for k, v := range obj {
		switch vv := v.(type) {
		case nil:
			flds[k] = ""
		case string:
			flds[k] = vv
		case json.Number:
			flds[k] = vv.String()
		case bool:
			flds[k] = fmt.Sprint(vv)
		default:
			buf, err := json.Marshal(vv)
			if err != nil {
				return err
			}
			flds[k] = rbytes.ByteArrayToString(buf)
		}
	}
	return nil
}
