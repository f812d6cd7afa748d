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
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, it Iterator) []Row {
	var res []Row
	ctx := context.Background()
	for {
		r, err := it.Get(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		res = append(res, r)
		it.Next(ctx)
	}
	return res
}

func TestReaderLogfmt(t *testing.T) {
	in := "ts=2024-03-05T00:00:00Z te=2024-03-05T01:00:00Z msg=\"hello world\"\n" +
		"\n" +
		"ts=2024-02-01T00:00:00Z level=debug"
	it, err := NewReader(strings.NewReader(in), FmtLogfmt, 4096)
	require.NoError(t, err)

	rs := readAll(t, it)
	require.Len(t, rs, 2)
	assert.Equal(t, 1, rs[0].Num)
	assert.Equal(t, "hello world", rs[0].Fields["msg"])
	assert.Equal(t, "2024-03-05T01:00:00Z", rs[0].Fields["te"])
	assert.Equal(t, `ts=2024-03-05T00:00:00Z te=2024-03-05T01:00:00Z msg="hello world"`, string(rs[0].Data))

	assert.Equal(t, 3, rs[1].Num)
	v, ok := rs[1].Value("level")
	assert.True(t, ok)
	assert.Equal(t, "debug", v)
	_, ok = rs[1].Value("te")
	assert.False(t, ok)
	assert.NoError(t, it.Close())
}

func TestReaderJson(t *testing.T) {
	in := `{"ts": "2024-03-05T00:00:00Z", "n": 12345678901234, "ok": true, "nil": null, "obj": {"a": 1}}` + "\n" +
		`{"ts": 1709596800}`
	it, err := NewReader(strings.NewReader(in), FmtJson, 4096)
	require.NoError(t, err)

	rs := readAll(t, it)
	require.Len(t, rs, 2)
	assert.Equal(t, "2024-03-05T00:00:00Z", rs[0].Fields["ts"])
	assert.Equal(t, "12345678901234", rs[0].Fields["n"])
	assert.Equal(t, "true", rs[0].Fields["ok"])
	assert.Equal(t, "", rs[0].Fields["nil"])
	assert.Equal(t, `{"a":1}`, rs[0].Fields["obj"])
	assert.Equal(t, "1709596800", rs[1].Fields["ts"])
}

func TestReaderLongLines(t *testing.T) {
	long := "b=" + strings.Repeat("x", 98)
	in := "a=1\n" + long + "\nc=3\n" + long
	it, err := NewReader(strings.NewReader(in), FmtLogfmt, MinRecordSize)
	require.NoError(t, err)

	rs := readAll(t, it)
	nums := make([]int, len(rs))
	data := ""
	for i, r := range rs {
		nums[i] = r.Num
		if r.Num == 2 {
			data += string(r.Data)
		}
	}
	// the fragments of a long line keep its line number
	assert.Equal(t, []int{1, 2, 2, 3, 4, 4}, nums)
	assert.Equal(t, long, data)
	assert.Equal(t, "3", rs[3].Fields["c"])
}

func TestReaderDecodeError(t *testing.T) {
	in := "{\"ts\": 1}\nnot a json\n{\"ts\": 2}\n"
	it, err := NewReader(strings.NewReader(in), FmtJson, 4096)
	require.NoError(t, err)
	ctx := context.Background()

	r, err := it.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "1", r.Fields["ts"])
	it.Next(ctx)

	r, err = it.Get(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "#2")
	assert.Equal(t, 2, r.Num)
	it.Next(ctx)

	r, err = it.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "2", r.Fields["ts"])
	it.Next(ctx)

	_, err = it.Get(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestReaderGetIsIdempotent(t *testing.T) {
	it, err := NewReader(strings.NewReader("a=1\na=2\n"), FmtLogfmt, 0)
	require.NoError(t, err)
	ctx := context.Background()

	r1, err := it.Get(ctx)
	assert.NoError(t, err)
	r2, err := it.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestReaderCancelled(t *testing.T) {
	it, err := NewReader(strings.NewReader("a=1\n"), FmtLogfmt, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = it.Get(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestNewReaderUnknownFormat(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), Format("csv"), 0)
	assert.Error(t, err)
}

func TestToFormat(t *testing.T) {
	f, err := ToFormat(" JSON ")
	assert.NoError(t, err)
	assert.Equal(t, FmtJson, f)

	f, err = ToFormat("logfmt")
	assert.NoError(t, err)
	assert.Equal(t, FmtLogfmt, f)

	_, err = ToFormat("text")
	assert.Error(t, err)
}

func TestSliceIterator(t *testing.T) {
	rs := []Row{{Num: 1}, {Num: 2}}
	it := NewSliceIterator(rs)
	assert.Equal(t, rs, readAll(t, it))
	it.Next(nil)
	_, err := it.Get(nil)
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, it.Close())
}
