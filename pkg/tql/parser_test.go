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

package tql

import (
	"testing"

	"github.com/logrange/tmfilter/pkg/pipeline"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testOk(t, `RANGE "Last 7 days"`, Query{Range: "Last 7 days"})
	testOk(t, `range 'Today' start ts`, Query{Range: "Today", Start: "ts"})
	testOk(t, `RANGE "Yesterday" START ts END te`, Query{Range: "Yesterday", Start: "ts", End: "te"})
	testOk(t, `RANGE "Yesterday" START "start time" END event.end`, Query{Range: "Yesterday", Start: "start time", End: "event.end"})
	testOk(t, `RANGE "Next 7 days" AT "2024-03-15T14:30:00Z"`, Query{Range: "Next 7 days", At: "2024-03-15T14:30:00Z"})
	testOk(t, "RANGE \"All time\"\n  START starts END ending at '1710513000'", Query{Range: "All time", Start: "starts", End: "ending", At: "1710513000"})
	testOk(t, `RANGE "say \"hi\""`, Query{Range: `say "hi"`})
	testOk(t, `RANGE "Today" START start-time END end-time`, Query{Range: "Today", Start: "start-time", End: "end-time"})
	testOk(t, `RANGE "Today" START at-ts END range.end`, Query{Range: "Today", Start: "at-ts", End: "range.end"})
}

func TestParseErrors(t *testing.T) {
	testErr(t, "")
	testErr(t, "   ")
	testErr(t, "RANGE")
	testErr(t, "RANGE Today")
	testErr(t, `START ts RANGE "Today"`)
	testErr(t, `RANGE "Today" END`)
	testErr(t, `RANGE "Today" AT now`)
	testErr(t, `RANGE "Today" LIMIT 10`)
}

func TestString(t *testing.T) {
	q := &Query{Range: "Last 7 days", Start: "ts", End: "te", At: "2024-03-15"}
	assert.Equal(t, `RANGE "Last 7 days" START "ts" END "te" AT "2024-03-15"`, q.String())

	q2, err := Parse(q.String())
	assert.NoError(t, err)
	assert.Equal(t, q, q2)

	q = &Query{Range: `a"b`}
	q2, err = Parse(q.String())
	assert.NoError(t, err)
	assert.Equal(t, q, q2)
}

func testOk(t *testing.T, tql string, exp Query) {
	q, err := Parse(tql)
	if !assert.NoError(t, err, tql) {
		return
	}
	assert.Equal(t, exp, *q, tql)
}

func testErr(t *testing.T, tql string) {
	_, err := Parse(tql)
	assert.Error(t, err, tql)
}

func TestApply(t *testing.T) {
	cfg := pipeline.NewDefaultConfig()
	q, err := Parse(`RANGE "Yesterday" END te AT "2024-03-15T14:30:00Z"`)
	assert.NoError(t, err)
	assert.NoError(t, q.Apply(cfg))
	assert.Equal(t, ranges.Yesterday, cfg.Range)
	assert.Equal(t, "ts", cfg.StartField)
	assert.Equal(t, "te", cfg.EndField)
	assert.Equal(t, "2024-03-15T14:30:00Z", cfg.Now)

	q, err = Parse(`RANGE "Today" START te`)
	assert.NoError(t, err)
	assert.Error(t, q.Apply(cfg))
	assert.Equal(t, ranges.Yesterday, cfg.Range)

	cfg.StrictRange = true
	q, err = Parse(`RANGE "yesterday"`)
	assert.NoError(t, err)
	assert.Error(t, q.Apply(cfg))
}
