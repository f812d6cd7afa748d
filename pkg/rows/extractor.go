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
	"fmt"
	"time"

	"github.com/logrange/tmfilter/pkg/timestamp"
	"github.com/pkg/errors"
)

// Extractor reads the row interval boundaries from the row fields
type Extractor struct {
	startFld string
	endFld   string
	tp       *timestamp.Parser
}

// NewExtractor creates the Extractor. endFld can be empty, then the row end
// is the row start.
func NewExtractor(startFld, endFld string, tp *timestamp.Parser) (*Extractor, error) {
	if startFld == "" {
		return nil, fmt.Errorf("start field name must be provided")
	}
	if tp == nil {
		tp = timestamp.NewDefaultParser()
	}
	return &Extractor{startFld: startFld, endFld: endFld, tp: tp}, nil
}

// HasEnd returns whether the end field is configured
func (e *Extractor) HasEnd() bool {
	return e.endFld != ""
}

// Interval returns start and end timestamps of the row
func (e *Extractor) Interval(r Row) (start, end time.Time, err error) {
	start, err = e.timestamp(r, e.startFld)
	if err != nil {
		return
	}

	if !e.HasEnd() {
		return start, start, nil
	}

	end, err = e.timestamp(r, e.endFld)
	return
}

func (e *Extractor) timestamp(r Row, fld string) (time.Time, error) {
	v, ok := r.Value(fld)
	if !ok {
		return time.Time{}, fmt.Errorf("row #%d has no field %q", r.Num, fld)
	}

	tm, err := e.tp.Parse(v)
	if err != nil {
		return tm, errors.Wrapf(err, "row #%d, field %q", r.Num, fld)
	}
	return tm, nil
}

// Earlier is the SelectF which orders rows by their start time. Rows with
// no valid start time go first.
func (e *Extractor) Earlier(r1, r2 Row) bool {
	st1, err := e.timestamp(r1, e.startFld)
	if err != nil {
		return true
	}
	st2, err := e.timestamp(r2, e.startFld)
	if err != nil {
		return false
	}
	return !st2.Before(st1)
}
