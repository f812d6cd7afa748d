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

package filter

import (
	"context"
	"io"

	"github.com/jrivets/log4g"
	"github.com/logrange/tmfilter/pkg/rows"
)

type (
	// Iterator wraps a rows.Iterator and returns only the rows kept by the
	// Filter.
	Iterator struct {
		it     rows.Iterator
		flt    *Filter
		ex     *rows.Extractor
		skipIv bool
		row    rows.Row
		valid  bool
		stats  Stats
		logger log4g.Logger
	}

	// Stats contains the iterator counters
	Stats struct {
		Kept    int64
		Removed int64
		Skipped int64
	}
)

// NewIterator returns the filtering iterator. If skipInvalid is true, rows
// which could not be decoded or have no proper timestamps are skipped,
// otherwise the error is returned by Get().
func NewIterator(it rows.Iterator, flt *Filter, ex *rows.Extractor, skipInvalid bool) *Iterator {
	fit := new(Iterator)
	fit.it = it
	fit.flt = flt
	fit.ex = ex
	fit.skipIv = skipInvalid
	fit.logger = log4g.GetLogger("filter.Iterator")
	return fit
}

func (fit *Iterator) Next(ctx context.Context) {
	fit.it.Next(ctx)
	fit.valid = false
}

func (fit *Iterator) Get(ctx context.Context) (rows.Row, error) {
	for !fit.valid {
		r, err := fit.it.Get(ctx)
		if err == nil {
			var keep bool
			keep, err = fit.keep(r)
			if err == nil {
				if keep {
					fit.row = r
					fit.valid = true
					fit.stats.Kept++
					break
				}
				fit.stats.Removed++
			}
		}

		if err != nil {
			if err == io.EOF || !fit.skipIv || isCtxErr(err) {
				return rows.Row{}, err
			}
			fit.logger.Warn("Skipping the row, err=", err)
			fit.stats.Skipped++
		}
		fit.it.Next(ctx)
	}
	return fit.row, nil
}

func (fit *Iterator) Close() error {
	return fit.it.Close()
}

// Stats returns the number of rows kept, removed and skipped so far
func (fit *Iterator) Stats() Stats {
	return fit.stats
}

func (fit *Iterator) keep(r rows.Row) (bool, error) {
	st, end, err := fit.ex.Interval(r)
	if err != nil {
		return false, err
	}
	return fit.flt.Keep(st, end), nil
}

func isCtxErr(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded
}
