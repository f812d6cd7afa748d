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

// Package filter decides whether a row interval overlaps the reference
// interval of a named time range. A Filter is configured once per session
// and then asked about every row independently.
package filter

import (
	"time"

	"github.com/logrange/tmfilter/pkg/model"
	"github.com/logrange/tmfilter/pkg/ranges"
)

type (
	// Filter holds the resolved reference interval. It is immutable and can be
	// used from many go-routines concurrently.
	Filter struct {
		name   string
		now    time.Time
		tr     model.TimeRange
		hasEnd bool
	}

	// KeepFunc returns true if the row interval [start, end) must be kept
	KeepFunc func(start, end int64) bool
)

// Configure resolves rangeName against now using the catalog provided and
// returns the Filter. Unknown names are resolved to the catalog default
// range. If hasEndColumn is false, the row end is ignored and the row is
// considered as an instant event at its start.
func Configure(cat *ranges.Catalog, now time.Time, rangeName string, hasEndColumn bool) *Filter {
	return newFilter(rangeName, now, cat.Resolve(rangeName, now), hasEndColumn)
}

// ConfigureStrict works like Configure, but returns an error if rangeName is
// not in the catalog.
func ConfigureStrict(cat *ranges.Catalog, now time.Time, rangeName string, hasEndColumn bool) (*Filter, error) {
	tr, err := cat.ResolveStrict(rangeName, now)
	if err != nil {
		return nil, err
	}
	return newFilter(rangeName, now, tr, hasEndColumn), nil
}

// NewFilter returns the Filter for the reference interval provided
func NewFilter(tr model.TimeRange, hasEndColumn bool) *Filter {
	return newFilter("", time.Time{}, tr, hasEndColumn)
}

func newFilter(name string, now time.Time, tr model.TimeRange, hasEnd bool) *Filter {
	return &Filter{name: name, now: now, tr: tr, hasEnd: hasEnd}
}

// Keep returns true if the row interval [start, end) overlaps the reference
// interval.
func (f *Filter) Keep(start, end time.Time) bool {
	return f.KeepTs(model.Timestamp(start), model.Timestamp(end))
}

// KeepTs is the same as Keep, but for unix nanoseconds
func (f *Filter) KeepTs(start, end int64) bool {
	if !f.hasEnd {
		end = start
	}
	return f.tr.Overlaps(model.TimeRange{MinTs: start, MaxTs: end})
}

// KeepFunc returns the filter decision as a function
func (f *Filter) KeepFunc() KeepFunc {
	return f.KeepTs
}

// Range returns the reference interval
func (f *Filter) Range() model.TimeRange {
	return f.tr
}

// Name returns the range name the filter was configured by, it is empty for
// filters created by NewFilter
func (f *Filter) Name() string {
	return f.name
}

// Now returns the reference instant
func (f *Filter) Now() time.Time {
	return f.now
}

// HasEnd returns whether the row end is taken into account
func (f *Filter) HasEnd() bool {
	return f.hasEnd
}

func (f *Filter) String() string {
	return "{name=" + f.name + ", range=" + f.tr.String() + "}"
}
