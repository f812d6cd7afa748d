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

package model

import (
	"fmt"
	"math"
	"time"
)

type (
	// TimeRange struct defines a half-open time interval [MinTs, MaxTs).
	// Both values are unix nanoseconds. No ordering between MinTs and MaxTs
	// is enforced, an inverted range just doesn't overlap anything.
	TimeRange struct {
		// MinTs contains minimum time in the interval value (inclusive)
		MinTs int64
		// MaxTs contains the first time value which is not in the interval
		MaxTs int64
	}
)

const (
	// MinTimestamp contains the minimum nanoseconds value
	MinTimestamp = int64(-6795364578871345152)
	MaxTimestamp = math.MaxInt64
)

var (
	minTime = time.Unix(0, MinTimestamp)
	maxTime = time.Unix(0, MaxTimestamp)
)

// NewTimeRange returns the [start, end) interval
func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{MinTs: Timestamp(start), MaxTs: Timestamp(end)}
}

// Timestamp returns t as unix nanoseconds. Values that don't fit into
// int64 are clamped to MinTimestamp or MaxTimestamp.
func Timestamp(t time.Time) int64 {
	if t.Before(minTime) {
		return MinTimestamp
	}
	if t.After(maxTime) {
		return MaxTimestamp
	}
	return t.UnixNano()
}

// Contains returns whether ts is in the range: MinTs <= ts < MaxTs
func (tr TimeRange) Contains(ts int64) bool {
	return tr.MinTs <= ts && ts < tr.MaxTs
}

// Overlaps returns true if tr and other have at least one common point.
// The check is strict on both sides, so a zero-length range overlaps another
// range only when the other one strictly straddles it, and never overlaps
// itself.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.MinTs < other.MaxTs && other.MinTs < tr.MaxTs
}

// Start returns MinTs as time.Time in UTC
func (tr TimeRange) Start() time.Time {
	return time.Unix(0, tr.MinTs).UTC()
}

// End returns MaxTs as time.Time in UTC
func (tr TimeRange) End() time.Time {
	return time.Unix(0, tr.MaxTs).UTC()
}

// Duration returns the range length, it is negative for inverted ranges and
// saturates for very long ones.
func (tr TimeRange) Duration() time.Duration {
	if tr.MinTs < 0 && tr.MaxTs > math.MaxInt64+tr.MinTs {
		return time.Duration(math.MaxInt64)
	}
	if tr.MinTs > 0 && tr.MaxTs < math.MinInt64+tr.MinTs {
		return time.Duration(math.MinInt64)
	}
	return time.Duration(tr.MaxTs - tr.MinTs)
}

// IsEmpty returns true if no timestamp is contained in the range
func (tr TimeRange) IsEmpty() bool {
	return tr.MinTs >= tr.MaxTs
}

func (tr TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", tr.Start().Format(time.RFC3339Nano), tr.End().Format(time.RFC3339Nano))
}
