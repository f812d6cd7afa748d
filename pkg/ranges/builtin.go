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

package ranges

import (
	"time"

	"github.com/logrange/tmfilter/pkg/model"
)

const (
	AllTime     = "All time"
	Today       = "Today"
	ThisMonth   = "This month"
	ThisYear    = "This year"
	LastHour    = "Last hour"
	Last24Hours = "Last 24 hours"
	Yesterday   = "Yesterday"
	Last7Days   = "Last 7 days"
	Last30Days  = "Last 30 days"
	Tomorrow    = "Tomorrow"
	Next7Days   = "Next 7 days"
	Next30Days  = "Next 30 days"
)

// NewDefaultCatalog returns the catalog of the known relative ranges. "All
// time" is the first one, so unknown names resolve to it.
//
// Day boundaries are midnights in the location of the reference instant,
// days are added as calendar days.
func NewDefaultCatalog() *Catalog {
	c, err := NewCatalog(
		NamedRange{AllTime, allTime},
		NamedRange{Today, func(now time.Time) model.TimeRange {
			return model.NewTimeRange(dayStart(now), now)
		}},
		NamedRange{ThisMonth, func(now time.Time) model.TimeRange {
			return model.NewTimeRange(monthStart(now), now)
		}},
		NamedRange{ThisYear, func(now time.Time) model.TimeRange {
			return model.NewTimeRange(yearStart(now), now)
		}},
		NamedRange{LastHour, lastDuration(time.Hour)},
		NamedRange{Last24Hours, lastDuration(24 * time.Hour)},
		NamedRange{Yesterday, days(-1, 0)},
		NamedRange{Last7Days, days(-7, 0)},
		NamedRange{Last30Days, days(-30, 0)},
		NamedRange{Tomorrow, days(1, 2)},
		NamedRange{Next7Days, days(1, 8)},
		NamedRange{Next30Days, days(1, 31)},
	)
	if err != nil {
		panic(err)
	}
	return c
}

func allTime(time.Time) model.TimeRange {
	return model.TimeRange{MinTs: model.MinTimestamp, MaxTs: model.MaxTimestamp}
}

// lastDuration returns [now-d, now)
func lastDuration(d time.Duration) ResolveFunc {
	return func(now time.Time) model.TimeRange {
		return model.NewTimeRange(now.Add(-d), now)
	}
}

// days returns [dayStart(now)+from days, dayStart(now)+to days)
func days(from, to int) ResolveFunc {
	return func(now time.Time) model.TimeRange {
		d := dayStart(now)
		return model.NewTimeRange(d.AddDate(0, 0, from), d.AddDate(0, 0, to))
	}
}

func dayStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func monthStart(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
}

func yearStart(now time.Time) time.Time {
	return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
}
