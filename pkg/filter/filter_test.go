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
	"sync"
	"testing"
	"time"

	"github.com/logrange/tmfilter/pkg/model"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func tm(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestKeepRows(t *testing.T) {
	f := NewFilter(model.NewTimeRange(tm("2024-03-01T00:00:00Z"), tm("2024-03-08T00:00:00Z")), true)
	assert.True(t, f.Keep(tm("2024-03-05T00:00:00Z"), tm("2024-03-05T01:00:00Z")))
	assert.False(t, f.Keep(tm("2024-02-01T00:00:00Z"), tm("2024-02-02T00:00:00Z")))
	assert.True(t, f.Keep(tm("2024-02-28T00:00:00Z"), tm("2024-03-01T00:00:01Z")))
	assert.False(t, f.Keep(tm("2024-02-28T00:00:00Z"), tm("2024-03-01T00:00:00Z")))
	assert.False(t, f.Keep(tm("2024-03-08T00:00:00Z"), tm("2024-03-09T00:00:00Z")))
	// inverted row
	assert.False(t, f.Keep(tm("2024-03-05T01:00:00Z"), tm("2024-02-05T00:00:00Z")))
}

func TestKeepNoEndColumn(t *testing.T) {
	f := NewFilter(model.NewTimeRange(tm("2024-03-01T00:00:00Z"), tm("2024-03-08T00:00:00Z")), false)
	assert.False(t, f.HasEnd())

	// the end is ignored, the row is the point at its start
	assert.True(t, f.Keep(tm("2024-03-07T23:59:59Z"), time.Time{}))
	assert.False(t, f.Keep(tm("2024-02-07T23:59:59Z"), tm("2024-03-05T00:00:00Z")))

	// a point strictly inside the window only
	assert.False(t, f.Keep(tm("2024-03-01T00:00:00Z"), time.Time{}))
	assert.False(t, f.Keep(tm("2024-03-08T00:00:00Z"), time.Time{}))
}

func TestConfigure(t *testing.T) {
	now := tm("2024-03-15T14:30:00Z")
	cat := ranges.NewDefaultCatalog()

	f := Configure(cat, now, ranges.Last7Days, true)
	assert.Equal(t, ranges.Last7Days, f.Name())
	assert.Equal(t, now, f.Now())
	assert.True(t, f.HasEnd())
	assert.Equal(t, model.NewTimeRange(tm("2024-03-08T00:00:00Z"), tm("2024-03-15T00:00:00Z")), f.Range())

	assert.True(t, f.Keep(tm("2024-03-10T00:00:00Z"), tm("2024-03-10T00:10:00Z")))
	assert.False(t, f.Keep(tm("2024-03-15T10:00:00Z"), tm("2024-03-15T11:00:00Z")))

	f = Configure(cat, now, "Last fortnight", false)
	assert.Equal(t, cat.Resolve(ranges.AllTime, now), f.Range())
	assert.True(t, f.Keep(tm("1999-12-31T23:59:59Z"), time.Time{}))
}

func TestConfigureStrict(t *testing.T) {
	now := tm("2024-03-15T14:30:00Z")
	cat := ranges.NewDefaultCatalog()

	f, err := ConfigureStrict(cat, now, ranges.Tomorrow, false)
	assert.NoError(t, err)
	assert.True(t, f.Keep(tm("2024-03-16T12:00:00Z"), time.Time{}))
	assert.False(t, f.Keep(tm("2024-03-15T12:00:00Z"), time.Time{}))

	f, err = ConfigureStrict(cat, now, "tomorrow", false)
	assert.Nil(t, f)
	assert.Equal(t, ranges.ErrUnknownRange, errors.Cause(err))
}

func TestKeepFunc(t *testing.T) {
	f := NewFilter(model.TimeRange{MinTs: 10, MaxTs: 20}, true)
	kf := f.KeepFunc()
	assert.True(t, kf(5, 11))
	assert.False(t, kf(20, 30))
	assert.Equal(t, "{name=, range="+f.Range().String()+"}", f.String())
}

func TestKeepConcurrently(t *testing.T) {
	f := Configure(ranges.NewDefaultCatalog(), tm("2024-03-15T14:30:00Z"), ranges.Today, true)
	var wg sync.WaitGroup
	res := make([]bool, 100)
	for i := 0; i < len(res); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st := tm("2024-03-15T00:00:00Z").Add(time.Duration(i) * time.Hour / 2)
			res[i] = f.Keep(st, st.Add(time.Minute))
		}(i)
	}
	wg.Wait()

	for i, r := range res {
		// 29 half-hours fit into [00:00, 14:30)
		assert.Equal(t, i < 29, r, "row #%d", i)
	}
}
