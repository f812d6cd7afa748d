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

package pipeline

import (
	"testing"
	"time"

	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Check())
	assert.Equal(t, ranges.AllTime, cfg.Range)
	assert.Equal(t, "ts", cfg.StartField)
	assert.Equal(t, OutRaw, cfg.Output)
	assert.Equal(t, "UTC", cfg.Location)
}

func TestConfigApply(t *testing.T) {
	cfg := NewDefaultConfig()
	other := &Config{Range: ranges.Today, EndField: "te", TimeFormats: []string{"DD.MM.YYYY"}, SkipInvalid: true}
	cfg.Apply(other)
	cfg.Apply(nil)

	assert.Equal(t, ranges.Today, cfg.Range)
	assert.Equal(t, "ts", cfg.StartField)
	assert.Equal(t, "te", cfg.EndField)
	assert.True(t, cfg.SkipInvalid)
	assert.False(t, cfg.StrictRange)
	assert.Equal(t, []string{"DD.MM.YYYY"}, cfg.TimeFormats)

	// the slice is copied
	other.TimeFormats[0] = "YYYY"
	assert.Equal(t, []string{"DD.MM.YYYY"}, cfg.TimeFormats)
}

func TestConfigCheck(t *testing.T) {
	testCheckErr(t, func(c *Config) { c.Range = "" })
	testCheckErr(t, func(c *Config) { c.Range = "Last week"; c.StrictRange = true })
	testCheckErr(t, func(c *Config) { c.Location = "Mars/Olympus" })
	testCheckErr(t, func(c *Config) { c.Now = "yesterday" })
	testCheckErr(t, func(c *Config) { c.StartField = " " })
	testCheckErr(t, func(c *Config) { c.EndField = c.StartField })
	testCheckErr(t, func(c *Config) { c.Format = "csv" })
	testCheckErr(t, func(c *Config) { c.MaxRecordSize = 10 })
	testCheckErr(t, func(c *Config) { c.Output = "xml" })

	cfg := NewDefaultConfig()
	cfg.Range = "Last week"
	assert.NoError(t, cfg.Check(), "unknown names are fine unless strict")
}

func TestConfigNowTime(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Location = "UTC"
	cfg.Now = "2024-03-15 14:30:00"
	now, err := cfg.NowTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC), now)

	cfg.Now = "15.03.2024 14:30"
	cfg.TimeFormats = []string{"DD.MM.YYYY HH:mm"}
	now, err = cfg.NowTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC), now)

	cfg.Now = ""
	now, err = cfg.NowTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now, time.Minute)
}

func TestLoadCfgFromYaml(t *testing.T) {
	cfg, err := LoadCfgFromFile("testdata/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Range:         ranges.Last7Days,
		Now:           "2024-03-15T14:30:00Z",
		Location:      "UTC",
		StartField:    "start",
		EndField:      "end",
		Format:        "json",
		TimeFormats:   []string{"DD/MM/YYYY HH:mm:ss"},
		MaxRecordSize: 4096,
		SkipInvalid:   true,
		Output:        OutJson,
	}, cfg)
	assert.NoError(t, cfg.Check())
}

func TestLoadCfgFromJson(t *testing.T) {
	cfg, err := LoadCfgFromFile("testdata/config.json")
	require.NoError(t, err)

	dc := NewDefaultConfig()
	dc.Apply(cfg)
	assert.Equal(t, ranges.Yesterday, dc.Range)
	assert.True(t, dc.StrictRange)
	assert.Equal(t, 1024, dc.MaxRecordSize)
	assert.Equal(t, string(OutRaw), dc.Output)
	assert.NoError(t, dc.Check())
}

func TestLoadCfgErrors(t *testing.T) {
	_, err := LoadCfgFromFile("testdata/absent.json")
	assert.Error(t, err)

	_, err = LoadCfgFromFile("testdata/unknown.yaml")
	assert.Error(t, err)
}

func testCheckErr(t *testing.T, f func(c *Config)) {
	cfg := NewDefaultConfig()
	f(cfg)
	assert.Error(t, cfg.Check(), "cfg=%s", cfg)
}

func TestConfigTimeParser(t *testing.T) {
	cfg := NewDefaultConfig()
	p, err := cfg.TimeParser()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, p.Location())

	cfg.Location = "Mars/Olympus"
	_, err = cfg.TimeParser()
	assert.Error(t, err)

	if _, err = time.LoadLocation("America/New_York"); err != nil {
		t.Skip("no tz database: ", err)
	}
	cfg.Location = "America/New_York"
	cfg.Now = "2024-03-15 10:30:00"
	now, err := cfg.NowTime()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", now.Location().String())
	assert.True(t, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC).Equal(now))
}

func TestConfigPinNow(t *testing.T) {
	cfg := NewDefaultConfig()
	before := time.Now()
	require.NoError(t, cfg.PinNow())
	assert.NotEmpty(t, cfg.Now)

	now1, err := cfg.NowTime()
	require.NoError(t, err)
	assert.False(t, now1.Before(before.Truncate(time.Second)))

	// the pinned moment does not move
	time.Sleep(2 * time.Millisecond)
	pinned := cfg.Now
	require.NoError(t, cfg.PinNow())
	assert.Equal(t, pinned, cfg.Now)
	now2, err := cfg.NowTime()
	require.NoError(t, err)
	assert.True(t, now1.Equal(now2))

	cfg.Now = "2024-03-15T14:30:00Z"
	require.NoError(t, cfg.PinNow())
	assert.Equal(t, "2024-03-15T14:30:00Z", cfg.Now)

	cfg.Now = ""
	cfg.Location = "Mars/Olympus"
	assert.Error(t, cfg.PinNow())
	assert.Equal(t, "", cfg.Now)
}
