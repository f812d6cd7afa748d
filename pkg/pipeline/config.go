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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/logrange/tmfilter/pkg/rows"
	"github.com/logrange/tmfilter/pkg/timestamp"
	"github.com/logrange/tmfilter/pkg/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	// Config defines how rows are read, filtered and written by the pipeline
	Config struct {
		// Range is the name of the time range the rows are filtered by
		Range string
		// Now is the reference moment the range is resolved against. Empty
		// value means the current time.
		Now string
		// Location is the time zone name the calendar ranges are computed in.
		// Timestamps without zone, in rows and in Now, are read in it too.
		Location string

		StartField  string
		EndField    string
		Format      string
		TimeFormats []string

		MaxRecordSize int
		// StrictRange makes unknown range names an error instead of falling
		// back to the catalog default.
		StrictRange bool
		SkipInvalid bool
		Output      string
	}
)

const (
	OutRaw  = "raw"
	OutJson = "json"
)

func NewDefaultConfig() *Config {
	return &Config{
		Range:         ranges.AllTime,
		Location:      "UTC",
		StartField:    "ts",
		Format:        string(rows.FmtLogfmt),
		TimeFormats:   []string{},
		MaxRecordSize: 64 * 1024,
		Output:        OutRaw,
	}
}

// LoadCfgFromFile reads the config from a json or yaml file. Yaml is
// expected for .yaml and .yml extensions.
func LoadCfgFromFile(fn string) (*Config, error) {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read config file %s", fn)
	}

	var m map[string]interface{}
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not unmarshal config file %s", fn)
	}

	cfg := &Config{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err = dec.Decode(m); err != nil {
		return nil, errors.Wrapf(err, "could not decode config from %s", fn)
	}
	return cfg, nil
}

// Apply overrides the config values by the non-zero values of other
func (c *Config) Apply(other *Config) {
	if other == nil {
		return
	}
	if other.Range != "" {
		c.Range = other.Range
	}
	if other.Now != "" {
		c.Now = other.Now
	}
	if other.Location != "" {
		c.Location = other.Location
	}
	if other.StartField != "" {
		c.StartField = other.StartField
	}
	if other.EndField != "" {
		c.EndField = other.EndField
	}
	if other.Format != "" {
		c.Format = other.Format
	}
	if len(other.TimeFormats) != 0 {
		c.TimeFormats = deepcopy.Copy(other.TimeFormats).([]string)
	}
	if other.MaxRecordSize != 0 {
		c.MaxRecordSize = other.MaxRecordSize
	}
	if other.StrictRange {
		c.StrictRange = true
	}
	if other.SkipInvalid {
		c.SkipInvalid = true
	}
	if other.Output != "" {
		c.Output = other.Output
	}
}

func (c *Config) Check() error {
	if c.Range == "" {
		return fmt.Errorf("invalid Range=%q, must be non-empty", c.Range)
	}
	if c.StrictRange && !ranges.NewDefaultCatalog().Contains(c.Range) {
		return fmt.Errorf("invalid Range=%q, must be one of %v", c.Range, ranges.ListRangeNames())
	}
	if _, err := c.location(); err != nil {
		return fmt.Errorf("invalid Location=%q: %v", c.Location, err)
	}
	if c.Now != "" {
		if _, err := timestamp.NewDefaultParser(c.TimeFormats...).Parse(c.Now); err != nil {
			return fmt.Errorf("invalid Now=%q: %v", c.Now, err)
		}
	}
	if strings.TrimSpace(c.StartField) == "" {
		return fmt.Errorf("invalid StartField=%q, must be non-empty", c.StartField)
	}
	if c.StartField == c.EndField {
		return fmt.Errorf("invalid EndField=%q, must differ from StartField", c.EndField)
	}
	if _, err := rows.ToFormat(c.Format); err != nil {
		return fmt.Errorf("invalid Format=%q: %v", c.Format, err)
	}
	if c.MaxRecordSize < rows.MinRecordSize {
		return fmt.Errorf("invalid MaxRecordSize=%d, must be at least %d", c.MaxRecordSize, rows.MinRecordSize)
	}
	if c.Output != OutRaw && c.Output != OutJson {
		return fmt.Errorf("invalid Output=%q, must be %q or %q", c.Output, OutRaw, OutJson)
	}
	return nil
}

// TimeParser returns the timestamp parser for the config time formats. The
// parser reads values without zone in the config location.
func (c *Config) TimeParser() (*timestamp.Parser, error) {
	loc, err := c.location()
	if err != nil {
		return nil, err
	}
	return timestamp.NewDefaultParser(c.TimeFormats...).In(loc), nil
}

// NowTime returns the reference moment in the config location
func (c *Config) NowTime() (time.Time, error) {
	p, err := c.TimeParser()
	if err != nil {
		return time.Time{}, err
	}
	if c.Now == "" {
		return time.Now().In(p.Location()), nil
	}
	now, err := p.Parse(c.Now)
	if err != nil {
		return time.Time{}, err
	}
	return now.In(p.Location()), nil
}

// PinNow fixes the reference moment, so several runs with the config resolve
// the range against the same time. It does nothing if Now is already set.
func (c *Config) PinNow() error {
	if c.Now != "" {
		return nil
	}
	now, err := c.NowTime()
	if err != nil {
		return err
	}
	c.Now = now.Format(time.RFC3339Nano)
	return nil
}

func (c *Config) location() (*time.Location, error) {
	if c.Location == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Location)
}

func (c *Config) String() string {
	return utils.ToJsonStr(c)
}
