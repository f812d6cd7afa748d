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

// Package timestamp parses timestamp values found in row fields and on the
// command line. A value can be RFC3339, a unix time number or one of
// the user friendly formats like 'YYYY-MM-DD HH:mm:ss'.
package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type (
	// Parser parses a whole string value as a timestamp. The formats are tried
	// in order, the first one that matches wins.
	Parser struct {
		formats []*Format
		loc     *time.Location
	}

	// Format is a user friendly date-time format (e.g. YYYY/MM/DD) with its
	// go-lang layout.
	Format struct {
		frmt        string
		layout      string
		hasLocation bool
	}

	// term describes transformation from a user friendly term (e.g. YYYY) to
	// the go-lang layout term (2006).
	term struct {
		format string
		layout string
	}
)

var (
	KnownFormats = []string{
		"YYYY-MM-DDTHH:mm:ss.SSSZZZZZ",
		"YYYY-MM-DDTHH:mm:ss.SSSZZZZ",
		"YYYY-MM-DDTHH:mm:ss.SSS",
		"YYYY-MM-DDTHH:mm:ssZZZZ",
		"YYYY-MM-DDTHH:mm:ss",
		"YYYY-MM-DD HH:mm:ss.SSS ZZZZ",
		"YYYY-MM-DD HH:mm:ss.SSS",
		"YYYY-MM-DD HH:mm:ss ZZZZZ",
		"YYYY-MM-DD HH:mm:ss ZZZZ",
		"YYYY-MM-DD HH:mm:ss ZZZ",
		"YYYY-MM-DD HH:mm:ss",
		"YYYY-MM-DD HH:mm",
		"YYYY-MM-DD",
		"YYYY/MM/DD HH:mm:ss.SSS",
		"YYYY/MM/DD HH:mm:ss",
		"YYYY/MM/DD HH:mm",
		"YYYY/MM/DD",
		"DD/MMM/YYYY:HH:mm:ss ZZZZ",
		"DDD, DD MMM YYYY HH:mm:ss ZZZ",
		"DDD, DD MMM YYYY HH:mm:ss ZZZZ",
		"DDD MMM _D HH:mm:ss YYYY",
		"DD MMM YYYY, HH:mm",
		"DD MMMM YYYY",
	}

	// 'larger' terms go first, the replacements are done in the given order
	terms = []term{
		{"YYYY", "2006"},
		{"YY", "06"},
		{"MMMM", "January"},
		{"MMM", "Jan"},
		{"MM", "01"},
		{"DDDD", "Monday"},
		{"DDD", "Mon"},
		{"DD", "02"},
		{"_D", "_2"},
		{"HH", "15"},
		{"hh", "03"},
		{"mm", "04"},
		{"ss", "05"},
		{".SSS", ".999999999"},
		{"P", "PM"},
		{"ZZZZZ", "-07:00"},
		{"ZZZZ", "-0700"},
		{"ZZZ", "MST"},
	}
)

// NewDefaultParser returns a parser with KnownFormats. User formats, if
// provided, are tried before the known ones.
func NewDefaultParser(usrFmts ...string) *Parser {
	dtFmts := make([]string, 0, len(KnownFormats)+len(usrFmts))
	dtFmts = append(dtFmts, usrFmts...)
	dtFmts = append(dtFmts, KnownFormats...)
	return NewParser(dtFmts...)
}

// NewParser returns a parser for the formats provided
func NewParser(fmts ...string) *Parser {
	p := new(Parser)
	p.loc = time.UTC
	p.formats = make([]*Format, len(fmts))
	for i, f := range fmts {
		p.formats[i] = &Format{
			frmt:        f,
			layout:      toLayout(f),
			hasLocation: strings.Contains(f, "Z"),
		}
	}
	return p
}

// In returns a copy of the parser which reads values without zone
// information in loc.
func (p *Parser) In(loc *time.Location) *Parser {
	np := *p
	np.loc = loc
	return &np
}

// Location returns the location values without zone are read in
func (p *Parser) Location() *time.Location {
	return p.loc
}

// Parse parses the value. RFC3339 and unix time numbers are always accepted,
// the parser formats are tried after them. Values without zone information
// are read in the parser location, UTC by default.
func (p *Parser) Parse(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	if len(val) == 0 {
		return time.Time{}, fmt.Errorf("empty timestamp value")
	}

	if tm, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return tm, nil
	}

	if tm, ok := parseUnix(val); ok {
		return tm, nil
	}

	for _, f := range p.formats {
		if tm, err := f.parseIn(val, p.loc); err == nil {
			return tm, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse %q as a timestamp, it is neither RFC3339, unix time nor one of the known formats", val)
}

// Parse parses the value in accordance with the format. A value without zone
// is read in UTC.
func (f *Format) Parse(val string) (time.Time, error) {
	return f.parseIn(val, time.UTC)
}

func (f *Format) parseIn(val string, loc *time.Location) (time.Time, error) {
	if f.hasLocation {
		return time.Parse(f.layout, val)
	}
	return time.ParseInLocation(f.layout, val, loc)
}

// String returns the user friendly form of the format
func (f *Format) String() string {
	return f.frmt
}

// parseUnix parses unix time numbers. The unit is chosen by the number
// magnitude: seconds, milliseconds, microseconds or nanoseconds. Seconds
// can have a fraction part.
func parseUnix(val string) (time.Time, bool) {
	if strings.ContainsAny(val, ".eE") {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1e11 {
			return time.Time{}, false
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}

	v, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	// the unit conversions are done on seconds, so big values don't overflow
	switch {
	case -1e11 < v && v < 1e11:
		return time.Unix(v, 0).UTC(), true
	case -1e14 < v && v < 1e14:
		return time.Unix(v/1e3, (v%1e3)*int64(time.Millisecond)).UTC(), true
	case -1e17 < v && v < 1e17:
		return time.Unix(v/1e6, (v%1e6)*int64(time.Microsecond)).UTC(), true
	}
	return time.Unix(0, v).UTC(), true
}

func toLayout(format string) string {
	layout := format
	for _, t := range terms {
		layout = strings.Replace(layout, t.format, t.layout, -1)
	}
	return layout
}
