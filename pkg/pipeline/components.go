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
	"bufio"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"

	"github.com/jrivets/log4g"
	"github.com/logrange/tmfilter/pkg/filter"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/logrange/tmfilter/pkg/rows"
	"github.com/logrange/tmfilter/pkg/utils"
)

type (
	// source decodes rows from the pipeline inputs
	source struct {
		Cfg *Config `inject:""`
		In  *inputs `inject:"pipelineIn"`
		its []rows.Iterator
	}

	// rangeFilter resolves the configured range once, on Init
	rangeFilter struct {
		Cfg     *Config         `inject:""`
		Catalog *ranges.Catalog `inject:""`
		flt     *filter.Filter
		ex      *rows.Extractor
		logger  log4g.Logger
	}

	// sink writes kept rows to the pipeline output
	sink struct {
		Cfg   *Config   `inject:""`
		Out   io.Writer `inject:"pipelineOut"`
		w     *bufio.Writer
		enc   *json.Encoder
		write func(r rows.Row) error
	}
)

// ================================== source ==================================

func (s *source) Init(ctx context.Context) error {
	frmt, err := rows.ToFormat(s.Cfg.Format)
	if err != nil {
		return err
	}
	s.its = make([]rows.Iterator, 0, len(s.In.rs))
	for _, r := range s.In.rs {
		// the inputs belong to the caller, so they must not be closed here
		it, err := rows.NewReader(ioutil.NopCloser(r), frmt, s.Cfg.MaxRecordSize)
		if err != nil {
			s.Shutdown()
			return err
		}
		s.its = append(s.its, it)
	}
	return nil
}

func (s *source) Shutdown() {
	for _, it := range s.its {
		it.Close()
	}
}

// =============================== rangeFilter ================================

func (rf *rangeFilter) PostConstruct() {
	rf.logger = log4g.GetLogger("pipeline.filter")
}

func (rf *rangeFilter) Init(ctx context.Context) error {
	now, err := rf.Cfg.NowTime()
	if err != nil {
		return err
	}

	tp, err := rf.Cfg.TimeParser()
	if err != nil {
		return err
	}
	rf.ex, err = rows.NewExtractor(rf.Cfg.StartField, rf.Cfg.EndField, tp)
	if err != nil {
		return err
	}

	if rf.Cfg.StrictRange {
		rf.flt, err = filter.ConfigureStrict(rf.Catalog, now, rf.Cfg.Range, rf.ex.HasEnd())
		if err != nil {
			return err
		}
	} else {
		if !rf.Catalog.Contains(rf.Cfg.Range) {
			rf.logger.Warn("Unknown range name \"", rf.Cfg.Range, "\", will use \"", rf.Catalog.Default(), "\" instead")
		}
		rf.flt = filter.Configure(rf.Catalog, now, rf.Cfg.Range, rf.ex.HasEnd())
	}
	rf.logger.Info("Filtering rows by ", rf.flt, ", now=", now)
	return nil
}

// =================================== sink ===================================

func (s *sink) Init(ctx context.Context) error {
	s.w = bufio.NewWriter(s.Out)
	s.enc = utils.NewJsonEncoder(s.w)
	switch s.Cfg.Output {
	case OutJson:
		s.write = s.writeJson
	default:
		s.write = s.writeRaw
	}
	return nil
}

func (s *sink) Shutdown() {
	s.flush()
}

func (s *sink) flush() error {
	return s.w.Flush()
}

func (s *sink) writeRaw(r rows.Row) error {
	if _, err := s.w.Write(r.Data); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// writeJson writes the row fields as a json object with sorted keys
func (s *sink) writeJson(r rows.Row) error {
	if r.Fields == nil {
		return s.enc.Encode(map[string]string{})
	}
	return s.enc.Encode(r.Fields)
}
