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

// Package pipeline reads rows from a stream, filters them by a named time
// range and writes the kept rows out. The pipeline parts are wired by the
// linker injector, so every run goes through the Init/Shutdown life-cycle of
// its components.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jrivets/log4g"
	"github.com/logrange/linker"
	"github.com/logrange/tmfilter/pkg/filter"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/logrange/tmfilter/pkg/rows"
	"github.com/pkg/errors"
)

type (
	// Stats contains the results of a pipeline run
	Stats struct {
		filter.Stats
		Elapsed time.Duration
	}

	// pump moves rows from the source through the filter to the sink
	pump struct {
		Cfg    *Config      `inject:""`
		Src    *source      `inject:""`
		Flt    *rangeFilter `inject:""`
		Snk    *sink        `inject:""`
		fits   []*filter.Iterator
		it     rows.Iterator
		logger log4g.Logger
	}

	// inputs holds the pipeline input streams
	inputs struct {
		rs []io.Reader
	}
)

const (
	cmpIn  = "pipelineIn"
	cmpOut = "pipelineOut"
)

// Run reads rows from in, writes the rows which overlap the configured time
// range to out, and returns the run statistics. The function returns when in
// is over or ctx is closed.
func Run(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) (Stats, error) {
	if in == nil {
		return Stats{}, fmt.Errorf("input must be provided")
	}
	return run(ctx, cfg, []io.Reader{in}, out)
}

// RunMerged works like Run, but reads rows from several inputs. The kept rows
// of all the inputs are merged into one stream ordered by the row start time,
// provided every input is ordered the same way.
func RunMerged(ctx context.Context, cfg *Config, ins []io.Reader, out io.Writer) (Stats, error) {
	if len(ins) == 0 {
		return Stats{}, fmt.Errorf("at least one input must be provided")
	}
	for i, in := range ins {
		if in == nil {
			return Stats{}, fmt.Errorf("input #%d is nil", i)
		}
	}
	return run(ctx, cfg, ins, out)
}

func run(ctx context.Context, cfg *Config, ins []io.Reader, out io.Writer) (Stats, error) {
	if err := cfg.Check(); err != nil {
		return Stats{}, err
	}
	if out == nil {
		return Stats{}, fmt.Errorf("output must be provided")
	}

	p := new(pump)
	inj := linker.New()
	inj.SetLogger(log4g.GetLogger("pipeline.injector"))
	err := initInjector(ctx, inj,
		linker.Component{Name: "", Value: cfg},
		linker.Component{Name: "", Value: ranges.NewDefaultCatalog()},
		linker.Component{Name: cmpIn, Value: &inputs{ins}},
		linker.Component{Name: cmpOut, Value: out},
		linker.Component{Name: "", Value: new(source)},
		linker.Component{Name: "", Value: new(rangeFilter)},
		linker.Component{Name: "", Value: new(sink)},
		linker.Component{Name: "", Value: p},
	)
	if err != nil {
		return Stats{}, err
	}
	defer inj.Shutdown()

	return p.run(ctx)
}

// initInjector registers the components and initializes them. The injector
// panics are turned into the error.
func initInjector(ctx context.Context, inj *linker.Injector, comps ...linker.Component) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("could not initialize pipeline: %v", r)
		}
	}()
	inj.Register(comps...)
	inj.Init(ctx)
	return nil
}

// Add sums the statistics of two runs
func (s Stats) Add(other Stats) Stats {
	s.Kept += other.Kept
	s.Removed += other.Removed
	s.Skipped += other.Skipped
	s.Elapsed += other.Elapsed
	return s
}

// Total returns the number of rows seen
func (s Stats) Total() int64 {
	return s.Kept + s.Removed + s.Skipped
}

func (s Stats) String() string {
	return fmt.Sprintf("%s rows: %s kept, %s removed, %s skipped in %s", humanize.Comma(s.Total()),
		humanize.Comma(s.Kept), humanize.Comma(s.Removed), humanize.Comma(s.Skipped), s.Elapsed)
}

// =================================== pump ===================================

func (p *pump) PostConstruct() {
	p.logger = log4g.GetLogger("pipeline.pump")
}

func (p *pump) Init(ctx context.Context) error {
	its := make([]rows.Iterator, len(p.Src.its))
	p.fits = make([]*filter.Iterator, len(p.Src.its))
	for i, it := range p.Src.its {
		p.fits[i] = filter.NewIterator(it, p.Flt.flt, p.Flt.ex, p.Cfg.SkipInvalid)
		its[i] = p.fits[i]
	}
	p.it = rows.NewMixer(p.Flt.ex.Earlier, its...)
	return nil
}

func (p *pump) stats() filter.Stats {
	var st filter.Stats
	for _, fit := range p.fits {
		fst := fit.Stats()
		st.Kept += fst.Kept
		st.Removed += fst.Removed
		st.Skipped += fst.Skipped
	}
	return st
}

func (p *pump) run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	for {
		r, err1 := p.it.Get(ctx)
		if err1 != nil {
			if err1 != io.EOF {
				err = err1
			}
			break
		}
		if err = p.Snk.write(r); err != nil {
			break
		}
		p.it.Next(ctx)
	}

	if err1 := p.Snk.flush(); err == nil {
		err = err1
	}

	st := Stats{Stats: p.stats(), Elapsed: time.Since(start)}
	if err != nil {
		p.logger.Warn("Stopped with err=", err, " after ", st)
		return st, err
	}
	p.logger.Info("Done, ", st)
	return st, nil
}
