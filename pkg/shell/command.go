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

package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/logrange/tmfilter/pkg/filter"
	"github.com/logrange/tmfilter/pkg/model"
	"github.com/logrange/tmfilter/pkg/pipeline"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/logrange/tmfilter/pkg/timestamp"
	"github.com/logrange/tmfilter/pkg/tql"
)

type (
	command struct {
		name    string
		matcher *regexp.Regexp
		cmdFn   cmdFn
		help    string
	}

	config struct {
		pcfg *pipeline.Config
		cat  *ranges.Catalog
		out  io.Writer
		quit bool

		// vars of the matched command
		vars map[string]string
	}

	cmdFn func(ctx context.Context, cfg *config) error
)

const (
	cmdRangesName  = "ranges"
	cmdUseName     = "use"
	cmdNowName     = "now"
	cmdResolveName = "resolve"
	cmdKeepName    = "keep"
	cmdFilterName  = "filter"
	cmdTqlName     = "range"
	cmdShowName    = "show"
	cmdQuitName    = "quit"
	cmdHelpName    = "help"

	rgNameGrp  = "name"
	rgTsGrp    = "ts"
	rgStartGrp = "start"
	rgEndGrp   = "end"
	rgFileGrp  = "file"
	rgTqlGrp   = "tql"

	nowReset = "reset"
)

var commands []command

func init() {
	commands = []command{
		{
			name:    cmdRangesName,
			matcher: regexp.MustCompile(`(?i)^ranges$`),
			cmdFn:   rangesFn,
			help:    "list the time ranges, resolved against the current reference time",
		},
		{
			name:    cmdUseName,
			matcher: regexp.MustCompile(`(?i)^use\s+(?P<name>.+)$`),
			cmdFn:   useFn,
			help:    "select the time range by its name, e.g. 'use Last 7 days' (TAB completes the name)",
		},
		{
			name:    cmdNowName,
			matcher: regexp.MustCompile(`(?i)^now(?:$|\s+(?P<ts>.+)$)`),
			cmdFn:   nowFn,
			help:    "show or set the reference time, e.g. 'now 2024-03-15 14:30:00'; 'now reset' returns to the wall clock",
		},
		{
			name:    cmdResolveName,
			matcher: regexp.MustCompile(`(?i)^resolve(?:$|\s+(?P<name>.+)$)`),
			cmdFn:   resolveFn,
			help:    "print the interval of the selected or the given range, e.g. 'resolve Yesterday'",
		},
		{
			name:    cmdKeepName,
			matcher: regexp.MustCompile(`(?i)^keep\s+(?P<start>"[^"]*"|\S+)(?:\s+(?P<end>"[^"]*"|\S+))?$`),
			cmdFn:   keepFn,
			help:    "check whether a row with the start and optional end time is kept, e.g. 'keep \"2024-03-14 10:00:00\" 1710417600'",
		},
		{
			name:    cmdFilterName,
			matcher: regexp.MustCompile(`(?i)^filter\s+(?P<file>.+)$`),
			cmdFn:   filterFn,
			help:    "filter rows of the file by the selected range, e.g. 'filter /var/log/app.log'",
		},
		{
			name:    cmdTqlName,
			matcher: regexp.MustCompile(`(?i)^(?P<tql>range\s.+)$`),
			cmdFn:   tqlFn,
			help:    "set the range and the fields by a query, e.g. 'RANGE \"Today\" START ts END te AT \"2024-03-15\"'",
		},
		{
			name:    cmdShowName,
			matcher: regexp.MustCompile(`(?i)^show$`),
			cmdFn:   showFn,
			help:    "show the current settings",
		},
		{
			name:    cmdQuitName,
			matcher: regexp.MustCompile(`(?i)^(?:quit|exit)$`),
			cmdFn:   quitFn,
			help:    "exit the program",
		},
		{
			name:    cmdHelpName,
			matcher: regexp.MustCompile(`(?i)^help$`),
			cmdFn:   helpFn,
			help:    "show help",
		},
	}
}

func newConfig(pcfg *pipeline.Config, cat *ranges.Catalog, out io.Writer) *config {
	nc := *pcfg
	return &config{pcfg: &nc, cat: cat, out: out}
}

func execCmd(ctx context.Context, input string, cfg *config) error {
	for _, d := range commands {
		if !d.matcher.MatchString(input) {
			if strings.EqualFold(firstWord(input), d.name) {
				return fmt.Errorf("command %s - invalid syntax, %s", d.name, d.help)
			}
			continue
		}
		cfg.vars = getInputVars(d.matcher, input)
		return d.cmdFn(ctx, cfg)
	}
	return fmt.Errorf("unknown command=%v, type 'help' to see the commands", input)
}

func getInputVars(re *regexp.Regexp, input string) map[string]string {
	match := re.FindStringSubmatch(input)
	varsMap := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if i > 0 && i < len(match) && name != "" {
			varsMap[name] = strings.TrimSpace(match[i])
		}
	}
	return varsMap
}

func firstWord(s string) string {
	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func (cfg *config) prompt() string {
	return "tmf:" + cfg.pcfg.Range + "> "
}

// complete returns the completion candidates for the line: command names
// or range names after 'use' and 'resolve'
func (cfg *config) complete(line string) []string {
	var res []string
	for _, pfx := range []string{cmdUseName + " ", cmdResolveName + " "} {
		if len(line) < len(pfx) || !strings.EqualFold(line[:len(pfx)], pfx) {
			continue
		}
		np := strings.ToLower(strings.TrimLeft(line[len(pfx):], " "))
		for _, n := range cfg.cat.Names() {
			if strings.HasPrefix(strings.ToLower(n), np) {
				res = append(res, line[:len(pfx)]+n)
			}
		}
		return res
	}

	lp := strings.ToLower(line)
	for _, c := range commands {
		if strings.HasPrefix(c.name, lp) {
			res = append(res, c.name)
		}
	}
	return res
}

func (cfg *config) now() (time.Time, error) {
	return cfg.pcfg.NowTime()
}

func (cfg *config) parser() (*timestamp.Parser, error) {
	return cfg.pcfg.TimeParser()
}

// lookup returns the range by name. The exact name is preferred, then the
// case-insensitive match is tried.
func (cfg *config) lookup(name string) (string, error) {
	name = unquote(name)
	if cfg.cat.Contains(name) {
		return name, nil
	}
	for _, n := range cfg.cat.Names() {
		if strings.EqualFold(n, name) {
			return n, nil
		}
	}
	_, err := cfg.cat.ResolveStrict(name, time.Time{})
	return "", err
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func printRange(w io.Writer, name string, tr model.TimeRange, now time.Time) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, tr, relTime(tr.MinTs, now), relTime(tr.MaxTs, now))
}

func relTime(ts int64, now time.Time) string {
	switch ts {
	case model.MinTimestamp:
		return "the beginning"
	case model.MaxTimestamp:
		return "the end"
	}
	return humanize.RelTime(time.Unix(0, ts), now, "ago", "from now")
}

//===================== ranges =====================

func rangesFn(ctx context.Context, cfg *config) error {
	now, err := cfg.now()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cfg.out, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tINTERVAL\tFROM\tTO\n")
	for _, n := range cfg.cat.Names() {
		printRange(w, n, cfg.cat.Resolve(n, now), now)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cfg.out, "\n%d ranges, now=%s\n", len(cfg.cat.Names()), now.Format(time.RFC3339))
	return nil
}

//===================== use =====================

func useFn(ctx context.Context, cfg *config) error {
	name, err := cfg.lookup(cfg.vars[rgNameGrp])
	if err != nil {
		return err
	}
	cfg.pcfg.Range = name
	fmt.Fprintf(cfg.out, "using %q\n", name)
	return nil
}

//===================== now =====================

func nowFn(ctx context.Context, cfg *config) error {
	ts := unquote(cfg.vars[rgTsGrp])
	if strings.EqualFold(ts, nowReset) {
		cfg.pcfg.Now = ""
	} else if ts != "" {
		p, err := cfg.parser()
		if err != nil {
			return err
		}
		if _, err = p.Parse(ts); err != nil {
			return err
		}
		cfg.pcfg.Now = ts
	}

	now, err := cfg.now()
	if err != nil {
		return err
	}
	if cfg.pcfg.Now == "" {
		fmt.Fprintf(cfg.out, "now=%s (wall clock)\n", now.Format(time.RFC3339Nano))
	} else {
		fmt.Fprintf(cfg.out, "now=%s (%s)\n", now.Format(time.RFC3339Nano), humanize.Time(now))
	}
	return nil
}

//===================== resolve =====================

func resolveFn(ctx context.Context, cfg *config) error {
	name := cfg.pcfg.Range
	if n, ok := cfg.vars[rgNameGrp]; ok && n != "" {
		var err error
		if name, err = cfg.lookup(n); err != nil {
			return err
		}
	}

	now, err := cfg.now()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cfg.out, 0, 8, 2, ' ', 0)
	printRange(w, name, cfg.cat.Resolve(name, now), now)
	return w.Flush()
}

//===================== keep =====================

func keepFn(ctx context.Context, cfg *config) error {
	now, err := cfg.now()
	if err != nil {
		return err
	}

	p, err := cfg.parser()
	if err != nil {
		return err
	}
	start, err := p.Parse(unquote(cfg.vars[rgStartGrp]))
	if err != nil {
		return err
	}

	end := start
	es := unquote(cfg.vars[rgEndGrp])
	if es != "" {
		if end, err = p.Parse(es); err != nil {
			return err
		}
	}

	f := filter.Configure(cfg.cat, now, cfg.pcfg.Range, es != "")
	row := model.NewTimeRange(start, end)
	if f.Keep(start, end) {
		fmt.Fprintf(cfg.out, "kept: %s overlaps %s\n", row, f)
	} else {
		fmt.Fprintf(cfg.out, "removed: %s does not overlap %s\n", row, f)
	}
	return nil
}

//===================== filter =====================

func filterFn(ctx context.Context, cfg *config) error {
	fn := unquote(cfg.vars[rgFileGrp])
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := pipeline.Run(ctx, cfg.pcfg, f, cfg.out)
	fmt.Fprintf(cfg.out, "\n%s\n", st)
	return err
}

//===================== tql =====================

func tqlFn(ctx context.Context, cfg *config) error {
	q, err := tql.Parse(cfg.vars[rgTqlGrp])
	if err != nil {
		return err
	}
	if name, err := cfg.lookup(q.Range); err == nil {
		q.Range = name
	}
	if err = q.Apply(cfg.pcfg); err != nil {
		return err
	}
	return showFn(ctx, cfg)
}

//===================== show =====================

func showFn(ctx context.Context, cfg *config) error {
	now, err := cfg.now()
	if err != nil {
		return err
	}
	tr := cfg.cat.Resolve(cfg.pcfg.Range, now)
	fmt.Fprintf(cfg.out, "range=%q %s\nstart field=%q, end field=%q\nnow=%s\n", cfg.pcfg.Range, tr,
		cfg.pcfg.StartField, cfg.pcfg.EndField, now.Format(time.RFC3339Nano))
	return nil
}

//===================== quit =====================

func quitFn(ctx context.Context, cfg *config) error {
	cfg.quit = true
	return nil
}

//===================== help =====================

func helpFn(ctx context.Context, cfg *config) error {
	w := tabwriter.NewWriter(cfg.out, 0, 8, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(w, "%s\t%s\n", c.name, c.help)
	}
	return w.Flush()
}
