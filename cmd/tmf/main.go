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

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrivets/log4g"
	"github.com/logrange/tmfilter/pkg/pipeline"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/logrange/tmfilter/pkg/shell"
	"github.com/logrange/tmfilter/pkg/tql"
	"github.com/logrange/tmfilter/pkg/utils"
	"github.com/pkg/errors"
	ucli "gopkg.in/urfave/cli.v2"
)

const (
	Version = "0.1.0"

	argCfgFile    = "config-file"
	argLogCfgFile = "log-config-file"
	argNow        = "now"
	argLocation   = "location"

	argRange       = "range"
	argStartField  = "start-field"
	argEndField    = "end-field"
	argFormat      = "format"
	argTimeFormats = "time-formats"
	argOutput      = "output"
	argOutFile     = "out-file"
	argStrict      = "strict"
	argSkipInvalid = "skip-invalid"
	argMerge       = "merge"

	argJson = "json"
)

var (
	logger = log4g.GetLogger("tmf")
)

// main is the entry point for 'tmf' command. The tmf filters rows of log
// files and other line-oriented data by named relative time ranges. The
// commands are:
// 		ranges 	- prints the known ranges
//		resolve	- prints the interval of a range
// 		filter  - filters rows of files or stdin by a range
// 		query   - filters rows by a tql statement
// 		shell   - runs an interactive shell to play with ranges
func main() {
	defer log4g.Shutdown()

	cmnFlags := []ucli.Flag{
		&ucli.StringFlag{
			Name:  argCfgFile,
			Usage: "configuration file path, json or yaml",
		},
		&ucli.StringFlag{
			Name:  argLogCfgFile,
			Usage: "log4g configuration file path",
		},
		&ucli.StringFlag{
			Name:  argNow,
			Usage: "reference time the ranges are resolved against, the current time if not set",
		},
		&ucli.StringFlag{
			Name:  argLocation,
			Usage: "time zone the day boundaries are computed and timestamps without zone are read in, \"UTC\" by default",
		},
	}

	filterFlags := []ucli.Flag{
		&ucli.StringFlag{
			Name:  argRange,
			Usage: "time range name, e.g. \"Last 7 days\", see 'tmf ranges'",
		},
		&ucli.StringFlag{
			Name:  argStartField,
			Usage: "name of the field with the row start time",
		},
		&ucli.StringFlag{
			Name:  argEndField,
			Usage: "name of the field with the row end time, rows are points if not set",
		},
		&ucli.StringFlag{
			Name:  argFormat,
			Usage: "input data format, one of: \"logfmt\" or \"json\"",
		},
		&ucli.StringSliceFlag{
			Name:  argTimeFormats,
			Usage: "additional timestamp formats, e.g. \"DD.MM.YYYY HH:mm\"",
		},
		&ucli.StringFlag{
			Name:  argOutput,
			Usage: "output format, one of: \"raw\" or \"json\"",
		},
		&ucli.StringFlag{
			Name:  argOutFile,
			Usage: "file the kept rows are written to, stdout if not set",
		},
		&ucli.BoolFlag{
			Name:  argStrict,
			Usage: "fail on unknown range names instead of using \"" + ranges.AllTime + "\"",
		},
		&ucli.BoolFlag{
			Name:  argSkipInvalid,
			Usage: "skip rows with no valid timestamps instead of failing",
		},
		&ucli.BoolFlag{
			Name:  argMerge,
			Usage: "merge the kept rows of all the files in order of their start time",
		},
	}
	filterFlags = append(filterFlags, cmnFlags...)

	app := &ucli.App{
		Name:    "tmf",
		Version: Version,
		Usage:   "Filter rows by relative time ranges",
		Commands: []*ucli.Command{
			{
				Name:      "ranges",
				Usage:     "Print the known time ranges",
				UsageText: "tmf ranges [command options]",
				Action:    printRanges,
				Flags: append([]ucli.Flag{
					&ucli.BoolFlag{
						Name:  argJson,
						Usage: "print the ranges in json",
					},
				}, cmnFlags...),
			},
			{
				Name:      "resolve",
				Usage:     "Print the interval of a time range",
				ArgsUsage: "<range name>",
				Action:    resolveRange,
				Flags: append([]ucli.Flag{
					&ucli.BoolFlag{
						Name:  argStrict,
						Usage: "fail on unknown range names",
					},
				}, cmnFlags...),
			},
			{
				Name:      "filter",
				Usage:     "Filter rows of the files, or stdin, by a time range",
				ArgsUsage: "[files...]",
				Action:    runFilter,
				Flags:     filterFlags,
			},
			{
				Name:      "query",
				Usage:     "Filter rows of the files, or stdin, by a tql statement",
				ArgsUsage: "<tql statement> [files...]",
				Action:    runQuery,
				Flags:     filterFlags,
			},
			{
				Name:      "shell",
				Usage:     "Run the interactive shell",
				UsageText: "tmf shell [command options]",
				Action:    runShell,
				Flags:     cmnFlags,
			},
		},
	}

	sort.Sort(ucli.FlagsByName(app.Flags))
	for _, c := range app.Commands {
		sort.Sort(ucli.FlagsByName(c.Flags))
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCfg(c *ucli.Context) (*pipeline.Config, error) {
	var (
		err error
		cfg = pipeline.NewDefaultConfig()
	)

	logCfgFile := c.String(argLogCfgFile)
	if logCfgFile != "" {
		err = log4g.ConfigF(logCfgFile)
		if err != nil {
			return nil, err
		}
	}

	cfgFile := c.String(argCfgFile)
	if cfgFile != "" {
		logger.Info("Loading config from=", cfgFile)
		config, err := pipeline.LoadCfgFromFile(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg.Apply(config)
	}

	applyArgsToCfg(c, cfg)
	return cfg, nil
}

// applyArgsToCfg overrides the config values by the command line flags. Flags
// which are not defined for the command are ignored.
func applyArgsToCfg(c *ucli.Context, cfg *pipeline.Config) {
	sets := []struct {
		arg string
		val *string
	}{
		{argNow, &cfg.Now},
		{argLocation, &cfg.Location},
		{argRange, &cfg.Range},
		{argStartField, &cfg.StartField},
		{argEndField, &cfg.EndField},
		{argFormat, &cfg.Format},
		{argOutput, &cfg.Output},
	}
	for _, s := range sets {
		if v := c.String(s.arg); v != "" {
			*s.val = v
		}
	}

	if tfs := c.StringSlice(argTimeFormats); len(tfs) > 0 {
		cfg.TimeFormats = tfs
	}
	if c.Bool(argStrict) {
		cfg.StrictRange = true
	}
	if c.Bool(argSkipInvalid) {
		cfg.SkipInvalid = true
	}
}

func newCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	utils.NewNotifierOnIntTermSignal(func(s os.Signal) {
		logger.Warn("Handling signal=", s)
		cancel()
	})
	return ctx
}

func printRanges(c *ucli.Context) error {
	cfg, err := initCfg(c)
	if err != nil {
		return err
	}
	now, err := cfg.NowTime()
	if err != nil {
		return err
	}

	cat := ranges.NewDefaultCatalog()
	if c.Bool(argJson) {
		type rng struct {
			Name  string
			Start time.Time
			End   time.Time
		}
		res := make([]rng, 0, len(cat.Names()))
		for _, n := range cat.Names() {
			tr := cat.Resolve(n, now)
			res = append(res, rng{n, tr.Start(), tr.End()})
		}
		fmt.Println(utils.ToJsonStr(res))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tSTART\tEND\n")
	for _, n := range cat.Names() {
		tr := cat.Resolve(n, now)
		fmt.Fprintf(w, "%s\t%s\t%s\n", n, tr.Start().Format(time.RFC3339), tr.End().Format(time.RFC3339))
	}
	return w.Flush()
}

func resolveRange(c *ucli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("range name expected, one of %v", ranges.ListRangeNames())
	}
	cfg, err := initCfg(c)
	if err != nil {
		return err
	}
	now, err := cfg.NowTime()
	if err != nil {
		return err
	}

	name := strings.Join(c.Args().Slice(), " ")
	cat := ranges.NewDefaultCatalog()
	tr := cat.Resolve(name, now)
	if cfg.StrictRange {
		if tr, err = cat.ResolveStrict(name, now); err != nil {
			return err
		}
	}
	fmt.Println(tr)
	return nil
}

func runFilter(c *ucli.Context) error {
	return filterFiles(c, c.Args().Slice(), nil)
}

func runQuery(c *ucli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("tql statement expected, e.g. 'RANGE \"Last 7 days\" START ts'")
	}
	q, err := tql.Parse(c.Args().First())
	if err != nil {
		return err
	}
	return filterFiles(c, c.Args().Tail(), q)
}

// filterFiles runs the pipeline over every file, or stdin if no files are
// provided, and writes the kept rows to the out file or stdout.
func filterFiles(c *ucli.Context, files []string, q *tql.Query) error {
	outFile := c.String(argOutFile)
	if outFile == "" && c.String(argLogCfgFile) == "" {
		// the logs go to stdout and would be mixed with the rows
		log4g.SetLogLevel("", log4g.FATAL)
	}

	cfg, err := initCfg(c)
	if err != nil {
		return err
	}
	if q != nil {
		if err = q.Apply(cfg); err != nil {
			return err
		}
	}
	// all the files are filtered against one reference time
	if err = cfg.PinNow(); err != nil {
		return err
	}
	logger.Info("Filtering with ", cfg)

	var out io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	ctx := newCtx()
	if len(files) == 0 {
		_, err = pipeline.Run(ctx, cfg, os.Stdin, out)
		return err
	}

	if c.Bool(argMerge) && len(files) > 1 {
		return filterMerged(ctx, cfg, files, out)
	}

	var total pipeline.Stats
	for _, fn := range files {
		st, err := filterFile(ctx, cfg, fn, out)
		total = total.Add(st)
		if err != nil {
			return err
		}
	}
	logger.Info("Total for ", len(files), " files: ", total)
	return nil
}

func filterFile(ctx context.Context, cfg *pipeline.Config, fn string, out io.Writer) (pipeline.Stats, error) {
	f, err := os.Open(fn)
	if err != nil {
		return pipeline.Stats{}, err
	}
	defer f.Close()

	st, err := pipeline.Run(ctx, cfg, f, out)
	if err != nil {
		return st, errors.Wrapf(err, "could not filter %s", fn)
	}
	logger.Info(fn, ": ", st)
	return st, nil
}

func filterMerged(ctx context.Context, cfg *pipeline.Config, files []string, out io.Writer) error {
	ins := make([]io.Reader, 0, len(files))
	for _, fn := range files {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		defer f.Close()
		ins = append(ins, f)
	}

	st, err := pipeline.RunMerged(ctx, cfg, ins, out)
	if err != nil {
		return err
	}
	logger.Info("Merged ", len(files), " files: ", st)
	return nil
}

func runShell(c *ucli.Context) error {
	log4g.SetLogLevel("", log4g.FATAL)
	cfg, err := initCfg(c)
	if err != nil {
		return err
	}

	if c.Args().Len() > 0 {
		return fmt.Errorf("no arguments expected, but got %v", c.Args().Slice())
	}
	if err = cfg.Check(); err != nil {
		return err
	}
	return shell.Run(cfg)
}
