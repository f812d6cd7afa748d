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
	"os/user"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/logrange/tmfilter/pkg/pipeline"
	"github.com/logrange/tmfilter/pkg/ranges"
	"github.com/logrange/tmfilter/pkg/utils"
	"github.com/peterh/liner"
)

type (
	shell struct {
		cfg   *config
		hfile string
	}
)

const (
	shellHistoryFileName = ".tmf_history"
)

// Run starts the interactive shell. The pipeline config provides the initial
// range, fields and reference time, the shell commands change them.
func Run(pcfg *pipeline.Config) error {
	printLogo()
	cfg := newConfig(pcfg, ranges.NewDefaultCatalog(), os.Stdout)
	newShell(cfg, historyFilePath()).run()
	return nil
}

// Exec runs one shell command and writes its output to out
func Exec(ctx context.Context, input string, pcfg *pipeline.Config, out io.Writer) error {
	return execCmd(ctx, strings.TrimSpace(input), newConfig(pcfg, ranges.NewDefaultCatalog(), out))
}

func historyFilePath() string {
	var fileDir = os.TempDir()
	usr, err := user.Current()
	if err == nil {
		fileDir = usr.HomeDir
	}
	return filepath.Join(fileDir, shellHistoryFileName)
}

func printLogo() {
	fmt.Print("" +
		" _               __ _ _ _            \n" +
		"| |_ _ __ ___   / _(_) | |_ ___ _ __ \n" +
		"| __| '_ ` _ \\ | |_| | | __/ _ \\ '__|\n" +
		"| |_| | | | | ||  _| | | ||  __/ |   \n" +
		" \\__|_| |_| |_||_| |_|_|\\__\\___|_|   \n\n" +
		"type 'help' to see the commands\n\n")
}

func printError(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err)
}

//===================== shell =====================

func newShell(cfg *config, hFile string) *shell {
	s := new(shell)
	s.cfg = cfg
	s.hfile = hFile
	return s
}

func (s *shell) run() {
	lnr := liner.NewLiner()
	lnr.SetCtrlCAborts(true)
	lnr.SetTabCompletionStyle(liner.TabPrints)
	lnr.SetCompleter(s.cfg.complete)

	s.loadHistory(lnr)
	beforeQuit := func() {
		s.saveHistory(lnr)
		_ = lnr.Close()
		fmt.Println("bye!")
	}
	defer beforeQuit()

	for !s.cfg.quit {
		inp, err := lnr.Prompt(s.cfg.prompt())
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				break
			}
			printError(err)
			continue
		}

		inp = strings.TrimSpace(inp)
		if inp == "" {
			continue
		}

		lnr.AppendHistory(inp)
		ctx, cancel := context.WithCancel(context.Background())
		stop := utils.NewNotifierOnIntTermSignal(func(s os.Signal) {
			cancel()
		})

		err = execCmd(ctx, inp, s.cfg)
		stop()
		cancel()
		if err != nil {
			printError(err)
		}
	}
}

func (s *shell) loadHistory(lnr *liner.State) {
	f, err := os.OpenFile(s.hfile, os.O_RDONLY|os.O_CREATE, 0640)
	if err != nil {
		printError(err)
		return
	}
	defer f.Close()

	if _, err = lnr.ReadHistory(f); err != nil {
		printError(err)
	}
}

// saveHistory writes the history under the file lock, so several shells
// running at the same time don't corrupt the file
func (s *shell) saveHistory(lnr *liner.State) {
	fl := flock.New(s.hfile + ".lock")
	locked, err := fl.TryLock()
	if err != nil || !locked {
		printError(fmt.Errorf("history is not saved, could not lock %s: %v", fl.Path(), err))
		return
	}
	defer fl.Unlock()

	f, err := os.OpenFile(s.hfile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		printError(err)
		return
	}
	defer f.Close()

	if _, err = lnr.WriteHistory(f); err != nil {
		printError(err)
	}
}
