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

package rows

import (
	"context"
	"io"
)

type (
	// SelectF decides which row goes first. It returns true if r1 must be
	// selected before r2.
	SelectF func(r1, r2 Row) bool

	// Mixer merges 2 Iterators into one
	Mixer struct {
		sf       SelectF
		it1, it2 Iterator
		st       byte
		eof1     bool
		eof2     bool
		r1       Row
		r2       Row
		err      error
	}
)

const (
	mxUnknown = iota
	mxFirst
	mxSecond
	mxEOF
)

// GetFirst always selects r1
func GetFirst(r1, r2 Row) bool {
	return true
}

// NewMixer returns an Iterator which merges its by sf. More than 2 iterators
// are merged via the balanced tree of Mixers.
func NewMixer(sf SelectF, its ...Iterator) Iterator {
	switch len(its) {
	case 0:
		return NewSliceIterator(nil)
	case 1:
		return its[0]
	case 2:
		mr := new(Mixer)
		mr.Init(sf, its[0], its[1])
		return mr
	}
	m := len(its) / 2
	return NewMixer(sf, NewMixer(sf, its[:m]...), NewMixer(sf, its[m:]...))
}

// Init initializes the mixer
func (mr *Mixer) Init(sf SelectF, it1, it2 Iterator) {
	mr.sf = sf
	mr.it1 = it1
	mr.it2 = it2
	mr.st = mxUnknown
	mr.eof1 = false
	mr.eof2 = false
	mr.r1 = Row{}
	mr.r2 = Row{}
	mr.err = nil
}

func (mr *Mixer) Next(ctx context.Context) {
	mr.selectState(ctx)
	switch mr.st {
	case mxFirst:
		mr.it1.Next(ctx)
	case mxSecond:
		mr.it2.Next(ctx)
	}
	mr.st = mxUnknown
	mr.err = nil
}

func (mr *Mixer) Get(ctx context.Context) (Row, error) {
	mr.selectState(ctx)
	if mr.err != nil {
		return Row{}, mr.err
	}
	switch mr.st {
	case mxFirst:
		return mr.r1, nil
	case mxSecond:
		return mr.r2, nil
	}
	return Row{}, io.EOF
}

// Close closes both iterators and returns the first error if any
func (mr *Mixer) Close() error {
	err := mr.it1.Close()
	if err2 := mr.it2.Close(); err == nil {
		err = err2
	}
	return err
}

// selectState reads both iterators and selects the row to be returned. If
// one of them returns an error, the error is kept and the iterator is
// selected, so Next() skips its row.
func (mr *Mixer) selectState(ctx context.Context) {
	if mr.st != mxUnknown {
		return
	}

	var err error
	if !mr.eof1 {
		mr.r1, err = mr.it1.Get(ctx)
		if err != nil && err != io.EOF {
			mr.err = err
			mr.st = mxFirst
			return
		}
		mr.eof1 = err == io.EOF
	}

	if !mr.eof2 {
		mr.r2, err = mr.it2.Get(ctx)
		if err != nil && err != io.EOF {
			mr.err = err
			mr.st = mxSecond
			return
		}
		mr.eof2 = err == io.EOF
	}

	switch {
	case mr.eof1 && mr.eof2:
		mr.st = mxEOF
	case mr.eof1:
		mr.st = mxSecond
	case mr.eof2 || mr.sf(mr.r1, mr.r2):
		mr.st = mxFirst
	default:
		mr.st = mxSecond
	}
}
