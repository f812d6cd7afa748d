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

package tql

import (
	"fmt"
	"io"
	"io/ioutil"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/lexer"
)

type (
	// longestDef is a regexp lexer definition which picks the longest token
	// among the alternatives, so a keyword which is a prefix of an identifier
	// (e.g. END in end-time) does not split it. Equal length matches go to
	// the alternative listed first.
	longestDef struct {
		re      *regexp.Regexp
		symbols map[string]rune
	}

	longestLexer struct {
		pos   lexer.Position
		s     string
		re    *regexp.Regexp
		names []string
	}
)

func newLongestDef(pattern string) (lexer.Definition, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	re.Longest()

	syms := map[string]rune{"EOF": lexer.EOF}
	for grp, name := range re.SubexpNames() {
		if grp > 0 && name != "" {
			syms[name] = lexer.EOF - rune(grp)
		}
	}
	return &longestDef{re: re, symbols: syms}, nil
}

func (d *longestDef) Lex(r io.Reader) (lexer.Lexer, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &longestLexer{
		pos:   lexer.Position{Filename: lexer.NameOfReader(r), Line: 1, Column: 1},
		s:     string(b),
		re:    d.re,
		names: d.re.SubexpNames(),
	}, nil
}

func (d *longestDef) Symbols() map[string]rune {
	return d.symbols
}

func (l *longestLexer) Next() (lexer.Token, error) {
	for len(l.s) > 0 {
		m := l.re.FindStringSubmatchIndex(l.s)
		if m == nil || m[0] != 0 || m[1] == 0 {
			rn, _ := utf8.DecodeRuneInString(l.s)
			return lexer.Token{}, fmt.Errorf("invalid token %q, pos=%s", rn, l.pos)
		}

		val := l.s[:m[1]]
		tok := lexer.Token{Pos: l.pos, Value: val}
		l.advance(val)

		grp := l.group(m)
		if grp < 0 || l.names[grp] == "" {
			// unnamed groups (white spaces) are dropped
			continue
		}
		tok.Type = lexer.EOF - rune(grp)
		return tok, nil
	}
	return lexer.EOFToken(l.pos), nil
}

// group returns the index of the first participating top-level group
func (l *longestLexer) group(m []int) int {
	for i := 2; i < len(m); i += 2 {
		if m[i] != -1 {
			return i / 2
		}
	}
	return -1
}

func (l *longestLexer) advance(val string) {
	l.pos.Offset += len(val)
	if nl := strings.Count(val, "\n"); nl > 0 {
		l.pos.Line += nl
		l.pos.Column = utf8.RuneCountInString(val[strings.LastIndex(val, "\n"):])
	} else {
		l.pos.Column += utf8.RuneCountInString(val)
	}
	l.s = l.s[len(val):]
}
