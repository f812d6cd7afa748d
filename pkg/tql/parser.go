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

// Package tql contains the time query language parser. A query selects the
// named time range and the row fields the filter works with:
//
//	RANGE "Last 7 days" START ts END te AT "2024-03-15T14:30:00Z"
//
// Only RANGE is mandatory. Keywords are case-insensitive, the range name is
// not.
package tql

import (
	"strings"

	"github.com/alecthomas/participle"
	"github.com/alecthomas/participle/lexer"
	"github.com/logrange/tmfilter/pkg/pipeline"
	"github.com/pkg/errors"
)

var (
	tqlLexer = lexer.Must(newLongestDef(`(\s+)` +
		`|(?P<Keyword>(?i)RANGE|START|END|AT)` +
		`|(?P<Ident>[a-zA-Z_][a-zA-Z0-9_.\-]*)` +
		`|(?P<String>"([^\\"]|\\.)*"|'([^\\']|\\.)*')`,
	))

	parser = participle.MustBuild(
		&Query{},
		participle.Lexer(tqlLexer),
		participle.Unquote("String"),
		participle.CaseInsensitive("Keyword"),
	)
)

// Query is the parsed form of a tql statement
type Query struct {
	Range string `"RANGE" @String`
	Start string `("START" (@Ident|@String))?`
	End   string `("END" (@Ident|@String))?`
	At    string `("AT" @String)?`
}

// Parse parses the tql statement
func Parse(tql string) (*Query, error) {
	if len(strings.TrimSpace(tql)) == 0 {
		return nil, errors.Errorf("empty query, expected RANGE \"<name>\" [START <field>] [END <field>] [AT \"<timestamp>\"]")
	}

	q := &Query{}
	err := parser.ParseString(tql, q)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse %q", tql)
	}
	return q, nil
}

// Apply copies the query clauses to cfg. Clauses which are not present in
// the query leave cfg values untouched. The cfg is not changed if the result
// does not pass the config check.
func (q *Query) Apply(cfg *pipeline.Config) error {
	nc := *cfg
	nc.Range = q.Range
	if q.Start != "" {
		nc.StartField = q.Start
	}
	if q.End != "" {
		nc.EndField = q.End
	}
	if q.At != "" {
		nc.Now = q.At
	}
	if err := nc.Check(); err != nil {
		return errors.Wrapf(err, "could not apply %s", q)
	}
	*cfg = nc
	return nil
}

func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("RANGE ")
	sb.WriteString(quote(q.Range))
	if q.Start != "" {
		sb.WriteString(" START ")
		sb.WriteString(quote(q.Start))
	}
	if q.End != "" {
		sb.WriteString(" END ")
		sb.WriteString(quote(q.End))
	}
	if q.At != "" {
		sb.WriteString(" AT ")
		sb.WriteString(quote(q.At))
	}
	return sb.String()
}

func quote(s string) string {
	return "\"" + strings.Replace(strings.Replace(s, "\\", "\\\\", -1), "\"", "\\\"", -1) + "\""
}
