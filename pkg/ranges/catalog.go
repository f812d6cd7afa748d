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

package ranges

import (
	"fmt"
	"time"

	"github.com/logrange/tmfilter/pkg/model"
	"github.com/pkg/errors"
)

type (
	// ResolveFunc turns the reference instant into a concrete time range.
	// The function must be pure: same now, same result.
	ResolveFunc func(now time.Time) model.TimeRange

	// NamedRange pairs a human readable range name with its resolution rule
	NamedRange struct {
		Name    string
		Resolve ResolveFunc
	}

	// Catalog is an ordered, immutable list of named ranges. The first entry
	// is the default one, it is used when an unknown name is resolved.
	// Catalog is safe for concurrent use.
	Catalog struct {
		nrs   []NamedRange
		names map[string]int
	}
)

var (
	// ErrUnknownRange is returned by ResolveStrict when the name is not in the catalog
	ErrUnknownRange = fmt.Errorf("unknown time range")

	// ErrDuplicateName is returned by NewCatalog when two entries share the same name
	ErrDuplicateName = fmt.Errorf("duplicate time range name")
)

// NewCatalog builds a catalog from the list provided. The order of nrs is
// kept, names must be non-empty and unique.
func NewCatalog(nrs ...NamedRange) (*Catalog, error) {
	if len(nrs) == 0 {
		return nil, fmt.Errorf("at least one named range must be provided")
	}

	c := new(Catalog)
	c.nrs = make([]NamedRange, len(nrs))
	c.names = make(map[string]int, len(nrs))
	for i, nr := range nrs {
		if nr.Name == "" {
			return nil, fmt.Errorf("named range #%d has empty name", i)
		}
		if nr.Resolve == nil {
			return nil, fmt.Errorf("named range %q has no resolve function", nr.Name)
		}
		if _, ok := c.names[nr.Name]; ok {
			return nil, errors.Wrapf(ErrDuplicateName, "name %q", nr.Name)
		}
		c.names[nr.Name] = i
		c.nrs[i] = nr
	}
	return c, nil
}

// Lookup returns the named range by its exact (case-sensitive) name
func (c *Catalog) Lookup(name string) (NamedRange, bool) {
	idx, ok := c.names[name]
	if !ok {
		return NamedRange{}, false
	}
	return c.nrs[idx], true
}

// Resolve returns the time range for the name provided. If the name is not
// known, the default (first) range of the catalog is resolved instead.
func (c *Catalog) Resolve(name string, now time.Time) model.TimeRange {
	nr, ok := c.Lookup(name)
	if !ok {
		nr = c.nrs[0]
	}
	return nr.Resolve(now)
}

// ResolveStrict works like Resolve, but returns ErrUnknownRange for names
// which are not in the catalog.
func (c *Catalog) ResolveStrict(name string, now time.Time) (model.TimeRange, error) {
	nr, ok := c.Lookup(name)
	if !ok {
		return model.TimeRange{}, errors.Wrapf(ErrUnknownRange, "%q, expected one of %q", name, c.Names())
	}
	return nr.Resolve(now), nil
}

// Names returns the catalog names in the catalog order
func (c *Catalog) Names() []string {
	res := make([]string, len(c.nrs))
	for i, nr := range c.nrs {
		res[i] = nr.Name
	}
	return res
}

// Default returns the name of the range used when an unknown name is resolved
func (c *Catalog) Default() string {
	return c.nrs[0].Name
}

// Contains returns whether the name is in the catalog
func (c *Catalog) Contains(name string) bool {
	_, ok := c.names[name]
	return ok
}

// ResolveRange resolves the name against the default catalog
func ResolveRange(name string, now time.Time) model.TimeRange {
	return NewDefaultCatalog().Resolve(name, now)
}

// ListRangeNames returns names of the default catalog, "All time" goes first
func ListRangeNames() []string {
	return NewDefaultCatalog().Names()
}
