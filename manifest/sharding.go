/*

Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package manifest

import (
	"sort"
	"strings"

	A "github.com/IBM/fp-go/array"
	"github.com/polymer-tools/bundler/depindex"
	"github.com/polymer-tools/bundler/resolve"
)

// rawBundle is an intermediate, kind-less grouping produced by
// MaximalSharding before BundleKind is assigned by the orchestrator (which
// knows each file's analyzer-reported DocumentKind).
type rawBundle struct {
	entrypoints depindex.Set
	files       depindex.Set
}

// entrypointKey is a canonical, order-independent string key for a set of
// entrypoints, used to group files reached by exactly the same entrypoint
// set (spec.md §4.2's `S(F)`).
func entrypointKey(s depindex.Set) string {
	urls := s.Slice()
	strs := make([]string, len(urls))
	for i, u := range urls {
		strs[i] = string(u)
	}
	sort.Strings(strs)
	return strings.Join(strs, "\x00")
}

// MaximalSharding implements spec.md §4.2's core algorithm: invert the
// dependency map (file -> reaching entrypoints), then group files by that
// reaching-set so files reached by exactly the same entrypoints co-locate,
// and files reached by different sets are always separated (testable
// properties 1-3).
//
// The grouping is a plain loop; the final filtering over candidate bundle
// slices is expressed with fp-go's array.Filter, matching this repo's
// one documented use of a functional-combinator library over bundle slices
// even though the underlying algorithm is ordinary deterministic set
// partitioning — see DESIGN.md.
func MaximalSharding(deps depindex.TransitiveDepsMap) []*rawBundle {
	reachedBy := make(map[resolve.ResolvedUrl]depindex.Set)
	for entry, files := range deps {
		for f := range files {
			s, ok := reachedBy[f]
			if !ok {
				s = depindex.NewSet()
				reachedBy[f] = s
			}
			s.Add(entry)
		}
	}

	groups := make(map[string]*rawBundle)
	var order []string
	for f, entrypoints := range reachedBy {
		key := entrypointKey(entrypoints)
		g, ok := groups[key]
		if !ok {
			g = &rawBundle{entrypoints: entrypoints.Clone(), files: depindex.NewSet()}
			groups[key] = g
			order = append(order, key)
		}
		g.files.Add(f)
	}
	sort.Strings(order)

	candidates := make([]*rawBundle, len(order))
	for i, key := range order {
		candidates[i] = groups[key]
	}

	return A.Filter(func(b *rawBundle) bool { return len(b.files) > 0 })(candidates)
}
