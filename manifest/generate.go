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
	"strings"

	"github.com/polymer-tools/bundler/depindex"
	"github.com/polymer-tools/bundler/resolve"
)

// Generator produces a BundleManifest from a TransitiveDepsMap.
type Generator struct {
	Strategy Strategy
	URLMap   URLMapper
	Excludes []resolve.ResolvedUrl
	KindOf   func(resolve.ResolvedUrl) BundleKind
}

// NewGenerator builds a Generator with spec.md §6's documented defaults:
// SharedDepsMerge(2) and DefaultURLMapper.
func NewGenerator(kindOf func(resolve.ResolvedUrl) BundleKind) *Generator {
	return &Generator{
		Strategy: DefaultStrategy(),
		URLMap:   DefaultURLMapper,
		KindOf:   kindOf,
	}
}

// isExcluded implements spec.md §4.2's exclude semantics: F is excluded if
// F equals an exclude entry or starts with `entry + "/"`.
func isExcluded(f resolve.ResolvedUrl, excludes []resolve.ResolvedUrl) bool {
	for _, e := range excludes {
		if f == e || strings.HasPrefix(string(f), string(e)+"/") {
			return true
		}
	}
	return false
}

// Generate runs the full §4.2 pipeline: maximal-sharding, per-bundle
// exclude filtering (dropping bundles left empty), the configured
// strategy, and URL assignment.
func (g *Generator) Generate(deps depindex.TransitiveDepsMap) (*BundleManifest, error) {
	allEntrypoints := depindex.NewSet()
	for e := range deps {
		allEntrypoints.Add(e)
	}

	raw := MaximalSharding(deps)

	// Excludes are applied before the strategy runs, per spec.md §4.2:
	// each bundle's files has every excluded member removed; bundles left
	// empty are dropped.
	filtered := make([]*rawBundle, 0, len(raw))
	for _, b := range raw {
		kept := depindex.NewSet()
		for f := range b.files {
			if !isExcluded(f, g.Excludes) {
				kept.Add(f)
			}
		}
		if len(kept) == 0 {
			continue
		}
		filtered = append(filtered, &rawBundle{entrypoints: b.entrypoints, files: kept})
	}

	strategy := g.Strategy
	if strategy == nil {
		strategy = DefaultStrategy()
	}
	strategized, err := strategy(filtered, allEntrypoints)
	if err != nil {
		return nil, err
	}

	mapper := g.URLMap
	if mapper == nil {
		mapper = DefaultURLMapper
	}
	assigned := mapper(strategized, g.KindOf)

	out := newManifest()
	for url, rb := range assigned {
		kind := BundleHTML
		for f := range rb.files {
			kind = g.KindOf(f)
			break
		}
		b := newBundle(kind)
		b.Entrypoints = rb.entrypoints
		b.Files = rb.files
		out.Bundles[url] = b
	}
	out.reindex()
	return out, nil
}
