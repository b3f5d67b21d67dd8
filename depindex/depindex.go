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

// Package depindex builds the transitive dependency index: for each
// entrypoint, the set of files it reaches by following eager imports,
// treating lazy HTML imports as new entrypoints rather than traversing
// through them.
package depindex

import (
	"context"
	"fmt"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/internal/logging"
	"github.com/polymer-tools/bundler/resolve"
)

// Set is a simple string-keyed set of resolved URLs.
type Set map[resolve.ResolvedUrl]struct{}

func NewSet(urls ...resolve.ResolvedUrl) Set {
	s := make(Set, len(urls))
	for _, u := range urls {
		s[u] = struct{}{}
	}
	return s
}

func (s Set) Add(u resolve.ResolvedUrl)      { s[u] = struct{}{} }
func (s Set) Has(u resolve.ResolvedUrl) bool { _, ok := s[u]; return ok }

func (s Set) Clone() Set {
	out := make(Set, len(s))
	for u := range s {
		out[u] = struct{}{}
	}
	return out
}

func (s Set) Union(other Set) {
	for u := range other {
		s[u] = struct{}{}
	}
}

func (s Set) Slice() []resolve.ResolvedUrl {
	out := make([]resolve.ResolvedUrl, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	return out
}

// TransitiveDepsMap maps each entrypoint URL to the set of files it
// transitively reaches, including itself.
type TransitiveDepsMap map[resolve.ResolvedUrl]Set

// Builder walks entrypoints through an Analyzer, memoizing each file's own
// "what it reaches" set so a file imported from multiple places is only
// analyzed once.
type Builder struct {
	Analyzer analyzer.Analyzer
}

func NewBuilder(a analyzer.Analyzer) *Builder {
	return &Builder{Analyzer: a}
}

// walker computes, and memoizes, "what does file X eagerly reach" as a pure
// function of X — independent of which entrypoint is asking — so
// diamond-shaped import graphs are analyzed once per file (a file whose walk
// was cut short by an unfinished cycle is not memoized; see reachFrom). Lazy
// imports are collected separately (not part of the returned reached set)
// since they become new entrypoints rather than contributing to this file's
// closure.
type walker struct {
	analyzer analyzer.Analyzer
	memo     map[resolve.ResolvedUrl]Set
	lazyOf   map[resolve.ResolvedUrl][]resolve.ResolvedUrl
	onStack  Set
}

// Build computes the TransitiveDepsMap for the given entrypoints. The set of
// entrypoints to process grows as lazy HTML imports are discovered;
// termination follows from the URL universe being finite, each URL being
// queued at most once, and the on-stack check cutting every cycle.
func (b *Builder) Build(ctx context.Context, entrypoints []resolve.ResolvedUrl) (TransitiveDepsMap, error) {
	w := &walker{
		analyzer: b.Analyzer,
		memo:     make(map[resolve.ResolvedUrl]Set),
		lazyOf:   make(map[resolve.ResolvedUrl][]resolve.ResolvedUrl),
		onStack:  NewSet(),
	}

	out := make(TransitiveDepsMap)
	queue := append([]resolve.ResolvedUrl(nil), entrypoints...)
	queued := NewSet(entrypoints...)

	for i := 0; i < len(queue); i++ {
		entry := queue[i]
		if _, done := out[entry]; done {
			continue
		}
		reached, err := w.reachFrom(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("depindex: building index for entrypoint %q: %w", entry, err)
		}
		out[entry] = reached

		for _, lazy := range w.lazyTransitiveOf(entry, reached) {
			if !queued.Has(lazy) {
				queued.Add(lazy)
				queue = append(queue, lazy)
			}
		}
	}
	return out, nil
}

// lazyTransitiveOf collects every lazy-import target discovered anywhere in
// the eager closure just computed for entry (reached), so they can be
// queued as new entrypoints regardless of how deep the lazy <link> sits.
func (w *walker) lazyTransitiveOf(entry resolve.ResolvedUrl, reached Set) []resolve.ResolvedUrl {
	var out []resolve.ResolvedUrl
	for f := range reached {
		out = append(out, w.lazyOf[f]...)
	}
	return out
}

// reachFrom returns the memoized set of files eagerly reachable from u,
// including u itself. A URL already on the current call stack (a cycle) is
// treated as reaching only itself for the purposes of breaking recursion;
// the full set is still assembled by the ancestor once the cycle unwinds,
// since every node on the cycle gets unioned together.
func (w *walker) reachFrom(ctx context.Context, u resolve.ResolvedUrl) (Set, error) {
	if cached, ok := w.memo[u]; ok {
		return cached, nil
	}
	if w.onStack.Has(u) {
		return NewSet(u), nil
	}
	w.onStack.Add(u)
	defer delete(w.onStack, u)

	result := NewSet(u)

	doc, err := w.analyzer.Analyze(ctx, u)
	if err != nil {
		logging.Warning("depindex: could not load %q, recording as missing: %v", u, err)
		w.memo[u] = result
		return result, nil
	}

	for _, feat := range doc.GetFeatures(analyzer.GetFeaturesOptions{Kind: []analyzer.FeatureKind{
		analyzer.FeatureHTMLImport, analyzer.FeatureHTMLScript, analyzer.FeatureHTMLStyle,
		analyzer.FeatureJSImport, analyzer.FeatureCSSImport,
	}}) {
		if !feat.Resolved || feat.Target == "" {
			continue
		}
		if feat.Kind == analyzer.FeatureHTMLImport && !feat.HTMLImportEager {
			w.lazyOf[u] = append(w.lazyOf[u], feat.Target)
			continue
		}
		if feat.Kind == analyzer.FeatureJSImport && feat.JSImportDynamic {
			// Dynamic import() targets are not part of the eager closure;
			// jsbundle rewrites the call site, but depindex does not
			// traverse into it (conceptually lazy, like a lazy HTML
			// import, but not re-queued as a new entrypoint since it has
			// no independent bundling identity of its own).
			continue
		}

		childReached, err := w.reachFrom(ctx, feat.Target)
		if err != nil {
			return nil, err
		}
		result.Union(childReached)
	}

	// Cycle correction: if any member of result is on the stack above us
	// (meaning this call was itself invoked from within a cycle that
	// hasn't unwound), result was cut short at that member and memoizing
	// it would be wrong for later lookups of u from outside the cycle. Such
	// a partial set is returned to the caller but not memoized; a later
	// lookup of u walks it again.
	for v := range result {
		if v != u && w.onStack.Has(v) {
			return result, nil
		}
	}
	w.memo[u] = result
	return result, nil
}
