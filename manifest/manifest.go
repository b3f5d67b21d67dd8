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

// Package manifest partitions a dependency index into a bundle manifest
// (spec.md §4.2): the maximal-sharding algorithm, pluggable strategies
// (SharedDepsMerge, ShellMerge), the default URL mapper, and exclude
// filtering.
package manifest

import (
	"sort"

	"github.com/polymer-tools/bundler/depindex"
	"github.com/polymer-tools/bundler/resolve"
)

// BundleKind distinguishes an HTML bundle from a JS bundle for URL
// extension inference and rewriter dispatch.
type BundleKind int

const (
	BundleHTML BundleKind = iota
	BundleJS
)

// Bundle is a set of entrypoints and files to emit together, plus the
// per-bundle bookkeeping sets the rewriters populate (spec.md §3).
type Bundle struct {
	Kind        BundleKind
	Entrypoints depindex.Set
	Files       depindex.Set

	InlinedHTMLImports depindex.Set
	InlinedScripts     depindex.Set
	InlinedStyles      depindex.Set
	StripImports       depindex.Set
	MissingImports     depindex.Set
	BundledExports     map[resolve.ResolvedUrl]map[string]string // sourceModule -> original -> bundle name
}

func newBundle(kind BundleKind) *Bundle {
	return &Bundle{
		Kind:               kind,
		Entrypoints:        depindex.NewSet(),
		Files:              depindex.NewSet(),
		InlinedHTMLImports: depindex.NewSet(),
		InlinedScripts:     depindex.NewSet(),
		InlinedStyles:      depindex.NewSet(),
		StripImports:       depindex.NewSet(),
		MissingImports:     depindex.NewSet(),
		BundledExports:     make(map[resolve.ResolvedUrl]map[string]string),
	}
}

func (b *Bundle) clone() *Bundle {
	clone := newBundle(b.Kind)
	clone.Entrypoints = b.Entrypoints.Clone()
	clone.Files = b.Files.Clone()
	clone.InlinedHTMLImports = b.InlinedHTMLImports.Clone()
	clone.InlinedScripts = b.InlinedScripts.Clone()
	clone.InlinedStyles = b.InlinedStyles.Clone()
	clone.StripImports = b.StripImports.Clone()
	clone.MissingImports = b.MissingImports.Clone()
	for mod, names := range b.BundledExports {
		copied := make(map[string]string, len(names))
		for k, v := range names {
			copied[k] = v
		}
		clone.BundledExports[mod] = copied
	}
	return clone
}

// AssignedBundle identifies which bundle's perspective a rewriter writes
// from (spec.md §3).
type AssignedBundle struct {
	URL    resolve.ResolvedUrl
	Bundle *Bundle
}

// BundleManifest maps bundle URL to Bundle, with a reverse index from file
// URL to owning bundle URL (spec.md §3: "every file appears in exactly one
// bundle").
type BundleManifest struct {
	Bundles map[resolve.ResolvedUrl]*Bundle
	fileIdx map[resolve.ResolvedUrl]resolve.ResolvedUrl
}

func newManifest() *BundleManifest {
	return &BundleManifest{
		Bundles: make(map[resolve.ResolvedUrl]*Bundle),
		fileIdx: make(map[resolve.ResolvedUrl]resolve.ResolvedUrl),
	}
}

// BundleFor returns the bundle containing file, and whether one was found.
func (m *BundleManifest) BundleFor(file resolve.ResolvedUrl) (resolve.ResolvedUrl, *Bundle, bool) {
	bundleURL, ok := m.fileIdx[file]
	if !ok {
		return "", nil, false
	}
	return bundleURL, m.Bundles[bundleURL], true
}

func (m *BundleManifest) reindex() {
	m.fileIdx = make(map[resolve.ResolvedUrl]resolve.ResolvedUrl)
	for bundleURL, b := range m.Bundles {
		for f := range b.Files {
			m.fileIdx[f] = bundleURL
		}
	}
}

// Fork returns a deep copy usable for an independent rewrite pass (spec.md
// §4.2's `manifest.fork()`), so one rewriter's bookkeeping mutations never
// leak into a snapshot held elsewhere.
func (m *BundleManifest) Fork() *BundleManifest {
	out := newManifest()
	for url, b := range m.Bundles {
		out.Bundles[url] = b.clone()
	}
	out.reindex()
	return out
}

// SortedBundleURLs returns bundle URLs in a deterministic order, for
// deterministic iteration in the orchestrator and in manifest-out JSON.
func (m *BundleManifest) SortedBundleURLs() []resolve.ResolvedUrl {
	urls := make([]resolve.ResolvedUrl, 0, len(m.Bundles))
	for u := range m.Bundles {
		urls = append(urls, u)
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i] < urls[j] })
	return urls
}
