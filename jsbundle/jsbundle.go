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
package jsbundle

import (
	"context"
	"fmt"

	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
)

// Bundler produces one bundled ES module text per JS AssignedBundle, and
// implements htmlbundle.JSModuleRewriter so the HTML
// pipeline can reuse the same export-naming/rewrite machinery for inline
// `<script type="module">` bodies.
type Bundler struct {
	Resolver   resolve.Resolver
	Loader     *resolve.OverlayLoader
	Sourcemaps bool
}

func NewBundler(resolver resolve.Resolver, loader *resolve.OverlayLoader) *Bundler {
	return &Bundler{Resolver: resolver, Loader: loader}
}

// Bundle rolls up assigned's member modules into one merged, rewritten ES
// module and returns its text plus the set of files it pulled in.
func (b *Bundler) Bundle(ctx context.Context, assigned manifest.AssignedBundle, m *manifest.BundleManifest) (string, []resolve.ResolvedUrl, error) {
	merged, err := rollup(ctx, b.Loader, b.Resolver, assigned.URL, assigned.Bundle, nil, b.Sourcemaps)
	if err != nil {
		return "", nil, fmt.Errorf("jsbundle: rolling up %q: %w", assigned.URL, err)
	}

	// Re-analyzing the merged text before inspecting its imports would only
	// refresh the analyzer's view of it; since our rewrite steps operate
	// textually rather than off a cached Document, the merged string produced
	// by rollup already is that fresh view and no separate analyzer
	// round-trip is needed here.
	rewritten := rewriteImportDeclarations(merged, assigned.URL, b.Resolver, m, assigned.Bundle)
	rewritten = rewriteDynamicImports(rewritten, assigned.URL, b.Resolver, m, assigned.Bundle)

	files := assigned.Bundle.Files.Slice()
	return rewritten, files, nil
}

// RewriteInlineModule implements htmlbundle.JSModuleRewriter: it applies the
// same post-rollup import/dynamic-import rewrites used for a rolled-up
// bundle to a single inline module's own source, without an esbuild merge
// step, since
// an inline script's own local same-bundle dependencies were already
// inlined as their own `<script>` siblings by the time this runs.
func (b *Bundler) RewriteInlineModule(ctx context.Context, baseURL resolve.ResolvedUrl, source string, assigned manifest.AssignedBundle, m *manifest.BundleManifest) (string, error) {
	rewritten := rewriteImportDeclarations(source, baseURL, b.Resolver, m, assigned.Bundle)
	rewritten = rewriteDynamicImports(rewritten, baseURL, b.Resolver, m, assigned.Bundle)
	return rewritten, nil
}
