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
	"strings"
	"testing"

	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManifestWithBundle(t *testing.T, bundleURL resolve.ResolvedUrl, kind manifest.BundleKind, files ...string) (*manifest.BundleManifest, *manifest.Bundle) {
	t.Helper()
	b := testBundle(files...)
	b.Kind = kind
	m := &manifest.BundleManifest{Bundles: map[resolve.ResolvedUrl]*manifest.Bundle{bundleURL: b}}
	return reindexed(m), b
}

// reindexed rebuilds a BundleManifest's file index the same way Generate
// does internally, since that bookkeeping is unexported.
func reindexed(m *manifest.BundleManifest) *manifest.BundleManifest {
	return m.Fork()
}

func TestRewriteImportDeclarations_NamedImportAcrossBundles(t *testing.T) {
	destURL := resolve.ResolvedUrl("/dest.js")
	m, destBundle := newManifestWithBundle(t, destURL, manifest.BundleJS, "/dest.js", "/other.js")

	ownBundle := testBundle("/self.js")
	resolver := resolve.NewDefaultResolver()

	src := `import { foo } from "./other.js";` + "\n"
	out := rewriteImportDeclarations(src, "/self.js", resolver, m, ownBundle)

	want := NameFor(destBundle, destURL, "/other.js", "foo")
	assert.Contains(t, out, want)
	assert.Contains(t, out, `from "./dest.js"`)
}

func TestRewriteImportDeclarations_DefaultImportMasqueradesAsNamed(t *testing.T) {
	destURL := resolve.ResolvedUrl("/dest.js")
	m, destBundle := newManifestWithBundle(t, destURL, manifest.BundleJS, "/dest.js", "/other.js")
	ownBundle := testBundle("/self.js")
	resolver := resolve.NewDefaultResolver()

	src := `import Foo from "./other.js";` + "\n"
	out := rewriteImportDeclarations(src, "/self.js", resolver, m, ownBundle)

	want := NameFor(destBundle, destURL, "/other.js", "default")
	require.NotEqual(t, "default", want)
	assert.Contains(t, out, want+" as Foo")
}

func TestRewriteImportDeclarations_DedupesPlainNamedImportsSharingSource(t *testing.T) {
	destURL := resolve.ResolvedUrl("/dest.js")
	m, _ := newManifestWithBundle(t, destURL, manifest.BundleJS, "/dest.js", "/a.js", "/b.js")
	ownBundle := testBundle("/self.js")
	resolver := resolve.NewDefaultResolver()

	src := "import { x } from \"./a.js\";\nimport { y } from \"./b.js\";\n"
	out := rewriteImportDeclarations(src, "/self.js", resolver, m, ownBundle)

	// Both a.js and b.js land in the same destination bundle, so after
	// rewriting both lines share the same source and must merge into one.
	count := strings.Count(out, `from "./dest.js"`)
	assert.Equal(t, 1, count)
}

func TestRewriteDynamicImports_WrapsWithThen(t *testing.T) {
	destURL := resolve.ResolvedUrl("/dest.js")
	m, destBundle := newManifestWithBundle(t, destURL, manifest.BundleJS, "/dest.js", "/other.js")
	ownBundle := testBundle("/self.js")
	resolver := resolve.NewDefaultResolver()

	src := `const mod = import("./other.js");`
	out := rewriteDynamicImports(src, "/self.js", resolver, m, ownBundle)

	name := NameFor(destBundle, destURL, "/other.js", "*")
	assert.Contains(t, out, `.then(({ `+name+` }) => `+name+`)`)
}
