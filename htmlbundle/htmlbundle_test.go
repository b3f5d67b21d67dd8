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
package htmlbundle

import (
	"context"
	"strings"
	"testing"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/depindex"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memLoader is a resolve.Loader backed by an in-memory map, for tests that
// need a document graph without touching disk.
type memLoader map[resolve.ResolvedUrl]string

func (m memLoader) Load(ctx context.Context, u resolve.ResolvedUrl) ([]byte, error) {
	content, ok := m[u]
	if !ok {
		return nil, &notFoundError{u: u}
	}
	return []byte(content), nil
}

type notFoundError struct{ u resolve.ResolvedUrl }

func (e *notFoundError) Error() string { return "not found: " + string(e.u) }

func newTestBundler(files memLoader, opts Options) (*Bundler, *resolve.OverlayLoader) {
	resolver := resolve.NewDefaultResolver()
	overlay := resolve.NewOverlayLoader(files)
	a := analyzer.NewDefaultAnalyzer(overlay, resolver)
	return NewBundler(a, resolver, overlay, nil, opts), overlay
}

func singleBundleManifest(bundleURL resolve.ResolvedUrl, kind manifest.BundleKind, entrypoints []resolve.ResolvedUrl, files []resolve.ResolvedUrl) (*manifest.BundleManifest, manifest.AssignedBundle) {
	b := &manifest.Bundle{
		Kind:               kind,
		Entrypoints:        depindex.NewSet(),
		Files:              depindex.NewSet(),
		InlinedHTMLImports: depindex.NewSet(),
		InlinedScripts:     depindex.NewSet(),
		InlinedStyles:      depindex.NewSet(),
		StripImports:       depindex.NewSet(),
		MissingImports:     depindex.NewSet(),
		BundledExports:     map[resolve.ResolvedUrl]map[string]string{},
	}
	for _, e := range entrypoints {
		b.Entrypoints.Add(e)
	}
	for _, f := range files {
		b.Files.Add(f)
	}
	m := &manifest.BundleManifest{Bundles: map[resolve.ResolvedUrl]*manifest.Bundle{bundleURL: b}}
	return m.Fork(), manifest.AssignedBundle{URL: bundleURL, Bundle: m.Bundles[bundleURL]}
}

func TestBundle_InlinesEagerHTMLImport(t *testing.T) {
	files := memLoader{
		"/a.html": `<!DOCTYPE html><html><head>
<link rel="import" href="./b.html">
</head><body>root</body></html>`,
		"/b.html": `<!DOCTYPE html><html><head></head><body><div id="from-b">hi</div></body></html>`,
	}
	b, _ := newTestBundler(files, DefaultOptions())
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html", "/b.html"})

	out, inlined, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)
	assert.Contains(t, out, `id="from-b"`)
	assert.NotContains(t, out, `rel="import"`)
	assert.Contains(t, inlined, resolve.ResolvedUrl("/b.html"))
}

func TestBundle_InlinesNonModuleScript(t *testing.T) {
	files := memLoader{
		"/a.html": `<!DOCTYPE html><html><head></head><body><script src="./app.js"></script></body></html>`,
		"/app.js": `console.log("hello");`,
	}
	opts := DefaultOptions()
	b, _ := newTestBundler(files, opts)
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html"})

	out, inlined, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)
	assert.Contains(t, out, `console.log("hello")`)
	assert.NotContains(t, out, `src="./app.js"`)
	assert.Contains(t, inlined, resolve.ResolvedUrl("/app.js"))
}

func TestBundle_Sourcemaps_AttachesInlineMapToInlinedScript(t *testing.T) {
	files := memLoader{
		"/a.html": `<!DOCTYPE html><html><head></head><body><script src="./app.js"></script></body></html>`,
		"/app.js": `console.log("hello");`,
	}
	opts := DefaultOptions()
	opts.Sourcemaps = true
	b, _ := newTestBundler(files, opts)
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html"})

	out, _, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)
	assert.Contains(t, out, `console.log("hello")`)
	assert.Contains(t, out, "//# sourceMappingURL=data:application/json")
}

func TestBundle_InlineScriptsDisabled_LeavesScriptExternal(t *testing.T) {
	files := memLoader{
		"/a.html": `<!DOCTYPE html><html><head></head><body><script src="./app.js"></script></body></html>`,
		"/app.js": `console.log("hello");`,
	}
	opts := Options{InlineScripts: false, InlineCSS: true}
	b, _ := newTestBundler(files, opts)
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html"})

	out, _, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)
	assert.Contains(t, out, `src="./app.js"`)
}

func TestBundle_StripsNonPreservedComments(t *testing.T) {
	files := memLoader{
		"/a.html": `<!DOCTYPE html><html><head></head><body><!-- drop me --><!-- @license keep me --><div>x</div></body></html>`,
	}
	opts := DefaultOptions()
	opts.StripComments = true
	b, _ := newTestBundler(files, opts)
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html"})

	out, _, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)
	assert.NotContains(t, out, "drop me")
	assert.Contains(t, out, "@license keep me")
}

func TestBundle_DeduplicatesLicenseCommentsIntoHead(t *testing.T) {
	files := memLoader{
		"/a.html": "<!DOCTYPE html><html><head></head><body>" +
			"<!-- @license  Apache-2.0\n   Copyright Example --><div>one</div>" +
			"<!--   @license Apache-2.0 Copyright   Example   --><div>two</div>" +
			"<!-- @license MIT --><div>three</div>" +
			"</body></html>",
	}
	opts := DefaultOptions()
	b, _ := newTestBundler(files, opts)
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html"})

	out, _, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)

	headEnd := strings.Index(out, "</head>")
	bodyStart := strings.Index(out, "<body")
	require.NotEqual(t, -1, headEnd)
	require.NotEqual(t, -1, bodyStart)

	head := out[:headEnd]
	body := out[bodyStart:]

	assert.Equal(t, 1, strings.Count(head, "@license MIT"), "distinct license comment relocated to head")
	assert.Equal(t, 1, strings.Count(out, "Copyright Example"),
		"license comments differing only by internal whitespace dedup to a single copy")
	assert.NotContains(t, body, "@license", "license comments are removed from their original position")
}

func TestBundle_InlinesStylesheet(t *testing.T) {
	files := memLoader{
		"/a.html":     `<!DOCTYPE html><html><head><link rel="stylesheet" href="./style.css"></head><body></body></html>`,
		"/style.css": `body { color: red; }`,
	}
	opts := DefaultOptions()
	b, _ := newTestBundler(files, opts)
	m, assigned := singleBundleManifest("/a.html", manifest.BundleHTML,
		[]resolve.ResolvedUrl{"/a.html"}, []resolve.ResolvedUrl{"/a.html"})

	out, inlined, err := b.Bundle(context.Background(), assigned, m)
	require.NoError(t, err)
	assert.Contains(t, out, "color: red")
	assert.NotContains(t, out, `rel="stylesheet"`)
	assert.Contains(t, inlined, resolve.ResolvedUrl("/style.css"))
}
