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
package bundler

import (
	"context"
	"testing"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestBundler_HTML_GenerateManifestAndBundle(t *testing.T) {
	files := memLoader{
		"/index.html": `<!DOCTYPE html><html><head>
<link rel="import" href="./shared.html">
</head><body>root</body></html>`,
		"/shared.html": `<!DOCTYPE html><html><head></head><body><div id="shared">hi</div></body></html>`,
	}
	resolver := resolve.NewDefaultResolver()
	a := analyzer.NewDefaultAnalyzer(files, resolver)
	opts := DefaultOptions(a, resolver, files)
	b := NewBundler(opts)

	ctx := context.Background()
	m, err := b.GenerateManifest(ctx, []resolve.ResolvedUrl{"/index.html"})
	require.NoError(t, err)
	require.Len(t, m.Bundles, 1)

	final, docs, err := b.Bundle(ctx, m)
	require.NoError(t, err)
	require.Len(t, final.Bundles, 1)

	doc, ok := docs["/index.html"]
	require.True(t, ok, "expected a bundled document for the entrypoint")
	assert.Contains(t, doc.Content, `id="shared"`)
	assert.Contains(t, doc.Files, resolve.ResolvedUrl("/shared.html"))
}

func TestBundler_HTML_MissingImportRecorded(t *testing.T) {
	files := memLoader{
		"/index.html": `<!DOCTYPE html><html><head>
<link rel="import" href="./missing.html">
</head><body>root</body></html>`,
	}
	resolver := resolve.NewDefaultResolver()
	a := analyzer.NewDefaultAnalyzer(files, resolver)
	opts := DefaultOptions(a, resolver, files)
	b := NewBundler(opts)

	ctx := context.Background()
	m, err := b.GenerateManifest(ctx, []resolve.ResolvedUrl{"/index.html"})
	require.NoError(t, err)

	final, _, err := b.Bundle(ctx, m)
	require.NoError(t, err)

	bundle := final.Bundles["/index.html"]
	require.NotNil(t, bundle)
	assert.True(t, bundle.MissingImports.Has("/missing.html"))
}

func TestBundler_Excludes_PreventsInlining(t *testing.T) {
	files := memLoader{
		"/index.html": `<!DOCTYPE html><html><head>
<link rel="import" href="./vendor.html">
</head><body>root</body></html>`,
		"/vendor.html": `<!DOCTYPE html><html><head></head><body><div id="vendor">v</div></body></html>`,
	}
	resolver := resolve.NewDefaultResolver()
	a := analyzer.NewDefaultAnalyzer(files, resolver)
	opts := DefaultOptions(a, resolver, files)
	opts.Excludes = []resolve.ResolvedUrl{"/vendor.html"}
	b := NewBundler(opts)

	ctx := context.Background()
	m, err := b.GenerateManifest(ctx, []resolve.ResolvedUrl{"/index.html"})
	require.NoError(t, err)

	final, docs, err := b.Bundle(ctx, m)
	require.NoError(t, err)

	doc := docs["/index.html"]
	require.NotNil(t, doc)
	assert.NotContains(t, doc.Content, `id="vendor"`)
	bundle := final.Bundles["/index.html"]
	assert.False(t, bundle.Files.Has("/vendor.html"))
}
