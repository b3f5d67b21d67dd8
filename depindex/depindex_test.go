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
package depindex

import (
	"context"
	"testing"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// fakeDoc / fakeAnalyzer let tests describe an import graph directly as
// feature lists, without going through HTML/JS parsing.
type fakeDoc struct {
	url   resolve.ResolvedUrl
	feats []analyzer.Feature
}

func (d *fakeDoc) URL() resolve.ResolvedUrl     { return d.url }
func (d *fakeDoc) Kind() analyzer.DocumentKind  { return analyzer.KindHTML }
func (d *fakeDoc) BaseURL() resolve.ResolvedUrl { return d.url }
func (d *fakeDoc) Text() string                 { return "" }
func (d *fakeDoc) AST() *html.Node               { return nil }
func (d *fakeDoc) GetFeatures(analyzer.GetFeaturesOptions) []analyzer.Feature { return d.feats }

type fakeAnalyzer struct {
	docs map[resolve.ResolvedUrl]*fakeDoc
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, u resolve.ResolvedUrl) (analyzer.Document, error) {
	d, ok := a.docs[u]
	if !ok {
		return nil, assertMissing(u)
	}
	return d, nil
}

func (a *fakeAnalyzer) AnalyzeContents(ctx context.Context, u resolve.ResolvedUrl, contents []byte, kind analyzer.DocumentKind) (analyzer.Document, error) {
	return a.Analyze(ctx, u)
}

type missingErr string

func (m missingErr) Error() string { return "missing: " + string(m) }

func assertMissing(u resolve.ResolvedUrl) error { return missingErr(u) }

func eagerImport(from, to resolve.ResolvedUrl) analyzer.Feature {
	return analyzer.Feature{Kind: analyzer.FeatureHTMLImport, SourceURL: from, Target: to, Resolved: true, HTMLImportEager: true}
}

func lazyImport(from, to resolve.ResolvedUrl) analyzer.Feature {
	return analyzer.Feature{Kind: analyzer.FeatureHTMLImport, SourceURL: from, Target: to, Resolved: true, HTMLImportEager: false}
}

func TestBuilder_Build_SimpleChain(t *testing.T) {
	a := &fakeAnalyzer{docs: map[resolve.ResolvedUrl]*fakeDoc{
		"a": {url: "a", feats: []analyzer.Feature{eagerImport("a", "b")}},
		"b": {url: "b", feats: nil},
	}}
	b := NewBuilder(a)
	deps, err := b.Build(context.Background(), []resolve.ResolvedUrl{"a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []resolve.ResolvedUrl{"a", "b"}, deps["a"].Slice())
}

func TestBuilder_Build_LazyImportBecomesNewEntrypoint(t *testing.T) {
	a := &fakeAnalyzer{docs: map[resolve.ResolvedUrl]*fakeDoc{
		"a": {url: "a", feats: []analyzer.Feature{lazyImport("a", "lazy")}},
		"lazy": {url: "lazy", feats: []analyzer.Feature{eagerImport("lazy", "lazychild")}},
		"lazychild": {url: "lazychild"},
	}}
	b := NewBuilder(a)
	deps, err := b.Build(context.Background(), []resolve.ResolvedUrl{"a"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []resolve.ResolvedUrl{"a"}, deps["a"].Slice(), "lazy target must not be traversed from the parent")
	require.Contains(t, deps, resolve.ResolvedUrl("lazy"), "lazy import target becomes its own entrypoint")
	assert.ElementsMatch(t, []resolve.ResolvedUrl{"lazy", "lazychild"}, deps["lazy"].Slice())
}

func TestBuilder_Build_MissingFileIsNotFatal(t *testing.T) {
	a := &fakeAnalyzer{docs: map[resolve.ResolvedUrl]*fakeDoc{
		"a": {url: "a", feats: []analyzer.Feature{eagerImport("a", "missing")}},
	}}
	b := NewBuilder(a)
	deps, err := b.Build(context.Background(), []resolve.ResolvedUrl{"a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []resolve.ResolvedUrl{"a", "missing"}, deps["a"].Slice())
}

func TestBuilder_Build_DiamondSharedDependencyVisitedOnce(t *testing.T) {
	a := &fakeAnalyzer{docs: map[resolve.ResolvedUrl]*fakeDoc{
		"a": {url: "a", feats: []analyzer.Feature{eagerImport("a", "b"), eagerImport("a", "c")}},
		"b": {url: "b", feats: []analyzer.Feature{eagerImport("b", "shared")}},
		"c": {url: "c", feats: []analyzer.Feature{eagerImport("c", "shared")}},
		"shared": {url: "shared"},
	}}
	b := NewBuilder(a)
	deps, err := b.Build(context.Background(), []resolve.ResolvedUrl{"a"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []resolve.ResolvedUrl{"a", "b", "c", "shared"}, deps["a"].Slice())
}
