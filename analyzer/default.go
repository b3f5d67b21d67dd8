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
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
)

// DefaultAnalyzer is the concrete Analyzer shipped with this repository: it
// dispatches by file extension/declared kind to the HTML, JS, or CSS
// scanners above. Per spec.md §5 it is treated as thread-hostile — only one
// goroutine may call AnalyzeContents at a time, since that path mutates no
// shared state here but the orchestrator's overlay loader does.
type DefaultAnalyzer struct {
	Loader   resolve.Loader
	Resolver resolve.Resolver

	mu sync.Mutex
}

// NewDefaultAnalyzer builds an Analyzer reading through loader and
// resolving imports with resolver.
func NewDefaultAnalyzer(loader resolve.Loader, resolver resolve.Resolver) *DefaultAnalyzer {
	return &DefaultAnalyzer{Loader: loader, Resolver: resolver}
}

func (a *DefaultAnalyzer) Analyze(ctx context.Context, u resolve.ResolvedUrl) (Document, error) {
	data, err := a.Loader.Load(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("analyzer: loading %q: %w", u, err)
	}
	return a.AnalyzeContents(ctx, u, data, kindForURL(u))
}

func (a *DefaultAnalyzer) AnalyzeContents(ctx context.Context, u resolve.ResolvedUrl, contents []byte, kind DocumentKind) (Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := string(contents)
	switch kind {
	case KindHTML:
		doc, err := parseHTMLDocument(u, text, a.Resolver)
		if err != nil {
			return nil, fmt.Errorf("analyzer: parsing html %q: %w", u, err)
		}
		return doc, nil
	case KindJS:
		imports, err := analyzeJSImports(u, text)
		if err != nil {
			return nil, fmt.Errorf("analyzer: parsing js %q: %w", u, err)
		}
		return &jsDocument{url: u, text: text, resolver: a.Resolver, imports: imports}, nil
	case KindCSS:
		return &cssDocument{url: u, text: text, resolver: a.Resolver}, nil
	default:
		return &opaqueDocument{url: u, kind: kind, text: text}, nil
	}
}

func kindForURL(u resolve.ResolvedUrl) DocumentKind {
	s := strings.ToLower(string(u))
	switch {
	case strings.HasSuffix(s, ".html") || strings.HasSuffix(s, ".htm"):
		return KindHTML
	case strings.HasSuffix(s, ".js") || strings.HasSuffix(s, ".mjs"):
		return KindJS
	case strings.HasSuffix(s, ".css"):
		return KindCSS
	default:
		return KindOther
	}
}

// cssDocument is the Document implementation for a standalone stylesheet.
type cssDocument struct {
	url      resolve.ResolvedUrl
	text     string
	resolver resolve.Resolver
}

func (d *cssDocument) URL() resolve.ResolvedUrl     { return d.url }
func (d *cssDocument) Kind() DocumentKind           { return KindCSS }
func (d *cssDocument) BaseURL() resolve.ResolvedUrl { return d.url }
func (d *cssDocument) Text() string                 { return d.text }
func (d *cssDocument) AST() *html.Node              { return nil }

func (d *cssDocument) GetFeatures(opts GetFeaturesOptions) []Feature {
	var out []Feature
	for _, spec := range ScanCSSImports(d.text) {
		target, resolved := d.resolver.Resolve(d.url, resolve.ResolvedUrl(spec))
		out = append(out, Feature{
			Kind: FeatureCSSImport, SourceURL: d.url, Target: target, Resolved: resolved,
		})
	}
	return out
}

// opaqueDocument represents any source the bundler does not need to
// understand the import graph of (images, fonts, json, etc.) but which may
// still be inlined/copied verbatim by a rewriter.
type opaqueDocument struct {
	url  resolve.ResolvedUrl
	kind DocumentKind
	text string
}

func (d *opaqueDocument) URL() resolve.ResolvedUrl                      { return d.url }
func (d *opaqueDocument) Kind() DocumentKind                            { return d.kind }
func (d *opaqueDocument) BaseURL() resolve.ResolvedUrl                  { return d.url }
func (d *opaqueDocument) Text() string                                  { return d.text }
func (d *opaqueDocument) AST() *html.Node                               { return nil }
func (d *opaqueDocument) GetFeatures(opts GetFeaturesOptions) []Feature { return nil }
