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
	"strings"

	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlDocument is the Document implementation for a parsed HTML tree.
type htmlDocument struct {
	url      resolve.ResolvedUrl
	base     resolve.ResolvedUrl
	text     string
	ast      *html.Node
	resolver resolve.Resolver
}

func (d *htmlDocument) URL() resolve.ResolvedUrl       { return d.url }
func (d *htmlDocument) Kind() DocumentKind             { return KindHTML }
func (d *htmlDocument) BaseURL() resolve.ResolvedUrl   { return d.base }
func (d *htmlDocument) Text() string                   { return d.text }
func (d *htmlDocument) AST() *html.Node                { return d.ast }

// parseHTMLDocument parses text into an htmlDocument, honoring a `<base>`
// tag's href as the effective base URL for resolving everything else (the
// analyzer itself only records the base; emulating it away is htmlbundle's
// job per spec.md §4.3).
func parseHTMLDocument(u resolve.ResolvedUrl, text string, resolver resolve.Resolver) (*htmlDocument, error) {
	node, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	doc := &htmlDocument{url: u, base: u, text: text, ast: node, resolver: resolver}
	if baseHref, ok := findBaseHref(node); ok {
		if resolved, ok := resolver.Resolve(u, resolve.ResolvedUrl(baseHref)); ok {
			doc.base = resolved
		}
	}
	return doc, nil
}

func findBaseHref(n *html.Node) (string, bool) {
	var href string
	var found bool
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Base {
			if v, ok := attr(n, "href"); ok {
				href, found = v, true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
			if found {
				return
			}
		}
	}
	walk(n)
	return href, found
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func hasRel(n *html.Node, rel string) bool {
	v, ok := attr(n, "rel")
	if !ok {
		return false
	}
	for _, part := range strings.Fields(v) {
		if strings.EqualFold(part, rel) {
			return true
		}
	}
	return false
}

// GetFeatures walks the HTML tree collecting html-import, html-script,
// html-style, and inline js-document features. Filtering by opts.Kind
// mirrors the consumed analyzer contract (spec.md §6); an empty Kind slice
// means "all kinds".
func (d *htmlDocument) GetFeatures(opts GetFeaturesOptions) []Feature {
	wants := func(k FeatureKind) bool {
		if len(opts.Kind) == 0 {
			return true
		}
		for _, want := range opts.Kind {
			if want == k {
				return true
			}
		}
		return false
	}

	var out []Feature
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Link:
				out = append(out, d.linkFeatures(n, wants)...)
			case atom.Script:
				out = append(out, d.scriptFeatures(n, wants)...)
			case atom.Style:
				if wants(FeatureHTMLStyle) {
					out = append(out, Feature{
						Kind:      FeatureHTMLStyle,
						SourceURL: d.url,
						Node:      n,
						Inline:    true,
						InlineContent: textContent(n),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.ast)
	return out
}

func (d *htmlDocument) linkFeatures(n *html.Node, wants func(FeatureKind) bool) []Feature {
	href, hasHref := attr(n, "href")
	if !hasHref {
		return nil
	}
	target, resolved := d.resolver.Resolve(d.base, resolve.ResolvedUrl(href))

	switch {
	case hasRel(n, "import") || hasRel(n, "lazy-import"):
		typ, _ := attr(n, "type")
		if strings.EqualFold(typ, "css") {
			if !wants(FeatureCSSImport) {
				return nil
			}
			return []Feature{{
				Kind: FeatureCSSImport, SourceURL: d.url, Node: n,
				Target: target, Resolved: resolved, CSSImportDeprecated: true,
			}}
		}
		if !wants(FeatureHTMLImport) {
			return nil
		}
		// lazy-import features are always reported; callers that care about
		// opts.NoLazyImports filter by HTMLImportEager themselves (the
		// dependency-index builder treats a lazy import as a new entrypoint
		// rather than skipping it).
		eager := !hasRel(n, "lazy-import")
		return []Feature{{
			Kind: FeatureHTMLImport, SourceURL: d.url, Node: n,
			Target: target, Resolved: resolved, HTMLImportEager: eager,
		}}
	case hasRel(n, "stylesheet"):
		if !wants(FeatureHTMLStyle) {
			return nil
		}
		return []Feature{{Kind: FeatureHTMLStyle, SourceURL: d.url, Node: n, Target: target, Resolved: resolved}}
	}
	return nil
}

func (d *htmlDocument) scriptFeatures(n *html.Node, wants func(FeatureKind) bool) []Feature {
	typ, _ := attr(n, "type")
	isModule := strings.EqualFold(typ, "module")
	src, hasSrc := attr(n, "src")

	if hasSrc {
		if !wants(FeatureHTMLScript) {
			return nil
		}
		target, resolved := d.resolver.Resolve(d.base, resolve.ResolvedUrl(src))
		return []Feature{{
			Kind: FeatureHTMLScript, SourceURL: d.url, Node: n,
			Target: target, Resolved: resolved, HTMLScriptIsModule: isModule,
		}}
	}

	// Inline script: only a feature if it carries JS source worth analyzing
	// for its own imports (module scripts; non-module inline scripts have
	// no import graph to walk but are still surfaced as html-script so the
	// bundler can inline-roll them in place).
	if !wants(FeatureHTMLScript) && !wants(FeatureJSDocument) {
		return nil
	}
	content := textContent(n)
	feats := []Feature{{
		Kind: FeatureHTMLScript, SourceURL: d.url, Node: n,
		Inline: true, InlineContent: content, HTMLScriptIsModule: isModule,
	}}
	if isModule && wants(FeatureJSDocument) {
		feats = append(feats, Feature{
			Kind: FeatureJSDocument, SourceURL: d.url, Node: n,
			Inline: true, InlineContent: content, JSDocumentSourceType: "module",
		})
	}
	return feats
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
