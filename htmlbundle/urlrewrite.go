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
	"strings"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var urlAttrs = map[string]bool{
	"href": true, "src": true, "action": true, "assetpath": true,
}

// rewriteURLsInDocument rewrites every URL-bearing attribute and `<style>`
// body so a document moved from oldBase to newBase still resolves the same
// resources, except template-bound ({{...}}/[[...]]) and opaque
// (data:/absolute) values, which are left untouched.
//
// By default `<template>` contents are skipped; rewriteInTemplates flips
// that.
func rewriteURLsInDocument(n *html.Node, r resolve.Resolver, oldBase, newBase resolve.ResolvedUrl, rewriteInTemplates bool) {
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, insideTemplate bool) {
		if n.Type == html.ElementNode {
			isTemplate := n.DataAtom == atom.Template
			skip := insideTemplate && !rewriteInTemplates
			if !skip {
				rewriteElementURLAttrs(n, r, oldBase, newBase)
				if n.DataAtom == atom.Style {
					rewriteInlineStyleBody(n, r, oldBase, newBase)
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, insideTemplate || isTemplate)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, insideTemplate)
		}
	}
	walk(n, false)
}

func rewriteElementURLAttrs(n *html.Node, r resolve.Resolver, oldBase, newBase resolve.ResolvedUrl) {
	for i, a := range n.Attr {
		if !urlAttrs[a.Key] {
			continue
		}
		n.Attr[i].Val = rewriteURLValue(a.Val, r, oldBase, newBase, a.Key == "assetpath")
	}
	if style, ok := getAttr(n, "style"); ok {
		setAttr(n, "style", rewriteCSSText(style, r, oldBase, newBase))
	}
}

func rewriteInlineStyleBody(n *html.Node, r resolve.Resolver, oldBase, newBase resolve.ResolvedUrl) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			c.Data = rewriteCSSText(c.Data, r, oldBase, newBase)
		}
	}
}

// rewriteURLValue recomputes a single attribute value as
// `relative(newBase, resolve(oldBase, value))`, with template placeholders,
// data URIs, and absolute URLs left untouched, and assetpath values always
// ending in `/`.
func rewriteURLValue(value string, r resolve.Resolver, oldBase, newBase resolve.ResolvedUrl, isAssetpath bool) string {
	if value == "" || resolve.IsOpaque(value) {
		return value
	}
	resolved, ok := r.Resolve(oldBase, resolve.ResolvedUrl(value))
	if !ok {
		return value
	}
	rewritten := r.Relative(newBase, resolved)
	if isAssetpath && !strings.HasSuffix(rewritten, "/") {
		rewritten += "/"
	}
	return rewritten
}

// rewriteCSSText recomputes every `url(...)` occurrence in CSS source
// (either a `<style>` body or a `style="..."` attribute value).
func rewriteCSSText(css string, r resolve.Resolver, oldBase, newBase resolve.ResolvedUrl) string {
	occurrences := analyzer.ScanCSSURLs(css)
	if len(occurrences) == 0 {
		return css
	}
	var sb strings.Builder
	last := 0
	for _, occ := range occurrences {
		if occ.Start < last || occ.End > len(css) {
			continue
		}
		sb.WriteString(css[last:occ.Start])
		newPath := rewriteURLValue(occ.RawPath, r, oldBase, newBase, false)
		sb.WriteString(`url("` + newPath + `")`)
		last = occ.End
	}
	sb.WriteString(css[last:])
	return sb.String()
}

// applyBaseTagEmulation emulates a document's `<base>` tag after bundling: if
// the document has a `<base href>`, compute its absolute base, remove the
// tag, and rewrite every URL so the document behaves the same when served
// from docURL without the `<base>`. A `<base target>` is propagated to
// every `<a>`/`<form>` lacking an explicit target.
func applyBaseTagEmulation(n *html.Node, r resolve.Resolver, docURL resolve.ResolvedUrl) {
	base := findElement(n, atom.Base)
	if base == nil {
		return
	}
	href, hasHref := getAttr(base, "href")
	target, hasTarget := getAttr(base, "target")

	var baseURL resolve.ResolvedUrl = docURL
	if hasHref {
		if resolved, ok := r.Resolve(docURL, resolve.ResolvedUrl(href)); ok {
			baseURL = resolved
		}
	}
	removeNode(base)

	if hasHref {
		rewriteURLsInDocument(n, r, baseURL, docURL, false)
	}
	if hasTarget {
		applyDefaultTarget(n, target)
	}
}

func applyDefaultTarget(n *html.Node, target string) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.A || n.DataAtom == atom.Form) {
			if _, has := getAttr(n, "target"); !has {
				setAttr(n, "target", target)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}
