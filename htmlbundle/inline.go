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

	"github.com/polymer-tools/bundler/internal/logging"
	"github.com/polymer-tools/bundler/jsbundle"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// escapeScriptClose neutralizes a literal "</script>" sequence inside inlined
// source so it can't terminate the surrounding <script> element early.
func escapeScriptClose(s string) string {
	return strings.ReplaceAll(s, "</script>", "<\\/script>")
}

// inlineEagerHTMLImports inlines eager HTML imports into the bundle. It walks
// `<link rel="import">` nodes recursively (as content is inlined, newly
// inserted subtrees are walked too), resolving each against the bundle
// URL and consulting the manifest.
func (b *Bundler) inlineEagerHTMLImports(ctx context.Context, doc *html.Node, assigned manifest.AssignedBundle, m *manifest.BundleManifest) error {
	for {
		links := allElements(doc, atom.Link)
		var next *html.Node
		for _, l := range links {
			if hasRel(l, "import") || hasRel(l, "lazy-import") {
				if typ, ok := getAttr(l, "type"); ok && strings.EqualFold(typ, "css") {
					continue
				}
				next = l
				break
			}
		}
		if next == nil {
			// Give every link neutralized by removeAttrToStopReprocessing
			// its rel back, so kept links stay imports in the output.
			for _, l := range links {
				if _, ok := getAttr(l, "data-bundled"); !ok {
					continue
				}
				removeAttr(l, "data-bundled")
				for i, a := range l.Attr {
					if a.Key == "data-rel" {
						l.Attr[i].Key = "rel"
					}
				}
			}
			return nil
		}
		if err := b.inlineOneImportLink(ctx, doc, next, assigned, m); err != nil {
			return err
		}
	}
}

func (b *Bundler) inlineOneImportLink(ctx context.Context, doc *html.Node, link *html.Node, assigned manifest.AssignedBundle, m *manifest.BundleManifest) error {
	href, ok := getAttr(link, "href")
	if !ok {
		removeNode(link)
		return nil
	}
	target, resolved := b.Resolver.Resolve(assigned.URL, resolve.ResolvedUrl(href))
	if !resolved {
		assigned.Bundle.MissingImports.Add(resolve.ResolvedUrl(href))
		removeAttrToStopReprocessing(link)
		return nil
	}

	if hasRel(link, "lazy-import") {
		if destURL, _, ok := m.BundleFor(target); ok && destURL != assigned.URL {
			setAttr(link, "href", b.Resolver.Relative(assigned.URL, destURL))
		}
		removeAttrToStopReprocessing(link)
		return nil
	}

	if target == assigned.URL {
		removeNode(link)
		return nil
	}

	if assigned.Bundle.Files.Has(target) {
		if assigned.Bundle.InlinedHTMLImports.Has(target) {
			removeNode(link)
			return nil
		}
		return b.inlineHTMLImportInPlace(ctx, doc, link, target, assigned)
	}

	destURL, destBundle, ok := m.BundleFor(target)
	if !ok {
		assigned.Bundle.MissingImports.Add(target)
		removeAttrToStopReprocessing(link)
		return nil
	}
	_ = destBundle
	if assigned.Bundle.StripImports.Has(destURL) {
		removeNode(link)
		return nil
	}
	setAttr(link, "href", b.Resolver.Relative(assigned.URL, destURL))
	assigned.Bundle.StripImports.Add(destURL)
	removeAttrToStopReprocessing(link)
	return nil
}

// removeAttrToStopReprocessing neutralizes a <link> so the outer
// inlineEagerHTMLImports loop (which re-scans for rel="import" nodes after
// every mutation) does not pick the same, already-handled node again.
func removeAttrToStopReprocessing(n *html.Node) {
	setAttr(n, "data-bundled", "")
	n.Attr = append(n.Attr[:0:0], filterOutRel(n.Attr)...)
}

func filterOutRel(attrs []html.Attribute) []html.Attribute {
	out := make([]html.Attribute, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "rel" {
			out = append(out, html.Attribute{Key: "data-rel", Val: a.Val})
			continue
		}
		out = append(out, a)
	}
	return out
}

// inlineHTMLImportInPlace implements the in-bundle branch of step 4: parse
// the imported document as a fragment, emulate its own `<base>`, rewrite
// its URLs to be relative to the bundle's URL, move its children to the
// link's position, remove the link, and recurse into the newly inserted
// subtree's own imports (handled by the caller's re-scan loop).
func (b *Bundler) inlineHTMLImportInPlace(ctx context.Context, doc *html.Node, link *html.Node, target resolve.ResolvedUrl, assigned manifest.AssignedBundle) error {
	imported, err := b.Analyzer.Analyze(ctx, target)
	if err != nil {
		logging.Warning("htmlbundle: could not load %q for inlining, leaving link in place: %v", target, err)
		assigned.Bundle.MissingImports.Add(target)
		removeAttrToStopReprocessing(link)
		return nil
	}

	fragment := cloneNode(imported.AST())
	applyBaseTagEmulation(fragment, b.Resolver, target)
	rewriteURLsInDocument(fragment, b.Resolver, target, assigned.URL, b.Options.RewriteURLsInTemplates)

	body := findElement(fragment, atom.Body)
	if body == nil {
		body = fragment
	}
	for c := body.FirstChild; c != nil; {
		next := c.NextSibling
		removeNode(c)
		link.Parent.InsertBefore(c, link)
		c = next
	}
	removeNode(link)
	assigned.Bundle.InlinedHTMLImports.Add(target)
	return nil
}

// rewriteExternalModuleScripts repoints external module script src
// attributes at the bundle that now contains their target.
func (b *Bundler) rewriteExternalModuleScripts(doc *html.Node, assigned manifest.AssignedBundle, m *manifest.BundleManifest) {
	for _, s := range allElements(doc, atom.Script) {
		typ, _ := getAttr(s, "type")
		if !strings.EqualFold(typ, "module") {
			continue
		}
		src, ok := getAttr(s, "src")
		if !ok {
			continue
		}
		target, resolved := b.Resolver.Resolve(assigned.URL, resolve.ResolvedUrl(src))
		if !resolved {
			assigned.Bundle.MissingImports.Add(resolve.ResolvedUrl(src))
			continue
		}
		destURL, _, ok := m.BundleFor(target)
		if !ok {
			assigned.Bundle.MissingImports.Add(target)
			continue
		}
		setAttr(s, "src", b.Resolver.Relative(assigned.URL, destURL))
	}
}

// inlineNonModuleScripts replaces external non-module <script src> tags with
// their loaded source inline.
func (b *Bundler) inlineNonModuleScripts(ctx context.Context, doc *html.Node, assigned manifest.AssignedBundle) error {
	for _, s := range allElements(doc, atom.Script) {
		typ, _ := getAttr(s, "type")
		if strings.EqualFold(typ, "module") {
			continue
		}
		src, ok := getAttr(s, "src")
		if !ok {
			continue
		}
		target, resolved := b.Resolver.Resolve(assigned.URL, resolve.ResolvedUrl(src))
		if !resolved {
			assigned.Bundle.MissingImports.Add(resolve.ResolvedUrl(src))
			continue
		}
		data, err := b.Loader.Load(ctx, target)
		if err != nil {
			logging.Warning("htmlbundle: could not load script %q, leaving external: %v", target, err)
			assigned.Bundle.MissingImports.Add(target)
			continue
		}
		content := string(data)
		if b.Options.Sourcemaps {
			content = jsbundle.AttachSourceMap(content, string(target))
		}
		removeAttr(s, "src")
		replaceTextContent(s, escapeScriptClose(content))
		assigned.Bundle.InlinedScripts.Add(target)
	}
	return nil
}

// rollupInlineModules rewrites each inline
// `<script type="module">`, invoke the JS rewriter using the bundle's base
// URL and replace the body with the rewritten code.
func (b *Bundler) rollupInlineModules(ctx context.Context, doc *html.Node, assigned manifest.AssignedBundle, m *manifest.BundleManifest) error {
	if b.Modules == nil {
		return nil
	}
	for _, s := range allElements(doc, atom.Script) {
		typ, _ := getAttr(s, "type")
		if !strings.EqualFold(typ, "module") {
			continue
		}
		if _, hasSrc := getAttr(s, "src"); hasSrc {
			continue
		}
		source := textContentOf(s)
		if strings.TrimSpace(source) == "" {
			continue
		}
		rewritten, err := b.Modules.RewriteInlineModule(ctx, assigned.URL, source, assigned, m)
		if err != nil {
			return err
		}
		if b.Options.Sourcemaps {
			rewritten = jsbundle.AttachSourceMap(rewritten, string(assigned.URL))
		}
		replaceTextContent(s, escapeScriptClose(rewritten))
	}
	return nil
}

// inlineStylesheets replaces external stylesheet links with their loaded
// CSS inlined into a <style> element.
func (b *Bundler) inlineStylesheets(ctx context.Context, doc *html.Node, assigned manifest.AssignedBundle) error {
	for _, link := range allElements(doc, atom.Link) {
		isDeprecatedCSSImport := hasRel(link, "import")
		if isDeprecatedCSSImport {
			typ, _ := getAttr(link, "type")
			if !strings.EqualFold(typ, "css") {
				continue
			}
		} else if !hasRel(link, "stylesheet") {
			continue
		}

		href, ok := getAttr(link, "href")
		if !ok {
			continue
		}
		target, resolved := b.Resolver.Resolve(assigned.URL, resolve.ResolvedUrl(href))
		if !resolved {
			assigned.Bundle.MissingImports.Add(resolve.ResolvedUrl(href))
			continue
		}
		data, err := b.Loader.Load(ctx, target)
		if err != nil {
			logging.Warning("htmlbundle: could not load stylesheet %q, leaving external: %v", target, err)
			assigned.Bundle.MissingImports.Add(target)
			continue
		}

		assetBase := target
		if ownerAssetpath, ok := enclosingAssetpath(link); ok && !b.Options.RewriteURLsInTemplates {
			if resolvedAsset, ok := b.Resolver.Resolve(assigned.URL, resolve.ResolvedUrl(ownerAssetpath)); ok {
				assetBase = resolvedAsset
			}
		}
		css := rewriteCSSText(string(data), b.Resolver, assetBase, assigned.URL)

		style := &html.Node{Type: html.ElementNode, Data: "style", DataAtom: atom.Style}
		if media, ok := getAttr(link, "media"); ok {
			style.Attr = append(style.Attr, html.Attribute{Key: "media", Val: media})
		}
		style.AppendChild(&html.Node{Type: html.TextNode, Data: css})

		domModule := enclosingDomModule(link)
		if domModule != nil {
			tmpl := findElement(domModule, atom.Template)
			if tmpl == nil {
				tmpl = &html.Node{Type: html.ElementNode, Data: "template", DataAtom: atom.Template}
				domModule.AppendChild(tmpl)
			}
			removeNode(link)
			tmplBody := tmpl
			if tmpl.FirstChild != nil && tmpl.FirstChild.Data == "content" {
				tmplBody = tmpl.FirstChild
			}
			tmplBody.AppendChild(style)
		} else {
			link.Parent.InsertBefore(style, link)
			removeNode(link)
		}
		assigned.Bundle.InlinedStyles.Add(target)
	}
	return nil
}

func enclosingAssetpath(n *html.Node) (string, bool) {
	for p := n.Parent; p != nil; p = p.Parent {
		if v, ok := getAttr(p, "assetpath"); ok {
			return v, true
		}
	}
	return "", false
}

func enclosingDomModule(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "dom-module" {
			return p
		}
	}
	return nil
}

func textContentOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func replaceTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
