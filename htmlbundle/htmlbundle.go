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

// Package htmlbundle rewrites one HTML bundle: it injects
// imports for other bundle members, emulates `<base>` tags, inlines eager
// HTML imports, inlines stylesheets/scripts, re-points still-external
// references, and strips duplicate/unwanted comments.
package htmlbundle

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/internal/logging"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options mirror the subset of the top-level Bundler options that affect
// the HTML rewriter.
type Options struct {
	InlineScripts          bool
	InlineCSS              bool
	RewriteURLsInTemplates bool
	StripComments          bool
	Sourcemaps             bool
}

// DefaultOptions returns the bundler's documented defaults.
func DefaultOptions() Options {
	return Options{InlineScripts: true, InlineCSS: true}
}

// JSModuleRewriter is implemented by package jsbundle; htmlbundle depends
// on it only through this interface to avoid an import cycle (jsbundle
// does not need to know about HTML).
type JSModuleRewriter interface {
	RewriteInlineModule(ctx context.Context, baseURL resolve.ResolvedUrl, source string, assigned manifest.AssignedBundle, m *manifest.BundleManifest) (string, error)
}

// Bundler rewrites one HTML AssignedBundle into a single serialized
// document.
type Bundler struct {
	Analyzer analyzer.Analyzer
	Resolver resolve.Resolver
	Loader   *resolve.OverlayLoader
	Modules  JSModuleRewriter
	Options  Options
}

func NewBundler(a analyzer.Analyzer, r resolve.Resolver, loader *resolve.OverlayLoader, modules JSModuleRewriter, opts Options) *Bundler {
	return &Bundler{Analyzer: a, Resolver: r, Loader: loader, Modules: modules, Options: opts}
}

// Bundle runs the full ten-step rewrite pipeline and returns the
// serialized document plus the set of file URLs that were inlined into it.
func (b *Bundler) Bundle(ctx context.Context, assigned manifest.AssignedBundle, m *manifest.BundleManifest) (string, []resolve.ResolvedUrl, error) {
	doc, err := b.prepareDocument(ctx, assigned)
	if err != nil {
		return "", nil, fmt.Errorf("htmlbundle: preparing %q: %w", assigned.URL, err)
	}

	if err := b.injectImportsForBundleMembers(doc, assigned); err != nil {
		return "", nil, fmt.Errorf("htmlbundle: injecting imports for %q: %w", assigned.URL, err)
	}

	serialized := serialize(doc)
	b.Loader.Put(assigned.URL, []byte(serialized))
	reAnalyzed, err := b.Analyzer.AnalyzeContents(ctx, assigned.URL, []byte(serialized), analyzer.KindHTML)
	if err != nil {
		return "", nil, fmt.Errorf("htmlbundle: re-analyzing %q: %w", assigned.URL, err)
	}
	doc = reAnalyzed.AST()

	if err := b.inlineEagerHTMLImports(ctx, doc, assigned, m); err != nil {
		return "", nil, fmt.Errorf("htmlbundle: inlining html imports in %q: %w", assigned.URL, err)
	}

	b.rewriteExternalModuleScripts(doc, assigned, m)

	if b.Options.InlineScripts {
		if err := b.inlineNonModuleScripts(ctx, doc, assigned); err != nil {
			return "", nil, fmt.Errorf("htmlbundle: inlining scripts in %q: %w", assigned.URL, err)
		}
	}

	if err := b.rollupInlineModules(ctx, doc, assigned, m); err != nil {
		return "", nil, fmt.Errorf("htmlbundle: rolling up inline modules in %q: %w", assigned.URL, err)
	}

	if b.Options.InlineCSS {
		if err := b.inlineStylesheets(ctx, doc, assigned); err != nil {
			return "", nil, fmt.Errorf("htmlbundle: inlining stylesheets in %q: %w", assigned.URL, err)
		}
	}

	if b.Options.StripComments {
		stripComments(doc)
	}
	deduplicateLicenseComments(doc)

	removeEmptyHiddenContainers(doc)

	final := serialize(doc)
	files := make([]resolve.ResolvedUrl, 0, len(assigned.Bundle.InlinedHTMLImports)+len(assigned.Bundle.InlinedScripts)+len(assigned.Bundle.InlinedStyles))
	for f := range assigned.Bundle.InlinedHTMLImports {
		files = append(files, f)
	}
	for f := range assigned.Bundle.InlinedScripts {
		files = append(files, f)
	}
	for f := range assigned.Bundle.InlinedStyles {
		files = append(files, f)
	}
	return final, files, nil
}

// prepareDocument implements step 1: load the bundle's own basis document
// (or start empty), then move head-level HTML imports and the order-
// dependent imperatives that follow them into a single hidden container.
func (b *Bundler) prepareDocument(ctx context.Context, assigned manifest.AssignedBundle) (*html.Node, error) {
	var doc *html.Node
	if assigned.Bundle.Files.Has(assigned.URL) {
		docResult, err := b.Analyzer.Analyze(ctx, assigned.URL)
		if err != nil {
			return nil, err
		}
		doc = cloneNode(docResult.AST())
	} else {
		doc = emptyDocument()
	}
	hoistHeadImportsToHiddenContainer(doc)
	return doc, nil
}

func emptyDocument() *html.Node {
	text := "<!DOCTYPE html><html><head></head><body></body></html>"
	node, _ := html.Parse(strings.NewReader(text))
	return node
}

func serialize(doc *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		logging.Warning("htmlbundle: serialization error: %v", err)
	}
	return buf.String()
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func allElements(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func hasRel(n *html.Node, rel string) bool {
	v, ok := getAttr(n, "rel")
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

func cloneNode(n *html.Node) *html.Node {
	if n == nil {
		return emptyDocument()
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	cloned, err := html.Parse(&buf)
	if err != nil {
		return emptyDocument()
	}
	return cloned
}

func removeNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
