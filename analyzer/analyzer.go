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

// Package analyzer specifies the document-analyzer contract the bundling
// pipeline is built on (spec.md §6) and ships one concrete, swappable
// implementation over golang.org/x/net/html, esbuild's metafile, and
// gorilla/css.
package analyzer

import (
	"context"

	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
)

// DocumentKind distinguishes the three source kinds the pipeline rewrites.
type DocumentKind int

const (
	KindHTML DocumentKind = iota
	KindJS
	KindCSS
	KindOther
)

// FeatureKind enumerates the typed imports spec.md §6 requires the analyzer
// to surface.
type FeatureKind int

const (
	FeatureHTMLImport FeatureKind = iota
	FeatureHTMLScript
	FeatureHTMLStyle
	FeatureCSSImport
	FeatureJSImport
	FeatureJSDocument
)

// Feature is one typed import/reference found in a Document.
type Feature struct {
	Kind FeatureKind

	// SourceURL is the document the feature was found in.
	SourceURL resolve.ResolvedUrl

	// Node is the owning HTML/ position of the feature in its source
	// document, non-nil only for KindHTML* and KindCSS-source features.
	Node *html.Node

	// Target is the resolved URL the feature points at, if resolvable.
	Target resolve.ResolvedUrl
	Resolved bool

	// HTMLImportEager is meaningful only for FeatureHTMLImport: true for an
	// eager `<link rel="import">`, false for `<link rel="lazy-import">`.
	HTMLImportEager bool

	// HTMLScriptIsModule is meaningful only for FeatureHTMLScript: true for
	// `<script type="module" src=...>`, false for a plain external script.
	HTMLScriptIsModule bool

	// Inline is true for an inline `<script>`/`<style>` body (no src/href).
	Inline bool
	InlineContent string

	// CSSImportDeprecated marks a `<link rel="import" type="css">` node,
	// as opposed to a standard `<link rel="stylesheet">`.
	CSSImportDeprecated bool

	// JSImportSpecifier is the raw specifier text for FeatureJSImport
	// (e.g. "./b.js"); JSImportDynamic marks a dynamic import() call site
	// rather than a static import declaration.
	JSImportSpecifier string
	JSImportDynamic   bool

	// JSDocumentSourceType distinguishes "module" from "script" for
	// FeatureJSDocument features (an inline or external <script> whose
	// body is itself JS source requiring its own import analysis).
	JSDocumentSourceType string
}

// GetFeaturesOptions filters Document.GetFeatures.
type GetFeaturesOptions struct {
	Kind                []FeatureKind
	Imported            bool
	ExternalPackages    bool
	NoLazyImports       bool
	ExcludeBackreferences []resolve.ResolvedUrl
}

// Document is a parsed source file plus its typed import list.
type Document interface {
	URL() resolve.ResolvedUrl
	Kind() DocumentKind
	BaseURL() resolve.ResolvedUrl
	Text() string
	AST() *html.Node // nil for non-HTML documents
	GetFeatures(opts GetFeaturesOptions) []Feature
}

// Analyzer is the external collaborator this repository consumes: given a
// loader and a resolver, it parses a URL's contents into a Document and
// enumerates its typed imports.
type Analyzer interface {
	// Analyze parses the document at u, loading it through loader if not
	// already cached, and resolving imports with resolver.
	Analyze(ctx context.Context, u resolve.ResolvedUrl) (Document, error)

	// AnalyzeContents parses literal text as if loaded from u. Used by
	// rewriters to re-analyze mutated bundle content (spec.md §4.3 step 3,
	// §4.4 step 1) through the overlay loader. Per spec.md §5, only one
	// rewriter may call AnalyzeContents at a time.
	AnalyzeContents(ctx context.Context, u resolve.ResolvedUrl, contents []byte, kind DocumentKind) (Document, error)
}
