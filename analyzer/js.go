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
	"encoding/json"
	"path"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/polymer-tools/bundler/resolve"
	"golang.org/x/net/html"
)

// jsDocument is the Document implementation for an ES module. Its import
// graph is derived from an esbuild metafile build configured with
// Bundle:true and an "everything external" resolver plugin, so esbuild is
// used purely as an import-graph reader (spec.md §2 [ANALYZER]) — it never
// actually concatenates or transforms this document's own source.
type jsDocument struct {
	url      resolve.ResolvedUrl
	text     string
	resolver resolve.Resolver
	imports  []esbuildImportRecord
}

type esbuildImportRecord struct {
	specifier string
	dynamic   bool
}

func (d *jsDocument) URL() resolve.ResolvedUrl     { return d.url }
func (d *jsDocument) Kind() DocumentKind           { return KindJS }
func (d *jsDocument) BaseURL() resolve.ResolvedUrl { return d.url }
func (d *jsDocument) Text() string                 { return d.text }
func (d *jsDocument) AST() *html.Node              { return nil }

func (d *jsDocument) GetFeatures(opts GetFeaturesOptions) []Feature {
	out := make([]Feature, 0, len(d.imports))
	for _, imp := range d.imports {
		target, resolved := d.resolver.Resolve(d.url, resolve.ResolvedUrl(imp.specifier))
		out = append(out, Feature{
			Kind:              FeatureJSImport,
			SourceURL:         d.url,
			Target:            target,
			Resolved:          resolved,
			JSImportSpecifier: imp.specifier,
			JSImportDynamic:   imp.dynamic,
		})
	}
	return out
}

// everythingExternalPlugin marks every import path as external so esbuild
// never tries to load node_modules from disk; we only want its metafile's
// import-record enumeration, not an actual bundle.
func everythingExternalPlugin() api.Plugin {
	return api.Plugin{
		Name: "everything-external",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			})
		},
	}
}

// analyzeJSImports runs an esbuild metafile-only build over text and
// extracts the stdin document's own import-statement and dynamic-import
// records, in source order.
func analyzeJSImports(u resolve.ResolvedUrl, text string) ([]esbuildImportRecord, error) {
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   text,
			Sourcefile: path.Base(string(u)),
			Loader:     api.LoaderJS,
		},
		Bundle:   true,
		Write:    false,
		Metafile: true,
		Format:   api.FormatESModule,
		Plugins:  []api.Plugin{everythingExternalPlugin()},
	})
	if len(result.Errors) > 0 {
		return nil, &buildError{msgs: result.Errors}
	}
	return parseMetafileImports(result.Metafile)
}

type metafileShape struct {
	Inputs map[string]struct {
		Imports []struct {
			Path string `json:"path"`
			Kind string `json:"kind"`
		} `json:"imports"`
	} `json:"inputs"`
}

func parseMetafileImports(metafile string) ([]esbuildImportRecord, error) {
	var mf metafileShape
	if err := json.Unmarshal([]byte(metafile), &mf); err != nil {
		return nil, err
	}
	// esbuild keys "inputs" by the stdin resolve-dir-relative path for our
	// single-file, no-resolve-dir build; with exactly one input analyzed we
	// take the sole entry rather than trying to reconstruct the exact key.
	for _, input := range mf.Inputs {
		recs := make([]esbuildImportRecord, 0, len(input.Imports))
		for _, imp := range input.Imports {
			recs = append(recs, esbuildImportRecord{
				specifier: imp.Path,
				dynamic:   imp.Kind == "dynamic-import",
			})
		}
		return recs, nil
	}
	return nil, nil
}

type buildError struct {
	msgs []api.Message
}

func (e *buildError) Error() string {
	if len(e.msgs) == 0 {
		return "esbuild: unknown error"
	}
	return "esbuild: " + e.msgs[0].Text
}
