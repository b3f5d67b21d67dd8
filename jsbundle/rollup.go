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
package jsbundle

import (
	"context"
	"fmt"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
)

const bundleNamespace = "polymer-bundle"

// rollup merges every
// in-bundle module reachable from a synthetic entry that imports-and-
// re-exports each of the bundle's own entrypoints, with a resolveId hook
// (OnResolve) marking anything outside the bundle external, and a load
// hook (OnLoad) serving in-bundle module text from the loader (or, for the
// bundle's own basis URL, injectedSource if the caller already has fresher
// in-memory content for it).
func rollup(ctx context.Context, loader resolve.Loader, resolver resolve.Resolver, bundleURL resolve.ResolvedUrl, bundle *manifest.Bundle, injectedSource map[resolve.ResolvedUrl]string, sourcemaps bool) (string, error) {
	entrypoints := bundle.Entrypoints.Slice()
	sort.Slice(entrypoints, func(i, j int) bool { return entrypoints[i] < entrypoints[j] })

	var stdin string
	for i, e := range entrypoints {
		rel := resolver.Relative(bundleURL, e)
		stdin += fmt.Sprintf("export { default as entry%d_default } from %q;\n", i, rel)
		stdin += fmt.Sprintf("export * as entry%d_ns from %q;\n", i, rel)
	}

	plugin := api.Plugin{
		Name: "bundle-graph",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				importer := resolve.ResolvedUrl(args.Importer)
				if importer == "" {
					importer = bundleURL
				}
				target, ok := resolver.Resolve(importer, resolve.ResolvedUrl(args.Path))
				if !ok || !bundle.Files.Has(target) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}
				return api.OnResolveResult{Path: string(target), Namespace: bundleNamespace}, nil
			})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: bundleNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				u := resolve.ResolvedUrl(args.Path)
				if src, ok := injectedSource[u]; ok {
					return api.OnLoadResult{Contents: &src, Loader: api.LoaderJS}, nil
				}
				data, err := loader.Load(ctx, u)
				if err != nil {
					return api.OnLoadResult{}, err
				}
				contents := string(data)
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}

	sourcemap := api.SourceMapNone
	if sourcemaps {
		// Inline rather than external/linked: the bundle's output content is
		// the only artifact this package hands back to the orchestrator, so
		// there is nowhere to also emit a sibling `.js.map` file.
		sourcemap = api.SourceMapInline
	}

	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   stdin,
			Sourcefile: "bundle-entry.js",
			Loader:     api.LoaderJS,
		},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatESModule,
		TreeShaking: api.TreeShakingFalse,
		Sourcemap:   sourcemap,
		Plugins:     []api.Plugin{plugin},
	})
	if len(result.Errors) > 0 {
		return "", &rollupError{msgs: result.Errors}
	}
	if len(result.OutputFiles) == 0 {
		return "", nil
	}
	return string(result.OutputFiles[0].Contents), nil
}

type rollupError struct {
	msgs []api.Message
}

func (e *rollupError) Error() string {
	if len(e.msgs) == 0 {
		return "jsbundle: esbuild rollup failed"
	}
	return "jsbundle: " + e.msgs[0].Text
}
