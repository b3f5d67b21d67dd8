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
	"github.com/evanw/esbuild/pkg/api"
	"github.com/polymer-tools/bundler/internal/logging"
)

// AttachSourceMap appends an inline `//# sourceMappingURL=` comment carrying
// an identity source map for source, attributed to sourceURL (spec.md §6's
// `sourcemaps` option: "per-inline-script identity source maps are attached
// and offset to the final bundle coordinates"). esbuild's own Transform is
// used with no syntax transform requested; it still reprints the code in
// its own formatting, so the returned text is that reprint rather than
// source byte-for-byte, and the inline map relates it back to source —
// the same "ask esbuild, don't write a mapper" idiom used for rollup and JS
// import-graph reading elsewhere in this package. Failures are logged and
// the original source is returned unchanged rather than aborting the bundle.
func AttachSourceMap(source, sourceURL string) string {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderJS,
		Sourcefile: sourceURL,
		Sourcemap:  api.SourceMapInline,
	})
	if len(result.Errors) > 0 {
		logging.Warning("jsbundle: could not attach source map for %q: %s", sourceURL, result.Errors[0].Text)
		return source
	}
	return string(result.Code)
}
