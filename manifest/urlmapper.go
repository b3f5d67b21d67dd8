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
package manifest

import (
	"fmt"
	"sort"

	"github.com/polymer-tools/bundler/resolve"
)

// URLMapper assigns each post-strategy bundle an output URL.
type URLMapper func(bundles []*rawBundle, kindOf func(resolve.ResolvedUrl) BundleKind) map[resolve.ResolvedUrl]*rawBundle

// DefaultURLMapper implements spec.md §4.2's default naming: when a bundle's
// entrypoint set contains a file also present in its files, name the bundle
// by that entrypoint URL (a "basis bundle"); otherwise synthesize
// `shared_bundle_<n>` with an extension inferred from the bundle's file
// kind. Ties are broken by the order bundles appear post-strategy.
func DefaultURLMapper(bundles []*rawBundle, kindOf func(resolve.ResolvedUrl) BundleKind) map[resolve.ResolvedUrl]*rawBundle {
	out := make(map[resolve.ResolvedUrl]*rawBundle, len(bundles))
	n := 1
	for _, b := range bundles {
		if basis, ok := basisURL(b); ok {
			out[basis] = b
			continue
		}
		kind := BundleHTML
		for f := range b.files {
			kind = kindOf(f)
			break
		}
		ext := "html"
		if kind == BundleJS {
			ext = "js"
		}
		url := resolve.ResolvedUrl(fmt.Sprintf("shared_bundle_%d.%s", n, ext))
		n++
		out[url] = b
	}
	return out
}

// basisURL finds a file present both in a bundle's entrypoints and its
// files, making that bundle a "basis bundle" named after that file.
func basisURL(b *rawBundle) (resolve.ResolvedUrl, bool) {
	entrypoints := b.entrypoints.Slice()
	sort.Slice(entrypoints, func(i, j int) bool { return entrypoints[i] < entrypoints[j] })
	for _, e := range entrypoints {
		if b.files.Has(e) {
			return e, true
		}
	}
	return "", false
}
