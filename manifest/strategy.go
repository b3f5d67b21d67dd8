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

	A "github.com/IBM/fp-go/array"
	"github.com/polymer-tools/bundler/depindex"
	"github.com/polymer-tools/bundler/resolve"
)

// Strategy is a `Bundle[] -> Bundle[]` post-processing function applied to
// the maximal-sharding output (spec.md §4.2).
type Strategy func(bundles []*rawBundle, allEntrypoints depindex.Set) ([]*rawBundle, error)

// DefaultStrategy merges bundles whose entrypoint count is >= 2, matching
// spec.md §6's documented default for `options.strategy`.
func DefaultStrategy() Strategy {
	return SharedDepsMerge(2)
}

// SharedDepsMerge merges into one shared bundle every bundle whose entrypoint
// count is >= minEntrypoints; bundles with fewer are left untouched. A
// bundle whose entrypoints cover *all* entrypoints is always treated as
// shared, regardless of minEntrypoints (spec.md §4.2).
func SharedDepsMerge(minEntrypoints int) Strategy {
	return func(bundles []*rawBundle, allEntrypoints depindex.Set) ([]*rawBundle, error) {
		rest, merged := partitionShared(bundles, allEntrypoints, minEntrypoints)
		if merged == nil {
			return rest, nil
		}
		return append(append([]*rawBundle{}, rest...), merged), nil
	}
}

// partitionShared splits bundles into (non-shared, merged-shared-or-nil)
// using the same predicate SharedDepsMerge and ShellMerge both need.
func partitionShared(bundles []*rawBundle, allEntrypoints depindex.Set, minEntrypoints int) ([]*rawBundle, *rawBundle) {
	isShared := func(b *rawBundle) bool {
		return len(b.entrypoints) >= minEntrypoints || coversAll(b.entrypoints, allEntrypoints)
	}
	shared := A.Filter(isShared)(bundles)
	rest := A.Filter(func(b *rawBundle) bool { return !isShared(b) })(bundles)
	if len(shared) == 0 {
		return rest, nil
	}
	return rest, mergeAll(shared)
}

// ShellMerge first applies SharedDepsMerge(k), then finds the bundle
// containing shellFile (a configuration error if none) and the one merged
// shared bundle (if SharedDepsMerge produced one), and merges the two
// unless they are already identical (spec.md §4.2). Entrypoint-basis
// bundles other than the shell are never folded in.
func ShellMerge(shellFile resolve.ResolvedUrl, k int) Strategy {
	return func(bundles []*rawBundle, allEntrypoints depindex.Set) ([]*rawBundle, error) {
		rest, shared := partitionShared(bundles, allEntrypoints, k)

		all := rest
		if shared != nil {
			all = append(append([]*rawBundle{}, rest...), shared)
		}

		shellIdx := -1
		for i, b := range all {
			if b.files.Has(shellFile) {
				shellIdx = i
				break
			}
		}
		if shellIdx == -1 {
			return nil, &errShellNotFound{shell: string(shellFile)}
		}
		if shared == nil || all[shellIdx] == shared {
			return all, nil
		}

		shellBundle := all[shellIdx]
		merged := mergeAll([]*rawBundle{shellBundle, shared})

		out := make([]*rawBundle, 0, len(all)-1)
		for i, b := range all {
			if i == shellIdx || b == shared {
				continue
			}
			out = append(out, b)
		}
		out = append(out, merged)
		return out, nil
	}
}

func mergeAll(bundles []*rawBundle) *rawBundle {
	out := &rawBundle{entrypoints: depindex.NewSet(), files: depindex.NewSet()}
	for _, b := range bundles {
		out.entrypoints.Union(b.entrypoints)
		out.files.Union(b.files)
	}
	return out
}

func coversAll(entrypoints, allEntrypoints depindex.Set) bool {
	if len(allEntrypoints) == 0 {
		return false
	}
	for e := range allEntrypoints {
		if !entrypoints.Has(e) {
			return false
		}
	}
	return true
}

// errShellNotFound is returned by GenerateManifest when --shell names a
// file that is not among any bundle's files (a configuration error per
// spec.md §7, surfaced before bundling starts).
type errShellNotFound struct{ shell string }

func (e *errShellNotFound) Error() string {
	return fmt.Sprintf("manifest: shell file %q is not in any bundle", e.shell)
}
