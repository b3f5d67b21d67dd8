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

// Package jsbundle produces one bundled ES module (or rewrites one inline
// module) from a set of source modules: a deterministic export-naming
// scheme, an esbuild-driven merge step, and AST-ish post-rollup rewrites of
// import declarations and dynamic import() calls.
package jsbundle

import (
	"fmt"
	"strings"

	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
)

// NameFor computes a collision-free bundle-internal export name.
// The chosen name is memoized onto bundle.BundledExports, keyed by
// (sourceModuleUrl, original), so repeated requests for the same export
// return the same name and collision bookkeeping only ever runs once per
// export.
func NameFor(bundle *manifest.Bundle, bundleURL, sourceModuleUrl resolve.ResolvedUrl, original string) string {
	if names, ok := bundle.BundledExports[sourceModuleUrl]; ok {
		if name, ok := names[original]; ok {
			return name
		}
	} else {
		bundle.BundledExports[sourceModuleUrl] = make(map[string]string)
	}

	isBasis := sourceModuleUrl == bundleURL
	base := original
	if !isBasis {
		base = sanitize(original)
	}

	candidate := base
	suffix := 0
	for nameTakenInBundle(bundle, candidate, sourceModuleUrl) {
		suffix++
		candidate = fmt.Sprintf("%s$%d", base, suffix)
	}

	bundle.BundledExports[sourceModuleUrl][original] = candidate
	return candidate
}

// sanitize maps an original export name to the character set safe for a
// synthesized bundle-level binding: default/"*" get fixed aliases, and
// every other non-identifier character becomes "$".
func sanitize(name string) string {
	switch name {
	case "default":
		return "$default"
	case "*":
		return "$all"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('$')
		}
	}
	return sb.String()
}

// nameTakenInBundle reports whether candidate is already the chosen name
// for some export of a *different* source module in this bundle.
func nameTakenInBundle(bundle *manifest.Bundle, candidate string, exceptModule resolve.ResolvedUrl) bool {
	for mod, names := range bundle.BundledExports {
		if mod == exceptModule {
			continue
		}
		for _, chosen := range names {
			if chosen == candidate {
				return true
			}
		}
	}
	return false
}
