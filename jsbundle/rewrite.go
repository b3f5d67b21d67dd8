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
	"regexp"
	"strings"

	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
)

// importLineRE matches one esbuild-emitted single-line static import
// declaration. esbuild's printer normalizes each import to its own line, so
// a line-oriented regex (rather than a full parser) is enough here; an
// import clause that esbuild ever wraps across lines would not match and
// would simply pass through unrewritten.
var importLineRE = regexp.MustCompile(`(?m)^import\s*(.*?)\s*from\s*["']([^"']+)["'];?\s*$`)

// sideEffectImportRE matches a bare `import "spec";` with no clause.
var sideEffectImportRE = regexp.MustCompile(`(?m)^import\s*["']([^"']+)["'];?\s*$`)

var dynamicImportRE = regexp.MustCompile(`\bimport\(\s*["']([^"']+)["']\s*\)`)

type namedSpecifier struct {
	imported string
	local    string
}

// parsedClause is an import declaration's static shape, independent of
// source order.
type parsedClause struct {
	defaultLocal   string
	namespaceLocal string
	named          []namedSpecifier
}

var (
	clauseDefaultAndNamed = regexp.MustCompile(`^(\w+)\s*,\s*\{(.*)\}$`)
	clauseDefaultAndNS    = regexp.MustCompile(`^(\w+)\s*,\s*\*\s*as\s+(\w+)$`)
	clauseOnlyNS          = regexp.MustCompile(`^\*\s*as\s+(\w+)$`)
	clauseOnlyNamed       = regexp.MustCompile(`^\{(.*)\}$`)
	clauseOnlyDefault     = regexp.MustCompile(`^(\w+)$`)
	namedSpecRE           = regexp.MustCompile(`^(\w+)(?:\s+as\s+(\w+))?$`)
)

func parseClause(clause string) parsedClause {
	clause = strings.TrimSpace(clause)
	switch {
	case clauseDefaultAndNamed.MatchString(clause):
		m := clauseDefaultAndNamed.FindStringSubmatch(clause)
		return parsedClause{defaultLocal: m[1], named: parseNamedList(m[2])}
	case clauseDefaultAndNS.MatchString(clause):
		m := clauseDefaultAndNS.FindStringSubmatch(clause)
		return parsedClause{defaultLocal: m[1], namespaceLocal: m[2]}
	case clauseOnlyNS.MatchString(clause):
		m := clauseOnlyNS.FindStringSubmatch(clause)
		return parsedClause{namespaceLocal: m[1]}
	case clauseOnlyNamed.MatchString(clause):
		m := clauseOnlyNamed.FindStringSubmatch(clause)
		return parsedClause{named: parseNamedList(m[1])}
	case clauseOnlyDefault.MatchString(clause):
		m := clauseOnlyDefault.FindStringSubmatch(clause)
		return parsedClause{defaultLocal: m[1]}
	}
	return parsedClause{}
}

func parseNamedList(body string) []namedSpecifier {
	var out []namedSpecifier
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := namedSpecRE.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		local := m[1]
		if m[2] != "" {
			local = m[2]
		}
		out = append(out, namedSpecifier{imported: m[1], local: local})
	}
	return out
}

// rewriteImportDeclarations resolves each static import's specifier, renames its
// specifiers through NameFor when the target belongs to a destination
// bundle, point the specifier at that bundle's relative URL, and finally
// merge plain-named declarations that share a rewritten source.
func rewriteImportDeclarations(text string, outputBundleURL resolve.ResolvedUrl, resolver resolve.Resolver, m *manifest.BundleManifest, ownBundle *manifest.Bundle) string {
	rewritten := importLineRE.ReplaceAllStringFunc(text, func(line string) string {
		sub := importLineRE.FindStringSubmatch(line)
		clauseText, spec := sub[1], sub[2]
		return rewriteOneImportLine(clauseText, spec, outputBundleURL, resolver, m, ownBundle)
	})
	rewritten = sideEffectImportRE.ReplaceAllStringFunc(rewritten, func(line string) string {
		sub := sideEffectImportRE.FindStringSubmatch(line)
		spec := sub[1]
		target, ok := resolver.Resolve(outputBundleURL, resolve.ResolvedUrl(spec))
		if !ok {
			return line
		}
		destURL, _, ok := m.BundleFor(target)
		if !ok || destURL == outputBundleURL {
			return line
		}
		return `import "` + relSpecifier(resolver, outputBundleURL, destURL) + `";`
	})
	return dedupeNamedImports(rewritten)
}

func rewriteOneImportLine(clauseText, spec string, outputBundleURL resolve.ResolvedUrl, resolver resolve.Resolver, m *manifest.BundleManifest, ownBundle *manifest.Bundle) string {
	target, ok := resolver.Resolve(outputBundleURL, resolve.ResolvedUrl(spec))
	if !ok {
		return `import ` + clauseText + ` from "` + spec + `";`
	}

	destURL, destBundle, ok := m.BundleFor(target)
	if !ok {
		// Excluded: normalize the specifier, leave the clause's names alone.
		return `import ` + clauseText + ` from "` + relSpecifier(resolver, outputBundleURL, target) + `";`
	}
	if destURL == outputBundleURL {
		destBundle = ownBundle
	}

	clause := parseClause(clauseText)
	var pieces []string
	if clause.defaultLocal != "" {
		name := NameFor(destBundle, destURL, target, "default")
		if name == "default" {
			pieces = append([]string{"default as " + clause.defaultLocal}, pieces...)
		} else {
			pieces = append(pieces, name+" as "+clause.defaultLocal)
		}
	}
	if clause.namespaceLocal != "" {
		name := NameFor(destBundle, destURL, target, "*")
		if name == "*" {
			return `import * as ` + clause.namespaceLocal + ` from "` + relSpecifier(resolver, outputBundleURL, destURL) + `";`
		}
		pieces = append(pieces, name+" as "+clause.namespaceLocal)
	}
	for _, n := range clause.named {
		name := NameFor(destBundle, destURL, target, n.imported)
		if name == n.local {
			pieces = append(pieces, name)
		} else {
			pieces = append(pieces, name+" as "+n.local)
		}
	}

	relURL := relSpecifier(resolver, outputBundleURL, destURL)
	if len(pieces) == 0 {
		return `import "` + relURL + `";`
	}
	return `import { ` + strings.Join(pieces, ", ") + ` } from "` + relURL + `";`
}

// dedupedImportRE matches the plain-named-only shape rewriteOneImportLine
// produces, the only shape step 4 merges.
var dedupedImportRE = regexp.MustCompile(`(?m)^import \{ ([^}]*) \} from "([^"]+)";$`)

// dedupeNamedImports merges declarations with no default or namespace
// specifier that share a source into one, in the order their source first
// appeared.
func dedupeNamedImports(text string) string {
	lines := strings.Split(text, "\n")
	order := make([]string, 0)
	bySpec := make(map[string][]string)
	keep := make([]bool, len(lines))
	for i, line := range lines {
		m := dedupedImportRE.FindStringSubmatch(line)
		if m == nil {
			keep[i] = true
			continue
		}
		names, spec := m[1], m[2]
		if _, seen := bySpec[spec]; !seen {
			order = append(order, spec)
			keep[i] = true
		}
		for _, n := range strings.Split(names, ",") {
			n = strings.TrimSpace(n)
			if n != "" {
				bySpec[spec] = append(bySpec[spec], n)
			}
		}
	}

	firstIdxBySpec := make(map[string]int)
	var out []string
	for i, line := range lines {
		m := dedupedImportRE.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}
		if !keep[i] {
			continue
		}
		spec := m[2]
		firstIdxBySpec[spec] = len(out)
		out = append(out, "import { "+strings.Join(bySpec[spec], ", ")+` } from "`+spec+`";`)
	}
	return strings.Join(out, "\n")
}

// rewriteDynamicImports rewrites dynamic import() call targets the same
// way rewriteImportDeclarations rewrites static import specifiers.
func rewriteDynamicImports(text string, outputBundleURL resolve.ResolvedUrl, resolver resolve.Resolver, m *manifest.BundleManifest, ownBundle *manifest.Bundle) string {
	return dynamicImportRE.ReplaceAllStringFunc(text, func(call string) string {
		sub := dynamicImportRE.FindStringSubmatch(call)
		spec := sub[1]
		target, ok := resolver.Resolve(outputBundleURL, resolve.ResolvedUrl(spec))
		if !ok {
			return call
		}
		destURL, destBundle, ok := m.BundleFor(target)
		if !ok {
			return `import("` + relSpecifier(resolver, outputBundleURL, target) + `")`
		}
		if destURL == outputBundleURL {
			destBundle = ownBundle
		}
		relURL := relSpecifier(resolver, outputBundleURL, destURL)
		name := NameFor(destBundle, destURL, target, "*")
		if name == "*" {
			return `import("` + relURL + `")`
		}
		return `import("` + relURL + `").then(({ ` + name + ` }) => ` + name + `)`
	})
}

func relSpecifier(resolver resolve.Resolver, from, to resolve.ResolvedUrl) string {
	rel := resolver.Relative(from, to)
	if !strings.HasPrefix(rel, ".") && !strings.HasPrefix(rel, "/") && !resolve.IsOpaque(rel) {
		rel = "./" + rel
	}
	return rel
}
