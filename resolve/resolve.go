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

// Package resolve provides the URL model the bundler is built on: an opaque
// resolved-URL identity, the resolver/loader interfaces the core consumes,
// and the concrete file-backed implementation used by the CLI.
package resolve

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ResolvedUrl is an absolute, canonical string identity for a source file.
// Two ResolvedUrl values denote the same resource iff they are byte-equal;
// the type exists to keep relative specifiers and resolved identities from
// being mixed up at call sites, not to add validation.
type ResolvedUrl string

// Resolver resolves relative specifiers against a base URL and computes the
// relative specifier between two resolved URLs, the two primitives every
// rewriter in this repository is built from.
type Resolver interface {
	// Resolve resolves rel against base. It returns false when rel cannot be
	// resolved (e.g. an unresolvable bare specifier with no workspace root).
	Resolve(base, rel ResolvedUrl) (ResolvedUrl, bool)
	// Relative computes the specifier that reaches to from the document at
	// from, suitable for writing back into an href/src/import specifier.
	Relative(from, to ResolvedUrl) string
}

// Loader fetches the bytes behind a ResolvedUrl.
type Loader interface {
	Load(ctx context.Context, u ResolvedUrl) ([]byte, error)
}

var templatePlaceholder = regexp.MustCompile(`\{\{.*\}\}|\[\[.*\]\]`)

// IsOpaque reports whether a string must be left untouched by URL rewriting:
// data URIs, absolute http(s) URLs, and Polymer/Angular-style template
// bindings all carry meaning no resolver should reinterpret.
func IsOpaque(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "data:") {
		return true
	}
	if u, err := url.Parse(s); err == nil && u.IsAbs() {
		return true
	}
	return templatePlaceholder.MatchString(s)
}

// BareSpecifierResolver resolves a bare module specifier (not relative, not
// absolute, not a URL) against a workspace root, e.g. via node_modules
// package.json `exports`/`main` resolution.
type BareSpecifierResolver interface {
	ResolveBare(specifier string) (ResolvedUrl, bool)
}

// Redirector rewrites a ResolvedUrl that matches a configured pattern to an
// alternate location. DefaultResolver applies it to the URL that normal
// resolution produced.
type Redirector interface {
	Redirect(u ResolvedUrl) (ResolvedUrl, bool)
}

// DefaultResolver is the file-path-shaped Resolver: `net/url` + `path` join
// semantics for everything except bare specifiers, which are delegated to an
// optional BareSpecifierResolver; every resolved URL is then passed through
// an optional Redirector.
type DefaultResolver struct {
	Bare     BareSpecifierResolver
	Redirect Redirector
}

// NewDefaultResolver builds a DefaultResolver with no bare-specifier or
// redirect support; both can be attached with WithBare/WithRedirect.
func NewDefaultResolver() *DefaultResolver {
	return &DefaultResolver{}
}

func (r *DefaultResolver) WithBare(b BareSpecifierResolver) *DefaultResolver {
	return &DefaultResolver{Bare: b, Redirect: r.Redirect}
}

func (r *DefaultResolver) WithRedirect(rd Redirector) *DefaultResolver {
	return &DefaultResolver{Bare: r.Bare, Redirect: rd}
}

func isBareSpecifier(rel string) bool {
	if rel == "" {
		return false
	}
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, "./") || strings.HasPrefix(rel, "../") {
		return false
	}
	if u, err := url.Parse(rel); err == nil && u.IsAbs() {
		return false
	}
	return true
}

// Resolve implements Resolver.
func (r *DefaultResolver) Resolve(base, rel ResolvedUrl) (ResolvedUrl, bool) {
	relStr := string(rel)
	if IsOpaque(relStr) {
		return rel, true
	}
	if isBareSpecifier(relStr) {
		if r.Bare == nil {
			return "", false
		}
		resolved, ok := r.Bare.ResolveBare(relStr)
		if !ok {
			return "", false
		}
		return r.applyRedirect(resolved), true
	}

	baseURL, err := url.Parse(string(base))
	if err != nil {
		return "", false
	}
	relURL, err := url.Parse(relStr)
	if err != nil {
		return "", false
	}
	resolved := baseURL.ResolveReference(relURL)
	resolved.Path = path.Clean(resolved.Path)
	return r.applyRedirect(ResolvedUrl(resolved.String())), true
}

func (r *DefaultResolver) applyRedirect(u ResolvedUrl) ResolvedUrl {
	if r.Redirect == nil {
		return u
	}
	if redirected, ok := r.Redirect.Redirect(u); ok {
		return redirected
	}
	return u
}

// Relative implements Resolver. It computes a path-relative specifier from
// the directory containing `from` to `to`; opaque URLs pass through
// unchanged.
func (r *DefaultResolver) Relative(from, to ResolvedUrl) string {
	toStr := string(to)
	if IsOpaque(toStr) {
		return toStr
	}
	fromURL, err := url.Parse(string(from))
	if err != nil {
		return toStr
	}
	toURL, err := url.Parse(toStr)
	if err != nil {
		return toStr
	}
	if fromURL.Scheme != toURL.Scheme || fromURL.Host != toURL.Host {
		return toStr
	}
	fromDir := path.Dir(fromURL.Path)
	rel, err := filepathRel(fromDir, toURL.Path)
	if err != nil {
		return toStr
	}
	out := &url.URL{Path: rel, RawQuery: toURL.RawQuery, Fragment: toURL.Fragment}
	result := out.String()
	if result == "" {
		result = "."
	}
	if !strings.HasPrefix(result, ".") && !strings.HasPrefix(result, "/") {
		result = "./" + result
	}
	return result
}

// filepathRel is a URL-path flavored relative-path computation: it behaves
// like filepath.Rel but always uses forward slashes, matching URL path
// semantics regardless of build OS.
func filepathRel(basepath, targpath string) (string, error) {
	base := splitPath(basepath)
	targ := splitPath(targpath)

	i := 0
	for i < len(base) && i < len(targ) && base[i] == targ[i] {
		i++
	}
	up := len(base) - i
	segs := make([]string, 0, up+len(targ)-i)
	for n := 0; n < up; n++ {
		segs = append(segs, "..")
	}
	segs = append(segs, targ[i:]...)
	if len(segs) == 0 {
		return ".", nil
	}
	return strings.Join(segs, "/"), nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
