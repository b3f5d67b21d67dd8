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
	"strings"

	"github.com/gorilla/css/scanner"
)

// CSSURLOccurrence is one `url(...)` token found in a stylesheet, with its
// byte offsets in the source text so a rewriter can splice in a new value
// without re-serializing the whole sheet.
type CSSURLOccurrence struct {
	// RawPath is the token's inner path, with quotes (if any) stripped.
	RawPath string
	// Start/End delimit the full `url(...)` token in the source text.
	Start, End int
}

// ScanCSSURLs tokenizes CSS source with gorilla/css/scanner and returns
// every `url(...)` occurrence in source order. It is used both by the
// analyzer (to surface css-import/css-asset features) and directly by
// htmlbundle when rewriting `<style>`/`style=` content in place.
func ScanCSSURLs(source string) []CSSURLOccurrence {
	s := scanner.New(source)
	var out []CSSURLOccurrence
	// Tokens cover the source contiguously, so summing their raw lengths
	// gives each token's byte offset (token.Column is per line).
	offset := 0
	for {
		token := s.Next()
		if token.Type == scanner.TokenEOF || token.Type == scanner.TokenError {
			break
		}
		start := offset
		offset += len(token.Value)
		if token.Type != scanner.TokenURI {
			continue
		}
		raw := token.Value
		inner := strings.TrimPrefix(raw, "url(")
		inner = strings.TrimSuffix(inner, ")")
		inner = strings.TrimSpace(inner)
		inner = strings.Trim(inner, `"'`)
		out = append(out, CSSURLOccurrence{
			RawPath: inner,
			Start:   start,
			End:     start + len(raw),
		})
	}
	return out
}

// ScanCSSImports tokenizes CSS source for `@import` at-rules, returning the
// imported path of each in source order; used for FeatureCSSImport on
// actual CSS text (as opposed to the deprecated `<link rel="import"
// type="css">` HTML feature, which htmlDocument reports directly).
func ScanCSSImports(source string) []string {
	s := scanner.New(source)
	var out []string
	pendingImport := false
	for {
		token := s.Next()
		if token.Type == scanner.TokenEOF || token.Type == scanner.TokenError {
			break
		}
		switch token.Type {
		case scanner.TokenAtKeyword:
			pendingImport = strings.EqualFold(token.Value, "@import")
		case scanner.TokenURI, scanner.TokenString:
			if pendingImport {
				v := strings.TrimPrefix(token.Value, "url(")
				v = strings.TrimSuffix(v, ")")
				v = strings.Trim(strings.TrimSpace(v), `"'`)
				out = append(out, v)
				pendingImport = false
			}
		case scanner.TokenS:
			// whitespace between @import and its URI; keep waiting.
		default:
			pendingImport = false
		}
	}
	return out
}
