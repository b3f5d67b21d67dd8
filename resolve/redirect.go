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
package resolve

import (
	"strings"

	urlpattern "github.com/dunglas/go-urlpattern"
)

// RedirectRule is one `--redirect <prefix>|<path>` entry: urls matching
// Pattern are rewritten by substituting Pattern's matched prefix with
// Replacement.
type RedirectRule struct {
	Pattern     *urlpattern.URLPattern
	PatternText string
	Replacement string
}

// PatternRedirector implements Redirector by testing each configured rule's
// WHATWG URLPattern against the candidate URL in order, applying the first
// match. Using urlpattern here (rather than strings.HasPrefix) lets
// `--redirect` entries be expressed as patterns such as `/vendor/*` as
// well as as literal path prefixes.
type PatternRedirector struct {
	Rules []RedirectRule
}

// NewRedirectRule compiles a "prefix|replacement" CLI argument into a rule.
// A bare literal prefix like "/vendor/shared" is treated as the pattern
// "/vendor/shared/*", so it matches every path nested under that prefix;
// the prefix itself, with nothing after it, does not match.
func NewRedirectRule(spec string) (RedirectRule, bool) {
	parts := strings.SplitN(spec, "|", 2)
	if len(parts) != 2 {
		return RedirectRule{}, false
	}
	patternText, replacement := parts[0], parts[1]
	if !strings.ContainsAny(patternText, "*:{") {
		patternText = strings.TrimSuffix(patternText, "/") + "/*"
	}
	compiled, err := urlpattern.Parse(urlpattern.Input{Pathname: patternText}, "")
	if err != nil {
		return RedirectRule{}, false
	}
	return RedirectRule{Pattern: compiled, PatternText: patternText, Replacement: replacement}, true
}

// Redirect implements Redirector.
func (p *PatternRedirector) Redirect(u ResolvedUrl) (ResolvedUrl, bool) {
	for _, rule := range p.Rules {
		if rule.Pattern == nil {
			continue
		}
		result, err := rule.Pattern.Exec(urlpattern.Input{Pathname: string(u)}, "")
		if err != nil || result == nil {
			continue
		}
		prefixLen := len(strings.TrimSuffix(strings.TrimSuffix(rule.PatternText, "*"), "/"))
		if prefixLen > len(u) {
			continue
		}
		return ResolvedUrl(rule.Replacement + string(u)[prefixLen:]), true
	}
	return u, false
}
