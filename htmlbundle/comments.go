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
package htmlbundle

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// isPreservedComment reports whether a comment must survive stripComments
// regardless of the --strip-comments option: `@license` blocks, `!`-prefixed
// "important" comments, and server-side-include directives.
func isPreservedComment(data string) bool {
	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "!") {
		return true
	}
	if strings.Contains(data, "@license") {
		return true
	}
	if strings.HasPrefix(trimmed, "#") {
		return true
	}
	return false
}

// stripComments removes every HTML comment except preserved ones, when
// --strip-comments is set.
func stripComments(doc *html.Node) {
	var toRemove []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode && !isPreservedComment(n.Data) {
			toRemove = append(toRemove, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	for _, n := range toRemove {
		removeNode(n)
	}
}

// normalizedCommentKey collapses a comment's text to NFC-normalized,
// single-spaced words, so two `@license` headers that differ only by
// incidental re-indentation or line-wrapping still compare equal.
func normalizedCommentKey(data string) string {
	return strings.Join(strings.Fields(norm.NFC.String(data)), " ")
}

// deduplicateLicenseComments runs unconditionally: once multiple files are
// concatenated into one bundle, the same `@license` comment (e.g. a shared
// Apache/BSD header) often appears more than once, each copy wherever its
// source file happened to place it. Every occurrence is removed from where
// it sits and one copy per distinct normalized text is prepended to
// `<head>`, in first-seen order.
func deduplicateLicenseComments(doc *html.Node) {
	seen := make(map[string]bool)
	var survivors []*html.Node
	var toRemove []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.CommentNode && strings.Contains(n.Data, "@license") {
			key := normalizedCommentKey(n.Data)
			toRemove = append(toRemove, n)
			if !seen[key] {
				seen[key] = true
				survivors = append(survivors, &html.Node{
					Type: html.CommentNode,
					Data: n.Data,
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	for _, n := range toRemove {
		removeNode(n)
	}

	head := findElement(doc, atom.Head)
	if head == nil || len(survivors) == 0 {
		return
	}
	for i := len(survivors) - 1; i >= 0; i-- {
		head.InsertBefore(survivors[i], head.FirstChild)
	}
}
