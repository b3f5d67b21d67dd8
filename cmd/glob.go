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

package cmd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// expandGlobs expands --in-file/--exclude entries that contain glob
// metacharacters with doublestar (so `components/**/*.html` reaches every
// matching file), leaving literal paths untouched, and finally drops any
// match a `.bundlerignore` file at root excludes, the way the teacher's
// reference lookup consults .gitignore for the same purpose.
func expandGlobs(root string, patterns []string) ([]string, error) {
	ignoreMatcher := loadBundlerIgnore(root)

	seen := make(map[string]struct{})
	var out []string
	for _, pattern := range patterns {
		matches, err := globOne(root, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			rel := m
			if abs, err := filepath.Rel(root, m); err == nil {
				rel = abs
			}
			if ignoreMatcher != nil && ignoreMatcher.MatchesPath(rel) {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func globOne(root, pattern string) ([]string, error) {
	if !isGlobPattern(pattern) {
		return []string{joinIfRelative(root, pattern)}, nil
	}
	rooted := pattern
	if !filepath.IsAbs(pattern) {
		rooted = filepath.Join(root, pattern)
	}
	return doublestar.FilepathGlob(rooted)
}

func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func joinIfRelative(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// loadBundlerIgnore reads a `.bundlerignore` file at root, returning nil
// when absent so callers skip the filter entirely.
func loadBundlerIgnore(root string) *ignore.GitIgnore {
	content, err := os.ReadFile(filepath.Join(root, ".bundlerignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(content), "\n")...)
}
