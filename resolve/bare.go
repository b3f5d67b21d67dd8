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
	"path"
	"strings"
	"sync"

	"bennypowers.dev/mappa/fs"
	"bennypowers.dev/mappa/resolve/local"
)

// WorkspaceBareResolver implements BareSpecifierResolver by generating an
// import map for a workspace root with mappa's local resolver (Node-style
// package.json `exports`/`main` resolution against node_modules) and
// serving lookups from it. The import map is built once, lazily, on first
// use, matching mappa's own "resolve a project, reuse the result" shape.
type WorkspaceBareResolver struct {
	root string
	fs   fs.FileSystem

	once    sync.Once
	imports map[string]string
	buildErr error
}

// NewWorkspaceBareResolver returns nil, false when root is empty: an
// unconfigured workspace root means bare specifiers are left unresolved
// rather than erroring.
func NewWorkspaceBareResolver(root string, filesystem fs.FileSystem) (*WorkspaceBareResolver, bool) {
	if root == "" {
		return nil, false
	}
	return &WorkspaceBareResolver{root: root, fs: filesystem}, true
}

func (w *WorkspaceBareResolver) ensureBuilt() {
	w.once.Do(func() {
		im, err := local.New(w.fs, nil).Resolve(w.root)
		if err != nil {
			w.buildErr = err
			return
		}
		w.imports = im.Imports
	})
}

// ResolveBare looks up specifier in the generated import map. Scoped entries
// are not consulted here; only root-level `imports` bindings apply, matching
// how an unscoped bare import in an HTML/JS entrypoint would be resolved.
func (w *WorkspaceBareResolver) ResolveBare(specifier string) (ResolvedUrl, bool) {
	w.ensureBuilt()
	if w.buildErr != nil || w.imports == nil {
		return "", false
	}
	if target, ok := w.imports[specifier]; ok {
		return ResolvedUrl(target), true
	}
	// Deep-import form: "pkg/subpath" resolved via the package's own root
	// mapping ("pkg" -> ".../pkg/") plus the remaining subpath, mirroring
	// how an import map's "pkg/" prefix entries are meant to be consumed.
	if idx := strings.Index(specifier, "/"); idx > 0 {
		pkgName, subpath := specifier[:idx], specifier[idx+1:]
		if prefixTarget, ok := w.imports[pkgName+"/"]; ok {
			return ResolvedUrl(path.Join(prefixTarget, subpath)), true
		}
	}
	return "", false
}
