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
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/polymer-tools/bundler/internal/platform"
)

// FileLoader is the CLI's concrete Loader: it reads local disk content
// through a platform.FileSystem, rooted at Root, treating each ResolvedUrl
// as a `file://`-shaped or root-relative path.
type FileLoader struct {
	FS   platform.FileSystem
	Root string
}

// NewFileLoader builds a FileLoader rooted at root using the OS filesystem.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{FS: platform.NewOSFileSystem(), Root: root}
}

func (l *FileLoader) Load(ctx context.Context, u ResolvedUrl) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	p := toLocalPath(string(u), l.Root)
	data, err := l.FS.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("resolve: loading %q: %w", u, err)
	}
	return data, nil
}

// toLocalPath converts a resolved URL into a filesystem path under root. A
// bare `file://` URL has its path taken verbatim; anything else is treated
// as already being root-relative or absolute.
func toLocalPath(resolved, root string) string {
	if strings.HasPrefix(resolved, "file://") {
		if parsed, err := url.Parse(resolved); err == nil {
			return parsed.Path
		}
	}
	if strings.HasPrefix(resolved, "/") {
		return joinRoot(root, resolved)
	}
	return joinRoot(root, "/"+resolved)
}

func joinRoot(root, absPathWithinRoot string) string {
	if root == "" {
		return strings.TrimPrefix(absPathWithinRoot, "/")
	}
	return strings.TrimSuffix(root, "/") + absPathWithinRoot
}

// OverlayLoader wraps another Loader with an in-memory map consulted first.
// Rewriters feed mutated bundle text back through Put so that a subsequent
// re-analysis observes the edited content rather than the original on-disk
// bytes.
//
// The overlay map is written only during a single rewriter pass; Put/Load
// are still guarded by a mutex so concurrent per-bundle rewriters (the
// orchestrator may run them in parallel goroutines) don't race on the
// shared map.
type OverlayLoader struct {
	mu       sync.RWMutex
	inner    Loader
	contents map[ResolvedUrl][]byte
}

// NewOverlayLoader wraps inner with an empty overlay.
func NewOverlayLoader(inner Loader) *OverlayLoader {
	return &OverlayLoader{inner: inner, contents: make(map[ResolvedUrl][]byte)}
}

// Put installs or replaces the overlay content for u.
func (o *OverlayLoader) Put(u ResolvedUrl, contents []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.contents[u] = contents
}

// Forget removes any overlay content for u, restoring pass-through to inner.
func (o *OverlayLoader) Forget(u ResolvedUrl) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.contents, u)
}

func (o *OverlayLoader) Load(ctx context.Context, u ResolvedUrl) ([]byte, error) {
	o.mu.RLock()
	data, ok := o.contents[u]
	o.mu.RUnlock()
	if ok {
		return data, nil
	}
	return o.inner.Load(ctx, u)
}
