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

// Package bundler is the top-level orchestrator: it wires the
// dependency-index builder and manifest generator into generateManifest,
// and dispatches per-bundle rewriting to htmlbundle/jsbundle in bundle,
// fanning bundles out across goroutines while honoring the analyzer's
// "one caller at a time" constraint.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/depindex"
	"github.com/polymer-tools/bundler/htmlbundle"
	"github.com/polymer-tools/bundler/jsbundle"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
)

// Options configures the Bundler(options) constructor.
type Options struct {
	Analyzer analyzer.Analyzer
	Resolver resolve.Resolver
	Loader   resolve.Loader

	Excludes []resolve.ResolvedUrl

	InlineScripts          bool
	InlineCSS              bool
	RewriteURLsInTemplates bool
	StripComments          bool
	Sourcemaps             bool

	Strategy  manifest.Strategy
	URLMapper manifest.URLMapper

	// Concurrency bounds how many bundles are rewritten in parallel;
	// defaults to runtime.NumCPU() when zero.
	Concurrency int
}

// DefaultOptions returns the bundler's documented defaults.
func DefaultOptions(a analyzer.Analyzer, r resolve.Resolver, l resolve.Loader) Options {
	return Options{
		Analyzer:      a,
		Resolver:      r,
		Loader:        l,
		InlineScripts: true,
		InlineCSS:     true,
		Strategy:      manifest.DefaultStrategy(),
		URLMapper:     manifest.DefaultURLMapper,
	}
}

// BundledDocument is one bundle's rewritten output.
type BundledDocument struct {
	Content string
	Files   []resolve.ResolvedUrl
}

// Bundler wires together the dependency index, manifest generator, and the
// two per-kind rewriters.
type Bundler struct {
	opts Options

	overlay *resolve.OverlayLoader
	depIdx  *depindex.Builder
	gen     *manifest.Generator

	html *htmlbundle.Bundler
	js   *jsbundle.Bundler
}

// NewBundler builds a Bundler from opts.
func NewBundler(opts Options) *Bundler {
	overlay := resolve.NewOverlayLoader(opts.Loader)

	gen := manifest.NewGenerator(func(u resolve.ResolvedUrl) manifest.BundleKind {
		return kindForURL(u)
	})
	gen.Excludes = opts.Excludes
	if opts.Strategy != nil {
		gen.Strategy = opts.Strategy
	}
	if opts.URLMapper != nil {
		gen.URLMap = opts.URLMapper
	}

	jsBundler := jsbundle.NewBundler(opts.Resolver, overlay)
	jsBundler.Sourcemaps = opts.Sourcemaps
	htmlOpts := htmlbundle.Options{
		InlineScripts:          opts.InlineScripts,
		InlineCSS:              opts.InlineCSS,
		RewriteURLsInTemplates: opts.RewriteURLsInTemplates,
		StripComments:          opts.StripComments,
		Sourcemaps:             opts.Sourcemaps,
	}

	return &Bundler{
		opts:    opts,
		overlay: overlay,
		depIdx:  depindex.NewBuilder(opts.Analyzer),
		gen:     gen,
		html:    htmlbundle.NewBundler(opts.Analyzer, opts.Resolver, overlay, jsBundler, htmlOpts),
		js:      jsBundler,
	}
}

func kindForURL(u resolve.ResolvedUrl) manifest.BundleKind {
	s := string(u)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			switch s[i:] {
			case ".js", ".mjs":
				return manifest.BundleJS
			}
			return manifest.BundleHTML
		}
		if s[i] == '/' {
			break
		}
	}
	return manifest.BundleHTML
}

// GenerateManifest builds the transitive dependency index for entrypoints,
// then partitions it into a manifest.
func (b *Bundler) GenerateManifest(ctx context.Context, entrypoints []resolve.ResolvedUrl) (*manifest.BundleManifest, error) {
	deps, err := b.depIdx.Build(ctx, entrypoints)
	if err != nil {
		return nil, fmt.Errorf("bundler: building dependency index: %w", err)
	}
	m, err := b.gen.Generate(deps)
	if err != nil {
		return nil, fmt.Errorf("bundler: generating manifest: %w", err)
	}
	return m, nil
}

// Bundle forks the manifest so each rewriter's bookkeeping mutations land
// on an independent snapshot, then rewrites every bundle, fanning out
// across goroutines up to opts.Concurrency while leaning on the analyzer's
// own internal mutex to serialize the one operation that actually touches
// shared state — AnalyzeContents.
func (b *Bundler) Bundle(ctx context.Context, m *manifest.BundleManifest) (*manifest.BundleManifest, map[resolve.ResolvedUrl]*BundledDocument, error) {
	fork := m.Fork()
	bundleURLs := fork.SortedBundleURLs()

	workers := b.opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(1, len(bundleURLs)))

	type job struct {
		url resolve.ResolvedUrl
	}
	jobs := make(chan job, len(bundleURLs))
	for _, u := range bundleURLs {
		jobs <- job{url: u}
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errsMu   sync.Mutex
		errsList []error
		docs     = make(map[resolve.ResolvedUrl]*BundledDocument, len(bundleURLs))
	)

	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					errsMu.Lock()
					errsList = append(errsList, ctx.Err())
					errsMu.Unlock()
					continue
				default:
				}

				mu.Lock()
				bundle := fork.Bundles[j.url]
				mu.Unlock()
				assigned := manifest.AssignedBundle{URL: j.url, Bundle: bundle}

				doc, err := b.bundleOne(ctx, assigned, fork)
				if err != nil {
					errsMu.Lock()
					errsList = append(errsList, fmt.Errorf("bundling %q: %w", j.url, err))
					errsMu.Unlock()
					continue
				}
				mu.Lock()
				docs[j.url] = doc
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(errsList) > 0 {
		return fork, docs, errors.Join(errsList...)
	}
	return fork, docs, nil
}

func (b *Bundler) bundleOne(ctx context.Context, assigned manifest.AssignedBundle, m *manifest.BundleManifest) (*BundledDocument, error) {
	switch assigned.Bundle.Kind {
	case manifest.BundleJS:
		content, files, err := b.js.Bundle(ctx, assigned, m)
		if err != nil {
			return nil, err
		}
		return &BundledDocument{Content: content, Files: files}, nil
	default:
		content, files, err := b.html.Bundle(ctx, assigned, m)
		if err != nil {
			return nil, err
		}
		return &BundledDocument{Content: content, Files: files}, nil
	}
}

// Overlay exposes the orchestrator's overlay loader so a caller (e.g. the
// CLI's --sourcemaps handling) can seed or forget entries directly.
func (b *Bundler) Overlay() *resolve.OverlayLoader { return b.overlay }
