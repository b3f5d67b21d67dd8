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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/polymer-tools/bundler/analyzer"
	"github.com/polymer-tools/bundler/bundler"
	bundlerconfig "github.com/polymer-tools/bundler/cmd/config"
	"github.com/polymer-tools/bundler/internal/logging"
	"github.com/polymer-tools/bundler/manifest"
	"github.com/polymer-tools/bundler/resolve"
)

// runBundle drives spec.md §4.5's two operations end to end: resolve the
// configured entrypoints, generateManifest, bundle, and write the results
// to --out-file/--out-dir and --manifest-out. It returns a non-nil error
// for every taxonomy entry in spec.md §7 except missing-dependency, which
// is recorded in the manifest-out `_missing` key rather than failing.
func runBundle(cfg *bundlerconfig.BundlerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := resolveRoot(cfg.Bundle.Root)
	if err != nil {
		return fmt.Errorf("config: resolving --root: %w", err)
	}

	entryPaths, err := expandGlobs(root, cfg.Bundle.InFiles)
	if err != nil {
		return fmt.Errorf("config: expanding --in-file: %w", err)
	}
	if len(entryPaths) == 0 {
		return fmt.Errorf("config: no entrypoints given (use --in-file or a positional path/glob)")
	}

	excludePaths, err := expandGlobs(root, cfg.Bundle.Exclude)
	if err != nil {
		return fmt.Errorf("config: expanding --exclude: %w", err)
	}

	resolver, err := buildResolver(root, cfg.Bundle.Redirect)
	if err != nil {
		return err
	}

	loader := resolve.NewFileLoader(root)
	a := analyzer.NewDefaultAnalyzer(loader, resolver)

	opts := bundler.DefaultOptions(a, resolver, loader)
	opts.InlineScripts = cfg.Bundle.InlineScripts
	opts.InlineCSS = cfg.Bundle.InlineCSS
	opts.RewriteURLsInTemplates = cfg.Bundle.RewriteURLsInTemplates
	opts.StripComments = cfg.Bundle.StripComments
	opts.Sourcemaps = cfg.Bundle.Sourcemaps
	for _, p := range excludePaths {
		opts.Excludes = append(opts.Excludes, pathToResolvedURL(root, p))
	}

	var shellURL resolve.ResolvedUrl
	if cfg.Bundle.Shell != "" {
		shellURL = pathToResolvedURL(root, joinIfRelative(root, cfg.Bundle.Shell))
		opts.Strategy = manifest.ShellMerge(shellURL, 2)
	}

	b := bundler.NewBundler(opts)

	entrypoints := make([]resolve.ResolvedUrl, len(entryPaths))
	for i, p := range entryPaths {
		entrypoints[i] = pathToResolvedURL(root, p)
	}

	ctx := context.Background()
	start := time.Now()

	m, err := b.GenerateManifest(ctx, entrypoints)
	if err != nil {
		return fmt.Errorf("bundler: generating manifest: %w", err)
	}

	finalManifest, docs, err := b.Bundle(ctx, m)
	if err != nil {
		return fmt.Errorf("bundler: bundling: %w", err)
	}

	if err := writeDocuments(root, cfg.Bundle, finalManifest, docs); err != nil {
		return err
	}

	if cfg.Bundle.ManifestOut != "" {
		if err := writeManifestJSON(root, cfg.Bundle.ManifestOut, finalManifest); err != nil {
			return err
		}
	}

	logging.Success("Bundled %d file(s) into %d bundle(s) in %s", len(entryPaths), len(finalManifest.Bundles), time.Since(start))
	return nil
}

func resolveRoot(configured string) (string, error) {
	if configured == "" {
		return os.Getwd()
	}
	return filepath.Abs(configured)
}

// buildResolver assembles the DefaultResolver with --redirect rules
// attached. No BareSpecifierResolver is attached, here or anywhere else in
// the CLI, so bare specifiers do not resolve in CLI runs.
func buildResolver(root string, redirects []string) (*resolve.DefaultResolver, error) {
	r := resolve.NewDefaultResolver()
	if len(redirects) == 0 {
		return r, nil
	}
	pr := &resolve.PatternRedirector{}
	for _, spec := range redirects {
		rule, ok := resolve.NewRedirectRule(spec)
		if !ok {
			return nil, fmt.Errorf("config: malformed --redirect %q, want <prefix>|<path>", spec)
		}
		pr.Rules = append(pr.Rules, rule)
	}
	return r.WithRedirect(pr), nil
}

// pathToResolvedURL converts an absolute filesystem path into the
// root-relative ResolvedUrl the bundler's FileLoader expects.
func pathToResolvedURL(root, absPath string) resolve.ResolvedUrl {
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		rel = absPath
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return resolve.ResolvedUrl(rel)
}

func writeDocuments(root string, cfg bundlerconfig.BundleConfig, m *manifest.BundleManifest, docs map[resolve.ResolvedUrl]*bundler.BundledDocument) error {
	switch {
	case cfg.OutFile != "":
		if len(docs) != 1 {
			return fmt.Errorf("cli: --out-file requires exactly one output bundle, got %d (use --out-dir)", len(docs))
		}
		for _, doc := range docs {
			return writeFile(joinIfRelative(root, cfg.OutFile), []byte(doc.Content))
		}
		return nil
	case cfg.OutDir != "":
		outDir := joinIfRelative(root, cfg.OutDir)
		for url, doc := range docs {
			dest := filepath.Join(outDir, filepath.FromSlash(strings.TrimPrefix(string(url), "/")))
			if err := writeFile(dest, []byte(doc.Content)); err != nil {
				return err
			}
		}
		return nil
	default:
		for url, doc := range docs {
			fmt.Printf("// ===== %s =====\n%s\n", url, doc.Content)
		}
		return nil
	}
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cli: creating output directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cli: writing %q: %w", path, err)
	}
	return nil
}

// manifestJSON is spec.md §6's `--manifest-out` shape: bundle URL -> files,
// plus an optional "_missing" key collecting every bundle's missingImports.
type manifestJSON map[string][]string

func writeManifestJSON(root, outPath string, m *manifest.BundleManifest) error {
	out := make(manifestJSON, len(m.Bundles)+1)
	var missing []string

	for _, bundleURL := range m.SortedBundleURLs() {
		b := m.Bundles[bundleURL]
		relFiles := make([]string, 0, len(b.Files))
		for _, f := range sortedURLs(b.Files.Slice()) {
			relFiles = append(relFiles, packageRelative(f))
		}
		out[packageRelative(bundleURL)] = relFiles
		for _, f := range sortedURLs(b.MissingImports.Slice()) {
			missing = append(missing, packageRelative(f))
		}
	}
	if len(missing) > 0 {
		out["_missing"] = missing
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("cli: marshaling --manifest-out: %w", err)
	}
	return writeFile(joinIfRelative(root, outPath), data)
}

// packageRelative strips the FileLoader's root-relative leading slash so
// manifest-out entries read as plain package-relative paths, matching
// spec.md §6's documented JSON shape.
func packageRelative(u resolve.ResolvedUrl) string {
	return strings.TrimPrefix(string(u), "/")
}

func sortedURLs(urls []resolve.ResolvedUrl) []resolve.ResolvedUrl {
	out := append([]resolve.ResolvedUrl(nil), urls...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
