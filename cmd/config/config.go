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

// Package config defines the bundler CLI's configuration record: the
// mapstructure/yaml-tagged struct viper binds flags and a bundler.yaml/json
// project file into (spec.md §6's CLI surface plus this repo's ambient
// config-file layer; see SPEC_FULL.md [CONFIG]).
package config

import "fmt"

// BundleConfig holds the options spec.md §6's CLI surface exposes, bound
// from flags and/or a bundler.yaml/.json project file.
type BundleConfig struct {
	// InFiles lists entrypoint paths or globs; the default positional
	// argument form and --in-file both feed this list.
	InFiles []string `mapstructure:"inFiles" yaml:"inFiles"`
	// OutFile names the single output file, valid only when bundling
	// produces exactly one bundle; mutually exclusive with OutDir.
	OutFile string `mapstructure:"outFile" yaml:"outFile"`
	// OutDir names the directory every bundle's output is written under,
	// one file per bundle URL.
	OutDir string `mapstructure:"outDir" yaml:"outDir"`
	// ManifestOut, if set, writes the package-relative bundle-to-files
	// manifest JSON described in spec.md §6.
	ManifestOut string `mapstructure:"manifestOut" yaml:"manifestOut"`
	// Shell names the entrypoint ShellMerge should fold every shared
	// bundle into.
	Shell string `mapstructure:"shell" yaml:"shell"`
	// Exclude lists URL/folder prefixes never to inline.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// Redirect lists "<prefix>|<path>" rewrite rules consulted before
	// normal URL resolution.
	Redirect []string `mapstructure:"redirect" yaml:"redirect"`

	InlineScripts          bool `mapstructure:"inlineScripts" yaml:"inlineScripts"`
	InlineCSS              bool `mapstructure:"inlineCss" yaml:"inlineCss"`
	RewriteURLsInTemplates bool `mapstructure:"rewriteUrlsInTemplates" yaml:"rewriteUrlsInTemplates"`
	StripComments          bool `mapstructure:"stripComments" yaml:"stripComments"`
	Sourcemaps             bool `mapstructure:"sourcemaps" yaml:"sourcemaps"`

	// Root anchors relative entrypoint/exclude/redirect paths; defaults to
	// the process working directory.
	Root string `mapstructure:"root" yaml:"root"`
}

// BundlerConfig is the top-level project config record: shared fields
// (ProjectDir/ConfigFile/Verbose) plus the bundle command's own section,
// mirroring the teacher's one-root-struct-with-command-sections shape.
type BundlerConfig struct {
	ProjectDir string `mapstructure:"projectDir" yaml:"projectDir"`
	ConfigFile string `mapstructure:"configFile" yaml:"configFile"`
	Verbose    bool   `mapstructure:"verbose" yaml:"verbose"`

	Bundle BundleConfig `mapstructure:"bundle" yaml:"bundle"`
}

// Clone deep-copies c so a command can apply flag overrides without
// mutating config state shared with viper.
func (c *BundlerConfig) Clone() *BundlerConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Bundle.InFiles = append([]string(nil), c.Bundle.InFiles...)
	clone.Bundle.Exclude = append([]string(nil), c.Bundle.Exclude...)
	clone.Bundle.Redirect = append([]string(nil), c.Bundle.Redirect...)
	return &clone
}

// Validate checks cross-field invariants that don't map cleanly onto a
// single flag's type, returning a configuration error (spec.md §7) the CLI
// should treat as fatal before bundling starts.
func (c *BundlerConfig) Validate() error {
	if c.Bundle.OutFile != "" && c.Bundle.OutDir != "" {
		return fmt.Errorf("config: --out-file and --out-dir are mutually exclusive")
	}
	return nil
}
