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

// Package cmd wires the bundler's single-invocation CLI surface (spec.md
// §6) onto the core library: flag parsing and an optional bundler.yaml/json
// project config via cobra/viper, in the shape the teacher's own CLI
// layers a project config file underneath flags.
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	bundlerconfig "github.com/polymer-tools/bundler/cmd/config"
	"github.com/polymer-tools/bundler/internal/logging"
	"github.com/polymer-tools/bundler/internal/version"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd is both the base command and the bundler's only operation
// (spec.md §6: "single invocation"): it accepts entrypoints as positional
// arguments and/or --in-file, and writes bundled output per --out-file,
// --out-dir, and --manifest-out.
var rootCmd = &cobra.Command{
	Use:   "bundler [entrypoint...]",
	Short: "Bundle HTML imports and ES6 modules into fewer output files",
	Long: `Takes a set of entrypoint HTML documents and/or ES6 modules that
transitively import other documents, scripts, stylesheets, and modules, and
produces a smaller set of output bundles with transitive dependencies
inlined and/or grouped, so a browser loads fewer resources.`,
	Version: version.GetVersion(),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		return runBundle(cfg)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main(); a returned error is treated
// as a fatal CLI failure (spec.md §7) and exits non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

// loadConfig merges viper's bound flags/config-file/env state into a
// BundlerConfig, then applies any flags the user passed explicitly so a
// flag always wins over the project config file, matching the teacher's
// flag-overlays-config-file precedence.
func loadConfig(cmd *cobra.Command, positional []string) (*bundlerconfig.BundlerConfig, error) {
	cfg := &bundlerconfig.BundlerConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, errors.Join(errors.New("config: failed to unmarshal bundler.yaml"), err)
	}
	cfg = cfg.Clone()

	flags := cmd.Flags()
	inFiles, _ := flags.GetStringSlice("in-file")
	cfg.Bundle.InFiles = append(append([]string(nil), inFiles...), positional...)
	if v, _ := flags.GetString("out-file"); v != "" {
		cfg.Bundle.OutFile = v
	}
	if v, _ := flags.GetString("out-dir"); v != "" {
		cfg.Bundle.OutDir = v
	}
	if v, _ := flags.GetString("manifest-out"); v != "" {
		cfg.Bundle.ManifestOut = v
	}
	if v, _ := flags.GetString("shell"); v != "" {
		cfg.Bundle.Shell = v
	}
	if v, _ := flags.GetStringSlice("exclude"); len(v) > 0 {
		cfg.Bundle.Exclude = v
	}
	if v, _ := flags.GetStringSlice("redirect"); len(v) > 0 {
		cfg.Bundle.Redirect = v
	}
	if v, _ := flags.GetString("root"); v != "" {
		cfg.Bundle.Root = v
	}
	if flags.Changed("inline-scripts") {
		cfg.Bundle.InlineScripts, _ = flags.GetBool("inline-scripts")
	}
	if flags.Changed("inline-css") {
		cfg.Bundle.InlineCSS, _ = flags.GetBool("inline-css")
	}
	if flags.Changed("rewrite-urls-in-templates") {
		cfg.Bundle.RewriteURLsInTemplates, _ = flags.GetBool("rewrite-urls-in-templates")
	}
	if flags.Changed("strip-comments") {
		cfg.Bundle.StripComments, _ = flags.GetBool("strip-comments")
	}
	if flags.Changed("sourcemaps") {
		cfg.Bundle.Sourcemaps, _ = flags.GetBool("sourcemaps")
	}

	return cfg, nil
}

// expandPath expands a leading ~ and resolves the result to an absolute
// path, the same convention the teacher's --config/--project-dir flags use.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = filepath.Join(home, path[2:])
		}
	}
	return filepath.Abs(path)
}

// initConfig loads an optional bundler.yaml/bundler.json project file from
// the working directory (or --config) before flags are read, the same
// "config file underneath flags" layering the teacher's `cem` uses for
// .config/cem.yaml.
func initConfig() {
	if viper.GetBool("verbose") {
		pterm.EnableDebugMessages()
	}

	cfgFile := viper.GetString("configFile")
	if cfgFile != "" {
		expanded, err := expandPath(cfgFile)
		cobra.CheckErr(err)
		viper.SetConfigFile(expanded)
	} else {
		viper.SetConfigName("bundler")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	if err := viper.ReadInConfig(); err == nil {
		pterm.Debug.Println("Using config file: ", viper.ConfigFileUsed())
	}
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.StringSlice("in-file", nil, "entrypoint path (repeatable); positional arguments are equivalent")
	flags.String("out-file", "", "write the single output bundle to this path")
	flags.String("out-dir", "", "write every output bundle under this directory")
	flags.String("manifest-out", "", "write the bundle-to-files manifest as JSON to this path")
	flags.String("shell", "", "entrypoint to merge every shared bundle into (ShellMerge)")
	flags.StringSlice("exclude", nil, "URL or folder prefix to never inline (repeatable)")
	flags.StringSlice("redirect", nil, `"<prefix>|<path>" rewrite rule applied to each resolved URL (repeatable)`)
	flags.Bool("inline-scripts", true, "inline external non-module <script src> contents")
	flags.Bool("inline-css", true, "inline external stylesheets and deprecated CSS imports")
	flags.Bool("rewrite-urls-in-templates", false, "also rewrite URLs inside <template> contents")
	flags.Bool("strip-comments", false, "strip HTML comments other than @license/!/server-side-include")
	flags.Bool("sourcemaps", false, "attach identity source maps offset to final bundle coordinates")
	flags.String("root", "", "directory entrypoint/exclude/redirect paths are resolved against (default: cwd)")

	rootCmd.PersistentFlags().String("config", "", "bundler config file (default: ./bundler.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")
	viper.BindPFlag("configFile", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Spec defaults for options a bundler.yaml might omit entirely; flags
	// still win when explicitly passed (see loadConfig's flags.Changed checks).
	viper.SetDefault("bundle.inlineScripts", true)
	viper.SetDefault("bundle.inlineCss", true)
}
