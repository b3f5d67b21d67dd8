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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_EmptyConfigValid(t *testing.T) {
	cfg := &BundlerConfig{}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_OutFileAndOutDirMutuallyExclusive(t *testing.T) {
	cfg := &BundlerConfig{Bundle: BundleConfig{OutFile: "bundle.html", OutDir: "dist"}}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--out-file")
	assert.Contains(t, err.Error(), "--out-dir")
}

func TestValidate_OutFileAlone(t *testing.T) {
	cfg := &BundlerConfig{Bundle: BundleConfig{OutFile: "bundle.html"}}
	assert.NoError(t, cfg.Validate())
}

func TestClone_DeepCopiesSlices(t *testing.T) {
	cfg := &BundlerConfig{Bundle: BundleConfig{
		InFiles:  []string{"index.html"},
		Exclude:  []string{"/vendor"},
		Redirect: []string{"/vendor|./node_modules/vendor"},
	}}
	clone := cfg.Clone()
	clone.Bundle.InFiles[0] = "mutated.html"
	clone.Bundle.Exclude[0] = "/other"

	assert.Equal(t, "index.html", cfg.Bundle.InFiles[0])
	assert.Equal(t, "/vendor", cfg.Bundle.Exclude[0])
	assert.Equal(t, "mutated.html", clone.Bundle.InFiles[0])
}

func TestClone_Nil(t *testing.T) {
	var cfg *BundlerConfig
	assert.Nil(t, cfg.Clone())
}
