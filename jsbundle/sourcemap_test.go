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
package jsbundle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachSourceMap_AppendsInlineMappingComment(t *testing.T) {
	source := `console.log("hi");`
	out := AttachSourceMap(source, "/app.js")
	assert.True(t, strings.Contains(out, `console.log("hi")`))
	assert.Contains(t, out, "//# sourceMappingURL=data:application/json;base64,")
}

func TestAttachSourceMap_InvalidSyntaxReturnsOriginal(t *testing.T) {
	source := `const = ;`
	out := AttachSourceMap(source, "/broken.js")
	assert.Equal(t, source, out)
}
