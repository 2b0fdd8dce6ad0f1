// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package primitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIfTrue(t *testing.T) {
	assert.Equal(t, "yes", IfTrue(true, "yes", "no"))
	assert.Equal(t, 2, IfTrue(false, 1, 2))
}

func TestCompact(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"all empty", []string{"", "  "}, nil},
		{"dedupe and trim", []string{" alice", "bob", "alice ", "", "@all"}, []string{"alice", "bob", "@all"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compact(tt.in))
		})
	}
}
