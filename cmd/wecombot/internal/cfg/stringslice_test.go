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

package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSlice_Set(t *testing.T) {
	tests := []struct {
		name string
		ss   *StringSlice
		args []string
		want StringSlice
	}{
		{
			name: "sets the string slice",
			ss:   new(StringSlice),
			args: []string{"alpha,bravo,charlie"},
			want: StringSlice{"alpha", "bravo", "charlie"},
		},
		{
			name: "accumulates and dedupes",
			ss:   new(StringSlice),
			args: []string{"alpha", "bravo, alpha", " charlie ,"},
			want: StringSlice{"alpha", "bravo", "charlie"},
		},
		{
			name: "empty",
			ss:   new(StringSlice),
			args: []string{""},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range tt.args {
				assert.NoError(t, tt.ss.Set(a))
			}
			assert.Equal(t, tt.want, *tt.ss)
		})
	}
}

func TestStringSlice_String(t *testing.T) {
	tests := []struct {
		name string
		ss   *StringSlice
		want string
	}{
		{"abc", &StringSlice{"alpha", "bravo", "charlie"}, "alpha,bravo,charlie"},
		{"empty", new(StringSlice), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ss.String())
		})
	}
}
