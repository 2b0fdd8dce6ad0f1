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

package osext

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularFile(t *testing.T) {
	d := t.TempDir()
	file := filepath.Join(d, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("test"), 0o644))

	fi, err := RegularFile(file)
	require.NoError(t, err)
	assert.EqualValues(t, 4, fi.Size())

	_, err = RegularFile(d)
	assert.ErrorIs(t, err, ErrNotAFile)
	assert.Contains(t, err.Error(), d)

	_, err = RegularFile(filepath.Join(d, "missing"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"https://example.com/a.png", true},
		{"http://localhost:8080/x", true},
		{"ftp://example.com/a.png", false},
		{"/tmp/a.png", false},
		{"https://", false},
		{"C:\\images\\a.png", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsURL(tt.s), tt.s)
	}
}

func TestCreateTemp(t *testing.T) {
	tf, err := CreateTemp("osext-*")
	require.NoError(t, err)
	name := tf.Name()
	_, err = tf.WriteString("data")
	require.NoError(t, err)

	require.NoError(t, tf.Close())
	_, err = os.Stat(name)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.NoError(t, tf.Close(), "second close")
}
