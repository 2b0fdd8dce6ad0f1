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
	"errors"
	"os"
)

// TempFile is a temporary file that is removed when closed.
type TempFile struct {
	*os.File
}

// CreateTemp creates a new temporary file in the default temporary
// directory.  The caller must call Close to remove it.
func CreateTemp(pattern string) (*TempFile, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, err
	}
	return &TempFile{File: f}, nil
}

// Close closes and removes the file.  It is safe to call Close more than
// once.
func (t *TempFile) Close() error {
	cerr := t.File.Close()
	if err := os.Remove(t.Name()); err != nil && !os.IsNotExist(err) {
		return err
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return cerr
	}
	return nil
}
