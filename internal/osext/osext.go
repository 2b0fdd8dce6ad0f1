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

// Package osext provides some helpful os functions.
package osext

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"
)

// ErrNotAFile is returned when the path exists, but is not a regular file.
var ErrNotAFile = errors.New("not a file")

// RegularFile checks that the path exists and is a regular file, and returns
// its info.  If the path does not exist, the returned error satisfies
// errors.Is(err, fs.ErrNotExist).
func RegularFile(path string) (fs.FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, &Error{File: path, Err: ErrNotAFile}
	}
	return fi, nil
}

// IsURL reports whether s is an absolute http or https URL.
func IsURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

type Error struct {
	File string
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error() + ": " + e.File
}

func (e *Error) Unwrap() error {
	return e.Err
}
