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

// Package textutil prepares the message text for the webhook: it repairs
// broken encodings and converts text to and from the wire format.
package textutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrEncoding is returned when the text can't be decoded as UTF-8 or any
// of the supported Chinese encodings.
var ErrEncoding = errors.New("unable to decode text")

// FixEncoding repairs the text encoding on a best effort basis:
//
//   - valid UTF-8 is returned unchanged;
//   - GBK/GB18030 byte sequences are converted to UTF-8;
//   - anything else gets its invalid bytes replaced with U+FFFD.
func FixEncoding(s string) string {
	fixed, err := fixEncoding(s)
	if err != nil {
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return fixed
}

func fixEncoding(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	if utf8.ValidString(s) {
		return s, nil
	}
	return fromGB18030(s)
}

func fromGB18030(s string) (string, error) {
	out, err := simplifiedchinese.GB18030.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if strings.ContainsRune(out, utf8.RuneError) {
		return "", ErrEncoding
	}
	return out, nil
}

// Normalize prepares the content of the message of type msgType for
// sending.  It repairs the encoding, and for the markdown types converts
// CRLF line endings to LF.  It returns an error if the text can't be
// decoded.
func Normalize(s string, msgType string) (string, error) {
	fixed, err := fixEncoding(s)
	if err != nil {
		return "", err
	}
	switch msgType {
	case "markdown", "markdown_v2":
		fixed = strings.ReplaceAll(fixed, "\r\n", "\n")
	}
	return fixed, nil
}

// Encode returns s as a JSON string literal.  Non-ASCII characters and HTML
// special characters are kept as is.
func Encode(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// strings always encode.
		panic(err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Decode is the reverse of Encode.  Text that is not a quoted JSON string is
// returned unchanged.
func Decode(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s, nil
	}
	var out string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return out, nil
}
