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

package wecombot

import (
	"errors"
	"fmt"
	"strings"
)

//go:generate stringer -type=ErrorCode -linecomment

// ErrorCode is the category of a failure, reported to the caller alongside
// the message.
type ErrorCode uint8

const (
	CodeUnknown    ErrorCode = iota // UNKNOWN
	CodeValidation                  // VALIDATION_ERROR
	CodeNetwork                     // NETWORK_ERROR
	CodeAPIFailure                  // API_FAILURE
	CodeFile                        // FILE_ERROR
)

// MarshalText implements encoding.TextMarshaler.
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ErrorCode) UnmarshalText(text []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(text)))
	for code := CodeUnknown; code <= CodeFile; code++ {
		if code.String() == s {
			*c = code
			return nil
		}
	}
	return fmt.Errorf("unknown error code: %q", text)
}

// Error is the error returned by every operation of the Sender.  It carries
// the code and the message that is shown to the caller, and, optionally,
// the underlying cause.
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

// Sentinel errors, one per code.  Use errors.Is to check the category of an
// error:
//
//	if errors.Is(err, wecombot.ErrNetwork) { ... }
var (
	ErrUnknown    = &Error{Code: CodeUnknown}
	ErrValidation = &Error{Code: CodeValidation}
	ErrNetwork    = &Error{Code: CodeNetwork}
	ErrAPIFailure = &Error{Code: CodeAPIFailure}
	ErrFile       = &Error{Code: CodeFile}
)

func (e *Error) Error() string {
	if e.Msg == "" {
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Code.String()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target is an *Error with the same code and, if the
// target has a message, the same message.  This makes the sentinels match
// any error of their category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Msg == "" || t.Msg == e.Msg
}

func newErr(code ErrorCode, cause error, format string, a ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, a...), Err: cause}
}

func errValidation(format string, a ...any) *Error {
	return newErr(CodeValidation, nil, format, a...)
}

func errFile(cause error, format string, a ...any) *Error {
	return newErr(CodeFile, cause, format, a...)
}

func errNetwork(cause error, format string, a ...any) *Error {
	return newErr(CodeNetwork, cause, format, a...)
}

func errAPI(format string, a ...any) *Error {
	return newErr(CodeAPIFailure, nil, format, a...)
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeUnknown, if there's none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// AsError converts any error to *Error.  Errors that are not *Error are
// wrapped with CodeUnknown.  Nil stays nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeUnknown, Msg: err.Error(), Err: err}
}
