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

package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError is returned when the HTTP exchange did not complete:
// connection refused, DNS failure, timeout and the like.
type TransportError struct {
	Op      string
	URL     string
	Err     error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newTransportError(op, u string, err error) *TransportError {
	var ne net.Error
	return &TransportError{
		Op:      op,
		URL:     Redact(u),
		Err:     err,
		Timeout: errors.As(err, &ne) && ne.Timeout(),
	}
}

// IsTransient reports whether the error is a transport timeout or a generic
// transport error that is worth retrying.  Cancelled calls are never
// transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransportError
	return errors.As(err, &te)
}

// StatusError is returned by Download if the server responds with anything
// but 200.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.URL, e.Code)
}
