// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package base

// StatusCode is the code returned to the OS.
//
//go:generate stringer -type StatusCode -trimprefix S
type StatusCode uint8

// Status codes returned by the main executable.
const (
	SNoError StatusCode = iota
	SGenericError
	SHelpRequested
	SInvalidParameters
	SInitializationError
	SConfigError
	SApplicationError
	SDeliveryError
	SUserError
)
