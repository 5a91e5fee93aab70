// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nagolie Contributors

package errutil

import (
	"fmt"

	"github.com/samber/oops"
)

// Code returns the oops error code carried by err. oops reports the code of
// the deepest error in the chain, so wrapping never hides the original code.
func Code(err error) (string, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", false
	}
	code := oopsErr.Code()
	if code == nil {
		return "", false
	}
	if s, ok := code.(string); ok {
		return s, s != ""
	}
	return fmt.Sprint(code), true
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	got, ok := Code(err)
	return ok && got == code
}
