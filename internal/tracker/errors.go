// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package tracker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied is reported when the position source refuses access.
	ErrPermissionDenied = errors.New("position permission denied")
	// ErrUnavailable is reported when the position source cannot deliver fixes.
	ErrUnavailable = errors.New("position unavailable")
	// ErrTimeout is reported when no fix arrived within the acquisition timeout.
	ErrTimeout = errors.New("position acquisition timed out")
)

// ErrorKind names the category of a tracker error.
type ErrorKind string

const (
	KindPermissionDenied ErrorKind = "permission_denied"
	KindUnavailable      ErrorKind = "unavailable"
	KindTimeout          ErrorKind = "timeout"
)

// ParseErrorKind returns the sentinel error for the given kind name.
func ParseErrorKind(kind string) (error, error) {
	switch ErrorKind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindPermissionDenied:
		return ErrPermissionDenied, nil
	case KindUnavailable:
		return ErrUnavailable, nil
	case KindTimeout:
		return ErrTimeout, nil
	default:
		return nil, fmt.Errorf("unknown position error kind: %q", kind)
	}
}

// Kind returns the category of err. Errors that do not wrap one of the tracker
// sentinels are reported as unavailable.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindUnavailable
	}
}
