// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"errors"

	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

var (
	// ErrClosed is returned by host actions on a closed session.
	ErrClosed = errors.New("navigation session is closed")
	// ErrInvalidState is returned when a host action is not possible in the current state.
	ErrInvalidState = errors.New("action not possible in the current navigation state")
	// ErrNoPosition is returned when a route is requested before the first fix.
	ErrNoPosition = errors.New("no position available")
)

// ErrorKind is the category of an error recorded in a session.
type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorGPSPermissionDenied ErrorKind = "gps_permission_denied"
	ErrorGPSUnavailable      ErrorKind = "gps_unavailable"
	ErrorGPSTimeout          ErrorKind = "gps_timeout"
	ErrorRouteUnavailable    ErrorKind = "route_unavailable"
	ErrorInternal            ErrorKind = "internal"
)

// KindOf returns the category of err. Errors outside the position and route
// categories are reported as ErrorInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, route.ErrRouteUnavailable):
		return ErrorRouteUnavailable
	case errors.Is(err, tracker.ErrPermissionDenied):
		return ErrorGPSPermissionDenied
	case errors.Is(err, tracker.ErrTimeout):
		return ErrorGPSTimeout
	case errors.Is(err, tracker.ErrUnavailable):
		return ErrorGPSUnavailable
	default:
		return ErrorInternal
	}
}
