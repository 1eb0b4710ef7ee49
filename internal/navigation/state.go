// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"time"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/vartype"
)

// State is the lifecycle state of a session.
type State string

const (
	StateInitializing  State = "INITIALIZING"
	StateAcquiringGPS  State = "ACQUIRING_GPS"
	StateGPSError      State = "GPS_ERROR"
	StateFetchingRoute State = "FETCHING_ROUTE"
	StateRouteError    State = "ROUTE_ERROR"
	StateNavigating    State = "NAVIGATING"
	StateOffRoute      State = "OFF_ROUTE"
	StateRecalculating State = "RECALCULATING"
	StateArrived       State = "ARRIVED"
	StateClosed        State = "CLOSED"
)

// Guiding reports whether the state has a route that is followed.
func (s State) Guiding() bool {
	switch s {
	case StateNavigating, StateOffRoute, StateRecalculating, StateArrived:
		return true
	default:
		return false
	}
}

// Snapshot is a copy of the session record, safe to read from any goroutine.
type Snapshot struct {
	ID              string         `json:"id"`
	State           State          `json:"state"`
	Destination     geo.Coordinate `json:"destination"`
	DestinationName string         `json:"destination_name,omitempty"`
	Mode            route.Mode     `json:"mode"`

	Route    *route.Route       `json:"route,omitempty"`
	Position *geo.Coordinate    `json:"position,omitempty"`
	Heading  vartype.VarFloat64 `json:"heading"`
	Accuracy float64            `json:"accuracy"`

	CurrentStepIndex       int            `json:"current_step_index"`
	CurrentInstruction     string         `json:"current_instruction,omitempty"`
	NextInstruction        string         `json:"next_instruction,omitempty"`
	LastAnnouncedStepIndex vartype.VarInt `json:"last_announced_step_index"`

	DistanceRemainingMeters     float64 `json:"distance_remaining_meters"`
	TimeRemainingSeconds        float64 `json:"time_remaining_seconds"`
	DistanceToDestinationMeters float64 `json:"distance_to_destination_meters"`
	DistanceToRouteMeters       float64 `json:"distance_to_route_meters"`

	OffRoute          bool `json:"off_route"`
	Arrived           bool `json:"arrived"`
	ArrivalAnnounced  bool `json:"-"`
	VoiceEnabled      bool `json:"voice_enabled"`
	RecalculationsRun int  `json:"recalculations"`

	LastError error     `json:"-"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	ErrorText string    `json:"error,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CanRecalculate reports whether the host may request a recalculation.
func (s Snapshot) CanRecalculate() bool {
	return s.State == StateNavigating || s.State == StateOffRoute
}

// CanRetry reports whether the host may retry after an error.
func (s Snapshot) CanRetry() bool {
	return s.State == StateGPSError || s.State == StateRouteError || s.State == StateOffRoute
}

func (s *Snapshot) setError(err error) {
	s.LastError = err
	s.ErrorKind = KindOf(err)
	s.ErrorText = ""
	if err != nil {
		s.ErrorText = err.Error()
	}
}

func (s *Snapshot) setStep(idx int) {
	s.CurrentStepIndex = idx
	s.CurrentInstruction, s.NextInstruction = "", ""
	if s.Route == nil || idx < 0 || idx >= len(s.Route.Steps) {
		return
	}
	s.CurrentInstruction = s.Route.Steps[idx].Text
	if idx+1 < len(s.Route.Steps) {
		s.NextInstruction = s.Route.Steps[idx+1].Text
	}
}
