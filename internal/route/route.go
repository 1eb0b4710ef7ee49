// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package route defines routes, their steps and the provider contract of the
// routing backends.
package route

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/instruction"
)

// ErrRouteUnavailable is returned when no route could be found or the routing service
// could not be reached.
var ErrRouteUnavailable = errors.New("route unavailable")

// Mode is the means of travel.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeCycling Mode = "cycling"
	ModeDriving Mode = "driving"
)

// Average speeds in meters per second used for time estimates.
const (
	SpeedWalking = 1.4
	SpeedCycling = 4.5
	SpeedDriving = 13.9
)

// ParseMode returns the Mode for the given name.
func ParseMode(name string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(name))); mode {
	case ModeWalking, ModeCycling, ModeDriving:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported travel mode: %q", name)
	}
}

// Speed returns the average speed of the mode in meters per second.
func (m Mode) Speed() float64 {
	switch m {
	case ModeCycling:
		return SpeedCycling
	case ModeDriving:
		return SpeedDriving
	default:
		return SpeedWalking
	}
}

// Instruction is a single routing step.
type Instruction struct {
	Text             string                   `json:"text"`
	DistanceMeters   float64                  `json:"distance_meters"`
	DurationSeconds  float64                  `json:"duration_seconds"`
	ManeuverType     instruction.ManeuverType `json:"maneuver_type"`
	ManeuverModifier instruction.Modifier     `json:"maneuver_modifier,omitempty"`
	StreetName       string                   `json:"street_name,omitempty"`
}

// NewInstruction creates an Instruction and derives its text from the maneuver.
func NewInstruction(maneuverType instruction.ManeuverType, modifier instruction.Modifier, street string,
	distance, duration float64,
) Instruction {
	return Instruction{
		Text:             instruction.Translate(maneuverType, modifier, street),
		DistanceMeters:   distance,
		DurationSeconds:  duration,
		ManeuverType:     maneuverType,
		ManeuverModifier: modifier,
		StreetName:       street,
	}
}

// Route is an immutable route geometry with its steps. Routes are shared read-only
// between the components of a session.
type Route struct {
	Polyline             []geo.Coordinate `json:"polyline"`
	Steps                []Instruction    `json:"steps"`
	TotalDistanceMeters  float64          `json:"total_distance_meters"`
	TotalDurationSeconds float64          `json:"total_duration_seconds"`
}

// Validate checks that a route can be navigated.
func (r *Route) Validate() error {
	if r == nil {
		return errors.New("route is nil")
	}
	if len(r.Polyline) == 0 {
		return errors.New("route has no geometry")
	}
	if len(r.Steps) == 0 {
		return errors.New("route has no steps")
	}
	return nil
}

// Provider is implemented by each routing backend.
type Provider interface {
	Name() string
	FetchRoute(ctx context.Context, origin, destination geo.Coordinate, mode Mode) (*Route, error)
}

// Unavailable wraps err so that it matches ErrRouteUnavailable as well as err itself.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrRouteUnavailable, err)
}
