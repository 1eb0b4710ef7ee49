// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"fmt"
	"strings"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/route"
)

const (
	DefaultOffRouteThreshold = 50.0 // meters from the nearest route vertex
	DefaultArrivalThreshold  = 30.0 // meters from the destination
)

// StepStrategy selects how the matched position is mapped onto the route steps.
type StepStrategy string

const (
	// StepStrategyDistance compares the distance travelled along the polyline with the
	// cumulative step distances.
	StepStrategyDistance StepStrategy = "distance"
	// StepStrategyProportional maps the vertex index fraction onto the step count.
	StepStrategyProportional StepStrategy = "proportional"
)

// ParseStepStrategy returns the StepStrategy for the given name.
func ParseStepStrategy(name string) (StepStrategy, error) {
	switch strategy := StepStrategy(strings.ToLower(strings.TrimSpace(name))); strategy {
	case StepStrategyDistance, StepStrategyProportional:
		return strategy, nil
	case "":
		return StepStrategyDistance, nil
	default:
		return "", fmt.Errorf("unsupported step strategy: %q", name)
	}
}

// Progress is the result of matching one fix onto a route.
type Progress struct {
	MatchedIndex          int
	DistanceToRoute       float64
	DistanceRemaining     float64
	TimeRemainingSeconds  float64
	DistanceToDestination float64
	OffRoute              bool
	Arrived               bool
	StepIndex             int
	StepAdvanced          bool
}

// Engine matches fixes onto a route. It holds no state and performs no I/O; the caller
// passes the prior step index and arrival flag.
type Engine struct {
	offRouteThreshold float64
	arrivalThreshold  float64
	strategy          StepStrategy
}

// NewEngine returns an Engine. Non-positive thresholds and an empty strategy select
// the defaults.
func NewEngine(offRouteThreshold, arrivalThreshold float64, strategy StepStrategy) *Engine {
	if offRouteThreshold <= 0 {
		offRouteThreshold = DefaultOffRouteThreshold
	}
	if arrivalThreshold <= 0 {
		arrivalThreshold = DefaultArrivalThreshold
	}
	if strategy == "" {
		strategy = StepStrategyDistance
	}
	return &Engine{
		offRouteThreshold: offRouteThreshold,
		arrivalThreshold:  arrivalThreshold,
		strategy:          strategy,
	}
}

// Match computes the progress of position along r. currentStep is never decreased and
// steps do not advance once arrived is set. Arrival is sticky.
func (e *Engine) Match(r *route.Route, destination geo.Coordinate, mode route.Mode, currentStep int,
	arrived bool, position geo.Coordinate,
) Progress {
	progress := Progress{
		MatchedIndex:          -1,
		StepIndex:             currentStep,
		DistanceToDestination: geo.HaversineMeters(position, destination),
	}
	progress.Arrived = arrived || progress.DistanceToDestination < e.arrivalThreshold
	if r == nil || len(r.Polyline) == 0 {
		return progress
	}

	idx := geo.NearestVertexIndex(r.Polyline, position)
	progress.MatchedIndex = idx
	progress.DistanceToRoute = geo.HaversineMeters(position, r.Polyline[idx])
	progress.OffRoute = progress.DistanceToRoute > e.offRouteThreshold
	progress.DistanceRemaining = geo.PolylineLength(r.Polyline, idx)
	progress.TimeRemainingSeconds = progress.DistanceRemaining / mode.Speed()

	if progress.Arrived || len(r.Steps) == 0 {
		return progress
	}
	target := e.targetStep(r, idx, progress.DistanceRemaining)
	if target > len(r.Steps)-1 {
		target = len(r.Steps) - 1
	}
	if target > currentStep {
		progress.StepIndex = target
		progress.StepAdvanced = true
	}
	return progress
}

func (e *Engine) targetStep(r *route.Route, idx int, remaining float64) int {
	if e.strategy == StepStrategyDistance {
		if target, ok := distanceStep(r, remaining); ok {
			return target
		}
	}
	return proportionalStep(len(r.Steps), len(r.Polyline), idx)
}

// proportionalStep maps the matched vertex index onto the step list by ratio.
func proportionalStep(steps, vertices, idx int) int {
	if vertices == 0 {
		return 0
	}
	return idx * steps / vertices
}

// distanceStep returns the index of the step whose cumulative distance range contains
// the distance travelled. Step distances are scaled to the polyline length so that both
// use the same measure. It reports false if the steps carry no distances.
func distanceStep(r *route.Route, remaining float64) (int, bool) {
	var stepTotal float64
	for _, step := range r.Steps {
		stepTotal += step.DistanceMeters
	}
	length := geo.PolylineLength(r.Polyline, 0)
	if stepTotal <= 0 || length <= 0 {
		return 0, false
	}

	travelled := length - remaining
	scale := length / stepTotal
	var boundary float64
	for i, step := range r.Steps {
		boundary += step.DistanceMeters * scale
		if travelled < boundary {
			return i, true
		}
	}
	return len(r.Steps) - 1, true
}
