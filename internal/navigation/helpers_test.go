// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"io"
	"log/slog"
	"math"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/route"
)

var testOrigin = geo.Coordinate{Lat: 42.7600, Lng: 11.1100}

func north(c geo.Coordinate, meters float64) geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat + meters/geo.EarthRadius*180/math.Pi, Lng: c.Lng}
}

func east(c geo.Coordinate, meters float64) geo.Coordinate {
	return geo.Coordinate{
		Lat: c.Lat,
		Lng: c.Lng + meters/(geo.EarthRadius*math.Cos(c.Lat*math.Pi/180))*180/math.Pi,
	}
}

// straightRoute returns a route running north from start with a vertex every 10 m.
func straightRoute(start geo.Coordinate, length float64, steps ...route.Instruction) *route.Route {
	var polyline []geo.Coordinate
	for d := 0.0; d <= length; d += 10 {
		polyline = append(polyline, north(start, d))
	}
	var duration float64
	for _, step := range steps {
		duration += step.DurationSeconds
	}
	return &route.Route{
		Polyline:             polyline,
		Steps:                steps,
		TotalDistanceMeters:  length,
		TotalDurationSeconds: duration,
	}
}

// scenarioRoute is a 300 m route: depart 0-100 m, turn right 100-250 m, arrive 250-300 m.
func scenarioRoute(start geo.Coordinate) *route.Route {
	return straightRoute(start, 300,
		route.NewInstruction(instruction.TypeDepart, instruction.ModifierNone, "", 100, 71),
		route.NewInstruction(instruction.TypeTurn, instruction.ModifierRight, "", 150, 107),
		route.NewInstruction(instruction.TypeArrive, instruction.ModifierNone, "", 50, 36),
	)
}

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelDebug, io.Discard)
}
