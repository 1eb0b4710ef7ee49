// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package osrm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/http"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/route"
)

const (
	name            = "osrm"
	DefaultEndpoint = "https://router.project-osrm.org"
	DefaultTimeout  = time.Second * 10
	codeOK          = "Ok"
)

// profiles maps travel modes to the OSRM profile vocabulary.
var profiles = map[route.Mode]string{
	route.ModeWalking: "foot",
	route.ModeCycling: "bike",
	route.ModeDriving: "car",
}

type OSRM struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	log      *logger.Logger
}

type response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
				Name     string  `json:"name"`
				Maneuver struct {
					Type     string `json:"type"`
					Modifier string `json:"modifier"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

func New(client *http.Client, log *logger.Logger, endpoint string, timeout time.Duration) (*OSRM, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OSRM{
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		http:     client,
		log:      log,
	}, nil
}

func (o *OSRM) Name() string {
	return name
}

// Profile returns the OSRM profile for the given travel mode.
func Profile(mode route.Mode) (string, error) {
	profile, ok := profiles[mode]
	if !ok {
		return "", fmt.Errorf("unsupported travel mode: %q", mode)
	}
	return profile, nil
}

// FetchRoute requests a route with full geometry and per-step maneuvers. Every failure is
// reported as route.ErrRouteUnavailable.
func (o *OSRM) FetchRoute(ctx context.Context, origin, destination geo.Coordinate, mode route.Mode) (*route.Route, error) {
	profile, err := Profile(mode)
	if err != nil {
		return nil, route.Unavailable(err)
	}

	// route/v1/foot/11.110000,42.760000;11.112000,42.762000?overview=full&geometries=geojson&steps=true
	endpoint := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f", o.endpoint, profile,
		origin.Lng, origin.Lat, destination.Lng, destination.Lat)
	query := url.Values{}
	query.Set("overview", "full")
	query.Set("geometries", "geojson")
	query.Set("steps", "true")

	res := new(response)
	code, err := o.http.GetWithTimeout(ctx, endpoint, res, query, nil, o.timeout)
	if err != nil {
		return nil, route.Unavailable(fmt.Errorf("failed to retrieve route from OSRM API: %w", err))
	}
	if res.Code != codeOK {
		return nil, route.Unavailable(fmt.Errorf("OSRM API returned code %q (HTTP %d): %s", res.Code, code,
			res.Message))
	}

	result, err := convert(res)
	if err != nil {
		return nil, route.Unavailable(err)
	}
	o.log.Debug("route fetched", slog.String("provider", name), slog.String("profile", profile),
		slog.Int("vertices", len(result.Polyline)), slog.Int("steps", len(result.Steps)),
		slog.Float64("distance", result.TotalDistanceMeters))
	return result, nil
}

// convert builds a route from the first OSRM route, swapping the [lng, lat] ordering of
// the GeoJSON geometry.
func convert(res *response) (*route.Route, error) {
	if len(res.Routes) == 0 {
		return nil, errors.New("OSRM API returned no routes")
	}
	first := res.Routes[0]

	polyline := make([]geo.Coordinate, 0, len(first.Geometry.Coordinates))
	for i, pair := range first.Geometry.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("invalid coordinate at geometry index %d", i)
		}
		polyline = append(polyline, geo.Coordinate{Lat: pair[1], Lng: pair[0]})
	}

	var steps []route.Instruction
	if len(first.Legs) > 0 {
		for _, step := range first.Legs[0].Steps {
			steps = append(steps, route.NewInstruction(instruction.ManeuverType(step.Maneuver.Type),
				instruction.Modifier(step.Maneuver.Modifier), step.Name, step.Distance, step.Duration))
		}
	}

	result := &route.Route{
		Polyline:             polyline,
		Steps:                steps,
		TotalDistanceMeters:  first.Distance,
		TotalDurationSeconds: first.Duration,
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}
