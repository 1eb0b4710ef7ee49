// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/http"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/route"
)

const (
	name           = "googlemaps"
	DefaultTimeout = time.Second * 10

	// Instructions are requested in English so that maneuvers can be derived from them.
	instructionLanguage = "en"
)

var travelModes = map[route.Mode]maps.Mode{
	route.ModeWalking: maps.TravelModeWalking,
	route.ModeCycling: maps.TravelModeBicycling,
	route.ModeDriving: maps.TravelModeDriving,
}

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	divPattern    = regexp.MustCompile(`(?s)<div[^>]*>.*?</div>`)
	streetPattern = regexp.MustCompile(`(?i)\b(?:onto|on)\s+<b>([^<]+)</b>`)
)

// modifierWords is ordered so that compound modifiers match before plain directions.
var modifierWords = []struct {
	word     string
	modifier instruction.Modifier
}{
	{"u-turn", instruction.ModifierUTurn},
	{"sharp left", instruction.ModifierSharpLeft},
	{"sharp right", instruction.ModifierSharpRight},
	{"slight left", instruction.ModifierSlightLeft},
	{"slight right", instruction.ModifierSlightRight},
	{"left", instruction.ModifierLeft},
	{"right", instruction.ModifierRight},
	{"straight", instruction.ModifierStraight},
}

type GoogleMaps struct {
	client  *maps.Client
	timeout time.Duration
	log     *logger.Logger
}

// New returns a Google Directions backed provider. The given HTTP client is used for
// the API requests. An empty baseURL selects the public Google endpoint.
func New(client *http.Client, log *logger.Logger, apiKey, baseURL string, timeout time.Duration) (*GoogleMaps, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	options := []maps.ClientOption{maps.WithAPIKey(apiKey), maps.WithHTTPClient(client.Client)}
	if baseURL != "" {
		options = append(options, maps.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	mapsClient, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMaps{
		client:  mapsClient,
		timeout: timeout,
		log:     log,
	}, nil
}

func (g *GoogleMaps) Name() string {
	return name
}

// FetchRoute requests directions between origin and destination. Every failure is
// reported as route.ErrRouteUnavailable.
func (g *GoogleMaps) FetchRoute(ctx context.Context, origin, destination geo.Coordinate, mode route.Mode) (*route.Route, error) {
	travelMode, ok := travelModes[mode]
	if !ok {
		return nil, route.Unavailable(fmt.Errorf("unsupported travel mode: %q", mode))
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	request := &maps.DirectionsRequest{
		Origin:      origin.String(),
		Destination: destination.String(),
		Mode:        travelMode,
		Language:    instructionLanguage,
		Units:       maps.UnitsMetric,
	}
	routes, _, err := g.client.Directions(ctx, request)
	if err != nil {
		return nil, route.Unavailable(fmt.Errorf("failed to retrieve directions from Google Maps API: %w", err))
	}
	if len(routes) == 0 {
		return nil, route.Unavailable(errors.New("Google Maps API returned no routes"))
	}

	result, err := convert(routes[0])
	if err != nil {
		return nil, route.Unavailable(err)
	}
	g.log.Debug("route fetched", slog.String("provider", name), slog.String("mode", string(travelMode)),
		slog.Int("vertices", len(result.Polyline)), slog.Int("steps", len(result.Steps)),
		slog.Float64("distance", result.TotalDistanceMeters))
	return result, nil
}

func convert(directions maps.Route) (*route.Route, error) {
	points, err := directions.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode overview polyline: %w", err)
	}
	polyline := make([]geo.Coordinate, 0, len(points))
	for _, point := range points {
		polyline = append(polyline, geo.Coordinate{Lat: point.Lat, Lng: point.Lng})
	}

	result := &route.Route{Polyline: polyline}
	for _, leg := range directions.Legs {
		if leg == nil {
			continue
		}
		result.TotalDistanceMeters += float64(leg.Meters)
		result.TotalDurationSeconds += leg.Duration.Seconds()
		for _, step := range leg.Steps {
			if step == nil {
				continue
			}
			maneuverType, modifier := Maneuver(step.HTMLInstructions, len(result.Steps) == 0)
			result.Steps = append(result.Steps, route.NewInstruction(maneuverType, modifier,
				Street(step.HTMLInstructions), float64(step.Meters), step.Duration.Seconds()))
		}
	}
	if len(result.Steps) > 0 {
		result.Steps = append(result.Steps, route.NewInstruction(instruction.TypeArrive,
			instruction.ModifierNone, "", 0, 0))
	}

	if err = result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// Maneuver derives the maneuver of a step from its English HTML instruction.
func Maneuver(html string, first bool) (instruction.ManeuverType, instruction.Modifier) {
	text := strings.ToLower(PlainText(html))
	modifier := instruction.ModifierNone
	for _, candidate := range modifierWords {
		if strings.Contains(text, candidate.word) {
			modifier = candidate.modifier
			break
		}
	}

	switch {
	case first || strings.HasPrefix(text, "head"):
		return instruction.TypeDepart, instruction.ModifierNone
	case strings.Contains(text, "u-turn"):
		return instruction.TypeTurn, instruction.ModifierUTurn
	case strings.Contains(text, "roundabout"):
		if strings.Contains(text, "exit the roundabout") {
			return instruction.TypeExitRoundabout, modifier
		}
		return instruction.TypeRoundabout, modifier
	case strings.Contains(text, "merge"):
		return instruction.TypeMerge, modifier
	case strings.Contains(text, "take the ramp"):
		return instruction.TypeOnRamp, modifier
	case strings.Contains(text, "take exit") || strings.Contains(text, "take the exit"):
		return instruction.TypeOffRamp, modifier
	case strings.HasPrefix(text, "keep") || strings.Contains(text, "fork"):
		return instruction.TypeFork, modifier
	case strings.HasPrefix(text, "turn") || strings.HasPrefix(text, "slight") ||
		strings.HasPrefix(text, "sharp"):
		return instruction.TypeTurn, modifier
	case strings.HasPrefix(text, "continue"):
		return instruction.TypeContinue, instruction.ModifierStraight
	default:
		return instruction.TypeContinue, modifier
	}
}

// Street returns the street name a step leads onto, or an empty string.
func Street(html string) string {
	match := streetPattern.FindStringSubmatch(divPattern.ReplaceAllString(html, ""))
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// PlainText strips the HTML markup and the trailing hint blocks of an instruction.
func PlainText(html string) string {
	text := divPattern.ReplaceAllString(html, "")
	return strings.Join(strings.Fields(tagPattern.ReplaceAllString(text, "")), " ")
}
