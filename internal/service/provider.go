// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/geocode"
	"github.com/mercatocomunale/navigator/internal/geocode/provider/nominatim"
	"github.com/mercatocomunale/navigator/internal/geocode/provider/opencage"
	"github.com/mercatocomunale/navigator/internal/http"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/route/provider/googlemaps"
	"github.com/mercatocomunale/navigator/internal/route/provider/osrm"
	"github.com/mercatocomunale/navigator/internal/speech"
	"github.com/mercatocomunale/navigator/internal/speech/notify"
	"github.com/mercatocomunale/navigator/internal/speech/spdsay"
	"github.com/mercatocomunale/navigator/internal/tracker"
	"github.com/mercatocomunale/navigator/internal/tracker/source/gpsd"
	"github.com/mercatocomunale/navigator/internal/tracker/source/replay"
)

const (
	cacheMissTTL   = time.Minute * 10
	geocodeTimeout = time.Second * 10
)

// SelectRouteProvider returns the configured route provider.
func SelectRouteProvider(conf *config.Config, client *http.Client, log *logger.Logger) (route.Provider, error) {
	switch strings.ToLower(conf.Routing.Provider) {
	case "osrm":
		provider, err := osrm.New(client, log, conf.Routing.Endpoint, conf.Routing.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create OSRM route provider: %w", err)
		}
		return provider, nil
	case "google":
		provider, err := googlemaps.New(client, log, conf.Routing.APIKey, conf.Routing.Endpoint, conf.Routing.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Maps route provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported route provider: %s", conf.Routing.Provider)
	}
}

func selectPositionSource(conf *config.Config, log *logger.Logger) (tracker.Source, error) {
	switch strings.ToLower(conf.Position.Source) {
	case "gpsd":
		source, err := gpsd.New(conf.Position.GPSDHost, conf.Position.GPSDPort, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gpsd position source: %w", err)
		}
		return source, nil
	case "replay":
		source, err := replay.LoadFile(conf.Position.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create replay position source: %w", err)
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported position source: %s", conf.Position.Source)
	}
}

// selectSpeechSink falls back to a silent sink if the configured one cannot be set up,
// since guidance still works without voice.
func selectSpeechSink(conf *config.Config, log *logger.Logger) speech.Sink {
	switch strings.ToLower(conf.Speech.Sink) {
	case "spd-say":
		sink, err := spdsay.New(conf.Speech.Command, log)
		if err != nil {
			log.Error("failed to create speech-dispatcher sink", logger.Err(err))
			return speech.Discard{}
		}
		return sink
	case "notify":
		sink, err := notify.New(log)
		if err != nil {
			log.Error("failed to create notification sink", logger.Err(err))
			return speech.Discard{}
		}
		return sink
	default:
		return speech.Discard{}
	}
}

// selectGeocoder returns nil if geocoding is disabled.
func selectGeocoder(conf *config.Config, client *http.Client, lang language.Tag) (geocode.Geocoder, error) {
	if conf.Geocoder.Disable {
		return nil, nil
	}

	var coder geocode.Geocoder
	switch strings.ToLower(conf.Geocoder.Provider) {
	case "nominatim":
		coder = nominatim.New(client, lang, conf.Geocoder.Endpoint)
	case "opencage":
		if conf.Geocoder.APIKey == "" {
			return nil, fmt.Errorf("opencage geocoder requires an API key")
		}
		coder = opencage.New(client, lang, conf.Geocoder.APIKey)
	default:
		return nil, fmt.Errorf("unsupported geocode provider: %s", conf.Geocoder.Provider)
	}
	return geocode.NewCachedGeocoder(coder, conf.Geocoder.CacheTTL, cacheMissTTL), nil
}

// resolveDestination turns the configured destination into a coordinate and a label.
// Coordinates are used as given; anything else is looked up with the geocoder. A
// missing label is filled in by reverse geocoding, failures there are not fatal.
func (s *Service) resolveDestination(ctx context.Context) (geo.Coordinate, string, error) {
	input := strings.TrimSpace(s.config.Navigation.Destination)
	label := strings.TrimSpace(s.config.Navigation.DestinationName)
	if input == "" {
		return geo.Coordinate{}, "", errors.New("no destination configured")
	}

	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	dest, err := geo.ParseCoordinate(input)
	if err != nil {
		if s.geocoder == nil {
			return geo.Coordinate{}, "", fmt.Errorf("destination %q is not a coordinate and geocoding is disabled", input)
		}
		addr, err := s.geocoder.Search(ctx, input)
		if err != nil {
			return geo.Coordinate{}, "", fmt.Errorf("failed to geocode destination %q: %w", input, err)
		}
		s.logger.Debug("destination geocoded", slog.String("query", input),
			slog.String("display_name", addr.DisplayName), slog.Bool("cache_hit", addr.CacheHit))
		if label == "" {
			label = addr.Label()
		}
		return addr.Coordinate, label, nil
	}

	if label == "" && s.geocoder != nil {
		addr, err := s.geocoder.Reverse(ctx, dest)
		if err != nil {
			s.logger.Error("failed to reverse geocode destination", logger.Err(err),
				slog.String("destination", dest.String()))
		}
		label = addr.Label()
	}
	return dest, label, nil
}
