// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

const (
	name        = "gpsd"
	DefaultHost = "localhost"
	DefaultPort = 2947

	fallbackAccuracy3DFix = 10 // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25

	// Below this speed (m/s) the reported track is noise.
	minHeadingSpeed = 0.5
)

// Source streams TPV reports of a gpsd daemon as position fixes.
type Source struct {
	addr string
	log  *logger.Logger
}

// New returns a gpsd source for the given host and port.
func New(host string, port int, log *logger.Logger) (*Source, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if host == "" {
		host = DefaultHost
	}
	if port <= 0 {
		port = DefaultPort
	}
	return &Source{addr: net.JoinHostPort(host, strconv.Itoa(port)), log: log}, nil
}

func (s *Source) Name() string {
	return name
}

// Stream connects to gpsd and emits a fix for every TPV report with at least a 2D fix.
// Connection failures are emitted as tracker.ErrUnavailable and close the stream.
func (s *Source) Stream(ctx context.Context) <-chan tracker.Reading {
	out := make(chan tracker.Reading)

	var mu sync.Mutex
	closed := false
	emit := func(reading tracker.Reading) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-ctx.Done():
		case out <- reading:
		}
	}
	finish := func() {
		mu.Lock()
		defer mu.Unlock()
		closed = true
		close(out)
	}

	go func() {
		defer finish()

		session, err := gpsd.Dial(s.addr)
		if err != nil {
			emit(tracker.Reading{Err: fmt.Errorf("%w: failed to connect to gpsd at %q: %w",
				tracker.ErrUnavailable, s.addr, err)})
			return
		}
		s.log.Debug("connected to gpsd", slog.String("address", s.addr))

		session.AddFilter("TPV", func(r interface{}) {
			tpv, ok := r.(*gpsd.TPVReport)
			if !ok {
				return
			}
			fix, ok := FixFromTPV(tpv)
			if !ok {
				return
			}
			emit(tracker.Reading{Fix: fix})
		})

		// The returned channel signals the end of the watch, e.g. on connection loss.
		done := session.Watch()
		select {
		case <-ctx.Done():
			// go-gpsd has no Close(); the connection is torn down with the process.
		case <-done:
			emit(tracker.Reading{Err: fmt.Errorf("%w: gpsd connection at %q lost", tracker.ErrUnavailable,
				s.addr)})
		}
	}()

	return out
}

// FixFromTPV converts a TPV report into a fix. Reports without at least a 2D fix are
// rejected.
func FixFromTPV(tpv *gpsd.TPVReport) (tracker.Fix, bool) {
	if tpv == nil || tpv.Mode < gpsd.Mode2D {
		return tracker.Fix{}, false
	}
	fix := tracker.Fix{
		Lat:      geo.Truncate(tpv.Lat, geo.TruncPrecision),
		Lng:      geo.Truncate(tpv.Lon, geo.TruncPrecision),
		Accuracy: horizontalAccuracy(tpv),
		At:       time.Now(),
	}
	if tpv.Speed >= minHeadingSpeed {
		fix.Heading.Set(math.Mod(tpv.Track, 360))
	}
	return fix, true
}

func horizontalAccuracy(tpv *gpsd.TPVReport) float64 {
	switch {
	case tpv.Epx > 0 && tpv.Epy > 0:
		return math.Hypot(tpv.Epx, tpv.Epy)
	case tpv.Mode >= gpsd.Mode3D:
		return fallbackAccuracy3DFix
	default:
		return fallbackAccuracy2DFix
	}
}
