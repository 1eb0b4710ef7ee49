// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/geocode"
	"github.com/mercatocomunale/navigator/internal/http"
	"github.com/mercatocomunale/navigator/internal/i18n"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/navigation"
	"github.com/mercatocomunale/navigator/internal/presenter"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/speech"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

var (
	origin      = geo.Coordinate{Lat: 42.7576, Lng: 11.1121}
	destination = geo.Coordinate{Lat: 42.7603, Lng: 11.1121}
)

func TestNew(t *testing.T) {
	t.Run("new service succeeds", func(t *testing.T) {
		_, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
	})
	t.Run("invalid template configuration should fail", func(t *testing.T) {
		conf := testConfig(t)
		conf.Templates.Text = "{{.Icon"
		lang, err := i18n.New(conf.Locale)
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if _, err = New(conf, logger.NewLogger(slog.LevelError, io.Discard), lang); err == nil {
			t.Fatal("expected service creation to fail")
		}
	})
	t.Run("missing replay file should fail", func(t *testing.T) {
		conf := testConfig(t)
		conf.Position.Source = "replay"
		conf.Position.ReplayFile = "does-not-exist.yaml"
		lang, err := i18n.New(conf.Locale)
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if _, err = New(conf, logger.NewLogger(slog.LevelError, io.Discard), lang); err == nil {
			t.Fatal("expected service creation to fail")
		}
	})
	t.Run("nil logger fails", func(t *testing.T) {
		if _, err := testService(t, true); err == nil {
			t.Fatal("expected service creation without logger to fail")
		}
	})
}

func TestService_Run(t *testing.T) {
	t.Run("a fix starts guidance and the status is printed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		serv, positions := testRunService(t)
		buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
		serv.output = buf

		errCh := make(chan error, 1)
		go func() { errCh <- serv.Run(ctx) }()

		waitFor(t, "session to acquire GPS", func() bool {
			return positions.subscribed()
		})
		positions.fix(origin)
		waitFor(t, "navigating status output", func() bool {
			return strings.Contains(buf.String(), `"class":"navigating"`)
		})

		var out presenter.Output
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if err := json.Unmarshal([]byte(lines[len(lines)-1]), &out); err != nil {
			t.Fatalf("failed to decode status output: %s", err)
		}
		if !strings.Contains(out.Tooltip, "Mercato Comunale") {
			t.Errorf("expected tooltip to contain the destination label, got %q", out.Tooltip)
		}

		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("failed to run service: %s", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("service did not shut down")
		}
		if !positions.unsubscribedAll() {
			t.Error("expected position subscription to be cancelled on shutdown")
		}
	})
	t.Run("running without destination fails", func(t *testing.T) {
		serv, _ := testRunService(t)
		serv.config.Navigation.Destination = ""
		if err := serv.Run(t.Context()); err == nil {
			t.Fatal("expected service run to fail")
		}
	})
}

func TestService_printStatus(t *testing.T) {
	t.Run("nothing is printed without a session", func(t *testing.T) {
		serv, _ := testRunService(t)
		buf := bytes.NewBuffer(nil)
		serv.output = buf
		serv.printStatus(t.Context())
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})
	t.Run("output is empty on failing writer", func(t *testing.T) {
		serv, _ := testRunService(t)
		logBuf := &syncBuffer{buf: bytes.NewBuffer(nil)}
		serv.logger = logger.NewLogger(slog.LevelError, logBuf)
		serv.output = failWriter{}
		testSession(t, serv)

		serv.printStatus(t.Context())
		if !strings.Contains(logBuf.String(), "failed to encode status output") {
			t.Errorf("expected encoding error to be logged, got %q", logBuf.String())
		}
	})
	t.Run("waiting sessions print their state", func(t *testing.T) {
		serv, _ := testRunService(t)
		buf := bytes.NewBuffer(nil)
		serv.output = buf
		testSession(t, serv)

		serv.printStatus(t.Context())
		if !strings.Contains(buf.String(), `"class":"acquiring"`) {
			t.Errorf("expected acquiring output, got %q", buf.String())
		}
	})
}

func TestService_onResume(t *testing.T) {
	t.Run("gps errors are retried after resume", func(t *testing.T) {
		serv, positions := testRunService(t)
		serv.output = io.Discard
		session := testSession(t, serv)
		positions.fail(tracker.ErrUnavailable)
		waitFor(t, "GPS error state", func() bool {
			return session.Snapshot().State == navigation.StateGPSError
		})

		var lastResume atomic.Int64
		serv.onResume(t.Context(), &lastResume, 0)
		if got := positions.subscriptionCount(); got != 2 {
			t.Errorf("expected position resubscription, got %d subscriptions", got)
		}
		if session.Snapshot().State != navigation.StateAcquiringGPS {
			t.Errorf("expected state %s, got %s", navigation.StateAcquiringGPS, session.Snapshot().State)
		}
		if lastResume.Load() == 0 {
			t.Error("expected resume time to be recorded")
		}
	})
	t.Run("repeated resume events are debounced", func(t *testing.T) {
		serv, positions := testRunService(t)
		serv.output = io.Discard
		session := testSession(t, serv)
		positions.fail(tracker.ErrUnavailable)
		waitFor(t, "GPS error state", func() bool {
			return session.Snapshot().State == navigation.StateGPSError
		})

		var lastResume atomic.Int64
		lastResume.Store(time.Now().UnixNano())
		serv.onResume(t.Context(), &lastResume, 0)
		if got := positions.subscriptionCount(); got != 1 {
			t.Errorf("expected no resubscription, got %d subscriptions", got)
		}
	})
	t.Run("healthy sessions are left alone", func(t *testing.T) {
		serv, positions := testRunService(t)
		buf := bytes.NewBuffer(nil)
		serv.output = buf
		testSession(t, serv)

		var lastResume atomic.Int64
		serv.onResume(t.Context(), &lastResume, 0)
		if got := positions.subscriptionCount(); got != 1 {
			t.Errorf("expected no resubscription, got %d subscriptions", got)
		}
		if buf.Len() == 0 {
			t.Error("expected status to be printed after resume")
		}
	})
}

func TestIsResumeSignal(t *testing.T) {
	tests := []struct {
		name string
		sgn  *dbus.Signal
		want bool
	}{
		{"resume", &dbus.Signal{Body: []any{false}}, true},
		{"suspend", &dbus.Signal{Body: []any{true}}, false},
		{"wrong type", &dbus.Signal{Body: []any{"false"}}, false},
		{"empty body", &dbus.Signal{}, false},
		{"nil signal", nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isResumeSignal(tc.sgn); got != tc.want {
				t.Errorf("expected %t, got %t", tc.want, got)
			}
		})
	}
}

func TestService_handleVoiceToggleSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	serv, _ := testRunService(t)
	serv.output = io.Discard
	signals := &fakeSignalSource{}
	serv.signals = signals
	session := testSession(t, serv)

	done := make(chan struct{})
	go func() {
		defer close(done)
		serv.handleVoiceToggleSignals(ctx)
	}()
	waitFor(t, "signal registration", func() bool {
		return signals.channel() != nil
	})

	signals.channel() <- syscall.SIGUSR1
	waitFor(t, "voice to be disabled", func() bool {
		return !session.Snapshot().VoiceEnabled
	})
	signals.channel() <- syscall.SIGUSR1
	waitFor(t, "voice to be enabled", func() bool {
		return session.Snapshot().VoiceEnabled
	})

	cancel()
	<-done
	if !signals.isStopped() {
		t.Error("expected signal notifications to be stopped")
	}
}

func TestSelectRouteProvider(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		apiKey     string
		wantName   string
		shouldFail bool
	}{
		{"osrm", "osrm", "", "osrm", false},
		{"google", "google", "api-key", "googlemaps", false},
		{"google without API key", "google", "", "", true},
		{"unsupported", "here", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig(t)
			conf.Routing.Provider = tc.provider
			conf.Routing.APIKey = tc.apiKey
			log := logger.NewLogger(slog.LevelError, io.Discard)

			provider, err := SelectRouteProvider(conf, http.New(log), log)
			if tc.shouldFail {
				if err == nil {
					t.Fatal("expected provider selection to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to select route provider: %s", err)
			}
			if provider.Name() != tc.wantName {
				t.Errorf("expected provider %q, got %q", tc.wantName, provider.Name())
			}
		})
	}
}

func TestSelectPositionSource(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		file       string
		wantName   string
		shouldFail bool
	}{
		{"gpsd", "gpsd", "", "gpsd", false},
		{"replay", "replay", "../../testdata/track.yaml", "replay", false},
		{"replay with missing file", "replay", "missing.yaml", "", true},
		{"unsupported", "geoclue", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig(t)
			conf.Position.Source = tc.source
			conf.Position.ReplayFile = tc.file

			source, err := selectPositionSource(conf, logger.NewLogger(slog.LevelError, io.Discard))
			if tc.shouldFail {
				if err == nil {
					t.Fatal("expected source selection to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to select position source: %s", err)
			}
			if source.Name() != tc.wantName {
				t.Errorf("expected source %q, got %q", tc.wantName, source.Name())
			}
		})
	}
}

func TestSelectSpeechSink(t *testing.T) {
	tests := []struct {
		sink     string
		wantName string
	}{
		{"none", "none"},
		{"spd-say", "spd-say"},
		{"unknown", "none"},
	}
	for _, tc := range tests {
		t.Run(tc.sink, func(t *testing.T) {
			conf := testConfig(t)
			conf.Speech.Sink = tc.sink
			sink := selectSpeechSink(conf, logger.NewLogger(slog.LevelError, io.Discard))
			if sink.Name() != tc.wantName {
				t.Errorf("expected sink %q, got %q", tc.wantName, sink.Name())
			}
		})
	}
}

func TestSelectGeocoder(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		apiKey     string
		disable    bool
		wantName   string
		shouldFail bool
	}{
		{"nominatim", "nominatim", "", false, "geocoder cache using nominatim", false},
		{"opencage", "opencage", "api-key", false, "geocoder cache using opencage", false},
		{"opencage without API key", "opencage", "", false, "", true},
		{"unsupported", "photon", "", false, "", true},
		{"disabled", "nominatim", "", true, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig(t)
			conf.Geocoder.Provider = tc.provider
			conf.Geocoder.APIKey = tc.apiKey
			conf.Geocoder.Disable = tc.disable
			log := logger.NewLogger(slog.LevelError, io.Discard)

			coder, err := selectGeocoder(conf, http.New(log), i18n.Tag("it"))
			if tc.shouldFail {
				if err == nil {
					t.Fatal("expected geocoder selection to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to select geocoder: %s", err)
			}
			if tc.disable {
				if coder != nil {
					t.Errorf("expected no geocoder, got %q", coder.Name())
				}
				return
			}
			if coder.Name() != tc.wantName {
				t.Errorf("expected geocoder %q, got %q", tc.wantName, coder.Name())
			}
		})
	}
}

func TestService_resolveDestination(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		label       string
		geocoder    geocode.Geocoder
		want        geo.Coordinate
		wantLabel   string
		shouldFail  bool
	}{
		{"coordinate with name", "42.7603,11.1121", "Mercato Comunale", nil, destination, "Mercato Comunale", false},
		{"coordinate without geocoder", "42.7603,11.1121", "", nil, destination, "", false},
		{"coordinate is reverse geocoded", "42.7603,11.1121", "", &mockGeocoder{}, destination, "Piazza del Mercato", false},
		{"failed reverse geocoding keeps the coordinate", "42.7603,11.1121", "", &mockGeocoder{shouldFail: true}, destination, "", false},
		{"address is searched", "Piazza del Mercato, Grosseto", "", &mockGeocoder{}, destination, "Piazza del Mercato", false},
		{"address keeps the configured name", "Piazza del Mercato", "Mercato", &mockGeocoder{}, destination, "Mercato", false},
		{"address without geocoder", "Piazza del Mercato", "", nil, geo.Coordinate{}, "", true},
		{"address not found", "Piazza del Mercato", "", &mockGeocoder{shouldFail: true}, geo.Coordinate{}, "", true},
		{"empty destination", "", "", &mockGeocoder{}, geo.Coordinate{}, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			serv, _ := testRunService(t)
			serv.config.Navigation.Destination = tc.destination
			serv.config.Navigation.DestinationName = tc.label
			serv.geocoder = tc.geocoder

			got, label, err := serv.resolveDestination(t.Context())
			if tc.shouldFail {
				if err == nil {
					t.Fatal("expected destination resolution to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to resolve destination: %s", err)
			}
			if got != tc.want {
				t.Errorf("expected destination %s, got %s", tc.want, got)
			}
			if label != tc.wantLabel {
				t.Errorf("expected label %q, got %q", tc.wantLabel, label)
			}
		})
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	conf.Locale = "it-IT"
	conf.Speech.Sink = "none"
	conf.Navigation.Destination = "42.7603,11.1121"
	conf.Navigation.DestinationName = "Mercato Comunale"
	return conf
}

func testService(t *testing.T, nilLogger bool) (*Service, error) {
	conf := testConfig(t)

	var log *logger.Logger
	if !nilLogger {
		log = logger.NewLogger(conf.LogLevel, io.Discard)
	}

	lang, err := i18n.New(conf.Locale)
	if err != nil {
		return nil, err
	}
	return New(conf, log, lang)
}

// testRunService returns a service with fake position and route collaborators.
func testRunService(t *testing.T) (*Service, *fakeTracker) {
	t.Helper()
	serv, err := testService(t, false)
	if err != nil {
		t.Fatalf("failed to create service: %s", err)
	}
	positions := &fakeTracker{}
	serv.tracker = positions
	serv.provider = &fakeProvider{}
	serv.geocoder = nil
	serv.signals = &fakeSignalSource{}
	serv.sink = speech.Discard{}
	return serv, positions
}

// testSession creates and starts a session outside of Run.
func testSession(t *testing.T, serv *Service) *navigation.Session {
	t.Helper()
	session, err := serv.createSession(t.Context())
	if err != nil {
		t.Fatalf("failed to create session: %s", err)
	}
	t.Cleanup(session.Close)
	serv.sessionLock.Lock()
	serv.session = session
	serv.sessionLock.Unlock()
	session.Start()
	return session
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type (
	failWriter   struct{}
	mockGeocoder struct{ shouldFail bool }
	fakeProvider struct{}
	fakeTracker  struct {
		mu            sync.Mutex
		onFix         func(tracker.Fix)
		onError       func(error)
		subscriptions int
		unsubscribed  int
	}
	fakeSignalSource struct {
		mu      sync.Mutex
		ch      chan<- os.Signal
		stopped bool
	}
	syncBuffer struct {
		mu  sync.Mutex
		buf *bytes.Buffer
	}
)

func (f failWriter) Write([]byte) (int, error) { return 0, fmt.Errorf("failed to write") }

func (m *mockGeocoder) Name() string {
	return "mock geocoder"
}

func (m *mockGeocoder) Reverse(_ context.Context, coords geo.Coordinate) (geocode.Address, error) {
	if m.shouldFail {
		return geocode.Address{}, errors.New("intentionally failing")
	}
	return geocode.Address{
		AddressFound: true,
		Coordinate:   coords,
		Name:         "Piazza del Mercato",
		DisplayName:  "Piazza del Mercato, Grosseto",
	}, nil
}

func (m *mockGeocoder) Search(_ context.Context, query string) (geocode.Address, error) {
	if m.shouldFail {
		return geocode.Address{}, fmt.Errorf("%w: %s", geocode.ErrNotFound, query)
	}
	return geocode.Address{
		AddressFound: true,
		Coordinate:   destination,
		Name:         "Piazza del Mercato",
		DisplayName:  "Piazza del Mercato, Grosseto",
	}, nil
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchRoute(_ context.Context, from, to geo.Coordinate, _ route.Mode) (*route.Route, error) {
	return &route.Route{
		Polyline: []geo.Coordinate{from, to},
		Steps: []route.Instruction{
			route.NewInstruction(instruction.TypeDepart, instruction.ModifierNone, "", 300, 214),
			route.NewInstruction(instruction.TypeArrive, instruction.ModifierNone, "", 0, 0),
		},
		TotalDistanceMeters:  300,
		TotalDurationSeconds: 214,
	}, nil
}

func (f *fakeTracker) Subscribe(onFix func(tracker.Fix), onError func(error)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFix, f.onError = onFix, onError
	f.subscriptions++
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.unsubscribed++
			f.mu.Unlock()
		})
	}
}

func (f *fakeTracker) fix(position geo.Coordinate) {
	f.mu.Lock()
	onFix := f.onFix
	f.mu.Unlock()
	onFix(tracker.Fix{Lat: position.Lat, Lng: position.Lng, Accuracy: 5})
}

func (f *fakeTracker) fail(err error) {
	f.mu.Lock()
	onError := f.onError
	f.mu.Unlock()
	onError(err)
}

func (f *fakeTracker) subscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onFix != nil
}

func (f *fakeTracker) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscriptions
}

func (f *fakeTracker) unsubscribedAll() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscriptions > 0 && f.unsubscribed == f.subscriptions
}

func (f *fakeSignalSource) Notify(c chan<- os.Signal, _ ...os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = c
}

func (f *fakeSignalSource) Stop(chan<- os.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeSignalSource) channel() chan<- os.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch
}

func (f *fakeSignalSource) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
