// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package navigation implements turn-by-turn guidance: matching fixes onto a route,
// step progress, off-route recalculation and the session state machine.
package navigation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

const (
	DefaultSpeechLocale = "it-IT"
	DefaultSpeechRate   = 0.9
	inboxSize           = 64
)

// PositionTracker is the subscription contract of the position source.
type PositionTracker interface {
	Subscribe(onFix func(tracker.Fix), onError func(error)) (unsubscribe func())
}

// Config describes a navigation request.
type Config struct {
	ID              string
	Destination     geo.Coordinate
	DestinationName string
	Mode            route.Mode
	VoiceEnabled    bool
	SpeechLocale    string
	SpeechRate      float64
}

// Session guides towards one destination. All state is owned by a single goroutine;
// fixes, route results and host commands are serialized through its inbox.
type Session struct {
	cfg       Config
	engine    *Engine
	provider  route.Provider
	positions PositionTracker
	log       *logger.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	inbox     chan any
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once

	snapMu sync.RWMutex
	snap   Snapshot

	listenerMu sync.RWMutex
	listeners  []Listener

	// Owned by the session goroutine.
	rec         Snapshot
	recalc      recalculator
	unsubscribe func()
	subGen      uint64
}

type fixMessage struct {
	gen uint64
	fix tracker.Fix
}

type gpsErrorMessage struct {
	gen uint64
	err error
}

type routeMessage struct {
	gen    uint64
	origin geo.Coordinate
	route  *route.Route
	err    error
}

type commandKind int

const (
	commandRecalculate commandKind = iota
	commandRetryGPS
	commandRetryRoute
	commandVoice
)

type commandMessage struct {
	kind  commandKind
	voice bool
	reply chan error
}

// New returns a session in state INITIALIZING. Call Start to begin guidance.
func New(cfg Config, engine *Engine, provider route.Provider, positions PositionTracker,
	log *logger.Logger,
) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("route provider is required")
	}
	if positions == nil {
		return nil, fmt.Errorf("position tracker is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if !cfg.Destination.Valid() {
		return nil, fmt.Errorf("invalid destination: %s", cfg.Destination)
	}
	if cfg.Mode == "" {
		cfg.Mode = route.ModeWalking
	}
	if _, err := route.ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.SpeechLocale == "" {
		cfg.SpeechLocale = DefaultSpeechLocale
	}
	if cfg.SpeechRate <= 0 {
		cfg.SpeechRate = DefaultSpeechRate
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:       cfg,
		engine:    engine,
		provider:  provider,
		positions: positions,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan any, inboxSize),
		done:      make(chan struct{}),
	}
	s.rec = Snapshot{
		ID:              cfg.ID,
		State:           StateInitializing,
		Destination:     cfg.Destination,
		DestinationName: cfg.DestinationName,
		Mode:            cfg.Mode,
		VoiceEnabled:    cfg.VoiceEnabled,
		UpdatedAt:       time.Now(),
	}
	s.snap = s.rec
	return s, nil
}

// AddListener registers a listener for session events.
func (s *Session) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, listener)
	s.listenerMu.Unlock()
}

// Start centers the map on the destination, subscribes to positions and starts the
// session goroutine. Further calls have no effect.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		if s.ctx.Err() != nil {
			close(s.done)
			return
		}
		s.emit(Event{Kind: EventCenter, Position: s.cfg.Destination})
		s.subscribe()
		s.setState(StateAcquiringGPS)
		s.publish()
		go s.run()
	})
}

// Snapshot returns a copy of the current session record.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.cfg.ID
}

// Recalculate requests a new route from the current position. It is a no-op while a
// request is outstanding.
func (s *Session) Recalculate() error {
	return s.command(commandMessage{kind: commandRecalculate})
}

// RetryGPS re-subscribes to the position source after a position error.
func (s *Session) RetryGPS() error {
	return s.command(commandMessage{kind: commandRetryGPS})
}

// RetryRoute repeats a failed route request.
func (s *Session) RetryRoute() error {
	return s.command(commandMessage{kind: commandRetryRoute})
}

// SetVoiceEnabled toggles spoken announcements. It does not wait for the session
// goroutine and may be called from listeners.
func (s *Session) SetVoiceEnabled(enabled bool) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	s.post(commandMessage{kind: commandVoice, voice: enabled})
	return nil
}

// Close ends the session: the position subscription is cancelled and outstanding route
// results are discarded. Close must not be called from a listener.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		started := true
		s.startOnce.Do(func() { started = false })
		if started {
			<-s.done
		} else {
			close(s.done)
		}
		s.shutdown()
	})
}

// Done is closed when the session goroutine has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) command(msg commandMessage) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	msg.reply = make(chan error, 1)
	s.post(msg)
	select {
	case err := <-msg.reply:
		return err
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// post delivers msg to the inbox unless the session is closed.
func (s *Session) post(msg any) {
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.inbox:
			if s.ctx.Err() != nil {
				return
			}
			s.handle(msg)
			s.publish()
		}
	}
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case fixMessage:
		if m.gen == s.subGen {
			s.handleFix(m.fix)
		}
	case gpsErrorMessage:
		if m.gen == s.subGen {
			s.handleGPSError(m.err)
		}
	case routeMessage:
		s.handleRoute(m)
	case commandMessage:
		err := s.handleCommand(m)
		if m.reply != nil {
			// Callers observe the outcome in Snapshot as soon as they are replied to.
			s.publish()
			m.reply <- err
		}
	}
}

func (s *Session) handleFix(fix tracker.Fix) {
	position := fix.Coordinate()
	s.rec.Position = &position
	s.rec.Heading = fix.Heading
	s.rec.Accuracy = fix.Accuracy
	s.emit(Event{Kind: EventPosition, Position: position, Heading: fix.Heading})

	switch s.rec.State {
	case StateAcquiringGPS, StateGPSError:
		s.rec.setError(nil)
		s.fetch(fetchInitial)
	case StateNavigating, StateOffRoute, StateRecalculating, StateArrived:
		s.progress(position)
	}
}

// progress runs the engine for position and applies the result to the record.
func (s *Session) progress(position geo.Coordinate) {
	result := s.engine.Match(s.rec.Route, s.cfg.Destination, s.cfg.Mode, s.rec.CurrentStepIndex,
		s.rec.Arrived, position)
	wasOffRoute := s.rec.OffRoute
	s.rec.DistanceRemainingMeters = result.DistanceRemaining
	s.rec.TimeRemainingSeconds = result.TimeRemainingSeconds
	s.rec.DistanceToDestinationMeters = result.DistanceToDestination
	s.rec.DistanceToRouteMeters = result.DistanceToRoute
	s.rec.OffRoute = result.OffRoute

	if result.Arrived && !s.rec.Arrived {
		s.rec.Arrived = true
		s.log.Info("destination reached", slog.String("session", s.cfg.ID),
			slog.Float64("distance", result.DistanceToDestination))
		s.recalc.Cancel()
		s.setState(StateArrived)
		s.announceArrival()
		return
	}
	if s.rec.Arrived {
		return
	}

	if result.StepAdvanced {
		s.rec.setStep(result.StepIndex)
		s.announceStep(result.StepIndex)
	}

	switch s.rec.State {
	case StateNavigating:
		if result.OffRoute && !wasOffRoute {
			s.log.Info("left the route", slog.String("session", s.cfg.ID),
				slog.Float64("distance", result.DistanceToRoute))
			s.setState(StateOffRoute)
			s.fetch(fetchRecalculation)
		}
	case StateOffRoute:
		if !result.OffRoute {
			s.setState(StateNavigating)
		}
	}
}

func (s *Session) handleGPSError(err error) {
	s.rec.setError(err)
	s.log.Warn("position error", slog.String("session", s.cfg.ID), slog.String("state", string(s.rec.State)),
		logger.Err(err))
	if s.rec.State == StateAcquiringGPS {
		s.setState(StateGPSError)
	}
}

// fetch requests a route from the last position unless a request is outstanding.
func (s *Session) fetch(kind fetchKind) {
	if s.rec.Position == nil {
		return
	}
	gen, ok := s.recalc.Trigger(kind)
	if !ok {
		s.log.Debug("route request already in flight", slog.String("session", s.cfg.ID))
		return
	}
	if kind == fetchRecalculation {
		s.rec.RecalculationsRun++
		s.setState(StateRecalculating)
	} else {
		s.setState(StateFetchingRoute)
	}

	origin := *s.rec.Position
	go func() {
		result, err := s.provider.FetchRoute(s.ctx, origin, s.cfg.Destination, s.cfg.Mode)
		s.post(routeMessage{gen: gen, origin: origin, route: result, err: err})
	}()
}

func (s *Session) handleRoute(msg routeMessage) {
	kind := s.recalc.kind
	if !s.recalc.Complete(msg.gen) {
		s.log.Debug("discarding stale route result", slog.String("session", s.cfg.ID))
		return
	}
	if msg.err == nil {
		if err := msg.route.Validate(); err != nil {
			msg.err = route.Unavailable(err)
		}
	}

	if msg.err != nil {
		s.log.Error("route request failed", slog.String("session", s.cfg.ID), logger.Err(msg.err))
		s.rec.setError(msg.err)
		if kind == fetchRecalculation {
			// A failed manual recalculation keeps guiding on the current route.
			if s.rec.OffRoute {
				s.setState(StateOffRoute)
			} else {
				s.setState(StateNavigating)
			}
			return
		}
		s.setState(StateRouteError)
		return
	}

	s.rec.setError(nil)
	s.rec.Route = msg.route
	s.rec.OffRoute = false
	s.rec.DistanceRemainingMeters = geo.PolylineLength(msg.route.Polyline, 0)
	s.rec.TimeRemainingSeconds = s.rec.DistanceRemainingMeters / s.cfg.Mode.Speed()
	s.rec.setStep(0)
	s.emit(Event{Kind: EventRoute, Route: msg.route})
	s.log.Info("route ready", slog.String("session", s.cfg.ID), slog.Int("steps", len(msg.route.Steps)),
		slog.Float64("distance", s.rec.DistanceRemainingMeters))
	s.setState(StateNavigating)

	if kind == fetchRecalculation {
		s.rec.LastAnnouncedStepIndex.Set(0)
		s.announce(Announcement{Kind: AnnouncementRecalculated, Text: instruction.Recalculated()})
	} else {
		s.rec.LastAnnouncedStepIndex.Reset()
		s.announceStep(0)
	}

	// Fixes received while the request was running are matched against the new route.
	if s.rec.Position != nil && *s.rec.Position != msg.origin {
		s.progress(*s.rec.Position)
	}
}

func (s *Session) handleCommand(msg commandMessage) error {
	switch msg.kind {
	case commandVoice:
		s.rec.VoiceEnabled = msg.voice
		s.log.Debug("voice toggled", slog.String("session", s.cfg.ID), slog.Bool("enabled", msg.voice))
		return nil
	case commandRecalculate:
		switch s.rec.State {
		case StateRecalculating:
			return nil
		case StateNavigating, StateOffRoute:
			if s.rec.Position == nil {
				return ErrNoPosition
			}
			s.fetch(fetchRecalculation)
			return nil
		}
	case commandRetryGPS:
		if s.rec.State == StateGPSError || s.rec.State == StateAcquiringGPS {
			s.rec.setError(nil)
			s.subscribe()
			s.setState(StateAcquiringGPS)
			return nil
		}
	case commandRetryRoute:
		switch s.rec.State {
		case StateRouteError:
			if s.rec.Position == nil {
				return ErrNoPosition
			}
			s.fetch(fetchInitial)
			return nil
		case StateOffRoute:
			s.fetch(fetchRecalculation)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, s.rec.State)
}

// subscribe (re)starts the position subscription. Callbacks of earlier subscriptions
// are ignored by generation.
func (s *Session) subscribe() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.subGen++
	gen := s.subGen
	s.unsubscribe = s.positions.Subscribe(
		func(fix tracker.Fix) { s.post(fixMessage{gen: gen, fix: fix}) },
		func(err error) { s.post(gpsErrorMessage{gen: gen, err: err}) },
	)
}

// shutdown runs once the session goroutine has stopped.
func (s *Session) shutdown() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.recalc.Cancel()
	s.setState(StateClosed)
	s.publish()
	s.log.Info("navigation session closed", slog.String("session", s.cfg.ID))
}

func (s *Session) setState(state State) {
	previous := s.rec.State
	if previous == state {
		return
	}
	s.rec.State = state
	s.log.Debug("state changed", slog.String("session", s.cfg.ID), slog.String("from", string(previous)),
		slog.String("to", string(state)))
	s.emit(Event{Kind: EventState, State: state, Previous: previous})
}

func (s *Session) announceStep(idx int) {
	if s.rec.LastAnnouncedStepIndex.IsSet() && s.rec.LastAnnouncedStepIndex.Value() == idx {
		return
	}
	if s.rec.Route == nil || idx < 0 || idx >= len(s.rec.Route.Steps) {
		return
	}
	s.rec.LastAnnouncedStepIndex.Set(idx)
	s.announce(Announcement{Kind: AnnouncementStep, Text: s.rec.Route.Steps[idx].Text, StepIndex: idx})
}

func (s *Session) announceArrival() {
	if s.rec.ArrivalAnnounced {
		return
	}
	s.rec.ArrivalAnnounced = true
	s.announce(Announcement{Kind: AnnouncementArrival, Text: instruction.Arrived(), StepIndex: -1})
}

func (s *Session) announce(announcement Announcement) {
	announcement.Locale = s.cfg.SpeechLocale
	announcement.Rate = s.cfg.SpeechRate
	announcement.VoiceEnabled = s.rec.VoiceEnabled
	s.emit(Event{Kind: EventAnnouncement, Announcement: announcement})
}

func (s *Session) emit(event Event) {
	event.SessionID = s.cfg.ID
	if event.State == "" {
		event.State = s.rec.State
	}
	s.listenerMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()
	for _, listener := range listeners {
		listener(event)
	}
}

func (s *Session) publish() {
	s.rec.UpdatedAt = time.Now()
	s.snapMu.Lock()
	s.snap = s.rec
	s.snapMu.Unlock()
}
