// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service runs a single navigation session towards the configured destination
// and writes its status as waybar JSON lines.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/geocode"
	"github.com/mercatocomunale/navigator/internal/http"
	"github.com/mercatocomunale/navigator/internal/i18n"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/navigation"
	"github.com/mercatocomunale/navigator/internal/presenter"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/speech"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

const (
	DesktopID     = "navigator"
	outputJobName = "status_output_job"
)

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	signals   signalSource

	provider route.Provider
	geocoder geocode.Geocoder
	tracker  navigation.PositionTracker
	sink     speech.Sink

	outputLock sync.Mutex
	output     io.Writer
	refresh    chan struct{}

	sessionLock sync.RWMutex
	session     *navigation.Session
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	httpClient := http.New(log)
	provider, err := SelectRouteProvider(conf, httpClient, log)
	if err != nil {
		return nil, err
	}
	geocoder, err := selectGeocoder(conf, httpClient, i18n.Tag(conf.Locale))
	if err != nil {
		return nil, err
	}
	source, err := selectPositionSource(conf, log)
	if err != nil {
		return nil, err
	}
	positions, err := tracker.New(source, log, conf.Position.AcquisitionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create position tracker: %w", err)
	}

	return &Service{
		config:    conf,
		logger:    log,
		t:         t,
		presenter: pres,
		scheduler: scheduler,
		signals:   stdLibSignalSource{},
		provider:  provider,
		geocoder:  geocoder,
		tracker:   positions,
		sink:      selectSpeechSink(conf, log),
		output:    os.Stdout,
		refresh:   make(chan struct{}, 1),
	}, nil
}

// Run guides towards the configured destination until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	session, err := s.createSession(ctx)
	if err != nil {
		return err
	}
	s.sessionLock.Lock()
	s.session = session
	s.sessionLock.Unlock()

	dispatcher, err := speech.NewDispatcher(s.sink, s.logger, func() {
		s.logger.Warn("speech output unavailable, disabling voice", slog.String("sink", s.sink.Name()))
		_ = session.SetVoiceEnabled(false)
	})
	if err != nil {
		return fmt.Errorf("failed to create announcement dispatcher: %w", err)
	}
	session.AddListener(dispatcher.Listen)
	session.AddListener(s.handleEvent)

	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.printStatus, outputJobName); err != nil {
		return err
	}
	s.scheduler.Start()

	go dispatcher.Run(ctx)
	go s.processRefreshes(ctx)
	go s.monitorSleepResume(ctx)
	go s.handleVoiceToggleSignals(ctx)

	s.logger.Info("navigation session started", slog.String("id", session.ID()),
		slog.String("destination", session.Snapshot().Destination.String()),
		slog.String("provider", s.provider.Name()))
	session.Start()
	s.printStatus(ctx)

	select {
	case <-ctx.Done():
	case <-session.Done():
	}
	session.Close()
	s.printStatus(ctx)

	return s.scheduler.Shutdown()
}

func (s *Service) createSession(ctx context.Context) (*navigation.Session, error) {
	dest, label, err := s.resolveDestination(ctx)
	if err != nil {
		return nil, err
	}
	mode, err := route.ParseMode(s.config.Navigation.Mode)
	if err != nil {
		return nil, err
	}
	strategy, err := navigation.ParseStepStrategy(s.config.Navigation.StepStrategy)
	if err != nil {
		return nil, err
	}

	engine := navigation.NewEngine(s.config.Navigation.OffRouteThreshold, s.config.Navigation.ArrivalThreshold,
		strategy)
	session, err := navigation.New(navigation.Config{
		ID:              DesktopID,
		Destination:     dest,
		DestinationName: label,
		Mode:            mode,
		VoiceEnabled:    !s.config.Navigation.DisableVoice,
		SpeechLocale:    s.config.Navigation.SpeechLocale,
		SpeechRate:      s.config.Navigation.SpeechRate,
	}, engine, s.provider, s.tracker, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigation session: %w", err)
	}
	return session, nil
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// handleEvent runs on the session goroutine and only schedules an output refresh.
func (s *Service) handleEvent(event navigation.Event) {
	switch event.Kind {
	case navigation.EventState, navigation.EventRoute, navigation.EventAnnouncement:
	default:
		return
	}
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Service) processRefreshes(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.refresh:
			s.printStatus(ctx)
		}
	}
}

func (s *Service) currentSession() *navigation.Session {
	s.sessionLock.RLock()
	defer s.sessionLock.RUnlock()
	return s.session
}

// printStatus renders the current snapshot and writes it as a JSON line.
func (s *Service) printStatus(context.Context) {
	session := s.currentSession()
	if session == nil {
		return
	}

	output, err := s.presenter.Render(session.Snapshot(), time.Now())
	if err != nil {
		s.logger.Error("failed to render status output", logger.Err(err))
		return
	}

	s.outputLock.Lock()
	defer s.outputLock.Unlock()
	if err = json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode status output", logger.Err(err))
	}
}
