// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mercatocomunale/navigator/internal/logger"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// handleVoiceToggleSignals toggles spoken announcements on SIGUSR1, e.g. from a waybar
// on-click handler.
func (s *Service) handleVoiceToggleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	s.signals.Notify(sigChan, syscall.SIGUSR1)
	defer s.signals.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			s.toggleVoice(ctx)
		}
	}
}

func (s *Service) toggleVoice(ctx context.Context) {
	session := s.currentSession()
	if session == nil {
		return
	}
	enabled := !session.Snapshot().VoiceEnabled
	if err := session.SetVoiceEnabled(enabled); err != nil {
		s.logger.Error("failed to toggle voice", logger.Err(err))
		return
	}
	s.logger.Debug("voice toggled", slog.Bool("enabled", enabled))
	s.printStatus(ctx)
}
