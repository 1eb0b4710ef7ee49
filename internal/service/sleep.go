// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/navigation"
)

const (
	login1Interface = "org.freedesktop.login1.Manager"
	login1Member    = "PrepareForSleep"

	resumeDebounce     = 2 * time.Second
	resumeSettleDelay  = 10 * time.Second
	busRetryDelay      = 5 * time.Second
	resumeSignalBuffer = 8
)

var errBusClosed = errors.New("system bus signal channel closed")

// monitorSleepResume watches logind for resume events until ctx is done. The gpsd
// connection and route requests in flight rarely survive a suspend, so a session
// that failed meanwhile is retried after wake-up.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResume atomic.Int64
	for {
		err := s.watchResume(ctx, func() {
			s.onResume(ctx, &lastResume, resumeSettleDelay)
		})
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("sleep monitor interrupted", logger.Err(err), slog.Duration("retry_in", busRetryDelay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(busRetryDelay):
		}
	}
}

// watchResume subscribes to PrepareForSleep on the system bus and calls resumed for
// every PrepareForSleep(false). It returns when ctx is done or the bus is lost.
func (s *Service) watchResume(ctx context.Context, resumed func()) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			s.logger.Debug("failed to close system bus connection", logger.Err(err))
		}
	}()

	if err = conn.AddMatchSignal(dbus.WithMatchInterface(login1Interface),
		dbus.WithMatchMember(login1Member)); err != nil {
		return fmt.Errorf("failed to subscribe to %s.%s: %w", login1Interface, login1Member, err)
	}
	signals := make(chan *dbus.Signal, resumeSignalBuffer)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)
	s.logger.Debug("watching for resume events", slog.String("member", login1Member))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sgn, ok := <-signals:
			if !ok {
				return errBusClosed
			}
			if isResumeSignal(sgn) {
				resumed()
			}
		}
	}
}

// isResumeSignal reports whether sgn is PrepareForSleep(false), which logind sends
// after the system woke up.
func isResumeSignal(sgn *dbus.Signal) bool {
	if sgn == nil || len(sgn.Body) != 1 {
		return false
	}
	sleeping, ok := sgn.Body[0].(bool)
	return ok && !sleeping
}

// onResume retries a failed session once the system had time to bring the network
// and the GPS receiver back. Resume events within resumeDebounce are coalesced.
func (s *Service) onResume(ctx context.Context, lastResume *atomic.Int64, settle time.Duration) {
	now := time.Now()
	if last := lastResume.Load(); last != 0 && now.Sub(time.Unix(0, last)) < resumeDebounce {
		return
	}
	lastResume.Store(now.UnixNano())

	select {
	case <-ctx.Done():
		return
	case <-time.After(settle):
	}

	session := s.currentSession()
	if session == nil {
		return
	}
	var err error
	switch state := session.Snapshot().State; state {
	case navigation.StateGPSError:
		s.logger.Info("resumed from sleep, retrying position subscription")
		err = session.RetryGPS()
	case navigation.StateRouteError:
		s.logger.Info("resumed from sleep, retrying route request")
		err = session.RetryRoute()
	default:
		s.logger.Debug("resumed from sleep", slog.String("state", string(state)))
	}
	if err != nil {
		s.logger.Error("failed to resume navigation session", logger.Err(err))
	}
	s.printStatus(ctx)
}
