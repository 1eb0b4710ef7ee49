// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package tracker delivers a continuous stream of position fixes from a Source to a
// single subscriber.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/vartype"
)

const (
	DefaultAcquisitionTimeout = time.Second * 15
	initialBackoff            = time.Second
	maxBackoff                = 30 * time.Second
)

// Fix is a single position reading.
type Fix struct {
	Lat      float64            `json:"lat"`
	Lng      float64            `json:"lng"`
	Heading  vartype.VarFloat64 `json:"heading"`
	Accuracy float64            `json:"accuracy"`
	At       time.Time          `json:"at"`
}

// Coordinate returns the position of the fix.
func (f Fix) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: f.Lat, Lng: f.Lng}
}

// Reading carries either a fix or an error of a Source.
type Reading struct {
	Fix Fix
	Err error
}

// Source is implemented by everything that produces position readings. The returned
// channel is closed when the source stops; the Tracker then reopens it.
type Source interface {
	Name() string
	Stream(ctx context.Context) <-chan Reading
}

// Tracker subscribes to a Source and handles acquisition timeouts and reconnects.
type Tracker struct {
	source  Source
	log     *logger.Logger
	timeout time.Duration
}

type subscription struct {
	stopped atomic.Bool
	onFix   func(Fix)
	onError func(error)
}

// New returns a Tracker for the given source. A non-positive timeout selects
// DefaultAcquisitionTimeout.
func New(source Source, log *logger.Logger, timeout time.Duration) (*Tracker, error) {
	if source == nil {
		return nil, fmt.Errorf("position source is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if timeout <= 0 {
		timeout = DefaultAcquisitionTimeout
	}
	return &Tracker{source: source, log: log, timeout: timeout}, nil
}

// Source returns the name of the position source.
func (t *Tracker) Source() string {
	return t.source.Name()
}

// Subscribe starts a continuous subscription. onFix is called for every fix, onError
// for every failure including acquisition timeouts. Callbacks are invoked from a single
// goroutine. The returned function cancels the subscription; it is idempotent and no
// callback is started after it returned.
func (t *Tracker) Subscribe(onFix func(Fix), onError func(error)) func() {
	sub := &subscription{onFix: onFix, onError: onError}
	ctx, cancel := context.WithCancel(context.Background())
	go t.run(ctx, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stopped.Store(true)
			cancel()
		})
	}
}

func (t *Tracker) run(ctx context.Context, sub *subscription) {
	acquire := time.NewTimer(t.timeout)
	defer acquire.Stop()

	backoff := initialBackoff
	var retry <-chan time.Time
	stream := t.safeStream(ctx)
	if stream == nil {
		retry = time.After(backoff)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-retry:
			retry = nil
			backoff = nextBackoff(backoff)
			if stream = t.safeStream(ctx); stream == nil {
				retry = time.After(backoff)
			}
		case <-acquire.C:
			t.log.Warn("no position fix received", slog.String("source", t.source.Name()),
				slog.Duration("timeout", t.timeout))
			sub.fail(fmt.Errorf("%w: no fix within %s", ErrTimeout, t.timeout))
			acquire.Reset(t.timeout)
		case reading, ok := <-stream:
			if !ok {
				t.log.Debug("position stream closed, reopening", slog.String("source", t.source.Name()),
					slog.Duration("backoff", backoff))
				stream = nil
				retry = time.After(backoff)
				continue
			}
			if reading.Err != nil {
				t.log.Error("position source failed", slog.String("source", t.source.Name()),
					logger.Err(reading.Err))
				sub.fail(reading.Err)
				continue
			}
			acquire.Reset(t.timeout)
			backoff = initialBackoff
			sub.fix(reading.Fix)
		}
	}
}

// safeStream opens the source stream and recovers from panics of the source. It returns
// nil if the stream could not be opened.
func (t *Tracker) safeStream(ctx context.Context) (ch <-chan Reading) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("position source panicked", slog.String("source", t.source.Name()),
				slog.Any("panic", r))
			ch = nil
		}
	}()
	return t.source.Stream(ctx)
}

func (s *subscription) fix(fix Fix) {
	if s.stopped.Load() || s.onFix == nil {
		return
	}
	s.onFix(fix)
}

func (s *subscription) fail(err error) {
	if s.stopped.Load() || s.onError == nil {
		return
	}
	s.onError(err)
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
