// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package speech delivers navigation announcements to a text-to-speech sink.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/navigation"
)

const (
	DefaultSpeakTimeout = time.Second * 15
	queueSize           = 16
)

// ErrSpeechUnavailable is returned by a sink when no speech engine can be reached.
var ErrSpeechUnavailable = errors.New("speech engine unavailable")

// Sink speaks a text with the given locale and rate. Rate 1.0 is the engine's normal
// speed.
type Sink interface {
	Name() string
	Speak(ctx context.Context, text, locale string, rate float64) error
}

// Discard is a Sink that drops every text.
type Discard struct{}

func (Discard) Name() string { return "none" }

func (Discard) Speak(context.Context, string, string, float64) error { return nil }

// Dispatcher queues announcements and hands them to a sink from its own goroutine, so
// that a slow or failing sink never blocks a session.
type Dispatcher struct {
	sink          Sink
	log           *logger.Logger
	queue         chan navigation.Announcement
	timeout       time.Duration
	onUnavailable func()
}

// NewDispatcher returns a Dispatcher for sink. onUnavailable, if set, is called whenever
// the sink reports ErrSpeechUnavailable.
func NewDispatcher(sink Sink, log *logger.Logger, onUnavailable func()) (*Dispatcher, error) {
	if sink == nil {
		return nil, fmt.Errorf("speech sink is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Dispatcher{
		sink:          sink,
		log:           log,
		queue:         make(chan navigation.Announcement, queueSize),
		timeout:       DefaultSpeakTimeout,
		onUnavailable: onUnavailable,
	}, nil
}

// Listen is a navigation.Listener. Announcements with voice disabled are ignored and a
// full queue drops the announcement.
func (d *Dispatcher) Listen(event navigation.Event) {
	if event.Kind != navigation.EventAnnouncement || !event.Announcement.VoiceEnabled {
		return
	}
	select {
	case d.queue <- event.Announcement:
	default:
		d.log.Warn("speech queue full, dropping announcement", slog.String("text", event.Announcement.Text))
	}
}

// Run speaks queued announcements until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case announcement := <-d.queue:
			d.speak(ctx, announcement)
		}
	}
}

func (d *Dispatcher) speak(ctx context.Context, announcement navigation.Announcement) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.sink.Speak(ctx, announcement.Text, announcement.Locale, announcement.Rate)
	if err == nil {
		d.log.Debug("announcement spoken", slog.String("sink", d.sink.Name()),
			slog.String("text", announcement.Text))
		return
	}
	d.log.Error("failed to speak announcement", slog.String("sink", d.sink.Name()),
		slog.String("text", announcement.Text), logger.Err(err))
	if errors.Is(err, ErrSpeechUnavailable) && d.onUnavailable != nil {
		d.onUnavailable()
	}
}
