// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/navigation"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

const maxAnnouncements = 32

// ErrSessionNotFound is returned for unknown or closed session ids.
var ErrSessionNotFound = errors.New("navigation session not found")

// SessionOptions are the host supplied parameters of a new session.
type SessionOptions struct {
	Destination     geo.Coordinate
	DestinationName string
	Mode            route.Mode
	VoiceEnabled    bool
	SpeechLocale    string
	SpeechRate      float64
}

// QueuedAnnouncement is an announcement kept for the host to fetch and speak.
type QueuedAnnouncement struct {
	Seq          uint64                      `json:"seq"`
	Kind         navigation.AnnouncementKind `json:"kind"`
	Text         string                      `json:"text"`
	StepIndex    int                         `json:"step_index"`
	Locale       string                      `json:"locale"`
	Rate         float64                     `json:"rate"`
	VoiceEnabled bool                        `json:"voice_enabled"`
}

// Entry is a session managed for a remote host. Positions reach the session through
// its feed.
type Entry struct {
	Session *navigation.Session
	Feed    *tracker.Feed

	mu            sync.Mutex
	seq           uint64
	announcements []QueuedAnnouncement
}

// Manager owns the sessions of the host API.
type Manager struct {
	conf     *config.Config
	provider route.Provider
	log      *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Entry
}

func NewManager(conf *config.Config, provider route.Provider, log *logger.Logger) (*Manager, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("route provider is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Manager{
		conf:     conf,
		provider: provider,
		log:      log,
		sessions: make(map[string]*Entry),
	}, nil
}

// Create starts a new session fed by host reported positions.
func (m *Manager) Create(opts SessionOptions) (*Entry, error) {
	strategy, err := navigation.ParseStepStrategy(m.conf.Navigation.StepStrategy)
	if err != nil {
		return nil, err
	}
	if opts.SpeechLocale == "" {
		opts.SpeechLocale = m.conf.Navigation.SpeechLocale
	}
	if opts.SpeechRate <= 0 {
		opts.SpeechRate = m.conf.Navigation.SpeechRate
	}

	id := uuid.NewString()
	feed := tracker.NewFeed(id)
	positions, err := tracker.New(feed, m.log, m.conf.Position.AcquisitionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create position tracker: %w", err)
	}
	engine := navigation.NewEngine(m.conf.Navigation.OffRouteThreshold, m.conf.Navigation.ArrivalThreshold,
		strategy)
	session, err := navigation.New(navigation.Config{
		ID:              id,
		Destination:     opts.Destination,
		DestinationName: opts.DestinationName,
		Mode:            opts.Mode,
		VoiceEnabled:    opts.VoiceEnabled,
		SpeechLocale:    opts.SpeechLocale,
		SpeechRate:      opts.SpeechRate,
	}, engine, m.provider, positions, m.log)
	if err != nil {
		return nil, err
	}

	entry := &Entry{Session: session, Feed: feed}
	session.AddListener(entry.record)

	m.mu.Lock()
	m.sessions[id] = entry
	m.mu.Unlock()

	session.Start()
	m.log.Info("navigation session created", slog.String("id", id),
		slog.String("destination", opts.Destination.String()), slog.String("mode", string(session.Snapshot().Mode)))
	return entry, nil
}

func (m *Manager) Get(id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// Delete closes and forgets the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	entry.Session.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	entries := m.sessions
	m.sessions = make(map[string]*Entry)
	m.mu.Unlock()
	for _, entry := range entries {
		entry.Session.Close()
	}
}

// record keeps the most recent announcements of the session.
func (e *Entry) record(event navigation.Event) {
	if event.Kind != navigation.EventAnnouncement {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.announcements = append(e.announcements, QueuedAnnouncement{
		Seq:          e.seq,
		Kind:         event.Announcement.Kind,
		Text:         event.Announcement.Text,
		StepIndex:    event.Announcement.StepIndex,
		Locale:       event.Announcement.Locale,
		Rate:         event.Announcement.Rate,
		VoiceEnabled: event.Announcement.VoiceEnabled,
	})
	if len(e.announcements) > maxAnnouncements {
		e.announcements = e.announcements[len(e.announcements)-maxAnnouncements:]
	}
}

// Announcements returns the kept announcements with a sequence number above after.
func (e *Entry) Announcements(after uint64) []QueuedAnnouncement {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := make([]QueuedAnnouncement, 0, len(e.announcements))
	for _, announcement := range e.announcements {
		if announcement.Seq > after {
			list = append(list, announcement)
		}
	}
	return list
}
