// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package notify shows announcements as desktop notifications on the session bus. It
// is the fallback for systems without a speech engine.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/speech"
)

const (
	name = "notify"

	dbusDestination = "org.freedesktop.Notifications"
	dbusPath        = "/org/freedesktop/Notifications"
	dbusMethod      = dbusDestination + ".Notify"

	appName       = "navigator"
	appIcon       = "mark-location"
	summary       = "Navigazione"
	expireTimeout = int32(8000) // milliseconds
)

type Notifier struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	log  *logger.Logger

	mu     sync.Mutex
	lastID uint32
}

// New connects to the session bus.
func New(log *logger.Logger) (*Notifier, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to session bus: %w", speech.ErrSpeechUnavailable, err)
	}
	return &Notifier{
		conn: conn,
		obj:  conn.Object(dbusDestination, dbusPath),
		log:  log,
	}, nil
}

func (n *Notifier) Name() string {
	return name
}

// Speak shows text, replacing the previous announcement. The rate is ignored.
func (n *Notifier) Speak(ctx context.Context, text, locale string, _ float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))}
	call := n.obj.CallWithContext(ctx, dbusMethod, 0, appName, n.lastID, appIcon, summary, text,
		[]string{}, hints, expireTimeout)
	if call.Err != nil {
		return fmt.Errorf("%w: failed to send notification: %w", speech.ErrSpeechUnavailable, call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	n.lastID = id
	n.log.Debug("notification sent", slog.Uint64("id", uint64(id)), slog.String("locale", locale))
	return nil
}

// Close closes the bus connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
