// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

import (
	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/vartype"
)

// EventKind identifies the type of an Event.
type EventKind string

const (
	// EventCenter asks the map to center on Event.Position.
	EventCenter EventKind = "center"
	// EventPosition carries a new matched position and heading.
	EventPosition EventKind = "position"
	// EventRoute carries a new or replaced route.
	EventRoute EventKind = "route"
	// EventState carries a state transition.
	EventState EventKind = "state"
	// EventAnnouncement carries a text to be spoken.
	EventAnnouncement EventKind = "announcement"
)

// AnnouncementKind tells the announcement sources apart.
type AnnouncementKind string

const (
	AnnouncementStep         AnnouncementKind = "step"
	AnnouncementArrival      AnnouncementKind = "arrival"
	AnnouncementRecalculated AnnouncementKind = "recalculated"
)

// Announcement is a de-duplicated text to be spoken.
type Announcement struct {
	Kind         AnnouncementKind
	Text         string
	StepIndex    int
	Locale       string
	Rate         float64
	VoiceEnabled bool
}

// Event is emitted by a session to its listeners.
type Event struct {
	SessionID    string
	Kind         EventKind
	State        State
	Previous     State
	Position     geo.Coordinate
	Heading      vartype.VarFloat64
	Route        *route.Route
	Announcement Announcement
}

// Listener receives session events. Listeners are called from the session goroutine
// and must not block or call back into blocking session methods.
type Listener func(Event)
