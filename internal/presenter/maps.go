// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"github.com/vorlif/spreak/localize"

	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/navigation"
)

// StateTexts maps session states to their display texts.
var StateTexts = map[navigation.State]localize.MsgID{
	navigation.StateInitializing:  "Starting",
	navigation.StateAcquiringGPS:  "Acquiring GPS position",
	navigation.StateGPSError:      "GPS error",
	navigation.StateFetchingRoute: "Calculating route",
	navigation.StateRouteError:    "Route error",
	navigation.StateNavigating:    "Navigating",
	navigation.StateOffRoute:      "Off route",
	navigation.StateRecalculating: "Recalculating route",
	navigation.StateArrived:       "Arrived",
	navigation.StateClosed:        "Closed",
}

// ErrorTexts maps error kinds to their display texts.
var ErrorTexts = map[navigation.ErrorKind]localize.MsgID{
	navigation.ErrorGPSPermissionDenied: "Location permission denied",
	navigation.ErrorGPSUnavailable:      "Position unavailable",
	navigation.ErrorGPSTimeout:          "No GPS fix received in time",
	navigation.ErrorRouteUnavailable:    "No route available",
	navigation.ErrorInternal:            "Unexpected navigation error",
}

// StateClasses maps session states to the CSS class of the output.
var StateClasses = map[navigation.State]string{
	navigation.StateInitializing:  "starting",
	navigation.StateAcquiringGPS:  "acquiring",
	navigation.StateGPSError:      "error",
	navigation.StateFetchingRoute: "routing",
	navigation.StateRouteError:    "error",
	navigation.StateNavigating:    "navigating",
	navigation.StateOffRoute:      "off-route",
	navigation.StateRecalculating: "routing",
	navigation.StateArrived:       "arrived",
	navigation.StateClosed:        "closed",
}

// StateIcons maps session states without a current maneuver to an icon.
var StateIcons = map[navigation.State]string{
	navigation.StateInitializing:  "⏳",
	navigation.StateAcquiringGPS:  "📡",
	navigation.StateGPSError:      "❌",
	navigation.StateFetchingRoute: "🗺️",
	navigation.StateRouteError:    "❌",
	navigation.StateOffRoute:      "⚠️",
	navigation.StateRecalculating: "🔄",
	navigation.StateArrived:       "🏁",
	navigation.StateClosed:        "⏹️",
}

// ModifierIcons maps maneuver modifiers to direction arrows.
var ModifierIcons = map[instruction.Modifier]string{
	instruction.ModifierUTurn:       "↩️",
	instruction.ModifierSharpRight:  "↘️",
	instruction.ModifierRight:       "➡️",
	instruction.ModifierSlightRight: "↗️",
	instruction.ModifierStraight:    "⬆️",
	instruction.ModifierSlightLeft:  "↖️",
	instruction.ModifierLeft:        "⬅️",
	instruction.ModifierSharpLeft:   "↙️",
}

// ManeuverIcons maps maneuver types whose icon does not depend on the modifier.
var ManeuverIcons = map[instruction.ManeuverType]string{
	instruction.TypeDepart:         "🚶",
	instruction.TypeArrive:         "🏁",
	instruction.TypeRoundabout:     "🔃",
	instruction.TypeRotary:         "🔃",
	instruction.TypeRoundaboutTurn: "🔃",
}

// i18nVars are the template labels available through the loc function.
var i18nVars = map[string]localize.MsgID{
	"destination": "Destination",
	"state":       "State",
	"next":        "Next",
	"remaining":   "Remaining",
	"eta":         "Arrival",
	"voice":       "Voice",
}
