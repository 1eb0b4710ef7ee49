// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package instruction turns routing maneuvers into spoken Italian instructions.
package instruction

import (
	"strings"
)

// Translate returns the instruction text for a maneuver. The lookup tries the exact
// (type, modifier) pair, then the type alone, then the modifier alone and finally
// falls back to a generic "continue" phrase. A street suffix is appended unless the
// street name is a placeholder.
func Translate(maneuverType ManeuverType, modifier Modifier, street string) string {
	return WithStreet(Phrase(maneuverType, modifier), street)
}

// Phrase returns the instruction text for a maneuver without a street suffix.
func Phrase(maneuverType ManeuverType, modifier Modifier) string {
	maneuverType = ManeuverType(normalize(string(maneuverType)))
	modifier = Modifier(normalize(string(modifier)))

	if text, ok := phrases[Maneuver{maneuverType, modifier}]; ok {
		return text
	}
	if text, ok := phrases[Maneuver{maneuverType, ModifierNone}]; ok {
		return text
	}
	if text, ok := modifierPhrases[modifier]; ok {
		return text
	}
	return phraseContinue
}

// WithStreet appends the localized "on <street>" suffix to text.
func WithStreet(text, street string) string {
	street = strings.TrimSpace(street)
	if IsPlaceholderStreet(street) {
		return text
	}
	return text + " " + streetPreposition + " " + street
}

// IsPlaceholderStreet reports whether name is empty or a sentinel for an unnamed way.
func IsPlaceholderStreet(name string) bool {
	_, ok := placeholderStreets[normalize(name)]
	return ok
}

// Arrived returns the arrival announcement.
func Arrived() string {
	return phraseArrived
}

// Recalculated returns the announcement for a replaced route.
func Recalculated() string {
	return phraseRecalculated
}

// Known reports whether the exact maneuver has a phrase in the table.
func Known(m Maneuver) bool {
	_, ok := phrases[m]
	return ok
}

// Maneuvers returns all maneuvers of the phrase table.
func Maneuvers() []Maneuver {
	list := make([]Maneuver, 0, len(phrases))
	for m := range phrases {
		list = append(list, m)
	}
	return list
}

func normalize(val string) string {
	val = strings.ToLower(strings.TrimSpace(val))
	return strings.ReplaceAll(val, "_", " ")
}
