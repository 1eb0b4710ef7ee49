// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package instruction

// ManeuverType is the kind of action of a routing step, using the OSRM vocabulary.
type ManeuverType string

// Modifier refines the direction of a maneuver.
type Modifier string

const (
	TypeTurn           ManeuverType = "turn"
	TypeNewName        ManeuverType = "new name"
	TypeDepart         ManeuverType = "depart"
	TypeArrive         ManeuverType = "arrive"
	TypeMerge          ManeuverType = "merge"
	TypeOnRamp         ManeuverType = "on ramp"
	TypeOffRamp        ManeuverType = "off ramp"
	TypeFork           ManeuverType = "fork"
	TypeEndOfRoad      ManeuverType = "end of road"
	TypeContinue       ManeuverType = "continue"
	TypeRoundabout     ManeuverType = "roundabout"
	TypeRotary         ManeuverType = "rotary"
	TypeRoundaboutTurn ManeuverType = "roundabout turn"
	TypeExitRoundabout ManeuverType = "exit roundabout"
	TypeExitRotary     ManeuverType = "exit rotary"
	TypeNotification   ManeuverType = "notification"
	TypeUseLane        ManeuverType = "use lane"
)

const (
	ModifierNone        Modifier = ""
	ModifierUTurn       Modifier = "uturn"
	ModifierSharpRight  Modifier = "sharp right"
	ModifierRight       Modifier = "right"
	ModifierSlightRight Modifier = "slight right"
	ModifierStraight    Modifier = "straight"
	ModifierSlightLeft  Modifier = "slight left"
	ModifierLeft        Modifier = "left"
	ModifierSharpLeft   Modifier = "sharp left"
)

// Maneuver is the tagged (type, modifier) pair a phrase is keyed on.
type Maneuver struct {
	Type     ManeuverType
	Modifier Modifier
}

const (
	phraseContinue     = "Continua"
	phraseArrived      = "Sei arrivato a destinazione"
	phraseRecalculated = "Percorso ricalcolato"
	streetPreposition  = "su"
)

// phrases maps exact maneuvers to Italian instructions. Entries with ModifierNone
// are used when a type is known but its modifier is not.
var phrases = map[Maneuver]string{
	{TypeTurn, ModifierLeft}:        "Gira a sinistra",
	{TypeTurn, ModifierRight}:       "Gira a destra",
	{TypeTurn, ModifierSlightLeft}:  "Svolta leggermente a sinistra",
	{TypeTurn, ModifierSlightRight}: "Svolta leggermente a destra",
	{TypeTurn, ModifierSharpLeft}:   "Svolta decisamente a sinistra",
	{TypeTurn, ModifierSharpRight}:  "Svolta decisamente a destra",
	{TypeTurn, ModifierUTurn}:       "Fai inversione a U",
	{TypeTurn, ModifierStraight}:    "Prosegui dritto",
	{TypeTurn, ModifierNone}:        "Svolta",

	{TypeContinue, ModifierStraight}:    "Prosegui dritto",
	{TypeContinue, ModifierLeft}:        "Continua a sinistra",
	{TypeContinue, ModifierRight}:       "Continua a destra",
	{TypeContinue, ModifierSlightLeft}:  "Continua leggermente a sinistra",
	{TypeContinue, ModifierSlightRight}: "Continua leggermente a destra",
	{TypeContinue, ModifierUTurn}:       "Fai inversione a U",
	{TypeContinue, ModifierNone}:        phraseContinue,

	{TypeFork, ModifierLeft}:        "Al bivio tieni la sinistra",
	{TypeFork, ModifierRight}:       "Al bivio tieni la destra",
	{TypeFork, ModifierSlightLeft}:  "Al bivio tieni la sinistra",
	{TypeFork, ModifierSlightRight}: "Al bivio tieni la destra",
	{TypeFork, ModifierStraight}:    "Al bivio prosegui dritto",
	{TypeFork, ModifierNone}:        "Al bivio prosegui",

	{TypeMerge, ModifierLeft}:        "Immettiti a sinistra",
	{TypeMerge, ModifierRight}:       "Immettiti a destra",
	{TypeMerge, ModifierSlightLeft}:  "Immettiti leggermente a sinistra",
	{TypeMerge, ModifierSlightRight}: "Immettiti leggermente a destra",
	{TypeMerge, ModifierNone}:        "Immettiti",

	{TypeOnRamp, ModifierLeft}:  "Prendi la rampa a sinistra",
	{TypeOnRamp, ModifierRight}: "Prendi la rampa a destra",
	{TypeOnRamp, ModifierNone}:  "Prendi la rampa",

	{TypeOffRamp, ModifierLeft}:        "Prendi l'uscita a sinistra",
	{TypeOffRamp, ModifierRight}:       "Prendi l'uscita a destra",
	{TypeOffRamp, ModifierSlightLeft}:  "Prendi l'uscita leggermente a sinistra",
	{TypeOffRamp, ModifierSlightRight}: "Prendi l'uscita leggermente a destra",
	{TypeOffRamp, ModifierNone}:        "Prendi l'uscita",

	{TypeEndOfRoad, ModifierLeft}:  "Alla fine della strada gira a sinistra",
	{TypeEndOfRoad, ModifierRight}: "Alla fine della strada gira a destra",
	{TypeEndOfRoad, ModifierNone}:  "Alla fine della strada svolta",

	{TypeNewName, ModifierStraight}: "Prosegui dritto",
	{TypeNewName, ModifierLeft}:     "Continua a sinistra",
	{TypeNewName, ModifierRight}:    "Continua a destra",
	{TypeNewName, ModifierNone}:     phraseContinue,

	{TypeRoundabout, ModifierLeft}:     "Alla rotatoria gira a sinistra",
	{TypeRoundabout, ModifierRight}:    "Alla rotatoria gira a destra",
	{TypeRoundabout, ModifierStraight}: "Alla rotatoria prosegui dritto",
	{TypeRoundabout, ModifierNone}:     "Entra nella rotatoria",
	{TypeRotary, ModifierNone}:         "Entra nella rotatoria",
	{TypeRoundaboutTurn, ModifierNone}: "Alla rotatoria svolta",
	{TypeExitRoundabout, ModifierNone}: "Esci dalla rotatoria",
	{TypeExitRotary, ModifierNone}:     "Esci dalla rotatoria",

	{TypeArrive, ModifierLeft}:  "La destinazione è sulla sinistra",
	{TypeArrive, ModifierRight}: "La destinazione è sulla destra",
	{TypeArrive, ModifierNone}:  phraseArrived,

	{TypeDepart, ModifierNone}: "Parti",
}

// modifierPhrases is the fallback used when neither the exact maneuver nor its type
// is known.
var modifierPhrases = map[Modifier]string{
	ModifierUTurn:       "Fai inversione a U",
	ModifierSharpRight:  "Svolta decisamente a destra",
	ModifierRight:       "Gira a destra",
	ModifierSlightRight: "Svolta leggermente a destra",
	ModifierStraight:    "Prosegui dritto",
	ModifierSlightLeft:  "Svolta leggermente a sinistra",
	ModifierLeft:        "Gira a sinistra",
	ModifierSharpLeft:   "Svolta decisamente a sinistra",
}

// placeholderStreets are names that routing services return for unnamed ways.
var placeholderStreets = map[string]struct{}{
	"":                  {},
	"-":                 {},
	"unnamed road":      {},
	"strada senza nome": {},
}
