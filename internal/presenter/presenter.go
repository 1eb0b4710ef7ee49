// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package presenter renders navigation snapshots into waybar module output.
package presenter

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/it"
	"github.com/vorlif/spreak"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/i18n"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/navigation"
)

const ellipsis = "…"

// TemplateContext is the data the output templates are executed with.
type TemplateContext struct {
	navigation.Snapshot

	Guiding          bool
	Icon             string
	Instruction      string
	StateText        string
	ErrorText        string
	DestinationLabel string
	TimeRemaining    time.Duration
	ETA              time.Time
}

// Output is a waybar custom module line.
type Output struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
	Alt     string `json:"alt"`
}

type Presenter struct {
	TextTemplate    *template.Template
	TooltipTemplate *template.Template

	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	maxWidth  int
}

func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}
	if loc == nil {
		return nil, fmt.Errorf("localizer is required")
	}
	collection, err := humanize.New(humanize.WithLocale(it.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}

	pres := &Presenter{
		localizer: loc,
		humanizer: collection.CreateHumanizer(i18n.Tag(conf.Locale)),
		maxWidth:  conf.Templates.MaxWidth,
	}
	pres.TextTemplate, err = template.New("text").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	pres.TooltipTemplate, err = template.New("tooltip").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Tooltip)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tooltip template: %w", err)
	}
	return pres, nil
}

// BuildContext derives the display values of snap at the given time.
func (p *Presenter) BuildContext(snap navigation.Snapshot, now time.Time) TemplateContext {
	ctx := TemplateContext{
		Snapshot:         snap,
		Guiding:          snap.State == navigation.StateNavigating || snap.State == navigation.StateOffRoute,
		StateText:        p.localizer.Get(StateTexts[snap.State]),
		DestinationLabel: snap.DestinationName,
		Icon:             StateIcons[snap.State],
		Instruction:      snap.CurrentInstruction,
	}
	if msgID, ok := ErrorTexts[snap.ErrorKind]; ok {
		ctx.ErrorText = p.localizer.Get(msgID)
	}
	if ctx.DestinationLabel == "" {
		ctx.DestinationLabel = snap.Destination.String()
	}
	if ctx.Instruction == "" || !ctx.Guiding {
		ctx.Instruction = ctx.StateText
	}
	if snap.State == navigation.StateNavigating {
		ctx.Icon = maneuverIcon(snap)
	}
	if snap.State.Guiding() && snap.TimeRemainingSeconds > 0 && !snap.Arrived {
		ctx.TimeRemaining = time.Duration(math.Round(snap.TimeRemainingSeconds)) * time.Second
		ctx.ETA = now.Add(ctx.TimeRemaining)
	}
	return ctx
}

// Render executes the templates for snap.
func (p *Presenter) Render(snap navigation.Snapshot, now time.Time) (Output, error) {
	ctx := p.BuildContext(snap, now)

	text, err := execute(p.TextTemplate, ctx)
	if err != nil {
		return Output{}, fmt.Errorf("failed to render text template: %w", err)
	}
	tooltip, err := execute(p.TooltipTemplate, ctx)
	if err != nil {
		return Output{}, fmt.Errorf("failed to render tooltip template: %w", err)
	}
	if p.maxWidth > 0 {
		text = runewidth.Truncate(text, p.maxWidth, ellipsis)
	}

	return Output{
		Text:    text,
		Tooltip: tooltip,
		Class:   StateClasses[snap.State],
		Alt:     strings.ToLower(string(snap.State)),
	}, nil
}

func execute(tpl *template.Template, ctx TemplateContext) (string, error) {
	buf := bytes.NewBuffer(nil)
	if err := tpl.Execute(buf, ctx); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func maneuverIcon(snap navigation.Snapshot) string {
	if snap.Route == nil || snap.CurrentStepIndex < 0 || snap.CurrentStepIndex >= len(snap.Route.Steps) {
		return "🧭"
	}
	step := snap.Route.Steps[snap.CurrentStepIndex]
	if icon, ok := ManeuverIcons[step.ManeuverType]; ok {
		return icon
	}
	if icon, ok := ModifierIcons[step.ManeuverModifier]; ok {
		return icon
	}
	return ModifierIcons[instruction.ModifierStraight]
}
