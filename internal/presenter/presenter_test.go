// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"errors"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/vorlif/spreak"

	"github.com/mercatocomunale/navigator/internal/config"
	"github.com/mercatocomunale/navigator/internal/geo"
	"github.com/mercatocomunale/navigator/internal/i18n"
	"github.com/mercatocomunale/navigator/internal/instruction"
	"github.com/mercatocomunale/navigator/internal/navigation"
	"github.com/mercatocomunale/navigator/internal/route"
	"github.com/mercatocomunale/navigator/internal/tracker"
)

var (
	now         = time.Date(2026, 5, 16, 9, 30, 0, 0, time.UTC)
	destination = geo.Coordinate{Lat: 42.7603, Lng: 11.1121}
	testRoute   = &route.Route{
		Polyline: []geo.Coordinate{{Lat: 42.7590, Lng: 11.1121}, destination},
		Steps: []route.Instruction{
			route.NewInstruction(instruction.TypeDepart, instruction.ModifierNone, "", 100, 71),
			route.NewInstruction(instruction.TypeTurn, instruction.ModifierRight, "", 150, 107),
			route.NewInstruction(instruction.TypeArrive, instruction.ModifierNone, "", 50, 36),
		},
		TotalDistanceMeters:  300,
		TotalDurationSeconds: 214,
	}
)

func TestNew(t *testing.T) {
	t.Run("creating a new presenter succeeds", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if pres == nil {
			t.Fatal("expected presenter to be non-nil")
		}
	})
	t.Run("creating presenter without config or localizer fails", func(t *testing.T) {
		conf, lang := testConfLang(t)
		if _, err := New(nil, lang); err == nil {
			t.Error("expected presenter without config to fail")
		}
		if _, err := New(conf, nil); err == nil {
			t.Error("expected presenter without localizer to fail")
		}
	})
	t.Run("creating presenter with invalid templates fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"invalid text template", func(conf *config.Config) { conf.Templates.Text = "{{.Icon" }},
			{"invalid tooltip template", func(conf *config.Config) { conf.Templates.Tooltip = "{{unknownFunc .State}}" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t)
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to parse"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
}

func TestPresenter_BuildContext(t *testing.T) {
	t.Run("navigating snapshot is guiding", func(t *testing.T) {
		pres := testPresenter(t)
		tplCtx := pres.BuildContext(navigatingSnapshot(), now)

		if !tplCtx.Guiding {
			t.Error("expected navigating snapshot to be guiding")
		}
		if tplCtx.Icon != ModifierIcons[instruction.ModifierRight] {
			t.Errorf("expected right turn icon, got %q", tplCtx.Icon)
		}
		if tplCtx.Instruction != testRoute.Steps[1].Text {
			t.Errorf("expected instruction %q, got %q", testRoute.Steps[1].Text, tplCtx.Instruction)
		}
		if tplCtx.StateText != "Navigazione in corso" {
			t.Errorf("expected localized state text, got %q", tplCtx.StateText)
		}
		if tplCtx.DestinationLabel != "Mercato Comunale" {
			t.Errorf("expected destination label, got %q", tplCtx.DestinationLabel)
		}
		if tplCtx.TimeRemaining != 2*time.Minute {
			t.Errorf("expected 2m remaining, got %s", tplCtx.TimeRemaining)
		}
		if !tplCtx.ETA.Equal(now.Add(2 * time.Minute)) {
			t.Errorf("expected ETA %s, got %s", now.Add(2*time.Minute), tplCtx.ETA)
		}
	})
	t.Run("waiting states show the state text", func(t *testing.T) {
		pres := testPresenter(t)
		tplCtx := pres.BuildContext(navigation.Snapshot{
			State:       navigation.StateAcquiringGPS,
			Destination: destination,
		}, now)

		if tplCtx.Guiding {
			t.Error("expected acquiring snapshot not to be guiding")
		}
		if tplCtx.Instruction != "Ricerca della posizione GPS" {
			t.Errorf("expected state text as instruction, got %q", tplCtx.Instruction)
		}
		if tplCtx.Icon != StateIcons[navigation.StateAcquiringGPS] {
			t.Errorf("expected acquiring icon, got %q", tplCtx.Icon)
		}
		if tplCtx.DestinationLabel != destination.String() {
			t.Errorf("expected coordinate label, got %q", tplCtx.DestinationLabel)
		}
		if !tplCtx.ETA.IsZero() {
			t.Errorf("expected no ETA, got %s", tplCtx.ETA)
		}
	})
	t.Run("errors are localized by kind", func(t *testing.T) {
		pres := testPresenter(t)
		snap := navigation.Snapshot{State: navigation.StateGPSError}
		snap.LastError = tracker.ErrPermissionDenied
		snap.ErrorKind = navigation.KindOf(tracker.ErrPermissionDenied)

		tplCtx := pres.BuildContext(snap, now)
		if tplCtx.ErrorText != "Permesso di localizzazione negato" {
			t.Errorf("expected localized error text, got %q", tplCtx.ErrorText)
		}
	})
	t.Run("arrived snapshot has no ETA", func(t *testing.T) {
		pres := testPresenter(t)
		snap := navigatingSnapshot()
		snap.State = navigation.StateArrived
		snap.Arrived = true

		tplCtx := pres.BuildContext(snap, now)
		if !tplCtx.ETA.IsZero() {
			t.Errorf("expected no ETA after arrival, got %s", tplCtx.ETA)
		}
		if tplCtx.Icon != StateIcons[navigation.StateArrived] {
			t.Errorf("expected arrival icon, got %q", tplCtx.Icon)
		}
	})
}

func TestPresenter_Render(t *testing.T) {
	t.Run("rendering the default templates succeeds", func(t *testing.T) {
		pres := testPresenter(t)
		out, err := pres.Render(navigatingSnapshot(), now)
		if err != nil {
			t.Fatalf("failed to render output: %s", err)
		}
		wantText := ModifierIcons[instruction.ModifierRight] + " " + testRoute.Steps[1].Text + " · 170 m"
		if out.Text != wantText {
			t.Errorf("expected text %q, got %q", wantText, out.Text)
		}
		for _, want := range []string{"Destinazione: Mercato Comunale", "Stato: Navigazione in corso", "Rimanenti: 170 m, 2 min"} {
			if !strings.Contains(out.Tooltip, want) {
				t.Errorf("expected tooltip to contain %q, got %q", want, out.Tooltip)
			}
		}
		if out.Class != "navigating" {
			t.Errorf("expected class navigating, got %q", out.Class)
		}
		if out.Alt != "navigating" {
			t.Errorf("expected alt navigating, got %q", out.Alt)
		}
	})
	t.Run("text is truncated to the maximum width", func(t *testing.T) {
		conf, lang := testConfLang(t)
		conf.Templates.Text = "{{.Instruction}}"
		conf.Templates.MaxWidth = 10
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		snap := navigatingSnapshot()
		snap.CurrentInstruction = "Alla rotonda prendi la terza uscita"
		out, err := pres.Render(snap, now)
		if err != nil {
			t.Fatalf("failed to render output: %s", err)
		}
		if out.Text != "Alla roto…" {
			t.Errorf("expected truncated text, got %q", out.Text)
		}
	})
	t.Run("rendering failures are reported", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(pres *Presenter) error
			wantErr    string
		}{
			{
				"text template fails", func(pres *Presenter) error {
					tpl, err := template.New("text").Funcs(template.FuncMap{
						"fail": func() (string, error) { return "", errors.New("intentionally failing") },
					}).Parse("{{fail}}")
					pres.TextTemplate = tpl
					return err
				},
				"failed to render text template",
			},
			{
				"tooltip template fails", func(pres *Presenter) error {
					tpl, err := template.New("tooltip").Parse("{{.Unknown}}")
					pres.TooltipTemplate = tpl
					return err
				},
				"failed to render tooltip template",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				pres := testPresenter(t)
				if err := tt.templateFn(pres); err != nil {
					t.Fatalf("failed to set template: %s", err)
				}
				_, err := pres.Render(navigatingSnapshot(), now)
				if err == nil {
					t.Fatal("expected rendering to fail, but didn't")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error to contain %q, got %q", tt.wantErr, err)
				}
			})
		}
	})
}

func TestPresenter_distance(t *testing.T) {
	pres := testPresenter(t)
	tests := []struct {
		meters float64
		want   string
	}{
		{-5, "0 m"},
		{4, "0 m"},
		{168, "170 m"},
		{999, "1000 m"},
		{1000, "1,0 km"},
		{1289, "1,2 km"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := pres.distance(tc.meters); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPresenter_duration(t *testing.T) {
	pres := testPresenter(t)
	tests := []struct {
		val  time.Duration
		want string
	}{
		{0, "-"},
		{30 * time.Second, "1 min"},
		{90 * time.Second, "2 min"},
		{time.Hour + 90*time.Second, "1 h 02 min"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := pres.duration(tc.val); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPresenter_templateFuncs(t *testing.T) {
	pres := testPresenter(t)
	t.Run("loc translates known labels", func(t *testing.T) {
		if got := pres.loc("ETA"); got != "Arrivo" {
			t.Errorf("expected Arrivo, got %q", got)
		}
		if got := pres.loc("Unknown"); got != "unknown" {
			t.Errorf("expected unknown labels to be returned lowercased, got %q", got)
		}
	})
	t.Run("floatFormat truncates", func(t *testing.T) {
		if got := pres.floatFormat(12.3456, 2); got != "12.34" {
			t.Errorf("expected 12.34, got %q", got)
		}
	})
	t.Run("zero time is not localized", func(t *testing.T) {
		if got := pres.localizedTime(time.Time{}); got != "-" {
			t.Errorf("expected placeholder, got %q", got)
		}
	})
	t.Run("timeFormat uses the layout", func(t *testing.T) {
		if got := pres.timeFormat(now, "15:04"); got != "09:30" {
			t.Errorf("expected 09:30, got %q", got)
		}
	})
}

func navigatingSnapshot() navigation.Snapshot {
	return navigation.Snapshot{
		ID:                      "test",
		State:                   navigation.StateNavigating,
		Destination:             destination,
		DestinationName:         "Mercato Comunale",
		Route:                   testRoute,
		CurrentStepIndex:        1,
		CurrentInstruction:      testRoute.Steps[1].Text,
		NextInstruction:         testRoute.Steps[2].Text,
		DistanceRemainingMeters: 168,
		TimeRemainingSeconds:    120,
		VoiceEnabled:            true,
	}
}

func testPresenter(t *testing.T) *Presenter {
	t.Helper()
	conf, lang := testConfLang(t)
	pres, err := New(conf, lang)
	if err != nil {
		t.Fatalf("failed to create presenter: %s", err)
	}
	return pres
}

func testConfLang(t *testing.T) (*config.Config, *spreak.Localizer) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	conf.Locale = "it-IT"
	lang, err := i18n.New(conf.Locale)
	if err != nil {
		t.Fatalf("failed to create i18n provider: %s", err)
	}
	return conf, lang
}
