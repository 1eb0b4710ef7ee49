// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kkyr/fig"
)

const (
	configEnv         = "NAVIGATOR"
	DefaultTextTpl    = "{{.Icon}} {{.Instruction}}{{if .Guiding}} · {{distance .DistanceRemainingMeters}}{{end}}"
	DefaultTooltipTpl = "{{loc \"destination\"}}: {{.DestinationLabel}}\n{{loc \"state\"}}: {{.StateText}}" +
		"{{if .Guiding}}\n{{loc \"next\"}}: {{.NextInstruction}}\n" +
		"{{loc \"remaining\"}}: {{distance .DistanceRemainingMeters}}, {{duration .TimeRemaining}}\n" +
		"{{loc \"eta\"}}: {{localizedTime .ETA}}{{end}}{{if .ErrorText}}\n{{.ErrorText}}{{end}}"
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	Navigation struct {
		// Allowed values: walking, cycling, driving
		Mode              string  `fig:"mode" default:"walking"`
		OffRouteThreshold float64 `fig:"off_route_threshold" default:"50"`
		ArrivalThreshold  float64 `fig:"arrival_threshold" default:"30"`
		// Allowed values: distance, proportional
		StepStrategy string  `fig:"step_strategy" default:"distance"`
		DisableVoice bool    `fig:"disable_voice"`
		SpeechLocale string  `fig:"speech_locale" default:"it-IT"`
		SpeechRate   float64 `fig:"speech_rate" default:"0.9"`
		// Destination is either "lat,lng" or an address that is geocoded on startup.
		Destination     string `fig:"destination"`
		DestinationName string `fig:"destination_name"`
	} `fig:"navigation"`

	Routing struct {
		// Allowed values: osrm, google
		Provider string        `fig:"provider" default:"osrm"`
		Endpoint string        `fig:"endpoint"`
		APIKey   string        `fig:"api_key"`
		Timeout  time.Duration `fig:"timeout" default:"10s"`
	} `fig:"routing"`

	Position struct {
		// Allowed values: gpsd, replay
		Source             string        `fig:"source" default:"gpsd"`
		GPSDHost           string        `fig:"gpsd_host" default:"localhost"`
		GPSDPort           int           `fig:"gpsd_port" default:"2947"`
		ReplayFile         string        `fig:"replay_file"`
		AcquisitionTimeout time.Duration `fig:"acquisition_timeout" default:"15s"`
	} `fig:"position"`

	Speech struct {
		// Allowed values: none, spd-say, notify
		Sink    string `fig:"sink" default:"spd-say"`
		Command string `fig:"command"`
	} `fig:"speech"`

	Geocoder struct {
		// Allowed values: nominatim, opencage
		Provider string        `fig:"provider" default:"nominatim"`
		Endpoint string        `fig:"endpoint"`
		APIKey   string        `fig:"api_key"`
		CacheTTL time.Duration `fig:"cache_ttl" default:"24h"`
		Disable  bool          `fig:"disable"`
	} `fig:"geocoder"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"5s"`
	} `fig:"intervals"`

	Templates struct {
		Text     string `fig:"text"`
		Tooltip  string `fig:"tooltip"`
		MaxWidth int    `fig:"max_width" default:"48"`
	} `fig:"templates"`

	Server struct {
		Listen string `fig:"listen" default:"127.0.0.1:8088"`
	} `fig:"server"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}

	return conf, conf.Validate()
}

type check struct {
	name  string
	value any
	tag   string
}

// Validate checks the configured values and fills in the derived defaults.
func (c *Config) Validate() error {
	v := validator.New()
	checks := []check{
		{"navigation mode", c.Navigation.Mode, "oneof=walking cycling driving"},
		{"off-route threshold", c.Navigation.OffRouteThreshold, "gt=0,lte=1000"},
		{"arrival threshold", c.Navigation.ArrivalThreshold, "gt=0,lte=1000"},
		{"step strategy", c.Navigation.StepStrategy, "oneof=distance proportional"},
		{"speech rate", c.Navigation.SpeechRate, "gt=0,lte=3"},
		{"speech locale", c.Navigation.SpeechLocale, "required,bcp47_language_tag"},
		{"routing provider", c.Routing.Provider, "oneof=osrm google"},
		{"routing endpoint", c.Routing.Endpoint, "omitempty,url"},
		{"position source", c.Position.Source, "oneof=gpsd replay"},
		{"gpsd port", c.Position.GPSDPort, "min=1,max=65535"},
		{"speech sink", c.Speech.Sink, "oneof=none spd-say notify"},
		{"geocoder provider", c.Geocoder.Provider, "oneof=nominatim opencage"},
		{"geocoder endpoint", c.Geocoder.Endpoint, "omitempty,url"},
		{"template width", c.Templates.MaxWidth, "gte=0"},
		{"server listen address", c.Server.Listen, "required"},
	}
	if c.Routing.Provider == "google" {
		checks = append(checks, check{"routing API key", c.Routing.APIKey, "required"})
	}
	if c.Position.Source == "replay" {
		checks = append(checks, check{"replay file", c.Position.ReplayFile, "required,file"})
	}
	if c.Geocoder.Provider == "opencage" && !c.Geocoder.Disable {
		checks = append(checks, check{"geocoder API key", c.Geocoder.APIKey, "required"})
	}
	for _, chk := range checks {
		if err := v.Var(chk.value, chk.tag); err != nil {
			return fmt.Errorf("invalid %s %v: %w", chk.name, chk.value, err)
		}
	}

	if c.Routing.Timeout <= 0 {
		return fmt.Errorf("invalid routing timeout: %s", c.Routing.Timeout)
	}
	if c.Position.AcquisitionTimeout < time.Second {
		return fmt.Errorf("invalid acquisition timeout: %s", c.Position.AcquisitionTimeout)
	}
	if c.Intervals.Output < time.Second {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}

	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
