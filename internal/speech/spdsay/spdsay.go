// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package spdsay speaks through the speech-dispatcher command line client.
package spdsay

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/speech"
)

const (
	name           = "spd-say"
	DefaultCommand = "spd-say"
)

type SpdSay struct {
	command string
	log     *logger.Logger
}

// New returns a sink running command. An empty command selects spd-say from PATH.
func New(command string, log *logger.Logger) (*SpdSay, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if command == "" {
		command = DefaultCommand
	}
	return &SpdSay{command: command, log: log}, nil
}

func (s *SpdSay) Name() string {
	return name
}

// Speak runs the client and waits until the text has been spoken.
func (s *SpdSay) Speak(ctx context.Context, text, locale string, rate float64) error {
	path, err := exec.LookPath(s.command)
	if err != nil {
		return fmt.Errorf("%w: %w", speech.ErrSpeechUnavailable, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, Args(text, locale, rate)...)
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		return fmt.Errorf("failed to run %s: %w (%s)", s.command, err, strings.TrimSpace(stderr.String()))
	}
	s.log.Debug("text spoken", slog.String("command", s.command), slog.String("locale", locale))
	return nil
}

// Args returns the client arguments for text. The locale is reduced to its base
// language and the rate is mapped from a speed factor onto the -100..100 scale.
func Args(text, locale string, rate float64) []string {
	return []string{"-w", "-l", Language(locale), "-r", strconv.Itoa(Rate(rate)), "--", text}
}

// Language returns the base language of locale, falling back to Italian.
func Language(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "it"
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "it"
	}
	return base.String()
}

// Rate maps a speed factor, 1.0 being normal speed, onto the client's rate scale.
func Rate(rate float64) int {
	if rate <= 0 {
		return 0
	}
	value := int(math.Round((rate - 1) * 100))
	return max(-100, min(100, value))
}
