// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package spdsay

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"testing"

	"github.com/mercatocomunale/navigator/internal/logger"
	"github.com/mercatocomunale/navigator/internal/speech"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(slog.LevelDebug, io.Discard)
}

func TestNew(t *testing.T) {
	t.Run("default command is used", func(t *testing.T) {
		sink, err := New("", testLogger())
		if err != nil {
			t.Fatalf("failed to create sink: %s", err)
		}
		if sink.command != DefaultCommand {
			t.Errorf("expected command %s, got %s", DefaultCommand, sink.command)
		}
		if sink.Name() != name {
			t.Errorf("expected name %s, got %s", name, sink.Name())
		}
	})
	t.Run("missing logger fails", func(t *testing.T) {
		if _, err := New("", nil); err == nil {
			t.Error("expected sink creation to fail")
		}
	})
}

func TestSpdSay_Speak(t *testing.T) {
	t.Run("missing client is unavailable", func(t *testing.T) {
		sink, err := New("navigator-no-such-speech-client", testLogger())
		if err != nil {
			t.Fatalf("failed to create sink: %s", err)
		}
		err = sink.Speak(t.Context(), "Parti", "it-IT", 0.9)
		if !errors.Is(err, speech.ErrSpeechUnavailable) {
			t.Errorf("expected speech unavailable error, got %v", err)
		}
	})
	t.Run("client is run", func(t *testing.T) {
		if _, err := exec.LookPath("true"); err != nil {
			t.Skip("true command not available")
		}
		sink, err := New("true", testLogger())
		if err != nil {
			t.Fatalf("failed to create sink: %s", err)
		}
		if err = sink.Speak(t.Context(), "Parti", "it-IT", 0.9); err != nil {
			t.Errorf("failed to speak: %s", err)
		}
	})
	t.Run("client failure is reported", func(t *testing.T) {
		if _, err := exec.LookPath("false"); err != nil {
			t.Skip("false command not available")
		}
		sink, err := New("false", testLogger())
		if err != nil {
			t.Fatalf("failed to create sink: %s", err)
		}
		err = sink.Speak(t.Context(), "Parti", "it-IT", 0.9)
		if err == nil {
			t.Fatal("expected speaking to fail")
		}
		if errors.Is(err, speech.ErrSpeechUnavailable) {
			t.Error("expected a failing client not to be reported as unavailable")
		}
	})
}

func TestArgs(t *testing.T) {
	want := []string{"-w", "-l", "it", "-r", "-10", "--", "Gira a destra"}
	if got := Args("Gira a destra", "it-IT", 0.9); !slices.Equal(got, want) {
		t.Errorf("expected args %v, got %v", want, got)
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"it-IT", "it"},
		{"it", "it"},
		{"en-US", "en"},
		{"de_DE", "de"},
		{"", "it"},
		{"not a locale", "it"},
	}
	for _, tc := range tests {
		t.Run(tc.locale, func(t *testing.T) {
			if got := Language(tc.locale); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		rate float64
		want int
	}{
		{1, 0},
		{0.9, -10},
		{1.5, 50},
		{3, 100},
		{0.01, -99},
		{0, 0},
		{-1, 0},
	}
	for _, tc := range tests {
		if got := Rate(tc.rate); got != tc.want {
			t.Errorf("rate %f: expected %d, got %d", tc.rate, tc.want, got)
		}
	}
}
