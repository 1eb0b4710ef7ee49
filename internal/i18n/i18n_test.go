// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestNew(t *testing.T) {
	t.Run("new i18n provider with empty locale string succeeds", func(t *testing.T) {
		provider, err := New("")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if provider == nil {
			t.Fatal("expected i18n provider to be non-nil")
		}
	})
	t.Run("italian texts are translated", func(t *testing.T) {
		provider, err := New("it-IT")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if got := provider.Get("No route available"); got != "Nessun percorso disponibile" {
			t.Errorf("expected italian translation, got %q", got)
		}
	})
	t.Run("english keeps the source texts", func(t *testing.T) {
		provider, err := New("en")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		if got := provider.Get("Off route"); got != "Off route" {
			t.Errorf("expected source text, got %q", got)
		}
	})
}

func TestTag(t *testing.T) {
	tests := []struct {
		loc  string
		want language.Tag
	}{
		{"it-IT", language.MustParse("it-IT")},
		{"en", language.English},
		{"not a locale", language.Italian},
	}
	for _, tc := range tests {
		t.Run(tc.loc, func(t *testing.T) {
			if got := Tag(tc.loc); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
