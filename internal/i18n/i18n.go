// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package i18n provides the localizer for host-facing texts. Source texts are English;
// Italian is the fallback for locales without a catalogue.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/Xuanwo/go-locale"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"
)

//go:embed locale/*
var locales embed.FS

// Tag returns the language tag for loc. An empty loc selects the system locale.
func Tag(loc string) language.Tag {
	if loc != "" {
		if tag, err := language.Parse(loc); err == nil {
			return tag
		}
		return language.Italian
	}
	tag, err := locale.Detect()
	if err != nil {
		return language.Italian
	}
	return tag
}

func New(loc string) (*spreak.Localizer, error) {
	tag := Tag(loc)

	localeFS, err := fs.Sub(locales, "locale")
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}

	bundle, err := spreak.NewBundle(
		spreak.WithSourceLanguage(language.English),
		spreak.WithFallbackLanguage(language.Italian),
		spreak.WithDomainFs(spreak.NoDomain, localeFS),
		spreak.WithLanguage(tag, language.Italian),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create i18n bundle: %w", err)
	}
	return spreak.NewLocalizer(bundle, tag), nil
}
