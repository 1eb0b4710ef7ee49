// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"distance":      p.distance,
		"duration":      p.duration,
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"floatFormat":   p.floatFormat,
		"truncate":      p.truncate,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	val = strings.ToLower(val)
	if raw, ok := i18nVars[val]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	if val.IsZero() {
		return "-"
	}
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// distance formats meters, switching to kilometers from 1000 m.
func (p *Presenter) distance(meters float64) string {
	if meters < 0 {
		meters = 0
	}
	if meters < 1000 {
		return fmt.Sprintf("%d m", int(math.Round(meters/10)*10))
	}
	return fmt.Sprintf("%s km", strings.Replace(p.floatFormat(meters/1000, 1), ".", ",", 1))
}

// duration formats a remaining time as minutes or hours and minutes.
func (p *Presenter) duration(val time.Duration) string {
	if val <= 0 {
		return "-"
	}
	minutes := int(math.Ceil(val.Minutes()))
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	return fmt.Sprintf("%d h %02d min", minutes/60, minutes%60)
}

func (p *Presenter) truncate(val string, width int) string {
	return runewidth.Truncate(val, width, ellipsis)
}
