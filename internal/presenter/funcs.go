// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":     p.timeFormat,
		"localizedTime":  p.localizedTime,
		"floatFormat":    p.floatFormat,
		"temp":           p.temp,
		"windDir":        p.windDir,
		"windDirIcon":    p.windDirIcon,
		"emojiWithSpace": emojiWithSpace,
		"loc":            p.loc,
		"lc":             strings.ToLower,
		"uc":             strings.ToUpper,
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
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// temp rounds to one decimal and drops a trailing zero.
func (p *Presenter) temp(val float64) string {
	return strconv.FormatFloat(math.Round(val*10)/10, 'f', -1, 64)
}

func (p *Presenter) windDir(deg int) string {
	return p.degToString(float64(deg))
}

func (p *Presenter) degToString(deg float64) string {
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return directions[int((deg+22.5)/45)%8]
}

func (p *Presenter) windDirIcon(val string) string {
	return windDirIcons[strings.ToUpper(val)]
}

// emojiWithSpace pads an emoji to two terminal cells followed by a space.
func emojiWithSpace(emoji string) string {
	pad := 2 - runewidth.StringWidth(emoji)
	if pad < 0 {
		pad = 0
	}
	return emoji + strings.Repeat(" ", pad+1)
}
