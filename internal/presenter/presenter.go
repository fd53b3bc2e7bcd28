// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"
	"github.com/wneessen/go-moonphase"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/i18n"
	"github.com/wneessen/weather-fetch/internal/weather"
)

const msgWaiting = "Waiting for location…"

// TemplateContext is the data the text and error templates are executed with.
type TemplateContext struct {
	Result     *weather.Result
	Error      string
	SearchText string
	UpdatedAt  time.Time
	UpdatedAgo string

	Condition     string
	ConditionIcon string
	IsDaytime     bool
	SunriseTime   time.Time
	SunsetTime    time.Time
	Moonphase     string
	MoonphaseIcon string
}

// Presenter renders the controller state for the terminal.
type Presenter struct {
	TextTemplate  *template.Template
	ErrorTemplate *template.Template

	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
	now       func() time.Time
}

// New parses the configured templates and verifies that they render against a sample state.
func New(conf *config.Config, localizer *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	pres := &Presenter{
		localizer: localizer,
		humanizer: collection.CreateHumanizer(i18n.Tag(conf.Locale)),
		now:       time.Now,
	}

	tpl, err := template.New("text").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	pres.TextTemplate = tpl

	tpl, err = template.New("error").Funcs(pres.templateFuncMap()).Parse(conf.Templates.Error)
	if err != nil {
		return nil, fmt.Errorf("failed to parse error template: %w", err)
	}
	pres.ErrorTemplate = tpl

	sample := pres.BuildContext(sampleResult, "", sampleResult.Location, pres.now())
	if err = pres.TextTemplate.Execute(new(bytes.Buffer), sample); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	sample = pres.BuildContext(nil, "sample error", "", time.Time{})
	if err = pres.ErrorTemplate.Execute(new(bytes.Buffer), sample); err != nil {
		return nil, fmt.Errorf("failed to render error template: %w", err)
	}

	return pres, nil
}

// BuildContext derives the template context from a controller state snapshot.
func (p *Presenter) BuildContext(result *weather.Result, errMsg, searchText string, updatedAt time.Time) TemplateContext {
	now := p.now()
	tplCtx := TemplateContext{
		Result:     result,
		Error:      errMsg,
		SearchText: searchText,
		UpdatedAt:  updatedAt,
	}
	if !updatedAt.IsZero() {
		tplCtx.UpdatedAgo = p.humanizer.NaturalTime(updatedAt)
	}

	moon := moonphase.New(now)
	tplCtx.Moonphase = p.localizer.Get(moon.PhaseName())
	tplCtx.MoonphaseIcon = moonPhaseIcons[moon.PhaseName()]

	if result == nil {
		return tplCtx
	}

	local := now.In(time.Local)
	rise, set := sunrise.SunriseSunset(result.Coordinates.Lat, result.Coordinates.Lon, local.Year(),
		local.Month(), local.Day())
	tplCtx.SunriseTime, tplCtx.SunsetTime = rise.In(time.Local), set.In(time.Local)
	tplCtx.IsDaytime = isDaytime(result.ConditionIcon, now, rise, set)
	tplCtx.Condition = p.localizer.Get(result.ConditionMain)
	tplCtx.ConditionIcon = conditionIcon(result.ConditionMain, tplCtx.IsDaytime)

	return tplCtx
}

// Render executes the template matching the state. An error takes precedence over a result,
// without either the waiting message is returned.
func (p *Presenter) Render(tplCtx TemplateContext) (string, error) {
	buf := bytes.NewBuffer(nil)
	switch {
	case tplCtx.Error != "":
		if err := p.ErrorTemplate.Execute(buf, tplCtx); err != nil {
			return "", fmt.Errorf("failed to render error template: %w", err)
		}
	case tplCtx.Result == nil:
		return p.localizer.Get(msgWaiting), nil
	default:
		if err := p.TextTemplate.Execute(buf, tplCtx); err != nil {
			return "", fmt.Errorf("failed to render text template: %w", err)
		}
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// isDaytime prefers the day/night marker of the provider icon code and falls back to the
// computed sunrise and sunset. Polar day and night yield zero times.
func isDaytime(icon string, now, rise, set time.Time) bool {
	switch {
	case strings.HasSuffix(icon, "d"):
		return true
	case strings.HasSuffix(icon, "n"):
		return false
	case rise.IsZero() || set.IsZero():
		return false
	}
	return now.After(rise) && now.Before(set)
}

func conditionIcon(main string, day bool) string {
	icons, ok := conditionIcons[main]
	if !ok {
		return defaultConditionIcon
	}
	return icons[day]
}

var sampleResult = &weather.Result{
	Location:             "Sample",
	TemperatureC:         20,
	FeelsLikeC:           19,
	TempMinC:             15,
	TempMaxC:             22,
	PressureHPa:          1013,
	HumidityPercent:      50,
	WindSpeed:            3,
	WindDirectionDeg:     180,
	ConditionID:          800,
	ConditionMain:        weather.ConditionClear,
	ConditionDescription: "clear sky",
	ConditionIcon:        "01d",
	Coordinates:          geobus.Coordinate{Lat: 0, Lon: 0, Found: true},
	Provider:             "sample",
}
