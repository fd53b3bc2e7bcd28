// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/logger"
)

const (
	// DefaultAddress is the address of a gpsd running on the local host.
	DefaultAddress = "localhost:2947"
	// fallbackAccuracy is used when gpsd reports a fix without error estimates.
	fallbackAccuracy = 50
	name             = "gpsd"
)

// fix is a single position report of gpsd.
type fix struct {
	Lat, Lon float64
	Acc      float64
	Mode     gpsd.Mode
}

// GeolocationGPSDProvider streams positions reported by a gpsd daemon.
type GeolocationGPSDProvider struct {
	name    string
	addr    string
	logger  *logger.Logger
	period  time.Duration
	ttl     time.Duration
	watchFn func(ctx context.Context, emit func(fix)) error
}

func NewGeolocationGPSDProvider(addr string, log *logger.Logger) *GeolocationGPSDProvider {
	if addr == "" {
		addr = DefaultAddress
	}
	provider := &GeolocationGPSDProvider{
		name:   name,
		addr:   addr,
		logger: log,
		period: time.Second * 30,
		ttl:    time.Minute * 2,
	}
	provider.watchFn = provider.watch
	return provider
}

func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// LookupStream watches gpsd for TPV reports with at least a 2D fix and emits significant
// position changes. Lost connections are re-established after the provider period.
func (p *GeolocationGPSDProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)

	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		emit := func(f fix) {
			if f.Mode < gpsd.Mode2D {
				return
			}
			coord := geobus.Coordinate{
				Lat:   geobus.Truncate(f.Lat, geobus.TruncPrecision),
				Lon:   geobus.Truncate(f.Lon, geobus.TruncPrecision),
				Acc:   f.Acc,
				Found: true,
			}
			if coord.Acc <= 0 {
				coord.Acc = fallbackAccuracy
			}
			if !state.HasChanged(coord) {
				return
			}
			state.Update(coord)

			select {
			case <-ctx.Done():
			case out <- p.createResult(key, coord):
			}
		}

		for {
			if err := p.watchFn(ctx, emit); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Debug("gpsd watch ended", logger.Err(err), "address", p.addr)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()

	return out
}

// watch connects to gpsd and forwards TPV reports to emit until the connection ends or ctx is done.
func (p *GeolocationGPSDProvider) watch(ctx context.Context, emit func(fix)) error {
	session, err := gpsd.Dial(p.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to gpsd at %q: %w", p.addr, err)
	}
	session.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok {
			return
		}
		emit(fix{Lat: tpv.Lat, Lon: tpv.Lon, Acc: math.Max(tpv.Epx, tpv.Epy), Mode: tpv.Mode})
	})

	done := session.Watch()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errors.New("gpsd connection closed")
	}
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *GeolocationGPSDProvider) createResult(key string, coord geobus.Coordinate) geobus.Result {
	return geobus.Result{
		Key:            key,
		Lat:            coord.Lat,
		Lon:            coord.Lon,
		AccuracyMeters: coord.Acc,
		Source:         p.name,
		At:             time.Now(),
		TTL:            p.ttl,
	}
}
