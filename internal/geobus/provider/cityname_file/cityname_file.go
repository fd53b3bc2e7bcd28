// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package cityname_file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/geocode"
)

const (
	name     = "cityname_file"
	ttlTime  = time.Hour * 12
	pollTime = time.Minute * 5
)

var ErrNoCityName = errors.New("no resolvable city name found in cityname file")

// CitynameFileProvider emits the position of a city name that is read from a file. The first
// line the geocoder can resolve wins, lines starting with # are comments.
type CitynameFileProvider struct {
	name     string
	path     string
	period   time.Duration
	ttl      time.Duration
	coder    geocode.Geocoder
	locateFn func(ctx context.Context) (geobus.Coordinate, error)
}

// NewCitynameFileProvider initializes a CitynameFileProvider with a file path and default update
// interval and TTL settings.
func NewCitynameFileProvider(path string, coder geocode.Geocoder) (*CitynameFileProvider, error) {
	if coder == nil {
		return nil, errors.New("geocoder is required")
	}
	provider := &CitynameFileProvider{
		coder:  coder,
		name:   name,
		path:   path,
		period: pollTime,
		ttl:    ttlTime,
	}
	provider.locateFn = provider.readFile
	return provider, nil
}

func (p *CitynameFileProvider) Name() string {
	return p.name
}

// LookupStream re-reads the file every period and emits the position whenever it changed.
func (p *CitynameFileProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	go func() {
		defer close(out)
		state := geobus.GeolocationState{}
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
				}
			}
			firstRun = false

			coord, err := p.locateFn(ctx)
			if err != nil {
				continue
			}
			coord.Acc = geobus.AccuracyCity
			coord.Found = true
			if !state.HasChanged(coord) {
				continue
			}
			state.Update(coord)

			select {
			case <-ctx.Done():
				return
			case out <- p.createResult(key, coord):
			}
		}
	}()
	return out
}

// createResult composes and returns a Result using provided geolocation data and metadata.
func (p *CitynameFileProvider) createResult(key string, coord geobus.Coordinate) geobus.Result {
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

// readFile geocodes the city names in the file until one resolves.
func (p *CitynameFileProvider) readFile(ctx context.Context) (geobus.Coordinate, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return geobus.Coordinate{}, fmt.Errorf("failed to read cityname file %q: %w", p.path, err)
	}
	for line := range strings.Lines(string(data)) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		coords, err := p.coder.Search(ctx, line)
		if err != nil {
			continue
		}
		return coords, nil
	}
	return geobus.Coordinate{}, ErrNoCityName
}
