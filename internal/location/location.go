// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package location decides whether the device position may be used and, once it may, tracks it
// through the geobus.
package location

import (
	"context"
	"fmt"
	"sync"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/store"
)

const (
	// Key is the geobus key of the device position.
	Key = "location"
	// KeyAuthorization is the store key of the persisted authorization.
	KeyAuthorization = "locationAuthorization"

	denialSource = "permission"
)

// Authorization is the user's decision about location access.
type Authorization int

const (
	Undetermined Authorization = iota
	Granted
	Denied
)

func (a Authorization) String() string {
	switch a {
	case Granted:
		return config.PermissionGranted
	case Denied:
		return config.PermissionDenied
	default:
		return "undetermined"
	}
}

func parseAuthorization(value string) Authorization {
	switch value {
	case config.PermissionGranted:
		return Granted
	case config.PermissionDenied:
		return Denied
	default:
		return Undetermined
	}
}

// Locator publishes the device position, or a denial, on the geobus under Key. Tracking runs on
// the context passed to Run.
type Locator struct {
	bus          *geobus.GeoBus
	orchestrator *geobus.Orchestrator
	kv           store.KV
	log          *logger.Logger
	decision     Authorization

	mu       sync.Mutex
	runCtx   context.Context
	tracking bool
	denied   bool
	wg       sync.WaitGroup
}

// New returns a Locator. permission is the decision RequestPermission records, one of
// config.PermissionGranted and config.PermissionDenied.
func New(bus *geobus.GeoBus, providers []geobus.Provider, kv store.KV, permission string,
	log *logger.Logger,
) (*Locator, error) {
	decision := parseAuthorization(permission)
	if decision == Undetermined {
		return nil, fmt.Errorf("invalid location permission: %q", permission)
	}
	return &Locator{
		bus:          bus,
		orchestrator: bus.NewOrchestrator(providers),
		kv:           kv,
		log:          log,
		decision:     decision,
	}, nil
}

// Subscribe returns a channel of position updates and denials and a func to unsubscribe.
func (l *Locator) Subscribe(size int) (<-chan geobus.Result, func()) {
	return l.bus.Subscribe(Key, size)
}

// Run applies the persisted authorization and blocks until ctx is done and tracking stopped.
func (l *Locator) Run(ctx context.Context) error {
	l.mu.Lock()
	l.runCtx = ctx
	l.mu.Unlock()

	auth := l.Authorization(ctx)
	l.log.Debug("applying persisted location authorization", "authorization", auth.String())
	l.apply(auth)

	<-ctx.Done()
	l.wg.Wait()
	return nil
}

// RequestPermission records the configured decision and applies it.
func (l *Locator) RequestPermission(ctx context.Context) {
	if err := l.kv.Set(ctx, KeyAuthorization, l.decision.String()); err != nil {
		l.log.Error("failed to persist location authorization", logger.Err(err))
	}
	l.log.Info("location permission decided", "authorization", l.decision.String())
	l.apply(l.decision)
}

// Authorization returns the persisted authorization. Read failures count as undetermined.
func (l *Locator) Authorization(ctx context.Context) Authorization {
	value, ok, err := l.kv.Get(ctx, KeyAuthorization)
	if err != nil {
		l.log.Error("failed to read location authorization", logger.Err(err))
		return Undetermined
	}
	if !ok {
		return Undetermined
	}
	return parseAuthorization(value)
}

// Reset forgets the persisted authorization.
func (l *Locator) Reset(ctx context.Context) error {
	if err := l.kv.Delete(ctx, KeyAuthorization); err != nil {
		return fmt.Errorf("failed to reset location authorization: %w", err)
	}
	return nil
}

// apply starts tracking or publishes a denial. Before Run was called it does nothing, Run picks
// up the persisted authorization itself. Each outcome happens at most once.
func (l *Locator) apply(auth Authorization) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.runCtx == nil {
		return
	}

	switch auth {
	case Granted:
		if l.tracking {
			return
		}
		l.tracking = true
		ctx := l.runCtx
		l.wg.Go(func() {
			l.orchestrator.Track(ctx, Key)
		})
	case Denied:
		if l.denied {
			return
		}
		l.denied = true
		l.bus.Deny(Key, denialSource)
	}
}
