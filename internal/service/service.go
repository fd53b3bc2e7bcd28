// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/vorlif/spreak"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/lastquery"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/weather"
)

const (
	locationBufferSize = 32
	actionBufferSize   = 16
	refreshJobName     = "weather_refresh_job"
)

// ErrEmptyCity is returned by Search if the city name is empty after trimming.
var ErrEmptyCity = errors.New("city name must not be empty")

// LocationSource emits device positions and permission denials.
type LocationSource interface {
	Subscribe(size int) (<-chan geobus.Result, func())
	RequestPermission(ctx context.Context)
}

// State is the controller state the presentation layer renders.
type State struct {
	Result     *weather.Result
	Error      string
	SearchText string
	Query      weather.Query
	UpdatedAt  time.Time
}

type completion struct {
	id     string
	query  weather.Query
	result *weather.Result
	err    error
}

// Service owns the weather state. All state changes happen on the goroutine that executes Run,
// fetches run concurrently and hand their completion back to it. There is no cancellation of
// superseded fetches, the last completion wins.
type Service struct {
	config    *config.Config
	logger    *logger.Logger
	localizer *spreak.Localizer
	provider  weather.Provider
	location  LocationSource
	queries   *lastquery.Store
	scheduler gocron.Scheduler

	locations   <-chan geobus.Result
	unsubscribe func()
	initial     weather.Query
	actions     chan func(context.Context)
	completions chan completion
	fetches     sync.WaitGroup
	now         func() time.Time

	stateLock sync.RWMutex
	state     State

	subLock     sync.Mutex
	subscribers map[chan State]struct{}
}

// New subscribes to the location source and loads the last searched city. If one was saved,
// a fetch for it is queued and issued first when Run starts.
func New(ctx context.Context, conf *config.Config, log *logger.Logger, localizer *spreak.Localizer,
	provider weather.Provider, location LocationSource, queries *lastquery.Store,
) (*Service, error) {
	if provider == nil {
		return nil, errors.New("weather provider is required")
	}
	if location == nil {
		return nil, errors.New("location source is required")
	}
	if queries == nil {
		return nil, errors.New("last query store is required")
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	service := &Service{
		config:      conf,
		logger:      log,
		localizer:   localizer,
		provider:    provider,
		location:    location,
		queries:     queries,
		scheduler:   scheduler,
		actions:     make(chan func(context.Context), actionBufferSize),
		completions: make(chan completion),
		now:         time.Now,
		subscribers: make(map[chan State]struct{}),
	}
	service.locations, service.unsubscribe = location.Subscribe(locationBufferSize)

	if city, ok := queries.Load(ctx); ok && strings.TrimSpace(city) != "" {
		log.Debug("recovering last searched city", slog.String("city", city))
		service.state.SearchText = city
		service.initial = weather.ByCity(city)
	}
	return service, nil
}

// Run executes the controller until ctx is done. It issues the recovery fetch, performs the
// first-run permission request and starts the refresh job and the sleep monitor.
func (s *Service) Run(ctx context.Context) error {
	defer s.unsubscribe()

	if !s.initial.IsZero() {
		s.issue(ctx, s.initial)
	}
	if !s.queries.HasLaunched(ctx) {
		s.logger.Info("first launch, requesting location permission")
		s.location.RequestPermission(ctx)
		s.queries.SetHasLaunched(ctx)
	}

	if !s.config.Intervals.DisableRefresh {
		if err := s.createScheduledJob(ctx, s.config.Intervals.Refresh, s.Refresh, refreshJobName); err != nil {
			return err
		}
		s.scheduler.Start()
	}

	var monitors sync.WaitGroup
	if !s.config.DisableSleepMonitor {
		monitors.Go(func() {
			s.monitorSleepResume(ctx)
		})
	}

	locations := s.locations
	for {
		select {
		case <-ctx.Done():
			err := s.scheduler.Shutdown()
			monitors.Wait()
			s.fetches.Wait()
			if err != nil {
				return fmt.Errorf("failed to shut down scheduler: %w", err)
			}
			return nil
		case r, ok := <-locations:
			if !ok {
				locations = nil
				continue
			}
			s.processLocationUpdate(ctx, r)
		case action := <-s.actions:
			action(ctx)
		case c := <-s.completions:
			s.complete(c)
		}
	}
}

// Search persists city as the last searched city and fetches the weather for it.
func (s *Service) Search(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return ErrEmptyCity
	}
	return s.post(ctx, func(ctx context.Context) {
		s.queries.Save(ctx, city)
		s.updateState(func(st *State) {
			st.SearchText = city
		})
		s.issue(ctx, weather.ByCity(city))
	})
}

// Refresh fetches the weather for the last issued query again. Without a query it does nothing.
func (s *Service) Refresh(ctx context.Context) {
	err := s.post(ctx, func(ctx context.Context) {
		query := s.State().Query
		if query.IsZero() {
			return
		}
		s.logger.Debug("refreshing weather data", slog.String("query", query.String()))
		s.issue(ctx, query)
	})
	if err != nil {
		s.logger.Debug("refresh skipped", logger.Err(err))
	}
}

// State returns a copy of the current state.
func (s *Service) State() State {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	return s.state
}

// Subscribe returns a channel that receives the state after every change and a func to
// unsubscribe. Slow subscribers miss updates.
func (s *Service) Subscribe(size int) (<-chan State, func()) {
	if size < 1 {
		size = 1
	}
	ch := make(chan State, size)
	s.subLock.Lock()
	s.subscribers[ch] = struct{}{}
	s.subLock.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.subLock.Lock()
			delete(s.subscribers, ch)
			s.subLock.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// post hands action to the Run goroutine.
func (s *Service) post(ctx context.Context, action func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.actions <- action:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// processLocationUpdate fetches the weather for a new position. A denial falls back to the last
// searched city, without one nothing happens.
func (s *Service) processLocationUpdate(ctx context.Context, r geobus.Result) {
	if r.Denied {
		s.logger.Info("location access denied, falling back to last searched city")
		city, ok := s.queries.Load(ctx)
		if !ok || strings.TrimSpace(city) == "" {
			s.logger.Debug("no last searched city available")
			return
		}
		s.updateState(func(st *State) {
			st.SearchText = city
		})
		s.issue(ctx, weather.ByCity(city))
		return
	}

	s.logger.Debug("received geolocation update", slog.Float64("lat", r.Lat), slog.Float64("lon", r.Lon),
		slog.String("source", r.Source))
	s.issue(ctx, weather.ByCoordinates(r.Lat, r.Lon))
}

// issue starts a fetch for query on its own goroutine.
func (s *Service) issue(ctx context.Context, query weather.Query) {
	id := uuid.NewString()
	s.updateState(func(st *State) {
		st.Query = query
	})
	s.logger.Debug("fetching weather data", slog.String("fetch_id", id), slog.String("query", query.String()),
		slog.String("provider", s.provider.Name()))

	s.fetches.Go(func() {
		result, err := s.provider.Fetch(ctx, query)
		select {
		case s.completions <- completion{id: id, query: query, result: result, err: err}:
		case <-ctx.Done():
		}
	})
}

// complete applies a fetch outcome. Success clears the error, failure clears the result.
func (s *Service) complete(c completion) {
	if c.err != nil {
		s.logger.Error("failed to fetch weather data", slog.String("fetch_id", c.id),
			slog.String("query", c.query.String()), logger.Err(c.err))
		s.updateState(func(st *State) {
			st.Result = nil
			st.Error = s.errorMessage(c.err)
		})
		return
	}

	s.logger.Debug("weather data updated", slog.String("fetch_id", c.id),
		slog.String("location", c.result.Location), slog.Float64("temperature", c.result.TemperatureC))
	s.updateState(func(st *State) {
		st.Result = c.result
		st.Error = ""
		st.UpdatedAt = s.now()
	})
}

// updateState applies fn to the state and broadcasts the new state.
func (s *Service) updateState(fn func(*State)) {
	s.stateLock.Lock()
	fn(&s.state)
	state := s.state
	s.stateLock.Unlock()

	s.subLock.Lock()
	defer s.subLock.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- state:
		default:
			s.logger.Debug("dropping state update for slow subscriber")
		}
	}
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}
