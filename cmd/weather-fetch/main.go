// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package main implements the weather-fetch terminal client.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/geobus"
	"github.com/wneessen/weather-fetch/internal/http"
	"github.com/wneessen/weather-fetch/internal/i18n"
	"github.com/wneessen/weather-fetch/internal/lastquery"
	"github.com/wneessen/weather-fetch/internal/location"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/presenter"
	"github.com/wneessen/weather-fetch/internal/service"
	"github.com/wneessen/weather-fetch/internal/store"
)

const stateBufferSize = 16

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer cancel()

	log := logger.New(slog.LevelError)

	confPath := flag.String("config", "", "path to the config file")
	city := flag.String("city", "", "search the weather for this city at start")
	reset := flag.Bool("reset", false, "forget the location permission and request it again")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error("failed to load .env file", logger.Err(err))
		os.Exit(1)
	}

	conf, err := config.Load(*confPath)
	if err != nil {
		log.Error("failed to load config", logger.Err(err))
		os.Exit(1)
	}
	log = logger.New(conf.LogLevel)

	if err = run(ctx, conf, log, *city, *reset); err != nil {
		log.Error("weather-fetch failed", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, conf *config.Config, log *logger.Logger, city string, reset bool) error {
	localizer, err := i18n.New(conf.Locale)
	if err != nil {
		return fmt.Errorf("failed to initialize localizer: %w", err)
	}

	kv, err := store.New(ctx, conf, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("failed to close storage", logger.Err(err))
		}
	}()
	queries := lastquery.New(kv, log)

	client := http.New(log)
	coder, err := service.NewGeocoder(conf, client)
	if err != nil {
		return err
	}
	provider, err := service.NewWeatherProvider(conf, client, coder, log)
	if err != nil {
		return err
	}

	locator, err := location.New(geobus.New(log), location.Providers(conf, client, coder, log), kv,
		conf.GeoLocation.Permission, log)
	if err != nil {
		return err
	}
	if reset {
		queries.ResetLaunched(ctx)
		if err = locator.Reset(ctx); err != nil {
			return err
		}
	}

	serv, err := service.New(ctx, conf, log, localizer, provider, locator, queries)
	if err != nil {
		return fmt.Errorf("failed to initialize weather-fetch service: %w", err)
	}
	pres, err := presenter.New(conf, localizer)
	if err != nil {
		return fmt.Errorf("failed to initialize presenter: %w", err)
	}

	states, unsubscribe := serv.Subscribe(stateBufferSize)
	defer unsubscribe()

	go readSearches(ctx, os.Stdin, serv, log)
	if city != "" {
		if err = serv.Search(ctx, city); err != nil {
			log.Error("failed to search city", logger.Err(err))
		}
	}

	log.Info("starting weather-fetch service", slog.String("version", version),
		slog.String("commit", commit), slog.String("date", date), slog.String("provider", provider.Name()))
	err = runUntilDone(ctx, serv.Run,
		func(ctx context.Context) {
			if err := locator.Run(ctx); err != nil {
				log.Error("location tracking failed", logger.Err(err))
			}
		},
		func(ctx context.Context) {
			printStates(ctx, os.Stdout, pres, serv.State(), states, log)
		},
	)
	log.Info("shutting down weather-fetch service")
	if err != nil {
		return fmt.Errorf("failed to run weather-fetch service: %w", err)
	}
	return nil
}

// runUntilDone starts workers and runs serve. When serve returns, the workers are canceled and
// awaited before its error is returned.
func runUntilDone(ctx context.Context, serve func(context.Context) error, workers ...func(context.Context)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, worker := range workers {
		wg.Go(func() { worker(ctx) })
	}
	err := serve(ctx)
	cancel()
	wg.Wait()
	return err
}

// printStates renders initial and every following state to w until ctx is done. Output equal to
// the previous one is skipped.
func printStates(ctx context.Context, w io.Writer, pres *presenter.Presenter, initial service.State,
	states <-chan service.State, log *logger.Logger,
) {
	var last string
	render := func(state service.State) {
		out, err := pres.Render(pres.BuildContext(state.Result, state.Error, state.SearchText, state.UpdatedAt))
		if err != nil {
			log.Error("failed to render weather state", logger.Err(err))
			return
		}
		if out == last {
			return
		}
		last = out
		if _, err = fmt.Fprintln(w, out); err != nil {
			log.Error("failed to print weather state", logger.Err(err))
		}
	}

	render(initial)
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			render(state)
		}
	}
}

// readSearches issues a search for every non-empty line read from r.
func readSearches(ctx context.Context, r io.Reader, serv *service.Service, log *logger.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		err := serv.Search(ctx, scanner.Text())
		switch {
		case errors.Is(err, service.ErrEmptyCity):
			continue
		case err != nil:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error("failed to read from stdin", logger.Err(err))
	}
}
