// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"testing/synctest"

	"github.com/wneessen/weather-fetch/internal/config"
	"github.com/wneessen/weather-fetch/internal/i18n"
	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/presenter"
	"github.com/wneessen/weather-fetch/internal/service"
	"github.com/wneessen/weather-fetch/internal/weather"
)

func TestPrintStates(t *testing.T) {
	t.Run("states are printed until the channel closes", func(t *testing.T) {
		pres := testPresenter(t)
		states := make(chan service.State, 4)
		states <- service.State{Error: "Something failed"}
		states <- service.State{Error: "Something failed"}
		states <- service.State{Result: &weather.Result{Location: "Paris", ConditionMain: weather.ConditionClear}}
		close(states)

		buf := bytes.NewBuffer(nil)
		printStates(t.Context(), buf, pres, service.State{}, states, logger.NewLogger(slog.LevelError, io.Discard))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if lines[0] != "Waiting for location…" {
			t.Errorf("expected first line to be the waiting message, got %q", lines[0])
		}
		if strings.Count(buf.String(), "Something failed") != 1 {
			t.Errorf("expected repeated output to be skipped, got %q", buf.String())
		}
		if !strings.Contains(buf.String(), "Paris") {
			t.Errorf("expected output to contain the result, got %q", buf.String())
		}
	})
	t.Run("printing stops when the context is done", func(t *testing.T) {
		pres := testPresenter(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		buf := bytes.NewBuffer(nil)
		printStates(ctx, buf, pres, service.State{}, make(chan service.State),
			logger.NewLogger(slog.LevelError, io.Discard))
		if !strings.Contains(buf.String(), "Waiting for location…") {
			t.Errorf("expected initial state to be printed, got %q", buf.String())
		}
	})
}

func TestRunUntilDone(t *testing.T) {
	t.Run("workers are stopped when serving fails early", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			wantErr := errors.New("failed to schedule refresh job")
			var stopped atomic.Int32
			worker := func(ctx context.Context) {
				<-ctx.Done()
				stopped.Add(1)
			}
			err := runUntilDone(t.Context(), func(context.Context) error { return wantErr }, worker, worker)
			if !errors.Is(err, wantErr) {
				t.Errorf("expected error to be %s, got %v", wantErr, err)
			}
			if stopped.Load() != 2 {
				t.Errorf("expected 2 workers to be stopped, got %d", stopped.Load())
			}
		})
	})
	t.Run("workers share the serving context", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			var done bool
			serve := func(ctx context.Context) error {
				cancel()
				<-ctx.Done()
				return nil
			}
			err := runUntilDone(ctx, serve, func(ctx context.Context) {
				<-ctx.Done()
				done = true
			})
			if err != nil {
				t.Errorf("expected no error, got %s", err)
			}
			if !done {
				t.Error("expected worker to be stopped")
			}
		})
	})
}

func testPresenter(t *testing.T) *presenter.Presenter {
	t.Helper()
	t.Setenv("WEATHERFETCH_WEATHER_APIKEY", "test")
	t.Setenv("WEATHERFETCH_LOCALE", "en")
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	localizer, err := i18n.New(conf.Locale)
	if err != nil {
		t.Fatalf("failed to create localizer: %s", err)
	}
	pres, err := presenter.New(conf, localizer)
	if err != nil {
		t.Fatalf("failed to create presenter: %s", err)
	}
	return pres
}
