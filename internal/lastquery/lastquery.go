// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package lastquery remembers the last searched city and whether the application has been
// launched before.
package lastquery

import (
	"context"

	"github.com/wneessen/weather-fetch/internal/logger"
	"github.com/wneessen/weather-fetch/internal/store"
)

const (
	KeyLastSearchedCity  = "lastSearchedCity"
	KeyHasLaunchedBefore = "hasLaunchedBefore"

	launchedValue = "true"
)

// Store persists the last query on a store.KV. Storage failures are logged and never returned
// to the caller.
type Store struct {
	kv  store.KV
	log *logger.Logger
}

func New(kv store.KV, log *logger.Logger) *Store {
	return &Store{kv: kv, log: log}
}

// Save records city as the last searched city, overwriting the previous one.
func (s *Store) Save(ctx context.Context, city string) {
	if err := s.kv.Set(ctx, KeyLastSearchedCity, city); err != nil {
		s.log.Error("failed to save last searched city", logger.Err(err))
	}
}

// Load returns the last searched city. ok is false if none was saved or it could not be read.
func (s *Store) Load(ctx context.Context) (city string, ok bool) {
	city, ok, err := s.kv.Get(ctx, KeyLastSearchedCity)
	if err != nil {
		s.log.Error("failed to load last searched city", logger.Err(err))
		return "", false
	}
	return city, ok
}

// HasLaunched reports whether SetHasLaunched was called in an earlier run.
func (s *Store) HasLaunched(ctx context.Context) bool {
	value, ok, err := s.kv.Get(ctx, KeyHasLaunchedBefore)
	if err != nil {
		s.log.Error("failed to read launch flag", logger.Err(err))
		return false
	}
	return ok && value == launchedValue
}

func (s *Store) SetHasLaunched(ctx context.Context) {
	if err := s.kv.Set(ctx, KeyHasLaunchedBefore, launchedValue); err != nil {
		s.log.Error("failed to save launch flag", logger.Err(err))
	}
}

// ResetLaunched clears the launch flag so that the first-run steps happen again.
func (s *Store) ResetLaunched(ctx context.Context) {
	if err := s.kv.Delete(ctx, KeyHasLaunchedBefore); err != nil {
		s.log.Error("failed to reset launch flag", logger.Err(err))
	}
}
