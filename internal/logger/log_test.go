// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	if New(slog.LevelInfo) == nil {
		t.Fatal("expected logger to be non-nil")
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("records below the configured level are dropped", func(t *testing.T) {
		tests := []struct {
			level slog.Level
			want  []string
			skip  []string
		}{
			{slog.LevelDebug, []string{"msg=fetching", "msg=fetched", "msg=stale", "msg=failed"}, nil},
			{slog.LevelInfo, []string{"msg=fetched", "msg=stale", "msg=failed"}, []string{"msg=fetching"}},
			{slog.LevelWarn, []string{"msg=stale", "msg=failed"}, []string{"msg=fetching", "msg=fetched"}},
			{slog.LevelError, []string{"msg=failed"}, []string{"msg=fetching", "msg=fetched", "msg=stale"}},
		}
		for _, tt := range tests {
			t.Run(tt.level.String(), func(t *testing.T) {
				buf := bytes.NewBuffer(nil)
				log := NewLogger(tt.level, buf)
				log.Debug("fetching")
				log.Info("fetched")
				log.Warn("stale")
				log.Error("failed")

				for _, want := range tt.want {
					if !strings.Contains(buf.String(), want) {
						t.Errorf("expected %q to be logged, got: %q", want, buf.String())
					}
				}
				for _, skip := range tt.skip {
					if strings.Contains(buf.String(), skip) {
						t.Errorf("did not expect %q to be logged, got: %q", skip, buf.String())
					}
				}
			})
		}
	})
	t.Run("attributes added via With are kept", func(t *testing.T) {
		buf := bytes.NewBuffer(nil)
		log := &Logger{NewLogger(slog.LevelInfo, buf).With(slog.String("fetch_id", "abc"))}
		log.Info("fetch completed")
		if !strings.Contains(buf.String(), "fetch_id=abc") {
			t.Errorf("expected fetch id attribute to be logged, got: %q", buf.String())
		}
	})
}

func TestErr(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := NewLogger(slog.LevelDebug, buf)
	log.Error("weather fetch failed", Err(errors.New("connection refused")))
	if !strings.Contains(buf.String(), `error="connection refused"`) {
		t.Errorf("expected error attribute to be logged, got: %q", buf.String())
	}
}
