// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package testhelper contains shared helpers for the weather-fetch test suites.
package testhelper

import (
	"net/http"
	"os"
	"testing"
)

const (
	// TestOnlineAPIURL is a public endpoint that is used by online integration tests.
	TestOnlineAPIURL = "https://httpbin.org/delay/2"

	integrationEnv = "PERFORM_INTEGRATION_TESTS"
)

// MockRoundTripper is a http.RoundTripper that hands every request to Fn.
type MockRoundTripper struct {
	Fn func(*http.Request) (*http.Response, error)
}

// RoundTrip satisfies the http.RoundTripper interface.
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// PerformIntegrationTests skips the calling test unless PERFORM_INTEGRATION_TESTS is set to "true".
func PerformIntegrationTests(t *testing.T) {
	t.Helper()
	if val := os.Getenv(integrationEnv); val != "true" {
		t.Skipf("skipping integration test, set %s=true to enable", integrationEnv)
	}
}
