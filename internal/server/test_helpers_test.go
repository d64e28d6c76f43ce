package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"guesswho/internal/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ModeratorPassword = "open-sesame"
	return cfg
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}
