// GQLGate - GraphQL Authorization Gateway
// Copyright 2026 GQLGate contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/gqlgate/gqlgate

package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gqlgate/gqlgate/internal/config"
)

func testConfig(url string) config.UpstreamConfig {
	return config.UpstreamConfig{
		URL:            url,
		Timeout:        2 * time.Second,
		BreakerEnabled: false,
	}
}

func TestForward_PreservesRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s", r.Method)
		}
		if r.URL.Path != "/graphql" {
			t.Errorf("Path = %s", r.URL.Path)
		}
		if r.URL.RawQuery != "trace=1" {
			t.Errorf("RawQuery = %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("X-Custom"); got != "kept" {
			t.Errorf("X-Custom = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"query":"{ ok }"}` {
			t.Errorf("Body = %s", body)
		}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("upstream says hi"))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	header := http.Header{
		"X-Custom":       []string{"kept"},
		"Host":           []string{"should-be-dropped"},
		"Content-Length": []string{"999"},
	}
	resp, err := c.Forward(context.Background(), http.MethodPost, "/graphql", "trace=1", header, []byte(`{"query":"{ ok }"}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "upstream says hi" {
		t.Errorf("Body = %s", body)
	}
}

func TestForward_TransportError(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"))
	if _, err := c.Forward(context.Background(), http.MethodGet, "/", "", nil, nil); err == nil {
		t.Error("Expected transport error")
	}
}

func TestForward_WithBreakerEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.BreakerEnabled = true
	c := New(cfg)

	resp, err := c.Forward(context.Background(), http.MethodGet, "/health", "", nil, nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	resp.Body.Close()
}

func TestRelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	resp, err := c.Forward(context.Background(), http.MethodPost, "/graphql", "", nil, nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	rec := httptest.NewRecorder()
	Relay(rec, resp)

	if rec.Code != http.StatusCreated {
		t.Errorf("Code = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Upstream"); got != "yes" {
		t.Errorf("X-Upstream = %q", got)
	}
	if rec.Body.String() != `{"data":{}}` {
		t.Errorf("Body = %s", rec.Body.String())
	}
}
