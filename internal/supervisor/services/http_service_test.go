// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// mockServer drives the HTTPServer interface from the test. ListenAndServe
// blocks until release is closed, then returns listenErr.
type mockServer struct {
	release   chan struct{}
	listenErr error

	shutdowns atomic.Int32
}

func newMockServer(listenErr error) *mockServer {
	return &mockServer{release: make(chan struct{}), listenErr: listenErr}
}

func (m *mockServer) ListenAndServe() error {
	<-m.release
	return m.listenErr
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdowns.Add(1)
	close(m.release)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newMockServer(http.ErrServerClosed)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if got := srv.shutdowns.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
}

func TestHTTPServerServiceListenFailure(t *testing.T) {
	srv := newMockServer(errors.New("bind: address already in use"))
	svc := NewHTTPServerService(srv, time.Second)

	// Release immediately so ListenAndServe fails without waiting.
	close(srv.release)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve returned nil for a listen failure")
	}
	if got := srv.shutdowns.Load(); got != 0 {
		t.Errorf("Shutdown called %d times on listen failure, want 0", got)
	}
}

func TestHTTPServerServiceCleanClose(t *testing.T) {
	// http.ErrServerClosed from ListenAndServe is a clean stop, not a
	// failure worth restarting.
	srv := newMockServer(http.ErrServerClosed)
	svc := NewHTTPServerService(srv, time.Second)

	close(srv.release)

	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("Serve returned %v for a closed server, want nil", err)
	}
}

func TestHTTPServerServiceDefaults(t *testing.T) {
	svc := NewHTTPServerService(newMockServer(nil), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want the 10s default", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q, want http-server", svc.String())
	}
}

func TestStatsReporterServiceDefaults(t *testing.T) {
	svc := NewStatsReporterService(0, func() map[string]any { return nil })
	if svc.interval != time.Minute {
		t.Errorf("interval = %v, want the one minute floor", svc.interval)
	}
	if svc.String() != "stats-reporter" {
		t.Errorf("String() = %q, want stats-reporter", svc.String())
	}
}

func TestStatsReporterServiceCollects(t *testing.T) {
	var calls atomic.Int32
	svc := &StatsReporterService{
		interval: 5 * time.Millisecond,
		collect: func() map[string]any {
			calls.Add(1)
			return map[string]any{"analyses": 1}
		},
		name: "stats-reporter",
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("collect was not invoked")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}
