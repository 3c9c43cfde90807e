// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestServiceInterfaces(t *testing.T) {
	var _ suture.Service = (*PollService)(nil)
	var _ suture.Service = (*HTTPServerService)(nil)
}

// mockScheduler is a test double for StartStopper.
type mockScheduler struct {
	startErr   error
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (m *mockScheduler) Start() error {
	m.startCount.Add(1)
	return m.startErr
}

func (m *mockScheduler) Stop() {
	m.stopCount.Add(1)
}

func TestPollServiceLifecycle(t *testing.T) {
	sched := &mockScheduler{}
	svc := NewPollService(sched, "tautulli")

	if got := svc.String(); got != "poll-tautulli" {
		t.Errorf("String() = %q, want poll-tautulli", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give Serve a moment to call Start before canceling.
	deadline := time.Now().Add(2 * time.Second)
	for sched.startCount.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Start was never called")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if sched.stopCount.Load() != 1 {
		t.Errorf("Stop count = %d, want 1", sched.stopCount.Load())
	}
}

func TestPollServiceStartFailure(t *testing.T) {
	sched := &mockScheduler{startErr: errors.New("already running")}
	svc := NewPollService(sched, "jellystat")

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("Serve should return the start error")
	}
	if sched.stopCount.Load() != 0 {
		t.Error("Stop must not be called when Start fails")
	}
}

// mockHTTPServer is a test double for HTTPServer.
type mockHTTPServer struct {
	listenErr     error
	shutdownErr   error
	shutdownCount atomic.Int32
	stopCh        chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{stopCh: make(chan struct{})}
}

func (m *mockHTTPServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(ctx context.Context) error {
	m.shutdownCount.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := newMockHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if server.shutdownCount.Load() != 1 {
		t.Errorf("Shutdown count = %d, want 1", server.shutdownCount.Load())
	}
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	server := newMockHTTPServer()
	server.listenErr = errors.New("address already in use")
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if !errors.Is(err, server.listenErr) {
		t.Errorf("Serve error = %v, want wrapped listen error", err)
	}
}

func TestHTTPServerServiceDefaultTimeout(t *testing.T) {
	svc := NewHTTPServerService(newMockHTTPServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want default 10s", svc.shutdownTimeout)
	}
}
