// Homeshelf - Media Server Cache & Homepage Toolbox
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homeshelf

// Package services adapts the Start/Stop lifecycle objects in this
// codebase to suture's context-aware Serve pattern.
package services

import (
	"context"
	"fmt"
)

// StartStopper matches the refresh.Scheduler lifecycle: Start spawns
// the poll goroutine and returns, Stop blocks until it has exited.
type StartStopper interface {
	Start() error
	Stop()
}

// PollService wraps one source's refresh scheduler as a supervised
// service. The scheduler manages its own goroutine internally, so the
// wrapper only orchestrates lifecycle transitions:
//  1. Start the scheduler
//  2. Block until the context is canceled
//  3. Stop the scheduler and wait for its goroutine
type PollService struct {
	scheduler StartStopper
	name      string
}

// NewPollService wraps a scheduler. sourceID names the service in
// supervisor logs.
func NewPollService(scheduler StartStopper, sourceID string) *PollService {
	return &PollService{
		scheduler: scheduler,
		name:      "poll-" + sourceID,
	}
}

// Serve implements suture.Service. A Start failure is returned so
// suture restarts the service with its backoff policy.
func (p *PollService) Serve(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	p.scheduler.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it to identify the
// service in log messages.
func (p *PollService) String() string {
	return p.name
}
