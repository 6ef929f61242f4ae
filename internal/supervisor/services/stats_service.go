// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package services

import (
	"context"
	"time"

	"github.com/insightd/insightd/internal/logging"
)

// StatsReporterService periodically logs a snapshot collected from the
// core services. The collect function runs on the reporter goroutine
// and must be safe for concurrent use with request handling.
type StatsReporterService struct {
	interval time.Duration
	collect  func() map[string]any
	name     string
}

// NewStatsReporterService creates a reporter with the given interval.
// Intervals under a second are raised to a minute.
func NewStatsReporterService(interval time.Duration, collect func() map[string]any) *StatsReporterService {
	if interval < time.Second {
		interval = time.Minute
	}
	return &StatsReporterService{
		interval: interval,
		collect:  collect,
		name:     "stats-reporter",
	}
}

// Serve implements suture.Service.
func (s *StatsReporterService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snapshot := s.collect()
			logging.Info().Fields(snapshot).Msg("Service statistics")
		}
	}
}

// String identifies the service in supervisor logs.
func (s *StatsReporterService) String() string {
	return s.name
}
