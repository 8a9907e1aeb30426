// Package cron runs the service's background maintenance jobs: conversation
// TTL sweeps, rate-limiter pruning, and briefing prewarms.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// Service schedules named maintenance jobs. Jobs are registered before
// Start; each run is logged and panics are contained so one bad job cannot
// take the scheduler down.
type Service struct {
	c *robfigcron.Cron
}

func NewService() *Service {
	return &Service{c: robfigcron.New()}
}

// Every registers fn to run at a fixed interval.
func (s *Service) Every(interval time.Duration, name string, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", name)
	}
	return s.add(fmt.Sprintf("@every %s", interval), name, fn)
}

// Daily registers fn to run once a day at the given local time.
func (s *Service) Daily(hour, minute int, name string, fn func(ctx context.Context)) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("job %s: invalid time %02d:%02d", name, hour, minute)
	}
	return s.add(fmt.Sprintf("%d %d * * *", minute, hour), name, fn)
}

func (s *Service) add(spec, name string, fn func(ctx context.Context)) error {
	_, err := s.c.AddFunc(spec, func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("cron: job panic", "job", name, "panic", p)
			}
		}()
		start := time.Now()
		fn(context.Background())
		slog.Debug("cron: job ran", "job", name, "elapsed", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	slog.Info("cron: job registered", "job", name, "spec", spec)
	return nil
}

// Jobs reports how many jobs are registered.
func (s *Service) Jobs() int { return len(s.c.Entries()) }

// Start runs the scheduler until ctx is cancelled, then waits for any
// in-flight job to finish.
func (s *Service) Start(ctx context.Context) error {
	s.c.Start()
	slog.Info("cron: started", "jobs", len(s.c.Entries()))

	<-ctx.Done()

	<-s.c.Stop().Done()
	slog.Info("cron: stopped")
	return ctx.Err()
}
