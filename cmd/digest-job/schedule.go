package main

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
)

// parseClock parses an HH:MM wall-clock time.
func parseClock(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("schedule must be HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule out of range: %q", s)
	}
	return hour, minute, nil
}

// runScheduled runs the digest daily at the configured wall-clock time until
// the context is canceled.
func runScheduled(ctx context.Context, cfg Config) error {
	hour, minute, err := parseClock(cfg.Schedule)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	_, err = c.AddFunc(spec, func() {
		if err := runOnce(ctx, cfg); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("add cron entry: %w", err)
	}

	log.Info().
		Str("at", cfg.Schedule).
		Str("tz", cfg.Timezone).
		Msg("scheduler started")
	c.Start()
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}
